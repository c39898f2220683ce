// Package validation holds small contract-enforcement helpers shared by the
// composition roots.
package validation

import "fmt"

// AssertNotNil panics when ptr is nil. It guards mandatory dependencies at
// wiring time: a nil pool or client here is a misconfiguration that must
// stop startup, not a runtime condition to recover from.
//
//	validation.AssertNotNil(pool, "database pool")
func AssertNotNil[T any](ptr *T, name string) {
	if ptr == nil {
		panic(fmt.Sprintf("critical error: %s cannot be nil", name))
	}
}
