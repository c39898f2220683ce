// Package store provides the Data Access Layer (Repository) for discount
// records. It handles all direct interactions with the PostgreSQL database
// using the pgx driver.
//
// Discount records are owned by the commerce platform and mirrored into this
// table by the platform webhook consumers; from the engine's perspective the
// store is read-only apart from seeding helpers.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check to verify that PostgresStore implements DiscountRepository.
// If the interface changes and the struct doesn't, the build fails here.
var _ DiscountRepository = (*PostgresStore)(nil)

// DiscountRecord is one discount instance as mirrored from the platform.
// Configuration holds the raw JSON rule payload; it is decoded by the engine,
// not here, so that schema drift stays out of the persistence layer.
type DiscountRecord struct {
	ID            string     `db:"id"`
	ShopID        string     `db:"shop_id"`
	Title         string     `db:"title"`
	StartsAt      time.Time  `db:"starts_at"`
	EndsAt        *time.Time `db:"ends_at"`
	Configuration []byte     `db:"configuration"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// DiscountRepository defines the interface for discount record persistence.
// Using an interface allows for dependency injection and easier mocking in tests.
type DiscountRepository interface {
	// ListDiscountRecords retrieves every discount record for the given shop
	// in stable enumeration order. Temporal filtering is NOT applied here:
	// the aggregation stage owns the activity window check, so the same
	// query result reproduces the same rule set for any given clock.
	ListDiscountRecords(ctx context.Context, shopID string) ([]*DiscountRecord, error)

	// ListShopIDs returns the distinct shops that have at least one record.
	// The periodic sync loop uses it to fan out per-shop syncs.
	ListShopIDs(ctx context.Context) ([]string, error)

	// CreateDiscountRecord inserts a record and populates its timestamps.
	CreateDiscountRecord(ctx context.Context, rec *DiscountRecord) error
}

// PostgresStore is the implementation of DiscountRepository backed by PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new repository instance with the given connection pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	if db == nil {
		panic("store: database pool cannot be nil")
	}
	return &PostgresStore{db: db}
}

// ListDiscountRecords retrieves all records for a shop.
// Ordering by creation time (with ID as tie-break) keeps enumeration stable
// across syncs, which makes the published rule set reproducible.
func (s *PostgresStore) ListDiscountRecords(ctx context.Context, shopID string) ([]*DiscountRecord, error) {
	if shopID == "" {
		return nil, fmt.Errorf("shop id cannot be empty")
	}

	query := `
		SELECT id, shop_id, title, starts_at, ends_at, configuration, created_at, updated_at
		FROM discount_records
		WHERE shop_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.Query(ctx, query, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to list discount records: %w", err)
	}
	// Ensure rows are closed to prevent connection leaks in the pool.
	defer rows.Close()

	var records []*DiscountRecord
	for rows.Next() {
		var rec DiscountRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.ShopID,
			&rec.Title,
			&rec.StartsAt,
			&rec.EndsAt,
			&rec.Configuration,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan discount record row: %w", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}

// ListShopIDs returns every shop with at least one discount record.
func (s *PostgresStore) ListShopIDs(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT shop_id FROM discount_records ORDER BY shop_id ASC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list shop ids: %w", err)
	}
	defer rows.Close()

	var shops []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan shop id: %w", err)
		}
		shops = append(shops, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return shops, nil
}

// CreateDiscountRecord inserts a new discount record.
// It uses the RETURNING clause to get the server-generated timestamps efficiently.
func (s *PostgresStore) CreateDiscountRecord(ctx context.Context, rec *DiscountRecord) error {
	query := `
		INSERT INTO discount_records (id, shop_id, title, starts_at, ends_at, configuration)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := s.db.QueryRow(ctx, query,
		rec.ID,
		rec.ShopID,
		rec.Title,
		rec.StartsAt,
		rec.EndsAt,
		rec.Configuration,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)

	if err != nil {
		// Handle specific database errors explicitly.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			// Error Code 23505: unique_violation
			if pgErr.Code == "23505" {
				return fmt.Errorf("discount record %q already exists", rec.ID)
			}
		}
		return fmt.Errorf("failed to insert discount record: %w", err)
	}

	return nil
}
