package controlapi

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/fbarbosa/hermes/internal/logger"
	"github.com/fbarbosa/hermes/internal/observability"
)

// RequestLogger creates a middleware that handles per-request observability:
// it injects a request-scoped logger (carrying the request ID) into the
// context for handlers to retrieve via logger.FromContext, records the HTTP
// metrics, and logs the completion of each request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Get RequestID set by Chi's RequestID middleware
		reqID := middleware.GetReqID(r.Context())

		// Request-scoped logger: every handler log line carries the request
		// ID, so one request's lines can be correlated across the log stream.
		reqLogger := slog.Default().With(
			slog.String("request_id", reqID),
		)
		r = r.WithContext(logger.WithContext(r.Context(), reqLogger))

		// Wrap the ResponseWriter to capture the status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		status := ww.Status()

		// Label by the matched route pattern, never the raw path: raw paths
		// embed shop IDs (and scanner noise), which would blow up metric
		// cardinality. Unmatched requests collapse into one bucket.
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "not_found"
		}

		observability.ControlPlaneReqTotal.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Inc()
		observability.ControlPlaneReqDuration.
			WithLabelValues(r.Method, route).
			Observe(duration.Seconds())

		// We use Info level for success, Warn for 4xx, Error for 5xx
		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		} else if status >= 400 {
			level = slog.LevelWarn
		}

		reqLogger.Log(r.Context(), level, "HTTP request completed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("duration", duration.String()),
			slog.String("remote_ip", r.RemoteAddr),
		)
	})
}

// authenticateAPIKey validates the X-API-Key header against the configured
// SHA-256 hash. The presented key is hashed before comparison so the plain
// key never lives in our configuration, and the comparison is constant-time
// to avoid leaking prefix information.
func (a *API) authenticateAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.skipAuth {
			next.ServeHTTP(w, r)
			return
		}

		presented := r.Header.Get("X-API-Key")
		if presented == "" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, ErrorResponse{
				Code:    "ERR_UNAUTHORIZED",
				Message: "Missing X-API-Key header",
			})
			return
		}

		sum := sha256.Sum256([]byte(presented))
		presentedHash := hex.EncodeToString(sum[:])

		if subtle.ConstantTimeCompare([]byte(presentedHash), []byte(a.apiKeyHash)) != 1 {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, ErrorResponse{
				Code:    "ERR_UNAUTHORIZED",
				Message: "Invalid API key",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
