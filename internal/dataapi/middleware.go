package dataapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/fbarbosa/hermes/internal/logger"
)

// RequestLogger injects a request-scoped logger (carrying the request ID)
// into the context so handler log lines are correlated, and logs each
// completed request.
//
// Successful evaluations log at Debug: the data plane sits on the checkout
// hot path and per-request Info lines would dominate the log volume. Client
// and server errors are promoted to Warn/Error as usual.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqID := middleware.GetReqID(r.Context())
		reqLogger := slog.Default().With(
			slog.String("request_id", reqID),
		)
		r = r.WithContext(logger.WithContext(r.Context(), reqLogger))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		level := slog.LevelDebug
		if status >= 500 {
			level = slog.LevelError
		} else if status >= 400 {
			level = slog.LevelWarn
		}

		reqLogger.Log(r.Context(), level, "HTTP request completed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("duration", time.Since(start).String()),
		)
	})
}
