package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/docsense/docsense/pkg/logger"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with an id, reusing the client's when the
// header is set, and stores it on the context so per-request log lines can
// be correlated.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := logger.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request id stored on ctx, or "" when the request
// never passed through the RequestID middleware.
func GetRequestID(ctx context.Context) string {
	id, _ := logger.RequestIDFromContext(ctx)
	return id
}
