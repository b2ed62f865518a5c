// Package requesttime stamps each request with an ID and an arrival time.
package requesttime

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"checkpoint/pkg/requestcontext"
)

const requestIDHeader = "X-Request-ID"

// Middleware assigns a request ID (honoring one supplied by an upstream
// proxy) and records the arrival time, so every layer below sees the same
// clock reading.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			ctx := requestcontext.WithRequestID(r.Context(), requestID)
			ctx = requestcontext.WithTime(ctx, time.Now().UTC())

			w.Header().Set(requestIDHeader, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
