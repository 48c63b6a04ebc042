// Package trace provides per-request correlation identifiers.
//
// A correlation id ties together every audit record and log line produced
// for one logical request. The id travels in a context.Context value, so its
// scope is exactly the lifetime of the request: the derived context is
// dropped on every exit path and can never bleed into an unrelated request
// handled by the same goroutine later.
package trace

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Header is the HTTP header carrying an inbound correlation id.
const Header = "X-Correlation-Id"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const correlationKey contextKey = "audit-correlation-id"

// Begin attaches a correlation id to the context and returns the derived
// context together with the id. If incoming is non-blank it is used as-is
// (the caller arrived with an id from an upstream hop); otherwise a fresh
// UUIDv4 is generated.
func Begin(ctx context.Context, incoming string) (context.Context, string) {
	id := strings.TrimSpace(incoming)
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, correlationKey, id), id
}

// FromContext returns the correlation id attached to the context, or the
// empty string when the context carries none.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey).(string)
	return id
}

// Middleware wraps an http.Handler so every request runs with a correlation
// id in scope. The id is taken from the X-Correlation-Id request header when
// present and echoed back on the response so clients can chain calls. The
// derived context ends with the request on every exit path, including
// panics and timeouts, so the id cannot contaminate a pooled worker.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, id := Begin(r.Context(), r.Header.Get(Header))
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
