package requestid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Header is the correlation header read from the request and echoed in the
// response.
const Header = "X-Request-ID"

const maxLen = 128

type ctxKey struct{}

// Middleware tags every request with a correlation ID. A well-formed ID
// supplied by the client is kept; anything else is replaced with a fresh
// UUID so log fields stay injection-safe.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if !wellFormed(id) {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), id)))
	})
}

// wellFormed accepts alphanumerics, hyphen, and underscore, up to maxLen
// bytes.
func wellFormed(id string) bool {
	if id == "" || len(id) > maxLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

// WithContext returns a context carrying the request ID.
func WithContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request ID, or an empty string when the request
// never passed through Middleware.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
