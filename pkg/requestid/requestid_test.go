package requestid_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartbase/authcore/pkg/requestid"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	// serve runs one request through the middleware and returns the ID the
	// handler saw in its context alongside the recorded response.
	serve := func(t *testing.T, clientID string) (string, *httptest.ResponseRecorder) {
		t.Helper()

		var seen string
		handler := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = requestid.FromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if clientID != "" {
			req.Header.Set(requestid.Header, clientID)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return seen, rec
	}

	t.Run("generates an id when the client sends none", func(t *testing.T) {
		t.Parallel()

		seen, rec := serve(t, "")
		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(requestid.Header))
	})

	t.Run("keeps a well-formed client id", func(t *testing.T) {
		t.Parallel()

		seen, rec := serve(t, "deploy-42_abc")
		assert.Equal(t, "deploy-42_abc", seen)
		assert.Equal(t, "deploy-42_abc", rec.Header().Get(requestid.Header))
	})

	t.Run("replaces malformed client ids", func(t *testing.T) {
		t.Parallel()

		long := make([]byte, 129)
		for i := range long {
			long[i] = 'a'
		}

		for _, bad := range []string{
			"has space",
			"slash/es",
			"semi;colon",
			"<script>alert(1)</script>",
			string(long),
		} {
			seen, rec := serve(t, bad)
			require.NotEmpty(t, seen)
			assert.NotEqual(t, bad, seen)
			assert.NotEqual(t, bad, rec.Header().Get(requestid.Header))
		}
	})
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	assert.Empty(t, requestid.FromContext(context.Background()))

	ctx := requestid.WithContext(context.Background(), "abc-123")
	assert.Equal(t, "abc-123", requestid.FromContext(ctx))
}
