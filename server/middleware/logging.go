package middleware

import (
	"net/http"

	"github.com/indieinfra/ingest/logging"
)

// OwnerHeader carries the owning user when the form does not.
const OwnerHeader = "X-Owner-Id"

// RequestLogger attaches a request-scoped logger to the request context.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rl := logging.WithRequest(logging.Default, r, r.Header.Get(OwnerHeader))
		next.ServeHTTP(w, r.WithContext(logging.ContextWithLogger(r.Context(), rl)))
	})
}
