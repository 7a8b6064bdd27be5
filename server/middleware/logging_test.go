package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/indieinfra/ingest/logging"
)

func TestRequestLoggerAttachesLogger(t *testing.T) {
	var got *logging.RequestLogger
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = logging.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/sessions/abc", nil)
	req.Header.Set(OwnerHeader, "alice")
	rr := httptest.NewRecorder()

	RequestLogger(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected downstream handler to run, got %d", rr.Code)
	}
	if got == nil {
		t.Fatalf("expected request logger in context")
	}
}
