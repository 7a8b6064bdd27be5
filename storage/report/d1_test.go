package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/indieinfra/ingest/config"
)

type d1Expectation struct {
	contains string
	params   []string
	status   int
	success  bool
}

func newD1TestReporter(t *testing.T, expectations []d1Expectation) (*D1Reporter, *int) {
	t.Helper()

	idx := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}

		if !strings.HasSuffix(r.URL.Path, "/query") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			SQL    string   `json:"sql"`
			Params []string `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}

		if idx >= len(expectations) {
			t.Errorf("unexpected request for sql: %s", req.SQL)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		exp := expectations[idx]
		idx++

		if !strings.Contains(req.SQL, exp.contains) {
			t.Errorf("expected sql containing %q, got %q", exp.contains, req.SQL)
		}
		if exp.params != nil && strings.Join(req.Params, "|") != strings.Join(exp.params, "|") {
			t.Errorf("unexpected params: %v", req.Params)
		}

		status := exp.status
		if status == 0 {
			status = http.StatusOK
		}

		w.WriteHeader(status)
		if !exp.success {
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "errors": []map[string]any{{"code": 7500, "message": "fail"}}})
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"result":  []map[string]any{{"success": true, "results": []any{}}},
		})
	}))
	t.Cleanup(srv.Close)

	cfg := &config.D1ReportStrategy{
		AccountID:  "acc",
		DatabaseID: "db",
		APIToken:   "token",
		Endpoint:   srv.URL,
	}

	reporter, err := newD1ReporterWithClient(cfg, srv.Client())
	if err != nil {
		t.Fatalf("reporter init: %v", err)
	}

	return reporter, &idx
}

func TestD1Reporter_Record(t *testing.T) {
	rep := sampleReport()

	reporter, calls := newD1TestReporter(t, []d1Expectation{
		{contains: "CREATE TABLE IF NOT EXISTS ingest_sessions", success: true},
		{contains: "CREATE INDEX IF NOT EXISTS ingest_sessions_session_id_idx", success: true},
		{
			contains: "INSERT INTO ingest_sessions",
			params: []string{
				"batch-1", "sess-1", "alice", "3", "2", "1", "0",
				`["big.jpg: file-too-large"]`,
				`["https://cdn.example/a.jpg","https://cdn.example/b.mp4"]`,
				"2026-05-01T12:00:00Z", "2026-05-01T12:00:03Z",
			},
			success: true,
		},
	})

	if err := reporter.Record(context.Background(), rep); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if *calls != 3 {
		t.Fatalf("expected 3 queries, got %d", *calls)
	}
}

func TestD1Reporter_InitFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "errors": []map[string]any{{"code": 10000, "message": "auth"}}})
	}))
	t.Cleanup(srv.Close)

	cfg := &config.D1ReportStrategy{AccountID: "acc", DatabaseID: "db", APIToken: "bad", Endpoint: srv.URL}
	if _, err := newD1ReporterWithClient(cfg, srv.Client()); err == nil {
		t.Fatalf("expected init to fail")
	}
}

func TestD1Reporter_NilConfig(t *testing.T) {
	if _, err := NewD1Reporter(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestConvertParams(t *testing.T) {
	got := convertParams([]any{true, false, 42, "x"})
	want := []string{"1", "0", "42", "x"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected params: %v", got)
	}
}
