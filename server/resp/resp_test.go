package resp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteOK(t *testing.T) {
	rr := httptest.NewRecorder()

	WriteOK(rr, map[string]string{"hello": "world"})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json content type, got %q", ct)
	}

	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["hello"] != "world" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestWriteErrorVariants(t *testing.T) {
	cases := []struct {
		name  string
		write func(http.ResponseWriter)
		code  int
		err   string
		desc  string
	}{
		{
			name:  "invalid request",
			write: func(w http.ResponseWriter) { WriteInvalidRequest(w, "bad") },
			code:  http.StatusBadRequest, err: "invalid_request", desc: "bad",
		},
		{
			name:  "not found",
			write: func(w http.ResponseWriter) { WriteNotFound(w, "missing") },
			code:  http.StatusNotFound, err: "not_found", desc: "missing",
		},
		{
			name:  "conflict",
			write: func(w http.ResponseWriter) { WriteConflict(w, "busy") },
			code:  http.StatusConflict, err: "conflict", desc: "busy",
		},
		{
			name:  "payload too large",
			write: func(w http.ResponseWriter) { WritePayloadTooLarge(w, "too big") },
			code:  http.StatusRequestEntityTooLarge, err: "payload_too_large", desc: "too big",
		},
		{
			name:  "unsupported media type",
			write: func(w http.ResponseWriter) { WriteUnsupportedMediaType(w, "multipart only") },
			code:  http.StatusUnsupportedMediaType, err: "unsupported_media_type", desc: "multipart only",
		},
		{
			name:  "internal",
			write: func(w http.ResponseWriter) { WriteInternalServerError(w, "oops") },
			code:  http.StatusInternalServerError, err: "internal_server_error", desc: "oops",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tc.write(rr)

			if rr.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rr.Code)
			}

			var body ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Error != tc.err || body.Description != tc.desc {
				t.Fatalf("unexpected body %+v", body)
			}
		})
	}
}

func TestWriteNoContentAndAccepted(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteNoContent(rr)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("expected empty body")
	}

	rr = httptest.NewRecorder()
	WriteAccepted(rr, "/sessions/1", map[string]string{"id": "1"})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
	if rr.Header().Get("Location") != "/sessions/1" {
		t.Fatalf("expected Location header")
	}

	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body["id"] != "1" {
		t.Fatalf("unexpected body %q: %v", rr.Body.String(), err)
	}
}

func TestWriteUnprocessableCarriesState(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteUnprocessable(rr, "a.jpg: file-too-large", map[string]int{"total": 1})

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}

	var body struct {
		Error       string         `json:"error"`
		Description string         `json:"description"`
		State       map[string]int `json:"state"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Error != "upload_failed" || body.Description != "a.jpg: file-too-large" || body.State["total"] != 1 {
		t.Fatalf("unexpected body %+v", body)
	}
}
