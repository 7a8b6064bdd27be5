package picker

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/indieinfra/ingest/media"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestStaticSelect(t *testing.T) {
	a := media.NewFile("a.png", "image/png", []byte("a"))
	b := media.NewFile("b.mp4", "video/mp4", []byte("b"))

	s := Static{a, b}
	got, err := s.Select(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("unexpected selection: %+v", got)
	}

	got[0] = nil
	if s[0] != a {
		t.Fatalf("selection must not alias the static list")
	}
}

func TestStaticSelect_Empty(t *testing.T) {
	got, err := Static(nil).Select(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty selection, got %d", len(got))
	}
}

func TestStaticSelect_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := (Static{}).Select(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFuncSelect(t *testing.T) {
	called := false
	p := Func(func(context.Context) ([]*media.File, error) {
		called = true
		return nil, nil
	})

	if _, err := p.Select(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatalf("expected func to be called")
	}
}

func TestPathsSelect(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(img, pngHeader, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("hello there"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := Paths{txt, sub, img}.Select(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 files, got %d", len(got))
	}

	if got[0].Name != "notes.txt" || got[0].MediaType != "text/plain" {
		t.Fatalf("unexpected first file: %+v", got[0])
	}
	if got[1].Name != "photo.png" || got[1].MediaType != "image/png" || got[1].Size != int64(len(pngHeader)) {
		t.Fatalf("unexpected second file: %+v", got[1])
	}

	data, err := got[1].Bytes()
	if err != nil || !bytes.Equal(data, pngHeader) {
		t.Fatalf("unexpected content: %v %v", data, err)
	}
}

func TestPathsSelect_Missing(t *testing.T) {
	if _, err := (Paths{filepath.Join(t.TempDir(), "nope.jpg")}).Select(context.Background()); err == nil {
		t.Fatalf("expected error for missing path")
	}
}

type part struct {
	field, filename, contentType string
	data                         []byte
}

func multipartBody(t *testing.T, values map[string]string, parts []part) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range values {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		fw, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := fw.Write(p.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestFromMultipart(t *testing.T) {
	body, ct := multipartBody(t, map[string]string{"owner": "alice"}, []part{
		{"file", "one.jpg", "image/jpeg; charset=binary", []byte("jpeg-bytes")},
		{"file", "two.png", "application/octet-stream", pngHeader},
		{"other", "ignored.txt", "text/plain", []byte("x")},
	})

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()

	files, values, err := FromMultipart(rr, req, MultipartLimits{MaxMemory: 1 << 20}, []string{"file"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if values.String("owner") != "alice" {
		t.Fatalf("expected owner value, got %v", values["owner"])
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].Name != "one.jpg" || files[0].MediaType != "image/jpeg" {
		t.Fatalf("unexpected first file: %+v", files[0])
	}
	if files[1].MediaType != "image/png" {
		t.Fatalf("expected sniffed png, got %q", files[1].MediaType)
	}

	data, err := files[0].Bytes()
	if err != nil || string(data) != "jpeg-bytes" {
		t.Fatalf("content not buffered: %q %v", data, err)
	}
}

func TestFromMultipart_OversizedPartKeepsSize(t *testing.T) {
	big := bytes.Repeat([]byte{'a'}, 2048)
	body, ct := multipartBody(t, nil, []part{{"file", "big.jpg", "image/jpeg", big}})

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", ct)

	files, _, err := FromMultipart(httptest.NewRecorder(), req, MultipartLimits{MaxMemory: 1 << 20, MaxFileSize: 1024}, []string{"file"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 || files[0].Size != 2048 {
		t.Fatalf("expected oversized file with declared size, got %+v", files)
	}
	if _, err := files[0].Open(); err == nil {
		t.Fatalf("oversized part should carry no content")
	}
}

func TestFromMultipart_KeepsBodyOrderAcrossFieldNames(t *testing.T) {
	body, ct := multipartBody(t, nil, []part{
		{"file", "a.jpg", "image/jpeg", []byte("a")},
		{"file[]", "b.jpg", "image/jpeg", []byte("b")},
		{"other", "skip.jpg", "image/jpeg", []byte("x")},
		{"file", "c.jpg", "image/jpeg", []byte("c")},
		{"file[]", "d.jpg", "image/jpeg", []byte("d")},
	})

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", ct)

	files, _, err := FromMultipart(httptest.NewRecorder(), req, MultipartLimits{MaxMemory: 1 << 20}, []string{"file"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	if got, want := strings.Join(names, ","), "a.jpg,b.jpg,c.jpg,d.jpg"; got != want {
		t.Fatalf("expected files in body order %s, got %s", want, got)
	}
}

func TestFromMultipart_FieldValuesOverBudget(t *testing.T) {
	body, ct := multipartBody(t, map[string]string{"note": strings.Repeat("n", 64)}, []part{
		{"file", "a.jpg", "image/jpeg", []byte("a")},
	})

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", ct)

	_, _, err := FromMultipart(httptest.NewRecorder(), req, MultipartLimits{MaxMemory: 16}, []string{"file"})
	if !errors.Is(err, multipart.ErrMessageTooLarge) {
		t.Fatalf("expected ErrMessageTooLarge, got %v", err)
	}
}

func TestFromMultipart_NoFiles(t *testing.T) {
	body, ct := multipartBody(t, map[string]string{"owner": "bob"}, nil)

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", ct)

	_, values, err := FromMultipart(httptest.NewRecorder(), req, MultipartLimits{MaxMemory: 1 << 20}, []string{"file"})
	if !errors.Is(err, ErrNoFiles) {
		t.Fatalf("expected ErrNoFiles, got %v", err)
	}
	if values.String("owner") != "bob" {
		t.Fatalf("values should still be returned")
	}
}

func TestFromMultipart_PayloadTooLarge(t *testing.T) {
	body, ct := multipartBody(t, nil, []part{{"file", "a.jpg", "image/jpeg", bytes.Repeat([]byte{'a'}, 4096)}})

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", ct)

	if _, _, err := FromMultipart(httptest.NewRecorder(), req, MultipartLimits{MaxPayload: 512, MaxMemory: 1 << 20}, []string{"file"}); err == nil {
		t.Fatalf("expected error for oversized payload")
	}
}

func TestFromMultipart_NotMultipart(t *testing.T) {
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString("x=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if _, _, err := FromMultipart(httptest.NewRecorder(), req, MultipartLimits{MaxMemory: 1 << 20}, []string{"file"}); err == nil {
		t.Fatalf("expected error for non-multipart body")
	}
}
