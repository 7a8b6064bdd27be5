package classify

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/indieinfra/ingest/media"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		name      string
		mediaType string
		image     bool
		video     bool
	}{
		{"jpeg", "image/jpeg", true, false},
		{"png with params", "image/png; charset=binary", true, false},
		{"uppercase", "IMAGE/WEBP", true, false},
		{"mp4", "video/mp4", false, true},
		{"quicktime", "video/quicktime", false, true},
		{"pdf", "application/pdf", false, false},
		{"audio", "audio/mpeg", false, false},
		{"empty", "", false, false},
		{"garbage", "image", false, false},
		{"prefix trap", "images/png", false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := media.NewFile("f", tc.mediaType, nil)
			if got := IsImageFile(f); got != tc.image {
				t.Fatalf("IsImageFile(%q) = %v, want %v", tc.mediaType, got, tc.image)
			}
			if got := IsVideoFile(f); got != tc.video {
				t.Fatalf("IsVideoFile(%q) = %v, want %v", tc.mediaType, got, tc.video)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if k, ok := KindOf(media.NewFile("a", "image/gif", nil)); !ok || k != media.KindImage {
		t.Fatalf("expected image kind, got %q %v", k, ok)
	}
	if k, ok := KindOf(media.NewFile("a", "video/webm", nil)); !ok || k != media.KindVideo {
		t.Fatalf("expected video kind, got %q %v", k, ok)
	}
	if _, ok := KindOf(media.NewFile("a", "text/plain", nil)); ok {
		t.Fatalf("expected text/plain to be unclassified")
	}
	if _, ok := KindOf(nil); ok {
		t.Fatalf("expected nil file to be unclassified")
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestSniff(t *testing.T) {
	if got := Sniff(pngBytes(t)); got != "image/png" {
		t.Fatalf("expected image/png, got %q", got)
	}
	if got := Sniff([]byte("hello world")); got != "text/plain" {
		t.Fatalf("expected text/plain, got %q", got)
	}
}

func TestDetectFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noext")
	if err := os.WriteFile(path, pngBytes(t), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := DetectFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "image/png" {
		t.Fatalf("expected image/png, got %q", got)
	}

	if _, err := DetectFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
