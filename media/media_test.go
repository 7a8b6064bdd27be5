package media

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewFile_Bytes(t *testing.T) {
	f := NewFile("a.png", "image/png", []byte("pixels"))

	if f.Size != 6 {
		t.Fatalf("expected size 6, got %d", f.Size)
	}

	data, err := f.Bytes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "pixels" {
		t.Fatalf("unexpected content: %q", data)
	}

	// a second read sees the same content
	again, err := f.Bytes()
	if err != nil || string(again) != "pixels" {
		t.Fatalf("expected repeatable reads, got %q (%v)", again, err)
	}
}

func TestNewPathFile_Open(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("frames"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	f := NewPathFile(path, "clip.mp4", "video/mp4", 6)
	data, err := f.Bytes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "frames" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestFile_OpenWithoutContent(t *testing.T) {
	var f *File
	if _, err := f.Open(); err == nil {
		t.Fatalf("expected error for nil file")
	}

	if _, err := (&File{Name: "x"}).Bytes(); err == nil {
		t.Fatalf("expected error for file without opener")
	}
}
