package media

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ingest "github.com/indieinfra/ingest/media"
	storageutil "github.com/indieinfra/ingest/storage/util"
)

func TestNoopStore(t *testing.T) {
	store := &NoopStore{}

	d, err := store.Upload(context.Background(), ingest.NewFile("clip.mp4", "video/mp4", []byte("data")), "alice")
	if err != nil {
		t.Fatalf("unexpected upload error: %v", err)
	}

	if d.URL == "" || !strings.HasSuffix(d.URL, d.ID) {
		t.Fatalf("unexpected url: %q", d.URL)
	}
	if d.Kind != ingest.KindVideo || d.OwnerID != "alice" || d.Size != 4 {
		t.Fatalf("unexpected descriptor: %+v", d)
	}
}

func TestNoopStore_RejectsUnclassifiedFile(t *testing.T) {
	store := &NoopStore{}

	_, err := store.Upload(context.Background(), ingest.NewFile("doc.pdf", "application/pdf", []byte("%PDF")), "alice")
	if !errors.Is(err, ErrUnsupportedKind) {
		t.Fatalf("expected ErrUnsupportedKind, got %v", err)
	}
}

func TestObjectPath(t *testing.T) {
	created := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		pattern  string
		d        ingest.MediaFile
		suffix   string
		expected string
	}{
		{
			name:     "default pattern slugifies name and owner",
			pattern:  "",
			d:        ingest.MediaFile{ID: "id1", OwnerID: "Alice Smith", Filename: "My Holiday.JPG", MIMEType: "image/jpeg", Created: created},
			expected: "alice-smith/2026/04/my-holiday.jpg",
		},
		{
			name:     "extension from media type",
			pattern:  "{slug}{ext}",
			d:        ingest.MediaFile{ID: "id2", Filename: "capture", MIMEType: "image/png", Created: created},
			expected: "capture.png",
		},
		{
			name:     "unsluggable name falls back to id",
			pattern:  "{filename}",
			d:        ingest.MediaFile{ID: "id3", Filename: "???.mp4", MIMEType: "video/mp4", Created: created},
			expected: "id3.mp4",
		},
		{
			name:     "suffix is appended to slug",
			pattern:  "{filename}",
			d:        ingest.MediaFile{ID: "id4", Filename: "a.jpg", Created: created},
			suffix:   "x1",
			expected: "a-x1.jpg",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ObjectPath(ResolvePattern(tc.pattern), &tc.d, tc.suffix)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestObjectPath_RequiresOwnerForOwnerPattern(t *testing.T) {
	d := &ingest.MediaFile{ID: "id", Filename: "a.jpg", Created: time.Now()}
	if _, err := ObjectPath(storageutil.DefaultMediaPattern(), d, ""); err == nil {
		t.Fatalf("expected error when owner is missing")
	}
}
