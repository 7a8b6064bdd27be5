// Package media holds the upload service adapters: each Store persists a
// normalized file on behalf of an owner and returns its descriptor.
package media

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/indieinfra/ingest/classify"
	ingest "github.com/indieinfra/ingest/media"
	storageutil "github.com/indieinfra/ingest/storage/util"
)

var ErrUnsupportedKind = errors.New("file is neither an image nor a video")

type Store interface {
	Upload(ctx context.Context, file *ingest.File, ownerID string) (*ingest.MediaFile, error)
}

var now = time.Now

// Describe builds the descriptor for file before it is persisted. The URL is
// left for the store to fill in.
func Describe(file *ingest.File, ownerID string) (*ingest.MediaFile, error) {
	if file == nil {
		return nil, fmt.Errorf("file is required")
	}

	kind, ok := classify.KindOf(file)
	if !ok {
		return nil, fmt.Errorf("%q (%s): %w", file.Name, file.MediaType, ErrUnsupportedKind)
	}

	return &ingest.MediaFile{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		Kind:     kind,
		Filename: file.Name,
		MIMEType: file.MediaType,
		Size:     file.Size,
		Created:  now().UTC(),
	}, nil
}

// ObjectPath renders pattern for a descriptor. suffix, when set, is appended
// to the slug to avoid collisions.
func ObjectPath(pattern *storageutil.PathPattern, d *ingest.MediaFile, suffix string) (string, error) {
	ext := filepath.Ext(d.Filename)
	base := strings.TrimSuffix(d.Filename, ext)

	if ext == "" && d.MIMEType != "" {
		if exts, err := mime.ExtensionsByType(d.MIMEType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}

	name := slug.Make(base)
	if name == "" {
		name = d.ID
	}
	if suffix != "" {
		name = name + "-" + suffix
	}

	return pattern.Generate(storageutil.PathValues{
		Slug:  name,
		Owner: slug.Make(d.OwnerID),
		ID:    d.ID,
		Time:  d.Created,
		Ext:   strings.ToLower(ext),
	})
}

// ResolvePattern returns the configured pattern or the default media pattern.
func ResolvePattern(raw string) *storageutil.PathPattern {
	if strings.TrimSpace(raw) == "" {
		return storageutil.DefaultMediaPattern()
	}
	return storageutil.NewPathPattern(raw)
}
