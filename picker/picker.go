// Package picker provides the file-selection surfaces an upload session
// starts from. A selection resolves once with an ordered, possibly empty,
// list of files; an empty list means the user closed the surface.
package picker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/indieinfra/ingest/classify"
	"github.com/indieinfra/ingest/logging"
	"github.com/indieinfra/ingest/media"
)

type Picker interface {
	Select(ctx context.Context) ([]*media.File, error)
}

// Func adapts a function to the Picker interface.
type Func func(ctx context.Context) ([]*media.File, error)

func (f Func) Select(ctx context.Context) ([]*media.File, error) {
	return f(ctx)
}

// Static is a selection that has already been made.
type Static []*media.File

func (s Static) Select(ctx context.Context) ([]*media.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]*media.File, len(s))
	copy(out, s)
	return out, nil
}

// Paths selects files from the local filesystem, in the given order.
// Directories are skipped; media types are sniffed from content.
type Paths []string

func (p Paths) Select(ctx context.Context) ([]*media.File, error) {
	files := make([]*media.File, 0, len(p))

	for _, path := range p {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %q: %w", path, err)
		}

		if info.IsDir() {
			logging.Default.Warnf("skipping directory %q", path)
			continue
		}

		mediaType, err := classify.DetectFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to detect media type of %q: %w", path, err)
		}

		files = append(files, media.NewPathFile(path, filepath.Base(path), mediaType, info.Size()))
	}

	return files, nil
}
