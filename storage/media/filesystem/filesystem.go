package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/indieinfra/ingest/config"
	ingest "github.com/indieinfra/ingest/media"
	"github.com/indieinfra/ingest/storage/media"
	storageutil "github.com/indieinfra/ingest/storage/util"
)

// StoreImpl stores uploaded media files in a local directory.
type StoreImpl struct {
	basePath  string
	publicURL string
	pattern   *storageutil.PathPattern
	create    func(name string) (io.WriteCloser, error)
	mu        sync.Mutex
}

func createFile(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

func NewFilesystemMediaStore(cfg *config.FilesystemMediaStrategy) (*StoreImpl, error) {
	if cfg == nil {
		return nil, fmt.Errorf("filesystem media config is nil")
	}

	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &StoreImpl{
		basePath:  cfg.Path,
		publicURL: storageutil.NormalizeBaseURL(cfg.PublicUrl),
		pattern:   media.ResolvePattern(cfg.PathPattern),
		create:    createFile,
	}, nil
}

// Upload copies file under the base directory and returns its descriptor.
// A name that is already taken gets a short unique suffix.
func (fs *StoreImpl) Upload(ctx context.Context, file *ingest.File, ownerID string) (*ingest.MediaFile, error) {
	d, err := media.Describe(file, ownerID)
	if err != nil {
		return nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", file.Name, err)
	}
	defer src.Close()

	fs.mu.Lock()
	defer fs.mu.Unlock()

	relPath, err := media.ObjectPath(fs.pattern, d, "")
	if err != nil {
		return nil, fmt.Errorf("failed to generate path: %w", err)
	}

	absPath := filepath.Join(fs.basePath, filepath.FromSlash(relPath))
	if _, err := os.Stat(absPath); err == nil {
		relPath, err = media.ObjectPath(fs.pattern, d, uuid.NewString()[:8])
		if err != nil {
			return nil, fmt.Errorf("failed to generate unique path: %w", err)
		}
		absPath = filepath.Join(fs.basePath, filepath.FromSlash(relPath))
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	outFile, err := fs.create(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(outFile, src); err != nil {
		_ = outFile.Close()
		_ = os.Remove(absPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	// A failed close can mean the data never reached the disk.
	if err := outFile.Close(); err != nil {
		_ = os.Remove(absPath)
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	if err := ctx.Err(); err != nil {
		_ = os.Remove(absPath)
		return nil, err
	}

	d.URL = storageutil.JoinPublicURL(fs.publicURL, filepath.ToSlash(relPath))
	return d, nil
}
