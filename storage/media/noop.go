package media

import (
	"context"

	"github.com/indieinfra/ingest/logging"
	ingest "github.com/indieinfra/ingest/media"
)

// NoopStore accepts every upload without persisting anything.
type NoopStore struct{}

func (ms *NoopStore) Upload(ctx context.Context, file *ingest.File, ownerID string) (*ingest.MediaFile, error) {
	d, err := Describe(file, ownerID)
	if err != nil {
		return nil, err
	}

	logging.Default.Info("received no-op media upload",
		"owner", ownerID,
		"filename", file.Name,
		"type", file.MediaType,
		"size", file.Size,
	)

	d.URL = "https://noop.example.org/" + d.ID
	return d, nil
}
