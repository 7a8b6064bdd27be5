// Package report records an audit trail of finished upload sessions.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/indieinfra/ingest/logging"
	storageutil "github.com/indieinfra/ingest/storage/util"
)

// Report summarizes one batch of an upload session. A session that runs
// several batches produces one report per batch, all sharing SessionID.
type Report struct {
	BatchID    string    `json:"batch_id"`
	SessionID  string    `json:"session_id"`
	OwnerID    string    `json:"owner_id"`
	Total      int       `json:"total"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Cancelled  bool      `json:"cancelled"`
	Errors     []string  `json:"errors"`
	MediaURLs  []string  `json:"media_urls"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

type Reporter interface {
	Record(ctx context.Context, r Report) error
}

type NoopReporter struct{}

func (NoopReporter) Record(ctx context.Context, r Report) error {
	logging.Default.Info("batch finished",
		"batch", r.BatchID,
		"session", r.SessionID,
		"owner", r.OwnerID,
		"total", r.Total,
		"succeeded", r.Succeeded,
		"failed", r.Failed,
		"cancelled", r.Cancelled,
		"took", r.FinishedAt.Sub(r.StartedAt),
	)
	return nil
}

// tableName derives the sessions table from the configured prefix. A nil
// prefix defaults to "ingest"; an empty prefix yields a bare "sessions".
func tableName(prefix *string) string {
	p := "ingest"
	if prefix != nil {
		p = *prefix
	}

	return storageutil.DeriveTableName(p, "sessions")
}

func sessionIndexName(table string) string {
	return table + "_session_id_idx"
}

// columns lists the insert order matching row.
const columns = "id, session_id, owner_id, total, succeeded, failed, cancelled, errors, media, started_at, finished_at"

// row flattens r into the column order shared by the SQL and D1 reporters.
func row(r Report) ([]any, error) {
	errs, err := json.Marshal(nonNil(r.Errors))
	if err != nil {
		return nil, fmt.Errorf("failed to encode errors: %w", err)
	}

	urls, err := json.Marshal(nonNil(r.MediaURLs))
	if err != nil {
		return nil, fmt.Errorf("failed to encode media urls: %w", err)
	}

	return []any{
		r.BatchID,
		r.SessionID,
		r.OwnerID,
		r.Total,
		r.Succeeded,
		r.Failed,
		r.Cancelled,
		string(errs),
		string(urls),
		r.StartedAt.UTC(),
		r.FinishedAt.UTC(),
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
