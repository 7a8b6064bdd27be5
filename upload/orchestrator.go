// Package upload runs batch upload sessions: files chosen through a picker
// are validated, normalized when they are images, and handed to an upload
// service one at a time while a read model tracks progress.
package upload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/indieinfra/ingest/classify"
	"github.com/indieinfra/ingest/compress"
	"github.com/indieinfra/ingest/config"
	"github.com/indieinfra/ingest/logging"
	"github.com/indieinfra/ingest/media"
	"github.com/indieinfra/ingest/picker"
	"github.com/indieinfra/ingest/storage/report"
)

const reportTimeout = 10 * time.Second

type Compressor interface {
	Compress(ctx context.Context, f *media.File) (*media.File, error)
}

type Measurer interface {
	Dimensions(ctx context.Context, f *media.File) (compress.Dimensions, error)
}

// Thumbnailer renders a small preview of a normalized image.
type Thumbnailer interface {
	Thumbnail(ctx context.Context, f *media.File) (*media.File, error)
}

type Uploader interface {
	Upload(ctx context.Context, f *media.File, ownerID string) (*media.MediaFile, error)
}

// Orchestrator owns one upload session at a time.
type Orchestrator struct {
	picker     picker.Picker
	compressor Compressor
	uploader   Uploader
	measurer   Measurer
	thumbs     Thumbnailer
	reporter   report.Reporter
	logger     *log.Logger

	maxFileSize int64
	newID       func() string
	newBatchID  func() string
	now         func() time.Time

	// notifyMu orders subscriber delivery; it is taken before mu.
	notifyMu sync.Mutex

	mu      sync.RWMutex
	state   State
	running bool
	cancel  context.CancelFunc
	subs    map[int]func(State)
	nextSub int
}

type Option func(*Orchestrator)

// WithMaxFileSize sets the per-file size ceiling in bytes.
func WithMaxFileSize(n int64) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxFileSize = n
		}
	}
}

// WithMeasurer records width and height of normalized images.
func WithMeasurer(m Measurer) Option {
	return func(o *Orchestrator) { o.measurer = m }
}

// WithThumbnailer uploads a thumbnail next to every normalized image. A
// failed thumbnail is logged and leaves the image without a ThumbnailURL.
func WithThumbnailer(t Thumbnailer) Option {
	return func(o *Orchestrator) { o.thumbs = t }
}

func WithReporter(r report.Reporter) Option {
	return func(o *Orchestrator) { o.reporter = r }
}

func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSessionID fixes the session id instead of generating one per run.
// Reports of every run still get their own batch id.
func WithSessionID(id string) Option {
	return func(o *Orchestrator) {
		o.newID = func() string { return id }
	}
}

func New(p picker.Picker, c Compressor, u Uploader, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		picker:      p,
		compressor:  c,
		uploader:    u,
		logger:      logging.Default,
		maxFileSize: config.DefaultMaxFileSize,
		newID:       uuid.NewString,
		newBatchID:  uuid.NewString,
		now:         time.Now,
		subs:        make(map[int]func(State)),
	}

	for _, opt := range opts {
		opt(o)
	}

	o.logger = o.logger.WithPrefix("upload")
	return o
}

// SelectAndUploadMedia opens the picker and uploads the selection on behalf
// of ownerID. An empty selection is a no-op. Individual file failures are
// exposed through Errors; a *BatchError is returned only when no file made it.
func (o *Orchestrator) SelectAndUploadMedia(ctx context.Context, ownerID string) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrSessionInProgress
	}
	ctx, cancel := context.WithCancel(ctx)
	o.running = true
	o.cancel = cancel
	o.mu.Unlock()

	defer func() {
		cancel()
		o.mu.Lock()
		o.running = false
		o.cancel = nil
		o.mu.Unlock()
	}()

	files, err := o.picker.Select(ctx)
	if err != nil {
		return fmt.Errorf("file selection failed: %w", err)
	}

	if len(files) == 0 {
		o.logger.Debug("selection closed without files", "owner", ownerID)
		return nil
	}

	return o.run(ctx, ownerID, files)
}

// Cancel stops the running session before its next file. The file being
// processed is allowed to finish. It reports whether a session was running.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel == nil {
		return false
	}
	o.cancel()
	return true
}

func (o *Orchestrator) run(ctx context.Context, ownerID string, files []*media.File) error {
	sessionID := o.newID()
	batchID := o.newBatchID()
	started := o.now()
	logger := o.logger.With("session", sessionID, "batch", batchID, "owner", ownerID)

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}

	o.update(func(s *State) {
		s.SessionID = sessionID
		s.OwnerID = ownerID
		s.SelectedFiles = names
		s.Errors = nil
		s.Completed = 0
		s.Total = len(files)
		s.IsUploading = true
		s.UploadProgress = 0
	})

	logger.Info("session started", "files", len(files))

	// In-flight work runs to completion; cancellation is observed between files.
	work := context.WithoutCancel(ctx)

	var failures []*FileError
	var urls []string

	for i, f := range files {
		var desc *media.MediaFile
		var ferr *FileError

		if err := ctx.Err(); err != nil {
			ferr = &FileError{File: f.Name, Kind: KindCancelled, Err: err}
		} else {
			desc, ferr = o.process(work, logger.With("file", f.Name, "index", i), f, ownerID)
		}

		if ferr != nil {
			failures = append(failures, ferr)
		} else {
			urls = append(urls, desc.URL)
		}

		o.update(func(s *State) {
			s.Completed++
			if ferr != nil {
				s.Errors = append(s.Errors, ferr.Error())
			} else {
				s.UploadedMedia = append(s.UploadedMedia, *desc)
			}
			s.UploadProgress = 100 * float64(s.Completed) / float64(s.Total)
		})
	}

	o.update(func(s *State) {
		s.IsUploading = false
		s.UploadProgress = 0
	})

	succeeded := len(files) - len(failures)
	logger.Info("session finished", "succeeded", succeeded, "failed", len(failures))

	o.record(work, logger, report.Report{
		BatchID:    batchID,
		SessionID:  sessionID,
		OwnerID:    ownerID,
		Total:      len(files),
		Succeeded:  succeeded,
		Failed:     len(failures),
		Cancelled:  ctx.Err() != nil,
		Errors:     messages(failures),
		MediaURLs:  urls,
		StartedAt:  started,
		FinishedAt: o.now(),
	})

	if succeeded == 0 && len(failures) > 0 {
		return &BatchError{Errors: failures}
	}

	return nil
}

// process runs the per-file pipeline: size check, type check, normalization
// of images and upload.
func (o *Orchestrator) process(ctx context.Context, logger *log.Logger, f *media.File, ownerID string) (*media.MediaFile, *FileError) {
	if f.Size > o.maxFileSize {
		logger.Warn("file rejected", "size", f.Size, "limit", o.maxFileSize)
		return nil, &FileError{File: f.Name, Kind: KindFileTooLarge, Err: fmt.Errorf("%d bytes exceeds the %d byte limit", f.Size, o.maxFileSize)}
	}

	kind, ok := classify.KindOf(f)
	if !ok {
		logger.Warn("file rejected", "type", f.MediaType)
		return nil, &FileError{File: f.Name, Kind: KindUnsupportedFormat, Err: fmt.Errorf("media type %q is neither image nor video", f.MediaType)}
	}

	out := f
	var dims *compress.Dimensions

	if kind == media.KindImage {
		normalized, err := o.compressor.Compress(ctx, f)
		if err == nil && normalized == nil {
			err = errors.New("compressor returned no file")
		}
		if err != nil {
			logger.Warn("compression failed", "err", err)
			return nil, &FileError{File: f.Name, Kind: KindCompressionFailed, Err: err}
		}
		out = normalized
		logger.Debug("image normalized", "from", f.Size, "to", out.Size)

		if o.measurer != nil {
			if d, err := o.measurer.Dimensions(ctx, out); err != nil {
				logger.Warn("could not measure normalized image", "err", err)
			} else {
				dims = &d
			}
		}
	}

	uploaded, err := o.uploader.Upload(ctx, out, ownerID)
	if err == nil && uploaded == nil {
		err = errors.New("upload service returned no descriptor")
	}
	if err != nil {
		logger.Warn("upload failed", "err", err)
		return nil, &FileError{File: f.Name, Kind: KindUploadFailed, Err: err}
	}

	desc := *uploaded
	if dims != nil {
		w, h := dims.Width, dims.Height
		desc.Width, desc.Height = &w, &h
	}

	if kind == media.KindImage && o.thumbs != nil {
		desc.ThumbnailURL = o.thumbnail(ctx, logger, out, ownerID)
	}

	logger.Debug("file uploaded", "url", desc.URL)
	return &desc, nil
}

func (o *Orchestrator) thumbnail(ctx context.Context, logger *log.Logger, f *media.File, ownerID string) string {
	thumb, err := o.thumbs.Thumbnail(ctx, f)
	if err == nil && thumb == nil {
		err = errors.New("thumbnailer returned no file")
	}
	if err != nil {
		logger.Warn("thumbnail failed", "err", err)
		return ""
	}

	thumb.Name = thumbnailName(f.Name)
	uploaded, err := o.uploader.Upload(ctx, thumb, ownerID)
	if err == nil && uploaded == nil {
		err = errors.New("upload service returned no descriptor")
	}
	if err != nil {
		logger.Warn("thumbnail upload failed", "err", err)
		return ""
	}

	return uploaded.URL
}

func thumbnailName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "-thumb" + ext
}

func (o *Orchestrator) record(ctx context.Context, logger *log.Logger, r report.Report) {
	if o.reporter == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, reportTimeout)
	defer cancel()

	if err := o.reporter.Record(ctx, r); err != nil {
		logger.Error("failed to record session report", "err", err)
	}
}

func messages(errs []*FileError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}
