package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/indieinfra/ingest/compress"
	"github.com/indieinfra/ingest/config"
	"github.com/indieinfra/ingest/logging"
	"github.com/indieinfra/ingest/server/handler/session"
	"github.com/indieinfra/ingest/server/middleware"
	"github.com/indieinfra/ingest/server/registry"
	"github.com/indieinfra/ingest/server/state"
	mediastore "github.com/indieinfra/ingest/storage/media"
	mediafactory "github.com/indieinfra/ingest/storage/media/factory"
	"github.com/indieinfra/ingest/storage/report"
	reportfactory "github.com/indieinfra/ingest/storage/report/factory"
)

const (
	drainTimeout    = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func initializeMediaStore(cfg *config.Media) (mediastore.Store, error) {
	store, err := mediafactory.Create(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media store: %w", err)
	}
	return store, nil
}

func initializeReporter(cfg *config.Report) (report.Reporter, error) {
	reporter, err := reportfactory.Create(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session reporter: %w", err)
	}
	return reporter, nil
}

// NewCompressor builds the image client the orchestrators share. The worker
// runs until ctx is done.
func NewCompressor(ctx context.Context, cfg *config.Compression) (*compress.Client, *compress.Worker) {
	transformer := compress.NewImageTransformer()
	if cfg.MaxPixels > 0 {
		transformer.MaxPixels = cfg.MaxPixels
	}

	worker := compress.NewWorker(transformer, compress.WithLogger(logging.Default))
	worker.Start(ctx)

	client := compress.NewClient(worker,
		compress.WithCompressOptions(compress.Options{
			MaxWidth:  cfg.MaxDimension,
			MaxHeight: cfg.MaxDimension,
			Quality:   cfg.Quality,
			MaxBytes:  cfg.MaxBytes,
		}),
		compress.WithThumbnailOptions(compress.Options{
			MaxWidth:  cfg.ThumbnailDimension,
			MaxHeight: cfg.ThumbnailDimension,
			Quality:   cfg.ThumbnailQuality,
			MaxBytes:  cfg.ThumbnailMaxBytes,
		}),
	)

	return client, worker
}

func routes(st *state.IngestState) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /sessions", session.Create(st))
	mux.Handle("GET /sessions/{id}", session.Get(st))
	mux.Handle("POST /sessions/{id}/files", session.AddFiles(st))
	mux.Handle("POST /sessions/{id}/cancel", session.Cancel(st))
	mux.Handle("DELETE /sessions/{id}/media", session.ClearMedia(st))
	mux.Handle("DELETE /sessions/{id}/media/{index}", session.RemoveMedia(st))

	return middleware.RequestLogger(mux)
}

// cleanup stops running sessions and releases the stores.
func cleanup(st *state.IngestState) {
	if st == nil {
		return
	}

	if st.Sessions != nil {
		if n := st.Sessions.CancelAll(); n > 0 {
			logging.Default.Info("cancelling running sessions", "count", n)
		}
		if !st.Sessions.Wait(drainTimeout) {
			logging.Default.Warn("sessions still running at shutdown")
		}
	}

	if closer, ok := st.Reporter.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logging.Default.Error("failed to close session reporter", "err", err)
		}
	}
}

// StartServer serves the session API until SIGINT or SIGTERM.
func StartServer(cfg *config.Config) error {
	mediaStore, err := initializeMediaStore(&cfg.Media)
	if err != nil {
		return err
	}

	reporter, err := initializeReporter(&cfg.Report)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	compressor, worker := NewCompressor(workerCtx, &cfg.Compression)
	defer worker.Close()

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	st := &state.IngestState{
		Cfg:        cfg,
		MediaStore: mediaStore,
		Compressor: compressor,
		Reporter:   reporter,
		Sessions:   registry.New(ttl),
	}
	if cfg.Compression.MeasureDimensions {
		st.Measurer = compressor
	}
	if cfg.Compression.Thumbnails {
		st.Thumbnailer = compressor
	}
	defer cleanup(st)

	listener, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %q: %w", cfg.Server.Addr(), err)
	}

	srv := &http.Server{
		Handler:           routes(st),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logging.Default.Info("serving http requests", "addr", listener.Addr().String())
		serveErr <- srv.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logging.Default.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	return nil
}
