package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/indieinfra/ingest/config"
	"github.com/indieinfra/ingest/logging"
	"github.com/indieinfra/ingest/picker"
	"github.com/indieinfra/ingest/server"
	mediafactory "github.com/indieinfra/ingest/storage/media/factory"
	reportfactory "github.com/indieinfra/ingest/storage/report/factory"
	"github.com/indieinfra/ingest/upload"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] -owner ID file...\n       %s [flags] -serve\n\n", os.Args[0], os.Args[0])
	flag.PrintDefaults()
}

func main() {
	configFile := flag.String("config", "", "Path to the configuration file (i.e., /etc/ingest.yaml); defaults and INGEST_* variables apply when empty")
	owner := flag.String("owner", "", "Owner of the uploaded media")
	serve := flag.Bool("serve", false, "Serve the session API instead of uploading the given files")
	logMode := flag.String("log", "", "Override the configured log mode (dev, prod or none)")
	flag.Usage = usage
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logging.Default.Debug("no .env file loaded", "err", err)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logging.Default.Fatal("failed to load configuration", "err", err)
	}

	if *logMode != "" {
		cfg.Log.Mode = *logMode
	}
	logging.Init(cfg.Log.Mode)

	if *serve {
		if err := server.StartServer(cfg); err != nil {
			logging.Default.Fatal("server stopped", "err", err)
		}
		return
	}

	if *owner == "" || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := uploadFiles(ctx, cfg, *owner, flag.Args(), os.Stdout); err != nil {
		logging.Default.Fatal("upload failed", "err", err)
	}
}

// uploadFiles runs one session over paths and prints its final state to out.
func uploadFiles(ctx context.Context, cfg *config.Config, owner string, paths []string, out io.Writer) error {
	store, err := mediafactory.Create(&cfg.Media)
	if err != nil {
		return err
	}

	reporter, err := reportfactory.Create(&cfg.Report)
	if err != nil {
		return err
	}
	if closer, ok := reporter.(io.Closer); ok {
		defer closer.Close()
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	compressor, worker := server.NewCompressor(workerCtx, &cfg.Compression)
	defer worker.Close()

	opts := []upload.Option{
		upload.WithMaxFileSize(cfg.Upload.MaxFileSize),
		upload.WithReporter(reporter),
	}
	if cfg.Compression.MeasureDimensions {
		opts = append(opts, upload.WithMeasurer(compressor))
	}
	if cfg.Compression.Thumbnails {
		opts = append(opts, upload.WithThumbnailer(compressor))
	}

	o := upload.New(picker.Paths(paths), compressor, store, opts...)
	unsubscribe := o.Subscribe(func(s upload.State) {
		if s.IsUploading {
			logging.Default.Info("progress", "completed", s.Completed, "total", s.Total, "percent", fmt.Sprintf("%.0f", s.UploadProgress))
		}
	})
	defer unsubscribe()

	runErr := o.SelectAndUploadMedia(ctx, owner)

	var batch *upload.BatchError
	if runErr != nil && !errors.As(runErr, &batch) {
		return runErr
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(o.State()); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}

	return runErr
}
