package compress

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/indieinfra/ingest/logging"
)

const responseBuffer = 8

type job struct {
	ctx context.Context
	req Request
	out chan Response
}

// Worker runs transforms on its own goroutine, one request at a time.
// Each submitted request gets its own response channel carrying zero or more
// progress responses followed by exactly one terminal response; the channel
// is closed after the terminal response.
type Worker struct {
	transformer Transformer
	logger      *log.Logger

	jobs      chan job
	done      chan struct{}
	closeOnce sync.Once
	startOnce sync.Once
}

type WorkerOption func(*Worker)

func WithLogger(l *log.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

func NewWorker(t Transformer, opts ...WorkerOption) *Worker {
	w := &Worker{
		transformer: t,
		logger:      logging.Default,
		jobs:        make(chan job),
		done:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.logger = w.logger.WithPrefix("compress")
	return w
}

// Start launches the worker loop. It stops when ctx is cancelled or Close is called.
func (w *Worker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		go w.run(ctx)
	})
}

func (w *Worker) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
	})
}

// Submit hands req to the worker. It blocks until the worker accepts the
// request, ctx is done, or the worker is closed.
func (w *Worker) Submit(ctx context.Context, req Request) (<-chan Response, error) {
	if req.File == nil {
		return nil, fmt.Errorf("compression request %q has no file", req.ID)
	}

	j := job{ctx: ctx, req: req, out: make(chan Response, responseBuffer)}

	select {
	case w.jobs <- j:
		return j.out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.done:
		return nil, ErrWorkerClosed
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case j := <-w.jobs:
			w.handle(j)
		}
	}
}

func (w *Worker) handle(j job) {
	defer close(j.out)

	logger := w.logger.With("request", j.req.ID, "kind", j.req.Kind, "file", j.req.File.Name)
	logger.Debug("request received")

	resp := w.process(j, logger)
	resp.RequestID = j.req.ID

	if resp.Kind == ResponseError {
		logger.Warn("request failed", "err", resp.Err)
	} else {
		logger.Debug("request completed")
	}

	select {
	case j.out <- resp:
	case <-j.ctx.Done():
	}
}

func (w *Worker) process(j job, logger *log.Logger) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("transform panicked", "panic", r)
			resp = errorResponse(newError(ErrTransformFailure, j.req.File.Name, fmt.Errorf("panic: %v", r)))
		}
	}()

	switch j.req.Kind {
	case KindCompress, KindThumbnail:
		opts := resolveOptions(j.req.Kind, j.req.Options)
		progress := func(pct float64) {
			if j.req.Kind == KindThumbnail {
				return
			}
			select {
			case j.out <- Response{RequestID: j.req.ID, Kind: ResponseProgress, Progress: clampPercent(pct)}:
			default:
				// advisory; a slow consumer only misses intermediate values
			}
		}

		out, err := w.transformer.Transform(j.ctx, j.req.File, opts, progress)
		if err != nil {
			return errorResponse(asError(j.req.File.Name, err))
		}
		return Response{Kind: ResponseSuccess, File: out}

	case KindDimensions:
		dims, err := w.transformer.Measure(j.ctx, j.req.File)
		if err != nil {
			return errorResponse(asError(j.req.File.Name, err))
		}
		return Response{Kind: ResponseSuccess, Dimensions: &dims}

	default:
		return errorResponse(newError(ErrTransformFailure, j.req.File.Name, fmt.Errorf("unknown request kind %d", j.req.Kind)))
	}
}

func resolveOptions(kind RequestKind, given *Options) Options {
	opts := CompressDefaults
	if kind == KindThumbnail {
		opts = ThumbnailDefaults
	}

	if given == nil {
		return opts
	}

	if given.MaxWidth > 0 {
		opts.MaxWidth = given.MaxWidth
	}
	if given.MaxHeight > 0 {
		opts.MaxHeight = given.MaxHeight
	}
	if given.Quality > 0 && given.Quality <= 1 {
		opts.Quality = given.Quality
	}
	if given.MaxBytes > 0 {
		opts.MaxBytes = given.MaxBytes
	}

	return opts
}

func asError(file string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newError(ErrTransformFailure, file, err)
}

func errorResponse(err *Error) Response {
	return Response{Kind: ResponseError, Err: err}
}

func clampPercent(p float64) float64 {
	return min(100, max(0, p))
}
