package compress

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/indieinfra/ingest/media"
)

// ProgressFunc receives advisory progress for the named file.
type ProgressFunc func(file string, percent float64)

// Client is the request/response side of a Worker.
type Client struct {
	worker     *Worker
	compress   *Options
	thumbnail  *Options
	onProgress ProgressFunc
}

type ClientOption func(*Client)

// WithCompressOptions overrides the defaults for compress requests.
func WithCompressOptions(opts Options) ClientOption {
	return func(c *Client) { c.compress = &opts }
}

func WithThumbnailOptions(opts Options) ClientOption {
	return func(c *Client) { c.thumbnail = &opts }
}

func WithProgress(fn ProgressFunc) ClientOption {
	return func(c *Client) { c.onProgress = fn }
}

func NewClient(w *Worker, opts ...ClientOption) *Client {
	c := &Client{worker: w}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compress normalizes an image to the compress budget.
func (c *Client) Compress(ctx context.Context, f *media.File) (*media.File, error) {
	resp, err := c.Do(ctx, Request{Kind: KindCompress, File: f, Options: c.compress})
	if err != nil {
		return nil, err
	}
	return resp.File, nil
}

func (c *Client) Thumbnail(ctx context.Context, f *media.File) (*media.File, error) {
	resp, err := c.Do(ctx, Request{Kind: KindThumbnail, File: f, Options: c.thumbnail})
	if err != nil {
		return nil, err
	}
	return resp.File, nil
}

func (c *Client) Dimensions(ctx context.Context, f *media.File) (Dimensions, error) {
	resp, err := c.Do(ctx, Request{Kind: KindDimensions, File: f})
	if err != nil {
		return Dimensions{}, err
	}
	if resp.Dimensions == nil {
		return Dimensions{}, newError(ErrDecodeFailure, f.Name, fmt.Errorf("worker returned no dimensions"))
	}
	return *resp.Dimensions, nil
}

// Do submits req and waits for its terminal response. A terminal error
// response is returned as a *Error.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	ch, err := c.worker.Submit(ctx, req)
	if err != nil {
		return Response{}, err
	}

	for {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case resp, ok := <-ch:
			if !ok {
				return Response{}, newError(ErrTransformFailure, req.File.Name, fmt.Errorf("worker closed the response stream without a result"))
			}

			switch resp.Kind {
			case ResponseProgress:
				if c.onProgress != nil {
					c.onProgress(req.File.Name, resp.Progress)
				}
			case ResponseSuccess:
				return resp, nil
			case ResponseError:
				if resp.Err == nil {
					return resp, newError(ErrTransformFailure, req.File.Name, nil)
				}
				return resp, resp.Err
			}
		}
	}
}
