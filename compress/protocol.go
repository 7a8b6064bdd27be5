package compress

import "github.com/indieinfra/ingest/media"

// RequestKind selects the work a worker performs for a request.
type RequestKind int

const (
	KindCompress RequestKind = iota + 1
	KindThumbnail
	KindDimensions
)

func (k RequestKind) String() string {
	switch k {
	case KindCompress:
		return "compress"
	case KindThumbnail:
		return "thumbnail"
	case KindDimensions:
		return "dimensions"
	default:
		return "unknown"
	}
}

// ResponseKind tags a worker response. Success and Error are terminal.
type ResponseKind int

const (
	ResponseProgress ResponseKind = iota + 1
	ResponseSuccess
	ResponseError
)

func (k ResponseKind) String() string {
	switch k {
	case ResponseProgress:
		return "progress"
	case ResponseSuccess:
		return "success"
	case ResponseError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further responses follow for the request.
func (k ResponseKind) Terminal() bool {
	return k == ResponseSuccess || k == ResponseError
}

// Options bounds the output of a transform. Zero fields fall back to the
// defaults of the request kind.
type Options struct {
	MaxWidth  int
	MaxHeight int
	// Quality is in (0,1].
	Quality float64
	// MaxBytes is a best-effort ceiling for the encoded output.
	MaxBytes int64
}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Request struct {
	ID      string
	Kind    RequestKind
	File    *media.File
	Options *Options
}

// Response carries exactly one of Progress, File, Dimensions or Err
// depending on Kind.
type Response struct {
	RequestID string
	Kind      ResponseKind

	Progress   float64
	File       *media.File
	Dimensions *Dimensions
	Err        *Error
}
