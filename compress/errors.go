package compress

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported-format")
	ErrDecodeFailure     = errors.New("decode-failure")
	ErrTransformFailure  = errors.New("transform-failure")

	ErrWorkerClosed = errors.New("compression worker closed")
)

// Error attributes a worker failure to the file it was processing. Kind is
// one of ErrUnsupportedFormat, ErrDecodeFailure or ErrTransformFailure.
type Error struct {
	Kind error
	File string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.File, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.File, e.Kind, e.Err)
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind error, file string, err error) *Error {
	return &Error{Kind: kind, File: file, Err: err}
}
