package upload

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSessionInProgress = errors.New("an upload session is already in progress")
	ErrIndexOutOfRange   = errors.New("media index out of range")
)

// ErrorKind classifies why a single file did not make it to the upload service.
type ErrorKind string

const (
	KindFileTooLarge      ErrorKind = "file-too-large"
	KindUnsupportedFormat ErrorKind = "unsupported-format"
	KindCompressionFailed ErrorKind = "compression-failed"
	KindUploadFailed      ErrorKind = "upload-failed"
	KindCancelled         ErrorKind = "cancelled"
)

// FileError is the failure of one file in a batch.
type FileError struct {
	File string
	Kind ErrorKind
	Err  error
}

func (e *FileError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.File, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.File, e.Kind, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// BatchError is returned when no file in a batch was uploaded.
type BatchError struct {
	Errors []*FileError
}

func (e *BatchError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Error()
	}
	return "no files were uploaded: " + strings.Join(msgs, "; ")
}

func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, fe := range e.Errors {
		errs[i] = fe
	}
	return errs
}
