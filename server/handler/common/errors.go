package common

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/indieinfra/ingest/logging"
	"github.com/indieinfra/ingest/picker"
	"github.com/indieinfra/ingest/server/resp"
	"github.com/indieinfra/ingest/upload"
)

// LogAndWriteError logs an error with request context and maps known conditions to client responses.
func LogAndWriteError(w http.ResponseWriter, r *http.Request, op string, err error) {
	rl := logging.FromContext(r.Context())
	if rl == nil {
		rl = logging.WithRequest(logging.Default, r, "")
	}
	rl.Errorf("%s failed: %v", op, err)

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		resp.WritePayloadTooLarge(w, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
	case errors.Is(err, multipart.ErrMessageTooLarge):
		resp.WritePayloadTooLarge(w, "form fields are too large")
	case errors.Is(err, http.ErrNotMultipart):
		resp.WriteUnsupportedMediaType(w, "expected a multipart/form-data body")
	case errors.Is(err, picker.ErrNoFiles):
		resp.WriteInvalidRequest(w, "no files were provided")
	case errors.Is(err, upload.ErrSessionInProgress):
		resp.WriteConflict(w, "an upload is already running for this session")
	case errors.Is(err, upload.ErrIndexOutOfRange):
		resp.WriteNotFound(w, "no media at that index")
	default:
		resp.WriteInternalServerError(w, fmt.Sprintf("%s failed", op))
	}
}
