// Package session serves upload sessions over HTTP.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/indieinfra/ingest/logging"
	"github.com/indieinfra/ingest/picker"
	"github.com/indieinfra/ingest/server/handler/common"
	"github.com/indieinfra/ingest/server/middleware"
	"github.com/indieinfra/ingest/server/registry"
	"github.com/indieinfra/ingest/server/resp"
	"github.com/indieinfra/ingest/server/state"
	"github.com/indieinfra/ingest/upload"
)

var fileFields = []string{"file"}

type created struct {
	ID string `json:"id"`
}

func location(id string) string {
	return "/sessions/" + id
}

// Create starts a new session from the files of a multipart form.
func Create(st *state.IngestState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		files, values, ok := readFiles(st, w, r)
		if !ok {
			return
		}

		owner := values.String("owner")
		if owner == "" {
			owner = r.Header.Get(middleware.OwnerHeader)
		}
		if owner == "" {
			resp.WriteInvalidRequest(w, "an owner is required")
			return
		}

		id := uuid.NewString()
		s := registry.NewSession(id, owner, st.Builder(id))
		st.Sessions.Put(s)

		if rl := logging.FromContext(r.Context()); rl != nil {
			rl.WithOwner(owner).Infof("session %s created with %d files", id, len(files))
		}

		run(w, r, s, files)
	}
}

// AddFiles runs another batch on an existing session.
func AddFiles(st *state.IngestState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(st, w, r)
		if !ok {
			return
		}

		files, _, ok := readFiles(st, w, r)
		if !ok {
			return
		}

		run(w, r, s, files)
	}
}

func Get(st *state.IngestState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(st, w, r)
		if !ok {
			return
		}

		resp.WriteOK(w, s.Orchestrator.State())
	}
}

// RemoveMedia drops one entry from the uploaded list of a session.
func RemoveMedia(st *state.IngestState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(st, w, r)
		if !ok {
			return
		}

		index, err := strconv.Atoi(r.PathValue("index"))
		if err != nil {
			resp.WriteInvalidRequest(w, fmt.Sprintf("invalid media index %q", r.PathValue("index")))
			return
		}

		if err := s.Orchestrator.RemoveMedia(index); err != nil {
			common.LogAndWriteError(w, r, "remove media", err)
			return
		}

		resp.WriteOK(w, s.Orchestrator.State())
	}
}

func ClearMedia(st *state.IngestState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(st, w, r)
		if !ok {
			return
		}

		s.Orchestrator.ClearMedia()
		resp.WriteNoContent(w)
	}
}

// Cancel stops the running batch of a session before its next file.
func Cancel(st *state.IngestState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(st, w, r)
		if !ok {
			return
		}

		if !s.Orchestrator.Cancel() {
			resp.WriteConflict(w, "no upload is running for this session")
			return
		}

		resp.WriteAccepted(w, location(s.ID), s.Orchestrator.State())
	}
}

func lookup(st *state.IngestState, w http.ResponseWriter, r *http.Request) (*registry.Session, bool) {
	id := r.PathValue("id")
	s := st.Sessions.Get(id)
	if s == nil {
		resp.WriteNotFound(w, fmt.Sprintf("no session %q", id))
		return nil, false
	}
	return s, true
}

func readFiles(st *state.IngestState, w http.ResponseWriter, r *http.Request) (picker.Static, picker.MultipartValues, bool) {
	limits := picker.MultipartLimits{
		MaxPayload:  st.Cfg.Server.Limits.MaxPayloadSize,
		MaxMemory:   st.Cfg.Server.Limits.MaxMultipartMem,
		MaxFileSize: st.Cfg.Upload.MaxFileSize,
	}

	files, values, err := picker.FromMultipart(w, r, limits, fileFields)
	if err != nil {
		common.LogAndWriteError(w, r, "read files", err)
		return nil, nil, false
	}
	return files, values, true
}

// run starts a batch. With ?wait=true the response carries the final state;
// otherwise the batch keeps running after the response is written.
func run(w http.ResponseWriter, r *http.Request, s *registry.Session, files picker.Static) {
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))

	ctx := r.Context()
	if !wait {
		ctx = context.WithoutCancel(ctx)
	}

	result, err := s.Run(ctx, files)
	if err != nil {
		common.LogAndWriteError(w, r, "start upload", err)
		return
	}

	if !wait {
		resp.WriteAccepted(w, location(s.ID), created{ID: s.ID})
		return
	}

	err = <-result
	var batch *upload.BatchError
	switch {
	case err == nil:
		w.Header().Add("Location", location(s.ID))
		resp.WriteOK(w, s.Orchestrator.State())
	case errors.As(err, &batch):
		w.Header().Add("Location", location(s.ID))
		resp.WriteUnprocessable(w, batch.Error(), s.Orchestrator.State())
	default:
		common.LogAndWriteError(w, r, "upload", err)
	}
}
