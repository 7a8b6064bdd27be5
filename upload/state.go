package upload

import (
	"slices"

	"github.com/indieinfra/ingest/media"
)

// State is a snapshot of the orchestrator's read model.
type State struct {
	SessionID      string            `json:"session_id,omitempty"`
	OwnerID        string            `json:"owner_id,omitempty"`
	SelectedFiles  []string          `json:"selected_files"`
	UploadedMedia  []media.MediaFile `json:"uploaded_media"`
	IsUploading    bool              `json:"is_uploading"`
	UploadProgress float64           `json:"upload_progress"`
	Errors         []string          `json:"errors"`
	Completed      int               `json:"completed"`
	Total          int               `json:"total"`
}

func (s State) clone() State {
	s.SelectedFiles = slices.Clone(s.SelectedFiles)
	s.UploadedMedia = slices.Clone(s.UploadedMedia)
	s.Errors = slices.Clone(s.Errors)
	return s
}

func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state.clone()
}

func (o *Orchestrator) UploadedMedia() []media.MediaFile {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Clone(o.state.UploadedMedia)
}

func (o *Orchestrator) IsUploading() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state.IsUploading
}

func (o *Orchestrator) UploadProgress() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state.UploadProgress
}

// Errors returns the failures of the current or most recent session.
func (o *Orchestrator) Errors() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Clone(o.state.Errors)
}

// Subscribe registers fn to receive a snapshot after every state change.
// Calls are made synchronously from the goroutine that changed the state,
// outside the state lock, one at a time and in the order the changes were
// made. fn may read the orchestrator but must not modify it. The returned
// func unsubscribes.
func (o *Orchestrator) Subscribe(fn func(State)) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}

// update applies fn under the write lock and notifies subscribers. Holding
// notifyMu across both keeps delivery in mutation order.
func (o *Orchestrator) update(fn func(*State)) {
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()

	o.mu.Lock()
	fn(&o.state)
	snapshot := o.state.clone()
	subs := make([]func(State), 0, len(o.subs))
	for _, sub := range o.subs {
		subs = append(subs, sub)
	}
	o.mu.Unlock()

	for _, sub := range subs {
		sub(snapshot)
	}
}

// RemoveMedia drops the uploaded entry at index. The remote object is kept.
func (o *Orchestrator) RemoveMedia(index int) error {
	var err error
	o.update(func(s *State) {
		if index < 0 || index >= len(s.UploadedMedia) {
			err = ErrIndexOutOfRange
			return
		}
		s.UploadedMedia = slices.Delete(slices.Clone(s.UploadedMedia), index, index+1)
	})
	return err
}

// ClearMedia empties the uploaded list. Remote objects are kept.
func (o *Orchestrator) ClearMedia() {
	o.update(func(s *State) {
		s.UploadedMedia = nil
	})
}
