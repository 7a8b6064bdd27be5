// Package registry keeps the upload sessions served over HTTP. Entries expire
// after a fixed TTL; an expired session is simply no longer addressable.
package registry

import (
	"context"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/indieinfra/ingest/media"
	"github.com/indieinfra/ingest/picker"
	"github.com/indieinfra/ingest/upload"
)

// Builder creates the orchestrator of a session around the session's picker.
type Builder func(p picker.Picker) *upload.Orchestrator

// Session is one orchestrator started through the HTTP surface. Every batch
// posted to the session runs on the same orchestrator, so uploaded media
// accumulates across batches.
type Session struct {
	ID           string
	OwnerID      string
	Orchestrator *upload.Orchestrator
	Created      time.Time

	mu      sync.Mutex
	pending picker.Static
	running bool
	idle    chan struct{}
}

func NewSession(id, ownerID string, build Builder) *Session {
	s := &Session{
		ID:      id,
		OwnerID: ownerID,
		Created: time.Now().UTC(),
		idle:    make(chan struct{}),
	}
	close(s.idle)
	s.Orchestrator = build(picker.Func(s.take))
	return s
}

// take hands the pending batch to the orchestrator exactly once.
func (s *Session) take(ctx context.Context) ([]*media.File, error) {
	s.mu.Lock()
	files := s.pending
	s.pending = nil
	s.mu.Unlock()

	return files.Select(ctx)
}

// Run starts a batch in the background. The returned channel yields the
// batch result once. A session runs one batch at a time.
func (s *Session) Run(ctx context.Context, files picker.Static) (<-chan error, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, upload.ErrSessionInProgress
	}
	s.running = true
	s.pending = files
	idle := make(chan struct{})
	s.idle = idle
	s.mu.Unlock()

	result := make(chan error, 1)
	go func() {
		err := s.Orchestrator.SelectAndUploadMedia(ctx, s.OwnerID)

		s.mu.Lock()
		s.running = false
		s.pending = nil
		s.mu.Unlock()
		close(idle)

		result <- err
		close(result)
	}()

	return result, nil
}

// Idle is closed when no batch is running.
func (s *Session) Idle() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idle
}

type Registry struct {
	cache *ttlworker.Cache[string, *Session]
}

func New(ttl time.Duration) *Registry {
	return &Registry{cache: ttlworker.NewCache[string, *Session](ttl)}
}

func (r *Registry) Put(s *Session) {
	r.cache.Set(s.ID, s)
}

// Get returns the session stored under id, or nil.
func (r *Registry) Get(id string) *Session {
	return r.cache.Get(id)
}

func (r *Registry) Delete(id string) {
	r.cache.Delete(id)
}

func (r *Registry) sessions() []*Session {
	var out []*Session
	_ = r.cache.Range(func(_ string, s *Session) error {
		if s != nil {
			out = append(out, s)
		}
		return nil
	})
	return out
}

// CancelAll asks every running session to stop and returns how many were
// running.
func (r *Registry) CancelAll() int {
	n := 0
	for _, s := range r.sessions() {
		if s.Orchestrator.Cancel() {
			n++
		}
	}
	return n
}

// Wait blocks until no stored session is running or timeout elapses. It
// reports whether every session went idle.
func (r *Registry) Wait(timeout time.Duration) bool {
	deadline := time.After(timeout)
	for _, s := range r.sessions() {
		select {
		case <-s.Idle():
		case <-deadline:
			return false
		}
	}
	return true
}
