// Package engine manages preview sessions. Each session owns one parsed
// page and its preview manager; the manager itself is single-threaded, so
// the session serializes access.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/absmartly/preview-engine/internal/dom"
	"github.com/absmartly/preview-engine/internal/infrastructure/monitoring"
	"github.com/absmartly/preview-engine/internal/logging"
	"github.com/absmartly/preview-engine/internal/preview"
)

// Session is one page under experimentation.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu      sync.Mutex
	page    *dom.Page
	preview *preview.Manager
}

// Apply applies a batch of changes for an experiment and returns how many
// were applied.
func (s *Session) Apply(changes []preview.Change, experiment string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := 0
	for _, change := range changes {
		if s.preview.Apply(change, experiment) {
			applied++
		}
	}
	return applied
}

// Remove reverses all of an experiment's changes.
func (s *Session) Remove(experiment string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview.Remove(experiment)
}

// Clear reverses every experiment's changes.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preview.Clear()
}

// Count returns the number of tracked elements.
func (s *Session) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview.Count()
}

// Render serializes the session's current document.
func (s *Session) Render() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page.Render()
}

// Registry holds active sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	scripts  preview.ScriptRunner
	logger   *logging.Logger
	metrics  *monitoring.Metrics
}

// NewRegistry creates a session registry. scripts is shared across
// sessions; per-session isolation lives in the preview managers.
func NewRegistry(scripts preview.ScriptRunner, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		scripts:  scripts,
		logger:   logger,
	}
}

// WithMetrics attaches a metrics collector, propagated to new sessions.
func (r *Registry) WithMetrics(metrics *monitoring.Metrics) *Registry {
	r.metrics = metrics
	return r
}

// Create parses a document and opens a session for it.
func (r *Registry) Create(htmlSrc []byte, pageURL string) (*Session, error) {
	page, err := dom.Parse(htmlSrc, pageURL)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	id := uuid.NewString()
	mgr := preview.NewManager(page, r.scripts, r.logger.Named("preview"))
	if r.metrics != nil {
		mgr.WithMetrics(r.metrics)
	}

	session := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		page:      page,
		preview:   mgr,
	}

	r.mu.Lock()
	r.sessions[id] = session
	count := len(r.sessions)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.SetActiveSessions(count)
	}
	r.logger.Info("session created",
		zap.String("session_id", id),
		zap.String("url", page.Location().String()),
	)
	return session, nil
}

// Get looks up a session by id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Delete closes a session.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	count := len(r.sessions)
	r.mu.Unlock()

	if ok {
		if r.metrics != nil {
			r.metrics.SetActiveSessions(count)
		}
		r.logger.Info("session deleted", zap.String("session_id", id))
	}
	return ok
}

// Count returns the number of active sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
