package capture

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("recording session not found")

// Registry tracks open recording sessions per owner. Sessions idle for longer
// than the configured timeout are dropped on the next access.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	idle     time.Duration
	maxBytes int
	now      func() time.Time
}

type session struct {
	owner    string
	recorder *Recorder
}

func NewRegistry(idle time.Duration, maxBytes int64) *Registry {
	return &Registry{
		sessions: make(map[string]*session),
		idle:     idle,
		maxBytes: int(maxBytes),
		now:      time.Now,
	}
}

// Open starts a recording for owner and returns its session id.
func (g *Registry) Open(owner string) (string, error) {
	rec := NewRecorder()
	rec.now = g.now
	rec.limit = g.maxBytes
	if err := rec.Start(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	g.mu.Lock()
	g.sweepLocked()
	g.sessions[id] = &session{owner: owner, recorder: rec}
	g.mu.Unlock()
	return id, nil
}

// Append writes a chunk to the owner's session.
func (g *Registry) Append(owner, id string, chunk []byte) error {
	rec, err := g.lookup(owner, id)
	if err != nil {
		return err
	}
	_, err = rec.Write(chunk)
	return err
}

// Close stops the session and removes it from the registry.
func (g *Registry) Close(owner, id string) (Blob, error) {
	rec, err := g.lookup(owner, id)
	if err != nil {
		return Blob{}, err
	}
	g.mu.Lock()
	delete(g.sessions, id)
	g.mu.Unlock()
	return rec.Stop()
}

// Len is the number of open sessions.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

func (g *Registry) lookup(owner, id string) (*Recorder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sweepLocked()
	s, ok := g.sessions[id]
	// Sessions of other owners look exactly like missing ones.
	if !ok || s.owner != owner {
		return nil, ErrSessionNotFound
	}
	return s.recorder, nil
}

func (g *Registry) sweepLocked() {
	if g.idle <= 0 {
		return
	}
	cutoff := g.now().Add(-g.idle)
	for id, s := range g.sessions {
		if s.recorder.idleSince().Before(cutoff) {
			delete(g.sessions, id)
		}
	}
}
