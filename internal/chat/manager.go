package chat

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager keeps the live sessions of the HTTP front-end. Each session has
// its own lock, so turns for different customers never wait on each other.
type Manager struct {
	engine *Engine

	mu       sync.RWMutex
	sessions map[string]*entry
}

type entry struct {
	mu       sync.Mutex
	s        *Session
	lastSeen atomic.Int64 // unix nanos
}

func (e *entry) touch(now time.Time) { e.lastSeen.Store(now.UnixNano()) }

func NewManager(engine *Engine) *Manager {
	return &Manager{engine: engine, sessions: make(map[string]*entry)}
}

var _ Sessions = (*Manager)(nil)

// Start opens a session and greets the customer. A session whose greeting
// cannot be rendered is ended straight away.
func (m *Manager) Start(ctx context.Context, customerID string) (Started, error) {
	s := m.engine.Start(ctx, customerID)
	greeting, err := s.Greet()
	if err != nil {
		_, _ = s.End(ctx)
		return Started{}, err
	}

	id := uuid.NewString()
	e := &entry{s: s}
	e.touch(m.engine.now())
	m.mu.Lock()
	m.sessions[id] = e
	m.mu.Unlock()

	traits := s.Persona().Traits()
	return Started{
		ID:       id,
		Persona:  s.Persona(),
		Tone:     traits.Tone,
		Style:    traits.Style,
		Greeting: greeting,
	}, nil
}

func (m *Manager) lookup(id string) (*entry, error) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.touch(m.engine.now())
	return e, nil
}

func (m *Manager) Respond(ctx context.Context, id, text string) (Reply, error) {
	e, err := m.lookup(id)
	if err != nil {
		return Reply{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.Respond(ctx, text)
}

// End says goodbye and forgets the session.
func (m *Manager) End(ctx context.Context, id string) (string, error) {
	e, err := m.lookup(id)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	goodbye, err := e.s.End(ctx)
	if e.s.State() == StateEnded {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
	}
	return goodbye, err
}

func (m *Manager) Events(ctx context.Context, id string) ([]Event, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.Events(ctx)
}

// Len reports how many sessions are live.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown ends every live session so their logs get an end event.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range sessions {
		e.mu.Lock()
		if e.s.State() == StateActive {
			_, _ = e.s.End(ctx)
		}
		e.mu.Unlock()
	}
}

// Sweep ends and forgets every session that has been idle for longer than
// idle. It returns how many were reaped.
func (m *Manager) Sweep(ctx context.Context, idle time.Duration) int {
	cutoff := m.engine.now().Add(-idle).UnixNano()

	m.mu.Lock()
	var stale []*entry
	for id, e := range m.sessions {
		if e.lastSeen.Load() < cutoff {
			stale = append(stale, e)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, e := range stale {
		e.mu.Lock()
		if e.s.State() == StateActive {
			_, _ = e.s.End(ctx)
		}
		e.mu.Unlock()
	}
	if len(stale) > 0 {
		m.engine.log.Info("reaped idle sessions", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Reap sweeps idle sessions every interval until ctx is done. A non-positive
// idle disables it.
func (m *Manager) Reap(ctx context.Context, idle, interval time.Duration) error {
	if idle <= 0 {
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			m.Sweep(ctx, idle)
		}
	}
}
