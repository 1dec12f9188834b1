// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

package gateway

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is a logical, server-assigned conversation scope bound to one
// transport instance.
type Session interface {
	// GetID returns the session identifier.
	GetID() string

	// CreatedAt returns the session creation time.
	CreatedAt() time.Time

	// GetData retrieves per-session protocol state.
	GetData(key string) (interface{}, bool)

	// SetData stores per-session protocol state.
	SetData(key string, value interface{})
}

// memorySession is the in-memory session implementation. Sessions do not
// survive process restarts.
type memorySession struct {
	id        string
	createdAt time.Time

	dataMu sync.RWMutex
	data   map[string]interface{}

	// dispatchMu serializes message delivery within this session so that
	// messages are processed in arrival order.
	dispatchMu sync.Mutex

	// notifyCh buffers server-to-client notifications until a GET stream
	// drains them.
	notifyCh chan *JSONRPCNotification

	closeOnce sync.Once
	closed    chan struct{}
}

// newMemorySession creates a session with a fresh random identifier.
func newMemorySession(notificationBufferSize int) *memorySession {
	return &memorySession{
		id:        uuid.NewString(),
		createdAt: time.Now(),
		data:      make(map[string]interface{}),
		notifyCh:  make(chan *JSONRPCNotification, notificationBufferSize),
		closed:    make(chan struct{}),
	}
}

func (s *memorySession) GetID() string {
	return s.id
}

func (s *memorySession) CreatedAt() time.Time {
	return s.createdAt
}

func (s *memorySession) GetData(key string) (interface{}, bool) {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	value, ok := s.data[key]
	return value, ok
}

func (s *memorySession) SetData(key string, value interface{}) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	s.data[key] = value
}

// sendNotification queues a notification for delivery on the session's
// stream. It fails rather than blocks when the buffer is full.
func (s *memorySession) sendNotification(notification *JSONRPCNotification) error {
	select {
	case <-s.closed:
		return ErrSessionClosed
	default:
	}
	select {
	case s.notifyCh <- notification:
		return nil
	default:
		return ErrNotificationBufferFull
	}
}

// close marks the session terminated. Idempotent.
func (s *memorySession) close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
	return nil
}

// sessionRegistry owns the mapping from session identifier to live session.
// It is the only long-lived mutable shared state in the server; all
// mutation happens under the mutex so concurrent create/resolve/remove for
// the same identifier are atomic.
type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession

	notificationBufferSize int
}

func newSessionRegistry(notificationBufferSize int) *sessionRegistry {
	return &sessionRegistry{
		sessions:               make(map[string]*memorySession),
		notificationBufferSize: notificationBufferSize,
	}
}

// create allocates a new session and stores the mapping before returning,
// so no message can be delivered to an unregistered session.
func (r *sessionRegistry) create() *memorySession {
	session := newMemorySession(r.notificationBufferSize)
	r.mu.Lock()
	r.sessions[session.id] = session
	r.mu.Unlock()
	return session
}

// resolve returns the live session for the identifier.
func (r *sessionRegistry) resolve(sessionID string) (*memorySession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[sessionID]
	return session, ok
}

// remove deletes the mapping and closes the session. Removing an unknown
// identifier is a no-op, not an error.
func (r *sessionRegistry) remove(sessionID string) bool {
	r.mu.Lock()
	session, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	if ok {
		_ = session.close()
	}
	return ok
}

// activeSessions returns the identifiers of all live sessions.
func (r *sessionRegistry) activeSessions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// closeAll drains every live session during graceful shutdown. Per-session
// close failures are logged, never escalated.
func (r *sessionRegistry) closeAll(logger Logger) {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*memorySession)
	r.mu.Unlock()

	for id, session := range sessions {
		logger.Infof("closing session %s", id)
		if err := session.close(); err != nil {
			logger.Errorf("error closing session %s: %v", id, err)
		}
	}
}
