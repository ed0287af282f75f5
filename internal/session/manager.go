// Package session holds the authenticated sessions of live connections.
// Tokens and connection ids are kept in two maps under one lock; callers
// only ever receive copies.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"lingualink/internal/logger"
	"lingualink/pkg/interfaces"
	"lingualink/pkg/types"
)

// Session is a snapshot of one authenticated connection.
type Session struct {
	Token        string
	UserID       int64
	Username     string
	Role         types.Role
	ConnectionID uint32
	CreatedAt    time.Time
	LastActive   time.Time
}

// Manager is the process-wide session store.
type Manager struct {
	mu      sync.RWMutex
	byToken map[string]*Session
	byConn  map[uint32]string

	ttl    time.Duration
	now    func() time.Time
	mirror interfaces.SessionMirror
	log    logger.Logger
}

// NewManager creates a store whose sessions expire ttl after their last
// activity. mirror may be nil.
func NewManager(ttl time.Duration, mirror interfaces.SessionMirror, log logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{
		byToken: make(map[string]*Session),
		byConn:  make(map[uint32]string),
		ttl:     ttl,
		now:     time.Now,
		mirror:  mirror,
		log:     log.With(logger.Component("session")),
	}
}

// TTL returns the heartbeat window.
func (m *Manager) TTL() time.Duration { return m.ttl }

// ClearMirror empties the persisted mirror; called once at startup since
// no session survives a restart.
func (m *Manager) ClearMirror(ctx context.Context) error {
	if m.mirror == nil {
		return nil
	}
	return m.mirror.Clear(ctx)
}

// Create opens a session for connID and returns its token. Any previous
// session bound to the same connection is evicted.
func (m *Manager) Create(ctx context.Context, userID int64, username string, role types.Role, connID uint32) (string, error) {
	if userID <= 0 {
		return "", ErrInvalidUser
	}
	token := newToken()
	now := m.now()
	s := &Session{
		Token:        token,
		UserID:       userID,
		Username:     username,
		Role:         role,
		ConnectionID: connID,
		CreatedAt:    now,
		LastActive:   now,
	}

	m.mu.Lock()
	evicted, hadPrior := m.byConn[connID]
	if hadPrior {
		delete(m.byToken, evicted)
	}
	m.byToken[token] = s
	m.byConn[connID] = token
	m.mu.Unlock()

	if hadPrior {
		m.unmirror(ctx, evicted)
	}
	if m.mirror != nil {
		rec := types.SessionRecord{Token: token, UserID: userID, Role: role, ConnectionID: connID, CreatedAt: now}
		if err := m.mirror.Save(ctx, rec); err != nil {
			m.log.Warn("failed to mirror session", logger.Uint32("conn", connID), logger.Err(err))
		}
	}

	m.log.Info("session created",
		logger.Int64("user_id", userID), logger.String("role", string(role)), logger.Uint32("conn", connID))
	return token, nil
}

// Validate reports whether token is present and not expired.
func (m *Manager) Validate(token string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byToken[token]
	return ok && !m.expired(s, m.now())
}

// Touch extends token's lifetime. It reports whether the token was live.
func (m *Manager) Touch(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byToken[token]
	if !ok {
		return false
	}
	now := m.now()
	if m.expired(s, now) {
		return false
	}
	s.LastActive = now
	return true
}

func (m *Manager) LookupByToken(token string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byToken[token]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

func (m *Manager) LookupByConnection(connID uint32) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	token, ok := m.byConn[connID]
	if !ok {
		return Session{}, false
	}
	return *m.byToken[token], true
}

// Remove drops token. It reports whether anything was removed.
func (m *Manager) Remove(ctx context.Context, token string) bool {
	m.mu.Lock()
	s, ok := m.byToken[token]
	if ok {
		m.dropLocked(s)
	}
	m.mu.Unlock()

	if ok {
		m.unmirror(ctx, token)
	}
	return ok
}

// RemoveByConnection drops the session bound to connID and returns it.
func (m *Manager) RemoveByConnection(ctx context.Context, connID uint32) (Session, bool) {
	m.mu.Lock()
	token, ok := m.byConn[connID]
	var snap Session
	if ok {
		s := m.byToken[token]
		snap = *s
		m.dropLocked(s)
	}
	m.mu.Unlock()

	if ok {
		m.unmirror(ctx, token)
	}
	return snap, ok
}

// SweepExpired removes every session idle for longer than the TTL and
// returns what was removed. Connections are left open.
func (m *Manager) SweepExpired(ctx context.Context) []Session {
	now := m.now()
	var swept []Session

	m.mu.Lock()
	for _, s := range m.byToken {
		if m.expired(s, now) {
			swept = append(swept, *s)
			m.dropLocked(s)
		}
	}
	m.mu.Unlock()

	for _, s := range swept {
		m.unmirror(ctx, s.Token)
		m.log.Info("session expired",
			logger.Int64("user_id", s.UserID), logger.Uint32("conn", s.ConnectionID))
	}
	return swept
}

// ConnectionsOfUser lists the connections with a live session for userID.
func (m *Manager) ConnectionsOfUser(userID int64) []uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var conns []uint32
	for _, s := range m.byToken {
		if s.UserID == userID {
			conns = append(conns, s.ConnectionID)
		}
	}
	return conns
}

// Count returns the number of sessions held.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byToken)
}

func (m *Manager) dropLocked(s *Session) {
	delete(m.byToken, s.Token)
	if m.byConn[s.ConnectionID] == s.Token {
		delete(m.byConn, s.ConnectionID)
	}
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	return now.Sub(s.LastActive) > m.ttl
}

func (m *Manager) unmirror(ctx context.Context, token string) {
	if m.mirror == nil {
		return
	}
	if err := m.mirror.Delete(ctx, token); err != nil {
		m.log.Warn("failed to remove session mirror", logger.Err(err))
	}
}

// newToken returns 16 bytes from crypto/rand as 32 hex characters.
func newToken() string {
	var b [16]byte
	// crypto/rand.Read never fails on supported platforms
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
