// Package registry tracks live connections and which user each one is
// logged in as, and fans pushes out to every connection of a user.
package registry

import (
	"net"
	"sync"

	"lingualink/internal/logger"
	"lingualink/internal/protocol"
)

// Handle is the write side of one client connection, TCP or websocket.
// Send must be safe for concurrent use.
type Handle interface {
	ID() uint32
	RemoteAddr() net.Addr
	Send(op protocol.Opcode, payload []byte) error
	Close() error
}

// Registry maps connection ids to handles and user ids to their set of
// connections.
type Registry struct {
	mu     sync.RWMutex
	conns  map[uint32]Handle
	users  map[int64]map[uint32]Handle
	userOf map[uint32]int64
	log    logger.Logger
}

func New(log logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		conns:  make(map[uint32]Handle),
		users:  make(map[int64]map[uint32]Handle),
		userOf: make(map[uint32]int64),
		log:    log.With(logger.Component("registry")),
	}
}

// Add records a freshly accepted connection.
func (r *Registry) Add(h Handle) error {
	if h == nil {
		return ErrNilHandle
	}
	r.mu.Lock()
	r.conns[h.ID()] = h
	r.mu.Unlock()
	return nil
}

// Remove forgets a connection entirely. Idempotent.
func (r *Registry) Remove(connID uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unbindLocked(connID)
	delete(r.conns, connID)
}

// Bind attaches connID to userID after a login. A connection belongs to
// at most one user; rebinding moves it.
func (r *Registry) Bind(userID int64, connID uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.conns[connID]
	if !ok {
		return ErrUnknownHandle
	}
	r.unbindLocked(connID)
	set := r.users[userID]
	if set == nil {
		set = make(map[uint32]Handle)
		r.users[userID] = set
	}
	set[connID] = h
	r.userOf[connID] = userID
	return nil
}

// Unbind detaches connID from its user after logout or session expiry.
func (r *Registry) Unbind(connID uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unbindLocked(connID)
}

func (r *Registry) unbindLocked(connID uint32) {
	userID, ok := r.userOf[connID]
	if !ok {
		return
	}
	delete(r.userOf, connID)
	if set := r.users[userID]; set != nil {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.users, userID)
		}
	}
}

func (r *Registry) Get(connID uint32) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.conns[connID]
	return h, ok
}

// Online reports whether userID has at least one bound connection.
func (r *Registry) Online(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

// HandlesOf returns a snapshot of userID's connections.
func (r *Registry) HandlesOf(userID int64) []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.users[userID]
	out := make([]Handle, 0, len(set))
	for _, h := range set {
		out = append(out, h)
	}
	return out
}

// PushTo sends one frame to every connection of userID and returns how
// many sends succeeded. Failures are logged, never returned.
func (r *Registry) PushTo(userID int64, op protocol.Opcode, payload string) int {
	delivered := 0
	for _, h := range r.HandlesOf(userID) {
		if err := h.Send(op, []byte(payload)); err != nil {
			r.log.Warn("push failed",
				logger.Int64("user_id", userID), logger.Uint32("conn", h.ID()),
				logger.String("opcode", op.String()), logger.Err(err))
			continue
		}
		delivered++
	}
	return delivered
}

// Stats are the counters exposed on the gateway.
type Stats struct {
	Connections int `json:"connections"`
	Users       int `json:"users"`
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{Connections: len(r.conns), Users: len(r.users)}
}

// CloseAll closes every registered handle; used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	handles := make([]Handle, 0, len(r.conns))
	for _, h := range r.conns {
		handles = append(handles, h)
	}
	r.mu.RUnlock()

	for _, h := range handles {
		if err := h.Close(); err != nil {
			r.log.Debug("close failed", logger.Uint32("conn", h.ID()), logger.Err(err))
		}
	}
}
