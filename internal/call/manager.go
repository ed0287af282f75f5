// Package call is the signaling state machine for voice calls. A call is
// pending from initiate until answer, decline, timeout or caller
// disconnect, then active until either side ends it. No media flows here.
package call

import (
	"sort"
	"sync"
	"time"
)

// Party identifies one side of a call.
type Party struct {
	ID       int64
	Username string
}

// Pending is a ringing call, keyed by its receiver.
type Pending struct {
	Caller    Party
	Receiver  Party
	StartedAt time.Time
}

// Ended describes a call torn down by End or Disconnect.
type Ended struct {
	Peer       Party
	WasPending bool
}

// DisconnectOutcome lists what a user's departure tore down.
type DisconnectOutcome struct {
	// Canceled are calls the user was placing; their receivers are told.
	Canceled []Pending
	// Missed are calls ringing at the user; their callers are told.
	Missed []Pending
	// Active is set when the user was in a call.
	Active *Party
}

// Manager holds pending and active calls under one lock.
type Manager struct {
	mu      sync.Mutex
	pending map[string]*Pending
	busy    map[string]Party
	timeout time.Duration
	now     func() time.Time
}

func NewManager(timeout time.Duration) *Manager {
	return &Manager{
		pending: make(map[string]*Pending),
		busy:    make(map[string]Party),
		timeout: timeout,
		now:     time.Now,
	}
}

// Initiate starts ringing receiver.
func (m *Manager) Initiate(caller, receiver Party) error {
	if caller.Username == receiver.Username {
		return ErrSelfCall
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pending[receiver.Username]; ok {
		return ErrAlreadyRinging
	}
	if _, ok := m.busy[caller.Username]; ok {
		return ErrBusy
	}
	if _, ok := m.busy[receiver.Username]; ok {
		return ErrBusy
	}
	if m.ringingFromLocked(caller.Username) != nil {
		return ErrBusy
	}
	m.pending[receiver.Username] = &Pending{Caller: caller, Receiver: receiver, StartedAt: m.now()}
	return nil
}

// Answer moves the call from caller to receiver into the active state.
// Other pending calls involving either party are dropped and returned so
// their counterparts can be told.
func (m *Manager) Answer(receiver Party, caller string) (Pending, []Pending, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pending[receiver.Username]
	if !ok || p.Caller.Username != caller {
		return Pending{}, nil, ErrNoPendingCall
	}
	delete(m.pending, receiver.Username)

	var dropped []Pending
	for key, other := range m.pending {
		if involves(other, p.Caller.Username) || involves(other, receiver.Username) {
			dropped = append(dropped, *other)
			delete(m.pending, key)
		}
	}
	m.busy[p.Caller.Username] = p.Receiver
	m.busy[p.Receiver.Username] = p.Caller
	return *p, dropped, nil
}

// Decline removes the pending call from caller to receiver.
func (m *Manager) Decline(receiver, caller string) (Pending, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pending[receiver]
	if !ok || p.Caller.Username != caller {
		return Pending{}, ErrNoPendingCall
	}
	delete(m.pending, receiver)
	return *p, nil
}

// End hangs up. An active call with peer ends for both sides; a call the
// user is still placing to peer is withdrawn. An empty peer means the
// user's current active call.
func (m *Manager) End(user, peer string) (Ended, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if other, ok := m.busy[user]; ok && (peer == "" || other.Username == peer) {
		delete(m.busy, user)
		delete(m.busy, other.Username)
		return Ended{Peer: other}, nil
	}
	if p, ok := m.pending[peer]; ok && p.Caller.Username == user {
		delete(m.pending, peer)
		return Ended{Peer: p.Receiver, WasPending: true}, nil
	}
	return Ended{}, ErrNotInCall
}

// SweepTimeouts drops pending calls older than the timeout.
func (m *Manager) SweepTimeouts() []Pending {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []Pending
	for key, p := range m.pending {
		if now.Sub(p.StartedAt) > m.timeout {
			expired = append(expired, *p)
			delete(m.pending, key)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].StartedAt.Before(expired[j].StartedAt) })
	return expired
}

// Disconnect removes every call state involving user.
func (m *Manager) Disconnect(user string) DisconnectOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out DisconnectOutcome
	for key, p := range m.pending {
		switch {
		case p.Caller.Username == user:
			out.Canceled = append(out.Canceled, *p)
			delete(m.pending, key)
		case p.Receiver.Username == user:
			out.Missed = append(out.Missed, *p)
			delete(m.pending, key)
		}
	}
	if other, ok := m.busy[user]; ok {
		delete(m.busy, user)
		delete(m.busy, other.Username)
		out.Active = &other
	}
	return out
}

// Busy reports whether user is in an active call.
func (m *Manager) Busy(user string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.busy[user]
	return ok
}

// PendingFor returns the call ringing at receiver, if any.
func (m *Manager) PendingFor(receiver string) (Pending, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[receiver]
	if !ok {
		return Pending{}, false
	}
	return *p, true
}

// Stats counts ringing calls and users in active calls.
type Stats struct {
	Pending int `json:"pending"`
	Active  int `json:"active"`
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Pending: len(m.pending), Active: len(m.busy) / 2}
}

func (m *Manager) ringingFromLocked(caller string) *Pending {
	for _, p := range m.pending {
		if p.Caller.Username == caller {
			return p
		}
	}
	return nil
}

func involves(p *Pending, user string) bool {
	return p.Caller.Username == user || p.Receiver.Username == user
}
