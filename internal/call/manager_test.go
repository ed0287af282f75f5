package call

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = Party{ID: 1, Username: "alice"}
	bob   = Party{ID: 2, Username: "bob"}
	carol = Party{ID: 3, Username: "carol"}
)

func newTestManager() (*Manager, *time.Time) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(30 * time.Second)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestInitiateGuards(t *testing.T) {
	m, _ := newTestManager()

	assert.ErrorIs(t, m.Initiate(alice, alice), ErrSelfCall)
	require.NoError(t, m.Initiate(alice, bob))
	assert.ErrorIs(t, m.Initiate(alice, bob), ErrAlreadyRinging)
	assert.ErrorIs(t, m.Initiate(carol, bob), ErrAlreadyRinging, "one pending call per receiver")
	assert.ErrorIs(t, m.Initiate(alice, carol), ErrBusy, "caller already ringing someone")

	p, ok := m.PendingFor("bob")
	require.True(t, ok)
	assert.Equal(t, alice, p.Caller)
}

func TestAnswerAndEnd(t *testing.T) {
	m, _ := newTestManager()
	require.NoError(t, m.Initiate(alice, bob))

	_, _, err := m.Answer(bob, "carol")
	assert.ErrorIs(t, err, ErrNoPendingCall)

	p, dropped, err := m.Answer(bob, "alice")
	require.NoError(t, err)
	assert.Empty(t, dropped)
	assert.Equal(t, alice, p.Caller)
	assert.True(t, m.Busy("alice"))
	assert.True(t, m.Busy("bob"))
	assert.Equal(t, Stats{Pending: 0, Active: 1}, m.Stats())

	assert.ErrorIs(t, m.Initiate(carol, bob), ErrBusy)
	assert.ErrorIs(t, m.Initiate(alice, carol), ErrBusy)

	ended, err := m.End("bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, alice, ended.Peer)
	assert.False(t, ended.WasPending)
	assert.False(t, m.Busy("alice"))
	assert.False(t, m.Busy("bob"))

	_, err = m.End("bob", "alice")
	assert.ErrorIs(t, err, ErrNotInCall)
}

func TestAnswerDropsOtherPendingCalls(t *testing.T) {
	m, _ := newTestManager()
	require.NoError(t, m.Initiate(alice, bob))
	require.NoError(t, m.Initiate(carol, alice))

	_, dropped, err := m.Answer(bob, "alice")
	require.NoError(t, err)
	require.Len(t, dropped, 1)
	assert.Equal(t, carol, dropped[0].Caller)
	_, ok := m.PendingFor("alice")
	assert.False(t, ok)
}

func TestDecline(t *testing.T) {
	m, _ := newTestManager()
	require.NoError(t, m.Initiate(alice, bob))

	_, err := m.Decline("bob", "carol")
	assert.ErrorIs(t, err, ErrNoPendingCall)

	p, err := m.Decline("bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, bob, p.Receiver)
	require.NoError(t, m.Initiate(alice, bob), "a declined call can be retried")
}

func TestEndWithdrawsRingingCall(t *testing.T) {
	m, _ := newTestManager()
	require.NoError(t, m.Initiate(alice, bob))

	ended, err := m.End("alice", "bob")
	require.NoError(t, err)
	assert.True(t, ended.WasPending)
	assert.Equal(t, bob, ended.Peer)
	_, ok := m.PendingFor("bob")
	assert.False(t, ok)
}

func TestSweepTimeouts(t *testing.T) {
	m, now := newTestManager()
	require.NoError(t, m.Initiate(alice, bob))
	*now = now.Add(10 * time.Second)
	require.NoError(t, m.Initiate(carol, Party{ID: 4, Username: "dave"}))

	*now = now.Add(21 * time.Second)
	expired := m.SweepTimeouts()
	require.Len(t, expired, 1)
	assert.Equal(t, alice, expired[0].Caller)

	require.NoError(t, m.Initiate(alice, bob), "retry after timeout succeeds")

	*now = now.Add(time.Minute)
	assert.Len(t, m.SweepTimeouts(), 2)
	assert.Equal(t, Stats{}, m.Stats())
}

func TestDisconnect(t *testing.T) {
	m, _ := newTestManager()
	require.NoError(t, m.Initiate(alice, bob))
	require.NoError(t, m.Initiate(carol, alice))

	out := m.Disconnect("alice")
	require.Len(t, out.Canceled, 1)
	assert.Equal(t, bob, out.Canceled[0].Receiver)
	require.Len(t, out.Missed, 1)
	assert.Equal(t, carol, out.Missed[0].Caller)
	assert.Nil(t, out.Active)

	require.NoError(t, m.Initiate(bob, carol))
	_, _, err := m.Answer(carol, "bob")
	require.NoError(t, err)

	out = m.Disconnect("carol")
	require.NotNil(t, out.Active)
	assert.Equal(t, bob, *out.Active)
	assert.False(t, m.Busy("bob"))
}

// Random event sequences never leave a receiver with two pending calls or
// a user both busy and ringing.
func TestStateMachineInvariants(t *testing.T) {
	m, now := newTestManager()
	parties := []Party{alice, bob, carol, {ID: 4, Username: "dave"}}

	for step := 0; step < 2000; step++ {
		a := parties[step%4]
		b := parties[(step*7+1)%4]
		switch (step * 13) % 6 {
		case 0:
			_ = m.Initiate(a, b)
		case 1:
			_, _, _ = m.Answer(b, a.Username)
		case 2:
			_, _ = m.Decline(b.Username, a.Username)
		case 3:
			_, _ = m.End(a.Username, b.Username)
		case 4:
			*now = now.Add(11 * time.Second)
			m.SweepTimeouts()
		case 5:
			m.Disconnect(a.Username)
		}

		m.mu.Lock()
		for receiver, p := range m.pending {
			assert.Equal(t, receiver, p.Receiver.Username)
			assert.NotEqual(t, p.Caller.Username, p.Receiver.Username)
			_, callerBusy := m.busy[p.Caller.Username]
			_, receiverBusy := m.busy[p.Receiver.Username]
			assert.False(t, callerBusy && receiverBusy, "pending call between users already talking")
		}
		for user, peer := range m.busy {
			assert.Equal(t, user, m.busy[peer.Username].Username, "busy pairs are symmetric")
		}
		m.mu.Unlock()
	}
}
