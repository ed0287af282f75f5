package controller

import (
	"context"
	"errors"
	"fmt"

	"lingualink/internal/call"
	"lingualink/internal/logger"
	"lingualink/internal/protocol"
	"lingualink/internal/registry"
	"lingualink/internal/router"
	"lingualink/pkg/interfaces"
	"lingualink/pkg/types"
)

// Call event texts stored as SYSTEM chat messages.
const (
	eventStarted  = "Call started"
	eventMissed   = "Missed call"
	eventDeclined = "Call declined"
	eventEnded    = "Call ended"
)

// Call relays call signaling between online users.
type Call struct {
	base
	calls    *call.Manager
	users    interfaces.UserRepository
	chats    interfaces.ChatRepository
	registry *registry.Registry
}

func NewCall(d Deps) *Call {
	return &Call{
		base:     newBase(d, "call"),
		calls:    d.Calls,
		users:    d.Repos.Users,
		chats:    d.Repos.Chats,
		registry: d.Registry,
	}
}

func (c *Call) Routes() Routes {
	return Routes{
		protocol.CallInitiateRequest: c.Initiate,
		protocol.CallAnswerRequest:   c.Answer,
		protocol.CallDeclineRequest:  c.Decline,
		protocol.CallEndRequest:      c.End,
	}
}

func (c *Call) Initiate(ctx context.Context, req *router.Request) error {
	var q protocol.CallRequest
	q.Decode(req.Payload())
	s, ok := c.session(req, q.Token)
	if !ok {
		return req.Fail(reasonInvalidSession)
	}
	if q.Peer == "" {
		return req.Fail("Receiver is required")
	}

	receiver, err := c.users.FindByUsername(ctx, q.Peer)
	if isNotFound(err) {
		return req.Fail("User not found")
	}
	if err != nil {
		return fmt.Errorf("find receiver: %w", err)
	}
	if !c.registry.Online(receiver.ID) {
		return req.Fail("User is offline")
	}

	caller := call.Party{ID: s.UserID, Username: s.Username}
	callee := call.Party{ID: receiver.ID, Username: receiver.Username}
	switch err := c.calls.Initiate(caller, callee); {
	case errors.Is(err, call.ErrSelfCall):
		return req.Fail("Cannot call yourself")
	case err != nil:
		return req.Fail(err.Error())
	}

	c.registry.PushTo(callee.ID, protocol.CallIncoming,
		protocol.CallIncomingNotice{CallerID: caller.ID, Caller: caller.Username}.Encode())
	c.logger.Info("call ringing", logger.String("caller", caller.Username), logger.String("receiver", callee.Username))
	return req.Succeed("ringing")
}

func (c *Call) Answer(ctx context.Context, req *router.Request) error {
	var q protocol.CallRequest
	q.Decode(req.Payload())
	s, ok := c.session(req, q.Token)
	if !ok {
		return req.Fail(reasonInvalidSession)
	}

	me := call.Party{ID: s.UserID, Username: s.Username}
	p, dropped, err := c.calls.Answer(me, q.Peer)
	if err != nil {
		return req.Fail("No pending call from " + q.Peer)
	}

	c.registry.PushTo(p.Caller.ID, protocol.CallAccepted, me.Username)
	for _, d := range dropped {
		c.dropped(ctx, d, p)
	}
	c.record(ctx, p.Caller, p.Receiver, eventStarted)
	c.logger.Info("call started", logger.String("caller", p.Caller.Username), logger.String("receiver", me.Username))
	return req.Succeed("accepted")
}

func (c *Call) Decline(ctx context.Context, req *router.Request) error {
	var q protocol.CallRequest
	q.Decode(req.Payload())
	s, ok := c.session(req, q.Token)
	if !ok {
		return req.Fail(reasonInvalidSession)
	}

	p, err := c.calls.Decline(s.Username, q.Peer)
	if err != nil {
		return req.Fail("No pending call from " + q.Peer)
	}
	c.notifyEnded(p.Caller, protocol.OutcomeDeclined, p.Receiver.Username)
	c.record(ctx, p.Caller, p.Receiver, eventDeclined)
	return req.Succeed("declined")
}

// End hangs up an active call or withdraws a call still ringing.
func (c *Call) End(ctx context.Context, req *router.Request) error {
	var q protocol.CallRequest
	q.Decode(req.Payload())
	s, ok := c.session(req, q.Token)
	if !ok {
		return req.Fail(reasonInvalidSession)
	}

	me := call.Party{ID: s.UserID, Username: s.Username}
	ended, err := c.calls.End(me.Username, q.Peer)
	if err != nil {
		return req.Fail("Not in a call")
	}
	if ended.WasPending {
		c.notifyEnded(ended.Peer, protocol.OutcomeCanceled, me.Username)
		c.record(ctx, me, ended.Peer, eventMissed)
	} else {
		c.notifyEnded(ended.Peer, protocol.OutcomeEnded, me.Username)
		c.record(ctx, me, ended.Peer, eventEnded)
	}
	return req.Succeed("ended")
}

// SweepTimeouts tells callers whose calls rang out.
func (c *Call) SweepTimeouts(ctx context.Context) {
	for _, p := range c.calls.SweepTimeouts() {
		c.notifyEnded(p.Caller, protocol.OutcomeNoAnswer, p.Receiver.Username)
		c.record(ctx, p.Caller, p.Receiver, eventMissed)
		c.logger.Info("call timed out", logger.String("caller", p.Caller.Username), logger.String("receiver", p.Receiver.Username))
	}
}

// Leave tears down the call state of a user who is no longer connected.
func (c *Call) Leave(ctx context.Context, user call.Party) {
	out := c.calls.Disconnect(user.Username)
	for _, p := range out.Canceled {
		c.notifyEnded(p.Receiver, protocol.OutcomeCanceled, user.Username)
		c.record(ctx, p.Caller, p.Receiver, eventMissed)
	}
	for _, p := range out.Missed {
		c.notifyEnded(p.Caller, protocol.OutcomeNoAnswer, user.Username)
		c.record(ctx, p.Caller, p.Receiver, eventMissed)
	}
	if out.Active != nil {
		c.notifyEnded(*out.Active, protocol.OutcomeEnded, user.Username)
		c.record(ctx, user, *out.Active, eventEnded)
	}
}

// dropped tells the other side of a pending call cleared because one of
// its parties answered a different call.
func (c *Call) dropped(ctx context.Context, d, answered call.Pending) {
	inCall := func(u string) bool { return u == answered.Caller.Username || u == answered.Receiver.Username }
	if inCall(d.Caller.Username) {
		c.notifyEnded(d.Receiver, protocol.OutcomeCanceled, d.Caller.Username)
	} else {
		c.notifyEnded(d.Caller, protocol.OutcomeBusy, d.Receiver.Username)
	}
	c.record(ctx, d.Caller, d.Receiver, eventMissed)
}

func (c *Call) notifyEnded(to call.Party, outcome, peer string) {
	c.registry.PushTo(to.ID, protocol.CallEnded, protocol.CallEndedNotice{Outcome: outcome, Peer: peer}.Encode())
}

// record stores a call event in the conversation between from and to.
func (c *Call) record(ctx context.Context, from, to call.Party, event string) {
	msg := &types.ChatMessage{
		SenderID:   from.ID,
		ReceiverID: to.ID,
		Content:    event,
		Kind:       types.ChatSystem,
		CreatedAt:  c.now().UTC(),
	}
	if _, err := c.chats.Save(ctx, msg); err != nil {
		c.logger.Warn("call event not stored", logger.String("event", event), logger.Err(err))
	}
}
