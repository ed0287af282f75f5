package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingualink/internal/protocol"
)

func TestPrivateChat(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice, atoken := h.login("alice", "secret")
	bob, btoken := h.login("bob", "secret")
	aliceUser, err := h.repos.Users.FindByUsername(ctx, "alice")
	require.NoError(t, err)

	bob.take()
	reply := h.do(alice, protocol.SendChatPrivateRequest, join(atoken, "bob", "TEXT", "hi bob; how are you"))
	require.Equal(t, protocol.ChatMessageSuccess, reply.Opcode)
	assert.Equal(t, "Message sent", string(reply.Payload))

	push, ok := bob.pushed(protocol.ChatPrivateReceive)
	require.True(t, ok)
	var delivery protocol.ChatDelivery
	delivery.Decode(push)
	assert.Equal(t, aliceUser.ID, delivery.SenderID)
	assert.Equal(t, "hi bob; how are you", delivery.Content)

	reply = h.do(bob, protocol.SendChatPrivateRequest, join(btoken, "alice", "", "fine"))
	require.Equal(t, protocol.ChatMessageSuccess, reply.Opcode)

	reply = h.do(bob, protocol.ChatHistoryRequest, join(btoken, "alice", "10", "0"))
	require.Equal(t, protocol.ChatHistorySuccess, reply.Opcode)
	records := protocol.ParseCountedList(string(reply.Payload))
	require.Len(t, records, 2)
	var first, last protocol.ChatEntry
	first.Decode(records[0])
	last.Decode(records[1])
	assert.Equal(t, "alice", first.Sender)
	assert.Equal(t, "hi bob, how are you", first.Content)
	assert.Equal(t, "bob", last.Sender)
	assert.Equal(t, "fine", last.Content)
	assert.Equal(t, "TEXT", last.Kind)

	reply = h.do(alice, protocol.RecentChatsRequest, atoken)
	require.Equal(t, protocol.RecentChatsSuccess, reply.Opcode)
	records = protocol.ParseCountedList(string(reply.Payload))
	require.Len(t, records, 1)
	var conv protocol.ConversationSummary
	conv.Decode(records[0])
	assert.Equal(t, "bob", conv.Username)
	assert.Equal(t, "fine", conv.LastMessage)
}

func TestPrivateChatFailures(t *testing.T) {
	h := newHarness(t)
	alice, atoken := h.login("alice", "secret")

	cases := []struct {
		name    string
		payload string
		want    string
	}{
		{"unknown recipient", join(atoken, "nobody", "TEXT", "hi"), "Recipient not found"},
		{"self", join(atoken, "alice", "TEXT", "hi"), "Cannot message yourself"},
		{"offline", join(atoken, "student", "TEXT", "hi"), "Recipient is offline"},
		{"empty", join(atoken, "student", "TEXT", ""), "Message is empty"},
		{"bad kind", join(atoken, "student", "VIDEO", "hi"), "message kind must be TEXT or AUDIO"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reply := h.do(alice, protocol.SendChatPrivateRequest, tc.payload)
			assert.Equal(t, protocol.ChatMessageFailure, reply.Opcode)
			assert.Equal(t, tc.want, string(reply.Payload))
		})
	}

	u, err := h.repos.Users.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	convs, err := h.repos.Chats.Recent(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Empty(t, convs)
}
