package controller

import (
	"context"
	"fmt"
	"strings"

	"lingualink/internal/logger"
	"lingualink/internal/protocol"
	"lingualink/internal/registry"
	"lingualink/internal/router"
	"lingualink/pkg/interfaces"
	"lingualink/pkg/types"
)

// Chat delivers private messages to online peers and serves history.
type Chat struct {
	base
	users    interfaces.UserRepository
	chats    interfaces.ChatRepository
	registry *registry.Registry
}

func NewChat(d Deps) *Chat {
	return &Chat{base: newBase(d, "chat"), users: d.Repos.Users, chats: d.Repos.Chats, registry: d.Registry}
}

func (c *Chat) Routes() Routes {
	return Routes{
		protocol.SendChatPrivateRequest: c.Send,
		protocol.ChatHistoryRequest:     c.History,
		protocol.RecentChatsRequest:     c.Recent,
	}
}

// Send pushes the message to every connection of the recipient. Messages
// are stored only once delivered.
func (c *Chat) Send(ctx context.Context, req *router.Request) error {
	var m protocol.PrivateMessage
	m.Decode(req.Payload())
	s, ok := c.session(req, m.Token)
	if !ok {
		return req.Fail(reasonInvalidSession)
	}
	kind := strings.ToUpper(m.Kind)
	if kind == "" {
		kind = types.ChatText
	}
	if !types.IsChatKind(kind) {
		return req.Fail(types.ErrInvalidChatKind.Error())
	}
	if m.Content == "" {
		return req.Fail("Message is empty")
	}

	recipient, err := c.users.FindByUsername(ctx, m.Recipient)
	if isNotFound(err) {
		return req.Fail("Recipient not found")
	}
	if err != nil {
		return fmt.Errorf("find recipient: %w", err)
	}
	if recipient.ID == s.UserID {
		return req.Fail("Cannot message yourself")
	}

	delivery := protocol.ChatDelivery{SenderID: s.UserID, Content: m.Content}.Encode()
	if c.registry.PushTo(recipient.ID, protocol.ChatPrivateReceive, delivery) == 0 {
		return req.Fail("Recipient is offline")
	}

	msg := &types.ChatMessage{
		SenderID:   s.UserID,
		ReceiverID: recipient.ID,
		Content:    m.Content,
		Kind:       kind,
		CreatedAt:  c.now().UTC(),
	}
	if _, err := c.chats.Save(ctx, msg); err != nil {
		c.logger.Warn("delivered message not stored",
			logger.Int64("sender_id", s.UserID), logger.Int64("receiver_id", recipient.ID), logger.Err(err))
	}
	return req.Succeed("Message sent")
}

// History returns one page of the conversation with another user and
// marks the other user's messages as read.
func (c *Chat) History(ctx context.Context, req *router.Request) error {
	var q protocol.ChatHistoryQuery
	q.Decode(req.Payload())
	s, ok := c.session(req, q.Token)
	if !ok {
		return req.Fail(reasonInvalidSession)
	}

	other, err := c.users.FindByUsername(ctx, q.Other)
	if isNotFound(err) {
		return req.Fail("User not found")
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}

	msgs, err := c.chats.History(ctx, s.UserID, other.ID, q.Limit, q.Offset)
	if err != nil {
		return fmt.Errorf("chat history: %w", err)
	}
	if err := c.chats.MarkRead(ctx, s.UserID, other.ID); err != nil {
		c.logger.Warn("mark read failed", logger.Int64("user_id", s.UserID), logger.Err(err))
	}

	out := make([]protocol.ChatEntry, len(msgs))
	for i, m := range msgs {
		sender := other.Username
		if m.SenderID == s.UserID {
			sender = s.Username
		}
		out[i] = protocol.ChatEntry{Sender: sender, Kind: m.Kind, Timestamp: protocol.FormatTime(m.CreatedAt), Content: m.Content}
	}
	return req.Succeed(protocol.EncodeList(out))
}

func (c *Chat) Recent(ctx context.Context, req *router.Request) error {
	var q protocol.TokenOnly
	q.Decode(req.Payload())
	s, ok := c.session(req, q.Token)
	if !ok {
		return req.Fail(reasonInvalidSession)
	}

	convs, err := c.chats.Recent(ctx, s.UserID)
	if err != nil {
		return fmt.Errorf("recent chats: %w", err)
	}
	out := make([]protocol.ConversationSummary, len(convs))
	for i, cv := range convs {
		out[i] = protocol.ConversationSummary{
			OtherID:     cv.OtherID,
			Username:    cv.OtherUsername,
			LastMessage: cv.LastMessage,
			Timestamp:   protocol.FormatTime(cv.LastAt),
		}
	}
	return req.Succeed(protocol.EncodeList(out))
}
