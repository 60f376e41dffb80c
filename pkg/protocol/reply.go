package protocol

import (
	"context"
	"errors"
)

// Sender performs the actual outbound network call. Its retry and
// delivery semantics are outside this package.
type Sender interface {
	Send(ctx context.Context, token string, payload any) error
}

// ReplyAddress is the routing information needed to answer the origin of
// one inbound message. It is a plain value, not a captured closure, so
// handlers may hold it across async boundaries without keeping the
// original frame alive.
type ReplyAddress struct {
	Token     string
	TargetID  string
	RoomID    string
	ChannelID string
}

// OutboundMessage is the JSON payload shape for domain send calls.
type OutboundMessage struct {
	TargetID  string `json:"target_id,omitempty"`
	RoomID    string `json:"room_id,omitempty"`
	ChannelID string `json:"channel_id,omitempty"`
	Content   string `json:"content"`
}

// SendReply sends text back to the address's origin through the sender.
func SendReply(ctx context.Context, sender Sender, addr ReplyAddress, text string) error {
	if sender == nil {
		return errors.New("sender is required")
	}
	if addr.Token == "" {
		return errors.New("reply address has no token")
	}

	return sender.Send(ctx, addr.Token, OutboundMessage{
		TargetID:  addr.TargetID,
		RoomID:    addr.RoomID,
		ChannelID: addr.ChannelID,
		Content:   text,
	})
}
