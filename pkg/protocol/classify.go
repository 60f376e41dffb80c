package protocol

import (
	"encoding/json"
	"log/slog"
	"strings"

	"wirebot/pkg/bus"
)

// Classifier turns raw inbound frames into typed events.
//
// Classification never fails loudly: a malformed JSON frame is logged
// and dropped, an unknown discriminator becomes Unrecognized, and a
// structurally valid frame with missing fields passes its zero values
// through for downstream validation.
type Classifier struct {
	token string
	log   *slog.Logger
}

// NewClassifier builds a classifier binding reply addresses to token.
func NewClassifier(token string, log *slog.Logger) *Classifier {
	if log == nil {
		log = slog.Default()
	}

	return &Classifier{
		token: token,
		log:   log.With("component", "protocol.classifier"),
	}
}

// Classify produces exactly one event for a frame, or (nil, false) when
// the frame is malformed and must be dropped.
func (c *Classifier) Classify(raw []byte) (bus.Event, bool) {
	text := string(raw)
	if text == FramePong {
		return Pong{}, true
	}

	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return Unrecognized{Raw: text}, true
	}

	var envelope frame
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
		c.log.Warn("Dropping malformed frame", "error", err)
		return nil, false
	}

	switch envelope.Type {
	case typeUserMessage:
		return c.classifyUserMessage(envelope.Data)
	case typeCommandMessage:
		return c.classifyCommandMessage(envelope.Data)
	default:
		c.log.Debug("Ignoring frame with unknown discriminator", "type", envelope.Type)
		return Unrecognized{Raw: text}, true
	}
}

func (c *Classifier) classifyUserMessage(data json.RawMessage) (bus.Event, bool) {
	var payload userMessageData
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			c.log.Warn("Dropping user message with malformed payload", "error", err)
			return nil, false
		}
	}

	user := payload.UserInfo.UserBaseInfo
	return UserMessage{
		User: user,
		Text: payload.Content,
		Reply: ReplyAddress{
			Token:    c.token,
			TargetID: user.UserID,
		},
	}, true
}

func (c *Classifier) classifyCommandMessage(data json.RawMessage) (bus.Event, bool) {
	var payload commandMessageData
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			c.log.Warn("Dropping command message with malformed payload", "error", err)
			return nil, false
		}
	}

	return CommandMessage{
		Sender:  payload.SenderInfo,
		Command: payload.CommandInfo.Name,
		Args:    payload.CommandInfo.Args,
		Room:    payload.RoomBaseInfo,
		Channel: payload.ChannelBaseInfo,
		Reply: ReplyAddress{
			Token:     c.token,
			TargetID:  payload.SenderInfo.UserID,
			RoomID:    payload.RoomBaseInfo.RoomID,
			ChannelID: payload.ChannelBaseInfo.ChannelID,
		},
	}, true
}
