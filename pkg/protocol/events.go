// Package protocol defines the chat platform's inbound wire format and
// the typed events the runtime dispatches.
package protocol

import "encoding/json"

// Topics the dispatcher posts classified events on.
const (
	TopicWebSocketMessage = "websocket-message"
	TopicUserMessage      = "user-message"
	TopicCommandMessage   = "command-message"
)

// Frame discriminators and literal heartbeat payloads.
const (
	FramePing = "PING"
	FramePong = "PONG"

	typeUserMessage    = "5"
	typeCommandMessage = "50"
)

// UserBaseInfo carries sender identity fields verbatim from the wire.
type UserBaseInfo struct {
	UserID   string `json:"user_id"`
	NickName string `json:"nick_name"`
}

// RoomBaseInfo identifies the room a command was issued in.
type RoomBaseInfo struct {
	RoomID   string `json:"room_id"`
	RoomName string `json:"room_name"`
}

// ChannelBaseInfo identifies the channel a command was issued in.
type ChannelBaseInfo struct {
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
	ChannelType int    `json:"channel_type"`
}

// RawFrame is an inbound transport frame republished on websocket-message.
type RawFrame struct {
	Raw []byte
}

func (RawFrame) Topic() string { return TopicWebSocketMessage }

// Pong is the liveness reply. It is consumed at the connection layer and
// never posted to the bus; the classifier still recognizes it so a frame
// arriving out of band stays terminal.
type Pong struct{}

func (Pong) Topic() string { return "pong" }

// UserMessage is a direct message from a platform user.
type UserMessage struct {
	User  UserBaseInfo
	Text  string
	Reply ReplyAddress
}

func (UserMessage) Topic() string { return TopicUserMessage }

// CommandMessage is a structured command invocation.
type CommandMessage struct {
	Sender  UserBaseInfo
	Command string
	Args    []string
	Room    RoomBaseInfo
	Channel ChannelBaseInfo
	Reply   ReplyAddress
}

func (CommandMessage) Topic() string { return TopicCommandMessage }

// Unrecognized is a frame with an unknown discriminator. Terminal.
type Unrecognized struct {
	Raw string
}

func (Unrecognized) Topic() string { return "unrecognized" }

// frame is the inbound JSON envelope.
type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// userMessageData is the payload under data for type "5" frames.
type userMessageData struct {
	UserInfo struct {
		UserBaseInfo UserBaseInfo `json:"user_base_info"`
	} `json:"user_info"`
	Content string `json:"content"`
}

// commandMessageData is the payload under data for type "50" frames.
type commandMessageData struct {
	SenderInfo  UserBaseInfo `json:"sender_info"`
	CommandInfo struct {
		Name string   `json:"name"`
		Args []string `json:"args"`
	} `json:"command_info"`
	RoomBaseInfo    RoomBaseInfo    `json:"room_base_info"`
	ChannelBaseInfo ChannelBaseInfo `json:"channel_base_info"`
}
