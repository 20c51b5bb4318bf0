// Package proto defines the WebSocket wire format.
package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeConnect  = "connect"
	InboundTypeSend     = "send_message"
	InboundTypeMarkRead = "mark_as_read"
	InboundTypeTyping   = "typing"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventConnected          = "connected"
	EventOnlineUsers        = "online_users"
	EventUserJoined         = "user_joined"
	EventReceiveMessage     = "receive_message"
	EventMessageSent        = "message_sent"
	EventMessagesMarkedRead = "messages_marked_read"
	EventUserTyping         = "user_typing"
)

// ConnectData binds the connection to a user.
type ConnectData struct {
	Username string `json:"username"`
	Token    string `json:"token,omitempty"`
}

// SendMessageData is a private message from the client.
type SendMessageData struct {
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

// MarkAsReadData lists messages the client has read.
type MarkAsReadData struct {
	MessageIDs []int64 `json:"message_ids"`
	Username   string  `json:"username"`
}

// TypingData toggles the typing indicator shown to receiver.
type TypingData struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	IsTyping bool   `json:"is_typing"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Message is a private message as delivered to either party.
type Message struct {
	ID                  int64   `json:"id"`
	Sender              string  `json:"sender"`
	Receiver            string  `json:"receiver"`
	Message             string  `json:"message"`
	Timestamp           string  `json:"timestamp"`
	IsBullying          bool    `json:"is_bullying"`
	BullyingProbability float64 `json:"bullying_probability"`
	IsRead              bool    `json:"is_read"`
}

// EventConnectedData confirms the bound username.
type EventConnectedData struct {
	Username string `json:"username"`
}

// EventOnlineUsersData is the full online set.
type EventOnlineUsersData struct {
	Users []string `json:"users"`
}

// EventUserJoinedData announces a user coming online.
type EventUserJoinedData struct {
	Username string `json:"username"`
}

// EventMessageSentData acknowledges a persisted message.
type EventMessageSentData struct {
	ID                  int64   `json:"id"`
	Status              string  `json:"status"`
	IsBullying          bool    `json:"is_bullying"`
	BullyingProbability float64 `json:"bullying_probability"`
	NeedsReview         bool    `json:"needs_review"`
	Timestamp           string  `json:"timestamp"`
}

// EventMarkedReadData reports how many messages changed state.
type EventMarkedReadData struct {
	Count int64 `json:"count"`
}

// EventUserTypingData relays a typing indicator.
type EventUserTypingData struct {
	Sender   string `json:"sender"`
	IsTyping bool   `json:"is_typing"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
