package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandConnect binds the connection to a username.
	CommandConnect CommandKind = iota
	// CommandSendMessage routes a private message.
	CommandSendMessage
	// CommandMarkRead marks received messages as read.
	CommandMarkRead
	// CommandTyping relays a typing indicator.
	CommandTyping
)

// Command represents an action requested by a client.
type Command struct {
	Kind CommandKind

	// connect
	Username string
	Token    string

	// send_message, typing
	Sender    string
	Receiver  string
	Text      string
	Timestamp string
	IsTyping  bool

	// mark_as_read
	MessageIDs []int64
}
