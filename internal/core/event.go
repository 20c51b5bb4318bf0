package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventConnected confirms a successful connect.
	EventConnected EventKind = iota
	// EventOnlineUsers carries the current presence snapshot.
	EventOnlineUsers
	// EventUserJoined notifies clients that a user came online.
	EventUserJoined
	// EventReceiveMessage delivers a message to its receiver.
	EventReceiveMessage
	// EventMessageSent acknowledges a persisted message to its sender.
	EventMessageSent
	// EventMessagesMarkedRead reports how many messages were marked read.
	EventMessagesMarkedRead
	// EventUserTyping relays a typing indicator.
	EventUserTyping
	// EventError notifies clients about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	User     string
	Users    []string // EventOnlineUsers
	Message  Message
	Status   string // EventMessageSent
	Count    int64  // EventMessagesMarkedRead
	IsTyping bool
	Error    *CoreError
}

func errorEvent(code, msg string) *Event {
	return &Event{Kind: EventError, Error: coreError(code, msg)}
}
