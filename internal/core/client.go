package core

import (
	"context"
	"sync"
)

const (
	commandBuffer = 16
	eventBuffer   = 64
)

// Client is a chat connection as seen by the core layer.
// Events is never closed; consumers stop on Done.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event

	mu       sync.RWMutex
	userID   int64
	username string

	done      chan struct{}
	closeOnce sync.Once
	reason    *CoreError
}

// NewClient constructs a client with initialized channels.
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		Commands: make(chan *Command, commandBuffer),
		Events:   make(chan *Event, eventBuffer),
		done:     make(chan struct{}),
	}
}

// Username returns the name bound by connect, or "" before that.
func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

// UserID returns the account id from the connect token, or 0 when unknown.
func (c *Client) UserID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Client) bind(userID int64, username string) {
	c.mu.Lock()
	c.userID = userID
	c.username = username
	c.mu.Unlock()
}

// Done is closed once the client has been closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close marks the client closed. reason is nil for a normal close.
func (c *Client) Close(reason *CoreError) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.reason = reason
		c.mu.Unlock()
		close(c.done)
	})
}

// CloseReason returns the reason passed to Close.
func (c *Client) CloseReason() *CoreError {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reason
}

// Submit queues a command, blocking until there is room, the client closes or ctx ends.
func (c *Client) Submit(ctx context.Context, cmd *Command) bool {
	select {
	case c.Commands <- cmd:
		return true
	case <-c.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// deliver enqueues without blocking. Slow consumers lose the event.
func (c *Client) deliver(ev *Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}

// reply blocks until the event is queued; replies to the acting client are never dropped.
func (c *Client) reply(ctx context.Context, ev *Event) {
	select {
	case c.Events <- ev:
	case <-c.done:
	case <-ctx.Done():
	}
}

// kick sends a final error event and closes the client.
func (c *Client) kick(code, msg string) {
	reason := coreError(code, msg)
	c.deliver(&Event{Kind: EventError, Error: reason})
	c.Close(reason)
}
