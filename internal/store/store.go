package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate")
)

// User represents a registered account. The chat layer only reads it.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Message represents a persisted private message.
// IsBullying, BullyingProbability and NeedsReview are written once at insert.
type Message struct {
	ID                  int64
	Sender              string
	Receiver            string
	Content             string
	Timestamp           time.Time
	IsBullying          bool
	BullyingProbability float64
	// NeedsReview marks messages flagged because the classifier was unavailable.
	NeedsReview bool
	IsRead      bool
}

// MessagePage is one page of a conversation, oldest message first.
type MessagePage struct {
	Messages []*Message
	HasMore  bool
}

// Conversation summarizes the messages exchanged with one peer.
type Conversation struct {
	Peer        string
	UnreadCount int64
	LastMessage *Message // nil when no messages exist
}

// Comment is a post comment; flagged comments feed the abuse counter.
type Comment struct {
	ID                  string
	PostID              string
	UserID              int64
	Content             string
	IsBullying          bool
	BullyingProbability float64
	CreatedAt           time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	// A taken username or email yields ErrDuplicate.
	CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// ListUsersExcept lists every user other than the given username.
	ListUsersExcept(ctx context.Context, username string) ([]*User, error)
}

// MessageStore handles private message persistence and conversation queries.
type MessageStore interface {
	// SaveMessage persists a message atomically and sets its ID.
	SaveMessage(ctx context.Context, msg *Message) error

	// History returns messages exchanged between a and b in either direction.
	// Pagination runs newest-first; the returned page is oldest-first.
	History(ctx context.Context, a, b string, limit, offset int) (*MessagePage, error)

	// MarkRead flips is_read for the given ids where username is the receiver.
	// Ids that do not match are ignored. Returns the number of rows changed.
	MarkRead(ctx context.Context, ids []int64, username string) (int64, error)

	// Conversations lists one summary per correspondent of username.
	Conversations(ctx context.Context, username string) ([]*Conversation, error)

	// BullyingCounts returns flagged messages received by and sent by username.
	BullyingCounts(ctx context.Context, username string) (received, sent int64, err error)

	// CountFlaggedMessagesSent counts flagged messages sent by username.
	CountFlaggedMessagesSent(ctx context.Context, username string) (int64, error)
}

// CommentStore handles comment persistence.
type CommentStore interface {
	// CreateComment persists a comment, assigning ID and CreatedAt when empty.
	CreateComment(ctx context.Context, c *Comment) error

	// CountFlaggedComments counts flagged comments authored by userID.
	CountFlaggedComments(ctx context.Context, userID int64) (int64, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore
	CommentStore

	// Close closes the underlying database connection.
	Close() error
}
