// Package chat serves the REST-side views of private conversations.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/safetalk/safetalk-server/internal/moderation"
	"github.com/safetalk/safetalk-server/internal/store"
)

const maxPageLimit = 100

// Common errors for chat queries.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidPeer  = errors.New("invalid peer")
)

// OnlineChecker answers presence queries.
type OnlineChecker interface {
	IsOnline(username string) bool
}

// AccessEvaluator evaluates the abuse gate for a user.
type AccessEvaluator interface {
	EvaluateAccess(ctx context.Context, userID int64, username string) (moderation.Access, error)
}

// HistoryPage is one page of messages between the caller and a peer.
type HistoryPage struct {
	Messages []*store.Message
	HasMore  bool
}

// ConversationView is a conversation summary plus the peer's presence.
type ConversationView struct {
	*store.Conversation
	IsOnline bool
}

// UserView is another user with presence.
type UserView struct {
	Username string
	Email    string
	IsOnline bool
}

// Report holds flagged message counts around a user.
type Report struct {
	Received int64
	Sent     int64
}

// Service provides chat queries.
type Service struct {
	store        store.Store
	presence     OnlineChecker
	access       AccessEvaluator
	defaultLimit int
}

// New creates a chat service.
func New(st store.Store, presence OnlineChecker, access AccessEvaluator, defaultLimit int) *Service {
	if defaultLimit <= 0 || defaultLimit > maxPageLimit {
		defaultLimit = 50
	}
	return &Service{
		store:        st,
		presence:     presence,
		access:       access,
		defaultLimit: defaultLimit,
	}
}

// DefaultLimit returns the page size used when none is requested.
func (s *Service) DefaultLimit() int {
	return s.defaultLimit
}

// History returns a page of the conversation with peer, oldest first, and
// marks the page's unread messages addressed to the caller as read.
func (s *Service) History(ctx context.Context, userID int64, peer string, limit, offset int) (*HistoryPage, error) {
	me, err := s.caller(ctx, userID)
	if err != nil {
		return nil, err
	}
	peer = strings.TrimSpace(peer)
	if peer == "" {
		return nil, ErrInvalidPeer
	}

	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	page, err := s.store.History(ctx, me.Username, peer, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	var unread []int64
	for _, m := range page.Messages {
		if m.Receiver == me.Username && !m.IsRead {
			unread = append(unread, m.ID)
		}
	}
	if len(unread) > 0 {
		if _, err := s.store.MarkRead(ctx, unread, me.Username); err != nil {
			return nil, fmt.Errorf("mark read: %w", err)
		}
		for _, m := range page.Messages {
			if m.Receiver == me.Username {
				m.IsRead = true
			}
		}
	}

	return &HistoryPage{Messages: page.Messages, HasMore: page.HasMore}, nil
}

// Conversations lists the caller's correspondents, most recent first.
func (s *Service) Conversations(ctx context.Context, userID int64) ([]ConversationView, error) {
	me, err := s.caller(ctx, userID)
	if err != nil {
		return nil, err
	}

	convs, err := s.store.Conversations(ctx, me.Username)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	out := make([]ConversationView, 0, len(convs))
	for _, c := range convs {
		out = append(out, ConversationView{Conversation: c, IsOnline: s.isOnline(c.Peer)})
	}
	return out, nil
}

// OnlineUsers lists every other user with their presence.
func (s *Service) OnlineUsers(ctx context.Context, userID int64) ([]UserView, error) {
	me, err := s.caller(ctx, userID)
	if err != nil {
		return nil, err
	}

	users, err := s.store.ListUsersExcept(ctx, me.Username)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, UserView{Username: u.Username, Email: u.Email, IsOnline: s.isOnline(u.Username)})
	}
	return out, nil
}

// BullyingReport counts flagged messages received and sent by the caller.
func (s *Service) BullyingReport(ctx context.Context, userID int64) (Report, error) {
	me, err := s.caller(ctx, userID)
	if err != nil {
		return Report{}, err
	}

	received, sent, err := s.store.BullyingCounts(ctx, me.Username)
	if err != nil {
		return Report{}, fmt.Errorf("count flagged messages: %w", err)
	}
	return Report{Received: received, Sent: sent}, nil
}

// CanChat evaluates the abuse gate for the caller.
func (s *Service) CanChat(ctx context.Context, userID int64) (moderation.Access, error) {
	me, err := s.caller(ctx, userID)
	if err != nil {
		return moderation.Access{}, err
	}

	access, err := s.access.EvaluateAccess(ctx, me.ID, me.Username)
	if err != nil {
		return moderation.Access{}, fmt.Errorf("evaluate access: %w", err)
	}
	return access, nil
}

func (s *Service) caller(ctx context.Context, userID int64) (*store.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load caller: %w", err)
	}
	return user, nil
}

func (s *Service) isOnline(username string) bool {
	return s.presence != nil && s.presence.IsOnline(username)
}
