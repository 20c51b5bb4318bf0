package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/safetalk/safetalk-server/internal/store"
)

// FlagCounter reads the persisted flag counts behind the abuse gate.
type FlagCounter interface {
	CountFlaggedComments(ctx context.Context, userID int64) (int64, error)
	CountFlaggedMessagesSent(ctx context.Context, username string) (int64, error)
}

// UserLookup resolves a username to its account.
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*store.User, error)
}

// Breakdown splits the flagged total by content kind.
type Breakdown struct {
	Comments int64
	Messages int64
}

// Access is the outcome of an abuse gate evaluation.
type Access struct {
	Allowed           bool
	TotalFlaggedCount int64
	MaxAllowed        int
	Breakdown         Breakdown
}

// Ledger derives a user's standing from counts persisted elsewhere; it keeps
// no state of its own.
type Ledger struct {
	counts     FlagCounter
	users      UserLookup
	maxAllowed int
}

// NewLedger builds a ledger. users may be nil when callers always pass a user ID.
func NewLedger(counts FlagCounter, users UserLookup, maxAllowed int) *Ledger {
	return &Ledger{counts: counts, users: users, maxAllowed: maxAllowed}
}

// MaxAllowed returns the configured limit.
func (l *Ledger) MaxAllowed() int {
	return l.maxAllowed
}

// EvaluateAccess counts flagged comments and sent messages. A user whose total
// reaches MaxAllowed is blocked. userID 0 resolves the account from username;
// unknown accounts contribute no comments.
func (l *Ledger) EvaluateAccess(ctx context.Context, userID int64, username string) (Access, error) {
	if userID == 0 && l.users != nil && username != "" {
		user, err := l.users.GetUserByUsername(ctx, username)
		switch {
		case err == nil:
			userID = user.ID
		case errors.Is(err, store.ErrNotFound):
		default:
			return Access{}, fmt.Errorf("lookup user: %w", err)
		}
	}

	var b Breakdown
	if userID != 0 {
		n, err := l.counts.CountFlaggedComments(ctx, userID)
		if err != nil {
			return Access{}, fmt.Errorf("count flagged comments: %w", err)
		}
		b.Comments = n
	}
	if username != "" {
		n, err := l.counts.CountFlaggedMessagesSent(ctx, username)
		if err != nil {
			return Access{}, fmt.Errorf("count flagged messages: %w", err)
		}
		b.Messages = n
	}

	total := b.Comments + b.Messages
	access := Access{
		Allowed:           total < int64(l.maxAllowed),
		TotalFlaggedCount: total,
		MaxAllowed:        l.maxAllowed,
		Breakdown:         b,
	}
	if !access.Allowed {
		accessDenials.Inc()
	}
	return access, nil
}
