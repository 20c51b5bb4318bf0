package core

import (
	"time"

	"github.com/safetalk/safetalk-server/internal/store"
)

// Delivery statuses reported back to the sender.
const (
	StatusDelivered = "delivered"
	StatusSaved     = "saved"
)

// Message is the domain model for a private message.
type Message struct {
	ID                  int64
	From                string
	To                  string
	Text                string
	CreatedAt           time.Time
	IsBullying          bool
	BullyingProbability float64
	NeedsReview         bool
	IsRead              bool
}

// MessageFromRecord converts a persisted message.
func MessageFromRecord(m *store.Message) Message {
	return Message{
		ID:                  m.ID,
		From:                m.Sender,
		To:                  m.Receiver,
		Text:                m.Content,
		CreatedAt:           m.Timestamp,
		IsBullying:          m.IsBullying,
		BullyingProbability: m.BullyingProbability,
		NeedsReview:         m.NeedsReview,
		IsRead:              m.IsRead,
	}
}
