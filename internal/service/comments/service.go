// Package comments implements the comment creation path that feeds the abuse counter.
package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/safetalk/safetalk-server/internal/moderation"
	"github.com/safetalk/safetalk-server/internal/store"
)

const maxContentLength = 2000

// Common errors for comment operations.
var (
	ErrBlocked        = errors.New("commenting disabled due to abusive behaviour")
	ErrInvalidContent = errors.New("invalid comment content")
	ErrInvalidPost    = errors.New("invalid post id")
)

// Classifier scores comment text against a threshold.
type Classifier interface {
	ClassifyWith(ctx context.Context, text string, threshold float64) moderation.Verdict
}

// AccessEvaluator evaluates the abuse gate for a user.
type AccessEvaluator interface {
	EvaluateAccess(ctx context.Context, userID int64, username string) (moderation.Access, error)
}

// Service provides comment creation.
type Service struct {
	store      store.CommentStore
	access     AccessEvaluator
	classifier Classifier
	threshold  float64
	log        *zerolog.Logger
}

// New creates a comment service. threshold is the probability at which a comment is flagged.
func New(st store.CommentStore, access AccessEvaluator, classifier Classifier, threshold float64, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		store:      st,
		access:     access,
		classifier: classifier,
		threshold:  threshold,
		log:        logger,
	}
}

// Create checks the author's standing, classifies content and stores the comment.
func (s *Service) Create(ctx context.Context, userID int64, username, postID, content string) (*store.Comment, error) {
	postID = strings.TrimSpace(postID)
	content = strings.TrimSpace(content)
	if postID == "" {
		return nil, ErrInvalidPost
	}
	if content == "" || len(content) > maxContentLength {
		return nil, ErrInvalidContent
	}

	access, err := s.access.EvaluateAccess(ctx, userID, username)
	if err != nil {
		return nil, fmt.Errorf("evaluate access: %w", err)
	}
	if !access.Allowed {
		return nil, ErrBlocked
	}

	verdict := s.classifier.ClassifyWith(ctx, content, s.threshold)

	comment := &store.Comment{
		PostID:              postID,
		UserID:              userID,
		Content:             content,
		IsBullying:          verdict.IsBullying,
		BullyingProbability: verdict.Probability,
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	if verdict.IsBullying {
		s.log.Info().
			Str("comment_id", comment.ID).
			Int64("user_id", userID).
			Float64("probability", verdict.Probability).
			Bool("needs_review", verdict.NeedsReview).
			Msg("comment flagged")
	}
	return comment, nil
}
