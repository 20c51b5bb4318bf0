// Package moderation classifies user text for abusive content and evaluates
// the account-wide abuse gate.
package moderation

import (
	"context"
	"errors"
)

// ErrClassifierUnavailable reports that the classifier failed or timed out.
var ErrClassifierUnavailable = errors.New("classifier unavailable")

// Result is the raw output of a classifier.
type Result struct {
	// Probability is the bullying probability in [0,1].
	Probability float64
	// Flagged is the classifier's own label at its native decision boundary.
	Flagged bool
	// Terms lists lexically flagged terms found in the text.
	Terms []string
}

// Classifier scores text. Implementations may be slow and should honour ctx.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, text string) (Result, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, text string) (Result, error) {
	return f(ctx, text)
}
