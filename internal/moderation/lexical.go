package moderation

import (
	"context"
	"math"
)

// LexicalClassifier scores text from lexicon hits alone. It is the offline
// fallback used when no model endpoint is configured.
type LexicalClassifier struct {
	lexicon *Lexicon
}

// NewLexicalClassifier builds a classifier over lexicon.
func NewLexicalClassifier(lexicon *Lexicon) *LexicalClassifier {
	return &LexicalClassifier{lexicon: lexicon}
}

// Classify returns 1 - 0.5^hits as the probability.
func (c *LexicalClassifier) Classify(_ context.Context, text string) (Result, error) {
	terms := c.lexicon.Match(text)
	p := 1 - math.Pow(0.5, float64(len(terms)))
	return Result{
		Probability: p,
		Flagged:     len(terms) > 0,
		Terms:       terms,
	}, nil
}
