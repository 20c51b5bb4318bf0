package moderation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Hello, World!", want: "hello world"},
		{in: "see https://example.com/x?y=1 now", want: "see now"},
		{in: "hey @Bob_99 you", want: "hey @user you"},
		{in: "  lots   of\tspace\n", want: "lots of space"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), tt.in)
	}
}

func TestLexiconMatchesPhrasesAndDeduplicates(t *testing.T) {
	l := NewLexicon([]string{"kill yourself", "Loser", "loser", ""})
	require.Equal(t, 2, l.Len())

	assert.Equal(t, []string{"kill yourself", "Loser"}, l.Match("just KILL   yourself, loser"))
	assert.Empty(t, l.Match("killing yourselfie"))

	var nilLexicon *Lexicon
	assert.Nil(t, nilLexicon.Match("loser"))
}

func TestLexicalClassifier(t *testing.T) {
	c := NewLexicalClassifier(NewLexicon([]string{"idiot", "loser"}))

	res, err := c.Classify(context.Background(), "hello friend")
	require.NoError(t, err)
	assert.Zero(t, res.Probability)
	assert.False(t, res.Flagged)

	res, err = c.Classify(context.Background(), "idiot loser")
	require.NoError(t, err)
	assert.InDelta(t, 0.75, res.Probability, 1e-9)
	assert.True(t, res.Flagged)
	assert.Len(t, res.Terms, 2)
}
