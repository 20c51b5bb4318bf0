package moderation

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	urlPattern     = regexp.MustCompile(`https?://\S+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
)

// Lexicon matches explicitly flagged terms independently of any model score.
// Terms may span several words; matching is on whole words after normalization.
type Lexicon struct {
	terms []string // normalized, space separated
	raw   map[string]string
}

// NewLexicon builds a lexicon from the given terms. Empty terms are ignored.
func NewLexicon(terms []string) *Lexicon {
	l := &Lexicon{raw: make(map[string]string, len(terms))}
	for _, term := range terms {
		norm := Normalize(term)
		if norm == "" {
			continue
		}
		if _, dup := l.raw[norm]; dup {
			continue
		}
		l.raw[norm] = strings.TrimSpace(term)
		l.terms = append(l.terms, norm)
	}
	return l
}

// Len returns the number of distinct terms.
func (l *Lexicon) Len() int {
	if l == nil {
		return 0
	}
	return len(l.terms)
}

// Match returns the configured terms present in text, in lexicon order.
func (l *Lexicon) Match(text string) []string {
	if l == nil || len(l.terms) == 0 {
		return nil
	}
	padded := " " + Normalize(text) + " "

	var found []string
	for _, term := range l.terms {
		if strings.Contains(padded, " "+term+" ") {
			found = append(found, l.raw[term])
		}
	}
	return found
}

// Normalize lowercases text, drops URLs, collapses mentions and reduces the
// rest to space separated alphanumeric words.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = urlPattern.ReplaceAllString(text, " ")
	text = mentionPattern.ReplaceAllString(text, " @user ")

	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '@'
	})
	return strings.Join(words, " ")
}

func mergeTerms(a, b []string) []string {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, term := range list {
			key := strings.ToLower(term)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, term)
		}
	}
	return out
}
