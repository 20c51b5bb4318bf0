package core

import (
	"strings"
	"time"
)

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses a client supplied timestamp. RFC 3339 values keep
// their offset; naive ISO 8601 values are read as UTC. Anything else yields
// now. The result is always in UTC.
func ParseTimestamp(hint string, now time.Time) time.Time {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return now.UTC()
	}
	if t, err := time.Parse(time.RFC3339Nano, hint); err == nil {
		return t.UTC()
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, hint, time.UTC); err == nil {
			return t
		}
	}
	return now.UTC()
}
