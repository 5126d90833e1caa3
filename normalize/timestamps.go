// ABOUTME: Timestamp parsing for CRM property values
// ABOUTME: Accepts epoch milliseconds, ISO 8601, and date-only strings
package normalize

import (
	"strconv"
	"strings"
	"time"
)

// ParseTimestamp parses a CRM property value into UTC. Values arrive either
// as epoch milliseconds or ISO 8601; date-only strings mean midnight UTC.
// nil, empty, or unparseable values yield nil (explicit unknown).
func ParseTimestamp(v *string) *time.Time {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}

	if isDigits(s) {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil
		}
		t := time.UnixMilli(ms).UTC()
		return &t
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// FormatTimestamp renders a column value: RFC 3339 in UTC, or nil for an
// unknown timestamp. Stored as a string so partition round-trips are
// byte-stable.
func FormatTimestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
