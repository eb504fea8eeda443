// Package time holds small time helpers shared by the analysis layers
package time

import (
	"strings"
	"time"
)

// Ptr returns &t, nil for the zero time
func Ptr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// periodLayouts are the period spellings found in claims extracts, most common first
var periodLayouts = []struct{ in, out string }{
	{"2006-01-02", "2006-01-02"},
	{"2006-01", "2006-01"},
	{"01/02/2006", "2006-01-02"},
	{"2006/01/02", "2006-01-02"},
	{"200601", "2006-01"},
	{time.RFC3339, "2006-01-02"},
}

// Period rewrites a period label in ISO order so that lexical order is chronological.
// Labels in no known layout come back trimmed but otherwise unchanged
func Period(s string) string {
	s = strings.TrimSpace(s)
	for _, l := range periodLayouts {
		if t, err := time.Parse(l.in, s); err == nil {
			return t.Format(l.out)
		}
	}
	return s
}
