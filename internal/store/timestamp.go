package store

import (
	"strings"
	"time"
)

// timestampLayouts covers the formats PostgREST emits: RFC 3339 with or
// without fractional seconds, and bare timestamps without a zone (assumed
// UTC, matching what the writer side produces).
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses an ISO-8601 timestamp tolerantly. Fractional seconds
// of any width are accepted, and timestamps without zone information are
// interpreted as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// FormatTimestamp renders a stored timestamp for display as
// "YYYY-MM-DD HH:MM". Unparseable input yields "Unknown date" so a bad row
// never breaks a listing.
func FormatTimestamp(s string) string {
	t, err := ParseTimestamp(s)
	if err != nil {
		return "Unknown date"
	}
	return t.Format("2006-01-02 15:04")
}

// isoTimestamp renders now in the millisecond-precision format the original
// schema stores (no zone suffix, interpreted as UTC).
func isoTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000")
}
