// Package iso8601 formats timestamps for audit entries and log rows.
package iso8601

import "time"

// Layout is RFC3339 with a fixed millisecond fraction, always in UTC.
const Layout = "2006-01-02T15:04:05.000Z07:00"

// Format returns t in UTC using Layout.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Parse accepts Layout as well as plain RFC3339 / RFC3339Nano values.
func Parse(s string) (time.Time, error) {
	if t, err := time.Parse(Layout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
