package util

import (
	"strconv"
	"time"
)

// ParseTime tries RFC3339, a plain date and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.UTC); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// TradingDay drops the clock part of t, keeping the UTC calendar date.
func TradingDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AlignToBar truncates t to the start of its bar. Bars of a day or longer use TradingDay.
func AlignToBar(t time.Time, bar time.Duration) time.Time {
	if bar >= 24*time.Hour {
		return TradingDay(t)
	}
	if bar <= 0 {
		return t.UTC()
	}
	return t.UTC().Truncate(bar)
}
