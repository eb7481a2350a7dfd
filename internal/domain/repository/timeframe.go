package repository

import "time"

// Interval is the bar resolution requested from a price provider.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval1d  Interval = "1d"
)

// IsValidInterval returns true if iv is a supported interval.
func IsValidInterval(iv Interval) bool {
	switch iv {
	case Interval1m, Interval5m, Interval15m, Interval30m, Interval1h, Interval1d:
		return true
	default:
		return false
	}
}

// DefaultInterval returns the default intraday bar.
func DefaultInterval() Interval { return Interval5m }

// Duration returns the length of one bar.
func (iv Interval) Duration() time.Duration {
	switch iv {
	case Interval1m:
		return time.Minute
	case Interval5m:
		return 5 * time.Minute
	case Interval15m:
		return 15 * time.Minute
	case Interval30m:
		return 30 * time.Minute
	case Interval1h:
		return time.Hour
	case Interval1d:
		return 24 * time.Hour
	default:
		return DefaultInterval().Duration()
	}
}

// IntervalFromDuration maps a configured bar length to the closest supported interval
// not longer than d.
func IntervalFromDuration(d time.Duration) Interval {
	switch {
	case d >= 24*time.Hour:
		return Interval1d
	case d >= time.Hour:
		return Interval1h
	case d >= 30*time.Minute:
		return Interval30m
	case d >= 15*time.Minute:
		return Interval15m
	case d >= 5*time.Minute:
		return Interval5m
	default:
		return Interval1m
	}
}
