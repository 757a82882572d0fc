package domain

import "time"

const (
	MinuteWindow = time.Minute
	DayWindow    = 24 * time.Hour
)

// AdvanceWindow rolls a fixed-duration counting window forward. When the
// window has expired (or was never started) it returns a fresh window
// anchored at now with a zero count; otherwise the inputs pass through
// unchanged. Callers persist the result themselves.
func AdvanceWindow(start time.Time, count int, window time.Duration, now time.Time) (time.Time, int) {
	if count < 0 {
		count = 0
	}
	if start.IsZero() || now.Sub(start) >= window {
		return now, 0
	}
	return start, count
}
