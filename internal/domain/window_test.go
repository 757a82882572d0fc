package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAdvanceWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		start     time.Time
		count     int
		window    time.Duration
		wantStart time.Time
		wantCount int
	}{
		{
			name:      "unstarted window resets to now",
			window:    MinuteWindow,
			count:     7,
			wantStart: now,
			wantCount: 0,
		},
		{
			name:      "expired minute window resets",
			start:     now.Add(-61 * time.Second),
			count:     12,
			window:    MinuteWindow,
			wantStart: now,
			wantCount: 0,
		},
		{
			name:      "window expiring exactly at boundary resets",
			start:     now.Add(-MinuteWindow),
			count:     3,
			window:    MinuteWindow,
			wantStart: now,
			wantCount: 0,
		},
		{
			name:      "live window passes through unchanged",
			start:     now.Add(-30 * time.Second),
			count:     5,
			window:    MinuteWindow,
			wantStart: now.Add(-30 * time.Second),
			wantCount: 5,
		},
		{
			name:      "live day window independent of minute phase",
			start:     now.Add(-23 * time.Hour),
			count:     180,
			window:    DayWindow,
			wantStart: now.Add(-23 * time.Hour),
			wantCount: 180,
		},
		{
			name:      "negative count clamps to zero",
			start:     now.Add(-time.Second),
			count:     -4,
			window:    MinuteWindow,
			wantStart: now.Add(-time.Second),
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			start, count := AdvanceWindow(tt.start, tt.count, tt.window, now)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}
