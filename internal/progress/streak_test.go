package progress

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func TestNextStreak(t *testing.T) {
	base := date(2025, time.March, 10, 9)

	tests := []struct {
		name    string
		last    *time.Time
		now     time.Time
		current int
		want    int
	}{
		{"first ever completion", nil, base, 0, 1},
		{"first ever ignores current", nil, base, 7, 1},
		{"same day unchanged", &base, date(2025, time.March, 10, 23), 4, 4},
		{"next day increments", &base, date(2025, time.March, 11, 1), 4, 5},
		{"two day gap resets", &base, date(2025, time.March, 12, 9), 4, 1},
		{"five day gap resets", &base, date(2025, time.March, 15, 9), 9, 1},
		{"clock skew unchanged", &base, date(2025, time.March, 9, 9), 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextStreak(tt.last, tt.now, tt.current); got != tt.want {
				t.Errorf("NextStreak() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNextStreak_TimeOfDayDiscarded(t *testing.T) {
	// 23:50 one day to 00:10 the next is still a one-day step.
	last := date(2025, time.June, 1, 23)
	now := time.Date(2025, time.June, 2, 0, 10, 0, 0, time.UTC)

	if got := NextStreak(&last, now, 2); got != 3 {
		t.Errorf("NextStreak() = %d, want 3", got)
	}
}
