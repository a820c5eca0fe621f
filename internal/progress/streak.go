package progress

import "time"

// NextStreak computes the streak count after a completion at now, given the
// previous completion time. Calendar-day granularity: a second pass on the
// same day leaves the streak unchanged, the next day extends it, a gap resets
// it to 1. A negative day difference (clock skew) leaves it unchanged.
func NextStreak(last *time.Time, now time.Time, current int) int {
	if last == nil {
		return 1
	}

	days := dayDiff(*last, now)
	switch {
	case days == 0:
		return current
	case days == 1:
		return current + 1
	case days > 1:
		return 1
	default:
		return current
	}
}

func dayDiff(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	fromDay := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	toDay := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(toDay.Sub(fromDay).Hours() / 24)
}
