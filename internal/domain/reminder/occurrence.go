package reminder

import "time"

// NextOccurrence returns the first date on or after ref at which an entity
// anchored at anchor fires under policy. The second result is false when the
// entity never fires again. All three inputs are treated as calendar dates.
func NextOccurrence(anchor time.Time, policy RepeatPolicy, ref time.Time) (time.Time, bool) {
	anchor = Date(anchor.Year(), anchor.Month(), anchor.Day())
	ref = Date(ref.Year(), ref.Month(), ref.Day())

	switch policy {
	case RepeatYearly:
		candidate := clampedDate(ref.Year(), anchor.Month(), anchor.Day())
		if candidate.Before(ref) {
			candidate = clampedDate(ref.Year()+1, anchor.Month(), anchor.Day())
		}
		return candidate, true

	case RepeatMonthly:
		candidate := clampedDate(ref.Year(), ref.Month(), anchor.Day())
		if candidate.Before(ref) {
			next := Date(ref.Year(), ref.Month()+1, 1)
			candidate = clampedDate(next.Year(), next.Month(), anchor.Day())
		}
		return candidate, true

	case RepeatOnce:
		if anchor.Before(ref) {
			return time.Time{}, false
		}
		return anchor, true

	case RepeatDue:
		return anchor, true

	default:
		return time.Time{}, false
	}
}

// clampedDate builds year-month-day, lowering day to the month's last day
// when the month is shorter (Feb 29 in a common year becomes Feb 28).
func clampedDate(year int, month time.Month, day int) time.Time {
	if last := DaysIn(year, month); day > last {
		day = last
	}
	return Date(year, month, day)
}
