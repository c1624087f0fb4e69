package reminder

import (
	"fmt"
	"strings"
	"time"
)

// ThresholdMode selects how lead-time thresholds are matched against the calendar.
type ThresholdMode string

const (
	// ModeExactMatch fires threshold t only on the day that is exactly t days
	// before the occurrence. Suited to scans that run once a day.
	ModeExactMatch ThresholdMode = "exact"
	// ModeCumulative treats every threshold t with daysUntil <= t as crossed.
	// Callers must filter the result against the ledger.
	ModeCumulative ThresholdMode = "cumulative"
)

func ParseThresholdMode(s string) (ThresholdMode, error) {
	switch m := ThresholdMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeExactMatch, ModeCumulative:
		return m, nil
	default:
		return "", fmt.Errorf("unknown threshold mode %q", s)
	}
}

// CrossedThresholds returns the thresholds crossed for occurrence on ref,
// in the order they appear in thresholds.
func CrossedThresholds(mode ThresholdMode, occurrence, ref time.Time, thresholds []int) []int {
	daysUntil := DaysBetween(ref, occurrence)
	var crossed []int

	switch mode {
	case ModeExactMatch:
		// A passed occurrence never fires retroactively.
		if daysUntil < 0 {
			return nil
		}
		for _, t := range thresholds {
			if t == daysUntil {
				crossed = append(crossed, t)
			}
		}
	case ModeCumulative:
		for _, t := range thresholds {
			if daysUntil <= t {
				crossed = append(crossed, t)
			}
		}
	}
	return crossed
}
