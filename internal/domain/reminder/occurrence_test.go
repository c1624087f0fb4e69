package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name   string
		anchor time.Time
		policy RepeatPolicy
		ref    time.Time
		want   time.Time
		ok     bool
	}{
		{"yearly later this year", Date(2010, time.June, 5), RepeatYearly, Date(2025, time.March, 1), Date(2025, time.June, 5), true},
		{"yearly on reference day", Date(2010, time.March, 1), RepeatYearly, Date(2025, time.March, 1), Date(2025, time.March, 1), true},
		{"yearly already passed rolls over", Date(2010, time.January, 10), RepeatYearly, Date(2025, time.March, 1), Date(2026, time.January, 10), true},
		{"yearly feb 29 clamps in common year", Date(2024, time.February, 29), RepeatYearly, Date(2025, time.February, 28), Date(2025, time.February, 28), true},
		{"yearly feb 29 kept in leap year", Date(2020, time.February, 29), RepeatYearly, Date(2028, time.January, 1), Date(2028, time.February, 29), true},
		{"yearly feb 29 rollover clamps", Date(2024, time.February, 29), RepeatYearly, Date(2025, time.March, 1), Date(2026, time.February, 28), true},
		{"monthly day 31 in april", Date(2024, time.January, 31), RepeatMonthly, Date(2025, time.April, 15), Date(2025, time.April, 30), true},
		{"monthly same month", Date(2024, time.January, 20), RepeatMonthly, Date(2025, time.April, 15), Date(2025, time.April, 20), true},
		{"monthly passed advances and clamps", Date(2024, time.January, 31), RepeatMonthly, Date(2025, time.January, 31).AddDate(0, 0, 1), Date(2025, time.February, 28), true},
		{"monthly december rolls into january", Date(2024, time.January, 5), RepeatMonthly, Date(2025, time.December, 20), Date(2026, time.January, 5), true},
		{"once in future", Date(2025, time.May, 1), RepeatOnce, Date(2025, time.April, 1), Date(2025, time.May, 1), true},
		{"once today", Date(2025, time.May, 1), RepeatOnce, Date(2025, time.May, 1), Date(2025, time.May, 1), true},
		{"once passed", Date(2025, time.May, 1), RepeatOnce, Date(2025, time.May, 2), time.Time{}, false},
		{"due passed stays due", Date(2025, time.May, 1), RepeatDue, Date(2025, time.May, 3), Date(2025, time.May, 1), true},
		{"none never fires", Date(2025, time.May, 1), RepeatNone, Date(2025, time.April, 1), time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextOccurrence(tt.anchor, tt.policy, tt.ref)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %s, want %s", got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}

func TestNextOccurrence_YearlyNeverBeforeReference(t *testing.T) {
	anchors := []time.Time{
		Date(2000, time.January, 1),
		Date(2004, time.February, 29),
		Date(1999, time.December, 31),
		Date(2012, time.July, 15),
	}
	for _, anchor := range anchors {
		for ref := Date(2023, time.January, 1); ref.Year() < 2025; ref = ref.AddDate(0, 0, 1) {
			got, ok := NextOccurrence(anchor, RepeatYearly, ref)
			require.True(t, ok)
			require.False(t, got.Before(ref), "anchor %s ref %s got %s", anchor, ref, got)
			require.Equal(t, anchor.Month(), got.Month())
			if anchor.Month() == time.February && anchor.Day() == 29 && DaysIn(got.Year(), time.February) == 28 {
				require.Equal(t, 28, got.Day())
			} else {
				require.Equal(t, anchor.Day(), got.Day())
			}
		}
	}
}

func TestNextOccurrence_OnceStaysNone(t *testing.T) {
	anchor := Date(2025, time.March, 3)
	for ref := Date(2025, time.March, 4); ref.Before(Date(2026, time.March, 4)); ref = ref.AddDate(0, 0, 7) {
		_, ok := NextOccurrence(anchor, RepeatOnce, ref)
		assert.False(t, ok)
	}
}

func TestNextOccurrence_IgnoresTimeOfDay(t *testing.T) {
	anchor := time.Date(2010, time.June, 5, 23, 59, 0, 0, time.UTC)
	ref := time.Date(2025, time.June, 5, 18, 0, 0, 0, time.UTC)
	got, ok := NextOccurrence(anchor, RepeatYearly, ref)
	require.True(t, ok)
	assert.True(t, Date(2025, time.June, 5).Equal(got))
}
