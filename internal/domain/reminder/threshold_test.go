package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCrossedThresholds(t *testing.T) {
	thresholds := []int{7, 3, 1, 0}
	occ := Date(2025, time.June, 10)

	tests := []struct {
		name string
		mode ThresholdMode
		ref  time.Time
		want []int
	}{
		{"exact hit", ModeExactMatch, Date(2025, time.June, 7), []int{3}},
		{"exact miss", ModeExactMatch, Date(2025, time.June, 8), nil},
		{"exact on the day", ModeExactMatch, Date(2025, time.June, 10), []int{0}},
		{"exact passed never fires", ModeExactMatch, Date(2025, time.June, 11), nil},
		{"cumulative late enable", ModeCumulative, Date(2025, time.June, 8), []int{7, 3}},
		{"cumulative far away", ModeCumulative, Date(2025, time.May, 1), nil},
		{"cumulative overdue hits all", ModeCumulative, Date(2025, time.June, 12), []int{7, 3, 1, 0}},
		{"unknown mode", ThresholdMode("x"), Date(2025, time.June, 7), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CrossedThresholds(tt.mode, occ, tt.ref, thresholds))
		})
	}
}

func TestCrossedThresholds_ExactFiresEachThresholdOnce(t *testing.T) {
	thresholds := []int{7, 3, 1, 0}
	occ := Date(2025, time.June, 10)
	fired := map[int]int{}
	for ref := Date(2025, time.May, 20); !ref.After(Date(2025, time.June, 20)); ref = ref.AddDate(0, 0, 1) {
		for _, th := range CrossedThresholds(ModeExactMatch, occ, ref, thresholds) {
			fired[th]++
		}
	}
	assert.Equal(t, map[int]int{7: 1, 3: 1, 1: 1, 0: 1}, fired)
}

func TestParseThresholdMode(t *testing.T) {
	m, err := ParseThresholdMode(" Exact ")
	assert.NoError(t, err)
	assert.Equal(t, ModeExactMatch, m)

	_, err = ParseThresholdMode("daily")
	assert.Error(t, err)
}
