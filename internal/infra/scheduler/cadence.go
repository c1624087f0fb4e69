package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// DailySchedule parses a standard 5-field cron spec (e.g. "0 9 * * *") and
// pins it to loc so the fire instant does not depend on the container's
// local timezone. A spec carrying its own CRON_TZ= prefix keeps it.
func DailySchedule(spec string, loc *time.Location) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	if ss, ok := sched.(*cron.SpecSchedule); ok && ss.Location == time.Local {
		ss.Location = loc
	}
	return sched, nil
}

// IntervalSchedule fires every d (rounded to whole seconds, minimum one second).
func IntervalSchedule(d time.Duration) cron.Schedule {
	return cron.Every(d)
}

// Sleeper blocks for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the real Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
