package scheduler

import (
	"context"
	"sync"

	"reminder_service/internal/domain/reminder"

	"github.com/sirupsen/logrus"
)

// ReminderScheduler runs one independent loop per domain.
type ReminderScheduler struct {
	runners []*Runner
	logger  *logrus.Entry

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewReminderScheduler(runners []*Runner, logger *logrus.Entry) *ReminderScheduler {
	return &ReminderScheduler{
		runners: runners,
		logger:  logger.WithField("component", "scheduler"),
	}
}

// Start launches every loop. Loops stop when ctx is cancelled or Stop is called.
func (s *ReminderScheduler) Start(ctx context.Context) {
	s.logger.Info("Starting reminder scheduler...")
	ctx, s.cancel = context.WithCancel(ctx)
	for _, r := range s.runners {
		s.wg.Add(1)
		go func(r *Runner) {
			defer s.wg.Done()
			r.Run(ctx)
		}(r)
	}
	s.logger.WithField("domains", len(s.runners)).Info("Reminder scheduler started")
}

// Stop cancels every loop and waits for in-flight scans to return.
func (s *ReminderScheduler) Stop() {
	s.logger.Info("Stopping reminder scheduler...")
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("Reminder scheduler gracefully stopped")
}

// States reports the current state of every loop.
func (s *ReminderScheduler) States() map[reminder.Domain]string {
	out := make(map[reminder.Domain]string, len(s.runners))
	for _, r := range s.runners {
		out[r.job.Domain] = string(r.State())
	}
	return out
}
