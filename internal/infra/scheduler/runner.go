package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"reminder_service/internal/domain/reminder"
	"reminder_service/internal/infra/metrics"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// State of one domain's scan loop.
type State string

const (
	StateIdle     State = "idle"
	StateScanning State = "scanning"
	StateBackoff  State = "backoff"
	StateStopped  State = "stopped"
)

var allStates = []State{StateIdle, StateScanning, StateBackoff, StateStopped}

// ScanFunc runs one scan cycle. A returned error is systemic and triggers backoff.
type ScanFunc func(ctx context.Context) error

// Checkpoints persists the last successful scan per domain.
type Checkpoints interface {
	LastSuccess(ctx context.Context, domain reminder.Domain) (time.Time, bool, error)
	MarkSuccess(ctx context.Context, domain reminder.Domain, at time.Time) error
}

// Job describes one domain's loop.
type Job struct {
	Domain   reminder.Domain
	Schedule cron.Schedule
	// Backoff is the recovery pause after a systemic failure.
	Backoff time.Duration
	// Timeout bounds a single scan; zero means no limit.
	Timeout time.Duration
	// CatchUp runs a scan at start-up when a scheduled instant was missed
	// since the last recorded success.
	CatchUp bool
	Scan    ScanFunc
}

// Runner drives a Job through idle -> scanning -> idle, detouring through
// backoff when a scan fails.
type Runner struct {
	job         Job
	clock       reminder.Clock
	sleep       Sleeper
	checkpoints Checkpoints
	logger      *logrus.Entry

	mu    sync.RWMutex
	state State
}

func NewRunner(job Job, clock reminder.Clock, sleep Sleeper, checkpoints Checkpoints, logger *logrus.Entry) *Runner {
	if clock == nil {
		clock = reminder.SystemClock{}
	}
	if sleep == nil {
		sleep = SleepContext
	}
	return &Runner{
		job:         job,
		clock:       clock,
		sleep:       sleep,
		checkpoints: checkpoints,
		logger:      logger.WithFields(logrus.Fields{"component": "scheduler", "domain": job.Domain}),
		state:       StateIdle,
	}
}

func (r *Runner) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
	for _, st := range allStates {
		v := 0.0
		if st == s {
			v = 1
		}
		metrics.SchedulerState.WithLabelValues(string(r.job.Domain), string(st)).Set(v)
	}
}

// Run loops until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	state := StateIdle
	r.setState(state)
	catchUp := r.job.CatchUp && r.missedSinceLastSuccess(ctx)

	for {
		if ctx.Err() != nil {
			r.setState(StateStopped)
			return
		}

		switch state {
		case StateIdle:
			if catchUp {
				catchUp = false
				r.logger.Info("Scheduled scan was missed or failed, catching up now")
				state = StateScanning
				break
			}
			now := r.clock.Now()
			next := r.job.Schedule.Next(now)
			r.logger.WithField("next_run", next.Format(time.RFC3339)).Debug("Waiting for next scan")
			if err := r.sleep(ctx, next.Sub(now)); err != nil {
				r.setState(StateStopped)
				return
			}
			state = StateScanning

		case StateScanning:
			if err := r.scanOnce(ctx); err != nil {
				if ctx.Err() != nil {
					r.setState(StateStopped)
					return
				}
				r.logger.WithError(err).WithField("backoff", r.job.Backoff.String()).Error("Scan failed, backing off")
				// The failed instant is retried once backoff ends instead of waiting for the next one.
				catchUp = r.job.CatchUp
				state = StateBackoff
				break
			}
			r.markSuccess(ctx)
			state = StateIdle

		case StateBackoff:
			if err := r.sleep(ctx, r.job.Backoff); err != nil {
				r.setState(StateStopped)
				return
			}
			state = StateIdle
		}
		r.setState(state)
	}
}

// scanOnce runs the job's scan with a timeout and turns a panic into an error.
func (r *Runner) scanOnce(ctx context.Context) (err error) {
	r.setState(StateScanning)
	scanCtx := ctx
	if r.job.Timeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, r.job.Timeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("scan panicked: %v", p)
		}
	}()
	return r.job.Scan(scanCtx)
}

func (r *Runner) missedSinceLastSuccess(ctx context.Context) bool {
	if r.checkpoints == nil {
		return false
	}
	last, ok, err := r.checkpoints.LastSuccess(ctx, r.job.Domain)
	if err != nil {
		r.logger.WithError(err).Warn("Could not read scan checkpoint, skipping catch-up")
		return false
	}
	if !ok {
		return false
	}
	return !r.job.Schedule.Next(last).After(r.clock.Now())
}

func (r *Runner) markSuccess(ctx context.Context) {
	now := r.clock.Now()
	metrics.LastSuccessfulScan.WithLabelValues(string(r.job.Domain)).Set(float64(now.Unix()))
	if r.checkpoints == nil {
		return
	}
	if err := r.checkpoints.MarkSuccess(ctx, r.job.Domain, now); err != nil {
		r.logger.WithError(err).Warn("Failed to persist scan checkpoint")
	}
}
