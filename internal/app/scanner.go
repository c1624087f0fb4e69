package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"reminder_service/internal/domain/reminder"
	"reminder_service/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DomainSettings configures how one domain is scanned.
type DomainSettings struct {
	Domain      reminder.Domain
	Mode        reminder.ThresholdMode
	TemplateKey string
	// Location defines which calendar day "now" falls on. Defaults to UTC.
	Location *time.Location
}

// DefaultDomainSettings returns the stock settings for a domain.
func DefaultDomainSettings(d reminder.Domain) DomainSettings {
	switch d {
	case reminder.DomainTask:
		return DomainSettings{Domain: d, Mode: reminder.ModeCumulative, TemplateKey: "task_due_reminder", Location: time.UTC}
	case reminder.DomainPlan:
		return DomainSettings{Domain: d, Mode: reminder.ModeExactMatch, TemplateKey: "plan_reminder", Location: time.UTC}
	default:
		return DomainSettings{Domain: d, Mode: reminder.ModeExactMatch, TemplateKey: "anniversary_reminder", Location: time.UTC}
	}
}

// Summary counts the outcome of one scan cycle. Sent, Skipped and Failed
// count reminders; Entities counts candidates that were looked at.
type Summary struct {
	Domain   reminder.Domain `json:"domain"`
	Entities int             `json:"entities"`
	Sent     int             `json:"sent"`
	Skipped  int             `json:"skipped"`
	Failed   int             `json:"failed"`
}

func (s *Summary) add(o Summary) {
	s.Sent += o.Sent
	s.Skipped += o.Skipped
	s.Failed += o.Failed
}

// Scanner runs one scan cycle for a domain: occurrence, thresholds, ledger,
// dispatch, record.
type Scanner struct {
	settings   DomainSettings
	store      reminder.Store
	dispatcher *Dispatcher
	clock      reminder.Clock
	logger     *logrus.Entry

	// serializes scheduled and manual scans of the same domain
	mu sync.Mutex
}

func NewScanner(settings DomainSettings, store reminder.Store, dispatcher *Dispatcher, clock reminder.Clock, logger *logrus.Entry) *Scanner {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if clock == nil {
		clock = reminder.SystemClock{}
	}
	return &Scanner{
		settings:   settings,
		store:      store,
		dispatcher: dispatcher,
		clock:      clock,
		logger:     logger.WithFields(logrus.Fields{"component": "scanner", "domain": settings.Domain}),
	}
}

func (s *Scanner) Domain() reminder.Domain { return s.settings.Domain }

// CheckAndSendReminders scans the domain as of the clock's current instant.
// It is safe to call at any time; the ledger keeps it idempotent.
func (s *Scanner) CheckAndSendReminders(ctx context.Context) error {
	_, err := s.Scan(ctx, s.clock.Now())
	return err
}

// Scan processes every candidate once. A returned error is systemic (store
// unavailable, enumeration failed, cancellation); per-entity failures are
// logged and counted in the summary instead.
func (s *Scanner) Scan(ctx context.Context, now time.Time) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	domain := string(s.settings.Domain)
	started := time.Now()
	summary := Summary{Domain: s.settings.Domain}

	result := "ok"
	defer func() {
		metrics.ScanDuration.WithLabelValues(domain).Observe(time.Since(started).Seconds())
		metrics.ScansTotal.WithLabelValues(domain, result).Inc()
	}()

	session, err := s.store.OpenSession(ctx, s.settings.Domain)
	if err != nil {
		result = "error"
		return summary, fmt.Errorf("open %s session: %w", domain, err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			s.logger.WithError(cerr).Warn("Failed to release store session")
		}
	}()

	entities, err := session.ListReminderCandidates(ctx)
	if err != nil {
		result = "error"
		return summary, fmt.Errorf("list %s candidates: %w", domain, err)
	}

	ref := reminder.DateOf(now, s.settings.Location)
	ledger := session.Ledger()
	s.logger.WithFields(logrus.Fields{
		"candidates": len(entities),
		"reference":  ref.Format("2006-01-02"),
	}).Debug("Scan started")

	for _, e := range entities {
		if err := ctx.Err(); err != nil {
			result = "error"
			return summary, err
		}
		summary.Entities++
		if !e.Eligible() {
			summary.Skipped++
			continue
		}
		summary.add(s.processEntity(ctx, ledger, e, ref, now))
	}

	s.logger.WithFields(logrus.Fields{
		"entities": summary.Entities,
		"sent":     summary.Sent,
		"skipped":  summary.Skipped,
		"failed":   summary.Failed,
	}).Info("Scan finished")
	return summary, nil
}

// processEntity handles one entity. Panics are contained here so the next
// entity is still processed.
func (s *Scanner) processEntity(ctx context.Context, ledger reminder.Ledger, e *reminder.Entity, ref, now time.Time) (out Summary) {
	log := s.logger.WithField("entity_id", e.ID)
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Entity processing panicked")
			metrics.EntityErrors.WithLabelValues(string(s.settings.Domain)).Inc()
			out.Failed++
		}
	}()

	occurrence, ok := reminder.NextOccurrence(e.AnchorDate, e.Policy, ref)
	if !ok {
		out.Skipped++
		return out
	}
	daysUntil := reminder.DaysBetween(ref, occurrence)

	crossed := reminder.CrossedThresholds(s.settings.Mode, occurrence, ref, e.Thresholds)
	if len(crossed) == 0 {
		out.Skipped++
		return out
	}

	var pending []int
	for _, t := range crossed {
		key := s.key(e, occurrence, t)
		sent, err := ledger.AlreadySent(ctx, key)
		if err != nil {
			log.WithError(err).WithField("threshold", t).Error("Failed to read delivery ledger")
			metrics.EntityErrors.WithLabelValues(string(s.settings.Domain)).Inc()
			out.Failed++
			return out
		}
		if !sent {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		out.Skipped++
		return out
	}

	if s.settings.Mode == reminder.ModeCumulative {
		// Only the nearest pending threshold is sent; further ones are stale.
		sort.Ints(pending)
		res := s.deliver(ctx, ledger, e, occurrence, pending[0], daysUntil, now, log)
		out.count(res)
		if res.Outcome == DispatchSent {
			for _, t := range pending[1:] {
				s.record(ctx, ledger, reminder.DeliveryRecord{
					Key:        s.key(e, occurrence, t),
					SentAt:     now,
					Success:    true,
					Superseded: true,
				}, log)
			}
		}
		return out
	}

	for _, t := range pending {
		out.count(s.deliver(ctx, ledger, e, occurrence, t, daysUntil, now, log))
	}
	return out
}

func (s *Scanner) deliver(ctx context.Context, ledger reminder.Ledger, e *reminder.Entity, occurrence time.Time, threshold, daysUntil int, now time.Time, log *logrus.Entry) DispatchResult {
	res := s.dispatcher.Dispatch(ctx, s.settings.TemplateKey, e, occurrence, threshold, daysUntil)
	metrics.RemindersDispatched.WithLabelValues(string(s.settings.Domain), string(res.Outcome)).Inc()

	switch res.Outcome {
	case DispatchSent:
		s.record(ctx, ledger, reminder.DeliveryRecord{Key: s.key(e, occurrence, threshold), SentAt: now, Success: true}, log)
	case DispatchFailed:
		detail := res.Reason
		if res.Err != nil {
			detail = res.Err.Error()
		}
		// Failed attempts never count as sent, so the next scan retries.
		s.record(ctx, ledger, reminder.DeliveryRecord{Key: s.key(e, occurrence, threshold), SentAt: now, Success: false, ErrorDetail: detail}, log)
	}
	return res
}

func (s *Scanner) record(ctx context.Context, ledger reminder.Ledger, rec reminder.DeliveryRecord, log *logrus.Entry) {
	rec.ID = uuid.NewString()
	if err := ledger.RecordAttempt(ctx, rec); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"threshold": rec.Key.Threshold,
			"success":   rec.Success,
		}).Error("Failed to record delivery attempt")
	}
}

func (s *Scanner) key(e *reminder.Entity, occurrence time.Time, threshold int) reminder.DeliveryKey {
	return reminder.DeliveryKey{
		Domain:     s.settings.Domain,
		EntityID:   e.ID,
		Occurrence: occurrence,
		Threshold:  threshold,
	}
}

func (s *Summary) count(res DispatchResult) {
	switch res.Outcome {
	case DispatchSent:
		s.Sent++
	case DispatchSkipped:
		s.Skipped++
	case DispatchFailed:
		s.Failed++
	}
}
