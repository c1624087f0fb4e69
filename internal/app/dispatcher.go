package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"reminder_service/internal/domain/reminder"

	"github.com/sirupsen/logrus"
)

// DispatchOutcome is the result class of one dispatch attempt.
type DispatchOutcome string

const (
	DispatchSent    DispatchOutcome = "sent"
	DispatchSkipped DispatchOutcome = "skipped"
	DispatchFailed  DispatchOutcome = "failed"
)

// DispatchResult describes one dispatch attempt. Err is set only for DispatchFailed.
type DispatchResult struct {
	Outcome DispatchOutcome
	Reason  string
	Err     error
}

// Dispatcher renders and sends a single reminder.
type Dispatcher struct {
	renderer reminder.TemplateRenderer
	channel  reminder.Channel
	logger   *logrus.Entry
}

func NewDispatcher(renderer reminder.TemplateRenderer, channel reminder.Channel, logger *logrus.Entry) *Dispatcher {
	return &Dispatcher{
		renderer: renderer,
		channel:  channel,
		logger:   logger.WithField("component", "dispatcher"),
	}
}

// Dispatch sends the reminder for one crossed threshold. It never returns an
// error: transport and rendering problems are reported as DispatchFailed so a
// single entity cannot abort the batch.
func (d *Dispatcher) Dispatch(ctx context.Context, templateKey string, e *reminder.Entity, occurrence time.Time, threshold, daysUntil int) DispatchResult {
	log := d.logger.WithFields(logrus.Fields{
		"domain":    e.Domain,
		"entity_id": e.ID,
		"threshold": threshold,
		"template":  templateKey,
	})

	msg, ok, err := d.renderer.Render(ctx, templateKey, Placeholders(e, occurrence, threshold, daysUntil))
	if err != nil {
		log.WithError(err).Error("Failed to render reminder template")
		return DispatchResult{Outcome: DispatchFailed, Reason: "render", Err: fmt.Errorf("render %s: %w", templateKey, err)}
	}
	if !ok {
		log.Info("Template missing or disabled, skipping reminder")
		return DispatchResult{Outcome: DispatchSkipped, Reason: "template unavailable"}
	}

	if err := d.channel.Send(ctx, e.ChannelAddress, msg); err != nil {
		log.WithError(err).Warn("Failed to send reminder")
		return DispatchResult{Outcome: DispatchFailed, Reason: "transport", Err: err}
	}
	log.Debug("Reminder sent")
	return DispatchResult{Outcome: DispatchSent}
}

// Placeholders builds the template variables for one reminder. Entity extras
// never override the computed keys.
func Placeholders(e *reminder.Entity, occurrence time.Time, threshold, daysUntil int) map[string]string {
	vars := make(map[string]string, len(e.Extra)+8)
	for k, v := range e.Extra {
		vars[k] = v
	}
	vars["entity_id"] = e.ID
	vars["domain"] = string(e.Domain)
	vars["title"] = e.Title
	vars["address"] = e.ChannelAddress
	vars["anchor_date"] = e.AnchorDate.Format("2006-01-02")
	vars["occurrence_date"] = occurrence.Format("2006-01-02")
	vars["threshold"] = strconv.Itoa(threshold)
	vars["days_until"] = strconv.Itoa(daysUntil)
	if daysUntil < 0 {
		vars["days_overdue"] = strconv.Itoa(-daysUntil)
	} else {
		vars["days_overdue"] = "0"
	}
	if e.Policy == reminder.RepeatYearly {
		vars["years"] = strconv.Itoa(occurrence.Year() - e.AnchorDate.Year())
	}
	return vars
}
