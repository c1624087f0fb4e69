package app

import (
	"context"
	"testing"
	"time"

	"reminder_service/internal/domain/reminder"

	"github.com/stretchr/testify/assert"
)

func TestPlaceholders(t *testing.T) {
	e := &reminder.Entity{
		ID:             "42",
		Domain:         reminder.DomainAnniversary,
		Title:          "Wedding",
		AnchorDate:     reminder.Date(2015, time.June, 10),
		Policy:         reminder.RepeatYearly,
		ChannelAddress: "me@example.com",
		Extra:          map[string]string{"partner": "Sam", "title": "ignored"},
	}
	vars := Placeholders(e, reminder.Date(2025, time.June, 10), 3, 3)

	assert.Equal(t, "Wedding", vars["title"])
	assert.Equal(t, "Sam", vars["partner"])
	assert.Equal(t, "2025-06-10", vars["occurrence_date"])
	assert.Equal(t, "2015-06-10", vars["anchor_date"])
	assert.Equal(t, "3", vars["days_until"])
	assert.Equal(t, "0", vars["days_overdue"])
	assert.Equal(t, "10", vars["years"])
	assert.Equal(t, "anniversary", vars["domain"])
}

func TestPlaceholders_Overdue(t *testing.T) {
	e := &reminder.Entity{ID: "t", Domain: reminder.DomainTask, Policy: reminder.RepeatDue, AnchorDate: reminder.Date(2025, time.June, 1)}
	vars := Placeholders(e, reminder.Date(2025, time.June, 1), 0, -4)
	assert.Equal(t, "4", vars["days_overdue"])
	_, hasYears := vars["years"]
	assert.False(t, hasYears)
}

func TestDispatch_Outcomes(t *testing.T) {
	e := &reminder.Entity{ID: "1", Domain: reminder.DomainPlan, Title: "Lisbon", ChannelAddress: "x@example.com"}
	occ := reminder.Date(2025, time.June, 10)
	ctx := context.Background()

	ch := &fakeChannel{}
	res := NewDispatcher(fakeRenderer{}, ch, testLogger()).Dispatch(ctx, "plan_reminder", e, occ, 1, 1)
	assert.Equal(t, DispatchSent, res.Outcome)
	assert.Len(t, ch.sent, 1)

	res = NewDispatcher(fakeRenderer{disabled: map[string]bool{"plan_reminder": true}}, ch, testLogger()).Dispatch(ctx, "plan_reminder", e, occ, 1, 1)
	assert.Equal(t, DispatchSkipped, res.Outcome)
	assert.NoError(t, res.Err)

	failing := &fakeChannel{failFor: map[string]error{"x@example.com": errTransport}}
	res = NewDispatcher(fakeRenderer{}, failing, testLogger()).Dispatch(ctx, "plan_reminder", e, occ, 1, 1)
	assert.Equal(t, DispatchFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, errTransport)
}
