package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"reminder_service/internal/domain/reminder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entity(id string, enabled bool) reminder.Entity {
	return reminder.Entity{
		ID:              id,
		Domain:          reminder.DomainTask,
		Title:           "Task " + id,
		AnchorDate:      reminder.Date(2026, 5, 10),
		Policy:          reminder.RepeatDue,
		ReminderEnabled: enabled,
		Thresholds:      []int{3, 1, 0},
		ChannelAddress:  "tg:1",
		Active:          true,
	}
}

func TestSession_ListsEligibleSorted(t *testing.T) {
	s := NewStore(nil)
	s.Put(entity("b", true))
	s.Put(entity("a", true))
	s.Put(entity("c", false))
	done := entity("d", true)
	done.Completed = true
	s.Put(done)

	sess, err := s.OpenSession(context.Background(), reminder.DomainTask)
	require.NoError(t, err)
	list, err := sess.ListReminderCandidates(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)

	require.NoError(t, sess.Close())
	_, err = sess.ListReminderCandidates(context.Background())
	assert.Error(t, err)
}

func TestSession_CloseWhileListing(t *testing.T) {
	s := NewStore(nil)
	s.Put(entity("a", true))
	sess, err := s.OpenSession(context.Background(), reminder.DomainTask)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = sess.ListReminderCandidates(context.Background())
		}()
	}
	require.NoError(t, sess.Close())
	wg.Wait()

	_, err = sess.ListReminderCandidates(context.Background())
	assert.Error(t, err)
}

func TestTableLedger_OnlySuccessCounts(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)
	sess, _ := s.OpenSession(ctx, reminder.DomainTask)
	led := sess.Ledger()
	key := reminder.DeliveryKey{Domain: reminder.DomainTask, EntityID: "a", Occurrence: reminder.Date(2026, 5, 10), Threshold: 3}

	require.NoError(t, led.RecordAttempt(ctx, reminder.DeliveryRecord{Key: key, ErrorDetail: "timeout"}))
	sent, err := led.AlreadySent(ctx, key)
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, led.RecordAttempt(ctx, reminder.DeliveryRecord{Key: key, Success: true}))
	require.NoError(t, led.RecordAttempt(ctx, reminder.DeliveryRecord{Key: key, Success: true}))
	sent, _ = led.AlreadySent(ctx, key)
	assert.True(t, sent)

	recs := s.Records()
	require.Len(t, recs, 2)
	assert.NotEmpty(t, recs[0].ID)
	assert.False(t, recs[0].Success)
	assert.True(t, recs[1].Success)
}

func TestMarkerLedger_ClearedOnReenable(t *testing.T) {
	ctx := context.Background()
	s := NewStore(map[reminder.Domain]reminder.LedgerStrategy{reminder.DomainTask: reminder.LedgerMarker})
	s.Put(entity("a", true))
	sess, _ := s.OpenSession(ctx, reminder.DomainTask)
	led := sess.Ledger()
	occ := reminder.Date(2026, 5, 10)
	key := reminder.DeliveryKey{Domain: reminder.DomainTask, EntityID: "a", Occurrence: occ, Threshold: 1}

	require.NoError(t, led.RecordAttempt(ctx, reminder.DeliveryRecord{Key: key, Success: false}))
	sent, _ := led.AlreadySent(ctx, key)
	assert.False(t, sent)

	require.NoError(t, led.RecordAttempt(ctx, reminder.DeliveryRecord{Key: key, Success: true}))
	sent, _ = led.AlreadySent(ctx, key)
	assert.True(t, sent)
	assert.Empty(t, s.Records())
	assert.Equal(t, []int{1}, s.MarkersFor(reminder.DomainTask, "a").Thresholds)

	require.NoError(t, s.SetReminderEnabled(ctx, reminder.DomainTask, "a", true))
	sent, _ = led.AlreadySent(ctx, key)
	assert.True(t, sent, "enabling an already enabled entity keeps markers")

	require.NoError(t, s.SetReminderEnabled(ctx, reminder.DomainTask, "a", false))
	require.NoError(t, s.SetReminderEnabled(ctx, reminder.DomainTask, "a", true))
	sent, _ = led.AlreadySent(ctx, key)
	assert.False(t, sent)

	err := s.SetReminderEnabled(ctx, reminder.DomainTask, "zzz", true)
	assert.True(t, errors.Is(err, reminder.ErrEntityNotFound))
}
