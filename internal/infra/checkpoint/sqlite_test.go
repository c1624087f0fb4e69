package checkpoint

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"reminder_service/internal/domain/reminder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_RoundTripAndMonotonic(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "checkpoints.db")

	st, err := OpenSQLite(ctx, path)
	require.NoError(t, err)

	_, ok, err := st.LastSuccess(ctx, reminder.DomainPlan)
	require.NoError(t, err)
	assert.False(t, ok)

	first := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, st.MarkSuccess(ctx, reminder.DomainPlan, first))
	// An older timestamp never moves the checkpoint backwards.
	require.NoError(t, st.MarkSuccess(ctx, reminder.DomainPlan, first.Add(-time.Hour)))
	require.NoError(t, st.Close())

	reopened, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok, err := reopened.LastSuccess(ctx, reminder.DomainPlan)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, first.Equal(got))

	_, ok, err = reopened.LastSuccess(ctx, reminder.DomainTask)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenSQLite_RequiresPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), " ")
	assert.Error(t, err)
}
