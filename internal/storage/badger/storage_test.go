package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nuntius/internal/common"
	"github.com/ternarybob/nuntius/internal/interfaces"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()
	db, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestKVStorage_SetGetDelete(t *testing.T) {
	kv := NewKVStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "Scheduler:Campaign:Enabled", "true"))

	value, err := kv.Get(ctx, "scheduler:campaign:enabled")
	require.NoError(t, err)
	assert.Equal(t, "true", value, "keys are case-insensitive")

	require.NoError(t, kv.Delete(ctx, "SCHEDULER:CAMPAIGN:ENABLED"))
	_, err = kv.Get(ctx, "scheduler:campaign:enabled")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestKVStorage_ListByPrefix(t *testing.T) {
	kv := NewKVStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "scheduler:campaign:enabled", "true"))
	require.NoError(t, kv.Set(ctx, "scheduler:campaign:last_run", "2025-06-15 10:00:00"))
	require.NoError(t, kv.Set(ctx, "scheduler:report:enabled", "false"))

	pairs, err := kv.ListByPrefix(ctx, "scheduler:campaign:")
	require.NoError(t, err)
	assert.Len(t, pairs, 2)
}

func TestRunLock_SecondHolderRejected(t *testing.T) {
	db := newTestDB(t)
	lock := NewRunLock(db, arbor.NewLogger())

	require.NoError(t, lock.Acquire("run_1", time.Minute))
	err := lock.Acquire("run_2", time.Minute)
	assert.ErrorIs(t, err, ErrRunInProgress)

	require.NoError(t, lock.Release("run_1"))
	assert.NoError(t, lock.Acquire("run_2", time.Minute))
}

func TestRunLock_ReacquireByHolderAndForeignRelease(t *testing.T) {
	db := newTestDB(t)
	lock := NewRunLock(db, arbor.NewLogger())

	require.NoError(t, lock.Acquire("run_1", time.Minute))
	assert.NoError(t, lock.Acquire("run_1", time.Minute), "holder may refresh its own lease")

	require.NoError(t, lock.Release("run_other"))
	err := lock.Acquire("run_2", time.Minute)
	assert.ErrorIs(t, err, ErrRunInProgress, "foreign release must not drop the lease")
}
