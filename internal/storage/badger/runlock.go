package badger

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
)

// ErrRunInProgress is returned when a lease is already held by another run.
var ErrRunInProgress = errors.New("another campaign run holds the lease")

const runLeaseKey = "campaign:run-lease"

// RunLock is a single-holder lease preventing overlapping campaign runs,
// including across process restarts. The lease carries a TTL so a crashed
// run cannot wedge the scheduler forever.
type RunLock struct {
	db     *badger.DB
	logger arbor.ILogger
}

func NewRunLock(db *BadgerDB, logger arbor.ILogger) *RunLock {
	return &RunLock{
		db:     db.Store().Badger(),
		logger: logger,
	}
}

// Acquire takes the lease for runID or fails with ErrRunInProgress. The ttl
// bounds how long a dead holder can block successors.
func (l *RunLock) Acquire(runID string, ttl time.Duration) error {
	err := l.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(runLeaseKey))
		if err == nil {
			var holder string
			if copyErr := item.Value(func(val []byte) error {
				holder = string(val)
				return nil
			}); copyErr != nil {
				return copyErr
			}
			if holder != runID {
				return fmt.Errorf("%w: held by %s", ErrRunInProgress, holder)
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		entry := badger.NewEntry([]byte(runLeaseKey), []byte(runID)).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return err
	}

	l.logger.Debug().
		Str("run_id", runID).
		Str("ttl", ttl.String()).
		Msg("Run lease acquired")
	return nil
}

// Release drops the lease if runID still holds it. Releasing a lease held by
// someone else is a no-op.
func (l *RunLock) Release(runID string) error {
	return l.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(runLeaseKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var holder string
		if copyErr := item.Value(func(val []byte) error {
			holder = string(val)
			return nil
		}); copyErr != nil {
			return copyErr
		}
		if holder != runID {
			return nil
		}
		return txn.Delete([]byte(runLeaseKey))
	})
}
