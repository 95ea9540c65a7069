package interfaces

import (
	"time"

	"github.com/ternarybob/nuntius/internal/models"
)

// HistoryStorage is the append-only record of every send attempt: the source
// of truth for dedup and reporting. Records are never edited or deleted by
// the engine. Single-writer within a run; overlap prevention across runs is
// the scheduler's job, not the store's.
type HistoryStorage interface {
	// Append writes one attempt record and flushes it.
	Append(attempt models.SendAttempt) error

	// Scan streams records with Timestamp >= since, in log order, skipping
	// malformed rows. fn returning false stops the scan early.
	Scan(since time.Time, fn func(models.SendAttempt) bool) error

	// BuildIndex scans Success records strictly newer than
	// now - windowDays and returns identifier -> most recent Success time.
	BuildIndex(now time.Time, windowDays int) (models.HistoryIndex, error)

	// Close releases the underlying file.
	Close() error
}
