package models

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the state of a campaign run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusAborted   RunStatus = "aborted"
	RunStatusBlocked   RunStatus = "blocked"
)

// CampaignRun holds the mutable state of one campaign execution. It lives
// for the duration of the run and is discarded at process exit; the only
// durable side effects of a run are the SendAttempt records it appended.
type CampaignRun struct {
	ID           string
	StartTime    time.Time
	DailyCap     int
	SentCount    int
	FailedCount  int
	BlockedHours map[int]bool
	Status       RunStatus

	// excluded holds every identifier that must not be attempted during this
	// run: the rolling-history index at start plus every identifier queued or
	// sent since. Grows monotonically within the run.
	excluded map[string]struct{}
}

// NewCampaignRun creates a run with the exclusion set seeded from the
// rolling-history index.
func NewCampaignRun(dailyCap int, blockedHours []int, index HistoryIndex) *CampaignRun {
	blocked := make(map[int]bool, len(blockedHours))
	for _, h := range blockedHours {
		blocked[h] = true
	}
	excluded := make(map[string]struct{}, len(index))
	for id := range index {
		excluded[id] = struct{}{}
	}
	return &CampaignRun{
		ID:           "run_" + uuid.New().String(),
		StartTime:    time.Now(),
		DailyCap:     dailyCap,
		BlockedHours: blocked,
		Status:       RunStatusRunning,
		excluded:     excluded,
	}
}

// HourBlocked reports whether the given hour falls in the blocked set.
func (r *CampaignRun) HourBlocked(hour int) bool {
	return r.BlockedHours[hour]
}

// CapReached reports whether the daily send budget is exhausted.
func (r *CampaignRun) CapReached() bool {
	return r.SentCount >= r.DailyCap
}

// Excluded reports whether an identifier must not be attempted in this run.
func (r *CampaignRun) Excluded(identifier string) bool {
	_, ok := r.excluded[identifier]
	return ok
}

// Exclude adds an identifier to the run-local exclusion set.
func (r *CampaignRun) Exclude(identifier string) {
	r.excluded[identifier] = struct{}{}
}
