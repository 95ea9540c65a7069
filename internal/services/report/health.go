package report

import (
	"fmt"
	"time"

	"github.com/ternarybob/nuntius/internal/models"
)

const duplicateListLimit = 10

// HistoryHealth walks the entire log and reports dedup effectiveness: how
// many distinct identifiers were ever contacted, how many had a Success
// inside the rolling window, and which identifiers appear more than once.
func (s *Service) HistoryHealth(windowDays int) (*models.HistoryHealth, error) {
	cutoff := s.now().AddDate(0, 0, -windowDays)

	seen := map[string]int{}
	recent := map[string]struct{}{}
	var duplicates []models.DuplicateSend

	err := s.history.Scan(time.Time{}, func(a models.SendAttempt) bool {
		seen[a.Identifier]++
		if seen[a.Identifier] > 1 && len(duplicates) < duplicateListLimit {
			duplicates = append(duplicates, models.DuplicateSend{
				Identifier: a.Identifier,
				Date:       a.Timestamp.Format(models.DayFormat),
				Outcome:    a.Outcome,
			})
		}
		if a.Outcome == models.OutcomeSuccess && a.Timestamp.After(cutoff) {
			recent[a.Identifier] = struct{}{}
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}

	health := &models.HistoryHealth{
		TotalUniqueUsers:      len(seen),
		RecentSuccessfulUsers: len(recent),
		DuplicateSends:        duplicates,
	}
	if health.TotalUniqueUsers > 0 {
		outsideWindow := health.TotalUniqueUsers - health.RecentSuccessfulUsers
		health.ResetEffectiveness = float64(outsideWindow) / float64(health.TotalUniqueUsers) * 100
	}
	return health, nil
}
