package campaign

import (
	"github.com/ternarybob/nuntius/internal/models"
)

// FilterResult reports what survived a dedup pass and why the rest fell out.
type FilterResult struct {
	Eligible         []models.Target
	SkippedHistory   int
	SkippedBlacklist int
	SkippedSeen      int
}

// Filter removes candidates already contacted inside the rolling history
// window, whose locator is on the blacklist, or already seen this run. It
// reads its inputs and never mutates them.
func Filter(candidates []models.Target, index models.HistoryIndex, blacklist map[string]struct{}, seen *models.TargetSet) FilterResult {
	var result FilterResult
	for _, candidate := range candidates {
		if seen != nil && seen.Contains(candidate.Identifier) {
			result.SkippedSeen++
			continue
		}
		if index.Contains(candidate.Identifier) {
			result.SkippedHistory++
			continue
		}
		if _, blocked := blacklist[candidate.Locator]; blocked {
			result.SkippedBlacklist++
			continue
		}
		result.Eligible = append(result.Eligible, candidate)
	}
	return result
}
