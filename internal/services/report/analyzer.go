package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nuntius/internal/interfaces"
	"github.com/ternarybob/nuntius/internal/models"
)

const (
	errorKeyLen = 50
	topErrors   = 5
	topDays     = 3

	lowSuccessRateThreshold = 0.70
	dominantErrorThreshold  = 0.30
)

// Service aggregates the history log into statistics, report text, and
// health summaries. It only ever reads the log.
type Service struct {
	history interfaces.HistoryStorage
	logger  arbor.ILogger

	now func() time.Time
}

func NewService(history interfaces.HistoryStorage, logger arbor.ILogger) *Service {
	return &Service{
		history: history,
		logger:  logger,
		now:     time.Now,
	}
}

// Analyze scans the window and computes the full statistics view. An empty
// window yields zeroed stats, never a division error.
func (s *Service) Analyze(windowDays int) (*models.Stats, error) {
	since := s.now().AddDate(0, 0, -windowDays)
	stats := &models.Stats{
		WindowDays:     windowDays,
		DailyBreakdown: map[string]models.DayCounts{},
		HourlyPattern:  map[int]int{},
	}

	errorCounts := map[string]int{}
	var errorOrder []string
	var dayOrder []string

	err := s.history.Scan(since, func(a models.SendAttempt) bool {
		stats.TotalAttempts++
		day := a.Timestamp.Format(models.DayFormat)
		counts, seen := stats.DailyBreakdown[day]
		if !seen {
			dayOrder = append(dayOrder, day)
		}
		if a.Outcome == models.OutcomeSuccess {
			stats.SuccessfulSends++
			counts.Success++
		} else {
			stats.FailedSends++
			counts.Failed++
			key := errorKey(a.ErrorDetail)
			if _, known := errorCounts[key]; !known {
				errorOrder = append(errorOrder, key)
			}
			errorCounts[key]++
		}
		stats.DailyBreakdown[day] = counts
		stats.HourlyPattern[a.Timestamp.Hour()]++
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}

	if stats.TotalAttempts > 0 {
		stats.SuccessRate = float64(stats.SuccessfulSends) / float64(stats.TotalAttempts)
	}
	stats.ErrorAnalysis = rankErrors(errorCounts, errorOrder)
	stats.MostActiveDays = rankDays(stats.DailyBreakdown, dayOrder)
	stats.Recommendations = recommend(stats)
	return stats, nil
}

// errorKey groups near-duplicate error strings by a fixed-length prefix.
func errorKey(detail string) string {
	if detail == "" {
		return "unspecified"
	}
	runes := []rune(detail)
	if len(runes) > errorKeyLen {
		return string(runes[:errorKeyLen])
	}
	return detail
}

// rankErrors orders error classes by count descending, first-seen order on
// ties, keeping the top few.
func rankErrors(counts map[string]int, order []string) []models.ErrorCount {
	ranked := make([]models.ErrorCount, 0, len(order))
	for _, key := range order {
		ranked = append(ranked, models.ErrorCount{Error: key, Count: counts[key]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > topErrors {
		ranked = ranked[:topErrors]
	}
	return ranked
}

// rankDays orders days by total attempts descending, first-seen order on
// ties, keeping the top three.
func rankDays(breakdown map[string]models.DayCounts, order []string) []models.DayActivity {
	ranked := make([]models.DayActivity, 0, len(order))
	for _, day := range order {
		ranked = append(ranked, models.DayActivity{Day: day, Count: breakdown[day].Total()})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > topDays {
		ranked = ranked[:topDays]
	}
	return ranked
}

// recommend applies the advisory thresholds. Rules are independent; zero,
// one, or both may fire.
func recommend(stats *models.Stats) []string {
	var recs []string
	if stats.TotalAttempts == 0 {
		return recs
	}
	if stats.SuccessRate < lowSuccessRateThreshold {
		recs = append(recs, fmt.Sprintf(
			"Success rate is %.1f%%; review failing selectors and target quality.",
			stats.SuccessRate*100))
	}
	for _, ec := range stats.ErrorAnalysis {
		if float64(ec.Count) > dominantErrorThreshold*float64(stats.TotalAttempts) {
			recs = append(recs, fmt.Sprintf(
				"Dominant failure class (%d of %d attempts): %q.",
				ec.Count, stats.TotalAttempts, ec.Error))
			break
		}
	}
	return recs
}
