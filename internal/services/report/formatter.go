package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/nuntius/internal/models"
)

const failureExamples = 5

// DailyReport renders today's success/fail summary with a handful of
// failure examples.
func (s *Service) DailyReport(ctx context.Context) (string, error) {
	day := s.now()
	dayKey := day.Format(models.DayFormat)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	var success, failed int
	var examples []string
	err := s.history.Scan(start, func(a models.SendAttempt) bool {
		if ctx.Err() != nil {
			return false
		}
		if a.Timestamp.Format(models.DayFormat) != dayKey {
			return true
		}
		if a.Outcome == models.OutcomeSuccess {
			success++
		} else {
			failed++
			if len(examples) < failureExamples {
				examples = append(examples, fmt.Sprintf("  - %s: %s", a.Identifier, errorKey(a.ErrorDetail)))
			}
		}
		return true
	})
	if err != nil {
		return "", fmt.Errorf("scan history: %w", err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Daily report %s\n", dayKey)
	fmt.Fprintf(&b, "Sent: %d  Failed: %d  Total: %d\n", success, failed, success+failed)
	if len(examples) > 0 {
		b.WriteString("Recent failures:\n")
		b.WriteString(strings.Join(examples, "\n"))
		b.WriteString("\n")
	}
	return b.String(), nil
}

// MonthlyReport renders the current month's totals: sent, active days, and
// the average per active day.
func (s *Service) MonthlyReport(ctx context.Context) (string, error) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	sent := 0
	activeDays := map[string]struct{}{}
	err := s.history.Scan(start, func(a models.SendAttempt) bool {
		if ctx.Err() != nil {
			return false
		}
		if a.Outcome == models.OutcomeSuccess {
			sent++
			activeDays[a.Timestamp.Format(models.DayFormat)] = struct{}{}
		}
		return true
	})
	if err != nil {
		return "", fmt.Errorf("scan history: %w", err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}

	perDay := 0.0
	if len(activeDays) > 0 {
		perDay = float64(sent) / float64(len(activeDays))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Monthly report %s\n", now.Format("2006-01"))
	fmt.Fprintf(&b, "Sent: %d  Active days: %d  Average per day: %.1f\n", sent, len(activeDays), perDay)
	return b.String(), nil
}

// ComprehensiveReport composes statistics and health into one text block for
// the maintenance job and the CLI.
func (s *Service) ComprehensiveReport(windowDays int) (string, error) {
	stats, err := s.Analyze(windowDays)
	if err != nil {
		return "", err
	}
	health, err := s.HistoryHealth(windowDays)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Campaign statistics, last %d days\n", stats.WindowDays)
	fmt.Fprintf(&b, "Attempts: %d  Sent: %d  Failed: %d  Success rate: %.1f%%\n",
		stats.TotalAttempts, stats.SuccessfulSends, stats.FailedSends, stats.SuccessRate*100)

	if len(stats.MostActiveDays) > 0 {
		b.WriteString("Most active days:\n")
		for _, d := range stats.MostActiveDays {
			fmt.Fprintf(&b, "  %s: %d attempts\n", d.Day, d.Count)
		}
	}
	if len(stats.ErrorAnalysis) > 0 {
		b.WriteString("Top failure classes:\n")
		for _, e := range stats.ErrorAnalysis {
			fmt.Fprintf(&b, "  %dx %s\n", e.Count, e.Error)
		}
	}
	for _, rec := range stats.Recommendations {
		fmt.Fprintf(&b, "Recommendation: %s\n", rec)
	}

	fmt.Fprintf(&b, "History health: %d unique contacts, %d inside window, reset effectiveness %.1f%%\n",
		health.TotalUniqueUsers, health.RecentSuccessfulUsers, health.ResetEffectiveness)
	if len(health.DuplicateSends) > 0 {
		fmt.Fprintf(&b, "Duplicate sends on record: %d\n", len(health.DuplicateSends))
	}
	return b.String(), nil
}
