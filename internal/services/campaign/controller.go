package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nuntius/internal/common"
	"github.com/ternarybob/nuntius/internal/interfaces"
	"github.com/ternarybob/nuntius/internal/models"
)

// ErrBlockedHours is returned when a run is rejected before any work because
// the current hour falls in the configured blocked set.
var ErrBlockedHours = errors.New("current hour is blocked")

// Discoverer is the candidate-harvesting surface the controller drives.
type Discoverer interface {
	DiscoverByKeyword(ctx context.Context) (*models.TargetSet, error)
	DiscoverExpansion(ctx context.Context, seeds []models.Target) (*models.TargetSet, error)
}

// Reporter produces the end-of-run summaries. Its failures are swallowed by
// the controller; reporting must never mask a run outcome.
type Reporter interface {
	DailyReport(ctx context.Context) (string, error)
	MonthlyReport(ctx context.Context) (string, error)
}

// Controller owns one campaign run end to end: gate, discover, filter, send
// under the daily cap, and report. One controller instance per run.
type Controller struct {
	cfg       *common.Config
	history   interfaces.HistoryStorage
	blacklist interfaces.BlacklistProvider
	backend   interfaces.AutomationBackend
	discovery Discoverer
	sender    *Sender
	pacer     *Pacer
	reporter  Reporter
	notifier  interfaces.Notifier
	logger    arbor.ILogger

	now func() time.Time
}

func NewController(
	cfg *common.Config,
	history interfaces.HistoryStorage,
	blacklist interfaces.BlacklistProvider,
	backend interfaces.AutomationBackend,
	discovery Discoverer,
	sender *Sender,
	pacer *Pacer,
	reporter Reporter,
	notifier interfaces.Notifier,
	logger arbor.ILogger,
) *Controller {
	return &Controller{
		cfg:       cfg,
		history:   history,
		blacklist: blacklist,
		backend:   backend,
		discovery: discovery,
		sender:    sender,
		pacer:     pacer,
		reporter:  reporter,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// Execute performs one full campaign run. The automation backend is always
// released and end-of-run reporting always attempted, whatever path the run
// takes out; reporting failures are logged, never returned.
func (c *Controller) Execute(ctx context.Context, message string) (run *models.CampaignRun, err error) {
	hour := c.now().Hour()
	index, buildErr := c.history.BuildIndex(c.now(), c.cfg.Sending.HistoryResetDays)
	if buildErr != nil {
		return nil, fmt.Errorf("build history index: %w", buildErr)
	}

	run = models.NewCampaignRun(c.cfg.Sending.DailyCap, c.cfg.Sending.BlockedHours, index)

	if run.HourBlocked(hour) {
		run.Status = models.RunStatusBlocked
		c.logger.Warn().
			Int("hour", hour).
			Msg("Run rejected, current hour is blocked")
		return run, ErrBlockedHours
	}

	c.logger.Info().
		Str("run_id", run.ID).
		Int("daily_cap", run.DailyCap).
		Int("history_index_size", len(index)).
		Msg("Campaign run starting")

	defer func() {
		if closeErr := c.backend.Close(); closeErr != nil {
			c.logger.Warn().Err(closeErr).Msg("Backend release failed")
		}
		// A cancelled run still reports; detach from the run's cancellation
		// but keep its values.
		c.report(context.WithoutCancel(ctx), run)
	}()

	if startErr := c.backend.Start(ctx); startErr != nil {
		run.Status = models.RunStatusAborted
		c.alert(ctx, fmt.Sprintf("Campaign run %s aborted: browser session could not be established: %v", run.ID, startErr))
		return run, fmt.Errorf("start backend: %w", startErr)
	}

	blacklist := c.fetchBlacklist(ctx)

	queue, discoverErr := c.assembleQueue(ctx, run, index, blacklist)
	if discoverErr != nil {
		run.Status = models.RunStatusAborted
		c.alert(ctx, fmt.Sprintf("Campaign run %s aborted during discovery: %v", run.ID, discoverErr))
		return run, discoverErr
	}

	if sendErr := c.sendLoop(ctx, run, queue, message); sendErr != nil {
		if errors.Is(sendErr, ErrBlockedHours) {
			run.Status = models.RunStatusBlocked
			c.logger.Warn().
				Str("run_id", run.ID).
				Int("sent", run.SentCount).
				Msg("Run stopped, crossed into blocked hours")
			return run, nil
		}
		run.Status = models.RunStatusAborted
		c.alert(ctx, fmt.Sprintf("Campaign run %s aborted during send loop: %v", run.ID, sendErr))
		return run, sendErr
	}

	run.Status = models.RunStatusCompleted
	c.logger.Info().
		Str("run_id", run.ID).
		Int("sent", run.SentCount).
		Int("failed", run.FailedCount).
		Msg("Campaign run completed")
	return run, nil
}

// fetchBlacklist degrades to an empty set when the provider is unavailable.
func (c *Controller) fetchBlacklist(ctx context.Context) map[string]struct{} {
	blacklist, err := c.blacklist.Fetch(ctx)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Msg("Blacklist fetch failed, proceeding with empty blacklist")
		return map[string]struct{}{}
	}
	c.logger.Info().
		Int("entries", len(blacklist)).
		Msg("Blacklist refreshed")
	return blacklist
}

// assembleQueue runs keyword discovery, then expansion discovery if the
// eligible count is still below the cap. Expansion candidates are filtered
// against the cumulative seen set so no target is queued twice in one run.
func (c *Controller) assembleQueue(ctx context.Context, run *models.CampaignRun, index models.HistoryIndex, blacklist map[string]struct{}) ([]models.Target, error) {
	seen := models.NewTargetSet()

	keywordSet, err := c.discovery.DiscoverByKeyword(ctx)
	if err != nil {
		return nil, fmt.Errorf("keyword discovery: %w", err)
	}
	result := Filter(keywordSet.Slice(), index, blacklist, nil)
	queue := models.NewTargetSet()
	queue.AddAll(result.Eligible)
	seen.AddAll(keywordSet.Slice())

	c.logger.Info().
		Int("discovered", keywordSet.Len()).
		Int("eligible", queue.Len()).
		Int("skipped_history", result.SkippedHistory).
		Int("skipped_blacklist", result.SkippedBlacklist).
		Msg("Keyword discovery filtered")

	if queue.Len() < run.DailyCap {
		expansionSet, err := c.discovery.DiscoverExpansion(ctx, queue.Slice())
		if err != nil {
			return nil, fmt.Errorf("expansion discovery: %w", err)
		}
		expResult := Filter(expansionSet.Slice(), index, blacklist, seen)
		queue.AddAll(expResult.Eligible)
		c.logger.Info().
			Int("discovered", expansionSet.Len()).
			Int("eligible_added", len(expResult.Eligible)).
			Int("skipped_seen", expResult.SkippedSeen).
			Msg("Expansion discovery filtered")
	}

	return queue.Slice(), nil
}

// sendLoop walks the queue under the daily cap, re-checking the hour gate
// before every target. Every attempt outcome is appended to history before
// the loop moves on.
func (c *Controller) sendLoop(ctx context.Context, run *models.CampaignRun, queue []models.Target, message string) error {
	actions := 0
	for _, target := range queue {
		if run.CapReached() {
			c.logger.Info().
				Int("sent", run.SentCount).
				Msg("Daily cap reached, stopping")
			return nil
		}
		if run.HourBlocked(c.now().Hour()) {
			return ErrBlockedHours
		}
		if run.Excluded(target.Identifier) {
			continue
		}
		run.Exclude(target.Identifier)

		attempt, sendErr := c.sender.Send(ctx, target, message)
		if appendErr := c.history.Append(attempt); appendErr != nil {
			return fmt.Errorf("append history: %w", appendErr)
		}
		if sendErr != nil {
			return sendErr
		}

		if attempt.Outcome == models.OutcomeSuccess {
			run.SentCount++
		} else {
			run.FailedCount++
		}
		actions++

		if err := c.pacer.Wait(ctx, actions); err != nil {
			return err
		}
	}
	return nil
}

// report runs end-of-run reporting as a best-effort step. The monthly report
// is only produced on the configured day of month.
func (c *Controller) report(ctx context.Context, run *models.CampaignRun) {
	if c.reporter == nil {
		return
	}
	daily, err := c.reporter.DailyReport(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Daily report failed")
	} else {
		c.deliver(ctx, daily)
	}

	if c.now().Day() == c.cfg.Sending.MonthlyReportDay {
		monthly, err := c.reporter.MonthlyReport(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Monthly report failed")
		} else {
			c.deliver(ctx, monthly)
		}
	}
}

func (c *Controller) deliver(ctx context.Context, text string) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(ctx, text); err != nil {
		c.logger.Warn().Err(err).Msg("Report delivery failed")
	}
}

func (c *Controller) alert(ctx context.Context, text string) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(ctx, text); err != nil {
		c.logger.Warn().Err(err).Msg("Alert delivery failed")
	}
}
