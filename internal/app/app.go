package app

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nuntius/internal/automation/browser"
	"github.com/ternarybob/nuntius/internal/blacklist"
	"github.com/ternarybob/nuntius/internal/common"
	"github.com/ternarybob/nuntius/internal/interfaces"
	"github.com/ternarybob/nuntius/internal/models"
	"github.com/ternarybob/nuntius/internal/notify"
	"github.com/ternarybob/nuntius/internal/services/campaign"
	"github.com/ternarybob/nuntius/internal/services/discovery"
	"github.com/ternarybob/nuntius/internal/services/report"
	"github.com/ternarybob/nuntius/internal/services/scheduler"
	badgerstore "github.com/ternarybob/nuntius/internal/storage/badger"
	"github.com/ternarybob/nuntius/internal/storage/history"
)

// Lease long enough to cover a full campaign run, short enough that a
// crashed run doesn't block tomorrow's.
const runLeaseTTL = 4 * time.Hour

const (
	campaignJobName = "campaign"
	reportJobName   = "daily-report"
)

// App assembles the engine's services around one config.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager   *badgerstore.Manager
	History          interfaces.HistoryStorage
	Blacklist        interfaces.BlacklistProvider
	Notifier         interfaces.Notifier
	ReportService    *report.Service
	SchedulerService interfaces.SchedulerService
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	storageManager, err := badgerstore.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	historyStore, err := history.Open(cfg.Files.HistoryLog, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("open history log: %w", err)
	}

	a := &App{
		Config:         cfg,
		Logger:         logger,
		StorageManager: storageManager,
		History:        historyStore,
		Blacklist:      blacklist.NewProvider(cfg.Blacklist, logger),
		Notifier:       notify.NewWebhookNotifier(cfg.Notify, logger),
	}
	a.ReportService = report.NewService(historyStore, logger)
	a.SchedulerService = scheduler.NewService(storageManager.KeyValueStorage(), logger)

	if err := a.registerJobs(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) registerJobs() error {
	for i, schedule := range a.Config.Scheduler.CampaignSchedules {
		name := campaignJobName
		if i > 0 {
			name = fmt.Sprintf("%s-%d", campaignJobName, i+1)
		}
		if err := a.SchedulerService.RegisterJob(name, schedule, "scheduled campaign run", func() error {
			_, err := a.RunCampaign(context.Background())
			return err
		}); err != nil {
			return fmt.Errorf("register campaign job: %w", err)
		}
	}

	if a.Config.Scheduler.ReportSchedule != "" {
		if err := a.SchedulerService.RegisterJob(reportJobName, a.Config.Scheduler.ReportSchedule, "maintenance report", func() error {
			text, err := a.ReportService.ComprehensiveReport(a.Config.Scheduler.ReportWindowDays)
			if err != nil {
				return err
			}
			if err := a.Notifier.Notify(context.Background(), text); err != nil {
				a.Logger.Warn().Err(err).Msg("Report delivery failed")
			}
			return nil
		}); err != nil {
			return fmt.Errorf("register report job: %w", err)
		}
	}
	return nil
}

// RunCampaign executes one campaign run end to end under the run lease.
func (a *App) RunCampaign(ctx context.Context) (*models.CampaignRun, error) {
	message, err := a.loadMessage()
	if err != nil {
		return nil, err
	}

	leaseID := "lease_" + uuid.New().String()
	if err := a.StorageManager.RunLock().Acquire(leaseID, runLeaseTTL); err != nil {
		return nil, err
	}
	defer func() {
		if err := a.StorageManager.RunLock().Release(leaseID); err != nil {
			a.Logger.Warn().Err(err).Msg("Run lease release failed")
		}
	}()

	backend := browser.NewBackend(a.Config.Browser, a.Config.Selectors, a.Logger)
	pacer := campaign.NewPacer(a.Config.Pacing, rand.NewSource(time.Now().UnixNano()))
	discoverySvc := discovery.NewService(backend, a.Config.Search, pacer, a.Logger)
	sender := campaign.NewSender(backend, a.Config.Browser.ClickAttempts, a.Logger)

	controller := campaign.NewController(
		a.Config,
		a.History,
		a.Blacklist,
		backend,
		discoverySvc,
		sender,
		pacer,
		a.ReportService,
		a.Notifier,
		a.Logger,
	)
	return controller.Execute(ctx, message)
}

// loadMessage reads the outreach text. The file is required for sending;
// surrounding whitespace is not part of the message.
func (a *App) loadMessage() (string, error) {
	if a.Config.Files.MessageFile == "" {
		return "", fmt.Errorf("message file not configured")
	}
	data, err := os.ReadFile(a.Config.Files.MessageFile)
	if err != nil {
		return "", fmt.Errorf("read message file: %w", err)
	}
	message := strings.TrimSpace(string(data))
	if message == "" {
		return "", fmt.Errorf("message file %s is empty", a.Config.Files.MessageFile)
	}
	return message, nil
}

// Close releases everything the app holds. Safe after partial init.
func (a *App) Close() error {
	if a.SchedulerService != nil && a.SchedulerService.IsRunning() {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}
	if a.History != nil {
		if err := a.History.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close history log")
		}
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
	}
	return nil
}
