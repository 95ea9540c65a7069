package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nuntius/internal/app"
	"github.com/ternarybob/nuntius/internal/common"
	"github.com/ternarybob/nuntius/internal/services/campaign"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	runOnce      = flag.Bool("run", false, "Execute one campaign run and exit")
	serve        = flag.Bool("serve", false, "Run the scheduler daemon")
	reportWindow = flag.Int("report", 0, "Print the statistics report for the given window in days and exit")
	health       = flag.Bool("health", false, "Print the history health summary and exit")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Nuntius version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Initialize logger
	// 3. Print banner
	if len(configFiles) == 0 {
		if _, err := os.Stat("nuntius.toml"); err == nil {
			configFiles = append(configFiles, "nuntius.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	switch {
	case *reportWindow > 0:
		runReport(application, *reportWindow, logger)
	case *health:
		runHealth(application, logger)
	case *runOnce:
		runCampaign(application, logger)
	case *serve:
		runDaemon(application, logger)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func runCampaign(application *app.App, logger arbor.ILogger) {
	ctx, cancel := signalContext()
	defer cancel()

	run, err := application.RunCampaign(ctx)
	if err != nil {
		if errors.Is(err, campaign.ErrBlockedHours) {
			logger.Warn().Msg("Run rejected: current hour is blocked")
			os.Exit(3)
		}
		logger.Error().Err(err).Msg("Campaign run failed")
		os.Exit(1)
	}
	logger.Info().
		Str("run_id", run.ID).
		Str("status", string(run.Status)).
		Int("sent", run.SentCount).
		Int("failed", run.FailedCount).
		Msg("Campaign run finished")
}

func runDaemon(application *app.App, logger arbor.ILogger) {
	if err := application.SchedulerService.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
		os.Exit(1)
	}
	logger.Info().Msg("Scheduler running - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received, shutting down")
	if err := application.SchedulerService.Stop(); err != nil {
		logger.Error().Err(err).Msg("Scheduler shutdown failed")
	}
}

func runReport(application *app.App, windowDays int, logger arbor.ILogger) {
	text, err := application.ReportService.ComprehensiveReport(windowDays)
	if err != nil {
		logger.Error().Err(err).Msg("Report generation failed")
		os.Exit(1)
	}
	fmt.Print(text)
}

func runHealth(application *app.App, logger arbor.ILogger) {
	health, err := application.ReportService.HistoryHealth(application.Config.Sending.HistoryResetDays)
	if err != nil {
		logger.Error().Err(err).Msg("Health check failed")
		os.Exit(1)
	}
	out, err := json.MarshalIndent(health, "", "  ")
	if err != nil {
		logger.Error().Err(err).Msg("Health check failed")
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
