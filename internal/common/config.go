package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Files       FilesConfig     `toml:"files"`
	Sending     SendingConfig   `toml:"sending"`
	Search      SearchConfig    `toml:"search"`
	Pacing      PacingConfig    `toml:"pacing"`
	Browser     BrowserConfig   `toml:"browser"`
	Selectors   SelectorsConfig `toml:"selectors"`
	Blacklist   BlacklistConfig `toml:"blacklist"`
	Notify      NotifyConfig    `toml:"notify"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
}

// FilesConfig locates the on-disk artifacts a campaign reads and writes.
type FilesConfig struct {
	HistoryLog  string `toml:"history_log" validate:"required"` // Append-only send log (CSV)
	MessageFile string `toml:"message_file"`                    // Outreach message text
}

// SendingConfig bounds how much a campaign run may send and when.
type SendingConfig struct {
	DailyCap         int   `toml:"daily_cap" validate:"min=1"`                 // Hard per-run send budget
	BlockedHours     []int `toml:"blocked_hours" validate:"dive,min=0,max=23"` // Hours of day when sending is forbidden
	HistoryResetDays int   `toml:"history_reset_days" validate:"min=1"`        // Rolling window suppressing re-contact
	MonthlyReportDay int   `toml:"monthly_report_day" validate:"min=1,max=28"`
}

// SearchConfig controls candidate discovery.
type SearchConfig struct {
	Keywords               []string `toml:"keywords" validate:"min=1"`
	MaxRevealActions       int      `toml:"max_reveal_actions" validate:"min=1"`       // Reveal budget per keyword query
	ExpansionRevealActions int      `toml:"expansion_reveal_actions" validate:"min=1"` // Lighter budget for expansion queries
	MaxExpansionSeeds      int      `toml:"max_expansion_seeds" validate:"min=0"`      // Seed targets examined in expansion phase
}

// PacingConfig shapes the randomized inter-action delay.
type PacingConfig struct {
	MinWaitSeconds       float64 `toml:"min_wait_seconds" validate:"min=0"`
	MaxWaitSeconds       float64 `toml:"max_wait_seconds" validate:"min=0"`
	Tier1Threshold       int     `toml:"tier1_threshold"` // Actions before fatigue factor 1 applies
	Tier1Factor          float64 `toml:"tier1_factor"`
	Tier2Threshold       int     `toml:"tier2_threshold"`
	Tier2Factor          float64 `toml:"tier2_factor"`
	LongBreakProbability float64 `toml:"long_break_probability" validate:"min=0,max=1"`
	LongBreakMinSeconds  float64 `toml:"long_break_min_seconds" validate:"min=0"`
	LongBreakMaxSeconds  float64 `toml:"long_break_max_seconds" validate:"min=0"`
}

// BrowserConfig tunes the default chromedp automation backend.
type BrowserConfig struct {
	Headless          bool          `toml:"headless"`
	UserAgent         string        `toml:"user_agent"`
	WindowWidth       int           `toml:"window_width"`
	WindowHeight      int           `toml:"window_height"`
	WaitTimeout       time.Duration `toml:"wait_timeout"`        // Element/confirmation wait budget
	NavigateSettle    time.Duration `toml:"navigate_settle"`     // Settle time after navigation before extraction
	MinActionInterval time.Duration `toml:"min_action_interval"` // Floor between navigations/reveals
	UserDataDir       string        `toml:"user_data_dir"`       // Profile directory carrying the session login

	// ClickAttempts bounds retries when an entry point click is obstructed.
	ClickAttempts int `toml:"click_attempts" validate:"min=1"`
}

// SelectorsConfig holds the prioritized selector fallback chains the backend
// tries in order. These are the only platform-specific strings in the system.
type SelectorsConfig struct {
	CandidateAnchors  []string `toml:"candidate_anchors" validate:"min=1"` // CSS selectors for profile links in listings
	ComposerEntry     []string `toml:"composer_entry" validate:"min=1"`    // Message button on a profile
	ComposerInput     []string `toml:"composer_input" validate:"min=1"`    // Text input inside the composer
	Confirmation      []string `toml:"confirmation"`                       // Sent-confirmation markers
	SearchURL         string   `toml:"search_url" validate:"required"`     // Template, %s = keyword
	ExpansionURL      string   `toml:"expansion_url" validate:"required"`  // Template, %s = identifier without prefix
	LocatorPrefixes   []string `toml:"locator_prefixes"`                   // Accepted profile URL prefixes
	ExcludedPathParts []string `toml:"excluded_path_parts"`                // Anchor paths that are not profiles
}

// BlacklistConfig points at the externally maintained exclusion list.
type BlacklistConfig struct {
	URL            string        `toml:"url"`    // CSV export URL of the shared sheet
	Column         int           `toml:"column"` // Zero-based column holding locators
	RequestTimeout time.Duration `toml:"request_timeout"`
}

// NotifyConfig configures the operator notification webhook.
type NotifyConfig struct {
	WebhookURL     string        `toml:"webhook_url"`
	RequestTimeout time.Duration `toml:"request_timeout"`
}

// SchedulerConfig drives the daemon mode.
type SchedulerConfig struct {
	CampaignSchedules []string `toml:"campaign_schedules"` // Cron expressions triggering runs
	ReportSchedule    string   `toml:"report_schedule"`    // Cron expression for the maintenance report
	ReportWindowDays  int      `toml:"report_window_days" validate:"min=1"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete the database on startup
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values. Technical
// parameters are hardcoded here for production stability; only user-facing
// settings need to appear in nuntius.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Files: FilesConfig{
			HistoryLog:  "./data/send_log.csv",
			MessageFile: "./message.txt",
		},
		Sending: SendingConfig{
			DailyCap:         30,
			BlockedHours:     []int{0, 1, 2, 3, 4, 5, 6},
			HistoryResetDays: 90,
			MonthlyReportDay: 1,
		},
		Search: SearchConfig{
			Keywords:               []string{},
			MaxRevealActions:       10,
			ExpansionRevealActions: 3,
			MaxExpansionSeeds:      10,
		},
		Pacing: PacingConfig{
			MinWaitSeconds:       20,
			MaxWaitSeconds:       60,
			Tier1Threshold:       100,
			Tier1Factor:          1.5,
			Tier2Threshold:       300,
			Tier2Factor:          2.0,
			LongBreakProbability: 0.10,
			LongBreakMinSeconds:  60,
			LongBreakMaxSeconds:  180,
		},
		Browser: BrowserConfig{
			Headless:          true,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			WindowWidth:       1280,
			WindowHeight:      900,
			WaitTimeout:       10 * time.Second,
			NavigateSettle:    4 * time.Second,
			MinActionInterval: 2 * time.Second,
			ClickAttempts:     3,
		},
		Selectors: SelectorsConfig{
			CandidateAnchors:  []string{},
			ComposerEntry:     []string{},
			ComposerInput:     []string{},
			Confirmation:      []string{},
			SearchURL:         "",
			ExpansionURL:      "",
			LocatorPrefixes:   []string{},
			ExcludedPathParts: []string{"home", "explore", "search", "status", "i", "settings"},
		},
		Blacklist: BlacklistConfig{
			Column:         0,
			RequestTimeout: 15 * time.Second,
		},
		Notify: NotifyConfig{
			RequestTimeout: 10 * time.Second,
		},
		Scheduler: SchedulerConfig{
			CampaignSchedules: []string{},
			ReportSchedule:    "0 21 * * *",
			ReportWindowDays:  7,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/state",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration for structural and cross-field errors.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Pacing.MaxWaitSeconds < c.Pacing.MinWaitSeconds {
		return fmt.Errorf("invalid configuration: pacing max_wait_seconds %.1f below min_wait_seconds %.1f",
			c.Pacing.MaxWaitSeconds, c.Pacing.MinWaitSeconds)
	}
	if c.Pacing.LongBreakMaxSeconds < c.Pacing.LongBreakMinSeconds {
		return fmt.Errorf("invalid configuration: pacing long_break_max_seconds below long_break_min_seconds")
	}
	if len(c.Sending.BlockedHours) >= 24 {
		return fmt.Errorf("invalid configuration: blocked_hours covers every hour, no run could ever start")
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("NUNTIUS_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("NUNTIUS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if path := os.Getenv("NUNTIUS_HISTORY_LOG"); path != "" {
		config.Files.HistoryLog = path
	}
	if path := os.Getenv("NUNTIUS_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if dailyCap := os.Getenv("NUNTIUS_DAILY_CAP"); dailyCap != "" {
		if v, err := strconv.Atoi(dailyCap); err == nil {
			config.Sending.DailyCap = v
		}
	}
	if url := os.Getenv("NUNTIUS_WEBHOOK_URL"); url != "" {
		config.Notify.WebhookURL = url
	}
	if url := os.Getenv("NUNTIUS_BLACKLIST_URL"); url != "" {
		config.Blacklist.URL = url
	}
	if headless := os.Getenv("NUNTIUS_BROWSER_HEADLESS"); headless != "" {
		if v, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = v
		}
	}
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}
