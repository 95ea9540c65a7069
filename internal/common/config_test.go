package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a default config with the required operator-supplied
// fields filled in so that Validate passes.
func validConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Search.Keywords = []string{"golang"}
	cfg.Selectors.CandidateAnchors = []string{`a[role="link"]`}
	cfg.Selectors.ComposerEntry = []string{`[data-testid="sendDMFromProfile"]`}
	cfg.Selectors.ComposerInput = []string{`[data-testid="dmComposerTextInput"]`}
	cfg.Selectors.SearchURL = "https://example.com/search?q=%s"
	cfg.Selectors.ExpansionURL = "https://example.com/%s/followers"
	return cfg
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nuntius.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFiles_FileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
environment = "production"

[sending]
daily_cap = 12
history_reset_days = 30

[search]
keywords = ["golang", "distributed systems"]

[selectors]
candidate_anchors = ['a[role="link"]']
composer_entry = ['[data-testid="sendDMFromProfile"]']
composer_input = ['[data-testid="dmComposerTextInput"]']
search_url = "https://example.com/search?q=%s"
expansion_url = "https://example.com/%s/followers"
`)

	cfg, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 12, cfg.Sending.DailyCap)
	assert.Equal(t, 30, cfg.Sending.HistoryResetDays)
	assert.Equal(t, []string{"golang", "distributed systems"}, cfg.Search.Keywords)

	// Untouched sections keep their defaults.
	assert.Equal(t, 1, cfg.Sending.MonthlyReportDay)
	assert.InDelta(t, 0.10, cfg.Pacing.LongBreakProbability, 0.001)
}

func TestLoadFromFiles_MissingFileFails(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestConfig_Validate_RequiresKeywordsAndSelectors(t *testing.T) {
	err := NewDefaultConfig().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestConfig_Validate_RejectsInvertedPacing(t *testing.T) {
	cfg := validConfig()
	cfg.Pacing.MinWaitSeconds = 60
	cfg.Pacing.MaxWaitSeconds = 20

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_wait_seconds")
}

func TestConfig_Validate_RejectsFullyBlockedDay(t *testing.T) {
	cfg := validConfig()
	cfg.Sending.BlockedHours = make([]int, 24)
	for h := 0; h < 24; h++ {
		cfg.Sending.BlockedHours[h] = h
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked_hours")
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("NUNTIUS_ENV", "production")
	t.Setenv("NUNTIUS_DAILY_CAP", "5")
	t.Setenv("NUNTIUS_BROWSER_HEADLESS", "false")
	t.Setenv("NUNTIUS_WEBHOOK_URL", "https://hooks.example.com/abc")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 5, cfg.Sending.DailyCap)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "https://hooks.example.com/abc", cfg.Notify.WebhookURL)
}

func TestApplyEnvOverrides_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("NUNTIUS_DAILY_CAP", "lots")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, 30, cfg.Sending.DailyCap)
}
