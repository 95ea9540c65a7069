package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/nuntius/internal/common"
	"github.com/ternarybob/nuntius/internal/models"
)

func testSelectors() common.SelectorsConfig {
	return common.SelectorsConfig{
		CandidateAnchors:  []string{`a[role="link"]`},
		LocatorPrefixes:   []string{"https://x.com/", "https://twitter.com/"},
		ExcludedPathParts: []string{"home", "explore", "search", "i", "settings"},
	}
}

func TestExtractTargets_ParsesProfileAnchors(t *testing.T) {
	html := `<html><body>
		<a role="link" href="https://x.com/alice">Alice</a>
		<a role="link" href="/bob">Bob</a>
		<a role="link" href="https://x.com/carol/status/123">a post</a>
		<a role="link" href="https://x.com/explore">nav</a>
		<a role="link" href="https://elsewhere.com/dave">off-platform</a>
		<a href="https://x.com/eve">not a candidate anchor</a>
	</body></html>`

	targets := extractTargets(html, testSelectors())

	assert.Equal(t, []models.Target{
		{Identifier: "@alice", Locator: "https://x.com/alice"},
		{Identifier: "@bob", Locator: "https://x.com/bob"},
	}, targets)
}

func TestExtractTargets_DeduplicatesByIdentifier(t *testing.T) {
	html := `<html><body>
		<a role="link" href="https://x.com/alice">Alice</a>
		<a role="link" href="https://x.com/alice">Alice again</a>
	</body></html>`

	targets := extractTargets(html, testSelectors())
	assert.Len(t, targets, 1)
}

func TestExtractTargets_EmptyOnGarbage(t *testing.T) {
	assert.Empty(t, extractTargets("", testSelectors()))
	assert.Empty(t, extractTargets("not html at all", testSelectors()))
}

func TestExtractTargets_DefaultExclusionsFilterPlatformPages(t *testing.T) {
	selectors := common.NewDefaultConfig().Selectors
	selectors.CandidateAnchors = []string{`a[role="link"]`}
	selectors.LocatorPrefixes = []string{"https://x.com/"}

	html := `<html><body>
		<a role="link" href="https://x.com/search">search</a>
		<a role="link" href="https://x.com/explore">explore</a>
		<a role="link" href="https://x.com/home">home</a>
		<a role="link" href="https://x.com/settings">settings</a>
		<a role="link" href="https://x.com/alice">Alice</a>
	</body></html>`

	targets := extractTargets(html, selectors)
	assert.Equal(t, []models.Target{
		{Identifier: "@alice", Locator: "https://x.com/alice"},
	}, targets)
}

func TestExtractTargets_SlashWrappedExclusionsMatch(t *testing.T) {
	selectors := testSelectors()
	selectors.ExcludedPathParts = []string{"/search", "/status/"}

	html := `<html><body>
		<a role="link" href="https://x.com/search">search</a>
		<a role="link" href="https://x.com/status">status</a>
		<a role="link" href="https://x.com/alice">Alice</a>
	</body></html>`

	targets := extractTargets(html, selectors)
	assert.Equal(t, []models.Target{
		{Identifier: "@alice", Locator: "https://x.com/alice"},
	}, targets)
}

func TestExtractTargets_SecondPrefixAccepted(t *testing.T) {
	html := `<a role="link" href="https://twitter.com/legacy">Legacy</a>`

	targets := extractTargets(html, testSelectors())
	assert.Equal(t, []models.Target{
		{Identifier: "@legacy", Locator: "https://twitter.com/legacy"},
	}, targets)
}
