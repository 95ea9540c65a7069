package browser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/nuntius/internal/common"
	"github.com/ternarybob/nuntius/internal/models"
)

// extractTargets parses profile anchors out of a listing snapshot. Anchors
// must match one of the candidate selectors, carry an accepted locator
// prefix, and not point at a non-profile path. Unparseable HTML or zero
// matches both yield an empty slice.
func extractTargets(html string, selectors common.SelectorsConfig) []models.Target {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	set := models.NewTargetSet()
	for _, selector := range selectors.CandidateAnchors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			href, exists := s.Attr("href")
			if !exists {
				return
			}
			if target, ok := targetFromHref(strings.TrimSpace(href), selectors); ok {
				set.Add(target)
			}
		})
	}
	return set.Slice()
}

// targetFromHref turns a profile anchor href into a Target. The identifier
// is the first path segment, prefixed with "@".
func targetFromHref(href string, selectors common.SelectorsConfig) (models.Target, bool) {
	if href == "" {
		return models.Target{}, false
	}

	locator, path, ok := resolveLocator(href, selectors.LocatorPrefixes)
	if !ok {
		return models.Target{}, false
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return models.Target{}, false
	}
	// Only bare profile paths qualify; deeper paths are posts, media, or
	// platform pages.
	if len(segments) > 1 {
		return models.Target{}, false
	}
	name := segments[0]
	for _, part := range selectors.ExcludedPathParts {
		// Config may spell parts as bare segments or slash-wrapped paths.
		if strings.EqualFold(name, strings.Trim(part, "/")) {
			return models.Target{}, false
		}
	}

	return models.Target{
		Identifier: "@" + name,
		Locator:    locator,
	}, true
}

// resolveLocator normalizes an href into an absolute locator plus its path
// below the accepted prefix. Relative hrefs resolve against the first
// configured prefix.
func resolveLocator(href string, prefixes []string) (locator, path string, ok bool) {
	for _, prefix := range prefixes {
		if strings.HasPrefix(href, prefix) {
			return href, strings.TrimPrefix(href, prefix), true
		}
	}
	if strings.HasPrefix(href, "/") && len(prefixes) > 0 {
		base := strings.TrimSuffix(prefixes[0], "/")
		return base + href, href, true
	}
	return "", "", false
}
