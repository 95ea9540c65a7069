package campaign

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/nuntius/internal/models"
)

func target(id string) models.Target {
	return models.Target{Identifier: id, Locator: "https://example.com/" + id[1:]}
}

func TestFilter_RetainsOnlyUnknownCandidates(t *testing.T) {
	candidates := []models.Target{
		target("@fresh"),
		target("@contacted"),
		target("@banned"),
	}
	index := models.HistoryIndex{"@contacted": time.Now()}
	blacklist := map[string]struct{}{"https://example.com/banned": {}}

	result := Filter(candidates, index, blacklist, nil)

	assert.Equal(t, []models.Target{target("@fresh")}, result.Eligible)
	assert.Equal(t, 1, result.SkippedHistory)
	assert.Equal(t, 1, result.SkippedBlacklist)
	assert.Zero(t, result.SkippedSeen)
}

func TestFilter_SeenSetBlocksRequeue(t *testing.T) {
	seen := models.NewTargetSet()
	seen.Add(target("@queued"))

	result := Filter([]models.Target{target("@queued"), target("@new")}, models.HistoryIndex{}, nil, seen)

	assert.Equal(t, []models.Target{target("@new")}, result.Eligible)
	assert.Equal(t, 1, result.SkippedSeen)
}

func TestFilter_DoesNotMutateInputs(t *testing.T) {
	candidates := []models.Target{target("@a"), target("@b")}
	index := models.HistoryIndex{"@a": time.Now()}
	blacklist := map[string]struct{}{}

	Filter(candidates, index, blacklist, nil)

	assert.Len(t, candidates, 2)
	assert.Len(t, index, 1)
	assert.Empty(t, blacklist)
}

func TestFilter_PreservesCandidateOrder(t *testing.T) {
	candidates := []models.Target{target("@c"), target("@a"), target("@b")}

	result := Filter(candidates, models.HistoryIndex{}, nil, nil)

	assert.Equal(t, candidates, result.Eligible)
}
