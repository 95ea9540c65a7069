package discovery

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nuntius/internal/common"
	"github.com/ternarybob/nuntius/internal/interfaces"
	"github.com/ternarybob/nuntius/internal/models"
)

// Waiter is consulted before each reveal action so discovery shares the
// campaign's pacing cadence.
type Waiter interface {
	Wait(ctx context.Context, actionCount int) error
}

// Service harvests candidate targets from listing pages. Keyword discovery
// walks search result listings; expansion discovery walks the network views
// of a bounded number of seed targets.
type Service struct {
	backend interfaces.AutomationBackend
	cfg     common.SearchConfig
	waiter  Waiter
	logger  arbor.ILogger
}

func NewService(backend interfaces.AutomationBackend, cfg common.SearchConfig, waiter Waiter, logger arbor.ILogger) *Service {
	return &Service{
		backend: backend,
		cfg:     cfg,
		waiter:  waiter,
		logger:  logger,
	}
}

// DiscoverByKeyword collects candidates from the search listing of each
// configured keyword. A failure inside one keyword's listing abandons that
// keyword but keeps everything collected so far; the partial set is returned
// with a nil error.
func (s *Service) DiscoverByKeyword(ctx context.Context) (*models.TargetSet, error) {
	found := models.NewTargetSet()
	for _, keyword := range s.cfg.Keywords {
		if ctx.Err() != nil {
			return found, ctx.Err()
		}
		locator := s.backend.SearchLocator(keyword)
		collected, err := s.harvestListing(ctx, locator, s.cfg.MaxRevealActions)
		found.AddAll(collected)
		if err != nil {
			s.logger.Warn().
				Str("keyword", keyword).
				Err(err).
				Msg("Keyword listing abandoned, keeping partial results")
			continue
		}
		s.logger.Info().
			Str("keyword", keyword).
			Int("collected", len(collected)).
			Int("cumulative", found.Len()).
			Msg("Keyword listing harvested")
	}
	return found, nil
}

// DiscoverExpansion collects candidates from the network views of up to
// MaxExpansionSeeds of the given seeds, using the lighter expansion reveal
// budget. Per-seed failures keep that seed's partial results and move on.
func (s *Service) DiscoverExpansion(ctx context.Context, seeds []models.Target) (*models.TargetSet, error) {
	found := models.NewTargetSet()
	limit := s.cfg.MaxExpansionSeeds
	if limit > len(seeds) {
		limit = len(seeds)
	}
	for _, seed := range seeds[:limit] {
		if ctx.Err() != nil {
			return found, ctx.Err()
		}
		locator := s.backend.ExpansionLocator(seed)
		collected, err := s.harvestListing(ctx, locator, s.cfg.ExpansionRevealActions)
		found.AddAll(collected)
		if err != nil {
			s.logger.Warn().
				Str("seed", seed.Identifier).
				Err(err).
				Msg("Expansion listing abandoned, keeping partial results")
			continue
		}
	}
	s.logger.Info().
		Int("seeds", limit).
		Int("collected", found.Len()).
		Msg("Expansion discovery finished")
	return found, nil
}

// harvestListing opens one listing and alternates extract and reveal until
// the reveal budget is spent or two consecutive reveals produce no new
// candidates. Whatever was extracted before a failure is still returned.
func (s *Service) harvestListing(ctx context.Context, locator string, maxReveals int) ([]models.Target, error) {
	if err := s.backend.OpenLocator(ctx, locator); err != nil {
		return nil, fmt.Errorf("open listing: %w", err)
	}

	seen := models.NewTargetSet()
	noGrowth := 0
	for reveal := 0; ; reveal++ {
		visible, err := s.backend.ExtractVisibleCandidates(ctx)
		if err != nil {
			return seen.Slice(), fmt.Errorf("extract candidates: %w", err)
		}
		before := seen.Len()
		seen.AddAll(visible)

		// Staleness is judged on post-reveal extractions only; the initial
		// page is not a reveal outcome.
		if reveal > 0 && seen.Len() == before {
			noGrowth++
			if noGrowth >= 2 {
				break
			}
		} else if seen.Len() > before {
			noGrowth = 0
		}
		if reveal >= maxReveals {
			break
		}

		if s.waiter != nil {
			if err := s.waiter.Wait(ctx, reveal); err != nil {
				return seen.Slice(), err
			}
		}
		if err := s.backend.RevealMore(ctx); err != nil {
			return seen.Slice(), fmt.Errorf("reveal more: %w", err)
		}
	}
	return seen.Slice(), nil
}
