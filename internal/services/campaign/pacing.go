package campaign

import (
	"context"
	"math/rand"
	"time"

	"github.com/ternarybob/nuntius/internal/common"
)

// Pacer produces randomized inter-send delays that stretch as the
// session accumulates actions, with an occasional longer break mixed in.
type Pacer struct {
	cfg  common.PacingConfig
	rand *rand.Rand
}

func NewPacer(cfg common.PacingConfig, src rand.Source) *Pacer {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Pacer{cfg: cfg, rand: rand.New(src)}
}

// NextDelay returns the wait before the next send given how many
// actions the session has already performed. The occasional long break is
// added on top of the scaled base delay, not substituted for it.
func (p *Pacer) NextDelay(actionCount int) time.Duration {
	delay := p.uniformSeconds(p.cfg.MinWaitSeconds, p.cfg.MaxWaitSeconds)
	switch {
	case actionCount > p.cfg.Tier2Threshold:
		delay = time.Duration(float64(delay) * p.cfg.Tier2Factor)
	case actionCount > p.cfg.Tier1Threshold:
		delay = time.Duration(float64(delay) * p.cfg.Tier1Factor)
	}

	if p.rand.Float64() < p.cfg.LongBreakProbability {
		delay += p.uniformSeconds(p.cfg.LongBreakMinSeconds, p.cfg.LongBreakMaxSeconds)
	}
	return delay
}

// Wait sleeps for NextDelay(actionCount) or until the context is done.
func (p *Pacer) Wait(ctx context.Context, actionCount int) error {
	timer := time.NewTimer(p.NextDelay(actionCount))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Pacer) uniformSeconds(min, max float64) time.Duration {
	if max <= min {
		return time.Duration(min * float64(time.Second))
	}
	secs := min + p.rand.Float64()*(max-min)
	return time.Duration(secs * float64(time.Second))
}
