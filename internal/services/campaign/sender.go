package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nuntius/internal/interfaces"
	"github.com/ternarybob/nuntius/internal/models"
)

// Step names recorded as failure reasons in the history log. They identify
// where in the send sequence a target dropped out.
const (
	reasonNavigate             = "navigation failed"
	reasonEntryPointNotFound   = "message entry point not found"
	reasonEntryPointObstructed = "message entry point obstructed"
	reasonComposerNotFound     = "composer input not found"
	reasonTypeFailed           = "text entry failed"
	reasonSubmitFailed         = "submit failed"
	reasonConfirmationTimeout  = "confirmation timeout"
)

// Sender walks one target through the full send sequence: open the profile,
// reveal the composer, enter the message, submit, and wait for confirmation.
type Sender struct {
	backend       interfaces.AutomationBackend
	logger        arbor.ILogger
	clickAttempts int
}

func NewSender(backend interfaces.AutomationBackend, clickAttempts int, logger arbor.ILogger) *Sender {
	if clickAttempts < 1 {
		clickAttempts = 1
	}
	return &Sender{
		backend:       backend,
		logger:        logger,
		clickAttempts: clickAttempts,
	}
}

// Send attempts delivery of message to target and returns the attempt row to
// append to history. It never returns an error for per-target failures; those
// are captured in the attempt's outcome. The error return is reserved for
// context cancellation, which callers treat as run-fatal.
func (s *Sender) Send(ctx context.Context, target models.Target, message string) (models.SendAttempt, error) {
	attempt := models.SendAttempt{
		Timestamp:      time.Now(),
		Identifier:     target.Identifier,
		Locator:        target.Locator,
		Outcome:        models.OutcomeFailed,
		MessageExcerpt: models.Excerpt(message),
	}

	fail := func(reason string, err error) (models.SendAttempt, error) {
		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}
		attempt.ErrorDetail = reason
		s.logger.Warn().
			Str("identifier", target.Identifier).
			Str("reason", reason).
			Err(err).
			Msg("Send attempt failed")
		return attempt, nil
	}

	if err := s.backend.OpenLocator(ctx, target.Locator); err != nil {
		return fail(reasonNavigate, err)
	}

	entry, err := s.backend.LocateComposerEntryPoint(ctx)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return fail(reasonEntryPointNotFound, err)
		}
		return fail(fmt.Sprintf("entry point lookup: %v", err), err)
	}

	if err := s.clickWithRetry(ctx, entry); err != nil {
		if errors.Is(err, interfaces.ErrObstructed) {
			return fail(reasonEntryPointObstructed, err)
		}
		return fail(reasonEntryPointNotFound, err)
	}

	if err := s.backend.TypeText(ctx, message); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return fail(reasonComposerNotFound, err)
		}
		return fail(reasonTypeFailed, err)
	}

	if err := s.backend.Submit(ctx); err != nil {
		return fail(reasonSubmitFailed, err)
	}

	if err := s.backend.WaitForConfirmation(ctx); err != nil {
		if errors.Is(err, interfaces.ErrConfirmationTimeout) {
			return fail(reasonConfirmationTimeout, err)
		}
		return fail(fmt.Sprintf("confirmation: %v", err), err)
	}

	attempt.Outcome = models.OutcomeSuccess
	attempt.ErrorDetail = ""
	s.logger.Info().
		Str("identifier", target.Identifier).
		Msg("Message sent")
	return attempt, nil
}

// clickWithRetry retries obstructed clicks up to the configured bound. Any
// other error is returned immediately.
func (s *Sender) clickWithRetry(ctx context.Context, h interfaces.Handle) error {
	var lastErr error
	for i := 0; i < s.clickAttempts; i++ {
		lastErr = s.backend.Click(ctx, h)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, interfaces.ErrObstructed) {
			return lastErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}
