package campaign

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nuntius/internal/interfaces"
	"github.com/ternarybob/nuntius/internal/models"
)

var testTarget = models.Target{Identifier: "@alice", Locator: "https://example.com/alice"}

func TestSender_Send_Success(t *testing.T) {
	backend := &fakeBackend{}
	sender := NewSender(backend, 3, arbor.NewLogger())

	attempt, err := sender.Send(context.Background(), testTarget, "hello there")
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeSuccess, attempt.Outcome)
	assert.Equal(t, "@alice", attempt.Identifier)
	assert.Empty(t, attempt.ErrorDetail)
	assert.Equal(t, "hello there", attempt.MessageExcerpt)
}

func TestSender_Send_FailureReasons(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name           string
		setup          func(b *fakeBackend)
		expectedReason string
	}{
		{
			name: "navigation failure",
			setup: func(b *fakeBackend) {
				b.openFn = func(ctx context.Context, locator string) error { return boom }
			},
			expectedReason: "navigation failed",
		},
		{
			name: "entry point missing",
			setup: func(b *fakeBackend) {
				b.locateFn = func(ctx context.Context) (interfaces.Handle, error) {
					return nil, interfaces.ErrNotFound
				}
			},
			expectedReason: "message entry point not found",
		},
		{
			name: "entry point obstructed past retry budget",
			setup: func(b *fakeBackend) {
				b.clickFn = func(ctx context.Context, h interfaces.Handle) error {
					return interfaces.ErrObstructed
				}
			},
			expectedReason: "message entry point obstructed",
		},
		{
			name: "composer never opened",
			setup: func(b *fakeBackend) {
				b.typeFn = func(ctx context.Context, text string) error {
					return interfaces.ErrNotFound
				}
			},
			expectedReason: "composer input not found",
		},
		{
			name: "submit failure",
			setup: func(b *fakeBackend) {
				b.submitFn = func(ctx context.Context) error { return boom }
			},
			expectedReason: "submit failed",
		},
		{
			name: "confirmation timeout",
			setup: func(b *fakeBackend) {
				b.confirmFn = func(ctx context.Context) error {
					return interfaces.ErrConfirmationTimeout
				}
			},
			expectedReason: "confirmation timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{}
			tt.setup(backend)
			sender := NewSender(backend, 3, arbor.NewLogger())

			attempt, err := sender.Send(context.Background(), testTarget, "hello")
			require.NoError(t, err)

			assert.Equal(t, models.OutcomeFailed, attempt.Outcome)
			assert.Equal(t, tt.expectedReason, attempt.ErrorDetail)
		})
	}
}

func TestSender_Send_RetriesObstructedClicks(t *testing.T) {
	backend := &fakeBackend{}
	failures := 2
	backend.clickFn = func(ctx context.Context, h interfaces.Handle) error {
		if backend.clickCalls <= failures {
			return interfaces.ErrObstructed
		}
		return nil
	}
	sender := NewSender(backend, 3, arbor.NewLogger())

	attempt, err := sender.Send(context.Background(), testTarget, "hello")
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeSuccess, attempt.Outcome)
	assert.Equal(t, 3, backend.clickCalls)
}

func TestSender_Send_ContextCancellationIsFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	backend := &fakeBackend{}
	backend.openFn = func(ctx context.Context, locator string) error {
		cancel()
		return ctx.Err()
	}
	sender := NewSender(backend, 3, arbor.NewLogger())

	_, err := sender.Send(ctx, testTarget, "hello")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSender_Send_ExcerptTruncatesLongMessages(t *testing.T) {
	backend := &fakeBackend{}
	sender := NewSender(backend, 3, arbor.NewLogger())

	long := ""
	for i := 0; i < 20; i++ {
		long += "abcdefghij"
	}
	attempt, err := sender.Send(context.Background(), testTarget, long)
	require.NoError(t, err)

	assert.Len(t, []rune(attempt.MessageExcerpt), models.MessageExcerptLen+3)
}
