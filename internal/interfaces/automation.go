package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/nuntius/internal/models"
)

// Sentinel conditions a backend reports from capability calls. The engine
// branches on these; anything else is treated as a hard backend failure.
var (
	// ErrNotFound means an element could not be located with any configured
	// selector strategy.
	ErrNotFound = errors.New("element not found")

	// ErrObstructed means a click was intercepted by an overlay or another
	// element. Transient; callers may retry a bounded number of times.
	ErrObstructed = errors.New("click obstructed")

	// ErrConfirmationTimeout means the confirmation signal did not appear
	// within the backend's wait budget.
	ErrConfirmationTimeout = errors.New("confirmation timeout")
)

// Handle is an opaque reference to a located page element. Only the backend
// that produced it can interpret it.
type Handle interface{}

// AutomationBackend is the capability surface the engine drives a browser
// session through. Selector strategies, URL shapes, and wait tuning belong to
// the implementation; the engine only sees success, typed conditions, or
// hard errors. A backend instance owns one exclusive browser session and is
// not safe for concurrent use.
type AutomationBackend interface {
	// Start establishes the browser session. Run-fatal on failure.
	Start(ctx context.Context) error

	// OpenLocator navigates the session to the given locator.
	OpenLocator(ctx context.Context, locator string) error

	// ExtractVisibleCandidates returns the targets currently visible on the
	// open page. Partial results with a nil error are normal.
	ExtractVisibleCandidates(ctx context.Context) ([]models.Target, error)

	// RevealMore performs one content-reveal action (scroll, page-extend).
	RevealMore(ctx context.Context) error

	// SearchLocator builds the locator for a keyword search listing.
	SearchLocator(keyword string) string

	// ExpansionLocator builds the locator for a target's network view
	// (following-of-following expansion).
	ExpansionLocator(t models.Target) string

	// LocateComposerEntryPoint finds the message entry point on the open
	// profile. Returns ErrNotFound when no strategy matches.
	LocateComposerEntryPoint(ctx context.Context) (Handle, error)

	// Click activates a located element. Returns ErrObstructed when the
	// click was intercepted.
	Click(ctx context.Context, h Handle) error

	// TypeText enters text into the open composer input. Returns
	// ErrNotFound when the composer never opened.
	TypeText(ctx context.Context, text string) error

	// Submit sends the composed message.
	Submit(ctx context.Context) error

	// WaitForConfirmation blocks until the backend observes the sent
	// confirmation or returns ErrConfirmationTimeout.
	WaitForConfirmation(ctx context.Context) error

	// Close releases the browser session. Safe to call more than once.
	Close() error
}
