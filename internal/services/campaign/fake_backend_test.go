package campaign

import (
	"context"

	"github.com/ternarybob/nuntius/internal/interfaces"
	"github.com/ternarybob/nuntius/internal/models"
)

// fakeBackend is a scriptable AutomationBackend. Any nil function field
// behaves as an immediate success.
type fakeBackend struct {
	startFn   func(ctx context.Context) error
	openFn    func(ctx context.Context, locator string) error
	extractFn func(ctx context.Context) ([]models.Target, error)
	revealFn  func(ctx context.Context) error
	locateFn  func(ctx context.Context) (interfaces.Handle, error)
	clickFn   func(ctx context.Context, h interfaces.Handle) error
	typeFn    func(ctx context.Context, text string) error
	submitFn  func(ctx context.Context) error
	confirmFn func(ctx context.Context) error

	closed     int
	clickCalls int
}

func (f *fakeBackend) Start(ctx context.Context) error {
	if f.startFn != nil {
		return f.startFn(ctx)
	}
	return nil
}

func (f *fakeBackend) OpenLocator(ctx context.Context, locator string) error {
	if f.openFn != nil {
		return f.openFn(ctx, locator)
	}
	return nil
}

func (f *fakeBackend) ExtractVisibleCandidates(ctx context.Context) ([]models.Target, error) {
	if f.extractFn != nil {
		return f.extractFn(ctx)
	}
	return nil, nil
}

func (f *fakeBackend) RevealMore(ctx context.Context) error {
	if f.revealFn != nil {
		return f.revealFn(ctx)
	}
	return nil
}

func (f *fakeBackend) SearchLocator(keyword string) string {
	return "https://example.com/search?q=" + keyword
}

func (f *fakeBackend) ExpansionLocator(t models.Target) string {
	return t.Locator + "/following"
}

func (f *fakeBackend) LocateComposerEntryPoint(ctx context.Context) (interfaces.Handle, error) {
	if f.locateFn != nil {
		return f.locateFn(ctx)
	}
	return "entry", nil
}

func (f *fakeBackend) Click(ctx context.Context, h interfaces.Handle) error {
	f.clickCalls++
	if f.clickFn != nil {
		return f.clickFn(ctx, h)
	}
	return nil
}

func (f *fakeBackend) TypeText(ctx context.Context, text string) error {
	if f.typeFn != nil {
		return f.typeFn(ctx, text)
	}
	return nil
}

func (f *fakeBackend) Submit(ctx context.Context) error {
	if f.submitFn != nil {
		return f.submitFn(ctx)
	}
	return nil
}

func (f *fakeBackend) WaitForConfirmation(ctx context.Context) error {
	if f.confirmFn != nil {
		return f.confirmFn(ctx)
	}
	return nil
}

func (f *fakeBackend) Close() error {
	f.closed++
	return nil
}

var _ interfaces.AutomationBackend = (*fakeBackend)(nil)
