package interfaces

import "context"

// BlacklistProvider supplies the set of excluded locators, refreshed once per
// campaign start. Fetch is allowed to fail; the caller degrades to an empty
// set with a warning rather than aborting the run.
type BlacklistProvider interface {
	Fetch(ctx context.Context) (map[string]struct{}, error)
}

// Notifier pushes report text and critical-error alerts to an operator
// channel. Delivery failures are logged by callers, never escalated.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}
