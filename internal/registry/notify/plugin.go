package notify

import (
	"context"
	"fmt"
	"time"
)

// Notifier wakes long-poll readers when new ledger entries land. Notify is
// best-effort: a lost wakeup only delays delivery until the next poll
// interval, so implementations must never fail the calling mutation.
type Notifier interface {
	// Notify signals that the given users have pending sync records.
	Notify(ctx context.Context, userIDs []int64)
	// Wait blocks until a notification arrives for userID, the timeout
	// elapses, or ctx is cancelled, whichever comes first.
	Wait(ctx context.Context, userID int64, timeout time.Duration)
}

// Loader creates a Notifier from config.
type Loader func(ctx context.Context) (Notifier, error)

// Plugin represents a notifier plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a notifier plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered notifier plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named notifier plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown notifier %q; valid: %v", name, Names())
}
