// Package noop registers a notifier that never delivers wakeups. Readers
// fall back to the poll interval, which is how the service behaves with no
// notify backend configured.
package noop

import (
	"context"
	"time"

	registrynotify "github.com/chirino/spaces-sync-service/internal/registry/notify"
)

// ForceImport is a no-op variable that can be referenced to ensure this package's init() runs.
var ForceImport = 0

func init() {
	registrynotify.Register(registrynotify.Plugin{
		Name: "noop",
		Loader: func(ctx context.Context) (registrynotify.Notifier, error) {
			return Notifier{}, nil
		},
	})
}

type Notifier struct{}

func (Notifier) Notify(ctx context.Context, userIDs []int64) {}

func (Notifier) Wait(ctx context.Context, userID int64, timeout time.Duration) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
