// Package local registers an in-process notifier. Wakeups only reach
// readers attached to the same process, so it suits single-instance
// deployments and tests; multi-instance setups need the redis notifier.
package local

import (
	"context"
	"sync"
	"time"

	registrynotify "github.com/chirino/spaces-sync-service/internal/registry/notify"
)

// ForceImport is a no-op variable that can be referenced to ensure this package's init() runs.
var ForceImport = 0

func init() {
	registrynotify.Register(registrynotify.Plugin{
		Name: "local",
		Loader: func(ctx context.Context) (registrynotify.Notifier, error) {
			return New(), nil
		},
	})
}

// Notifier fans wakeups out to waiting readers through per-user channels.
type Notifier struct {
	mu      sync.Mutex
	waiters map[int64][]chan struct{}
}

func New() *Notifier {
	return &Notifier{waiters: map[int64][]chan struct{}{}}
}

func (n *Notifier) Notify(ctx context.Context, userIDs []int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, uid := range userIDs {
		for _, ch := range n.waiters[uid] {
			close(ch)
		}
		delete(n.waiters, uid)
	}
}

func (n *Notifier) Wait(ctx context.Context, userID int64, timeout time.Duration) {
	ch := make(chan struct{})
	n.mu.Lock()
	n.waiters[userID] = append(n.waiters[userID], ch)
	n.mu.Unlock()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-ch:
		return
	case <-ctx.Done():
	case <-t.C:
	}
	n.remove(userID, ch)
}

func (n *Notifier) remove(userID int64, ch chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	chans := n.waiters[userID]
	for i, c := range chans {
		if c == ch {
			n.waiters[userID] = append(chans[:i], chans[i+1:]...)
			break
		}
	}
	if len(n.waiters[userID]) == 0 {
		delete(n.waiters, userID)
	}
}
