// Package redis registers a notifier backed by redis pub/sub so wakeups
// cross process boundaries. Each user gets a channel; readers subscribe for
// the duration of one Wait.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chirino/spaces-sync-service/internal/config"
	registrynotify "github.com/chirino/spaces-sync-service/internal/registry/notify"
	goredis "github.com/redis/go-redis/v9"
)

// ForceImport is a no-op variable that can be referenced to ensure this package's init() runs.
var ForceImport = 0

func init() {
	registrynotify.Register(registrynotify.Plugin{
		Name:   "redis",
		Loader: load,
	})
}

func load(ctx context.Context) (registrynotify.Notifier, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis notifier: SPACES_SYNC_REDIS_URL is required")
	}
	return LoadFromURL(ctx, cfg.RedisURL)
}

// LoadFromURL creates a Notifier from a Redis-compatible URL.
func LoadFromURL(ctx context.Context, redisURL string) (registrynotify.Notifier, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis notifier: invalid URL: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis notifier: ping failed: %w", err)
	}
	return &Notifier{client: client}, nil
}

type Notifier struct {
	client *goredis.Client
}

func channel(userID int64) string {
	return fmt.Sprintf("sync:u:%d", userID)
}

func (n *Notifier) Notify(ctx context.Context, userIDs []int64) {
	for _, uid := range userIDs {
		if err := n.client.Publish(ctx, channel(uid), "1").Err(); err != nil {
			// Best effort. The reader's poll interval covers lost wakeups.
			log.Warn("redis notify failed", "user_id", uid, "error", err)
		}
	}
}

func (n *Notifier) Wait(ctx context.Context, userID int64, timeout time.Duration) {
	sub := n.client.Subscribe(ctx, channel(userID))
	defer sub.Close()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-sub.Channel():
	case <-ctx.Done():
	case <-t.C:
	}
}
