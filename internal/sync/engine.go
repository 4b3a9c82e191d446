package sync

import (
	"context"
	"time"

	"github.com/chirino/spaces-sync-service/internal/config"
	"github.com/chirino/spaces-sync-service/internal/model"
	registrynotify "github.com/chirino/spaces-sync-service/internal/registry/notify"
	registrystore "github.com/chirino/spaces-sync-service/internal/registry/store"
)

// SpaceSource is the slice of the profile layer the reader needs to expand
// share and unshare records. Implemented by the profile service; declared
// here so the engine does not depend on it.
type SpaceSource interface {
	// UserHasPermission reports whether userID holds perm in spaceID.
	// A missing space or membership is false, not an error.
	UserHasPermission(ctx context.Context, userID int64, spaceID string, perm model.Permission) (bool, error)
	// DataTree returns the space item plus every board and note item in it.
	// skipInvites drops the space's invite list from the item. A missing
	// space returns (nil, nil, nil, nil).
	DataTree(ctx context.Context, spaceID string, skipInvites bool) (space map[string]any, boards, notes []map[string]any, err error)
}

// ProfileSource is the slice of the profile layer the full-sync path needs.
type ProfileSource interface {
	// UserItem returns the user's own item map, including "email".
	UserItem(ctx context.Context, userID int64) (map[string]any, error)
	KeychainItems(ctx context.Context, userID int64) ([]map[string]any, error)
	// SpaceItems returns the user's space items with invite lists already
	// stripped where the user lacks the add-space-invite permission, plus
	// the space ids.
	SpaceItems(ctx context.Context, userID int64) ([]map[string]any, []string, error)
	BoardItems(ctx context.Context, spaceIDs []string) ([]map[string]any, error)
	NoteItems(ctx context.Context, spaceIDs []string) ([]map[string]any, error)
	InviteItemsByEmail(ctx context.Context, email string) ([]map[string]any, error)
}

// Engine is the read and apply side of the sync system: long-poll reads,
// full profile dumps and bulk incoming mutations.
type Engine struct {
	store    registrystore.Store
	registry *Registry
	notifier registrynotify.Notifier
	spaces   SpaceSource
	profile  ProfileSource

	pollCutoff   time.Duration
	pollInterval time.Duration
	settleDelay  time.Duration
	maxBulk      int
}

func NewEngine(cfg *config.Config, store registrystore.Store, registry *Registry, notifier registrynotify.Notifier, spaces SpaceSource, profile ProfileSource) *Engine {
	return &Engine{
		store:        store,
		registry:     registry,
		notifier:     notifier,
		spaces:       spaces,
		profile:      profile,
		pollCutoff:   cfg.SyncPollCutoff,
		pollInterval: cfg.SyncPollInterval,
		settleDelay:  cfg.SyncSettleDelay,
		maxBulk:      cfg.SyncMaxBulkRecords,
	}
}

// convertToSync wraps an item map in a synthetic sync record. Synthetic
// records carry id 0: they were produced for this response, not read from
// the ledger, so clients must not advance their cursor on them.
func convertToSync(item map[string]any, typ string, action model.SyncAction) model.SyncRecord {
	userID := coerceInt64(item["user_id"])
	if userID == 0 && typ == model.TypeInvite {
		userID = coerceInt64(item["from_user_id"])
	}
	rec := model.SyncRecord{
		UserID: userID,
		Type:   typ,
		ItemID: coerceString(item["id"]),
		Action: action,
	}
	if action == model.ActionDelete {
		rec.Data = map[string]any{"id": rec.ItemID, "deleted": true}
	} else {
		rec.Data = item
	}
	return rec
}

// coerceInt64 handles the numeric types a decoded JSON blob can hold.
func coerceInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func coerceString(v any) string {
	s, _ := v.(string)
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
