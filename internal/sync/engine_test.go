package sync_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/chirino/spaces-sync-service/internal/config"
	"github.com/chirino/spaces-sync-service/internal/model"
	"github.com/chirino/spaces-sync-service/internal/plugin/notify/local"
	"github.com/chirino/spaces-sync-service/internal/plugin/store/sqlite"
	"github.com/chirino/spaces-sync-service/internal/profile"
	registrystore "github.com/chirino/spaces-sync-service/internal/registry/store"
	syncengine "github.com/chirino/spaces-sync-service/internal/sync"
	"github.com/stretchr/testify/require"
)

// fixture wires a full engine against an in-memory store, with poll timings
// tightened so long-poll tests finish quickly.
type fixture struct {
	engine *syncengine.Engine
	svc    *profile.Service
	ledger *syncengine.Ledger
	store  registrystore.Store
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, func(cfg *config.Config) {})
}

func newFixtureWith(t *testing.T, tune func(cfg *config.Config)) *fixture {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.SyncPollCutoff = 500 * time.Millisecond
	cfg.SyncPollInterval = 20 * time.Millisecond
	cfg.SyncSettleDelay = 5 * time.Millisecond
	tune(&cfg)

	notifier := local.New()
	ledger := syncengine.NewLedger(store, notifier)
	svc := profile.NewService(store, ledger)
	registry := profile.BuildRegistry(svc)
	require.NoError(t, registry.Verify())

	return &fixture{
		engine: syncengine.NewEngine(&cfg, store, registry, notifier, svc, svc),
		svc:    svc,
		ledger: ledger,
		store:  store,
	}
}

func (f *fixture) join(t *testing.T, email string) int64 {
	t.Helper()
	item, err := f.svc.Join(context.Background(), email, "token-"+email, map[string]any{"auth": "token-" + email})
	require.NoError(t, err)
	id, _ := item["user_id"].(int64)
	require.NotZero(t, id)
	return id
}

// apply runs a bulk batch and requires every item in it to succeed.
func (f *fixture) apply(t *testing.T, userID int64, items ...syncengine.Item) *syncengine.BulkResult {
	t.Helper()
	result, err := f.engine.BulkApply(context.Background(), userID, items, "test")
	require.NoError(t, err)
	require.Empty(t, result.Failures)
	require.Empty(t, result.Blocked)
	require.Len(t, result.Success, len(items))
	return result
}

type syncItem = syncengine.Item

var itemSeq int

func bulkItem(typ string, action model.SyncAction, data map[string]any) syncengine.Item {
	itemSeq++
	return syncengine.Item{
		ID:     json.RawMessage(fmt.Sprintf("%d", itemSeq)),
		Type:   typ,
		Action: action,
		Data:   data,
	}
}

func spaceItem(id string) map[string]any {
	return map[string]any{"id": id, "body": "encrypted:" + id}
}

func boardItem(id, spaceID string) map[string]any {
	return map[string]any{"id": id, "space_id": spaceID, "body": "encrypted:" + id}
}

func noteItem(id, spaceID, boardID string) map[string]any {
	return map[string]any{"id": id, "space_id": spaceID, "board_id": boardID, "body": "encrypted:" + id}
}

// setupSpaceTree creates a space with one board and one note for the user.
func (f *fixture) setupSpaceTree(t *testing.T, userID int64, spaceID, boardID, noteID string) {
	t.Helper()
	f.apply(t, userID,
		bulkItem(model.TypeSpace, model.ActionAdd, spaceItem(spaceID)),
		bulkItem(model.TypeBoard, model.ActionAdd, boardItem(boardID, spaceID)),
		bulkItem(model.TypeNote, model.ActionAdd, noteItem(noteID, spaceID, boardID)),
	)
}
