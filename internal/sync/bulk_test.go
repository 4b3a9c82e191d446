package sync_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/chirino/spaces-sync-service/internal/config"
	"github.com/chirino/spaces-sync-service/internal/model"
	"github.com/stretchr/testify/require"
)

func TestBulkApplyTruncatesToCap(t *testing.T) {
	f := newFixtureWith(t, func(cfg *config.Config) {
		cfg.SyncMaxBulkRecords = 2
	})
	u1 := f.join(t, "u1@example.com")

	result, err := f.engine.BulkApply(context.Background(), u1, []syncItem{
		bulkItem(model.TypeKeychain, model.ActionAdd, map[string]any{"id": "k1", "body": "e1"}),
		bulkItem(model.TypeKeychain, model.ActionAdd, map[string]any{"id": "k2", "body": "e2"}),
		bulkItem(model.TypeKeychain, model.ActionAdd, map[string]any{"id": "k3", "body": "e3"}),
	}, "test")
	require.NoError(t, err)
	require.Len(t, result.Success, 2)
	require.Empty(t, result.Failures)
	require.Empty(t, result.Blocked)
}

func TestBulkApplyContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	u1 := f.join(t, "u1@example.com")

	result, err := f.engine.BulkApply(context.Background(), u1, []syncItem{
		bulkItem("widget", model.ActionAdd, map[string]any{"id": "w1"}),
		bulkItem(model.TypeKeychain, model.ActionAdd, map[string]any{"id": "k1", "body": "e1"}),
	}, "test")
	require.NoError(t, err)
	require.Len(t, result.Failures, 1)
	require.Equal(t, http.StatusBadRequest, result.Failures[0].Error.Code)
	require.Contains(t, result.Failures[0].Error.Msg, "widget")
	require.Len(t, result.Success, 1)
	require.Equal(t, "k1", result.Success[0].ItemID)
	require.NotEmpty(t, result.Success[0].SyncIDs)
}

func TestBulkApplyRejectsUnsupportedAction(t *testing.T) {
	f := newFixture(t)
	u1 := f.join(t, "u1@example.com")

	// invites have no bulk mutations; only their REST endpoints write them
	result, err := f.engine.BulkApply(context.Background(), u1, []syncItem{
		bulkItem(model.TypeInvite, model.ActionAdd, map[string]any{"id": "i1"}),
	}, "test")
	require.NoError(t, err)
	require.Len(t, result.Failures, 1)
	require.Equal(t, http.StatusBadRequest, result.Failures[0].Error.Code)
}

func TestBulkApplyMapsForbiddenErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.join(t, "u1@example.com")
	u2 := f.join(t, "u2@example.com")
	f.setupSpaceTree(t, u1, "s1", "b1", "n1")

	result, err := f.engine.BulkApply(ctx, u2, []syncItem{
		bulkItem(model.TypeNote, model.ActionAdd, noteItem("n2", "s1", "b1")),
	}, "test")
	require.NoError(t, err)
	require.Len(t, result.Failures, 1)
	require.Equal(t, http.StatusForbidden, result.Failures[0].Error.Code)
}

func TestBulkApplyDeleteNeedsItemID(t *testing.T) {
	f := newFixture(t)
	u1 := f.join(t, "u1@example.com")

	result, err := f.engine.BulkApply(context.Background(), u1, []syncItem{
		bulkItem(model.TypeNote, model.ActionDelete, map[string]any{}),
	}, "test")
	require.NoError(t, err)
	require.Len(t, result.Failures, 1)
	require.Equal(t, http.StatusBadRequest, result.Failures[0].Error.Code)
}

func TestBulkApplyDeleteSynthesizesTombstoneData(t *testing.T) {
	f := newFixture(t)
	u1 := f.join(t, "u1@example.com")
	f.setupSpaceTree(t, u1, "s1", "b1", "n1")

	result := f.apply(t, u1, bulkItem(model.TypeNote, model.ActionDelete, map[string]any{"id": "n1"}))
	require.Equal(t, "n1", result.Success[0].ItemID)
	require.Equal(t, map[string]any{"id": "n1"}, result.Success[0].Data)
	require.NotEmpty(t, result.Success[0].SyncIDs)
}

func TestBulkApplySkippedMutationStillSucceeds(t *testing.T) {
	f := newFixture(t)
	u1 := f.join(t, "u1@example.com")
	f.setupSpaceTree(t, u1, "s1", "b1", "n1")

	// moving a board into the space it is already in is a no-op
	result := f.apply(t, u1, bulkItem(model.TypeBoard, model.ActionMoveSpace, boardItem("b1", "s1")))
	require.Empty(t, result.Success[0].SyncIDs)
	require.Equal(t, "b1", result.Success[0].ItemID)
}

func TestBulkApplyBlocksRemainderOnCancel(t *testing.T) {
	f := newFixture(t)
	u1 := f.join(t, "u1@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := f.engine.BulkApply(ctx, u1, []syncItem{
		bulkItem(model.TypeKeychain, model.ActionAdd, map[string]any{"id": "k1", "body": "e1"}),
		bulkItem(model.TypeKeychain, model.ActionAdd, map[string]any{"id": "k2", "body": "e2"}),
	}, "test")
	require.NoError(t, err)
	require.Empty(t, result.Success)
	require.Empty(t, result.Failures)
	require.Len(t, result.Blocked, 2)
}
