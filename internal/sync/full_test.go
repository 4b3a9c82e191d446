package sync_test

import (
	"context"
	"testing"

	"github.com/chirino/spaces-sync-service/internal/model"
	registrystore "github.com/chirino/spaces-sync-service/internal/registry/store"
	"github.com/stretchr/testify/require"
)

func TestFullSyncUnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.FullSync(context.Background(), 9999)
	var notFound *registrystore.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestFullSyncAssemblesProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.join(t, "u1@example.com")
	u2 := f.join(t, "u2@example.com")
	f.setupSpaceTree(t, u1, "s1", "b1", "n1")
	f.apply(t, u1, bulkItem(model.TypeKeychain, model.ActionAdd, map[string]any{"id": "k1", "item_id": "s1", "body": "enc"}))

	// a pending invite from someone else's space shows up too
	f.setupSpaceTree(t, u2, "s2", "b2", "n2")
	_, err := f.svc.SendInvite(ctx, u2, "s2", map[string]any{
		"id":       "i1",
		"space_id": "s2",
		"to_user":  "u1@example.com",
		"role":     string(model.RoleGuest),
	})
	require.NoError(t, err)

	result, err := f.engine.FullSync(ctx, u1)
	require.NoError(t, err)
	require.Positive(t, result.SyncID)

	latest, err := f.store.LatestSyncID(ctx)
	require.NoError(t, err)
	require.Equal(t, latest, result.SyncID)

	require.NotEmpty(t, result.Records)
	first := result.Records[0]
	require.Equal(t, model.TypeUser, first.Type)
	require.Equal(t, model.ActionAdd, first.Action)
	require.Equal(t, "u1@example.com", first.Data["email"])
	require.NotContains(t, first.Data, "auth")

	byType := map[string][]model.SyncRecord{}
	for _, rec := range result.Records {
		require.Zero(t, rec.ID, "full sync records never carry a ledger cursor")
		require.Equal(t, model.ActionAdd, rec.Action)
		byType[rec.Type] = append(byType[rec.Type], rec)
	}
	require.Len(t, byType[model.TypeKeychain], 1)
	require.Len(t, byType[model.TypeSpace], 1)
	require.Len(t, byType[model.TypeBoard], 1)
	require.Len(t, byType[model.TypeNote], 1)
	require.Len(t, byType[model.TypeInvite], 1)

	invite := byType[model.TypeInvite][0]
	require.Equal(t, "i1", invite.ItemID)
	require.NotContains(t, invite.Data, "token_server")
}
