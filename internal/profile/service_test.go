package profile_test

import (
	"context"
	"testing"

	"github.com/chirino/spaces-sync-service/internal/model"
	"github.com/chirino/spaces-sync-service/internal/plugin/notify/local"
	"github.com/chirino/spaces-sync-service/internal/plugin/store/sqlite"
	"github.com/chirino/spaces-sync-service/internal/profile"
	registrystore "github.com/chirino/spaces-sync-service/internal/registry/store"
	syncengine "github.com/chirino/spaces-sync-service/internal/sync"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc      *profile.Service
	store    registrystore.Store
	registry *syncengine.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	ledger := syncengine.NewLedger(store, local.New())
	svc := profile.NewService(store, ledger)
	return &fixture{svc: svc, store: store, registry: profile.BuildRegistry(svc)}
}

func (f *fixture) join(t *testing.T, email string) int64 {
	t.Helper()
	item, err := f.svc.Join(context.Background(), email, "token-"+email, map[string]any{})
	require.NoError(t, err)
	id, _ := item["user_id"].(int64)
	require.NotZero(t, id)
	return id
}

func (f *fixture) addSpace(t *testing.T, userID int64, id string) {
	t.Helper()
	_, err := f.svc.AddSpace(context.Background(), userID, map[string]any{"id": id, "body": "enc:" + id})
	require.NoError(t, err)
}

func (f *fixture) addMember(t *testing.T, spaceID string, userID int64, role model.Role) {
	t.Helper()
	err := f.store.CreateMember(context.Background(), &model.SpaceMember{
		SpaceID: spaceID,
		UserID:  userID,
		Role:    role,
	})
	require.NoError(t, err)
}

// mutate dispatches through the registered handler, the same path the bulk
// applier takes.
func (f *fixture) mutate(t *testing.T, typ string, action model.SyncAction, userID int64, data map[string]any) (syncengine.Outcome, error) {
	t.Helper()
	handlers, ok := f.registry.Handlers(typ)
	require.True(t, ok)
	fn := handlers.Mutate[action]
	require.NotNil(t, fn)
	return fn(context.Background(), userID, data)
}

// records returns everything in the user's sync feed as "type.action" keys.
func (f *fixture) records(t *testing.T, userID int64) []string {
	t.Helper()
	records, err := f.store.SyncSince(context.Background(), userID, 0)
	require.NoError(t, err)
	keys := make([]string, len(records))
	for i, rec := range records {
		keys[i] = rec.Type + "." + string(rec.Action)
	}
	return keys
}

func requireForbidden(t *testing.T, err error) {
	t.Helper()
	var forbidden *registrystore.ForbiddenError
	require.ErrorAs(t, err, &forbidden)
}

func requireValidation(t *testing.T, err error) {
	t.Helper()
	var validation *registrystore.ValidationError
	require.ErrorAs(t, err, &validation)
}
