package profile_test

import (
	"context"
	"testing"

	"github.com/chirino/spaces-sync-service/internal/model"
	"github.com/chirino/spaces-sync-service/internal/profile"
	registrystore "github.com/chirino/spaces-sync-service/internal/registry/store"
	"github.com/stretchr/testify/require"
)

func TestJoinValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Join(ctx, "", "token", nil)
	requireValidation(t, err)
	_, err = f.svc.Join(ctx, "a@example.com", "", nil)
	requireValidation(t, err)

	_, err = f.svc.Join(ctx, "a@example.com", "token", map[string]any{})
	require.NoError(t, err)
	_, err = f.svc.Join(ctx, "a@example.com", "token2", map[string]any{})
	var conflict *registrystore.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestJoinSurfacesPendingInvites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.join(t, "owner@example.com")
	f.addSpace(t, owner, "s1")
	_, err := f.svc.SendInvite(ctx, owner, "s1", inviteData("i1", "s1", "late@example.com", model.RoleMember))
	require.NoError(t, err)

	late := f.join(t, "late@example.com")
	require.Contains(t, f.records(t, late), "invite.add")
}

func TestEditUserIsSelfOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.join(t, "u1@example.com")
	u2 := f.join(t, "u2@example.com")

	_, err := f.svc.EditUser(ctx, u1, map[string]any{"id": u2, "body": "enc"})
	requireForbidden(t, err)

	outcome, err := f.svc.EditUser(ctx, u1, map[string]any{"id": u1, "body": "enc:v2"})
	require.NoError(t, err)
	// no other device needs telling, so nothing lands in the ledger
	require.Empty(t, outcome.SyncIDs)

	item, err := f.svc.UserItem(ctx, u1)
	require.NoError(t, err)
	require.Equal(t, "enc:v2", item["body"])
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.join(t, "u1@example.com")

	_, err := f.svc.ChangePassword(ctx, u1, "", nil)
	requireValidation(t, err)

	ids, err := f.svc.ChangePassword(ctx, u1, "new-token", map[string]any{"body": "reencrypted"})
	require.NoError(t, err)
	require.NotEmpty(t, ids)

	user, err := f.store.UserByToken(ctx, "new-token")
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, u1, user.ID)

	old, err := f.store.UserByToken(ctx, "token-u1@example.com")
	require.NoError(t, err)
	require.Nil(t, old)

	require.Contains(t, f.records(t, u1), "user.change-password")
}

func TestSpaceItemsStripInvitesWithoutPermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.join(t, "owner@example.com")
	member := f.join(t, "member@example.com")
	f.addSpace(t, owner, "s1")
	f.addMember(t, "s1", member, model.RoleMember)
	_, err := f.svc.SendInvite(ctx, owner, "s1", inviteData("i1", "s1", "x@example.com", model.RoleMember))
	require.NoError(t, err)

	items, ids, err := f.svc.SpaceItems(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, []string{"s1"}, ids)
	require.Contains(t, items[0], "invites")

	// even permission holders never see the server-side acceptance token
	invites, _ := items[0]["invites"].([]map[string]any)
	require.Len(t, invites, 1)
	require.NotContains(t, invites[0], "token_server")

	items, _, err = f.svc.SpaceItems(ctx, member)
	require.NoError(t, err)
	require.NotContains(t, items[0], "invites")
}

func TestCleanUserStripsCredentials(t *testing.T) {
	item := map[string]any{"id": "1", "auth": "a", "auth_token": "b", "email": "x@example.com"}
	cleaned := profile.CleanUser(item)
	require.NotContains(t, cleaned, "auth")
	require.NotContains(t, cleaned, "auth_token")
	require.Equal(t, "x@example.com", cleaned["email"])
}
