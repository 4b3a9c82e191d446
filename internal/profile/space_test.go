package profile_test

import (
	"context"
	"testing"

	"github.com/chirino/spaces-sync-service/internal/model"
	"github.com/stretchr/testify/require"
)

func TestPermissionCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.join(t, "owner@example.com")
	guest := f.join(t, "guest@example.com")
	outsider := f.join(t, "outsider@example.com")
	f.addSpace(t, owner, "s1")
	f.addMember(t, "s1", guest, model.RoleGuest)

	require.NoError(t, f.svc.PermissionCheck(ctx, owner, "s1", model.PermDeleteSpace))
	requireForbidden(t, f.svc.PermissionCheck(ctx, guest, "s1", model.PermEditSpace))
	requireForbidden(t, f.svc.PermissionCheck(ctx, outsider, "s1", model.PermEditSpace))

	ok, err := f.svc.UserHasPermission(ctx, guest, "s1", model.PermEditSpace)
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = f.svc.UserHasPermission(ctx, owner, "s1", model.PermEditSpace)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEditSpacePreservesOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.join(t, "owner@example.com")
	admin := f.join(t, "admin@example.com")
	f.addSpace(t, owner, "s1")
	f.addMember(t, "s1", admin, model.RoleAdmin)

	outcome, err := f.mutate(t, model.TypeSpace, model.ActionEdit, admin, map[string]any{
		"id":      "s1",
		"body":    "enc:v2",
		"user_id": admin, // must be ignored
	})
	require.NoError(t, err)
	require.NotEmpty(t, outcome.SyncIDs)

	space, err := f.store.SpaceByID(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, owner, space.UserID)
}

func TestDeleteSpaceIsOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.join(t, "owner@example.com")
	admin := f.join(t, "admin@example.com")
	f.addSpace(t, owner, "s1")
	f.addMember(t, "s1", admin, model.RoleAdmin)
	_, err := f.svc.AddKeychainEntry(ctx, owner, map[string]any{"id": "k1", "item_id": "s1"})
	require.NoError(t, err)

	_, err = f.svc.DeleteSpace(ctx, admin, "s1")
	requireForbidden(t, err)

	ids, err := f.svc.DeleteSpace(ctx, owner, "s1")
	require.NoError(t, err)
	require.NotEmpty(t, ids)

	space, err := f.store.SpaceByID(ctx, "s1")
	require.NoError(t, err)
	require.Nil(t, space)

	// every member is told their copy of the subtree is gone
	require.Contains(t, f.records(t, admin), "space.delete")
	require.Contains(t, f.records(t, owner), "space.delete")
}

func TestSetSpaceOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.join(t, "owner@example.com")
	admin := f.join(t, "admin@example.com")
	f.addSpace(t, owner, "s1")
	f.addMember(t, "s1", admin, model.RoleAdmin)

	_, err := f.mutate(t, model.TypeSpace, model.ActionSetOwner, admin, map[string]any{
		"id":      "s1",
		"user_id": admin,
	})
	requireForbidden(t, err)

	_, err = f.mutate(t, model.TypeSpace, model.ActionSetOwner, owner, map[string]any{
		"id": "s1",
	})
	requireValidation(t, err)

	outcome, err := f.mutate(t, model.TypeSpace, model.ActionSetOwner, owner, map[string]any{
		"id":      "s1",
		"user_id": admin,
	})
	require.NoError(t, err)
	require.NotEmpty(t, outcome.SyncIDs)

	space, err := f.store.SpaceByID(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, admin, space.UserID)
	require.Contains(t, f.records(t, admin), "space.edit")
}

func TestUpdateMemberGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.join(t, "owner@example.com")
	member := f.join(t, "member@example.com")
	f.addSpace(t, owner, "s1")
	f.addMember(t, "s1", member, model.RoleMember)

	_, _, err := f.svc.UpdateMember(ctx, owner, "s1", member, model.Role("superuser"))
	requireValidation(t, err)

	_, _, err = f.svc.UpdateMember(ctx, owner, "s1", owner, model.RoleGuest)
	requireValidation(t, err)

	_, _, err = f.svc.UpdateMember(ctx, member, "s1", member, model.RoleGuest)
	requireForbidden(t, err)

	item, ids, err := f.svc.UpdateMember(ctx, owner, "s1", member, model.RoleModerator)
	require.NoError(t, err)
	require.NotEmpty(t, ids)
	require.Equal(t, string(model.RoleModerator), item["role"])

	m, err := f.store.Member(ctx, "s1", member)
	require.NoError(t, err)
	require.Equal(t, model.RoleModerator, m.Role)
}

func TestDeleteMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.join(t, "owner@example.com")
	member := f.join(t, "member@example.com")
	bystander := f.join(t, "bystander@example.com")
	f.addSpace(t, owner, "s1")
	f.addMember(t, "s1", member, model.RoleMember)
	f.addMember(t, "s1", bystander, model.RoleMember)

	// members can't remove each other, but anyone can remove themself
	_, err := f.svc.DeleteMember(ctx, bystander, "s1", member)
	requireForbidden(t, err)
	_, err = f.svc.DeleteMember(ctx, member, "s1", owner)
	requireForbidden(t, err)
	_, err = f.svc.DeleteMember(ctx, owner, "s1", owner)
	requireValidation(t, err)

	ids, err := f.svc.DeleteMember(ctx, member, "s1", member)
	require.NoError(t, err)
	require.NotEmpty(t, ids)

	m, err := f.store.Member(ctx, "s1", member)
	require.NoError(t, err)
	require.Nil(t, m)

	// the removed member sees the space vanish, the rest see an edit
	require.Contains(t, f.records(t, member), "space.delete")
	require.Contains(t, f.records(t, bystander), "space.edit")
}

func TestMoveBoardBetweenSpaces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.join(t, "owner@example.com")
	watcher := f.join(t, "watcher@example.com")
	f.addSpace(t, owner, "s1")
	f.addSpace(t, owner, "s2")
	f.addMember(t, "s1", watcher, model.RoleMember)

	_, err := f.mutate(t, model.TypeBoard, model.ActionAdd, owner, map[string]any{"id": "b1", "space_id": "s1"})
	require.NoError(t, err)
	_, err = f.mutate(t, model.TypeNote, model.ActionAdd, owner, map[string]any{"id": "n1", "space_id": "s1", "board_id": "b1"})
	require.NoError(t, err)

	outcome, err := f.mutate(t, model.TypeBoard, model.ActionMoveSpace, owner, map[string]any{"id": "b1", "space_id": "s2"})
	require.NoError(t, err)
	require.False(t, outcome.Skipped)
	require.NotEmpty(t, outcome.SyncIDs)

	board, err := f.store.BoardByID(ctx, "b1")
	require.NoError(t, err)
	require.Equal(t, "s2", board.SpaceID)

	// the board carries its notes along
	note, err := f.store.NoteByID(ctx, "n1")
	require.NoError(t, err)
	require.Equal(t, "s2", note.SpaceID)

	// watcher is only in the old space, so the board is deleted for them
	require.Contains(t, f.records(t, watcher), "board.delete")
	require.Contains(t, f.records(t, watcher), "note.delete")
}

func TestMoveBoardToSameSpaceIsSkipped(t *testing.T) {
	f := newFixture(t)
	owner := f.join(t, "owner@example.com")
	f.addSpace(t, owner, "s1")
	_, err := f.mutate(t, model.TypeBoard, model.ActionAdd, owner, map[string]any{"id": "b1", "space_id": "s1"})
	require.NoError(t, err)

	outcome, err := f.mutate(t, model.TypeBoard, model.ActionMoveSpace, owner, map[string]any{"id": "b1", "space_id": "s1"})
	require.NoError(t, err)
	require.True(t, outcome.Skipped)
	require.Empty(t, outcome.SyncIDs)
	require.Equal(t, "b1", outcome.Item["id"])
}

func TestMoveBoardNeedsPermissionInBothSpaces(t *testing.T) {
	f := newFixture(t)
	owner := f.join(t, "owner@example.com")
	mover := f.join(t, "mover@example.com")
	f.addSpace(t, owner, "s1")
	f.addSpace(t, owner, "s2")
	f.addMember(t, "s1", mover, model.RoleModerator)
	// mover has no role at all in s2

	_, err := f.mutate(t, model.TypeBoard, model.ActionAdd, owner, map[string]any{"id": "b1", "space_id": "s1"})
	require.NoError(t, err)

	_, err = f.mutate(t, model.TypeBoard, model.ActionMoveSpace, mover, map[string]any{"id": "b1", "space_id": "s2"})
	requireForbidden(t, err)
}
