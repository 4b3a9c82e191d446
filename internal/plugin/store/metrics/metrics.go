package metrics

import (
	"context"
	"time"

	"github.com/chirino/spaces-sync-service/internal/model"
	"github.com/chirino/spaces-sync-service/internal/registry/store"
	"github.com/chirino/spaces-sync-service/internal/security"
)

// Wrap returns a Store that records StoreLatency for every operation.
func Wrap(inner store.Store) store.Store {
	return &metricsStore{inner: inner}
}

type metricsStore struct {
	inner store.Store
}

func observe(op string, start time.Time) {
	security.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *metricsStore) AddSyncRecord(ctx context.Context, creatorID int64, typ, itemID string, action model.SyncAction, recipientIDs []int64) (int64, error) {
	defer observe("add_sync_record", time.Now())
	return m.inner.AddSyncRecord(ctx, creatorID, typ, itemID, action, recipientIDs)
}

func (m *metricsStore) SyncSince(ctx context.Context, userID, sinceID int64) ([]model.SyncRecord, error) {
	defer observe("sync_since", time.Now())
	return m.inner.SyncSince(ctx, userID, sinceID)
}

func (m *metricsStore) LatestSyncID(ctx context.Context) (int64, error) {
	defer observe("latest_sync_id", time.Now())
	return m.inner.LatestSyncID(ctx)
}

func (m *metricsStore) CreateUser(ctx context.Context, user *model.User) error {
	defer observe("create_user", time.Now())
	return m.inner.CreateUser(ctx, user)
}

func (m *metricsStore) UserByID(ctx context.Context, id int64) (*model.User, error) {
	defer observe("user_by_id", time.Now())
	return m.inner.UserByID(ctx, id)
}

func (m *metricsStore) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	defer observe("user_by_email", time.Now())
	return m.inner.UserByEmail(ctx, email)
}

func (m *metricsStore) UserByToken(ctx context.Context, token string) (*model.User, error) {
	defer observe("user_by_token", time.Now())
	return m.inner.UserByToken(ctx, token)
}

func (m *metricsStore) UsersByIDs(ctx context.Context, ids []int64) ([]model.User, error) {
	defer observe("users_by_ids", time.Now())
	return m.inner.UsersByIDs(ctx, ids)
}

func (m *metricsStore) UpdateUserData(ctx context.Context, id int64, data []byte) error {
	defer observe("update_user_data", time.Now())
	return m.inner.UpdateUserData(ctx, id, data)
}

func (m *metricsStore) UpdateUserToken(ctx context.Context, id int64, token string) error {
	defer observe("update_user_token", time.Now())
	return m.inner.UpdateUserToken(ctx, id, token)
}

func (m *metricsStore) Member(ctx context.Context, spaceID string, userID int64) (*model.SpaceMember, error) {
	defer observe("member", time.Now())
	return m.inner.Member(ctx, spaceID, userID)
}

func (m *metricsStore) MemberIDs(ctx context.Context, spaceID string) ([]int64, error) {
	defer observe("member_ids", time.Now())
	return m.inner.MemberIDs(ctx, spaceID)
}

func (m *metricsStore) MembersBySpaces(ctx context.Context, spaceIDs []string) ([]model.SpaceMember, error) {
	defer observe("members_by_spaces", time.Now())
	return m.inner.MembersBySpaces(ctx, spaceIDs)
}

func (m *metricsStore) CreateMember(ctx context.Context, member *model.SpaceMember) error {
	defer observe("create_member", time.Now())
	return m.inner.CreateMember(ctx, member)
}

func (m *metricsStore) UpdateMemberRole(ctx context.Context, spaceID string, userID int64, role model.Role) error {
	defer observe("update_member_role", time.Now())
	return m.inner.UpdateMemberRole(ctx, spaceID, userID, role)
}

func (m *metricsStore) DeleteMember(ctx context.Context, spaceID string, userID int64) error {
	defer observe("delete_member", time.Now())
	return m.inner.DeleteMember(ctx, spaceID, userID)
}

func (m *metricsStore) CreateSpace(ctx context.Context, space *model.Space) error {
	defer observe("create_space", time.Now())
	return m.inner.CreateSpace(ctx, space)
}

func (m *metricsStore) SpaceByID(ctx context.Context, id string) (*model.Space, error) {
	defer observe("space_by_id", time.Now())
	return m.inner.SpaceByID(ctx, id)
}

func (m *metricsStore) SpacesByIDs(ctx context.Context, ids []string) ([]model.Space, error) {
	defer observe("spaces_by_ids", time.Now())
	return m.inner.SpacesByIDs(ctx, ids)
}

func (m *metricsStore) SpacesByUser(ctx context.Context, userID int64) ([]model.Space, error) {
	defer observe("spaces_by_user", time.Now())
	return m.inner.SpacesByUser(ctx, userID)
}

func (m *metricsStore) UpdateSpace(ctx context.Context, id string, ownerID int64, data []byte) error {
	defer observe("update_space", time.Now())
	return m.inner.UpdateSpace(ctx, id, ownerID, data)
}

func (m *metricsStore) DeleteSpace(ctx context.Context, id string) error {
	defer observe("delete_space", time.Now())
	return m.inner.DeleteSpace(ctx, id)
}

func (m *metricsStore) CreateBoard(ctx context.Context, board *model.Board) error {
	defer observe("create_board", time.Now())
	return m.inner.CreateBoard(ctx, board)
}

func (m *metricsStore) BoardByID(ctx context.Context, id string) (*model.Board, error) {
	defer observe("board_by_id", time.Now())
	return m.inner.BoardByID(ctx, id)
}

func (m *metricsStore) BoardsByIDs(ctx context.Context, ids []string) ([]model.Board, error) {
	defer observe("boards_by_ids", time.Now())
	return m.inner.BoardsByIDs(ctx, ids)
}

func (m *metricsStore) BoardsBySpaces(ctx context.Context, spaceIDs []string) ([]model.Board, error) {
	defer observe("boards_by_spaces", time.Now())
	return m.inner.BoardsBySpaces(ctx, spaceIDs)
}

func (m *metricsStore) UpdateBoard(ctx context.Context, board *model.Board) error {
	defer observe("update_board", time.Now())
	return m.inner.UpdateBoard(ctx, board)
}

func (m *metricsStore) DeleteBoard(ctx context.Context, id string) error {
	defer observe("delete_board", time.Now())
	return m.inner.DeleteBoard(ctx, id)
}

func (m *metricsStore) CreateNote(ctx context.Context, note *model.Note) error {
	defer observe("create_note", time.Now())
	return m.inner.CreateNote(ctx, note)
}

func (m *metricsStore) NoteByID(ctx context.Context, id string) (*model.Note, error) {
	defer observe("note_by_id", time.Now())
	return m.inner.NoteByID(ctx, id)
}

func (m *metricsStore) NotesByIDs(ctx context.Context, ids []string) ([]model.Note, error) {
	defer observe("notes_by_ids", time.Now())
	return m.inner.NotesByIDs(ctx, ids)
}

func (m *metricsStore) NotesBySpaces(ctx context.Context, spaceIDs []string) ([]model.Note, error) {
	defer observe("notes_by_spaces", time.Now())
	return m.inner.NotesBySpaces(ctx, spaceIDs)
}

func (m *metricsStore) NotesBySpaceBoard(ctx context.Context, spaceID, boardID string) ([]model.Note, error) {
	defer observe("notes_by_space_board", time.Now())
	return m.inner.NotesBySpaceBoard(ctx, spaceID, boardID)
}

func (m *metricsStore) UpdateNote(ctx context.Context, note *model.Note) error {
	defer observe("update_note", time.Now())
	return m.inner.UpdateNote(ctx, note)
}

func (m *metricsStore) DeleteNote(ctx context.Context, id string) error {
	defer observe("delete_note", time.Now())
	return m.inner.DeleteNote(ctx, id)
}

func (m *metricsStore) CreateKeychainEntry(ctx context.Context, entry *model.KeychainEntry) error {
	defer observe("create_keychain_entry", time.Now())
	return m.inner.CreateKeychainEntry(ctx, entry)
}

func (m *metricsStore) KeychainEntryByID(ctx context.Context, id string) (*model.KeychainEntry, error) {
	defer observe("keychain_entry_by_id", time.Now())
	return m.inner.KeychainEntryByID(ctx, id)
}

func (m *metricsStore) KeychainEntriesByIDs(ctx context.Context, ids []string) ([]model.KeychainEntry, error) {
	defer observe("keychain_entries_by_ids", time.Now())
	return m.inner.KeychainEntriesByIDs(ctx, ids)
}

func (m *metricsStore) KeychainByUser(ctx context.Context, userID int64) ([]model.KeychainEntry, error) {
	defer observe("keychain_by_user", time.Now())
	return m.inner.KeychainByUser(ctx, userID)
}

func (m *metricsStore) KeychainByUserItem(ctx context.Context, userID int64, itemID string) (*model.KeychainEntry, error) {
	defer observe("keychain_by_user_item", time.Now())
	return m.inner.KeychainByUserItem(ctx, userID, itemID)
}

func (m *metricsStore) UpdateKeychainEntry(ctx context.Context, entry *model.KeychainEntry) error {
	defer observe("update_keychain_entry", time.Now())
	return m.inner.UpdateKeychainEntry(ctx, entry)
}

func (m *metricsStore) DeleteKeychainEntry(ctx context.Context, id string) error {
	defer observe("delete_keychain_entry", time.Now())
	return m.inner.DeleteKeychainEntry(ctx, id)
}

func (m *metricsStore) CreateInvite(ctx context.Context, invite *model.Invite) error {
	defer observe("create_invite", time.Now())
	return m.inner.CreateInvite(ctx, invite)
}

func (m *metricsStore) InviteByID(ctx context.Context, spaceID, id string) (*model.Invite, error) {
	defer observe("invite_by_id", time.Now())
	return m.inner.InviteByID(ctx, spaceID, id)
}

func (m *metricsStore) InvitesByIDs(ctx context.Context, ids []string) ([]model.Invite, error) {
	defer observe("invites_by_ids", time.Now())
	return m.inner.InvitesByIDs(ctx, ids)
}

func (m *metricsStore) InvitesBySpaces(ctx context.Context, spaceIDs []string) ([]model.Invite, error) {
	defer observe("invites_by_spaces", time.Now())
	return m.inner.InvitesBySpaces(ctx, spaceIDs)
}

func (m *metricsStore) InviteBySpaceEmail(ctx context.Context, spaceID, email string) (*model.Invite, error) {
	defer observe("invite_by_space_email", time.Now())
	return m.inner.InviteBySpaceEmail(ctx, spaceID, email)
}

func (m *metricsStore) InvitesByEmail(ctx context.Context, email string) ([]model.Invite, error) {
	defer observe("invites_by_email", time.Now())
	return m.inner.InvitesByEmail(ctx, email)
}

func (m *metricsStore) UpdateInvite(ctx context.Context, invite *model.Invite) error {
	defer observe("update_invite", time.Now())
	return m.inner.UpdateInvite(ctx, invite)
}

func (m *metricsStore) DeleteInvite(ctx context.Context, spaceID, id string) error {
	defer observe("delete_invite", time.Now())
	return m.inner.DeleteInvite(ctx, spaceID, id)
}
