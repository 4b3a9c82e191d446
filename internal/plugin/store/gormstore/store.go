// Package gormstore implements the Store interface on top of GORM. The
// postgres and sqlite plugins wrap it with dialect-specific setup; the
// statements here stay dialect-neutral.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chirino/spaces-sync-service/internal/model"
	registrystore "github.com/chirino/spaces-sync-service/internal/registry/store"
	"gorm.io/gorm"
)

// Store implements registrystore.Store using a *gorm.DB.
type Store struct {
	db *gorm.DB
}

// New wraps db in a Store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for plugin setup (pool sizing, migration).
func (s *Store) DB() *gorm.DB {
	return s.db
}

// --- Ledger ---

// AddSyncRecord writes one sync record and its recipient rows atomically.
// A reader must never observe the record without all of its recipients, so
// both inserts share one transaction.
func (s *Store) AddSyncRecord(ctx context.Context, creatorID int64, typ, itemID string, action model.SyncAction, recipientIDs []int64) (int64, error) {
	rec := model.SyncRecord{
		UserID:    creatorID,
		Type:      typ,
		ItemID:    itemID,
		Action:    action,
		CreatedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to insert sync record: %w", err)
		}
		links := make([]model.SyncUser, len(recipientIDs))
		for i, uid := range recipientIDs {
			links[i] = model.SyncUser{SyncID: rec.ID, UserID: uid}
		}
		if err := tx.Create(&links).Error; err != nil {
			return fmt.Errorf("failed to insert sync recipients: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rec.ID, nil
}

func (s *Store) SyncSince(ctx context.Context, userID, sinceID int64) ([]model.SyncRecord, error) {
	var records []model.SyncRecord
	err := s.db.WithContext(ctx).
		Table("sync s").
		Select("s.*").
		Joins("JOIN sync_users su ON su.sync_id = s.id AND su.user_id = ?", userID).
		Where("s.id > ?", sinceID).
		Order("s.id ASC").
		Scan(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync ledger: %w", err)
	}
	return records, nil
}

func (s *Store) LatestSyncID(ctx context.Context) (int64, error) {
	var latest *int64
	if err := s.db.WithContext(ctx).Model(&model.SyncRecord{}).Select("MAX(id)").Scan(&latest).Error; err != nil {
		return 0, fmt.Errorf("failed to read latest sync id: %w", err)
	}
	if latest == nil {
		return 0, nil
	}
	return *latest, nil
}

// --- Users ---

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *Store) UserByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	return first(s.db.WithContext(ctx).Where("id = ?", id), &user)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	return first(s.db.WithContext(ctx).Where("email = ?", email), &user)
}

func (s *Store) UserByToken(ctx context.Context, token string) (*model.User, error) {
	var user model.User
	return first(s.db.WithContext(ctx).Where("auth_token = ?", token), &user)
}

func (s *Store) UsersByIDs(ctx context.Context, ids []int64) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []model.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserData(ctx context.Context, id int64, data []byte) error {
	return s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Updates(map[string]any{"data": data, "updated_at": time.Now()}).Error
}

func (s *Store) UpdateUserToken(ctx context.Context, id int64, token string) error {
	return s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Updates(map[string]any{"auth_token": token, "updated_at": time.Now()}).Error
}

// --- Memberships ---

func (s *Store) Member(ctx context.Context, spaceID string, userID int64) (*model.SpaceMember, error) {
	var member model.SpaceMember
	return first(s.db.WithContext(ctx).Where("space_id = ? AND user_id = ?", spaceID, userID), &member)
}

func (s *Store) MemberIDs(ctx context.Context, spaceID string) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&model.SpaceMember{}).
		Where("space_id = ?", spaceID).
		Order("id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) MembersBySpaces(ctx context.Context, spaceIDs []string) ([]model.SpaceMember, error) {
	if len(spaceIDs) == 0 {
		return nil, nil
	}
	var members []model.SpaceMember
	if err := s.db.WithContext(ctx).Where("space_id IN ?", spaceIDs).Order("id ASC").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (s *Store) CreateMember(ctx context.Context, member *model.SpaceMember) error {
	member.CreatedAt = time.Now()
	return s.db.WithContext(ctx).Create(member).Error
}

func (s *Store) UpdateMemberRole(ctx context.Context, spaceID string, userID int64, role model.Role) error {
	return s.db.WithContext(ctx).Model(&model.SpaceMember{}).
		Where("space_id = ? AND user_id = ?", spaceID, userID).
		Update("role", role).Error
}

func (s *Store) DeleteMember(ctx context.Context, spaceID string, userID int64) error {
	return s.db.WithContext(ctx).
		Where("space_id = ? AND user_id = ?", spaceID, userID).
		Delete(&model.SpaceMember{}).Error
}

// --- Spaces ---

func (s *Store) CreateSpace(ctx context.Context, space *model.Space) error {
	now := time.Now()
	space.CreatedAt, space.UpdatedAt = now, now
	return s.db.WithContext(ctx).Create(space).Error
}

func (s *Store) SpaceByID(ctx context.Context, id string) (*model.Space, error) {
	var space model.Space
	return first(s.db.WithContext(ctx).Where("id = ?", id), &space)
}

func (s *Store) SpacesByIDs(ctx context.Context, ids []string) ([]model.Space, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var spaces []model.Space
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&spaces).Error; err != nil {
		return nil, err
	}
	return spaces, nil
}

func (s *Store) SpacesByUser(ctx context.Context, userID int64) ([]model.Space, error) {
	var spaces []model.Space
	err := s.db.WithContext(ctx).
		Table("spaces s").
		Select("s.*").
		Joins("JOIN spaces_users su ON su.space_id = s.id AND su.user_id = ?", userID).
		Order("s.created_at ASC").
		Scan(&spaces).Error
	if err != nil {
		return nil, err
	}
	return spaces, nil
}

func (s *Store) UpdateSpace(ctx context.Context, id string, ownerID int64, data []byte) error {
	return s.db.WithContext(ctx).Model(&model.Space{}).Where("id = ?", id).
		Updates(map[string]any{"user_id": ownerID, "data": data, "updated_at": time.Now()}).Error
}

// DeleteSpace removes the space and everything it contains. One transaction:
// a crashed half-delete would strand boards and notes with no reachable space.
func (s *Store) DeleteSpace(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&model.Note{}, &model.Board{}, &model.Invite{}, &model.SpaceMember{}} {
			if err := tx.Where("space_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).Delete(&model.Space{}).Error
	})
}

// --- Boards ---

func (s *Store) CreateBoard(ctx context.Context, board *model.Board) error {
	now := time.Now()
	board.CreatedAt, board.UpdatedAt = now, now
	return s.db.WithContext(ctx).Create(board).Error
}

func (s *Store) BoardByID(ctx context.Context, id string) (*model.Board, error) {
	var board model.Board
	return first(s.db.WithContext(ctx).Where("id = ?", id), &board)
}

func (s *Store) BoardsByIDs(ctx context.Context, ids []string) ([]model.Board, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var boards []model.Board
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&boards).Error; err != nil {
		return nil, err
	}
	return boards, nil
}

func (s *Store) BoardsBySpaces(ctx context.Context, spaceIDs []string) ([]model.Board, error) {
	if len(spaceIDs) == 0 {
		return nil, nil
	}
	var boards []model.Board
	if err := s.db.WithContext(ctx).Where("space_id IN ?", spaceIDs).Order("created_at ASC").Find(&boards).Error; err != nil {
		return nil, err
	}
	return boards, nil
}

func (s *Store) UpdateBoard(ctx context.Context, board *model.Board) error {
	return s.db.WithContext(ctx).Model(&model.Board{}).Where("id = ?", board.ID).
		Updates(map[string]any{
			"space_id":   board.SpaceID,
			"user_id":    board.UserID,
			"data":       board.Data,
			"updated_at": time.Now(),
		}).Error
}

func (s *Store) DeleteBoard(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Board{}).Error
}

// --- Notes ---

func (s *Store) CreateNote(ctx context.Context, note *model.Note) error {
	now := time.Now()
	note.CreatedAt, note.UpdatedAt = now, now
	return s.db.WithContext(ctx).Create(note).Error
}

func (s *Store) NoteByID(ctx context.Context, id string) (*model.Note, error) {
	var note model.Note
	return first(s.db.WithContext(ctx).Where("id = ?", id), &note)
}

func (s *Store) NotesByIDs(ctx context.Context, ids []string) ([]model.Note, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var notes []model.Note
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

func (s *Store) NotesBySpaces(ctx context.Context, spaceIDs []string) ([]model.Note, error) {
	if len(spaceIDs) == 0 {
		return nil, nil
	}
	var notes []model.Note
	if err := s.db.WithContext(ctx).Where("space_id IN ?", spaceIDs).Order("created_at ASC").Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

func (s *Store) NotesBySpaceBoard(ctx context.Context, spaceID, boardID string) ([]model.Note, error) {
	var notes []model.Note
	err := s.db.WithContext(ctx).
		Where("space_id = ? AND board_id = ?", spaceID, boardID).
		Order("created_at ASC").
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (s *Store) UpdateNote(ctx context.Context, note *model.Note) error {
	return s.db.WithContext(ctx).Model(&model.Note{}).Where("id = ?", note.ID).
		Updates(map[string]any{
			"space_id":   note.SpaceID,
			"board_id":   note.BoardID,
			"user_id":    note.UserID,
			"data":       note.Data,
			"updated_at": time.Now(),
		}).Error
}

func (s *Store) DeleteNote(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Note{}).Error
}

// --- Keychain ---

func (s *Store) CreateKeychainEntry(ctx context.Context, entry *model.KeychainEntry) error {
	now := time.Now()
	entry.CreatedAt, entry.UpdatedAt = now, now
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *Store) KeychainEntryByID(ctx context.Context, id string) (*model.KeychainEntry, error) {
	var entry model.KeychainEntry
	return first(s.db.WithContext(ctx).Where("id = ?", id), &entry)
}

func (s *Store) KeychainEntriesByIDs(ctx context.Context, ids []string) ([]model.KeychainEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var entries []model.KeychainEntry
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) KeychainByUser(ctx context.Context, userID int64) ([]model.KeychainEntry, error) {
	var entries []model.KeychainEntry
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) KeychainByUserItem(ctx context.Context, userID int64, itemID string) (*model.KeychainEntry, error) {
	var entry model.KeychainEntry
	return first(s.db.WithContext(ctx).Where("user_id = ? AND item_id = ?", userID, itemID), &entry)
}

func (s *Store) UpdateKeychainEntry(ctx context.Context, entry *model.KeychainEntry) error {
	return s.db.WithContext(ctx).Model(&model.KeychainEntry{}).Where("id = ?", entry.ID).
		Updates(map[string]any{
			"item_id":    entry.ItemID,
			"data":       entry.Data,
			"updated_at": time.Now(),
		}).Error
}

func (s *Store) DeleteKeychainEntry(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.KeychainEntry{}).Error
}

// --- Invites ---

func (s *Store) CreateInvite(ctx context.Context, invite *model.Invite) error {
	invite.CreatedAt = time.Now()
	return s.db.WithContext(ctx).Create(invite).Error
}

func (s *Store) InviteByID(ctx context.Context, spaceID, id string) (*model.Invite, error) {
	var invite model.Invite
	return first(s.db.WithContext(ctx).Where("id = ? AND space_id = ?", id, spaceID), &invite)
}

func (s *Store) InvitesByIDs(ctx context.Context, ids []string) ([]model.Invite, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var invites []model.Invite
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&invites).Error; err != nil {
		return nil, err
	}
	return invites, nil
}

func (s *Store) InvitesBySpaces(ctx context.Context, spaceIDs []string) ([]model.Invite, error) {
	if len(spaceIDs) == 0 {
		return nil, nil
	}
	var invites []model.Invite
	if err := s.db.WithContext(ctx).Where("space_id IN ?", spaceIDs).Order("created_at ASC").Find(&invites).Error; err != nil {
		return nil, err
	}
	return invites, nil
}

func (s *Store) InviteBySpaceEmail(ctx context.Context, spaceID, email string) (*model.Invite, error) {
	var invite model.Invite
	return first(s.db.WithContext(ctx).Where("space_id = ? AND to_email = ?", spaceID, email), &invite)
}

func (s *Store) InvitesByEmail(ctx context.Context, email string) ([]model.Invite, error) {
	var invites []model.Invite
	if err := s.db.WithContext(ctx).Where("to_email = ?", email).Order("created_at ASC").Find(&invites).Error; err != nil {
		return nil, err
	}
	return invites, nil
}

func (s *Store) UpdateInvite(ctx context.Context, invite *model.Invite) error {
	return s.db.WithContext(ctx).Model(&model.Invite{}).Where("id = ? AND space_id = ?", invite.ID, invite.SpaceID).
		Updates(map[string]any{"data": invite.Data}).Error
}

func (s *Store) DeleteInvite(ctx context.Context, spaceID, id string) error {
	return s.db.WithContext(ctx).Where("id = ? AND space_id = ?", id, spaceID).Delete(&model.Invite{}).Error
}

// first runs the query and maps gorm's not-found to (nil, nil).
func first[T any](tx *gorm.DB, out *T) (*T, error) {
	if err := tx.First(out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

var _ registrystore.Store = (*Store)(nil)
