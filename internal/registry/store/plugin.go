package store

import (
	"context"
	"fmt"

	"github.com/chirino/spaces-sync-service/internal/model"
)

// Store is the narrow persistence surface the sync engine and entity
// handlers depend on: insert/update-with-returning, ordered range scans and
// transactional ledger writes. Lookup methods that take a single id return
// (nil, nil) when the row is absent. Translating absence into a
// NotFoundError is the caller's concern, since "missing" is a normal state
// on several sync paths.
type Store interface {
	// Ledger. AddSyncRecord inserts one sync record plus one recipient row
	// per user id in a single transaction and returns the new record id.
	// Recipient ids must already be deduplicated and non-empty.
	AddSyncRecord(ctx context.Context, creatorID int64, typ, itemID string, action model.SyncAction, recipientIDs []int64) (int64, error)
	// SyncSince returns the records addressed to userID with id > sinceID,
	// ordered ascending by id.
	SyncSince(ctx context.Context, userID, sinceID int64) ([]model.SyncRecord, error)
	// LatestSyncID returns the highest ledger id, or 0 for an empty ledger.
	LatestSyncID(ctx context.Context) (int64, error)

	// Users.
	CreateUser(ctx context.Context, user *model.User) error
	UserByID(ctx context.Context, id int64) (*model.User, error)
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByToken(ctx context.Context, token string) (*model.User, error)
	UsersByIDs(ctx context.Context, ids []int64) ([]model.User, error)
	UpdateUserData(ctx context.Context, id int64, data []byte) error
	UpdateUserToken(ctx context.Context, id int64, token string) error

	// Space memberships.
	Member(ctx context.Context, spaceID string, userID int64) (*model.SpaceMember, error)
	MemberIDs(ctx context.Context, spaceID string) ([]int64, error)
	MembersBySpaces(ctx context.Context, spaceIDs []string) ([]model.SpaceMember, error)
	CreateMember(ctx context.Context, member *model.SpaceMember) error
	UpdateMemberRole(ctx context.Context, spaceID string, userID int64, role model.Role) error
	DeleteMember(ctx context.Context, spaceID string, userID int64) error

	// Spaces. DeleteSpace cascades boards, notes, invites and memberships
	// in one transaction.
	CreateSpace(ctx context.Context, space *model.Space) error
	SpaceByID(ctx context.Context, id string) (*model.Space, error)
	SpacesByIDs(ctx context.Context, ids []string) ([]model.Space, error)
	SpacesByUser(ctx context.Context, userID int64) ([]model.Space, error)
	UpdateSpace(ctx context.Context, id string, ownerID int64, data []byte) error
	DeleteSpace(ctx context.Context, id string) error

	// Boards.
	CreateBoard(ctx context.Context, board *model.Board) error
	BoardByID(ctx context.Context, id string) (*model.Board, error)
	BoardsByIDs(ctx context.Context, ids []string) ([]model.Board, error)
	BoardsBySpaces(ctx context.Context, spaceIDs []string) ([]model.Board, error)
	UpdateBoard(ctx context.Context, board *model.Board) error
	DeleteBoard(ctx context.Context, id string) error

	// Notes.
	CreateNote(ctx context.Context, note *model.Note) error
	NoteByID(ctx context.Context, id string) (*model.Note, error)
	NotesByIDs(ctx context.Context, ids []string) ([]model.Note, error)
	NotesBySpaces(ctx context.Context, spaceIDs []string) ([]model.Note, error)
	NotesBySpaceBoard(ctx context.Context, spaceID, boardID string) ([]model.Note, error)
	UpdateNote(ctx context.Context, note *model.Note) error
	DeleteNote(ctx context.Context, id string) error

	// Keychain entries.
	CreateKeychainEntry(ctx context.Context, entry *model.KeychainEntry) error
	KeychainEntryByID(ctx context.Context, id string) (*model.KeychainEntry, error)
	KeychainEntriesByIDs(ctx context.Context, ids []string) ([]model.KeychainEntry, error)
	KeychainByUser(ctx context.Context, userID int64) ([]model.KeychainEntry, error)
	KeychainByUserItem(ctx context.Context, userID int64, itemID string) (*model.KeychainEntry, error)
	UpdateKeychainEntry(ctx context.Context, entry *model.KeychainEntry) error
	DeleteKeychainEntry(ctx context.Context, id string) error

	// Invites.
	CreateInvite(ctx context.Context, invite *model.Invite) error
	InviteByID(ctx context.Context, spaceID, id string) (*model.Invite, error)
	InvitesByIDs(ctx context.Context, ids []string) ([]model.Invite, error)
	InvitesBySpaces(ctx context.Context, spaceIDs []string) ([]model.Invite, error)
	InviteBySpaceEmail(ctx context.Context, spaceID, email string) (*model.Invite, error)
	InvitesByEmail(ctx context.Context, email string) ([]model.Invite, error)
	UpdateInvite(ctx context.Context, invite *model.Invite) error
	DeleteInvite(ctx context.Context, spaceID, id string) error
}

// Loader creates a Store from config.
type Loader func(ctx context.Context) (Store, error)

// Plugin represents a store plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a store plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered store plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named store plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown store %q; valid: %v", name, Names())
}
