package sync

import (
	"context"
	"strconv"

	"github.com/chirino/spaces-sync-service/internal/model"
	registrystore "github.com/chirino/spaces-sync-service/internal/registry/store"
)

// FullSyncResult is a complete profile dump expressed as add records, plus
// the ledger cursor the client should poll from afterwards.
type FullSyncResult struct {
	SyncID  int64              `json:"sync_id"`
	Records []model.SyncRecord `json:"records"`
}

// FullSync assembles the user's entire profile: their own user item, their
// keychain, every space they are a member of (with boards and notes), and
// any invites addressed to their email. All records carry id 0 since they
// come from the entity tables, not the ledger; SyncID is read after the
// records so the next poll can only re-deliver changes, never miss them.
func (e *Engine) FullSync(ctx context.Context, userID int64) (*FullSyncResult, error) {
	userItem, err := e.profile.UserItem(ctx, userID)
	if err != nil {
		return nil, err
	}
	if userItem == nil {
		return nil, &registrystore.NotFoundError{Resource: "user", ID: strconv.FormatInt(userID, 10)}
	}

	records := []model.SyncRecord{convertToSync(userItem, model.TypeUser, model.ActionAdd)}

	keychain, err := e.profile.KeychainItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, entry := range keychain {
		records = append(records, convertToSync(entry, model.TypeKeychain, model.ActionAdd))
	}

	spaces, spaceIDs, err := e.profile.SpaceItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, space := range spaces {
		records = append(records, convertToSync(space, model.TypeSpace, model.ActionAdd))
	}

	boards, err := e.profile.BoardItems(ctx, spaceIDs)
	if err != nil {
		return nil, err
	}
	for _, board := range boards {
		records = append(records, convertToSync(board, model.TypeBoard, model.ActionAdd))
	}

	notes, err := e.profile.NoteItems(ctx, spaceIDs)
	if err != nil {
		return nil, err
	}
	for _, note := range notes {
		records = append(records, convertToSync(note, model.TypeNote, model.ActionAdd))
	}

	invites, err := e.profile.InviteItemsByEmail(ctx, coerceString(userItem["email"]))
	if err != nil {
		return nil, err
	}
	for _, invite := range invites {
		records = append(records, convertToSync(invite, model.TypeInvite, model.ActionAdd))
	}

	latest, err := e.store.LatestSyncID(ctx)
	if err != nil {
		return nil, err
	}
	e.cleanRecords(records)
	return &FullSyncResult{SyncID: latest, Records: records}, nil
}
