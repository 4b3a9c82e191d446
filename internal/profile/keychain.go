package profile

import (
	"context"

	"github.com/chirino/spaces-sync-service/internal/model"
	registrystore "github.com/chirino/spaces-sync-service/internal/registry/store"
	"github.com/chirino/spaces-sync-service/internal/sync"
)

// Keychain entries are user-owned, not space-owned, so the only check on any
// keychain mutation is ownership. Fan-out always targets just the owner: the
// entry holds keys encrypted for that user alone.

func (s *Service) AddKeychainEntry(ctx context.Context, userID int64, data map[string]any) (sync.Outcome, error) {
	data["user_id"] = userID
	id, err := itemID(data)
	if err != nil {
		return sync.Outcome{}, err
	}
	blob, err := encodeItem(data)
	if err != nil {
		return sync.Outcome{}, err
	}
	entry := &model.KeychainEntry{
		ID:     id,
		UserID: userID,
		ItemID: asString(data["item_id"]),
		Data:   blob,
	}
	if err := s.store.CreateKeychainEntry(ctx, entry); err != nil {
		return sync.Outcome{}, err
	}
	syncIDs, err := s.ledger.AddRecord(ctx, []int64{userID}, userID, model.TypeKeychain, id, model.ActionAdd)
	if err != nil {
		return sync.Outcome{}, err
	}
	return sync.Outcome{Item: data, SyncIDs: syncIDs}, nil
}

func (s *Service) EditKeychainEntry(ctx context.Context, userID int64, data map[string]any) (sync.Outcome, error) {
	id, err := itemID(data)
	if err != nil {
		return sync.Outcome{}, err
	}
	entry, err := s.store.KeychainEntryByID(ctx, id)
	if err != nil {
		return sync.Outcome{}, err
	}
	if entry == nil {
		return sync.Outcome{}, &registrystore.NotFoundError{Resource: model.TypeKeychain, ID: id}
	}
	if entry.UserID != userID {
		return sync.Outcome{}, &registrystore.ForbiddenError{Message: "you can't edit a keychain entry you don't own"}
	}
	data["user_id"] = userID
	blob, err := encodeItem(data)
	if err != nil {
		return sync.Outcome{}, err
	}
	entry.ItemID = asString(data["item_id"])
	entry.Data = blob
	if err := s.store.UpdateKeychainEntry(ctx, entry); err != nil {
		return sync.Outcome{}, err
	}
	syncIDs, err := s.ledger.AddRecord(ctx, []int64{userID}, userID, model.TypeKeychain, id, model.ActionEdit)
	if err != nil {
		return sync.Outcome{}, err
	}
	return sync.Outcome{Item: data, SyncIDs: syncIDs}, nil
}

func (s *Service) DeleteKeychainEntry(ctx context.Context, userID int64, id string) ([]int64, error) {
	entry, err := s.store.KeychainEntryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return []int64{}, nil
	}
	if entry.UserID != userID {
		return nil, &registrystore.ForbiddenError{Message: "you can't delete a keychain entry you don't own"}
	}
	if err := s.store.DeleteKeychainEntry(ctx, id); err != nil {
		return nil, err
	}
	return s.ledger.AddRecord(ctx, []int64{userID}, userID, model.TypeKeychain, id, model.ActionDelete)
}

// DeleteKeychainEntryByItem removes the user's key entry for a given item,
// if one exists. Used when an item leaves the user's profile.
func (s *Service) DeleteKeychainEntryByItem(ctx context.Context, userID int64, itemID string) ([]int64, error) {
	if itemID == "" {
		return []int64{}, nil
	}
	entry, err := s.store.KeychainByUserItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return []int64{}, nil
	}
	return s.DeleteKeychainEntry(ctx, userID, entry.ID)
}

// LinkKeychain hydrates keychain items by id.
func (s *Service) LinkKeychain(ctx context.Context, ids []string) ([]map[string]any, error) {
	entries, err := s.store.KeychainEntriesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return keychainItems(entries)
}

// KeychainItems returns all of the user's keychain items.
func (s *Service) KeychainItems(ctx context.Context, userID int64) ([]map[string]any, error) {
	entries, err := s.store.KeychainByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return keychainItems(entries)
}

func keychainItems(entries []model.KeychainEntry) ([]map[string]any, error) {
	items := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		item, err := decodeItem(entry.Data)
		if err != nil {
			return nil, err
		}
		item["id"] = entry.ID
		items = append(items, item)
	}
	return items, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
