package sync

import (
	"context"

	"github.com/chirino/spaces-sync-service/internal/model"
	registrynotify "github.com/chirino/spaces-sync-service/internal/registry/notify"
	registrystore "github.com/chirino/spaces-sync-service/internal/registry/store"
)

// Ledger appends records to the sync stream and wakes long-poll readers.
// Every profile mutation goes through AddRecord (directly or via a split), so
// this is the single producer side of the sync system.
type Ledger struct {
	store    registrystore.Store
	notifier registrynotify.Notifier
}

func NewLedger(store registrystore.Store, notifier registrynotify.Notifier) *Ledger {
	return &Ledger{store: store, notifier: notifier}
}

// AddRecord appends one record addressed to affectedUserIDs and returns the
// new ledger ids. An empty recipient set is a no-op, not an error: a mutation
// that affects nobody still succeeded.
func (l *Ledger) AddRecord(ctx context.Context, affectedUserIDs []int64, creatorID int64, typ, itemID string, action model.SyncAction) ([]int64, error) {
	if len(affectedUserIDs) == 0 {
		return []int64{}, nil
	}
	deduped := dedupe(affectedUserIDs)
	id, err := l.store.AddSyncRecord(ctx, creatorID, typ, itemID, action, deduped)
	if err != nil {
		return nil, err
	}
	if l.notifier != nil {
		l.notifier.Notify(ctx, deduped)
	}
	return []int64{id}, nil
}

// Split partitions two recipient sets. Same holds the ids in both, Old only
// the first, New only the second.
type Split struct {
	Same []int64
	Old  []int64
	New  []int64
}

// SplitSameUsers computes the partition used when an item's audience changes,
// such as a move between spaces. Users in both audiences get an edit instead
// of a jarring delete-then-add pair. Every input id lands in exactly one
// partition, once, regardless of duplicates in the inputs.
func SplitSameUsers(oldUserIDs, newUserIDs []int64) Split {
	newSet := map[int64]bool{}
	for _, id := range newUserIDs {
		newSet[id] = true
	}
	var split Split
	seen := map[int64]bool{}
	for _, id := range oldUserIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if newSet[id] {
			split.Same = append(split.Same, id)
		} else {
			split.Old = append(split.Old, id)
		}
	}
	for _, id := range newUserIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		split.New = append(split.New, id)
	}
	return split
}

// SplitActions maps each split partition to the action its recipients see.
type SplitActions struct {
	Same model.SyncAction
	Old  model.SyncAction
	New  model.SyncAction
}

// AddRecordsFromSplit appends one record per non-empty partition and returns
// the combined ledger ids.
func (l *Ledger) AddRecordsFromSplit(ctx context.Context, creatorID int64, split Split, actions SplitActions, typ, itemID string) ([]int64, error) {
	syncIDs := []int64{}
	for _, part := range []struct {
		userIDs []int64
		action  model.SyncAction
	}{
		{split.Same, actions.Same},
		{split.Old, actions.Old},
		{split.New, actions.New},
	} {
		ids, err := l.AddRecord(ctx, part.userIDs, creatorID, typ, itemID, part.action)
		if err != nil {
			return nil, err
		}
		syncIDs = append(syncIDs, ids...)
	}
	return syncIDs, nil
}

func dedupe(ids []int64) []int64 {
	seen := map[int64]bool{}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
