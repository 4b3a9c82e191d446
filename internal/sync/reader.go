package sync

import (
	"context"
	"sort"
	"time"

	"github.com/chirino/spaces-sync-service/internal/model"
	"github.com/chirino/spaces-sync-service/internal/security"
)

// SyncFrom returns the records addressed to userID after the sinceID cursor,
// hydrated, share-expanded and cleaned, plus the new cursor value. With poll
// set the call long-polls: it re-scans on wakeup or every poll interval until
// records arrive or the cutoff passes, and delays a non-empty result briefly
// so sibling fan-out rows from the same mutation are included.
func (e *Engine) SyncFrom(ctx context.Context, userID, sinceID int64, poll bool) ([]model.SyncRecord, int64, error) {
	if sinceID < 0 {
		return nil, 0, badRequest("sync cursor must not be negative: %d", sinceID)
	}
	records, err := e.pollRecords(ctx, userID, sinceID, poll)
	if err != nil {
		return nil, 0, err
	}
	records, latest, err := e.linkRecords(ctx, records)
	if err != nil {
		return nil, 0, err
	}
	records, err = e.populateShares(ctx, userID, records)
	if err != nil {
		return nil, 0, err
	}
	e.cleanRecords(records)
	if latest == 0 {
		latest = sinceID
	}
	return records, latest, nil
}

func (e *Engine) pollRecords(ctx context.Context, userID, sinceID int64, poll bool) ([]model.SyncRecord, error) {
	cutoff := time.Now().Add(e.pollCutoff)
	for {
		records, err := e.store.SyncSince(ctx, userID, sinceID)
		if err != nil {
			return nil, err
		}
		if len(records) > 0 || !poll || time.Now().After(cutoff) {
			if poll && len(records) > 0 {
				// The records we just read may be the leading edge of a
				// larger mutation still writing its fan-out rows. Settle,
				// then re-read so the client sees the whole batch.
				sleepCtx(ctx, e.settleDelay)
				if again, err := e.store.SyncSince(ctx, userID, sinceID); err == nil {
					records = again
				}
			}
			return records, nil
		}
		if security.SyncPollWaits != nil {
			security.SyncPollWaits.Inc()
		}
		e.notifier.Wait(ctx, userID, e.pollInterval)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// linkRecords hydrates each record's data from the live entity tables.
// Deletes become tombstones without a lookup. Returns the highest ledger id
// seen, 0 when there were no records.
func (e *Engine) linkRecords(ctx context.Context, records []model.SyncRecord) ([]model.SyncRecord, int64, error) {
	var latest int64
	byType := map[string][]int{}
	out := make([]model.SyncRecord, len(records))
	for i, rec := range records {
		if rec.ID > latest {
			latest = rec.ID
		}
		if rec.Action == model.ActionDelete {
			rec.Data = map[string]any{"id": rec.ItemID, "deleted": true}
		} else {
			byType[rec.Type] = append(byType[rec.Type], i)
		}
		out[i] = rec
	}
	for typ, indexes := range byType {
		handlers, ok := e.registry.Handlers(typ)
		if !ok || handlers.Link == nil {
			return nil, 0, badRequest("missing sync handler for type %q", typ)
		}
		itemIDs := make([]string, len(indexes))
		for i, idx := range indexes {
			itemIDs[i] = out[idx].ItemID
		}
		items, err := handlers.Link(ctx, itemIDs)
		if err != nil {
			return nil, 0, err
		}
		itemIndex := map[string]map[string]any{}
		for _, item := range items {
			itemIndex[coerceString(item["id"])] = item
		}
		for _, idx := range indexes {
			if item, found := itemIndex[out[idx].ItemID]; found {
				out[idx].Data = item
			} else {
				// The item was deleted after this record was written. The
				// client will see the delete further down the stream.
				out[idx].Data = map[string]any{"missing": true}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, latest, nil
}

// populateShares expands each space share or unshare record into synthetic
// add or delete records for the space and all of its boards and notes, so the
// recipient receives (or drops) the entire subtree in one poll. A record for
// a space that no longer exists passes through with its action rewritten.
func (e *Engine) populateShares(ctx context.Context, userID int64, records []model.SyncRecord) ([]model.SyncRecord, error) {
	populated := make([]model.SyncRecord, 0, len(records))
	for _, rec := range records {
		if rec.Type != model.TypeSpace || (rec.Action != model.ActionShare && rec.Action != model.ActionUnshare) {
			populated = append(populated, rec)
			continue
		}
		action := model.ActionAdd
		if rec.Action == model.ActionUnshare {
			action = model.ActionDelete
		}
		hasPerm, err := e.spaces.UserHasPermission(ctx, userID, rec.ItemID, model.PermAddSpaceInvite)
		if err != nil {
			return nil, err
		}
		space, boards, notes, err := e.spaces.DataTree(ctx, rec.ItemID, !hasPerm)
		if err != nil {
			return nil, err
		}
		if space == nil {
			rec.Action = action
			populated = append(populated, rec)
			continue
		}
		populated = append(populated, convertToSync(space, model.TypeSpace, action))
		for _, board := range boards {
			populated = append(populated, convertToSync(board, model.TypeBoard, action))
		}
		for _, note := range notes {
			populated = append(populated, convertToSync(note, model.TypeNote, action))
		}
	}
	return populated, nil
}

func (e *Engine) cleanRecords(records []model.SyncRecord) {
	for i, rec := range records {
		handlers, ok := e.registry.Handlers(rec.Type)
		if !ok || handlers.Clean == nil || rec.Data == nil {
			continue
		}
		records[i].Data = handlers.Clean(rec.Data)
	}
}
