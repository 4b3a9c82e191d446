package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/chirino/spaces-sync-service/internal/model"
	registrystore "github.com/chirino/spaces-sync-service/internal/registry/store"
	"github.com/chirino/spaces-sync-service/internal/security"
	"github.com/google/uuid"
)

// Item is one incoming mutation in a bulk batch. ID is the client's own
// identifier for the item and is echoed back untouched, so it stays raw.
type Item struct {
	ID     json.RawMessage  `json:"id"`
	Type   string           `json:"type"`
	Action model.SyncAction `json:"action"`
	Data   map[string]any   `json:"data"`
	Error  *ItemError       `json:"error,omitempty"`
}

// ItemError is a per-item failure, returned to the client inside the item.
type ItemError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// AppliedItem reports one successfully applied mutation. SyncIDs are the
// ledger ids the mutation appended; the client uses them to recognize its own
// records in the next poll.
type AppliedItem struct {
	ID      json.RawMessage  `json:"id"`
	UserID  int64            `json:"user_id"`
	ItemID  string           `json:"item_id"`
	Type    string           `json:"type"`
	Action  model.SyncAction `json:"action"`
	SyncIDs []int64          `json:"sync_ids"`
	Data    map[string]any   `json:"data"`
}

// BulkResult partitions a batch into applied items, items that failed, and
// items never attempted because the batch was cut short.
type BulkResult struct {
	Success  []AppliedItem `json:"success"`
	Failures []Item        `json:"failures"`
	Blocked  []Item        `json:"blocked"`
}

// BulkApply applies a batch of incoming mutations strictly in order. One
// item's failure does not stop the batch: the error is captured on the item
// and processing continues, since later items are usually independent. Items
// land in Blocked only when the batch aborts before reaching them, which
// happens on context cancellation. The batch is truncated to the configured
// cap before any work happens.
func (e *Engine) BulkApply(ctx context.Context, userID int64, items []Item, client string) (*BulkResult, error) {
	if e.maxBulk > 0 && len(items) > e.maxBulk {
		items = items[:e.maxBulk]
	}

	// the batch id ties per-item failure logs back to this batch
	batchID := uuid.NewString()
	breakdown := map[string]int{}
	for _, item := range items {
		breakdown[item.Type+"."+string(item.Action)]++
	}
	log.Info("applying bulk sync batch", "batch", batchID, "user_id", userID, "items", len(items), "breakdown", breakdown, "client", client)

	result := &BulkResult{
		Success:  []AppliedItem{},
		Failures: []Item{},
		Blocked:  []Item{},
	}
	for i := range items {
		if ctx.Err() != nil {
			result.Blocked = append(result.Blocked, items[i:]...)
			break
		}
		item := items[i]
		applied, err := e.applyOne(ctx, userID, item)
		outcome := "success"
		if err != nil {
			outcome = "failure"
			log.Error("bulk sync item failed", "batch", batchID, "user_id", userID, "type", item.Type, "action", item.Action, "error", err)
			item.Error = &ItemError{Code: statusOf(err), Msg: err.Error()}
			result.Failures = append(result.Failures, item)
		} else {
			result.Success = append(result.Success, applied)
		}
		if security.SyncItemsTotal != nil {
			security.SyncItemsTotal.WithLabelValues(item.Type, string(item.Action), outcome).Inc()
		}
	}
	return result, nil
}

func (e *Engine) applyOne(ctx context.Context, userID int64, item Item) (applied AppliedItem, err error) {
	// A panicking handler must not take the rest of the batch down with it.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sync handler panic: %v", r)
		}
	}()

	handlers, ok := e.registry.Handlers(item.Type)
	if !ok {
		return applied, badRequest("missing sync handler for type %q", item.Type)
	}
	applied = AppliedItem{
		ID:     item.ID,
		UserID: userID,
		Type:   item.Type,
		Action: item.Action,
	}

	if item.Action == model.ActionDelete {
		if handlers.Delete == nil {
			return applied, badRequest("missing sync handler for %q.%s (allowed actions for %s: [%s])", item.Type, item.Action, item.Type, handlers.allowedActions())
		}
		itemID := coerceString(item.Data["id"])
		if itemID == "" {
			return applied, badRequest("delete for type %q is missing the item id", item.Type)
		}
		syncIDs, err := handlers.Delete(ctx, userID, itemID)
		if err != nil {
			return applied, err
		}
		applied.ItemID = itemID
		applied.SyncIDs = syncIDs
		applied.Data = map[string]any{"id": itemID}
		return applied, nil
	}

	mutate := handlers.Mutate[item.Action]
	if mutate == nil {
		return applied, badRequest("missing sync handler for %q.%s (allowed actions for %s: [%s])", item.Type, item.Action, item.Type, handlers.allowedActions())
	}
	outcome, err := mutate(ctx, userID, item.Data)
	if err != nil {
		return applied, err
	}
	if outcome.Skipped {
		log.Debug("sync item skipped", "user_id", userID, "type", item.Type, "action", item.Action, "reason", outcome.Reason)
	}
	applied.ItemID = coerceString(outcome.Item["id"])
	applied.SyncIDs = outcome.SyncIDs
	applied.Data = outcome.Item
	return applied, nil
}

// statusOf maps handler errors to the HTTP-ish codes clients key retry
// behavior on.
func statusOf(err error) int {
	var notFound *registrystore.NotFoundError
	var validation *registrystore.ValidationError
	var conflict *registrystore.ConflictError
	var forbidden *registrystore.ForbiddenError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
