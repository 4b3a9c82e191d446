package profile

import (
	"context"
	"fmt"

	"github.com/chirino/spaces-sync-service/internal/model"
	registrystore "github.com/chirino/spaces-sync-service/internal/registry/store"
	"github.com/chirino/spaces-sync-service/internal/sync"
)

// spaceItemRow is a space-scoped entity viewed generically: its containing
// space plus the decoded item blob.
type spaceItemRow struct {
	SpaceID string
	Item    map[string]any
}

// spaceItemOps adapts one space-scoped entity type (board, note) to the
// shared add/edit/delete/move flows below. The closures wrap the concrete
// store calls; everything else (validation, permission checks, fan-out) is
// identical across types.
type spaceItemOps struct {
	typ        string
	addPerm    model.Permission
	editPerm   model.Permission
	deletePerm model.Permission

	get    func(ctx context.Context, id string) (*spaceItemRow, error)
	insert func(ctx context.Context, userID int64, id, spaceID string, item map[string]any) error
	update func(ctx context.Context, id, spaceID string, item map[string]any) error
	remove func(ctx context.Context, id string) error

	// postMove runs after a move's own fan-out, for cascades such as a
	// board carrying its notes along. Returns additional ledger ids.
	postMove func(ctx context.Context, userID int64, id, oldSpaceID, newSpaceID string) ([]int64, error)
}

func (s *Service) simpleAdd(ops spaceItemOps) sync.MutateFunc {
	return func(ctx context.Context, userID int64, data map[string]any) (sync.Outcome, error) {
		data["user_id"] = userID
		id, err := itemID(data)
		if err != nil {
			return sync.Outcome{}, err
		}
		spaceID, _ := data["space_id"].(string)
		if spaceID == "" {
			return sync.Outcome{}, &registrystore.ValidationError{Message: ops.typ + " is missing the `space_id` field"}
		}
		if err := s.PermissionCheck(ctx, userID, spaceID, ops.addPerm); err != nil {
			return sync.Outcome{}, err
		}
		if err := ops.insert(ctx, userID, id, spaceID, data); err != nil {
			return sync.Outcome{}, err
		}
		userIDs, err := s.store.MemberIDs(ctx, spaceID)
		if err != nil {
			return sync.Outcome{}, err
		}
		syncIDs, err := s.ledger.AddRecord(ctx, userIDs, userID, ops.typ, id, model.ActionAdd)
		if err != nil {
			return sync.Outcome{}, err
		}
		return sync.Outcome{Item: data, SyncIDs: syncIDs}, nil
	}
}

func (s *Service) simpleEdit(ops spaceItemOps) sync.MutateFunc {
	return func(ctx context.Context, userID int64, data map[string]any) (sync.Outcome, error) {
		id, err := itemID(data)
		if err != nil {
			return sync.Outcome{}, err
		}
		existing, err := ops.get(ctx, id)
		if err != nil {
			return sync.Outcome{}, err
		}
		if existing == nil {
			return sync.Outcome{}, &registrystore.NotFoundError{Resource: ops.typ, ID: id}
		}
		// the client does not get to reassign ownership or space through an edit
		data["user_id"] = existing.Item["user_id"]
		data["space_id"] = existing.SpaceID
		if err := s.PermissionCheck(ctx, userID, existing.SpaceID, ops.editPerm); err != nil {
			return sync.Outcome{}, err
		}
		if err := ops.update(ctx, id, existing.SpaceID, data); err != nil {
			return sync.Outcome{}, err
		}
		userIDs, err := s.store.MemberIDs(ctx, existing.SpaceID)
		if err != nil {
			return sync.Outcome{}, err
		}
		syncIDs, err := s.ledger.AddRecord(ctx, userIDs, userID, ops.typ, id, model.ActionEdit)
		if err != nil {
			return sync.Outcome{}, err
		}
		return sync.Outcome{Item: data, SyncIDs: syncIDs}, nil
	}
}

func (s *Service) simpleDelete(ops spaceItemOps) sync.DeleteFunc {
	return func(ctx context.Context, userID int64, id string) ([]int64, error) {
		existing, err := ops.get(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			// deleting something already gone is not an error worth failing
			// a batch over
			return []int64{}, nil
		}
		if err := s.PermissionCheck(ctx, userID, existing.SpaceID, ops.deletePerm); err != nil {
			return nil, err
		}
		if err := ops.remove(ctx, id); err != nil {
			return nil, err
		}
		userIDs, err := s.store.MemberIDs(ctx, existing.SpaceID)
		if err != nil {
			return nil, err
		}
		return s.ledger.AddRecord(ctx, userIDs, userID, ops.typ, id, model.ActionDelete)
	}
}

// simpleMoveSpace moves an item between spaces. The actor needs delete
// permission in the source and add permission in the destination. Fan-out is
// a split: users in both spaces see an edit, users only in the source see a
// delete, users only in the destination see an add.
func (s *Service) simpleMoveSpace(ops spaceItemOps) sync.MutateFunc {
	return func(ctx context.Context, userID int64, data map[string]any) (sync.Outcome, error) {
		id, err := itemID(data)
		if err != nil {
			return sync.Outcome{}, err
		}
		newSpaceID, _ := data["space_id"].(string)
		if newSpaceID == "" {
			return sync.Outcome{}, &registrystore.ValidationError{Message: ops.typ + " move is missing the `space_id` field"}
		}
		existing, err := ops.get(ctx, id)
		if err != nil {
			return sync.Outcome{}, err
		}
		if existing == nil {
			return sync.Outcome{}, &registrystore.NotFoundError{Resource: ops.typ, ID: id}
		}
		oldSpaceID := existing.SpaceID
		if oldSpaceID == newSpaceID {
			return sync.Outcome{
				Item:    existing.Item,
				SyncIDs: []int64{},
				Skipped: true,
				Reason:  fmt.Sprintf("%s %s is already in space %s", ops.typ, id, newSpaceID),
			}, nil
		}
		if err := s.PermissionCheck(ctx, userID, oldSpaceID, ops.deletePerm); err != nil {
			return sync.Outcome{}, err
		}
		if err := s.PermissionCheck(ctx, userID, newSpaceID, ops.addPerm); err != nil {
			return sync.Outcome{}, err
		}

		item := existing.Item
		item["space_id"] = newSpaceID
		if err := ops.update(ctx, id, newSpaceID, item); err != nil {
			return sync.Outcome{}, err
		}

		split, err := s.audienceSplit(ctx, oldSpaceID, newSpaceID)
		if err != nil {
			return sync.Outcome{}, err
		}
		syncIDs, err := s.ledger.AddRecordsFromSplit(ctx, userID, split, moveActions, ops.typ, id)
		if err != nil {
			return sync.Outcome{}, err
		}
		if ops.postMove != nil {
			cascadeIDs, err := ops.postMove(ctx, userID, id, oldSpaceID, newSpaceID)
			if err != nil {
				return sync.Outcome{}, err
			}
			syncIDs = append(syncIDs, cascadeIDs...)
		}
		return sync.Outcome{Item: item, SyncIDs: syncIDs}, nil
	}
}

// moveActions is the fan-out action map for everything that changes spaces.
var moveActions = sync.SplitActions{
	Same: model.ActionEdit,
	Old:  model.ActionDelete,
	New:  model.ActionAdd,
}

func (s *Service) audienceSplit(ctx context.Context, oldSpaceID, newSpaceID string) (sync.Split, error) {
	oldIDs, err := s.store.MemberIDs(ctx, oldSpaceID)
	if err != nil {
		return sync.Split{}, err
	}
	newIDs, err := s.store.MemberIDs(ctx, newSpaceID)
	if err != nil {
		return sync.Split{}, err
	}
	return sync.SplitSameUsers(oldIDs, newIDs), nil
}
