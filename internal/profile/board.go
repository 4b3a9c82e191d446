package profile

import (
	"context"

	"github.com/chirino/spaces-sync-service/internal/model"
	"github.com/chirino/spaces-sync-service/internal/sync"
)

func (s *Service) boardOps() spaceItemOps {
	return spaceItemOps{
		typ:        model.TypeBoard,
		addPerm:    model.PermAddBoard,
		editPerm:   model.PermEditBoard,
		deletePerm: model.PermDeleteBoard,
		get: func(ctx context.Context, id string) (*spaceItemRow, error) {
			board, err := s.store.BoardByID(ctx, id)
			if err != nil || board == nil {
				return nil, err
			}
			item, err := decodeItem(board.Data)
			if err != nil {
				return nil, err
			}
			return &spaceItemRow{SpaceID: board.SpaceID, Item: item}, nil
		},
		insert: func(ctx context.Context, userID int64, id, spaceID string, item map[string]any) error {
			blob, err := encodeItem(item)
			if err != nil {
				return err
			}
			return s.store.CreateBoard(ctx, &model.Board{ID: id, SpaceID: spaceID, UserID: userID, Data: blob})
		},
		update: func(ctx context.Context, id, spaceID string, item map[string]any) error {
			blob, err := encodeItem(item)
			if err != nil {
				return err
			}
			return s.store.UpdateBoard(ctx, &model.Board{ID: id, SpaceID: spaceID, UserID: asInt64(item["user_id"]), Data: blob})
		},
		remove: func(ctx context.Context, id string) error {
			return s.store.DeleteBoard(ctx, id)
		},
		postMove: s.moveBoardNotes,
	}
}

// moveBoardNotes carries a moved board's notes into the destination space,
// with the same split fan-out per note the board itself got.
func (s *Service) moveBoardNotes(ctx context.Context, userID int64, boardID, oldSpaceID, newSpaceID string) ([]int64, error) {
	notes, err := s.store.NotesBySpaceBoard(ctx, oldSpaceID, boardID)
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return []int64{}, nil
	}
	split, err := s.audienceSplit(ctx, oldSpaceID, newSpaceID)
	if err != nil {
		return nil, err
	}
	syncIDs := []int64{}
	for i := range notes {
		note := notes[i]
		item, err := decodeItem(note.Data)
		if err != nil {
			return nil, err
		}
		item["space_id"] = newSpaceID
		blob, err := encodeItem(item)
		if err != nil {
			return nil, err
		}
		note.SpaceID = newSpaceID
		note.Data = blob
		if err := s.store.UpdateNote(ctx, &note); err != nil {
			return nil, err
		}
		ids, err := s.ledger.AddRecordsFromSplit(ctx, userID, split, moveActions, model.TypeNote, note.ID)
		if err != nil {
			return nil, err
		}
		syncIDs = append(syncIDs, ids...)
	}
	return syncIDs, nil
}

// LinkBoards hydrates board items by id.
func (s *Service) LinkBoards(ctx context.Context, ids []string) ([]map[string]any, error) {
	boards, err := s.store.BoardsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(boards))
	for _, board := range boards {
		item, err := decodeItem(board.Data)
		if err != nil {
			return nil, err
		}
		item["id"] = board.ID
		items = append(items, item)
	}
	return items, nil
}

// BoardItems returns the decoded board items in the given spaces.
func (s *Service) BoardItems(ctx context.Context, spaceIDs []string) ([]map[string]any, error) {
	boards, err := s.store.BoardsBySpaces(ctx, spaceIDs)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(boards))
	for _, board := range boards {
		item, err := decodeItem(board.Data)
		if err != nil {
			return nil, err
		}
		item["id"] = board.ID
		items = append(items, item)
	}
	return items, nil
}

var _ sync.SpaceSource = (*Service)(nil)
