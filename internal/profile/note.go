package profile

import (
	"context"

	"github.com/chirino/spaces-sync-service/internal/model"
)

func (s *Service) noteOps() spaceItemOps {
	return spaceItemOps{
		typ:        model.TypeNote,
		addPerm:    model.PermAddNote,
		editPerm:   model.PermEditNote,
		deletePerm: model.PermDeleteNote,
		get: func(ctx context.Context, id string) (*spaceItemRow, error) {
			note, err := s.store.NoteByID(ctx, id)
			if err != nil || note == nil {
				return nil, err
			}
			item, err := decodeItem(note.Data)
			if err != nil {
				return nil, err
			}
			return &spaceItemRow{SpaceID: note.SpaceID, Item: item}, nil
		},
		insert: func(ctx context.Context, userID int64, id, spaceID string, item map[string]any) error {
			blob, err := encodeItem(item)
			if err != nil {
				return err
			}
			boardID, _ := item["board_id"].(string)
			return s.store.CreateNote(ctx, &model.Note{ID: id, SpaceID: spaceID, BoardID: boardID, UserID: userID, Data: blob})
		},
		update: func(ctx context.Context, id, spaceID string, item map[string]any) error {
			blob, err := encodeItem(item)
			if err != nil {
				return err
			}
			boardID, _ := item["board_id"].(string)
			return s.store.UpdateNote(ctx, &model.Note{ID: id, SpaceID: spaceID, BoardID: boardID, UserID: asInt64(item["user_id"]), Data: blob})
		},
		remove: func(ctx context.Context, id string) error {
			return s.store.DeleteNote(ctx, id)
		},
	}
}

// LinkNotes hydrates note items by id.
func (s *Service) LinkNotes(ctx context.Context, ids []string) ([]map[string]any, error) {
	notes, err := s.store.NotesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return noteItems(notes)
}

// NoteItems returns the decoded note items in the given spaces.
func (s *Service) NoteItems(ctx context.Context, spaceIDs []string) ([]map[string]any, error) {
	notes, err := s.store.NotesBySpaces(ctx, spaceIDs)
	if err != nil {
		return nil, err
	}
	return noteItems(notes)
}

func noteItems(notes []model.Note) ([]map[string]any, error) {
	items := make([]map[string]any, 0, len(notes))
	for _, note := range notes {
		item, err := decodeItem(note.Data)
		if err != nil {
			return nil, err
		}
		item["id"] = note.ID
		items = append(items, item)
	}
	return items, nil
}
