package profile

import (
	"github.com/chirino/spaces-sync-service/internal/model"
	"github.com/chirino/spaces-sync-service/internal/sync"
)

// BuildRegistry wires every item type's handlers into a sync registry. This
// is the one place the action surface of each type is declared; the caller
// runs Verify before serving.
func BuildRegistry(s *Service) *sync.Registry {
	r := sync.NewRegistry()

	r.Register(model.TypeSpace, sync.Handlers{
		Mutate: map[model.SyncAction]sync.MutateFunc{
			model.ActionAdd:      s.AddSpace,
			model.ActionEdit:     s.EditSpace,
			model.ActionSetOwner: s.SetSpaceOwner,
		},
		Delete: s.DeleteSpace,
		Link:   s.LinkSpaces,
	})

	boardOps := s.boardOps()
	r.Register(model.TypeBoard, sync.Handlers{
		Mutate: map[model.SyncAction]sync.MutateFunc{
			model.ActionAdd:       s.simpleAdd(boardOps),
			model.ActionEdit:      s.simpleEdit(boardOps),
			model.ActionMoveSpace: s.simpleMoveSpace(boardOps),
		},
		Delete: s.simpleDelete(boardOps),
		Link:   s.LinkBoards,
	})

	noteOps := s.noteOps()
	r.Register(model.TypeNote, sync.Handlers{
		Mutate: map[model.SyncAction]sync.MutateFunc{
			model.ActionAdd:       s.simpleAdd(noteOps),
			model.ActionEdit:      s.simpleEdit(noteOps),
			model.ActionMoveSpace: s.simpleMoveSpace(noteOps),
		},
		Delete: s.simpleDelete(noteOps),
		Link:   s.LinkNotes,
	})

	r.Register(model.TypeKeychain, sync.Handlers{
		Mutate: map[model.SyncAction]sync.MutateFunc{
			model.ActionAdd:  s.AddKeychainEntry,
			model.ActionEdit: s.EditKeychainEntry,
		},
		Delete: s.DeleteKeychainEntry,
		Link:   s.LinkKeychain,
	})

	r.Register(model.TypeUser, sync.Handlers{
		Mutate: map[model.SyncAction]sync.MutateFunc{
			model.ActionEdit: s.EditUser,
		},
		Link:  s.LinkUsers,
		Clean: CleanUser,
	})

	// invites mutate through their own endpoints, not the bulk applier
	r.Register(model.TypeInvite, sync.Handlers{
		Link:  s.LinkInvites,
		Clean: CleanInvite,
	})

	return r
}
