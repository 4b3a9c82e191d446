package profile

import (
	"context"
	"fmt"

	"github.com/chirino/spaces-sync-service/internal/model"
	registrystore "github.com/chirino/spaces-sync-service/internal/registry/store"
	"github.com/chirino/spaces-sync-service/internal/sync"
)

// AddSpace creates a space and makes the creator its owner member. Only the
// creator sees the add record; sharing happens through invites.
func (s *Service) AddSpace(ctx context.Context, userID int64, data map[string]any) (sync.Outcome, error) {
	data["user_id"] = userID
	id, err := itemID(data)
	if err != nil {
		return sync.Outcome{}, err
	}
	blob, err := encodeItem(data)
	if err != nil {
		return sync.Outcome{}, err
	}
	if err := s.store.CreateSpace(ctx, &model.Space{ID: id, UserID: userID, Data: blob}); err != nil {
		return sync.Outcome{}, err
	}
	if err := s.store.CreateMember(ctx, &model.SpaceMember{SpaceID: id, UserID: userID, Role: model.RoleOwner}); err != nil {
		return sync.Outcome{}, err
	}
	syncIDs, err := s.ledger.AddRecord(ctx, []int64{userID}, userID, model.TypeSpace, id, model.ActionAdd)
	if err != nil {
		return sync.Outcome{}, err
	}
	item, err := s.populateOneSpace(ctx, id, data)
	if err != nil {
		return sync.Outcome{}, err
	}
	return sync.Outcome{Item: item, SyncIDs: syncIDs}, nil
}

func (s *Service) EditSpace(ctx context.Context, userID int64, data map[string]any) (sync.Outcome, error) {
	id, err := itemID(data)
	if err != nil {
		return sync.Outcome{}, err
	}
	if err := s.PermissionCheck(ctx, userID, id, model.PermEditSpace); err != nil {
		return sync.Outcome{}, err
	}
	space, err := s.store.SpaceByID(ctx, id)
	if err != nil {
		return sync.Outcome{}, err
	}
	if space == nil {
		return sync.Outcome{}, &registrystore.NotFoundError{Resource: model.TypeSpace, ID: id}
	}
	// ownership travels through set-owner, never a plain edit
	data["user_id"] = space.UserID
	blob, err := encodeItem(data)
	if err != nil {
		return sync.Outcome{}, err
	}
	if err := s.store.UpdateSpace(ctx, id, space.UserID, blob); err != nil {
		return sync.Outcome{}, err
	}
	syncIDs, err := s.addSpaceEditRecord(ctx, userID, id)
	if err != nil {
		return sync.Outcome{}, err
	}
	item, err := s.populateOneSpace(ctx, id, data)
	if err != nil {
		return sync.Outcome{}, err
	}
	return sync.Outcome{Item: item, SyncIDs: syncIDs}, nil
}

// DeleteSpace removes a space and everything in it. Owner only. Every member
// receives the delete record since their copy of the whole subtree is gone.
func (s *Service) DeleteSpace(ctx context.Context, userID int64, id string) ([]int64, error) {
	if err := s.PermissionCheck(ctx, userID, id, model.PermDeleteSpace); err != nil {
		return nil, err
	}
	affected, err := s.store.MemberIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteSpace(ctx, id); err != nil {
		return nil, err
	}
	return s.ledger.AddRecord(ctx, affected, userID, model.TypeSpace, id, model.ActionDelete)
}

// SetSpaceOwner reassigns a space's owner field inside the item blob. Owner
// only.
func (s *Service) SetSpaceOwner(ctx context.Context, userID int64, data map[string]any) (sync.Outcome, error) {
	id, err := itemID(data)
	if err != nil {
		return sync.Outcome{}, err
	}
	newOwnerID := asInt64(data["user_id"])
	if newOwnerID == 0 {
		return sync.Outcome{}, &registrystore.ValidationError{Message: "set-owner is missing the new `user_id`"}
	}
	if err := s.PermissionCheck(ctx, userID, id, model.PermSetSpaceOwner); err != nil {
		return sync.Outcome{}, err
	}
	space, err := s.store.SpaceByID(ctx, id)
	if err != nil {
		return sync.Outcome{}, err
	}
	if space == nil {
		return sync.Outcome{}, &registrystore.NotFoundError{Resource: model.TypeSpace, ID: id}
	}
	item, err := decodeItem(space.Data)
	if err != nil {
		return sync.Outcome{}, err
	}
	item["user_id"] = newOwnerID
	blob, err := encodeItem(item)
	if err != nil {
		return sync.Outcome{}, err
	}
	if err := s.store.UpdateSpace(ctx, id, newOwnerID, blob); err != nil {
		return sync.Outcome{}, err
	}
	syncIDs, err := s.addSpaceEditRecord(ctx, userID, id)
	if err != nil {
		return sync.Outcome{}, err
	}
	return sync.Outcome{Item: item, SyncIDs: syncIDs}, nil
}

// LinkSpaces hydrates space items with their member and invite lists.
func (s *Service) LinkSpaces(ctx context.Context, ids []string) ([]map[string]any, error) {
	spaces, err := s.store.SpacesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return s.spaceItems(ctx, spaces, false)
}

// DataTree returns a space item plus every board and note item it contains.
// A missing space returns all nils so share expansion can degrade instead of
// failing the whole poll.
func (s *Service) DataTree(ctx context.Context, spaceID string, skipInvites bool) (map[string]any, []map[string]any, []map[string]any, error) {
	space, err := s.store.SpaceByID(ctx, spaceID)
	if err != nil {
		return nil, nil, nil, err
	}
	if space == nil {
		return nil, nil, nil, nil
	}
	items, err := s.spaceItems(ctx, []model.Space{*space}, skipInvites)
	if err != nil {
		return nil, nil, nil, err
	}
	boards, err := s.BoardItems(ctx, []string{spaceID})
	if err != nil {
		return nil, nil, nil, err
	}
	notes, err := s.NoteItems(ctx, []string{spaceID})
	if err != nil {
		return nil, nil, nil, err
	}
	return items[0], boards, notes, nil
}

// UpdateMember changes a member's role. The owner's membership is immutable;
// ownership moves only through set-owner. Members learn about the change
// through a space edit record.
func (s *Service) UpdateMember(ctx context.Context, userID int64, spaceID string, memberUserID int64, role model.Role) (map[string]any, []int64, error) {
	if !model.ValidRole(role) {
		return nil, nil, &registrystore.ValidationError{Message: fmt.Sprintf("unknown role %q", role)}
	}
	if err := s.PermissionCheck(ctx, userID, spaceID, model.PermEditSpaceMember); err != nil {
		return nil, nil, err
	}
	member, err := s.store.Member(ctx, spaceID, memberUserID)
	if err != nil {
		return nil, nil, err
	}
	if member == nil {
		return nil, nil, &registrystore.ValidationError{Message: "that member wasn't found"}
	}
	if member.Role == model.RoleOwner {
		return nil, nil, &registrystore.ValidationError{Message: "you cannot edit the owner"}
	}
	if err := s.store.UpdateMemberRole(ctx, spaceID, memberUserID, role); err != nil {
		return nil, nil, err
	}
	syncIDs, err := s.addSpaceEditRecord(ctx, userID, spaceID)
	if err != nil {
		return nil, nil, err
	}
	member.Role = role
	return memberItem(*member, ""), syncIDs, nil
}

// DeleteMember removes a member from a space. Anyone may remove themself;
// removing someone else needs the delete-space-member permission. The owner
// cannot be removed. Remaining members see a space edit, the removed member
// sees a space delete since the space is gone from their profile.
func (s *Service) DeleteMember(ctx context.Context, userID int64, spaceID string, memberUserID int64) ([]int64, error) {
	hasPerm, err := s.UserHasPermission(ctx, userID, spaceID, model.PermDeleteSpaceMember)
	if err != nil {
		return nil, err
	}
	if !hasPerm && userID != memberUserID {
		return nil, &registrystore.ForbiddenError{Message: "you do not have permission to remove that user"}
	}
	member, err := s.store.Member(ctx, spaceID, memberUserID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, &registrystore.NotFoundError{Resource: "space member", ID: fmt.Sprintf("%s/%d", spaceID, memberUserID)}
	}
	if member.Role == model.RoleOwner {
		return nil, &registrystore.ValidationError{Message: "you cannot delete the owner"}
	}
	if err := s.store.DeleteMember(ctx, spaceID, memberUserID); err != nil {
		return nil, err
	}
	editIDs, err := s.addSpaceEditRecord(ctx, userID, spaceID)
	if err != nil {
		return nil, err
	}
	deleteIDs, err := s.ledger.AddRecord(ctx, []int64{memberUserID}, userID, model.TypeSpace, spaceID, model.ActionDelete)
	if err != nil {
		return nil, err
	}
	return append(editIDs, deleteIDs...), nil
}

// memberExists reports whether the email belongs to a current member.
func (s *Service) memberExists(ctx context.Context, spaceID, email string) (bool, error) {
	user, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	return s.userIsInSpace(ctx, user.ID, spaceID)
}

// addSpaceEditRecord fans a space edit out to the space's current members.
func (s *Service) addSpaceEditRecord(ctx context.Context, actorID int64, spaceID string) ([]int64, error) {
	userIDs, err := s.store.MemberIDs(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	return s.ledger.AddRecord(ctx, userIDs, actorID, model.TypeSpace, spaceID, model.ActionEdit)
}

// spaceItems decodes space rows and attaches members plus pending invites.
func (s *Service) spaceItems(ctx context.Context, spaces []model.Space, skipInvites bool) ([]map[string]any, error) {
	if len(spaces) == 0 {
		return []map[string]any{}, nil
	}
	spaceIDs := make([]string, len(spaces))
	items := make([]map[string]any, len(spaces))
	index := map[string]map[string]any{}
	for i, space := range spaces {
		item, err := decodeItem(space.Data)
		if err != nil {
			return nil, err
		}
		item["id"] = space.ID
		spaceIDs[i] = space.ID
		items[i] = item
		index[space.ID] = item
	}

	members, err := s.store.MembersBySpaces(ctx, spaceIDs)
	if err != nil {
		return nil, err
	}
	memberUserIDs := make([]int64, len(members))
	for i, m := range members {
		memberUserIDs[i] = m.UserID
	}
	users, err := s.store.UsersByIDs(ctx, memberUserIDs)
	if err != nil {
		return nil, err
	}
	emails := map[int64]string{}
	for _, u := range users {
		emails[u.ID] = u.Email
	}
	for _, m := range members {
		item := index[m.SpaceID]
		if item == nil {
			continue
		}
		list, _ := item["members"].([]map[string]any)
		item["members"] = append(list, memberItem(m, emails[m.UserID]))
	}

	if !skipInvites {
		invites, err := s.store.InvitesBySpaces(ctx, spaceIDs)
		if err != nil {
			return nil, err
		}
		for _, invite := range invites {
			item := index[invite.SpaceID]
			if item == nil {
				continue
			}
			inviteData, err := decodeItem(invite.Data)
			if err != nil {
				return nil, err
			}
			// the acceptance token stays server-side; space records reach
			// every member, not just the inviter
			list, _ := item["invites"].([]map[string]any)
			item["invites"] = append(list, CleanInvite(inviteData))
		}
	}
	return items, nil
}

func (s *Service) populateOneSpace(ctx context.Context, spaceID string, data map[string]any) (map[string]any, error) {
	space, err := s.store.SpaceByID(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	if space == nil {
		return data, nil
	}
	items, err := s.spaceItems(ctx, []model.Space{*space}, false)
	if err != nil {
		return nil, err
	}
	return items[0], nil
}

func memberItem(m model.SpaceMember, email string) map[string]any {
	item := map[string]any{
		"id":       m.ID,
		"space_id": m.SpaceID,
		"user_id":  m.UserID,
		"role":     string(m.Role),
	}
	if email != "" {
		item["username"] = email
	}
	return item
}
