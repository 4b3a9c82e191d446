package profile

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/chirino/spaces-sync-service/internal/model"
	registrystore "github.com/chirino/spaces-sync-service/internal/registry/store"
	"github.com/chirino/spaces-sync-service/internal/sync"
)

// SendInvite creates a pending invite addressed to an email. Inviting a
// current member is an error; re-sending an existing invite is a silent
// skip. Current members see a space edit, and the addressee (when they
// already have an account) sees the invite itself.
func (s *Service) SendInvite(ctx context.Context, userID int64, spaceID string, data map[string]any) (sync.Outcome, error) {
	id, err := itemID(data)
	if err != nil {
		return sync.Outcome{}, err
	}
	if asString(data["space_id"]) != spaceID {
		return sync.Outcome{}, &registrystore.ValidationError{Message: "space_id passed does not match space_id in data"}
	}
	toEmail := asString(data["to_user"])
	if toEmail == "" {
		return sync.Outcome{}, &registrystore.ValidationError{Message: "invite is missing the `to_user` email"}
	}
	if err := s.PermissionCheck(ctx, userID, spaceID, model.PermAddSpaceInvite); err != nil {
		return sync.Outcome{}, err
	}

	isMember, err := s.memberExists(ctx, spaceID, toEmail)
	if err != nil {
		return sync.Outcome{}, err
	}
	if isMember {
		return sync.Outcome{}, &registrystore.ValidationError{Message: "that user is already a member of this space"}
	}
	existing, err := s.store.InviteBySpaceEmail(ctx, spaceID, toEmail)
	if err != nil {
		return sync.Outcome{}, err
	}
	if existing != nil {
		item, err := decodeItem(existing.Data)
		if err != nil {
			return sync.Outcome{}, err
		}
		return sync.Outcome{
			Item:    item,
			SyncIDs: []int64{},
			Skipped: true,
			Reason:  fmt.Sprintf("an invite to %s for space %s already exists", toEmail, spaceID),
		}, nil
	}

	data["from_user_id"] = userID
	data["token_server"] = randomToken()
	blob, err := encodeItem(data)
	if err != nil {
		return sync.Outcome{}, err
	}
	invite := &model.Invite{
		ID:         id,
		SpaceID:    spaceID,
		FromUserID: userID,
		ToEmail:    toEmail,
		Data:       blob,
	}
	if err := s.store.CreateInvite(ctx, invite); err != nil {
		return sync.Outcome{}, err
	}

	// outbound mail is not this service's job; leave a trace instead
	log.Info("invite created, email delivery skipped", "space_id", spaceID, "to", toEmail, "invite_id", id)

	syncIDs, err := s.addSpaceEditRecord(ctx, userID, spaceID)
	if err != nil {
		return sync.Outcome{}, err
	}
	toUser, err := s.store.UserByEmail(ctx, toEmail)
	if err != nil {
		return sync.Outcome{}, err
	}
	if toUser != nil {
		inviteIDs, err := s.ledger.AddRecord(ctx, []int64{toUser.ID}, userID, model.TypeInvite, id, model.ActionAdd)
		if err != nil {
			return sync.Outcome{}, err
		}
		syncIDs = append(syncIDs, inviteIDs...)
	}
	return sync.Outcome{Item: data, SyncIDs: syncIDs}, nil
}

// AcceptInvite turns an invite into a membership. Only the addressee, with a
// confirmed account, may accept. The acceptor receives a space share record,
// which the reader later expands into the full space subtree.
func (s *Service) AcceptInvite(ctx context.Context, userID int64, spaceID, inviteID string) (map[string]any, []int64, error) {
	invite, err := s.store.InviteByID(ctx, spaceID, inviteID)
	if err != nil {
		return nil, nil, err
	}
	if invite == nil {
		return nil, nil, &registrystore.NotFoundError{Resource: model.TypeInvite, ID: inviteID}
	}
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || user.Email != invite.ToEmail {
		return nil, nil, &registrystore.ForbiddenError{Message: "that invite wasn't sent to your email"}
	}
	if !user.Confirmed {
		return nil, nil, &registrystore.ForbiddenError{Message: "you must confirm your account to accept an invite"}
	}
	inSpace, err := s.userIsInSpace(ctx, userID, spaceID)
	if err != nil {
		return nil, nil, err
	}
	if inSpace {
		return nil, nil, &registrystore.ConflictError{Message: fmt.Sprintf("you are already a member of space %s", spaceID)}
	}

	inviteData, err := decodeItem(invite.Data)
	if err != nil {
		return nil, nil, err
	}
	role := model.Role(asString(inviteData["role"]))
	if !model.ValidRole(role) {
		role = model.RoleGuest
	}
	if err := s.store.CreateMember(ctx, &model.SpaceMember{SpaceID: spaceID, UserID: userID, Role: role}); err != nil {
		return nil, nil, err
	}
	if err := s.store.DeleteInvite(ctx, spaceID, inviteID); err != nil {
		return nil, nil, err
	}

	syncIDs, err := s.ledger.AddRecord(ctx, []int64{userID}, userID, model.TypeSpace, spaceID, model.ActionShare)
	if err != nil {
		return nil, nil, err
	}
	inviteDel, err := s.ledger.AddRecord(ctx, []int64{userID}, userID, model.TypeInvite, inviteID, model.ActionDelete)
	if err != nil {
		return nil, nil, err
	}
	syncIDs = append(syncIDs, inviteDel...)
	editIDs, err := s.addSpaceEditRecord(ctx, userID, spaceID)
	if err != nil {
		return nil, nil, err
	}
	syncIDs = append(syncIDs, editIDs...)

	space, err := s.store.SpaceByID(ctx, spaceID)
	if err != nil {
		return nil, nil, err
	}
	spaceItem := map[string]any{"id": spaceID}
	if space != nil {
		items, err := s.spaceItems(ctx, []model.Space{*space}, false)
		if err != nil {
			return nil, nil, err
		}
		spaceItem = items[0]
	}
	return spaceItem, syncIDs, nil
}

// UpdateInvite changes a pending invite's role. The change shows up as a
// space edit to members, and as an invite edit to the addressee.
func (s *Service) UpdateInvite(ctx context.Context, userID int64, spaceID, inviteID string, role model.Role) (map[string]any, []int64, error) {
	if !model.ValidRole(role) {
		return nil, nil, &registrystore.ValidationError{Message: fmt.Sprintf("unknown role %q", role)}
	}
	if err := s.PermissionCheck(ctx, userID, spaceID, model.PermEditSpaceInvite); err != nil {
		return nil, nil, err
	}
	invite, err := s.store.InviteByID(ctx, spaceID, inviteID)
	if err != nil {
		return nil, nil, err
	}
	if invite == nil {
		return nil, nil, &registrystore.NotFoundError{Resource: model.TypeInvite, ID: fmt.Sprintf("%s (in space %s)", inviteID, spaceID)}
	}
	item, err := decodeItem(invite.Data)
	if err != nil {
		return nil, nil, err
	}
	item["role"] = string(role)
	blob, err := encodeItem(item)
	if err != nil {
		return nil, nil, err
	}
	invite.Data = blob
	if err := s.store.UpdateInvite(ctx, invite); err != nil {
		return nil, nil, err
	}

	syncIDs, err := s.addSpaceEditRecord(ctx, userID, spaceID)
	if err != nil {
		return nil, nil, err
	}
	ids, err := s.addInviteRecordForAddressee(ctx, userID, invite, model.ActionEdit)
	if err != nil {
		return nil, nil, err
	}
	syncIDs = append(syncIDs, ids...)

	linked, err := s.LinkInvites(ctx, []string{inviteID})
	if err != nil {
		return nil, nil, err
	}
	if len(linked) > 0 {
		item = linked[0]
	}
	return item, syncIDs, nil
}

// DeleteInvite withdraws a pending invite. Allowed for holders of the
// delete-space-invite permission and for the addressee declining their own
// invite.
func (s *Service) DeleteInvite(ctx context.Context, userID int64, spaceID, inviteID string) ([]int64, error) {
	invite, err := s.store.InviteByID(ctx, spaceID, inviteID)
	if err != nil {
		return nil, err
	}
	if invite == nil {
		return nil, &registrystore.NotFoundError{Resource: model.TypeInvite, ID: inviteID}
	}
	hasPerm, err := s.UserHasPermission(ctx, userID, spaceID, model.PermDeleteSpaceInvite)
	if err != nil {
		return nil, err
	}
	isInvitee := false
	if !hasPerm {
		user, err := s.store.UserByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		isInvitee = user != nil && user.Email == invite.ToEmail
	}
	if !hasPerm && !isInvitee {
		return nil, &registrystore.ForbiddenError{Message: "you do not have access to delete that invite"}
	}
	if err := s.store.DeleteInvite(ctx, spaceID, inviteID); err != nil {
		return nil, err
	}
	syncIDs, err := s.addSpaceEditRecord(ctx, userID, spaceID)
	if err != nil {
		return nil, err
	}
	delIDs, err := s.ledger.AddRecord(ctx, []int64{userID}, userID, model.TypeInvite, inviteID, model.ActionDelete)
	if err != nil {
		return nil, err
	}
	return append(syncIDs, delIDs...), nil
}

// addInviteRecordForAddressee writes an invite record to the addressee, if
// they have an account. An invite to an unregistered email has nobody to
// notify yet.
func (s *Service) addInviteRecordForAddressee(ctx context.Context, actorID int64, invite *model.Invite, action model.SyncAction) ([]int64, error) {
	toUser, err := s.store.UserByEmail(ctx, invite.ToEmail)
	if err != nil {
		return nil, err
	}
	if toUser == nil {
		return []int64{}, nil
	}
	return s.ledger.AddRecord(ctx, []int64{toUser.ID}, actorID, model.TypeInvite, invite.ID, action)
}

// LinkInvites hydrates invite items with the sender's id and username.
func (s *Service) LinkInvites(ctx context.Context, ids []string) ([]map[string]any, error) {
	invites, err := s.store.InvitesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return s.inviteItems(ctx, invites)
}

// InviteItemsByEmail returns the hydrated invites addressed to an email.
func (s *Service) InviteItemsByEmail(ctx context.Context, email string) ([]map[string]any, error) {
	if email == "" {
		return []map[string]any{}, nil
	}
	invites, err := s.store.InvitesByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.inviteItems(ctx, invites)
}

func (s *Service) inviteItems(ctx context.Context, invites []model.Invite) ([]map[string]any, error) {
	fromIDs := make([]int64, len(invites))
	for i, invite := range invites {
		fromIDs[i] = invite.FromUserID
	}
	users, err := s.store.UsersByIDs(ctx, fromIDs)
	if err != nil {
		return nil, err
	}
	emails := map[int64]string{}
	for _, u := range users {
		emails[u.ID] = u.Email
	}
	items := make([]map[string]any, 0, len(invites))
	for _, invite := range invites {
		item, err := decodeItem(invite.Data)
		if err != nil {
			return nil, err
		}
		item["id"] = invite.ID
		item["from_user_id"] = invite.FromUserID
		if email, ok := emails[invite.FromUserID]; ok {
			item["from_username"] = email
		}
		items = append(items, item)
	}
	return items, nil
}

// CleanInvite strips the server-side acceptance token before an invite item
// leaves the server.
func CleanInvite(item map[string]any) map[string]any {
	delete(item, "token_server")
	return item
}

func randomToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return hex.EncodeToString(buf)
}
