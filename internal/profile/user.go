package profile

import (
	"context"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/chirino/spaces-sync-service/internal/model"
	registrystore "github.com/chirino/spaces-sync-service/internal/registry/store"
	"github.com/chirino/spaces-sync-service/internal/sync"
)

// Join creates an account. Token hashing happens upstream; the token arrives
// opaque and is stored as-is. Accounts are created confirmed since outbound
// confirmation email is out of scope here. Any invites already addressed to
// the email are surfaced to the new account right away.
func (s *Service) Join(ctx context.Context, email, authToken string, data map[string]any) (map[string]any, error) {
	if email == "" {
		return nil, &registrystore.ValidationError{Message: "missing `username` key (should be a valid email)"}
	}
	if authToken == "" {
		return nil, &registrystore.ValidationError{Message: "missing `auth` key"}
	}
	existing, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &registrystore.ConflictError{Message: "the username \"" + email + "\" already exists"}
	}
	blob, err := encodeItem(data)
	if err != nil {
		return nil, err
	}
	user := &model.User{Email: email, AuthToken: authToken, Confirmed: true, Data: blob}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	log.Info("user joined", "user_id", user.ID, "email", email)

	if err := s.surfaceInvitesForEmail(ctx, user.ID, email); err != nil {
		return nil, err
	}
	return userItem(*user, data), nil
}

// surfaceInvitesForEmail writes an invite add record to the user for every
// pending invite addressed to their email, so invites sent before the
// account existed show up on first sync.
func (s *Service) surfaceInvitesForEmail(ctx context.Context, userID int64, email string) error {
	invites, err := s.store.InvitesByEmail(ctx, email)
	if err != nil {
		return err
	}
	for _, invite := range invites {
		if _, err := s.ledger.AddRecord(ctx, []int64{userID}, userID, model.TypeInvite, invite.ID, model.ActionAdd); err != nil {
			return err
		}
	}
	return nil
}

// EditUser updates the caller's own profile blob. The recipient set is
// deliberately empty: the editing device already has the data, and user
// records are never shared, so a ledger record would only be noise.
func (s *Service) EditUser(ctx context.Context, userID int64, data map[string]any) (sync.Outcome, error) {
	if asInt64(data["id"]) != userID {
		return sync.Outcome{}, &registrystore.ForbiddenError{Message: "you cannot edit someone else's user record"}
	}
	blob, err := encodeItem(data)
	if err != nil {
		return sync.Outcome{}, err
	}
	if err := s.store.UpdateUserData(ctx, userID, blob); err != nil {
		return sync.Outcome{}, err
	}
	syncIDs, err := s.ledger.AddRecord(ctx, []int64{}, userID, model.TypeUser, strconv.FormatInt(userID, 10), model.ActionEdit)
	if err != nil {
		return sync.Outcome{}, err
	}
	return sync.Outcome{Item: data, SyncIDs: syncIDs}, nil
}

// ChangePassword swaps the auth token and the re-encrypted profile blob, and
// tells the user's other devices to re-authenticate via a change-password
// record addressed to the account itself.
func (s *Service) ChangePassword(ctx context.Context, userID int64, newToken string, data map[string]any) ([]int64, error) {
	if newToken == "" {
		return nil, &registrystore.ValidationError{Message: "missing the new `auth` token"}
	}
	if err := s.store.UpdateUserToken(ctx, userID, newToken); err != nil {
		return nil, err
	}
	if data != nil {
		blob, err := encodeItem(data)
		if err != nil {
			return nil, err
		}
		if err := s.store.UpdateUserData(ctx, userID, blob); err != nil {
			return nil, err
		}
	}
	return s.ledger.AddRecord(ctx, []int64{userID}, userID, model.TypeUser, strconv.FormatInt(userID, 10), model.ActionChangePassword)
}

// UserItem returns the user's own item map, nil when the account is gone.
func (s *Service) UserItem(ctx context.Context, userID int64) (map[string]any, error) {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	data, err := decodeItem(user.Data)
	if err != nil {
		return nil, err
	}
	return userItem(*user, data), nil
}

// SpaceItems returns the user's space items with invite lists stripped where
// the user lacks the add-space-invite permission, plus the space ids.
func (s *Service) SpaceItems(ctx context.Context, userID int64) ([]map[string]any, []string, error) {
	spaces, err := s.store.SpacesByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.spaceItems(ctx, spaces, false)
	if err != nil {
		return nil, nil, err
	}
	spaceIDs := make([]string, len(spaces))
	for i, space := range spaces {
		spaceIDs[i] = space.ID
		canSeeInvites, err := s.UserHasPermission(ctx, userID, space.ID, model.PermAddSpaceInvite)
		if err != nil {
			return nil, nil, err
		}
		if !canSeeInvites {
			delete(items[i], "invites")
		}
	}
	return items, spaceIDs, nil
}

// LinkUsers hydrates user items by id.
func (s *Service) LinkUsers(ctx context.Context, ids []string) ([]map[string]any, error) {
	userIDs := make([]int64, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		userIDs = append(userIDs, id)
	}
	users, err := s.store.UsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(users))
	for _, user := range users {
		data, err := decodeItem(user.Data)
		if err != nil {
			return nil, err
		}
		items = append(items, userItem(user, data))
	}
	return items, nil
}

// CleanUser drops credential fields from a user item.
func CleanUser(item map[string]any) map[string]any {
	delete(item, "auth")
	delete(item, "auth_token")
	return item
}

func userItem(user model.User, data map[string]any) map[string]any {
	item := map[string]any{}
	for k, v := range data {
		item[k] = v
	}
	item["id"] = strconv.FormatInt(user.ID, 10)
	item["user_id"] = user.ID
	item["email"] = user.Email
	item["confirmed"] = user.Confirmed
	return item
}

var _ sync.ProfileSource = (*Service)(nil)
