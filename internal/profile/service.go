// Package profile implements the entity handlers behind the sync engine:
// spaces, boards, notes, keychain entries, invites and user records, plus
// the permission checks guarding them. Handlers persist opaque encrypted
// item blobs and append fan-out records to the sync ledger.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/chirino/spaces-sync-service/internal/model"
	registrystore "github.com/chirino/spaces-sync-service/internal/registry/store"
	"github.com/chirino/spaces-sync-service/internal/sync"
)

// Service owns all profile mutations. Every write path appends its fan-out
// records through the ledger before returning.
type Service struct {
	store  registrystore.Store
	ledger *sync.Ledger
}

func NewService(store registrystore.Store, ledger *sync.Ledger) *Service {
	return &Service{store: store, ledger: ledger}
}

// PermissionCheck returns a ForbiddenError unless userID holds perm in the
// space. No membership at all is also forbidden: membership is what grants
// read access in the first place.
func (s *Service) PermissionCheck(ctx context.Context, userID int64, spaceID string, perm model.Permission) error {
	member, err := s.store.Member(ctx, spaceID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return &registrystore.ForbiddenError{Message: fmt.Sprintf("you don't have access to space %s", spaceID)}
	}
	if !member.Role.Can(perm) {
		return &registrystore.ForbiddenError{Message: fmt.Sprintf("you don't have %q permissions on space %s", perm, spaceID)}
	}
	return nil
}

// UserHasPermission is PermissionCheck with forbidden flattened to false.
// Other errors still surface.
func (s *Service) UserHasPermission(ctx context.Context, userID int64, spaceID string, perm model.Permission) (bool, error) {
	err := s.PermissionCheck(ctx, userID, spaceID, perm)
	if err == nil {
		return true, nil
	}
	var forbidden *registrystore.ForbiddenError
	if errors.As(err, &forbidden) {
		return false, nil
	}
	return false, err
}

// userIsInSpace reports whether the user holds any role in the space.
func (s *Service) userIsInSpace(ctx context.Context, userID int64, spaceID string) (bool, error) {
	member, err := s.store.Member(ctx, spaceID, userID)
	if err != nil {
		return false, err
	}
	return member != nil, nil
}

func decodeItem(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	var item map[string]any
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to decode item blob: %w", err)
	}
	return item, nil
}

func encodeItem(item map[string]any) ([]byte, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to encode item blob: %w", err)
	}
	return data, nil
}

func itemID(data map[string]any) (string, error) {
	id, _ := data["id"].(string)
	if id == "" {
		return "", &registrystore.ValidationError{Message: "item is missing the `id` field"}
	}
	return id, nil
}

// asInt64 reads a numeric field that may arrive as any JSON number type.
func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	}
	return 0
}
