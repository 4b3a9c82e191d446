// Package sync implements the sync ledger and fan-out engine: an append-only
// record stream partitioned per recipient, a long-poll reader that hydrates
// records from the live entity tables, and a sequential bulk applier for
// incoming client mutations.
package sync

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/chirino/spaces-sync-service/internal/model"
	registrystore "github.com/chirino/spaces-sync-service/internal/registry/store"
)

// Outcome is what a mutation handler produced. Item is the full item map
// (including "id") to echo back to the client; SyncIDs are the ledger ids the
// mutation appended. Skipped means the handler decided the mutation was a
// no-op (for example moving an item into the space it is already in) and
// Reason says why.
type Outcome struct {
	Item    map[string]any
	SyncIDs []int64
	Skipped bool
	Reason  string
}

// MutateFunc applies one incoming add/edit/move/set-owner for a type.
type MutateFunc func(ctx context.Context, userID int64, data map[string]any) (Outcome, error)

// DeleteFunc applies one incoming delete and returns the ledger ids it wrote.
type DeleteFunc func(ctx context.Context, userID int64, itemID string) ([]int64, error)

// LinkFunc hydrates outgoing records: given item ids, return the item maps
// (each including "id") that still exist. Absent ids are simply not returned.
type LinkFunc func(ctx context.Context, itemIDs []string) ([]map[string]any, error)

// CleanFunc strips server-private fields from one item before it leaves the
// server.
type CleanFunc func(item map[string]any) map[string]any

// Handlers holds the per-type callbacks the engine dispatches to. Mutate is
// keyed by action; Delete is separate because its input is an item id, not a
// data map. Link is mandatory, Clean optional.
type Handlers struct {
	Mutate map[model.SyncAction]MutateFunc
	Delete DeleteFunc
	Link   LinkFunc
	Clean  CleanFunc
}

func (h Handlers) allowedActions() string {
	actions := make([]string, 0, len(h.Mutate)+1)
	for action := range h.Mutate {
		actions = append(actions, string(action))
	}
	if h.Delete != nil {
		actions = append(actions, string(model.ActionDelete))
	}
	sort.Strings(actions)
	return strings.Join(actions, ", ")
}

// Registry maps item types to their handlers. It is built explicitly at
// startup and verified before the server accepts traffic, so a type with no
// link handler fails the boot instead of the first poll that hits it.
type Registry struct {
	handlers map[string]Handlers
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handlers{}}
}

func (r *Registry) Register(typ string, h Handlers) {
	r.handlers[typ] = h
}

func (r *Registry) Handlers(typ string) (Handlers, bool) {
	h, ok := r.handlers[typ]
	return h, ok
}

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.handlers))
	for typ := range r.handlers {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// Verify checks that every registered type can hydrate its outgoing records.
func (r *Registry) Verify() error {
	for typ, h := range r.handlers {
		if h.Link == nil {
			return fmt.Errorf("sync type %q has no link handler", typ)
		}
	}
	return nil
}

func badRequest(format string, args ...any) error {
	return &registrystore.ValidationError{Message: fmt.Sprintf(format, args...)}
}
