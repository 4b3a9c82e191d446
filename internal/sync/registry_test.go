package sync_test

import (
	"context"
	"testing"

	"github.com/chirino/spaces-sync-service/internal/model"
	syncengine "github.com/chirino/spaces-sync-service/internal/sync"
	"github.com/stretchr/testify/require"
)

func nopLink(ctx context.Context, ids []string) ([]map[string]any, error) {
	return nil, nil
}

func TestRegistryVerifyRequiresLinkHandlers(t *testing.T) {
	r := syncengine.NewRegistry()
	r.Register("widget", syncengine.Handlers{})
	require.ErrorContains(t, r.Verify(), "widget")

	r.Register("widget", syncengine.Handlers{Link: nopLink})
	require.NoError(t, r.Verify())
}

func TestRegistryTypes(t *testing.T) {
	r := syncengine.NewRegistry()
	r.Register(model.TypeNote, syncengine.Handlers{Link: nopLink})
	r.Register(model.TypeBoard, syncengine.Handlers{Link: nopLink})
	require.Equal(t, []string{model.TypeBoard, model.TypeNote}, r.Types())

	_, ok := r.Handlers(model.TypeSpace)
	require.False(t, ok)
}
