package duplicate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rescale-labs/pcloud-engine/internal/pcloudapi"
)

type fakeLister struct {
	calls int
	items []pcloudapi.FileItem
}

func (f *fakeLister) ListFolder(ctx context.Context, path string) ([]pcloudapi.FileItem, error) {
	f.calls++
	return f.items, nil
}

func TestSkipOnEqualSize(t *testing.T) {
	// §8 scenario 2.
	lister := &fakeLister{items: []pcloudapi.FileItem{{Name: "a.txt", Size: 1024}}}
	r := NewResolver(lister, Skip)

	action, err := r.Resolve(context.Background(), "/R", "a.txt", 1024)
	require.NoError(t, err)
	require.Equal(t, ActionSkip, action)
}

func TestSkipProceedsOnDifferentSize(t *testing.T) {
	lister := &fakeLister{items: []pcloudapi.FileItem{{Name: "a.txt", Size: 999}}}
	r := NewResolver(lister, Skip)

	action, err := r.Resolve(context.Background(), "/R", "a.txt", 1024)
	require.NoError(t, err)
	require.Equal(t, ActionProceed, action)
}

func TestOverwriteDeletesExisting(t *testing.T) {
	lister := &fakeLister{items: []pcloudapi.FileItem{{Name: "a.txt", Size: 1024}}}
	r := NewResolver(lister, Overwrite)

	action, err := r.Resolve(context.Background(), "/R", "a.txt", 2048)
	require.NoError(t, err)
	require.Equal(t, ActionDeleteThenProceed, action)
}

func TestRenameNeverListsFolder(t *testing.T) {
	lister := &fakeLister{}
	r := NewResolver(lister, Rename)

	action, err := r.Resolve(context.Background(), "/R", "a.txt", 2048)
	require.NoError(t, err)
	require.Equal(t, ActionProceed, action)
	require.Equal(t, 0, lister.calls)
}

func TestListingCachedPerFolder(t *testing.T) {
	lister := &fakeLister{items: []pcloudapi.FileItem{{Name: "a.txt", Size: 1024}}}
	r := NewResolver(lister, Skip)

	_, _ = r.Resolve(context.Background(), "/R", "a.txt", 1024)
	_, _ = r.Resolve(context.Background(), "/R", "b.txt", 2048)

	require.Equal(t, 1, lister.calls)
}
