package planner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rescale-labs/pcloud-engine/internal/pcloudapi"
	"github.com/rescale-labs/pcloud-engine/internal/state"
)

func TestPlanUploadPathMirroring(t *testing.T) {
	// §8 scenario 1.
	root := t.TempDir()
	src := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "b.txt"), []byte("bb"), 0644))

	plan, err := PlanUpload(src, "/R")
	require.NoError(t, err)

	require.ElementsMatch(t, []string{"/R/src", "/R/src/sub"}, plan.Folders)

	var got []state.Task
	for _, task := range plan.Tasks {
		got = append(got, state.Task{Source: task.Source, Destination: task.Destination})
	}
	require.ElementsMatch(t, []state.Task{
		{Source: filepath.Join(src, "a.txt"), Destination: "/R/src"},
		{Source: filepath.Join(src, "sub", "b.txt"), Destination: "/R/src/sub"},
	}, got)
	require.EqualValues(t, 3, plan.TotalBytes)
}

func TestPlanUploadFollowsSymlinkedDirectory(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	target := filepath.Join(root, "target")
	require.NoError(t, os.MkdirAll(src, 0755))
	require.NoError(t, os.MkdirAll(target, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "linked.txt"), []byte("xyz"), 0644))

	if err := os.Symlink(target, filepath.Join(src, "link")); err != nil {
		t.Skipf("symlinks unsupported on this platform: %v", err)
	}

	plan, err := PlanUpload(src, "/R")
	require.NoError(t, err)

	require.Contains(t, plan.Folders, "/R/src/link")
	require.ElementsMatch(t, []state.Task{
		{Source: filepath.Join(src, "link", "linked.txt"), Destination: "/R/src/link"},
	}, plan.Tasks)
	require.EqualValues(t, 3, plan.TotalBytes)
}

func TestPlanUploadFollowsSymlinkedFile(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(src, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "real.txt"), []byte("hello"), 0644))

	if err := os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(src, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported on this platform: %v", err)
	}

	plan, err := PlanUpload(src, "/R")
	require.NoError(t, err)

	require.Len(t, plan.Tasks, 1)
	require.Equal(t, filepath.Join(src, "link.txt"), plan.Tasks[0].Source)
	require.EqualValues(t, 5, plan.TotalBytes)
}

func TestPlanUploadUnreadableEntryReportedNotFatal(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(src, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("a"), 0644))
	// A dangling symlink cannot be stat'ed: it is the unreadable entry.
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(src, "broken")))

	plan, err := PlanUpload(src, "/R")
	require.NoError(t, err)
	require.Len(t, plan.Tasks, 1)
	require.Len(t, plan.Errors, 1)
}

type fakeListerPlanner struct {
	byFolder map[string][]pcloudapi.FileItem
}

func (f *fakeListerPlanner) ListFolder(ctx context.Context, path string) ([]pcloudapi.FileItem, error) {
	return f.byFolder[path], nil
}

func TestPlanDownloadMirrorsRemoteTree(t *testing.T) {
	lister := &fakeListerPlanner{byFolder: map[string][]pcloudapi.FileItem{
		"/R": {
			{Name: "a.txt", Size: 10},
			{Name: "sub", IsFolder: true},
		},
		"/R/sub": {
			{Name: "b.txt", Size: 20},
		},
	}}

	plan, err := PlanDownload(context.Background(), lister, "/R", "/local")
	require.NoError(t, err)

	require.Contains(t, plan.Folders, filepath.Join("/local", "R"))
	require.Contains(t, plan.Folders, filepath.Join("/local", "R", "sub"))
	require.Len(t, plan.Tasks, 2)
	require.EqualValues(t, 30, plan.TotalBytes)
}

func TestPlanDownloadAggregatesListingFailures(t *testing.T) {
	lister := &fakeListerPlanner{byFolder: map[string][]pcloudapi.FileItem{
		"/R": {{Name: "locked", IsFolder: true}},
	}}
	// "locked" is never in byFolder, so ListFolder returns nil, nil here -
	// simulate a real failure via a wrapping lister instead.
	failing := listerFunc(func(ctx context.Context, path string) ([]pcloudapi.FileItem, error) {
		if path == "/R" {
			return lister.byFolder["/R"], nil
		}
		return nil, errListing
	})

	plan, err := PlanDownload(context.Background(), failing, "/R", "/local")
	require.NoError(t, err)
	require.Len(t, plan.Errors, 1)
	require.Equal(t, "/R/locked", plan.Errors[0].Folder)
}

type listerFunc func(ctx context.Context, path string) ([]pcloudapi.FileItem, error)

func (f listerFunc) ListFolder(ctx context.Context, path string) ([]pcloudapi.FileItem, error) {
	return f(ctx, path)
}

var errListing = errListingVar{}

type errListingVar struct{}

func (errListingVar) Error() string { return "listing failed" }
