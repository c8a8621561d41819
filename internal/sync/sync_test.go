package sync

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rescale-labs/pcloud-engine/internal/pcloudapi"
	"github.com/rescale-labs/pcloud-engine/internal/transfer"
)

type fakeSyncClient struct {
	folders map[string][]pcloudapi.FileItem
	created []string
}

func (f *fakeSyncClient) ListFolder(ctx context.Context, path string) ([]pcloudapi.FileItem, error) {
	items, ok := f.folders[path]
	if !ok {
		return nil, pcloudapi.ErrDirectoryNotFound
	}
	return items, nil
}

func (f *fakeSyncClient) CreateFolder(ctx context.Context, path string) error {
	f.created = append(f.created, path)
	f.folders[path] = nil
	return nil
}

func (f *fakeSyncClient) DownloadFile(ctx context.Context, path string) (io.ReadCloser, int64, error) {
	return io.NopCloser(nil), 0, nil
}

type fakeAPIClient struct{}

func (fakeAPIClient) UploadFile(ctx context.Context, remoteFolder, fileName string, body io.Reader) (*pcloudapi.FileItem, error) {
	io.Copy(io.Discard, body)
	return &pcloudapi.FileItem{Name: fileName}, nil
}
func (fakeAPIClient) DeleteFile(ctx context.Context, path string) error { return nil }
func (fakeAPIClient) DownloadFile(ctx context.Context, path string) (io.ReadCloser, int64, error) {
	return io.NopCloser(strings.NewReader("")), 0, nil
}
func (fakeAPIClient) BeginChunkedUpload(ctx context.Context) (int64, error) { return 1, nil }
func (fakeAPIClient) WriteChunk(ctx context.Context, uploadID, offset int64, chunk io.Reader) error {
	return nil
}
func (fakeAPIClient) FinishChunkedUpload(ctx context.Context, uploadID int64, remoteFolder, fileName string) (*pcloudapi.FileItem, error) {
	return &pcloudapi.FileItem{Name: fileName}, nil
}

func TestSyncUploadUniqueLocalFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0644))

	client := &fakeSyncClient{folders: map[string][]pcloudapi.FileItem{"/R": {}}}
	coord := transfer.NewCoordinator(fakeAPIClient{}, transfer.Options{Workers: 1}, nil)
	engine := NewEngine(client, coord, nil)

	result, err := engine.Sync(context.Background(), dir, "/R", DirectionUpload, CompareSize)
	require.NoError(t, err)
	require.Equal(t, 1, result.Uploaded)
}

func TestSyncSkipsEqualSizeFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0644))

	client := &fakeSyncClient{folders: map[string][]pcloudapi.FileItem{
		"/R": {{Name: "a.txt", Size: 5}},
	}}
	coord := transfer.NewCoordinator(fakeAPIClient{}, transfer.Options{Workers: 1}, nil)
	engine := NewEngine(client, coord, nil)

	result, err := engine.Sync(context.Background(), dir, "/R", DirectionUpload, CompareSize)
	require.NoError(t, err)
	require.Equal(t, 1, result.Skipped)
	require.Equal(t, 0, result.Uploaded)
}

func TestSyncDownloadsUniqueRemoteFile(t *testing.T) {
	dir := t.TempDir()

	client := &fakeSyncClient{folders: map[string][]pcloudapi.FileItem{
		"/R": {{Name: "b.txt", Size: 3}},
	}}
	coord := transfer.NewCoordinator(fakeAPIClient{}, transfer.Options{Workers: 1}, nil)
	engine := NewEngine(client, coord, nil)

	result, err := engine.Sync(context.Background(), dir, "/R", DirectionDownload, CompareSize)
	require.NoError(t, err)
	require.Equal(t, 1, result.Downloaded)
}

func TestSyncDescendsIntoSharedFolder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "c.txt"), []byte("xy"), 0644))

	client := &fakeSyncClient{folders: map[string][]pcloudapi.FileItem{
		"/R":     {{Name: "sub", IsFolder: true}},
		"/R/sub": {},
	}}
	coord := transfer.NewCoordinator(fakeAPIClient{}, transfer.Options{Workers: 1}, nil)
	engine := NewEngine(client, coord, nil)

	result, err := engine.Sync(context.Background(), dir, "/R", DirectionUpload, CompareSize)
	require.NoError(t, err)
	require.Equal(t, 1, result.Uploaded)
}
