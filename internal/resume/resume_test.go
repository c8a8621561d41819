package resume

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rescale-labs/pcloud-engine/internal/pcloudapi"
	"github.com/rescale-labs/pcloud-engine/internal/state"
	"github.com/rescale-labs/pcloud-engine/internal/transfer"
)

type fakeAPIClient struct{}

func (fakeAPIClient) UploadFile(ctx context.Context, remoteFolder, fileName string, body io.Reader) (*pcloudapi.FileItem, error) {
	io.Copy(io.Discard, body)
	return &pcloudapi.FileItem{Name: fileName}, nil
}
func (fakeAPIClient) DeleteFile(ctx context.Context, path string) error { return nil }
func (fakeAPIClient) DownloadFile(ctx context.Context, path string) (io.ReadCloser, int64, error) {
	return io.NopCloser(nil), 0, nil
}
func (fakeAPIClient) BeginChunkedUpload(ctx context.Context) (int64, error) { return 1, nil }
func (fakeAPIClient) WriteChunk(ctx context.Context, uploadID, offset int64, chunk io.Reader) error {
	return nil
}
func (fakeAPIClient) FinishChunkedUpload(ctx context.Context, uploadID int64, remoteFolder, fileName string) (*pcloudapi.FileItem, error) {
	return &pcloudapi.FileItem{Name: fileName}, nil
}

func TestResumeMissingStateReturnsNilNil(t *testing.T) {
	coord := transfer.NewCoordinator(fakeAPIClient{}, transfer.Options{}, nil)
	driver := NewDriver(coord, nil)

	out, err := driver.Resume(context.Background(), filepath.Join(t.TempDir(), "missing.json"), nil)
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestResumeRunsPendingTasksAndPersists(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("hello"), 0644))

	statePath := filepath.Join(dir, "state.json")
	st := state.New(state.Upload, []state.Task{{Source: filePath, Destination: "/R"}}, 5)
	require.NoError(t, state.Save(st, statePath))

	coord := transfer.NewCoordinator(fakeAPIClient{}, transfer.Options{Workers: 1}, nil)
	driver := NewDriver(coord, nil)

	out, err := driver.Resume(context.Background(), statePath, nil)
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Equal(t, 1, out.Result.Succeeded)
	require.False(t, out.ChecksumWarning)

	reloaded, err := state.Load(statePath)
	require.NoError(t, err)
	require.Empty(t, reloaded.Pending)
	require.Contains(t, reloaded.Completed, filePath)
}

func TestResumeRepairsDuplicateKeysBeforeRunning(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("hello"), 0644))

	statePath := filepath.Join(dir, "state.json")
	st := state.New(state.Upload, []state.Task{{Source: filePath, Destination: "/R"}}, 5)
	// Simulate a crash-induced duplicate: the task is both completed and
	// still pending (§8 scenario 4).
	st.Completed = append(st.Completed, filePath)
	require.NoError(t, state.Save(st, statePath))

	coord := transfer.NewCoordinator(fakeAPIClient{}, transfer.Options{Workers: 1}, nil)
	driver := NewDriver(coord, nil)

	out, err := driver.Resume(context.Background(), statePath, nil)
	require.NoError(t, err)
	require.NotEmpty(t, out.RepairActions)
}
