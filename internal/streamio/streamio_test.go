package streamio

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUploadSourceReportsProgress(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0644))

	var lastDone int64
	src, err := NewUploadSource(path, func(done int64) { lastDone = done })
	require.NoError(t, err)
	defer src.Close()

	data, err := io.ReadAll(src)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(data))
	require.EqualValues(t, 11, lastDone)
	require.EqualValues(t, 11, src.Size())
}

func TestDownloadSinkCommitsOnSuccess(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDownloadSink(dir, "out.bin", nil)
	require.NoError(t, err)

	require.NoError(t, sink.ReadFrom(strings.NewReader("payload"), 7))
	require.NoError(t, sink.Commit())

	data, err := os.ReadFile(filepath.Join(dir, "out.bin"))
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))
}

func TestDownloadSinkIntegrityMismatchLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDownloadSink(dir, "out.bin", nil)
	require.NoError(t, err)

	err = sink.ReadFrom(strings.NewReader("short"), 100)
	require.Error(t, err)
	require.True(t, IsIntegrityError(err))
	sink.Abort()

	_, statErr := os.Stat(filepath.Join(dir, "out.bin"))
	require.True(t, os.IsNotExist(statErr))

	entries, _ := os.ReadDir(dir)
	require.Empty(t, entries)
}

func TestChunkIteratorSlicesWithOffsets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.bin")
	content := strings.Repeat("x", 25)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	it, err := NewChunkIterator(path, 10)
	require.NoError(t, err)
	defer it.Close()
	require.Equal(t, 3, it.TotalChunks())

	var offsets []int64
	for {
		chunk, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		offsets = append(offsets, chunk.Offset)
		_, _ = io.ReadAll(chunk.Reader)
	}
	require.Equal(t, []int64{0, 10, 20}, offsets)
}
