package state

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New(Upload, []Task{
		{Source: "/local/a.txt", Destination: "/R"},
		{Source: "/local/b.txt", Destination: "/R/sub"},
	}, 2048)
	s.MarkCompleted("/local/a.txt", 1024)

	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, Save(s, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, s.ID, loaded.ID)
	require.Equal(t, []string{"/local/a.txt"}, loaded.Completed)
	require.Len(t, loaded.Pending, 1)
	require.EqualValues(t, 1024, loaded.TransferredBytes)

	report := Validate(loaded, false)
	require.True(t, report.IsValid)
	require.Empty(t, report.Issues)
}

func TestLoadMissingFileReturnsNilNil(t *testing.T) {
	loaded, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestLoadChecksumMismatchIsWarningNotFatal(t *testing.T) {
	s := New(Download, []Task{{Source: "/r/a.txt", Destination: "/local"}}, 10)
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, Save(s, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	loaded.Checksum = "deadbeef" // simulate on-disk tampering

	report := Validate(loaded, true)
	require.Contains(t, report.Issues, IssueChecksumMismatch)
	require.True(t, report.IsValid) // checksum-only mismatch is still "valid" (warning)
	require.True(t, report.CanRepair)
}

func TestValidateCountMismatch(t *testing.T) {
	s := New(Upload, []Task{{Source: "a", Destination: "d"}}, 0)
	s.TotalFiles = 10 // deliberately wrong

	report := Validate(s, false)
	require.Contains(t, report.Issues, IssueCountMismatch)
	require.False(t, report.IsValid)
	require.True(t, report.CanRepair)
}

func TestRepairDuplicateKeyScenario(t *testing.T) {
	// §8 scenario 4: total_files=10 entries across the sequences (f1 completed;
	// f1..f9 pending), so "f1" appears in both completed and pending.
	pending := []Task{{Source: "f1", Destination: "/R"}}
	for i := 2; i <= 9; i++ {
		pending = append(pending, Task{Source: fmt.Sprintf("f%d", i), Destination: "/R"})
	}
	s := &TransferState{
		ID:         uuid.NewString(),
		Direction:  Upload,
		TotalFiles: 10,
		Completed:  []string{"f1"},
		Pending:    pending,
	}

	report := Validate(s, false)
	require.Contains(t, report.Issues, IssueDuplicateKey)
	require.NotContains(t, report.Issues, IssueCountMismatch)

	actions := Repair(s)
	require.Contains(t, actions, "removed-duplicate:f1")
	require.Contains(t, actions, "recomputed-total")
	require.Equal(t, []string{"f1"}, s.Completed)
	require.Len(t, s.Pending, 8)
	require.EqualValues(t, 9, s.TotalFiles)

	postReport := Validate(s, false)
	require.True(t, postReport.IsValid)
}

func TestRepairInvalidIdentifier(t *testing.T) {
	s := &TransferState{ID: "not-a-uuid", Direction: Upload}
	report := Validate(s, false)
	require.Contains(t, report.Issues, IssueInvalidIdentifier)

	Repair(s)
	_, err := uuid.Parse(s.ID)
	require.NoError(t, err)
}

func TestByteOverrunCapped(t *testing.T) {
	s := New(Upload, nil, 100)
	s.TransferredBytes = 500
	report := Validate(s, false)
	require.Contains(t, report.Issues, IssueByteOverrun)

	Repair(s)
	require.EqualValues(t, 100, s.TransferredBytes)
}
