// Package state implements the transfer coordinator's persistent record (C6):
// what a batch transfer intends, has done, and has failed, plus integrity
// verification and repair. Grounded on the teacher's
// internal/cloud/state/upload.go save/load/validate pattern.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/rescale-labs/pcloud-engine/internal/constants"
	"github.com/rescale-labs/pcloud-engine/internal/logging"
)

// Direction is the transfer's direction, validated against I4.
type Direction string

const (
	Upload   Direction = "upload"
	Download Direction = "download"
)

func (d Direction) Valid() bool { return d == Upload || d == Download }

// Task is a planned (source, destination) transfer pair (§3 "Transfer task").
type Task struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// TransferState is the persistent record of one batch transfer (§3). All
// mutation goes through the mutex-guarded methods below; the coordinator is
// the only writer during a run (§5 "concurrent coordinators must not share a
// state").
type TransferState struct {
	mu sync.Mutex

	ID        string    `json:"id"`
	Direction Direction `json:"direction"`
	Version   int       `json:"version"`

	TotalFiles int64 `json:"total_files"`

	Completed []string `json:"completed"`
	Failed    []string `json:"failed"`
	Pending   []Task   `json:"pending"`

	TotalBytes       int64 `json:"total_bytes"`
	TransferredBytes int64 `json:"transferred_bytes"`

	Checksum string `json:"checksum,omitempty"`
}

// New creates a fresh state for a newly planned batch.
func New(direction Direction, tasks []Task, totalBytes int64) *TransferState {
	return &TransferState{
		ID:         uuid.NewString(),
		Direction:  direction,
		Version:    constants.StateFormatVersion,
		TotalFiles: int64(len(tasks)),
		Pending:    tasks,
		TotalBytes: totalBytes,
	}
}

// fileKeyOf returns the canonical key for a task: the local path for
// uploads, the remote path for downloads (§3 "File key").
func fileKeyOf(direction Direction, t Task) string {
	return t.Source
}

// MarkCompleted moves a pending task to the completed sequence and advances
// the byte counter. Safe for concurrent invocation by coordinator workers.
func (s *TransferState) MarkCompleted(key string, bytesTransferred int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removePending(key)
	s.Completed = append(s.Completed, key)
	s.TransferredBytes += bytesTransferred
	if s.TransferredBytes > s.TotalBytes {
		s.TransferredBytes = s.TotalBytes
	}
}

// MarkFailed moves a pending task to the failed sequence.
func (s *TransferState) MarkFailed(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removePending(key)
	s.Failed = append(s.Failed, key)
}

func (s *TransferState) removePending(key string) {
	out := s.Pending[:0]
	for _, t := range s.Pending {
		if fileKeyOf(s.Direction, t) != key {
			out = append(out, t)
		}
	}
	s.Pending = out
}

// Snapshot returns a copy safe to serialize without racing the live
// mutations above. It never copies the mutex itself.
func (s *TransferState) Snapshot() *TransferState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &TransferState{
		ID:               s.ID,
		Direction:        s.Direction,
		Version:          s.Version,
		TotalFiles:       s.TotalFiles,
		Completed:        append([]string(nil), s.Completed...),
		Failed:           append([]string(nil), s.Failed...),
		Pending:          append([]Task(nil), s.Pending...),
		TotalBytes:       s.TotalBytes,
		TransferredBytes: s.TransferredBytes,
		Checksum:         s.Checksum,
	}
}

// checksumPayload returns the record's checksum input: the JSON encoding
// with the checksum field blanked (§4.6). s must not be concurrently
// mutated (callers pass a Snapshot()).
func checksumPayload(s *TransferState) ([]byte, error) {
	withoutChecksum := &TransferState{
		ID:               s.ID,
		Direction:        s.Direction,
		Version:          s.Version,
		TotalFiles:       s.TotalFiles,
		Completed:        s.Completed,
		Failed:           s.Failed,
		Pending:          s.Pending,
		TotalBytes:       s.TotalBytes,
		TransferredBytes: s.TransferredBytes,
	}
	return json.Marshal(withoutChecksum)
}

func computeChecksum(s *TransferState) (string, error) {
	payload, err := checksumPayload(s)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// Save computes the checksum and atomically writes the state to path
// (write-then-rename, §4.6), matching the teacher's SaveUploadState idiom.
func Save(s *TransferState, path string) error {
	snap := s.Snapshot()
	sum, err := computeChecksum(snap)
	if err != nil {
		return fmt.Errorf("state: computing checksum: %w", err)
	}
	snap.Checksum = sum

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshaling: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("state: writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("state: renaming into place: %w", err)
	}
	return nil
}

// ErrChecksumMismatch is returned (alongside a loaded, usable state) when the
// stored checksum does not match the recomputed one. Per §3/§4.6 this is a
// warning, not a fatal load error.
var ErrChecksumMismatch = errors.New("state: checksum mismatch")

// Load reads a state file, returning (nil, nil) if it does not exist,
// matching the teacher's LoadUploadState "absent is not an error" contract.
func Load(path string) (*TransferState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("state: reading: %w", err)
	}

	var s TransferState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("state: decoding: %w", err)
	}

	if s.Version > constants.StateFormatVersion {
		logging.Default().Warn().Int("version", s.Version).Str("path", path).Msg("state: unknown format version, loading anyway")
	}

	if s.Checksum != "" {
		stored := s.Checksum
		recomputed, err := computeChecksum(&s)
		if err != nil {
			return nil, fmt.Errorf("state: recomputing checksum: %w", err)
		}
		if recomputed != stored {
			return &s, ErrChecksumMismatch
		}
	}
	return &s, nil
}

// Delete removes a state file if present.
func Delete(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Exists reports whether a state file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
