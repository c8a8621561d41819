package state

import (
	"fmt"

	"github.com/google/uuid"
)

// Repair mechanically reconciles an I1-I5-violating state and returns the
// list of actions taken (§4.6, §8 scenario 4). Precedence when the same key
// appears in more than one sequence: completed beats failed beats pending,
// since completed/failed are terminal outcomes and pending is just
// undispatched work.
func Repair(s *TransferState) []string {
	var actions []string

	completedSet := make(map[string]bool, len(s.Completed))
	for _, k := range s.Completed {
		completedSet[k] = true
	}

	dedupedFailed := s.Failed[:0:0]
	for _, k := range s.Failed {
		if completedSet[k] {
			actions = append(actions, fmt.Sprintf("removed-duplicate:%s", k))
			continue
		}
		dedupedFailed = append(dedupedFailed, k)
	}
	s.Failed = dedupedFailed

	failedSet := make(map[string]bool, len(s.Failed))
	for _, k := range s.Failed {
		failedSet[k] = true
	}

	dedupedPending := s.Pending[:0:0]
	for _, t := range s.Pending {
		key := fileKeyOf(s.Direction, t)
		if completedSet[key] || failedSet[key] {
			actions = append(actions, fmt.Sprintf("removed-duplicate:%s", key))
			continue
		}
		dedupedPending = append(dedupedPending, t)
	}
	s.Pending = dedupedPending

	newTotal := int64(len(s.Completed) + len(s.Failed) + len(s.Pending))
	if newTotal != s.TotalFiles {
		s.TotalFiles = newTotal
		actions = append(actions, "recomputed-total")
	}

	if s.TransferredBytes > s.TotalBytes {
		s.TransferredBytes = s.TotalBytes
		actions = append(actions, "capped-transferred-bytes")
	}

	if _, err := uuid.Parse(s.ID); err != nil {
		s.ID = uuid.NewString()
		actions = append(actions, "replaced-identifier")
	}

	if !s.Direction.Valid() {
		// No principled default exists; leaving it invalid would violate I4
		// permanently, so the state is coerced to upload and flagged loudly.
		s.Direction = Upload
		actions = append(actions, "defaulted-direction")
	}

	sum, err := computeChecksum(s)
	if err == nil {
		s.Checksum = sum
		actions = append(actions, "recomputed-checksum")
	}

	return actions
}
