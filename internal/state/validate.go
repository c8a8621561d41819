package state

import (
	"github.com/google/uuid"
)

// Issue names a specific invariant violation found during validation.
type Issue string

const (
	IssueChecksumMismatch  Issue = "checksum-mismatch"
	IssueCountMismatch     Issue = "count-mismatch"     // I1
	IssueByteOverrun       Issue = "byte-overrun"        // I2
	IssueDuplicateKey      Issue = "duplicate-key"        // I3
	IssueInvalidDirection  Issue = "invalid-direction"    // I4
	IssueInvalidIdentifier Issue = "invalid-identifier"   // I5
)

// Report is the structured result of Validate (§4.6).
type Report struct {
	Issues    []Issue
	IsValid   bool
	CanRepair bool
}

// Validate checks a loaded state against invariants I1-I6 and reports
// whether the problems found are mechanically repairable. A checksum
// mismatch (I6) is reported but never blocks CanRepair — it is a warning,
// not a fatal condition (§3).
func Validate(s *TransferState, checksumMismatch bool) Report {
	var issues []Issue

	if checksumMismatch {
		issues = append(issues, IssueChecksumMismatch)
	}

	if s.TotalFiles != int64(len(s.Completed)+len(s.Failed)+len(s.Pending)) {
		issues = append(issues, IssueCountMismatch)
	}
	if s.TransferredBytes > s.TotalBytes {
		issues = append(issues, IssueByteOverrun)
	}
	if hasDuplicateKeys(s) {
		issues = append(issues, IssueDuplicateKey)
	}
	if !s.Direction.Valid() {
		issues = append(issues, IssueInvalidDirection)
	}
	if _, err := uuid.Parse(s.ID); err != nil {
		issues = append(issues, IssueInvalidIdentifier)
	}

	repairable := true
	for _, issue := range issues {
		// Every detected issue class is mechanically repairable by Repair
		// below; only an issue kind absent from this switch would block
		// repair, and there are none yet.
		switch issue {
		case IssueChecksumMismatch, IssueCountMismatch, IssueByteOverrun,
			IssueDuplicateKey, IssueInvalidDirection, IssueInvalidIdentifier:
		default:
			repairable = false
		}
	}

	isValid := len(issues) == 0 || (len(issues) == 1 && issues[0] == IssueChecksumMismatch)

	return Report{Issues: issues, IsValid: isValid, CanRepair: repairable}
}

func hasDuplicateKeys(s *TransferState) bool {
	seen := make(map[string]int, s.TotalFiles)
	for _, k := range s.Completed {
		seen[k]++
	}
	for _, k := range s.Failed {
		seen[k]++
	}
	for _, t := range s.Pending {
		seen[fileKeyOf(s.Direction, t)]++
	}
	for _, count := range seen {
		if count > 1 {
			return true
		}
	}
	return false
}
