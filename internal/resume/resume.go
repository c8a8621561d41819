// Package resume implements the resume driver (C7): load a persisted
// TransferState, validate and repair it if needed, and hand its pending
// tasks back to the transfer coordinator in the state's original direction.
// Grounded on the teacher's internal/cloud/state/upload.go validate-then-
// resume control flow and internal/transfer/manager.go's allocate/complete
// transfer-handle lifecycle.
package resume

import (
	"context"
	"fmt"

	"github.com/rescale-labs/pcloud-engine/internal/logging"
	"github.com/rescale-labs/pcloud-engine/internal/state"
	"github.com/rescale-labs/pcloud-engine/internal/transfer"
)

// Outcome summarizes what happened when resuming one transfer state.
type Outcome struct {
	// RepairActions lists what Repair changed, if anything; empty means the
	// loaded state needed no repair.
	RepairActions []string
	// ChecksumWarning is true if the state's stored checksum did not match
	// its contents (§3/§4.6: a warning, never fatal).
	ChecksumWarning bool
	Result          transfer.Result
}

// Driver resumes a persisted batch transfer against one API client.
type Driver struct {
	coordinator *transfer.Coordinator
	log         *logging.Logger
}

// NewDriver builds a Driver around an already-configured coordinator.
func NewDriver(coordinator *transfer.Coordinator, log *logging.Logger) *Driver {
	if log == nil {
		log = logging.Default()
	}
	return &Driver{coordinator: coordinator, log: log}
}

// Resume loads the state file at path, validates and repairs it if
// necessary, and runs its pending tasks through the coordinator. It returns
// (nil, nil) if no state file exists at path, matching state.Load's
// "absent is not an error" contract.
func (d *Driver) Resume(ctx context.Context, path string, counter *transfer.Counter) (*Outcome, error) {
	st, loadErr := state.Load(path)
	if st == nil && loadErr == nil {
		return nil, nil
	}

	checksumWarning := false
	if loadErr != nil {
		if loadErr == state.ErrChecksumMismatch {
			checksumWarning = true
			d.log.Warn().Str("path", path).Msg("resume: state checksum mismatch, proceeding with repair")
		} else {
			return nil, fmt.Errorf("resume: loading state: %w", loadErr)
		}
	}

	report := state.Validate(st, checksumWarning)
	var actions []string
	if !report.IsValid || len(report.Issues) > 0 {
		if !report.CanRepair {
			return nil, fmt.Errorf("resume: state at %s failed validation and cannot be repaired: %v", path, report.Issues)
		}
		actions = state.Repair(st)
		d.log.Info().Strs("actions", actions).Msg("resume: repaired transfer state")
		if err := state.Save(st, path); err != nil {
			return nil, fmt.Errorf("resume: saving repaired state: %w", err)
		}
	}

	pending := append([]state.Task(nil), st.Pending...)
	result, err := d.coordinator.Run(ctx, st.Direction, pending, counter, st)
	if err != nil {
		return nil, fmt.Errorf("resume: running pending tasks: %w", err)
	}

	if saveErr := state.Save(st, path); saveErr != nil {
		d.log.Warn().Err(saveErr).Str("path", path).Msg("resume: final state save failed")
	}

	return &Outcome{RepairActions: actions, ChecksumWarning: checksumWarning, Result: result}, nil
}
