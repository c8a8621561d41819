package transfer

import (
	"context"
	"errors"

	"github.com/rescale-labs/pcloud-engine/internal/pcloudapi"
	"github.com/rescale-labs/pcloud-engine/internal/streamio"
)

// Outcome classifies a failed attempt for the retry loop (§7).
type Outcome int

const (
	// OutcomeRetry means the attempt failed transiently and should be
	// retried after backoff (network errors, remote 5xx).
	OutcomeRetry Outcome = iota
	// OutcomeTerminal means the attempt failed in a way further retries
	// cannot fix (remote application error, local I/O error, integrity
	// mismatch on download).
	OutcomeTerminal
	// OutcomeCancelled means the attempt stopped because the caller's
	// context was cancelled; this is not a failure of the file itself.
	OutcomeCancelled
)

// Classify maps an error from a single transfer attempt onto the error
// taxonomy in §7: network and remote-5xx errors are retryable, remote
// application errors and local I/O errors are terminal for that file,
// integrity mismatches are terminal, and context cancellation is reported
// separately so callers don't count it as a file failure.
func Classify(ctx context.Context, err error) Outcome {
	if err == nil {
		return OutcomeTerminal
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if ctx.Err() != nil {
			return OutcomeCancelled
		}
		// The per-file timeout fired, not the caller's context; treat as a
		// retryable timeout rather than cancellation.
		return OutcomeRetry
	}
	if pcloudapi.IsNetworkError(err) {
		return OutcomeRetry
	}
	if streamio.IsIntegrityError(err) {
		return OutcomeTerminal
	}
	var apiErr *pcloudapi.APIError
	if errors.As(err, &apiErr) {
		return OutcomeTerminal
	}
	return OutcomeTerminal
}
