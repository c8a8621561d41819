package transfer

import (
	"github.com/rescale-labs/pcloud-engine/internal/duplicate"
	"github.com/rescale-labs/pcloud-engine/internal/progress"
)

// Options configures a Coordinator run. Zero values fall back to the
// package defaults applied by Run.
type Options struct {
	// Workers bounds concurrent in-flight file transfers. Zero means the
	// caller wants resources.DefaultWorkerCount.
	Workers int
	// MaxRetries bounds retries per file after the first attempt, so a file
	// is attempted at most MaxRetries+1 times. Zero means
	// constants.DefaultMaxRetries.
	MaxRetries int
	// Duplicates resolves name collisions on the destination before each
	// upload task proceeds; nil means every task proceeds unconditionally
	// (used for downloads, where the local filesystem is the destination
	// and collisions are handled by streamio's atomic rename).
	Duplicates *duplicate.Resolver
	// Sink receives progress updates as bytes move; nil means progress.Noop.
	Sink progress.Sink
}

func (o Options) sink() progress.Sink {
	if o.Sink == nil {
		return progress.Noop
	}
	return o.Sink
}
