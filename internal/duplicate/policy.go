// Package duplicate implements the transfer coordinator's duplicate-file
// policy (C4): given a planned destination, decide skip / overwrite / rename
// by consulting a per-folder remote listing cache (§4.4).
package duplicate

import (
	"context"
	"sync"

	"github.com/rescale-labs/pcloud-engine/internal/pcloudapi"
)

// Mode is one of the three duplicate-handling policies (§4.4). Rename is the
// default, matching the remote's native auto-rename-on-collision behavior.
type Mode string

const (
	Skip      Mode = "skip"
	Overwrite Mode = "overwrite"
	Rename    Mode = "rename"
)

// Action tells the coordinator what to do before transferring a file.
type Action int

const (
	// ActionProceed transfers the file normally.
	ActionProceed Action = iota
	// ActionSkip completes the task as a no-op (counts as skipped).
	ActionSkip
	// ActionDeleteThenProceed deletes the existing remote file first, then
	// transfers. A failed delete is logged but does not block the transfer
	// (§4.4, §9 "should at least be logged").
	ActionDeleteThenProceed
)

// Lister is the subset of the API client the resolver needs; satisfied by
// *pcloudapi.Client.
type Lister interface {
	ListFolder(ctx context.Context, path string) ([]pcloudapi.FileItem, error)
}

// Resolver decides the duplicate action for each planned upload, caching one
// folder listing per batch so repeated files in the same destination don't
// re-list (§4.4, §5 "per-folder listing cache").
type Resolver struct {
	client Lister
	mode   Mode

	mu    sync.Mutex
	cache map[string][]pcloudapi.FileItem
}

// NewResolver creates a Resolver for one batch. The cache is scoped to the
// Resolver's lifetime and should be discarded with it after the batch ends.
func NewResolver(client Lister, mode Mode) *Resolver {
	if mode == "" {
		mode = Rename
	}
	return &Resolver{client: client, mode: mode, cache: make(map[string][]pcloudapi.FileItem)}
}

func (r *Resolver) listing(ctx context.Context, folder string) ([]pcloudapi.FileItem, error) {
	r.mu.Lock()
	if items, ok := r.cache[folder]; ok {
		r.mu.Unlock()
		return items, nil
	}
	r.mu.Unlock()

	items, err := r.client.ListFolder(ctx, folder)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[folder] = items
	r.mu.Unlock()
	return items, nil
}

// Resolve consults the destination folder listing for a file of the given
// name and size, and returns the action the coordinator should take.
func (r *Resolver) Resolve(ctx context.Context, destFolder, fileName string, size int64) (Action, error) {
	if r.mode == Rename {
		// The remote auto-renames on collision; no lookup needed.
		return ActionProceed, nil
	}

	items, err := r.listing(ctx, destFolder)
	if err != nil {
		return ActionProceed, err
	}

	var existing *pcloudapi.FileItem
	for i := range items {
		if !items[i].IsFolder && items[i].Name == fileName {
			existing = &items[i]
			break
		}
	}
	if existing == nil {
		return ActionProceed, nil
	}

	switch r.mode {
	case Skip:
		if existing.Size == size {
			return ActionSkip, nil
		}
		return ActionProceed, nil
	case Overwrite:
		return ActionDeleteThenProceed, nil
	default:
		return ActionProceed, nil
	}
}
