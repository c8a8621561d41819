package planner

import (
	"context"
	"path"
	"strings"
	"sync"

	"github.com/rescale-labs/pcloud-engine/internal/constants"
)

// Creator is the subset of the API client needed to materialize planned
// folders; satisfied by *pcloudapi.Client.
type Creator interface {
	CreateFolder(ctx context.Context, path string) error
}

// EnsureFolders creates every planned folder, level by level so a folder is
// never requested before its parent exists, batching each level in groups of
// constants.FolderCreateBatchSize concurrent requests to amortize round
// trips without unbounding concurrency (§4.3). The remote API creates one
// path segment at a time, so a child submitted concurrently with its
// not-yet-created parent would fail. Individual failures are collected and
// returned; they never abort the remaining batch.
func EnsureFolders(ctx context.Context, creator Creator, folders []string) []FolderFailure {
	var failures []FolderFailure
	var mu sync.Mutex

	for _, level := range foldersByDepth(folders) {
		for start := 0; start < len(level); start += constants.FolderCreateBatchSize {
			end := start + constants.FolderCreateBatchSize
			if end > len(level) {
				end = len(level)
			}
			group := level[start:end]

			var wg sync.WaitGroup
			for _, folder := range group {
				wg.Add(1)
				go func(folder string) {
					defer wg.Done()
					if err := creator.CreateFolder(ctx, folder); err != nil {
						mu.Lock()
						failures = append(failures, FolderFailure{Folder: folder, Err: err})
						mu.Unlock()
					}
				}(folder)
			}
			wg.Wait()
		}
	}

	return failures
}

// foldersByDepth buckets folders by path depth (number of "/" separators in
// the cleaned path), shallowest first, so every ancestor of a folder lands in
// an earlier level than the folder itself.
func foldersByDepth(folders []string) [][]string {
	byDepth := map[int][]string{}
	maxDepth := 0
	for _, f := range folders {
		d := strings.Count(path.Clean(f), "/")
		byDepth[d] = append(byDepth[d], f)
		if d > maxDepth {
			maxDepth = d
		}
	}

	levels := make([][]string, 0, maxDepth+1)
	for d := 0; d <= maxDepth; d++ {
		if group, ok := byDepth[d]; ok {
			levels = append(levels, group)
		}
	}
	return levels
}
