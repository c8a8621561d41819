package planner

import (
	"context"
	"path"

	"github.com/rescale-labs/pcloud-engine/internal/pcloudapi"
	"github.com/rescale-labs/pcloud-engine/internal/state"
)

// Lister is the subset of the API client the planner needs; satisfied by
// *pcloudapi.Client.
type Lister interface {
	ListFolder(ctx context.Context, path string) ([]pcloudapi.FileItem, error)
}

// PlanDownload lists remoteRoot and descends every folder, producing
// (remote_file, local_folder) tasks mirroring the remote structure under
// localBase/remoteRoot_basename/... (§4.3 "Remote tree"). Listing failures
// are collected per folder and returned on Plan.Errors rather than aborting
// the descent — a folder the caller has no permission to list must not hide
// its siblings.
func PlanDownload(ctx context.Context, client Lister, remoteRoot, localBase string) (*Plan, error) {
	remoteRoot = path.Clean(remoteRoot)
	baseName := path.Base(remoteRoot)

	plan := &Plan{}
	folderSet := map[string]bool{}
	ensureFolder := func(folder string) {
		if !folderSet[folder] {
			folderSet[folder] = true
			plan.Folders = append(plan.Folders, folder)
		}
	}
	ensureFolder(localFolderFor(localBase, baseName, "."))

	type frame struct {
		remotePath string
		relDir     string
	}
	queue := []frame{{remotePath: remoteRoot, relDir: "."}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		items, err := client.ListFolder(ctx, cur.remotePath)
		if err != nil {
			plan.Errors = append(plan.Errors, FolderFailure{Folder: cur.remotePath, Err: err})
			continue
		}

		localFolder := localFolderFor(localBase, baseName, cur.relDir)
		ensureFolder(localFolder)

		for _, item := range items {
			childRemote := remoteJoin(cur.remotePath, item.Name)
			if item.IsFolder {
				childRel := item.Name
				if cur.relDir != "." {
					childRel = path.Join(cur.relDir, item.Name)
				}
				queue = append(queue, frame{remotePath: childRemote, relDir: childRel})
				continue
			}
			plan.Tasks = append(plan.Tasks, state.Task{Source: childRemote, Destination: localFolder})
			plan.TotalBytes += item.Size
		}
	}

	return plan, nil
}
