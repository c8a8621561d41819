package planner

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rescale-labs/pcloud-engine/internal/pathutil"
	"github.com/rescale-labs/pcloud-engine/internal/state"
)

// PlanUpload walks localRoot and produces the folders to ensure and the
// (local_file, remote_folder) tasks for uploading it under remoteBase
// (§4.3 "Local tree").
//
// localRoot is resolved via pathutil.ResolveAbsolutePath first, so "~",
// relative paths, and junction/symlinked ancestors all normalize to the same
// tree regardless of how the caller passed them in.
//
// Symlinks are followed per the spec's explicit requirement: a symlink to a
// file is uploaded as that file, and a symlink to a directory is recursed
// into as though its contents lived at the link's path. A set of resolved
// real directories guards against symlink cycles. Unreadable entries are
// recorded as folder failures rather than aborting the walk.
func PlanUpload(localRoot, remoteBase string) (*Plan, error) {
	localRoot, err := pathutil.ResolveAbsolutePath(localRoot)
	if err != nil {
		return nil, err
	}
	baseName := filepath.Base(localRoot)

	plan := &Plan{}
	folderSet := map[string]bool{}
	visited := map[string]bool{}

	ensureFolder := func(folder string) {
		if !folderSet[folder] {
			folderSet[folder] = true
			plan.Folders = append(plan.Folders, folder)
		}
	}
	ensureFolder(remoteJoin(remoteBase, baseName))

	walkUploadDir(localRoot, localRoot, remoteBase, baseName, plan, ensureFolder, visited)
	return plan, nil
}

// walkUploadDir lists physicalDir (a real directory, possibly reached
// through a symlink further up the tree) and records each entry under the
// remote path its localRoot-relative position maps to. Directory entries,
// including symlinks that resolve to a directory, recurse; everything else
// is added as an upload task.
func walkUploadDir(physicalDir, localRoot, remoteBase, baseName string, plan *Plan, ensureFolder func(string), visited map[string]bool) {
	real, err := filepath.EvalSymlinks(physicalDir)
	if err != nil {
		real = physicalDir
	}
	if visited[real] {
		return
	}
	visited[real] = true

	entries, err := os.ReadDir(physicalDir)
	if err != nil {
		plan.Errors = append(plan.Errors, FolderFailure{Folder: physicalDir, Err: err})
		return
	}

	for _, entry := range entries {
		p := filepath.Join(physicalDir, entry.Name())
		rel, relErr := filepath.Rel(localRoot, p)
		if relErr != nil {
			plan.Errors = append(plan.Errors, FolderFailure{Folder: p, Err: relErr})
			continue
		}

		var info fs.FileInfo
		if entry.Type()&fs.ModeSymlink != 0 {
			info, err = os.Stat(p) // follow the link, per §4.3
		} else {
			info, err = entry.Info()
		}
		if err != nil {
			plan.Errors = append(plan.Errors, FolderFailure{Folder: physicalDir, Err: err})
			continue
		}

		if info.IsDir() {
			ensureFolder(destFolderFor(remoteBase, baseName, rel))
			walkUploadDir(p, localRoot, remoteBase, baseName, plan, ensureFolder, visited)
			continue
		}

		relDir := filepath.Dir(rel)
		destFolder := destFolderFor(remoteBase, baseName, relDir)
		ensureFolder(destFolder)

		plan.Tasks = append(plan.Tasks, state.Task{Source: p, Destination: destFolder})
		plan.TotalBytes += info.Size()
	}
}
