// Package planner walks a local directory or a remote folder and produces
// the (src, dst) pairs plus destination folders a batch transfer needs (C3).
package planner

import (
	"path"
	"path/filepath"

	"github.com/rescale-labs/pcloud-engine/internal/state"
)

// FolderFailure records a planning-time failure against the folder it
// occurred in; planning failures are aggregated and surfaced, never silently
// dropped (§4.3, §7).
type FolderFailure struct {
	Folder string
	Err    error
}

// Plan is the output of either PlanUpload or PlanDownload: the set of
// destination folders to ensure exist, the file transfer tasks, and any
// per-folder failures encountered while walking.
type Plan struct {
	Folders []string
	Tasks   []state.Task
	Errors  []FolderFailure
	// TotalBytes sums the size of every task's source file, for progress
	// accounting and transfer-state initialization.
	TotalBytes int64
}

// remoteJoin joins remote path segments with forward slashes regardless of
// host OS, since remote paths are never local filesystem paths.
func remoteJoin(elem ...string) string {
	return path.Join(elem...)
}

// destFolderFor computes the remote destination folder for a local file whose
// directory, relative to the walked root, is relDir, when uploading under
// remoteBase/baseName
// (§4.3: "L/sub/x/f.ext" -> "R/L_basename/sub/x").
func destFolderFor(remoteBase, baseName, relDir string) string {
	if relDir == "." || relDir == "" {
		return remoteJoin(remoteBase, baseName)
	}
	return remoteJoin(remoteBase, baseName, filepath.ToSlash(relDir))
}

// localFolderFor computes the local destination folder for a remote file whose
// directory, relative to the remote root, is relDir, when downloading under
// localBase/baseName, mirroring destFolderFor.
func localFolderFor(localBase, baseName, relDir string) string {
	if relDir == "." || relDir == "" {
		return filepath.Join(localBase, baseName)
	}
	return filepath.Join(localBase, baseName, filepath.FromSlash(relDir))
}
