// Package sync implements the bidirectional sync engine (C8): it compares a
// local tree against a remote tree, classifies each entry, and feeds the
// resulting batches to the transfer coordinator. Grounded on the planner's
// tree-walking idiom (C3) plus the teacher's general "classify then dispatch
// to coordinator" control flow seen across its upload/download orchestration
// files.
package sync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/rescale-labs/pcloud-engine/internal/logging"
	"github.com/rescale-labs/pcloud-engine/internal/pcloudapi"
	"github.com/rescale-labs/pcloud-engine/internal/state"
	"github.com/rescale-labs/pcloud-engine/internal/transfer"
)

// Direction is which way a bidirectional sync is allowed to move files when
// only one side has an entry, or set explicitly for a one-way sync.
type Direction string

const (
	DirectionUpload        Direction = "upload"
	DirectionDownload      Direction = "download"
	DirectionBidirectional Direction = "bidirectional"
)

// CompareMode decides how common entries are compared.
type CompareMode string

const (
	// CompareSize treats any size difference as the upload side winning for
	// an upload-direction sync and the download side winning for a
	// download-direction sync (§4.8 "deliberate simplification").
	CompareSize CompareMode = "size"
	// CompareSHA256 reads the local file and fetches the remote file to
	// compute a hash, at real network/IO cost.
	CompareSHA256 CompareMode = "sha256"
)

// Result tallies what a sync run did (§3 "Sync result").
type Result struct {
	Uploaded   int
	Downloaded int
	Skipped    int
	Failed     int
}

// Client is the subset of the API surface the sync engine needs.
type Client interface {
	ListFolder(ctx context.Context, path string) ([]pcloudapi.FileItem, error)
	CreateFolder(ctx context.Context, path string) error
	DownloadFile(ctx context.Context, path string) (io.ReadCloser, int64, error)
}

// Engine runs one sync operation between a local and a remote tree.
type Engine struct {
	client      Client
	coordinator *transfer.Coordinator
	log         *logging.Logger
}

// NewEngine builds a sync Engine.
func NewEngine(client Client, coordinator *transfer.Coordinator, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.Default()
	}
	return &Engine{client: client, coordinator: coordinator, log: log}
}

type entry struct {
	name     string
	isFolder bool
	size     int64
}

// Sync recursively compares localRoot and remoteRoot, uploading entries
// unique to the local side, downloading entries unique to the remote side,
// and resolving common entries per mode and direction, then dispatches every
// resulting task through the coordinator (§4.8).
func (e *Engine) Sync(ctx context.Context, localRoot, remoteRoot string, direction Direction, mode CompareMode) (Result, error) {
	var result Result
	var uploadTasks, downloadTasks []state.Task

	if err := e.walk(ctx, localRoot, remoteRoot, direction, mode, &uploadTasks, &downloadTasks, &result); err != nil {
		return result, err
	}

	if direction == DirectionUpload || direction == DirectionBidirectional {
		if len(uploadTasks) > 0 {
			res, err := e.coordinator.Run(ctx, state.Upload, uploadTasks, nil, nil)
			if err != nil {
				return result, fmt.Errorf("sync: running uploads: %w", err)
			}
			result.Uploaded += res.Succeeded
			result.Skipped += res.Skipped
			result.Failed += len(res.Failed)
		}
	}
	if direction == DirectionDownload || direction == DirectionBidirectional {
		if len(downloadTasks) > 0 {
			res, err := e.coordinator.Run(ctx, state.Download, downloadTasks, nil, nil)
			if err != nil {
				return result, fmt.Errorf("sync: running downloads: %w", err)
			}
			result.Downloaded += res.Succeeded
			result.Skipped += res.Skipped
			result.Failed += len(res.Failed)
		}
	}

	return result, nil
}

func (e *Engine) walk(ctx context.Context, localDir, remoteDir string, direction Direction, mode CompareMode, uploadTasks, downloadTasks *[]state.Task, result *Result) error {
	localEntries, err := e.listLocal(localDir)
	if err != nil {
		return fmt.Errorf("sync: listing local %s: %w", localDir, err)
	}
	remoteEntries, err := e.listRemote(ctx, remoteDir)
	if err != nil {
		return fmt.Errorf("sync: listing remote %s: %w", remoteDir, err)
	}

	localByName := make(map[string]entry, len(localEntries))
	for _, en := range localEntries {
		localByName[en.name] = en
	}
	remoteByName := make(map[string]entry, len(remoteEntries))
	for _, en := range remoteEntries {
		remoteByName[en.name] = en
	}

	for name, local := range localByName {
		remote, inRemote := remoteByName[name]

		switch {
		case !inRemote:
			if local.isFolder {
				if direction == DirectionUpload || direction == DirectionBidirectional {
					if err := e.client.CreateFolder(ctx, path.Join(remoteDir, name)); err != nil {
						result.Failed++
						continue
					}
					if err := e.walk(ctx, filepath.Join(localDir, name), path.Join(remoteDir, name), direction, mode, uploadTasks, downloadTasks, result); err != nil {
						return err
					}
				}
				continue
			}
			if direction == DirectionUpload || direction == DirectionBidirectional {
				*uploadTasks = append(*uploadTasks, state.Task{Source: filepath.Join(localDir, name), Destination: remoteDir})
			}

		case local.isFolder && remote.isFolder:
			if err := e.walk(ctx, filepath.Join(localDir, name), path.Join(remoteDir, name), direction, mode, uploadTasks, downloadTasks, result); err != nil {
				return err
			}

		case !local.isFolder && !remote.isFolder:
			equal, cmpErr := e.compare(ctx, filepath.Join(localDir, name), path.Join(remoteDir, name), local, remote, mode)
			if cmpErr != nil {
				result.Failed++
				continue
			}
			if equal {
				result.Skipped++
				continue
			}
			switch direction {
			case DirectionUpload:
				*uploadTasks = append(*uploadTasks, state.Task{Source: filepath.Join(localDir, name), Destination: remoteDir})
			case DirectionDownload:
				*downloadTasks = append(*downloadTasks, state.Task{Source: path.Join(remoteDir, name), Destination: localDir})
			case DirectionBidirectional:
				// Size-based sync cannot tell which side is newer (§4.8, §9
				// open question); the documented simplification favors the
				// upload side winning, matching an upload-direction sync.
				*uploadTasks = append(*uploadTasks, state.Task{Source: filepath.Join(localDir, name), Destination: remoteDir})
			}

		default:
			// A name collides between a file and a folder; surface it as a
			// failure rather than guessing which side is authoritative.
			result.Failed++
		}
	}

	if direction == DirectionDownload || direction == DirectionBidirectional {
		for name, remote := range remoteByName {
			if _, inLocal := localByName[name]; inLocal {
				continue
			}
			if remote.isFolder {
				localSub := filepath.Join(localDir, name)
				if err := os.MkdirAll(localSub, 0755); err != nil {
					result.Failed++
					continue
				}
				if err := e.walk(ctx, localSub, path.Join(remoteDir, name), direction, mode, uploadTasks, downloadTasks, result); err != nil {
					return err
				}
				continue
			}
			*downloadTasks = append(*downloadTasks, state.Task{Source: path.Join(remoteDir, name), Destination: localDir})
		}
	}

	return nil
}

func (e *Engine) listLocal(dir string) ([]entry, error) {
	des, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entries := make([]entry, 0, len(des))
	for _, d := range des {
		info, err := d.Info()
		if err != nil {
			continue
		}
		entries = append(entries, entry{name: d.Name(), isFolder: d.IsDir(), size: info.Size()})
	}
	return entries, nil
}

func (e *Engine) listRemote(ctx context.Context, dir string) ([]entry, error) {
	items, err := e.client.ListFolder(ctx, dir)
	if errors.Is(err, pcloudapi.ErrDirectoryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entries := make([]entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, entry{name: item.Name, isFolder: item.IsFolder, size: item.Size})
	}
	return entries, nil
}

// compare reports whether a common file is already identical, per mode.
func (e *Engine) compare(ctx context.Context, localPath, remotePath string, local, remote entry, mode CompareMode) (bool, error) {
	if mode == CompareSize {
		return local.size == remote.size, nil
	}
	localSum, err := sha256File(localPath)
	if err != nil {
		return false, err
	}
	remoteSum, err := e.sha256Remote(ctx, remotePath)
	if err != nil {
		return false, err
	}
	return localSum == remoteSum, nil
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (e *Engine) sha256Remote(ctx context.Context, remotePath string) (string, error) {
	body, _, err := e.client.DownloadFile(ctx, remotePath)
	if err != nil {
		return "", err
	}
	defer body.Close()
	h := sha256.New()
	if _, err := io.Copy(h, body); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
