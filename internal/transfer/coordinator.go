// Package transfer implements the bounded-concurrency transfer coordinator
// (C5): it drives a worker pool over a batch of planned tasks, applying
// per-file timeouts, retry with backoff, duplicate-policy resolution, and
// progress accounting. Grounded on the worker-pool-over-channel idiom in
// internal/cloud/transfer/downloader.go's downloadStreamingConcurrent, the
// transfer-handle shape in internal/transfer/manager.go, and the retry/
// backoff structure of internal/http/retry.go (ExecuteWithRetry,
// CalculateBackoff), adapted to deterministic (non-jittered) backoff so it
// matches a fixed retry schedule.
package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/rescale-labs/pcloud-engine/internal/constants"
	"github.com/rescale-labs/pcloud-engine/internal/diskspace"
	"github.com/rescale-labs/pcloud-engine/internal/duplicate"
	"github.com/rescale-labs/pcloud-engine/internal/logging"
	"github.com/rescale-labs/pcloud-engine/internal/pcloudapi"
	"github.com/rescale-labs/pcloud-engine/internal/resources"
	"github.com/rescale-labs/pcloud-engine/internal/state"
	"github.com/rescale-labs/pcloud-engine/internal/streamio"
	"github.com/rescale-labs/pcloud-engine/internal/validation"
)

// Result is the public contract's return value: how many tasks succeeded,
// how many were skipped by duplicate policy, and the tasks that failed even
// after retries (§4.5 "(succeeded, failed, residual_tasks)").
type Result struct {
	Succeeded int
	Skipped   int
	Failed    []state.Task
}

// APIClient is the subset of *pcloudapi.Client the coordinator drives; kept
// as an interface at the point of use so tests can substitute a fake
// transport instead of standing up a real TLS server.
type APIClient interface {
	UploadFile(ctx context.Context, remoteFolder, fileName string, body io.Reader) (*pcloudapi.FileItem, error)
	DeleteFile(ctx context.Context, path string) error
	DownloadFile(ctx context.Context, path string) (io.ReadCloser, int64, error)
	BeginChunkedUpload(ctx context.Context) (int64, error)
	WriteChunk(ctx context.Context, uploadID, offset int64, chunk io.Reader) error
	FinishChunkedUpload(ctx context.Context, uploadID int64, remoteFolder, fileName string) (*pcloudapi.FileItem, error)
}

// Coordinator runs one batch of transfer tasks to completion against a
// single API client.
type Coordinator struct {
	client APIClient
	opts   Options
	log    *logging.Logger
}

// NewCoordinator builds a Coordinator. log may be nil (falls back to
// logging.Default()).
func NewCoordinator(client APIClient, opts Options, log *logging.Logger) *Coordinator {
	if log == nil {
		log = logging.Default()
	}
	return &Coordinator{client: client, opts: opts, log: log}
}

// Run drives tasks through a bounded worker pool (§4.5). State, if non-nil,
// is updated via MarkCompleted/MarkFailed as each task resolves, so callers
// that want resumability simply pass the TransferState they loaded or
// created for this batch.
func (c *Coordinator) Run(ctx context.Context, direction state.Direction, tasks []state.Task, counter *Counter, st *state.TransferState) (Result, error) {
	if !direction.Valid() {
		return Result{}, fmt.Errorf("transfer: invalid direction %q", direction)
	}
	if counter == nil {
		counter = &Counter{}
	}

	workers := resources.ResolveWorkerCount(c.opts.Workers)
	if workers > len(tasks) && len(tasks) > 0 {
		workers = len(tasks)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan state.Task)
	var wg sync.WaitGroup

	var mu sync.Mutex
	var result Result

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range jobs {
				outcome, skipped, err := c.runWithRetry(ctx, direction, task, counter)
				mu.Lock()
				switch {
				case err == nil && skipped:
					result.Skipped++
					if st != nil {
						st.MarkCompleted(task.Source, 0)
					}
				case err == nil:
					result.Succeeded++
					if st != nil {
						st.MarkCompleted(task.Source, sizeOf(direction, task))
					}
				case outcome == OutcomeCancelled:
					result.Failed = append(result.Failed, task)
				default:
					result.Failed = append(result.Failed, task)
					if st != nil {
						st.MarkFailed(task.Source)
					}
					c.log.Warn().Err(err).Str("source", task.Source).Msg("transfer: task failed permanently")
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, task := range tasks {
		select {
		case jobs <- task:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return result, nil
}

// sizeOf recovers the size to attribute to TransferredBytes on success; for
// uploads this is the local file's size. For downloads it returns 0: the
// number of bytes the sink wrote is not passed back to Run, so a completed
// download does not advance the state's TransferredBytes.
func sizeOf(direction state.Direction, task state.Task) int64 {
	if direction == state.Upload {
		if info, err := os.Stat(task.Source); err == nil {
			return info.Size()
		}
	}
	return 0
}

// runWithRetry attempts task up to MaxRetries+1 times with deterministic
// exponential backoff (1s, 2s, 4s, ... — §4.5, §8 scenario 3), classifying
// each failure to decide whether to retry.
func (c *Coordinator) runWithRetry(ctx context.Context, direction state.Direction, task state.Task, counter *Counter) (Outcome, bool, error) {
	maxRetries := c.opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = constants.DefaultMaxRetries
	}

	var lastErr error
	delay := constants.RetryInitialDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return OutcomeCancelled, false, ctx.Err()
		}

		skipped, err := c.attempt(ctx, direction, task, counter)
		if err == nil {
			return OutcomeTerminal, skipped, nil
		}
		lastErr = err

		outcome := Classify(ctx, err)
		if outcome != OutcomeRetry || attempt == maxRetries {
			return outcome, false, lastErr
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return OutcomeCancelled, false, ctx.Err()
		}
		delay *= 2
		if delay > constants.RetryMaxDelay {
			delay = constants.RetryMaxDelay
		}
	}
	return OutcomeTerminal, false, lastErr
}

// attempt runs a single try of task, with a per-file timeout for uploads
// whose size is known up front. skipped reports whether duplicate policy
// short-circuited the transfer entirely (no bytes moved, not a failure).
func (c *Coordinator) attempt(ctx context.Context, direction state.Direction, task state.Task, counter *Counter) (skipped bool, err error) {
	if direction == state.Upload {
		return c.uploadOne(ctx, task, counter)
	}
	return false, c.downloadOne(ctx, task, counter)
}

func (c *Coordinator) uploadOne(ctx context.Context, task state.Task, counter *Counter) (bool, error) {
	info, err := os.Stat(task.Source)
	if err != nil {
		return false, fmt.Errorf("transfer: stat %s: %w", task.Source, err)
	}
	size := info.Size()
	fileName := filepath.Base(task.Source)

	if c.opts.Duplicates != nil {
		action, err := c.opts.Duplicates.Resolve(ctx, task.Destination, fileName, size)
		if err != nil {
			return false, err
		}
		switch action {
		case duplicate.ActionSkip:
			c.opts.sink()(fileName, size, size)
			return true, nil
		case duplicate.ActionDeleteThenProceed:
			remotePath := path.Join(task.Destination, fileName)
			if delErr := c.client.DeleteFile(ctx, remotePath); delErr != nil {
				c.log.Warn().Err(delErr).Str("path", remotePath).Msg("transfer: pre-overwrite delete failed")
			}
		}
	}

	timeout := resources.PerFileTimeout(size)
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sink := c.opts.sink()
	sink(fileName, 0, size)

	var lastReported int64
	onRead := func(done int64) {
		counter.Add(done - lastReported)
		lastReported = done
		sink(fileName, done, size)
	}

	if size >= constants.ChunkedUploadThreshold {
		if err := c.uploadChunked(tctx, task.Source, task.Destination, fileName, size, onRead); err != nil {
			return false, err
		}
	} else {
		src, err := streamio.NewUploadSource(task.Source, onRead)
		if err != nil {
			return false, err
		}
		_, uploadErr := c.client.UploadFile(tctx, task.Destination, fileName, src)
		src.Close()
		if uploadErr != nil {
			return false, uploadErr
		}
	}

	sink(fileName, size, size)
	return false, nil
}

func (c *Coordinator) uploadChunked(ctx context.Context, localPath, destFolder, fileName string, size int64, onRead streamio.ProgressFunc) error {
	uploadID, err := c.client.BeginChunkedUpload(ctx)
	if err != nil {
		return err
	}

	it, err := streamio.NewChunkIterator(localPath, constants.DefaultChunkSize)
	if err != nil {
		return err
	}
	defer it.Close()

	var done int64
	for {
		chunk, nextErr := it.Next()
		if nextErr == io.EOF {
			break
		}
		if nextErr != nil {
			return nextErr
		}

		remaining := size - chunk.Offset
		chunkSize := int64(constants.DefaultChunkSize)
		if remaining < chunkSize {
			chunkSize = remaining
		}

		if err := c.client.WriteChunk(ctx, uploadID, chunk.Offset, chunk.Reader); err != nil {
			return err
		}
		done += chunkSize
		if onRead != nil {
			onRead(done)
		}
	}

	_, err = c.client.FinishChunkedUpload(ctx, uploadID, destFolder, fileName)
	return err
}

// downloadOne does not apply a per-file timeout ceiling the way uploadOne
// does: the remote never advertises a file's size until the download
// response itself arrives, so there is no size to feed
// resources.PerFileTimeout before the transfer starts. A download attempt
// has no time limit of its own: it runs until the body ends, a read fails,
// or ctx is cancelled.
func (c *Coordinator) downloadOne(ctx context.Context, task state.Task, counter *Counter) error {
	fileName := path.Base(task.Source)
	if err := validation.ValidateFilename(fileName); err != nil {
		return fmt.Errorf("transfer: remote filename rejected: %w", err)
	}

	body, contentLength, err := c.client.DownloadFile(ctx, task.Source)
	if err != nil {
		return err
	}
	defer body.Close()

	if contentLength > 0 {
		if spaceErr := diskspace.CheckAvailableSpace(filepath.Join(task.Destination, fileName), contentLength, 1.05); spaceErr != nil {
			return spaceErr
		}
	}

	sink := c.opts.sink()
	sink(fileName, 0, contentLength)

	var lastReported int64
	onWrite := func(done int64) {
		counter.Add(done - lastReported)
		lastReported = done
		sink(fileName, done, contentLength)
	}

	sinkDst, err := streamio.NewDownloadSink(task.Destination, fileName, onWrite)
	if err != nil {
		return err
	}

	if err := sinkDst.ReadFrom(body, contentLength); err != nil {
		sinkDst.Abort()
		return err
	}
	if err := sinkDst.Commit(); err != nil {
		return err
	}

	sink(fileName, contentLength, contentLength)
	return nil
}
