package constants

import "time"

// Streaming I/O
const (
	// StreamBufferSize - fixed read/write buffer size for streaming uploads and
	// downloads, bounding resident memory per in-flight file regardless of size.
	StreamBufferSize = 64 * 1024

	// ChunkedUploadThreshold - files at or above this size use the begin/write/finish
	// chunked upload path instead of a single-request upload.
	ChunkedUploadThreshold = 2 * 1024 * 1024 * 1024

	// DefaultChunkSize - size of each chunk for the chunked upload path (10 MiB).
	DefaultChunkSize = 10 * 1024 * 1024
)

// Retry configuration
const (
	// DefaultMaxRetries - retry attempts for a single file transfer after the
	// first failure, before the task is marked permanently failed.
	DefaultMaxRetries = 3

	// RetryInitialDelay - base delay before the first retry.
	RetryInitialDelay = 1 * time.Second

	// RetryMaxDelay - ceiling on the exponential backoff delay.
	RetryMaxDelay = 30 * time.Second
)

// Per-file timeout budget (§4.5: T_file = clamp(base + ceil(size_MB)*per_MB, 0, max))
const (
	PerFileTimeoutBase  = 60 * time.Second
	PerFileTimeoutPerMB = 2 * time.Second
	PerFileTimeoutMax   = 600 * time.Second
)

// Resource Manager - Worker Bounds
const (
	// MinWorkers - floor on adaptive and user-supplied worker counts.
	MinWorkers = 1

	// MaxWorkers - ceiling on adaptive and user-supplied worker counts.
	MaxWorkers = 32

	// CPUWorkerMultiplier - adaptive worker count scales this many workers per core.
	CPUWorkerMultiplier = 2

	// MemoryWorkerMultiplier - adaptive worker count scales this many workers per
	// GiB of available memory.
	MemoryWorkerMultiplier = 20
)

// System Memory Limits
const (
	// MinSystemMemory - floor used when the host memory estimate looks implausible.
	MinSystemMemory = 512 * 1024 * 1024

	// MaxSystemMemory - ceiling used when the host memory estimate looks implausible.
	MaxSystemMemory = 64 * 1024 * 1024 * 1024
)

// Folder planning
const (
	// FolderCreateBatchSize - number of folder-creation calls issued concurrently
	// while ensuring the destination tree exists.
	FolderCreateBatchSize = 10
)

// HTTP Client Timeouts
const (
	HTTPIdleConnTimeout       = 90 * time.Second
	HTTPTLSHandshakeTimeout   = 30 * time.Second
	HTTPExpectContinueTimeout = 1 * time.Second
	HTTPDialTimeout           = 30 * time.Second
	HTTPDialKeepAlive         = 30 * time.Second
	HTTPRequestTimeout        = 120 * time.Second
)

// Transfer state persistence
const (
	// StateFormatVersion - current format version written by this engine.
	// Loaders accept any version number (forward-compatible, §6), warning only
	// on versions newer than this one.
	StateFormatVersion = 1
)
