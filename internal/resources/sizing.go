// Package resources computes adaptive parallelism and memory-aware bounds
// (C9). Grounded on the teacher's internal/resources/manager.go threading
// heuristic, generalized from per-transfer thread counts to a single
// per-batch worker count (this engine is file-granular, not part-granular).
package resources

import (
	"runtime"
	"time"

	"github.com/rescale-labs/pcloud-engine/internal/constants"
)

// DefaultWorkerCount computes the adaptive worker count (§4.9):
//
//	clamp(min(2*cpu_cores, 20*available_memory_GiB), 1, 32)
//
// pCloud transfers are I/O-bound so CPU count alone under-estimates useful
// parallelism, but each in-flight worker carries a streaming buffer and a
// connection, so memory still bounds it from above.
func DefaultWorkerCount() int {
	return computeWorkers(runtime.NumCPU(), AvailableMemory())
}

func computeWorkers(cpuCores int, availableMemoryBytes uint64) int {
	cpuBound := constants.CPUWorkerMultiplier * cpuCores

	memoryGiB := float64(availableMemoryBytes) / (1024 * 1024 * 1024)
	memoryBound := int(constants.MemoryWorkerMultiplier * memoryGiB)

	workers := cpuBound
	if memoryBound < workers {
		workers = memoryBound
	}
	return Clamp(workers, constants.MinWorkers, constants.MaxWorkers)
}

// Clamp bounds v into [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// AvailableMemory returns the host's available memory in bytes via the
// platform-specific probe (memory_unix.go / memory_windows.go).
func AvailableMemory() uint64 {
	return getAvailableMemory()
}

// ResolveWorkerCount applies a caller override when positive, otherwise
// falls back to the adaptive default; either way the result is clamped into
// [1, 32] (§4.9 "the library additionally clamps the explicit value").
func ResolveWorkerCount(override int) int {
	if override > 0 {
		return Clamp(override, constants.MinWorkers, constants.MaxWorkers)
	}
	return DefaultWorkerCount()
}

// PerFileTimeout computes the per-file timeout budget (§4.5):
//
//	clamp(base + ceil(size_MB)*per_MB, 0, max)
func PerFileTimeout(sizeBytes int64) time.Duration {
	sizeMB := sizeBytes / (1024 * 1024)
	if sizeBytes%(1024*1024) != 0 {
		sizeMB++
	}
	total := constants.PerFileTimeoutBase + time.Duration(sizeMB)*constants.PerFileTimeoutPerMB
	if total < 0 {
		total = 0
	}
	if total > constants.PerFileTimeoutMax {
		total = constants.PerFileTimeoutMax
	}
	return total
}
