package resources

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestComputeWorkersClampsToCeiling(t *testing.T) {
	// §8 scenario 6: 64-core host, 64 GiB RAM -> min(128, 1280) clamped to 32.
	w := computeWorkers(64, 64*1024*1024*1024)
	require.Equal(t, 32, w)
}

func TestComputeWorkersMemoryBound(t *testing.T) {
	// 4 cores (cpu bound = 8), 0.125 GiB memory (memory bound = int(2.5) = 2) -> 2.
	w := computeWorkers(4, 128*1024*1024)
	require.Equal(t, 2, w)
}

func TestComputeWorkersFloor(t *testing.T) {
	w := computeWorkers(1, 0)
	require.Equal(t, 1, w)
}

func TestResolveWorkerCountOverrideClamped(t *testing.T) {
	require.Equal(t, 32, ResolveWorkerCount(9999))
	require.Equal(t, 1, ResolveWorkerCount(1))
	// Non-positive overrides mean "no override" - falls back to the adaptive default.
	require.Equal(t, DefaultWorkerCount(), ResolveWorkerCount(-5))
	require.Equal(t, DefaultWorkerCount(), ResolveWorkerCount(0))
}

func TestPerFileTimeoutBounds(t *testing.T) {
	require.Equal(t, 60*time.Second, PerFileTimeout(0))
	require.Equal(t, 62*time.Second, PerFileTimeout(1024*1024))
	require.Equal(t, 600*time.Second, PerFileTimeout(10*1024*1024*1024))
}
