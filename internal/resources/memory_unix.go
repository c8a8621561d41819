//go:build darwin || linux

package resources

import (
	"bufio"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/rescale-labs/pcloud-engine/internal/constants"
)

// getAvailableMemory returns available system memory in bytes. On Linux it
// reads /proc/meminfo's MemAvailable; elsewhere (and if that file is
// unreadable) it falls back to the teacher's conservative heuristic: a
// fraction of an assumed total system memory net of current allocations.
func getAvailableMemory() uint64 {
	if runtime.GOOS == "linux" {
		if avail, ok := readMemAvailableLinux(); ok {
			return clampSystemMemory(avail)
		}
	}
	return heuristicAvailableMemory()
}

func readMemAvailableLinux() (uint64, bool) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, false
		}
		kib, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0, false
		}
		return kib * 1024, true
	}
	return 0, false
}

func heuristicAvailableMemory() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	totalSystemMemory := uint64(4 * 1024 * 1024 * 1024)
	currentlyAllocated := m.Alloc

	if totalSystemMemory <= currentlyAllocated {
		return 2 * 1024 * 1024 * 1024
	}
	available := uint64(float64(totalSystemMemory-currentlyAllocated) * 0.75)
	return clampSystemMemory(available)
}

func clampSystemMemory(v uint64) uint64 {
	if v < constants.MinSystemMemory {
		return constants.MinSystemMemory
	}
	if v > constants.MaxSystemMemory {
		return constants.MaxSystemMemory
	}
	return v
}
