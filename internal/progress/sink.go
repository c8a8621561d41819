// Package progress defines the transfer engine's progress-sink abstraction
// (§6, §9 "Callback dispatch") and one concrete terminal implementation.
// Grounded on the teacher's internal/progress/interface.go ProgressUI /
// FileBarHandle split, collapsed to the spec's plain three-argument
// callback shape.
package progress

// Sink is the per-file progress callback a caller supplies to the
// coordinator: `(file_name, bytes_done, bytes_total)`, invoked from worker
// goroutines. Implementations must be safe to call concurrently from any
// worker (§6).
type Sink func(fileName string, bytesDone, bytesTotal int64)

// Noop is a Sink that discards every update.
func Noop(string, int64, int64) {}
