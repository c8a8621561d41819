package transfer

import "sync/atomic"

// Counter is the shared byte-progress counter the public contract calls for
// (§4.5 "a shared byte-progress counter"): it only ever increases, and is
// safe for concurrent use by every worker. Grounded on the teacher's
// atomic.AddInt64(&decryptedBytes, ...) idiom in
// internal/cloud/transfer/downloader.go.
type Counter struct {
	n int64
}

// Add increments the counter by delta, which must be non-negative.
func (c *Counter) Add(delta int64) {
	if delta <= 0 {
		return
	}
	atomic.AddInt64(&c.n, delta)
}

// Load returns the counter's current value.
func (c *Counter) Load() int64 {
	return atomic.LoadInt64(&c.n)
}
