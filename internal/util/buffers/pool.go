// Package buffers provides a reusable byte-buffer pool to reduce heap churn
// in the streaming upload/download hot paths.
package buffers

import (
	"sync"

	"github.com/rescale-labs/pcloud-engine/internal/constants"
)

// streamPool holds StreamBufferSize buffers for the fixed-buffer streaming
// path (§4.2): one per in-flight download, reused across files instead of
// allocated and discarded per transfer.
var streamPool = &sync.Pool{
	New: func() interface{} {
		buf := make([]byte, constants.StreamBufferSize)
		return &buf
	},
}

// Get retrieves a StreamBufferSize-length buffer from the pool. The buffer
// must be returned with Put when the caller is done with it.
func Get() *[]byte {
	return streamPool.Get().(*[]byte)
}

// Put returns buf to the pool for reuse. Buffers of any other length are
// dropped rather than pooled.
func Put(buf *[]byte) {
	if buf != nil && len(*buf) == constants.StreamBufferSize {
		streamPool.Put(buf)
	}
}
