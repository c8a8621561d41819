// Package streamio provides the bounded-memory streaming I/O primitives used
// by the transfer coordinator (C2): a chunked-reading upload source, an
// atomic-rename download sink, and a fixed-size chunk iterator for the
// large-file upload path.
package streamio

import (
	"io"
	"os"

	"github.com/rescale-labs/pcloud-engine/internal/constants"
)

// ProgressFunc reports bytes transferred so far for one file. It is invoked
// from whichever goroutine is driving the stream and must be reentrant
// (§6 "Progress sink").
type ProgressFunc func(done int64)

// UploadSource streams a local file through a fixed-size buffer so resident
// memory per in-flight upload stays bounded regardless of file size
// (§4.2). It implements io.Reader for direct use as an HTTP request body.
type UploadSource struct {
	f        *os.File
	size     int64
	read     int64
	onRead   ProgressFunc
}

// NewUploadSource opens path for reading and wraps it as a progress-reporting
// io.Reader.
func NewUploadSource(path string, onRead ProgressFunc) (*UploadSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &UploadSource{f: f, size: info.Size(), onRead: onRead}, nil
}

// Size returns the file's size as observed at open time.
func (u *UploadSource) Size() int64 { return u.size }

// Read satisfies io.Reader, reading through the fixed 64 KiB buffer
// implicitly via the caller's buffer size; callers should read with buffers
// no larger than constants.StreamBufferSize to keep the bound real.
func (u *UploadSource) Read(p []byte) (int, error) {
	if len(p) > constants.StreamBufferSize {
		p = p[:constants.StreamBufferSize]
	}
	n, err := u.f.Read(p)
	if n > 0 {
		u.read += int64(n)
		if u.onRead != nil {
			u.onRead(u.read)
		}
	}
	return n, err
}

// Close releases the underlying file handle. Safe to call multiple times.
func (u *UploadSource) Close() error {
	return u.f.Close()
}

var _ io.ReadCloser = (*UploadSource)(nil)
