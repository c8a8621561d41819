package streamio

import (
	"io"
	"os"

	"github.com/rescale-labs/pcloud-engine/internal/constants"
)

// Chunk is one slice of a large file being uploaded through the chunked path.
type Chunk struct {
	Offset int64
	Reader io.Reader
}

// ChunkIterator slices a file into fixed-size chunks with explicit byte
// offsets for the begin/write/finish chunked upload path (§4.1, §4.2,
// glossary "Chunked upload").
type ChunkIterator struct {
	f         *os.File
	size      int64
	chunkSize int64
	offset    int64
}

// NewChunkIterator opens path and prepares to iterate it in chunkSize
// pieces. A chunkSize of zero uses constants.DefaultChunkSize.
func NewChunkIterator(path string, chunkSize int64) (*ChunkIterator, error) {
	if chunkSize <= 0 {
		chunkSize = constants.DefaultChunkSize
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &ChunkIterator{f: f, size: info.Size(), chunkSize: chunkSize}, nil
}

// Size returns the total file size.
func (c *ChunkIterator) Size() int64 { return c.size }

// TotalChunks returns how many chunks the file splits into.
func (c *ChunkIterator) TotalChunks() int {
	if c.size == 0 {
		return 1
	}
	n := c.size / c.chunkSize
	if c.size%c.chunkSize != 0 {
		n++
	}
	return int(n)
}

// Next returns the next chunk, or io.EOF once the file is exhausted.
func (c *ChunkIterator) Next() (Chunk, error) {
	if c.offset >= c.size {
		return Chunk{}, io.EOF
	}
	remaining := c.size - c.offset
	length := c.chunkSize
	if remaining < length {
		length = remaining
	}
	section := io.NewSectionReader(c.f, c.offset, length)
	chunk := Chunk{Offset: c.offset, Reader: section}
	c.offset += length
	return chunk, nil
}

// Close releases the underlying file handle.
func (c *ChunkIterator) Close() error { return c.f.Close() }
