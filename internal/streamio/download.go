package streamio

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rescale-labs/pcloud-engine/internal/util/buffers"
)

// DownloadSink writes a streaming response body to a temporary file in the
// destination folder, renaming it into place atomically only once the body
// is fully and correctly received (§4.2). On any error path the temporary
// file is removed, never left as a partial artifact.
type DownloadSink struct {
	finalPath string
	tmpPath   string
	f         *os.File
	written   int64
	onWrite   ProgressFunc
}

// NewDownloadSink creates the temporary file backing a download of fileName
// into destFolder.
func NewDownloadSink(destFolder, fileName string, onWrite ProgressFunc) (*DownloadSink, error) {
	if err := os.MkdirAll(destFolder, 0755); err != nil {
		return nil, err
	}
	suffix, err := randomSuffix()
	if err != nil {
		return nil, err
	}
	finalPath := filepath.Join(destFolder, fileName)
	tmpPath := filepath.Join(destFolder, fmt.Sprintf(".pcloud-tmp-%s", suffix))

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	return &DownloadSink{finalPath: finalPath, tmpPath: tmpPath, f: f, onWrite: onWrite}, nil
}

func randomSuffix() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ReadFrom streams src into the temporary file through the fixed buffer
// size, verifying the received length against expectedSize when it is
// positive (§4.2 integrity check); zero or -1 (unknown) skips the check.
func (d *DownloadSink) ReadFrom(src io.Reader, expectedSize int64) error {
	bufp := buffers.Get()
	defer buffers.Put(bufp)
	buf := *bufp
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := d.f.Write(buf[:n]); err != nil {
				return err
			}
			d.written += int64(n)
			if d.onWrite != nil {
				d.onWrite(d.written)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return readErr
		}
	}
	if expectedSize > 0 && d.written != expectedSize {
		return fmt.Errorf("streamio: received %d bytes, expected %d: %w", d.written, expectedSize, errIntegrity)
	}
	return nil
}

var errIntegrity = errors.New("length mismatch")

// IsIntegrityError reports whether err originated from a download length
// mismatch (§7 "Integrity").
func IsIntegrityError(err error) bool {
	return errors.Is(err, errIntegrity)
}

// Commit closes the temporary file and atomically renames it into place.
// Must only be called after ReadFrom has returned a nil error.
func (d *DownloadSink) Commit() error {
	if err := d.f.Close(); err != nil {
		os.Remove(d.tmpPath)
		return err
	}
	if err := os.Rename(d.tmpPath, d.finalPath); err != nil {
		os.Remove(d.tmpPath)
		return err
	}
	return nil
}

// Abort closes and removes the temporary file. Safe to call after Commit has
// already succeeded (it is then a harmless no-op) or after any failure.
func (d *DownloadSink) Abort() {
	d.f.Close()
	os.Remove(d.tmpPath)
}
