// Package validation guards filenames that arrive from the remote listing
// API before they are joined onto a local destination path.
package validation

import (
	"fmt"
	"strings"
)

// ValidateFilename validates a filename (not a full path) to prevent path traversal.
// This should be used for validating filenames received from external sources
// (like API responses) before using them in filepath.Join operations.
//
// Returns an error if the filename:
//   - Is empty
//   - Contains path separators (/ or \)
//   - Contains ".." components
//   - Contains null bytes
//
// This is strict validation to prevent path traversal attacks when filenames
// come from untrusted sources.
func ValidateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	// Check for null bytes
	if strings.ContainsRune(filename, 0) {
		return fmt.Errorf("filename contains null byte: %s", filename)
	}

	// Reject path separators (both Unix and Windows style)
	if strings.ContainsRune(filename, '/') || strings.ContainsRune(filename, '\\') {
		return fmt.Errorf("filename cannot contain path separators: %s", filename)
	}

	// Reject ".." to prevent traversal
	if filename == ".." || strings.Contains(filename, "..") {
		return fmt.Errorf("filename cannot contain '..': %s", filename)
	}

	return nil
}
