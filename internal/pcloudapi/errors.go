package pcloudapi

import (
	"errors"
	"fmt"
)

// Result codes from the pCloud wire protocol that the engine treats specially.
// See https://docs.pcloud.com/ (general error handling) — codes not listed here
// still produce a *APIError, just without a named sentinel.
const (
	ResultSuccess              = 0
	ResultInvalidCredentials   = 2000
	ResultDirectoryNotFound    = 2005
	ResultFileNotFound         = 2009
	ResultInvalidFileOrFolder  = 2010
	ResultUploadAlreadyStarted = 2028
)

// APIError wraps a non-zero result code from a pCloud response.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pcloud: result %d: %s", e.Code, e.Message)
}

// Terminal reports whether this result code represents an application-level
// failure (§7 "Remote application" — terminal, never retried) as opposed to a
// transient condition the transport layer already retries.
func (e *APIError) Terminal() bool {
	return true
}

var (
	// ErrInvalidCredentials corresponds to result code 2000.
	ErrInvalidCredentials = errors.New("pcloud: invalid credentials")
	// ErrDirectoryNotFound corresponds to result code 2005.
	ErrDirectoryNotFound = errors.New("pcloud: directory does not exist")
	// ErrIntegrity signals a downloaded body whose length did not match the
	// size the remote advertised.
	ErrIntegrity = errors.New("pcloud: downloaded content length mismatch")
)

// NewAPIError builds an APIError, mapping well-known codes onto their
// sentinels via errors.Join so callers can use errors.Is against either the
// sentinel or the generic *APIError.
func NewAPIError(code int, message string) error {
	base := &APIError{Code: code, Message: message}
	switch code {
	case ResultInvalidCredentials:
		return errors.Join(base, ErrInvalidCredentials)
	case ResultDirectoryNotFound:
		return errors.Join(base, ErrDirectoryNotFound)
	default:
		return base
	}
}
