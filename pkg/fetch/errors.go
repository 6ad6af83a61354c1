package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedStatus is the cause when the CDN answers with a non-200 status.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrMasterEntryNotFound is returned when the catalog has no master database entry.
	ErrMasterEntryNotFound = errors.New("master database entry not found in catalog")
)

// DownloadFailedError is returned when an asset could not be fetched after
// all retries.
type DownloadFailedError struct {
	Hash  string
	Name  string
	Cause error
}

func (e *DownloadFailedError) Error() string {
	return fmt.Sprintf("download failed for %s (%s): %v", e.Name, e.Hash, e.Cause)
}

func (e *DownloadFailedError) Unwrap() error {
	return e.Cause
}
