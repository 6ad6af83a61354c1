package store

import (
	"io"
	"time"
)

// FileInfo represents metadata about a stored blob.
type FileInfo struct {
	Hash    string    `json:"hash"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Store defines content-addressed blob storage keyed by the CDN hash.
type Store interface {
	// PathFor returns the on-disk location of a hash. It does not check existence.
	PathFor(hash string) string

	// ValidateHash checks if a hash string is a valid format.
	ValidateHash(hash string) bool

	// Exists checks if a blob with the given hash has been fully written.
	Exists(hash string) (bool, error)

	// Write stores the reader's content under hash and returns the byte count.
	// The blob becomes visible only after the stream has been fully flushed.
	Write(hash string, reader io.Reader) (int64, error)

	// Read returns the blob content.
	Read(hash string) ([]byte, error)

	// Open returns a reader over the blob content.
	Open(hash string) (io.ReadCloser, error)

	// GetFileInfo returns metadata about a stored blob.
	GetFileInfo(hash string) (*FileInfo, error)

	// Basenames walks the whole store once and returns the set of blob names present.
	Basenames() (map[string]struct{}, error)
}

// FileNotFoundError is returned when trying to access a blob that doesn't exist.
type FileNotFoundError struct {
	Hash string
}

func (e FileNotFoundError) Error() string {
	return "file not found: " + e.Hash
}

// InvalidHashError is returned when a hash has invalid format.
type InvalidHashError struct {
	Hash string
}

func (e InvalidHashError) Error() string {
	return "invalid hash format: " + e.Hash
}
