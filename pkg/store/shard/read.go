package shard

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"umatools/pkg/store"
)

// Open returns a reader over a stored blob.
func (s *Store) Open(hash string) (io.ReadCloser, error) {
	filePath := s.PathFor(hash)
	if filePath == "" {
		return nil, store.InvalidHashError{Hash: hash}
	}

	file, err := os.Open(filePath) //nolint:gosec // filePath is constructed from validated hash
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.FileNotFoundError{Hash: hash}
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

// Read returns the full content of a stored blob.
func (s *Store) Read(hash string) ([]byte, error) {
	filePath := s.PathFor(hash)
	if filePath == "" {
		return nil, store.InvalidHashError{Hash: hash}
	}

	data, err := os.ReadFile(filePath) //nolint:gosec // filePath is constructed from validated hash
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.FileNotFoundError{Hash: hash}
	}
	return data, err
}

// GetFileInfo retrieves metadata about a stored blob.
func (s *Store) GetFileInfo(hash string) (*store.FileInfo, error) {
	filePath := s.PathFor(hash)
	if filePath == "" {
		return nil, store.InvalidHashError{Hash: hash}
	}

	info, err := os.Stat(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.FileNotFoundError{Hash: hash}
	}
	if err != nil {
		return nil, err
	}

	return &store.FileInfo{
		Hash:    hash,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}
