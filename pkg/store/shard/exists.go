package shard

import (
	"errors"
	"io/fs"
	"os"

	"umatools/pkg/store"
)

// Exists checks if a blob with the given hash exists in storage.
func (s *Store) Exists(hash string) (bool, error) {
	if !s.ValidateHash(hash) {
		return false, store.InvalidHashError{Hash: hash}
	}

	info, err := os.Stat(s.PathFor(hash))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return info.Mode().IsRegular(), nil
}
