package shard

import (
	"errors"
	"io/fs"
	"path/filepath"

	"umatools/pkg/log"
)

// Basenames walks the content root once and returns the names of every
// regular file found at any depth. In-progress writes are skipped.
// A missing root yields an empty set.
func (s *Store) Basenames() (map[string]struct{}, error) {
	names := make(map[string]struct{})

	err := filepath.WalkDir(s.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == s.root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if !entry.Type().IsRegular() || isTempName(entry.Name()) {
			return nil
		}
		names[entry.Name()] = struct{}{}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("root", s.root).Msg("Failed to enumerate content store")
		return nil, err
	}

	log.Debug().Str("root", s.root).Int("files", len(names)).Msg("Enumerated content store")
	return names, nil
}
