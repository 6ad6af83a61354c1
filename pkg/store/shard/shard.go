// Package shard implements store.Store as a flat directory tree sharded by
// the first two characters of the hash: root/ab/abcdef...
package shard

import (
	"path/filepath"
	"strings"

	"umatools/pkg/store"
)

const (
	shardPrefixLen = 2
	dirPerm        = 0750
	filePerm       = 0644
	tempPrefix     = ".partial-"
)

// Do an indirection to make sure Store implements the required interface
var _ store.Store = (*Store)(nil)

// Store is a sharded content-addressed blob directory.
type Store struct {
	root string
}

// New creates a Store rooted at root. The directory is created lazily on first write.
func New(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

// Root returns the content root directory.
func (s *Store) Root() string {
	return s.root
}

// PathFor returns root/hash[0:2]/hash, or "" for an invalid hash.
func (s *Store) PathFor(hash string) string {
	if !s.ValidateHash(hash) {
		return ""
	}
	return filepath.Join(s.root, hash[:shardPrefixLen], hash)
}

// isTempName reports whether a directory entry is an in-progress write.
func isTempName(name string) bool {
	return strings.HasPrefix(name, tempPrefix)
}
