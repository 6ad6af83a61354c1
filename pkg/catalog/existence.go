package catalog

import (
	"umatools/pkg/models"
)

// Lister enumerates the blob names physically present in a content store.
type Lister interface {
	Basenames() (map[string]struct{}, error)
}

// CheckExistence marks each entry present when a file named after its hash
// exists anywhere under the store root. The store is walked exactly once.
func CheckExistence(entries []models.Entry, lister Lister) ([]models.ResolvedEntry, error) {
	present, err := lister.Basenames()
	if err != nil {
		return nil, err
	}

	resolved := make([]models.ResolvedEntry, len(entries))
	for i, entry := range entries {
		_, ok := present[entry.Hash]
		resolved[i] = models.ResolvedEntry{Entry: entry, IsFileExists: ok}
	}
	return resolved, nil
}
