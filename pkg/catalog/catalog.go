// Package catalog turns the raw asset table into typed entries, resolves them
// against the local content store and bundles the result with the master
// tables into an immutable Catalog value.
package catalog

import (
	"regexp"
	"strings"

	"umatools/pkg/database"
	"umatools/pkg/models"
)

const masterDBName = "master.mdb"

// Catalog is one loaded snapshot. It is never mutated after construction;
// reloading produces a new value.
type Catalog struct {
	Assets []models.ResolvedEntry
	Master *database.Tables
}

// Stats summarizes presence across the asset entries.
type Stats struct {
	Total    int
	Exists   int
	Missing  int
	OnDemand int
}

// Missing returns the entries that have no blob in the content store.
func (c *Catalog) Missing() []models.ResolvedEntry {
	var missing []models.ResolvedEntry
	for _, entry := range c.Assets {
		if !entry.IsFileExists {
			missing = append(missing, entry)
		}
	}
	return missing
}

// Filter returns the entries whose name matches pattern.
func (c *Catalog) Filter(pattern *regexp.Regexp) []models.ResolvedEntry {
	var matched []models.ResolvedEntry
	for _, entry := range c.Assets {
		if pattern.MatchString(entry.Name) {
			matched = append(matched, entry)
		}
	}
	return matched
}

// FindMasterDB returns the entry carrying the compressed master database.
func (c *Catalog) FindMasterDB() (models.ResolvedEntry, bool) {
	for _, entry := range c.Assets {
		if entry.Kind == models.KindMaster && strings.Contains(entry.Name, masterDBName) {
			return entry, true
		}
	}
	return models.ResolvedEntry{}, false
}

// Entries returns the asset entries without their presence flags.
func (c *Catalog) Entries() []models.Entry {
	entries := make([]models.Entry, len(c.Assets))
	for i, entry := range c.Assets {
		entries[i] = entry.Entry
	}
	return entries
}

// Stats counts present, missing and on-demand entries.
func (c *Catalog) Stats() Stats {
	stats := Stats{Total: len(c.Assets)}
	for _, entry := range c.Assets {
		if entry.IsFileExists {
			stats.Exists++
		} else {
			stats.Missing++
		}
		if entry.IsOnDemand {
			stats.OnDemand++
		}
	}
	return stats
}
