// Package extract drives the external tools over fetched assets: Unity
// bundles go through the bundle extractor, CRI audio containers are probed
// and transcoded to FLAC.
package extract

import (
	"path"
	"strings"

	"umatools/pkg/bundle"
	"umatools/pkg/models"
	"umatools/pkg/process"
	"umatools/pkg/store"
)

// Content is the extraction route for an asset.
type Content int

const (
	ContentBundle Content = iota
	ContentCRIAudio
	ContentMovie
)

// Classify picks the route for a catalog name by its extension.
func Classify(name string) Content {
	switch strings.ToLower(path.Ext(name)) {
	case ".acb", ".awb", ".acf":
		return ContentCRIAudio
	case ".usm":
		return ContentMovie
	default:
		return ContentBundle
	}
}

// Pipeline runs extraction batches.
type Pipeline struct {
	cfg       Config
	store     store.Store
	decryptor *bundle.Decryptor
	runner    process.Runner
}

// New creates a pipeline. decryptor may be nil when no bundle key is
// configured; encrypted bundles then fail. A nil runner uses os/exec.
func New(cfg Config, blobs store.Store, decryptor *bundle.Decryptor, runner process.Runner) *Pipeline {
	if runner == nil {
		runner = process.ExecRunner{}
	}
	return &Pipeline{cfg: cfg, store: blobs, decryptor: decryptor, runner: runner}
}

// RequireAvailable fails with *MissingAssetsError if any entry has no blob.
func RequireAvailable(entries []models.ResolvedEntry) error {
	var missing []string
	for _, entry := range entries {
		if !entry.IsFileExists {
			missing = append(missing, entry.Name)
		}
	}
	if len(missing) > 0 {
		return &MissingAssetsError{Names: missing}
	}
	return nil
}

func names(entries []models.ResolvedEntry) []string {
	out := make([]string, len(entries))
	for i, entry := range entries {
		out[i] = entry.Name
	}
	return out
}
