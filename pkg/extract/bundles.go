package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"umatools/pkg/log"
	"umatools/pkg/models"
	"umatools/pkg/pool"
	"umatools/pkg/process"
	"umatools/pkg/progress"
)

var musicScorePattern = regexp.MustCompile(`^live/musicscores/`)

// ExtractBundles runs the bundle extractor over every entry. An extractor
// failure marks that item SoftFailed and the batch carries on; any other
// failure aborts the batch.
func (p *Pipeline) ExtractBundles(ctx context.Context, entries []models.ResolvedEntry) (*Report, error) {
	if err := RequireAvailable(entries); err != nil {
		return nil, err
	}

	report := newReport(names(entries))
	if len(entries) == 0 {
		return report, nil
	}

	batchID := uuid.NewString()
	batch := progress.NewBatch("Extracting Unity asset bundles", batchID, len(entries), p.cfg.Quiet)

	err := pool.Run(ctx, p.cfg.Concurrency, pool.AbortOnFirstError, entries,
		func(ctx context.Context, entry models.ResolvedEntry) error {
			defer batch.Complete(entry.Name)
			return p.extractBundle(ctx, entry, report)
		})

	batch.Finish()
	counts := report.Counts()
	log.Info().Str("batch", batchID).
		Int("extracted", counts[StateExtracted]).
		Int("soft_failed", counts[StateSoftFailed]).
		Msg("Bundle extraction summary")

	return report, err
}

func (p *Pipeline) extractBundle(ctx context.Context, entry models.ResolvedEntry, report *Report) error {
	mirrorPath := p.cfg.MirrorPath(entry.Name)
	p.removeStaleOutputs(mirrorPath, entry.Name)

	input, cleanup, err := p.bundleInput(entry, report)
	if err != nil {
		return err
	}
	defer cleanup()

	cmd := process.Command{Path: p.cfg.AssetStudioPath, Args: []string{input, "--output", p.cfg.OutputDir}}
	if _, err := p.runner.Run(ctx, cmd); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Str("name", entry.Name).Str("hash", entry.Hash).Msg("Bundle extractor failed, skipping")
		report.set(entry.Name, StateSoftFailed)
		return nil
	}
	report.set(entry.Name, StateExtracted)

	if musicScorePattern.MatchString(entry.Name) {
		csvPath := mirrorPath + ".csv"
		if err := ProcessMusicScore(csvPath); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Debug().Str("name", entry.Name).Msg("No music score table extracted")
			} else {
				log.Warn().Err(err).Str("path", csvPath).Msg("Failed to convert music score table")
			}
		}
	}
	return nil
}

// bundleInput returns the path the extractor should read. Encrypted blobs are
// decrypted into a temp file that the returned cleanup removes.
func (p *Pipeline) bundleInput(entry models.ResolvedEntry, report *Report) (string, func(), error) {
	noop := func() {}

	if !entry.Encrypted() {
		return p.store.PathFor(entry.Hash), noop, nil
	}
	if p.decryptor == nil {
		return "", noop, fmt.Errorf("%w: %s", ErrNoBundleKey, entry.Name)
	}

	data, err := p.store.Read(entry.Hash)
	if err != nil {
		return "", noop, err
	}
	plain := p.decryptor.Decrypt(data, entry.EncryptionKey)

	tempDir := p.cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := os.MkdirAll(tempDir, 0o750); err != nil {
		return "", noop, err
	}

	tempPath := filepath.Join(tempDir, uuid.NewString())
	if err := os.WriteFile(tempPath, plain, 0o600); err != nil {
		_ = os.Remove(tempPath)
		return "", noop, err
	}
	report.set(entry.Name, StateDecrypted)

	return tempPath, func() {
		if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", tempPath).Msg("Failed to remove decrypted bundle")
		}
	}, nil
}

// removeStaleOutputs deletes earlier extractor outputs for this asset so a
// re-run does not mix old and new files.
func (p *Pipeline) removeStaleOutputs(mirrorPath, name string) {
	dir := filepath.Dir(mirrorPath)
	base := path.Base(name)
	stem := strings.TrimSuffix(base, path.Ext(base))

	files, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, file := range files {
		if file.IsDir() || !strings.HasPrefix(file.Name(), stem) {
			continue
		}
		stale := filepath.Join(dir, file.Name())
		if err := os.Remove(stale); err != nil {
			log.Debug().Err(err).Str("path", stale).Msg("Failed to remove stale output")
		}
	}
}
