package fetch

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"umatools/pkg/catalog"
	"umatools/pkg/compress"
	"umatools/pkg/log"
	"umatools/pkg/progress"
)

const masterDBPerm = 0o644

// UpdateMasterDB force-fetches the master database entry of cat, decodes its
// LZ4 frame and atomically replaces masterDBPath with the result. It runs
// outside any pool as the master database is needed before anything else.
func (f *Fetcher) UpdateMasterDB(ctx context.Context, cat *catalog.Catalog, masterDBPath string) error {
	entry, ok := cat.FindMasterDB()
	if !ok {
		return ErrMasterEntryNotFound
	}

	batchID := uuid.NewString()
	log.Info().Str("batch", batchID).Str("name", entry.Name).Str("hash", entry.Hash).Msg("Updating master database")

	item := progress.NewItem(entry.Name, entry.Length)
	if err := f.download(ctx, entry.Entry, item); err != nil {
		return err
	}

	src, err := f.store.Open(entry.Hash)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(masterDBPath), 0o750); err != nil {
		return err
	}

	temp, err := os.CreateTemp(filepath.Dir(masterDBPath), "."+filepath.Base(masterDBPath)+"-*")
	if err != nil {
		return err
	}
	tempPath := temp.Name()

	written, err := compress.DecompressFrameTo(temp, src)
	if err == nil {
		err = temp.Sync()
	}
	if closeErr := temp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tempPath, masterDBPerm)
	}
	if err == nil {
		err = os.Rename(tempPath, masterDBPath)
	}
	if err != nil {
		_ = os.Remove(tempPath)
		log.Error().Err(err).Str("path", masterDBPath).Msg("Failed to write master database")
		return err
	}

	log.Info().Str("batch", batchID).Str("path", masterDBPath).
		Str("compressed", item.String()).Str("size", humanize.Bytes(uint64(written))).
		Msg("Master database updated")
	return nil
}
