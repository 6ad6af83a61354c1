package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"umatools/pkg/database"
	"umatools/pkg/log"
	"umatools/pkg/models"
)

// LoaderConfig points the loader at both databases.
type LoaderConfig struct {
	AssetDBPath  string
	MasterDBPath string
	// Asset applies to the encrypted asset catalog.
	Asset database.Options
	// Master applies to the decompressed master database. Only Driver is
	// normally set.
	Master database.Options
}

// Loader builds Catalog snapshots from disk.
type Loader struct {
	cfg    LoaderConfig
	lister Lister
	// OnTable, when set, receives table load progress.
	OnTable func(path, table string, done, total int)
}

// NewLoader creates a loader that resolves presence against lister.
func NewLoader(cfg LoaderConfig, lister Lister) *Loader {
	return &Loader{cfg: cfg, lister: lister}
}

// Load reads the asset catalog and the master database.
func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	return l.Reload(ctx, nil, false)
}

// LoadAssets reads only the asset catalog. Master is left nil, which is what
// a first run needs before the master database has been fetched.
func (l *Loader) LoadAssets(ctx context.Context) (*Catalog, error) {
	assets, err := l.loadAssets(ctx)
	if err != nil {
		return nil, err
	}
	return &Catalog{Assets: assets}, nil
}

// Reload returns a new snapshot. With masterOnly and a previous snapshot the
// asset entries are carried over instead of being re-read. prev is never
// modified.
func (l *Loader) Reload(ctx context.Context, prev *Catalog, masterOnly bool) (*Catalog, error) {
	next := &Catalog{}

	if masterOnly && prev != nil {
		log.Info().Msg("Loading SQLite master database")
		next.Assets = slices.Clone(prev.Assets)
	} else {
		log.Info().Msg("Loading SQLite database")
		assets, err := l.loadAssets(ctx)
		if err != nil {
			return nil, err
		}
		next.Assets = assets
	}

	master, err := l.LoadMaster(ctx)
	if err != nil {
		return nil, err
	}
	next.Master = master

	return next, nil
}

// LoadMaster reads every table of the master database.
func (l *Loader) LoadMaster(ctx context.Context) (*database.Tables, error) {
	return l.loadTables(ctx, l.cfg.MasterDBPath, l.cfg.Master)
}

func (l *Loader) loadAssets(ctx context.Context) ([]models.ResolvedEntry, error) {
	tables, err := l.loadTables(ctx, l.cfg.AssetDBPath, l.cfg.Asset)
	if err != nil {
		return nil, err
	}

	table, ok := tables.Get(AssetTable)
	if !ok {
		return nil, &database.LoadError{Table: AssetTable, Err: fmt.Errorf("table missing from %s", l.cfg.AssetDBPath)}
	}

	entries, err := Normalize(table.Rows)
	if err != nil {
		return nil, err
	}

	log.Info().Int("entries", len(entries)).Msg("Checking for the existence of all asset files")
	resolved, err := CheckExistence(entries, l.lister)
	if err != nil {
		return nil, fmt.Errorf("failed to check asset existence: %w", err)
	}

	stats := (&Catalog{Assets: resolved}).Stats()
	log.Debug().
		Int("exists", stats.Exists).
		Int("missing", stats.Missing).
		Int("on_demand", stats.OnDemand).
		Msg("Asset catalog resolved")

	return resolved, nil
}

func (l *Loader) loadTables(ctx context.Context, path string, opts database.Options) (*database.Tables, error) {
	db, err := database.Open(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("path", path).Msg("Failed to close database")
		}
	}()

	log.Debug().Str("db", filepath.Base(path)).Msg("Reading all tables")
	return db.LoadAllTables(ctx, func(table string, done, total int) {
		if l.OnTable != nil {
			l.OnTable(path, table, done, total)
		}
	})
}
