package main

import (
	"context"
	"fmt"

	"umatools/pkg/catalog"
	"umatools/pkg/config"
	"umatools/pkg/extract"
	"umatools/pkg/fetch"
	"umatools/pkg/gamedir"
	"umatools/pkg/log"
	"umatools/pkg/store/shard"
)

// app is the wiring shared by every command.
type app struct {
	opts   *options
	cfg    *config.Config
	store  *shard.Store
	loader *catalog.Loader
}

// loadConfig reads the config and applies the command line overrides.
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.outputDir != "" {
		cfg.Output.Dir = opts.outputDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := log.SetLevel(cfg.Log.Level); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp loads the config and resolves the game directory, saving newly
// found paths back to the config file.
func newApp(opts *options) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	paths, err := gamedir.Resolve(cfg.GameOptions())
	if err != nil {
		return nil, err
	}
	if paths != (gamedir.Paths{AssetDir: cfg.Game.AssetDir, AssetDB: cfg.Game.AssetDB, MasterDB: cfg.Game.MasterDB}) {
		cfg.SetGamePaths(paths)
		if err := saveGamePaths(opts.configPath, paths); err != nil {
			log.Warn().Err(err).Str("path", opts.configPath).Msg("Failed to save game paths to config")
		}
	}

	loaderCfg, err := cfg.Loader()
	if err != nil {
		return nil, err
	}

	blobs := shard.New(cfg.Game.AssetDir)
	loader := catalog.NewLoader(loaderCfg, blobs)
	loader.OnTable = func(path, table string, done, total int) {
		log.Trace().Str("db", path).Str("table", table).Str("progress", fmt.Sprintf("%d/%d", done, total)).Msg("Loaded table")
	}

	return &app{opts: opts, cfg: cfg, store: blobs, loader: loader}, nil
}

// saveGamePaths rewrites only the game section, so command line overrides
// are never persisted.
func saveGamePaths(configPath string, paths gamedir.Paths) error {
	onDisk, err := config.Load(configPath)
	if err != nil {
		return err
	}
	onDisk.SetGamePaths(paths)
	return onDisk.Save(configPath)
}

func (a *app) quiet() bool {
	return a.opts.noProgress
}

func (a *app) fetcher() (*fetch.Fetcher, error) {
	cfg, err := a.cfg.Fetch(a.quiet())
	if err != nil {
		return nil, err
	}
	if a.opts.threads > 0 {
		cfg.Concurrency = a.opts.threads
	}
	return fetch.New(cfg, a.store)
}

func (a *app) pipeline() (*extract.Pipeline, error) {
	decryptor, err := a.cfg.BundleDecryptor()
	if err != nil {
		return nil, err
	}
	cfg := a.cfg.Extract(a.quiet())
	if a.opts.threads > 0 {
		cfg.Concurrency = a.opts.threads
	}
	return extract.New(cfg, a.store, decryptor, nil), nil
}

func (a *app) logStats(cat *catalog.Catalog) {
	stats := cat.Stats()
	log.Info().
		Int("total", stats.Total).
		Int("exists", stats.Exists).
		Int("missing", stats.Missing).
		Int("ondemand", stats.OnDemand).
		Msg("Asset catalog loaded")
}

// loadAssets reads the asset catalog only.
func (a *app) loadAssets(ctx context.Context) (*catalog.Catalog, error) {
	log.Info().Str("path", a.cfg.Game.AssetDB).Msg("Loading SQLite asset database")
	cat, err := a.loader.LoadAssets(ctx)
	if err != nil {
		return nil, err
	}
	a.logStats(cat)
	return cat, nil
}
