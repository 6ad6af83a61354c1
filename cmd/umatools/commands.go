package main

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"

	"umatools/pkg/catalog"
	"umatools/pkg/dump"
	"umatools/pkg/extract"
	"umatools/pkg/gamedir"
	"umatools/pkg/log"
	"umatools/pkg/models"
	"umatools/pkg/server"
)

const handbookName = "handbook.html"

var ErrNoMatch = errors.New("no asset matches the pattern")

func runDownload(ctx context.Context, opts *options, _ []string) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	cat, err := a.loadAssets(ctx)
	if err != nil {
		return err
	}
	return a.download(ctx, cat.Assets)
}

func (a *app) download(ctx context.Context, entries []models.ResolvedEntry) error {
	fetcher, err := a.fetcher()
	if err != nil {
		return err
	}

	result, err := fetcher.DownloadMissing(ctx, entries, a.opts.force)
	if result != nil {
		log.Info().
			Str("batch", result.BatchID).
			Int("requested", result.Requested).
			Int("downloaded", len(result.Downloaded)).
			Str("size", humanize.Bytes(uint64(result.Bytes))).
			Msg("Download finished")
	}
	return err
}

func runUpdateMaster(ctx context.Context, opts *options, _ []string) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	cat, err := a.loadAssets(ctx)
	if err != nil {
		return err
	}
	fetcher, err := a.fetcher()
	if err != nil {
		return err
	}
	if err := fetcher.UpdateMasterDB(ctx, cat, a.cfg.Game.MasterDB); err != nil {
		return err
	}
	log.Info().Str("path", a.cfg.Game.MasterDB).Msg("Master database updated")
	return nil
}

// compilePattern matches everything when no pattern is given.
func compilePattern(args []string) (*regexp.Regexp, error) {
	switch len(args) {
	case 0:
		return regexp.MustCompile(""), nil
	case 1:
		pattern, err := regexp.Compile(args[0])
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", args[0], err)
		}
		return pattern, nil
	default:
		return nil, fmt.Errorf("expected one pattern, got %d arguments", len(args))
	}
}

// matchAvailable filters the catalog by pattern and downloads what the match
// is missing before returning the refreshed entries.
func (a *app) matchAvailable(ctx context.Context, args []string) ([]models.ResolvedEntry, error) {
	pattern, err := compilePattern(args)
	if err != nil {
		return nil, err
	}

	cat, err := a.loadAssets(ctx)
	if err != nil {
		return nil, err
	}
	matched := cat.Filter(pattern)
	if len(matched) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, pattern)
	}

	missing := (&catalog.Catalog{Assets: matched}).Stats().Missing
	if missing == 0 {
		return matched, nil
	}

	log.Info().Int("missing", missing).Msg("Downloading missing assets before extraction")
	if err := a.download(ctx, matched); err != nil {
		return nil, err
	}

	cat, err = a.loadAssets(ctx)
	if err != nil {
		return nil, err
	}
	return cat.Filter(pattern), nil
}

func splitByRoute(entries []models.ResolvedEntry) (bundles, cri []models.ResolvedEntry, skipped int) {
	for _, entry := range entries {
		switch extract.Classify(entry.Name) {
		case extract.ContentCRIAudio:
			cri = append(cri, entry)
		case extract.ContentMovie:
			skipped++
		default:
			bundles = append(bundles, entry)
		}
	}
	return bundles, cri, skipped
}

func logReport(msg string, report *extract.Report) {
	if report == nil {
		return
	}
	event := log.Info().Int("items", report.Len())
	for state, n := range report.Counts() {
		event = event.Int(state.String(), n)
	}
	event.Msg(msg)
}

func runExtract(ctx context.Context, opts *options, args []string) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	entries, err := a.matchAvailable(ctx, args)
	if err != nil {
		return err
	}
	pipeline, err := a.pipeline()
	if err != nil {
		return err
	}

	bundles, cri, skipped := splitByRoute(entries)
	if skipped > 0 {
		log.Info().Int("count", skipped).Msg("Skipping movie files")
	}

	if len(bundles) > 0 {
		report, err := pipeline.ExtractBundles(ctx, bundles)
		logReport("Bundle extraction finished", report)
		if err != nil {
			return err
		}
	}
	if len(cri) > 0 {
		report, err := pipeline.ExtractCRI(ctx, cri)
		logReport("CRI transcoding finished", report)
		if err != nil {
			return err
		}
	}
	return nil
}

func runExtractCRI(ctx context.Context, opts *options, args []string) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	entries, err := a.matchAvailable(ctx, args)
	if err != nil {
		return err
	}

	_, cri, _ := splitByRoute(entries)
	if len(cri) == 0 {
		return fmt.Errorf("%w: no CRI containers among %d matches", ErrNoMatch, len(entries))
	}

	pipeline, err := a.pipeline()
	if err != nil {
		return err
	}
	report, err := pipeline.ExtractCRI(ctx, cri)
	logReport("CRI transcoding finished", report)
	return err
}

func runDump(ctx context.Context, opts *options, _ []string) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}

	log.Info().Str("assets", a.cfg.Game.AssetDB).Str("master", a.cfg.Game.MasterDB).Msg("Loading SQLite databases")
	cat, err := a.loader.Load(ctx)
	if err != nil {
		return err
	}
	a.logStats(cat)

	dir := a.cfg.DBDir()
	if err := dump.Export(cat, dir, a.quiet()); err != nil {
		return err
	}
	log.Info().Str("dir", dir).Int("tables", len(cat.Master.Order)).Msg("Database export finished")
	return nil
}

// runServe needs only the output tree, not the game directory.
func runServe(_ context.Context, opts *options, _ []string) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	addr := opts.addr
	if addr == "" {
		addr = server.DefaultAddr
	}

	hs, err := server.NewHandbookServer(cfg.Output.Dir, path.Join(cfg.Output.DBSubDir, handbookName))
	if err != nil {
		return err
	}
	return hs.Start(addr)
}

func runResolve(_ context.Context, opts *options, _ []string) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	paths, err := gamedir.Resolve(cfg.GameOptions())
	if err != nil {
		return err
	}
	if err := saveGamePaths(opts.configPath, paths); err != nil {
		return err
	}

	fmt.Printf("asset dir: %s\nasset db:  %s\nmaster db: %s\n", paths.AssetDir, paths.AssetDB, paths.MasterDB)
	log.Info().Str("config", opts.configPath).Msg("Game paths saved")
	return nil
}

func runVersion(_ context.Context, _ *options, _ []string) error {
	fmt.Println(strings.TrimSpace(Version))
	return nil
}
