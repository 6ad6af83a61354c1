// Package gamedir locates the game's asset directory and its two SQLite
// files on the local machine.
package gamedir

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"umatools/pkg/log"
)

const metaFileName = "meta"

// ErrGameDirNotFound is returned when no candidate holds a meta file.
var ErrGameDirNotFound = errors.New("game asset directory not found; set game.asset_dir, game.asset_db and game.master_db in the config")

// install locations relative to a drive root or the home directory
var installSuffixes = []string{
	"Games/Cygames/umamusume",
	"Games/Umamusume/Cygames/umamusume",
	"Games/umamusume/Cygames/umamusume",
	"Games/Umamusume/res",
}

const localLowSuffix = "AppData/LocalLow/Cygames/umamusume"

// Paths are the three locations the tool reads from.
type Paths struct {
	AssetDir string
	AssetDB  string
	MasterDB string
}

// FromMeta derives the layout next to a meta file.
func FromMeta(metaPath string) Paths {
	dir := filepath.Dir(metaPath)
	return Paths{
		AssetDir: filepath.Join(dir, "dat"),
		AssetDB:  filepath.Join(dir, metaFileName),
		MasterDB: filepath.Join(dir, "master", "master.mdb"),
	}
}

// Exists reports whether all three paths are present.
func (p Paths) Exists() bool {
	if p.AssetDir == "" || p.AssetDB == "" || p.MasterDB == "" {
		return false
	}
	return isDir(p.AssetDir) && isFile(p.AssetDB) && isFile(p.MasterDB)
}

// Options drives Resolve.
type Options struct {
	// Configured paths win when all of them exist.
	Configured Paths
	// SearchRoots are scanned before the platform defaults.
	SearchRoots []string
	// GOOS selects the platform defaults.
	GOOS string
	// Home is the user profile directory.
	Home string
}

// Resolve returns the configured paths when they exist, otherwise the layout
// around the first meta file found among the candidates.
func Resolve(opts Options) (Paths, error) {
	if opts.Configured.Exists() {
		log.Info().Str("path", filepath.Dir(opts.Configured.AssetDB)).Msg("Found game asset dir path")
		return opts.Configured, nil
	}
	if opts.Configured != (Paths{}) {
		log.Warn().Msg("Game asset dir path specified in config does not exist")
	}

	log.Debug().Msg("Trying to resolve game asset dir path")
	for _, candidate := range Candidates(opts) {
		if isFile(candidate) {
			paths := FromMeta(candidate)
			log.Info().Str("path", filepath.Dir(candidate)).Msg("Found game asset dir path")
			return paths, nil
		}
	}
	return Paths{}, ErrGameDirNotFound
}

// Candidates lists meta file locations in scan order. On Windows drives D
// to Z are scanned before A, B and C.
func Candidates(opts Options) []string {
	var out []string
	for _, root := range opts.SearchRoots {
		if root == "" {
			continue
		}
		out = append(out, filepath.Join(root, metaFileName))
		for _, suffix := range installSuffixes {
			out = append(out, filepath.Join(root, filepath.FromSlash(suffix), metaFileName))
		}
	}

	if opts.GOOS == "windows" {
		return append(out, windowsCandidates(opts.Home)...)
	}

	if opts.Home != "" {
		for _, suffix := range slices.Concat(installSuffixes, []string{localLowSuffix}) {
			out = append(out, filepath.Join(opts.Home, filepath.FromSlash(suffix), metaFileName))
		}
	}
	return out
}

func windowsCandidates(profile string) []string {
	profile = strings.ReplaceAll(profile, `\`, "/")
	if len(profile) >= 2 && profile[1] == ':' {
		profile = profile[2:]
	}
	profile = strings.Trim(profile, "/")

	suffixes := slices.Clone(installSuffixes)
	if profile != "" {
		suffixes = append(suffixes, profile+"/"+localLowSuffix)
	}

	var drives []string
	for letter := 'D'; letter <= 'Z'; letter++ {
		drives = append(drives, string(letter))
	}
	drives = append(drives, "A", "B", "C")

	out := make([]string, 0, len(drives)*len(suffixes))
	for _, drive := range drives {
		for _, suffix := range suffixes {
			out = append(out, drive+":"+filepath.FromSlash("/"+suffix+"/"+metaFileName))
		}
	}
	return out
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
