package extract

import (
	"path/filepath"
	"runtime"
)

// Config locates the external tools and the output tree.
type Config struct {
	AssetStudioPath string
	VGMStreamPath   string
	FLACPath        string

	// OutputDir is handed to the bundle extractor as its output root.
	OutputDir string
	// AssetsSubDir and UnityInternalDir locate, under OutputDir, the tree
	// mirroring the game's internal resource paths.
	AssetsSubDir     string
	UnityInternalDir string

	// TempDir holds decrypted bundles while the extractor reads them.
	// Empty means the system temp dir.
	TempDir string

	Concurrency int
	FLACThreads int
	Quiet       bool
}

// DefaultConfig mirrors the layout the game tooling expects.
func DefaultConfig() Config {
	return Config{
		AssetStudioPath:  filepath.Join("bin", "assetstudio", "AssetStudioModCLI"+exeSuffix()),
		VGMStreamPath:    filepath.Join("bin", "vgmstream", "vgmstream-cli"+exeSuffix()),
		FLACPath:         filepath.Join("bin", "flac", "flac"+exeSuffix()),
		OutputDir:        "output",
		AssetsSubDir:     "assets",
		UnityInternalDir: filepath.Join("_gallopresources", "bundle", "resources"),
		Concurrency:      12,
		FLACThreads:      8,
	}
}

// MirrorDir is where a catalog name maps to a filesystem path.
func (c Config) MirrorDir() string {
	return filepath.Join(c.OutputDir, c.AssetsSubDir, c.UnityInternalDir)
}

// MirrorPath maps a catalog name into MirrorDir.
func (c Config) MirrorPath(name string) string {
	return filepath.Join(c.MirrorDir(), filepath.FromSlash(name))
}

func exeSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
