package gamedir

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

// GameDirTestSuite tests game directory discovery
type GameDirTestSuite struct {
	suite.Suite
	tempDir string
}

func (s *GameDirTestSuite) SetupTest() {
	s.tempDir = s.T().TempDir()
}

// install creates a game layout under dir and returns the meta path.
func (s *GameDirTestSuite) install(dir string) string {
	s.Require().NoError(os.MkdirAll(filepath.Join(dir, "dat"), 0o750))
	s.Require().NoError(os.MkdirAll(filepath.Join(dir, "master"), 0o750))
	meta := filepath.Join(dir, "meta")
	s.Require().NoError(os.WriteFile(meta, []byte("sqlite"), 0o644))
	s.Require().NoError(os.WriteFile(filepath.Join(dir, "master", "master.mdb"), []byte("sqlite"), 0o644))
	return meta
}

func (s *GameDirTestSuite) TestFromMeta() {
	paths := FromMeta(filepath.Join("x", "umamusume", "meta"))
	s.Equal(filepath.Join("x", "umamusume", "dat"), paths.AssetDir)
	s.Equal(filepath.Join("x", "umamusume", "meta"), paths.AssetDB)
	s.Equal(filepath.Join("x", "umamusume", "master", "master.mdb"), paths.MasterDB)
}

func (s *GameDirTestSuite) TestConfiguredPathsWin() {
	configured := FromMeta(s.install(filepath.Join(s.tempDir, "configured")))
	s.install(filepath.Join(s.tempDir, "root"))

	paths, err := Resolve(Options{Configured: configured, SearchRoots: []string{filepath.Join(s.tempDir, "root")}, GOOS: "linux"})
	s.Require().NoError(err)
	s.Equal(configured, paths)
}

func (s *GameDirTestSuite) TestStaleConfigFallsBackToSearchRoots() {
	stale := FromMeta(filepath.Join(s.tempDir, "gone", "meta"))
	meta := s.install(filepath.Join(s.tempDir, "root"))

	paths, err := Resolve(Options{Configured: stale, SearchRoots: []string{filepath.Join(s.tempDir, "root")}, GOOS: "linux"})
	s.Require().NoError(err)
	s.Equal(FromMeta(meta), paths)
}

func (s *GameDirTestSuite) TestInstallSuffixUnderSearchRoot() {
	meta := s.install(filepath.Join(s.tempDir, "drive", "Games", "Umamusume", "Cygames", "umamusume"))

	paths, err := Resolve(Options{SearchRoots: []string{filepath.Join(s.tempDir, "drive")}, GOOS: "linux"})
	s.Require().NoError(err)
	s.Equal(meta, paths.AssetDB)
}

func (s *GameDirTestSuite) TestHomeLocalLow() {
	meta := s.install(filepath.Join(s.tempDir, "AppData", "LocalLow", "Cygames", "umamusume"))

	paths, err := Resolve(Options{GOOS: "linux", Home: s.tempDir})
	s.Require().NoError(err)
	s.Equal(meta, paths.AssetDB)
}

func (s *GameDirTestSuite) TestMetaDirectoryIsNotAccepted() {
	s.Require().NoError(os.MkdirAll(filepath.Join(s.tempDir, "root", "meta"), 0o750))

	_, err := Resolve(Options{SearchRoots: []string{filepath.Join(s.tempDir, "root")}, GOOS: "linux"})
	s.ErrorIs(err, ErrGameDirNotFound)
}

func (s *GameDirTestSuite) TestNotFound() {
	_, err := Resolve(Options{SearchRoots: []string{s.tempDir}, GOOS: "linux", Home: s.tempDir})
	s.ErrorIs(err, ErrGameDirNotFound)
}

func (s *GameDirTestSuite) TestWindowsCandidateOrder() {
	candidates := Candidates(Options{GOOS: "windows", Home: `C:\Users\trainer`})
	s.Require().NotEmpty(candidates)

	s.True(strings.HasPrefix(candidates[0], "D:"), candidates[0])
	s.True(strings.HasPrefix(candidates[len(candidates)-1], "C:"), candidates[len(candidates)-1])
	s.Len(candidates, 26*5)

	var hasProfile bool
	for _, candidate := range candidates {
		if strings.Contains(filepath.ToSlash(candidate), "Users/trainer/AppData/LocalLow/Cygames/umamusume/meta") {
			hasProfile = true
			break
		}
	}
	s.True(hasProfile)
}

func TestGameDirTestSuite(t *testing.T) {
	suite.Run(t, new(GameDirTestSuite))
}
