package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"umatools/pkg/database"
	"umatools/pkg/extract"
	"umatools/pkg/gamedir"
	"umatools/pkg/pool"
)

// ConfigTestSuite tests loading and converting the YAML config
type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	path    string
}

func (s *ConfigTestSuite) SetupTest() {
	s.tempDir = s.T().TempDir()
	s.path = filepath.Join(s.tempDir, "config", "config.yaml")
}

func (s *ConfigTestSuite) write(content string) {
	s.Require().NoError(os.MkdirAll(filepath.Dir(s.path), 0o750))
	s.Require().NoError(os.WriteFile(s.path, []byte(content), 0o644))
}

func (s *ConfigTestSuite) TestDefaults() {
	cfg := Default()

	s.Equal("info", cfg.Log.Level)
	s.Equal("prd-storage-game-umamusume.akamaized.net", cfg.Network.BaseDomain)
	s.Equal("dl/resources", cfg.Network.APIPath)
	s.Equal("Windows/assetbundles", cfg.Network.Endpoints.AssetBundle)
	s.Equal("20s", cfg.Network.Timeout)
	s.Equal(5, cfg.Network.RetryCount)
	s.Equal(8, cfg.Network.Threads)
	s.Equal(12, cfg.Processing.Threads)
	s.Equal("collect", cfg.Network.ErrorPolicy)
	s.Equal("output", cfg.Output.Dir)
	s.Equal("assets", cfg.Output.AssetsSubDir)
	s.Equal("db", cfg.Output.DBSubDir)
	s.Equal("_gallopresources/bundle/resources", cfg.Output.UnityInternalDir)
	s.NoError(cfg.Validate())
}

func (s *ConfigTestSuite) TestLoadMissingWritesDefaults() {
	cfg, err := Load(s.path)
	s.Require().NoError(err)
	s.Equal(Default().Network, cfg.Network)
	s.FileExists(s.path)

	again, err := Load(s.path)
	s.Require().NoError(err)
	s.Equal(cfg, again)
}

func (s *ConfigTestSuite) TestPartialFileKeepsOtherDefaults() {
	s.write(`
log:
  level: debug
network:
  threads: 3
  timeout: 45s
output:
  dir: /data/out
`)

	cfg, err := Load(s.path)
	s.Require().NoError(err)
	s.Equal("debug", cfg.Log.Level)
	s.Equal(3, cfg.Network.Threads)
	s.Equal("45s", cfg.Network.Timeout)
	s.Equal("/data/out", cfg.Output.Dir)

	s.Equal(5, cfg.Network.RetryCount)
	s.Equal(12, cfg.Processing.Threads)
	s.Equal("dl/resources", cfg.Network.APIPath)
}

func (s *ConfigTestSuite) TestInvalidYAML() {
	s.write("network: [unclosed")
	_, err := Load(s.path)
	s.Error(err)
}

func (s *ConfigTestSuite) TestSaveRoundTripsGamePaths() {
	cfg := Default()
	cfg.SetGamePaths(gamedir.Paths{AssetDir: "/g/dat", AssetDB: "/g/meta", MasterDB: "/g/master/master.mdb"})
	s.Require().NoError(cfg.Save(s.path))

	loaded, err := Load(s.path)
	s.Require().NoError(err)
	s.Equal("/g/dat", loaded.Game.AssetDir)
	s.Equal("/g/meta", loaded.Game.AssetDB)
	s.Equal("/g/master/master.mdb", loaded.Game.MasterDB)
}

func (s *ConfigTestSuite) TestExpandVariables() {
	s.T().Setenv("UMATOOLS_TEST_ROOT", "/srv/game")
	s.write(`
game:
  asset_dir: ${UMATOOLS_TEST_ROOT}/dat
  search_roots: ["${UMATOOLS_TEST_UNSET:-/mnt/games}"]
`)

	cfg, err := Load(s.path)
	s.Require().NoError(err)
	s.Equal("/srv/game/dat", cfg.Game.AssetDir)
	s.Equal([]string{"/mnt/games"}, cfg.Game.SearchRoots)
}

func (s *ConfigTestSuite) TestValidateRejects() {
	cases := map[string]func(*Config){
		"level":        func(c *Config) { c.Log.Level = "loud" },
		"timeout":      func(c *Config) { c.Network.Timeout = "soon" },
		"threads":      func(c *Config) { c.Network.Threads = 0 },
		"policy":       func(c *Config) { c.Network.ErrorPolicy = "ignore" },
		"processing":   func(c *Config) { c.Processing.Threads = 0 },
		"half db keys": func(c *Config) { c.Cipher.DBBaseKey = "00112233445566778899aabbcc" },
		"short db key": func(c *Config) { c.Cipher.DBBaseKey = "0011"; c.Cipher.DBPlainKey = "aa" },
		"bundle key":   func(c *Config) { c.Cipher.BundleBaseKey = "0011" },
		"bundle hex":   func(c *Config) { c.Cipher.BundleBaseKey = "zz" },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		s.ErrorIs(cfg.Validate(), ErrInvalidConfig, name)
	}
}

func (s *ConfigTestSuite) TestFetchConversion() {
	cfg := Default()
	cfg.Network.ErrorPolicy = "abort"
	cfg.Network.RetryWaitMin = "1s"

	fetchCfg, err := cfg.Fetch(true)
	s.Require().NoError(err)
	s.Equal(20*time.Second, fetchCfg.Timeout)
	s.Equal(time.Second, fetchCfg.RetryWaitMin)
	s.Equal(pool.AbortOnFirstError, fetchCfg.Policy)
	s.Equal(8, fetchCfg.Concurrency)
	s.True(fetchCfg.Quiet)
	s.NoError(fetchCfg.Validate())
}

func (s *ConfigTestSuite) TestExtractConversion() {
	cfg := Default()
	cfg.Output.Dir = "out"

	extractCfg := cfg.Extract(false)
	s.Equal(12, extractCfg.Concurrency)
	s.Equal(filepath.Join("out", "assets", "_gallopresources", "bundle", "resources"), extractCfg.MirrorDir())
	s.Equal(extract.DefaultConfig().AssetStudioPath, extractCfg.AssetStudioPath)
	s.Equal(filepath.Join("out", "db"), cfg.DBDir())
}

func (s *ConfigTestSuite) TestLoaderDerivesAssetKey() {
	cfg := Default()
	cfg.Game.AssetDB = "/g/meta"
	cfg.Game.MasterDB = "/g/master/master.mdb"

	plain, err := cfg.Loader()
	s.Require().NoError(err)
	s.Empty(plain.Asset.KeyHex)
	s.Equal(database.PlainDriver, plain.Asset.Driver)

	cfg.Cipher.DBBaseKey = "000000000000000000000000ff"
	cfg.Cipher.DBPlainKey = "0102"
	cfg.Database.Cipher = "chacha20"

	keyed, err := cfg.Loader()
	s.Require().NoError(err)
	s.Equal("0102", keyed.Asset.KeyHex)
	s.Equal("chacha20", keyed.Asset.Cipher)
	s.Equal(database.CipherDriver, keyed.Asset.Driver)
	s.Empty(keyed.Master.KeyHex)
	s.Equal(database.PlainDriver, keyed.Master.Driver)
	s.Equal("/g/meta", keyed.AssetDBPath)
}

func (s *ConfigTestSuite) TestLoaderKeepsExplicitDriver() {
	cfg := Default()
	cfg.Database.Driver = "sqlite3mc"
	cfg.Cipher.DBBaseKey = "000000000000000000000000ff"
	cfg.Cipher.DBPlainKey = "0102"

	loader, err := cfg.Loader()
	s.Require().NoError(err)
	s.Equal("sqlite3mc", loader.Asset.Driver)
	s.Equal("sqlite3mc", loader.Master.Driver)
}

func (s *ConfigTestSuite) TestBundleDecryptor() {
	cfg := Default()
	decryptor, err := cfg.BundleDecryptor()
	s.Require().NoError(err)
	s.Nil(decryptor)

	cfg.Cipher.BundleBaseKey = "0102030405060708090a0b"
	decryptor, err = cfg.BundleDecryptor()
	s.Require().NoError(err)
	s.NotNil(decryptor)
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
