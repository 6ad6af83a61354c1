// Package config loads the tool's YAML configuration and turns it into the
// per-component settings.
//
// The file is created with defaults on first use. Values in the file are
// merged over the defaults, so a partial file keeps every other default.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"umatools/pkg/bundle"
	"umatools/pkg/catalog"
	"umatools/pkg/database"
	"umatools/pkg/extract"
	"umatools/pkg/fetch"
	"umatools/pkg/gamedir"
	"umatools/pkg/keys"
	"umatools/pkg/pool"
)

// DefaultPath is used when no --config flag is given.
const DefaultPath = "config/config.yaml"

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the whole configuration file.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Cipher     CipherConfig     `yaml:"cipher"`
	Network    NetworkConfig    `yaml:"network"`
	Processing ProcessingConfig `yaml:"processing"`
	Tools      ToolsConfig      `yaml:"tools"`
	Game       GameConfig       `yaml:"game"`
	Output     OutputConfig     `yaml:"output"`
	Database   DatabaseConfig   `yaml:"database"`
}

// LogConfig configures the logger.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `yaml:"level"`
}

// CipherConfig holds key material as hex strings.
type CipherConfig struct {
	// DBBaseKey is cycled over DBPlainKey to form the catalog page-cipher key.
	DBBaseKey  string `yaml:"db_base_key"`
	DBPlainKey string `yaml:"db_plain_key"`
	// BundleBaseKey is the 11-byte asset bundle base key.
	BundleBaseKey string `yaml:"bundle_base_key"`
}

// EndpointsConfig names the CDN path segment per routing family.
type EndpointsConfig struct {
	Manifest    string `yaml:"manifest"`
	Generic     string `yaml:"generic"`
	AssetBundle string `yaml:"asset_bundle"`
}

// NetworkConfig configures the CDN client.
type NetworkConfig struct {
	BaseDomain string          `yaml:"base_domain"`
	APIPath    string          `yaml:"api_path"`
	Endpoints  EndpointsConfig `yaml:"endpoints"`
	UserAgent  string          `yaml:"user_agent"`

	// Timeout, RetryWaitMin and RetryWaitMax are duration strings (20s, 500ms).
	Timeout      string `yaml:"timeout"`
	RetryCount   int    `yaml:"retry_count"`
	RetryWaitMin string `yaml:"retry_wait_min"`
	RetryWaitMax string `yaml:"retry_wait_max"`

	Threads int `yaml:"threads"`
	// ErrorPolicy is "collect" or "abort".
	ErrorPolicy string `yaml:"error_policy"`
}

// ProcessingConfig configures offline work.
type ProcessingConfig struct {
	Threads     int    `yaml:"threads"`
	FLACThreads int    `yaml:"flac_threads"`
	TempDir     string `yaml:"temp_dir"`
}

// ToolsConfig locates the external tools.
type ToolsConfig struct {
	AssetStudio string `yaml:"asset_studio"`
	VGMStream   string `yaml:"vgmstream"`
	FLAC        string `yaml:"flac"`
}

// GameConfig locates the installed game. Empty paths are resolved on first
// use and saved back.
type GameConfig struct {
	AssetDir    string   `yaml:"asset_dir"`
	AssetDB     string   `yaml:"asset_db"`
	MasterDB    string   `yaml:"master_db"`
	SearchRoots []string `yaml:"search_roots,omitempty"`
}

// OutputConfig lays out the output tree.
type OutputConfig struct {
	Dir              string `yaml:"dir"`
	AssetsSubDir     string `yaml:"assets"`
	DBSubDir         string `yaml:"db"`
	UnityInternalDir string `yaml:"unity_internal_dir"`
}

// DatabaseConfig selects the SQLite driver and page-cipher scheme. An empty
// driver picks the cipher driver for a keyed catalog and the plain driver
// otherwise.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Cipher string `yaml:"cipher"`
}

// Default returns the configuration written on first run.
func Default() *Config {
	fetchDefaults := fetch.DefaultConfig()
	extractDefaults := extract.DefaultConfig()

	return &Config{
		Log: LogConfig{Level: "info"},
		Network: NetworkConfig{
			BaseDomain: fetchDefaults.BaseDomain,
			APIPath:    fetchDefaults.APIPath,
			Endpoints: EndpointsConfig{
				Manifest:    fetchDefaults.Endpoints.Manifest,
				Generic:     fetchDefaults.Endpoints.Generic,
				AssetBundle: fetchDefaults.Endpoints.AssetBundle,
			},
			UserAgent:    fetchDefaults.UserAgent,
			Timeout:      fetchDefaults.Timeout.String(),
			RetryCount:   fetchDefaults.RetryCount,
			RetryWaitMin: fetchDefaults.RetryWaitMin.String(),
			RetryWaitMax: fetchDefaults.RetryWaitMax.String(),
			Threads:      fetchDefaults.Concurrency,
			ErrorPolicy:  fetchDefaults.Policy.String(),
		},
		Processing: ProcessingConfig{
			Threads:     extractDefaults.Concurrency,
			FLACThreads: extractDefaults.FLACThreads,
		},
		Tools: ToolsConfig{
			AssetStudio: extractDefaults.AssetStudioPath,
			VGMStream:   extractDefaults.VGMStreamPath,
			FLAC:        extractDefaults.FLACPath,
		},
		Output: OutputConfig{
			Dir:              extractDefaults.OutputDir,
			AssetsSubDir:     extractDefaults.AssetsSubDir,
			DBSubDir:         "db",
			UnityInternalDir: filepath.ToSlash(extractDefaults.UnityInternalDir),
		},
		Database: DatabaseConfig{},
	}
}

// Load reads path over the defaults. A missing file is created with the
// defaults first.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
		cfg.expandVariables()
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.expandVariables()
	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// expandVariables expands ${VAR} and ${VAR:-default} in path settings.
func (c *Config) expandVariables() {
	for _, field := range []*string{
		&c.Tools.AssetStudio, &c.Tools.VGMStream, &c.Tools.FLAC,
		&c.Game.AssetDir, &c.Game.AssetDB, &c.Game.MasterDB,
		&c.Output.Dir, &c.Processing.TempDir,
	} {
		*field = expandVars(*field)
	}
	for i, root := range c.Game.SearchRoots {
		c.Game.SearchRoots[i] = expandVars(root)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if parts[1] == "HOME" {
			if home, err := os.UserHomeDir(); err == nil {
				return home
			}
		}
		return parts[2]
	})
}

// Validate checks every field that a component would otherwise reject later.
func (c *Config) Validate() error {
	var errs []error

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	for name, value := range map[string]string{
		"network.timeout":        c.Network.Timeout,
		"network.retry_wait_min": c.Network.RetryWaitMin,
		"network.retry_wait_max": c.Network.RetryWaitMax,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if c.Network.RetryCount < 0 {
		errs = append(errs, fmt.Errorf("network.retry_count must not be negative"))
	}
	if c.Network.Threads < 1 {
		errs = append(errs, fmt.Errorf("network.threads must be at least 1"))
	}
	if _, err := pool.ParsePolicy(c.Network.ErrorPolicy); err != nil {
		errs = append(errs, fmt.Errorf("network.error_policy: %w", err))
	}
	if c.Processing.Threads < 1 {
		errs = append(errs, fmt.Errorf("processing.threads must be at least 1"))
	}
	if c.Output.Dir == "" {
		errs = append(errs, fmt.Errorf("output.dir is required"))
	}

	if (c.Cipher.DBBaseKey == "") != (c.Cipher.DBPlainKey == "") {
		errs = append(errs, fmt.Errorf("cipher.db_base_key and cipher.db_plain_key must be set together"))
	} else if c.Cipher.DBBaseKey != "" {
		if _, err := keys.SQLiteCipherKeyHex(c.Cipher.DBPlainKey, c.Cipher.DBBaseKey); err != nil {
			errs = append(errs, fmt.Errorf("cipher: %w", err))
		}
	}
	if c.Cipher.BundleBaseKey != "" {
		if _, err := c.BundleDecryptor(); err != nil {
			errs = append(errs, fmt.Errorf("cipher.bundle_base_key: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Fetch returns the CDN client settings.
func (c *Config) Fetch(quiet bool) (fetch.Config, error) {
	policy, err := pool.ParsePolicy(c.Network.ErrorPolicy)
	if err != nil {
		return fetch.Config{}, err
	}
	timeout, err := time.ParseDuration(c.Network.Timeout)
	if err != nil {
		return fetch.Config{}, fmt.Errorf("network.timeout: %w", err)
	}
	waitMin, err := time.ParseDuration(c.Network.RetryWaitMin)
	if err != nil {
		return fetch.Config{}, fmt.Errorf("network.retry_wait_min: %w", err)
	}
	waitMax, err := time.ParseDuration(c.Network.RetryWaitMax)
	if err != nil {
		return fetch.Config{}, fmt.Errorf("network.retry_wait_max: %w", err)
	}

	return fetch.Config{
		BaseDomain: c.Network.BaseDomain,
		APIPath:    c.Network.APIPath,
		Endpoints: fetch.Endpoints{
			Manifest:    c.Network.Endpoints.Manifest,
			Generic:     c.Network.Endpoints.Generic,
			AssetBundle: c.Network.Endpoints.AssetBundle,
		},
		UserAgent:    c.Network.UserAgent,
		Timeout:      timeout,
		RetryCount:   c.Network.RetryCount,
		RetryWaitMin: waitMin,
		RetryWaitMax: waitMax,
		Concurrency:  c.Network.Threads,
		Policy:       policy,
		Quiet:        quiet,
	}, nil
}

// Extract returns the extraction pipeline settings.
func (c *Config) Extract(quiet bool) extract.Config {
	return extract.Config{
		AssetStudioPath:  c.Tools.AssetStudio,
		VGMStreamPath:    c.Tools.VGMStream,
		FLACPath:         c.Tools.FLAC,
		OutputDir:        c.Output.Dir,
		AssetsSubDir:     c.Output.AssetsSubDir,
		UnityInternalDir: filepath.FromSlash(c.Output.UnityInternalDir),
		TempDir:          c.Processing.TempDir,
		Concurrency:      c.Processing.Threads,
		FLACThreads:      c.Processing.FLACThreads,
		Quiet:            quiet,
	}
}

// Loader returns the catalog loader settings. The asset catalog gets the
// derived page-cipher key when key material is configured.
func (c *Config) Loader() (catalog.LoaderConfig, error) {
	plain := c.Database.Driver
	if plain == "" {
		plain = database.PlainDriver
	}

	asset := database.Options{Driver: plain}
	if c.Cipher.DBBaseKey != "" && c.Cipher.DBPlainKey != "" {
		keyHex, err := keys.SQLiteCipherKeyHex(c.Cipher.DBPlainKey, c.Cipher.DBBaseKey)
		if err != nil {
			return catalog.LoaderConfig{}, err
		}
		if c.Database.Driver == "" {
			asset.Driver = database.CipherDriver
		}
		asset.Cipher = c.Database.Cipher
		asset.KeyHex = keyHex
	}

	return catalog.LoaderConfig{
		AssetDBPath:  c.Game.AssetDB,
		MasterDBPath: c.Game.MasterDB,
		Asset:        asset,
		Master:       database.Options{Driver: plain},
	}, nil
}

// BundleDecryptor returns nil without error when no bundle key is set.
func (c *Config) BundleDecryptor() (*bundle.Decryptor, error) {
	if c.Cipher.BundleBaseKey == "" {
		return nil, nil
	}
	base, err := keys.DecodeHex(c.Cipher.BundleBaseKey)
	if err != nil {
		return nil, err
	}
	return bundle.NewDecryptor(base)
}

// GameOptions returns the resolver input for this platform.
func (c *Config) GameOptions() gamedir.Options {
	home := os.Getenv("USERPROFILE")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return gamedir.Options{
		Configured: gamedir.Paths{
			AssetDir: c.Game.AssetDir,
			AssetDB:  c.Game.AssetDB,
			MasterDB: c.Game.MasterDB,
		},
		SearchRoots: c.Game.SearchRoots,
		GOOS:        runtime.GOOS,
		Home:        home,
	}
}

// SetGamePaths stores resolved game paths.
func (c *Config) SetGamePaths(paths gamedir.Paths) {
	c.Game.AssetDir = paths.AssetDir
	c.Game.AssetDB = paths.AssetDB
	c.Game.MasterDB = paths.MasterDB
}

// DBDir is where database dumps and the handbook live.
func (c *Config) DBDir() string {
	return filepath.Join(c.Output.Dir, c.Output.DBSubDir)
}
