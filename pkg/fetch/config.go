package fetch

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"umatools/pkg/models"
	"umatools/pkg/pool"
)

const (
	defaultTimeout      = 20 * time.Second
	defaultRetryCount   = 5
	defaultRetryWaitMin = 500 * time.Millisecond
	defaultRetryWaitMax = 10 * time.Second
	defaultConcurrency  = 8

	scheme = "https"
)

// ErrInvalidConfig is returned when a fetch config cannot produce URLs.
var ErrInvalidConfig = errors.New("invalid fetch config")

// Endpoints names the CDN path segment for each routing family.
type Endpoints struct {
	Manifest    string
	Generic     string
	AssetBundle string
}

// Config controls how blobs are fetched from the CDN.
type Config struct {
	BaseDomain   string
	APIPath      string
	Endpoints    Endpoints
	UserAgent    string
	Timeout      time.Duration
	RetryCount   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Concurrency  int
	Policy       pool.Policy
	// Quiet lowers per-item progress lines to debug level.
	Quiet bool
}

// DefaultConfig returns the settings the game client itself uses.
func DefaultConfig() Config {
	return Config{
		BaseDomain: "prd-storage-game-umamusume.akamaized.net",
		APIPath:    "dl/resources",
		Endpoints: Endpoints{
			Manifest:    "Manifest",
			Generic:     "Generic",
			AssetBundle: "Windows/assetbundles",
		},
		UserAgent:    "UnityPlayer/2022.3.21f1 (UnityWebRequest/1.0, libcurl/8.5.0-DEV)",
		Timeout:      defaultTimeout,
		RetryCount:   defaultRetryCount,
		RetryWaitMin: defaultRetryWaitMin,
		RetryWaitMax: defaultRetryWaitMax,
		Concurrency:  defaultConcurrency,
		Policy:       pool.CollectErrors,
	}
}

// Validate checks the fields needed to build URLs.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseDomain) == "" {
		return fmt.Errorf("%w: base domain is empty", ErrInvalidConfig)
	}
	if c.Endpoints.Manifest == "" || c.Endpoints.Generic == "" || c.Endpoints.AssetBundle == "" {
		return fmt.Errorf("%w: every endpoint must be set", ErrInvalidConfig)
	}
	if c.RetryCount < 0 {
		return fmt.Errorf("%w: retry count %d", ErrInvalidConfig, c.RetryCount)
	}
	return nil
}

// EndpointKind is a CDN routing family.
type EndpointKind int

const (
	EndpointAssetBundle EndpointKind = iota
	EndpointGeneric
	EndpointManifest
)

func (k EndpointKind) String() string {
	switch k {
	case EndpointGeneric:
		return "generic"
	case EndpointManifest:
		return "manifest"
	default:
		return "assetbundle"
	}
}

// EndpointFor routes a raw classification string. Raw strings are used so
// that classifications outside the known set still route by substring.
func EndpointFor(kind string) EndpointKind {
	switch models.Kind(kind) {
	case models.KindMaster, models.KindSound, models.KindMovie, models.KindFont:
		return EndpointGeneric
	}
	if strings.Contains(kind, "manifest") {
		return EndpointManifest
	}
	return EndpointAssetBundle
}

func (c Config) endpointPath(kind EndpointKind) string {
	switch kind {
	case EndpointGeneric:
		return c.Endpoints.Generic
	case EndpointManifest:
		return c.Endpoints.Manifest
	default:
		return c.Endpoints.AssetBundle
	}
}

// URLFor returns https://{domain}/{api}/{endpoint}/{h[0:2]}/{h} for entry.
func (c Config) URLFor(entry models.Entry) (string, error) {
	if len(entry.Hash) < 2 {
		return "", fmt.Errorf("%w: hash %q is too short", ErrInvalidConfig, entry.Hash)
	}

	u := url.URL{
		Scheme: scheme,
		Host:   c.BaseDomain,
		Path: path.Join("/", c.APIPath, c.endpointPath(EndpointFor(entry.RawKind)),
			entry.Hash[:2], entry.Hash),
	}
	return u.String(), nil
}
