// Package config loads stageflow's TOML configuration file.
//
// The file lives at $XDG_CONFIG_HOME/stageflow/config.toml (by default
// ~/.config/stageflow/config.toml) and has four tables:
//
//	[layout]
//	container_width = 1000
//
//	[server]
//	addr = ":8080"
//	session_ttl = "2h"
//
//	[cache]
//	type = "redis"            # null, file or redis
//	redis_url = "redis://localhost:6379/0"
//
//	[catalog]
//	dir = "/srv/workflows"    # empty serves the built-in samples
//	watch = true
//
// Every key is optional. Missing values take the defaults of [Default];
// unknown keys are rejected so typos do not go unnoticed.
package config

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/stageflow/pkg/cache"
	"github.com/matzehuels/stageflow/pkg/catalog"
	apperrors "github.com/matzehuels/stageflow/pkg/errors"
	"github.com/matzehuels/stageflow/pkg/session"
	"github.com/matzehuels/stageflow/pkg/workflow"
)

// =============================================================================
// Constants
// =============================================================================

// AppName names the application's config and cache directories.
const AppName = "stageflow"

// Cache backends.
const (
	CacheNull  = "null"
	CacheFile  = "file"
	CacheRedis = "redis"
)

const (
	DefaultAddr         = ":8080"
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultCachePrefix  = AppName
)

// =============================================================================
// Config - File Structure
// =============================================================================

// Config is the complete configuration file.
type Config struct {
	Layout  workflow.LayoutConfig `toml:"layout"`
	Server  ServerConfig          `toml:"server"`
	Cache   CacheConfig           `toml:"cache"`
	Catalog CatalogConfig         `toml:"catalog"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `toml:"addr" validate:"required,hostname_port"`
	ReadTimeout  time.Duration `toml:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `toml:"write_timeout" validate:"gte=0"`
	SessionTTL   time.Duration `toml:"session_ttl" validate:"gt=0"`
	Metrics      bool          `toml:"metrics"`
}

// CacheConfig selects and configures the graph and artifact cache.
type CacheConfig struct {
	Type     string `toml:"type" validate:"oneof=null file redis"`
	Dir      string `toml:"dir"` // file cache; empty uses [CacheDir]
	RedisURL string `toml:"redis_url" validate:"required_if=Type redis"`
	Prefix   string `toml:"prefix"`

	// Namespace scopes every key, so environments can share one backend.
	Namespace string `toml:"namespace"`
}

// CatalogConfig selects where workflows come from.
type CatalogConfig struct {
	Dir      string        `toml:"dir"` // empty serves the built-in samples
	Watch    bool          `toml:"watch"`
	Debounce time.Duration `toml:"debounce" validate:"gte=0"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Layout: workflow.DefaultLayoutConfig(),
		Server: ServerConfig{
			Addr:         DefaultAddr,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
			SessionTTL:   session.DefaultTTL,
			Metrics:      true,
		},
		Cache: CacheConfig{
			Type:   CacheFile,
			Prefix: DefaultCachePrefix,
		},
		Catalog: CatalogConfig{
			Debounce: catalog.DefaultDebounce,
		},
	}
}

// =============================================================================
// Loading
// =============================================================================

// Load reads the config file at path on top of [Default]. An empty path
// reads [DefaultPath] and falls back to defaults if it does not exist; an
// explicit path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	f, err := os.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "open config %s", path)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses TOML from r on top of [Default] and validates the result.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, apperrors.Invalid(apperrors.ErrCodeInvalidConfig, undecoded[0].String(), "unknown key")
	}

	cfg.Layout = cfg.Layout.WithDefaults()
	if cfg.Cache.Prefix == "" {
		cfg.Cache.Prefix = DefaultCachePrefix
	}
	if cfg.Catalog.Debounce == 0 {
		cfg.Catalog.Debounce = catalog.DefaultDebounce
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Write encodes cfg as TOML.
func Write(w io.Writer, cfg *Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// Validate checks every table.
// Returns a ValidationError with code INVALID_CONFIG naming the first bad key.
func (c *Config) Validate() error {
	if err := c.Layout.Validate(); err != nil {
		return err
	}
	if err := configValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperrors.Invalid(apperrors.ErrCodeInvalidConfig, keyPath(fe.Namespace()),
				"failed %q check (got %v)", fe.Tag(), fe.Value())
		}
		return apperrors.Invalid(apperrors.ErrCodeInvalidConfig, "", "%v", err)
	}
	return nil
}

var configValidator = newConfigValidator()

// newConfigValidator reports fields by their TOML key.
func newConfigValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// keyPath drops the root struct name from a validator namespace,
// turning "Config.server.addr" into "server.addr".
func keyPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// =============================================================================
// Paths
// =============================================================================

// DefaultPath returns the config file path using XDG standard (~/.config/stageflow/config.toml).
func DefaultPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, AppName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName, "config.toml"), nil
}

// CacheDir returns the cache directory using XDG standard (~/.cache/stageflow/).
func CacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}

// =============================================================================
// Factories
// =============================================================================

// Open creates the configured cache backend.
func (c CacheConfig) Open(ctx context.Context) (cache.Cache, error) {
	switch c.Type {
	case CacheNull:
		return cache.NewNullCache(), nil
	case CacheRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{URL: c.RedisURL, Prefix: c.Prefix})
	default:
		dir := c.Dir
		if dir == "" {
			d, err := CacheDir()
			if err != nil {
				return cache.NewNullCache(), nil
			}
			dir = d
		}
		return cache.NewFileCache(dir)
	}
}

// Keyer returns the cache key scheme; nil selects the default keyer.
func (c CacheConfig) Keyer() cache.Keyer {
	if c.Namespace == "" {
		return nil
	}
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), c.Namespace+":")
}

// Open creates the configured workflow provider. The returned *catalog.Dir
// is nil when the built-in samples are served; callers use it to start
// [catalog.Dir.Watch].
func (c CatalogConfig) Open() (catalog.Provider, *catalog.Dir, error) {
	if c.Dir == "" {
		p, err := catalog.Builtin()
		if err != nil {
			return nil, nil, err
		}
		return p, nil, nil
	}
	d, err := catalog.OpenDir(c.Dir)
	if err != nil {
		return nil, nil, err
	}
	return d, d, nil
}
