// Package config loads depview settings.
//
// Sources are applied in order, later ones winning:
//
//  1. built-in defaults ([Default])
//  2. a TOML file (depview.toml in the working directory, or --config)
//  3. a .env file, then the process environment (DEPVIEW_* variables)
//  4. command-line flags, applied by the CLI after Load returns
//
// A minimal file:
//
//	[backend]
//	url = "https://ci.example.com/view/All/depview/"
//
//	[edit]
//	enabled = true
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/depview/pkg/errors"
	"github.com/matzehuels/depview/pkg/layout"
)

// DefaultFile is read when no --config is given and it exists.
const DefaultFile = "depview.toml"

// Environment variables.
const (
	EnvBackendURL = "DEPVIEW_BACKEND_URL"
	EnvToken      = "DEPVIEW_TOKEN"
	EnvEdit       = "DEPVIEW_EDIT"
	EnvRedisAddr  = "DEPVIEW_REDIS_ADDR"
	EnvListen     = "DEPVIEW_LISTEN"
)

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Config is the full depview configuration.
type Config struct {
	Backend BackendConfig `toml:"backend"`
	Layout  LayoutConfig  `toml:"layout"`
	Edit    EditConfig    `toml:"edit"`
	Server  ServerConfig  `toml:"server"`
	Cache   CacheConfig   `toml:"cache"`
}

type BackendConfig struct {
	URL     string   `toml:"url"`
	Token   string   `toml:"token"`
	Timeout Duration `toml:"timeout"`
}

// LayoutConfig is the layout spacing plus the display label rewrite.
type LayoutConfig struct {
	layout.Options

	// LabelStripRegex shortens display labels to capture group LabelGroup.
	LabelStripRegex string `toml:"label_strip_regex"`
	LabelGroup      int    `toml:"label_group"`
}

type EditConfig struct {
	Enabled bool `toml:"enabled"`

	// RetractOnFailure removes a drawn connector when the backend rejects it.
	RetractOnFailure bool `toml:"retract_on_failure"`
}

type ServerConfig struct {
	Listen string `toml:"listen"`

	// ConfirmTimeout bounds how long a browser has to answer a confirm prompt.
	ConfirmTimeout Duration `toml:"confirm_timeout"`
}

type CacheConfig struct {
	Backend   string   `toml:"backend"`
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
	Prefix    string   `toml:"prefix"`
	GraphTTL  Duration `toml:"graph_ttl"`
}

// Duration is a time.Duration written as "10s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{Timeout: Duration{10 * time.Second}},
		Layout:  LayoutConfig{Options: layout.DefaultOptions()},
		Server: ServerConfig{
			Listen:         "127.0.0.1:8080",
			ConfirmTimeout: Duration{2 * time.Minute},
		},
		Cache: CacheConfig{
			Backend:  CacheFile,
			Prefix:   "depview:",
			GraphTTL: Duration{5 * time.Minute},
		},
	}
}

// Options controls where Load looks.
type Options struct {
	// File is an explicit config file; it must exist. Empty means DefaultFile
	// if present.
	File string

	// EnvFile is a dotenv file; a missing one is ignored. Empty means ".env".
	EnvFile string

	// Getenv reads the environment. Defaults to os.Getenv.
	Getenv func(string) string
}

// Load builds a Config from defaults, the TOML file and the environment.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	path, required := opts.File, true
	if path == "" {
		path, required = DefaultFile, false
	}
	if err := cfg.loadFile(path, required); err != nil {
		return nil, err
	}

	env, err := environment(opts)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
	}
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "%s: unknown key %q", path, undecoded[0].String())
	}
	return nil
}

// environment merges the dotenv file under the real environment.
func environment(opts Options) (func(string) string, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}

	dotenv := map[string]string{}
	if _, err := os.Stat(envFile); err == nil {
		m, err := godotenv.Read(envFile)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", envFile)
		}
		dotenv = m
	}

	return func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv(EnvBackendURL); v != "" {
		c.Backend.URL = v
	}
	if v := getenv(EnvToken); v != "" {
		c.Backend.Token = v
	}
	if v := getenv(EnvEdit); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s", EnvEdit)
		}
		c.Edit.Enabled = b
	}
	if v := getenv(EnvRedisAddr); v != "" {
		c.Cache.RedisAddr = v
		c.Cache.Backend = CacheRedis
	}
	if v := getenv(EnvListen); v != "" {
		c.Server.Listen = v
	}
	return nil
}

// Validate checks cross-field constraints. A missing backend URL is allowed;
// commands that need one check it themselves.
func (c *Config) Validate() error {
	if c.Backend.URL != "" {
		if err := errors.ValidateURL(c.Backend.URL); err != nil {
			return err
		}
	}
	c.Layout.SetDefaults()
	if err := c.Layout.Options.Validate(); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.backend = redis needs cache.redis_addr")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q (valid: file, redis, none)", c.Cache.Backend)
	}
	if c.Server.Listen == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "server.listen must not be empty")
	}
	return nil
}
