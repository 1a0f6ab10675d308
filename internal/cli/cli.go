// Package cli implements the depview command-line interface.
//
// # Commands
//
//   - serve: run the viewer (HTTP + websocket) against a backend
//   - render: write svg, png, gv, html or json files for a graph
//   - layout: print node positions as JSON
//   - edge put|delete: mutate one edge on the backend
//   - edit: terminal editor driving the same interaction bridge as the viewer
//   - cache clear|path: manage the pipeline cache
//   - completion: shell completion scripts
//
// Settings come from depview.toml (or --config), then .env and DEPVIEW_*
// environment variables, then flags. See package config.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/depview/pkg/buildinfo"
	"github.com/matzehuels/depview/pkg/cache"
	"github.com/matzehuels/depview/pkg/client"
	"github.com/matzehuels/depview/pkg/config"
	"github.com/matzehuels/depview/pkg/errors"
	"github.com/matzehuels/depview/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "depview"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Getenv reads the environment; tests replace it.
	Getenv func(string) string

	configFile string
	envFile    string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "depview shows and edits job dependency graphs",
		Long:         `depview lays out a backend's job dependency graph by cluster and level, renders it to static formats, and serves an interactive viewer that creates and deletes dependency edges on the backend.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "config file (default: ./"+config.DefaultFile+" if present)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", "", "dotenv file (default: ./.env if present)")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.edgeCommand())
	root.AddCommand(c.editCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig() error {
	cfg, err := config.Load(config.Options{
		File:    c.configFile,
		EnvFile: c.envFile,
		Getenv:  c.Getenv,
	})
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.Logger.Debug("loaded config", "backend", cfg.Backend.URL, "cache", cfg.Cache.Backend, "edit", cfg.Edit.Enabled)
	return nil
}

// config returns the loaded configuration, or the defaults when a command
// runs without the root pre-run (tests).
func (c *CLI) config() *config.Config {
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	return c.cfg
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cc, keyer, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(cc, keyer, c.Logger)
	r.GraphTTL = c.config().Cache.GraphTTL.Duration
	return r, nil
}

// newCache opens the configured cache. Redis namespaces keys itself; the
// file cache gets the prefix through a scoped keyer instead.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, cache.Keyer, error) {
	cfg := c.config().Cache
	if noCache || cfg.Backend == config.CacheNone {
		return cache.NewNullCache(), nil, nil
	}
	if cfg.Backend == config.CacheRedis {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cache.WithRedisPrefix(cfg.Prefix))
		if err != nil {
			return nil, nil, err
		}
		return rc, cache.NewDefaultKeyer(), nil
	}

	dir, err := c.cacheDir()
	if err != nil {
		c.Logger.Warn("no cache directory, caching disabled", "error", err)
		return cache.NewNullCache(), nil, nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, nil, err
	}
	return fc, cache.NewScopedKeyer(nil, cfg.Prefix), nil
}

// cacheDir returns the configured cache directory or the per-user default.
func (c *CLI) cacheDir() (string, error) {
	if dir := c.config().Cache.Dir; dir != "" {
		return dir, nil
	}
	return cache.DefaultDir()
}

// =============================================================================
// Backend
// =============================================================================

// newBackend creates a client for url, falling back to the configured
// backend URL.
func (c *CLI) newBackend(url string) (*client.Client, error) {
	cfg := c.config().Backend
	if url == "" {
		url = cfg.URL
	}
	if url == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"no backend URL: pass one, set backend.url in %s or %s", config.DefaultFile, config.EnvBackendURL)
	}
	return client.New(url, client.WithToken(cfg.Token), client.WithTimeout(cfg.Timeout.Duration))
}

// pipelineOptions maps the layout and label config onto pipeline options.
func (c *CLI) pipelineOptions() pipeline.Options {
	cfg := c.config().Layout
	return pipeline.Options{
		Layout:       cfg.Options,
		LabelPattern: cfg.LabelStripRegex,
		LabelGroup:   cfg.LabelGroup,
		Logger:       c.Logger,
	}
}
