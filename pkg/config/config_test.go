package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/depview/pkg/errors"
	"github.com/matzehuels/depview/pkg/layout"
)

func noEnv(string) string { return "" }

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(Options{
		File:    writeFile(t, dir, "empty.toml", ""),
		EnvFile: filepath.Join(dir, "missing.env"),
		Getenv:  noEnv,
	})
	require.NoError(t, err)

	assert.False(t, cfg.Edit.Enabled)
	assert.False(t, cfg.Edit.RetractOnFailure)
	assert.Equal(t, CacheFile, cfg.Cache.Backend)
	assert.Equal(t, layout.PolicyAuto, cfg.Layout.Policy)
	assert.Equal(t, 80.0, cfg.Layout.NodeWidth)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout.Duration)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "depview.toml", `
[backend]
url = "https://ci.example.com/view/All/depview/"
timeout = "3s"

[layout]
policy = "grid"
node_width = 100
label_strip_regex = "^team-(.*)$"
label_group = 1

[edit]
enabled = true
retract_on_failure = true

[cache]
backend = "none"
`)
	cfg, err := Load(Options{File: path, EnvFile: filepath.Join(dir, "none.env"), Getenv: noEnv})
	require.NoError(t, err)

	assert.Equal(t, "https://ci.example.com/view/All/depview/", cfg.Backend.URL)
	assert.Equal(t, 3*time.Second, cfg.Backend.Timeout.Duration)
	assert.Equal(t, layout.PolicyGrid, cfg.Layout.Policy)
	assert.Equal(t, 100.0, cfg.Layout.NodeWidth)
	assert.Equal(t, 20.0, cfg.Layout.NodeGap, "unset spacing keeps its default")
	assert.Equal(t, "^team-(.*)$", cfg.Layout.LabelStripRegex)
	assert.True(t, cfg.Edit.Enabled)
	assert.True(t, cfg.Edit.RetractOnFailure)
	assert.Equal(t, CacheNone, cfg.Cache.Backend)
}

func TestUnknownKeyIsRejected(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.toml", "[edit]\nenabeld = true\n")
	_, err := Load(Options{File: path, Getenv: noEnv, EnvFile: filepath.Join(dir, "x.env")})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig), "err = %v", err)
}

func TestExplicitFileMustExist(t *testing.T) {
	_, err := Load(Options{File: filepath.Join(t.TempDir(), "nope.toml"), Getenv: noEnv})
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound), "err = %v", err)
}

func TestEnvOverridesFileAndDotenv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "depview.toml", "[backend]\nurl = \"http://from-file\"\n")
	envFile := writeFile(t, dir, ".env", "DEPVIEW_BACKEND_URL=http://from-dotenv\nDEPVIEW_EDIT=true\nDEPVIEW_REDIS_ADDR=localhost:6379\n")

	env := map[string]string{EnvBackendURL: "http://from-env"}
	cfg, err := Load(Options{File: path, EnvFile: envFile, Getenv: func(k string) string { return env[k] }})
	require.NoError(t, err)

	assert.Equal(t, "http://from-env", cfg.Backend.URL)
	assert.True(t, cfg.Edit.Enabled, "dotenv fills what the environment leaves unset")
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		code   errors.Code
	}{
		{"bad url", func(c *Config) { c.Backend.URL = "ftp://ci" }, errors.ErrCodeInvalidInput},
		{"redis without addr", func(c *Config) { c.Cache.Backend = CacheRedis }, errors.ErrCodeInvalidConfig},
		{"unknown cache", func(c *Config) { c.Cache.Backend = "memcached" }, errors.ErrCodeInvalidConfig},
		{"unknown policy", func(c *Config) { c.Layout.Policy = "force" }, errors.ErrCodeInvalidPolicy},
		{"empty listen", func(c *Config) { c.Server.Listen = "" }, errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.True(t, errors.Is(err, tt.code), "err = %v, want %s", err, tt.code)
		})
	}
}

func TestBadEditEnv(t *testing.T) {
	_, err := Load(Options{
		File:    writeFile(t, t.TempDir(), "c.toml", ""),
		EnvFile: "/nonexistent/.env",
		Getenv:  func(k string) string { return map[string]string{EnvEdit: "maybe"}[k] },
	})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))
}
