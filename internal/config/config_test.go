package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValidOnceRootsSet(t *testing.T) {
	cfg := Default()
	result := cfg.Validate()
	assert.True(t, result.HasErrors(), "roots are required")

	cfg.Roots = RootsConfig{Mirror: "m", Sources: "s", Output: "o"}
	result = cfg.Validate()
	assert.False(t, result.HasErrors(), result.Error())
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cfg := Default()
	cfg.Roots = RootsConfig{Mirror: "m", Sources: "s", Output: "o"}
	cfg.Workers = 0
	cfg.LinkMode = "hardlink"
	cfg.Collisions = "first"
	cfg.Manifest.Backend = "redis"
	cfg.Extensions = []string{"[*.sr"}
	cfg.Groups = []string{"12.5", "12.5", "a/b"}

	result := cfg.Validate()
	require.True(t, result.HasErrors())
	assert.Len(t, result.Errors, 6)
	assert.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Error(), "link_mode")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
roots:
  mirror: /data/mirror
  sources: /data/sources
  output: /data/out
groups: ["10.5"]
workers: 8
link_mode: copy
manifest:
  backend: bolt
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/mirror", cfg.Roots.Mirror)
	assert.Equal(t, []string{"10.5"}, cfg.Groups)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "copy", cfg.LinkMode)
	assert.Equal(t, "bolt", cfg.Manifest.Backend)
	// untouched keys keep their defaults
	assert.Equal(t, DefaultExtensions, cfg.Extensions)
	assert.Equal(t, ".pblcache", cfg.CacheDir)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AICODEBASE_GROUPS", "9.0, 12.5")
	t.Setenv("AICODEBASE_WORKERS", "2")
	t.Setenv("AICODEBASE_ROOTS_MIRROR", "/env/mirror")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 6\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"9.0", "12.5"}, cfg.Groups)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "/env/mirror", cfg.Roots.Mirror)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Roots = RootsConfig{Mirror: "/m", Sources: "/s", Output: "/o"}
	cfg.Collisions = "suffix"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Roots, loaded.Roots)
	assert.Equal(t, "suffix", loaded.Collisions)
	assert.Equal(t, cfg.Groups, loaded.Groups)
}
