package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings
type Config struct {
	// Root directories
	Roots RootsConfig `yaml:"roots" mapstructure:"roots"`

	// Group identifiers (exporter versions), processed in this order
	Groups []string `yaml:"groups" mapstructure:"groups"`

	// Base-name patterns of exported source objects
	Extensions []string `yaml:"extensions" mapstructure:"extensions"`

	// Concurrent library rebuilds per group
	Workers int `yaml:"workers" mapstructure:"workers"`

	// "auto" links with copy fallback, "copy" always copies
	LinkMode string `yaml:"link_mode" mapstructure:"link_mode"`

	// "overwrite" or "suffix" for members that normalise to the same file name
	Collisions string `yaml:"collisions" mapstructure:"collisions"`

	// Name of the shared cache directory inside each group's output
	CacheDir string `yaml:"cache_dir" mapstructure:"cache_dir"`

	Manifest    ManifestConfig    `yaml:"manifest" mapstructure:"manifest"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics" mapstructure:"diagnostics"`
}

type RootsConfig struct {
	Mirror  string `yaml:"mirror" mapstructure:"mirror"`
	Sources string `yaml:"sources" mapstructure:"sources"`
	Output  string `yaml:"output" mapstructure:"output"`
}

type ManifestConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // "json", "bolt", "sqlite"
}

type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	File   string `yaml:"file" mapstructure:"file"`
}

type DiagnosticsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// DefaultGroups are the exporter versions laid out under the mirror root.
var DefaultGroups = []string{"6.5", "7.0", "8.0", "9.0", "10.5", "12.5"}

// DefaultExtensions match exported object files (.srw, .sru, .srd, .srs, ...).
var DefaultExtensions = []string{"*.sr*", "*.srd", "*.srs"}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Groups:     append([]string(nil), DefaultGroups...),
		Extensions: append([]string(nil), DefaultExtensions...),
		Workers:    4,
		LinkMode:   "auto",
		Collisions: "overwrite",
		CacheDir:   ".pblcache",
		Manifest: ManifestConfig{
			Backend: "json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from file, environment and defaults.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("roots.mirror", cfg.Roots.Mirror)
	v.SetDefault("roots.sources", cfg.Roots.Sources)
	v.SetDefault("roots.output", cfg.Roots.Output)
	v.SetDefault("groups", cfg.Groups)
	v.SetDefault("extensions", cfg.Extensions)
	v.SetDefault("workers", cfg.Workers)
	v.SetDefault("link_mode", cfg.LinkMode)
	v.SetDefault("collisions", cfg.Collisions)
	v.SetDefault("cache_dir", cfg.CacheDir)
	v.SetDefault("manifest.backend", cfg.Manifest.Backend)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("diagnostics.enabled", cfg.Diagnostics.Enabled)

	v.SetEnvPrefix("AICODEBASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".aicodebase")
		v.AddConfigPath(".")
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".aicodebase"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.Roots.Mirror = expandPath(cfg.Roots.Mirror)
	cfg.Roots.Sources = expandPath(cfg.Roots.Sources)
	cfg.Roots.Output = expandPath(cfg.Roots.Output)
	cfg.Logging.File = expandPath(cfg.Logging.File)

	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence. Missing files are fine.
func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}
}

// applyEnvOverrides handles the comma-separated list variables viper cannot split.
func applyEnvOverrides(cfg *Config) {
	if groups := os.Getenv("AICODEBASE_GROUPS"); groups != "" {
		cfg.Groups = splitList(groups)
	}
	if exts := os.Getenv("AICODEBASE_EXTENSIONS"); exts != "" {
		cfg.Extensions = splitList(exts)
	}
	if workers := os.Getenv("AICODEBASE_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil {
			cfg.Workers = n
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, path[1:])
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
