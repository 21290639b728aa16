package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err)
	}
	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			fmt.Fprintf(&sb, "  - %s\n", warn)
		}
	}
	return sb.String()
}

// Validate checks settings. Root directories are only checked for being set;
// their existence is decided at run time so a missing root maps to its own exit code.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{Valid: true}

	c.validateRoots(result)
	c.validateGroups(result)
	c.validateExtensions(result)

	if c.Workers < 1 {
		result.AddError("workers must be at least 1 (got %d)", c.Workers)
	}

	switch c.LinkMode {
	case "auto", "copy":
	default:
		result.AddError("link_mode must be \"auto\" or \"copy\" (got %q)", c.LinkMode)
	}

	switch c.Collisions {
	case "overwrite", "suffix":
	default:
		result.AddError("collisions must be \"overwrite\" or \"suffix\" (got %q)", c.Collisions)
	}

	switch c.Manifest.Backend {
	case "json", "bolt", "sqlite":
	default:
		result.AddError("manifest.backend must be json, bolt or sqlite (got %q)", c.Manifest.Backend)
	}

	if c.CacheDir == "" || strings.ContainsAny(c.CacheDir, `/\`) {
		result.AddError("cache_dir must be a plain directory name (got %q)", c.CacheDir)
	}

	return result
}

func (c *Config) validateRoots(result *ValidationResult) {
	roots := []struct{ key, value string }{
		{"roots.mirror", c.Roots.Mirror},
		{"roots.sources", c.Roots.Sources},
		{"roots.output", c.Roots.Output},
	}
	for _, r := range roots {
		if strings.TrimSpace(r.value) == "" {
			result.AddError("%s is required but not set", r.key)
		}
	}
	if c.Roots.Output != "" {
		if info, err := os.Stat(c.Roots.Output); err == nil && !info.IsDir() {
			result.AddError("roots.output %s exists and is not a directory", c.Roots.Output)
		}
	}
}

func (c *Config) validateGroups(result *ValidationResult) {
	if len(c.Groups) == 0 {
		result.AddError("at least one group identifier is required")
		return
	}
	seen := make(map[string]bool, len(c.Groups))
	for _, g := range c.Groups {
		if strings.ContainsAny(g, `/\`) || strings.TrimSpace(g) == "" {
			result.AddError("group %q is not a plain directory name", g)
			continue
		}
		if seen[g] {
			result.AddWarning("group %q listed more than once", g)
		}
		seen[g] = true
	}
}

func (c *Config) validateExtensions(result *ValidationResult) {
	if len(c.Extensions) == 0 {
		result.AddError("at least one extension pattern is required")
		return
	}
	for _, p := range c.Extensions {
		if !doublestar.ValidatePattern(p) {
			result.AddError("extension pattern %q is not a valid glob", p)
		}
	}
}
