package pipeline

import (
	"path/filepath"

	"github.com/rohankatakam/aicodebase/internal/assemble"
	"github.com/rohankatakam/aicodebase/internal/config"
	"github.com/rohankatakam/aicodebase/internal/manifest"
	"github.com/rohankatakam/aicodebase/internal/splitter"
)

// Options is everything a run needs; nothing is read from globals.
type Options struct {
	Groups     []string // group identifiers, processed in order
	Extensions []string // base-name patterns of exported objects

	MirrorRoot  string
	SourcesRoot string
	OutputRoot  string

	Workers         int
	LinkMode        assemble.LinkMode
	Collisions      splitter.CollisionPolicy
	ManifestBackend string
	CacheDirName    string

	// Optional overrides, mostly for tests.
	Dialect splitter.Dialect
	Linker  assemble.Linker
}

// OptionsFromConfig maps a loaded configuration onto run options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Groups:          append([]string(nil), cfg.Groups...),
		Extensions:      append([]string(nil), cfg.Extensions...),
		MirrorRoot:      cfg.Roots.Mirror,
		SourcesRoot:     cfg.Roots.Sources,
		OutputRoot:      cfg.Roots.Output,
		Workers:         cfg.Workers,
		LinkMode:        assemble.LinkMode(cfg.LinkMode),
		Collisions:      splitter.ParseCollisionPolicy(cfg.Collisions),
		ManifestBackend: cfg.Manifest.Backend,
		CacheDirName:    cfg.CacheDir,
	}
}

func (o *Options) applyDefaults() {
	if len(o.Groups) == 0 {
		o.Groups = append([]string(nil), config.DefaultGroups...)
	}
	if len(o.Extensions) == 0 {
		o.Extensions = append([]string(nil), config.DefaultExtensions...)
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.LinkMode == "" {
		o.LinkMode = assemble.LinkAuto
	}
	if o.ManifestBackend == "" {
		o.ManifestBackend = manifest.BackendJSON
	}
	if o.CacheDirName == "" {
		o.CacheDirName = ".pblcache"
	}
}

// GroupPaths are the directories one group reads and writes.
type GroupPaths struct {
	Mirror  string
	Sources string
	Output  string
	Cache   string
}

// Paths returns the directories of group.
func (o Options) Paths(group string) GroupPaths {
	cacheName := o.CacheDirName
	if cacheName == "" {
		cacheName = ".pblcache"
	}
	out := filepath.Join(o.OutputRoot, group)
	return GroupPaths{
		Mirror:  filepath.Join(o.MirrorRoot, group),
		Sources: filepath.Join(o.SourcesRoot, group),
		Output:  out,
		Cache:   filepath.Join(out, cacheName),
	}
}
