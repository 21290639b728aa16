package deps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/aicodebase/internal/discovery"
	"github.com/rohankatakam/aicodebase/internal/errors"
	"github.com/rohankatakam/aicodebase/internal/splitter"
	"github.com/rohankatakam/aicodebase/internal/textnorm"
)

// DefaultMemoSize bounds the number of parsed targets kept between lookups.
const DefaultMemoSize = 512

type targetKey struct {
	path  string
	size  int64
	mtime int64
}

// Resolver builds dependency graphs. Parsed targets are memoised by path, size and
// mtime because several workspaces usually share the same targets.
type Resolver struct {
	targets     *lru.Cache[targetKey, []string]
	projectRefs bool
	logger      logrus.FieldLogger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithProjectRefs also reads library references from a target's project section.
func WithProjectRefs() Option {
	return func(r *Resolver) { r.projectRefs = true }
}

// NewResolver creates a Resolver holding up to memoSize parsed targets.
func NewResolver(logger logrus.FieldLogger, memoSize int, opts ...Option) (*Resolver, error) {
	if memoSize <= 0 {
		memoSize = DefaultMemoSize
	}
	cache, err := lru.New[targetKey, []string](memoSize)
	if err != nil {
		return nil, fmt.Errorf("create target memo: %w", err)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	r := &Resolver{targets: cache, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve reads every workspace under mirrorDir. A missing mirrorDir yields an
// empty graph.
func (r *Resolver) Resolve(ctx context.Context, mirrorDir string) (*Graph, error) {
	workspaces, err := discovery.FindByExtension(mirrorDir, ".pbw")
	if err != nil {
		return nil, err
	}

	g := newGraph()
	for _, ws := range workspaces {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := splitter.Stem(ws)
		if name == "" || name == "." || name == ".." {
			g.Warnings = append(g.Warnings, fmt.Sprintf("workspace %s has no usable project name, skipped", ws))
			continue
		}
		targets, warnings, err := r.WorkspaceTargets(ws)
		if err != nil {
			return nil, err
		}
		g.Warnings = append(g.Warnings, warnings...)

		var libs []string
		for _, t := range targets {
			names, err := r.TargetLibraries(t)
			if err != nil {
				return nil, err
			}
			libs = append(libs, names...)
		}

		if prev, ok := g.workspaces[name]; ok {
			g.Warnings = append(g.Warnings, fmt.Sprintf("workspace %s replaces %s (same project name %q)", ws, prev, name))
		}
		g.add(name, ws, uniqueFold(libs))
	}

	r.logger.WithFields(logrus.Fields{
		"mirror":   mirrorDir,
		"projects": len(g.projects),
		"warnings": len(g.Warnings),
	}).Debug("Dependency graph resolved")

	return g, nil
}

// WorkspaceTargets returns the existing .pbt targets a workspace references,
// de-duplicated case-insensitively and sorted. Missing targets become warnings.
func (r *Resolver) WorkspaceTargets(path string) ([]string, []string, error) {
	text, err := textnorm.ReadFile(path)
	if err != nil {
		return nil, nil, errors.InputErrorf(err, "read workspace %s", path)
	}

	var targets, warnings []string
	dir := filepath.Dir(path)
	for _, ref := range TargetRefs(text) {
		p := resolveRef(dir, ref)
		if strings.ToLower(filepath.Ext(p)) != ".pbt" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			warnings = append(warnings, fmt.Sprintf("missing target referenced by %s: %s", filepath.Base(path), p))
			continue
		}
		targets = append(targets, p)
	}

	sort.SliceStable(targets, func(i, j int) bool {
		return strings.ToLower(filepath.ToSlash(targets[i])) < strings.ToLower(filepath.ToSlash(targets[j]))
	})
	out := targets[:0]
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		k := strings.ToLower(filepath.ToSlash(t))
		if !seen[k] {
			seen[k] = true
			out = append(out, t)
		}
	}
	return out, warnings, nil
}

// TargetLibraries returns the library file names a target declares. A target that
// vanished since WorkspaceTargets saw it has no libraries.
func (r *Resolver) TargetLibraries(path string) ([]string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat target %s: %w", path, err)
	}

	key := targetKey{path: path, size: info.Size(), mtime: info.ModTime().UnixNano()}
	if libs, ok := r.targets.Get(key); ok {
		return libs, nil
	}

	text, err := textnorm.ReadFile(path)
	if err != nil {
		return nil, errors.InputErrorf(err, "read target %s", path)
	}
	libs := LibraryRefs(text, r.projectRefs)
	r.targets.Add(key, libs)
	return libs, nil
}

// MemoLen is the number of parsed targets currently memoised.
func (r *Resolver) MemoLen() int {
	return r.targets.Len()
}
