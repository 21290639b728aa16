// Package cache materializes the member-level cache of one library:
//
//	<cacheDir>/<object>/_object.txt        header
//	<cacheDir>/<object>/<kind>_<name>.txt  one stripped member each
//	<cacheDir>/<object>/object.txt         only when no member was found
package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/aicodebase/internal/discovery"
	"github.com/rohankatakam/aicodebase/internal/errors"
	"github.com/rohankatakam/aicodebase/internal/splitter"
	"github.com/rohankatakam/aicodebase/internal/textnorm"
)

// Artifact file names shared by every object directory.
const (
	HeaderFile   = "_object.txt"
	FallbackFile = "object.txt"
)

// Builder builds or updates library caches.
type Builder struct {
	splitter   *splitter.Splitter
	collisions splitter.CollisionPolicy
	logger     logrus.FieldLogger
}

// NewBuilder creates a Builder. A nil dialect means PowerScript.
func NewBuilder(logger logrus.FieldLogger, d splitter.Dialect, collisions splitter.CollisionPolicy) *Builder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Builder{
		splitter:   splitter.New(d),
		collisions: collisions,
		logger:     logger,
	}
}

// BuildResult summarizes one Build call.
type BuildResult struct {
	Library   string
	Objects   int
	Members   int
	Fallbacks int // objects written from the recovered single member body
	Verbatim  int // objects written as-is

	Written   int
	Unchanged int
	Removed   int

	Diagnostics []string
	Duration    time.Duration
}

// Writes is the number of filesystem mutations performed.
func (r *BuildResult) Writes() int {
	return r.Written + r.Removed
}

func (r *BuildResult) diag(format string, args ...interface{}) {
	r.Diagnostics = append(r.Diagnostics, fmt.Sprintf("[%s] ", r.Library)+fmt.Sprintf(format, args...))
}

// Build splits every file into dir and removes object directories with no source.
// Files are expected in discovery order; when two files share a stem the later
// one wins.
func (b *Builder) Build(ctx context.Context, library string, files []discovery.File, dir string) (*BuildResult, error) {
	start := time.Now()
	log := b.logger.WithField("library", library)
	result := &BuildResult{Library: library}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.FileSystemErrorf(err, "create cache directory %s", dir)
	}

	last := make(map[string]int, len(files))
	for i, f := range files {
		last[objectName(f.RelPath)] = i
	}

	expected := make(map[string]bool, len(last))
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := objectName(f.RelPath)
		expected[name] = true
		if last[name] != i {
			result.diag("%s: shadowed by %s (same object name %q)", f.RelPath, files[last[name]].RelPath, name)
			continue
		}

		if err := b.buildObject(f, filepath.Join(dir, name), result); err != nil {
			return nil, err
		}
		result.Objects++
	}

	removed, err := pruneDirs(dir, expected)
	if err != nil {
		return nil, err
	}
	result.Removed += removed

	result.Duration = time.Since(start)
	log.WithFields(logrus.Fields{
		"objects":   result.Objects,
		"members":   result.Members,
		"written":   result.Written,
		"unchanged": result.Unchanged,
		"removed":   result.Removed,
		"duration":  result.Duration.String(),
	}).Debug("Library cache built")

	return result, nil
}

func (b *Builder) buildObject(f discovery.File, objDir string, result *BuildResult) error {
	text, err := textnorm.ReadFile(f.Path)
	if err != nil {
		return errors.InputErrorf(err, "read object %s", f.Path)
	}
	if err := os.MkdirAll(objDir, 0o755); err != nil {
		return errors.FileSystemErrorf(err, "create %s", objDir)
	}

	split := b.splitter.Split(text)
	if err := writeIfChanged(filepath.Join(objDir, HeaderFile), split.HeaderText(), result); err != nil {
		return err
	}

	keep := map[string]bool{HeaderFile: true}

	if len(split.Members) == 0 {
		content, ok := splitter.ExtractSingleMember(text, b.splitter.Dialect())
		if ok {
			result.Fallbacks++
			result.diag("%s: no members, recovered single body", f.RelPath)
		} else {
			content = text
			result.Verbatim++
			result.diag("%s: no members, kept verbatim", f.RelPath)
		}
		if err := writeIfChanged(filepath.Join(objDir, FallbackFile), content, result); err != nil {
			return err
		}
		keep[FallbackFile] = true
		return removeExcept(objDir, keep, result)
	}

	for _, m := range split.Members {
		if m.KindMismatch() {
			result.diag("%s:%d: %s %q closed by end %s", f.RelPath, m.StartLine+1, m.Kind, m.Signature, m.EndKind)
		}
		if !m.Closed {
			result.diag("%s:%d: %s %q not closed before end of file", f.RelPath, m.StartLine+1, m.Kind, m.Signature)
		}
	}

	artifacts, collided := split.Artifacts(b.splitter.Dialect(), b.collisions)
	for _, name := range collided {
		result.diag("%s: several members named %s", f.RelPath, name)
	}
	for _, a := range artifacts {
		if err := writeIfChanged(filepath.Join(objDir, a.Name), a.Body, result); err != nil {
			return err
		}
		keep[a.Name] = true
	}
	result.Members += len(artifacts)

	return removeExcept(objDir, keep, result)
}

// objectName is the cache directory name of a source file.
func objectName(relPath string) string {
	if stem := splitter.Stem(relPath); stem != "" {
		return stem
	}
	return "object"
}

// writeIfChanged leaves files whose bytes already match untouched, so a rebuild of
// unchanged sources performs no writes.
func writeIfChanged(path, content string, result *BuildResult) error {
	if existing, err := os.ReadFile(path); err == nil && string(existing) == content {
		result.Unchanged++
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return errors.FileSystemErrorf(err, "write %s", path)
	}
	result.Written++
	return nil
}

// removeExcept deletes every entry of dir not named in keep.
func removeExcept(dir string, keep map[string]bool, result *BuildResult) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.FileSystemErrorf(err, "list %s", dir)
	}
	for _, e := range entries {
		if keep[e.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return errors.FileSystemErrorf(err, "remove stale artifact %s", e.Name())
		}
		result.Removed++
	}
	return nil
}

// pruneDirs removes subdirectories of dir that are not expected. Plain files are
// left alone.
func pruneDirs(dir string, expected map[string]bool) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, errors.FileSystemErrorf(err, "list %s", dir)
	}
	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})

	removed := 0
	for _, e := range entries {
		if !e.IsDir() || expected[e.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return removed, errors.FileSystemErrorf(err, "remove stale object %s", e.Name())
		}
		removed++
	}
	return removed, nil
}
