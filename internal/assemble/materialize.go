// Package assemble builds per-project output trees out of the shared library cache.
package assemble

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/aicodebase/internal/errors"
)

// Result tells how a library entry was materialized. Both are read-through views of
// the same cache content.
type Result int

const (
	Linked Result = iota
	Copied
)

func (r Result) String() string {
	if r == Copied {
		return "copied"
	}
	return "linked"
}

// LinkMode selects how entries are materialized.
type LinkMode string

const (
	// LinkAuto links and falls back to copying when linking fails.
	LinkAuto LinkMode = "auto"
	// LinkCopy always copies.
	LinkCopy LinkMode = "copy"
)

// Linker creates a directory link at dest pointing to target.
type Linker interface {
	Link(target, dest string) error
}

// LinkerFunc adapts a function to Linker.
type LinkerFunc func(target, dest string) error

// Link implements Linker.
func (f LinkerFunc) Link(target, dest string) error { return f(target, dest) }

// Assembler materializes cache directories into project trees. It never writes
// inside the cache.
type Assembler struct {
	linker Linker
	mode   LinkMode
	logger logrus.FieldLogger
}

// New creates an Assembler. A nil linker means the platform default.
func New(logger logrus.FieldLogger, mode LinkMode, linker Linker) *Assembler {
	if linker == nil {
		linker = DefaultLinker()
	}
	if mode != LinkCopy {
		mode = LinkAuto
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Assembler{linker: linker, mode: mode, logger: logger}
}

// Materialize makes dest a link to target, or a fresh copy of it when linking is
// disabled or fails.
func (a *Assembler) Materialize(target, dest string) (Result, error) {
	res, _, err := a.materialize(target, dest)
	return res, err
}

// materialize also reports whether dest had to be (re)created.
func (a *Assembler) materialize(target, dest string) (Result, bool, error) {
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return Copied, false, errors.FileSystemErrorf(err, "resolve %s", target)
	}

	if fi, err := os.Lstat(dest); err == nil {
		if a.mode == LinkAuto && isLink(fi) && linksTo(dest, absTarget) {
			return Linked, false, nil
		}
		if err := removeEntry(dest, fi); err != nil {
			return Copied, false, errors.FileSystemErrorf(err, "remove %s", dest)
		}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Copied, false, errors.FileSystemErrorf(err, "create %s", filepath.Dir(dest))
	}

	if a.mode == LinkAuto {
		err := a.linker.Link(absTarget, dest)
		if err == nil {
			return Linked, true, nil
		}
		a.logger.WithError(err).WithField("dest", dest).Debug("Link failed, copying instead")
	}

	if err := copyTree(absTarget, dest); err != nil {
		return Copied, true, err
	}
	return Copied, true, nil
}

// copyTree replaces dest with a recursive copy of src.
func copyTree(src, dest string) error {
	if err := os.RemoveAll(dest); err != nil {
		return errors.FileSystemErrorf(err, "clear %s", dest)
	}
	if err := os.CopyFS(dest, os.DirFS(src)); err != nil {
		return errors.FileSystemErrorf(err, "copy %s to %s", src, dest)
	}
	return nil
}

func linksTo(dest, absTarget string) bool {
	got, err := os.Readlink(dest)
	if err != nil {
		return false
	}
	if !filepath.IsAbs(got) {
		got = filepath.Join(filepath.Dir(dest), got)
	}
	return samePath(filepath.Clean(got), filepath.Clean(absTarget))
}

// removeEntry deletes a link without following it, or a file or directory tree.
func removeEntry(path string, fi os.FileInfo) error {
	if isLink(fi) {
		return os.Remove(path)
	}
	if fi.IsDir() {
		return os.RemoveAll(path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}
