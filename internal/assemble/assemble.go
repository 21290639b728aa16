package assemble

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/aicodebase/internal/deps"
	"github.com/rohankatakam/aicodebase/internal/errors"
)

// Report summarizes one Assemble call.
type Report struct {
	Projects int
	Linked   int
	Copied   int
	Reused   int // links already pointing at the right cache entry
	Skipped  int // libraries without a cache entry
	Failed   int

	Diagnostics []string
}

// Assemble materializes, for every project of g, one entry per required library
// under groupOut/<project>/<library>. Libraries without a cache directory are
// skipped; a failed entry is reported and does not stop the run.
func (a *Assembler) Assemble(ctx context.Context, groupOut, cacheDir string, g *deps.Graph) (*Report, error) {
	report := &Report{}

	for _, project := range g.Projects() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		projectDir, ok := ProjectDir(groupOut, cacheDir, project)
		if !ok {
			report.Diagnostics = append(report.Diagnostics,
				fmt.Sprintf("[%s] project name clashes with the output layout, skipped", project))
			continue
		}
		if err := os.MkdirAll(projectDir, 0o755); err != nil {
			return nil, errors.FileSystemErrorf(err, "create project directory %s", projectDir)
		}
		report.Projects++

		for _, lib := range g.LibraryStems(project) {
			target := filepath.Join(cacheDir, lib)
			if fi, err := os.Stat(target); err != nil || !fi.IsDir() {
				report.Skipped++
				report.Diagnostics = append(report.Diagnostics,
					fmt.Sprintf("[%s] library %s not found", project, lib))
				continue
			}

			res, changed, err := a.materialize(target, filepath.Join(projectDir, lib))
			if err != nil {
				report.Failed++
				report.Diagnostics = append(report.Diagnostics,
					fmt.Sprintf("[%s] library %s: %v", project, lib, err))
				a.logger.WithError(err).WithFields(logrus.Fields{
					"project": project,
					"library": lib,
				}).Warn("Failed to materialize library")
				continue
			}

			switch {
			case !changed:
				report.Reused++
			case res == Linked:
				report.Linked++
			default:
				report.Copied++
			}
		}
	}

	return report, nil
}

// Cleanup removes project directories not in g (the cache directory excepted),
// library entries a project no longer requires, and cache entries no project
// requires. Files directly inside the cache, such as the manifest, are kept.
// It returns the removed paths.
func Cleanup(groupOut, cacheDir string, g *deps.Graph) ([]string, error) {
	var removed []string
	cacheName := filepath.Base(cacheDir)

	entries, err := readDirSorted(groupOut)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if strings.EqualFold(e.Name(), cacheName) || !e.IsDir() || g.HasProject(e.Name()) {
			continue
		}
		path := filepath.Join(groupOut, e.Name())
		if err := os.RemoveAll(path); err != nil {
			return removed, errors.FileSystemErrorf(err, "remove stale project %s", path)
		}
		removed = append(removed, path)
	}

	for _, project := range g.Projects() {
		projectDir, ok := ProjectDir(groupOut, cacheDir, project)
		if !ok {
			continue
		}
		allowed := toSet(g.LibraryStems(project))

		entries, err := readDirSorted(projectDir)
		if err != nil {
			return removed, err
		}
		for _, e := range entries {
			if allowed[e.Name()] {
				continue
			}
			path := filepath.Join(projectDir, e.Name())
			fi, err := os.Lstat(path)
			if err != nil {
				continue
			}
			if !fi.IsDir() && !isLink(fi) {
				continue
			}
			if err := removeEntry(path, fi); err != nil {
				return removed, errors.FileSystemErrorf(err, "remove stale library %s", path)
			}
			removed = append(removed, path)
		}
	}

	required := toSet(g.RequiredLibraries())
	entries, err = readDirSorted(cacheDir)
	if err != nil {
		return removed, err
	}
	for _, e := range entries {
		if !e.IsDir() || required[e.Name()] {
			continue
		}
		path := filepath.Join(cacheDir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			return removed, errors.FileSystemErrorf(err, "remove stale cache %s", path)
		}
		removed = append(removed, path)
	}

	return removed, nil
}

// ProjectDir is the directory of project under groupOut. It reports false when
// the name would resolve to groupOut itself, leave it, or land on the cache
// directory; case is ignored for the cache name.
func ProjectDir(groupOut, cacheDir, project string) (string, bool) {
	if project == "" || project == "." || project == ".." || strings.ContainsAny(project, `/\`) {
		return "", false
	}
	if strings.EqualFold(project, filepath.Base(cacheDir)) {
		return "", false
	}
	dir := filepath.Join(groupOut, project)
	if filepath.Clean(dir) == filepath.Clean(cacheDir) {
		return "", false
	}
	return dir, true
}

// readDirSorted lists dir case-insensitively; a missing dir is empty.
func readDirSorted(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.FileSystemErrorf(err, "list %s", dir)
	}
	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})
	return entries, nil
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
	}
	return set
}
