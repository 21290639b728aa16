// Package pipeline runs one incremental build: resolve dependencies, rebuild the
// library caches whose fingerprint changed, assemble project trees, persist the
// manifest.
package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rohankatakam/aicodebase/internal/assemble"
	"github.com/rohankatakam/aicodebase/internal/cache"
	"github.com/rohankatakam/aicodebase/internal/deps"
	"github.com/rohankatakam/aicodebase/internal/discovery"
	"github.com/rohankatakam/aicodebase/internal/errors"
	"github.com/rohankatakam/aicodebase/internal/fingerprint"
	"github.com/rohankatakam/aicodebase/internal/manifest"
)

// Pipeline coordinates a run.
type Pipeline struct {
	opts      Options
	logger    logrus.FieldLogger
	resolver  *deps.Resolver
	builder   *cache.Builder
	assembler *assemble.Assembler
}

// New creates a Pipeline.
func New(opts Options, logger logrus.FieldLogger) (*Pipeline, error) {
	opts.applyDefaults()
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	resolver, err := deps.NewResolver(logger, deps.DefaultMemoSize)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		opts:      opts,
		logger:    logger,
		resolver:  resolver,
		builder:   cache.NewBuilder(logger, opts.Dialect, opts.Collisions),
		assembler: assemble.New(logger, opts.LinkMode, opts.Linker),
	}, nil
}

// GroupSummary reports what one group run did.
type GroupSummary struct {
	Group     string        `json:"group"`
	Projects  int           `json:"projects"`
	Libraries int           `json:"libraries"`
	Rebuilt   int           `json:"rebuilt"`
	Skipped   int           `json:"skipped"`
	NotFound  int           `json:"not_found"`
	Failed    int           `json:"failed"`
	Linked    int           `json:"linked"`
	Copied    int           `json:"copied"`
	Reused    int           `json:"reused"`
	Removed   int           `json:"removed"`
	Duration  time.Duration `json:"duration_ns"`
}

// Summary reports a whole run.
type Summary struct {
	RunID       string         `json:"run_id"`
	StartedAt   time.Time      `json:"started_at"`
	Duration    time.Duration  `json:"duration_ns"`
	Groups      []GroupSummary `json:"groups"`
	Diagnostics []string       `json:"diagnostics"`
}

func (s *Summary) diag(format string, args ...interface{}) {
	s.Diagnostics = append(s.Diagnostics, fmt.Sprintf(format, args...))
}

// Run processes every configured group. It fails with errors.ErrMissingRoot when
// the mirror or sources root is absent and with errors.ErrNothingToDo when no group
// could be processed; the summary is returned in both cases.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		RunID:       uuid.NewString(),
		StartedAt:   time.Now(),
		Diagnostics: []string{},
	}
	log := p.logger.WithField("run_id", summary.RunID)

	if err := p.checkRoots(); err != nil {
		return summary, err
	}

	for _, group := range p.opts.Groups {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		paths := p.opts.Paths(group)
		if !isDir(paths.Mirror) {
			log.WithField("group", group).Debug("No mirror for group")
			continue
		}
		if !isDir(paths.Sources) {
			summary.diag("[%s] missing sources: %s", group, paths.Sources)
			continue
		}

		gs, err := p.runGroup(ctx, group, paths, summary)
		if err != nil {
			return summary, fmt.Errorf("group %s: %w", group, err)
		}
		summary.Groups = append(summary.Groups, *gs)

		log.WithFields(logrus.Fields{
			"group":    group,
			"projects": gs.Projects,
			"rebuilt":  gs.Rebuilt,
			"skipped":  gs.Skipped,
			"linked":   gs.Linked,
			"copied":   gs.Copied,
			"duration": gs.Duration.String(),
		}).Info("Group processed")
	}

	summary.Duration = time.Since(summary.StartedAt)
	if len(summary.Groups) == 0 {
		return summary, errors.ErrNothingToDo
	}
	return summary, nil
}

func (p *Pipeline) checkRoots() error {
	for _, root := range []struct{ name, path string }{
		{"mirror", p.opts.MirrorRoot},
		{"sources", p.opts.SourcesRoot},
	} {
		if root.path == "" || !isDir(root.path) {
			return errors.MissingRootf("%s root not found: %q", root.name, root.path)
		}
	}
	if p.opts.OutputRoot == "" {
		return errors.MissingRootf("output root not set")
	}
	if err := os.MkdirAll(p.opts.OutputRoot, 0o755); err != nil {
		return errors.FileSystemErrorf(err, "create output root %s", p.opts.OutputRoot)
	}
	return nil
}

type buildJob struct {
	library string
	files   []discovery.File
	fp      fingerprint.Fingerprint
}

func (p *Pipeline) runGroup(ctx context.Context, group string, paths GroupPaths, summary *Summary) (*GroupSummary, error) {
	start := time.Now()
	gs := &GroupSummary{Group: group}
	log := p.logger.WithField("group", group)

	if err := os.MkdirAll(paths.Cache, 0o755); err != nil {
		return nil, errors.FileSystemErrorf(err, "create cache directory %s", paths.Cache)
	}

	store, err := manifest.Open(p.opts.ManifestBackend, paths.Cache, log)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	m, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}

	graph, err := p.resolver.Resolve(ctx, paths.Mirror)
	if err != nil {
		return nil, err
	}
	for _, w := range graph.Warnings {
		summary.diag("[%s] %s", group, w)
	}
	for _, project := range graph.Projects() {
		if _, ok := assemble.ProjectDir(paths.Output, paths.Cache, project); !ok {
			summary.diag("[%s] project %q clashes with the cache directory, skipped", group, project)
			graph.Remove(project)
		}
	}
	gs.Projects = len(graph.Projects())

	removed, err := assemble.Cleanup(paths.Output, paths.Cache, graph)
	if err != nil {
		return nil, err
	}
	gs.Removed = len(removed)

	required := graph.RequiredLibraries()
	gs.Libraries = len(required)

	var jobs []buildJob
	for _, lib := range required {
		files, err := discovery.Collect(filepath.Join(paths.Sources, lib), p.opts.Extensions)
		if err != nil && !stderrors.Is(err, discovery.ErrNotFound) {
			summary.diag("[%s] library %s: %v", group, lib, err)
			gs.Failed++
			continue
		}
		if len(files) == 0 {
			// Treated as missing: no cache entry survives.
			summary.diag("[%s] library %s not found in sources", group, lib)
			gs.NotFound++
			delete(m.Libraries, lib)
			if err := os.RemoveAll(filepath.Join(paths.Cache, lib)); err != nil {
				return nil, errors.FileSystemErrorf(err, "remove cache of %s", lib)
			}
			continue
		}

		fp := fingerprint.FromFiles(files)
		if old, ok := m.Libraries[lib]; ok && old.Equal(fp) && isDir(filepath.Join(paths.Cache, lib)) {
			gs.Skipped++
			continue
		}
		jobs = append(jobs, buildJob{library: lib, files: files, fp: fp})
	}

	results := make([]*cache.BuildResult, len(jobs))
	failures := make([]error, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for _, batch := range batchByFold(jobs) {
		g.Go(func() error {
			for _, i := range batch {
				job := jobs[i]
				res, err := p.builder.Build(gctx, job.library, job.files, filepath.Join(paths.Cache, job.library))
				if err != nil {
					if ctxErr := gctx.Err(); ctxErr != nil {
						return ctxErr
					}
					failures[i] = err
					continue
				}
				results[i] = res
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Manifest updates happen here only, after every worker is done.
	for i, job := range jobs {
		if failures[i] != nil {
			summary.diag("[%s] library %s: %v", group, job.library, failures[i])
			delete(m.Libraries, job.library)
			gs.Failed++
			continue
		}
		m.Libraries[job.library] = job.fp
		gs.Rebuilt++
		for _, d := range results[i].Diagnostics {
			summary.diag("[%s] %s", group, d)
		}
	}

	report, err := p.assembler.Assemble(ctx, paths.Output, paths.Cache, graph)
	if err != nil {
		return nil, err
	}
	gs.Linked, gs.Copied, gs.Reused = report.Linked, report.Copied, report.Reused
	gs.Failed += report.Failed
	for _, d := range report.Diagnostics {
		summary.diag("[%s] %s", group, d)
	}

	for _, project := range graph.Projects() {
		m.Projects[project] = append([]string{}, graph.LibraryStems(project)...)
	}
	m.Prune(required, graph.Projects())

	if err := store.Save(ctx, m); err != nil {
		return nil, errors.FileSystemErrorf(err, "save manifest %s", store.Path())
	}

	gs.Duration = time.Since(start)
	return gs, nil
}

// batchByFold groups job indexes whose libraries differ only in case. Each batch
// runs on one worker, so case-insensitive filesystems never see two builds of
// the same cache directory at once.
func batchByFold(jobs []buildJob) [][]int {
	var batches [][]int
	index := make(map[string]int, len(jobs))
	for i, job := range jobs {
		key := strings.ToLower(job.library)
		if b, ok := index[key]; ok {
			batches[b] = append(batches[b], i)
			continue
		}
		index[key] = len(batches)
		batches = append(batches, []int{i})
	}
	return batches
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
