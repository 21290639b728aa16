package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/aicodebase/internal/assemble"
	"github.com/rohankatakam/aicodebase/internal/config"
	"github.com/rohankatakam/aicodebase/internal/errors"
	"github.com/rohankatakam/aicodebase/internal/manifest"
)

type fixture struct {
	mirror, sources, output string
}

func newFixture(t *testing.T) *fixture {
	root := t.TempDir()
	f := &fixture{
		mirror:  filepath.Join(root, "mirror"),
		sources: filepath.Join(root, "sources"),
		output:  filepath.Join(root, "output"),
	}

	f.write(t, f.mirror, "12.5/sales/Sales.pbw", "@begin Targets\n 0 \"sales.pbt\";\n@end;\n")
	f.write(t, f.mirror, "12.5/sales/sales.pbt", `LibList "core.pbl;ui.pbl;gone.pbl"`)

	f.write(t, f.sources, "12.5/core/n_core.sru", "global type n_core from nonvisualobject\nend type\n"+
		"public function integer of_one ()\n  return 1\nend function\n")
	f.write(t, f.sources, "12.5/ui/w_main.srw", "event open;\n  title = 'x'\nend event\n")
	f.write(t, f.sources, "12.5/gone/readme.txt", "not an export\n")
	return f
}

func (f *fixture) write(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (f *fixture) options() Options {
	return Options{
		Groups:      []string{"6.5", "12.5"},
		MirrorRoot:  f.mirror,
		SourcesRoot: f.sources,
		OutputRoot:  f.output,
		Workers:     4,
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func run(t *testing.T, opts Options) *Summary {
	t.Helper()
	p, err := New(opts, quietLogger())
	require.NoError(t, err)
	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Groups, 1)
	return summary
}

func containsDiag(s *Summary, substr string) bool {
	for _, d := range s.Diagnostics {
		if strings.Contains(d, substr) {
			return true
		}
	}
	return false
}

// tree lists every path under root with file contents; links are followed.
func tree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	var walk func(dir, rel string)
	walk = func(dir, rel string) {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			full, r := filepath.Join(dir, e.Name()), filepath.Join(rel, e.Name())
			fi, err := os.Stat(full)
			require.NoError(t, err)
			if fi.IsDir() {
				out[r] = "<dir>"
				walk(full, r)
				continue
			}
			data, err := os.ReadFile(full)
			require.NoError(t, err)
			out[r] = string(data)
		}
	}
	walk(root, "")
	return out
}

func TestRun_BuildsAndAssembles(t *testing.T) {
	f := newFixture(t)
	summary := run(t, f.options())

	gs := summary.Groups[0]
	assert.Equal(t, "12.5", gs.Group)
	assert.Equal(t, 1, gs.Projects)
	assert.Equal(t, 3, gs.Libraries)
	assert.Equal(t, 2, gs.Rebuilt)
	assert.Equal(t, 1, gs.NotFound)
	assert.Equal(t, 2, gs.Linked)
	assert.NotEmpty(t, summary.RunID)

	assert.True(t, containsDiag(summary, "[12.5] library gone not found in sources"))
	assert.True(t, containsDiag(summary, "[12.5] [Sales] library gone not found"))

	out := filepath.Join(f.output, "12.5")
	data, err := os.ReadFile(filepath.Join(out, "Sales", "core", "n_core", "function_of_one.txt"))
	require.NoError(t, err)
	assert.Equal(t, "  return 1\n", string(data))
	assert.FileExists(t, filepath.Join(out, "Sales", "ui", "w_main", "event_open.txt"))
	assert.NoDirExists(t, filepath.Join(out, "Sales", "gone"))
	assert.NoDirExists(t, filepath.Join(out, ".pblcache", "gone"))

	store := manifest.NewJSONStore(filepath.Join(out, ".pblcache", manifest.JSONFile), quietLogger())
	m, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, m.Libraries, 2)
	assert.Equal(t, []string{"core", "ui", "gone"}, m.Projects["Sales"])
}

func TestRun_SecondRunIsNoop(t *testing.T) {
	f := newFixture(t)
	run(t, f.options())
	before := tree(t, f.output)

	summary := run(t, f.options())
	gs := summary.Groups[0]
	assert.Equal(t, 0, gs.Rebuilt)
	assert.Equal(t, 2, gs.Skipped)
	assert.Equal(t, 2, gs.Reused)
	assert.Equal(t, 0, gs.Removed)

	assert.Equal(t, before, tree(t, f.output))
}

func TestRun_RebuildsOnlyChangedLibrary(t *testing.T) {
	f := newFixture(t)
	run(t, f.options())

	path := filepath.Join(f.sources, "12.5", "ui", "w_main.srw")
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))

	gs := run(t, f.options()).Groups[0]
	assert.Equal(t, 1, gs.Rebuilt)
	assert.Equal(t, 1, gs.Skipped)
}

func TestRun_RebuildsWhenCacheDeleted(t *testing.T) {
	f := newFixture(t)
	run(t, f.options())

	require.NoError(t, os.RemoveAll(filepath.Join(f.output, "12.5", ".pblcache", "core")))

	gs := run(t, f.options()).Groups[0]
	assert.Equal(t, 1, gs.Rebuilt)
	assert.FileExists(t, filepath.Join(f.output, "12.5", "Sales", "core", "n_core", "_object.txt"))
}

func TestRun_DependencyChangesArePruned(t *testing.T) {
	f := newFixture(t)
	run(t, f.options())

	f.write(t, f.mirror, "12.5/sales/sales.pbt", `LibList "core.pbl"`)
	summary := run(t, f.options())

	out := filepath.Join(f.output, "12.5")
	assert.NoDirExists(t, filepath.Join(out, "Sales", "ui"))
	assert.NoDirExists(t, filepath.Join(out, ".pblcache", "ui"))
	assert.DirExists(t, filepath.Join(out, "Sales", "core"))
	assert.Equal(t, 2, summary.Groups[0].Removed)

	require.NoError(t, os.Remove(filepath.Join(f.mirror, "12.5", "sales", "Sales.pbw")))
	run(t, f.options())
	assert.NoDirExists(t, filepath.Join(out, "Sales"))
	assert.NoDirExists(t, filepath.Join(out, ".pblcache", "core"))
	assert.FileExists(t, filepath.Join(out, ".pblcache", manifest.JSONFile))
}

func TestRun_CopyFallbackAndBackends(t *testing.T) {
	for _, backend := range manifest.Backends {
		t.Run(backend, func(t *testing.T) {
			f := newFixture(t)
			opts := f.options()
			opts.ManifestBackend = backend
			opts.Linker = assemble.LinkerFunc(func(string, string) error {
				return fmt.Errorf("no links here")
			})

			gs := run(t, opts).Groups[0]
			assert.Equal(t, 2, gs.Copied)

			gs = run(t, opts).Groups[0]
			assert.Equal(t, 0, gs.Rebuilt)
			assert.Equal(t, 2, gs.Copied)

			fi, err := os.Lstat(filepath.Join(f.output, "12.5", "Sales", "core"))
			require.NoError(t, err)
			assert.True(t, fi.IsDir())
		})
	}
}

func TestRun_MissingRoot(t *testing.T) {
	f := newFixture(t)
	opts := f.options()
	opts.SourcesRoot = filepath.Join(t.TempDir(), "absent")

	p, err := New(opts, quietLogger())
	require.NoError(t, err)
	_, err = p.Run(context.Background())

	assert.ErrorIs(t, err, errors.ErrMissingRoot)
	assert.Equal(t, errors.ExitMissingRoot, errors.ExitCode(err))
}

func TestRun_NothingToDo(t *testing.T) {
	f := newFixture(t)
	opts := f.options()
	opts.Groups = []string{"6.5", "9.0"}

	p, err := New(opts, quietLogger())
	require.NoError(t, err)
	summary, err := p.Run(context.Background())

	assert.ErrorIs(t, err, errors.ErrNothingToDo)
	assert.Equal(t, errors.ExitNothingToDo, errors.ExitCode(err))
	assert.Empty(t, summary.Groups)
}

func TestRun_MissingGroupSources(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.mirror, "10.5/x/X.pbw", "")
	opts := f.options()
	opts.Groups = []string{"10.5", "12.5"}

	summary := run(t, opts)
	assert.True(t, containsDiag(summary, "[10.5] missing sources"))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Roots.Mirror = "/m"
	cfg.Collisions = "suffix"
	cfg.LinkMode = "copy"

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, "/m", opts.MirrorRoot)
	assert.Equal(t, assemble.LinkCopy, opts.LinkMode)
	assert.Equal(t, config.DefaultGroups, opts.Groups)

	paths := opts.Paths("12.5")
	assert.Equal(t, filepath.Join("/m", "12.5"), paths.Mirror)
	assert.Equal(t, filepath.Join(cfg.Roots.Output, "12.5", ".pblcache"), paths.Cache)
}

func TestRun_WorkspaceWithoutProjectNameIsSkipped(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.mirror, "12.5/other/__.pbw", "@begin Targets\n 0 \"other.pbt\";\n@end;\n")
	f.write(t, f.mirror, "12.5/other/other.pbt", `LibList "ui.pbl"`)

	first := run(t, f.options())
	assert.Equal(t, 1, first.Groups[0].Projects)
	assert.True(t, containsDiag(first, "has no usable project name, skipped"))

	gs := run(t, f.options()).Groups[0]
	assert.Equal(t, 0, gs.Rebuilt)
	assert.Equal(t, 2, gs.Skipped)
	assert.Equal(t, 0, gs.Removed)

	entries, err := os.ReadDir(filepath.Join(f.output, "12.5"))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{".pblcache", "Sales"}, names)
}

func TestRun_WorkspaceNamedLikeCacheIsSkipped(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.mirror, "12.5/other/.pblcache.pbw", "@begin Targets\n 0 \"other.pbt\";\n@end;\n")
	f.write(t, f.mirror, "12.5/other/other.pbt", `LibList "ui.pbl"`)

	summary := run(t, f.options())
	assert.True(t, containsDiag(summary, `project ".pblcache" clashes with the cache directory`))
	assert.Equal(t, 1, summary.Groups[0].Projects)

	out := filepath.Join(f.output, "12.5")
	fi, err := os.Lstat(filepath.Join(out, ".pblcache", "ui"))
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	data, err := os.ReadFile(filepath.Join(out, "Sales", "ui", "w_main", "event_open.txt"))
	require.NoError(t, err)
	assert.Equal(t, "  title = 'x'\n", string(data))

	gs := run(t, f.options()).Groups[0]
	assert.Equal(t, 0, gs.Rebuilt)
	assert.Equal(t, 2, gs.Skipped)
}

func TestBatchByFold(t *testing.T) {
	jobs := []buildJob{{library: "Common"}, {library: "core"}, {library: "common"}, {library: "ui"}}
	assert.Equal(t, [][]int{{0, 2}, {1}, {3}}, batchByFold(jobs))
}
