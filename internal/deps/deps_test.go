package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/aicodebase/internal/errors"
)

const workspaceText = `Save Format v3.0(19990112)
@begin Unchecked
@end;
@begin Targets
 0 "app\app.pbt";
 1 "shared/tools.pbt";
 2 "./app/app.pbt";
 3 "gone.pbt";
 4 "notes.txt";
@end;
DefaultTarget "app.pbt";
`

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestResolver(t *testing.T, opts ...Option) *Resolver {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	r, err := NewResolver(logger, 8, opts...)
	require.NoError(t, err)
	return r
}

func TestTargetRefs(t *testing.T) {
	refs := TargetRefs(workspaceText)
	assert.Equal(t, []string{`app\app.pbt`, "shared/tools.pbt", "./app/app.pbt", "gone.pbt", "notes.txt"}, refs)

	assert.Nil(t, TargetRefs("no block here"))
	assert.Equal(t, []string{"x.pbt"}, TargetRefs("@BEGIN targets\n \"x.pbt\"\n@END;"))
}

func TestLibraryRefs(t *testing.T) {
	text := `appname "app"
applib "app.pbl"
LibList "app.pbl;..\shared\Tools.pbl;C:/libs/base.pbl; ;APP.PBL"
@begin Projects
 0 "1&exe&ext\extra.pbl";
@end;
`
	assert.Equal(t, []string{"app.pbl", "Tools.pbl", "base.pbl"}, LibraryRefs(text, false))
	assert.Equal(t, []string{"extra.pbl", "app.pbl", "Tools.pbl", "base.pbl"}, LibraryRefs(text, true))
	assert.Empty(t, LibraryRefs("nothing", false))
}

func TestLibraryStem(t *testing.T) {
	assert.Equal(t, "app_core", LibraryStem("app core.pbl"))
	assert.Equal(t, "base", LibraryStem(`C:\libs\base.pbl`))
}

func TestResolve(t *testing.T) {
	mirror := t.TempDir()
	write(t, filepath.Join(mirror, "Sales.pbw"), workspaceText)
	write(t, filepath.Join(mirror, "app", "app.pbt"), `liblist "app.pbl;common.pbl"`)
	write(t, filepath.Join(mirror, "shared", "tools.pbt"), `libs = "tools.pbl;Common.pbl"`)
	write(t, filepath.Join(mirror, "other", "Admin.pbw"), "@begin Targets\n \"../shared/tools.pbt\";\n@end;\n")

	r := newTestResolver(t)
	g, err := r.Resolve(context.Background(), mirror)
	require.NoError(t, err)

	assert.Equal(t, []string{"Admin", "Sales"}, g.Projects())
	// app.pbt is listed twice; targets are sorted by path.
	assert.Equal(t, []string{"app.pbl", "common.pbl", "tools.pbl"}, g.Libraries("Sales"))
	assert.Equal(t, []string{"tools", "Common"}, g.LibraryStems("Admin"))
	assert.Equal(t, []string{"app", "Common", "common", "tools"}, g.RequiredLibraries())
	assert.Equal(t, []string{"Admin", "Sales"}, g.Referencing("tools"))

	require.Len(t, g.Warnings, 1)
	assert.Contains(t, g.Warnings[0], "gone.pbt")

	// tools.pbt was parsed once and served from the memo for the second workspace.
	assert.Equal(t, 2, r.MemoLen())
}

func TestResolve_MissingMirror(t *testing.T) {
	g, err := newTestResolver(t).Resolve(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, g.Projects())
	assert.Empty(t, g.RequiredLibraries())
}

func TestTargetLibraries_MemoInvalidatedOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.pbt")
	write(t, path, `liblist "a.pbl"`)

	r := newTestResolver(t)
	libs, err := r.TargetLibraries(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pbl"}, libs)

	write(t, path, `liblist "a.pbl;bb.pbl"`)
	libs, err = r.TargetLibraries(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pbl", "bb.pbl"}, libs)
}

func TestGraphReport(t *testing.T) {
	g := NewGraph(map[string][]string{
		"web": {"core.pbl", "ui.pbl", "CORE.pbl"},
		"api": {"core.pbl"},
	})

	report := g.Report(func(stem string) bool { return stem == "core" })
	require.Len(t, report, 2)
	assert.Equal(t, "api", report[0].Project)
	assert.Equal(t, []LibraryStatus{
		{Name: "core.pbl", Stem: "core", Found: true},
		{Name: "ui.pbl", Stem: "ui", Found: false},
	}, report[1].Libraries)
}

func TestResolve_SkipsWorkspaceWithoutName(t *testing.T) {
	mirror := t.TempDir()
	write(t, filepath.Join(mirror, "a", "__.pbw"), "@begin Targets\n 0 \"a.pbt\";\n@end;\n")
	write(t, filepath.Join(mirror, "a", "a.pbt"), `LibList "ui.pbl"`)
	write(t, filepath.Join(mirror, "b", "Sales.pbw"), "@begin Targets\n 0 \"b.pbt\";\n@end;\n")
	write(t, filepath.Join(mirror, "b", "b.pbt"), `LibList "core.pbl"`)

	g, err := newTestResolver(t).Resolve(context.Background(), mirror)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sales"}, g.Projects())
	assert.Equal(t, []string{"core"}, g.RequiredLibraries())
	require.Len(t, g.Warnings, 1)
	assert.Contains(t, g.Warnings[0], "no usable project name")

	g.Remove("Sales")
	assert.False(t, g.HasProject("Sales"))
	assert.Empty(t, g.RequiredLibraries())
}

func TestWorkspaceTargets_UnreadableIsInputError(t *testing.T) {
	_, _, err := newTestResolver(t).WorkspaceTargets(filepath.Join(t.TempDir(), "missing.pbw"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeInput, errors.GetType(err))
}
