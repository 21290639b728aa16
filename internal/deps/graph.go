package deps

import (
	"sort"
	"strings"
)

// Graph maps each project of a group to its ordered library list.
type Graph struct {
	projects   map[string][]string
	workspaces map[string]string

	// Warnings collects non-fatal problems such as missing targets.
	Warnings []string
}

func newGraph() *Graph {
	return &Graph{
		projects:   make(map[string][]string),
		workspaces: make(map[string]string),
	}
}

// NewGraph builds a graph directly from project → library file names.
func NewGraph(projects map[string][]string) *Graph {
	g := newGraph()
	for name, libs := range projects {
		g.add(name, "", uniqueFold(libs))
	}
	return g
}

func (g *Graph) add(name, workspace string, libs []string) {
	g.projects[name] = libs
	g.workspaces[name] = workspace
}

// Remove drops project from the graph.
func (g *Graph) Remove(project string) {
	delete(g.projects, project)
	delete(g.workspaces, project)
}

// Projects returns project names sorted case-insensitively.
func (g *Graph) Projects() []string {
	names := make([]string, 0, len(g.projects))
	for name := range g.projects {
		names = append(names, name)
	}
	sortFold(names)
	return names
}

// HasProject reports whether name is a current project.
func (g *Graph) HasProject(name string) bool {
	_, ok := g.projects[name]
	return ok
}

// Workspace is the .pbw path a project was read from, if any.
func (g *Graph) Workspace(project string) string {
	return g.workspaces[project]
}

// Libraries returns the library file names of project in declaration order.
func (g *Graph) Libraries(project string) []string {
	return g.projects[project]
}

// LibraryStems returns the library directory names of project, de-duplicated,
// in declaration order.
func (g *Graph) LibraryStems(project string) []string {
	var stems []string
	seen := map[string]bool{}
	for _, lib := range g.projects[project] {
		stem := LibraryStem(lib)
		if stem == "" || seen[stem] {
			continue
		}
		seen[stem] = true
		stems = append(stems, stem)
	}
	return stems
}

// RequiredLibraries returns every library stem used by any project, sorted
// case-insensitively.
func (g *Graph) RequiredLibraries() []string {
	var stems []string
	seen := map[string]bool{}
	for _, p := range g.Projects() {
		for _, stem := range g.LibraryStems(p) {
			if !seen[stem] {
				seen[stem] = true
				stems = append(stems, stem)
			}
		}
	}
	sortFold(stems)
	return stems
}

// Referencing returns the projects that use library stem, sorted.
func (g *Graph) Referencing(stem string) []string {
	var out []string
	for _, p := range g.Projects() {
		for _, s := range g.LibraryStems(p) {
			if s == stem {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// LibraryStatus is one line of a dependency report.
type LibraryStatus struct {
	Name  string `json:"name"`
	Stem  string `json:"stem"`
	Found bool   `json:"found"`
}

// ProjectReport lists a project's libraries and whether each was found.
type ProjectReport struct {
	Project   string          `json:"project"`
	Workspace string          `json:"workspace,omitempty"`
	Libraries []LibraryStatus `json:"libraries"`
}

// Report checks every declared library against available, keyed by stem.
func (g *Graph) Report(available func(stem string) bool) []ProjectReport {
	var out []ProjectReport
	for _, p := range g.Projects() {
		pr := ProjectReport{Project: p, Workspace: g.workspaces[p]}
		for _, lib := range g.projects[p] {
			stem := LibraryStem(lib)
			pr.Libraries = append(pr.Libraries, LibraryStatus{Name: lib, Stem: stem, Found: available(stem)})
		}
		out = append(out, pr)
	}
	return out
}

func sortFold(s []string) {
	sort.Slice(s, func(i, j int) bool {
		li, lj := strings.ToLower(s[i]), strings.ToLower(s[j])
		if li != lj {
			return li < lj
		}
		return s[i] < s[j]
	})
}
