package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rohankatakam/aicodebase/internal/deps"
	"github.com/rohankatakam/aicodebase/internal/manifest"
)

// DependencyReport is the dependency listing of one group.
type DependencyReport struct {
	Group    string               `json:"group"`
	Projects []deps.ProjectReport `json:"projects"`
	Warnings []string             `json:"warnings,omitempty"`
}

// WriteDependencies prints one block per project, marking libraries without
// sources as NOT FOUND.
func WriteDependencies(w io.Writer, reports []DependencyReport) error {
	p := &printer{w: w}
	for _, r := range reports {
		for _, pr := range r.Projects {
			p.linef("", "Project: %s", pr.Project)
			p.linef("", "Version: %s", r.Group)
			p.linef("", "PBLs:")
			for _, lib := range pr.Libraries {
				if lib.Found {
					p.linef("", " - %s", lib.Name)
				} else {
					p.linef("", " - %s (NOT FOUND)", lib.Name)
				}
			}
			p.linef("", "")
		}
		for _, warn := range r.Warnings {
			p.linef("", "warning: [%s] %s", r.Group, warn)
		}
	}
	return p.err
}

// GroupStatus is the persisted state of one group.
type GroupStatus struct {
	Group    string             `json:"group"`
	Manifest string             `json:"manifest"`
	State    *manifest.Manifest `json:"state"`
}

// WriteStatus prints what the manifest of each group records.
func WriteStatus(w io.Writer, groups []GroupStatus) error {
	p := &printer{w: w}
	if len(groups) == 0 {
		p.linef("", "No manifest found. Run 'aicodebase build' first.")
		return p.err
	}

	for _, g := range groups {
		p.linef("", "Group %s (%s)", g.Group, g.Manifest)

		libs := sortedKeys(g.State.Libraries)
		p.linef("", "  Libraries: %d", len(libs))
		for _, name := range libs {
			fp := g.State.Libraries[name]
			p.linef("", "    %-24s %s  %4d files  %8d bytes  %s",
				name, fp.Short(), fp.FileCount, fp.TotalSize, formatNanos(fp.MaxModTime))
		}

		projects := sortedKeys(g.State.Projects)
		p.linef("", "  Projects: %d", len(projects))
		for _, name := range projects {
			p.linef("", "    %-24s %s", name, strings.Join(g.State.Projects[name], ", "))
		}
	}
	return p.err
}

// WriteJSON prints v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return strings.ToLower(keys[i]) < strings.ToLower(keys[j])
	})
	return keys
}

func formatNanos(ns int64) string {
	if ns == 0 {
		return "-"
	}
	return time.Unix(0, ns).UTC().Format(time.RFC3339)
}

// Linef writes one formatted line to w.
func Linef(w io.Writer, format string, args ...interface{}) error {
	_, err := fmt.Fprintf(w, format+"\n", args...)
	return err
}
