// Package deps resolves which libraries each workspace of a group needs.
//
// A workspace (.pbw) lists its targets in an "@begin Targets ... @end;" block.
// A target (.pbt) names its libraries in liblist / libs / applib assignments.
package deps

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rohankatakam/aicodebase/internal/splitter"
)

var (
	targetsBlockRe = regexp.MustCompile(`(?is)@begin\s+Targets(.*?)@end;`)
	quotedPathRe   = regexp.MustCompile(`"([^"]+)"`)
	libListRe      = regexp.MustCompile(`(?i)(liblist|libs|applib)\s*=?\s*"([^"]+)"`)
	projectLibRe   = regexp.MustCompile(`"\s*[^"&]*&[^"&]*&([^"]+)"`)
)

// TargetRefs returns the quoted paths of the workspace's Targets block, in order.
func TargetRefs(text string) []string {
	m := targetsBlockRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var refs []string
	for _, q := range quotedPathRe.FindAllStringSubmatch(m[1], -1) {
		refs = append(refs, q[1])
	}
	return refs
}

// LibraryRefs returns the library file names a target declares, basename only,
// de-duplicated case-insensitively in first-seen order. With projectRefs set, the
// "n&name&lib.pbl" entries of the target's project section are included first.
func LibraryRefs(text string, projectRefs bool) []string {
	var names []string
	if projectRefs {
		for _, m := range projectLibRe.FindAllStringSubmatch(text, -1) {
			names = append(names, splitter.BaseName(strings.TrimSpace(m[1])))
		}
	}
	for _, m := range libListRe.FindAllStringSubmatch(text, -1) {
		for _, entry := range strings.Split(m[2], ";") {
			if entry = strings.TrimSpace(entry); entry != "" {
				names = append(names, splitter.BaseName(entry))
			}
		}
	}
	return uniqueFold(names)
}

// LibraryStem is the cache and output directory name of a library file name.
func LibraryStem(name string) string {
	return splitter.Stem(name)
}

// resolveRef joins a workspace-relative reference onto the workspace directory.
// Backslashes are accepted as separators on every platform.
func resolveRef(workspaceDir, ref string) string {
	ref = strings.ReplaceAll(ref, `\`, "/")
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref)
	}
	return filepath.Clean(filepath.Join(workspaceDir, filepath.FromSlash(ref)))
}

func uniqueFold(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		k := strings.ToLower(s)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}
