package splitter

import "strings"

// StripWrappers removes the declaration line and, if present, the matching
// "end <kind>" line from a member block. At most one line is removed from each
// end, so a truncated member keeps everything after its declaration. A first line
// that is not a declaration is kept, which makes stripping a stripped body a no-op.
func StripWrappers(raw string, kind Kind, d Dialect) string {
	if d == nil {
		d = PowerScript{}
	}

	lines := strings.Split(raw, "\n")
	if len(lines) > 0 && isDeclaration(d, lines[0], kind) {
		lines = lines[1:]
	}

	lines = trimTrailingBlank(lines)
	if n := len(lines); n > 0 && IsEnd(d, lines[n-1], kind) {
		lines = lines[:n-1]
	}
	lines = trimTrailingBlank(lines)

	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func trimTrailingBlank(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func isDeclaration(d Dialect, line string, kind Kind) bool {
	return d.ClassifyLine(line).Class == LineMemberStart || d.IsOpener(line, kind)
}
