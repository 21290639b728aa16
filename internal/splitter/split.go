// Package splitter cuts exported 4GL objects into a header and individually
// addressable members using line heuristics instead of a grammar.
package splitter

import (
	"sort"
	"strconv"
	"strings"
)

// Member is one function, subroutine or event block, wrappers included.
type Member struct {
	Kind      Kind
	Signature string
	Name      string // artifact file name, e.g. "function_of_test.txt"
	StartLine int    // 0-based index of the declaration line
	Lines     []string

	// Closed is false for a member still open at end of input.
	Closed bool
	// EndKind is the kind named by the closing line; it may differ from Kind.
	EndKind Kind
}

// KindMismatch reports a closing line that names a different kind than the opener.
func (m *Member) KindMismatch() bool {
	return m.Closed && m.EndKind != m.Kind
}

// RawText is the member block trimmed of surrounding whitespace, newline-terminated.
func (m *Member) RawText() string {
	return strings.TrimSpace(strings.Join(m.Lines, "\n")) + "\n"
}

// Body is the member with its declaration and matching end line removed.
func (m *Member) Body(d Dialect) string {
	return StripWrappers(m.RawText(), m.Kind, d)
}

// ObjectSplit is the result of splitting one object: every line belongs either to
// the header or to exactly one member.
type ObjectSplit struct {
	Header  []string
	Members []Member

	headerLineNos []int
	lineCount     int
}

// HeaderText is the header trimmed of surrounding whitespace, newline-terminated
// when non-empty.
func (s *ObjectSplit) HeaderText() string {
	text := strings.TrimSpace(strings.Join(s.Header, "\n"))
	if text == "" {
		return ""
	}
	return text + "\n"
}

// Lines rebuilds the original line sequence from header and member lines.
func (s *ObjectSplit) Lines() []string {
	out := make([]string, s.lineCount)
	for i, no := range s.headerLineNos {
		out[no] = s.Header[i]
	}
	for _, m := range s.Members {
		copy(out[m.StartLine:], m.Lines)
	}
	return out
}

// Splitter splits object text according to a Dialect.
type Splitter struct {
	dialect Dialect
}

// New returns a Splitter. A nil dialect means PowerScript.
func New(d Dialect) *Splitter {
	if d == nil {
		d = PowerScript{}
	}
	return &Splitter{dialect: d}
}

// Dialect returns the dialect used by s.
func (s *Splitter) Dialect() Dialect {
	return s.dialect
}

// Split scans text line by line. Outside a member, a start line opens one; inside,
// the first end line of any kind closes it. A member left open at the end is kept.
func (s *Splitter) Split(text string) *ObjectSplit {
	lines := strings.Split(text, "\n")
	out := &ObjectSplit{lineCount: len(lines)}

	var cur *Member
	for i, line := range lines {
		c := s.dialect.ClassifyLine(line)

		if cur == nil {
			if c.Class == LineMemberStart {
				cur = &Member{
					Kind:      c.Kind,
					Signature: c.Signature,
					Name:      ArtifactName(c.Kind, c.Signature),
					StartLine: i,
					Lines:     []string{line},
				}
				continue
			}
			out.Header = append(out.Header, line)
			out.headerLineNos = append(out.headerLineNos, i)
			continue
		}

		cur.Lines = append(cur.Lines, line)
		if c.Class == LineMemberEnd {
			cur.Closed = true
			cur.EndKind = c.Kind
			out.Members = append(out.Members, *cur)
			cur = nil
		}
	}

	if cur != nil {
		out.Members = append(out.Members, *cur)
	}
	return out
}

// Artifact is a stripped member ready to be written.
type Artifact struct {
	Name   string
	Body   string
	Member *Member
}

// CollisionPolicy decides what happens when members share an artifact name.
type CollisionPolicy int

const (
	// Overwrite keeps one artifact per name; the last member in file order wins.
	Overwrite CollisionPolicy = iota
	// Suffix keeps every member; later duplicates get "_2", "_3", ... appended.
	Suffix
)

// ParseCollisionPolicy maps "overwrite" / "suffix" to a policy.
func ParseCollisionPolicy(s string) CollisionPolicy {
	if strings.EqualFold(s, "suffix") {
		return Suffix
	}
	return Overwrite
}

// Artifacts strips every member and resolves name collisions. The result is sorted
// by lower-cased name; collided reports names that were shared by several members.
func (s *ObjectSplit) Artifacts(d Dialect, policy CollisionPolicy) (artifacts []Artifact, collided []string) {
	index := make(map[string]int, len(s.Members))
	counts := make(map[string]int, len(s.Members))

	for i := range s.Members {
		m := &s.Members[i]
		name := m.Name
		counts[name]++

		if counts[name] > 1 {
			if counts[name] == 2 {
				collided = append(collided, name)
			}
			if policy == Overwrite {
				artifacts[index[name]] = Artifact{Name: name, Body: m.Body(d), Member: m}
				continue
			}
			name = suffixed(name, counts[name], counts)
		}

		index[name] = len(artifacts)
		artifacts = append(artifacts, Artifact{Name: name, Body: m.Body(d), Member: m})
	}

	sort.SliceStable(artifacts, func(i, j int) bool {
		return strings.ToLower(artifacts[i].Name) < strings.ToLower(artifacts[j].Name)
	})
	return artifacts, collided
}

// suffixed finds the first free "<base>_<n>.txt" starting at n.
func suffixed(name string, n int, taken map[string]int) string {
	base := strings.TrimSuffix(name, ".txt")
	for {
		candidate := base + "_" + strconv.Itoa(n) + ".txt"
		if taken[candidate] == 0 {
			taken[candidate] = 1
			return candidate
		}
		n++
	}
}
