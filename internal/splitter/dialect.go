package splitter

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind is the closed set of member kinds an exported object can contain.
type Kind string

const (
	KindFunction   Kind = "function"
	KindSubroutine Kind = "subroutine"
	KindEvent      Kind = "event"
)

// Kinds lists every member kind.
var Kinds = []Kind{KindFunction, KindSubroutine, KindEvent}

// ParseKind maps a case-insensitive keyword to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindFunction:
		return KindFunction, nil
	case KindSubroutine:
		return KindSubroutine, nil
	case KindEvent:
		return KindEvent, nil
	}
	return "", fmt.Errorf("unknown member kind %q", s)
}

// LineClass is the result of classifying one source line.
type LineClass int

const (
	LineOther LineClass = iota
	LineMemberStart
	LineMemberEnd
)

// Classification describes a classified line. Kind is set for start and end lines,
// Signature only for start lines.
type Classification struct {
	Class     LineClass
	Kind      Kind
	Signature string
}

// Dialect recognises member boundaries in one flavour of exported source.
type Dialect interface {
	// ClassifyLine decides whether line opens a member, closes one, or neither.
	ClassifyLine(line string) Classification
	// IsOpener reports whether line opens a member of kind for fallback extraction,
	// which also accepts a "global" modifier.
	IsOpener(line string, kind Kind) bool
}

var (
	memberStartRe = regexp.MustCompile(`(?i)^\s*(public|private|protected)?\s*(function|subroutine|event)\s+(.+?)\s*$`)
	memberEndRe   = regexp.MustCompile(`(?i)^\s*end\s+(function|subroutine|event)\b`)
)

var openerRes = map[Kind]*regexp.Regexp{
	KindFunction:   regexp.MustCompile(`(?i)^\s*(global|public|private|protected)?\s*function\s+(.+?)\s*$`),
	KindSubroutine: regexp.MustCompile(`(?i)^\s*(global|public|private|protected)?\s*subroutine\s+(.+?)\s*$`),
	KindEvent:      regexp.MustCompile(`(?i)^\s*(global|public|private|protected)?\s*event\s+(.+?)\s*$`),
}

// PowerScript is the default dialect for PowerBuilder source exports.
type PowerScript struct{}

// ClassifyLine implements Dialect.
func (PowerScript) ClassifyLine(line string) Classification {
	if m := memberEndRe.FindStringSubmatch(line); m != nil {
		return Classification{Class: LineMemberEnd, Kind: Kind(strings.ToLower(m[1]))}
	}
	if m := memberStartRe.FindStringSubmatch(line); m != nil {
		sig := strings.TrimSpace(m[3])
		if sig == "" {
			return Classification{Class: LineOther}
		}
		return Classification{
			Class:     LineMemberStart,
			Kind:      Kind(strings.ToLower(m[2])),
			Signature: sig,
		}
	}
	return Classification{Class: LineOther}
}

// IsOpener implements Dialect.
func (PowerScript) IsOpener(line string, kind Kind) bool {
	re, ok := openerRes[kind]
	if !ok {
		return false
	}
	return re.MatchString(line)
}

// IsEnd reports whether line closes a member of exactly kind.
func IsEnd(d Dialect, line string, kind Kind) bool {
	c := d.ClassifyLine(line)
	return c.Class == LineMemberEnd && c.Kind == kind
}
