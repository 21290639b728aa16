package splitter

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	forbiddenChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
	underscoreRun  = regexp.MustCompile(`_+`)
	identToken     = regexp.MustCompile(`[A-Za-z_]\w*`)
)

// Sanitize makes name safe as a file or directory name on every platform.
func Sanitize(name string) string {
	name = strings.TrimSpace(name)
	name = forbiddenChars.ReplaceAllString(name, "_")
	name = whitespaceRun.ReplaceAllString(name, "_")
	name = underscoreRun.ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}

// Stem is the sanitized base name of path without its last extension.
// Both '/' and '\' are treated as separators.
func Stem(path string) string {
	base := BaseName(path)
	return Sanitize(strings.TrimSuffix(base, filepath.Ext(base)))
}

// BaseName returns the last element of a '/' or '\' separated path.
func BaseName(path string) string {
	path = strings.TrimRight(path, `/\`)
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Identifier picks the member name out of a signature. Functions carry a return
// type first, so their name is the second identifier token.
func Identifier(kind Kind, signature string) string {
	tokens := identToken.FindAllString(signature, -1)
	switch {
	case kind == KindFunction && len(tokens) >= 2:
		return tokens[1]
	case len(tokens) >= 1:
		return tokens[0]
	default:
		return "unknown"
	}
}

// ArtifactName is the file name of a member artifact.
func ArtifactName(kind Kind, signature string) string {
	return Sanitize(string(kind)+"_"+Identifier(kind, signature)) + ".txt"
}
