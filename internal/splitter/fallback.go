package splitter

import "strings"

// ExtractSingleMember recovers one implicit member body from an object where
// Split found no members. It anchors on the last "end <kind>" line and walks back
// to the nearest opener of the same kind, so earlier forward prototypes are skipped.
// The body is the text strictly between the two anchors, trimmed.
func ExtractSingleMember(text string, d Dialect) (string, bool) {
	if d == nil {
		d = PowerScript{}
	}

	lines := strings.Split(text, "\n")

	endIdx := -1
	var kind Kind
	for i := len(lines) - 1; i >= 0; i-- {
		if c := d.ClassifyLine(lines[i]); c.Class == LineMemberEnd {
			endIdx, kind = i, c.Kind
			break
		}
	}
	if endIdx < 0 {
		return "", false
	}

	startIdx := -1
	for j := endIdx - 1; j >= 0; j-- {
		if d.IsOpener(lines[j], kind) {
			startIdx = j
			break
		}
	}
	if startIdx < 0 {
		return "", false
	}

	block := lines[startIdx : endIdx+1]
	if len(block) < 2 {
		return "", false
	}

	body := strings.TrimSpace(strings.Join(block[1:len(block)-1], "\n"))
	if body == "" {
		return "", true
	}
	return body + "\n", true
}
