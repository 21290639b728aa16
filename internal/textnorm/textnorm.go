// Package textnorm decodes exported source files into normalized UTF-8 text.
package textnorm

import (
	"bytes"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
)

// Encoding names reported by Detect.
const (
	UTF16LE     = "utf-16le"
	UTF16BE     = "utf-16be"
	UTF8        = "utf-8"
	Windows1252 = "windows-1252"
)

// Detect reports which decoder Decode will use for raw.
func Detect(raw []byte) string {
	switch {
	case bytes.HasPrefix(raw, bomUTF16LE):
		return UTF16LE
	case bytes.HasPrefix(raw, bomUTF16BE):
		return UTF16BE
	case utf8.Valid(raw):
		return UTF8
	default:
		return Windows1252
	}
}

// Decode turns raw file bytes into text with '\n' line endings and no NUL bytes.
// It never fails: undecodable sequences are replaced or dropped.
func Decode(raw []byte) string {
	var text string

	switch Detect(raw) {
	case UTF16LE:
		text = decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), raw)
	case UTF16BE:
		text = decodeWith(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), raw)
	case UTF8:
		text = string(bytes.TrimPrefix(raw, bomUTF8))
	default:
		text = decodeWith(charmap.Windows1252, raw)
	}

	return NormalizeNewlines(strings.ReplaceAll(text, "\x00", ""))
}

// NormalizeNewlines collapses CRLF and lone CR into LF.
func NormalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// ReadFile reads and decodes path.
func ReadFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Decode(raw), nil
}

func decodeWith(enc encoding.Encoding, raw []byte) string {
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		// odd-length UTF-16 input: keep what decoded cleanly
		return strings.ToValidUTF8(string(out), "")
	}
	return string(out)
}
