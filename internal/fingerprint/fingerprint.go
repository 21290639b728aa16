// Package fingerprint computes change-detection digests over groups of files.
//
// A fingerprint only looks at (path, size, mtime). Rewriting a file with identical
// size and modification time goes unnoticed.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/rohankatakam/aicodebase/internal/discovery"
)

// Entry describes one file of a group.
type Entry struct {
	RelPath   string
	Size      int64
	ModTimeNs int64
}

// Fingerprint is the digest of a group plus aggregates kept for reporting.
type Fingerprint struct {
	Digest     string `json:"fingerprint"`
	TotalSize  int64  `json:"total_size"`
	MaxModTime int64  `json:"mtime_max"`
	FileCount  int    `json:"file_count"`
}

// Compute returns the fingerprint of entries. Input order does not matter.
func Compute(entries []Entry) Fingerprint {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		li, lj := strings.ToLower(sorted[i].RelPath), strings.ToLower(sorted[j].RelPath)
		if li != lj {
			return li < lj
		}
		return sorted[i].RelPath < sorted[j].RelPath
	})

	fp := Fingerprint{FileCount: len(sorted)}
	lines := make([]string, 0, len(sorted))
	for _, e := range sorted {
		lines = append(lines, e.RelPath+"|"+strconv.FormatInt(e.Size, 10)+"|"+strconv.FormatInt(e.ModTimeNs, 10))
		fp.TotalSize += e.Size
		if e.ModTimeNs > fp.MaxModTime {
			fp.MaxModTime = e.ModTimeNs
		}
	}

	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	fp.Digest = hex.EncodeToString(sum[:])
	return fp
}

// FromFiles fingerprints discovered files by their relative path.
func FromFiles(files []discovery.File) Fingerprint {
	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		entries = append(entries, Entry{RelPath: f.RelPath, Size: f.Size, ModTimeNs: f.ModTimeNs})
	}
	return Compute(entries)
}

// Equal reports whether two fingerprints describe the same file set.
// Only the digest is compared; it is the sole rebuild-skip signal.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.Digest != "" && f.Digest == other.Digest
}

// Short is the first 12 hex characters of the digest.
func (f Fingerprint) Short() string {
	if len(f.Digest) < 12 {
		return f.Digest
	}
	return f.Digest[:12]
}
