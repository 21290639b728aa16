package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNotFound is returned when the directory to scan does not exist.
var ErrNotFound = errors.New("directory not found")

// File is one discovered source file.
type File struct {
	Path      string // absolute or caller-relative path on disk
	RelPath   string // slash-separated path relative to the scanned directory
	Size      int64
	ModTimeNs int64
}

// Collect walks dir recursively and returns regular files whose base name matches
// any of patterns (case-insensitive). Results are sorted by lower-cased RelPath.
func Collect(dir string, patterns []string) ([]File, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNotFound, dir)
	}

	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		lowered = append(lowered, strings.ToLower(p))
	}

	var files []File
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if !Matches(d.Name(), lowered) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, File{
			Path:      path,
			RelPath:   filepath.ToSlash(rel),
			Size:      fi.Size(),
			ModTimeNs: fi.ModTime().UnixNano(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	SortFiles(files)
	return files, nil
}

// Matches reports whether name matches one of the already lower-cased patterns.
func Matches(name string, loweredPatterns []string) bool {
	name = strings.ToLower(name)
	for _, p := range loweredPatterns {
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

// SortFiles orders files by lower-cased relative path, falling back to the raw path.
func SortFiles(files []File) {
	sort.Slice(files, func(i, j int) bool {
		li, lj := strings.ToLower(files[i].RelPath), strings.ToLower(files[j].RelPath)
		if li != lj {
			return li < lj
		}
		return files[i].RelPath < files[j].RelPath
	})
}

// FindByExtension returns files under root with the given extension (".pbw"),
// case-insensitive, sorted by lower-cased path. A missing root yields nil.
func FindByExtension(root, ext string) ([]string, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	ext = strings.ToLower(ext)
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.ToLower(filepath.Ext(path)) == ext {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Slice(out, func(i, j int) bool {
		li, lj := strings.ToLower(filepath.ToSlash(out[i])), strings.ToLower(filepath.ToSlash(out[j]))
		if li != lj {
			return li < lj
		}
		return out[i] < out[j]
	})
	return out, nil
}
