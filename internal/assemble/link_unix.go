//go:build !windows

package assemble

import "os"

// DefaultLinker creates symbolic links.
func DefaultLinker() Linker {
	return LinkerFunc(os.Symlink)
}

func isLink(fi os.FileInfo) bool {
	return fi.Mode()&os.ModeSymlink != 0
}

func samePath(a, b string) bool {
	return a == b
}
