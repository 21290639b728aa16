//go:build windows

package assemble

import (
	"os"
	"os/exec"
	"strings"
)

// DefaultLinker creates directory junctions, which need no privileges, and falls
// back to symbolic links.
func DefaultLinker() Linker {
	return LinkerFunc(func(target, dest string) error {
		cmd := exec.Command("cmd", "/c", "mklink", "/J", dest, target)
		if err := cmd.Run(); err == nil {
			return nil
		}
		return os.Symlink(target, dest)
	})
}

// Junctions report as irregular rather than as symlinks.
func isLink(fi os.FileInfo) bool {
	return fi.Mode()&(os.ModeSymlink|os.ModeIrregular) != 0
}

func samePath(a, b string) bool {
	return strings.EqualFold(a, b)
}
