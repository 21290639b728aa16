//go:build !windows

package manifest

// The manifest name starts with '_', not '.', so there is nothing to do here.
func setHidden(path string, hidden bool) error {
	return nil
}
