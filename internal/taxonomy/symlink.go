package taxonomy

import (
	"os"
	"path/filepath"
)

// evalSymlinksTolerant resolves symlinks in the longest existing prefix of
// path and rejoins the remaining (not-yet-created) suffix verbatim. Plain
// filepath.EvalSymlinks requires every component to exist, which would
// reject the common "resolve the would-be skill directory before it's been
// created" case during artifact placement (spec §5: "writing to a fresh
// temp directory" still needs the *intended* final path resolved first for
// the traversal check).
func evalSymlinksTolerant(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	dir, base := filepath.Dir(path), filepath.Base(path)
	if dir == path {
		// reached filesystem root without finding an existing component
		return path, nil
	}
	resolvedDir, err := evalSymlinksTolerant(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedDir, base), nil
}
