// Package paths locates the tool's home directory, its configuration and
// the game data directory.
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Find locates rel below dir, matching every path element without regard
// to case, and returns the path as it exists on disk. The game ships with
// inconsistent casing (Data vs DATA), so exact joins are not enough.
func Find(dir, rel string) (string, error) {
	cur := dir
	for _, elem := range strings.Split(filepath.ToSlash(rel), "/") {
		if elem == "" || elem == "." {
			continue
		}
		entries, err := os.ReadDir(cur)
		if err != nil {
			return "", errors.Wrapf(err, "finding %q", rel)
		}
		found := ""
		for _, e := range entries {
			if e.Name() == elem {
				found = e.Name()
				break
			}
			if found == "" && strings.EqualFold(e.Name(), elem) {
				found = e.Name()
			}
		}
		if found == "" {
			return "", errors.Wrapf(os.ErrNotExist, "finding %q in %q", elem, cur)
		}
		cur = filepath.Join(cur, found)
	}
	glog.V(2).Infof("paths.Find(%q, %q)=%s", dir, rel, cur)
	return cur, nil
}

// Home returns the directory holding the tool configuration and mods:
// $JA2_HOME if set, otherwise .ja2 in the user's home directory.
func Home() (string, error) {
	if h := os.Getenv("JA2_HOME"); h != "" {
		return h, nil
	}
	u, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "determining home directory")
	}
	return filepath.Join(u, ".ja2"), nil
}
