package vfs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"badc0de.net/pkg/go-ja2/paths"
)

// FromConfig builds the VFS the game would see: enabled mods first, then
// the game's Data directory, then every SLF archive in it.
// Layers opened before a failure are closed again.
func FromConfig(cfg *paths.Config) (*VFS, error) {
	v := New()
	if err := v.addConfigLayers(cfg); err != nil {
		v.Close()
		return nil, err
	}
	return v, nil
}

func (v *VFS) addConfigLayers(cfg *paths.Config) error {
	for _, d := range cfg.ModDirs() {
		if err := v.AddDir(d); err != nil {
			return err
		}
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		return err
	}
	if err := v.AddDir(dataDir); err != nil {
		return err
	}

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return errors.Wrap(err, "listing data directory")
	}
	var libs []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".slf") {
			libs = append(libs, filepath.Join(dataDir, e.Name()))
		}
	}
	sort.Strings(libs)
	for _, lib := range libs {
		if err := v.AddLibrary(lib); err != nil {
			return err
		}
	}
	return nil
}
