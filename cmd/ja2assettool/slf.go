package main

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/go-ja2/paths"
	"badc0de.net/pkg/go-ja2/slf"
)

func slfMain(cfg *paths.Config, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: slf <unpack|pack> [flags]")
	}
	fs := newFlagSet("slf "+args[0], cfg)
	archive := fs.String("archive", "", "Path of the SLF archive")
	directory := fs.String("directory", "", "Directory to pack")
	libName := fs.String("library_name", "", "Library name stored in a packed archive; defaults to the archive file name")
	prefix := fs.String("prefix", "", "Directory the members of a packed archive are mounted under")
	fs.Parse(args[1:])

	if *archive == "" {
		return errors.New("-archive is required")
	}
	switch args[0] {
	case "unpack":
		return unpack(*archive, cfg.OutputDir)
	case "pack":
		if *directory == "" {
			return errors.New("-directory is required")
		}
		if *libName == "" {
			*libName = filepath.Base(*archive)
		}
		return pack(*archive, *directory, *libName, *prefix)
	default:
		return errors.Errorf("unknown slf command %q", args[0])
	}
}

// unpack extracts every member of archive below outputDir, keeping member
// paths and modification times.
func unpack(archive, outputDir string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return err
	}
	lib, err := slf.Open(f, st.Size())
	if err != nil {
		return err
	}

	for _, e := range lib.Entries() {
		dst, err := memberPath(outputDir, e.Name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		r, err := lib.Open(e.Name)
		if err != nil {
			return err
		}
		out, err := os.Create(dst)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, r); err != nil {
			out.Close()
			return errors.Wrapf(err, "extracting %q", e.Name)
		}
		if err := out.Close(); err != nil {
			return err
		}
		if !e.ModTime.IsZero() {
			if err := os.Chtimes(dst, e.ModTime, e.ModTime); err != nil {
				glog.Warningf("setting modification time of %s: %v", dst, err)
			}
		}
		glog.V(1).Infof("extracted %s (%d bytes)", e.Name, e.Length)
	}
	glog.Infof("extracted %d files from %s", len(lib.Entries()), archive)
	return nil
}

// memberPath returns where the named member is extracted to. Names that
// are absolute or would land outside outputDir are refused.
func memberPath(outputDir, name string) (string, error) {
	if path.IsAbs(name) || filepath.IsAbs(filepath.FromSlash(name)) || filepath.VolumeName(filepath.FromSlash(name)) != "" {
		return "", errors.Errorf("refusing absolute member name %q", name)
	}
	root := filepath.Clean(outputDir)
	dst := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, dst)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("refusing member %q outside of %q", name, outputDir)
	}
	return dst, nil
}

// pack stores every regular file below directory in a new archive.
func pack(archive, directory, libName, prefix string) error {
	var files []slf.File
	err := filepath.WalkDir(directory, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(directory, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, slf.File{Name: filepath.ToSlash(rel), Data: data, ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "reading %q", directory)
	}

	buf := &bytes.Buffer{}
	if err := slf.Pack(buf, libName, prefix, files); err != nil {
		return err
	}
	glog.Infof("packed %d files into %s", len(files), archive)
	return os.WriteFile(archive, buf.Bytes(), 0o644)
}
