// Package vfs layers game data directories and SLF archives into a single
// read-only file tree addressed by case-insensitive paths.
//
// Layers are searched in the order they were added; the first layer that
// has a file wins.
package vfs

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"badc0de.net/pkg/go-ja2/slf"
)

// ErrNotExist is returned when no layer contains the requested path.
var ErrNotExist = errors.New("file does not exist in vfs")

// File is an opened file. Both directory files and archive members are
// seekable.
type File interface {
	io.ReadSeeker
	io.ReaderAt
	io.Closer
	Size() int64
}

// Layer is one backing store of the VFS. Paths passed to a layer are
// already caseless.
type Layer interface {
	Name() string
	Open(caseless string) (File, error)
	// Files returns the caseless paths of every file in the layer.
	Files() []string
}

// CaselessPath normalizes p for lookups: NFC, case folded, '/' separated,
// cleaned and without a leading slash.
func CaselessPath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = cases.Fold().String(norm.NFC.String(p))
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

// VFS is an ordered stack of layers.
type VFS struct {
	layers []Layer
}

// New returns an empty VFS.
func New() *VFS {
	return &VFS{}
}

// AddLayer appends a layer with lower priority than the existing ones.
func (v *VFS) AddLayer(l Layer) {
	glog.V(1).Infof("vfs: adding layer %s", l.Name())
	v.layers = append(v.layers, l)
}

// AddDir adds a directory tree as a layer.
func (v *VFS) AddDir(dir string) error {
	l, err := NewDirLayer(dir)
	if err != nil {
		return err
	}
	v.AddLayer(l)
	return nil
}

// AddLibrary opens an SLF archive and adds it as a layer mounted at the
// prefix stored in the archive.
func (v *VFS) AddLibrary(file string) error {
	l, err := OpenLibraryLayer(file)
	if err != nil {
		return err
	}
	v.AddLayer(l)
	return nil
}

// Close closes every layer that holds open files. The VFS must not be used
// afterwards.
func (v *VFS) Close() error {
	var first error
	for _, l := range v.layers {
		c, ok := l.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = errors.Wrapf(err, "closing %s", l.Name())
		}
	}
	v.layers = nil
	return first
}

// Layers returns the layers in priority order.
func (v *VFS) Layers() []Layer {
	return v.layers
}

// Open returns the file at p from the first layer that has it.
func (v *VFS) Open(p string) (File, error) {
	key := CaselessPath(p)
	for _, l := range v.layers {
		f, err := l.Open(key)
		if err == nil {
			glog.V(2).Infof("vfs: %q found in %s", p, l.Name())
			return f, nil
		}
		if !errors.Is(err, ErrNotExist) {
			return nil, errors.Wrapf(err, "opening %q in %s", p, l.Name())
		}
	}
	return nil, errors.Wrapf(ErrNotExist, "%q", p)
}

// ReadDir returns the sorted, deduplicated names of files and directories
// directly below dir across all layers. Names are caseless.
func (v *VFS) ReadDir(dir string) ([]string, error) {
	key := CaselessPath(dir)
	prefix := key + "/"
	if key == "" || key == "." {
		prefix = ""
	}
	seen := make(map[string]bool)
	for _, l := range v.layers {
		for _, f := range l.Files() {
			if !strings.HasPrefix(f, prefix) {
				continue
			}
			rest := f[len(prefix):]
			if i := strings.IndexByte(rest, '/'); i >= 0 {
				rest = rest[:i+1]
			}
			seen[rest] = true
		}
	}
	if len(seen) == 0 {
		return nil, errors.Wrapf(ErrNotExist, "directory %q", dir)
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// dirLayer serves files from a directory tree, indexed once when the layer
// is created.
type dirLayer struct {
	root  string
	files map[string]string // caseless -> path relative to root
	names []string
}

// NewDirLayer indexes dir. Files added to dir later are not seen.
func NewDirLayer(dir string) (Layer, error) {
	l := &dirLayer{root: dir, files: make(map[string]string)}
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := CaselessPath(filepath.ToSlash(rel))
		if prev, ok := l.files[key]; ok {
			glog.Warningf("vfs: %q and %q differ only in case; using the first", prev, rel)
			return nil
		}
		l.files[key] = rel
		l.names = append(l.names, key)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "indexing %q", dir)
	}
	sort.Strings(l.names)
	return l, nil
}

func (l *dirLayer) Name() string {
	return "dir:" + l.root
}

func (l *dirLayer) Files() []string {
	return l.names
}

func (l *dirLayer) Open(key string) (File, error) {
	rel, ok := l.files[key]
	if !ok {
		return nil, ErrNotExist
	}
	f, err := os.Open(filepath.Join(l.root, rel))
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &osFile{File: f, size: st.Size()}, nil
}

type osFile struct {
	*os.File
	size int64
}

func (f *osFile) Size() int64 {
	return f.size
}

// LibraryLayer serves the members of one SLF archive.
type LibraryLayer struct {
	file   string
	closer io.Closer
	lib    *slf.Library
	files  map[string]string // caseless full path -> member name
	names  []string
}

// OpenLibraryLayer opens the archive at file. The file stays open until
// Close is called.
func OpenLibraryLayer(file string) (*LibraryLayer, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	lib, err := slf.Open(f, st.Size())
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "opening library %q", file)
	}
	l := NewLibraryLayer(file, lib)
	l.closer = f
	return l, nil
}

// localName reports whether the member name stays below the library
// prefix: relative, and without ".." elements.
func localName(member string) bool {
	if strings.HasPrefix(member, "/") || strings.Contains(member, ":") {
		return false
	}
	for _, elem := range strings.Split(member, "/") {
		if elem == ".." {
			return false
		}
	}
	return true
}

// NewLibraryLayer wraps an already opened library.
func NewLibraryLayer(name string, lib *slf.Library) *LibraryLayer {
	l := &LibraryLayer{file: name, lib: lib, files: make(map[string]string)}
	for _, member := range lib.List() {
		if !localName(member) {
			glog.Warningf("vfs: %s: skipping member %q outside of the library", name, member)
			continue
		}
		key := CaselessPath(lib.Prefix() + member)
		l.files[key] = member
		l.names = append(l.names, key)
	}
	sort.Strings(l.names)
	return l
}

func (l *LibraryLayer) Name() string {
	return "slf:" + l.file
}

func (l *LibraryLayer) Files() []string {
	return l.names
}

func (l *LibraryLayer) Open(key string) (File, error) {
	member, ok := l.files[key]
	if !ok {
		return nil, ErrNotExist
	}
	r, err := l.lib.Open(member)
	if err != nil {
		return nil, err
	}
	return sectionFile{r}, nil
}

// Close closes the archive file, if the layer opened it.
func (l *LibraryLayer) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

type sectionFile struct {
	*io.SectionReader
}

func (sectionFile) Close() error {
	return nil
}
