package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/golang/glog"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"badc0de.net/pkg/go-ja2/export"
	"badc0de.net/pkg/go-ja2/graphics"
	"badc0de.net/pkg/go-ja2/paths"
	"badc0de.net/pkg/go-ja2/slf"
)

// FileType is a data file category, derived from the extension.
type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeSLF
	FileTypeSTI
	FileTypePCX
	FileTypeTGA
	FileTypeGAP
	FileTypeWAV
	FileTypeJSD
)

var fileTypeNames = map[FileType]string{
	FileTypeUnknown: "unknown",
	FileTypeSLF:     "slf",
	FileTypeSTI:     "sti",
	FileTypePCX:     "pcx",
	FileTypeTGA:     "tga",
	FileTypeGAP:     "gap",
	FileTypeWAV:     "wav",
	FileTypeJSD:     "jsd",
}

func (t FileType) String() string {
	return fileTypeNames[t]
}

func fileTypeOf(name string) FileType {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	for t, n := range fileTypeNames {
		if t != FileTypeUnknown && n == ext {
			return t
		}
	}
	return FileTypeUnknown
}

// errNestedLibrary is reported for SLF archives found inside SLF archives.
var errNestedLibrary = errors.New("nested slf archives are not supported")

type typeStats struct {
	files int
	bytes uint64
}

// statistics accumulates counts while walking. All methods are safe for
// concurrent use.
type statistics struct {
	outputDir string // empty: do not write assets
	jobs      int

	mu     sync.Mutex
	types  map[FileType]*typeStats
	kinds  map[graphics.Kind]int
	failed int
}

func newStatistics(outputDir string, jobs int) *statistics {
	return &statistics{
		outputDir: outputDir,
		jobs:      max(jobs, 1),
		types:     make(map[FileType]*typeStats),
		kinds:     make(map[graphics.Kind]int),
	}
}

func (s *statistics) addFile(t FileType, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.types[t]
	if ts == nil {
		ts = &typeStats{}
		s.types[t] = ts
	}
	ts.files++
	ts.bytes += uint64(size)
}

func (s *statistics) addKind(k graphics.Kind) {
	s.mu.Lock()
	s.kinds[k]++
	s.mu.Unlock()
}

func (s *statistics) fail(fileID string, err error) {
	glog.Errorf("%s: %v", fileID, err)
	s.mu.Lock()
	s.failed++
	s.mu.Unlock()
}

// walk visits every file below root in lexical order.
func (s *statistics) walk(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		s.processFile(p, filepath.ToSlash(rel))
		return nil
	})
}

func (s *statistics) processFile(file, fileID string) {
	f, err := os.Open(file)
	if err != nil {
		s.fail(fileID, err)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		s.fail(fileID, err)
		return
	}

	t := fileTypeOf(file)
	s.addFile(t, st.Size())
	switch t {
	case FileTypeSTI:
		s.processImage(fileID, f)
	case FileTypeSLF:
		if err := s.processLibrary(fileID, f, st.Size()); err != nil {
			s.fail(fileID, err)
		}
	}
}

// processLibrary visits the members of an archive, converting up to jobs
// of them at a time.
func (s *statistics) processLibrary(archive string, r io.ReaderAt, size int64) error {
	lib, err := slf.Open(r, size)
	if err != nil {
		return err
	}
	glog.V(1).Infof("%s: %d members under %q", archive, len(lib.Entries()), lib.Prefix())

	var g errgroup.Group
	g.SetLimit(s.jobs)
	for _, e := range lib.Entries() {
		e := e
		g.Go(func() error {
			fileID := export.FileID(archive, lib.Prefix()+e.Name)
			t := fileTypeOf(e.Name)
			s.addFile(t, e.Length)
			switch t {
			case FileTypeSTI:
				member, err := lib.Open(e.Name)
				if err != nil {
					s.fail(fileID, err)
					return nil
				}
				s.processImage(fileID, member)
			case FileTypeSLF:
				s.fail(fileID, errNestedLibrary)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *statistics) processImage(fileID string, r io.ReadSeeker) {
	asset, err := graphics.ClassifyReader(r)
	if err != nil {
		s.fail(fileID, err)
		return
	}
	glog.V(1).Infof("%s: %v", fileID, asset.Kind())
	s.addKind(asset.Kind())

	if s.outputDir == "" {
		return
	}
	written, err := export.WriteAsset(s.outputDir, fileID, asset)
	if err != nil {
		s.fail(fileID, err)
		return
	}
	glog.V(2).Infof("%s: wrote %v", fileID, written)
}

func (s *statistics) render(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	types := make([]FileType, 0, len(s.types))
	for t := range s.types {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Type", "Files", "Size"})
	var files int
	var bytes uint64
	for _, t := range types {
		ts := s.types[t]
		tw.AppendRow(table.Row{t, ts.files, humanize.Bytes(ts.bytes)})
		files += ts.files
		bytes += ts.bytes
	}
	tw.AppendFooter(table.Row{"Total", files, humanize.Bytes(bytes)})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	tw.Render()

	kw := table.NewWriter()
	kw.SetOutputMirror(w)
	kw.SetStyle(table.StyleRounded)
	kw.AppendHeader(table.Row{"Image kind", "Count"})
	for _, k := range []graphics.Kind{graphics.KindAnimationSet, graphics.KindAnimation, graphics.KindTextureSet, graphics.KindTexture} {
		kw.AppendRow(table.Row{k, s.kinds[k]})
	}
	kw.AppendFooter(table.Row{"Failed", s.failed})
	kw.Render()
}

func statisticsMain(cfg *paths.Config, args []string) error {
	fs := newFlagSet("statistics", cfg)
	directory := fs.String("directory", "", "Directory to walk; defaults to the game's data directory")
	write := fs.Bool("write", false, "Write converted images to the output directory")
	fs.Parse(args)

	root := *directory
	if root == "" {
		var err error
		if root, err = cfg.DataDir(); err != nil {
			return errors.Wrap(err, "no -directory given")
		}
	}

	outputDir := ""
	if *write {
		outputDir = cfg.OutputDir
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return errors.Wrap(err, "creating output directory")
		}
	}

	s := newStatistics(outputDir, cfg.Jobs)
	if err := s.walk(root); err != nil {
		return errors.Wrapf(err, "walking %q", root)
	}
	fmt.Printf("Statistics for %s\n", root)
	s.render(os.Stdout)
	return nil
}
