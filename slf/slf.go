// Package slf reads and writes SLF archives ("Sir-Tech Library File"), the
// flat archives in which Jagged Alliance 2 ships most of its data.
//
// The file starts with a header naming the library and the path prefix its
// members live under. Member data follows, and a table of fixed-size entries
// is stored at the very end of the file.
package slf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

const (
	nameSize   = 256
	headerSize = 532
	entrySize  = 280

	// StateOK marks a live entry; anything else (0xFF for deleted) is
	// skipped.
	StateOK = 0x00

	// filetimeEpochDelta is the number of 100ns intervals between the
	// Windows FILETIME epoch (1601) and the Unix epoch.
	filetimeEpochDelta = 116444736000000000
)

// ErrNotFound is returned by Open when no member has the requested name.
var ErrNotFound = errors.New("file not found in library")

type header struct {
	LibName                [nameSize]byte
	LibPath                [nameSize]byte
	NumEntries             int32
	Used                   int32
	Sort                   uint16
	Version                uint16
	ContainsSubDirectories uint8
	_                      [3]byte
	Reserved               int32
}

type entry struct {
	FileName  [nameSize]byte
	Offset    uint32
	Length    uint32
	State     uint8
	Reserved  uint8
	_         [2]byte
	FileTime  int64
	Reserved2 uint16
	_         [2]byte
}

// Entry describes one member of a library.
type Entry struct {
	// Name is the member path relative to the library prefix, with '/'
	// separators.
	Name    string
	Offset  int64
	Length  int64
	ModTime time.Time
}

// Library is an opened SLF archive. It is safe for concurrent use as long
// as the underlying io.ReaderAt is.
type Library struct {
	r       io.ReaderAt
	name    string
	prefix  string
	entries []Entry
	byName  map[string]int
}

var codec = charmap.Windows1252

func decodeName(b []byte) (string, error) {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	s, err := codec.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(string(s), `\`, "/"), nil
}

func encodeName(dst []byte, s string) error {
	b, err := codec.NewEncoder().Bytes([]byte(strings.ReplaceAll(s, "/", `\`)))
	if err != nil {
		return err
	}
	if len(b) >= len(dst) {
		return fmt.Errorf("name %q too long; got %d bytes, want < %d", s, len(b), len(dst))
	}
	copy(dst, b)
	return nil
}

func lookupKey(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, `\`, "/"))
}

func fromFiletime(ft int64) time.Time {
	if ft == 0 {
		return time.Time{}
	}
	return time.Unix(0, (ft-filetimeEpochDelta)*100).UTC()
}

func toFiletime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()/100 + filetimeEpochDelta
}

// Open reads the header and entry table of the size byte long library in r.
func Open(r io.ReaderAt, size int64) (*Library, error) {
	var h header
	if err := binary.Read(io.NewSectionReader(r, 0, headerSize), binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("could not read slf header: %s", err)
	}
	if h.NumEntries < 0 || int64(h.NumEntries)*entrySize > size-headerSize {
		return nil, fmt.Errorf("bad slf entry count %d for %d byte file", h.NumEntries, size)
	}

	lib := &Library{r: r, byName: make(map[string]int)}
	var err error
	if lib.name, err = decodeName(h.LibName[:]); err != nil {
		return nil, errors.Wrap(err, "decoding slf library name")
	}
	if lib.prefix, err = decodeName(h.LibPath[:]); err != nil {
		return nil, errors.Wrap(err, "decoding slf library path")
	}
	glog.V(2).Infof("slf %q: prefix %q, %d entries (%d used), version %d", lib.name, lib.prefix, h.NumEntries, h.Used, h.Version)

	table := io.NewSectionReader(r, size-int64(h.NumEntries)*entrySize, int64(h.NumEntries)*entrySize)
	entries := make([]entry, h.NumEntries)
	if err := binary.Read(table, binary.LittleEndian, entries); err != nil {
		return nil, fmt.Errorf("could not read slf entries: %s", err)
	}
	for i, e := range entries {
		if e.State != StateOK {
			continue
		}
		name, err := decodeName(e.FileName[:])
		if err != nil {
			return nil, errors.Wrapf(err, "decoding slf entry %d name", i)
		}
		if int64(e.Offset)+int64(e.Length) > size {
			return nil, fmt.Errorf("slf entry %q out of bounds: ends at %d, file is %d bytes", name, int64(e.Offset)+int64(e.Length), size)
		}
		lib.byName[lookupKey(name)] = len(lib.entries)
		lib.entries = append(lib.entries, Entry{
			Name:    name,
			Offset:  int64(e.Offset),
			Length:  int64(e.Length),
			ModTime: fromFiletime(e.FileTime),
		})
	}
	return lib, nil
}

// Name returns the library name stored in the header.
func (l *Library) Name() string {
	return l.name
}

// Prefix returns the directory the members are mounted under, with '/'
// separators and a trailing slash unless empty.
func (l *Library) Prefix() string {
	p := strings.Trim(l.prefix, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

// Entries returns all live members in archive order.
func (l *Library) Entries() []Entry {
	return l.entries
}

// List returns the names of all live members, sorted.
func (l *Library) List() []string {
	names := make([]string, len(l.entries))
	for i, e := range l.entries {
		names[i] = e.Name
	}
	sort.Strings(names)
	return names
}

// Stat returns the entry for the named member. Lookup ignores case.
func (l *Library) Stat(name string) (Entry, error) {
	i, ok := l.byName[lookupKey(name)]
	if !ok {
		return Entry{}, errors.Wrapf(ErrNotFound, "%q in %q", name, l.name)
	}
	return l.entries[i], nil
}

// Open returns a reader over the named member.
func (l *Library) Open(name string) (*io.SectionReader, error) {
	e, err := l.Stat(name)
	if err != nil {
		return nil, err
	}
	return io.NewSectionReader(l.r, e.Offset, e.Length), nil
}

// File is a member to be written by Pack.
type File struct {
	Name    string
	Data    []byte
	ModTime time.Time
}

// Pack writes a library containing files to w. prefix is the directory the
// members will be mounted under when the library is read back.
func Pack(w io.Writer, libName, prefix string, files []File) error {
	h := header{
		NumEntries: int32(len(files)),
		Used:       int32(len(files)),
		Sort:       0xFFFF,
		Version:    0x0200,
	}
	if err := encodeName(h.LibName[:], libName); err != nil {
		return errors.Wrap(err, "slf library name")
	}
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	if err := encodeName(h.LibPath[:], prefix); err != nil {
		return errors.Wrap(err, "slf library path")
	}

	entries := make([]entry, len(files))
	offset := int64(headerSize)
	for i, f := range files {
		if path.Dir(f.Name) != "." {
			h.ContainsSubDirectories = 1
		}
		if err := encodeName(entries[i].FileName[:], f.Name); err != nil {
			return errors.Wrapf(err, "slf entry %d", i)
		}
		if offset+int64(len(f.Data)) > 0xFFFFFFFF {
			return fmt.Errorf("slf too large at entry %q", f.Name)
		}
		entries[i].Offset = uint32(offset)
		entries[i].Length = uint32(len(f.Data))
		entries[i].State = StateOK
		entries[i].FileTime = toFiletime(f.ModTime)
		offset += int64(len(f.Data))
	}

	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return errors.Wrap(err, "writing slf header")
	}
	for _, f := range files {
		if _, err := w.Write(f.Data); err != nil {
			return errors.Wrapf(err, "writing slf member %q", f.Name)
		}
	}
	return errors.Wrap(binary.Write(w, binary.LittleEndian, entries), "writing slf entries")
}
