package stci

// This file contains the types decoded from an STCI file, and the
// top-level Decode and Peek functions.

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bradfitz/iter"
	"github.com/golang/glog"
)

// Magic is the signature found at the start of every STCI file.
const Magic = "STCI"

// TransparentIndex is the palette index that is always rendered fully
// transparent, whatever colour is stored for it in the palette.
const TransparentIndex = 0

// Header flags.
const (
	FlagTransparent = 0x01
	FlagAlpha       = 0x02
	FlagRGB         = 0x04
	FlagIndexed     = 0x08
	FlagZlib        = 0x10
	FlagETRLE       = 0x20
)

const (
	headerSize        = 64
	subImageHeaderLen = 16
	appDataLen        = 16
	paletteSize       = 256
)

// MaxPixels bounds the pixel count of a single image. Larger dimensions
// are rejected before any buffer is allocated for them.
const MaxPixels = 1 << 24

// header is the fixed 64 byte header at the start of each STCI file.
type header struct {
	ID               [4]byte
	OriginalSize     uint32
	StoredSize       uint32 // equal to OriginalSize if data is uncompressed
	TransparentValue uint32
	Flags            uint32
	Height           uint16
	Width            uint16
	Format           [20]byte // RGB masks or indexed palette info
	Depth            uint8
	AppDataSize      uint32
	Unused           [15]byte
}

// indexedFormat is the interpretation of header.Format for indexed images.
type indexedFormat struct {
	NumberOfColors    uint32
	NumberOfSubImages uint16
	RedDepth          uint8
	GreenDepth        uint8
	BlueDepth         uint8
	Unused            [11]byte
}

// rgbFormat is the interpretation of header.Format for direct colour images.
type rgbFormat struct {
	RedMask, GreenMask, BlueMask, AlphaMask     uint32
	RedDepth, GreenDepth, BlueDepth, AlphaDepth uint8
}

// subImageHeader precedes the compressed image data, once per sub-image.
type subImageHeader struct {
	DataOffset uint32
	DataLength uint32
	OffsetX    int16
	OffsetY    int16
	Height     uint16
	Width      uint16
}

// Container is the result of decoding an STCI file. It is either *Indexed
// or *RGB.
type Container interface {
	isContainer()
}

// PaletteColor is a single palette entry.
type PaletteColor struct {
	R, G, B uint8
}

// Palette is the colour table shared by all sub-images of an indexed file.
type Palette []PaletteColor

// AppData is per-sub-image metadata. Only NumberOfFrames is used when
// assembling animations; the rest is preserved for re-encoding.
type AppData struct {
	WallOrientation uint8
	NumberOfTiles   uint8
	TileLocIndex    uint16
	Unused1         [3]uint8
	CurrentFrame    uint8
	NumberOfFrames  uint8
	Flags           uint8
	Unused          [6]uint8
}

// SubImage is one indexed frame.
type SubImage struct {
	Width, Height    uint16
	OffsetX, OffsetY int16

	// Pixels holds Width*Height palette indices, row by row.
	Pixels []uint8

	// AppData is nil if the file carries no per-frame metadata.
	AppData *AppData
}

// Indexed is a palette plus one or more indexed sub-images.
type Indexed struct {
	Palette   Palette
	SubImages []SubImage

	// Width and Height are the values stored in the file header. They are
	// informational; each sub-image declares its own dimensions.
	Width, Height uint16
}

// RGB is a single direct colour image.
type RGB struct {
	Width, Height uint16
	Pixels        []RGB565
}

func (*Indexed) isContainer() {}
func (*RGB) isContainer()     {}

// RGB565 is a 16 bit colour with 5 bits of red, 6 of green and 5 of blue.
type RGB565 uint16

// RGB888 expands the colour to 8 bits per channel, replicating the high
// bits into the low ones so that full intensity stays 0xFF.
func (c RGB565) RGB888() (r, g, b uint8) {
	r5 := uint8(c>>11) & 0x1F
	g6 := uint8(c>>5) & 0x3F
	b5 := uint8(c) & 0x1F
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2
}

// NewRGB565 packs an 8 bit per channel colour, dropping the low bits.
func NewRGB565(r, g, b uint8) RGB565 {
	return RGB565(uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3))
}

// Peek reports whether the passed reader is positioned at the start of an
// STCI file. The read position is restored before returning.
func Peek(r io.ReadSeeker) (bool, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return false, fmt.Errorf("could not get stci peek position: %s", err)
	}
	var magic [len(Magic)]byte
	n, err := io.ReadFull(r, magic[:])
	if _, serr := r.Seek(pos, io.SeekStart); serr != nil {
		return false, fmt.Errorf("could not rewind after stci peek: %s", serr)
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("could not peek stci magic: %s", err)
	}
	return n == len(Magic) && string(magic[:]) == Magic, nil
}

// Decode reads a complete STCI file from r.
func Decode(r io.Reader) (Container, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("could not read stci header: %s", err)
	}
	if string(h.ID[:]) != Magic {
		return nil, fmt.Errorf("bad stci magic: got %q, want %q", h.ID[:], Magic)
	}
	glog.V(3).Infof("stci header: flags 0x%02x, %dx%d, depth %d, stored %d, app data %d", h.Flags, h.Width, h.Height, h.Depth, h.StoredSize, h.AppDataSize)

	switch {
	case h.Flags&FlagIndexed != 0:
		return decodeIndexed(r, &h)
	case h.Flags&FlagRGB != 0:
		return decodeRGB(r, &h)
	default:
		return nil, fmt.Errorf("stci is neither indexed nor rgb: flags 0x%02x", h.Flags)
	}
}

// readBytes reads exactly n bytes from r. The buffer grows as data arrives,
// so a length larger than the input fails with io.EOF rather than
// allocating n bytes up front.
func readBytes(r io.Reader, n int64) ([]byte, error) {
	buf := &bytes.Buffer{}
	if _, err := io.CopyN(buf, r, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRGB(r io.Reader, h *header) (*RGB, error) {
	if h.Flags&(FlagZlib|FlagETRLE) != 0 {
		return nil, fmt.Errorf("compressed rgb stci not supported: flags 0x%02x", h.Flags)
	}
	if h.Depth != 16 {
		return nil, fmt.Errorf("unsupported rgb stci depth; got %d, want 16", h.Depth)
	}
	var f rgbFormat
	if err := binary.Read(bytes.NewReader(h.Format[:]), binary.LittleEndian, &f); err != nil {
		return nil, fmt.Errorf("could not read stci rgb format: %s", err)
	}
	glog.V(3).Infof("stci rgb masks: %04x %04x %04x %04x", f.RedMask, f.GreenMask, f.BlueMask, f.AlphaMask)

	n := int(h.Width) * int(h.Height)
	if n > MaxPixels {
		return nil, fmt.Errorf("stci rgb image too large: %dx%d", h.Width, h.Height)
	}
	data, err := readBytes(r, int64(n)*2)
	if err != nil {
		return nil, fmt.Errorf("could not read stci rgb data: %s", err)
	}
	pixels := make([]RGB565, n)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, pixels); err != nil {
		return nil, fmt.Errorf("could not read stci rgb data: %s", err)
	}
	return &RGB{Width: h.Width, Height: h.Height, Pixels: pixels}, nil
}

func decodeIndexed(r io.Reader, h *header) (*Indexed, error) {
	if h.Flags&FlagZlib != 0 {
		return nil, fmt.Errorf("zlib compressed stci not supported")
	}
	if h.Depth != 8 {
		return nil, fmt.Errorf("unsupported indexed stci depth; got %d, want 8", h.Depth)
	}
	var f indexedFormat
	if err := binary.Read(bytes.NewReader(h.Format[:]), binary.LittleEndian, &f); err != nil {
		return nil, fmt.Errorf("could not read stci indexed format: %s", err)
	}
	if f.NumberOfColors > paletteSize {
		return nil, fmt.Errorf("stci palette too large; got %d, want <= %d", f.NumberOfColors, paletteSize)
	}

	palette := make(Palette, f.NumberOfColors)
	if err := binary.Read(r, binary.LittleEndian, palette); err != nil {
		return nil, fmt.Errorf("could not read stci palette: %s", err)
	}

	headers := make([]subImageHeader, f.NumberOfSubImages)
	if err := binary.Read(r, binary.LittleEndian, headers); err != nil {
		return nil, fmt.Errorf("could not read stci sub image headers: %s", err)
	}

	data, err := readBytes(r, int64(h.StoredSize))
	if err != nil {
		return nil, fmt.Errorf("could not read stci image data: %s", err)
	}

	subImages := make([]SubImage, len(headers))
	compressed := h.Flags&FlagETRLE != 0
	for i := range iter.N(len(headers)) {
		sh := headers[i]
		end := uint64(sh.DataOffset) + uint64(sh.DataLength)
		if end > uint64(len(data)) {
			return nil, fmt.Errorf("stci sub image %d out of bounds: ends at %d, data is %d bytes", i, end, len(data))
		}
		if int(sh.Width)*int(sh.Height) > MaxPixels {
			return nil, fmt.Errorf("stci sub image %d too large: %dx%d", i, sh.Width, sh.Height)
		}
		src := data[sh.DataOffset:end]
		var pixels []uint8
		if compressed {
			var err error
			if pixels, err = decompressETRLE(src, int(sh.Width), int(sh.Height)); err != nil {
				return nil, fmt.Errorf("could not decompress stci sub image %d: %s", i, err)
			}
		} else {
			if len(src) != int(sh.Width)*int(sh.Height) {
				return nil, fmt.Errorf("stci sub image %d has %d bytes, want %d", i, len(src), int(sh.Width)*int(sh.Height))
			}
			pixels = append([]uint8(nil), src...)
		}
		subImages[i] = SubImage{
			Width:   sh.Width,
			Height:  sh.Height,
			OffsetX: sh.OffsetX,
			OffsetY: sh.OffsetY,
			Pixels:  pixels,
		}
	}

	switch h.AppDataSize {
	case 0:
	case uint32(len(subImages) * appDataLen):
		appData := make([]AppData, len(subImages))
		if err := binary.Read(r, binary.LittleEndian, appData); err != nil {
			return nil, fmt.Errorf("could not read stci app data: %s", err)
		}
		for i := range subImages {
			subImages[i].AppData = &appData[i]
		}
	default:
		return nil, fmt.Errorf("unexpected stci app data size; got %d, want 0 or %d", h.AppDataSize, len(subImages)*appDataLen)
	}

	return &Indexed{
		Palette:   palette,
		SubImages: subImages,
		Width:     h.Width,
		Height:    h.Height,
	}, nil
}
