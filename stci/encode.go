package stci

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Encode writes the container to w as an STCI file. Indexed sub-images are
// ETRLE compressed; a palette shorter than 256 entries is padded with black.
//
// App data is written only if every sub-image carries it; Decode cannot
// represent a file where some sub-images have it and others don't.
func Encode(w io.Writer, c Container) error {
	switch c := c.(type) {
	case *Indexed:
		return encodeIndexed(w, c)
	case *RGB:
		return encodeRGB(w, c)
	default:
		return fmt.Errorf("stci: cannot encode %T", c)
	}
}

func encodeRGB(w io.Writer, c *RGB) error {
	if len(c.Pixels) != int(c.Width)*int(c.Height) {
		return fmt.Errorf("stci: rgb has %d pixels, want %d", len(c.Pixels), int(c.Width)*int(c.Height))
	}
	size := uint32(len(c.Pixels) * 2)
	h := header{
		OriginalSize: size,
		StoredSize:   size,
		Flags:        FlagRGB,
		Width:        c.Width,
		Height:       c.Height,
		Depth:        16,
	}
	copy(h.ID[:], Magic)
	if err := putFormat(&h, rgbFormat{
		RedMask: 0xF800, GreenMask: 0x07E0, BlueMask: 0x001F,
		RedDepth: 5, GreenDepth: 6, BlueDepth: 5,
	}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return errors.Wrap(err, "stci: writing header")
	}
	return errors.Wrap(binary.Write(w, binary.LittleEndian, c.Pixels), "stci: writing rgb data")
}

func encodeIndexed(w io.Writer, c *Indexed) error {
	if len(c.Palette) > paletteSize {
		return fmt.Errorf("stci: palette has %d colors, want <= %d", len(c.Palette), paletteSize)
	}
	if len(c.SubImages) > 0xFFFF {
		return fmt.Errorf("stci: too many sub images: %d", len(c.SubImages))
	}

	withAppData := len(c.SubImages) > 0
	headers := make([]subImageHeader, len(c.SubImages))
	data := bytes.Buffer{}
	var originalSize uint32
	for i, s := range c.SubImages {
		if len(s.Pixels) != int(s.Width)*int(s.Height) {
			return fmt.Errorf("stci: sub image %d has %d pixels, want %d", i, len(s.Pixels), int(s.Width)*int(s.Height))
		}
		compressed := compressETRLE(s.Pixels, int(s.Width), int(s.Height))
		headers[i] = subImageHeader{
			DataOffset: uint32(data.Len()),
			DataLength: uint32(len(compressed)),
			OffsetX:    s.OffsetX,
			OffsetY:    s.OffsetY,
			Width:      s.Width,
			Height:     s.Height,
		}
		data.Write(compressed)
		originalSize += uint32(len(s.Pixels))
		if s.AppData == nil {
			withAppData = false
		}
	}

	h := header{
		OriginalSize: originalSize,
		StoredSize:   uint32(data.Len()),
		Flags:        FlagIndexed | FlagETRLE | FlagTransparent,
		Width:        c.Width,
		Height:       c.Height,
		Depth:        8,
	}
	copy(h.ID[:], Magic)
	if withAppData {
		h.AppDataSize = uint32(len(c.SubImages) * appDataLen)
	}
	if err := putFormat(&h, indexedFormat{
		NumberOfColors:    paletteSize,
		NumberOfSubImages: uint16(len(c.SubImages)),
		RedDepth:          8, GreenDepth: 8, BlueDepth: 8,
	}); err != nil {
		return err
	}

	palette := make(Palette, paletteSize)
	copy(palette, c.Palette)

	for _, part := range []interface{}{&h, palette, headers} {
		if err := binary.Write(w, binary.LittleEndian, part); err != nil {
			return errors.Wrap(err, "stci: writing indexed header")
		}
	}
	if _, err := w.Write(data.Bytes()); err != nil {
		return errors.Wrap(err, "stci: writing image data")
	}
	if withAppData {
		for _, s := range c.SubImages {
			if err := binary.Write(w, binary.LittleEndian, s.AppData); err != nil {
				return errors.Wrap(err, "stci: writing app data")
			}
		}
	}
	return nil
}

func putFormat(h *header, f interface{}) error {
	buf := bytes.Buffer{}
	if err := binary.Write(&buf, binary.LittleEndian, f); err != nil {
		return errors.Wrap(err, "stci: writing format")
	}
	copy(h.Format[:], buf.Bytes())
	return nil
}
