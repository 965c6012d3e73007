package stci

import (
	"fmt"
)

// ETRLE is a run-length encoding over palette indices. Every control byte
// either starts a run of transparent pixels (high bit set, low seven bits
// are the run length), starts a run of literal indices (high bit clear, the
// value is the number of literal bytes following it), or ends the current
// row (zero).
const (
	etrleTransparentBit = 0x80
	etrleLengthMask     = 0x7F
	etrleEndOfRow       = 0x00
)

func decompressETRLE(src []byte, width, height int) ([]uint8, error) {
	// Zero is TransparentIndex, so skipped runs need no explicit fill.
	dst := make([]uint8, width*height)

	row, col := 0, 0
	for i := 0; i < len(src); {
		ctl := src[i]
		i++
		switch {
		case ctl == etrleEndOfRow:
			row++
			col = 0
		case ctl&etrleTransparentBit != 0:
			col += int(ctl & etrleLengthMask)
			if col > width {
				return nil, fmt.Errorf("transparent run overflows row %d: column %d, width %d", row, col, width)
			}
		default:
			n := int(ctl)
			if i+n > len(src) {
				return nil, fmt.Errorf("literal run of %d truncated at byte %d", n, i)
			}
			if col+n > width || row >= height {
				return nil, fmt.Errorf("literal run overflows image at row %d column %d", row, col)
			}
			copy(dst[row*width+col:], src[i:i+n])
			col += n
			i += n
		}
	}
	if row > height {
		return nil, fmt.Errorf("too many rows; got %d, want %d", row, height)
	}
	return dst, nil
}

func compressETRLE(pixels []uint8, width, height int) []byte {
	var out []byte
	for y := 0; y < height; y++ {
		line := pixels[y*width : (y+1)*width]
		for x := 0; x < len(line); {
			start := x
			if line[x] == TransparentIndex {
				for x < len(line) && line[x] == TransparentIndex && x-start < etrleLengthMask {
					x++
				}
				out = append(out, etrleTransparentBit|byte(x-start))
				continue
			}
			for x < len(line) && line[x] != TransparentIndex && x-start < etrleLengthMask {
				x++
			}
			out = append(out, byte(x-start))
			out = append(out, line[start:x]...)
		}
		out = append(out, etrleEndOfRow)
	}
	return out
}
