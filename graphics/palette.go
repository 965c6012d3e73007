package graphics

import (
	"image/color"

	"badc0de.net/pkg/go-ja2/stci"
)

// paletteResolver maps palette indices to RGBA colours. Entries past the
// end of the source palette stay zero and must not be looked up; callers
// check indices against size first.
type paletteResolver struct {
	colors [256]color.RGBA
	size   int
}

func newPaletteResolver(p stci.Palette) *paletteResolver {
	r := &paletteResolver{size: len(p)}
	if r.size > len(r.colors) {
		r.size = len(r.colors)
	}
	for i := 0; i < r.size; i++ {
		c := p[i]
		r.colors[i] = color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF}
	}
	if stci.TransparentIndex < r.size {
		r.colors[stci.TransparentIndex].A = 0
	}
	return r
}

func (r *paletteResolver) resolve(idx uint8) color.RGBA {
	return r.colors[idx]
}
