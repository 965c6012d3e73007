// Package export serializes graphics assets to PNG and GIF files.
package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ericpauley/go-quantize/quantize"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/go-ja2/graphics"
)

// maxOpaqueColors leaves one palette slot for transparency.
const maxOpaqueColors = 255

// WritePNG encodes img as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	return errors.Wrap(png.Encode(w, img), "encoding png")
}

// WriteGIF encodes frames as an animated GIF looping forever. All frames
// share one palette built from their colours.
func WriteGIF(w io.Writer, frames []graphics.Frame) error {
	if len(frames) == 0 {
		return errors.New("gif needs at least one frame")
	}
	palette := buildPalette(frames)

	g := &gif.GIF{LoopCount: 0}
	for _, f := range frames {
		p := image.NewPaletted(f.Image.Bounds(), palette)
		draw.Draw(p, p.Rect, f.Image, f.Image.Bounds().Min, draw.Src)
		g.Image = append(g.Image, p)
		g.Delay = append(g.Delay, centiseconds(f.Delay))
		g.Disposal = append(g.Disposal, gif.DisposalBackground)
	}
	return errors.Wrap(gif.EncodeAll(w, g), "encoding gif")
}

// centiseconds converts d to GIF delay units, rounding to nearest but never
// below one unit.
func centiseconds(d time.Duration) int {
	cs := int((d + 5*time.Millisecond) / (10 * time.Millisecond))
	if cs < 1 {
		cs = 1
	}
	return cs
}

// buildPalette returns the exact colours used by frames if there are few
// enough of them, and a median cut quantization otherwise. Index 0 is
// always fully transparent.
func buildPalette(frames []graphics.Frame) color.Palette {
	seen := make(map[color.RGBA]bool)
	exact := color.Palette{color.RGBA{}}
	for _, f := range frames {
		pix := f.Image.Pix
		for i := 0; i+3 < len(pix); i += 4 {
			if pix[i+3] == 0 {
				continue
			}
			c := color.RGBA{pix[i], pix[i+1], pix[i+2], 0xFF}
			if seen[c] {
				continue
			}
			seen[c] = true
			exact = append(exact, c)
		}
		if len(seen) > maxOpaqueColors {
			break
		}
	}
	if len(seen) <= maxOpaqueColors {
		return exact
	}

	glog.V(2).Infof("export: %d or more colours, quantizing", len(seen))
	// Quantize all frames together so the shared palette is not biased
	// toward the first one.
	q := quantize.MedianCutQuantizer{}
	opaque := q.Quantize(make(color.Palette, 0, maxOpaqueColors), stack(frames))
	return append(color.Palette{color.RGBA{}}, opaque...)
}

// stack draws all frames below each other, as input for quantization.
func stack(frames []graphics.Frame) image.Image {
	var size image.Point
	for _, f := range frames {
		b := f.Image.Bounds()
		size.X = max(size.X, b.Dx())
		size.Y += b.Dy()
	}
	img := image.NewRGBA(image.Rectangle{Max: size})
	y := 0
	for _, f := range frames {
		b := f.Image.Bounds()
		draw.Draw(img, image.Rect(0, y, b.Dx(), y+b.Dy()), f.Image, b.Min, draw.Src)
		y += b.Dy()
	}
	return img
}

// FileID names an asset for output: the member path prefixed by the
// archive path, if any.
func FileID(archive, name string) string {
	if archive == "" {
		return name
	}
	return archive + "#" + name
}

// BaseName turns a file ID into a flat output file name without extension.
func BaseName(fileID string) string {
	return strings.NewReplacer("/", "_", `\`, "_", ".", "_").Replace(fileID)
}

// WriteAsset writes every file for asset into dir and returns their paths.
// Textures become PNGs, animations GIFs; members of sets get an _N suffix.
func WriteAsset(dir, fileID string, asset graphics.Asset) ([]string, error) {
	base := filepath.Join(dir, BaseName(fileID))
	var written []string
	write := func(name string, enc func(io.Writer) error) error {
		f, err := os.Create(name)
		if err != nil {
			return err
		}
		if err := enc(f); err != nil {
			f.Close()
			return errors.Wrapf(err, "writing %q", name)
		}
		written = append(written, name)
		return f.Close()
	}

	var err error
	switch a := asset.(type) {
	case *graphics.Texture:
		err = write(base+".png", func(w io.Writer) error { return WritePNG(w, a.Image()) })
	case *graphics.TextureSet:
		for i, img := range a.Images() {
			if err = write(fmt.Sprintf("%s_%d.png", base, i), func(w io.Writer) error { return WritePNG(w, img) }); err != nil {
				break
			}
		}
	case *graphics.Animation:
		var frames []graphics.Frame
		if frames, err = a.Frames(); err == nil {
			err = write(base+".gif", func(w io.Writer) error { return WriteGIF(w, frames) })
		}
	case *graphics.AnimationSet:
		var all [][]graphics.Frame
		if all, err = a.Frames(); err == nil {
			for i, frames := range all {
				if err = write(fmt.Sprintf("%s_%d.gif", base, i), func(w io.Writer) error { return WriteGIF(w, frames) }); err != nil {
					break
				}
			}
		}
	default:
		err = errors.Errorf("unknown asset %T", asset)
	}
	return written, err
}
