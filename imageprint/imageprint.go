// Package imageprint previews decoded assets on a terminal.
//
// This package has an API with no stability guarantees.
package imageprint

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	ic "image/color"
	"image/png"
	"io"

	"github.com/BourgeoisBear/rasterm"
	"github.com/andybons/gogif"
	"github.com/gookit/color"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"github.com/vincent-petithory/dataurl"
)

// Mode selects how pixels are drawn.
type Mode int

const (
	Mode24Bit   Mode = iota // background colour escapes, one cell pair per pixel
	Mode256                 // closest xterm 256 colour
	ModeNoColor             // shading characters only
	ModeITerm               // iTerm2 inline image
	ModeRasTerm             // kitty, iTerm or sixel, whichever the terminal supports
	ModeDataURL             // a data: URL containing a PNG
)

// ParseMode maps a flag value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "24bit", "":
		return Mode24Bit, nil
	case "256":
		return Mode256, nil
	case "nocolor":
		return ModeNoColor, nil
	case "iterm":
		return ModeITerm, nil
	case "rasterm":
		return ModeRasTerm, nil
	case "dataurl":
		return ModeDataURL, nil
	default:
		return 0, errors.Errorf("unknown print mode %q", s)
	}
}

// Printer writes images to Out.
type Printer struct {
	Out  io.Writer
	Mode Mode

	// Blanks draws coloured blanks rather than shading characters. It
	// only makes sense together with a colour mode.
	Blanks bool
}

// Print draws img; name is used by modes that transfer files.
func (p *Printer) Print(img image.Image, name string) error {
	switch p.Mode {
	case ModeITerm:
		return p.printITerm(img, name)
	case ModeRasTerm:
		return p.printRasTerm(img)
	case ModeDataURL:
		return p.printDataURL(img)
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			p.shade(img.At(x, y))
		}
		if p.Mode != ModeNoColor {
			fmt.Fprint(p.Out, "\x1b[0m")
		}
		fmt.Fprint(p.Out, "\n")
	}
	return nil
}

// glyph picks a two character cell by perceived lightness.
func glyph(col ic.Color) string {
	c, ok := colorful.MakeColor(col)
	if !ok {
		return "  "
	}
	l, _, _ := c.Lab()
	switch {
	case l < 0.125:
		return ".."
	case l < 0.25:
		return "--"
	case l < 0.5:
		return "=="
	default:
		return "##"
	}
}

func (p *Printer) shade(col ic.Color) {
	cR, cG, cB, cA := col.RGBA()
	if cA == 0 {
		if p.Mode == ModeNoColor {
			fmt.Fprint(p.Out, "  ")
		} else {
			fmt.Fprint(p.Out, "\x1b[0m  ")
		}
		return
	}

	cell := glyph(col)
	if p.Blanks {
		cell = "  "
	}
	r, g, b := uint8(cR>>8), uint8(cG>>8), uint8(cB>>8)
	switch p.Mode {
	case ModeNoColor:
		fmt.Fprint(p.Out, cell)
	case Mode256:
		// gookit/color downgrades to the closest 256 colour entry when the
		// terminal lacks true colour support.
		fmt.Fprint(p.Out, color.RGB(r, g, b, true).Sprint(cell))
	default:
		fmt.Fprintf(p.Out, "\x1b[48;2;%d;%d;%dm%s\x1b[0m", r, g, b, cell)
	}
}

func encodePNG(img image.Image) ([]byte, error) {
	b := &bytes.Buffer{}
	if err := png.Encode(b, img); err != nil {
		return nil, errors.Wrap(err, "encoding png")
	}
	return b.Bytes(), nil
}

// printITerm uses iTerm2's inline image escape sequence.
//
// https://www.iterm2.com/documentation-images.html
func (p *Printer) printITerm(img image.Image, name string) error {
	data, err := encodePNG(img)
	if err != nil {
		return err
	}
	encName := base64.StdEncoding.EncodeToString([]byte(name))
	encData := base64.StdEncoding.EncodeToString(data)
	_, err = fmt.Fprintf(p.Out, "\n\033]1337;File=name=%s;inline=1;size=%d;width=%dpx;height=%dpx:%s\a\n", encName, len(data), img.Bounds().Dx(), img.Bounds().Dy(), encData)
	return err
}

// printRasTerm draws with whichever protocol the RasTerm library detects.
// Sixel terminals get an image quantized to 64 colours.
func (p *Printer) printRasTerm(img image.Image) error {
	var err error
	switch {
	case rasterm.IsTermKitty():
		err = rasterm.Settings{}.KittyWriteImage(p.Out, img)
	case rasterm.IsTermItermWez():
		err = rasterm.Settings{}.ItermWriteImage(p.Out, img)
	default:
		capable, serr := rasterm.IsSixelCapable()
		if serr != nil || !capable {
			return errors.New("terminal supports neither kitty, iterm nor sixel images")
		}
		paletted := image.NewPaletted(img.Bounds(), nil)
		quantizer := gogif.MedianCutQuantizer{NumColor: 64}
		quantizer.Quantize(paletted, img.Bounds(), img, img.Bounds().Min)
		err = rasterm.Settings{}.SixelWriteImage(p.Out, paletted)
	}
	if err != nil {
		return errors.Wrap(err, "rasterm")
	}
	_, err = fmt.Fprint(p.Out, "\n")
	return err
}

func (p *Printer) printDataURL(img image.Image) error {
	data, err := encodePNG(img)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.Out, dataurl.New(data, "image/png").String())
	return err
}
