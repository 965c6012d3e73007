package graphics

import (
	"bytes"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"badc0de.net/pkg/go-ja2/stci"
)

const bytesPerPixel = 4

// Texture is a single RGBA raster together with the offset at which the
// game draws it. It is immutable once constructed.
type Texture struct {
	size   image.Point
	offset image.Point
	pix    []byte
}

// NewTexture constructs a texture from a row-major RGBA buffer. The buffer
// is owned by the texture afterwards and must be exactly size.X*size.Y*4
// bytes long.
func NewTexture(size, offset image.Point, pix []byte) (*Texture, error) {
	if size.X < 0 || size.Y < 0 {
		return nil, errors.Wrapf(ErrSizeMismatch, "negative dimensions %v", size)
	}
	want := size.X * size.Y * bytesPerPixel
	if len(pix) != want {
		return nil, errors.Wrapf(ErrSizeMismatch, "expected %d bytes of rgba data, got %d bytes", want, len(pix))
	}
	return &Texture{size: size, offset: offset, pix: pix}, nil
}

// TextureFromSubImage resolves an indexed sub-image through the palette.
//
// A texture is a non-animated frame, so a sub-image declaring a non-zero
// frame count is rejected. App data with zero frames is accepted.
func TextureFromSubImage(palette stci.Palette, sub *stci.SubImage) (*Texture, error) {
	if sub.AppData != nil && sub.AppData.NumberOfFrames != 0 {
		return nil, errors.Wrapf(ErrUnexpectedMetadata, "number of frames needs to be zero for texture, got %d", sub.AppData.NumberOfFrames)
	}
	return textureFromSubImage(newPaletteResolver(palette), sub)
}

// textureFromSubImage performs the palette lookup without looking at app
// data; key frames of animations use it directly.
func textureFromSubImage(res *paletteResolver, sub *stci.SubImage) (*Texture, error) {
	size := image.Pt(int(sub.Width), int(sub.Height))
	if len(sub.Pixels) != size.X*size.Y {
		return nil, errors.Wrapf(ErrSizeMismatch, "expected %d pixel indices, got %d", size.X*size.Y, len(sub.Pixels))
	}
	pix := make([]byte, 0, len(sub.Pixels)*bytesPerPixel)
	for i, idx := range sub.Pixels {
		if int(idx) >= res.size {
			return nil, errors.Wrapf(ErrPaletteIndex, "pixel %d has index %d, palette has %d colors", i, idx, res.size)
		}
		c := res.resolve(idx)
		pix = append(pix, c.R, c.G, c.B, c.A)
	}
	return NewTexture(size, image.Pt(int(sub.OffsetX), int(sub.OffsetY)), pix)
}

// TextureFromRGB expands a direct colour image. Direct colour data has no
// transparency, so every pixel is opaque.
func TextureFromRGB(width, height int, pixels []stci.RGB565) (*Texture, error) {
	pix := make([]byte, 0, len(pixels)*bytesPerPixel)
	for _, c := range pixels {
		r, g, b := c.RGB888()
		pix = append(pix, r, g, b, 0xFF)
	}
	return NewTexture(image.Pt(width, height), image.Point{}, pix)
}

// TextureFromImage flattens any image into a texture placed at the origin.
func TextureFromImage(img image.Image) (*Texture, error) {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return NewTexture(rgba.Rect.Size(), image.Point{}, rgba.Pix)
}

// textureFromContainer is the texture interpretation of a decoded STCI.
func textureFromContainer(c stci.Container) (*Texture, error) {
	switch c := c.(type) {
	case *stci.Indexed:
		if len(c.SubImages) != 1 {
			return nil, errors.Wrapf(ErrFrameCountMismatch, "can only use indexed stci with one image as texture, found %d", len(c.SubImages))
		}
		return TextureFromSubImage(c.Palette, &c.SubImages[0])
	case *stci.RGB:
		return TextureFromRGB(int(c.Width), int(c.Height), c.Pixels)
	default:
		return nil, errors.Errorf("unknown stci container %T", c)
	}
}

// ReadTexture reads a texture from r. STCI files are decoded directly;
// anything else goes through image.Decode.
func ReadTexture(r io.ReadSeeker) (*Texture, error) {
	isSTCI, err := stci.Peek(r)
	if err != nil {
		return nil, err
	}
	if isSTCI {
		c, err := stci.Decode(r)
		if err != nil {
			return nil, err
		}
		return textureFromContainer(c)
	}

	buf := bytes.Buffer{}
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, errors.Wrap(err, "reading image")
	}
	img, format, err := image.Decode(&buf)
	if err != nil {
		return nil, errors.Wrap(err, "could not load image")
	}
	t, err := TextureFromImage(img)
	return t, errors.Wrapf(err, "converting %s image", format)
}

// Size returns the texture dimensions.
func (t *Texture) Size() image.Point {
	return t.size
}

// Offset returns where the texture is drawn relative to its anchor.
func (t *Texture) Offset() image.Point {
	return t.offset
}

// Pix returns the RGBA buffer. It must not be modified.
func (t *Texture) Pix() []byte {
	return t.pix
}

// Image returns a copy of the texture as an image anchored at the origin.
func (t *Texture) Image() *image.RGBA {
	img := image.NewRGBA(image.Rectangle{Max: t.size})
	copy(img.Pix, t.pix)
	return img
}

// view returns a view sharing the texture's buffer, for reading only.
func (t *Texture) view() *image.RGBA {
	return &image.RGBA{
		Pix:    t.pix,
		Stride: t.size.X * bytesPerPixel,
		Rect:   image.Rectangle{Max: t.size},
	}
}
