package graphics

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/pkg/errors"

	"badc0de.net/pkg/go-ja2/stci"
	"badc0de.net/pkg/go-ja2/ttesting"
)

var (
	red   = color.RGBA{R: 0xFF, A: 0xFF}
	green = color.RGBA{G: 0xFF, A: 0xFF}
)

func testPalette() stci.Palette {
	p := make(stci.Palette, 256)
	p[0] = stci.PaletteColor{R: 1, G: 2, B: 3} // ignored, always transparent
	p[1] = stci.PaletteColor{R: 0xFF}
	p[2] = stci.PaletteColor{G: 0xFF}
	return p
}

// sub builds a w×h sub-image filled with idx. frames < 0 means no app data.
func sub(w, h, x, y int, idx uint8, frames int) stci.SubImage {
	s := stci.SubImage{
		Width: uint16(w), Height: uint16(h),
		OffsetX: int16(x), OffsetY: int16(y),
		Pixels: bytes.Repeat([]byte{idx}, w*h),
	}
	if frames >= 0 {
		s.AppData = &stci.AppData{NumberOfFrames: uint8(frames)}
	}
	return s
}

func TestPaletteResolver(t *testing.T) {
	res := newPaletteResolver(testPalette())
	if c := res.resolve(stci.TransparentIndex); c.A != 0 {
		t.Errorf("transparent index resolved to %v; want alpha 0", c)
	}
	if c := res.resolve(1); c != red {
		t.Errorf("index 1 resolved to %v; want %v", c, red)
	}
	if c := res.resolve(2); c != green {
		t.Errorf("index 2 resolved to %v; want %v", c, green)
	}
}

func TestNewTexture(t *testing.T) {
	pix := make([]byte, 3*2*4)
	pix[5] = 9
	tex, err := NewTexture(image.Pt(3, 2), image.Pt(-4, 7), pix)
	if err != nil {
		t.Fatalf("NewTexture: %v", err)
	}
	ttesting.AssertEqualPoint(t, "size", tex.Size(), image.Pt(3, 2))
	ttesting.AssertEqualPoint(t, "offset", tex.Offset(), image.Pt(-4, 7))
	ttesting.AssertEqualBytes(t, "pix", tex.Pix(), pix)

	for _, n := range []int{0, 23, 25, 100} {
		_, err := NewTexture(image.Pt(3, 2), image.Point{}, make([]byte, n))
		ttesting.AssertErrorIs(t, "size mismatch", err, ErrSizeMismatch)
	}
}

func TestTextureFromSubImage(t *testing.T) {
	s := stci.SubImage{Width: 2, Height: 1, OffsetX: 3, OffsetY: -2, Pixels: []uint8{0, 1}}
	tex, err := TextureFromSubImage(testPalette(), &s)
	if err != nil {
		t.Fatalf("TextureFromSubImage: %v", err)
	}
	ttesting.AssertEqualBytes(t, "pix", tex.Pix(), []byte{1, 2, 3, 0, 0xFF, 0, 0, 0xFF})
	ttesting.AssertEqualPoint(t, "offset", tex.Offset(), image.Pt(3, -2))

	s.AppData = &stci.AppData{}
	if _, err := TextureFromSubImage(testPalette(), &s); err != nil {
		t.Errorf("zero frame app data rejected: %v", err)
	}

	s.AppData = &stci.AppData{NumberOfFrames: 1}
	_, err = TextureFromSubImage(testPalette(), &s)
	ttesting.AssertErrorIs(t, "frames declared", err, ErrUnexpectedMetadata)

	short := stci.SubImage{Width: 2, Height: 2, Pixels: []uint8{1}}
	_, err = TextureFromSubImage(testPalette(), &short)
	ttesting.AssertErrorIs(t, "short pixels", err, ErrSizeMismatch)

	outside := stci.SubImage{Width: 1, Height: 1, Pixels: []uint8{5}}
	_, err = TextureFromSubImage(testPalette()[:4], &outside)
	ttesting.AssertErrorIs(t, "index outside palette", err, ErrPaletteIndex)
}

func TestTextureFromRGB(t *testing.T) {
	tex, err := TextureFromRGB(2, 1, []stci.RGB565{0xF800, 0x001F})
	if err != nil {
		t.Fatalf("TextureFromRGB: %v", err)
	}
	ttesting.AssertEqualBytes(t, "pix", tex.Pix(), []byte{0xFF, 0, 0, 0xFF, 0, 0, 0xFF, 0xFF})
	ttesting.AssertEqualPoint(t, "offset", tex.Offset(), image.Point{})

	_, err = TextureFromRGB(2, 2, []stci.RGB565{0})
	ttesting.AssertErrorIs(t, "short pixels", err, ErrSizeMismatch)
}

func TestReadTextureGenericImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 3))
	img.Set(1, 2, green)
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	tex, err := ReadTexture(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadTexture: %v", err)
	}
	ttesting.AssertEqualPoint(t, "size", tex.Size(), image.Pt(2, 3))
	if c := tex.Image().RGBAAt(1, 2); c != green {
		t.Errorf("pixel (1,2) = %v; want %v", c, green)
	}
}

func TestTextureSet(t *testing.T) {
	subs := []stci.SubImage{sub(1, 1, 0, 0, 1, -1), sub(2, 3, 5, 5, 2, -1), sub(4, 1, -1, 0, 0, -1)}
	set, err := TextureSetFromSubImages(testPalette(), subs)
	if err != nil {
		t.Fatalf("TextureSetFromSubImages: %v", err)
	}
	ttesting.AssertEqualInt(t, "count", len(set.Textures()), 3)
	for i, tex := range set.Textures() {
		ttesting.AssertEqualPoint(t, "size", tex.Size(), image.Pt(int(subs[i].Width), int(subs[i].Height)))
		ttesting.AssertEqualPoint(t, "offset", tex.Offset(), image.Pt(int(subs[i].OffsetX), int(subs[i].OffsetY)))
	}

	_, err = TextureSetFromSubImages(testPalette(), nil)
	ttesting.AssertErrorIs(t, "empty", err, ErrEmpty)

	subs[2].AppData = &stci.AppData{}
	_, err = TextureSetFromSubImages(testPalette(), subs)
	ttesting.AssertErrorIs(t, "app data", err, ErrUnexpectedMetadata)
}

func TestAnimation(t *testing.T) {
	subs := []stci.SubImage{sub(1, 1, 0, 0, 1, 3), sub(1, 1, 0, 0, 2, 0), sub(1, 1, 0, 0, 1, 7)}
	a, err := AnimationFromSubImages(testPalette(), subs)
	if err != nil {
		t.Fatalf("AnimationFromSubImages: %v", err)
	}
	ttesting.AssertEqualInt(t, "key frames", len(a.KeyFrames()), 3)
	ttesting.AssertEqualBytes(t, "second key frame", a.KeyFrames()[1].Pix(), []byte{0, 0xFF, 0, 0xFF})

	for _, n := range []int{0, 2, 4} {
		subs[0].AppData.NumberOfFrames = uint8(n)
		_, err = AnimationFromSubImages(testPalette(), subs)
		ttesting.AssertErrorIs(t, "count mismatch", err, ErrFrameCountMismatch)
	}

	_, err = AnimationFromSubImages(testPalette(), nil)
	ttesting.AssertErrorIs(t, "empty", err, ErrEmpty)

	subs[0].AppData.NumberOfFrames = 3
	subs[1].AppData = nil
	_, err = AnimationFromSubImages(testPalette(), subs)
	ttesting.AssertErrorIs(t, "missing app data", err, ErrMissingMetadata)
}

func TestAnimationFrames(t *testing.T) {
	subs := []stci.SubImage{sub(4, 4, 0, 0, 1, 2), sub(4, 4, 2, 2, 2, 0)}
	a, err := AnimationFromSubImages(testPalette(), subs)
	if err != nil {
		t.Fatalf("AnimationFromSubImages: %v", err)
	}
	frames, err := a.Frames()
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	ttesting.AssertEqualInt(t, "frame count", len(frames), 2)
	for i, f := range frames {
		ttesting.AssertEqualPoint(t, "frame size", f.Image.Bounds().Size(), image.Pt(6, 6))
		if f.Delay != FrameDelay {
			t.Errorf("frame %d delay %v; want %v", i, f.Delay, FrameDelay)
		}
	}

	first, second := frames[0].Image, frames[1].Image
	if c := first.RGBAAt(0, 0); c != red {
		t.Errorf("first frame (0,0) = %v; want %v", c, red)
	}
	if c := first.RGBAAt(4, 4); c.A != 0 {
		t.Errorf("first frame (4,4) = %v; want transparent", c)
	}
	if c := second.RGBAAt(1, 1); c.A != 0 {
		t.Errorf("second frame (1,1) = %v; want transparent", c)
	}
	if c := second.RGBAAt(2, 2); c != green {
		t.Errorf("second frame (2,2) = %v; want %v", c, green)
	}
	if c := second.RGBAAt(5, 5); c != green {
		t.Errorf("second frame (5,5) = %v; want %v", c, green)
	}
}

func TestAnimationFramesNegativeOffsets(t *testing.T) {
	subs := []stci.SubImage{sub(2, 2, -3, -1, 1, 2), sub(1, 1, 1, 1, 2, 0)}
	a, err := AnimationFromSubImages(testPalette(), subs)
	if err != nil {
		t.Fatalf("AnimationFromSubImages: %v", err)
	}
	frames, err := a.Frames()
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	ttesting.AssertEqualPoint(t, "frame size", frames[0].Image.Bounds().Size(), image.Pt(5, 3))
	if c := frames[1].Image.RGBAAt(4, 2); c != green {
		t.Errorf("second frame (4,2) = %v; want %v", c, green)
	}

	_, err = (&Animation{}).Frames()
	ttesting.AssertErrorIs(t, "no key frames", err, ErrEmpty)
}

func TestAnimationSet(t *testing.T) {
	subs := []stci.SubImage{sub(1, 1, 0, 0, 1, 2), sub(1, 1, 0, 0, 1, 0), sub(2, 2, 0, 0, 2, 1)}
	set, err := AnimationSetFromSubImages(testPalette(), subs)
	if err != nil {
		t.Fatalf("AnimationSetFromSubImages: %v", err)
	}
	ttesting.AssertEqualInt(t, "animations", len(set.Animations()), 2)
	ttesting.AssertEqualInt(t, "first length", len(set.Animations()[0].KeyFrames()), 2)
	ttesting.AssertEqualInt(t, "second length", len(set.Animations()[1].KeyFrames()), 1)

	frames, err := set.Frames()
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	ttesting.AssertEqualPoint(t, "second canvas", frames[1][0].Image.Bounds().Size(), image.Pt(2, 2))

	_, err = AnimationSetFromSubImages(testPalette(), subs[:2])
	ttesting.AssertErrorIs(t, "single run", err, ErrNotEnoughAnimations)

	_, err = AnimationSetFromSubImages(testPalette(), subs[:1])
	ttesting.AssertErrorIs(t, "truncated", err, ErrTruncated)

	_, err = AnimationSetFromSubImages(testPalette(), nil)
	ttesting.AssertErrorIs(t, "empty", err, ErrEmpty)

	noMeta := append([]stci.SubImage(nil), subs...)
	noMeta[1].AppData = nil
	_, err = AnimationSetFromSubImages(testPalette(), noMeta)
	ttesting.AssertErrorIs(t, "missing app data", err, ErrMissingMetadata)

	zero := []stci.SubImage{sub(1, 1, 0, 0, 1, 0), sub(1, 1, 0, 0, 1, 1)}
	_, err = AnimationSetFromSubImages(testPalette(), zero)
	ttesting.AssertErrorIs(t, "zero frames", err, ErrFrameCountMismatch)
}

func TestClassify(t *testing.T) {
	for _, tc := range []struct {
		name string
		c    stci.Container
		want Kind
	}{
		{
			name: "rgb",
			c:    &stci.RGB{Width: 1, Height: 1, Pixels: []stci.RGB565{0}},
			want: KindTexture,
		},
		{
			name: "two runs",
			c:    &stci.Indexed{Palette: testPalette(), SubImages: []stci.SubImage{sub(1, 1, 0, 0, 1, 2), sub(1, 1, 0, 0, 1, 0), sub(1, 1, 0, 0, 1, 1)}},
			want: KindAnimationSet,
		},
		{
			name: "single run",
			c:    &stci.Indexed{Palette: testPalette(), SubImages: []stci.SubImage{sub(1, 1, 0, 0, 1, 1)}},
			want: KindAnimation,
		},
		{
			name: "several without app data",
			c:    &stci.Indexed{Palette: testPalette(), SubImages: []stci.SubImage{sub(1, 1, 0, 0, 1, -1), sub(1, 1, 0, 0, 2, -1)}},
			want: KindTextureSet,
		},
		{
			name: "one without app data",
			c:    &stci.Indexed{Palette: testPalette(), SubImages: []stci.SubImage{sub(1, 1, 0, 0, 1, -1)}},
			want: KindTextureSet,
		},
		{
			name: "one with zero frames",
			c:    &stci.Indexed{Palette: testPalette(), SubImages: []stci.SubImage{sub(1, 1, 0, 0, 1, 0)}},
			want: KindTexture,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a, err := Classify(tc.c)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if a.Kind() != tc.want {
				t.Errorf("got %v; want %v", a.Kind(), tc.want)
			}
		})
	}
}

func TestClassifyFailure(t *testing.T) {
	// Mixed app data presence satisfies none of the interpretations.
	c := &stci.Indexed{Palette: testPalette(), SubImages: []stci.SubImage{sub(1, 1, 0, 0, 1, 2), sub(1, 1, 0, 0, 1, -1)}}
	_, err := Classify(c)
	ttesting.AssertErrorIs(t, "unclassified", err, ErrUnclassified)

	var cerr *ClassifyError
	if !errors.As(err, &cerr) {
		t.Fatalf("got %T; want *ClassifyError", err)
	}
	ttesting.AssertErrorIs(t, "animation error", cerr.Animation, ErrMissingMetadata)
	ttesting.AssertErrorIs(t, "texture error", cerr.Texture, ErrFrameCountMismatch)
}

func TestClassifyReaderIdempotent(t *testing.T) {
	c := &stci.Indexed{Palette: testPalette(), SubImages: []stci.SubImage{sub(3, 2, 1, 1, 1, 2), sub(2, 2, 0, 0, 2, 0)}}
	buf := &bytes.Buffer{}
	if err := stci.Encode(buf, c); err != nil {
		t.Fatalf("stci.Encode: %v", err)
	}

	var results [2][]Frame
	for i := range results {
		a, err := ClassifyReader(bytes.NewReader(buf.Bytes()))
		if err != nil {
			t.Fatalf("ClassifyReader: %v", err)
		}
		anim, ok := a.(*Animation)
		if !ok {
			t.Fatalf("got %T; want *Animation", a)
		}
		if results[i], err = anim.Frames(); err != nil {
			t.Fatalf("Frames: %v", err)
		}
	}
	for i := range results[0] {
		ttesting.AssertEqualBytes(t, "frame", results[0][i].Image.Pix, results[1][i].Image.Pix)
	}
}

func TestReadersRejectRGB(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := stci.Encode(buf, &stci.RGB{Width: 1, Height: 1, Pixels: []stci.RGB565{0}}); err != nil {
		t.Fatalf("stci.Encode: %v", err)
	}
	_, err := ReadTextureSet(bytes.NewReader(buf.Bytes()))
	ttesting.AssertErrorIs(t, "texture set", err, ErrNotIndexed)
	_, err = ReadAnimation(bytes.NewReader(buf.Bytes()))
	ttesting.AssertErrorIs(t, "animation", err, ErrNotIndexed)
	_, err = ReadAnimationSet(bytes.NewReader(buf.Bytes()))
	ttesting.AssertErrorIs(t, "animation set", err, ErrNotIndexed)
	if _, err := ReadTexture(bytes.NewReader(buf.Bytes())); err != nil {
		t.Errorf("ReadTexture: %v", err)
	}
}
