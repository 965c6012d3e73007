package graphics

import (
	"image"
	"image/draw"
	"io"
	"time"

	"github.com/pkg/errors"

	"badc0de.net/pkg/go-ja2/stci"
)

// FrameDelay is how long each frame of an animation is displayed.
const FrameDelay = time.Second / 60

// Frame is one displayable frame of an animation. All frames of one
// animation have the same bounds.
type Frame struct {
	Image *image.RGBA
	Delay time.Duration
}

// Animation is a time ordered sequence of key frames. Key frames are stored
// cropped to their visible pixels, so their sizes and offsets differ; Frames
// puts them on a common canvas.
type Animation struct {
	keyFrames []*Texture
}

// AnimationFromSubImages builds an animation with one key frame per
// sub-image. All sub-images need app data, and the first one has to declare
// exactly len(subImages) frames. Counts declared by the others are not
// checked.
func AnimationFromSubImages(palette stci.Palette, subImages []stci.SubImage) (*Animation, error) {
	if len(subImages) == 0 {
		return nil, errors.Wrap(ErrEmpty, "animation")
	}
	for i := range subImages {
		if subImages[i].AppData == nil {
			return nil, errors.Wrapf(ErrMissingMetadata, "all sub images in animation need to have app data, %d has none", i)
		}
	}
	if n := int(subImages[0].AppData.NumberOfFrames); n != len(subImages) {
		return nil, errors.Wrapf(ErrFrameCountMismatch, "app data declares %d frames, animation has %d", n, len(subImages))
	}

	res := newPaletteResolver(palette)
	keyFrames := make([]*Texture, 0, len(subImages))
	for i := range subImages {
		t, err := textureFromSubImage(res, &subImages[i])
		if err != nil {
			return nil, errors.Wrapf(err, "key frame %d", i)
		}
		keyFrames = append(keyFrames, t)
	}
	return &Animation{keyFrames: keyFrames}, nil
}

func animationFromContainer(c stci.Container) (*Animation, error) {
	indexed, err := requireIndexed(c, "animation")
	if err != nil {
		return nil, err
	}
	return AnimationFromSubImages(indexed.Palette, indexed.SubImages)
}

// ReadAnimation reads an indexed STCI from r as a single animation.
func ReadAnimation(r io.ReadSeeker) (*Animation, error) {
	c, err := readContainer(r, "animation")
	if err != nil {
		return nil, err
	}
	return animationFromContainer(c)
}

// KeyFrames returns the key frames before canvas normalization.
func (a *Animation) KeyFrames() []*Texture {
	return a.keyFrames
}

// Bounds returns the canvas shared by all frames, in the key frames' offset
// space: from the smallest offset to the largest offset plus size.
func (a *Animation) Bounds() (image.Rectangle, error) {
	if len(a.keyFrames) == 0 {
		return image.Rectangle{}, errors.Wrap(ErrEmpty, "frames have to be computed from at least one key frame")
	}
	first := a.keyFrames[0]
	r := image.Rectangle{Min: first.offset, Max: first.offset.Add(first.size)}
	for _, k := range a.keyFrames[1:] {
		// Rectangle.Union skips empty rectangles, which would lose the
		// offsets of zero sized key frames; compare corners instead.
		lo, hi := k.offset, k.offset.Add(k.size)
		r.Min.X = min(r.Min.X, lo.X)
		r.Min.Y = min(r.Min.Y, lo.Y)
		r.Max.X = max(r.Max.X, hi.X)
		r.Max.Y = max(r.Max.Y, hi.Y)
	}
	return r, nil
}

// Frames renders every key frame onto a transparent canvas large enough
// for all of them, at its offset relative to the smallest offset.
func (a *Animation) Frames() ([]Frame, error) {
	bounds, err := a.Bounds()
	if err != nil {
		return nil, err
	}
	canvas := image.Rectangle{Max: bounds.Size()}

	frames := make([]Frame, 0, len(a.keyFrames))
	for _, k := range a.keyFrames {
		img := image.NewRGBA(canvas)
		at := k.offset.Sub(bounds.Min)
		draw.Draw(img, image.Rectangle{Min: at, Max: at.Add(k.size)}, k.view(), image.Point{}, draw.Src)
		frames = append(frames, Frame{Image: img, Delay: FrameDelay})
	}
	return frames, nil
}
