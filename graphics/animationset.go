package graphics

import (
	"io"

	"github.com/pkg/errors"

	"badc0de.net/pkg/go-ja2/stci"
)

// AnimationSet is several animations stored back to back in one file with
// no separators. Each run is found by the frame count declared on its first
// sub-image.
type AnimationSet struct {
	animations []*Animation
}

// nextAnimation returns the run starting at pos and the position after it.
// An empty run means the input is exhausted.
func nextAnimation(subImages []stci.SubImage, pos int) ([]stci.SubImage, int, error) {
	if pos >= len(subImages) {
		return nil, pos, nil
	}
	n := int(subImages[pos].AppData.NumberOfFrames)
	if n == 0 {
		return nil, pos, errors.Wrapf(ErrFrameCountMismatch, "sub image %d starts an animation with zero frames", pos)
	}
	end := pos + n
	if end > len(subImages) {
		return nil, pos, errors.Wrapf(ErrTruncated, "animation at sub image %d declares %d frames, only %d remain", pos, n, len(subImages)-pos)
	}
	return subImages[pos:end], end, nil
}

// AnimationSetFromSubImages partitions subImages into consecutive runs and
// builds an animation from each. A single run is not a set; it should be
// loaded with AnimationFromSubImages instead.
func AnimationSetFromSubImages(palette stci.Palette, subImages []stci.SubImage) (*AnimationSet, error) {
	if len(subImages) == 0 {
		return nil, errors.Wrap(ErrEmpty, "animation set")
	}
	for i := range subImages {
		if subImages[i].AppData == nil {
			return nil, errors.Wrapf(ErrMissingMetadata, "all sub images in animation set need to have app data, %d has none", i)
		}
	}

	var animations []*Animation
	for pos := 0; ; {
		run, next, err := nextAnimation(subImages, pos)
		if err != nil {
			return nil, err
		}
		if run == nil {
			break
		}
		a, err := AnimationFromSubImages(palette, run)
		if err != nil {
			return nil, errors.Wrapf(err, "animation %d at sub image %d", len(animations), pos)
		}
		animations = append(animations, a)
		pos = next
	}

	if len(animations) < 2 {
		return nil, errors.Wrapf(ErrNotEnoughAnimations, "found %d", len(animations))
	}
	return &AnimationSet{animations: animations}, nil
}

func animationSetFromContainer(c stci.Container) (*AnimationSet, error) {
	indexed, err := requireIndexed(c, "animation set")
	if err != nil {
		return nil, err
	}
	return AnimationSetFromSubImages(indexed.Palette, indexed.SubImages)
}

// ReadAnimationSet reads an indexed STCI from r as an animation set.
func ReadAnimationSet(r io.ReadSeeker) (*AnimationSet, error) {
	c, err := readContainer(r, "animation set")
	if err != nil {
		return nil, err
	}
	return animationSetFromContainer(c)
}

// Animations returns the animations in file order.
func (s *AnimationSet) Animations() []*Animation {
	return s.animations
}

// Frames renders each animation independently; animations in one set may
// have different canvas sizes.
func (s *AnimationSet) Frames() ([][]Frame, error) {
	all := make([][]Frame, 0, len(s.animations))
	for i, a := range s.animations {
		frames, err := a.Frames()
		if err != nil {
			return nil, errors.Wrapf(err, "animation %d", i)
		}
		all = append(all, frames)
	}
	return all, nil
}
