package graphics

import (
	"fmt"

	"github.com/pkg/errors"
)

// Structural validation failures. Builders wrap these with context;
// compare with errors.Is.
var (
	ErrSizeMismatch        = errors.New("pixel buffer does not match dimensions")
	ErrUnexpectedMetadata  = errors.New("sub image carries frame metadata")
	ErrMissingMetadata     = errors.New("sub image lacks frame metadata")
	ErrFrameCountMismatch  = errors.New("declared frame count does not match sub images")
	ErrTruncated           = errors.New("sub images end in the middle of an animation")
	ErrEmpty               = errors.New("no sub images")
	ErrNotEnoughAnimations = errors.New("animation set needs at least two animations")
	ErrNotIndexed          = errors.New("only indexed stci can be used")
	ErrPaletteIndex        = errors.New("pixel index outside of palette")
	ErrUnclassified        = errors.New("could not load as any concrete asset")
)

// ClassifyError is returned by Classify when none of the interpretations
// accepted the container. It keeps the animation and texture failures,
// which carry the most specific per sub-image diagnostics.
type ClassifyError struct {
	Animation error
	Texture   error
}

func (e *ClassifyError) Error() string {
	return fmt.Sprintf("%v: animation: %v; texture: %v", ErrUnclassified, e.Animation, e.Texture)
}

func (e *ClassifyError) Unwrap() error {
	return ErrUnclassified
}
