package main

import (
	"testing"

	"badc0de.net/pkg/go-ja2/graphics"
	"badc0de.net/pkg/go-ja2/stci"
	"badc0de.net/pkg/go-ja2/ttesting"
)

func TestPickImage(t *testing.T) {
	palette := make(stci.Palette, 2)
	frame := func(w uint16, n uint8) stci.SubImage {
		pix := make([]uint8, w)
		return stci.SubImage{Width: w, Height: 1, Pixels: pix, AppData: &stci.AppData{NumberOfFrames: n}}
	}
	set, err := graphics.AnimationSetFromSubImages(palette, []stci.SubImage{frame(1, 1), frame(2, 2), frame(3, 0)})
	if err != nil {
		t.Fatalf("AnimationSetFromSubImages: %v", err)
	}

	img, err := pickImage(set, 2)
	if err != nil {
		t.Fatalf("pickImage: %v", err)
	}
	// The third image is the second frame of the second animation, drawn
	// on that animation's canvas.
	ttesting.AssertEqualInt(t, "width", img.Bounds().Dx(), 3)

	if _, err := pickImage(set, 3); err == nil {
		t.Errorf("pickImage past the last frame succeeded")
	}
}
