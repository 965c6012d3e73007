package graphics

import (
	"fmt"

	"badc0de.net/pkg/go-ja2/stci"
)

// ExampleClassify builds a two frame animation whose second frame is
// offset, and prints what it was classified as and the shared canvas size.
func ExampleClassify() {
	palette := make(stci.Palette, 2)
	palette[1] = stci.PaletteColor{R: 0xFF}
	c := &stci.Indexed{Palette: palette, SubImages: []stci.SubImage{
		{Width: 2, Height: 2, Pixels: []uint8{1, 1, 1, 1}, AppData: &stci.AppData{NumberOfFrames: 2}},
		{Width: 1, Height: 1, OffsetX: 3, OffsetY: 1, Pixels: []uint8{1}, AppData: &stci.AppData{}},
	}}

	asset, err := Classify(c)
	if err != nil {
		fmt.Printf("failed to classify: %s", err)
		return
	}
	frames, err := asset.(*Animation).Frames()
	if err != nil {
		fmt.Printf("failed to render frames: %s", err)
		return
	}
	size := frames[0].Image.Bounds().Size()
	fmt.Printf("%v: %d frames, %dx%d\n", asset.Kind(), len(frames), size.X, size.Y)
	// Output: animation: 2 frames, 4x2
}

// ExampleAnimationSetFromSubImages splits sub-images into animations by the
// frame count on the first sub-image of each run.
func ExampleAnimationSetFromSubImages() {
	palette := make(stci.Palette, 2)
	frame := func(n uint8) stci.SubImage {
		return stci.SubImage{Width: 1, Height: 1, Pixels: []uint8{1}, AppData: &stci.AppData{NumberOfFrames: n}}
	}
	set, err := AnimationSetFromSubImages(palette, []stci.SubImage{frame(3), frame(0), frame(0), frame(1), frame(2), frame(0)})
	if err != nil {
		fmt.Printf("failed to build set: %s", err)
		return
	}
	for i, a := range set.Animations() {
		fmt.Printf("animation %d: %d key frames\n", i, len(a.KeyFrames()))
	}
	// Output:
	// animation 0: 3 key frames
	// animation 1: 1 key frames
	// animation 2: 2 key frames
}
