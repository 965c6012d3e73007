package main

import (
	"image"
	"os"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"badc0de.net/pkg/go-ja2/export"
	"badc0de.net/pkg/go-ja2/graphics"
	"badc0de.net/pkg/go-ja2/imageprint"
	"badc0de.net/pkg/go-ja2/paths"
	"badc0de.net/pkg/go-ja2/vfs"
)

// pickImage returns the index-th still image of asset: the texture itself,
// a member of a texture set, or a frame of an animation. Animation sets
// number their frames continuously across animations.
func pickImage(asset graphics.Asset, index int) (image.Image, error) {
	var images []image.Image
	switch a := asset.(type) {
	case *graphics.Texture:
		images = append(images, a.Image())
	case *graphics.TextureSet:
		for _, img := range a.Images() {
			images = append(images, img)
		}
	case *graphics.Animation:
		frames, err := a.Frames()
		if err != nil {
			return nil, err
		}
		for _, f := range frames {
			images = append(images, f.Image)
		}
	case *graphics.AnimationSet:
		all, err := a.Frames()
		if err != nil {
			return nil, err
		}
		for _, frames := range all {
			for _, f := range frames {
				images = append(images, f.Image)
			}
		}
	}
	if index < 0 || index >= len(images) {
		return nil, errors.Errorf("%v has %d images, no %d", asset.Kind(), len(images), index)
	}
	return images[index], nil
}

// downsize fits img into the terminal. When the terminal reports its pixel
// size and the mode can draw real images, half the pixel size is used;
// otherwise half the character grid.
func downsize(img image.Image, mode imageprint.Mode) image.Image {
	termSize, err := GetTermSize()
	if err != nil {
		return img
	}
	if termSize.WSXPixel != 0 && termSize.WSYPixel != 0 && (mode == imageprint.ModeRasTerm || mode == imageprint.ModeITerm) {
		return resize.Thumbnail(termSize.WSXPixel/2, termSize.WSYPixel/2, img, resize.Lanczos3)
	}
	return resize.Thumbnail(termSize.WSCol/2, termSize.WSRow/2, img, resize.Lanczos3)
}

func printMain(cfg *paths.Config, args []string) error {
	fs := newFlagSet("print", cfg)
	path := fs.String("path", "", "Path of the image inside the game data")
	index := fs.Int("index", 0, "Which texture or frame to print")
	modeName := fs.String("mode", "24bit", "Output mode: 24bit, 256, nocolor, iterm, rasterm or dataurl")
	blanks := fs.Bool("blanks", true, "whether to just use colored blanks instead of some bad ascii art")
	shrink := fs.Bool("downsize", false, "whether to shrink the image to fit the terminal")
	fs.Parse(args)

	if *path == "" {
		return errors.New("-path is required")
	}
	mode, err := imageprint.ParseMode(*modeName)
	if err != nil {
		return err
	}

	v, err := vfs.FromConfig(cfg)
	if err != nil {
		return errors.Wrap(err, "building vfs")
	}
	defer v.Close()
	f, err := v.Open(*path)
	if err != nil {
		return err
	}
	defer f.Close()

	asset, err := graphics.ClassifyReader(f)
	if err != nil {
		return err
	}
	img, err := pickImage(asset, *index)
	if err != nil {
		return err
	}
	if *shrink {
		img = downsize(img, mode)
	}

	p := &imageprint.Printer{Out: os.Stdout, Mode: mode, Blanks: *blanks}
	return p.Print(img, export.BaseName(*path)+".png")
}
