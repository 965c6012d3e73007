package graphics

import (
	"image"
	"io"

	"github.com/pkg/errors"

	"badc0de.net/pkg/go-ja2/stci"
)

// TextureSet is a sprite sheet: independent textures sharing one palette.
// Members keep their own dimensions and offsets.
type TextureSet struct {
	textures []*Texture
}

// TextureSetFromSubImages builds one texture per sub-image, in order. Being
// part of a texture set means carrying no frame metadata at all.
func TextureSetFromSubImages(palette stci.Palette, subImages []stci.SubImage) (*TextureSet, error) {
	if len(subImages) == 0 {
		return nil, errors.Wrap(ErrEmpty, "texture set")
	}
	for i := range subImages {
		if subImages[i].AppData != nil {
			return nil, errors.Wrapf(ErrUnexpectedMetadata, "there should not be app data for texture %d in texture set", i)
		}
	}

	res := newPaletteResolver(palette)
	textures := make([]*Texture, 0, len(subImages))
	for i := range subImages {
		t, err := textureFromSubImage(res, &subImages[i])
		if err != nil {
			return nil, errors.Wrapf(err, "texture %d", i)
		}
		textures = append(textures, t)
	}
	return &TextureSet{textures: textures}, nil
}

func textureSetFromContainer(c stci.Container) (*TextureSet, error) {
	indexed, err := requireIndexed(c, "texture set")
	if err != nil {
		return nil, err
	}
	return TextureSetFromSubImages(indexed.Palette, indexed.SubImages)
}

// ReadTextureSet reads an indexed STCI from r as a texture set.
func ReadTextureSet(r io.ReadSeeker) (*TextureSet, error) {
	c, err := readContainer(r, "texture set")
	if err != nil {
		return nil, err
	}
	return textureSetFromContainer(c)
}

// Textures returns the members of the set, in file order.
func (s *TextureSet) Textures() []*Texture {
	return s.textures
}

// Images returns a copy of every member as an image.
func (s *TextureSet) Images() []*image.RGBA {
	imgs := make([]*image.RGBA, len(s.textures))
	for i, t := range s.textures {
		imgs[i] = t.Image()
	}
	return imgs
}

// requireIndexed rejects direct colour containers for uses that need
// sub-images.
func requireIndexed(c stci.Container, usage string) (*stci.Indexed, error) {
	indexed, ok := c.(*stci.Indexed)
	if !ok {
		return nil, errors.Wrapf(ErrNotIndexed, "can only use indexed stci images as %s", usage)
	}
	return indexed, nil
}

// readContainer decodes r, which must be an STCI file.
func readContainer(r io.ReadSeeker, usage string) (stci.Container, error) {
	isSTCI, err := stci.Peek(r)
	if err != nil {
		return nil, err
	}
	if !isSTCI {
		return nil, errors.Wrapf(ErrNotIndexed, "can only use stci images as %s", usage)
	}
	return stci.Decode(r)
}
