package graphics

import (
	"io"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/go-ja2/stci"
)

// Kind names the interpretation chosen for a container.
type Kind int

const (
	KindAnimationSet Kind = iota
	KindAnimation
	KindTextureSet
	KindTexture
)

func (k Kind) String() string {
	switch k {
	case KindAnimationSet:
		return "animation set"
	case KindAnimation:
		return "animation"
	case KindTextureSet:
		return "texture set"
	case KindTexture:
		return "texture"
	default:
		return "unknown"
	}
}

// Asset is one of *AnimationSet, *Animation, *TextureSet or *Texture.
type Asset interface {
	Kind() Kind
}

func (*AnimationSet) Kind() Kind { return KindAnimationSet }
func (*Animation) Kind() Kind    { return KindAnimation }
func (*TextureSet) Kind() Kind   { return KindTextureSet }
func (*Texture) Kind() Kind      { return KindTexture }

// attempts lists the interpretations tried by Classify, in order.
var attempts = []struct {
	kind  Kind
	build func(stci.Container) (Asset, error)
}{
	{KindAnimationSet, func(c stci.Container) (Asset, error) { return asAsset(animationSetFromContainer(c)) }},
	{KindAnimation, func(c stci.Container) (Asset, error) { return asAsset(animationFromContainer(c)) }},
	{KindTextureSet, func(c stci.Container) (Asset, error) { return asAsset(textureSetFromContainer(c)) }},
	{KindTexture, func(c stci.Container) (Asset, error) { return asAsset(textureFromContainer(c)) }},
}

// asAsset keeps a typed nil pointer from becoming a non-nil Asset.
func asAsset[T Asset](a T, err error) (Asset, error) {
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Classify interprets a decoded container as the first of animation set,
// animation, texture set and texture that validates. The order matters:
// a container with a single animation run is rejected as a set and so
// becomes an animation, and a single sub-image without app data becomes a
// texture set rather than a texture.
func Classify(c stci.Container) (Asset, error) {
	errs := make(map[Kind]error, len(attempts))
	for _, at := range attempts {
		a, err := at.build(c)
		if err == nil {
			glog.V(2).Infof("classified as %v", at.kind)
			return a, nil
		}
		glog.V(2).Infof("not a %v: %v", at.kind, err)
		errs[at.kind] = err
	}
	return nil, &ClassifyError{Animation: errs[KindAnimation], Texture: errs[KindTexture]}
}

// ClassifyReader decodes and classifies r. Input that is not STCI at all is
// decoded as a generic image and returned as a texture.
func ClassifyReader(r io.ReadSeeker) (Asset, error) {
	isSTCI, err := stci.Peek(r)
	if err != nil {
		return nil, err
	}
	if !isSTCI {
		return ReadTexture(r)
	}
	c, err := stci.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "decoding stci")
	}
	return Classify(c)
}
