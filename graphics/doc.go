// Package graphics turns decoded STCI containers into renderable RGBA
// assets: single textures, texture sets, animations and animation sets.
//
// An STCI file does not say which of the four it holds. Classify tries
// them from the richest to the simplest and returns the first that
// validates.
//
// All builders are pure functions over already decoded data. They are safe
// to call concurrently on independent inputs, and a failed build returns no
// partial result.
package graphics
