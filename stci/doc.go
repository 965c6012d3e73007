// Package stci implements a reader and writer for STCI ("Sir-Tech's Crazy
// Image") files, the sprite container used by Jagged Alliance 2.
//
// An STCI file holds either a single 16-bit direct colour image, or a
// palette together with one or more ETRLE-compressed indexed sub-images.
// Which of those sub-images form a texture, a texture set or an animation is
// not declared by the file; the graphics package decides that.
package stci
