/*
NAME
  source.go

DESCRIPTION
  source.go defines ImageSource, the abstraction every stage reads frames
  through, decoupling the stacking pipeline from any particular container
  format.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

// Package source defines the frame-sequence abstraction consumed by the
// stacking stages, and the concrete video/image-list sources that
// implement it.
package source

import "github.com/starvane/skystack/internal/pixel"

// Metadata describes a frame without decoding its pixels.
type Metadata struct {
	Width, Height int
	Format        pixel.Format
}

// ImageSource is an ordered, finite sequence of frames with a per-frame
// active flag. Implementations dispatch format-specific decoding; stages
// only see this interface.
type ImageSource interface {
	// Count returns the total number of frames, active or not.
	Count() int
	// ActiveCount returns the number of frames with their active flag set.
	ActiveCount() int
	// CurrentIndex returns the absolute index of the current frame.
	CurrentIndex() int
	// CurrentActiveIndex returns the index of the current frame within the
	// active subset only.
	CurrentActiveIndex() int
	// SeekStart rewinds to the first active frame.
	SeekStart() error
	// SeekNext advances to the next active frame, returning
	// ioerr.ErrNoMoreImages once the active subset is exhausted.
	SeekNext() error
	// ImageAt decodes and returns the frame at absolute index i.
	ImageAt(i int) (*pixel.Image, error)
	// MetadataAtCurrent returns the current frame's metadata. Video sources
	// read it from the container header; the image-list source decodes the
	// current file to obtain it.
	MetadataAtCurrent() (Metadata, error)
	// SetActive marks frame i as active or inactive.
	SetActive(i int, active bool)
}
