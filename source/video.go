/*
NAME
  video.go

DESCRIPTION
  video.go implements the ImageSource backed by an AVI or SER container,
  dispatched by file extension.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package source

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/starvane/skystack/internal/ioerr"
	"github.com/starvane/skystack/internal/pixel"

	"github.com/starvane/skystack/container/avi"
	"github.com/starvane/skystack/container/ser"
)

// videoBackend is implemented by both container/avi.Reader and
// container/ser.Reader.
type videoBackend interface {
	Count() int
	Format() pixel.Format
	Dims() (width, height int)
	ImageAt(i int) (*pixel.Image, error)
}

type videoSource struct {
	backend videoBackend
	seq     sequence
}

// OpenVideo opens path as an AVI or SER video source, dispatched by its
// file extension (.avi or .ser, case-insensitive).
func OpenVideo(path string) (ImageSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ioerr.Wrap(ioerr.CodeCannotOpenFile, err, "source: reading video file")
	}
	var backend videoBackend
	switch strings.ToLower(filepath.Ext(path)) {
	case ".avi":
		backend, err = avi.Open(data)
	case ".ser":
		backend, err = ser.Open(data)
	default:
		return nil, ioerr.New(ioerr.CodeUnsupportedFileFormat, "source: unrecognized video extension %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return &videoSource{backend: backend, seq: newSequence(backend.Count())}, nil
}

func (v *videoSource) Count() int               { return v.seq.Count() }
func (v *videoSource) ActiveCount() int         { return v.seq.ActiveCount() }
func (v *videoSource) CurrentIndex() int        { return v.seq.CurrentIndex() }
func (v *videoSource) CurrentActiveIndex() int  { return v.seq.CurrentActiveIndex() }
func (v *videoSource) SeekStart() error         { return v.seq.SeekStart() }
func (v *videoSource) SeekNext() error          { return v.seq.SeekNext() }
func (v *videoSource) SetActive(i int, a bool)  { v.seq.SetActive(i, a) }

func (v *videoSource) ImageAt(i int) (*pixel.Image, error) {
	return v.backend.ImageAt(i)
}

func (v *videoSource) MetadataAtCurrent() (Metadata, error) {
	if v.seq.cur >= v.seq.Count() {
		return Metadata{}, ioerr.ErrNoMoreImages
	}
	w, h := v.backend.Dims()
	return Metadata{Width: w, Height: h, Format: v.backend.Format()}, nil
}
