/*
NAME
  imagelist.go

DESCRIPTION
  imagelist.go implements the ImageSource backed by a sorted list of
  individual BMP/TIFF files on disk, dispatched per-file by extension.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package source

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starvane/skystack/internal/ioerr"
	"github.com/starvane/skystack/internal/pixel"

	"github.com/starvane/skystack/container/bmp"
	"github.com/starvane/skystack/container/tiff"
)

// imageListSource is an ImageSource over individual single-image files,
// decoded on demand (unlike videoSource, which decodes against a fully
// read file already in memory).
type imageListSource struct {
	paths []string
	seq   sequence
}

// OpenImageList opens every .bmp/.tif/.tiff file in dir (non-recursive),
// sorted by name, as a single ImageSource.
func OpenImageList(dir string) (ImageSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ioerr.Wrap(ioerr.CodeCannotOpenFile, err, "source: reading image list directory")
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".bmp", ".tif", ".tiff":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, ioerr.New(ioerr.CodeUnsupportedFileFormat, "source: no BMP/TIFF files found in %q", dir)
	}
	return &imageListSource{paths: paths, seq: newSequence(len(paths))}, nil
}

func (l *imageListSource) Count() int              { return l.seq.Count() }
func (l *imageListSource) ActiveCount() int         { return l.seq.ActiveCount() }
func (l *imageListSource) CurrentIndex() int        { return l.seq.CurrentIndex() }
func (l *imageListSource) CurrentActiveIndex() int  { return l.seq.CurrentActiveIndex() }
func (l *imageListSource) SeekStart() error         { return l.seq.SeekStart() }
func (l *imageListSource) SeekNext() error          { return l.seq.SeekNext() }
func (l *imageListSource) SetActive(i int, a bool)  { l.seq.SetActive(i, a) }

func (l *imageListSource) ImageAt(i int) (*pixel.Image, error) {
	if i < 0 || i >= len(l.paths) {
		return nil, ioerr.New(ioerr.CodeInvalidParameters, "source: image index %d out of range", i)
	}
	return decodeFile(l.paths[i])
}

func (l *imageListSource) MetadataAtCurrent() (Metadata, error) {
	if l.seq.cur >= l.seq.Count() {
		return Metadata{}, ioerr.ErrNoMoreImages
	}
	im, err := decodeFile(l.paths[l.seq.cur])
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{Width: im.Width, Height: im.Height, Format: im.Format}, nil
}

func decodeFile(path string) (*pixel.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ioerr.Wrap(ioerr.CodeCannotOpenFile, err, "source: reading image file")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bmp":
		return bmp.Decode(bytes.NewReader(data))
	case ".tif", ".tiff":
		return tiff.Decode(bytes.NewReader(data))
	default:
		return nil, ioerr.New(ioerr.CodeUnsupportedFileFormat, "source: unrecognized image extension %q", filepath.Ext(path))
	}
}
