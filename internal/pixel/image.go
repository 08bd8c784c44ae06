/*
NAME
  image.go

DESCRIPTION
  image.go defines the Image type: a contiguous, top-to-bottom, unpadded
  pixel buffer plus an optional 256-entry palette.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package pixel

import (
	"image"
	"math"
)

// Rect is an integer rectangle, following image.Rectangle conventions
// ([Min, Max)), reused here so the substrate doesn't need its own type.
type Rect = image.Rectangle

// Point is an integer point.
type Point = image.Point

// Pt builds a Point.
func Pt(x, y int) Point { return image.Pt(x, y) }

// Pal is a 256-entry RGB palette, only populated for PAL8 images.
type Pal [256][3]byte

// Image owns a contiguous pixel buffer exclusively: copies are always
// explicit (Clone, Convert, ResizeAndTranslate), never shared.
type Image struct {
	Width, Height int
	Format        Format
	Stride        int // bytes per row; always Width*Format.BytesPerPixel().
	Pix           []byte
	Palette       *Pal // non-nil only when Format == PAL8.
}

// New allocates a zeroed image of the given format and dimensions. It
// returns no error and does not check w/h; callers validate width/height
// themselves (format readers report ioerr.CodeInvalidDimensions).
func New(w, h int, f Format) *Image {
	stride := w * f.BytesPerPixel()
	im := &Image{
		Width:  w,
		Height: h,
		Format: f,
		Stride: stride,
		Pix:    make([]byte, stride*h),
	}
	if f == PAL8 {
		im.Palette = &Pal{}
	}
	return im
}

// Bounds returns the image's rectangle at (0,0)-(Width,Height).
func (im *Image) Bounds() Rect { return image.Rect(0, 0, im.Width, im.Height) }

// RowOffset returns the byte offset of the start of row y.
func (im *Image) RowOffset(y int) int { return y * im.Stride }

// Clone returns a deep, independent copy of im.
func (im *Image) Clone() *Image {
	out := &Image{
		Width:  im.Width,
		Height: im.Height,
		Format: im.Format,
		Stride: im.Stride,
		Pix:    append([]byte(nil), im.Pix...),
	}
	if im.Palette != nil {
		p := *im.Palette
		out.Palette = &p
	}
	return out
}

// Mono8At returns the single-byte sample at (x,y) of a MONO8 image. The
// caller is responsible for format/bounds correctness; this is a hot path
// used by box blur, block matching and quality estimation.
func (im *Image) Mono8At(x, y int) uint8 {
	return im.Pix[im.RowOffset(y)+x]
}

// SetMono8At sets the single-byte sample at (x,y) of a MONO8 image.
func (im *Image) SetMono8At(x, y int, v uint8) {
	im.Pix[im.RowOffset(y)+x] = v
}

// Float32At returns channel ch of the float32 sample at (x,y) for MONO32F/
// RGB32F images.
func (im *Image) Float32At(x, y, ch int) float32 {
	off := im.RowOffset(y) + (x*im.Format.Channels()+ch)*4
	return float32frombytes(im.Pix[off : off+4])
}

// SetFloat32At sets channel ch of the float32 sample at (x,y).
func (im *Image) SetFloat32At(x, y, ch int, v float32) {
	off := im.RowOffset(y) + (x*im.Format.Channels()+ch)*4
	float32tobytes(im.Pix[off:off+4], v)
}

// Uint16At returns channel ch of the little-endian uint16 sample at (x,y).
func (im *Image) Uint16At(x, y, ch int) uint16 {
	off := im.RowOffset(y) + (x*im.Format.Channels()+ch)*2
	return uint16(im.Pix[off]) | uint16(im.Pix[off+1])<<8
}

// SetUint16At sets channel ch of the little-endian uint16 sample at (x,y).
func (im *Image) SetUint16At(x, y, ch int, v uint16) {
	off := im.RowOffset(y) + (x*im.Format.Channels()+ch)*2
	im.Pix[off] = byte(v)
	im.Pix[off+1] = byte(v >> 8)
}

// Float64At returns channel ch of the float64 sample at (x,y).
func (im *Image) Float64At(x, y, ch int) float64 {
	off := im.RowOffset(y) + (x*im.Format.Channels()+ch)*8
	bits := uint64(0)
	for i := 0; i < 8; i++ {
		bits |= uint64(im.Pix[off+i]) << (8 * i)
	}
	return math.Float64frombits(bits)
}

// SetFloat64At sets channel ch of the float64 sample at (x,y).
func (im *Image) SetFloat64At(x, y, ch int, v float64) {
	off := im.RowOffset(y) + (x*im.Format.Channels()+ch)*8
	bits := math.Float64bits(v)
	for i := 0; i < 8; i++ {
		im.Pix[off+i] = byte(bits >> (8 * i))
	}
}

func float32frombytes(b []byte) float32 {
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return math.Float32frombits(bits)
}

func float32tobytes(b []byte, f float32) {
	bits := math.Float32bits(f)
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
}
