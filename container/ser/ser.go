/*
NAME
  ser.go

DESCRIPTION
  ser.go reads the SER image-sequence format: a fixed 178-byte header (bit
  depth 1..16, a documented color_id enum, and a little_endian flag whose
  sense is inverted relative to its name) followed by a flat array of
  fixed-size uncompressed frames.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

// Package ser provides read-only access to SER planetary-imaging video,
// used by source as the other video container backend alongside avi.
package ser

import (
	"encoding/binary"

	"github.com/starvane/skystack/internal/ioerr"
	"github.com/starvane/skystack/internal/pixel"
)

const headerSize = 178

// color_id enum values, per the SER format specification.
const (
	colorMono    = 0
	colorBayerRGGB = 8
	colorBayerGRBG = 9
	colorBayerGBRG = 10
	colorBayerBGGR = 11
	colorRGB     = 100
	colorBGR     = 101
)

// Reader provides random-access frame decoding of a fully-loaded SER file.
type Reader struct {
	data       []byte
	width      int
	height     int
	bitDepth   int
	colorID    int
	frameCount int
	bigEndian  bool // pixel sample byte order; see little_endian below.
	format     pixel.Format
}

// Open parses a SER file's header from data, which must hold the complete
// file contents.
func Open(data []byte) (*Reader, error) {
	if len(data) < headerSize {
		return nil, ioerr.New(ioerr.CodeSERMalformed, "ser: file shorter than header")
	}
	if string(data[0:14]) != "LUCAM-RECORDER" {
		return nil, ioerr.New(ioerr.CodeSERMalformed, "ser: bad file ID")
	}
	colorID := int(int32(binary.LittleEndian.Uint32(data[14:18])))
	// little_endian: the field's sense is inverted from what its name
	// suggests. 0 means 16-bit samples are stored little-endian and a
	// nonzero value means big-endian, so bigEndian is set when the flag is
	// nonzero.
	littleEndianFlag := binary.LittleEndian.Uint32(data[18:22])
	width := int(binary.LittleEndian.Uint32(data[22:26]))
	height := int(binary.LittleEndian.Uint32(data[26:30]))
	bitDepth := int(binary.LittleEndian.Uint32(data[30:34]))
	frameCount := int(binary.LittleEndian.Uint32(data[34:38]))

	if width <= 0 || height <= 0 {
		return nil, ioerr.New(ioerr.CodeInvalidDimensions, "ser: invalid dimensions %dx%d", width, height)
	}
	if bitDepth < 1 || bitDepth > 16 {
		return nil, ioerr.New(ioerr.CodeSERUnsupported, "ser: unsupported bit depth %d", bitDepth)
	}

	var fmtOut pixel.Format
	switch colorID {
	case colorMono:
		if bitDepth <= 8 {
			fmtOut = pixel.MONO8
		} else {
			fmtOut = pixel.MONO16
		}
	case colorBayerRGGB, colorBayerGRBG, colorBayerGBRG, colorBayerBGGR:
		fmtOut = cfaFormat(colorID, bitDepth)
	case colorRGB, colorBGR:
		if bitDepth <= 8 {
			fmtOut = pixel.RGB8
		} else {
			fmtOut = pixel.RGB16
		}
	default:
		return nil, ioerr.New(ioerr.CodeSERUnsupported, "ser: unsupported color_id %d", colorID)
	}

	r := &Reader{
		data:       data,
		width:      width,
		height:     height,
		bitDepth:   bitDepth,
		colorID:    colorID,
		frameCount: frameCount,
		bigEndian:  littleEndianFlag != 0,
		format:     fmtOut,
	}
	frameBytes := r.frameSize()
	if headerSize+frameBytes*frameCount > len(data) {
		return nil, ioerr.New(ioerr.CodeSERMalformed, "ser: file shorter than frameCount*frameSize")
	}
	return r, nil
}

func cfaFormat(colorID, bitDepth int) pixel.Format {
	is16 := bitDepth > 8
	switch colorID {
	case colorBayerRGGB:
		if is16 {
			return pixel.CFA_RGGB16
		}
		return pixel.CFA_RGGB8
	case colorBayerGRBG:
		if is16 {
			return pixel.CFA_GRBG16
		}
		return pixel.CFA_GRBG8
	case colorBayerGBRG:
		if is16 {
			return pixel.CFA_GBRG16
		}
		return pixel.CFA_GBRG8
	default: // colorBayerBGGR
		if is16 {
			return pixel.CFA_BGGR16
		}
		return pixel.CFA_BGGR8
	}
}

func (r *Reader) frameSize() int {
	return r.width * r.height * r.format.BytesPerPixel()
}

// Count returns the number of frames declared in the header.
func (r *Reader) Count() int { return r.frameCount }

// Format returns the pixel format every frame decodes to.
func (r *Reader) Format() pixel.Format { return r.format }

// Dims returns the frame dimensions without decoding any pixel data.
func (r *Reader) Dims() (width, height int) { return r.width, r.height }

// ImageAt decodes frame i. Color (RGB/BGR) frames are stored bottom-up per
// the SER spec and are flipped on read; mono/CFA frames are stored
// top-down.
func (r *Reader) ImageAt(i int) (*pixel.Image, error) {
	if i < 0 || i >= r.frameCount {
		return nil, ioerr.New(ioerr.CodeInvalidParameters, "ser: frame index %d out of range", i)
	}
	frameBytes := r.frameSize()
	off := headerSize + i*frameBytes
	raw := r.data[off : off+frameBytes]

	im := pixel.New(r.width, r.height, r.format)
	rowBytes := r.width * r.format.BytesPerPixel()
	bottomUp := r.colorID == colorRGB || r.colorID == colorBGR
	swapEndian := r.format.BitsPerChannel() == 16 && r.bigEndian
	for y := 0; y < r.height; y++ {
		srcRow := y
		if bottomUp {
			srcRow = r.height - 1 - y
		}
		srcOff := srcRow * rowBytes
		dstOff := im.RowOffset(y)
		if swapEndian {
			for b := 0; b+1 < rowBytes; b += 2 {
				im.Pix[dstOff+b] = raw[srcOff+b+1]
				im.Pix[dstOff+b+1] = raw[srcOff+b]
			}
		} else {
			copy(im.Pix[dstOff:dstOff+rowBytes], raw[srcOff:srcOff+rowBytes])
		}
	}
	if r.colorID == colorBGR {
		swapRB(im)
	}
	return im, nil
}

func swapRB(im *pixel.Image) {
	bpp := im.Format.BytesPerPixel() / 3
	for y := 0; y < im.Height; y++ {
		off := im.RowOffset(y)
		for x := 0; x < im.Width; x++ {
			p := off + x*3*bpp
			for b := 0; b < bpp; b++ {
				im.Pix[p+b], im.Pix[p+2*bpp+b] = im.Pix[p+2*bpp+b], im.Pix[p+b]
			}
		}
	}
}
