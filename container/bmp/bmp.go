/*
NAME
  bmp.go

DESCRIPTION
  bmp.go decodes and encodes Windows BMP files: a 14-byte file header plus
  a 40-byte BITMAPINFOHEADER, rows stored bottom-up and padded to a
  multiple of 4 bytes, for 8-bit paletted, 24-bit BGR and 32-bit BGRx
  pixel data.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

// Package bmp reads and writes the BMP pixel formats skystack's source
// and output layers use: 8-bit paletted, 24-bit BGR, 32-bit BGRx.
package bmp

import (
	"encoding/binary"
	"io"

	"github.com/starvane/skystack/internal/ioerr"
	"github.com/starvane/skystack/internal/pixel"
)

// Layout constants for the 14-byte BITMAPFILEHEADER and 40-byte
// BITMAPINFOHEADER (BITMAPINFOHEADER size itself, header sizes below).
const (
	fileHeaderSize = 14
	infoHeaderSize = 40
	magic          = 0x4D42 // "BM"
)

// Decode reads a BMP file from r into a pixel.Image. 8-bit files become
// PAL8, 24-bit become RGB8 (re-ordered from BGR), 32-bit become BGRA8.
func Decode(r io.Reader) (*pixel.Image, error) {
	fh := make([]byte, fileHeaderSize)
	if _, err := io.ReadFull(r, fh); err != nil {
		return nil, ioerr.Wrap(ioerr.CodeMalformedBMP, err, "bmp: reading file header")
	}
	if binary.LittleEndian.Uint16(fh[0:2]) != magic {
		return nil, ioerr.New(ioerr.CodeMalformedBMP, "bmp: bad magic")
	}
	pixelDataOffset := binary.LittleEndian.Uint32(fh[10:14])

	ih := make([]byte, infoHeaderSize)
	if _, err := io.ReadFull(r, ih); err != nil {
		return nil, ioerr.Wrap(ioerr.CodeMalformedBMP, err, "bmp: reading info header")
	}
	headerSize := binary.LittleEndian.Uint32(ih[0:4])
	if headerSize < infoHeaderSize {
		return nil, ioerr.New(ioerr.CodeUnsupportedBMP, "bmp: unsupported info header size %d", headerSize)
	}
	width := int(int32(binary.LittleEndian.Uint32(ih[4:8])))
	height := int(int32(binary.LittleEndian.Uint32(ih[8:12])))
	bitCount := binary.LittleEndian.Uint16(ih[14:16])
	compression := binary.LittleEndian.Uint32(ih[16:20])
	if width <= 0 || height == 0 {
		return nil, ioerr.New(ioerr.CodeInvalidDimensions, "bmp: invalid dimensions %dx%d", width, height)
	}
	if compression != 0 {
		return nil, ioerr.New(ioerr.CodeUnsupportedBMP, "bmp: compressed BMP not supported")
	}
	topDown := height < 0
	if topDown {
		height = -height
	}

	// Any header bytes beyond the 40-byte BITMAPINFOHEADER (e.g. BITMAPV4/
	// V5 extensions) are skipped; any palette follows immediately.
	if extra := int64(headerSize) - infoHeaderSize; extra > 0 {
		if _, err := io.CopyN(io.Discard, r, extra); err != nil {
			return nil, ioerr.Wrap(ioerr.CodeMalformedBMP, err, "bmp: skipping extended header")
		}
	}

	var im *pixel.Image
	switch bitCount {
	case 8:
		im = pixel.New(width, height, pixel.PAL8)
		palEntries := make([]byte, 256*4)
		if _, err := io.ReadFull(r, palEntries); err != nil {
			return nil, ioerr.Wrap(ioerr.CodeMalformedBMP, err, "bmp: reading palette")
		}
		for i := 0; i < 256; i++ {
			// Palette entries are stored BGRA; pixel.Pal stores RGB.
			im.Palette[i][0] = palEntries[i*4+2]
			im.Palette[i][1] = palEntries[i*4+1]
			im.Palette[i][2] = palEntries[i*4+0]
		}
	case 24:
		im = pixel.New(width, height, pixel.RGB8)
	case 32:
		im = pixel.New(width, height, pixel.BGRA8)
	default:
		return nil, ioerr.New(ioerr.CodeUnsupportedBMP, "bmp: unsupported bit depth %d", bitCount)
	}

	if skip := int64(pixelDataOffset) - fileHeaderSize - int64(headerSize); bitCount != 8 && skip > 0 {
		if _, err := io.CopyN(io.Discard, r, skip); err != nil {
			return nil, ioerr.Wrap(ioerr.CodeMalformedBMP, err, "bmp: seeking to pixel data")
		}
	}

	bpp := im.Format.BytesPerPixel()
	rowBytes := width * bpp
	paddedRowBytes := (rowBytes + 3) &^ 3
	row := make([]byte, paddedRowBytes)
	for y := 0; y < height; y++ {
		if _, err := io.ReadFull(r, row); err != nil {
			return nil, ioerr.Wrap(ioerr.CodeMalformedBMP, err, "bmp: reading row")
		}
		dstY := y
		if !topDown {
			dstY = height - 1 - y
		}
		off := im.RowOffset(dstY)
		switch bitCount {
		case 24:
			for x := 0; x < width; x++ {
				im.Pix[off+x*3+0] = row[x*3+2] // file byte 2 (R) -> R position
				im.Pix[off+x*3+1] = row[x*3+1]
				im.Pix[off+x*3+2] = row[x*3+0] // file byte 0 (B) -> B position
			}
		default:
			copy(im.Pix[off:off+rowBytes], row[:rowBytes])
		}
	}
	return im, nil
}

// Encode writes im to w as an 8-bit paletted BMP (im.Format must be PAL8).
func Encode(w io.Writer, im *pixel.Image) error {
	if im.Format != pixel.PAL8 {
		return ioerr.New(ioerr.CodeUnsupportedBMP, "bmp: Encode only supports PAL8, got %s", im.Format)
	}
	if im.Palette == nil {
		return ioerr.New(ioerr.CodeNoPalette, "bmp: Encode: PAL8 image has no palette")
	}
	rowBytes := im.Width
	paddedRowBytes := (rowBytes + 3) &^ 3
	pixelDataOffset := fileHeaderSize + infoHeaderSize + 256*4
	fileSize := pixelDataOffset + paddedRowBytes*im.Height

	fh := make([]byte, fileHeaderSize)
	binary.LittleEndian.PutUint16(fh[0:2], magic)
	binary.LittleEndian.PutUint32(fh[2:6], uint32(fileSize))
	binary.LittleEndian.PutUint32(fh[10:14], uint32(pixelDataOffset))
	if _, err := w.Write(fh); err != nil {
		return ioerr.Wrap(ioerr.CodeCannotOpenFile, err, "bmp: writing file header")
	}

	ih := make([]byte, infoHeaderSize)
	binary.LittleEndian.PutUint32(ih[0:4], infoHeaderSize)
	binary.LittleEndian.PutUint32(ih[4:8], uint32(im.Width))
	binary.LittleEndian.PutUint32(ih[8:12], uint32(im.Height)) // positive: bottom-up.
	binary.LittleEndian.PutUint16(ih[12:14], 1)                // planes
	binary.LittleEndian.PutUint16(ih[14:16], 8)                // bitCount
	if _, err := w.Write(ih); err != nil {
		return ioerr.Wrap(ioerr.CodeCannotOpenFile, err, "bmp: writing info header")
	}

	pal := make([]byte, 256*4)
	palette := *im.Palette
	for i := 0; i < 256; i++ {
		pal[i*4+0] = palette[i][2]
		pal[i*4+1] = palette[i][1]
		pal[i*4+2] = palette[i][0]
	}
	if _, err := w.Write(pal); err != nil {
		return ioerr.Wrap(ioerr.CodeCannotOpenFile, err, "bmp: writing palette")
	}

	row := make([]byte, paddedRowBytes)
	for y := im.Height - 1; y >= 0; y-- {
		off := im.RowOffset(y)
		copy(row[:rowBytes], im.Pix[off:off+rowBytes])
		if _, err := w.Write(row); err != nil {
			return ioerr.Wrap(ioerr.CodeCannotOpenFile, err, "bmp: writing row")
		}
	}
	return nil
}
