/*
NAME
  tiff.go

DESCRIPTION
  tiff.go decodes and encodes the uncompressed, strip-based TIFF subset
  skystack needs: classic (non-BigTIFF) little/big-endian headers, a
  single IFD, {1,3} samples per pixel at {8,16} bits, and the
  BlackIsZero/WhiteIsZero/RGB photometric interpretations.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

// Package tiff reads and writes the uncompressed TIFF subset used for
// 16-bit single-strip stacking output and for TIFF-sourced image lists.
package tiff

import (
	"encoding/binary"
	"io"

	"github.com/starvane/skystack/internal/ioerr"
	"github.com/starvane/skystack/internal/pixel"
)

// TIFF tag IDs relevant to the supported subset.
const (
	tagImageWidth                = 256
	tagImageLength                = 257
	tagBitsPerSample              = 258
	tagCompression                = 259
	tagPhotometricInterpretation  = 262
	tagStripOffsets               = 273
	tagSamplesPerPixel            = 277
	tagRowsPerStrip               = 278
	tagStripByteCounts            = 279
	tagPlanarConfiguration        = 0x11C
)

const (
	photoWhiteIsZero = 0
	photoBlackIsZero = 1
	photoRGB         = 2
)

// Decode reads a single-image, uncompressed TIFF from r. r must support
// random access (an *io.SectionReader or *bytes.Reader, say) since IFD
// entries are offset-addressed.
func Decode(r io.ReaderAt) (*pixel.Image, error) {
	hdr := make([]byte, 8)
	if _, err := r.ReadAt(hdr, 0); err != nil {
		return nil, ioerr.Wrap(ioerr.CodeTIFFIncompleteHeader, err, "tiff: reading header")
	}
	var bo binary.ByteOrder
	switch string(hdr[0:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, ioerr.New(ioerr.CodeTIFFIncompleteHeader, "tiff: bad byte-order marker")
	}
	if bo.Uint16(hdr[2:4]) != 42 {
		return nil, ioerr.New(ioerr.CodeTIFFUnknownVersion, "tiff: unsupported version (not classic TIFF)")
	}
	ifdOffset := bo.Uint32(hdr[4:8])

	entryCountBuf := make([]byte, 2)
	if _, err := r.ReadAt(entryCountBuf, int64(ifdOffset)); err != nil {
		return nil, ioerr.Wrap(ioerr.CodeTIFFIncompleteHeader, err, "tiff: reading IFD entry count")
	}
	n := int(bo.Uint16(entryCountBuf))

	tags := make(map[uint16][]uint32)
	entries := make([]byte, n*12)
	if _, err := r.ReadAt(entries, int64(ifdOffset)+2); err != nil {
		return nil, ioerr.Wrap(ioerr.CodeTIFFIncompleteHeader, err, "tiff: reading IFD entries")
	}
	for i := 0; i < n; i++ {
		e := entries[i*12 : i*12+12]
		id := bo.Uint16(e[0:2])
		typ := bo.Uint16(e[2:4])
		count := bo.Uint32(e[4:8])
		vals, err := readTagValues(r, bo, typ, count, e[8:12])
		if err != nil {
			return nil, ioerr.Wrap(ioerr.CodeTIFFIncompleteField, err, "tiff: reading tag value")
		}
		tags[id] = vals
	}

	width := int(first(tags, tagImageWidth, 0))
	height := int(first(tags, tagImageLength, 0))
	if width <= 0 || height <= 0 {
		return nil, ioerr.New(ioerr.CodeInvalidDimensions, "tiff: invalid dimensions %dx%d", width, height)
	}
	if c := first(tags, tagCompression, 1); c != 1 {
		return nil, ioerr.New(ioerr.CodeTIFFCompressed, "tiff: compressed TIFF not supported")
	}
	if pc := first(tags, tagPlanarConfiguration, 1); pc != 1 {
		return nil, ioerr.New(ioerr.CodeTIFFUnsupportedPlanarConfig, "tiff: only chunky (planar config 1) supported")
	}
	samples := int(first(tags, tagSamplesPerPixel, 1))
	bitsList := tags[tagBitsPerSample]
	bits := 8
	if len(bitsList) > 0 {
		bits = int(bitsList[0])
		for _, b := range bitsList {
			if int(b) != bits {
				return nil, ioerr.New(ioerr.CodeTIFFMixedChannelBitDepths, "tiff: mixed channel bit depths not supported")
			}
		}
	}
	photometric := int(first(tags, tagPhotometricInterpretation, photoBlackIsZero))

	var fmtOut pixel.Format
	switch {
	case samples == 1 && bits == 8:
		fmtOut = pixel.MONO8
	case samples == 1 && bits == 16:
		fmtOut = pixel.MONO16
	case samples == 3 && bits == 8:
		fmtOut = pixel.RGB8
	case samples == 3 && bits == 16:
		fmtOut = pixel.RGB16
	default:
		return nil, ioerr.New(ioerr.CodeUnsupportedPixelFormat, "tiff: unsupported %d samples x %d bits", samples, bits)
	}
	if samples == 3 && photometric != photoRGB {
		return nil, ioerr.New(ioerr.CodeUnsupportedPixelFormat, "tiff: color image must be PhotometricInterpretation=RGB")
	}

	offsets := tags[tagStripOffsets]
	counts := tags[tagStripByteCounts]
	rowsPerStrip := int(first(tags, tagRowsPerStrip, uint32(height)))
	if len(offsets) == 0 || len(offsets) != len(counts) {
		return nil, ioerr.New(ioerr.CodeTIFFIncompleteHeader, "tiff: missing or mismatched strip tables")
	}

	im := pixel.New(width, height, fmtOut)
	row := 0
	for si := range offsets {
		n := int(counts[si])
		buf := make([]byte, n)
		if _, err := r.ReadAt(buf, int64(offsets[si])); err != nil {
			return nil, ioerr.Wrap(ioerr.CodeTIFFIncompletePixelData, err, "tiff: reading strip data")
		}
		rowsInStrip := rowsPerStrip
		if row+rowsInStrip > height {
			rowsInStrip = height - row
		}
		rowBytes := width * im.Format.BytesPerPixel()
		for ry := 0; ry < rowsInStrip; ry++ {
			src := buf[ry*rowBytes : ry*rowBytes+rowBytes]
			dstOff := im.RowOffset(row + ry)
			if bits == 16 && bo == binary.BigEndian {
				for i := 0; i+1 < len(src); i += 2 {
					im.Pix[dstOff+i] = src[i+1]
					im.Pix[dstOff+i+1] = src[i]
				}
			} else {
				copy(im.Pix[dstOff:dstOff+rowBytes], src)
			}
		}
		row += rowsInStrip
	}

	if samples == 1 && photometric == photoWhiteIsZero {
		invertMono(im)
	}
	return im, nil
}

func invertMono(im *pixel.Image) {
	if im.Format == pixel.MONO16 {
		for y := 0; y < im.Height; y++ {
			for x := 0; x < im.Width; x++ {
				im.SetUint16At(x, y, 0, 0xFFFF-im.Uint16At(x, y, 0))
			}
		}
		return
	}
	for i, v := range im.Pix {
		im.Pix[i] = 0xFF - v
	}
}

func first(tags map[uint16][]uint32, id uint16, def uint32) uint32 {
	if v, ok := tags[id]; ok && len(v) > 0 {
		return v[0]
	}
	return def
}

// readTagValues decodes a single IFD entry's value(s), following the
// offset in valueField if the inline 4 bytes can't hold them.
func readTagValues(r io.ReaderAt, bo binary.ByteOrder, typ uint16, count uint32, valueField []byte) ([]uint32, error) {
	var elemSize int
	switch typ {
	case 1, 2: // BYTE, ASCII
		elemSize = 1
	case 3: // SHORT
		elemSize = 2
	case 4: // LONG
		elemSize = 4
	default:
		elemSize = 4
	}
	total := int(count) * elemSize
	var data []byte
	if total <= 4 {
		data = valueField[:total]
	} else {
		off := bo.Uint32(valueField)
		data = make([]byte, total)
		if _, err := r.ReadAt(data, int64(off)); err != nil {
			return nil, err
		}
	}
	out := make([]uint32, count)
	for i := 0; i < int(count); i++ {
		switch elemSize {
		case 1:
			out[i] = uint32(data[i])
		case 2:
			out[i] = uint32(bo.Uint16(data[i*2 : i*2+2]))
		default:
			out[i] = bo.Uint32(data[i*4 : i*4+4])
		}
	}
	return out, nil
}

// Encode writes im (which must be MONO16 or RGB16) as a single-strip,
// uncompressed, little-endian TIFF.
func Encode(w io.Writer, im *pixel.Image) error {
	if im.Format != pixel.MONO16 && im.Format != pixel.RGB16 {
		return ioerr.New(ioerr.CodeUnsupportedPixelFormat, "tiff: Encode only supports MONO16/RGB16, got %s", im.Format)
	}
	bo := binary.LittleEndian
	samples := im.Format.Channels()
	photometric := uint32(photoBlackIsZero)
	if samples == 3 {
		photometric = photoRGB
	}

	const ifdOffset = 8
	tagList := []struct {
		id, typ uint16
		count   uint32
		value   uint32
	}{
		{tagImageWidth, 4, 1, uint32(im.Width)},
		{tagImageLength, 4, 1, uint32(im.Height)},
		{tagBitsPerSample, 3, 1, 16}, // one value, written for RGB too; it covers every sample.
		{tagCompression, 3, 1, 1},
		{tagPhotometricInterpretation, 3, 1, photometric},
		{tagSamplesPerPixel, 3, 1, uint32(samples)},
		{tagRowsPerStrip, 4, 1, uint32(im.Height)},
		{tagStripByteCounts, 4, 1, uint32(im.Width * im.Height * im.Format.BytesPerPixel())},
		{tagPlanarConfiguration, 3, 1, 1},
	}
	// StripOffsets value is filled in once we know the header+IFD size.
	numTags := len(tagList) + 1 // + StripOffsets
	ifdSize := 2 + numTags*12 + 4
	dataStart := ifdOffset + ifdSize

	hdr := make([]byte, 8)
	copy(hdr, []byte("II"))
	bo.PutUint16(hdr[2:4], 42)
	bo.PutUint32(hdr[4:8], ifdOffset)
	if _, err := w.Write(hdr); err != nil {
		return ioerr.Wrap(ioerr.CodeCannotOpenFile, err, "tiff: writing header")
	}

	buf := make([]byte, ifdSize)
	bo.PutUint16(buf[0:2], uint16(numTags))
	pos := 2
	putTag := func(id, typ uint16, count, value uint32) {
		bo.PutUint16(buf[pos:pos+2], id)
		bo.PutUint16(buf[pos+2:pos+4], typ)
		bo.PutUint32(buf[pos+4:pos+8], count)
		bo.PutUint32(buf[pos+8:pos+12], value)
		pos += 12
	}
	for _, t := range tagList {
		putTag(t.id, t.typ, t.count, t.value)
	}
	putTag(tagStripOffsets, 4, 1, uint32(dataStart))
	bo.PutUint32(buf[pos:pos+4], 0) // next IFD offset: none.

	if _, err := w.Write(buf); err != nil {
		return ioerr.Wrap(ioerr.CodeCannotOpenFile, err, "tiff: writing IFD")
	}
	if _, err := w.Write(im.Pix); err != nil {
		return ioerr.Wrap(ioerr.CodeCannotOpenFile, err, "tiff: writing pixel data")
	}
	return nil
}
