/*
NAME
  avi.go

DESCRIPTION
  avi.go reads uncompressed-DIB and Y800 AVI video: RIFF/AVI -> hdrl ->
  avih + strl/strh/strf (+ palette for 8-bit) -> movi frame data -> idx1
  frame index. The idx1 offset field is, depending on the writer, either
  relative to the movi list or an absolute file offset; this is detected
  heuristically by probing the first frame.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

// Package avi provides read-only access to uncompressed AVI video, used
// by source as one of the two video container backends.
package avi

import (
	"encoding/binary"

	"github.com/starvane/skystack/internal/ioerr"
	"github.com/starvane/skystack/internal/pixel"
)

const (
	fourCCRIFF = "RIFF"
	fourCCAVI  = "AVI "
	fourCCLIST = "LIST"
	fourCChdrl = "hdrl"
	fourCCavih = "avih"
	fourCCstrl = "strl"
	fourCCstrh = "strh"
	fourCCstrf = "strf"
	fourCCmovi = "movi"
	fourCCidx1 = "idx1"
	fourCCvids = "vids"
	fourCCDIB  = "DIB "
	fourCCY800 = "Y800"
)

// frameEntry locates one frame's data: the absolute file offset of its
// chunk payload (past the 8-byte chunk header) and the payload size.
type frameEntry struct {
	offset uint32
	size   uint32
}

// Reader provides random-access, per-frame decoding of an uncompressed AVI
// file already fully read into memory (lucky-imaging sequences are short
// enough that streaming decode isn't necessary).
type Reader struct {
	data    []byte
	width   int
	height  int
	format  pixel.Format
	palette *pixel.Pal
	frames  []frameEntry
	topDown bool
}

// Open parses an AVI file's structure (header + index) from data, which
// must hold the complete file contents.
func Open(data []byte) (*Reader, error) {
	if len(data) < 12 || string(data[0:4]) != fourCCRIFF || string(data[8:12]) != fourCCAVI {
		return nil, ioerr.New(ioerr.CodeAVIMalformed, "avi: not a RIFF/AVI file")
	}
	r := &Reader{data: data}
	var moviListOffset, moviDataOffset uint32
	var idx1Data []byte

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		body := pos + 8
		switch id {
		case fourCCLIST:
			if body+4 > len(data) {
				return nil, ioerr.New(ioerr.CodeAVIMalformed, "avi: truncated LIST chunk")
			}
			listType := string(data[body : body+4])
			switch listType {
			case fourCChdrl:
				if err := r.parseHdrl(data[body+4 : body+int(size)]); err != nil {
					return nil, err
				}
			case "movi":
				moviListOffset = uint32(body)
				moviDataOffset = uint32(body + 4)
			}
		case fourCCidx1:
			idx1Data = data[body : body+int(size)]
		}
		pos = body + int(size)
		if size%2 == 1 { // chunks are word-aligned.
			pos++
		}
	}
	if r.width == 0 || r.height == 0 {
		return nil, ioerr.New(ioerr.CodeAVIMalformed, "avi: missing stream header/format")
	}
	if idx1Data == nil {
		return nil, ioerr.New(ioerr.CodeAVIUnsupported, "avi: missing idx1 index (indexless AVI not supported)")
	}

	entries := parseIdx1(idx1Data)
	if len(entries) == 0 {
		return nil, ioerr.New(ioerr.CodeAVIMalformed, "avi: empty idx1 index")
	}
	// Heuristic: idx1 offsets are relative to the movi list's data start,
	// relative to its list-type field, or absolute file offsets. Probe the
	// first entry in that order and pick the first base that lands on a
	// valid chunk ID (the data start if none does).
	base := moviDataOffset
	switch {
	case looksLikeChunk(data, moviDataOffset+entries[0].offset):
	case looksLikeChunk(data, moviListOffset+entries[0].offset):
		base = moviListOffset
	case looksLikeChunk(data, entries[0].offset):
		base = 0
	}
	for _, e := range entries {
		chunkStart := base + e.offset
		if int(chunkStart)+8 > len(data) {
			continue
		}
		r.frames = append(r.frames, frameEntry{offset: chunkStart + 8, size: binary.LittleEndian.Uint32(data[chunkStart+4 : chunkStart+8])})
	}
	return r, nil
}

func looksLikeChunk(data []byte, off uint32) bool {
	if int(off)+4 > len(data) {
		return false
	}
	id := string(data[off : off+4])
	return id == "00db" || id == "00dc" || id == "01wb"
}

func parseIdx1(d []byte) []frameEntry {
	var out []frameEntry
	for pos := 0; pos+16 <= len(d); pos += 16 {
		id := string(d[pos : pos+4])
		if id != "00db" && id != "00dc" {
			continue
		}
		offset := binary.LittleEndian.Uint32(d[pos+8 : pos+12])
		size := binary.LittleEndian.Uint32(d[pos+12 : pos+16])
		out = append(out, frameEntry{offset: offset, size: size})
	}
	return out
}

func (r *Reader) parseHdrl(hdrl []byte) error {
	pos := 0
	for pos+8 <= len(hdrl) {
		id := string(hdrl[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(hdrl[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(hdrl) {
			return ioerr.New(ioerr.CodeAVIMalformed, "avi: truncated hdrl chunk %q", id)
		}
		switch id {
		case fourCCLIST:
			if size < 4 {
				return ioerr.New(ioerr.CodeAVIMalformed, "avi: truncated strl LIST")
			}
			if string(hdrl[body:body+4]) == fourCCstrl {
				if err := r.parseStrl(hdrl[body+4 : body+size]); err != nil {
					return err
				}
			}
		}
		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}
	return nil
}

func (r *Reader) parseStrl(strl []byte) error {
	var isVideo bool
	pos := 0
	for pos+8 <= len(strl) {
		id := string(strl[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(strl[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(strl) {
			return ioerr.New(ioerr.CodeAVIMalformed, "avi: truncated strl entry %q", id)
		}
		switch id {
		case fourCCstrh:
			if size >= 4 && string(strl[body:body+4]) == fourCCvids {
				isVideo = true
			}
		case fourCCstrf:
			if isVideo {
				if err := r.parseBitmapInfoHeader(strl[body : body+size]); err != nil {
					return err
				}
			}
		}
		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}
	return nil
}

// parseBitmapInfoHeader reads the BITMAPINFOHEADER found in a video
// stream's strf chunk, identical in layout to container/bmp's info header.
func (r *Reader) parseBitmapInfoHeader(b []byte) error {
	if len(b) < 40 {
		return ioerr.New(ioerr.CodeAVIMalformed, "avi: truncated BITMAPINFOHEADER")
	}
	width := int(int32(binary.LittleEndian.Uint32(b[4:8])))
	height := int(int32(binary.LittleEndian.Uint32(b[8:12])))
	bitCount := binary.LittleEndian.Uint16(b[14:16])
	compression := string(b[16:20])
	if width <= 0 || height == 0 {
		return ioerr.New(ioerr.CodeInvalidDimensions, "avi: invalid dimensions %dx%d", width, height)
	}
	r.topDown = height < 0
	if r.topDown {
		height = -height
	}
	r.width, r.height = width, height

	switch {
	case compression == fourCCY800 || (compression == "\x00\x00\x00\x00" && bitCount == 8):
		r.format = pixel.MONO8
		if bitCount == 8 && compression != fourCCY800 {
			r.format = pixel.PAL8
			pal := &pixel.Pal{}
			palStart := 40
			for i := 0; i < 256 && palStart+i*4+4 <= len(b); i++ {
				pal[i][0] = b[palStart+i*4+2]
				pal[i][1] = b[palStart+i*4+1]
				pal[i][2] = b[palStart+i*4+0]
			}
			r.palette = pal
		}
	case bitCount == 24 && compression == "\x00\x00\x00\x00":
		r.format = pixel.RGB8
	case bitCount == 32 && compression == "\x00\x00\x00\x00":
		r.format = pixel.BGRA8
	default:
		return ioerr.New(ioerr.CodeAVIUnsupported, "avi: unsupported compression/bitcount %q/%d", compression, bitCount)
	}
	return nil
}

// Count returns the number of frames found in the idx1 index.
func (r *Reader) Count() int { return len(r.frames) }

// Format returns the pixel format every frame decodes to.
func (r *Reader) Format() pixel.Format { return r.format }

// Dims returns the frame dimensions without decoding any pixel data.
func (r *Reader) Dims() (width, height int) { return r.width, r.height }

// ImageAt decodes frame i.
func (r *Reader) ImageAt(i int) (*pixel.Image, error) {
	if i < 0 || i >= len(r.frames) {
		return nil, ioerr.New(ioerr.CodeInvalidParameters, "avi: frame index %d out of range", i)
	}
	e := r.frames[i]
	if int(e.offset)+int(e.size) > len(r.data) {
		return nil, ioerr.New(ioerr.CodeAVIMalformed, "avi: frame %d data out of bounds", i)
	}
	raw := r.data[e.offset : e.offset+e.size]

	im := pixel.New(r.width, r.height, r.format)
	if r.palette != nil {
		p := *r.palette
		im.Palette = &p
	}
	rowBytes := r.width * r.format.BytesPerPixel()
	paddedRowBytes := (rowBytes + 3) &^ 3
	for y := 0; y < r.height; y++ {
		srcRow := y
		if !r.topDown {
			srcRow = r.height - 1 - y
		}
		srcOff := srcRow * paddedRowBytes
		if srcOff+rowBytes > len(raw) {
			return nil, ioerr.New(ioerr.CodeAVIMalformed, "avi: frame %d shorter than expected", i)
		}
		copy(im.Pix[im.RowOffset(y):im.RowOffset(y)+rowBytes], raw[srcOff:srcOff+rowBytes])
	}
	return im, nil
}
