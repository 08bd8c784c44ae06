/*
NAME
  ser_test.go

DESCRIPTION
  ser_test.go provides testing for the SER reader in ser.go, using
  hand-built minimal SER buffers.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package ser

import (
	"encoding/binary"
	"testing"

	"github.com/starvane/skystack/internal/pixel"
)

func buildHeader(colorID int32, littleEndian, width, height, bitDepth, frameCount int32) []byte {
	h := make([]byte, headerSize)
	copy(h[0:14], []byte("LUCAM-RECORDER"))
	binary.LittleEndian.PutUint32(h[14:18], uint32(colorID))
	binary.LittleEndian.PutUint32(h[18:22], uint32(littleEndian))
	binary.LittleEndian.PutUint32(h[22:26], uint32(width))
	binary.LittleEndian.PutUint32(h[26:30], uint32(height))
	binary.LittleEndian.PutUint32(h[30:34], uint32(bitDepth))
	binary.LittleEndian.PutUint32(h[34:38], uint32(frameCount))
	return h
}

func TestOpenAndDecodeMono8(t *testing.T) {
	h := buildHeader(colorMono, 1, 2, 1, 8, 1)
	data := append(h, []byte{0x10, 0x20}...)

	r, err := Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if r.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", r.Count())
	}
	if r.Format() != pixel.MONO8 {
		t.Fatalf("Format() = %v, want MONO8", r.Format())
	}
	w, h2 := r.Dims()
	if w != 2 || h2 != 1 {
		t.Fatalf("Dims() = %dx%d, want 2x1", w, h2)
	}
	im, err := r.ImageAt(0)
	if err != nil {
		t.Fatalf("ImageAt: %v", err)
	}
	if im.Pix[0] != 0x10 || im.Pix[1] != 0x20 {
		t.Errorf("pixels = %v, want [0x10 0x20]", im.Pix)
	}
}

func TestOpenAndDecodeBGRBottomUpSwap(t *testing.T) {
	h := buildHeader(colorBGR, 1, 1, 2, 8, 1)
	// Two rows of one BGR pixel each; stored bottom-up, so row0-on-disk is
	// the image's last row.
	frame := []byte{
		1, 2, 3, // bottom row on disk -> image row 1
		4, 5, 6, // top row on disk -> image row 0
	}
	data := append(h, frame...)

	r, err := Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	im, err := r.ImageAt(0)
	if err != nil {
		t.Fatalf("ImageAt: %v", err)
	}
	// row 0 of the image should be the disk's second row (4,5,6) with B/R
	// swapped to RGB order.
	row0 := im.Pix[im.RowOffset(0) : im.RowOffset(0)+3]
	if row0[0] != 6 || row0[1] != 5 || row0[2] != 4 {
		t.Errorf("row0 = %v, want [6 5 4]", row0)
	}
	row1 := im.Pix[im.RowOffset(1) : im.RowOffset(1)+3]
	if row1[0] != 3 || row1[1] != 2 || row1[2] != 1 {
		t.Errorf("row1 = %v, want [3 2 1]", row1)
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	data := make([]byte, headerSize)
	if _, err := Open(data); err == nil {
		t.Fatal("Open: expected error, got nil")
	}
}

func TestOpenRejectsTruncatedFrames(t *testing.T) {
	h := buildHeader(colorMono, 1, 4, 4, 8, 2)
	if _, err := Open(h); err == nil {
		t.Fatal("Open: expected error for missing frame data, got nil")
	}
}
