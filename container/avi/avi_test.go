/*
NAME
  avi_test.go

DESCRIPTION
  avi_test.go provides testing for the AVI reader in avi.go, using
  hand-built minimal RIFF/AVI buffers.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package avi

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/starvane/skystack/internal/pixel"
)

// buildMinimalAVI constructs a 1-frame, 2x1, Y800 (MONO8) AVI file with a
// movi-data-relative idx1 index.
func buildMinimalAVI(t *testing.T) []byte {
	t.Helper()
	var strf bytes.Buffer
	bih := make([]byte, 40)
	binary.LittleEndian.PutUint32(bih[0:4], 40)
	binary.LittleEndian.PutUint32(bih[4:8], 2)  // width
	binary.LittleEndian.PutUint32(bih[8:12], 1) // height (top-down would be negative)
	binary.LittleEndian.PutUint16(bih[14:16], 8)
	copy(bih[16:20], []byte(fourCCY800))
	strf.Write(bih)

	strh := make([]byte, 4)
	copy(strh[0:4], []byte(fourCCvids))

	var strl bytes.Buffer
	writeChunk(&strl, fourCCstrh, strh)
	writeChunk(&strl, fourCCstrf, strf.Bytes())

	var strlChunk bytes.Buffer
	writeList(&strlChunk, fourCCstrl, strl.Bytes())

	frameData := []byte{0x11, 0x22, 0, 0} // 2 mono8 pixels, padded to a 4-byte row

	var movi bytes.Buffer
	writeChunk(&movi, "00db", frameData)

	var idx1 bytes.Buffer
	// offset is relative to the movi list's data start (right after "movi").
	idxEntry := make([]byte, 16)
	copy(idxEntry[0:4], []byte("00db"))
	binary.LittleEndian.PutUint32(idxEntry[8:12], 0)
	binary.LittleEndian.PutUint32(idxEntry[12:16], uint32(len(frameData)))
	idx1.Write(idxEntry)

	var riffBody bytes.Buffer
	riffBody.WriteString(fourCCAVI)
	writeList(&riffBody, fourCChdrl, strlChunk.Bytes())
	var moviList bytes.Buffer
	writeList(&moviList, fourCCmovi, movi.Bytes())
	riffBody.Write(moviList.Bytes())
	writeChunk(&riffBody, fourCCidx1, idx1.Bytes())

	var out bytes.Buffer
	writeChunk(&out, fourCCRIFF, riffBody.Bytes())
	return out.Bytes()
}

func writeChunk(buf *bytes.Buffer, id string, body []byte) {
	buf.WriteString(id)
	var sz [4]byte
	binary.LittleEndian.PutUint32(sz[:], uint32(len(body)))
	buf.Write(sz[:])
	buf.Write(body)
	if len(body)%2 == 1 {
		buf.WriteByte(0)
	}
}

func writeList(buf *bytes.Buffer, listType string, body []byte) {
	var inner bytes.Buffer
	inner.WriteString(listType)
	inner.Write(body)
	writeChunk(buf, fourCCLIST, inner.Bytes())
}

func TestOpenAndDecodeMinimalAVI(t *testing.T) {
	data := buildMinimalAVI(t)
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
	w, h := r.Dims()
	if w != 2 || h != 1 {
		t.Fatalf("Dims() = %dx%d, want 2x1", w, h)
	}
	im, err := r.ImageAt(0)
	if err != nil {
		t.Fatalf("ImageAt: %v", err)
	}
	if im.Pix[0] != 0x11 || im.Pix[1] != 0x22 {
		t.Errorf("pixels = %v, want [0x11 0x22]", im.Pix)
	}
}

func TestOpenRejectsNonRIFF(t *testing.T) {
	if _, err := Open([]byte("not an avi file")); err == nil {
		t.Fatal("Open: expected error, got nil")
	}
}
