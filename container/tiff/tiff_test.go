/*
NAME
  tiff_test.go

DESCRIPTION
  tiff_test.go provides testing for the TIFF decode/encode routines in
  tiff.go.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package tiff

import (
	"bytes"
	"testing"

	"github.com/starvane/skystack/internal/pixel"
)

func TestEncodeDecodeMono16RoundTrip(t *testing.T) {
	im := pixel.New(2, 2, pixel.MONO16)
	vals := []uint16{0x0001, 0x0203, 0x0405, 0xFFFF}
	i := 0
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			im.SetUint16At(x, y, 0, vals[i])
			i++
		}
	}

	var buf bytes.Buffer
	if err := Encode(&buf, im); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Format != pixel.MONO16 {
		t.Fatalf("Format = %v, want MONO16", got.Format)
	}
	i = 0
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if g := got.Uint16At(x, y, 0); g != vals[i] {
				t.Errorf("pixel (%d,%d) = %#x, want %#x", x, y, g, vals[i])
			}
			i++
		}
	}
}

func TestEncodeDecodeRGB16RoundTrip(t *testing.T) {
	im := pixel.New(1, 1, pixel.RGB16)
	im.SetUint16At(0, 0, 0, 100)
	im.SetUint16At(0, 0, 1, 200)
	im.SetUint16At(0, 0, 2, 300)

	var buf bytes.Buffer
	if err := Encode(&buf, im); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Format != pixel.RGB16 {
		t.Fatalf("Format = %v, want RGB16", got.Format)
	}
	if got.Uint16At(0, 0, 0) != 100 || got.Uint16At(0, 0, 1) != 200 || got.Uint16At(0, 0, 2) != 300 {
		t.Errorf("pixel = (%d,%d,%d), want (100,200,300)", got.Uint16At(0, 0, 0), got.Uint16At(0, 0, 1), got.Uint16At(0, 0, 2))
	}
}

func TestEncodeRejectsUnsupportedFormat(t *testing.T) {
	im := pixel.New(1, 1, pixel.MONO8)
	var buf bytes.Buffer
	if err := Encode(&buf, im); err == nil {
		t.Fatal("Encode: expected error for MONO8, got nil")
	}
}
