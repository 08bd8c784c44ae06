/*
NAME
  conversion_test.go

DESCRIPTION
  conversion_test.go provides testing for the format conversion and
  rectangle copy routines in conversion.go.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package pixel

import "testing"

func TestConvertMono8ToMono16(t *testing.T) {
	src := New(2, 2, MONO8)
	src.SetMono8At(0, 0, 0x00)
	src.SetMono8At(1, 0, 0xFF)
	src.SetMono8At(0, 1, 0x80)
	src.SetMono8At(1, 1, 0x01)

	dst, err := Convert(src, src.Bounds(), MONO16)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	tests := []struct {
		x, y int
		want uint16
	}{
		{0, 0, 0x0000},
		{1, 0, 0xFF00},
		{0, 1, 0x8000},
		{1, 1, 0x0100},
	}
	for _, tc := range tests {
		if got := dst.Uint16At(tc.x, tc.y, 0); got != tc.want {
			t.Errorf("Uint16At(%d,%d) = %#x, want %#x", tc.x, tc.y, got, tc.want)
		}
	}
}

func TestConvertMono16ToMono8Truncates(t *testing.T) {
	src := New(1, 1, MONO16)
	src.SetUint16At(0, 0, 0, 0xFF80)

	dst, err := Convert(src, src.Bounds(), MONO8)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if got, want := dst.Mono8At(0, 0), uint8(0xFF); got != want {
		t.Errorf("Mono8At(0,0) = %#x, want %#x", got, want)
	}
}

func TestConvertMonoToRGBReplicates(t *testing.T) {
	src := New(1, 1, MONO8)
	src.SetMono8At(0, 0, 0x42)

	dst, err := Convert(src, src.Bounds(), RGB8)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	for ch := 0; ch < 3; ch++ {
		if got := dst.Pix[ch]; got != 0x42 {
			t.Errorf("channel %d = %#x, want 0x42", ch, got)
		}
	}
}

func TestConvertRGBToMonoAverages(t *testing.T) {
	src := New(1, 1, RGB8)
	src.Pix[0], src.Pix[1], src.Pix[2] = 9, 12, 15

	dst, err := Convert(src, src.Bounds(), MONO8)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if got, want := dst.Mono8At(0, 0), uint8(12); got != want {
		t.Errorf("Mono8At(0,0) = %d, want %d", got, want)
	}
}

func TestConvertSameFormatIsCopy(t *testing.T) {
	src := New(2, 2, MONO8)
	for i := range src.Pix {
		src.Pix[i] = byte(i + 1)
	}
	dst, err := Convert(src, src.Bounds(), MONO8)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	dst.Pix[0] = 0xFF
	if src.Pix[0] == 0xFF {
		t.Fatalf("Convert did not return an independent copy")
	}
}

func TestConvertBGRA8ChannelOrder(t *testing.T) {
	src := New(1, 1, BGRA8)
	src.Pix[0], src.Pix[1], src.Pix[2], src.Pix[3] = 10, 20, 30, 255 // B,G,R,A

	dst, err := Convert(src, src.Bounds(), RGB8)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if dst.Pix[0] != 30 || dst.Pix[1] != 20 || dst.Pix[2] != 10 {
		t.Errorf("RGB8 pixel = %v, want [30 20 10]", dst.Pix[:3])
	}
}

func TestResizeAndTranslate(t *testing.T) {
	src := New(4, 4, MONO8)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.SetMono8At(x, y, byte(y*4+x+1))
		}
	}
	dst := New(4, 4, MONO8)
	if err := ResizeAndTranslate(dst, src, Rect{Min: Pt(1, 1), Max: Pt(3, 3)}, Pt(0, 0), true); err != nil {
		t.Fatalf("ResizeAndTranslate: %v", err)
	}
	want := [][2]int{{1, 1}, {2, 1}, {1, 2}, {2, 2}}
	for _, p := range want {
		srcV := src.Mono8At(p[0], p[1])
		dstV := dst.Mono8At(p[0]-1, p[1]-1)
		if srcV != dstV {
			t.Errorf("translated pixel (%d,%d) = %d, want %d", p[0]-1, p[1]-1, dstV, srcV)
		}
	}
	if dst.Mono8At(3, 3) != 0 {
		t.Errorf("uncovered region not cleared: got %d", dst.Mono8At(3, 3))
	}
}

func TestCropCFARotatesPattern(t *testing.T) {
	src := New(4, 4, CFA_RGGB8)
	cropped := crop(src, Rect{Min: Pt(1, 0), Max: Pt(3, 2)})
	if cropped.Format != CFA_GRBG8 {
		t.Errorf("cropped CFA format = %v, want %v", cropped.Format, CFA_GRBG8)
	}
}
