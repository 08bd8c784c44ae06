/*
NAME
  conversion.go

DESCRIPTION
  conversion.go implements pixel format conversion to any non-CFA
  destination, optionally restricted to a sub-rectangle, and the rectangle
  copy/translate primitive used by the stacking stages to move pixels
  between image and composite space.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package pixel

import "fmt"

// semantic channel indices used by the generic conversion path; equal to
// chanR/chanG/chanB for color formats, with chanA for an optional alpha.
const chanA = 3

// channelOrder returns, for format f, the byte-channel position of each
// semantic channel (R/M, G, B, [A]). Every format except BGRA8 stores
// channels in semantic order; BGRA8 stores blue, green, red, alpha.
func channelOrder(f Format) []int {
	if f == BGRA8 {
		return []int{2, 1, 0, 3} // semantic R,G,B,A -> byte pos 2,1,0,3
	}
	order := make([]int, f.Channels())
	for i := range order {
		order[i] = i
	}
	return order
}

// getChannel reads semantic channel ch (0=R/mono,1=G,2=B,3=A) of pixel
// (x,y) in im, returning its raw numeric value (not normalized); callers
// interpret it against im.Format's bit depth/float-ness themselves.
func getChannel(im *Image, x, y, ch int) float64 {
	pos := channelOrder(im.Format)[ch]
	switch im.Format.BitsPerChannel() {
	case 8:
		return float64(im.Pix[im.RowOffset(y)+x*im.Format.Channels()+pos])
	case 16:
		return float64(im.Uint16At(x, y, pos))
	case 32:
		return float64(im.Float32At(x, y, pos))
	case 64:
		return im.Float64At(x, y, pos)
	}
	panic("pixel: unsupported bit depth")
}

func setChannel(im *Image, x, y, ch int, v float64) {
	pos := channelOrder(im.Format)[ch]
	switch im.Format.BitsPerChannel() {
	case 8:
		im.Pix[im.RowOffset(y)+x*im.Format.Channels()+pos] = byte(v)
	case 16:
		im.SetUint16At(x, y, pos, uint16(v))
	case 32:
		im.SetFloat32At(x, y, pos, float32(v))
	case 64:
		im.SetFloat64At(x, y, pos, v)
	}
}

// convertSample converts a single raw sample from a format of the given
// (srcBits,srcFloat) to (dstBits,dstFloat), per spec §4.1: integer<->integer
// is a left/right bit shift, integer->float divides by the integer's max
// value, float->integer multiplies and clamps (clamping happens only here),
// float->float is a direct cast (not clamped).
func convertSample(v float64, srcBits int, srcFloat bool, dstBits int, dstFloat bool) float64 {
	switch {
	case !srcFloat && !dstFloat:
		if dstBits >= srcBits {
			return v * float64(uint64(1)<<uint(dstBits-srcBits))
		}
		return float64(uint64(v) >> uint(srcBits-dstBits))
	case !srcFloat && dstFloat:
		return v / float64((uint64(1)<<uint(srcBits))-1)
	case srcFloat && !dstFloat:
		max := float64((uint64(1) << uint(dstBits)) - 1)
		scaled := v * max
		if scaled < 0 {
			scaled = 0
		}
		if scaled > max {
			scaled = max
		}
		return scaled + 0.5 // truncated to integer on write via byte/uint16 cast.
	default: // float -> float
		return v
	}
}

// Convert produces a copy of src restricted to rect (src.Bounds() for the
// whole image) in pixel format dstFmt, which must not be a CFA format. CFA
// sources are demosaiced (directly to the destination depth/channel count
// when possible, otherwise via an intermediate RGB of matching depth).
func Convert(src *Image, rect Rect, dstFmt Format) (*Image, error) {
	if dstFmt.IsCFA() {
		return nil, fmt.Errorf("pixel: Convert destination must not be a CFA format")
	}

	cropped := crop(src, rect)

	if cropped.Format.IsCFA() {
		switch dstFmt {
		case MONO8, MONO16, RGB8, RGB16:
			depth := formatTable[cropped.Format].cfaBaseMono
			want16 := dstFmt == MONO16 || dstFmt == RGB16
			if (depth == 16) == want16 {
				return Demosaic(cropped, HQLinear, dstFmt)
			}
		}
		rgb, err := Demosaic(cropped, HQLinear, rgbFormatForDepth(formatTable[cropped.Format].cfaBaseMono))
		if err != nil {
			return nil, err
		}
		return Convert(rgb, rgb.Bounds(), dstFmt)
	}

	if cropped.Format == dstFmt {
		return cropped, nil
	}

	if cropped.Format == PAL8 {
		rgb := paletteToRGB8(cropped)
		return Convert(rgb, rgb.Bounds(), dstFmt)
	}

	out := New(cropped.Width, cropped.Height, dstFmt)
	srcMono := cropped.Format.Channels() == 1
	dstMono := dstFmt.Channels() == 1
	srcBits, srcFloat := cropped.Format.BitsPerChannel(), cropped.Format.IsFloat()
	dstBits, dstFloat := dstFmt.BitsPerChannel(), dstFmt.IsFloat()

	for y := 0; y < cropped.Height; y++ {
		for x := 0; x < cropped.Width; x++ {
			switch {
			case srcMono && dstMono:
				v := convertSample(getChannel(cropped, x, y, 0), srcBits, srcFloat, dstBits, dstFloat)
				setChannel(out, x, y, 0, v)
			case srcMono && !dstMono:
				v := convertSample(getChannel(cropped, x, y, 0), srcBits, srcFloat, dstBits, dstFloat)
				for ch := 0; ch < 3; ch++ {
					setChannel(out, x, y, ch, v)
				}
				if dstFmt == BGRA8 {
					setChannel(out, x, y, chanA, 255)
				} else if dstFmt == RGBA16 {
					setChannel(out, x, y, chanA, float64(dstFmt.MaxValue()))
				}
			case !srcMono && dstMono:
				mean := (getChannel(cropped, x, y, chanR) + getChannel(cropped, x, y, chanG) + getChannel(cropped, x, y, chanB)) / 3
				v := convertSample(mean, srcBits, srcFloat, dstBits, dstFloat)
				setChannel(out, x, y, 0, v)
			default:
				for ch := 0; ch < 3; ch++ {
					v := convertSample(getChannel(cropped, x, y, ch), srcBits, srcFloat, dstBits, dstFloat)
					setChannel(out, x, y, ch, v)
				}
				if dstFmt == BGRA8 {
					setChannel(out, x, y, chanA, 255)
				} else if dstFmt == RGBA16 {
					setChannel(out, x, y, chanA, float64(dstFmt.MaxValue()))
				}
			}
		}
	}
	return out, nil
}

func paletteToRGB8(im *Image) *Image {
	out := New(im.Width, im.Height, RGB8)
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			idx := im.Pix[im.RowOffset(y)+x]
			c := im.Palette[idx]
			off := out.RowOffset(y) + x*3
			out.Pix[off] = c[0]
			out.Pix[off+1] = c[1]
			out.Pix[off+2] = c[2]
		}
	}
	return out
}

// crop returns a same-format copy of src restricted to rect, intersected
// with src's bounds. For CFA sources with an odd-offset rect, the result's
// format tag is rotated via TranslatePattern so the demosaicer sees its
// canonical variant.
func crop(src *Image, rect Rect) *Image {
	rect = rect.Intersect(src.Bounds())
	out := New(rect.Dx(), rect.Dy(), src.Format)
	if src.Format == PAL8 {
		p := *src.Palette
		out.Palette = &p
	}
	rowBytes := rect.Dx() * src.Format.BytesPerPixel()
	for y := 0; y < rect.Dy(); y++ {
		srcOff := src.RowOffset(rect.Min.Y+y) + rect.Min.X*src.Format.BytesPerPixel()
		dstOff := out.RowOffset(y)
		copy(out.Pix[dstOff:dstOff+rowBytes], src.Pix[srcOff:srcOff+rowBytes])
	}
	if src.Format.IsCFA() && (rect.Min.X&1 != 0 || rect.Min.Y&1 != 0) {
		out.Format = TranslatePattern(src.Format, rect.Min.X, rect.Min.Y)
	}
	return out
}

// ResizeAndTranslate copies srcRect of src into dst at dstOrigin, clipping
// independently against both images' bounds. If clear is true, destination
// regions not covered by the copy are zeroed first.
func ResizeAndTranslate(dst, src *Image, srcRect Rect, dstOrigin Point, clear bool) error {
	if dst.Format != src.Format {
		return fmt.Errorf("pixel: ResizeAndTranslate requires matching formats, got %s and %s", src.Format, dst.Format)
	}
	if clear {
		for i := range dst.Pix {
			dst.Pix[i] = 0
		}
	}
	srcRect = srcRect.Intersect(src.Bounds())
	dstRect := Rect{Min: dstOrigin, Max: dstOrigin.Add(srcRect.Size())}.Intersect(dst.Bounds())
	w := dstRect.Dx()
	if sw := srcRect.Dx(); sw < w {
		w = sw
	}
	h := dstRect.Dy()
	if sh := srcRect.Dy(); sh < h {
		h = sh
	}
	bpp := src.Format.BytesPerPixel()
	rowBytes := w * bpp
	for y := 0; y < h; y++ {
		srcOff := src.RowOffset(srcRect.Min.Y+y) + srcRect.Min.X*bpp
		dstOff := dst.RowOffset(dstRect.Min.Y+y) + dstRect.Min.X*bpp
		copy(dst.Pix[dstOff:dstOff+rowBytes], src.Pix[srcOff:srcOff+rowBytes])
	}
	return nil
}
