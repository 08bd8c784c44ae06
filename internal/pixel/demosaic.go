/*
NAME
  demosaic.go

DESCRIPTION
  demosaic.go reconstructs full-channel RGB (or luma-only mono) images from a
  single-channel CFA (Bayer) mosaic using one of two methods: SIMPLE (box
  interpolation of the missing channels from same-channel neighbours) and
  HQLINEAR (the Malvar-He-Cutler gradient-corrected 5x5 linear filter). Both
  process 2x2 blocks starting at (2,2); the border (2px top/left, 3px
  right/bottom) is copied from the nearest interior pixel rather than
  demosaiced, matching libwebp's own treatment of filter edges in its
  diamond-kernel chroma upsampler (internal/dsp/upsample.go in the sibling
  image-codec corpus): fixed integer taps with a rounding bias, clamped on
  write.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package pixel

import "fmt"

// DemosaicMethod selects the debayer algorithm.
type DemosaicMethod int

const (
	Simple DemosaicMethod = iota
	HQLinear
)

const (
	borderTopLeft    = 2
	borderBottomRight = 3
	minDemosaicSize  = 6
)

// Demosaic reconstructs a full image from a CFA mosaic src, producing dst of
// format dstFmt, which must be MONO8/MONO16/RGB8/RGB16 matching the CFA's bit
// depth. Images smaller than 6x6 are not demosaiced: their samples are
// returned unchanged as the matching mono format, replicated into every
// channel when dstFmt is RGB.
func Demosaic(src *Image, method DemosaicMethod, dstFmt Format) (*Image, error) {
	pat, ok := cfaPatternOf[src.Format]
	if !ok {
		return nil, fmt.Errorf("pixel: Demosaic source format %s is not CFA", src.Format)
	}
	depth := formatTable[src.Format].cfaBaseMono
	switch dstFmt {
	case MONO8, RGB8:
		if depth != 8 {
			return nil, fmt.Errorf("pixel: Demosaic depth mismatch: CFA is %d-bit, dst %s", depth, dstFmt)
		}
	case MONO16, RGB16:
		if depth != 16 {
			return nil, fmt.Errorf("pixel: Demosaic depth mismatch: CFA is %d-bit, dst %s", depth, dstFmt)
		}
	default:
		return nil, fmt.Errorf("pixel: Demosaic unsupported destination format %s", dstFmt)
	}

	if src.Width < minDemosaicSize || src.Height < minDemosaicSize {
		out := src.Clone()
		out.Format = MONO8
		if depth == 16 {
			out.Format = MONO16
		}
		if dstFmt == out.Format {
			return out, nil
		}
		return Convert(out, out.Bounds(), dstFmt)
	}

	rgb := New(src.Width, src.Height, rgbFormatForDepth(depth))
	maxVal := int32(rgb.Format.MaxValue())

	get := sampleFuncFor(src, depth)

	for y := borderTopLeft; y < src.Height-borderBottomRight; y += 2 {
		for x := borderTopLeft; x < src.Width-borderBottomRight; x += 2 {
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					px, py := x+dx, y+dy
					r, g, b := demosaicPixel(get, pat, px, py, method, maxVal)
					setRGB(rgb, px, py, r, g, b, depth)
				}
			}
		}
	}
	fillBorder(rgb, depth)

	if dstFmt == MONO8 || dstFmt == MONO16 {
		return Convert(rgb, rgb.Bounds(), dstFmt)
	}
	return rgb, nil
}

func rgbFormatForDepth(depth int) Format {
	if depth == 16 {
		return RGB16
	}
	return RGB8
}

func sampleFuncFor(im *Image, depth int) func(x, y int) int32 {
	if depth == 16 {
		return func(x, y int) int32 {
			off := im.RowOffset(y) + x*2
			return int32(uint16(im.Pix[off]) | uint16(im.Pix[off+1])<<8)
		}
	}
	return func(x, y int) int32 { return int32(im.Pix[im.RowOffset(y)+x]) }
}

func setRGB(im *Image, x, y int, r, g, b int32, depth int) {
	if depth == 16 {
		off := im.RowOffset(y) + x*6
		putU16(im.Pix[off:], uint16(r))
		putU16(im.Pix[off+2:], uint16(g))
		putU16(im.Pix[off+4:], uint16(b))
		return
	}
	off := im.RowOffset(y) + x*3
	im.Pix[off] = byte(r)
	im.Pix[off+1] = byte(g)
	im.Pix[off+2] = byte(b)
}

func putU16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

// demosaicPixel computes the reconstructed (r,g,b) triple at (x,y).
func demosaicPixel(get func(x, y int) int32, pat cfaPattern, x, y int, method DemosaicMethod, maxVal int32) (r, g, b int32) {
	own := channelAt(pat, x, y)
	out := [3]int32{}
	out[own] = get(x, y)

	if own == chanG {
		// Estimate the two primaries from their nearest same-channel
		// neighbours, orientation determined by which axis carries that
		// primary at distance 1.
		horizColor := channelAt(pat, x-1, y)
		vertColor := channelAt(pat, x, y-1)
		for _, c := range [2]int{horizColor, vertColor} {
			horizontal := c == horizColor
			if method == HQLinear {
				out[c] = clamp32(hqGreenCross(get, x, y, horizontal), maxVal)
			} else {
				if horizontal {
					out[c] = avg2(get(x-1, y), get(x+1, y))
				} else {
					out[c] = avg2(get(x, y-1), get(x, y+1))
				}
			}
		}
	} else {
		other := chanR
		if own == chanR {
			other = chanB
		}
		if method == HQLinear {
			out[chanG] = clamp32(hqGreenAtPrimary(get, x, y), maxVal)
			out[other] = clamp32(hqOppositePrimary(get, x, y), maxVal)
		} else {
			out[chanG] = avg4ortho(get, x, y)
			out[other] = avg4diag(get, x, y)
		}
	}
	return out[chanR], out[chanG], out[chanB]
}

func avg2(a, b int32) int32 { return (a + b + 1) / 2 }

func avg4ortho(get func(x, y int) int32, x, y int) int32 {
	sum := get(x-1, y) + get(x+1, y) + get(x, y-1) + get(x, y+1)
	return (sum + 2) / 4
}

func avg4diag(get func(x, y int) int32, x, y int) int32 {
	sum := get(x-1, y-1) + get(x+1, y-1) + get(x-1, y+1) + get(x+1, y+1)
	return (sum + 2) / 4
}

// hqGreenCross estimates a primary channel at a green pixel using the
// Malvar-He-Cutler f2 (strong-axis) kernel, oriented along whichever axis
// (horizontal or vertical) carries the target primary at distance 1.
func hqGreenCross(get func(x, y int) int32, x, y int, horizontal bool) int32 {
	var near1, near2, far1, far2, center int32
	if horizontal {
		near1, near2 = get(x-1, y), get(x+1, y)
		far1, far2 = get(x, y-2), get(x, y+2)
	} else {
		near1, near2 = get(x, y-1), get(x, y+1)
		far1, far2 = get(x-2, y), get(x+2, y)
	}
	// f2: the direct primaries at distance 1 along the strong axis weigh 8
	// each and the centre 10; the four diagonal greens and the two greens at
	// distance 2 along the strong axis weigh -2 each; the two greens at
	// distance 2 across it weigh +1 each. The taps sum to 16.
	var d2a, d2b int32
	if horizontal {
		d2a, d2b = get(x-2, y), get(x+2, y)
	} else {
		d2a, d2b = get(x, y-2), get(x, y+2)
	}
	center = get(x, y)
	diag := get(x-1, y-1) + get(x+1, y-1) + get(x-1, y+1) + get(x+1, y+1)
	sum := 8*(near1+near2) + 10*center - 2*(diag+d2a+d2b) + (far1 + far2)
	return (sum + 8) / 16
}

// hqGreenAtPrimary estimates green at an R or B pixel using the f1 kernel.
func hqGreenAtPrimary(get func(x, y int) int32, x, y int) int32 {
	sum := 4*(get(x-1, y)+get(x+1, y)+get(x, y-1)+get(x, y+1)) +
		8*get(x, y) -
		2*(get(x-2, y)+get(x+2, y)+get(x, y-2)+get(x, y+2))
	return (sum + 8) / 16
}

// hqOppositePrimary estimates the opposite primary (R at B, B at R) using
// the f4 kernel: diagonal neighbours at distance 1 weighted 4, orthogonal
// distance-2 neighbours weighted -3, center weighted 12.
func hqOppositePrimary(get func(x, y int) int32, x, y int) int32 {
	sum := 4*(get(x-1, y-1)+get(x+1, y-1)+get(x-1, y+1)+get(x+1, y+1)) +
		12*get(x, y) -
		3*(get(x-2, y)+get(x+2, y)+get(x, y-2)+get(x, y+2))
	return (sum + 8) / 16
}

func clamp32(v, maxVal int32) int32 {
	if v < 0 {
		return 0
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// fillBorder copies the 2px top/left and 3px bottom/right border from the
// nearest interior pixel, per spec.
func fillBorder(im *Image, depth int) {
	get := func(x, y int) (int32, int32, int32) {
		if depth == 16 {
			off := im.RowOffset(y) + x*6
			return int32(uint16(im.Pix[off]) | uint16(im.Pix[off+1])<<8),
				int32(uint16(im.Pix[off+2]) | uint16(im.Pix[off+3])<<8),
				int32(uint16(im.Pix[off+4]) | uint16(im.Pix[off+5])<<8)
		}
		off := im.RowOffset(y) + x*3
		return int32(im.Pix[off]), int32(im.Pix[off+1]), int32(im.Pix[off+2])
	}
	clampCoord := func(v, lo, hi int) int {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	interiorX := func(x int) int { return clampCoord(x, borderTopLeft, im.Width-borderBottomRight-1) }
	interiorY := func(y int) int { return clampCoord(y, borderTopLeft, im.Height-borderBottomRight-1) }
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			if x >= borderTopLeft && x < im.Width-borderBottomRight && y >= borderTopLeft && y < im.Height-borderBottomRight {
				continue
			}
			r, g, b := get(interiorX(x), interiorY(y))
			setRGB(im, x, y, r, g, b, depth)
		}
	}
}
