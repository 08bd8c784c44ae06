/*
NAME
  boxblur.go

DESCRIPTION
  boxblur.go implements an edge-clamped box blur over MONO8 images and the
  estimate_quality sharpness metric built on top of it, shared by image
  alignment, quality estimation and reference-point placement.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

// Package imgproc provides the numeric primitives shared by every stacking
// stage: box blur, the estimate_quality sharpness metric, and block
// matching.
package imgproc

import "github.com/starvane/skystack/internal/pixel"

// maxBoxBlurRadius bounds r so that 255*(2r+1)^2 never overflows a uint32
// accumulator within one pass (the per-pass division keeps the running sum
// from compounding across iterations).
const maxBoxBlurRadius = 1 << 11

// BoxBlur runs n passes of a (2r+1)x(2r+1) neighbourhood mean over a MONO8
// image, returning a new image. Out-of-image neighbours are edge-clamped.
// r must be in [0, 2^11); BoxBlur panics otherwise.
func BoxBlur(src *pixel.Image, r, n int) *pixel.Image {
	if r < 0 || r >= maxBoxBlurRadius {
		panic("imgproc: BoxBlur radius out of range")
	}
	cur := src.Clone()
	if n <= 0 || r == 0 {
		return cur
	}
	w, h := cur.Width, cur.Height
	side := int64(2*r + 1)
	area := side * side
	for pass := 0; pass < n; pass++ {
		next := pixel.New(w, h, pixel.MONO8)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				var sum int64
				for dy := -r; dy <= r; dy++ {
					cy := clampCoord(y+dy, h)
					for dx := -r; dx <= r; dx++ {
						cx := clampCoord(x+dx, w)
						sum += int64(cur.Mono8At(cx, cy))
					}
				}
				next.SetMono8At(x, y, uint8(sum/area))
			}
		}
		cur = next
	}
	return cur
}

func clampCoord(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

// qualityBlurIterations is the fixed n=3 used by EstimateQuality, chosen
// because three box-blur passes approximate a Gaussian response closely
// enough for the sharpness metric.
const qualityBlurIterations = 3

// EstimateQuality blurs a copy of tile with BoxBlur(r, 3), sums the
// per-pixel absolute difference between tile and the blurred copy, and
// divides by the pixel count. Higher values mean a sharper (more detailed)
// tile.
func EstimateQuality(tile *pixel.Image, r int) float64 {
	blurred := BoxBlur(tile, r, qualityBlurIterations)
	var sum int64
	n := tile.Width * tile.Height
	for y := 0; y < tile.Height; y++ {
		for x := 0; x < tile.Width; x++ {
			a := int(tile.Mono8At(x, y))
			b := int(blurred.Mono8At(x, y))
			d := a - b
			if d < 0 {
				d = -d
			}
			sum += int64(d)
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}
