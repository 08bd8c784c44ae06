/*
NAME
  gradient.go

DESCRIPTION
  gradient.go implements the Sobel gradient magnitude/direction field, the
  weighted direction histogram and its median-filtered longest-run
  statistics, and the two-scale structure-fitness score, all used by
  reference-point automatic placement's gates.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package imgproc

import (
	"math"
	"sort"

	"github.com/starvane/skystack/internal/pixel"
)

// SobelMagnitudeDirection computes the per-pixel Sobel gradient magnitude
// and direction (radians, atan2 range) over a MONO8 image, edge-clamped at
// the border like BoxBlur.
func SobelMagnitudeDirection(im *pixel.Image) (mag, dir []float64) {
	w, h := im.Width, im.Height
	mag = make([]float64, w*h)
	dir = make([]float64, w*h)
	get := func(x, y int) float64 {
		return float64(im.Mono8At(clampCoord(x, w), clampCoord(y, h)))
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := (get(x+1, y-1) + 2*get(x+1, y) + get(x+1, y+1)) -
				(get(x-1, y-1) + 2*get(x-1, y) + get(x-1, y+1))
			gy := (get(x-1, y+1) + 2*get(x, y+1) + get(x+1, y+1)) -
				(get(x-1, y-1) + 2*get(x, y-1) + get(x+1, y-1))
			i := y*w + x
			mag[i] = math.Hypot(gx, gy)
			dir[i] = math.Atan2(gy, gx)
		}
	}
	return mag, dir
}

// DirectionHistogram buckets dir into the given number of bins over
// (-pi,pi], each bin accumulating the corresponding mag weight.
func DirectionHistogram(mag, dir []float64, bins int) []float64 {
	hist := make([]float64, bins)
	for i, d := range dir {
		b := int((d + math.Pi) / (2 * math.Pi) * float64(bins))
		if b < 0 {
			b = 0
		}
		if b >= bins {
			b = bins - 1
		}
		hist[b] += mag[i]
	}
	return hist
}

// MedianFilterCircular1D applies a radius-r median filter to vals, treating
// it as a circular (wraparound) sequence — appropriate for an angular
// histogram, where bin 0 and the last bin are adjacent.
func MedianFilterCircular1D(vals []float64, r int) []float64 {
	n := len(vals)
	out := make([]float64, n)
	window := make([]float64, 0, 2*r+1)
	for i := 0; i < n; i++ {
		window = window[:0]
		for d := -r; d <= r; d++ {
			j := ((i+d)%n + n) % n
			window = append(window, vals[j])
		}
		sort.Float64s(window)
		out[i] = window[len(window)/2]
	}
	return out
}

// LongestZeroRun returns the longest circular run of exactly-zero entries.
func LongestZeroRun(vals []float64) int {
	return longestCircularRun(vals, func(v float64) bool { return v == 0 })
}

// LongestNonZeroRun returns the longest circular run of non-zero entries.
func LongestNonZeroRun(vals []float64) int {
	return longestCircularRun(vals, func(v float64) bool { return v != 0 })
}

// longestCircularRun finds the longest run of values satisfying pred in
// vals, treated as a circular sequence (a run may wrap past the end).
func longestCircularRun(vals []float64, pred func(float64) bool) int {
	n := len(vals)
	if n == 0 {
		return 0
	}
	allMatch := true
	for _, v := range vals {
		if !pred(v) {
			allMatch = false
			break
		}
	}
	if allMatch {
		return n
	}
	start := 0
	for i, v := range vals {
		if !pred(v) {
			start = i
			break
		}
	}
	best, cur := 0, 0
	for i := 0; i < n; i++ {
		idx := (start + 1 + i) % n
		if pred(vals[idx]) {
			cur++
			if cur > best {
				best = cur
			}
		} else {
			cur = 0
		}
	}
	return best
}

// StructureScore computes the two-scale structure fitness at a patch
// centered on the candidate position: the ratio of the average per-pixel
// squared difference between the patch and itself shifted around a square
// shell of radius 2*scale, over the same quantity at radius scale. A zero
// denominator (a perfectly flat patch at the inner scale) scores zero.
func StructureScore(patch *pixel.Image, scale int) float64 {
	shell1 := shellSSD(patch, scale)
	if shell1 == 0 {
		return 0
	}
	return shellSSD(patch, 2*scale) / shell1
}

// shellSSD averages the per-pixel squared difference between patch and
// itself shifted by every offset on the perimeter of a square of half-side
// r, over every pixel and every such shift.
func shellSSD(patch *pixel.Image, r int) float64 {
	if r <= 0 {
		return 0
	}
	w, h := patch.Width, patch.Height
	var shifts [][2]int
	for dx := -r; dx <= r; dx++ {
		shifts = append(shifts, [2]int{dx, -r}, [2]int{dx, r})
	}
	for dy := -r + 1; dy <= r-1; dy++ {
		shifts = append(shifts, [2]int{-r, dy}, [2]int{r, dy})
	}
	var total float64
	var count int64
	for _, s := range shifts {
		dx, dy := s[0], s[1]
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				a := float64(patch.Mono8At(x, y))
				bx, by := clampCoord(x+dx, w), clampCoord(y+dy, h)
				b := float64(patch.Mono8At(bx, by))
				d := a - b
				total += d * d
				count++
			}
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}
