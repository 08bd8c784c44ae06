/*
NAME
  imgstat.go

DESCRIPTION
  imgstat.go computes basic per-image brightness statistics (min, max,
  mean, standard deviation) of an image plane. No other package of this
  module imports it.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

// Package imgstat computes summary statistics over MONO8/MONO16 image
// planes.
package imgstat

import (
	"fmt"
	"math"

	"github.com/starvane/skystack/internal/pixel"
)

// BasicStats summarizes a plane's sample distribution.
type BasicStats struct {
	Min, Max float64
	Mean     float64
	StdDev   float64
}

func (s BasicStats) String() string {
	return fmt.Sprintf("min=%.3f max=%.3f mean=%.3f stddev=%.3f", s.Min, s.Max, s.Mean, s.StdDev)
}

// Calc computes BasicStats over every sample of im's first channel
// (sufficient for MONO8/MONO16; callers convert colour images to mono
// first, as the rest of the pipeline does for quality/fitness scoring).
func Calc(im *pixel.Image) BasicStats {
	n := im.Width * im.Height
	if n == 0 {
		return BasicStats{}
	}
	min := math.Inf(1)
	max := math.Inf(-1)
	var sum float64
	read := sampleReader(im)
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			v := read(x, y)
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
			sum += v
		}
	}
	mean := sum / float64(n)

	var sqDiff float64
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			d := read(x, y) - mean
			sqDiff += d * d
		}
	}
	return BasicStats{
		Min:    min,
		Max:    max,
		Mean:   mean,
		StdDev: math.Sqrt(sqDiff / float64(n)),
	}
}

func sampleReader(im *pixel.Image) func(x, y int) float64 {
	switch im.Format.BitsPerChannel() {
	case 16:
		return func(x, y int) float64 { return float64(im.Uint16At(x, y, 0)) }
	default:
		return func(x, y int) float64 { return float64(im.Mono8At(x, y)) }
	}
}

// Degenerate reports whether s indicates a flatfield/dark frame too flat to
// be useful (standard deviation below a small absolute threshold).
func (s BasicStats) Degenerate() bool {
	return s.StdDev < 1e-8
}
