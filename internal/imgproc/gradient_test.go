/*
NAME
  gradient_test.go

DESCRIPTION
  gradient_test.go tests the Sobel/histogram/run-length/structure-score
  helpers in gradient.go.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package imgproc

import (
	"testing"

	"github.com/starvane/skystack/internal/pixel"
)

func TestStructureScoreConstantIsZero(t *testing.T) {
	im := pixel.New(17, 17, pixel.MONO8)
	for y := 0; y < 17; y++ {
		for x := 0; x < 17; x++ {
			im.SetMono8At(x, y, 128)
		}
	}
	if got := StructureScore(im, 4); got != 0 {
		t.Errorf("StructureScore(constant) = %v, want 0", got)
	}
}

func TestStructureScoreTexturedIsPositive(t *testing.T) {
	im := pixel.New(17, 17, pixel.MONO8)
	for y := 0; y < 17; y++ {
		for x := 0; x < 17; x++ {
			im.SetMono8At(x, y, byte((x*37+y*61)%256))
		}
	}
	if got := StructureScore(im, 4); got <= 0 {
		t.Errorf("StructureScore(textured) = %v, want > 0", got)
	}
}

func TestLongestRunsAllZero(t *testing.T) {
	vals := make([]float64, 8)
	if got := LongestZeroRun(vals); got != 8 {
		t.Errorf("LongestZeroRun(all zero) = %d, want 8", got)
	}
	if got := LongestNonZeroRun(vals); got != 0 {
		t.Errorf("LongestNonZeroRun(all zero) = %d, want 0", got)
	}
}

func TestLongestRunsCircularWrap(t *testing.T) {
	// Non-zero run wraps from the end back to the start.
	vals := []float64{1, 1, 0, 0, 0, 0, 1, 1}
	if got := LongestNonZeroRun(vals); got != 4 {
		t.Errorf("LongestNonZeroRun(wrap) = %d, want 4", got)
	}
	if got := LongestZeroRun(vals); got != 4 {
		t.Errorf("LongestZeroRun = %d, want 4", got)
	}
}

func TestMedianFilterCircularSmoothsSpike(t *testing.T) {
	vals := []float64{0, 0, 0, 10, 0, 0, 0, 0}
	out := MedianFilterCircular1D(vals, 1)
	if out[3] != 0 {
		t.Errorf("MedianFilterCircular1D did not suppress an isolated spike: got %v at index 3", out[3])
	}
}

func TestSobelMagnitudeDirectionFlatIsZero(t *testing.T) {
	im := pixel.New(9, 9, pixel.MONO8)
	for y := 0; y < 9; y++ {
		for x := 0; x < 9; x++ {
			im.SetMono8At(x, y, 100)
		}
	}
	mag, _ := SobelMagnitudeDirection(im)
	for i, m := range mag {
		if m != 0 {
			t.Fatalf("SobelMagnitudeDirection(flat) pixel %d: magnitude = %v, want 0", i, m)
		}
	}
}

func TestDirectionHistogramConservesWeight(t *testing.T) {
	mag := []float64{1, 2, 3, 4}
	dir := []float64{-3.0, -1.0, 1.0, 3.0}
	hist := DirectionHistogram(mag, dir, 16)
	var sum float64
	for _, h := range hist {
		sum += h
	}
	if sum != 10 {
		t.Errorf("DirectionHistogram total weight = %v, want 10", sum)
	}
}
