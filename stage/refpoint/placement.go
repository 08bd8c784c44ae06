/*
NAME
  placement.go

DESCRIPTION
  placement.go implements automatic reference-point placement: a grid walk
  over the intersection gated by a brightness test, a Sobel
  gradient-direction test and a two-scale structure-fitness score.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package refpoint

import (
	"github.com/starvane/skystack/config"
	"github.com/starvane/skystack/internal/imgproc"
	"github.com/starvane/skystack/internal/pixel"
	"github.com/starvane/skystack/stage/quality"
)

// gradientPatchRadius is the half-side of the Sobel gradient-direction
// gate's patch (a (2*32+1)^2 square around the candidate).
const gradientPatchRadius = 32

// directionHistogramBins is the number of buckets the gradient-direction
// gate sorts magnitude-weighted directions into.
const directionHistogramBins = 512

// suggestReferencePointPositions walks rect on a cfg.RefPointMinSpacing
// grid, keeping the best fitness-passing sub-position per cell unless a
// neighbouring cell already holds a point within spacing pixels.
func suggestReferencePointPositions(q *quality.Stage, rect pixel.Rect, cfg *config.Config) []pixel.Point {
	spacing := int(cfg.RefPointMinSpacing)
	if spacing <= 0 {
		spacing = 1
	}
	blockSize := spacing / 2
	if blockSize <= 0 {
		blockSize = 1
	}
	subStep := blockSize / 2
	if subStep <= 0 {
		subStep = 1
	}

	bmin, bmax := q.MinMaxBlockBrightness()

	var placed []pixel.Point
	cols := ceilDiv(rect.Dx(), spacing)
	rows := ceilDiv(rect.Dy(), spacing)
	cellPoint := make(map[[2]int]pixel.Point)

	for cy := 0; cy < rows; cy++ {
		for cx := 0; cx < cols; cx++ {
			x0 := rect.Min.X + cx*spacing
			y0 := rect.Min.Y + cy*spacing
			x1 := x0 + spacing
			y1 := y0 + spacing
			if x1 > rect.Max.X {
				x1 = rect.Max.X
			}
			if y1 > rect.Max.Y {
				y1 = rect.Max.Y
			}

			bestFit := -1.0
			var best pixel.Point
			found := false
			for y := y0; y < y1; y += subStep {
				for x := x0; x < x1; x += subStep {
					cand := pixel.Pt(x, y)
					fit, ok := fitness(q, cand, bmin, bmax, cfg)
					if !ok {
						continue
					}
					if fit > bestFit {
						bestFit = fit
						best = cand
						found = true
					}
				}
			}
			if !found || bestFit < cfg.RefPointStructureThreshold {
				continue
			}
			if tooCloseToNeighbour(cellPoint, cx, cy, best, spacing) {
				continue
			}
			cellPoint[[2]int{cx, cy}] = best
			placed = append(placed, best)
		}
	}
	return placed
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func tooCloseToNeighbour(cellPoint map[[2]int]pixel.Point, cx, cy int, cand pixel.Point, spacing int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if other, ok := cellPoint[[2]int{cx + dx, cy + dy}]; ok {
				if dist(cand, other) < float64(spacing) {
					return true
				}
			}
		}
	}
	return false
}

// fitness evaluates the three-stage gate at candidate p, returning the
// structure score (the final accept/reject threshold) and whether both
// earlier gates passed.
func fitness(q *quality.Stage, p pixel.Point, bmin, bmax float64, cfg *config.Config) (float64, bool) {
	tileIdx := q.AreaIndexAt(p)
	if tileIdx < 0 {
		return 0, false
	}

	neighbourhood := q.CreateReferenceBlock(tileIdx, p, 5)
	if !passesBrightnessGate(neighbourhood, bmin, bmax, cfg.RefPointBrightThreshold) {
		return 0, false
	}

	patchSize := 2*gradientPatchRadius + 1
	patch := q.CreateReferenceBlock(tileIdx, p, patchSize)
	if patch == nil || patch.Width < 3 || patch.Height < 3 {
		return 0, false
	}
	if !passesGradientGate(patch) {
		return 0, false
	}

	scale := int(cfg.RefPointStructureScale)
	structPatch := q.CreateReferenceBlock(tileIdx, p, 4*scale+1)
	if structPatch == nil {
		return 0, false
	}
	return imgproc.StructureScore(structPatch, scale), true
}

// passesBrightnessGate requires at least one pixel of block at or above
// bmin+thresh*(bmax-bmin), and fewer than 2/3 of its pixels at 255.
func passesBrightnessGate(block *pixel.Image, bmin, bmax, thresh float64) bool {
	if block == nil || block.Width == 0 || block.Height == 0 {
		return false
	}
	low := bmin + thresh*(bmax-bmin)
	total := block.Width * block.Height
	anyBright, saturated := false, 0
	for y := 0; y < block.Height; y++ {
		for x := 0; x < block.Width; x++ {
			v := float64(block.Mono8At(x, y))
			if v >= low {
				anyBright = true
			}
			if v >= 255 {
				saturated++
			}
		}
	}
	return anyBright && float64(saturated) < float64(total)*2/3
}

// passesGradientGate rejects a patch whose gradient-direction histogram
// (after blur, Sobel, and median smoothing) indicates a single dominant
// edge: a long run of empty bins alongside a short run of populated ones.
func passesGradientGate(patch *pixel.Image) bool {
	blurred := imgproc.BoxBlur(patch, 1, 3)
	mag, dir := imgproc.SobelMagnitudeDirection(blurred)
	hist := imgproc.DirectionHistogram(mag, dir, directionHistogramBins)
	smoothed := imgproc.MedianFilterCircular1D(hist, 1)

	zeroRun := imgproc.LongestZeroRun(smoothed)
	nonZeroRun := imgproc.LongestNonZeroRun(smoothed)

	if zeroRun > directionHistogramBins/3 && nonZeroRun < directionHistogramBins/4 {
		return false
	}
	return true
}
