/*
NAME
  blockmatch.go

DESCRIPTION
  blockmatch.go implements the block-matching primitive shared by image
  alignment and reference-point alignment: given a reference block and a
  nominal position in a target image, find the best-matching position by a
  halving-step search over sum-of-squared-differences.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package imgproc

import "github.com/starvane/skystack/internal/pixel"

// NoMatch is the sentinel "no valid match" position returned when a search
// offset's intersection with the target is too small to score, matching the
// spec's UINT64_MAX internal sentinel: BlockMatch returns it as its error.
type NoMatch struct{}

func (NoMatch) Error() string { return "imgproc: no valid match (intersection too small)" }

// minIntersectionFraction: intersections smaller than this fraction of the
// reference block's area are rejected outright.
const minIntersectionFraction = 0.25

// BlockMatch finds the position in target (both MONO8 images) that best
// matches refBlock. The first pass searches the full 2*searchRadius square
// around nominal at step initialStep; each subsequent pass halves the step
// and shrinks the search window to the span just used, re-centering on the
// best match so far, until the step reaches 0. It returns the best position
// found, or NoMatch if every candidate position's intersection with target
// was too small to score (e.g. nominal lies entirely outside target).
func BlockMatch(refBlock, target *pixel.Image, nominal pixel.Point, searchRadius, initialStep int) (pixel.Point, error) {
	best := nominal
	bestScore := int64(math64Max)
	haveScore := false

	windowRadius := searchRadius
	step := initialStep
	if step <= 0 {
		step = 1
	}
	for step > 0 {
		center := best
		for dy := -windowRadius; dy <= windowRadius; dy += step {
			for dx := -windowRadius; dx <= windowRadius; dx += step {
				cand := pixel.Pt(center.X+dx, center.Y+dy)
				score, ok := matchScore(refBlock, target, cand)
				if !ok {
					continue
				}
				if !haveScore || score < bestScore {
					bestScore = score
					best = cand
					haveScore = true
				}
			}
		}
		windowRadius = step
		step /= 2
	}
	if !haveScore {
		return pixel.Point{}, NoMatch{}
	}
	return best, nil
}

const math64Max = 1<<63 - 1

// matchScore returns the (possibly area-normalized) sum of squared
// differences between refBlock and target at candidate position pos, or
// false if the intersection is smaller than 1/4 of the block's area. pos
// is the block's center, matching extractBlock/CreateReferenceBlock's own
// center-based placement and every caller's notion of a tracked position.
func matchScore(refBlock, target *pixel.Image, pos pixel.Point) (int64, bool) {
	blockMin := pixel.Pt(pos.X-refBlock.Width/2, pos.Y-refBlock.Height/2)
	blockRect := pixel.Rect{Min: blockMin, Max: pixel.Pt(blockMin.X+refBlock.Width, blockMin.Y+refBlock.Height)}
	inter := blockRect.Intersect(target.Bounds())
	if inter.Empty() {
		return 0, false
	}
	blockArea := refBlock.Width * refBlock.Height
	interArea := inter.Dx() * inter.Dy()
	if float64(interArea) < minIntersectionFraction*float64(blockArea) {
		return 0, false
	}

	var sum int64
	for y := inter.Min.Y; y < inter.Max.Y; y++ {
		ry := y - blockMin.Y
		for x := inter.Min.X; x < inter.Max.X; x++ {
			rx := x - blockMin.X
			d := int64(refBlock.Mono8At(rx, ry)) - int64(target.Mono8At(x, y))
			sum += d * d
		}
	}
	if interArea < blockArea {
		sum = sum * int64(blockArea) / int64(interArea)
	}
	return sum, true
}
