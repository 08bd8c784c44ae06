/*
NAME
  align.go

DESCRIPTION
  align.go implements the image-alignment stage: global translational
  stabilization of a frame sequence via either tracked anchor blocks or
  full-frame brightness-centroid tracking, publishing per-frame offsets
  and the translation-adjusted intersection rectangle.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

// Package align implements image alignment, the stacking pipeline's first
// stage: it stabilizes a frame sequence against global translation,
// reporting a per-frame offset and the sequence's common intersection
// rectangle once complete.
package align

import (
	"errors"

	"gonum.org/v1/gonum/floats"

	"github.com/starvane/skystack/config"
	"github.com/starvane/skystack/internal/imgproc"
	"github.com/starvane/skystack/internal/ioerr"
	"github.com/starvane/skystack/internal/pixel"
	"github.com/starvane/skystack/source"
)

// anchor is one tracked block under ANCHORS alignment.
type anchor struct {
	pos        pixel.Point
	prevPos    pixel.Point
	valid      bool
	refBlock   *pixel.Image // MONO8
	refQuality float64
}

// Stage drives image alignment one active frame at a time. Construct with
// New, then call Step repeatedly until it returns ioerr.ErrLastStep or a
// failure; Offsets/Intersection are valid only once Step has returned
// ErrLastStep.
type Stage struct {
	src    source.ImageSource
	cfg    *config.Config
	method config.AlignMethod

	blockRadius int

	anchors      []anchor
	activeAnchor int

	centroid0    [2]float64
	haveCentroid bool

	offsets  []pixel.Point // per active-frame index, cumulative vs frame 0
	frameIdx int
	done     bool

	frameSize    pixel.Point
	intersection pixel.Rect
}

// New constructs an image-alignment stage. positions, if non-empty, names
// the initial anchor positions under ANCHORS; if empty, one anchor is
// auto-placed on the first frame. positions is ignored under CENTROID.
func New(src source.ImageSource, cfg *config.Config, positions []pixel.Point) (*Stage, error) {
	if err := src.SeekStart(); err != nil {
		return nil, err
	}
	s := &Stage{
		src:          src,
		cfg:          cfg,
		method:       cfg.AlignMethod,
		blockRadius:  int(cfg.AnchorBlockSize / 2),
		activeAnchor: -1,
	}

	md, err := src.MetadataAtCurrent()
	if err != nil {
		return nil, err
	}
	s.frameSize = pixel.Pt(md.Width, md.Height)

	first, err := src.ImageAt(src.CurrentIndex())
	if err != nil {
		return nil, err
	}
	firstMono, err := toMono8(first)
	if err != nil {
		return nil, err
	}

	if s.method == config.AlignAnchors {
		if len(positions) == 0 {
			p, err := autoPlaceAnchor(firstMono, s.blockRadius, s.cfg)
			if err != nil {
				return nil, err
			}
			positions = []pixel.Point{p}
		}
		for _, p := range positions {
			s.anchors = append(s.anchors, newAnchorAt(firstMono, p, s.blockRadius, s.cfg))
		}
		s.activeAnchor = 0
	} else {
		s.centroid0 = centroid(firstMono)
		s.haveCentroid = true
	}

	s.offsets = append(s.offsets, pixel.Pt(0, 0))
	return s, nil
}

func newAnchorAt(mono *pixel.Image, pos pixel.Point, blockRadius int, cfg *config.Config) anchor {
	block := extractBlock(mono, pos, blockRadius)
	return anchor{
		pos:        pos,
		prevPos:    pos,
		valid:      true,
		refBlock:   block,
		refQuality: imgproc.EstimateQuality(block, int(cfg.QualityBlurRadius)),
	}
}

func extractBlock(mono *pixel.Image, center pixel.Point, radius int) *pixel.Image {
	rect := pixel.Rect{Min: pixel.Pt(center.X-radius, center.Y-radius), Max: pixel.Pt(center.X+radius, center.Y+radius)}
	cropped, err := pixel.Convert(mono, rect, pixel.MONO8)
	if err != nil {
		// mono->mono8 conversion never fails; a non-nil error here would be
		// a programmer bug.
		panic(err)
	}
	return cropped
}

// autoPlaceAnchor scans the middle 3/4 of mono on a coarse grid (step =
// block_size/3), picking the 2*radius square maximizing estimate_quality
// while rejecting overexposed candidates.
func autoPlaceAnchor(mono *pixel.Image, radius int, cfg *config.Config) (pixel.Point, error) {
	w, h := mono.Width, mono.Height
	blockSize := 2 * radius
	step := blockSize / 3
	if step <= 0 {
		step = 1
	}
	marginX, marginY := w/8, h/8
	minX, maxX := marginX+radius, w-marginX-radius
	minY, maxY := marginY+radius, h-marginY-radius

	bmin, bmax := imageExtremes(mono)
	bthresh := float64(cfg.OverexposureThreshold) / 255

	var best pixel.Point
	bestQuality := -1.0
	found := false
	for y := minY; y <= maxY; y += step {
		for x := minX; x <= maxX; x += step {
			cand := pixel.Pt(x, y)
			block := extractBlock(mono, cand, radius)
			if !passesOverexposureGate(block, bmin, bmax, bthresh) {
				continue
			}
			q := imgproc.EstimateQuality(block, int(cfg.QualityBlurRadius))
			if q > bestQuality {
				bestQuality = q
				best = cand
				found = true
			}
		}
	}
	if !found {
		return pixel.Point{}, ioerr.New(ioerr.CodeNoValidMatch, "align: no anchor candidate passed the overexposure gate")
	}
	return best, nil
}

// passesOverexposureGate requires at least 20% of block's pixels to be
// below 255 and above bmin+bthresh*(bmax-bmin).
func passesOverexposureGate(block *pixel.Image, bmin, bmax, bthresh float64) bool {
	low := bmin + bthresh*(bmax-bmin)
	total := block.Width * block.Height
	if total == 0 {
		return false
	}
	count := 0
	for y := 0; y < block.Height; y++ {
		for x := 0; x < block.Width; x++ {
			v := float64(block.Mono8At(x, y))
			if v < 255 && v > low {
				count++
			}
		}
	}
	return float64(count) >= 0.2*float64(total)
}

func imageExtremes(mono *pixel.Image) (min, max float64) {
	min, max = 255, 0
	for y := 0; y < mono.Height; y++ {
		for x := 0; x < mono.Width; x++ {
			v := float64(mono.Mono8At(x, y))
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	return min, max
}

// centroid returns the image-moment brightness centroid (M10/M00,M01/M00)
// of mono.
func centroid(mono *pixel.Image) [2]float64 {
	w, h := mono.Width, mono.Height
	xs := make([]float64, w)
	for x := range xs {
		xs[x] = float64(x)
	}
	row := make([]float64, w)

	var m00, m10, m01 float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			row[x] = float64(mono.Mono8At(x, y))
		}
		rowSum := floats.Sum(row)
		m00 += rowSum
		m10 += floats.Dot(row, xs)
		m01 += rowSum * float64(y)
	}
	if m00 == 0 {
		return [2]float64{0, 0}
	}
	return [2]float64{m10 / m00, m01 / m00}
}

func toMono8(im *pixel.Image) (*pixel.Image, error) {
	if im.Format == pixel.MONO8 {
		return im, nil
	}
	return pixel.Convert(im, im.Bounds(), pixel.MONO8)
}

// Step advances the stage by one active frame. It returns ioerr.ErrLastStep
// once the sequence is exhausted (after publishing Offsets/Intersection),
// and any decode/placement failure verbatim otherwise.
func (s *Stage) Step() error {
	if s.done {
		return ioerr.ErrLastStep
	}
	err := s.src.SeekNext()
	if err != nil {
		if errors.Is(err, ioerr.ErrNoMoreImages) {
			s.finish()
			return ioerr.ErrLastStep
		}
		return err
	}
	s.frameIdx++

	im, err := s.src.ImageAt(s.src.CurrentIndex())
	if err != nil {
		return err
	}
	mono, err := toMono8(im)
	if err != nil {
		return err
	}

	var offset pixel.Point
	if s.method == config.AlignAnchors {
		offset, err = s.stepAnchors(mono)
	} else {
		offset = s.stepCentroid(mono)
	}
	if err != nil {
		return err
	}
	s.offsets = append(s.offsets, offset)
	return nil
}

func (s *Stage) stepCentroid(mono *pixel.Image) pixel.Point {
	c := centroid(mono)
	dx := c[0] - s.centroid0[0]
	dy := c[1] - s.centroid0[1]
	return pixel.Pt(round(dx), round(dy))
}

func round(v float64) int {
	if v >= 0 {
		return int(v + 0.5)
	}
	return int(v - 0.5)
}

func (s *Stage) stepAnchors(mono *pixel.Image) (pixel.Point, error) {
	searchRadius := int(s.cfg.AnchorSearchRadius)
	blockSize := 2 * s.blockRadius
	prevOffset := s.offsets[len(s.offsets)-1]
	var activeDelta pixel.Point
	wasActiveAnchor := s.activeAnchor

	for i := range s.anchors {
		a := &s.anchors[i]
		if !a.valid {
			continue
		}
		a.prevPos = a.pos
		newPos, err := imgproc.BlockMatch(a.refBlock, mono, a.pos, searchRadius, 4)
		if err != nil {
			a.valid = false
			continue
		}
		if nearEdge(newPos, mono, searchRadius+blockSize) {
			a.valid = false
			continue
		}
		a.pos = newPos
		newBlock := extractBlock(mono, newPos, s.blockRadius)
		newQuality := imgproc.EstimateQuality(newBlock, int(s.cfg.QualityBlurRadius))
		if newQuality > a.refQuality {
			a.refBlock = newBlock
			a.refQuality = newQuality
		}
	}

	if s.activeAnchor < 0 || !s.anchors[s.activeAnchor].valid {
		s.activeAnchor = s.nextValidAnchor()
	}
	if s.activeAnchor < 0 {
		p, err := autoPlaceAnchor(mono, s.blockRadius, s.cfg)
		if err != nil {
			return pixel.Point{}, err
		}
		s.anchors = append(s.anchors, newAnchorAt(mono, p, s.blockRadius, s.cfg))
		s.activeAnchor = len(s.anchors) - 1
		activeDelta = pixel.Pt(0, 0)
	} else if s.activeAnchor == wasActiveAnchor {
		a := s.anchors[s.activeAnchor]
		activeDelta = a.pos.Sub(a.prevPos)
	} else {
		// Just switched to a different still-valid anchor this frame: no
		// displacement is attributable to the switch itself.
		activeDelta = pixel.Pt(0, 0)
	}

	return prevOffset.Add(activeDelta), nil
}

func (s *Stage) nextValidAnchor() int {
	for i := range s.anchors {
		if s.anchors[i].valid {
			return i
		}
	}
	return -1
}

func nearEdge(p pixel.Point, im *pixel.Image, margin int) bool {
	return p.X < margin || p.Y < margin || p.X >= im.Width-margin || p.Y >= im.Height-margin
}

func (s *Stage) finish() {
	s.done = true
	w, h := s.frameSize.X, s.frameSize.Y
	minX, minY := -(1 << 30), -(1 << 30)
	maxX, maxY := 1<<30, 1<<30
	for _, o := range s.offsets {
		if -o.X > minX {
			minX = -o.X
		}
		if -o.Y > minY {
			minY = -o.Y
		}
		if w-o.X < maxX {
			maxX = w - o.X
		}
		if h-o.Y < maxY {
			maxY = h - o.Y
		}
	}
	s.intersection = pixel.Rect{Min: pixel.Pt(minX, minY), Max: pixel.Pt(maxX, maxY)}
}

// Offsets returns the per-active-frame cumulative offset relative to frame
// 0, indexed by active-frame index. Valid only after Step returns
// ioerr.ErrLastStep.
func (s *Stage) Offsets() []pixel.Point { return s.offsets }

// Intersection returns the translation-adjusted intersection rectangle of
// every frame. Valid only after Step returns ioerr.ErrLastStep.
func (s *Stage) Intersection() pixel.Rect { return s.intersection }
