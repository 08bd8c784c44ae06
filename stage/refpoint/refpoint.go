/*
NAME
  refpoint.go

DESCRIPTION
  refpoint.go implements reference-point alignment: automatic placement of
  tracked mesh points, Delaunay triangulation over them plus fixed
  boundary points, per-frame triangle-quality gated block matching with
  sliding-window outlier rejection, and final position averaging.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

// Package refpoint implements reference-point alignment, the stacking
// pipeline's third stage: it meshes a set of tracked local features over
// the alignment intersection, re-locates each one every frame by local
// block matching gated on per-frame triangle quality, and publishes the
// final triangulated mesh stacking warps against.
package refpoint

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/starvane/skystack/config"
	"github.com/starvane/skystack/internal/imgproc"
	"github.com/starvane/skystack/internal/ioerr"
	"github.com/starvane/skystack/internal/pixel"
	"github.com/starvane/skystack/internal/triangulate"
	"github.com/starvane/skystack/source"
	"github.com/starvane/skystack/stage/align"
	"github.com/starvane/skystack/stage/quality"
)

// frameSlot is one point's state at one active frame.
type frameSlot struct {
	Pos   pixel.Point
	Valid bool
}

// Point is one tracked mesh vertex.
type Point struct {
	Initial pixel.Point
	Final   pixel.Point // mean of valid positions; set by finish.
	Fixed   bool        // boundary/super point: never block-matched, always valid.

	tileIdx  int // owning quality tile, or -1 if outside the intersection.
	refBlock *pixel.Image

	slots        []frameSlot // per active-frame index
	lastValidIdx int         // -1 until the first successful match
}

// windowAgg is one frame's accepted-translation lengths, held in the
// outlier-rejection ring buffer.
type windowAgg struct {
	lengths []float64
}

// Stage drives reference-point alignment one active frame at a time.
type Stage struct {
	src     source.ImageSource
	align   *align.Stage
	quality *quality.Stage
	cfg     *config.Config

	points []Point
	tri    *triangulate.Triangulation
	tris   []int // indices into tri.Triangles that are genuine input triangles.

	triSeenValid []bool // per input-triangle-list index: ever had all 3 vertices valid.

	window    []windowAgg
	frameIdx  int
	done      bool

	frameMeanLength []float64 // per active-frame index, mean accepted translation length; diagnostics only.
}

// New constructs reference-point alignment over alignStage/qualityStage's
// completed output. positions, if non-empty, are used as the initial
// point set instead of automatic placement.
func New(src source.ImageSource, alignStage *align.Stage, qualityStage *quality.Stage, cfg *config.Config, positions []pixel.Point) (*Stage, error) {
	if err := src.SeekStart(); err != nil {
		return nil, err
	}
	s := &Stage{src: src, align: alignStage, quality: qualityStage, cfg: cfg}

	rect := alignStage.Intersection()
	if len(positions) == 0 {
		positions = suggestReferencePointPositions(qualityStage, rect, cfg)
	}

	verts := make([]triangulate.Vec2, 0, len(positions))
	fixedFlags := make([]bool, 0, len(positions))
	s.points = make([]Point, 0, len(positions))
	for _, p := range positions {
		verts = append(verts, triangulate.Vec2{X: float64(p.X), Y: float64(p.Y)})
		fixedFlags = append(fixedFlags, false)
		s.points = append(s.points, Point{Initial: p, tileIdx: qualityStage.AreaIndexAt(p), lastValidIdx: -1})
	}

	for _, bp := range boundaryPoints(rect) {
		verts = append(verts, triangulate.Vec2{X: float64(bp.X), Y: float64(bp.Y)})
		fixedFlags = append(fixedFlags, true)
		s.points = append(s.points, Point{Initial: bp, Fixed: true, tileIdx: -1, lastValidIdx: -1})
	}

	env := triangulate.Rect{MinX: float64(rect.Min.X), MinY: float64(rect.Min.Y), MaxX: float64(rect.Max.X), MaxY: float64(rect.Max.Y)}
	tri, err := triangulate.Build(verts, env, fixedFlags)
	if err != nil {
		return nil, err
	}
	s.tri = tri
	s.tris = tri.InputTriangles()
	s.triSeenValid = make([]bool, len(s.tris))

	if err := s.stepCurrentFrame(); err != nil {
		return nil, err
	}
	return s, nil
}

// boundaryPoints returns the 4 fixed points per side described for the
// intersection rect, offset outward by a quarter of the opposite
// dimension.
func boundaryPoints(rect pixel.Rect) []pixel.Point {
	w, h := rect.Dx(), rect.Dy()
	var out []pixel.Point
	top := rect.Min.Y - h/4
	bottom := rect.Max.Y + h/4
	left := rect.Min.X - w/4
	right := rect.Max.X + w/4
	for i := 0; i < 4; i++ {
		x := rect.Min.X + i*w/3
		out = append(out, pixel.Pt(x, top), pixel.Pt(x, bottom))
	}
	for i := 0; i < 4; i++ {
		y := rect.Min.Y + i*h/3
		out = append(out, pixel.Pt(left, y), pixel.Pt(right, y))
	}
	return out
}

// Step advances the stage by one active frame.
func (s *Stage) Step() error {
	if s.done {
		return ioerr.ErrLastStep
	}
	if err := s.src.SeekNext(); err != nil {
		if errors.Is(err, ioerr.ErrNoMoreImages) {
			s.finish()
			s.done = true
			return ioerr.ErrLastStep
		}
		return err
	}
	return s.stepCurrentFrame()
}

// stepCurrentFrame grows every point's per-frame slot array, marks fixed
// points trivially valid, computes per-triangle quality acceptance, and
// block-matches every point touched by an accepted triangle.
func (s *Stage) stepCurrentFrame() error {
	frameIdx := s.src.CurrentActiveIndex()
	s.frameIdx = frameIdx
	for i := range s.points {
		p := &s.points[i]
		for len(p.slots) <= frameIdx {
			p.slots = append(p.slots, frameSlot{})
		}
		if p.Fixed {
			p.slots[frameIdx] = frameSlot{Pos: p.Initial, Valid: true}
		}
	}

	im, err := s.src.ImageAt(s.src.CurrentIndex())
	if err != nil {
		return err
	}
	mono, err := toMono8(im)
	if err != nil {
		return err
	}

	accepted := s.acceptedTriangles(frameIdx)
	touched := make(map[int]bool)
	for _, ti := range accepted {
		tri := s.tri.Triangles[s.tris[ti]]
		for _, v := range tri.V {
			if !s.points[v].Fixed {
				touched[v] = true
			}
		}
	}

	type update struct {
		idx    int
		newPos pixel.Point
		length float64
	}
	var updates []update
	var curLens []float64
	for v := range touched {
		p := &s.points[v]
		prevPos := p.Initial
		if p.lastValidIdx >= 0 {
			prevPos = p.slots[p.lastValidIdx].Pos
		}
		if p.refBlock == nil {
			refSize := int(2 * s.cfg.RefPointMinSpacing / 3)
			p.refBlock = s.quality.CreateReferenceBlock(p.tileIdx, prevPos, refSize)
		}
		searchRadius := int(s.cfg.RefPointMinSpacing / 2)
		newPos, err := imgproc.BlockMatch(p.refBlock, mono, prevPos, searchRadius, 2)
		if err != nil {
			continue // NoMatch: leave this frame's slot invalid.
		}
		length := dist(newPos, prevPos)
		if p.lastValidIdx < 0 && length > float64(s.cfg.RefPointMinSpacing)/6 {
			continue // first-update runaway rejection.
		}
		updates = append(updates, update{idx: v, newPos: newPos, length: length})
		curLens = append(curLens, length)
	}

	// Combine this frame's candidate lengths with the sliding window to
	// find the outlier threshold before committing any of them.
	var pooled []float64
	for _, w := range s.window {
		pooled = append(pooled, w.lengths...)
	}
	pooled = append(pooled, curLens...)
	mean, sigma := 0.0, 0.0
	if len(pooled) > 0 {
		mean, sigma = stat.MeanStdDev(pooled, nil)
	}
	thresh := mean + s.cfg.RefPointOutlierSigma*sigma

	var frameLengths []float64
	for _, u := range updates {
		p := &s.points[u.idx]
		if u.length > thresh {
			continue // outlier: left invalid, position not advanced.
		}
		p.slots[frameIdx] = frameSlot{Pos: u.newPos, Valid: true}
		p.lastValidIdx = frameIdx
		frameLengths = append(frameLengths, u.length)
	}
	s.pushWindow(windowAgg{lengths: frameLengths})
	for len(s.frameMeanLength) <= frameIdx {
		s.frameMeanLength = append(s.frameMeanLength, 0)
	}
	if len(frameLengths) > 0 {
		s.frameMeanLength[frameIdx] = stat.Mean(frameLengths, nil)
	}

	for i, ti := range s.tris {
		tri := s.tri.Triangles[ti]
		if s.points[tri.V[0]].slots[frameIdx].Valid &&
			s.points[tri.V[1]].slots[frameIdx].Valid &&
			s.points[tri.V[2]].slots[frameIdx].Valid {
			s.triSeenValid[i] = true
		}
	}
	return nil
}

func dist(a, b pixel.Point) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Hypot(dx, dy)
}

func (s *Stage) pushWindow(w windowAgg) {
	s.window = append(s.window, w)
	max := int(s.cfg.RefPointWindowSize)
	if max <= 0 {
		max = 10
	}
	if len(s.window) > max {
		s.window = s.window[len(s.window)-max:]
	}
}

// acceptedTriangles returns the indices (into s.tris) of triangles
// accepted for frameIdx under the configured quality criterion.
func (s *Stage) acceptedTriangles(frameIdx int) []int {
	sums := make([]float64, len(s.tris))
	for i, ti := range s.tris {
		tri := s.tri.Triangles[ti]
		sums[i] = s.vertexQuality(tri.V[0], frameIdx) + s.vertexQuality(tri.V[1], frameIdx) + s.vertexQuality(tri.V[2], frameIdx)
	}

	order := make([]int, len(sums))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return sums[order[a]] > sums[order[b]] })

	rank := make([]int, len(sums))
	for r, i := range order {
		rank[i] = r
	}

	var qmin, qmax float64
	if len(sums) > 0 {
		qmin, qmax = sums[0], sums[0]
		for _, q := range sums {
			if q < qmin {
				qmin = q
			}
			if q > qmax {
				qmax = q
			}
		}
	}

	var out []int
	n := len(sums)
	for i := range sums {
		accept := false
		switch s.cfg.RefPointCriterion {
		case config.PercentageBest:
			accept = float64(rank[i]) < 0.01*s.cfg.RefPointCriterionK*float64(n)
		case config.MinRelQuality:
			accept = sums[i] >= qmin+(s.cfg.RefPointCriterionK/100)*(qmax-qmin)
		case config.NumberBest:
			accept = rank[i] < int(s.cfg.RefPointCriterionK)
		}
		if accept {
			out = append(out, i)
		}
	}
	return out
}

// vertexQuality returns point v's owning tile's quality score at frameIdx,
// or 0 for points outside the intersection (boundary points).
func (s *Stage) vertexQuality(v, frameIdx int) float64 {
	p := &s.points[v]
	if p.tileIdx < 0 {
		return 0
	}
	return s.quality.Tile(p.tileIdx).ScoreAt(frameIdx)
}

func toMono8(im *pixel.Image) (*pixel.Image, error) {
	if im.Format == pixel.MONO8 {
		return im, nil
	}
	return pixel.Convert(im, im.Bounds(), pixel.MONO8)
}

// finish runs ensure_tris_are_valid and computes every point's final
// position as the mean of its valid per-frame positions.
func (s *Stage) finish() {
	for i, ti := range s.tris {
		if s.triSeenValid[i] {
			continue
		}
		tri := s.tri.Triangles[ti]
		bestFrame, bestSum := -1, -1.0
		for f := 0; f <= s.frameIdx; f++ {
			sum := s.vertexQuality(tri.V[0], f) + s.vertexQuality(tri.V[1], f) + s.vertexQuality(tri.V[2], f)
			if bestFrame < 0 || sum > bestSum {
				bestFrame, bestSum = f, sum
			}
		}
		if bestFrame < 0 {
			continue
		}
		for _, v := range tri.V {
			p := &s.points[v]
			if p.Fixed {
				continue
			}
			for len(p.slots) <= bestFrame {
				p.slots = append(p.slots, frameSlot{})
			}
			if !p.slots[bestFrame].Valid {
				pos := p.Initial
				if p.lastValidIdx >= 0 {
					pos = p.slots[p.lastValidIdx].Pos
				}
				p.slots[bestFrame] = frameSlot{Pos: pos, Valid: true}
			}
		}
	}

	for i := range s.points {
		p := &s.points[i]
		var sumX, sumY float64
		var n int
		for _, sl := range p.slots {
			if sl.Valid {
				sumX += float64(sl.Pos.X)
				sumY += float64(sl.Pos.Y)
				n++
			}
		}
		if n == 0 {
			p.Final = p.Initial
			continue
		}
		p.Final = pixel.Pt(int(math.Round(sumX/float64(n))), int(math.Round(sumY/float64(n))))
	}
}

// NumPoints returns the number of tracked points (placed/user points plus
// fixed boundary points).
func (s *Stage) NumPoints() int { return len(s.points) }

// PointAt returns point i.
func (s *Stage) PointAt(i int) *Point { return &s.points[i] }

// Triangulation returns the built mesh; valid once the stage is
// constructed (it does not change shape after New).
func (s *Stage) Triangulation() *triangulate.Triangulation { return s.tri }

// InputTriangleIndices returns the indices into Triangulation().Triangles
// of the genuine (non-super) triangles this stage tracks.
func (s *Stage) InputTriangleIndices() []int { return s.tris }

// FrameMeanLength returns the mean accepted translation length at active
// frame f (0 if no point's update was accepted that frame), for
// diagnostics only.
func (s *Stage) FrameMeanLength(f int) float64 {
	if f < 0 || f >= len(s.frameMeanLength) {
		return 0
	}
	return s.frameMeanLength[f]
}

// PositionAt returns point i's position and validity at active frame f.
func (p *Point) PositionAt(f int) (pixel.Point, bool) {
	if f < 0 || f >= len(p.slots) {
		return pixel.Point{}, false
	}
	return p.slots[f].Pos, p.slots[f].Valid
}
