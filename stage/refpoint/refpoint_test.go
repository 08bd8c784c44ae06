/*
NAME
  refpoint_test.go

DESCRIPTION
  refpoint_test.go provides testing for reference-point alignment in
  refpoint.go, against a synthetic stationary textured frame sequence.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package refpoint

import (
	"errors"
	"testing"

	"github.com/starvane/skystack/config"
	"github.com/starvane/skystack/internal/ioerr"
	"github.com/starvane/skystack/internal/pixel"
	"github.com/starvane/skystack/source"
	"github.com/starvane/skystack/stage/align"
	"github.com/starvane/skystack/stage/quality"
)

// memSource is a minimal in-memory source.ImageSource, kept local to this
// package's tests like every other stage's.
type memSource struct {
	frames []*pixel.Image
	active []bool
	cur    int
}

func newMemSource(frames []*pixel.Image) *memSource {
	active := make([]bool, len(frames))
	for i := range active {
		active[i] = true
	}
	return &memSource{frames: frames, active: active, cur: len(frames)}
}

func (m *memSource) Count() int { return len(m.frames) }
func (m *memSource) ActiveCount() int {
	n := 0
	for _, a := range m.active {
		if a {
			n++
		}
	}
	return n
}
func (m *memSource) CurrentIndex() int { return m.cur }
func (m *memSource) CurrentActiveIndex() int {
	n := 0
	for i := 0; i < m.cur; i++ {
		if m.active[i] {
			n++
		}
	}
	return n
}
func (m *memSource) SeekStart() error { m.cur = -1; return m.SeekNext() }
func (m *memSource) SeekNext() error {
	for i := m.cur + 1; i < len(m.frames); i++ {
		if m.active[i] {
			m.cur = i
			return nil
		}
	}
	m.cur = len(m.frames)
	return ioerr.ErrNoMoreImages
}
func (m *memSource) ImageAt(i int) (*pixel.Image, error) { return m.frames[i], nil }
func (m *memSource) MetadataAtCurrent() (source.Metadata, error) {
	if m.cur >= len(m.frames) {
		return source.Metadata{}, ioerr.ErrNoMoreImages
	}
	im := m.frames[m.cur]
	return source.Metadata{Width: im.Width, Height: im.Height, Format: im.Format}, nil
}
func (m *memSource) SetActive(i int, a bool) { m.active[i] = a }

var _ source.ImageSource = (*memSource)(nil)

// texturedFrame builds a 64x64 MONO8 frame with a deterministic, spatially
// varying but frame-invariant pattern — block matching a stationary
// feature against an identical copy of itself should find a unique,
// exact-zero-SSD minimum rather than tying across a flat region.
func texturedFrame() *pixel.Image {
	im := pixel.New(64, 64, pixel.MONO8)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			im.SetMono8At(x, y, byte((x*37+y*61+(x*y)%7)%256))
		}
	}
	return im
}

func runAlign(t *testing.T, frames []*pixel.Image, cfg *config.Config) (*memSource, *align.Stage) {
	t.Helper()
	src := newMemSource(frames)
	st, err := align.New(src, cfg, nil)
	if err != nil {
		t.Fatalf("align.New: %v", err)
	}
	for {
		err := st.Step()
		if errors.Is(err, ioerr.ErrLastStep) {
			break
		}
		if err != nil {
			t.Fatalf("align.Step: %v", err)
		}
	}
	return src, st
}

func runQuality(t *testing.T, src source.ImageSource, alignStage *align.Stage, cfg *config.Config) *quality.Stage {
	t.Helper()
	q, err := quality.New(src, alignStage, cfg)
	if err != nil {
		t.Fatalf("quality.New: %v", err)
	}
	for {
		err := q.Step()
		if errors.Is(err, ioerr.ErrLastStep) {
			break
		}
		if err != nil {
			t.Fatalf("quality.Step: %v", err)
		}
	}
	return q
}

func testConfig() *config.Config {
	return &config.Config{
		AlignMethod:             config.AlignAnchors,
		AnchorBlockSize:         8,
		AnchorSearchRadius:      4,
		AnchorInitialStep:       2,
		OverexposureThreshold:   250,
		QualityTileSize:         32,
		QualityBlurRadius:       1,
		RefPointMinSpacing:      16,
		RefPointStructureScale:  4,
		RefPointOutlierSigma:    3,
		RefPointWindowSize:      10,
		RefPointCriterion:       config.PercentageBest,
		RefPointCriterionK:      100,
	}
}

func TestRefPointStationaryFramesHoldPosition(t *testing.T) {
	frames := []*pixel.Image{texturedFrame(), texturedFrame(), texturedFrame()}
	cfg := testConfig()
	src, alignStage := runAlign(t, frames, cfg)
	qualityStage := runQuality(t, src, alignStage, cfg)

	positions := []pixel.Point{
		pixel.Pt(16, 16), pixel.Pt(48, 16), pixel.Pt(16, 48), pixel.Pt(48, 48),
	}
	rp, err := New(src, alignStage, qualityStage, cfg, positions)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for {
		err := rp.Step()
		if errors.Is(err, ioerr.ErrLastStep) {
			break
		}
		if err != nil {
			t.Fatalf("Step: %v", err)
		}
	}

	if got, want := rp.NumPoints(), len(positions)+16; got != want {
		t.Fatalf("NumPoints() = %d, want %d (4 placed + 16 boundary)", got, want)
	}

	for i, want := range positions {
		p := rp.PointAt(i)
		if p.Final != want {
			t.Errorf("point %d final = %v, want %v (stationary sequence)", i, p.Final, want)
		}
	}
}

func TestRefPointTriangulationNonEmpty(t *testing.T) {
	frames := []*pixel.Image{texturedFrame(), texturedFrame()}
	cfg := testConfig()
	src, alignStage := runAlign(t, frames, cfg)
	qualityStage := runQuality(t, src, alignStage, cfg)

	positions := []pixel.Point{pixel.Pt(16, 16), pixel.Pt(48, 16), pixel.Pt(16, 48), pixel.Pt(48, 48)}
	rp, err := New(src, alignStage, qualityStage, cfg, positions)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for {
		if errors.Is(rp.Step(), ioerr.ErrLastStep) {
			break
		}
	}

	if len(rp.InputTriangleIndices()) == 0 {
		t.Fatal("InputTriangleIndices() is empty, want at least one triangle")
	}
	if rp.Triangulation() == nil {
		t.Fatal("Triangulation() returned nil")
	}
}

func TestBoundaryPointsOutsideRect(t *testing.T) {
	rect := pixel.Rect{Min: pixel.Pt(0, 0), Max: pixel.Pt(64, 64)}
	pts := boundaryPoints(rect)
	if len(pts) != 16 {
		t.Fatalf("boundaryPoints() returned %d points, want 16", len(pts))
	}
	for _, p := range pts {
		if rect.Min.X <= p.X && p.X < rect.Max.X && rect.Min.Y <= p.Y && p.Y < rect.Max.Y {
			t.Errorf("boundary point %v lies inside rect %v, want outside", p, rect)
		}
	}
}
