/*
NAME
  pipeline_test.go

DESCRIPTION
  pipeline_test.go drives the full four-stage pipeline end to end over a
  synthetic stationary textured frame sequence.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package pipeline

import (
	"testing"
	"time"

	"github.com/starvane/skystack/config"
	"github.com/starvane/skystack/internal/ioerr"
	"github.com/starvane/skystack/internal/pixel"
	"github.com/starvane/skystack/source"
)

// dumbLogger discards everything; it exists only to satisfy
// logging.Logger in tests, matching config's own test helper.
type dumbLogger struct{}

func (dumbLogger) Log(l int8, m string, a ...interface{})  {}
func (dumbLogger) SetLevel(l int8)                         {}
func (dumbLogger) Debug(msg string, args ...interface{})   {}
func (dumbLogger) Info(msg string, args ...interface{})    {}
func (dumbLogger) Warning(msg string, args ...interface{}) {}
func (dumbLogger) Error(msg string, args ...interface{})   {}
func (dumbLogger) Fatal(msg string, args ...interface{})   {}

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

func texturedFrame() *pixel.Image {
	im := pixel.New(64, 64, pixel.MONO8)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			im.SetMono8At(x, y, byte((x*37+y*61+(x*y)%7)%256))
		}
	}
	return im
}

func testConfig() *config.Config {
	return &config.Config{
		Logger:                 dumbLogger{},
		AlignMethod:            config.AlignAnchors,
		AnchorBlockSize:        8,
		AnchorSearchRadius:     4,
		AnchorInitialStep:      2,
		OverexposureThreshold:  250,
		QualityTileSize:        32,
		QualityBlurRadius:      1,
		RefPointMinSpacing:     16,
		RefPointStructureScale: 4,
		RefPointOutlierSigma:   3,
		RefPointWindowSize:     10,
		RefPointCriterion:      config.PercentageBest,
		RefPointCriterionK:     100,
	}
}

// fakeClock advances by a fixed step on every call, so Stats durations are
// deterministic and nonzero without depending on wall-clock time.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func TestPipelineRunProducesStack(t *testing.T) {
	frames := []*pixel.Image{texturedFrame(), texturedFrame(), texturedFrame()}
	src := newMemSource(frames)
	cfg := testConfig()
	positions := []pixel.Point{
		pixel.Pt(16, 16), pixel.Pt(48, 16), pixel.Pt(16, 48), pixel.Pt(48, 48),
	}

	p := New(src, cfg, WithPositions(positions), WithClock(&fakeClock{}))
	st, err := p.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if p.Align == nil || p.Quality == nil || p.RefPoint == nil || p.Stack == nil {
		t.Fatal("Run did not populate every stage field")
	}
	if p.Stats.Frames != 3 {
		t.Errorf("Stats.Frames = %d, want 3", p.Stats.Frames)
	}
	if p.Stats.Align <= 0 || p.Stats.Quality <= 0 || p.Stats.RefPoint <= 0 || p.Stats.Stack <= 0 {
		t.Errorf("Stats durations not all recorded: %+v", p.Stats)
	}

	out := st.Result()
	if out.Width != st.Rect().Dx() || out.Height != st.Rect().Dy() {
		t.Errorf("Result() dims = %dx%d, want %dx%d", out.Width, out.Height, st.Rect().Dx(), st.Rect().Dy())
	}
}
