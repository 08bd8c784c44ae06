/*
NAME
  align_test.go

DESCRIPTION
  align_test.go provides testing for the image-alignment stage in
  align.go, against a synthetic translating-square sequence.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package align

import (
	"errors"
	"testing"

	"github.com/starvane/skystack/config"
	"github.com/starvane/skystack/internal/ioerr"
	"github.com/starvane/skystack/internal/pixel"
	"github.com/starvane/skystack/source"
)

// memSource is a minimal in-memory source.ImageSource implementation for
// testing, avoiding any container format dependency.
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

func (m *memSource) Count() int      { return len(m.frames) }
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

// squareFrame builds a 64x64 MONO8 frame with an 8x8 bright square whose
// top-left corner sits at (ox,oy), background at 20, square at 220.
func squareFrame(ox, oy int) *pixel.Image {
	im := pixel.New(64, 64, pixel.MONO8)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			im.SetMono8At(x, y, 20)
		}
	}
	for y := oy; y < oy+8; y++ {
		for x := ox; x < ox+8; x++ {
			im.SetMono8At(x, y, 220)
		}
	}
	return im
}

func TestAlignAnchorsTranslatingSquare(t *testing.T) {
	offsets := []int{0, 1, 2, 3, 4}
	var frames []*pixel.Image
	for _, d := range offsets {
		frames = append(frames, squareFrame(28+d, 28))
	}
	src := newMemSource(frames)

	cfg := &config.Config{
		AlignMethod:           config.AlignAnchors,
		AnchorBlockSize:       16,
		AnchorSearchRadius:    8,
		AnchorInitialStep:     4,
		QualityBlurRadius:     2,
		OverexposureThreshold: 250,
	}

	stage, err := New(src, cfg, []pixel.Point{pixel.Pt(32, 32)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for {
		err := stage.Step()
		if errors.Is(err, ioerr.ErrLastStep) {
			break
		}
		if err != nil {
			t.Fatalf("Step: %v", err)
		}
	}

	got := stage.Offsets()
	if len(got) != len(offsets) {
		t.Fatalf("len(Offsets()) = %d, want %d", len(got), len(offsets))
	}
	for i, want := range offsets {
		if got[i].X != want || got[i].Y != 0 {
			t.Errorf("Offsets()[%d] = %v, want (%d,0)", i, got[i], want)
		}
	}

	inter := stage.Intersection()
	wantWidth := 64 - (offsets[len(offsets)-1] - offsets[0])
	if inter.Dx() != wantWidth {
		t.Errorf("Intersection().Dx() = %d, want %d", inter.Dx(), wantWidth)
	}
	if inter.Dy() != 64 {
		t.Errorf("Intersection().Dy() = %d, want 64", inter.Dy())
	}
}
