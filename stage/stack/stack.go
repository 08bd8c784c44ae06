/*
NAME
  stack.go

DESCRIPTION
  stack.go implements stacking, the pipeline's fourth and final stage: a
  rasterized triangle mesh pre-pass, per-frame barycentric warping with
  bilinear interpolation and optional flatfield correction, and weighted
  averaging into a running composite.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

// Package stack implements stacking: it rasterizes the reference-point
// mesh once into a per-pixel triangle/barycentric lookup, then for every
// active frame warps and accumulates each accepted triangle's pixels into
// a running sum and contribution count, finalizing into a normalized
// composite image.
package stack

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/starvane/skystack/config"
	"github.com/starvane/skystack/container/bmp"
	"github.com/starvane/skystack/container/tiff"
	"github.com/starvane/skystack/internal/ioerr"
	"github.com/starvane/skystack/internal/pixel"
	"github.com/starvane/skystack/source"
	"github.com/starvane/skystack/stage/align"
	"github.com/starvane/skystack/stage/refpoint"
)

// pixelSample is one output pixel's rasterized triangle ownership.
type pixelSample struct {
	tri  int // index into refpoint.InputTriangleIndices(), -1 if unowned.
	u, v float64
}

// Stage drives stacking one active frame at a time.
type Stage struct {
	src      source.ImageSource
	align    *align.Stage
	refpoint *refpoint.Stage
	cfg      *config.Config

	rect     pixel.Rect
	format   pixel.Format
	channels int

	samples []pixelSample // rect.Dx()*rect.Dy(), row-major from rect.Min.

	flatfield *pixel.Image // MONO32F, nil if cfg.FlatfieldPath is unset.

	accum []float64 // len(samples)*channels.
	count []int     // len(samples).

	frameIdx int
	done     bool
}

// New constructs stacking over alignStage/rpStage's completed output,
// rasterizing the mesh and accumulating the first active frame.
func New(src source.ImageSource, alignStage *align.Stage, rpStage *refpoint.Stage, cfg *config.Config) (*Stage, error) {
	if err := src.SeekStart(); err != nil {
		return nil, err
	}
	s := &Stage{src: src, align: alignStage, refpoint: rpStage, cfg: cfg}
	s.rect = alignStage.Intersection()

	im, err := src.ImageAt(src.CurrentIndex())
	if err != nil {
		return nil, err
	}
	s.format, s.channels = outputFormat(im.Format)

	if cfg.FlatfieldPath != "" {
		ff, err := loadFlatfield(cfg.FlatfieldPath)
		if err != nil {
			return nil, err
		}
		s.flatfield = ff
	}

	s.rasterize()

	w, h := s.rect.Dx(), s.rect.Dy()
	s.accum = make([]float64, w*h*s.channels)
	s.count = make([]int, w*h)

	if err := s.stepCurrentFrame(); err != nil {
		return nil, err
	}
	return s, nil
}

// outputFormat picks MONO32F for a single-channel non-CFA source, RGB32F
// otherwise (CFA sources demosaic to RGB via pixel.Convert).
func outputFormat(f pixel.Format) (pixel.Format, int) {
	if f.IsCFA() || f.Channels() >= 3 {
		return pixel.RGB32F, 3
	}
	return pixel.MONO32F, 1
}

// loadFlatfield decodes path as a BMP or TIFF file, dispatched by
// extension, and converts it to MONO32F.
func loadFlatfield(path string) (*pixel.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ioerr.Wrap(ioerr.CodeCannotOpenFile, err, "stack: reading flatfield file")
	}
	var im *pixel.Image
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bmp":
		im, err = bmp.Decode(bytes.NewReader(data))
	case ".tif", ".tiff":
		im, err = tiff.Decode(bytes.NewReader(data))
	default:
		return nil, ioerr.New(ioerr.CodeUnsupportedFileFormat, "stack: unrecognized flatfield extension %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return pixel.Convert(im, im.Bounds(), pixel.MONO32F)
}

// rasterize assigns every intersection pixel to at most one triangle
// (first-come ownership) along with its barycentric weights, using the
// mesh's final (averaged) vertex positions.
func (s *Stage) rasterize() {
	w, h := s.rect.Dx(), s.rect.Dy()
	s.samples = make([]pixelSample, w*h)
	for i := range s.samples {
		s.samples[i].tri = -1
	}

	tris := s.refpoint.InputTriangleIndices()
	triList := s.refpoint.Triangulation().Triangles
	for ti, t := range tris {
		tr := triList[t]
		p0 := s.refpoint.PointAt(tr.V[0]).Final
		p1 := s.refpoint.PointAt(tr.V[1]).Final
		p2 := s.refpoint.PointAt(tr.V[2]).Final

		minX, maxX := min3(p0.X, p1.X, p2.X), max3(p0.X, p1.X, p2.X)
		minY, maxY := min3(p0.Y, p1.Y, p2.Y), max3(p0.Y, p1.Y, p2.Y)
		if minX < s.rect.Min.X {
			minX = s.rect.Min.X
		}
		if minY < s.rect.Min.Y {
			minY = s.rect.Min.Y
		}
		if maxX > s.rect.Max.X-1 {
			maxX = s.rect.Max.X - 1
		}
		if maxY > s.rect.Max.Y-1 {
			maxY = s.rect.Max.Y - 1
		}

		for y := minY; y <= maxY; y++ {
			for x := minX; x <= maxX; x++ {
				u, v, wgt, ok := barycentric(p0, p1, p2, float64(x), float64(y))
				if !ok {
					continue
				}
				idx := (y-s.rect.Min.Y)*w + (x - s.rect.Min.X)
				if s.samples[idx].tri >= 0 {
					continue
				}
				_ = wgt
				s.samples[idx] = pixelSample{tri: ti, u: u, v: v}
			}
		}
	}
}

const baryEpsilon = 1e-6

// barycentric computes (u,v,w) such that (x,y) = u*p0 + v*p1 + w*p2,
// u+v+w=1, returning ok=false if (x,y) lies outside the triangle (allowing
// a small epsilon so edge pixels are not dropped) or the triangle is
// degenerate.
func barycentric(p0, p1, p2 pixel.Point, x, y float64) (u, v, w float64, ok bool) {
	x0, y0 := float64(p0.X), float64(p0.Y)
	x1, y1 := float64(p1.X), float64(p1.Y)
	x2, y2 := float64(p2.X), float64(p2.Y)

	denom := (y1-y2)*(x0-x2) + (x2-x1)*(y0-y2)
	if denom == 0 {
		return 0, 0, 0, false
	}
	u = ((y1-y2)*(x-x2) + (x2-x1)*(y-y2)) / denom
	v = ((y2-y0)*(x-x2) + (x0-x2)*(y-y2)) / denom
	w = 1 - u - v
	if u < -baryEpsilon || v < -baryEpsilon || w < -baryEpsilon {
		return 0, 0, 0, false
	}
	return u, v, w, true
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func max3(a, b, c int) int {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

// Step advances the stage by one active frame.
func (s *Stage) Step() error {
	if s.done {
		return ioerr.ErrLastStep
	}
	if err := s.src.SeekNext(); err != nil {
		if errors.Is(err, ioerr.ErrNoMoreImages) {
			s.done = true
			return ioerr.ErrLastStep
		}
		return err
	}
	return s.stepCurrentFrame()
}

// stepCurrentFrame warps and accumulates every accepted triangle's
// rasterized pixels against the source's current frame.
func (s *Stage) stepCurrentFrame() error {
	frameIdx := s.src.CurrentActiveIndex()
	s.frameIdx = frameIdx

	im, err := s.src.ImageAt(s.src.CurrentIndex())
	if err != nil {
		return err
	}
	frame, err := pixel.Convert(im, im.Bounds(), s.format)
	if err != nil {
		return err
	}

	tris := s.refpoint.InputTriangleIndices()
	triList := s.refpoint.Triangulation().Triangles
	accepted := make([]bool, len(tris))
	verts := make([][3]pixel.Point, len(tris))
	for i, ti := range tris {
		tr := triList[ti]
		var positions [3]pixel.Point
		ok := true
		anyInside := false
		for k, v := range tr.V {
			p := s.refpoint.PointAt(v)
			pos, valid := p.PositionAt(frameIdx)
			if !valid {
				ok = false
				break
			}
			positions[k] = pos
			if pointIn(s.rect, p.Final) {
				anyInside = true
			}
		}
		if !ok || !anyInside {
			continue
		}
		accepted[i] = true
		verts[i] = positions
	}

	for idx := range s.samples {
		sm := s.samples[idx]
		if sm.tri < 0 || !accepted[sm.tri] {
			continue
		}
		p := verts[sm.tri]
		w := 1 - sm.u - sm.v
		sx := sm.u*float64(p[0].X) + sm.v*float64(p[1].X) + w*float64(p[2].X)
		sy := sm.u*float64(p[0].Y) + sm.v*float64(p[1].Y) + w*float64(p[2].Y)

		gain := 1.0
		if s.flatfield != nil {
			if fv, fok := bilinearSample(s.flatfield, 0, sx, sy); fok {
				gain = fv
			}
		}

		contributed := false
		for ch := 0; ch < s.channels; ch++ {
			val, ok := bilinearSample(frame, ch, sx, sy)
			if !ok {
				continue
			}
			s.accum[idx*s.channels+ch] += val * gain
			contributed = true
		}
		if contributed {
			s.count[idx]++
		}
	}
	return nil
}

func pointIn(rect pixel.Rect, p pixel.Point) bool {
	return p.X >= rect.Min.X && p.X < rect.Max.X && p.Y >= rect.Min.Y && p.Y < rect.Max.Y
}

// bilinearSample interpolates channel ch of im at floating-point (x,y),
// returning ok=false if (x,y) lies outside im's bounds.
func bilinearSample(im *pixel.Image, ch int, x, y float64) (float64, bool) {
	if x < 0 || y < 0 || x > float64(im.Width-1) || y > float64(im.Height-1) {
		return 0, false
	}
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1, y1 := x0+1, y0+1
	if x1 >= im.Width {
		x1 = im.Width - 1
	}
	if y1 >= im.Height {
		y1 = im.Height - 1
	}
	fx := x - float64(x0)
	fy := y - float64(y0)

	v00 := float64(im.Float32At(x0, y0, ch))
	v10 := float64(im.Float32At(x1, y0, ch))
	v01 := float64(im.Float32At(x0, y1, ch))
	v11 := float64(im.Float32At(x1, y1, ch))
	top := v00*(1-fx) + v10*fx
	bot := v01*(1-fx) + v11*fx
	return top*(1-fy) + bot*fy, true
}

// Result returns a normalized snapshot of the composite: every pixel
// divided by max(1, its contribution count). Valid both mid-processing
// (an "incomplete" stack) and after Step returns ioerr.ErrLastStep, at
// which point a flatfield-corrected stack is additionally divided by its
// own global maximum so the output stays in [0, 1].
func (s *Stage) Result() *pixel.Image {
	w, h := s.rect.Dx(), s.rect.Dy()
	out := pixel.New(w, h, s.format)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			c := s.count[idx]
			if c < 1 {
				c = 1
			}
			for ch := 0; ch < s.channels; ch++ {
				v := s.accum[idx*s.channels+ch] / float64(c)
				out.SetFloat32At(x, y, ch, float32(v))
			}
		}
	}
	if s.done && s.flatfield != nil {
		normalizeToUnitMax(out)
	}
	return out
}

func normalizeToUnitMax(im *pixel.Image) {
	max := float32(0)
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			for ch := 0; ch < im.Format.Channels(); ch++ {
				if v := im.Float32At(x, y, ch); v > max {
					max = v
				}
			}
		}
	}
	if max <= 0 {
		return
	}
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			for ch := 0; ch < im.Format.Channels(); ch++ {
				im.SetFloat32At(x, y, ch, im.Float32At(x, y, ch)/max)
			}
		}
	}
}

// Rect returns the intersection rectangle the stack is rasterized over.
func (s *Stage) Rect() pixel.Rect { return s.rect }

// Format returns the stack's pixel format (MONO32F or RGB32F).
func (s *Stage) Format() pixel.Format { return s.format }
