/*
NAME
  quality.go

DESCRIPTION
  quality.go implements the quality-estimation stage: per-tile, per-frame
  sharpness scoring over the alignment intersection, and the reference
  blocks and area-lookup services reference-point alignment builds on.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

// Package quality implements quality estimation, the stacking pipeline's
// second stage: it tiles the alignment intersection, scores each tile's
// sharpness per frame, and extracts a high-quality reference block per
// tile for reference-point alignment to build on.
package quality

import (
	"errors"

	"gonum.org/v1/gonum/floats"

	"github.com/starvane/skystack/config"
	"github.com/starvane/skystack/internal/imgproc"
	"github.com/starvane/skystack/internal/ioerr"
	"github.com/starvane/skystack/internal/pixel"
	"github.com/starvane/skystack/source"
	"github.com/starvane/skystack/stage/align"
)

// Tile is one rectangular quality-estimation area within the intersection.
type Tile struct {
	Rect pixel.Rect

	scores   []float64 // per active-frame index
	min, max float64
	argmax   int

	RefBlock    *pixel.Image // MONO8, populated after the final step.
	refBlockWin pixel.Rect   // RefBlock's source window, in intersection coordinates.
}

// Stage drives quality estimation one active frame at a time.
type Stage struct {
	src   source.ImageSource
	align *align.Stage
	cfg   *config.Config

	tileSize int
	blurR    int

	cols, rows int
	tiles      []Tile

	frameSums []float64 // per active-frame index, sum over tiles.
	frameIdx  int
	done      bool

	minBlockBrightness, maxBlockBrightness float64
}

// New constructs a quality-estimation stage over alignStage's published
// intersection. alignStage must already be complete (Step returned
// ioerr.ErrLastStep).
func New(src source.ImageSource, alignStage *align.Stage, cfg *config.Config) (*Stage, error) {
	if err := src.SeekStart(); err != nil {
		return nil, err
	}
	s := &Stage{
		src:      src,
		align:    alignStage,
		cfg:      cfg,
		tileSize: int(cfg.QualityTileSize),
		blurR:    int(cfg.QualityBlurRadius),
	}
	rect := alignStage.Intersection()
	s.cols = ceilDiv(rect.Dx(), s.tileSize)
	s.rows = ceilDiv(rect.Dy(), s.tileSize)
	for ty := 0; ty < s.rows; ty++ {
		for tx := 0; tx < s.cols; tx++ {
			tr := tileRect(rect, tx, ty, s.tileSize)
			s.tiles = append(s.tiles, Tile{Rect: tr, min: -1, max: -1, argmax: -1})
		}
	}
	if err := s.scoreCurrentFrame(); err != nil {
		return nil, err
	}
	return s, nil
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// tileRect computes the (tx,ty)th tile of side tileSize within rect,
// clipped so right/bottom edge tiles are smaller rather than overflowing.
func tileRect(rect pixel.Rect, tx, ty, tileSize int) pixel.Rect {
	x0 := rect.Min.X + tx*tileSize
	y0 := rect.Min.Y + ty*tileSize
	x1 := x0 + tileSize
	y1 := y0 + tileSize
	if x1 > rect.Max.X {
		x1 = rect.Max.X
	}
	if y1 > rect.Max.Y {
		y1 = rect.Max.Y
	}
	return pixel.Rect{Min: pixel.Pt(x0, y0), Max: pixel.Pt(x1, y1)}
}

// Step advances the stage by one active frame.
func (s *Stage) Step() error {
	if s.done {
		return ioerr.ErrLastStep
	}
	if err := s.src.SeekNext(); err != nil {
		if errors.Is(err, ioerr.ErrNoMoreImages) {
			if ferr := s.finish(); ferr != nil {
				return ferr
			}
			s.done = true
			return ioerr.ErrLastStep
		}
		return err
	}
	return s.scoreCurrentFrame()
}

// scoreCurrentFrame scores every tile against the source's current frame.
// Called once from New for the first active frame (the source is already
// positioned there), and once per subsequent Step call.
func (s *Stage) scoreCurrentFrame() error {
	im, err := s.src.ImageAt(s.src.CurrentIndex())
	if err != nil {
		return err
	}
	mono, err := toMono8(im)
	if err != nil {
		return err
	}
	frameIdx := s.src.CurrentActiveIndex()
	s.frameIdx = frameIdx
	qs := make([]float64, len(s.tiles))
	for i := range s.tiles {
		t := &s.tiles[i]
		tile, err := pixel.Convert(mono, t.Rect, pixel.MONO8)
		if err != nil {
			return err
		}
		q := imgproc.EstimateQuality(tile, s.blurR)
		qs[i] = q
		for len(t.scores) <= frameIdx {
			t.scores = append(t.scores, 0)
		}
		t.scores[frameIdx] = q
		if t.argmax < 0 || q > t.max {
			t.max = q
			t.argmax = frameIdx
		}
		if t.min < 0 || q < t.min {
			t.min = q
		}
	}
	for len(s.frameSums) <= frameIdx {
		s.frameSums = append(s.frameSums, 0)
	}
	s.frameSums[frameIdx] = floats.Sum(qs)
	return nil
}

func toMono8(im *pixel.Image) (*pixel.Image, error) {
	if im.Format == pixel.MONO8 {
		return im, nil
	}
	return pixel.Convert(im, im.Bounds(), pixel.MONO8)
}

// finish extracts, for every tile, a 3x-size reference block from its
// argmax frame, and records global reference-block brightness extremes.
func (s *Stage) finish() error {
	if err := s.src.SeekStart(); err != nil {
		return err
	}
	// Group tiles by their argmax frame so each frame is only decoded once.
	byFrame := make(map[int][]int)
	for i, t := range s.tiles {
		byFrame[t.argmax] = append(byFrame[t.argmax], i)
	}

	s.minBlockBrightness, s.maxBlockBrightness = -1, -1
	for {
		idxs, ok := byFrame[s.src.CurrentActiveIndex()]
		if ok {
			im, err := s.src.ImageAt(s.src.CurrentIndex())
			if err != nil {
				return err
			}
			mono, err := toMono8(im)
			if err != nil {
				return err
			}
			for _, ti := range idxs {
				t := &s.tiles[ti]
				win := windowRect(t.Rect, 3, mono.Bounds())
				block, err := pixel.Convert(mono, win, pixel.MONO8)
				if err != nil {
					return err
				}
				t.RefBlock = block
				t.refBlockWin = win
				lo, hi := imageExtremes(block)
				if s.cfg.QualityCorrectBrightnessBug {
					if s.minBlockBrightness < 0 || lo < s.minBlockBrightness {
						s.minBlockBrightness = lo
					}
				} else {
					// Faithful reproduction of a documented source bug: the
					// minimum update is gated on the block's own maximum
					// against the running maximum, not its minimum against
					// the running minimum.
					if s.minBlockBrightness < 0 || hi < s.maxBlockBrightness {
						s.minBlockBrightness = lo
					}
				}
				if hi > s.maxBlockBrightness {
					s.maxBlockBrightness = hi
				}
			}
		}
		if err := s.src.SeekNext(); err != nil {
			if errors.Is(err, ioerr.ErrNoMoreImages) {
				break
			}
			return err
		}
	}
	return nil
}

// windowRect returns a factor*-sized window centered on rect, clipped to
// bounds.
func windowRect(rect pixel.Rect, factor int, bounds pixel.Rect) pixel.Rect {
	cx := (rect.Min.X + rect.Max.X) / 2
	cy := (rect.Min.Y + rect.Max.Y) / 2
	hw := rect.Dx() * factor / 2
	hh := rect.Dy() * factor / 2
	win := pixel.Rect{Min: pixel.Pt(cx-hw, cy-hh), Max: pixel.Pt(cx+hw, cy+hh)}
	return win.Intersect(bounds)
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

// AreaIndexAt returns the tile index owning point p (in intersection
// coordinates), via integer division by tile size and row-major indexing.
func (s *Stage) AreaIndexAt(p pixel.Point) int {
	rect := s.align.Intersection()
	tx := (p.X - rect.Min.X) / s.tileSize
	ty := (p.Y - rect.Min.Y) / s.tileSize
	if tx < 0 || ty < 0 || tx >= s.cols || ty >= s.rows {
		return -1
	}
	return ty*s.cols + tx
}

// Tile returns tile i.
func (s *Stage) Tile(i int) *Tile { return &s.tiles[i] }

// NumTiles returns the number of tiles in the grid.
func (s *Stage) NumTiles() int { return len(s.tiles) }

// FrameSum returns the summed quality score over every tile at active
// frame idx, for diagnostics only.
func (s *Stage) FrameSum(idx int) float64 {
	if idx < 0 || idx >= len(s.frameSums) {
		return 0
	}
	return s.frameSums[idx]
}

// ScoreAt returns tile i's quality score for active frame idx.
func (t *Tile) ScoreAt(idx int) float64 {
	if idx < 0 || idx >= len(t.scores) {
		return 0
	}
	return t.scores[idx]
}

// CreateReferenceBlock extracts a square of side desiredSize centered on
// center from tile i's reference block, clipped to stay within it (so the
// result may be smaller than requested).
func (s *Stage) CreateReferenceBlock(tileIdx int, center pixel.Point, desiredSize int) *pixel.Image {
	t := &s.tiles[tileIdx]
	// center is expressed in the same coordinate space as t.Rect; translate
	// it into t.RefBlock's local space via the window recorded in finish.
	local := pixel.Pt(center.X-t.refBlockWin.Min.X, center.Y-t.refBlockWin.Min.Y)
	half := desiredSize / 2
	rect := pixel.Rect{Min: pixel.Pt(local.X-half, local.Y-half), Max: pixel.Pt(local.X+half, local.Y+half)}
	rect = rect.Intersect(t.RefBlock.Bounds())
	out, err := pixel.Convert(t.RefBlock, rect, pixel.MONO8)
	if err != nil {
		panic(err)
	}
	return out
}

// MinMaxBlockBrightness returns the brightness extremes across every
// tile's reference block, valid once the stage is complete. Unless
// cfg.QualityCorrectBrightnessBug is set, the minimum is accumulated with
// a documented bug preserved: the update compares the block's own maximum
// against the running maximum rather than its minimum against the running
// minimum (see config.Config.QualityCorrectBrightnessBug).
func (s *Stage) MinMaxBlockBrightness() (min, max float64) {
	return s.minBlockBrightness, s.maxBlockBrightness
}
