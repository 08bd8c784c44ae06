/*
NAME
  pipeline.go

DESCRIPTION
  pipeline.go drives the four-stage lucky-imaging pipeline (alignment,
  quality estimation, reference-point alignment, stacking) to completion
  over a single ImageSource, one active frame at a time.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

// Package pipeline wires image alignment, quality estimation,
// reference-point alignment and stacking into a single cooperative,
// single-threaded step-loop driver, matching each stage's init/step/
// query-only lifecycle.
package pipeline

import (
	"errors"
	"time"

	"github.com/starvane/skystack/config"
	"github.com/starvane/skystack/internal/ioerr"
	"github.com/starvane/skystack/internal/pixel"
	"github.com/starvane/skystack/source"
	"github.com/starvane/skystack/stage/align"
	"github.com/starvane/skystack/stage/quality"
	"github.com/starvane/skystack/stage/refpoint"
	"github.com/starvane/skystack/stage/stack"
)

// Clock is the pluggable monotonic clock used only for timing statistics
// (never for pipeline control flow).
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Stats records wall-clock duration spent driving each stage, for
// diagnostics only.
type Stats struct {
	Align, Quality, RefPoint, Stack time.Duration
	Frames                          int
}

// Pipeline drives the four stages over src to completion.
type Pipeline struct {
	src       source.ImageSource
	cfg       *config.Config
	positions []pixel.Point
	clock     Clock

	Align    *align.Stage
	Quality  *quality.Stage
	RefPoint *refpoint.Stage
	Stack    *stack.Stage

	Stats Stats
}

// Option configures a Pipeline at construction.
type Option func(*Pipeline)

// WithPositions supplies an explicit reference-point set instead of
// automatic placement.
func WithPositions(positions []pixel.Point) Option {
	return func(p *Pipeline) { p.positions = positions }
}

// WithClock overrides the pipeline's timing-statistics clock.
func WithClock(c Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// New constructs a Pipeline against src and cfg. Stages are not run until
// Run is called.
func New(src source.ImageSource, cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{src: src, cfg: cfg, clock: realClock{}}
	for _, o := range opts {
		o(p)
	}
	return p
}

// driveToLastStep steps stage (via next) until it reports
// ioerr.ErrLastStep, returning any other error encountered.
func driveToLastStep(next func() error) error {
	for {
		err := next()
		if errors.Is(err, ioerr.ErrLastStep) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Run drives every stage to completion in order, logging stage
// transitions through cfg.Logger and recording per-stage timing in
// p.Stats. It returns the finished Stack stage; Result() on it yields the
// final composite.
func (p *Pipeline) Run() (*stack.Stage, error) {
	log := p.cfg.Logger

	log.Debug("pipeline: starting image alignment")
	t0 := p.clock.Now()
	alignStage, err := align.New(p.src, p.cfg, nil)
	if err != nil {
		return nil, err
	}
	if err := driveToLastStep(alignStage.Step); err != nil {
		return nil, err
	}
	p.Align = alignStage
	p.Stats.Align = p.clock.Now().Sub(t0)
	log.Info("pipeline: image alignment complete", "duration", p.Stats.Align.String())

	log.Debug("pipeline: starting quality estimation")
	t0 = p.clock.Now()
	qualityStage, err := quality.New(p.src, alignStage, p.cfg)
	if err != nil {
		return nil, err
	}
	if err := driveToLastStep(qualityStage.Step); err != nil {
		return nil, err
	}
	p.Quality = qualityStage
	p.Stats.Quality = p.clock.Now().Sub(t0)
	log.Info("pipeline: quality estimation complete", "duration", p.Stats.Quality.String())

	log.Debug("pipeline: starting reference-point alignment")
	t0 = p.clock.Now()
	rpStage, err := refpoint.New(p.src, alignStage, qualityStage, p.cfg, p.positions)
	if err != nil {
		return nil, err
	}
	if err := driveToLastStep(rpStage.Step); err != nil {
		return nil, err
	}
	p.RefPoint = rpStage
	p.Stats.RefPoint = p.clock.Now().Sub(t0)
	log.Info("pipeline: reference-point alignment complete", "duration", p.Stats.RefPoint.String(), "points", rpStage.NumPoints())

	log.Debug("pipeline: starting stacking")
	t0 = p.clock.Now()
	stackStage, err := stack.New(p.src, alignStage, rpStage, p.cfg)
	if err != nil {
		return nil, err
	}
	if err := driveToLastStep(stackStage.Step); err != nil {
		return nil, err
	}
	p.Stack = stackStage
	p.Stats.Stack = p.clock.Now().Sub(t0)
	p.Stats.Frames = p.src.ActiveCount()
	log.Info("pipeline: stacking complete", "duration", p.Stats.Stack.String(), "frames", p.Stats.Frames)

	return stackStage, nil
}
