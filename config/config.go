/*
NAME
  config.go

DESCRIPTION
  config.go defines Config, the set of tunable parameters governing the
  lucky-imaging pipeline's four stages, along with its defaulting and
  update machinery.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

// Package config holds the skystack pipeline's tunable parameters: one
// Config struct, a Variables table describing how each field is parsed,
// defaulted and validated, and the logging.Logger every stage logs
// through.
package config

import (
	"github.com/ausocean/utils/logging"
)

// AlignMethod selects the image-alignment stage's tracking strategy.
type AlignMethod int

const (
	// AlignAnchors tracks a configurable set of auto-placed anchor blocks.
	AlignAnchors AlignMethod = iota
	// AlignCentroid tracks the image-moment centroid of the bright pixels.
	AlignCentroid
)

// RefPointCriterion selects the per-frame rule a triangle's summed vertex
// quality must satisfy to be accepted for stacking that frame.
type RefPointCriterion int

const (
	// PercentageBest accepts a triangle if its quality-sum rank this frame
	// falls in the top RefPointCriterionK percent.
	PercentageBest RefPointCriterion = iota
	// MinRelQuality accepts a triangle if qsum >= qmin + (k/100)*(qmax-qmin).
	MinRelQuality
	// NumberBest accepts a triangle if its rank this frame is within the
	// top RefPointCriterionK triangles.
	NumberBest
)

// DemosaicMethod selects the interpolation kernel used to reconstruct
// colour/mono data from CFA sources.
type DemosaicMethod int

const (
	// DemosaicSimple is the bilinear/box-filter interpolation.
	DemosaicSimple DemosaicMethod = iota
	// DemosaicHQLinear is the Malvar-He-Cutler gradient-corrected filter.
	DemosaicHQLinear
)

// Config provides the parameters relevant to one skystack run. A new
// Config must be passed through Validate before use; Update applies a map
// of string-encoded values (as read from a config file or CLI flags)
// before Validate fills in anything left unset.
type Config struct {
	// InputPath is the source video/image-sequence path.
	InputPath string
	// OutputPath is the destination for the final stacked image.
	OutputPath string
	// FlatfieldPath, if non-empty, names a flatfield gain map that every
	// warped contribution is multiplied by during stacking; the file's
	// values are used as read, not inverted.
	FlatfieldPath string

	// AlignMethod selects ANCHORS or CENTROID tracking for the image
	// alignment stage.
	AlignMethod AlignMethod

	// AnchorBlockSize is the side length, in pixels, of each tracked anchor
	// block under ANCHORS alignment.
	AnchorBlockSize uint
	// AnchorSearchRadius bounds the block matcher's search window, in
	// pixels, around an anchor's predicted position.
	AnchorSearchRadius uint
	// AnchorInitialStep is parsed and defaulted, but the alignment stage
	// does not read it: anchor block matching always starts at step 4.
	AnchorInitialStep uint
	// AnchorRefreshInterval is parsed and defaulted, but the alignment
	// stage does not read it: an anchor is invalidated on the first frame
	// its match fails or lands too near the frame edge.
	AnchorRefreshInterval uint
	// OverexposureThreshold, divided by 255, is the fraction of the first
	// frame's brightness range (above its minimum) a pixel must exceed to
	// count toward anchor auto-placement's brightness gate; pixels at 255
	// never count.
	OverexposureThreshold uint

	// QualityTileSize is the side length, in pixels, of each tile in the
	// quality-estimation stage's grid over the alignment intersection.
	QualityTileSize uint
	// QualityBlurRadius is the box-blur radius used by estimate_quality.
	QualityBlurRadius uint
	// QualityCorrectBrightnessBug, when false (the default), reproduces a
	// documented comparison bug in the minimum reference-block brightness
	// accumulation: the update is gated on the block's own maximum against
	// the running maximum, rather than the block's minimum against the
	// running minimum. Set true to use the corrected comparison instead.
	QualityCorrectBrightnessBug bool

	// RefPointMinSpacing is the minimum allowed distance, in pixels,
	// between two automatically placed reference points.
	RefPointMinSpacing uint
	// RefPointStructureThreshold is the minimum structure fitness score a
	// candidate reference point location must reach to be placed.
	RefPointStructureThreshold float64
	// RefPointWindowSize is the sliding window length (in frames) used by
	// the translation-length outlier rejection pass.
	RefPointWindowSize uint
	// RefPointOutlierSigma is the number of standard deviations beyond the
	// window mean at which a translation length is rejected as an outlier
	// (default 1.5, exposed as configurable rather than a fixed constant).
	RefPointOutlierSigma float64
	// RefPointBrightThreshold is the brightness-gate fraction (0-1) of the
	// global reference-block brightness range a candidate neighbourhood
	// must reach at least one pixel above, during automatic placement.
	RefPointBrightThreshold float64
	// RefPointStructureScale is the shell radius, in pixels, used by the
	// two-scale structure-fitness score during automatic placement.
	RefPointStructureScale uint
	// RefPointCriterion selects which per-frame triangle-quality acceptance
	// rule reference-point alignment applies.
	RefPointCriterion RefPointCriterion
	// RefPointCriterionK is the threshold parameter for RefPointCriterion
	// (a percentage for PERCENTAGE_BEST/MIN_REL_QUALITY, a count for
	// NUMBER_BEST).
	RefPointCriterionK float64

	// DemosaicMethod names SIMPLE or HQLINEAR CFA interpolation. No stage
	// reads it: pixel.Convert, through which the stages decode CFA frames,
	// always uses HQLINEAR.
	DemosaicMethod DemosaicMethod

	// CacheCapacity is a frame count for internal/imgcache. It is parsed
	// and defaulted, but no stage creates a cache or reads it.
	CacheCapacity uint

	// LogPath and the LogMax* fields name a log file and its rotation
	// limits. They are parsed and defaulted here; cmd/skystack takes its
	// log file from its -log flag and its limits from its own constants,
	// and does not read these fields.
	LogPath       string
	LogMaxSizeMB  uint
	LogMaxBackups uint
	LogMaxAgeDays uint

	// Suppress holds logger suppression state.
	Suppress bool

	// Logger receives structured log events from every stage; set by the
	// caller before Validate/Update are invoked.
	Logger logging.Logger
}

// Validate checks every field in Variables, defaulting it if invalid or
// unset, and returns nil (defaulting never fails outright; it logs and
// substitutes a default instead, matching the pipeline's tolerant
// configuration style).
func (c *Config) Validate() error {
	for _, v := range Variables {
		if v.Validate != nil {
			v.Validate(c)
		}
	}
	return nil
}

// Update applies vars, a map of configuration variable names to their
// string-encoded values, onto c.
func (c *Config) Update(vars map[string]string) {
	for _, v := range Variables {
		if val, ok := vars[v.Name]; ok && v.Update != nil {
			v.Update(c, val)
		}
	}
}

// LogInvalidField logs that field name was bad or unset and is being
// defaulted to def.
func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}
