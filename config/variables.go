/*
NAME
  variables.go

DESCRIPTION
  variables.go lists, for each Config field that can be set from an
  external source (a config file or CLI flags), its name, its parser/
  updater, and its validator/defaulter.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config map keys.
const (
	KeyInputPath                   = "InputPath"
	KeyOutputPath                  = "OutputPath"
	KeyFlatfieldPath               = "FlatfieldPath"
	KeyAlignMethod                 = "AlignMethod"
	KeyAnchorBlockSize             = "AnchorBlockSize"
	KeyAnchorSearchRadius          = "AnchorSearchRadius"
	KeyAnchorInitialStep           = "AnchorInitialStep"
	KeyAnchorRefreshInterval       = "AnchorRefreshInterval"
	KeyOverexposureThreshold       = "OverexposureThreshold"
	KeyQualityTileSize             = "QualityTileSize"
	KeyQualityBlurRadius           = "QualityBlurRadius"
	KeyQualityCorrectBrightnessBug = "QualityCorrectBrightnessBug"
	KeyRefPointMinSpacing          = "RefPointMinSpacing"
	KeyRefPointStructureThreshold  = "RefPointStructureThreshold"
	KeyRefPointWindowSize          = "RefPointWindowSize"
	KeyRefPointOutlierSigma        = "RefPointOutlierSigma"
	KeyRefPointBrightThreshold     = "RefPointBrightThreshold"
	KeyRefPointStructureScale      = "RefPointStructureScale"
	KeyRefPointCriterion           = "RefPointCriterion"
	KeyRefPointCriterionK          = "RefPointCriterionK"
	KeyDemosaicMethod              = "DemosaicMethod"
	KeyCacheCapacity               = "CacheCapacity"
	KeyLogPath                     = "LogPath"
	KeyLogMaxSizeMB                = "LogMaxSizeMB"
	KeyLogMaxBackups               = "LogMaxBackups"
	KeyLogMaxAgeDays               = "LogMaxAgeDays"
	KeySuppress                    = "Suppress"
)

const (
	typeString = "string"
	typeUint   = "uint"
	typeFloat  = "float"
	typeBool   = "bool"
	typeEnum   = "enum"
)

// Defaults, used by Validate when a field is unset or invalid.
const (
	defaultAnchorBlockSize         = 32
	defaultAnchorSearchRadius      = 16
	defaultAnchorInitialStep       = 4
	defaultAnchorRefreshInterval   = 10
	defaultOverexposureThreshold   = 250
	defaultQualityTileSize         = 64
	defaultQualityBlurRadius       = 2
	defaultRefPointMinSpacing      = 16
	defaultRefPointStructure       = 0.1
	defaultRefPointWindowSize      = 10
	defaultRefPointOutlierSigma    = 1.5
	defaultRefPointBrightThreshold = 0.3
	defaultRefPointStructureScale  = 8
	defaultRefPointCriterionK      = 50.0
	defaultCacheCapacity           = 64
	defaultLogMaxSizeMB            = 10
	defaultLogMaxBackups           = 5
	defaultLogMaxAgeDays           = 28
)

// Variables describes every externally-settable Config field: its name
// (the map key Update looks for), its type (informational, for config
// file producers), how to parse and apply a string value onto a Config,
// and how to validate/default the resulting field.
var Variables = []struct {
	Name     string
	Type     string
	Update   func(*Config, string)
	Validate func(*Config)
}{
	{
		Name:   KeyInputPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.InputPath = v },
		Validate: func(c *Config) {
			if c.InputPath == "" {
				c.LogInvalidField(KeyInputPath, "")
			}
		},
	},
	{
		Name:   KeyOutputPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.OutputPath = v },
	},
	{
		Name:   KeyFlatfieldPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.FlatfieldPath = v },
	},
	{
		Name: KeyAlignMethod,
		Type: "enum:anchors,centroid",
		Update: func(c *Config, v string) {
			switch strings.ToLower(v) {
			case "centroid":
				c.AlignMethod = AlignCentroid
			case "anchors":
				c.AlignMethod = AlignAnchors
			default:
				c.Logger.Warning("invalid AlignMethod param", "value", v)
			}
		},
	},
	{
		Name:   KeyAnchorBlockSize,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.AnchorBlockSize = parseUint(KeyAnchorBlockSize, v, c) },
		Validate: func(c *Config) {
			if c.AnchorBlockSize == 0 {
				c.LogInvalidField(KeyAnchorBlockSize, defaultAnchorBlockSize)
				c.AnchorBlockSize = defaultAnchorBlockSize
			}
		},
	},
	{
		Name:   KeyAnchorSearchRadius,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.AnchorSearchRadius = parseUint(KeyAnchorSearchRadius, v, c) },
		Validate: func(c *Config) {
			if c.AnchorSearchRadius == 0 {
				c.LogInvalidField(KeyAnchorSearchRadius, defaultAnchorSearchRadius)
				c.AnchorSearchRadius = defaultAnchorSearchRadius
			}
		},
	},
	{
		Name:   KeyAnchorInitialStep,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.AnchorInitialStep = parseUint(KeyAnchorInitialStep, v, c) },
		Validate: func(c *Config) {
			if c.AnchorInitialStep == 0 {
				c.LogInvalidField(KeyAnchorInitialStep, defaultAnchorInitialStep)
				c.AnchorInitialStep = defaultAnchorInitialStep
			}
		},
	},
	{
		Name:   KeyAnchorRefreshInterval,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.AnchorRefreshInterval = parseUint(KeyAnchorRefreshInterval, v, c) },
		Validate: func(c *Config) {
			if c.AnchorRefreshInterval == 0 {
				c.LogInvalidField(KeyAnchorRefreshInterval, defaultAnchorRefreshInterval)
				c.AnchorRefreshInterval = defaultAnchorRefreshInterval
			}
		},
	},
	{
		Name:   KeyOverexposureThreshold,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.OverexposureThreshold = parseUint(KeyOverexposureThreshold, v, c) },
		Validate: func(c *Config) {
			if c.OverexposureThreshold == 0 || c.OverexposureThreshold > 255 {
				c.LogInvalidField(KeyOverexposureThreshold, defaultOverexposureThreshold)
				c.OverexposureThreshold = defaultOverexposureThreshold
			}
		},
	},
	{
		Name:   KeyQualityTileSize,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.QualityTileSize = parseUint(KeyQualityTileSize, v, c) },
		Validate: func(c *Config) {
			if c.QualityTileSize == 0 {
				c.LogInvalidField(KeyQualityTileSize, defaultQualityTileSize)
				c.QualityTileSize = defaultQualityTileSize
			}
		},
	},
	{
		Name:   KeyQualityBlurRadius,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.QualityBlurRadius = parseUint(KeyQualityBlurRadius, v, c) },
		Validate: func(c *Config) {
			if c.QualityBlurRadius == 0 {
				c.LogInvalidField(KeyQualityBlurRadius, defaultQualityBlurRadius)
				c.QualityBlurRadius = defaultQualityBlurRadius
			}
		},
	},
	{
		Name:   KeyQualityCorrectBrightnessBug,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.QualityCorrectBrightnessBug = parseBool(KeyQualityCorrectBrightnessBug, v, c) },
	},
	{
		Name:   KeyRefPointMinSpacing,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.RefPointMinSpacing = parseUint(KeyRefPointMinSpacing, v, c) },
		Validate: func(c *Config) {
			if c.RefPointMinSpacing == 0 {
				c.LogInvalidField(KeyRefPointMinSpacing, defaultRefPointMinSpacing)
				c.RefPointMinSpacing = defaultRefPointMinSpacing
			}
		},
	},
	{
		Name:   KeyRefPointStructureThreshold,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.RefPointStructureThreshold = parseFloat(KeyRefPointStructureThreshold, v, c) },
		Validate: func(c *Config) {
			if c.RefPointStructureThreshold <= 0 {
				c.LogInvalidField(KeyRefPointStructureThreshold, defaultRefPointStructure)
				c.RefPointStructureThreshold = defaultRefPointStructure
			}
		},
	},
	{
		Name:   KeyRefPointWindowSize,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.RefPointWindowSize = parseUint(KeyRefPointWindowSize, v, c) },
		Validate: func(c *Config) {
			if c.RefPointWindowSize == 0 {
				c.LogInvalidField(KeyRefPointWindowSize, defaultRefPointWindowSize)
				c.RefPointWindowSize = defaultRefPointWindowSize
			}
		},
	},
	{
		Name:   KeyRefPointOutlierSigma,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.RefPointOutlierSigma = parseFloat(KeyRefPointOutlierSigma, v, c) },
		Validate: func(c *Config) {
			if c.RefPointOutlierSigma <= 0 {
				c.LogInvalidField(KeyRefPointOutlierSigma, defaultRefPointOutlierSigma)
				c.RefPointOutlierSigma = defaultRefPointOutlierSigma
			}
		},
	},
	{
		Name:   KeyRefPointBrightThreshold,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.RefPointBrightThreshold = parseFloat(KeyRefPointBrightThreshold, v, c) },
		Validate: func(c *Config) {
			if c.RefPointBrightThreshold <= 0 || c.RefPointBrightThreshold > 1 {
				c.LogInvalidField(KeyRefPointBrightThreshold, defaultRefPointBrightThreshold)
				c.RefPointBrightThreshold = defaultRefPointBrightThreshold
			}
		},
	},
	{
		Name:   KeyRefPointStructureScale,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.RefPointStructureScale = parseUint(KeyRefPointStructureScale, v, c) },
		Validate: func(c *Config) {
			if c.RefPointStructureScale == 0 {
				c.LogInvalidField(KeyRefPointStructureScale, defaultRefPointStructureScale)
				c.RefPointStructureScale = defaultRefPointStructureScale
			}
		},
	},
	{
		Name: KeyRefPointCriterion,
		Type: "enum:percentage_best,min_rel_quality,number_best",
		Update: func(c *Config, v string) {
			switch strings.ToLower(v) {
			case "percentage_best":
				c.RefPointCriterion = PercentageBest
			case "min_rel_quality":
				c.RefPointCriterion = MinRelQuality
			case "number_best":
				c.RefPointCriterion = NumberBest
			default:
				c.Logger.Warning("invalid RefPointCriterion param", "value", v)
			}
		},
	},
	{
		Name:   KeyRefPointCriterionK,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.RefPointCriterionK = parseFloat(KeyRefPointCriterionK, v, c) },
		Validate: func(c *Config) {
			if c.RefPointCriterionK <= 0 {
				c.LogInvalidField(KeyRefPointCriterionK, defaultRefPointCriterionK)
				c.RefPointCriterionK = defaultRefPointCriterionK
			}
		},
	},
	{
		Name: KeyDemosaicMethod,
		Type: "enum:simple,hqlinear",
		Update: func(c *Config, v string) {
			switch strings.ToLower(v) {
			case "simple":
				c.DemosaicMethod = DemosaicSimple
			case "hqlinear":
				c.DemosaicMethod = DemosaicHQLinear
			default:
				c.Logger.Warning("invalid DemosaicMethod param", "value", v)
			}
		},
	},
	{
		Name:   KeyCacheCapacity,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.CacheCapacity = parseUint(KeyCacheCapacity, v, c) },
		Validate: func(c *Config) {
			if c.CacheCapacity == 0 {
				c.LogInvalidField(KeyCacheCapacity, defaultCacheCapacity)
				c.CacheCapacity = defaultCacheCapacity
			}
		},
	},
	{
		Name:   KeyLogPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.LogPath = v },
	},
	{
		Name:   KeyLogMaxSizeMB,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.LogMaxSizeMB = parseUint(KeyLogMaxSizeMB, v, c) },
		Validate: func(c *Config) {
			if c.LogMaxSizeMB == 0 {
				c.LogMaxSizeMB = defaultLogMaxSizeMB
			}
		},
	},
	{
		Name:   KeyLogMaxBackups,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.LogMaxBackups = parseUint(KeyLogMaxBackups, v, c) },
		Validate: func(c *Config) {
			if c.LogMaxBackups == 0 {
				c.LogMaxBackups = defaultLogMaxBackups
			}
		},
	},
	{
		Name:   KeyLogMaxAgeDays,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.LogMaxAgeDays = parseUint(KeyLogMaxAgeDays, v, c) },
		Validate: func(c *Config) {
			if c.LogMaxAgeDays == 0 {
				c.LogMaxAgeDays = defaultLogMaxAgeDays
			}
		},
	},
	{
		Name:   KeySuppress,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.Suppress = parseBool(KeySuppress, v, c) },
	},
}

func parseUint(n, v string, c *Config) uint {
	_v, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected unsigned int for param %s", n), "value", v)
	}
	return uint(_v)
}

func parseFloat(n, v string, c *Config) float64 {
	_v, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected float for param %s", n), "value", v)
	}
	return _v
}

func parseBool(n, v string, c *Config) (b bool) {
	switch strings.ToLower(v) {
	case "true":
		b = true
	case "false":
		b = false
	default:
		c.Logger.Warning(fmt.Sprintf("expected bool for param %s", n), "value", v)
	}
	return
}
