/*
NAME
  config_test.go

DESCRIPTION
  config_test.go tests the Config struct's Validate and Update methods.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type dumbLogger struct{}

func (dl *dumbLogger) Log(l int8, m string, a ...interface{})  {}
func (dl *dumbLogger) SetLevel(l int8)                         {}
func (dl *dumbLogger) Debug(msg string, args ...interface{})   {}
func (dl *dumbLogger) Info(msg string, args ...interface{})    {}
func (dl *dumbLogger) Warning(msg string, args ...interface{}) {}
func (dl *dumbLogger) Error(msg string, args ...interface{})   {}
func (dl *dumbLogger) Fatal(msg string, args ...interface{})   {}

func TestValidateDefaults(t *testing.T) {
	dl := &dumbLogger{}
	want := Config{
		Logger:                     dl,
		AnchorBlockSize:            defaultAnchorBlockSize,
		AnchorSearchRadius:         defaultAnchorSearchRadius,
		AnchorInitialStep:          defaultAnchorInitialStep,
		AnchorRefreshInterval:      defaultAnchorRefreshInterval,
		OverexposureThreshold:      defaultOverexposureThreshold,
		QualityTileSize:            defaultQualityTileSize,
		QualityBlurRadius:          defaultQualityBlurRadius,
		RefPointMinSpacing:         defaultRefPointMinSpacing,
		RefPointStructureThreshold: defaultRefPointStructure,
		RefPointWindowSize:         defaultRefPointWindowSize,
		RefPointOutlierSigma:       defaultRefPointOutlierSigma,
		RefPointBrightThreshold:    defaultRefPointBrightThreshold,
		RefPointStructureScale:     defaultRefPointStructureScale,
		RefPointCriterionK:         defaultRefPointCriterionK,
		CacheCapacity:              defaultCacheCapacity,
		LogMaxSizeMB:               defaultLogMaxSizeMB,
		LogMaxBackups:              defaultLogMaxBackups,
		LogMaxAgeDays:              defaultLogMaxAgeDays,
	}

	got := Config{Logger: dl}
	if err := got.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Validate() mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdate(t *testing.T) {
	dl := &dumbLogger{}
	c := Config{Logger: dl}
	c.Update(map[string]string{
		KeyInputPath:        "/video/in.avi",
		KeyAnchorBlockSize:  "48",
		KeyAlignMethod:      "centroid",
		KeyDemosaicMethod:   "simple",
		KeySuppress:         "true",
		KeyCacheCapacity:    "128",
	})
	if c.InputPath != "/video/in.avi" {
		t.Errorf("InputPath = %q, want /video/in.avi", c.InputPath)
	}
	if c.AnchorBlockSize != 48 {
		t.Errorf("AnchorBlockSize = %d, want 48", c.AnchorBlockSize)
	}
	if c.AlignMethod != AlignCentroid {
		t.Errorf("AlignMethod = %v, want AlignCentroid", c.AlignMethod)
	}
	if c.DemosaicMethod != DemosaicSimple {
		t.Errorf("DemosaicMethod = %v, want DemosaicSimple", c.DemosaicMethod)
	}
	if !c.Suppress {
		t.Errorf("Suppress = false, want true")
	}
	if c.CacheCapacity != 128 {
		t.Errorf("CacheCapacity = %d, want 128", c.CacheCapacity)
	}
}
