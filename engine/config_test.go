package ptzengine

import (
	"testing"

	"go.viam.com/test"
)

func TestNewConfigValidates(t *testing.T) {
	test.That(t, NewConfig().Validate(), test.ShouldBeNil)
}

func TestAllPresetsValidate(t *testing.T) {
	for _, cfg := range []Config{PresetStandard(), PresetFast(), PresetPrecise(), PresetSingle()} {
		test.That(t, cfg.Validate(), test.ShouldBeNil)
	}
}

func TestPresetSingleDisablesAlternation(t *testing.T) {
	cfg := PresetSingle()
	test.That(t, cfg.Alternation.Enabled, test.ShouldBeFalse)
	test.That(t, cfg.Filter.MaxObjects, test.ShouldEqual, 1)
}

func TestValidateRejectsOutOfRangeMaxObjects(t *testing.T) {
	cfg := NewConfig()
	cfg.Filter.MaxObjects = 0
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)
	cfg.Filter.MaxObjects = 11
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)
}

func TestValidateRejectsInvertedZoomBounds(t *testing.T) {
	cfg := NewConfig()
	cfg.Zoom.MinLevel = 0.9
	cfg.Zoom.MaxLevel = 0.1
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)
}

func TestValidateRejectsNonPositiveDwell(t *testing.T) {
	cfg := NewConfig()
	cfg.Alternation.PrimaryDwell = 0
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)
}
