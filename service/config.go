package service

import (
	"fmt"

	"github.com/pkg/errors"

	ptzengine "github.com/viam-labs/ptz-multitracker/engine"
)

// Config contains names for necessary resources (camera, detector, and PTZ
// head) plus the tracking parameters of ptzengine.Config, the same shape as
// the teacher's tracker.Config but generalised to the full engine (spec.md
// §3, §6).
type Config struct {
	CameraName   string `json:"camera_name"`
	DetectorName string `json:"detector_name"`
	PTZName      string `json:"ptz_name"`

	// Preset selects one of spec.md §6's named presets ("standard", "fast",
	// "precise", "single") before any override fields below are applied. An
	// empty string means "standard".
	Preset string `json:"preset,omitempty"`

	// Overrides. All are optional; an absent (nil) field means "use the
	// preset's value", while any field that is set, even to zero or false,
	// replaces it. Grouped the way spec.md §3 groups them.
	PrimaryDwellSeconds   *float64 `json:"primary_dwell_s,omitempty"`
	SecondaryDwellSeconds *float64 `json:"secondary_dwell_s,omitempty"`
	AlternationEnabled    *bool    `json:"alternation_enabled,omitempty"`
	MinConfidence         *float64 `json:"min_confidence,omitempty"`
	MaxObjects            *int     `json:"max_objects,omitempty"`
	ObjectTimeoutSeconds  *float64 `json:"object_timeout_s,omitempty"`
	TargetRatio           *float64 `json:"target_ratio,omitempty"`
	ZoomEnabled           *bool    `json:"zoom_enabled,omitempty"`
	PredictionEnabled     *bool    `json:"prediction_enabled,omitempty"`
}

// Validate validates the config and returns implicit dependencies: the
// camera, the detector vision service, and the PTZ head; all three names are
// required.
// This mirrors the teacher's Config.Validate, which also returns dependency
// names for the module host to resolve before construction.
func (cfg *Config) Validate(path string) ([]string, error) {
	if cfg.CameraName == "" {
		return nil, fmt.Errorf(`expected "camera_name" attribute for ptz tracker %q`, path)
	}
	if cfg.DetectorName == "" {
		return nil, fmt.Errorf(`expected "detector_name" attribute for ptz tracker %q`, path)
	}
	if cfg.PTZName == "" {
		return nil, fmt.Errorf(`expected "ptz_name" attribute for ptz tracker %q`, path)
	}
	if cfg.MaxObjects != nil && (*cfg.MaxObjects < 1 || *cfg.MaxObjects > 10) {
		return nil, errors.New("max_objects must be between 1 and 10")
	}
	if cfg.MinConfidence != nil && (*cfg.MinConfidence < 0 || *cfg.MinConfidence > 1) {
		return nil, errors.New("min_confidence must be between 0.0 and 1.0")
	}
	deps := []string{cfg.CameraName, cfg.DetectorName, cfg.PTZName}
	return deps, nil
}

// engineConfig resolves the preset + overrides into a ptzengine.Config.
func (cfg *Config) engineConfig() (ptzengine.Config, error) {
	var base ptzengine.Config
	switch cfg.Preset {
	case "", "standard":
		base = ptzengine.PresetStandard()
	case "fast":
		base = ptzengine.PresetFast()
	case "precise":
		base = ptzengine.PresetPrecise()
	case "single":
		base = ptzengine.PresetSingle()
	default:
		return ptzengine.Config{}, errors.Errorf("unknown preset %q", cfg.Preset)
	}

	if cfg.PrimaryDwellSeconds != nil {
		base.Alternation.PrimaryDwell = *cfg.PrimaryDwellSeconds
	}
	if cfg.SecondaryDwellSeconds != nil {
		base.Alternation.SecondaryDwell = *cfg.SecondaryDwellSeconds
	}
	if cfg.AlternationEnabled != nil {
		base.Alternation.Enabled = *cfg.AlternationEnabled
	}
	if cfg.MinConfidence != nil {
		base.Filter.MinConfidence = *cfg.MinConfidence
	}
	if cfg.MaxObjects != nil {
		base.Filter.MaxObjects = *cfg.MaxObjects
	}
	if cfg.ObjectTimeoutSeconds != nil {
		base.Filter.ObjectTimeout = *cfg.ObjectTimeoutSeconds
	}
	if cfg.TargetRatio != nil {
		base.Zoom.TargetRatio = *cfg.TargetRatio
	}
	if cfg.ZoomEnabled != nil {
		base.Zoom.Enabled = *cfg.ZoomEnabled
	}
	if cfg.PredictionEnabled != nil {
		base.Motion.Prediction = *cfg.PredictionEnabled
	}

	if err := base.Validate(); err != nil {
		return ptzengine.Config{}, errors.Wrap(err, "invalid resolved engine configuration")
	}
	return base, nil
}
