package ptzengine

import "github.com/pkg/errors"

// AlternationConfig controls primary/secondary target alternation (C5).
type AlternationConfig struct {
	Enabled           bool
	PrimaryDwell      float64 // seconds
	SecondaryDwell    float64 // seconds
	MinSwitchInterval float64 // seconds
	MaxSwitchInterval float64 // seconds
}

// PriorityConfig holds the scoring weights consumed by C4. Weights need not
// sum to 1 (spec.md §3).
type PriorityConfig struct {
	WConfidence float64
	WMovement   float64
	WSize       float64
	WProximity  float64
}

// ZoomConfig controls C7's auto-zoom behaviour.
type ZoomConfig struct {
	Enabled       bool
	TargetRatio   float64
	ZoomSpeed     float64
	MinLevel      float64
	MaxLevel      float64
	DeadbandRatio float64 // fraction of TargetRatio, e.g. 0.2 == +/-20%
	Hysteresis    float64 // minimum zoom delta worth dispatching
}

// FilterConfig governs detection admission and track-count bounds (C3).
type FilterConfig struct {
	MinConfidence float64
	MinSize       float64
	MaxSize       float64
	MaxObjects    int
	ObjectTimeout float64 // seconds
}

// MotionConfig governs C7's pan/tilt control law and C6's prediction.
type MotionConfig struct {
	MaxPan            float64
	MaxTilt           float64
	Smoothing         float64 // EMA alpha, in [0,1]
	Prediction        bool
	PredictionHorizon float64 // seconds
	AdaptiveGain      bool
}

// Config is the immutable-per-session record described in spec.md §3. It is
// constructed once (via NewConfig or a preset) and never mutated afterwards;
// every component reads from it without synchronisation.
type Config struct {
	Alternation AlternationConfig
	Priority    PriorityConfig
	Zoom        ZoomConfig
	Filter      FilterConfig
	Motion      MotionConfig

	// MovementEpsilon is the speed (units/second, normalised) above which a
	// track is considered "moving" (spec.md §3, Open Question (a): resolved
	// to normalised units, see SPEC_FULL.md).
	MovementEpsilon float64

	// BaseGate is the association gate for stationary tracks, in normalised
	// units (Open Question (b): resolved to normalised units).
	BaseGate float64

	// GateSpeedFactor is the "k" in g = min(2*base_gate, k*speed) for moving
	// tracks (spec.md §4.3).
	GateSpeedFactor float64

	// TickRate is the dispatcher's fixed control-loop rate (spec.md §4.8,
	// "approximately 30 Hz").
	TickRate float64

	// CommandHistorySize bounds the dispatcher's diagnostic ring buffer
	// (spec.md §4.8).
	CommandHistorySize int

	// ContinuousMoveTimeout / AbsoluteMoveTimeout are the default per-call
	// camera-driver timeouts from spec.md §5.
	ContinuousMoveTimeout float64 // seconds
	AbsoluteMoveTimeout   float64 // seconds

	// PresetWait is how long the engine holds in WaitingAtPreset after a
	// goto_preset transit completes before resuming tracking dispatch
	// (SPEC_FULL.md supplement, from the Python original's preset_wait_time).
	PresetWait float64 // seconds
}

// NewConfig returns the "standard" defaults from spec.md §3.
func NewConfig() Config {
	return Config{
		Alternation: AlternationConfig{
			Enabled:           true,
			PrimaryDwell:      5.0,
			SecondaryDwell:    3.0,
			MinSwitchInterval: 1.0,
			MaxSwitchInterval: 30.0,
		},
		Priority: PriorityConfig{
			WConfidence: 0.4,
			WMovement:   0.3,
			WSize:       0.2,
			WProximity:  0.1,
		},
		Zoom: ZoomConfig{
			Enabled:       true,
			TargetRatio:   0.25,
			ZoomSpeed:     0.3,
			MinLevel:      0.0,
			MaxLevel:      1.0,
			DeadbandRatio: 0.2,
			Hysteresis:    0.05,
		},
		Filter: FilterConfig{
			MinConfidence: 0.5,
			MinSize:       0.01,
			MaxSize:       0.8,
			MaxObjects:    3,
			ObjectTimeout: 3.0,
		},
		Motion: MotionConfig{
			MaxPan:            0.8,
			MaxTilt:           0.8,
			Smoothing:         0.5,
			Prediction:        true,
			PredictionHorizon: 0.1,
			AdaptiveGain:      true,
		},
		MovementEpsilon:       0.01,
		BaseGate:              0.05,
		GateSpeedFactor:       1.0,
		TickRate:              30.0,
		CommandHistorySize:    100,
		ContinuousMoveTimeout: 1.0,
		AbsoluteMoveTimeout:   10.0,
		PresetWait:            2.0,
	}
}

// PresetStandard is the balanced default configuration.
func PresetStandard() Config { return NewConfig() }

// PresetFast shortens dwell times and weights movement more heavily, for
// scenes with fast-moving subjects that should be re-evaluated often.
func PresetFast() Config {
	c := NewConfig()
	c.Alternation.PrimaryDwell = 2.5
	c.Alternation.SecondaryDwell = 1.5
	c.Priority.WConfidence = 0.25
	c.Priority.WMovement = 0.45
	c.Priority.WSize = 0.2
	c.Priority.WProximity = 0.1
	return c
}

// PresetPrecise lengthens dwell times, weights confidence more heavily, and
// restricts tracking to at most two objects, for scenarios prioritising
// stable framing over responsiveness.
func PresetPrecise() Config {
	c := NewConfig()
	c.Alternation.PrimaryDwell = 8.0
	c.Alternation.SecondaryDwell = 5.0
	c.Priority.WConfidence = 0.6
	c.Priority.WMovement = 0.15
	c.Priority.WSize = 0.15
	c.Priority.WProximity = 0.1
	c.Filter.MaxObjects = 2
	return c
}

// PresetSingle disables alternation entirely and tracks exactly one object.
func PresetSingle() Config {
	c := NewConfig()
	c.Alternation.Enabled = false
	c.Filter.MaxObjects = 1
	return c
}

// Validate checks the invariants spec.md §3 implies (bound ordering,
// object-count range, smoothing/confidence/size ranges, positive dwell,
// timeout and tick rate). The priority weights are not checked at all: no
// range and no sum is required of them.
func (c Config) Validate() error {
	if c.Filter.MaxObjects < 1 || c.Filter.MaxObjects > 10 {
		return errors.New("max_objects must be in [1, 10]")
	}
	if c.Zoom.MinLevel > c.Zoom.MaxLevel {
		return errors.New("zoom min_level must not exceed max_level")
	}
	if c.Motion.Smoothing < 0 || c.Motion.Smoothing > 1 {
		return errors.New("motion smoothing must be in [0, 1]")
	}
	if c.Alternation.PrimaryDwell <= 0 || c.Alternation.SecondaryDwell <= 0 {
		return errors.New("dwell times must be positive")
	}
	if c.Alternation.MinSwitchInterval < 0 || c.Alternation.MaxSwitchInterval < c.Alternation.MinSwitchInterval {
		return errors.New("invalid switch interval bounds")
	}
	if c.Filter.MinConfidence < 0 || c.Filter.MinConfidence > 1 {
		return errors.New("min_confidence must be in [0, 1]")
	}
	if c.Filter.MinSize < 0 || c.Filter.MaxSize > 1 || c.Filter.MinSize > c.Filter.MaxSize {
		return errors.New("invalid size bounds")
	}
	if c.Filter.ObjectTimeout <= 0 {
		return errors.New("object_timeout must be positive")
	}
	if c.TickRate <= 0 {
		return errors.New("tick rate must be positive")
	}
	return nil
}
