package ptzengine

// kp is the proportional gain applied to the pan/tilt error term (spec.md
// §4.7).
const kp = 2.0

// zoomStep is the fixed step applied to the zoom set-point per decision
// (spec.md §4.7: "+0.1"/"-0.1").
const zoomStep = 0.1

// Command is the smoothed pan/tilt/zoom command the controller hands to the
// dispatcher each tick.
type Command struct {
	Pan, Tilt float64
	Zoom      float64
	// ZoomChanged reports whether Zoom differs from the previous tick's
	// dispatched zoom by more than the configured hysteresis (spec.md §4.7).
	ZoomChanged bool
}

// controller holds the smoothing/zoom state that must persist across ticks:
// the EMA-filtered pan/tilt command and the current/target zoom level.
type controller struct {
	currentPan, currentTilt float64
	currentZoom             float64
	zoomSetpoint            float64
	lastDispatchedZoom      float64
	hasDispatchedZoom       bool
}

func newController(initialZoom float64) *controller {
	return &controller{
		currentZoom:  initialZoom,
		zoomSetpoint: initialZoom,
	}
}

// step computes the next Command for a target position, applying the
// pan/tilt control law, exponential smoothing, and the zoom step/slew/
// hysteresis logic of spec.md §4.7.
func (c *controller) step(target Position, cfg MotionConfig, zoomCfg ZoomConfig) Command {
	rawPan := kp * (target.CX - 0.5)
	rawTilt := -kp * (target.CY - 0.5) // image-Y grows downward, tilt grows upward

	if cfg.AdaptiveGain {
		gain := 1 + target.centreDistance()
		rawPan *= gain
		rawTilt *= gain
	}

	rawPan = clamp(rawPan, -cfg.MaxPan, cfg.MaxPan)
	rawTilt = clamp(rawTilt, -cfg.MaxTilt, cfg.MaxTilt)

	alpha := cfg.Smoothing
	c.currentPan = alpha*c.currentPan + (1-alpha)*rawPan
	c.currentTilt = alpha*c.currentTilt + (1-alpha)*rawTilt

	zoomChanged := false
	zoomOut := c.currentZoom
	if zoomCfg.Enabled {
		r := target.Area()
		lowBand := zoomCfg.TargetRatio * (1 - zoomCfg.DeadbandRatio)
		highBand := zoomCfg.TargetRatio * (1 + zoomCfg.DeadbandRatio)
		if r < lowBand {
			c.zoomSetpoint = clamp(c.zoomSetpoint+zoomStep, zoomCfg.MinLevel, zoomCfg.MaxLevel)
		} else if r > highBand {
			c.zoomSetpoint = clamp(c.zoomSetpoint-zoomStep, zoomCfg.MinLevel, zoomCfg.MaxLevel)
		}
		c.currentZoom = clamp(
			c.currentZoom+zoomCfg.ZoomSpeed*(c.zoomSetpoint-c.currentZoom),
			zoomCfg.MinLevel, zoomCfg.MaxLevel,
		)
		zoomOut = c.currentZoom
		delta := zoomOut - c.lastDispatchedZoom
		if delta < 0 {
			delta = -delta
		}
		if !c.hasDispatchedZoom || delta > zoomCfg.Hysteresis {
			zoomChanged = true
			c.lastDispatchedZoom = zoomOut
			c.hasDispatchedZoom = true
		}
	}

	return Command{
		Pan:         c.currentPan,
		Tilt:        c.currentTilt,
		Zoom:        zoomOut,
		ZoomChanged: zoomChanged,
	}
}

// reset clears pan/tilt smoothing state, used when the engine re-enters
// IDLE/LOST so stale momentum doesn't bleed into the next target.
func (c *controller) reset() {
	c.currentPan = 0
	c.currentTilt = 0
}
