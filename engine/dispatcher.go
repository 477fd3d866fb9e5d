package ptzengine

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// dispatchedCommand is one entry in the dispatcher's diagnostic ring buffer
// (spec.md §4.8).
type dispatchedCommand struct {
	At        time.Time
	Pan, Tilt float64
	Zoom      float64
	ZoomSent  bool
	Stop      bool
	Err       error
}

// ringBuffer is the dispatcher's bounded command history: holds at most
// `cap` entries, and halves to cap/2 when full (spec.md §4.8).
type ringBuffer struct {
	entries []dispatchedCommand
	cap     int
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{cap: capacity}
}

func (r *ringBuffer) push(c dispatchedCommand) {
	if len(r.entries) >= r.cap {
		half := r.cap / 2
		if half < 1 {
			half = 1
		}
		r.entries = append([]dispatchedCommand{}, r.entries[len(r.entries)-half:]...)
	}
	r.entries = append(r.entries, c)
}

func (r *ringBuffer) recent(n int) []dispatchedCommand {
	if n > len(r.entries) {
		n = len(r.entries)
	}
	return append([]dispatchedCommand{}, r.entries[len(r.entries)-n:]...)
}

// dispatcher is C8: the fixed-rate control loop that reads target state
// under the engine mutex and then calls the camera driver outside it (spec.md
// §5: "acquires the same mutex for the short span needed to read target
// state, then releases it before invoking the camera driver").
type dispatcher struct {
	driver  CameraDriver
	history *ringBuffer

	tickLimiter   *rate.Limiter
	presetLimiter *rate.Limiter

	lastNonZero bool
	stoppedOnce bool

	dispatchesOK     int
	dispatchesFailed int
	zoomChangeCount  int
}

func newDispatcher(driver CameraDriver, cfg Config) *dispatcher {
	return &dispatcher{
		driver:        driver,
		history:       newRingBuffer(cfg.CommandHistorySize),
		tickLimiter:   rate.NewLimiter(rate.Limit(cfg.TickRate), 1),
		presetLimiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
	}
}

// waitForTick blocks (cooperatively, honouring ctx cancellation) until the
// next tick is due, pacing the ~30 Hz loop (spec.md §4.8) via a token-bucket
// limiter instead of hand-computed sleep durations.
func (d *dispatcher) waitForTick(ctx context.Context) error {
	return d.tickLimiter.Wait(ctx)
}

// dispatchMove sends continuous_move and, if the zoom changed, absolute_move
// (spec.md §4.8 step 3). It is called with the engine mutex already
// released.
func (d *dispatcher) dispatchMove(ctx context.Context, cmd Command, continuousTimeout, absoluteTimeout time.Duration) error {
	rec := dispatchedCommand{At: time.Now(), Pan: cmd.Pan, Tilt: cmd.Tilt, Zoom: cmd.Zoom}
	err := callWithTimeout(ctx, continuousTimeout, "continuous_move", func(c context.Context) error {
		return d.driver.ContinuousMove(c, cmd.Pan, cmd.Tilt)
	})
	if err != nil {
		rec.Err = err
		d.dispatchesFailed++
		d.history.push(rec)
		d.lastNonZero = true
		d.stoppedOnce = false
		return err
	}
	d.dispatchesOK++
	d.lastNonZero = cmd.Pan != 0 || cmd.Tilt != 0
	d.stoppedOnce = false

	if cmd.ZoomChanged {
		zerr := callWithTimeout(ctx, absoluteTimeout, "absolute_move", func(c context.Context) error {
			return d.driver.AbsoluteMove(c, cmd.Zoom)
		})
		rec.ZoomSent = zerr == nil
		if zerr != nil {
			rec.Err = zerr
			d.dispatchesFailed++
			d.history.push(rec)
			return zerr
		}
		d.zoomChangeCount++
		d.dispatchesOK++
	}
	d.history.push(rec)
	return nil
}

// dispatchStop sends a stop command (spec.md §4.8 step 2, §8 invariant 7:
// "After stop() returns, no further non-stop command is dispatched"). It is
// idempotent: calling it repeatedly while already stopped sends exactly one
// stop, unless force is set (used by emergency_stop and shutdown, which must
// guarantee a final stop regardless of prior state, spec.md §5).
func (d *dispatcher) dispatchStop(ctx context.Context, panTilt, zoom bool, force bool) error {
	if d.stoppedOnce && !force {
		return nil
	}
	err := callWithTimeout(ctx, time.Second, "stop", func(c context.Context) error {
		return d.driver.Stop(c, panTilt, zoom)
	})
	rec := dispatchedCommand{At: time.Now(), Stop: true, Err: err}
	d.history.push(rec)
	if err != nil {
		d.dispatchesFailed++
		return err
	}
	d.dispatchesOK++
	d.stoppedOnce = true
	d.lastNonZero = false
	return nil
}

// dispatchPreset sends goto_preset, rate-limited so a misbehaving cell-to-
// preset overlay (spec.md §6) cannot flood the driver.
func (d *dispatcher) dispatchPreset(ctx context.Context, token string) error {
	if err := d.presetLimiter.Wait(ctx); err != nil {
		return err
	}
	err := callWithTimeout(ctx, 10*time.Second, "goto_preset", func(c context.Context) error {
		return d.driver.GotoPreset(c, token)
	})
	if err != nil {
		d.dispatchesFailed++
		return err
	}
	d.dispatchesOK++
	return nil
}

// recentCommands exposes the ring buffer for diagnostics/get_status.
func (d *dispatcher) recentCommands(n int) []dispatchedCommand {
	return d.history.recent(n)
}
