package ptzengine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	viamutils "go.viam.com/utils"
)

// SessionState is C9's session state (spec.md §4.9).
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionActive
	SessionError
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionActive:
		return "active"
	case SessionError:
		return "error"
	default:
		return "unknown"
	}
}

// Stats are the counters spec.md §4.9 requires the engine to maintain.
type Stats struct {
	SessionStart        time.Time
	TotalDetectionsSeen int
	DispatchesOK        int
	DispatchesFailed    int
	SwitchCount         int
	ZoomChangeCount     int
	DetectionsDropped   int // invalid input, filtered out
	DroppedForCapacity  int // over max_objects for a given frame
}

// Status is the return value of GetStatus (spec.md §6).
type Status struct {
	SessionID     string
	SessionState  SessionState
	TrackingState TrackingState
	PrimaryID     int
	SecondaryID   int
	ZoomLevel     float64
	Pan, Tilt     float64
	Tracks        []Snapshot
	Stats         Stats
}

// DetectionInput mirrors spec.md §6's submit_detections batch element:
// {cx,cy,w,h,confidence,class_tag}.
type DetectionInput struct {
	CX, CY, W, H float64
	Confidence   float64
	ClassTag     string
}

// SubmitResult is returned synchronously from SubmitDetections (spec.md §6).
type SubmitResult struct {
	Accepted int
	Rejected int
}

// Engine is the multi-object PTZ tracking engine (C1-C9). One instance per
// camera (spec.md §1). All exported methods except Subscribe are safe for
// concurrent use: a
// single mutex guards the track store and selector/controller state, the
// only shared mutable state in the design (spec.md §5).
type Engine struct {
	SessionID string

	logger logging.Logger
	cfg    Config

	mu        sync.Mutex
	store     *store
	sel       *selector
	ctrl      *controller
	disp      *dispatcher
	sessionSt SessionState
	stats     Stats
	lastTick  time.Time

	queuedCmd   *Command // commands queued while in preset transit
	switchCount int

	observers observerSet

	cancel     context.CancelFunc
	runningCtx context.Context
	wg         sync.WaitGroup
	stopOnce   sync.Once
}

// New constructs an Engine bound to a CameraDriver. The engine is created in
// SessionIdle and does nothing until Start is called.
func New(cfg Config, driver CameraDriver, logger logging.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid engine configuration")
	}
	e := &Engine{
		SessionID: uuid.NewString(),
		logger:    logger,
		cfg:       cfg,
		store:     newStore(cfg.MovementEpsilon),
		sel:       newSelector(),
		ctrl:      newController((cfg.Zoom.MinLevel + cfg.Zoom.MaxLevel) / 2),
		disp:      newDispatcher(driver, cfg),
		sessionSt: SessionIdle,
	}
	return e, nil
}

// Subscribe registers an observer for the lifetime of the engine (spec.md
// §4.9). Not safe to call concurrently with Start/Stop.
func (e *Engine) Subscribe(obs Observer) {
	e.observers.subscribe(obs)
}

// Start transitions the session to Active and launches the dispatcher's
// control-loop goroutine (spec.md §4.9, §5: "a dedicated worker performs the
// 30 Hz loop"). Calling Start twice is a no-op.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.sessionSt == SessionActive {
		e.mu.Unlock()
		return nil
	}
	old := e.sessionSt
	e.sessionSt = SessionActive
	e.stats.SessionStart = time.Now()
	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.runningCtx = runCtx
	e.mu.Unlock()

	e.emit(Event{Tag: EventStateChanged, OldSessionState: old, NewSessionState: SessionActive})

	e.wg.Add(1)
	viamutils.ManagedGo(func() {
		e.runTickLoop(runCtx)
	}, e.wg.Done)
	return nil
}

// Stop signals the tick worker cooperatively and joins within a bounded
// grace period, guaranteeing a final stop dispatch (spec.md §5). After Stop
// returns, SubmitDetections no longer mutates state.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if e.sessionSt != SessionActive {
		e.mu.Unlock()
		return nil
	}
	old := e.sessionSt
	e.sessionSt = SessionIdle
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		e.logger.Warn("ptzengine: tick worker did not join within grace period")
	}

	_ = e.disp.dispatchStop(ctx, true, true, true)
	e.emit(Event{Tag: EventStateChanged, OldSessionState: old, NewSessionState: SessionIdle})
	return nil
}

// EmergencyStop bypasses scheduling entirely: it issues the final stop
// immediately and transitions to Error (spec.md §5, scenario S6).
func (e *Engine) EmergencyStop(ctx context.Context) error {
	e.mu.Lock()
	old := e.sessionSt
	e.sessionSt = SessionError
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	err := e.disp.dispatchStop(ctx, true, true, true)
	e.emit(Event{Tag: EventStateChanged, OldSessionState: old, NewSessionState: SessionError})
	return err
}

// State returns the current session lifecycle state.
func (e *Engine) State() SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionSt
}

// SubmitDetections is the non-blocking detection ingress (spec.md §6).
// Detections within one call are applied atomically under the engine mutex
// (spec.md §5: "all-or-nothing visibility"). An empty batch is a no-op that
// leaves all state unchanged except total_detections_seen, which in turn is
// itself unchanged for an empty batch (spec.md §8, "Idempotent empty
// submit").
func (e *Engine) SubmitDetections(batch []DetectionInput, frameW, frameH int, ts time.Time) SubmitResult {
	if len(batch) == 0 {
		return SubmitResult{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sessionSt != SessionActive {
		return SubmitResult{Rejected: len(batch)}
	}

	e.stats.TotalDetectionsSeen += len(batch)

	dets := make([]Detection, 0, len(batch))
	rejected := 0
	for _, d := range batch {
		if !validDetection(d) {
			rejected++
			e.stats.DetectionsDropped++
			continue
		}
		dets = append(dets, Detection{
			Position:   Position{CX: d.CX, CY: d.CY, W: d.W, H: d.H, FrameW: frameW, FrameH: frameH},
			Confidence: d.Confidence,
			ClassTag:   d.ClassTag,
			T:          ts,
		})
	}

	filtered, matched, unmatchedNew, droppedCap := associate(e.store, dets, e.cfg)
	e.stats.DroppedForCapacity += droppedCap

	var newlyCreated []int
	for _, a := range matched {
		e.store.update(a.trackID, filtered[a.detection].Position, filtered[a.detection].Confidence, ts)
	}
	for _, idx := range unmatchedNew {
		tr := e.store.insert(filtered[idx].Position, filtered[idx].Confidence, ts)
		newlyCreated = append(newlyCreated, tr.ID)
	}

	removed, primaryLost := e.store.prune(ts, durationSeconds(e.cfg.Filter.ObjectTimeout))
	if primaryLost {
		e.sel.enterLost(ts)
	}

	rescoreAll(e.store, e.cfg, ts)

	for _, id := range newlyCreated {
		e.emitLocked(Event{Tag: EventObjectDetected, TrackID: id, Snapshot: e.store.get(id).Snapshot()})
	}
	for _, id := range removed {
		e.emitLocked(Event{Tag: EventObjectLost, TrackID: id})
	}

	return SubmitResult{Accepted: len(dets), Rejected: rejected + (len(batch) - len(dets) - rejected)}
}

func durationSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func validDetection(d DetectionInput) bool {
	if isNaN(d.CX) || isNaN(d.CY) || isNaN(d.W) || isNaN(d.H) || isNaN(d.Confidence) {
		return false
	}
	if d.CX < 0 || d.CX > 1 || d.CY < 0 || d.CY > 1 {
		return false
	}
	if d.W <= 0 || d.W > 1 || d.H <= 0 || d.H > 1 {
		return false
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return false
	}
	return true
}

func isNaN(f float64) bool {
	return f != f
}

// GotoPreset preempts continuous tracking for the duration of a preset
// transit (spec.md §6, cell-to-preset side channel). Tracking is not
// paused: SubmitDetections keeps updating the store, but dispatch is queued
// until the transit completes (SPEC_FULL.md supplement).
func (e *Engine) GotoPreset(ctx context.Context, token string) error {
	e.mu.Lock()
	e.sel.beginPresetTransit(time.Now())
	e.mu.Unlock()

	err := e.disp.dispatchPreset(ctx, token)

	e.mu.Lock()
	e.sel.enterWaitingAtPreset(time.Now(), durationSeconds(e.cfg.PresetWait))
	e.mu.Unlock()
	return err
}

// GetStatus returns a snapshot for polling (spec.md §6).
func (e *Engine) GetStatus() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		SessionID:     e.SessionID,
		SessionState:  e.sessionSt,
		TrackingState: e.sel.state,
		PrimaryID:     e.store.primaryID,
		SecondaryID:   e.sel.secondaryID,
		ZoomLevel:     e.ctrl.currentZoom,
		Pan:           e.ctrl.currentPan,
		Tilt:          e.ctrl.currentTilt,
		Tracks:        e.store.snapshot(),
		Stats:         e.statsLocked(),
	}
}

func (e *Engine) statsLocked() Stats {
	s := e.stats
	s.DispatchesOK = e.disp.dispatchesOK
	s.DispatchesFailed = e.disp.dispatchesFailed
	s.SwitchCount = e.switchCount
	s.ZoomChangeCount = e.disp.zoomChangeCount
	return s
}

func (e *Engine) emit(ev Event) {
	e.observers.emit(ev)
}

// emitLocked emits while e.mu is already held. Observers must not call back
// into the engine (spec.md §4.9: "recipients must not block"), so this is
// safe as long as that contract holds.
func (e *Engine) emitLocked(ev Event) {
	e.observers.emit(ev)
}

// runTickLoop is the dispatcher's ~30 Hz control loop (spec.md §4.8),
// independent of detection arrival (spec.md §2: "C8 also runs its own
// periodic tick independent of detection arrival").
func (e *Engine) runTickLoop(ctx context.Context) {
	for {
		if err := e.disp.waitForTick(ctx); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		e.tick(ctx)
	}
}

// tick performs one control-loop iteration: prune, advance the selector,
// predict, compute a command, and dispatch (or queue) it.
func (e *Engine) tick(ctx context.Context) {
	now := time.Now()

	e.mu.Lock()
	e.sel.maybeResumeFromPreset(now)
	inTransit := e.sel.inPresetTransit()

	removed, primaryLost := e.store.prune(now, durationSeconds(e.cfg.Filter.ObjectTimeout))
	if primaryLost {
		e.sel.enterLost(now)
	}
	for _, id := range removed {
		e.emitLocked(Event{Tag: EventObjectLost, TrackID: id})
	}

	rescoreAll(e.store, e.cfg, now)

	if !inTransit {
		switched, lostPrimary := e.sel.tick(e.store, e.cfg, now)
		if lostPrimary {
			e.sel.enterLost(now)
		}
		if switched != nil {
			e.switchCount++
			e.emitLocked(Event{Tag: EventTargetSwitched, OldTrackID: switched.oldID, NewTrackID: switched.newID})
		}
	}

	primary := e.store.currentPrimary()
	var dt time.Duration
	if !e.lastTick.IsZero() {
		dt = now.Sub(e.lastTick)
	}
	e.lastTick = now
	if primary != nil && !inTransit {
		e.store.accrueTrackingTime(dt)
	}

	var cmd Command
	haveTarget := primary != nil
	if haveTarget {
		target := predictTargetPosition(primary, e.cfg)
		cmd = e.ctrl.step(target, e.cfg.Motion, e.cfg.Zoom)
		if cmd.ZoomChanged && !inTransit {
			e.emitLocked(Event{Tag: EventZoomChanged, ZoomLevel: cmd.Zoom, AreaRatio: target.Area()})
		}
		if !inTransit {
			e.emitLocked(Event{Tag: EventTrackingTick, TrackID: primary.ID, Snapshot: primary.Snapshot()})
		}
	} else {
		e.ctrl.reset()
	}

	if inTransit {
		// Queue rather than dispatch: the cell-to-preset side channel
		// preempts the driver for the duration of the transit, but tracking
		// itself keeps running (spec.md §6).
		if haveTarget {
			queued := cmd
			e.queuedCmd = &queued
		}
		e.mu.Unlock()
		return
	}

	flush := e.queuedCmd
	e.queuedCmd = nil
	e.mu.Unlock()

	if flush != nil {
		_ = e.disp.dispatchMove(ctx, *flush,
			durationSeconds(e.cfg.ContinuousMoveTimeout),
			durationSeconds(e.cfg.AbsoluteMoveTimeout))
	}

	if !haveTarget {
		if e.disp.lastNonZero {
			_ = e.disp.dispatchStop(ctx, true, false, false)
		}
		return
	}

	_ = e.disp.dispatchMove(ctx, cmd,
		durationSeconds(e.cfg.ContinuousMoveTimeout),
		durationSeconds(e.cfg.AbsoluteMoveTimeout))
}
