package ptzengine

import (
	"context"
	"testing"
	"time"

	"go.viam.com/rdk/logging"
	"go.viam.com/test"

	"github.com/viam-labs/ptz-multitracker/enginetest"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := NewConfig()
	cfg.Filter.MaxObjects = 0
	_, err := New(cfg, enginetest.NewFakeDriver(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewAssignsUniqueSessionID(t *testing.T) {
	e1, err := New(NewConfig(), enginetest.NewFakeDriver(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	e2, err := New(NewConfig(), enginetest.NewFakeDriver(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e1.SessionID, test.ShouldNotEqual, e2.SessionID)
}

func TestSubmitDetectionsRejectedBeforeStart(t *testing.T) {
	e, err := New(NewConfig(), enginetest.NewFakeDriver(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	result := e.SubmitDetections([]DetectionInput{{CX: 0.5, CY: 0.5, W: 0.1, H: 0.1, Confidence: 0.9}}, 640, 480, time.Now())
	test.That(t, result.Rejected, test.ShouldEqual, 1)
}

func TestSubmitDetectionsEmptyBatchIsNoop(t *testing.T) {
	e, err := New(NewConfig(), enginetest.NewFakeDriver(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	ctx := context.Background()
	test.That(t, e.Start(ctx), test.ShouldBeNil)
	defer e.Stop(ctx)

	before := e.GetStatus().Stats.TotalDetectionsSeen
	result := e.SubmitDetections(nil, 640, 480, time.Now())
	test.That(t, result, test.ShouldResemble, SubmitResult{})
	test.That(t, e.GetStatus().Stats.TotalDetectionsSeen, test.ShouldEqual, before)
}

func TestSubmitDetectionsAcceptsValidAndRejectsInvalid(t *testing.T) {
	e, err := New(NewConfig(), enginetest.NewFakeDriver(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	ctx := context.Background()
	test.That(t, e.Start(ctx), test.ShouldBeNil)
	defer e.Stop(ctx)

	batch := []DetectionInput{
		{CX: 0.5, CY: 0.5, W: 0.1, H: 0.1, Confidence: 0.9},
		{CX: 2.0, CY: 0.5, W: 0.1, H: 0.1, Confidence: 0.9}, // out of range
	}
	result := e.SubmitDetections(batch, 640, 480, time.Now())
	test.That(t, result.Accepted, test.ShouldEqual, 1)
	test.That(t, result.Rejected, test.ShouldEqual, 1)

	status := e.GetStatus()
	test.That(t, len(status.Tracks), test.ShouldEqual, 1)
}

func TestEngineStopDispatchesFinalStop(t *testing.T) {
	fd := enginetest.NewFakeDriver()
	e, err := New(NewConfig(), fd, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	ctx := context.Background()
	test.That(t, e.Start(ctx), test.ShouldBeNil)
	test.That(t, e.Stop(ctx), test.ShouldBeNil)

	_, ok := fd.LastOp("stop")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, e.State(), test.ShouldEqual, SessionIdle)
}

func TestEmergencyStopTransitionsToErrorAndStops(t *testing.T) {
	fd := enginetest.NewFakeDriver()
	e, err := New(NewConfig(), fd, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	ctx := context.Background()
	test.That(t, e.Start(ctx), test.ShouldBeNil)

	test.That(t, e.EmergencyStop(ctx), test.ShouldBeNil)
	test.That(t, e.State(), test.ShouldEqual, SessionError)
	_, ok := fd.LastOp("stop")
	test.That(t, ok, test.ShouldBeTrue)
}

func TestGotoPresetQueuesRatherThanDropsTrackingCommands(t *testing.T) {
	fd := enginetest.NewFakeDriver()
	cfg := NewConfig()
	cfg.TickRate = 200 // fast tick for a short, deterministic test
	cfg.PresetWait = 0.05
	e, err := New(cfg, fd, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	ctx := context.Background()
	test.That(t, e.Start(ctx), test.ShouldBeNil)
	defer e.Stop(ctx)

	e.SubmitDetections([]DetectionInput{{CX: 0.5, CY: 0.5, W: 0.2, H: 0.2, Confidence: 0.9}}, 640, 480, time.Now())
	time.Sleep(50 * time.Millisecond) // let the selector pick a primary

	movesBefore := fd.CountOp("continuous_move")
	test.That(t, e.GotoPreset(ctx, "home"), test.ShouldBeNil)
	test.That(t, fd.CountOp("goto_preset"), test.ShouldEqual, 1)

	time.Sleep(200 * time.Millisecond) // transit + wait should elapse, resuming dispatch
	test.That(t, fd.CountOp("continuous_move"), test.ShouldBeGreaterThan, movesBefore)
}
