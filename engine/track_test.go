package ptzengine

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.viam.com/test"
)

func TestNewTrackSeedsHistory(t *testing.T) {
	t0 := time.Now()
	tr := newTrack(1, Position{CX: 0.5, CY: 0.5, W: 0.1, H: 0.1}, 0.9, t0)
	test.That(t, tr.ID, test.ShouldEqual, 1)
	test.That(t, tr.HistoryLen(), test.ShouldEqual, 1)
	test.That(t, tr.FramesTracked, test.ShouldEqual, 1)
	test.That(t, tr.FirstSeen, test.ShouldEqual, t0)
}

func TestAppendSampleDerivesVelocity(t *testing.T) {
	t0 := time.Now()
	tr := newTrack(1, Position{CX: 0.1, CY: 0.1, W: 0.1, H: 0.1}, 0.9, t0)
	tr.appendSample(Position{CX: 0.2, CY: 0.1, W: 0.1, H: 0.1}, 0.9, t0.Add(time.Second))
	test.That(t, tr.VX, test.ShouldAlmostEqual, 0.1)
	test.That(t, tr.VY, test.ShouldAlmostEqual, 0.0)
	tr.refreshMoving(0.01)
	test.That(t, tr.Moving, test.ShouldBeTrue)
}

func TestRefreshMovingRespectsEpsilon(t *testing.T) {
	t0 := time.Now()
	tr := newTrack(1, Position{CX: 0.1, CY: 0.1, W: 0.1, H: 0.1}, 0.9, t0)
	tr.appendSample(Position{CX: 0.1001, CY: 0.1, W: 0.1, H: 0.1}, 0.9, t0.Add(time.Second))
	tr.refreshMoving(0.01)
	test.That(t, tr.Moving, test.ShouldBeFalse)
}

func TestHistoryBounded(t *testing.T) {
	t0 := time.Now()
	tr := newTrack(1, Position{CX: 0, CY: 0, W: 0.1, H: 0.1}, 0.9, t0)
	for i := 0; i < maxHistory+10; i++ {
		tr.appendSample(Position{CX: 0, CY: 0, W: 0.1, H: 0.1}, 0.9, t0.Add(time.Duration(i+1)*time.Second))
	}
	test.That(t, tr.HistoryLen(), test.ShouldEqual, maxHistory)
}

func TestMeanConfidence(t *testing.T) {
	t0 := time.Now()
	tr := newTrack(1, Position{CX: 0, CY: 0, W: 0.1, H: 0.1}, 1.0, t0)
	tr.appendSample(Position{CX: 0, CY: 0, W: 0.1, H: 0.1}, 0.0, t0.Add(time.Second))
	test.That(t, tr.MeanConfidence(), test.ShouldEqual, 0.5)
}

func TestSnapshotFieldsMatchTrackState(t *testing.T) {
	t0 := time.Now()
	pos := Position{CX: 0.4, CY: 0.6, W: 0.2, H: 0.2}
	tr := newTrack(3, pos, 0.7, t0)
	tr.PriorityScore = 0.42
	want := Snapshot{
		ID:            3,
		Position:      pos,
		Confidence:    0.7,
		MeanArea:      pos.Area(),
		ShapeRatio:    1.0,
		FramesTracked: 1,
		PriorityScore: 0.42,
	}
	got := tr.Snapshot()
	// FirstSeen/LastSeen are wall-clock timestamps, not part of the shape
	// under test here.
	diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Snapshot{}, "FirstSeen", "LastSeen"))
	test.That(t, diff, test.ShouldBeEmpty)
}

func TestSnapshotIsDetached(t *testing.T) {
	t0 := time.Now()
	tr := newTrack(1, Position{CX: 0.2, CY: 0.2, W: 0.1, H: 0.1}, 0.8, t0)
	snap := tr.Snapshot()
	tr.appendSample(Position{CX: 0.9, CY: 0.9, W: 0.1, H: 0.1}, 0.8, t0.Add(time.Second))
	test.That(t, snap.Position.CX, test.ShouldEqual, 0.2)
	test.That(t, tr.LastPosition().CX, test.ShouldEqual, 0.9)
}
