package ptzengine

import (
	"testing"
	"time"

	"go.viam.com/test"
)

func TestPredictTargetPositionUsesLastPositionWhenStationary(t *testing.T) {
	cfg := NewConfig()
	t0 := time.Now()
	tr := newTrack(1, Position{CX: 0.4, CY: 0.4, W: 0.1, H: 0.1}, 0.9, t0)
	got := predictTargetPosition(tr, cfg)
	test.That(t, got.CX, test.ShouldEqual, 0.4)
}

func TestPredictTargetPositionExtrapolatesWhenMoving(t *testing.T) {
	cfg := NewConfig()
	cfg.Motion.PredictionHorizon = 1.0
	t0 := time.Now()
	tr := newTrack(1, Position{CX: 0.1, CY: 0.1, W: 0.1, H: 0.1}, 0.9, t0)
	tr.appendSample(Position{CX: 0.2, CY: 0.1, W: 0.1, H: 0.1}, 0.9, t0.Add(time.Second))
	tr.refreshMoving(0.01)
	got := predictTargetPosition(tr, cfg)
	test.That(t, got.CX, test.ShouldBeGreaterThan, 0.2)
}

func TestPredictTargetPositionIgnoredWhenPredictionDisabled(t *testing.T) {
	cfg := NewConfig()
	cfg.Motion.Prediction = false
	t0 := time.Now()
	tr := newTrack(1, Position{CX: 0.1, CY: 0.1, W: 0.1, H: 0.1}, 0.9, t0)
	tr.appendSample(Position{CX: 0.2, CY: 0.1, W: 0.1, H: 0.1}, 0.9, t0.Add(time.Second))
	tr.refreshMoving(0.01)
	got := predictTargetPosition(tr, cfg)
	test.That(t, got.CX, test.ShouldEqual, 0.2)
}
