package ptzengine

import (
	"testing"

	"go.viam.com/test"
)

func TestPositionArea(t *testing.T) {
	p := Position{CX: 0.5, CY: 0.5, W: 0.2, H: 0.4}
	test.That(t, p.Area(), test.ShouldAlmostEqual, 0.08)
}

func TestPredictZeroVelocityIsIdentity(t *testing.T) {
	p := Position{CX: 0.3, CY: 0.7, W: 0.1, H: 0.1, FrameW: 640, FrameH: 480}
	out := Predict(p, 0, 0, 5)
	test.That(t, out.CX, test.ShouldEqual, p.CX)
	test.That(t, out.CY, test.ShouldEqual, p.CY)
}

func TestPredictClampsToUnitSquare(t *testing.T) {
	p := Position{CX: 0.95, CY: 0.05}
	out := Predict(p, 1.0, -1.0, 1.0)
	test.That(t, out.CX, test.ShouldEqual, 1.0)
	test.That(t, out.CY, test.ShouldEqual, 0.0)
}

func TestEuclidean(t *testing.T) {
	a := Position{CX: 0, CY: 0}
	b := Position{CX: 3, CY: 4}
	test.That(t, euclidean(a, b), test.ShouldEqual, 5.0)
}

func TestPixelRectRoundTrip(t *testing.T) {
	p := Position{CX: 0.5, CY: 0.5, W: 0.5, H: 0.5, FrameW: 100, FrameH: 100}
	x0, y0, x1, y1 := p.PixelRect()
	test.That(t, x0, test.ShouldEqual, 25)
	test.That(t, y0, test.ShouldEqual, 25)
	test.That(t, x1, test.ShouldEqual, 75)
	test.That(t, y1, test.ShouldEqual, 75)
}
