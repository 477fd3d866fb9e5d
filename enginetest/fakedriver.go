// Package enginetest provides a deterministic CameraDriver double for
// exercising the ptzengine control loop without a real camera, the test-side
// half of the "Polymorphic camera driver" design note in spec.md §9.
package enginetest

import (
	"context"
	"sync"
)

// Call records one invocation on the fake driver.
type Call struct {
	Op        string // "continuous_move" | "absolute_move" | "goto_preset" | "stop"
	Pan, Tilt float64
	Zoom      float64
	Token     string
	PanTilt   bool
	StopZoom  bool
}

// FakeDriver is a CameraDriver that records every call and can be made to
// fail on demand, for exercising spec.md §7's dispatch-failure policy.
type FakeDriver struct {
	mu    sync.Mutex
	calls []Call

	FailContinuous error
	FailAbsolute   error
	FailPreset     error
	FailStop       error
}

// NewFakeDriver returns a FakeDriver with no injected failures.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

func (f *FakeDriver) ContinuousMove(_ context.Context, pan, tilt float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: "continuous_move", Pan: pan, Tilt: tilt})
	return f.FailContinuous
}

func (f *FakeDriver) AbsoluteMove(_ context.Context, zoom float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: "absolute_move", Zoom: zoom})
	return f.FailAbsolute
}

func (f *FakeDriver) GotoPreset(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: "goto_preset", Token: token})
	return f.FailPreset
}

func (f *FakeDriver) Stop(_ context.Context, panTilt, zoom bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: "stop", PanTilt: panTilt, StopZoom: zoom})
	return f.FailStop
}

// Calls returns a copy of every call recorded so far, in order.
func (f *FakeDriver) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call{}, f.calls...)
}

// CountOp returns how many times an op was invoked.
func (f *FakeDriver) CountOp(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// LastOp returns the most recent call matching op, or false if none.
func (f *FakeDriver) LastOp(op string) (Call, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Op == op {
			return f.calls[i], true
		}
	}
	return Call{}, false
}
