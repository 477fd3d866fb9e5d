package ptzengine

import (
	"context"
	"time"
)

// CameraDriver is the capability set the dispatcher depends on (spec.md §9,
// "Polymorphic camera driver"; §6, "Camera driver (outbound)"). Production
// code talks to a real ONVIF-style transport (see package onvifptz); tests
// use a deterministic double (see package enginetest).
type CameraDriver interface {
	// ContinuousMove commands pan/tilt velocity in [-1, 1].
	ContinuousMove(ctx context.Context, pan, tilt float64) error
	// AbsoluteMove commands an absolute zoom level in [0, 1].
	AbsoluteMove(ctx context.Context, zoom float64) error
	// GotoPreset moves the camera to a stored orientation.
	GotoPreset(ctx context.Context, token string) error
	// Stop halts pan/tilt and/or zoom motion.
	Stop(ctx context.Context, panTilt, zoom bool) error
}

// ErrorKind is the closed set of error categories from spec.md §7.
type ErrorKind int

const (
	ErrorKindInvalidInput ErrorKind = iota
	ErrorKindTransientDispatch
	ErrorKindPermanentDispatch
	ErrorKindInvariantViolation
	ErrorKindShutdown
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindInvalidInput:
		return "invalid_input"
	case ErrorKindTransientDispatch:
		return "transient_dispatch"
	case ErrorKindPermanentDispatch:
		return "permanent_dispatch"
	case ErrorKindInvariantViolation:
		return "invariant_violation"
	case ErrorKindShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// DispatchError is reported by the camera driver boundary (spec.md §6:
// "DispatchFailed{transient|permanent}"), generalised to every error kind so
// the dispatcher and engine report failures through one typed value.
type DispatchError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *DispatchError) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Op + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Op
}

func (e *DispatchError) Unwrap() error { return e.Err }

// callWithTimeout runs fn and classifies a context-deadline failure as
// transient (spec.md §5: "A camera-driver call that exceeds a configurable
// timeout ... counts as a failed dispatch").
func callWithTimeout(parent context.Context, timeout time.Duration, op string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		if ctx.Err() != nil {
			return &DispatchError{Kind: ErrorKindTransientDispatch, Op: op, Err: ctx.Err()}
		}
		if de, ok := err.(*DispatchError); ok {
			return de
		}
		return &DispatchError{Kind: ErrorKindTransientDispatch, Op: op, Err: err}
	}
	return nil
}
