package ptzengine

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestCallWithTimeoutPassesThroughSuccess(t *testing.T) {
	err := callWithTimeout(context.Background(), time.Second, "continuous_move", func(ctx context.Context) error {
		return nil
	})
	test.That(t, err, test.ShouldBeNil)
}

func TestCallWithTimeoutClassifiesDeadlineAsTransient(t *testing.T) {
	err := callWithTimeout(context.Background(), time.Millisecond, "continuous_move", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	test.That(t, err, test.ShouldNotBeNil)
	de, ok := err.(*DispatchError)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, de.Kind, test.ShouldEqual, ErrorKindTransientDispatch)
}

func TestCallWithTimeoutPreservesDispatchErrorKind(t *testing.T) {
	want := &DispatchError{Kind: ErrorKindPermanentDispatch, Op: "stop", Err: errors.New("refused")}
	err := callWithTimeout(context.Background(), time.Second, "stop", func(ctx context.Context) error {
		return want
	})
	de, ok := err.(*DispatchError)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, de.Kind, test.ShouldEqual, ErrorKindPermanentDispatch)
}

func TestDispatchErrorUnwrap(t *testing.T) {
	inner := errors.New("transport down")
	de := &DispatchError{Kind: ErrorKindTransientDispatch, Op: "goto_preset", Err: inner}
	test.That(t, errors.Unwrap(de), test.ShouldEqual, inner)
}
