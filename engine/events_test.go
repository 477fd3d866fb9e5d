package ptzengine

import (
	"testing"

	"go.viam.com/test"
)

func TestObserverSetFansOutToEveryObserver(t *testing.T) {
	var got []Event
	var o observerSet
	o.subscribe(ObserverFunc(func(e Event) { got = append(got, e) }))
	o.subscribe(ObserverFunc(func(e Event) { got = append(got, e) }))
	o.emit(Event{Tag: EventObjectDetected, TrackID: 7})
	test.That(t, len(got), test.ShouldEqual, 2)
	test.That(t, got[0].TrackID, test.ShouldEqual, 7)
}

func TestObserverSetSurvivesPanickingObserver(t *testing.T) {
	var calledAfter bool
	var o observerSet
	o.subscribe(ObserverFunc(func(e Event) { panic("boom") }))
	o.subscribe(ObserverFunc(func(e Event) { calledAfter = true }))
	o.emit(Event{Tag: EventTrackingTick})
	test.That(t, calledAfter, test.ShouldBeTrue)
}

func TestEventTagStringsAreStable(t *testing.T) {
	cases := map[EventTag]string{
		EventObjectDetected: "object_detected",
		EventObjectLost:     "object_lost",
		EventTargetSwitched: "target_switched",
		EventZoomChanged:    "zoom_changed",
		EventStateChanged:   "state_changed",
		EventTrackingTick:   "tracking_tick",
	}
	for tag, want := range cases {
		test.That(t, tag.String(), test.ShouldEqual, want)
	}
}
