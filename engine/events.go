package ptzengine

// EventTag is the closed set of event kinds an Observer may receive (spec.md
// §4.9, §9: "Replace the source's attribute-assigned callback slots with a
// single subscription interface taking a sum-typed Event").
type EventTag int

const (
	EventObjectDetected EventTag = iota
	EventObjectLost
	EventTargetSwitched
	EventZoomChanged
	EventStateChanged
	EventTrackingTick
)

func (t EventTag) String() string {
	switch t {
	case EventObjectDetected:
		return "object_detected"
	case EventObjectLost:
		return "object_lost"
	case EventTargetSwitched:
		return "target_switched"
	case EventZoomChanged:
		return "zoom_changed"
	case EventStateChanged:
		return "state_changed"
	case EventTrackingTick:
		return "tracking_tick"
	default:
		return "unknown"
	}
}

// Event is the payload delivered to every Observer. Only the fields
// pertinent to Tag are populated; the rest are zero values.
type Event struct {
	Tag EventTag

	TrackID    int // ObjectDetected, ObjectLost, TrackingTick
	Snapshot   Snapshot
	OldTrackID int // TargetSwitched
	NewTrackID int // TargetSwitched

	ZoomLevel float64 // ZoomChanged
	AreaRatio float64 // ZoomChanged

	OldSessionState SessionState // StateChanged
	NewSessionState SessionState // StateChanged
}

// Observer receives engine events synchronously from the engine's tick
// (spec.md §4.9: "Callbacks are invoked synchronously ... recipients must
// not block"). Implementations must return promptly.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(Event)

// Notify implements Observer.
func (f ObserverFunc) Notify(e Event) { f(e) }

// observerSet fans an event out to every registered observer. A slow
// observer is the caller's problem, per the "recipients must not block"
// contract; a panicking observer must not crash the tick, so notifyOne
// recovers and discards each observer's panic and the remaining observers
// still run.
type observerSet struct {
	observers []Observer
}

func (o *observerSet) subscribe(obs Observer) {
	o.observers = append(o.observers, obs)
}

func (o *observerSet) emit(e Event) {
	for _, obs := range o.observers {
		notifyOne(obs, e)
	}
}

func notifyOne(obs Observer, e Event) {
	defer func() {
		_ = recover()
	}()
	obs.Notify(e)
}
