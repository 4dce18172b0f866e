package core

import "github.com/signalsfoundry/globe-navigator/model"

// DefaultThrottleMillis bounds overlay and inertia updates to roughly the
// 20 Hz a status readout needs.
const DefaultThrottleMillis = 50

// EventThrottle decides whether a navigation event warrants the expensive
// downstream work (snapshot fetch, overlay refresh, inertia update).
type EventThrottle struct {
	ThresholdMillis int64

	lastAcceptedMillis int64
	primed             bool
}

// NewEventThrottle constructs a throttle. A non-positive threshold falls back
// to DefaultThrottleMillis.
func NewEventThrottle(thresholdMillis int64) *EventThrottle {
	if thresholdMillis <= 0 {
		thresholdMillis = DefaultThrottleMillis
	}
	return &EventThrottle{ThresholdMillis: thresholdMillis}
}

// Accept reports whether an event of the given action at timeMillis should be
// processed. Stopped events are always accepted; moved events only once more
// than ThresholdMillis has passed since the last accepted event. State changes
// only when the event is accepted. The very first event is always accepted.
func (t *EventThrottle) Accept(action model.NavigatorAction, timeMillis int64) bool {
	if t.primed && action != model.NavigatorStopped && timeMillis-t.lastAcceptedMillis <= t.ThresholdMillis {
		return false
	}
	t.lastAcceptedMillis = timeMillis
	t.primed = true
	return true
}

// Elapsed returns the time between timeMillis and the last accepted event, or
// 0 before any event has been accepted.
func (t *EventThrottle) Elapsed(timeMillis int64) int64 {
	if !t.primed {
		return 0
	}
	return timeMillis - t.lastAcceptedMillis
}

// LastAccepted returns the timestamp of the last accepted event.
func (t *EventThrottle) LastAccepted() int64 {
	return t.lastAcceptedMillis
}
