package core

import (
	"errors"
	"time"

	"github.com/signalsfoundry/globe-navigator/model"
)

var errNavigatorGone = errors.New("navigator gone")

// fakeScheduler queues frame callbacks until the test fires them.
type fakeScheduler struct {
	callbacks []func(int64)
}

func (s *fakeScheduler) PostFrameCallback(cb func(int64)) {
	s.callbacks = append(s.callbacks, cb)
}

func (s *fakeScheduler) fire(frameTimeNanos int64) bool {
	if len(s.callbacks) == 0 {
		return false
	}
	cb := s.callbacks[0]
	s.callbacks = s.callbacks[1:]
	cb(frameTimeNanos)
	return true
}

// fakeNavigator is an in-memory NavigatorHandle that also acts as the
// snapshot source of the events a test builds.
type fakeNavigator struct {
	pos       model.Position
	getErr    error
	setErr    error
	cameraErr error
	sets      int
}

func (n *fakeNavigator) Position() (model.Position, error) {
	if n.getErr != nil {
		return model.Position{}, n.getErr
	}
	return n.pos, nil
}

func (n *fakeNavigator) SetPosition(p model.Position) error {
	if n.setErr != nil {
		return n.setErr
	}
	n.pos = p
	n.sets++
	return nil
}

func (n *fakeNavigator) CameraState() (model.CameraState, error) {
	if n.cameraErr != nil {
		return model.CameraState{}, n.cameraErr
	}
	return model.CameraState{LookAt: n.pos, EyeAltitude: n.pos.Altitude}, nil
}

func (n *fakeNavigator) event(action model.NavigatorAction, at int64, userInput bool) model.NavigatorEvent {
	return model.NavigatorEvent{Action: action, TimeMillis: at, UserInput: userInput, Source: n}
}

type redrawCounter struct{ n int }

func (r *redrawCounter) RequestRedraw() { r.n++ }

type overlayRecorder struct {
	updates []OverlayUpdate
}

func (o *overlayRecorder) UpdateOverlay(u OverlayUpdate) { o.updates = append(o.updates, u) }

type crosshairRecorder struct {
	shows, fades int
}

func (c *crosshairRecorder) ShowCrosshairs() { c.shows++ }
func (c *crosshairRecorder) FadeCrosshairs() { c.fades++ }

type metricsRecorder struct {
	events   map[string]int
	frames   int
	applied  int
	coasting bool
	coasts   []time.Duration
}

func newMetricsRecorder() *metricsRecorder {
	return &metricsRecorder{events: make(map[string]int)}
}

func (m *metricsRecorder) ObserveEvent(action model.NavigatorAction, result string) {
	m.events[action.String()+"/"+result]++
}

func (m *metricsRecorder) ObserveFrame(applied bool) {
	m.frames++
	if applied {
		m.applied++
	}
}

func (m *metricsRecorder) SetCoasting(coasting bool, _ float64) { m.coasting = coasting }

func (m *metricsRecorder) ObserveCoast(d time.Duration) { m.coasts = append(m.coasts, d) }
