// Package globe provides an in-memory navigator: the camera over a spherical
// globe that hosts drag around and the inertia controller borrows.
package globe

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/signalsfoundry/globe-navigator/core"
	"github.com/signalsfoundry/globe-navigator/model"
)

// DefaultStopDelayMillis is how long the navigator must be still before it
// reports NavigatorStopped.
const DefaultStopDelayMillis = 200

// MaxTilt bounds the camera tilt so the look-at point stays on the globe.
const MaxTilt = 85.0

// ErrNavigatorClosed is returned by every accessor once Close has been called.
var ErrNavigatorClosed = errors.New("navigator closed")

// Listener receives navigator events.
type Listener func(model.NavigatorEvent)

// Option configures a Navigator.
type Option func(*Navigator)

// WithClock sets the millisecond clock used to stamp events.
func WithClock(fn func() int64) Option {
	return func(n *Navigator) {
		if fn != nil {
			n.clock = fn
		}
	}
}

// WithStopDelay overrides DefaultStopDelayMillis.
func WithStopDelay(ms int64) Option {
	return func(n *Navigator) {
		if ms > 0 {
			n.stopDelay = ms
		}
	}
}

// WithOrientation sets the initial heading and tilt in degrees.
func WithOrientation(heading, tilt float64) Option {
	return func(n *Navigator) {
		n.heading = heading
		n.tilt = clampTilt(tilt)
	}
}

// Navigator is a thread-safe orbit camera. Its position is the point on the
// ground the view is centred on; heading and tilt orbit the eye around that
// point. Position altitude is the eye altitude in metres.
type Navigator struct {
	mu sync.RWMutex

	position model.Position
	heading  float64
	tilt     float64
	closed   bool

	moving         bool
	lastMoveMillis int64
	stopDelay      int64
	clock          func() int64

	subs []Listener
}

// NewNavigator constructs a navigator at start.
func NewNavigator(start model.Position, opts ...Option) *Navigator {
	n := &Navigator{
		position:  start.Normalized(),
		stopDelay: DefaultStopDelayMillis,
		clock:     func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// AddListener registers a callback for navigator events. Listeners run
// synchronously on the goroutine that moved the navigator.
func (n *Navigator) AddListener(fn Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = append(n.subs, fn)
}

// Position returns the centre of the view.
func (n *Navigator) Position() (model.Position, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return model.Position{}, ErrNavigatorClosed
	}
	return n.position, nil
}

// SetPosition recentres the view programmatically. Listeners see a moved
// event without user input.
func (n *Navigator) SetPosition(p model.Position) error {
	return n.move(false, func() {
		p.Altitude = n.position.Altitude
		n.position = p.Normalized()
	})
}

// Drag moves the view centre by the given latitude/longitude deltas in
// degrees as a user gesture.
func (n *Navigator) Drag(dLat, dLon float64) error {
	return n.move(true, func() {
		n.position = model.Position{
			Latitude:  n.position.Latitude + dLat,
			Longitude: n.position.Longitude + dLon,
			Altitude:  n.position.Altitude,
		}.Normalized()
	})
}

// Zoom scales the eye altitude as a user gesture. factor must be positive.
func (n *Navigator) Zoom(factor float64) error {
	if factor <= 0 {
		return fmt.Errorf("zoom factor %v must be positive", factor)
	}
	return n.move(true, func() {
		n.position.Altitude *= factor
	})
}

// Rotate changes heading and tilt by the given deltas in degrees as a user
// gesture. The eye orbits the view centre, so the look-at point stays put.
func (n *Navigator) Rotate(dHeading, dTilt float64) error {
	return n.move(true, func() {
		n.heading = math.Mod(n.heading+dHeading+360, 360)
		n.tilt = clampTilt(n.tilt + dTilt)
	})
}

// Settle emits a stopped event once the navigator has been still for the stop
// delay. It reports whether an event was emitted. Hosts call it once per
// frame.
func (n *Navigator) Settle() bool {
	n.mu.Lock()
	if n.closed || !n.moving {
		n.mu.Unlock()
		return false
	}
	now := n.clock()
	if now-n.lastMoveMillis < n.stopDelay {
		n.mu.Unlock()
		return false
	}
	n.moving = false
	subs := append([]Listener(nil), n.subs...)
	n.mu.Unlock()

	n.notify(subs, model.NavigatorEvent{
		Action:     model.NavigatorStopped,
		TimeMillis: now,
		Source:     n,
	})
	return true
}

// Moving reports whether the navigator has moved since the last stop.
func (n *Navigator) Moving() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.moving
}

// CameraState derives the display snapshot. The look-at point is the view
// centre. With no tilt the eye is directly above it; otherwise the eye sits
// behind it, opposite the heading, at the ground distance altitude*tan(tilt).
func (n *Navigator) CameraState() (model.CameraState, error) {
	n.mu.RLock()
	pos, heading, tilt, closed := n.position, n.heading, n.tilt, n.closed
	n.mu.RUnlock()
	if closed {
		return model.CameraState{}, ErrNavigatorClosed
	}

	cam := model.CameraState{
		LookAt:      model.Position{Latitude: pos.Latitude, Longitude: pos.Longitude},
		Eye:         pos,
		EyeAltitude: pos.Altitude,
		Heading:     heading,
		Tilt:        tilt,
		Range:       pos.Altitude,
	}
	if tilt == 0 {
		return cam, nil
	}

	t := tilt * math.Pi / 180
	groundMeters := pos.Altitude * math.Tan(t)
	cam.Eye = core.Destination(pos, heading*math.Pi/180+math.Pi, groundMeters/core.EarthRadiusMeters)
	cam.Range = pos.Altitude / math.Cos(t)
	return cam, nil
}

// Close makes every accessor fail with ErrNavigatorClosed.
func (n *Navigator) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
}

func (n *Navigator) move(userInput bool, apply func()) error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return ErrNavigatorClosed
	}
	apply()
	now := n.clock()
	n.moving = true
	n.lastMoveMillis = now
	subs := append([]Listener(nil), n.subs...)
	n.mu.Unlock()

	n.notify(subs, model.NavigatorEvent{
		Action:     model.NavigatorMoved,
		TimeMillis: now,
		UserInput:  userInput,
		Source:     n,
	})
	return nil
}

func (n *Navigator) notify(subs []Listener, ev model.NavigatorEvent) {
	for _, fn := range subs {
		fn(ev)
	}
}

func clampTilt(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > MaxTilt {
		return MaxTilt
	}
	return t
}
