package core

import "github.com/signalsfoundry/globe-navigator/model"

// DefaultCoastMillis is how long the camera keeps moving after the last user
// sample before it comes to rest.
const DefaultCoastMillis = 3000.0

// InertiaPhase is the coasting state of an InertiaModel.
type InertiaPhase int

const (
	// PhaseIdle means no inertial motion is applied.
	PhaseIdle InertiaPhase = iota
	// PhaseCoasting means the camera drifts along Azimuth with a decaying
	// angular velocity.
	PhaseCoasting
)

func (p InertiaPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCoasting:
		return "coasting"
	default:
		return "unknown"
	}
}

// Displacement is a single frame's motion along a great circle.
type Displacement struct {
	Azimuth  float64 // radians
	Distance float64 // radians
}

// InertiaState is a copy of the model's internal state.
type InertiaState struct {
	// LastSample is nil until the first user sample has been observed.
	LastSample *model.Position

	AngularVelocity      float64 // radians per millisecond
	Azimuth              float64 // radians
	RemainingCoastMillis float64
}

// InertiaModel turns user-driven position samples into a decaying angular
// velocity and direction. It is not safe for concurrent use; the controller
// drives it from a single loop.
type InertiaModel struct {
	coastMillis     float64
	nextCoastMillis float64

	phase      InertiaPhase
	lastSample model.Position
	hasSample  bool
	velocity   float64
	azimuth    float64
	remaining  float64
}

// NewInertiaModel constructs an idle model. A non-positive coast duration
// falls back to DefaultCoastMillis.
func NewInertiaModel(coastMillis float64) *InertiaModel {
	if coastMillis <= 0 {
		coastMillis = DefaultCoastMillis
	}
	return &InertiaModel{coastMillis: coastMillis, nextCoastMillis: coastMillis}
}

// ObserveUserSample feeds the position reached by a user gesture and the time
// since the previous accepted sample. It reports whether the sample (re)armed
// coasting.
//
// The velocity is the great-circle distance between the last two samples over
// the elapsed time: a first-order estimate, not a true derivative.
func (m *InertiaModel) ObserveUserSample(pos model.Position, elapsedMillis int64) bool {
	if !m.hasSample {
		m.lastSample = pos
		m.hasSample = true
		return false
	}
	if elapsedMillis <= 0 {
		return false
	}

	m.azimuth = Azimuth(m.lastSample, pos)
	m.velocity = Distance(m.lastSample, pos) / float64(elapsedMillis)
	m.coastMillis = m.nextCoastMillis
	m.enterCoasting()
	m.lastSample = pos
	return true
}

// Tick advances the coast by frameMillis and returns the displacement to
// apply for this frame. It returns false while idle.
func (m *InertiaModel) Tick(frameMillis float64) (Displacement, bool) {
	if m.phase != PhaseCoasting || frameMillis <= 0 {
		return Displacement{}, false
	}

	d := Displacement{Azimuth: m.azimuth, Distance: m.velocity * frameMillis}

	m.remaining -= frameMillis
	if m.remaining > 0 {
		// Linear decay to zero across the coast window.
		m.velocity *= m.remaining / m.coastMillis
	} else {
		m.enterIdle()
	}
	return d, true
}

// Phase returns the current phase.
func (m *InertiaModel) Phase() InertiaPhase { return m.phase }

// Coasting reports whether the model is in PhaseCoasting.
func (m *InertiaModel) Coasting() bool { return m.phase == PhaseCoasting }

// CoastMillis returns the coast duration used by the current coast.
func (m *InertiaModel) CoastMillis() float64 { return m.coastMillis }

// SetCoastMillis changes the coast duration. The new value takes effect on the
// next user sample so an in-flight coast keeps a consistent decay.
func (m *InertiaModel) SetCoastMillis(ms float64) {
	if ms <= 0 {
		ms = DefaultCoastMillis
	}
	m.nextCoastMillis = ms
}

// State returns a copy of the internal state.
func (m *InertiaModel) State() InertiaState {
	st := InertiaState{
		AngularVelocity:      m.velocity,
		Azimuth:              m.azimuth,
		RemainingCoastMillis: m.remaining,
	}
	if m.hasSample {
		last := m.lastSample
		st.LastSample = &last
	}
	return st
}

// Reset drops the last sample and returns the model to idle.
func (m *InertiaModel) Reset() {
	m.enterIdle()
	m.hasSample = false
	m.lastSample = model.Position{}
	m.azimuth = 0
}

func (m *InertiaModel) enterCoasting() {
	m.phase = PhaseCoasting
	m.remaining = m.coastMillis
}

func (m *InertiaModel) enterIdle() {
	m.phase = PhaseIdle
	m.remaining = 0
	m.velocity = 0
}
