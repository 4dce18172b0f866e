package core

import (
	"context"

	"github.com/signalsfoundry/globe-navigator/internal/logging"
	"github.com/signalsfoundry/globe-navigator/model"
)

// FrameStep describes what one frame did. It is passed to the optional frame
// hook for every frame after the cold-start frame.
type FrameStep struct {
	FrameTimeNanos int64
	FrameMillis    float64
	Applied        bool
	Displacement   Displacement
	Position       model.Position
	Phase          InertiaPhase
}

// FrameIntegratorOption configures optional FrameIntegrator behaviour.
type FrameIntegratorOption func(*FrameIntegrator)

// WithFrameHook registers a callback run after every integrated frame.
func WithFrameHook(fn func(FrameStep)) FrameIntegratorOption {
	return func(f *FrameIntegrator) {
		f.hook = fn
	}
}

// WithIntegratorLogger attaches a logger for navigator failures.
func WithIntegratorLogger(log logging.Logger) FrameIntegratorOption {
	return func(f *FrameIntegrator) {
		if log != nil {
			f.log = log
		}
	}
}

// FrameIntegrator applies the inertia model to the navigator once per
// display frame while running.
type FrameIntegrator struct {
	inertia   *InertiaModel
	nav       NavigatorHandle
	scheduler FrameScheduler
	redraw    RedrawSink
	hook      func(FrameStep)
	log       logging.Logger

	lastFrameTimeNanos int64
	haveLastFrame      bool
	running            bool
	pending            bool
}

// NewFrameIntegrator wires an integrator. redraw may be nil.
func NewFrameIntegrator(inertia *InertiaModel, nav NavigatorHandle, scheduler FrameScheduler, redraw RedrawSink, opts ...FrameIntegratorOption) *FrameIntegrator {
	f := &FrameIntegrator{
		inertia:   inertia,
		nav:       nav,
		scheduler: scheduler,
		redraw:    redraw,
		log:       logging.Noop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Start resets the frame clock and schedules the first frame.
func (f *FrameIntegrator) Start() {
	f.haveLastFrame = false
	f.lastFrameTimeNanos = 0
	f.running = true
	f.post()
}

// Stop halts scheduling. A frame already posted still runs once but neither
// integrates nor reschedules.
func (f *FrameIntegrator) Stop() {
	f.running = false
	f.haveLastFrame = false
	f.lastFrameTimeNanos = 0
}

// Running reports whether the integrator reschedules itself.
func (f *FrameIntegrator) Running() bool { return f.running }

// OnFrame is the frame callback.
func (f *FrameIntegrator) OnFrame(frameTimeNanos int64) {
	f.pending = false

	if f.haveLastFrame && frameTimeNanos <= f.lastFrameTimeNanos {
		// Out-of-order or duplicate frame: nothing to integrate.
		if f.running {
			f.post()
		}
		return
	}

	if f.haveLastFrame {
		step := FrameStep{
			FrameTimeNanos: frameTimeNanos,
			FrameMillis:    float64(frameTimeNanos-f.lastFrameTimeNanos) * 1.0e-6,
		}
		if f.inertia.Coasting() && !f.integrate(&step) {
			return
		}
		step.Phase = f.inertia.Phase()
		if f.hook != nil {
			f.hook(step)
		}
	}

	if f.running {
		f.post()
	}
	f.lastFrameTimeNanos = frameTimeNanos
	f.haveLastFrame = true
}

// integrate moves the navigator by one frame of inertia and records the result
// on step. It returns false when the navigator is unavailable and the
// integrator stopped itself.
func (f *FrameIntegrator) integrate(step *FrameStep) bool {
	current, err := f.nav.Position()
	if err != nil {
		f.fail(err)
		return false
	}

	d, ok := f.inertia.Tick(step.FrameMillis)
	if !ok {
		return true
	}
	target := Destination(current, d.Azimuth, d.Distance)
	if err := f.nav.SetPosition(target); err != nil {
		f.fail(err)
		return false
	}
	if f.redraw != nil {
		f.redraw.RequestRedraw()
	}

	step.Applied = true
	step.Displacement = d
	step.Position = target
	return true
}

func (f *FrameIntegrator) fail(err error) {
	f.log.Warn(context.Background(), "navigator unavailable; stopping frame loop",
		logging.String("error", err.Error()),
	)
	f.Stop()
}

func (f *FrameIntegrator) post() {
	if f.pending || f.scheduler == nil {
		return
	}
	f.pending = true
	f.scheduler.PostFrameCallback(f.OnFrame)
}
