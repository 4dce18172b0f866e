package core

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/globe-navigator/internal/logging"
	"github.com/signalsfoundry/globe-navigator/model"
)

const tracerName = "github.com/signalsfoundry/globe-navigator/core"

// Event results reported to the metrics recorder.
const (
	ResultAccepted  = "accepted"
	ResultThrottled = "throttled"
	ResultDropped   = "dropped"
)

// ErrNoSnapshotSource is returned when an event carries no way to fetch the
// camera state.
var ErrNoSnapshotSource = errors.New("navigator event has no snapshot source")

// MetricsRecorder receives controller activity. Implementations must be cheap;
// they run on the frame loop.
type MetricsRecorder interface {
	ObserveEvent(action model.NavigatorAction, result string)
	ObserveFrame(applied bool)
	SetCoasting(coasting bool, angularVelocity float64)
	ObserveCoast(d time.Duration)
}

// Tuning holds the controller parameters that may change while a session
// runs.
type Tuning struct {
	ThrottleMillis int64
	CoastMillis    float64
}

// ControllerOption configures optional Controller behaviour.
type ControllerOption func(*Controller)

// WithLogger attaches a logger.
func WithLogger(log logging.Logger) ControllerOption {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m MetricsRecorder) ControllerOption {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithThrottleMillis overrides DefaultThrottleMillis.
func WithThrottleMillis(ms int64) ControllerOption {
	return func(c *Controller) {
		c.tuning.ThrottleMillis = ms
	}
}

// WithCoastDuration overrides DefaultCoastMillis.
func WithCoastDuration(ms float64) ControllerOption {
	return func(c *Controller) {
		c.tuning.CoastMillis = ms
	}
}

// WithOverlay registers an overlay sink. It may be given more than once.
func WithOverlay(sink OverlaySink) ControllerOption {
	return func(c *Controller) {
		if sink != nil {
			c.overlays = append(c.overlays, sink)
		}
	}
}

// WithCrosshairs registers the crosshair collaborator.
func WithCrosshairs(sink CrosshairSink) ControllerOption {
	return func(c *Controller) {
		c.crosshairs = sink
	}
}

// WithClock sets the millisecond clock used for events that carry no
// timestamp and for timing coasts.
func WithClock(fn func() int64) ControllerOption {
	return func(c *Controller) {
		if fn != nil {
			c.clock = fn
		}
	}
}

// WithSessionID fixes the session identifier instead of generating one.
func WithSessionID(id string) ControllerOption {
	return func(c *Controller) {
		c.sessionID = id
	}
}

// WithTracerProvider sets the provider coast spans are recorded with instead
// of the global one.
func WithTracerProvider(tp trace.TracerProvider) ControllerOption {
	return func(c *Controller) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// Controller drives one navigation session: it throttles navigator events,
// feeds user gestures to the inertia model, notifies the overlay and runs the
// frame integrator while the hosting view is active.
//
// All methods must be called from the same loop that runs frame callbacks.
type Controller struct {
	nav        NavigatorHandle
	throttle   *EventThrottle
	inertia    *InertiaModel
	integrator *FrameIntegrator

	overlays         []OverlaySink
	crosshairs       CrosshairSink
	crosshairsActive bool

	tuning    Tuning
	clock     func() int64
	log       logging.Logger
	metrics   MetricsRecorder
	sessionID string

	tracer           trace.Tracer
	coastSpan        trace.Span
	coastStartMillis int64
}

// NewController wires a controller around the navigator. redraw may be nil.
func NewController(nav NavigatorHandle, scheduler FrameScheduler, redraw RedrawSink, opts ...ControllerOption) *Controller {
	c := &Controller{
		nav:    nav,
		tuning: Tuning{ThrottleMillis: DefaultThrottleMillis, CoastMillis: DefaultCoastMillis},
		clock:  func() int64 { return time.Now().UnixMilli() },
		log:    logging.Noop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sessionID == "" {
		c.sessionID = logging.NewSessionID()
	}
	c.log = c.log.With(logging.String("session_id", c.sessionID))

	c.throttle = NewEventThrottle(c.tuning.ThrottleMillis)
	c.inertia = NewInertiaModel(c.tuning.CoastMillis)
	c.tuning = Tuning{ThrottleMillis: c.throttle.ThresholdMillis, CoastMillis: c.inertia.CoastMillis()}
	c.integrator = NewFrameIntegrator(c.inertia, nav, scheduler, redraw,
		WithFrameHook(c.onFrameStep),
		WithIntegratorLogger(c.log),
	)
	return c
}

// SessionID returns the identifier attached to this controller's logs.
func (c *Controller) SessionID() string { return c.sessionID }

// OnNavigatorEvent adapts HandleEvent to a navigator listener.
func (c *Controller) OnNavigatorEvent(ev model.NavigatorEvent) {
	c.HandleEvent(context.Background(), ev)
}

// HandleEvent processes one navigator event.
func (c *Controller) HandleEvent(ctx context.Context, ev model.NavigatorEvent) {
	now := ev.TimeMillis
	if now == 0 {
		now = c.clock()
	}
	userInput := ev.Action == model.NavigatorMoved && ev.UserInput
	elapsed := c.throttle.Elapsed(now)

	if c.throttle.Accept(ev.Action, now) {
		c.process(ctx, ev, userInput, elapsed)
	} else {
		c.observeEvent(ev.Action, ResultThrottled)
	}

	c.updateCrosshairs(userInput)
}

func (c *Controller) process(ctx context.Context, ev model.NavigatorEvent, userInput bool, elapsed int64) {
	cam, err := snapshot(ev)
	if err != nil {
		c.log.Debug(ctx, "dropping navigator event; snapshot unavailable",
			logging.String("action", ev.Action.String()),
			logging.Error(err),
		)
		c.observeEvent(ev.Action, ResultDropped)
		return
	}

	update := OverlayUpdate{Camera: cam, Action: ev.Action, UserInput: userInput}
	for _, sink := range c.overlays {
		sink.UpdateOverlay(update)
	}

	if userInput && c.inertia.ObserveUserSample(cam.LookAt, elapsed) {
		c.startCoast(ctx)
	}
	c.observeEvent(ev.Action, ResultAccepted)
}

func snapshot(ev model.NavigatorEvent) (model.CameraState, error) {
	if ev.Source == nil {
		return model.CameraState{}, ErrNoSnapshotSource
	}
	return ev.Source.CameraState()
}

func (c *Controller) updateCrosshairs(userInput bool) {
	if c.crosshairs == nil {
		return
	}
	if userInput {
		c.crosshairs.ShowCrosshairs()
		c.crosshairsActive = true
		return
	}
	if c.crosshairsActive {
		c.crosshairsActive = false
		c.crosshairs.FadeCrosshairs()
	}
}

// Resume starts the frame loop; call it when the hosting view becomes active.
func (c *Controller) Resume(ctx context.Context) {
	if c.integrator.Running() {
		return
	}
	c.integrator.Start()
	if c.inertia.Coasting() {
		c.startCoast(ctx)
	}
	c.log.Info(ctx, "navigator session resumed")
}

// Pause stops the frame loop; call it when the hosting view becomes inactive.
func (c *Controller) Pause(ctx context.Context) {
	c.endCoast("paused")
	if !c.integrator.Running() {
		return
	}
	c.integrator.Stop()
	c.log.Info(ctx, "navigator session paused")
}

// Running reports whether the frame loop is active.
func (c *Controller) Running() bool { return c.integrator.Running() }

// Inertia returns a copy of the inertia state.
func (c *Controller) Inertia() InertiaState { return c.inertia.State() }

// Phase returns the inertia phase.
func (c *Controller) Phase() InertiaPhase { return c.inertia.Phase() }

// Tuning returns the parameters currently in effect.
func (c *Controller) Tuning() Tuning { return c.tuning }

// ApplyTuning replaces the throttle threshold and coast duration. A coast in
// progress finishes with the old duration.
func (c *Controller) ApplyTuning(ctx context.Context, t Tuning) {
	if t.ThrottleMillis <= 0 {
		t.ThrottleMillis = DefaultThrottleMillis
	}
	if t.CoastMillis <= 0 {
		t.CoastMillis = DefaultCoastMillis
	}
	c.throttle.ThresholdMillis = t.ThrottleMillis
	c.inertia.SetCoastMillis(t.CoastMillis)
	c.tuning = t
	c.log.Info(ctx, "navigator tuning applied",
		logging.Int64("throttle_ms", t.ThrottleMillis),
		logging.Float64("coast_ms", t.CoastMillis),
	)
}

func (c *Controller) onFrameStep(step FrameStep) {
	if c.metrics != nil {
		c.metrics.ObserveFrame(step.Applied)
		c.metrics.SetCoasting(step.Phase == PhaseCoasting, c.inertia.State().AngularVelocity)
	}
	if step.Applied && step.Phase == PhaseIdle {
		c.endCoast("rest")
	}
}

func (c *Controller) startCoast(ctx context.Context) {
	st := c.inertia.State()
	if c.coastSpan != nil {
		c.coastSpan.AddEvent("sample", trace.WithAttributes(
			attribute.Float64("azimuth_rad", st.Azimuth),
			attribute.Float64("velocity_rad_per_ms", st.AngularVelocity),
		))
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, c.coastSpan = c.tracer.Start(ctx, "navigator/coast", trace.WithAttributes(
		attribute.String("session_id", c.sessionID),
		attribute.Float64("azimuth_rad", st.Azimuth),
		attribute.Float64("velocity_rad_per_ms", st.AngularVelocity),
		attribute.Float64("coast_ms", c.inertia.CoastMillis()),
	))
	c.coastStartMillis = c.clock()
	if c.metrics != nil {
		c.metrics.SetCoasting(true, st.AngularVelocity)
	}
	c.log.Debug(ctx, "coasting",
		logging.Float64("azimuth_rad", st.Azimuth),
		logging.Float64("velocity_rad_per_ms", st.AngularVelocity),
	)
}

func (c *Controller) endCoast(reason string) {
	if c.coastSpan == nil {
		return
	}
	c.coastSpan.SetAttributes(attribute.String("end_reason", reason))
	c.coastSpan.SetStatus(codes.Ok, "")
	c.coastSpan.End()
	c.coastSpan = nil

	if c.metrics != nil {
		c.metrics.ObserveCoast(time.Duration(c.clock()-c.coastStartMillis) * time.Millisecond)
		c.metrics.SetCoasting(false, 0)
	}
}

func (c *Controller) observeEvent(action model.NavigatorAction, result string) {
	if c.metrics != nil {
		c.metrics.ObserveEvent(action, result)
	}
}
