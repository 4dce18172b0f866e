// Package session wires a navigator, a frame looper and an inertia controller
// into one runnable navigation session.
package session

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/globe-navigator/core"
	"github.com/signalsfoundry/globe-navigator/globe"
	"github.com/signalsfoundry/globe-navigator/internal/config"
	"github.com/signalsfoundry/globe-navigator/internal/logging"
	"github.com/signalsfoundry/globe-navigator/overlay"
	"github.com/signalsfoundry/globe-navigator/timectrl"
)

// Options configures a Session.
type Options struct {
	Config   config.Navigator
	Mode     timectrl.Mode
	Logger   logging.Logger
	Metrics  core.MetricsRecorder
	Overlays []core.OverlaySink
	Redraw   core.RedrawSink

	// TracerProvider records coast spans; nil means the otel global.
	TracerProvider trace.TracerProvider

	// OnRunningChange is told whenever the frame loop starts or stops.
	OnRunningChange func(running bool)
}

// Session owns every piece of one navigation session. All mutation happens on
// the looper goroutine; other goroutines hand work over with Looper.Post.
type Session struct {
	Looper     *timectrl.Looper
	Navigator  *globe.Navigator
	Controller *core.Controller
	Crosshairs *overlay.Crosshairs
	Latest     *overlay.Latest

	log             logging.Logger
	onRunningChange func(bool)
}

// New builds a paused session. Call Resume to start the frame loop.
func New(opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}
	cfg := opts.Config.ApplyDefaults()

	s := &Session{
		Looper:          timectrl.NewLooper(cfg.FrameInterval, opts.Mode),
		Latest:          &overlay.Latest{},
		log:             log,
		onRunningChange: opts.OnRunningChange,
	}
	clock := s.clock(opts.Mode)
	s.Crosshairs = overlay.NewCrosshairs(func() time.Time {
		return time.UnixMilli(clock())
	})

	s.Navigator = globe.NewNavigator(cfg.StartPosition(),
		globe.WithClock(clock),
		globe.WithStopDelay(cfg.StopDelayMillis),
		globe.WithOrientation(cfg.Heading, cfg.Tilt),
	)

	ctrlOpts := []core.ControllerOption{
		core.WithLogger(log),
		core.WithMetrics(opts.Metrics),
		core.WithThrottleMillis(cfg.ThrottleMillis),
		core.WithCoastDuration(cfg.CoastMillis),
		core.WithClock(clock),
		core.WithCrosshairs(s.Crosshairs),
		core.WithOverlay(s.Latest),
		core.WithTracerProvider(opts.TracerProvider),
	}
	for _, sink := range opts.Overlays {
		ctrlOpts = append(ctrlOpts, core.WithOverlay(sink))
	}
	s.Controller = core.NewController(s.Navigator, s.Looper, opts.Redraw, ctrlOpts...)

	s.Navigator.AddListener(s.Controller.OnNavigatorEvent)
	s.Looper.AddListener(func(int64) {
		s.Navigator.Settle()
	})
	return s
}

// clock returns the millisecond clock events are stamped with. Accelerated
// sessions follow frame time so replays are deterministic.
func (s *Session) clock(mode timectrl.Mode) func() int64 {
	if mode == timectrl.Accelerated {
		return func() int64 { return s.Looper.Now() / int64(time.Millisecond) }
	}
	start := time.Now()
	return func() int64 { return time.Since(start).Milliseconds() }
}

// Resume starts the frame loop. Loop goroutine only.
func (s *Session) Resume(ctx context.Context) {
	s.Controller.Resume(ctx)
	s.notifyRunning()
}

// Pause stops the frame loop. Loop goroutine only.
func (s *Session) Pause(ctx context.Context) {
	s.Controller.Pause(ctx)
	s.notifyRunning()
}

// Toggle pauses a running session and resumes a paused one.
func (s *Session) Toggle(ctx context.Context) {
	if s.Controller.Running() {
		s.Pause(ctx)
		return
	}
	s.Resume(ctx)
}

// Run resumes the session and drives the looper until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	s.Looper.Post(func() { s.Resume(ctx) })
	err := s.Looper.Run(ctx)
	s.Pause(context.Background())
	return err
}

// Watch forwards reloaded configs from w onto the loop until w closes.
func (s *Session) Watch(ctx context.Context, w *config.Watcher) {
	go func() {
		for {
			select {
			case cfg, ok := <-w.Events:
				if !ok {
					return
				}
				tuning := cfg.Tuning()
				s.Looper.Post(func() { s.Controller.ApplyTuning(ctx, tuning) })
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn(ctx, "config reload failed; keeping current tuning", logging.Error(err))
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *Session) notifyRunning() {
	if s.onRunningChange != nil {
		s.onRunningChange(s.Controller.Running())
	}
}
