package timectrl

import (
	"context"
	"sync"
	"time"
)

// FrameClock is the read side of a Looper: the timestamp of the most recent
// frame.
type FrameClock interface {
	// Now returns the timestamp of the last frame in nanoseconds.
	Now() int64
}

// Mode describes how the Looper stamps frames.
type Mode int

const (
	// RealTime stamps frames with monotonic wall-clock nanoseconds since the
	// looper was created.
	RealTime Mode = iota
	// Accelerated stamps frame n with n*FrameInterval regardless of how long
	// the frame actually took, and Run drives frames back to back. Replays
	// are deterministic and finish as fast as the CPU allows.
	Accelerated
)

func (m Mode) String() string {
	switch m {
	case RealTime:
		return "realtime"
	case Accelerated:
		return "accelerated"
	default:
		return "unknown"
	}
}

// DefaultFrameInterval is roughly one 60 Hz display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// Looper is a single-goroutine run loop. Posted tasks and frame callbacks all
// execute on the goroutine that calls Run (or Tick), strictly in order, so the
// code they call needs no locking of its own.
type Looper struct {
	FrameInterval time.Duration
	Mode          Mode

	mu        sync.Mutex
	tasks     []func()
	callbacks []func(int64)
	wake      chan struct{}

	// Owned by the loop goroutine.
	listeners []func(int64)
	start     time.Time
	lastFrame int64
	frames    int64
}

// NewLooper constructs a looper. A non-positive interval falls back to
// DefaultFrameInterval.
func NewLooper(interval time.Duration, mode Mode) *Looper {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Looper{
		FrameInterval: interval,
		Mode:          mode,
		wake:          make(chan struct{}, 1),
		start:         time.Now(),
	}
}

// Post queues fn to run on the loop goroutine. Safe for concurrent use.
func (l *Looper) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// PostFrameCallback registers cb to run once on the next frame. Safe for
// concurrent use. Callbacks posted while a frame is running fire on the
// following frame.
func (l *Looper) PostFrameCallback(cb func(frameTimeNanos int64)) {
	if cb == nil {
		return
	}
	l.mu.Lock()
	l.callbacks = append(l.callbacks, cb)
	l.mu.Unlock()
}

// AddListener registers fn to be invoked after the frame callbacks of every
// frame. It must be called before Run or from the loop goroutine.
func (l *Looper) AddListener(fn func(frameTimeNanos int64)) {
	l.listeners = append(l.listeners, fn)
}

// Now returns the timestamp of the last frame. Implements FrameClock.
func (l *Looper) Now() int64 { return l.lastFrame }

// Frames returns the number of frames run so far.
func (l *Looper) Frames() int64 { return l.frames }

// Run drives the loop until ctx is cancelled, interleaving posted tasks with
// frames produced by a ticker at FrameInterval.
func (l *Looper) Run(ctx context.Context) error {
	if l.Mode == Accelerated {
		return l.runAccelerated(ctx)
	}
	ticker := time.NewTicker(l.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
			l.RunPending()
		case <-ticker.C:
			l.RunPending()
			l.Tick()
		}
	}
}

func (l *Looper) runAccelerated(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.RunPending()
		l.Tick()
	}
}

// RunPending executes all queued tasks, including tasks they post.
func (l *Looper) RunPending() {
	for {
		l.mu.Lock()
		tasks := l.tasks
		l.tasks = nil
		l.mu.Unlock()

		if len(tasks) == 0 {
			return
		}
		for _, fn := range tasks {
			fn()
		}
	}
}

// Tick runs one frame stamped according to Mode and returns its timestamp.
func (l *Looper) Tick() int64 {
	var ts int64
	switch l.Mode {
	case Accelerated:
		ts = (l.frames + 1) * l.FrameInterval.Nanoseconds()
	default:
		ts = time.Since(l.start).Nanoseconds()
	}
	l.Step(ts)
	return l.lastFrame
}

// Step runs one frame with an explicit timestamp. Timestamps that do not move
// forward are bumped so callbacks always see a strictly increasing clock.
func (l *Looper) Step(frameTimeNanos int64) {
	if l.frames > 0 && frameTimeNanos <= l.lastFrame {
		frameTimeNanos = l.lastFrame + 1
	}
	l.lastFrame = frameTimeNanos
	l.frames++

	l.mu.Lock()
	callbacks := l.callbacks
	l.callbacks = nil
	l.mu.Unlock()

	for _, cb := range callbacks {
		cb(frameTimeNanos)
	}
	for _, fn := range l.listeners {
		fn(frameTimeNanos)
	}
}

// Pending reports the number of frame callbacks waiting for the next frame.
func (l *Looper) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.callbacks)
}
