package core

import "github.com/signalsfoundry/globe-navigator/model"

// NavigatorHandle is read/write access to the live camera position. The host
// owns the navigator; the core only borrows it.
type NavigatorHandle interface {
	Position() (model.Position, error)
	SetPosition(model.Position) error
}

// FrameScheduler invokes a callback once, on the next display frame, with a
// monotonic timestamp in nanoseconds.
type FrameScheduler interface {
	PostFrameCallback(cb func(frameTimeNanos int64))
}

// RedrawSink is told that the rendered view is stale.
type RedrawSink interface {
	RequestRedraw()
}

// OverlayUpdate is handed to overlay collaborators after an accepted event.
type OverlayUpdate struct {
	Camera    model.CameraState
	Action    model.NavigatorAction
	UserInput bool
}

// OverlaySink renders navigator readouts.
type OverlaySink interface {
	UpdateOverlay(OverlayUpdate)
}

// CrosshairSink shows crosshairs while the user gestures and fades them after.
type CrosshairSink interface {
	ShowCrosshairs()
	FadeCrosshairs()
}

// RedrawFunc adapts a plain function to RedrawSink.
type RedrawFunc func()

// RequestRedraw calls f.
func (f RedrawFunc) RequestRedraw() {
	if f != nil {
		f()
	}
}
