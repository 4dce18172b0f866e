package overlay

import "time"

const (
	// FadeDelay is how long crosshairs stay fully visible after a gesture.
	FadeDelay = 500 * time.Millisecond
	// FadeDuration is how long the fade to invisible takes.
	FadeDuration = 1500 * time.Millisecond
)

// Crosshairs tracks the visibility of the centre crosshairs: fully visible
// while the user gestures, fading out once they stop. It is driven from the
// frame loop and is not safe for concurrent use.
type Crosshairs struct {
	clock func() time.Time

	alpha     float64
	fading    bool
	fadeStart time.Time
}

// NewCrosshairs returns visible crosshairs. A nil clock uses time.Now.
func NewCrosshairs(clock func() time.Time) *Crosshairs {
	if clock == nil {
		clock = time.Now
	}
	return &Crosshairs{clock: clock, alpha: 1}
}

// ShowCrosshairs cancels any fade and makes the crosshairs opaque.
func (c *Crosshairs) ShowCrosshairs() {
	c.fading = false
	c.alpha = 1
}

// FadeCrosshairs starts the fade unless one is already running.
func (c *Crosshairs) FadeCrosshairs() {
	if c.fading {
		return
	}
	c.alpha = c.Alpha()
	c.fading = true
	c.fadeStart = c.clock()
}

// Fading reports whether a fade is in progress or finished.
func (c *Crosshairs) Fading() bool { return c.fading }

// Alpha returns the current opacity in [0, 1].
func (c *Crosshairs) Alpha() float64 {
	if !c.fading {
		return c.alpha
	}
	t := c.clock().Sub(c.fadeStart) - FadeDelay
	switch {
	case t <= 0:
		return c.alpha
	case t >= FadeDuration:
		return 0
	default:
		return c.alpha * (1 - float64(t)/float64(FadeDuration))
	}
}
