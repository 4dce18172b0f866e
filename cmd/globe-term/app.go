package main

import (
	"context"
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/signalsfoundry/globe-navigator/core"
	"github.com/signalsfoundry/globe-navigator/internal/logging"
	"github.com/signalsfoundry/globe-navigator/internal/session"
	"github.com/signalsfoundry/globe-navigator/overlay"
)

const (
	zoomInFactor  = 0.8
	zoomOutFactor = 1.25
	rotateStep    = 5.0 // degrees
	minDragStep   = 0.01
	maxDragStep   = 5.0
)

const helpLine = "arrows drag  +/- zoom  a/d heading  w/s tilt  p pause  q quit"

// app renders a session onto a terminal screen and turns key presses into
// navigator gestures. All methods run on the session's loop goroutine.
type app struct {
	screen tcell.Screen
	sess   *session.Session
	log    logging.Logger
}

func newApp(screen tcell.Screen, sess *session.Session, log logging.Logger) *app {
	if log == nil {
		log = logging.Noop()
	}
	a := &app{screen: screen, sess: sess, log: log}
	sess.Looper.AddListener(func(int64) { a.draw() })
	return a
}

// handleEvent applies one terminal event and reports whether the app should
// keep running.
func (a *app) handleEvent(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return a.handleKey(ctx, ev)
	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

func (a *app) handleKey(ctx context.Context, ev *tcell.EventKey) bool {
	step := a.dragStep()
	var err error
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		err = a.sess.Navigator.Drag(step, 0)
	case tcell.KeyDown:
		err = a.sess.Navigator.Drag(-step, 0)
	case tcell.KeyLeft:
		err = a.sess.Navigator.Drag(0, -step)
	case tcell.KeyRight:
		err = a.sess.Navigator.Drag(0, step)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case '+', '=':
			err = a.sess.Navigator.Zoom(zoomInFactor)
		case '-':
			err = a.sess.Navigator.Zoom(zoomOutFactor)
		case 'a':
			err = a.sess.Navigator.Rotate(-rotateStep, 0)
		case 'd':
			err = a.sess.Navigator.Rotate(rotateStep, 0)
		case 'w':
			err = a.sess.Navigator.Rotate(0, rotateStep)
		case 's':
			err = a.sess.Navigator.Rotate(0, -rotateStep)
		case 'p':
			a.sess.Toggle(ctx)
		}
	}
	if err != nil {
		a.log.Warn(ctx, "gesture failed", logging.Error(err))
	}
	return true
}

// dragStep scales a key press with altitude so one press moves the view by a
// similar fraction of the screen at any zoom.
func (a *app) dragStep() float64 {
	pos, err := a.sess.Navigator.Position()
	if err != nil {
		return minDragStep
	}
	return math.Max(minDragStep, math.Min(maxDragStep, pos.Altitude/2_000_000))
}

func (a *app) draw() {
	s := a.screen
	s.Clear()
	w, h := s.Size()

	if r, ok := a.sess.Latest.Readout(); ok {
		style := tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
		if r.Emphasis == overlay.Dim {
			style = tcell.StyleDefault.Foreground(tcell.ColorGray).Dim(true)
		}
		drawText(s, 1, 0, style, fmt.Sprintf("%s  %s  %s", r.Latitude, r.Longitude, r.Altitude))
	}

	if alpha := a.sess.Crosshairs.Alpha(); alpha > 0 {
		v := int32(80 + 175*alpha)
		style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(v, v, v))
		cx, cy := w/2, h/2
		s.SetContent(cx, cy, '+', nil, style)
		s.SetContent(cx-1, cy, '-', nil, style)
		s.SetContent(cx+1, cy, '-', nil, style)
	}

	drawText(s, 1, 1, tcell.StyleDefault.Foreground(tcell.ColorTeal), a.status())
	drawText(s, 1, h-1, tcell.StyleDefault.Foreground(tcell.ColorGray), helpLine)
	s.Show()
}

func (a *app) status() string {
	if !a.sess.Controller.Running() {
		return "paused"
	}
	st := a.sess.Controller.Inertia()
	if a.sess.Controller.Phase() != core.PhaseCoasting {
		return "idle"
	}
	kmPerSec := core.ArcLengthMeters(st.AngularVelocity) // m/ms == km/s
	return fmt.Sprintf("coasting %.1f km/s, %.0f ms left", kmPerSec, st.RemainingCoastMillis)
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}
