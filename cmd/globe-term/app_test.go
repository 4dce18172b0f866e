package main

import (
	"context"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/signalsfoundry/globe-navigator/internal/config"
	"github.com/signalsfoundry/globe-navigator/internal/session"
	"github.com/signalsfoundry/globe-navigator/timectrl"
)

func newTestApp(t *testing.T) (*app, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	t.Cleanup(screen.Fini)
	screen.SetSize(80, 24)

	cfg := config.Default()
	cfg.Start = config.Position{Latitude: 10, Longitude: 20, Altitude: 2_000_000}
	sess := session.New(session.Options{Config: cfg, Mode: timectrl.Accelerated})
	return newApp(screen, sess, nil), screen
}

func key(k tcell.Key) *tcell.EventKey { return tcell.NewEventKey(k, 0, tcell.ModNone) }

func runeKey(r rune) *tcell.EventKey { return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone) }

func row(screen tcell.SimulationScreen, y int) string {
	cells, w, _ := screen.GetContents()
	var b strings.Builder
	for x := 0; x < w; x++ {
		c := cells[y*w+x]
		if len(c.Runes) == 0 {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(c.Runes[0])
	}
	return b.String()
}

func TestArrowKeysDrag(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	if !a.handleEvent(ctx, key(tcell.KeyRight)) || !a.handleEvent(ctx, key(tcell.KeyUp)) {
		t.Fatalf("arrow keys should not quit")
	}
	pos, _ := a.sess.Navigator.Position()
	if pos.Longitude != 21 || pos.Latitude != 11 {
		t.Fatalf("position after right+up = %+v, want 11/21", pos)
	}
}

func TestZoomAndRotateKeys(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()
	a.handleEvent(ctx, runeKey('+'))
	a.handleEvent(ctx, runeKey('w'))
	a.handleEvent(ctx, runeKey('d'))

	cam, err := a.sess.Navigator.CameraState()
	if err != nil {
		t.Fatalf("CameraState: %v", err)
	}
	if cam.EyeAltitude != 1_600_000 || cam.Tilt != rotateStep || cam.Heading != rotateStep {
		t.Fatalf("camera = %+v", cam)
	}
}

func TestPauseAndQuitKeys(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	a.handleEvent(ctx, runeKey('p'))
	if !a.sess.Controller.Running() {
		t.Fatalf("p should resume a paused session")
	}
	a.handleEvent(ctx, runeKey('p'))
	if a.sess.Controller.Running() {
		t.Fatalf("p should pause a running session")
	}

	if a.handleEvent(ctx, runeKey('q')) {
		t.Fatalf("q should quit")
	}
	if a.handleEvent(ctx, key(tcell.KeyEscape)) {
		t.Fatalf("Esc should quit")
	}
}

func TestDrawShowsReadoutAndStatus(t *testing.T) {
	a, screen := newTestApp(t)
	ctx := context.Background()

	a.handleEvent(ctx, key(tcell.KeyRight))
	a.draw()

	top := row(screen, 0)
	if !strings.Contains(top, "10.000°N") || !strings.Contains(top, " 21.000°E") || !strings.Contains(top, "Eye: 2,000 km") {
		t.Fatalf("readout row = %q", top)
	}
	if status := row(screen, 1); !strings.Contains(status, "paused") {
		t.Fatalf("status row = %q", status)
	}
	if help := row(screen, 23); !strings.Contains(help, "q quit") {
		t.Fatalf("help row = %q", help)
	}
	if mid := row(screen, 12); !strings.Contains(mid, "-+-") {
		t.Fatalf("crosshairs missing from %q", mid)
	}
}

func TestFrameListenerDrawsCoastStatus(t *testing.T) {
	a, screen := newTestApp(t)
	ctx := context.Background()
	a.sess.Resume(ctx)

	a.sess.Looper.Tick()
	a.handleEvent(ctx, key(tcell.KeyRight))
	for i := 0; i < 4; i++ {
		a.sess.Looper.Tick()
	}
	a.handleEvent(ctx, key(tcell.KeyRight))
	a.sess.Looper.Tick()

	if status := row(screen, 1); !strings.Contains(status, "coasting") {
		t.Fatalf("status row after a flick = %q", status)
	}
}
