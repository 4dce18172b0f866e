package globe

import (
	"errors"
	"math"
	"testing"

	"github.com/signalsfoundry/globe-navigator/core"
	"github.com/signalsfoundry/globe-navigator/model"
)

type manualClock struct{ now int64 }

func (c *manualClock) millis() int64 { return c.now }

func newTestNavigator(start model.Position, opts ...Option) (*Navigator, *manualClock, *[]model.NavigatorEvent) {
	clk := &manualClock{}
	nav := NewNavigator(start, append([]Option{WithClock(clk.millis)}, opts...)...)
	var events []model.NavigatorEvent
	nav.AddListener(func(ev model.NavigatorEvent) { events = append(events, ev) })
	return nav, clk, &events
}

func TestNavigator_DragEmitsUserMove(t *testing.T) {
	nav, clk, events := newTestNavigator(model.Position{Altitude: 1000})
	clk.now = 42

	if err := nav.Drag(1, 2); err != nil {
		t.Fatalf("Drag: %v", err)
	}
	pos, _ := nav.Position()
	if pos.Latitude != 1 || pos.Longitude != 2 || pos.Altitude != 1000 {
		t.Fatalf("position after drag = %+v", pos)
	}
	if len(*events) != 1 {
		t.Fatalf("events = %d, want 1", len(*events))
	}
	ev := (*events)[0]
	if ev.Action != model.NavigatorMoved || !ev.UserInput || ev.TimeMillis != 42 || ev.Source == nil {
		t.Fatalf("unexpected event %+v", ev)
	}
	if !nav.Moving() {
		t.Fatalf("navigator should be moving after a drag")
	}
}

func TestNavigator_DragWrapsLongitude(t *testing.T) {
	nav, _, _ := newTestNavigator(model.Position{Longitude: 179, Altitude: 1})
	_ = nav.Drag(100, 2)
	pos, _ := nav.Position()
	if pos.Latitude != 90 {
		t.Fatalf("latitude should clamp to 90, got %v", pos.Latitude)
	}
	if math.Abs(pos.Longitude-(-179)) > 1e-9 {
		t.Fatalf("longitude should wrap to -179, got %v", pos.Longitude)
	}
}

func TestNavigator_SetPositionIsProgrammatic(t *testing.T) {
	nav, _, events := newTestNavigator(model.Position{Altitude: 5000})
	if err := nav.SetPosition(model.Position{Latitude: 3, Longitude: 4, Altitude: 1}); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	pos, _ := nav.Position()
	if pos.Altitude != 5000 {
		t.Fatalf("SetPosition should keep the eye altitude, got %v", pos.Altitude)
	}
	if (*events)[0].UserInput {
		t.Fatalf("programmatic moves must not be flagged as user input")
	}
}

func TestNavigator_ZoomAndRotate(t *testing.T) {
	nav, _, events := newTestNavigator(model.Position{Altitude: 1000})
	if err := nav.Zoom(0); err == nil {
		t.Fatalf("Zoom(0) should fail")
	}
	if err := nav.Zoom(2); err != nil {
		t.Fatalf("Zoom: %v", err)
	}
	if err := nav.Rotate(-90, 100); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	cam, err := nav.CameraState()
	if err != nil {
		t.Fatalf("CameraState: %v", err)
	}
	if cam.EyeAltitude != 2000 || cam.Heading != 270 || cam.Tilt != MaxTilt {
		t.Fatalf("camera after zoom/rotate = %+v", cam)
	}
	if len(*events) != 2 {
		t.Fatalf("events = %d, want 2", len(*events))
	}
}

func TestNavigator_SettleAfterStopDelay(t *testing.T) {
	nav, clk, events := newTestNavigator(model.Position{Altitude: 1}, WithStopDelay(100))
	if nav.Settle() {
		t.Fatalf("Settle before any move should not emit")
	}

	clk.now = 1000
	_ = nav.Drag(0, 1)
	clk.now = 1099
	if nav.Settle() {
		t.Fatalf("Settle inside the stop delay emitted")
	}
	clk.now = 1100
	if !nav.Settle() {
		t.Fatalf("Settle after the stop delay should emit")
	}
	if nav.Settle() {
		t.Fatalf("Settle emitted twice for one stop")
	}

	last := (*events)[len(*events)-1]
	if last.Action != model.NavigatorStopped || last.UserInput || last.TimeMillis != 1100 {
		t.Fatalf("unexpected stop event %+v", last)
	}
}

func TestNavigator_CameraStateLookAt(t *testing.T) {
	start := model.Position{Latitude: 10, Longitude: 20, Altitude: 100_000}
	nav, _, _ := newTestNavigator(start)

	cam, _ := nav.CameraState()
	if cam.LookAt.Latitude != 10 || cam.LookAt.Longitude != 20 || cam.LookAt.Altitude != 0 {
		t.Fatalf("untilted look-at = %+v", cam.LookAt)
	}
	if cam.Eye != start || cam.Range != 100_000 {
		t.Fatalf("untilted eye = %+v range = %v", cam.Eye, cam.Range)
	}

	tilted, _, _ := newTestNavigator(start, WithOrientation(0, 45))
	cam, _ = tilted.CameraState()
	if cam.LookAt.Latitude != 10 || cam.LookAt.Longitude != 20 {
		t.Fatalf("tilting must not move the look-at point, got %+v", cam.LookAt)
	}
	wantDist := 100_000 / core.EarthRadiusMeters
	if d := core.Distance(cam.LookAt, cam.Eye); math.Abs(d-wantDist) > 1e-9 {
		t.Fatalf("eye distance = %v, want %v", d, wantDist)
	}
	if cam.Eye.Latitude >= 10 {
		t.Fatalf("heading north should put the eye south of the look-at, got %+v", cam.Eye)
	}
	if cam.Eye.Altitude != 100_000 {
		t.Fatalf("eye altitude = %v", cam.Eye.Altitude)
	}
	if want := 100_000 / math.Cos(math.Pi/4); math.Abs(cam.Range-want) > 1e-6 {
		t.Fatalf("range = %v, want %v", cam.Range, want)
	}
}

func TestNavigator_RotateOrbitsLookAt(t *testing.T) {
	start := model.Position{Latitude: 0, Longitude: 0, Altitude: 1_000_000}
	nav, _, _ := newTestNavigator(start, WithOrientation(0, 60))

	before, _ := nav.CameraState()
	if err := nav.Rotate(90, 0); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	after, _ := nav.CameraState()

	if after.LookAt != before.LookAt {
		t.Fatalf("look-at moved from %+v to %+v", before.LookAt, after.LookAt)
	}
	if d := core.Distance(before.Eye, after.Eye); d < 1e-3 {
		t.Fatalf("eye should orbit the look-at point, moved only %v rad", d)
	}
	if math.Abs(core.Distance(after.LookAt, after.Eye)-core.Distance(before.LookAt, before.Eye)) > 1e-9 {
		t.Fatalf("orbit changed the eye distance")
	}
	// Heading east puts the eye to the west.
	if after.Eye.Longitude >= 0 {
		t.Fatalf("eye after heading 90 = %+v, want west of the look-at", after.Eye)
	}
}

func TestNavigator_Closed(t *testing.T) {
	nav, _, events := newTestNavigator(model.Position{Altitude: 1})
	nav.Close()

	if _, err := nav.Position(); !errors.Is(err, ErrNavigatorClosed) {
		t.Fatalf("Position err = %v", err)
	}
	if _, err := nav.CameraState(); !errors.Is(err, ErrNavigatorClosed) {
		t.Fatalf("CameraState err = %v", err)
	}
	if err := nav.Drag(1, 1); !errors.Is(err, ErrNavigatorClosed) {
		t.Fatalf("Drag err = %v", err)
	}
	if len(*events) != 0 {
		t.Fatalf("closed navigator emitted events")
	}
}

func TestNavigator_ListenerMayReenter(t *testing.T) {
	nav, _, _ := newTestNavigator(model.Position{Altitude: 1})
	reentered := false
	nav.AddListener(func(ev model.NavigatorEvent) {
		if ev.UserInput {
			if _, err := ev.Source.CameraState(); err != nil {
				t.Errorf("CameraState from listener: %v", err)
			}
			reentered = nav.SetPosition(model.Position{Latitude: 5}) == nil
		}
	})
	if err := nav.Drag(1, 0); err != nil {
		t.Fatalf("Drag: %v", err)
	}
	if !reentered {
		t.Fatalf("listener could not move the navigator")
	}
}
