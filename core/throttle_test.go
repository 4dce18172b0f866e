package core

import (
	"testing"

	"github.com/signalsfoundry/globe-navigator/model"
)

func TestEventThrottle_Sequence(t *testing.T) {
	th := NewEventThrottle(50)

	steps := []struct {
		action model.NavigatorAction
		at     int64
		want   bool
	}{
		{model.NavigatorMoved, 0, true},
		{model.NavigatorMoved, 10, false},
		{model.NavigatorMoved, 40, false},
		{model.NavigatorMoved, 50, false},
		{model.NavigatorMoved, 60, true},
		{model.NavigatorStopped, 65, true},
		{model.NavigatorMoved, 100, false},
		{model.NavigatorMoved, 116, true},
	}
	for i, s := range steps {
		if got := th.Accept(s.action, s.at); got != s.want {
			t.Fatalf("step %d (%v at %d): Accept = %v, want %v", i, s.action, s.at, got, s.want)
		}
	}
	if th.LastAccepted() != 116 {
		t.Fatalf("LastAccepted = %d, want 116", th.LastAccepted())
	}
}

func TestEventThrottle_StoppedAlwaysAccepted(t *testing.T) {
	th := NewEventThrottle(50)
	th.Accept(model.NavigatorMoved, 0)
	if !th.Accept(model.NavigatorStopped, 5) {
		t.Fatalf("stopped event inside the window should be accepted")
	}
	if th.LastAccepted() != 5 {
		t.Fatalf("accepted stop should update the window start, got %d", th.LastAccepted())
	}
}

func TestEventThrottle_Elapsed(t *testing.T) {
	th := NewEventThrottle(0)
	if th.ThresholdMillis != DefaultThrottleMillis {
		t.Fatalf("non-positive threshold should default, got %d", th.ThresholdMillis)
	}
	if got := th.Elapsed(500); got != 0 {
		t.Fatalf("Elapsed before first accept = %d, want 0", got)
	}
	th.Accept(model.NavigatorMoved, 500)
	th.Accept(model.NavigatorMoved, 520) // rejected, no state change
	if got := th.Elapsed(580); got != 80 {
		t.Fatalf("Elapsed = %d, want 80", got)
	}
}
