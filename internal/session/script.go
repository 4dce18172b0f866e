package session

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/globe-navigator/internal/logging"
)

// Gesture kinds understood by a Script.
const (
	GestureDrag   = "drag"
	GestureZoom   = "zoom"
	GestureRotate = "rotate"
)

// Gesture is one scripted user input, applied on the first frame at or after
// AtMillis.
type Gesture struct {
	AtMillis int64   `yaml:"at_ms"`
	Kind     string  `yaml:"kind"`
	DLat     float64 `yaml:"dlat"`
	DLon     float64 `yaml:"dlon"`
	Factor   float64 `yaml:"factor"`
	DHeading float64 `yaml:"dheading"`
	DTilt    float64 `yaml:"dtilt"`
}

// Script is a replayable list of gestures. The replay ends once frame time
// reaches DurationMillis.
type Script struct {
	DurationMillis int64     `yaml:"duration_ms"`
	Gestures       []Gesture `yaml:"gestures"`
}

// LoadScript reads a YAML script from path.
func LoadScript(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("script: read %s: %w", path, err)
	}
	s, err := ParseScript(data)
	if err != nil {
		return Script{}, fmt.Errorf("script: %s: %w", path, err)
	}
	return s, nil
}

// ParseScript decodes a YAML script, sorts its gestures by time and checks
// their kinds. A missing kind means drag.
func ParseScript(data []byte) (Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("unmarshal: %w", err)
	}
	for i := range s.Gestures {
		g := &s.Gestures[i]
		switch g.Kind {
		case "":
			g.Kind = GestureDrag
		case GestureDrag, GestureRotate:
		case GestureZoom:
			if g.Factor <= 0 {
				return Script{}, fmt.Errorf("gesture %d: zoom factor must be positive", i)
			}
		default:
			return Script{}, fmt.Errorf("gesture %d: unknown kind %q", i, g.Kind)
		}
	}
	sort.SliceStable(s.Gestures, func(i, j int) bool {
		return s.Gestures[i].AtMillis < s.Gestures[j].AtMillis
	})
	if last := len(s.Gestures); last > 0 && s.DurationMillis < s.Gestures[last-1].AtMillis {
		s.DurationMillis = s.Gestures[last-1].AtMillis
	}
	return s, nil
}

// Play replays script on the session's frame loop and calls done once frame
// time reaches the script's duration. It must be called before Run or from
// the loop goroutine.
func (s *Session) Play(script Script, done func()) {
	next := 0
	finished := false
	s.Looper.AddListener(func(frameTimeNanos int64) {
		if finished {
			return
		}
		nowMillis := frameTimeNanos / int64(time.Millisecond)
		for next < len(script.Gestures) && script.Gestures[next].AtMillis <= nowMillis {
			s.apply(script.Gestures[next])
			next++
		}
		if next == len(script.Gestures) && nowMillis >= script.DurationMillis {
			finished = true
			if done != nil {
				done()
			}
		}
	})
}

func (s *Session) apply(g Gesture) {
	var err error
	switch g.Kind {
	case GestureZoom:
		err = s.Navigator.Zoom(g.Factor)
	case GestureRotate:
		err = s.Navigator.Rotate(g.DHeading, g.DTilt)
	default:
		err = s.Navigator.Drag(g.DLat, g.DLon)
	}
	if err != nil {
		s.log.Warn(context.Background(), "scripted gesture failed",
			logging.String("kind", g.Kind),
			logging.Int64("at_ms", g.AtMillis),
			logging.Error(err),
		)
	}
}
