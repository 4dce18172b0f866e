package overlay

import (
	"context"
	"fmt"
	"io"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/globe-navigator/core"
	"github.com/signalsfoundry/globe-navigator/internal/logging"
)

// Latest keeps the most recent readout for a host to draw on its next frame.
type Latest struct {
	mu      sync.Mutex
	readout Readout
	update  core.OverlayUpdate
	ok      bool
}

// UpdateOverlay implements core.OverlaySink.
func (l *Latest) UpdateOverlay(u core.OverlayUpdate) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.readout = NewReadout(u)
	l.update = u
	l.ok = true
}

// Readout returns the last readout and whether one has been received.
func (l *Latest) Readout() (Readout, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readout, l.ok
}

// Update returns the raw update behind the last readout.
func (l *Latest) Update() (core.OverlayUpdate, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.update, l.ok
}

// LogSink logs every readout at debug level.
type LogSink struct {
	Log logging.Logger
}

// UpdateOverlay implements core.OverlaySink.
func (s LogSink) UpdateOverlay(u core.OverlayUpdate) {
	if s.Log == nil {
		return
	}
	r := NewReadout(u)
	s.Log.Debug(context.Background(), "overlay",
		logging.String("action", u.Action.String()),
		logging.String("lat", r.Latitude),
		logging.String("lon", r.Longitude),
		logging.String("alt", r.Altitude),
		logging.Bool("user_input", u.UserInput),
	)
}

// JSONLinesSink writes each update as one JSON object per line. The objects
// are protobuf Struct values so downstream tooling can read them with any
// protobuf runtime.
type JSONLinesSink struct {
	mu  sync.Mutex
	w   io.Writer
	err error
}

// NewJSONLinesSink writes to w.
func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	return &JSONLinesSink{w: w}
}

// UpdateOverlay implements core.OverlaySink. After the first write error the
// sink stops writing; Err reports it.
func (s *JSONLinesSink) UpdateOverlay(u core.OverlayUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}

	msg, err := structpb.NewStruct(updateFields(u))
	if err != nil {
		s.err = fmt.Errorf("encode overlay update: %w", err)
		return
	}
	b, err := protojson.MarshalOptions{UseProtoNames: true}.Marshal(msg)
	if err != nil {
		s.err = fmt.Errorf("marshal overlay update: %w", err)
		return
	}
	b = append(b, '\n')
	if _, err := s.w.Write(b); err != nil {
		s.err = fmt.Errorf("write overlay update: %w", err)
	}
}

// Err returns the first error encountered.
func (s *JSONLinesSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func updateFields(u core.OverlayUpdate) map[string]any {
	r := NewReadout(u)
	return map[string]any{
		"action":       u.Action.String(),
		"user_input":   u.UserInput,
		"latitude":     u.Camera.LookAt.Latitude,
		"longitude":    u.Camera.LookAt.Longitude,
		"eye_altitude": u.Camera.EyeAltitude,
		"heading":      u.Camera.Heading,
		"tilt":         u.Camera.Tilt,
		"readout": map[string]any{
			"latitude":  r.Latitude,
			"longitude": r.Longitude,
			"altitude":  r.Altitude,
			"emphasis":  r.Emphasis.String(),
		},
	}
}
