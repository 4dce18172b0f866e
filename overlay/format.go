// Package overlay turns navigator snapshots into on-screen readouts and
// carries the sinks hosts plug into the controller.
package overlay

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/signalsfoundry/globe-navigator/core"
	"github.com/signalsfoundry/globe-navigator/model"
)

// kmThreshold is the eye altitude above which readouts switch to kilometres.
const kmThreshold = 100000.0

var printer = message.NewPrinter(language.English)

// Emphasis selects how strongly a readout is drawn.
type Emphasis int

const (
	// Bright is used while the navigator is moving.
	Bright Emphasis = iota
	// Dim is used once the navigator has stopped.
	Dim
)

func (e Emphasis) String() string {
	if e == Dim {
		return "dim"
	}
	return "bright"
}

// Readout is the formatted text of the status overlay.
type Readout struct {
	Latitude  string
	Longitude string
	Altitude  string
	Emphasis  Emphasis
	UserInput bool
}

// NewReadout formats an overlay update.
func NewReadout(u core.OverlayUpdate) Readout {
	r := Readout{
		Latitude:  FormatLatitude(u.Camera.LookAt.Latitude),
		Longitude: FormatLongitude(u.Camera.LookAt.Longitude),
		Altitude:  FormatAltitude(u.Camera.EyeAltitude),
		UserInput: u.UserInput,
	}
	if u.Action == model.NavigatorStopped {
		r.Emphasis = Dim
	}
	return r
}

// FormatLatitude renders a latitude in degrees as e.g. " 12.345°N".
func FormatLatitude(lat float64) string {
	hemi := "N"
	if lat < 0 {
		hemi = "S"
		lat = -lat
	}
	return fmt.Sprintf("%6.3f°%s", lat, hemi)
}

// FormatLongitude renders a longitude in degrees as e.g. "  2.000°W".
func FormatLongitude(lon float64) string {
	hemi := "E"
	if lon < 0 {
		hemi = "W"
		lon = -lon
	}
	return fmt.Sprintf("%7.3f°%s", lon, hemi)
}

// FormatAltitude renders an eye altitude in metres, switching to kilometres at
// 100 km, with thousands separators.
func FormatAltitude(alt float64) string {
	if alt < kmThreshold {
		return printer.Sprintf("Eye: %.0f %s", alt, "m")
	}
	return printer.Sprintf("Eye: %.0f %s", alt/1000, "km")
}
