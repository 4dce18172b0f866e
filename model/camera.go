package model

// CameraState is a display-oriented snapshot of a navigator: the point on the
// globe the view is centred on and the eye above it.
//
// A CameraState is only valid at the instant it was produced. Callers fetch a
// fresh one per event rather than holding on to it across frames.
type CameraState struct {
	LookAt      Position
	Eye         Position // ground point under the eye, Altitude = EyeAltitude
	EyeAltitude float64  // metres
	Heading     float64 // degrees clockwise from north
	Tilt        float64 // degrees from nadir
	Range       float64 // metres from eye to look-at point
}
