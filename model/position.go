package model

import "math"

// Position is a geographic location. Latitude and longitude are in degrees,
// altitude in metres above the ellipsoid.
type Position struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
}

// PositionFromRadians builds a Position from latitude/longitude in radians.
func PositionFromRadians(lat, lon, alt float64) Position {
	return Position{
		Latitude:  lat * 180.0 / math.Pi,
		Longitude: lon * 180.0 / math.Pi,
		Altitude:  alt,
	}
}

// LatitudeRadians returns the latitude in radians.
func (p Position) LatitudeRadians() float64 { return p.Latitude * math.Pi / 180.0 }

// LongitudeRadians returns the longitude in radians.
func (p Position) LongitudeRadians() float64 { return p.Longitude * math.Pi / 180.0 }

// Normalized clamps latitude to [-90, 90] and wraps longitude into
// [-180, 180).
func (p Position) Normalized() Position {
	lat := p.Latitude
	if lat > 90 {
		lat = 90
	} else if lat < -90 {
		lat = -90
	}
	lon := math.Mod(p.Longitude+180, 360)
	if lon < 0 {
		lon += 360
	}
	return Position{Latitude: lat, Longitude: lon - 180, Altitude: p.Altitude}
}
