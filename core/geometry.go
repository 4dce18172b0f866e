package core

import (
	"math"

	"github.com/signalsfoundry/globe-navigator/model"
)

// EarthRadiusMeters is the mean Earth radius used to turn angular distances
// into ground distances for readouts and metrics.
const EarthRadiusMeters = 6371000.0

// coincidentRadians is the separation below which two positions count as the
// same point (a few micrometres on the ground). It absorbs the rounding left
// by different labels for one point, such as ±180° or any longitude at a pole.
const coincidentRadians = 1e-12

// Distance returns the great-circle angular distance between a and b on a
// unit sphere, in radians.
func Distance(a, b model.Position) float64 {
	lat1, lon1 := a.LatitudeRadians(), a.LongitudeRadians()
	lat2, lon2 := b.LatitudeRadians(), b.LongitudeRadians()
	dlat, dlon := lat2-lat1, lon2-lon1

	s := sqr(math.Sin(dlat/2)) + math.Cos(lat1)*math.Cos(lat2)*sqr(math.Sin(dlon/2))
	if s > 1 {
		s = 1
	}
	return 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
}

// Azimuth returns the initial great-circle bearing from a towards b in
// radians, in the range (-π, π]. 0 is north and π/2 is east. Coincident
// positions have no defined bearing and return 0.
func Azimuth(a, b model.Position) float64 {
	if Distance(a, b) < coincidentRadians {
		return 0
	}
	lat1, lon1 := a.LatitudeRadians(), a.LongitudeRadians()
	lat2, lon2 := b.LatitudeRadians(), b.LongitudeRadians()
	dlon := lon2 - lon1

	y := math.Sin(dlon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dlon)
	return wrapAngle(math.Atan2(y, x))
}

// Destination returns the position reached by travelling distance radians
// from origin along the initial bearing azimuth (radians). Altitude is carried
// over from origin.
func Destination(origin model.Position, azimuth, distance float64) model.Position {
	lat1, lon1 := origin.LatitudeRadians(), origin.LongitudeRadians()
	sinLat1, cosLat1 := math.Sin(lat1), math.Cos(lat1)
	sinD, cosD := math.Sin(distance), math.Cos(distance)

	sinLat2 := sinLat1*cosD + cosLat1*sinD*math.Cos(azimuth)
	if sinLat2 > 1 {
		sinLat2 = 1
	} else if sinLat2 < -1 {
		sinLat2 = -1
	}
	lat2 := math.Asin(sinLat2)
	lon2 := lon1 + math.Atan2(math.Sin(azimuth)*sinD*cosLat1, cosD-sinLat1*sinLat2)

	return model.PositionFromRadians(lat2, lon2, origin.Altitude).Normalized()
}

// ArcLengthMeters converts an angular distance to metres along the surface.
func ArcLengthMeters(radians float64) float64 {
	return radians * EarthRadiusMeters
}

// wrapAngle folds an angle into (-π, π].
func wrapAngle(rad float64) float64 {
	for rad <= -math.Pi {
		rad += 2 * math.Pi
	}
	for rad > math.Pi {
		rad -= 2 * math.Pi
	}
	return rad
}

func sqr(v float64) float64 { return v * v }
