package globe

import "math"

const (
	// EarthRadius is the radius of the globe in scene units.
	EarthRadius = 5.0
	// MarkerRadius sits slightly above the surface so markers are not
	// hidden inside the sphere.
	MarkerRadius = 5.2
)

type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Scale(f float64) Vec3 {
	return Vec3{v.X * f, v.Y * f, v.Z * f}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

// Project converts latitude/longitude in degrees to a point on a sphere of
// the given radius.
//
//	phi   = (90 - lat) * pi/180
//	theta = (lng + 180) * pi/180
func Project(lat, lng, radius float64) Vec3 {
	phi := (90 - lat) * (math.Pi / 180)
	theta := (lng + 180) * (math.Pi / 180)

	return Vec3{
		X: -radius * math.Sin(phi) * math.Cos(theta),
		Y: radius * math.Cos(phi),
		Z: radius * math.Sin(phi) * math.Sin(theta),
	}
}

// Unproject is the inverse of Project for any non-zero point. Longitude is
// returned in [-180, 180).
func Unproject(v Vec3) (lat, lng float64) {
	r := v.Length()
	if r == 0 {
		return 0, 0
	}
	y := math.Max(-1, math.Min(1, v.Y/r))
	phi := math.Acos(y)
	theta := math.Atan2(v.Z, -v.X)

	lat = 90 - phi*180/math.Pi
	lng = theta*180/math.Pi - 180
	for lng < -180 {
		lng += 360
	}
	for lng >= 180 {
		lng -= 360
	}
	return lat, lng
}
