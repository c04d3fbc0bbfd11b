// Package lighting provides lighting utilities for 3D rendering.
package lighting

import (
	gomath "math"

	"github.com/Faultbox/kmx-platformer/pkg/math"
)

// Sun is a directional light.
type Sun struct {
	Azimuth   float32 // degrees around +Y, 0 = +Z
	Elevation float32 // degrees above the horizon
	Ambient   float32 // light level of faces turned away, in [0, 1]
}

// DefaultSun returns a high afternoon sun.
func DefaultSun() Sun {
	return Sun{Azimuth: 45, Elevation: 60, Ambient: 0.3}
}

// Direction returns the unit vector pointing towards the sun.
func (s Sun) Direction() math.Vec3 {
	return SunDirection(s.Azimuth, s.Elevation)
}

// SunDirection converts azimuth/elevation angles in degrees to a unit
// direction vector pointing towards the sun.
func SunDirection(azimuth, elevation float32) math.Vec3 {
	az := float64(math.Radians(azimuth))
	el := float64(math.Radians(elevation))

	// Spherical to Cartesian, elevation measured from the XZ plane.
	return math.Vec3{
		X: float32(gomath.Cos(el) * gomath.Sin(az)),
		Y: float32(gomath.Sin(el)),
		Z: float32(gomath.Cos(el) * gomath.Cos(az)),
	}
}
