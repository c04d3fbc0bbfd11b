package math

import "math"

// Pi as float32.
const Pi = float32(math.Pi)

// QuatNormEpsilon is the tolerance on |q|^2 - 1 below which Quat.Normalize
// leaves a quaternion untouched.
const QuatNormEpsilon = 1e-4

// Radians converts degrees to radians.
func Radians(deg float32) float32 {
	return deg * (Pi / 180)
}

// Degrees converts radians to degrees.
func Degrees(rad float32) float32 {
	return rad * (180 / Pi)
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// ApproxEqual reports whether |a-b| < eps.
func ApproxEqual(a, b, eps float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < eps
}

func sqrtf(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

func sinf(x float32) float32 {
	return float32(math.Sin(float64(x)))
}

func cosf(x float32) float32 {
	return float32(math.Cos(float64(x)))
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
