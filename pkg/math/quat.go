package math

import "math"

// slerpLinearThreshold is the sin(half angle) below which Slerp falls back to
// component-wise interpolation.
const slerpLinearThreshold = 1e-3

// Quat represents a quaternion for 3D rotations.
// Components are stored as X, Y, Z, W where W is the scalar part.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns an identity quaternion (no rotation).
func QuatIdentity() Quat {
	return Quat{X: 0, Y: 0, Z: 0, W: 1}
}

// QuatFromAxisAngle creates a quaternion from an axis-angle rotation.
// axis should be normalized, angle is in degrees.
func QuatFromAxisAngle(axis Vec3, deg float32) Quat {
	return QuatFromAxisAngleRad(axis, Radians(deg))
}

// QuatFromAxisAngleRad is QuatFromAxisAngle with the angle in radians.
func QuatFromAxisAngleRad(axis Vec3, rad float32) Quat {
	s := sinf(rad / 2)
	return Quat{
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
		W: cosf(rad / 2),
	}
}

// Length2 returns the squared magnitude.
func (q Quat) Length2() float32 {
	return q.Dot(q)
}

// Normalize corrects floating point drift. A quaternion whose squared
// magnitude is already within QuatNormEpsilon of 1 (or is zero) is returned
// unchanged; anything else is divided by its magnitude.
func (q Quat) Normalize() Quat {
	magSq := q.Length2()
	if magSq == 0 || ApproxEqual(magSq, 1, QuatNormEpsilon) {
		return q
	}
	return q.Scale(1 / sqrtf(magSq))
}

// Dot returns the dot product of two quaternions.
func (q Quat) Dot(other Quat) float32 {
	return q.X*other.X + q.Y*other.Y + q.Z*other.Z + q.W*other.W
}

// Neg returns -q, which encodes the same rotation.
func (q Quat) Neg() Quat {
	return Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: -q.W}
}

// Add returns the component-wise sum.
func (q Quat) Add(other Quat) Quat {
	return Quat{X: q.X + other.X, Y: q.Y + other.Y, Z: q.Z + other.Z, W: q.W + other.W}
}

// Sub returns the component-wise difference.
func (q Quat) Sub(other Quat) Quat {
	return Quat{X: q.X - other.X, Y: q.Y - other.Y, Z: q.Z - other.Z, W: q.W - other.W}
}

// Scale multiplies every component by s.
func (q Quat) Scale(s float32) Quat {
	return Quat{X: q.X * s, Y: q.Y * s, Z: q.Z * s, W: q.W * s}
}

// Slerp performs spherical linear interpolation between two quaternions.
// t should be in range [0, 1].
//
// When the inputs are in opposite hemispheres q is negated so the blend takes
// the short arc. Near-identical inputs fall back to a plain component-wise
// lerp whose result is not renormalised; ToMat4 corrects the drift.
func (q Quat) Slerp(other Quat, t float32) Quat {
	cosHalfTheta := q.Dot(other)
	if cosHalfTheta < 0 {
		q = q.Neg()
		cosHalfTheta = q.Dot(other)
	}

	if absf(cosHalfTheta) >= 1 {
		return q
	}

	sinHalfTheta := sqrtf(1 - cosHalfTheta*cosHalfTheta)
	if absf(sinHalfTheta) < slerpLinearThreshold {
		return q.Scale(1 - t).Add(other.Scale(t))
	}

	halfTheta := float32(math.Acos(float64(cosHalfTheta)))
	a := sinf((1-t)*halfTheta) / sinHalfTheta
	b := sinf(t*halfTheta) / sinHalfTheta

	return q.Scale(a).Add(other.Scale(b))
}

// ToMat4 converts the quaternion to a 4x4 rotation matrix.
func (q Quat) ToMat4() Mat4 {
	q = q.Normalize()

	xx := q.X * q.X
	xy := q.X * q.Y
	xz := q.X * q.Z
	xw := q.X * q.W
	yy := q.Y * q.Y
	yz := q.Y * q.Z
	yw := q.Y * q.W
	zz := q.Z * q.Z
	zw := q.Z * q.W

	return Mat4{
		1 - 2*(yy+zz), 2 * (xy + zw), 2 * (xz - yw), 0,
		2 * (xy - zw), 1 - 2*(xx+zz), 2 * (yz + xw), 0,
		2 * (xz + yw), 2 * (yz - xw), 1 - 2*(xx+yy), 0,
		0, 0, 0, 1,
	}
}

// Lerp performs normalised linear interpolation between two quaternions.
// Use Slerp for rotation interpolation; this is for simple blending.
func (q Quat) Lerp(other Quat, t float32) Quat {
	return q.Scale(1 - t).Add(other.Scale(t)).Normalize()
}

// Mul multiplies two quaternions (applies other first, then q) and corrects drift.
func (q Quat) Mul(other Quat) Quat {
	return Quat{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}.Normalize()
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	return q.ToMat4().TransformDirection(v)
}
