package math

import (
	"math"

	"go.uber.org/zap"
)

// Mat4 is a 4x4 matrix in column-major order (OpenGL compatible).
// Layout: [m0 m4 m8  m12]
//
//	[m1 m5 m9  m13]
//	[m2 m6 m10 m14]
//	[m3 m7 m11 m15]
type Mat4 [16]float32

// alignEpsilon decides when two unit vectors count as opposite in RotationAlign.
const alignEpsilon = 1e-6

// Identity returns an identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Zero returns the zero matrix.
func Zero() Mat4 {
	return Mat4{}
}

// Perspective returns a perspective projection matrix.
// fovY is the vertical field of view in degrees, aspect is width/height.
func Perspective(fovY, aspect, near, far float32) Mat4 {
	f := float32(1.0 / math.Tan(float64(Radians(fovY))/2.0))
	nf := 1.0 / (near - far)

	return Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, (far + near) * nf, -1,
		0, 0, 2 * far * near * nf, 0,
	}
}

// Orthographic returns an orthographic projection matrix.
// left, right, bottom, top define the view volume boundaries.
// near and far define the depth range.
func Orthographic(left, right, bottom, top, near, far float32) Mat4 {
	rl := 1.0 / (right - left)
	tb := 1.0 / (top - bottom)
	fn := 1.0 / (far - near)

	return Mat4{
		2 * rl, 0, 0, 0,
		0, 2 * tb, 0, 0,
		0, 0, -2 * fn, 0,
		-(right + left) * rl, -(top + bottom) * tb, -(far + near) * fn, 1,
	}
}

// LookAt returns a view matrix looking from eye towards target.
// up must not be parallel to target - eye.
func LookAt(eye, target, up Vec3) Mat4 {
	f := target.Sub(eye).Normalize()
	s := f.Cross(up).Normalize()
	u := s.Cross(f)

	return Mat4{
		s.X, u.X, -f.X, 0,
		s.Y, u.Y, -f.Y, 0,
		s.Z, u.Z, -f.Z, 0,
		-s.Dot(eye), -u.Dot(eye), f.Dot(eye), 1,
	}
}

// Translation returns a translation matrix.
func Translation(v Vec3) Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		v.X, v.Y, v.Z, 1,
	}
}

// Translate returns m with v added to its translation column.
func (m Mat4) Translate(v Vec3) Mat4 {
	m[12] += v.X
	m[13] += v.Y
	m[14] += v.Z
	return m
}

// Scaling returns a scale matrix.
func Scaling(v Vec3) Mat4 {
	return Mat4{
		v.X, 0, 0, 0,
		0, v.Y, 0, 0,
		0, 0, v.Z, 0,
		0, 0, 0, 1,
	}
}

// Scale returns Scaling(v) * m, so the scale applies after m.
func (m Mat4) Scale(v Vec3) Mat4 {
	return Scaling(v).Mul(m)
}

// ScaleUniform scales m by s on every axis.
func (m Mat4) ScaleUniform(s float32) Mat4 {
	return m.Scale(Vec3{s, s, s})
}

// RotationX returns a rotation matrix around the X axis.
func RotationX(deg float32) Mat4 {
	c := cosf(Radians(deg))
	s := sinf(Radians(deg))

	return Mat4{
		1, 0, 0, 0,
		0, c, s, 0,
		0, -s, c, 0,
		0, 0, 0, 1,
	}
}

// RotationY returns a rotation matrix around the Y axis.
func RotationY(deg float32) Mat4 {
	c := cosf(Radians(deg))
	s := sinf(Radians(deg))

	return Mat4{
		c, 0, -s, 0,
		0, 1, 0, 0,
		s, 0, c, 0,
		0, 0, 0, 1,
	}
}

// RotationZ returns a rotation matrix around the Z axis.
func RotationZ(deg float32) Mat4 {
	c := cosf(Radians(deg))
	s := sinf(Radians(deg))

	return Mat4{
		c, s, 0, 0,
		-s, c, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// RotateX returns m rotated about the X axis (RotationX(deg) * m).
func (m Mat4) RotateX(deg float32) Mat4 {
	return RotationX(deg).Mul(m)
}

// RotateY returns m rotated about the Y axis (RotationY(deg) * m).
func (m Mat4) RotateY(deg float32) Mat4 {
	return RotationY(deg).Mul(m)
}

// RotateZ returns m rotated about the Z axis (RotationZ(deg) * m).
func (m Mat4) RotateZ(deg float32) Mat4 {
	return RotationZ(deg).Mul(m)
}

// RotationAxis creates a rotation matrix around an arbitrary axis.
// axis must be normalized.
func RotationAxis(axis Vec3, deg float32) Mat4 {
	c := cosf(Radians(deg))
	s := sinf(Radians(deg))
	t := 1 - c

	x, y, z := axis.X, axis.Y, axis.Z

	return Mat4{
		t*x*x + c, t*x*y + s*z, t*x*z - s*y, 0,
		t*x*y - s*z, t*y*y + c, t*y*z + s*x, 0,
		t*x*z + s*y, t*y*z - s*x, t*z*z + c, 0,
		0, 0, 0, 1,
	}
}

// RotationAlign returns the rotation that maps unit vector u1 onto unit vector u2.
// Opposite vectors get a half turn about an axis perpendicular to u1.
func RotationAlign(u1, u2 Vec3) Mat4 {
	cosA := u1.Dot(u2)
	if ApproxEqual(cosA, -1, alignEpsilon) {
		return RotationAxis(perpendicular(u1), 180)
	}

	axis := u1.Cross(u2)
	k := 1 / (1 + cosA)

	return Mat4{
		axis.X*axis.X*k + cosA, axis.X*axis.Y*k + axis.Z, axis.X*axis.Z*k - axis.Y, 0,
		axis.Y*axis.X*k - axis.Z, axis.Y*axis.Y*k + cosA, axis.Y*axis.Z*k + axis.X, 0,
		axis.Z*axis.X*k + axis.Y, axis.Z*axis.Y*k - axis.X, axis.Z*axis.Z*k + cosA, 0,
		0, 0, 0, 1,
	}
}

// perpendicular returns a unit vector orthogonal to u, built from the basis
// axis u is least aligned with.
func perpendicular(u Vec3) Vec3 {
	basis := Vec3{X: 1}
	best := absf(u.X)
	if ay := absf(u.Y); ay < best {
		basis, best = Vec3{Y: 1}, ay
	}
	if az := absf(u.Z); az < best {
		basis = Vec3{Z: 1}
	}
	return u.Cross(basis).Normalize()
}

// Mul multiplies this matrix by another (m * other).
func (m Mat4) Mul(other Mat4) Mat4 {
	var result Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			result[col*4+row] =
				m[0*4+row]*other[col*4+0] +
					m[1*4+row]*other[col*4+1] +
					m[2*4+row]*other[col*4+2] +
					m[3*4+row]*other[col*4+3]
		}
	}
	return result
}

// MulVec4 multiplies the matrix by a Vec4.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	return Vec4{
		m[0]*v.X + m[4]*v.Y + m[8]*v.Z + m[12]*v.W,
		m[1]*v.X + m[5]*v.Y + m[9]*v.Z + m[13]*v.W,
		m[2]*v.X + m[6]*v.Y + m[10]*v.Z + m[14]*v.W,
		m[3]*v.X + m[7]*v.Y + m[11]*v.Z + m[15]*v.W,
	}
}

// TransformPoint transforms a 3D point by this matrix (assumes w=1).
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	r := m.MulVec4(p.Vec4(1))
	if r.W != 0 && r.W != 1 {
		return Vec3{r.X / r.W, r.Y / r.W, r.Z / r.W}
	}
	return r.XYZ()
}

// TransformDirection transforms a direction vector (ignores translation).
func (m Mat4) TransformDirection(d Vec3) Vec3 {
	return Vec3{
		m[0]*d.X + m[4]*d.Y + m[8]*d.Z,
		m[1]*d.X + m[5]*d.Y + m[9]*d.Z,
		m[2]*d.X + m[6]*d.Y + m[10]*d.Z,
	}
}

// Col returns column i.
func (m Mat4) Col(i int) Vec4 {
	return Vec4{m[i*4], m[i*4+1], m[i*4+2], m[i*4+3]}
}

// Mat3 returns the upper-left 3x3 portion of the matrix.
func (m Mat4) Mat3() Mat3 {
	return Mat3{
		m[0], m[1], m[2],
		m[4], m[5], m[6],
		m[8], m[9], m[10],
	}
}

// FromMat3 creates a Mat4 from a 3x3 rotation/scale matrix.
func FromMat3(m3 Mat3) Mat4 {
	return Mat4{
		m3[0], m3[1], m3[2], 0,
		m3[3], m3[4], m3[5], 0,
		m3[6], m3[7], m3[8], 0,
		0, 0, 0, 1,
	}
}

// Ptr returns a pointer to the first element (for OpenGL uniform calls).
func (m *Mat4) Ptr() *float32 {
	return &m[0]
}

// ApproxEqual reports whether every element differs by less than eps.
func (m Mat4) ApproxEqual(other Mat4, eps float32) bool {
	for i := range m {
		if !ApproxEqual(m[i], other[i], eps) {
			return false
		}
	}
	return true
}

// Transpose returns the matrix flipped on its main diagonal.
func (m Mat4) Transpose() Mat4 {
	return Mat4{
		m[0], m[4], m[8], m[12],
		m[1], m[5], m[9], m[13],
		m[2], m[6], m[10], m[14],
		m[3], m[7], m[11], m[15],
	}
}

// Determinant returns the determinant of the matrix.
func (m Mat4) Determinant() float32 {
	a := m.adjugate()
	return m[0]*a[0] + m[4]*a[1] + m[8]*a[2] + m[12]*a[3]
}

// Inverse returns the inverse of the matrix.
// A singular matrix is returned unchanged and a warning is logged.
func (m Mat4) Inverse() Mat4 {
	inv, ok := m.InverseOK()
	if !ok {
		zap.L().Warn("matrix has zero determinant, cannot invert")
		return m
	}
	return inv
}

// InverseOK returns the inverse and true, or m and false if m is singular.
func (m Mat4) InverseOK() (Mat4, bool) {
	a := m.adjugate()
	det := m[0]*a[0] + m[4]*a[1] + m[8]*a[2] + m[12]*a[3]
	if det == 0 {
		return m, false
	}

	invDet := 1.0 / det
	for i := range a {
		a[i] *= invDet
	}
	return a, true
}

// adjugate returns the transposed cofactor matrix.
func (m Mat4) adjugate() Mat4 {
	var a Mat4
	a[0] = m[5]*m[10]*m[15] - m[5]*m[11]*m[14] - m[9]*m[6]*m[15] + m[9]*m[7]*m[14] + m[13]*m[6]*m[11] - m[13]*m[7]*m[10]
	a[1] = -m[1]*m[10]*m[15] + m[1]*m[11]*m[14] + m[9]*m[2]*m[15] - m[9]*m[3]*m[14] - m[13]*m[2]*m[11] + m[13]*m[3]*m[10]
	a[2] = m[1]*m[6]*m[15] - m[1]*m[7]*m[14] - m[5]*m[2]*m[15] + m[5]*m[3]*m[14] + m[13]*m[2]*m[7] - m[13]*m[3]*m[6]
	a[3] = -m[1]*m[6]*m[11] + m[1]*m[7]*m[10] + m[5]*m[2]*m[11] - m[5]*m[3]*m[10] - m[9]*m[2]*m[7] + m[9]*m[3]*m[6]

	a[4] = -m[4]*m[10]*m[15] + m[4]*m[11]*m[14] + m[8]*m[6]*m[15] - m[8]*m[7]*m[14] - m[12]*m[6]*m[11] + m[12]*m[7]*m[10]
	a[5] = m[0]*m[10]*m[15] - m[0]*m[11]*m[14] - m[8]*m[2]*m[15] + m[8]*m[3]*m[14] + m[12]*m[2]*m[11] - m[12]*m[3]*m[10]
	a[6] = -m[0]*m[6]*m[15] + m[0]*m[7]*m[14] + m[4]*m[2]*m[15] - m[4]*m[3]*m[14] - m[12]*m[2]*m[7] + m[12]*m[3]*m[6]
	a[7] = m[0]*m[6]*m[11] - m[0]*m[7]*m[10] - m[4]*m[2]*m[11] + m[4]*m[3]*m[10] + m[8]*m[2]*m[7] - m[8]*m[3]*m[6]

	a[8] = m[4]*m[9]*m[15] - m[4]*m[11]*m[13] - m[8]*m[5]*m[15] + m[8]*m[7]*m[13] + m[12]*m[5]*m[11] - m[12]*m[7]*m[9]
	a[9] = -m[0]*m[9]*m[15] + m[0]*m[11]*m[13] + m[8]*m[1]*m[15] - m[8]*m[3]*m[13] - m[12]*m[1]*m[11] + m[12]*m[3]*m[9]
	a[10] = m[0]*m[5]*m[15] - m[0]*m[7]*m[13] - m[4]*m[1]*m[15] + m[4]*m[3]*m[13] + m[12]*m[1]*m[7] - m[12]*m[3]*m[5]
	a[11] = -m[0]*m[5]*m[11] + m[0]*m[7]*m[9] + m[4]*m[1]*m[11] - m[4]*m[3]*m[9] - m[8]*m[1]*m[7] + m[8]*m[3]*m[5]

	a[12] = -m[4]*m[9]*m[14] + m[4]*m[10]*m[13] + m[8]*m[5]*m[14] - m[8]*m[6]*m[13] - m[12]*m[5]*m[10] + m[12]*m[6]*m[9]
	a[13] = m[0]*m[9]*m[14] - m[0]*m[10]*m[13] - m[8]*m[1]*m[14] + m[8]*m[2]*m[13] + m[12]*m[1]*m[10] - m[12]*m[2]*m[9]
	a[14] = -m[0]*m[5]*m[14] + m[0]*m[6]*m[13] + m[4]*m[1]*m[14] - m[4]*m[2]*m[13] - m[12]*m[1]*m[6] + m[12]*m[2]*m[5]
	a[15] = m[0]*m[5]*m[10] - m[0]*m[6]*m[9] - m[4]*m[1]*m[10] + m[4]*m[2]*m[9] + m[8]*m[1]*m[6] - m[8]*m[2]*m[5]
	return a
}
