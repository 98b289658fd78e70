// Package quat implements the rotation math shared by the observation
// encoders.
//
// Quaternions are stored as (x, y, z, w) in float64. Array-form quaternions
// from other conventions must enter and leave through FromXYZW/XYZW and
// FromWXYZ/WXYZ; nothing else in the module builds a Quat from a raw array.
package quat

import (
	"math"

	"golang.org/x/exp/constraints"
)

const (
	// normFloor is the norm below which quaternions and axes are treated as degenerate.
	normFloor = 1e-12

	// slerpLinearThreshold switches slerp to normalized lerp.
	slerpLinearThreshold = 0.9995

	// gimbalThreshold selects the two-angle Euler fallback.
	gimbalThreshold = 0.99999
)

// Quat is a rotation quaternion in (x, y, z, w) order.
type Quat struct {
	X, Y, Z, W float64
}

// Vec3 is a 3D vector.
type Vec3 struct {
	X, Y, Z float64
}

// Mat3 is a row-major 3x3 matrix indexed m[row][col].
type Mat3 [3][3]float64

// Up is the world vertical axis.
var Up = Vec3{0, 1, 0}

// Forward is the canonical facing direction.
var Forward = Vec3{0, 0, 1}

// Identity returns the identity rotation.
func Identity() Quat {
	return Quat{W: 1}
}

// FromXYZW converts an array in (x, y, z, w) order.
func FromXYZW(a [4]float64) Quat {
	return Quat{X: a[0], Y: a[1], Z: a[2], W: a[3]}
}

// XYZW returns q as an (x, y, z, w) array.
func (q Quat) XYZW() [4]float64 {
	return [4]float64{q.X, q.Y, q.Z, q.W}
}

// FromWXYZ converts an array in (w, x, y, z) order.
func FromWXYZ(a [4]float64) Quat {
	return Quat{W: a[0], X: a[1], Y: a[2], Z: a[3]}
}

// WXYZ returns q as a (w, x, y, z) array.
func (q Quat) WXYZ() [4]float64 {
	return [4]float64{q.W, q.X, q.Y, q.Z}
}

// Mul returns the Hamilton product q1*q2; q2 is applied first.
func Mul(q1, q2 Quat) Quat {
	return Quat{
		X: q1.W*q2.X + q1.X*q2.W + q1.Y*q2.Z - q1.Z*q2.Y,
		Y: q1.W*q2.Y - q1.X*q2.Z + q1.Y*q2.W + q1.Z*q2.X,
		Z: q1.W*q2.Z + q1.X*q2.Y - q1.Y*q2.X + q1.Z*q2.W,
		W: q1.W*q2.W - q1.X*q2.X - q1.Y*q2.Y - q1.Z*q2.Z,
	}
}

// Norm returns the Euclidean norm of q.
func (q Quat) Norm() float64 {
	return math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

// Dot returns the 4D dot product.
func Dot(a, b Quat) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z + a.W*b.W
}

// Normalize returns q scaled to unit length, or the identity when q is degenerate.
func Normalize(q Quat) Quat {
	n := q.Norm()
	if n < normFloor {
		return Identity()
	}
	return Quat{X: q.X / n, Y: q.Y / n, Z: q.Z / n, W: q.W / n}
}

// Conjugate negates the vector part.
func Conjugate(q Quat) Quat {
	return Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W}
}

// Inverse is the conjugate; valid for unit quaternions only.
func Inverse(q Quat) Quat {
	return Conjugate(q)
}

// FromAxisAngle builds a rotation of angle radians about axis.
// A degenerate axis yields the identity.
func FromAxisAngle(axis Vec3, angle float64) Quat {
	n := axis.Norm()
	if n < normFloor {
		return Identity()
	}
	half := angle * 0.5
	s := math.Sin(half)
	c := math.Cos(half)
	return Quat{
		X: axis.X / n * s,
		Y: axis.Y / n * s,
		Z: axis.Z / n * s,
		W: c,
	}
}

// ToMat3 expands q into its rotation matrix.
func ToMat3(q Quat) Mat3 {
	x2, y2, z2 := q.X*2, q.Y*2, q.Z*2
	xx, xy, xz := q.X*x2, q.X*y2, q.X*z2
	yy, yz, zz := q.Y*y2, q.Y*z2, q.Z*z2
	wx, wy, wz := q.W*x2, q.W*y2, q.W*z2
	return Mat3{
		{1 - (yy + zz), xy - wz, xz + wy},
		{xy + wz, 1 - (xx + zz), yz - wx},
		{xz - wy, yz + wx, 1 - (xx + yy)},
	}
}

// Rotate applies q to v through its rotation matrix.
func Rotate(q Quat, v Vec3) Vec3 {
	return ToMat3(q).MulVec(v)
}

// Slerp interpolates along the shortest arc from q0 to q1.
func Slerp(q0, q1 Quat, t float64) Quat {
	d := Dot(q0, q1)
	if d < 0 {
		q1 = Quat{X: -q1.X, Y: -q1.Y, Z: -q1.Z, W: -q1.W}
		d = -d
	}
	if d > slerpLinearThreshold {
		return Normalize(Quat{
			X: q0.X + t*(q1.X-q0.X),
			Y: q0.Y + t*(q1.Y-q0.Y),
			Z: q0.Z + t*(q1.Z-q0.Z),
			W: q0.W + t*(q1.W-q0.W),
		})
	}
	theta0 := math.Acos(Clamp(d, -1, 1))
	theta := theta0 * t
	sinTheta0 := math.Sin(theta0)
	s0 := math.Cos(theta) - d*math.Sin(theta)/sinTheta0
	s1 := math.Sin(theta) / sinTheta0
	return Quat{
		X: s0*q0.X + s1*q1.X,
		Y: s0*q0.Y + s1*q1.Y,
		Z: s0*q0.Z + s1*q1.Z,
		W: s0*q0.W + s1*q1.W,
	}
}

// MulVec returns m·v.
func (m Mat3) MulVec(v Vec3) Vec3 {
	return Vec3{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// EulerXYZ decomposes a rotation matrix into X, Y, Z angles in radians.
// Near |m[2][0]| = 1 the Z angle is pinned to zero.
func (m Mat3) EulerXYZ() Vec3 {
	sy := m[2][0]
	if math.Abs(sy) < gimbalThreshold {
		return Vec3{
			X: math.Atan2(-m[2][1], m[2][2]),
			Y: math.Asin(sy),
			Z: math.Atan2(-m[1][0], m[0][0]),
		}
	}
	return Vec3{
		X: math.Atan2(m[1][2], m[1][1]),
		Y: math.Copysign(math.Pi/2, sy),
		Z: 0,
	}
}

// TanNorm6D returns the first two columns of m, column 0 first.
func (m Mat3) TanNorm6D() [6]float64 {
	return [6]float64{
		m[0][0], m[1][0], m[2][0],
		m[0][1], m[1][1], m[2][1],
	}
}

// Add returns a+b.
func (a Vec3) Add(b Vec3) Vec3 {
	return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z}
}

// Sub returns a-b.
func (a Vec3) Sub(b Vec3) Vec3 {
	return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z}
}

// Scale returns a*s.
func (a Vec3) Scale(s float64) Vec3 {
	return Vec3{a.X * s, a.Y * s, a.Z * s}
}

// Dot returns a·b.
func (a Vec3) Dot(b Vec3) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

// Norm returns |a|.
func (a Vec3) Norm() float64 {
	return math.Sqrt(a.Dot(a))
}

// Array returns a as [x, y, z].
func (a Vec3) Array() [3]float64 {
	return [3]float64{a.X, a.Y, a.Z}
}

// VecFromArray converts [x, y, z].
func VecFromArray(a [3]float64) Vec3 {
	return Vec3{a[0], a[1], a[2]}
}

// Clamp restricts v to [lo, hi].
func Clamp[T constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
