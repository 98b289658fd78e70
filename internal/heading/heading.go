// Package heading derives the yaw-only reference frame of a root orientation
// and re-expresses rotations and vectors relative to it.
package heading

import (
	"math"

	"calmkit/internal/quat"
)

// Angle returns the facing direction of q about the up axis: the canonical
// forward vector rotated by q, projected onto the horizontal plane.
func Angle(q quat.Quat) float64 {
	fwd := quat.Rotate(q, quat.Forward)
	return math.Atan2(fwd.X, fwd.Z)
}

// Remove strips the heading from q, leaving the residual pitch and roll.
func Remove(q quat.Quat) quat.Quat {
	h := quat.FromAxisAngle(quat.Up, -Angle(q))
	return quat.Normalize(quat.Mul(h, q))
}

// ToFrame rotates the horizontal components of v by -angle. Y is unchanged.
func ToFrame(v quat.Vec3, angle float64) quat.Vec3 {
	c := math.Cos(-angle)
	s := math.Sin(-angle)
	return quat.Vec3{
		X: c*v.X + s*v.Z,
		Y: v.Y,
		Z: -s*v.X + c*v.Z,
	}
}

// Yaw extracts the rotation about the up axis directly from the quaternion
// components. It matches Angle only for pure yaw rotations; the state encoder
// depends on this exact formula.
func Yaw(q quat.Quat) float64 {
	return math.Atan2(2*(q.W*q.Y+q.X*q.Z), 1-2*(q.Y*q.Y+q.Z*q.Z))
}

// Inverse returns the inverse of the pure-yaw rotation of q.
func Inverse(q quat.Quat) quat.Quat {
	return quat.Inverse(quat.FromAxisAngle(quat.Up, Yaw(q)))
}
