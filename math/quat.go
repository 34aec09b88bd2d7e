// math/quat.go
// Copyright(c) 2024-2025 talon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

///////////////////////////////////////////////////////////////////////////
// quaternion

// Quaternion represents a rotation, stored as (x, y, z, w). The identity
// rotation is (0, 0, 0, 1). Orientations in the simulation are expected to
// be kept unit-length by renormalizing after incremental updates.
type Quaternion [4]float32

func IdentityQuaternion() Quaternion {
	return Quaternion{0, 0, 0, 1}
}

// AxisAngleQuaternion returns the quaternion for a rotation of angle
// radians around the given axis, which is assumed to be normalized.
func AxisAngleQuaternion(axis [3]float32, angle float32) Quaternion {
	s, c := Sin(angle/2), Cos(angle/2)
	return Quaternion{s * axis[0], s * axis[1], s * axis[2], c}
}

// Multiply composes two rotations; the result applies q2 first and then q.
func (q Quaternion) Multiply(q2 Quaternion) Quaternion {
	x1, y1, z1, w1 := q[0], q[1], q[2], q[3]
	x2, y2, z2, w2 := q2[0], q2[1], q2[2], q2[3]
	return Quaternion{
		w1*x2 + x1*w2 + y1*z2 - z1*y2,
		w1*y2 - x1*z2 + y1*w2 + z1*x2,
		w1*z2 + x1*y2 - y1*x2 + z1*w2,
		w1*w2 - x1*x2 - y1*y2 - z1*z2,
	}
}

func (q Quaternion) Length() float32 {
	return Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
}

// Normalize returns the unit-length quaternion with the same rotation;
// a degenerate quaternion normalizes to the identity rather than NaN.
func (q Quaternion) Normalize() Quaternion {
	l := q.Length()
	if l < 1e-8 {
		return IdentityQuaternion()
	}
	return Quaternion{q[0] / l, q[1] / l, q[2] / l, q[3] / l}
}

// Rotate applies the rotation to the given vector.
func (q Quaternion) Rotate(v [3]float32) [3]float32 {
	// v' = v + 2*qv x (qv x v + w*v), via the usual expansion.
	qv := [3]float32{q[0], q[1], q[2]}
	t := Scale3f(Cross3f(qv, v), 2)
	return Add3f(v, Add3f(Scale3f(t, q[3]), Cross3f(qv, t)))
}

// The aircraft body frame: +x right, +y up, +z forward.

func (q Quaternion) Forward() [3]float32 {
	return q.Rotate([3]float32{0, 0, 1})
}

func (q Quaternion) Up() [3]float32 {
	return q.Rotate([3]float32{0, 1, 0})
}

func (q Quaternion) Right() [3]float32 {
	return q.Rotate([3]float32{1, 0, 0})
}
