package common

import (
	"math"
)

// slerpLinearThreshold is the cosine above which Slerp falls back to a normalized lerp,
// since sin(theta) approaches zero and the spherical weights become unstable.
const slerpLinearThreshold = 0.9995

// Lerp linearly interpolates between two scalars.
//
// Parameters:
//   - a: the value at t = 0
//   - b: the value at t = 1
//   - t: the interpolant
//
// Returns:
//   - float32: a + (b-a)*t
func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

// LerpVec3 linearly interpolates two positions component-wise.
//
// Parameters:
//   - a: the position at t = 0
//   - b: the position at t = 1
//   - t: the interpolant
//
// Returns:
//   - [3]float32: the interpolated position
func LerpVec3(a, b [3]float32, t float32) [3]float32 {
	return [3]float32{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
		a[2] + (b[2]-a[2])*t,
	}
}

// QuatIdentity returns the identity rotation in (x, y, z, w) order.
//
// Returns:
//   - [4]float32: the identity quaternion
func QuatIdentity() [4]float32 {
	return [4]float32{0, 0, 0, 1}
}

// QuatDot returns the four-component dot product of two quaternions.
//
// Parameters:
//   - a, b: quaternions in (x, y, z, w) order
//
// Returns:
//   - float32: the dot product
func QuatDot(a, b [4]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
}

// QuatNormalize returns q scaled to unit length. A zero quaternion normalizes to identity.
//
// Parameters:
//   - q: the quaternion to normalize
//
// Returns:
//   - [4]float32: the unit quaternion
func QuatNormalize(q [4]float32) [4]float32 {
	l := float32(math.Sqrt(float64(QuatDot(q, q))))
	if l == 0 {
		return QuatIdentity()
	}
	inv := 1 / l
	return [4]float32{q[0] * inv, q[1] * inv, q[2] * inv, q[3] * inv}
}

// QuatFromAxisAngle builds a unit quaternion rotating angle radians around axis.
// The axis does not need to be normalized.
//
// Parameters:
//   - axis: the rotation axis
//   - angle: the rotation angle in radians
//
// Returns:
//   - [4]float32: the rotation in (x, y, z, w) order
func QuatFromAxisAngle(axis [3]float32, angle float32) [4]float32 {
	l := float32(math.Sqrt(float64(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])))
	if l == 0 {
		return QuatIdentity()
	}
	s := float32(math.Sin(float64(angle)/2)) / l
	c := float32(math.Cos(float64(angle) / 2))
	return [4]float32{axis[0] * s, axis[1] * s, axis[2] * s, c}
}

// Slerp spherically interpolates between two unit quaternions along the shortest arc.
// When b lies in the opposite hemisphere it is negated first, and nearly parallel inputs
// fall back to a normalized lerp.
//
// Parameters:
//   - a: the rotation at t = 0
//   - b: the rotation at t = 1
//   - t: the interpolant in [0, 1]
//
// Returns:
//   - [4]float32: the interpolated unit rotation
func Slerp(a, b [4]float32, t float32) [4]float32 {
	cosTheta := QuatDot(a, b)
	if cosTheta < 0 {
		b = [4]float32{-b[0], -b[1], -b[2], -b[3]}
		cosTheta = -cosTheta
	}

	if cosTheta > slerpLinearThreshold {
		return QuatNormalize([4]float32{
			Lerp(a[0], b[0], t),
			Lerp(a[1], b[1], t),
			Lerp(a[2], b[2], t),
			Lerp(a[3], b[3], t),
		})
	}

	theta := math.Acos(float64(cosTheta))
	sinTheta := math.Sin(theta)
	wa := float32(math.Sin((1-float64(t))*theta) / sinTheta)
	wb := float32(math.Sin(float64(t)*theta) / sinTheta)
	return [4]float32{
		a[0]*wa + b[0]*wb,
		a[1]*wa + b[1]*wb,
		a[2]*wa + b[2]*wb,
		a[3]*wa + b[3]*wb,
	}
}

// BlendTransform interpolates a full local transform: position by lerp and rotation by slerp.
//
// Parameters:
//   - from: the outgoing pose
//   - to: the incoming pose
//   - t: the interpolant in [0, 1]
//
// Returns:
//   - Transform: the blended pose
func BlendTransform(from, to Transform, t float32) Transform {
	return Transform{
		Position: LerpVec3(from.Position, to.Position, t),
		Rotation: Slerp(from.Rotation, to.Rotation, t),
	}
}

// Clamp restricts v to the closed range [lo, hi].
//
// Parameters:
//   - v: the value to clamp
//   - lo: the lower bound
//   - hi: the upper bound
//
// Returns:
//   - float32: v limited to [lo, hi]
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
