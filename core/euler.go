package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	AxisX = mgl32.Vec3{1, 0, 0}
	AxisY = mgl32.Vec3{0, 1, 0}
	AxisZ = mgl32.Vec3{0, 0, 1}
)

// QuatFromEuler converts Euler angles in degrees to a quaternion. Rotation is applied
// about Z first, then X, then Y, so the resulting matrix is Ry * Rx * Rz.
func QuatFromEuler(degrees mgl32.Vec3) mgl32.Quat {
	qy := mgl32.QuatRotate(mgl32.DegToRad(degrees.Y()), AxisY)
	qx := mgl32.QuatRotate(mgl32.DegToRad(degrees.X()), AxisX)
	qz := mgl32.QuatRotate(mgl32.DegToRad(degrees.Z()), AxisZ)
	return qy.Mul(qx).Mul(qz).Normalize()
}

// EulerFromMatrix extracts Euler angles in degrees from a rotation matrix built as
// Ry * Rx * Rz.
func EulerFromMatrix(m mgl32.Mat4) mgl32.Vec3 {
	// Row 1 column 2 holds -sin(x)
	sx := clamp(-m.At(1, 2), -1, 1)
	x := math.Asin(float64(sx))

	var y, z float64
	if math.Abs(float64(sx)) < 0.99999 {
		y = math.Atan2(float64(m.At(0, 2)), float64(m.At(2, 2)))
		z = math.Atan2(float64(m.At(1, 0)), float64(m.At(1, 1)))
	} else {
		// Gimbal lock: fold all of the remaining rotation into Y
		y = math.Atan2(float64(-m.At(2, 0)), float64(m.At(0, 0)))
		z = 0
	}

	return mgl32.Vec3{
		mgl32.RadToDeg(float32(x)),
		mgl32.RadToDeg(float32(y)),
		mgl32.RadToDeg(float32(z)),
	}
}

// EulerFromQuat extracts Euler angles in degrees from a quaternion.
func EulerFromQuat(q mgl32.Quat) mgl32.Vec3 {
	return EulerFromMatrix(q.Normalize().Mat4())
}

// CyclicAngle wraps an angle in degrees into (-360, 360).
func CyclicAngle(deg float32) float32 {
	return float32(math.Mod(float64(deg), 360))
}

// EulerModulo wraps each Euler component into (-360, 360).
func EulerModulo(deg mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{CyclicAngle(deg.X()), CyclicAngle(deg.Y()), CyclicAngle(deg.Z())}
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 saturates v into [0, 1].
func Clamp01(v float32) float32 { return clamp(v, 0, 1) }
