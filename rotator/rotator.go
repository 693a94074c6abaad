// Package rotator holds an orientation in whichever representation it was last set with.
//
// A Rotator is one of Identity, Euler, Quaternion, AxisAngle or Directional. Reading any
// representation converts from the stored one. Setting a rotational property replaces the
// stored representation with the smallest kind that can hold it, carrying the remaining
// orientation over unchanged. The zero value is the identity rotation.
package rotator

import (
	"fmt"
	"math"

	"github.com/gekko3d/meshfx/core"
	"github.com/go-gl/mathgl/mgl32"
)

type Kind uint8

const (
	Identity Kind = iota
	Euler
	Quaternion
	AxisAngle
	Directional
)

func (k Kind) String() string {
	switch k {
	case Identity:
		return "identity"
	case Euler:
		return "euler"
	case Quaternion:
		return "quaternion"
	case AxisAngle:
		return "axis-angle"
	case Directional:
		return "directional"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

const parallelEpsilon = 1e-6

type Rotator struct {
	kind Kind

	euler   mgl32.Vec3 // degrees
	quat    mgl32.Quat
	axis    mgl32.Vec3
	angle   float32 // degrees
	forward mgl32.Vec3

	referenceUp    mgl32.Vec3
	reverseForward bool
}

func New() Rotator { return Rotator{} }

func FromEuler(degrees mgl32.Vec3) Rotator {
	var r Rotator
	r.SetRotation(degrees)
	return r
}

func FromQuaternion(q mgl32.Quat) Rotator {
	var r Rotator
	r.SetQuaternion(q)
	return r
}

func FromAxisAngle(axis mgl32.Vec3, degrees float32) Rotator {
	var r Rotator
	r.setAxisAngle(axis, degrees)
	return r
}

// FromDirection points local +Z at forward, keeping local +Y as close to up as possible.
func FromDirection(forward, up mgl32.Vec3) Rotator {
	var r Rotator
	r.SetReferenceUpDirection(up)
	r.SetForwardDirection(forward)
	return r
}

func (r Rotator) Kind() Kind { return r.kind }

// IsIdentity reports whether no rotation has ever been set.
func (r Rotator) IsIdentity() bool { return r.kind == Identity }

// Rotation returns the orientation as Euler angles in degrees, applied Z, then X, then Y.
func (r Rotator) Rotation() mgl32.Vec3 {
	switch r.kind {
	case Identity:
		return mgl32.Vec3{}
	case Euler:
		return r.euler
	}
	return core.EulerFromMatrix(r.Matrix())
}

func (r *Rotator) SetRotation(degrees mgl32.Vec3) {
	r.kind = Euler
	r.euler = degrees
}

func (r Rotator) Quaternion() mgl32.Quat {
	switch r.kind {
	case Euler:
		return core.QuatFromEuler(r.euler)
	case Quaternion:
		return r.quat
	case AxisAngle:
		return mgl32.QuatRotate(mgl32.DegToRad(r.angle), r.axis)
	case Directional:
		return mgl32.Mat4ToQuat(r.directionalMatrix()).Normalize()
	}
	return mgl32.QuatIdent()
}

func (r *Rotator) SetQuaternion(q mgl32.Quat) {
	if q.Len() == 0 {
		panic("rotator: quaternion may not be zero")
	}
	r.kind = Quaternion
	r.quat = q.Normalize()
}

// RotationAxis returns the unit axis of the equivalent single rotation. An identity
// orientation reports +Y.
func (r Rotator) RotationAxis() mgl32.Vec3 {
	if r.kind == AxisAngle {
		return r.axis
	}
	axis, _ := axisAngleOf(r.Quaternion())
	return axis
}

func (r *Rotator) SetRotationAxis(axis mgl32.Vec3) {
	r.setAxisAngle(axis, r.RotationAngle())
}

// RotationAngle returns the angle in degrees about RotationAxis.
func (r Rotator) RotationAngle() float32 {
	if r.kind == AxisAngle {
		return r.angle
	}
	_, angle := axisAngleOf(r.Quaternion())
	return angle
}

func (r *Rotator) SetRotationAngle(degrees float32) {
	r.setAxisAngle(r.RotationAxis(), degrees)
}

func (r *Rotator) setAxisAngle(axis mgl32.Vec3, degrees float32) {
	if axis.Len() == 0 {
		panic("rotator: rotation axis may not be zero")
	}
	r.kind = AxisAngle
	r.axis = axis.Normalize()
	r.angle = degrees
}

func axisAngleOf(q mgl32.Quat) (mgl32.Vec3, float32) {
	q = q.Normalize()
	if q.W < 0 {
		q = q.Scale(-1)
	}
	w := float64(core.Clamp01(q.W))
	s := math.Sqrt(1 - w*w)
	if s < 1e-6 {
		return core.AxisY, 0
	}
	angle := 2 * math.Acos(w)
	return q.V.Mul(float32(1 / s)), mgl32.RadToDeg(float32(angle))
}

// ForwardDirection is the direction local +Z points to. A directional rotator reports the
// direction it was given, even when its orientation is reversed.
func (r Rotator) ForwardDirection() mgl32.Vec3 {
	if r.kind == Directional {
		return r.forward
	}
	return r.Quaternion().Rotate(core.AxisZ)
}

// SetForwardDirection makes the rotator directional. The orientation is fully determined by
// the forward direction and the reference up direction, which must not be parallel.
func (r *Rotator) SetForwardDirection(forward mgl32.Vec3) {
	if forward.Len() == 0 {
		panic("rotator: forward direction may not be zero")
	}
	forward = forward.Normalize()
	if areParallel(forward, r.ReferenceUpDirection()) {
		panic(fmt.Sprintf("rotator: forward direction %v is parallel to reference up direction %v", forward, r.ReferenceUpDirection()))
	}
	r.kind = Directional
	r.forward = forward
}

func (r Rotator) UpDirection() mgl32.Vec3 {
	if r.kind == Directional {
		return r.directionalMatrix().Col(1).Vec3()
	}
	return r.Quaternion().Rotate(core.AxisY)
}

func (r Rotator) RightDirection() mgl32.Vec3 {
	if r.kind == Directional {
		return r.directionalMatrix().Col(0).Vec3()
	}
	return r.Quaternion().Rotate(core.AxisX)
}

// ReferenceUpDirection is the up hint used by directional orientation. Defaults to +Y.
func (r Rotator) ReferenceUpDirection() mgl32.Vec3 {
	if r.referenceUp.Len() == 0 {
		return core.AxisY
	}
	return r.referenceUp
}

// SetReferenceUpDirection changes the up hint. It changes the orientation only when the
// rotator is directional.
func (r *Rotator) SetReferenceUpDirection(up mgl32.Vec3) {
	if up.Len() == 0 {
		panic("rotator: reference up direction may not be zero")
	}
	up = up.Normalize()
	if r.kind == Directional && areParallel(r.forward, up) {
		panic(fmt.Sprintf("rotator: reference up direction %v is parallel to forward direction %v", up, r.forward))
	}
	r.referenceUp = up
}

// ShouldReverseForwardDirection makes a directional rotator point local +Z away from its
// forward direction. Other kinds ignore it.
func (r Rotator) ShouldReverseForwardDirection() bool { return r.reverseForward }

func (r *Rotator) SetShouldReverseForwardDirection(reverse bool) { r.reverseForward = reverse }

// RotateBy rotates by Euler angles in degrees, applied in the rotator's local frame.
func (r *Rotator) RotateBy(degrees mgl32.Vec3) {
	if r.kind == Identity {
		r.SetRotation(degrees)
		return
	}
	r.RotateByQuaternion(core.QuatFromEuler(degrees))
}

// RotateByQuaternion rotates by q, applied in the rotator's local frame.
func (r *Rotator) RotateByQuaternion(q mgl32.Quat) {
	if r.kind == Identity {
		r.SetQuaternion(q)
		return
	}
	r.SetQuaternion(r.Quaternion().Mul(q.Normalize()))
}

// RotateByAngle rotates by degrees about axis, applied in the rotator's local frame.
func (r *Rotator) RotateByAngle(degrees float32, axis mgl32.Vec3) {
	if r.kind == Identity {
		r.setAxisAngle(axis, degrees)
		return
	}
	if axis.Len() == 0 {
		panic("rotator: rotation axis may not be zero")
	}
	r.RotateByQuaternion(mgl32.QuatRotate(mgl32.DegToRad(degrees), axis.Normalize()))
}

// Matrix returns the rotation as a 4x4 matrix.
func (r Rotator) Matrix() mgl32.Mat4 {
	switch r.kind {
	case Identity:
		return mgl32.Ident4()
	case Directional:
		return r.directionalMatrix()
	}
	return r.Quaternion().Mat4()
}

// TransformDirection rotates d.
func (r Rotator) TransformDirection(d mgl32.Vec3) mgl32.Vec3 {
	if r.kind == Identity {
		return d
	}
	return core.TransformDirection(r.Matrix(), d)
}

func (r Rotator) directionalMatrix() mgl32.Mat4 {
	z := r.forward
	if r.reverseForward {
		z = z.Mul(-1)
	}
	x := r.ReferenceUpDirection().Cross(z).Normalize()
	y := z.Cross(x)
	return mgl32.Mat4FromCols(x.Vec4(0), y.Vec4(0), z.Vec4(0), mgl32.Vec4{0, 0, 0, 1})
}

func areParallel(a, b mgl32.Vec3) bool {
	return a.Cross(b).Len() < parallelEpsilon
}

func (r Rotator) String() string {
	switch r.kind {
	case Identity:
		return "rotator(identity)"
	case Euler:
		return fmt.Sprintf("rotator(euler %v)", r.euler)
	case Quaternion:
		return fmt.Sprintf("rotator(quaternion %v %v)", r.quat.W, r.quat.V)
	case AxisAngle:
		return fmt.Sprintf("rotator(axis %v angle %v)", r.axis, r.angle)
	}
	return fmt.Sprintf("rotator(forward %v up %v)", r.forward, r.ReferenceUpDirection())
}
