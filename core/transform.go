package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is a decomposed local transform: position, rotation and scale.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func IdentityTransform() Transform {
	return Transform{
		Position: mgl32.Vec3{0, 0, 0},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

func (t Transform) ObjectToWorld() mgl32.Mat4 {
	// M = T * R * S
	translate := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	rotate := t.Rotation.Normalize().Mat4()
	scale := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())

	return translate.Mul4(rotate).Mul4(scale)
}

// Invertible reports whether no scale component is zero.
func (t Transform) Invertible() bool {
	return t.Scale.X() != 0 && t.Scale.Y() != 0 && t.Scale.Z() != 0
}

// WorldToObject inverts ObjectToWorld from the decomposed parts, S^-1 * R^T * T^-1, which
// avoids a general 4x4 inversion. The transform must be Invertible.
func (t Transform) WorldToObject() mgl32.Mat4 {
	r := t.Rotation.Normalize().Conjugate()
	back := r.Rotate(t.Position.Mul(-1))
	m := r.Mat4()
	m.SetCol(3, back.Vec4(1))
	return mgl32.Scale3D(1/t.Scale.X(), 1/t.Scale.Y(), 1/t.Scale.Z()).Mul4(m)
}

// TransformLocation maps a point through m.
func TransformLocation(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// TransformDirection maps a direction through m, ignoring translation.
func TransformDirection(m mgl32.Mat4, d mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(d.Vec4(0)).Vec3()
}
