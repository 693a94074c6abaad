package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ViewVolume answers whether a world-space box may be visible.
type ViewVolume interface {
	IntersectsAABB(box AABB) bool
}

// AABB is an axis-aligned box. A box with Min greater than Max on any axis is empty.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func EmptyAABB() AABB {
	inf := float32(math.MaxFloat32)
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

func (b AABB) IsEmpty() bool {
	return b.Min.X() > b.Max.X() || b.Min.Y() > b.Max.Y() || b.Min.Z() > b.Max.Z()
}

// Extend grows the box to contain p.
func (b AABB) Extend(p mgl32.Vec3) AABB {
	return AABB{
		Min: mgl32.Vec3{min(b.Min.X(), p.X()), min(b.Min.Y(), p.Y()), min(b.Min.Z(), p.Z())},
		Max: mgl32.Vec3{max(b.Max.X(), p.X()), max(b.Max.Y(), p.Y()), max(b.Max.Z(), p.Z())},
	}
}

func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Transform returns a conservative box around the eight transformed corners.
func (b AABB) Transform(m mgl32.Mat4) AABB {
	if b.IsEmpty() {
		return b
	}
	corners := [8]mgl32.Vec3{
		{b.Min.X(), b.Min.Y(), b.Min.Z()},
		{b.Max.X(), b.Min.Y(), b.Min.Z()},
		{b.Min.X(), b.Max.Y(), b.Min.Z()},
		{b.Max.X(), b.Max.Y(), b.Min.Z()},
		{b.Min.X(), b.Min.Y(), b.Max.Z()},
		{b.Max.X(), b.Min.Y(), b.Max.Z()},
		{b.Min.X(), b.Max.Y(), b.Max.Z()},
		{b.Max.X(), b.Max.Y(), b.Max.Z()},
	}
	out := EmptyAABB()
	for _, c := range corners {
		out = out.Extend(TransformLocation(m, c))
	}
	return out
}

// Frustum holds six normalized planes (Ax + By + Cz + D = 0, normals pointing inside)
// in the order Left, Right, Bottom, Top, Near, Far.
type Frustum struct {
	Planes [6]mgl32.Vec4
}

// NewFrustum extracts the frustum planes from a view-projection matrix.
func NewFrustum(vp mgl32.Mat4) *Frustum {
	f := &Frustum{}

	// Left: Row 3 + Row 0
	f.Planes[0] = mgl32.Vec4{
		vp.At(3, 0) + vp.At(0, 0),
		vp.At(3, 1) + vp.At(0, 1),
		vp.At(3, 2) + vp.At(0, 2),
		vp.At(3, 3) + vp.At(0, 3),
	}
	// Right: Row 3 - Row 0
	f.Planes[1] = mgl32.Vec4{
		vp.At(3, 0) - vp.At(0, 0),
		vp.At(3, 1) - vp.At(0, 1),
		vp.At(3, 2) - vp.At(0, 2),
		vp.At(3, 3) - vp.At(0, 3),
	}
	// Bottom: Row 3 + Row 1
	f.Planes[2] = mgl32.Vec4{
		vp.At(3, 0) + vp.At(1, 0),
		vp.At(3, 1) + vp.At(1, 1),
		vp.At(3, 2) + vp.At(1, 2),
		vp.At(3, 3) + vp.At(1, 3),
	}
	// Top: Row 3 - Row 1
	f.Planes[3] = mgl32.Vec4{
		vp.At(3, 0) - vp.At(1, 0),
		vp.At(3, 1) - vp.At(1, 1),
		vp.At(3, 2) - vp.At(1, 2),
		vp.At(3, 3) - vp.At(1, 3),
	}
	// Near: Row 3 + Row 2 (OpenGL-style -1..1)
	f.Planes[4] = mgl32.Vec4{
		vp.At(3, 0) + vp.At(2, 0),
		vp.At(3, 1) + vp.At(2, 1),
		vp.At(3, 2) + vp.At(2, 2),
		vp.At(3, 3) + vp.At(2, 3),
	}
	// Far: Row 3 - Row 2
	f.Planes[5] = mgl32.Vec4{
		vp.At(3, 0) - vp.At(2, 0),
		vp.At(3, 1) - vp.At(2, 1),
		vp.At(3, 2) - vp.At(2, 2),
		vp.At(3, 3) - vp.At(2, 3),
	}

	for i := 0; i < 6; i++ {
		length := float32(math.Sqrt(float64(f.Planes[i][0]*f.Planes[i][0] + f.Planes[i][1]*f.Planes[i][1] + f.Planes[i][2]*f.Planes[i][2])))
		if length > 0 {
			f.Planes[i] = f.Planes[i].Mul(1.0 / length)
		}
	}

	return f
}

// IntersectsAABB reports false only when the box lies entirely behind one plane.
func (f *Frustum) IntersectsAABB(box AABB) bool {
	if box.IsEmpty() {
		return false
	}
	for i := 0; i < 6; i++ {
		plane := f.Planes[i]
		// Corner furthest along the plane normal
		p := box.Min
		if plane.X() >= 0 {
			p[0] = box.Max.X()
		}
		if plane.Y() >= 0 {
			p[1] = box.Max.Y()
		}
		if plane.Z() >= 0 {
			p[2] = box.Max.Z()
		}
		if plane.Dot(p.Vec4(1.0)) < 0 {
			return false
		}
	}
	return true
}
