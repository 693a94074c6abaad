package mesh

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// NewCubeMesh builds an axis-aligned box centered on the origin with flat-shaded faces.
func NewCubeMesh(sizeX, sizeY, sizeZ float32, color [4]float32) *Mesh {
	hx, hy, hz := sizeX/2, sizeY/2, sizeZ/2

	type face struct {
		normal  mgl32.Vec3
		corners [4]mgl32.Vec3
	}
	faces := []face{
		{mgl32.Vec3{0, 0, 1}, [4]mgl32.Vec3{{-hx, -hy, hz}, {hx, -hy, hz}, {hx, hy, hz}, {-hx, hy, hz}}},
		{mgl32.Vec3{0, 0, -1}, [4]mgl32.Vec3{{hx, -hy, -hz}, {-hx, -hy, -hz}, {-hx, hy, -hz}, {hx, hy, -hz}}},
		{mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{hx, -hy, hz}, {hx, -hy, -hz}, {hx, hy, -hz}, {hx, hy, hz}}},
		{mgl32.Vec3{-1, 0, 0}, [4]mgl32.Vec3{{-hx, -hy, -hz}, {-hx, -hy, hz}, {-hx, hy, hz}, {-hx, hy, -hz}}},
		{mgl32.Vec3{0, 1, 0}, [4]mgl32.Vec3{{-hx, hy, hz}, {hx, hy, hz}, {hx, hy, -hz}, {-hx, hy, -hz}}},
		{mgl32.Vec3{0, -1, 0}, [4]mgl32.Vec3{{-hx, -hy, -hz}, {hx, -hy, -hz}, {hx, -hy, hz}, {-hx, -hy, hz}}},
	}
	uvs := [4]mgl32.Vec2{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

	vertices := make([]Vertex, 0, 24)
	indices := make([]uint32, 0, 36)
	for _, f := range faces {
		base := uint32(len(vertices))
		for i, c := range f.corners {
			vertices = append(vertices, Vertex{Position: c, Normal: f.normal, Color: color, TexCoord: uvs[i]})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return NewMesh("cube", ContentStandard, vertices, indices)
}

// NewQuadMesh builds a quad in the XY plane facing +Z.
func NewQuadMesh(width, height float32, color [4]float32) *Mesh {
	hw, hh := width/2, height/2
	n := mgl32.Vec3{0, 0, 1}
	vertices := []Vertex{
		{Position: mgl32.Vec3{-hw, -hh, 0}, Normal: n, Color: color, TexCoord: mgl32.Vec2{0, 1}},
		{Position: mgl32.Vec3{hw, -hh, 0}, Normal: n, Color: color, TexCoord: mgl32.Vec2{1, 1}},
		{Position: mgl32.Vec3{hw, hh, 0}, Normal: n, Color: color, TexCoord: mgl32.Vec2{1, 0}},
		{Position: mgl32.Vec3{-hw, hh, 0}, Normal: n, Color: color, TexCoord: mgl32.Vec2{0, 0}},
	}
	return NewMesh("quad", ContentStandard, vertices, []uint32{0, 1, 2, 0, 2, 3})
}

// NewTetrahedronMesh builds a regular tetrahedron with flat-shaded faces, size being its edge length.
func NewTetrahedronMesh(size float32, color [4]float32) *Mesh {
	s := size / float32(2*math.Sqrt2)
	p := [4]mgl32.Vec3{{s, s, s}, {s, -s, -s}, {-s, s, -s}, {-s, -s, s}}
	tris := [4][3]int{{0, 1, 2}, {0, 3, 1}, {0, 2, 3}, {1, 3, 2}}
	uvs := [3]mgl32.Vec2{{0.5, 0}, {0, 1}, {1, 1}}

	vertices := make([]Vertex, 0, 12)
	indices := make([]uint32, 0, 12)
	for _, tri := range tris {
		a, b, c := p[tri[0]], p[tri[1]], p[tri[2]]
		n := b.Sub(a).Cross(c.Sub(a)).Normalize()
		base := uint32(len(vertices))
		for i, corner := range [3]mgl32.Vec3{a, b, c} {
			vertices = append(vertices, Vertex{Position: corner, Normal: n, Color: color, TexCoord: uvs[i]})
		}
		indices = append(indices, base, base+1, base+2)
	}
	return NewMesh("tetrahedron", ContentStandard, vertices, indices)
}

// NewTriangleMesh builds a single non-indexed triangle in the XY plane facing +Z.
func NewTriangleMesh(size float32, color [4]float32) *Mesh {
	h := size / 2
	n := mgl32.Vec3{0, 0, 1}
	vertices := []Vertex{
		{Position: mgl32.Vec3{-h, -h, 0}, Normal: n, Color: color, TexCoord: mgl32.Vec2{0, 1}},
		{Position: mgl32.Vec3{h, -h, 0}, Normal: n, Color: color, TexCoord: mgl32.Vec2{1, 1}},
		{Position: mgl32.Vec3{0, h, 0}, Normal: n, Color: color, TexCoord: mgl32.Vec2{0.5, 0}},
	}
	return NewMesh("triangle", ContentStandard, vertices, nil)
}

// NewProceduralMesh dispatches on a shape name. Params are shape specific:
// cube [x, y, z], quad [w, h], tetrahedron [edge], triangle [size].
func NewProceduralMesh(shape string, params []float32, color [4]float32) (*Mesh, error) {
	param := func(i int, def float32) float32 {
		if i < len(params) && params[i] > 0 {
			return params[i]
		}
		return def
	}
	switch shape {
	case "cube":
		x := param(0, 1)
		return NewCubeMesh(x, param(1, x), param(2, x), color), nil
	case "quad":
		w := param(0, 1)
		return NewQuadMesh(w, param(1, w), color), nil
	case "tetrahedron":
		return NewTetrahedronMesh(param(0, 1), color), nil
	case "triangle":
		return NewTriangleMesh(param(0, 1), color), nil
	}
	return nil, fmt.Errorf("unknown procedural mesh %q", shape)
}
