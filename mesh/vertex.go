package mesh

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// ContentType flags which vertex attributes a mesh carries.
type ContentType uint32

const (
	ContentLocation ContentType = 1 << iota
	ContentNormal
	ContentColor
	ContentTexCoord
	ContentIndices

	ContentStandard = ContentLocation | ContentNormal | ContentColor | ContentTexCoord
)

func (c ContentType) Has(flag ContentType) bool { return c&flag == flag }

// Vertex is the interleaved layout shared by every arena and the GPU vertex buffer.
// Keep in sync with shaders/mesh_particle.wgsl.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Color    [4]float32
	TexCoord mgl32.Vec2
}

const (
	VertexSize = int(unsafe.Sizeof(Vertex{}))
	IndexSize  = int(unsafe.Sizeof(uint32(0)))
)

// Attribute byte offsets inside Vertex.
const (
	OffsetPosition = 0
	OffsetNormal   = 12
	OffsetColor    = 24
	OffsetTexCoord = 40
)

func vertexBytes(v []Vertex) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*VertexSize)
}

func indexBytes(idx []uint32) []byte {
	if len(idx) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&idx[0])), len(idx)*IndexSize)
}
