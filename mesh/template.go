package mesh

import (
	"fmt"

	"github.com/gekko3d/meshfx/core"
	"github.com/google/uuid"
)

type ID string

func NewID() ID {
	return ID(uuid.NewString())
}

// Template is a read-only geometry source that particles copy from when they spawn.
type Template interface {
	ID() ID
	Name() string
	VertexCount() int
	VertexIndexCount() int
	ContentTypes() ContentType
	HasVertexIndices() bool
	// CopyVertices copies count vertices starting at srcOffset into dst.
	CopyVertices(dst []Vertex, srcOffset, count int)
	// CopyVertexIndices copies count indices starting at srcOffset into dst, adding shift to each.
	CopyVertexIndices(dst []uint32, srcOffset, count int, shift int)
}

// Mesh is an in-memory Template.
type Mesh struct {
	id       ID
	name     string
	content  ContentType
	vertices []Vertex
	indices  []uint32
}

// NewMesh builds a template from vertices and optional indices. Every index must address a
// vertex of this mesh.
func NewMesh(name string, content ContentType, vertices []Vertex, indices []uint32) *Mesh {
	for i, v := range indices {
		if int(v) >= len(vertices) {
			panic(fmt.Sprintf("mesh %q: index %d at %d out of range (%d vertices)", name, v, i, len(vertices)))
		}
	}
	content |= ContentLocation
	if len(indices) > 0 {
		content |= ContentIndices
	} else {
		content &^= ContentIndices
	}
	return &Mesh{
		id:       NewID(),
		name:     name,
		content:  content,
		vertices: vertices,
		indices:  indices,
	}
}

func (m *Mesh) ID() ID                    { return m.id }
func (m *Mesh) Name() string              { return m.name }
func (m *Mesh) VertexCount() int          { return len(m.vertices) }
func (m *Mesh) VertexIndexCount() int     { return len(m.indices) }
func (m *Mesh) ContentTypes() ContentType { return m.content }
func (m *Mesh) HasVertexIndices() bool    { return len(m.indices) > 0 }

// Vertices exposes the template content. Callers must not modify it.
func (m *Mesh) Vertices() []Vertex { return m.vertices }
func (m *Mesh) Indices() []uint32  { return m.indices }

func (m *Mesh) CopyVertices(dst []Vertex, srcOffset, count int) {
	copy(dst[:count], m.vertices[srcOffset:srcOffset+count])
}

func (m *Mesh) CopyVertexIndices(dst []uint32, srcOffset, count int, shift int) {
	src := m.indices[srcOffset : srcOffset+count]
	for i, v := range src {
		dst[i] = uint32(int(v) + shift)
	}
}

// Bounds is the box around the template's vertex locations.
func (m *Mesh) Bounds() core.AABB {
	box := core.EmptyAABB()
	for _, v := range m.vertices {
		box = box.Extend(v.Position)
	}
	return box
}
