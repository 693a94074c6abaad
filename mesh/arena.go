package mesh

import (
	"errors"
	"fmt"

	"github.com/gekko3d/meshfx/core"
)

var ErrArenaFull = errors.New("mesh arena: capacity exhausted")

// Range is a half-open span [Start, End) of arena elements.
type Range struct {
	Start, End int
}

func (r Range) Empty() bool { return r.End <= r.Start }
func (r Range) Len() int {
	if r.Empty() {
		return 0
	}
	return r.End - r.Start
}

// Union returns the smallest range covering r and o.
func (r Range) Union(o Range) Range {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Range{Start: min(r.Start, o.Start), End: max(r.End, o.End)}
}

type ArenaConfig struct {
	Indexed         bool
	InitialVertices int
	InitialIndices  int
	// MaxVertices and MaxIndices bound growth. Zero means unlimited.
	MaxVertices int
	MaxIndices  int
}

// Arena is the shared vertex and index storage of one emitter.
//
// Vertices holds the drawn content. Rest holds, at the same offsets, the untransformed
// template content each slot was filled from, so transforms are always recomputed from
// the template geometry and never compound. Indices are absolute arena vertex positions.
type Arena struct {
	cfg ArenaConfig

	vertices []Vertex
	rest     []Vertex
	indices  []uint32

	vertexCount int
	indexCount  int

	dirtyVertices Range
	dirtyIndices  Range
}

func NewArena(cfg ArenaConfig) *Arena {
	a := &Arena{cfg: cfg}
	if cfg.InitialVertices > 0 {
		a.vertices = make([]Vertex, cfg.InitialVertices)
		a.rest = make([]Vertex, cfg.InitialVertices)
	}
	if cfg.Indexed && cfg.InitialIndices > 0 {
		a.indices = make([]uint32, cfg.InitialIndices)
	}
	return a
}

func (a *Arena) Indexed() bool          { return a.cfg.Indexed }
func (a *Arena) VertexCount() int       { return a.vertexCount }
func (a *Arena) IndexCount() int        { return a.indexCount }
func (a *Arena) VertexCapacity() int    { return len(a.vertices) }
func (a *Arena) IndexCapacity() int     { return len(a.indices) }
func (a *Arena) Vertices() []Vertex     { return a.vertices[:a.vertexCount] }
func (a *Arena) RestVertices() []Vertex { return a.rest[:a.vertexCount] }
func (a *Arena) Indices() []uint32      { return a.indices[:a.indexCount] }

// Reserve makes room for nv more vertices and ni more indices, growing the storage when
// needed. It returns ErrArenaFull when a configured maximum would be exceeded.
func (a *Arena) Reserve(nv, ni int) error {
	if ni > 0 && !a.cfg.Indexed {
		panic("mesh arena: indices appended to a non-indexed arena")
	}
	needV := a.vertexCount + nv
	needI := a.indexCount + ni
	if a.cfg.MaxVertices > 0 && needV > a.cfg.MaxVertices {
		return fmt.Errorf("%w: need %d vertices, max %d", ErrArenaFull, needV, a.cfg.MaxVertices)
	}
	if a.cfg.MaxIndices > 0 && needI > a.cfg.MaxIndices {
		return fmt.Errorf("%w: need %d indices, max %d", ErrArenaFull, needI, a.cfg.MaxIndices)
	}
	if needV > len(a.vertices) {
		size := growSize(len(a.vertices), needV, a.cfg.MaxVertices)
		a.vertices = resize(a.vertices, size)
		a.rest = resize(a.rest, size)
	}
	if needI > len(a.indices) {
		a.indices = resize(a.indices, growSize(len(a.indices), needI, a.cfg.MaxIndices))
	}
	return nil
}

func growSize(current, needed, limit int) int {
	size := max(current*2, needed, 64)
	if limit > 0 && size > limit {
		size = limit
	}
	return size
}

func resize[T any](buf []T, size int) []T {
	out := make([]T, size)
	copy(out, buf)
	return out
}

// Append copies t's content to the end of the arena, re-basing its indices by the new
// first vertex offset. Both written ranges are marked dirty.
func (a *Arena) Append(t Template) (firstVertex, firstIndex int, err error) {
	nv, ni := t.VertexCount(), t.VertexIndexCount()
	if err := a.Reserve(nv, ni); err != nil {
		return 0, 0, err
	}
	firstVertex, firstIndex = a.vertexCount, a.indexCount

	t.CopyVertices(a.rest[firstVertex:firstVertex+nv], 0, nv)
	copy(a.vertices[firstVertex:firstVertex+nv], a.rest[firstVertex:firstVertex+nv])
	if ni > 0 {
		t.CopyVertexIndices(a.indices[firstIndex:firstIndex+ni], 0, ni, firstVertex)
	}

	a.vertexCount += nv
	a.indexCount += ni
	a.MarkVerticesDirty(firstVertex, nv)
	a.MarkIndicesDirty(firstIndex, ni)
	return firstVertex, firstIndex, nil
}

// Truncate shrinks the live content to the given counts. Storage is kept for reuse.
func (a *Arena) Truncate(vertexCount, indexCount int) {
	if vertexCount < 0 || vertexCount > a.vertexCount || indexCount < 0 || indexCount > a.indexCount {
		panic(fmt.Sprintf("mesh arena: truncate to (%d, %d) outside (%d, %d)", vertexCount, indexCount, a.vertexCount, a.indexCount))
	}
	a.vertexCount = vertexCount
	a.indexCount = indexCount
}

// MoveVertices copies count vertices, drawn and rest content alike, from src to dst.
// Overlapping spans are handled.
func (a *Arena) MoveVertices(dst, src, count int) {
	if count <= 0 || dst == src {
		return
	}
	copy(a.vertices[dst:dst+count], a.vertices[src:src+count])
	copy(a.rest[dst:dst+count], a.rest[src:src+count])
	a.MarkVerticesDirty(dst, count)
}

// MoveIndices copies count indices from src to dst, adding shift to each copied value.
// Overlapping spans are handled.
func (a *Arena) MoveIndices(dst, src, count, shift int) {
	if count <= 0 || (dst == src && shift == 0) {
		return
	}
	if dst <= src {
		for i := 0; i < count; i++ {
			a.indices[dst+i] = uint32(int(a.indices[src+i]) + shift)
		}
	} else {
		for i := count - 1; i >= 0; i-- {
			a.indices[dst+i] = uint32(int(a.indices[src+i]) + shift)
		}
	}
	a.MarkIndicesDirty(dst, count)
}

func (a *Arena) MarkVerticesDirty(start, count int) {
	if count > 0 {
		a.dirtyVertices = a.dirtyVertices.Union(Range{Start: start, End: start + count})
	}
}

func (a *Arena) MarkIndicesDirty(start, count int) {
	if count > 0 {
		a.dirtyIndices = a.dirtyIndices.Union(Range{Start: start, End: start + count})
	}
}

// DirtyRanges reports the element ranges written since the last TakeDirtyRanges,
// clipped to the live content.
func (a *Arena) DirtyRanges() (vertices, indices Range) {
	vertices = a.dirtyVertices
	vertices.End = min(vertices.End, a.vertexCount)
	indices = a.dirtyIndices
	indices.End = min(indices.End, a.indexCount)
	if vertices.Empty() {
		vertices = Range{}
	}
	if indices.Empty() {
		indices = Range{}
	}
	return vertices, indices
}

// TakeDirtyRanges returns DirtyRanges and clears them.
func (a *Arena) TakeDirtyRanges() (vertices, indices Range) {
	vertices, indices = a.DirtyRanges()
	a.dirtyVertices = Range{}
	a.dirtyIndices = Range{}
	return vertices, indices
}

// VertexBytes returns the raw bytes of the vertices in r.
func (a *Arena) VertexBytes(r Range) []byte {
	if r.Empty() {
		return nil
	}
	return vertexBytes(a.vertices[r.Start:r.End])
}

// IndexBytes returns the raw bytes of the indices in r.
func (a *Arena) IndexBytes(r Range) []byte {
	if r.Empty() {
		return nil
	}
	return indexBytes(a.indices[r.Start:r.End])
}

// Bounds measures the box around the drawn vertex locations.
func (a *Arena) Bounds() core.AABB {
	box := core.EmptyAABB()
	for _, v := range a.vertices[:a.vertexCount] {
		box = box.Extend(v.Position)
	}
	return box
}
