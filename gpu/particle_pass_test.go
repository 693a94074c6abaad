package gpu

import (
	"testing"

	"github.com/gekko3d/meshfx/mesh"
	"github.com/stretchr/testify/assert"
)

func TestPlanUploads(t *testing.T) {
	tests := []struct {
		name                            string
		vertexCount, indexCount         int
		vertexCap, indexCap             int
		dirtyVertices, dirtyIndices     mesh.Range
		wantVertexCap, wantIndexCap     int
		wantVertexRange, wantIndexRange mesh.Range
	}{
		{
			name:            "first sync rebuilds both",
			vertexCount:     24,
			indexCount:      36,
			dirtyVertices:   mesh.Range{Start: 0, End: 24},
			dirtyIndices:    mesh.Range{Start: 0, End: 36},
			wantVertexCap:   64,
			wantIndexCap:    64,
			wantVertexRange: mesh.Range{Start: 0, End: 24},
			wantIndexRange:  mesh.Range{Start: 0, End: 36},
		},
		{
			name:            "partial update inside capacity",
			vertexCount:     48,
			indexCount:      72,
			vertexCap:       64,
			indexCap:        108,
			dirtyVertices:   mesh.Range{Start: 24, End: 48},
			wantVertexRange: mesh.Range{Start: 24, End: 48},
		},
		{
			name:            "growth uploads everything",
			vertexCount:     200,
			indexCount:      10,
			vertexCap:       64,
			indexCap:        64,
			dirtyVertices:   mesh.Range{Start: 190, End: 200},
			wantVertexCap:   300,
			wantVertexRange: mesh.Range{Start: 0, End: 200},
		},
		{
			name:            "dirty range past live content is clipped",
			vertexCount:     10,
			indexCount:      12,
			vertexCap:       64,
			indexCap:        64,
			dirtyVertices:   mesh.Range{Start: 8, End: 30},
			dirtyIndices:    mesh.Range{Start: 20, End: 30},
			wantVertexRange: mesh.Range{Start: 8, End: 10},
		},
		{
			name:      "nothing to do",
			vertexCap: 64,
			indexCap:  64,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			plan := planUploads(tc.vertexCount, tc.indexCount, tc.vertexCap, tc.indexCap, tc.dirtyVertices, tc.dirtyIndices)
			assert.Equal(t, tc.wantVertexCap, plan.vertexCapacity)
			assert.Equal(t, tc.wantIndexCap, plan.indexCapacity)
			assert.Equal(t, tc.wantVertexRange, plan.vertices)
			assert.Equal(t, tc.wantIndexRange, plan.indices)
		})
	}
}

func TestBufferCapacityHasHeadroom(t *testing.T) {
	assert.Equal(t, minBufferElements, bufferCapacity(1))
	assert.Equal(t, 150, bufferCapacity(100))
}
