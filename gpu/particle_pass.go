package gpu

import (
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/meshfx/mesh"
	"github.com/gekko3d/meshfx/shaders"
	"github.com/go-gl/mathgl/mgl32"
)

// MeshSource is the CPU side of a particle mesh: an emitter's arena.
type MeshSource interface {
	Indexed() bool
	VertexCount() int
	IndexCount() int
	TakeDirtyRanges() (vertices, indices mesh.Range)
	VertexBytes(r mesh.Range) []byte
	IndexBytes(r mesh.Range) []byte
}

const (
	cameraUniformSize  = 64
	emitterUniformSize = 64
	minBufferElements  = 64
)

// meshBuffers are the GPU copies of one source.
type meshBuffers struct {
	vertexBuffer   *wgpu.Buffer
	indexBuffer    *wgpu.Buffer
	modelBuffer    *wgpu.Buffer
	modelBindGroup *wgpu.BindGroup
	vertexCap      int
	indexCap       int
	vertexCount    uint32
	indexCount     uint32
	indexed        bool
}

func (b *meshBuffers) release() {
	for _, buf := range []*wgpu.Buffer{b.vertexBuffer, b.indexBuffer, b.modelBuffer} {
		if buf != nil {
			buf.Release()
		}
	}
	if b.modelBindGroup != nil {
		b.modelBindGroup.Release()
	}
}

// ParticleMeshPass draws emitter arenas. Each source keeps its own vertex, index and model
// buffers; Sync uploads only what changed since the previous Sync.
type ParticleMeshPass struct {
	Pipeline       *wgpu.RenderPipeline
	CameraLayout   *wgpu.BindGroupLayout
	EmitterLayout  *wgpu.BindGroupLayout
	Device         *wgpu.Device
	buffers        map[MeshSource]*meshBuffers
	UploadedBytes  uint64
	BufferRebuilds int
}

// NewParticleMeshPass builds the pipeline. A depthFormat of TextureFormatUndefined disables
// depth testing.
func NewParticleMeshPass(device *wgpu.Device, format, depthFormat wgpu.TextureFormat) (*ParticleMeshPass, error) {
	shaderModule, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "MeshParticleShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.MeshParticleWGSL},
	})
	if err != nil {
		return nil, err
	}

	uniformLayout := func(label string, size uint64) (*wgpu.BindGroupLayout, error) {
		return device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label: label,
			Entries: []wgpu.BindGroupLayoutEntry{
				{
					Binding:    0,
					Visibility: wgpu.ShaderStageVertex,
					Buffer: wgpu.BufferBindingLayout{
						Type:           wgpu.BufferBindingTypeUniform,
						MinBindingSize: size,
					},
				},
			},
		})
	}
	cameraBgl, err := uniformLayout("MeshParticleCameraBGL", cameraUniformSize)
	if err != nil {
		return nil, err
	}
	emitterBgl, err := uniformLayout("MeshParticleEmitterBGL", emitterUniformSize)
	if err != nil {
		return nil, err
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{cameraBgl, emitterBgl},
	})
	if err != nil {
		return nil, err
	}

	var depth *wgpu.DepthStencilState
	if depthFormat != wgpu.TextureFormatUndefined {
		depth = &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		}
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "MeshParticlePipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     shaderModule,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: uint64(mesh.VertexSize),
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x3, Offset: mesh.OffsetPosition, ShaderLocation: 0},
						{Format: wgpu.VertexFormatFloat32x3, Offset: mesh.OffsetNormal, ShaderLocation: 1},
						{Format: wgpu.VertexFormatFloat32x4, Offset: mesh.OffsetColor, ShaderLocation: 2},
						{Format: wgpu.VertexFormatFloat32x2, Offset: mesh.OffsetTexCoord, ShaderLocation: 3},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     shaderModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    format,
					WriteMask: wgpu.ColorWriteMaskAll,
					Blend: &wgpu.BlendState{
						Color: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorSrcAlpha,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						},
						Alpha: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						},
					},
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: depth,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}

	return &ParticleMeshPass{
		Pipeline:      pipeline,
		CameraLayout:  cameraBgl,
		EmitterLayout: emitterBgl,
		Device:        device,
		buffers:       make(map[MeshSource]*meshBuffers),
	}, nil
}

// uploadPlan says which buffers need rebuilding and which element ranges need writing.
// A capacity of zero keeps the current buffer.
type uploadPlan struct {
	vertexCapacity int
	indexCapacity  int
	vertices       mesh.Range
	indices        mesh.Range
}

func bufferCapacity(count int) int {
	return max(minBufferElements, count+count/2)
}

// planUploads decides the work for one Sync. A buffer too small for the live content is
// rebuilt and filled from the start; otherwise only the dirty range is written.
func planUploads(vertexCount, indexCount, vertexCap, indexCap int, dirtyVertices, dirtyIndices mesh.Range) uploadPlan {
	var plan uploadPlan
	if vertexCount > vertexCap {
		plan.vertexCapacity = bufferCapacity(vertexCount)
		plan.vertices = mesh.Range{Start: 0, End: vertexCount}
	} else {
		plan.vertices = clip(dirtyVertices, vertexCount)
	}
	if indexCount > indexCap {
		plan.indexCapacity = bufferCapacity(indexCount)
		plan.indices = mesh.Range{Start: 0, End: indexCount}
	} else {
		plan.indices = clip(dirtyIndices, indexCount)
	}
	return plan
}

func clip(r mesh.Range, count int) mesh.Range {
	r.End = min(r.End, count)
	if r.Empty() {
		return mesh.Range{}
	}
	return r
}

func (p *ParticleMeshPass) createBuffer(label string, size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	if size%4 != 0 {
		size += 4 - size%4
	}
	buf, err := p.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	return buf
}

func (p *ParticleMeshPass) buffersFor(src MeshSource) (*meshBuffers, error) {
	if b, ok := p.buffers[src]; ok {
		return b, nil
	}
	b := &meshBuffers{indexed: src.Indexed()}
	b.modelBuffer = p.createBuffer("MeshParticleModel", emitterUniformSize, wgpu.BufferUsageUniform)
	bg, err := p.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "MeshParticleModelBG",
		Layout: p.EmitterLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: b.modelBuffer, Size: emitterUniformSize},
		},
	})
	if err != nil {
		b.release()
		return nil, fmt.Errorf("mesh particle bind group: %w", err)
	}
	b.modelBindGroup = bg
	p.buffers[src] = b
	return b, nil
}

// Sync uploads the source's changed vertices and indices and its emitter-to-world matrix.
func (p *ParticleMeshPass) Sync(queue *wgpu.Queue, src MeshSource, model mgl32.Mat4) error {
	b, err := p.buffersFor(src)
	if err != nil {
		return err
	}
	dirtyVertices, dirtyIndices := src.TakeDirtyRanges()
	plan := planUploads(src.VertexCount(), src.IndexCount(), b.vertexCap, b.indexCap, dirtyVertices, dirtyIndices)

	if plan.vertexCapacity > 0 {
		if b.vertexBuffer != nil {
			b.vertexBuffer.Release()
		}
		b.vertexBuffer = p.createBuffer("MeshParticleVertices", uint64(plan.vertexCapacity*mesh.VertexSize), wgpu.BufferUsageVertex)
		b.vertexCap = plan.vertexCapacity
		p.BufferRebuilds++
	}
	if b.indexed && plan.indexCapacity > 0 {
		if b.indexBuffer != nil {
			b.indexBuffer.Release()
		}
		b.indexBuffer = p.createBuffer("MeshParticleIndices", uint64(plan.indexCapacity*mesh.IndexSize), wgpu.BufferUsageIndex)
		b.indexCap = plan.indexCapacity
		p.BufferRebuilds++
	}

	if !plan.vertices.Empty() {
		data := src.VertexBytes(plan.vertices)
		if err := queue.WriteBuffer(b.vertexBuffer, uint64(plan.vertices.Start*mesh.VertexSize), data); err != nil {
			return err
		}
		p.UploadedBytes += uint64(len(data))
	}
	if b.indexed && !plan.indices.Empty() {
		data := src.IndexBytes(plan.indices)
		if err := queue.WriteBuffer(b.indexBuffer, uint64(plan.indices.Start*mesh.IndexSize), data); err != nil {
			return err
		}
		p.UploadedBytes += uint64(len(data))
	}

	if err := queue.WriteBuffer(b.modelBuffer, 0, unsafe.Slice((*byte)(unsafe.Pointer(&model[0])), emitterUniformSize)); err != nil {
		return err
	}

	b.vertexCount = uint32(src.VertexCount())
	b.indexCount = uint32(src.IndexCount())
	return nil
}

// Draw records the source's geometry as uploaded by the last Sync.
func (p *ParticleMeshPass) Draw(pass *wgpu.RenderPassEncoder, cameraBindGroup *wgpu.BindGroup, src MeshSource) {
	b, ok := p.buffers[src]
	if !ok || b.vertexBuffer == nil || b.vertexCount == 0 {
		return
	}

	pass.SetPipeline(p.Pipeline)
	pass.SetBindGroup(0, cameraBindGroup, nil)
	pass.SetBindGroup(1, b.modelBindGroup, nil)
	pass.SetVertexBuffer(0, b.vertexBuffer, 0, uint64(b.vertexCount)*uint64(mesh.VertexSize))

	if b.indexed {
		if b.indexCount == 0 {
			return
		}
		pass.SetIndexBuffer(b.indexBuffer, wgpu.IndexFormatUint32, 0, uint64(b.indexCount)*uint64(mesh.IndexSize))
		pass.DrawIndexed(b.indexCount, 1, 0, 0, 0)
		return
	}
	pass.Draw(b.vertexCount, 1, 0, 0)
}

// Forget releases the GPU buffers of a source that will not be drawn again.
func (p *ParticleMeshPass) Forget(src MeshSource) {
	if b, ok := p.buffers[src]; ok {
		b.release()
		delete(p.buffers, src)
	}
}

func (p *ParticleMeshPass) Release() {
	for src := range p.buffers {
		p.Forget(src)
	}
	if p.Pipeline != nil {
		p.Pipeline.Release()
	}
}
