package particles

import (
	"math"

	"github.com/gekko3d/meshfx/core"
	"github.com/gekko3d/meshfx/mesh"
	"github.com/gekko3d/meshfx/rotator"
	"github.com/go-gl/mathgl/mgl32"
)

// Particle is anything an Emitter can hold. Concrete particles embed *MeshParticle state
// through one of MeshParticle, MortalParticle, SprayParticle or EvolvingParticle.
type Particle interface {
	Mesh() *MeshParticle
	// UpdateBeforeTransform advances the particle by dt seconds.
	UpdateBeforeTransform(dt float32)
	// Initialize is called once per emission, after the navigator has run.
	Initialize()
	// Finalize is called when the particle is removed from its emitter.
	Finalize()
}

// LifeSpanSetter is implemented by particles with a finite life.
type LifeSpanSetter interface {
	SetLifeSpan(seconds float32)
}

// VelocitySetter is implemented by particles that move on their own.
type VelocitySetter interface {
	SetVelocity(v mgl32.Vec3)
}

const minScale = 1e-6

var unitScale = mgl32.Vec3{1, 1, 1}

// TextureRect is a sub-rectangle of the template's texture space.
type TextureRect struct {
	Origin mgl32.Vec2
	Size   mgl32.Vec2
}

// MeshParticle is the state shared by every particle: its transform, its color and the
// handle (offset and count) into the emitter's arena. The particle never owns vertex data.
type MeshParticle struct {
	emitter    *Emitter
	template   mesh.Template
	index      int
	generation uint32

	location mgl32.Vec3
	rotator  rotator.Rotator
	scale    mgl32.Vec3
	color    [4]float32
	radius   float32

	firstVertexOffset      int
	vertexCount            int
	firstVertexIndexOffset int
	vertexIndexCount       int

	isAlive          bool
	isTransformDirty bool
	isColorDirty     bool
	normalsRotated   bool
}

func NewMeshParticle() *MeshParticle {
	return &MeshParticle{scale: unitScale, color: [4]float32{1, 1, 1, 1}, index: -1}
}

func (p *MeshParticle) Mesh() *MeshParticle              { return p }
func (p *MeshParticle) UpdateBeforeTransform(dt float32) {}
func (p *MeshParticle) Initialize()                      {}
func (p *MeshParticle) Finalize()                        {}

func (p *MeshParticle) Emitter() *Emitter           { return p.emitter }
func (p *MeshParticle) Template() mesh.Template     { return p.template }
func (p *MeshParticle) IsAlive() bool               { return p.isAlive }
func (p *MeshParticle) IsTransformDirty() bool      { return p.isTransformDirty }
func (p *MeshParticle) IsColorDirty() bool          { return p.isColorDirty }
func (p *MeshParticle) FirstVertexOffset() int      { return p.firstVertexOffset }
func (p *MeshParticle) VertexCount() int            { return p.vertexCount }
func (p *MeshParticle) FirstVertexIndexOffset() int { return p.firstVertexIndexOffset }
func (p *MeshParticle) VertexIndexCount() int       { return p.vertexIndexCount }

// SetTemplate chooses the template a caller-supplied particle is emitted from. It has no
// effect on a particle that is already alive.
func (p *MeshParticle) SetTemplate(t mesh.Template) {
	if !p.isAlive {
		p.template = t
	}
}

// SetIsAlive(false) kills the particle. Its emitter removes it during the next update.
func (p *MeshParticle) SetIsAlive(alive bool) { p.isAlive = alive }

// Generation changes every time the particle is emitted again.
func (p *MeshParticle) Generation() uint32 { return p.generation }

// Handle identifies one emission of a particle.
type Handle struct {
	particle   *MeshParticle
	generation uint32
}

func (p *MeshParticle) Handle() Handle { return Handle{particle: p, generation: p.generation} }

// Valid reports whether the emission the handle was taken from is still alive.
func (h Handle) Valid() bool {
	return h.particle != nil && h.particle.isAlive && h.particle.generation == h.generation
}

func (h Handle) Particle() *MeshParticle { return h.particle }

func (p *MeshParticle) Location() mgl32.Vec3 { return p.location }

func (p *MeshParticle) SetLocation(l mgl32.Vec3) {
	p.location = l
	p.isTransformDirty = true
}

func (p *MeshParticle) TranslateBy(d mgl32.Vec3) { p.SetLocation(p.location.Add(d)) }

// Rotator returns a copy of the particle's orientation.
func (p *MeshParticle) Rotator() rotator.Rotator { return p.rotator }

func (p *MeshParticle) SetRotator(r rotator.Rotator) {
	p.rotator = r
	p.isTransformDirty = true
}

func (p *MeshParticle) Rotation() mgl32.Vec3 { return p.rotator.Rotation() }

func (p *MeshParticle) SetRotation(degrees mgl32.Vec3) {
	p.rotator.SetRotation(degrees)
	p.isTransformDirty = true
}

func (p *MeshParticle) Quaternion() mgl32.Quat { return p.rotator.Quaternion() }

func (p *MeshParticle) SetQuaternion(q mgl32.Quat) {
	p.rotator.SetQuaternion(q)
	p.isTransformDirty = true
}

func (p *MeshParticle) RotationAxis() mgl32.Vec3 { return p.rotator.RotationAxis() }

func (p *MeshParticle) SetRotationAxis(axis mgl32.Vec3) {
	p.rotator.SetRotationAxis(axis)
	p.isTransformDirty = true
}

func (p *MeshParticle) RotationAngle() float32 { return p.rotator.RotationAngle() }

func (p *MeshParticle) SetRotationAngle(degrees float32) {
	p.rotator.SetRotationAngle(degrees)
	p.isTransformDirty = true
}

func (p *MeshParticle) ForwardDirection() mgl32.Vec3 { return p.rotator.ForwardDirection() }

func (p *MeshParticle) SetForwardDirection(d mgl32.Vec3) {
	p.rotator.SetForwardDirection(d)
	p.isTransformDirty = true
}

func (p *MeshParticle) UpDirection() mgl32.Vec3    { return p.rotator.UpDirection() }
func (p *MeshParticle) RightDirection() mgl32.Vec3 { return p.rotator.RightDirection() }

func (p *MeshParticle) RotateBy(degrees mgl32.Vec3) {
	p.rotator.RotateBy(degrees)
	p.isTransformDirty = true
}

func (p *MeshParticle) RotateByQuaternion(q mgl32.Quat) {
	p.rotator.RotateByQuaternion(q)
	p.isTransformDirty = true
}

func (p *MeshParticle) RotateByAngle(degrees float32, axis mgl32.Vec3) {
	p.rotator.RotateByAngle(degrees, axis)
	p.isTransformDirty = true
}

func (p *MeshParticle) Scale() mgl32.Vec3 { return p.scale }

func (p *MeshParticle) SetScale(s mgl32.Vec3) {
	p.scale = s
	p.isTransformDirty = true
}

// UniformScale is the scale itself when uniform. Otherwise it is the length of the scale
// vector relative to that of the unit scale, so mixed signs do not cancel.
func (p *MeshParticle) UniformScale() float32 {
	if p.IsUniformlyScaled() {
		return p.scale.X()
	}
	return p.scale.Len() / unitScaleLength
}

var unitScaleLength = unitScale.Len()

func (p *MeshParticle) SetUniformScale(s float32) { p.SetScale(mgl32.Vec3{s, s, s}) }

func (p *MeshParticle) IsUniformlyScaled() bool {
	return p.scale.X() == p.scale.Y() && p.scale.Y() == p.scale.Z()
}

func (p *MeshParticle) Color() [4]float32 { return p.color }

func (p *MeshParticle) SetColor(c [4]float32) {
	for i := range c {
		c[i] = core.Clamp01(c[i])
	}
	p.color = c
	p.isColorDirty = true
}

func (p *MeshParticle) Opacity() float32 { return p.color[3] }

func (p *MeshParticle) SetOpacity(a float32) {
	c := p.color
	c[3] = a
	p.SetColor(c)
}

func (p *MeshParticle) isTranslationOnly() bool {
	return p.rotator.IsIdentity() && p.scale == unitScale
}

// TransformMatrix returns translate * rotate * scale, with each scale component kept
// away from zero.
func (p *MeshParticle) TransformMatrix() mgl32.Mat4 {
	s := p.scale
	for i := range s {
		if s[i] >= 0 && s[i] < minScale {
			s[i] = minScale
		} else if s[i] < 0 && s[i] > -minScale {
			s[i] = -minScale
		}
	}
	t := mgl32.Translate3D(p.location.X(), p.location.Y(), p.location.Z())
	return t.Mul4(p.rotator.Matrix()).Mul4(mgl32.Scale3D(s.X(), s.Y(), s.Z()))
}

// Vertices returns the particle's slice of the emitter's drawn vertices.
func (p *MeshParticle) Vertices() []mesh.Vertex {
	if p.emitter == nil || !p.isAlive {
		return nil
	}
	return p.emitter.arena.Vertices()[p.firstVertexOffset : p.firstVertexOffset+p.vertexCount]
}

// VertexIndices returns the particle's slice of the emitter's index array. Values are
// absolute arena vertex positions.
func (p *MeshParticle) VertexIndices() []uint32 {
	if p.emitter == nil || !p.isAlive || p.vertexIndexCount == 0 {
		return nil
	}
	return p.emitter.arena.Indices()[p.firstVertexIndexOffset : p.firstVertexIndexOffset+p.vertexIndexCount]
}

// TransformVertices writes the particle's transformed template geometry and, when needed,
// its color into the emitter's arena. It does nothing unless the particle is dirty, and the
// result depends only on the current state, never on earlier writes.
func (p *MeshParticle) TransformVertices() {
	if !p.isTransformDirty && !p.isColorDirty {
		return
	}
	if p.emitter == nil || !p.isAlive {
		return
	}
	arena := p.emitter.arena
	lo, hi := p.firstVertexOffset, p.firstVertexOffset+p.vertexCount
	drawn := arena.Vertices()[lo:hi]
	rest := arena.RestVertices()[lo:hi]
	content := p.template.ContentTypes()

	if p.isTransformDirty {
		normals := content.Has(mesh.ContentNormal)
		if p.isTranslationOnly() {
			for i := range drawn {
				drawn[i].Position = rest[i].Position.Add(p.location)
			}
			// Earlier rotated writes may still be in place
			if normals && p.normalsRotated {
				for i := range drawn {
					drawn[i].Normal = rest[i].Normal
				}
			}
			p.normalsRotated = false
		} else {
			m := p.TransformMatrix()
			p.normalsRotated = normals
			for i := range drawn {
				drawn[i].Position = core.TransformLocation(m, rest[i].Position)
				if normals {
					drawn[i].Normal = p.rotator.TransformDirection(rest[i].Normal)
				}
			}
		}
		p.isTransformDirty = false
	}

	if p.isColorDirty {
		if content.Has(mesh.ContentColor) {
			for i := range drawn {
				drawn[i].Color = p.color
			}
		}
		p.isColorDirty = false
	}

	arena.MarkVerticesDirty(lo, p.vertexCount)
}

// SetTextureRectangle maps the template's texture coordinates into rect.
func (p *MeshParticle) SetTextureRectangle(rect TextureRect) {
	if p.emitter == nil || !p.isAlive || !p.template.ContentTypes().Has(mesh.ContentTexCoord) {
		return
	}
	arena := p.emitter.arena
	lo, hi := p.firstVertexOffset, p.firstVertexOffset+p.vertexCount
	drawn := arena.Vertices()[lo:hi]
	rest := arena.RestVertices()[lo:hi]
	for i := range drawn {
		uv := rest[i].TexCoord
		drawn[i].TexCoord = mgl32.Vec2{
			rect.Origin.X() + uv.X()*rect.Size.X(),
			rect.Origin.Y() + uv.Y()*rect.Size.Y(),
		}
	}
	arena.MarkVerticesDirty(lo, p.vertexCount)
}

// Bounds is a conservative box around the particle in the emitter's local space.
func (p *MeshParticle) Bounds() core.AABB {
	s := max(abs32(p.scale.X()), abs32(p.scale.Y()), abs32(p.scale.Z()))
	r := p.radius * s
	ext := mgl32.Vec3{r, r, r}
	return core.AABB{Min: p.location.Sub(ext), Max: p.location.Add(ext)}
}

// reset prepares the particle to occupy the arena slot just filled from its template.
func (p *MeshParticle) reset(e *Emitter, firstVertex, firstIndex int) {
	p.emitter = e
	p.generation++
	p.firstVertexOffset = firstVertex
	p.vertexCount = p.template.VertexCount()
	p.firstVertexIndexOffset = firstIndex
	p.vertexIndexCount = p.template.VertexIndexCount()

	p.location = mgl32.Vec3{}
	p.rotator = rotator.New()
	p.scale = unitScale
	p.color = [4]float32{1, 1, 1, 1}

	rest := e.arena.RestVertices()[firstVertex : firstVertex+p.vertexCount]
	if len(rest) > 0 && p.template.ContentTypes().Has(mesh.ContentColor) {
		p.color = rest[0].Color
	}
	var r2 float32
	for _, v := range rest {
		r2 = max(r2, v.Position.Dot(v.Position))
	}
	p.radius = float32(math.Sqrt(float64(r2)))

	p.isAlive = true
	p.isTransformDirty = true
	p.isColorDirty = false
	// The slot may still hold normals an earlier occupant rotated
	p.normalsRotated = true
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
