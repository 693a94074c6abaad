package particles

import (
	"math"
	"math/rand"

	"github.com/gekko3d/meshfx/core"
	"github.com/go-gl/mathgl/mgl32"
)

// Navigator sets up the kinematics of newly emitted particles. It has no influence on a
// particle after emission.
type Navigator interface {
	SetEmitter(e *Emitter)
	InitializeParticle(p Particle)
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }

func randomBetween(rng *rand.Rand, lo, hi float32) float32 {
	if lo == hi {
		return lo
	}
	return lerp(lo, hi, rng.Float32())
}

// RandomMortalNavigator gives mortal particles a life span drawn uniformly from
// [MinLifeSpan, MaxLifeSpan].
type RandomMortalNavigator struct {
	MinLifeSpan float32
	MaxLifeSpan float32

	emitter *Emitter
	rng     *rand.Rand
}

func NewRandomMortalNavigator(minLifeSpan, maxLifeSpan float32) *RandomMortalNavigator {
	return &RandomMortalNavigator{MinLifeSpan: minLifeSpan, MaxLifeSpan: maxLifeSpan}
}

func (n *RandomMortalNavigator) Emitter() *Emitter { return n.emitter }

func (n *RandomMortalNavigator) SetEmitter(e *Emitter) {
	n.emitter = e
	if n.rng == nil && e != nil {
		n.rng = e.Rand()
	}
}

// SetRand overrides the random source taken from the emitter.
func (n *RandomMortalNavigator) SetRand(rng *rand.Rand) { n.rng = rng }

func (n *RandomMortalNavigator) random() *rand.Rand {
	if n.rng == nil {
		n.rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return n.rng
}

func (n *RandomMortalNavigator) InitializeParticle(p Particle) {
	if mortal, ok := p.(LifeSpanSetter); ok {
		mortal.SetLifeSpan(randomBetween(n.random(), n.MinLifeSpan, n.MaxLifeSpan))
	}
}

// Default nozzle dispersion, in degrees.
const (
	DefaultDispersionWidth  = 15
	DefaultDispersionHeight = 15
)

// HoseNavigator launches particles from a nozzle: a node of its own, independent of the
// emitter's transform, whose local +Z is the launch direction.
//
// Directions are drawn inside a cone of the configured dispersion angles. When both angles
// are below 90 degrees the half-angle tangents are computed once and sampled uniformly,
// which is cheaper than, and for wide cones not identical to, uniform angle sampling.
type HoseNavigator struct {
	RandomMortalNavigator

	MinSpeed float32
	MaxSpeed float32

	nozzle     *core.Node
	dispersion mgl32.Vec2
	// nozzleShape holds half-angle tangents when precalculated, otherwise the full
	// dispersion angles in degrees.
	nozzleShape           mgl32.Vec2
	precalcNozzleTangents bool

	nozzleMatrix mgl32.Mat4
	nozzleRev    uint64
	emitterRev   uint64
	matrixValid  bool
	recomputes   int
}

func NewHoseNavigator() *HoseNavigator {
	n := &HoseNavigator{
		nozzle:       core.NewNode("Nozzle"),
		nozzleMatrix: mgl32.Ident4(),
	}
	n.SetDispersionAngle(mgl32.Vec2{DefaultDispersionWidth, DefaultDispersionHeight})
	return n
}

// SetEmitter names the nozzle after the emitter and, when the nozzle has no parent,
// attaches it to the emitter's node.
func (n *HoseNavigator) SetEmitter(e *Emitter) {
	n.RandomMortalNavigator.SetEmitter(e)
	n.matrixValid = false
	if e == nil || n.nozzle == nil {
		return
	}
	n.nozzle.SetName(e.Name() + "-Nozzle")
	if n.nozzle.Parent() == nil && !n.nozzle.IsDestroyed() {
		e.Node().AddChild(n.nozzle)
	}
}

func (n *HoseNavigator) Nozzle() *core.Node { return n.nozzle }

// SetNozzle replaces the nozzle. A nil nozzle launches from the emitter's origin along +Z.
func (n *HoseNavigator) SetNozzle(nozzle *core.Node) {
	n.nozzle = nozzle
	n.matrixValid = false
	if nozzle == nil {
		n.nozzleMatrix = mgl32.Ident4()
		return
	}
	if n.emitter != nil && nozzle.Parent() == nil && !nozzle.IsDestroyed() {
		n.emitter.Node().AddChild(nozzle)
	}
}

// DispersionAngle is the full width and height of the launch cone, in degrees.
func (n *HoseNavigator) DispersionAngle() mgl32.Vec2 { return n.dispersion }

// SetDispersionAngle sets the cone extents in degrees and picks tangent precalculation
// when both are below 90.
func (n *HoseNavigator) SetDispersionAngle(deg mgl32.Vec2) {
	n.dispersion = deg
	n.precalcNozzleTangents = deg.X() < 90 && deg.Y() < 90
	n.updateNozzleShape()
}

func (n *HoseNavigator) ShouldPrecalculateNozzleTangents() bool { return n.precalcNozzleTangents }

// SetShouldPrecalculateNozzleTangents switches between tangent and exact sampling.
// Tangent sampling cannot represent a dispersion of 180 degrees and stays off for it.
func (n *HoseNavigator) SetShouldPrecalculateNozzleTangents(precalc bool) {
	if precalc && (n.dispersion.X() >= 180 || n.dispersion.Y() >= 180) {
		precalc = false
	}
	n.precalcNozzleTangents = precalc
	n.updateNozzleShape()
}

func (n *HoseNavigator) updateNozzleShape() {
	if n.precalcNozzleTangents {
		n.nozzleShape = mgl32.Vec2{halfAngleTangent(n.dispersion.X()), halfAngleTangent(n.dispersion.Y())}
	} else {
		n.nozzleShape = n.dispersion
	}
}

func halfAngleTangent(deg float32) float32 {
	return float32(math.Tan(float64(mgl32.DegToRad(deg / 2))))
}

// NozzleMatrix maps nozzle-local coordinates into the emitter's local space. It is cached
// against the nozzle and emitter revisions and only recomputed when either has changed.
// Once the nozzle is destroyed the last matrix is kept.
func (n *HoseNavigator) NozzleMatrix() mgl32.Mat4 {
	if n.nozzle == nil || n.nozzle.IsDestroyed() {
		return n.nozzleMatrix
	}
	nozzleRev := n.nozzle.Revision()
	var emitterRev uint64
	emitterGlobalInv := mgl32.Ident4()
	if n.emitter != nil {
		emitterRev = n.emitter.Node().Revision()
	}
	if n.matrixValid && nozzleRev == n.nozzleRev && emitterRev == n.emitterRev {
		return n.nozzleMatrix
	}
	if n.emitter != nil {
		emitterGlobalInv = n.emitter.Node().GlobalMatrixInverted()
	}
	n.nozzleMatrix = emitterGlobalInv.Mul4(n.nozzle.GlobalMatrix())
	n.nozzleRev, n.emitterRev = nozzleRev, emitterRev
	n.matrixValid = true
	n.recomputes++
	return n.nozzleMatrix
}

// SampleDirection draws a unit launch direction in nozzle-local space.
func (n *HoseNavigator) SampleDirection() mgl32.Vec3 {
	rng := n.random()
	x := randomBetween(rng, -n.nozzleShape.X(), n.nozzleShape.X())
	y := randomBetween(rng, -n.nozzleShape.Y(), n.nozzleShape.Y())
	if !n.precalcNozzleTangents {
		x = halfAngleTangent(x)
		y = halfAngleTangent(y)
	}
	return mgl32.Vec3{x, y, 1}.Normalize()
}

// InitializeParticle sets the life span, places the particle at the nozzle and, for
// particles with a velocity, launches it inside the dispersion cone.
func (n *HoseNavigator) InitializeParticle(p Particle) {
	n.RandomMortalNavigator.InitializeParticle(p)

	m := n.NozzleMatrix()
	p.Mesh().SetLocation(core.TransformLocation(m, mgl32.Vec3{}))

	if moving, ok := p.(VelocitySetter); ok {
		speed := randomBetween(n.random(), n.MinSpeed, n.MaxSpeed)
		v := n.SampleDirection().Mul(speed)
		moving.SetVelocity(core.TransformDirection(m, v))
	}
}
