package particles

import (
	"math/rand"
	"testing"

	"github.com/gekko3d/meshfx/core"
	"github.com/gekko3d/meshfx/mesh"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHoseEmitter(t *testing.T, nav *HoseNavigator) *Emitter {
	t.Helper()
	return newTestEmitter(t, Config{
		Name:        "hose",
		Templates:   []mesh.Template{fanMesh("fan", 3, 0)},
		NewParticle: func() Particle { return NewSprayParticle() },
		Navigator:   nav,
	})
}

func TestRandomMortalNavigatorRange(t *testing.T) {
	nav := NewRandomMortalNavigator(1, 3)
	nav.SetRand(rand.New(rand.NewSource(3)))
	for i := 0; i < 100; i++ {
		p := NewMortalParticle()
		nav.InitializeParticle(p)
		assert.GreaterOrEqual(t, p.LifeSpan(), float32(1))
		assert.LessOrEqual(t, p.LifeSpan(), float32(3))
	}

	// particles without a life span are left alone
	nav.InitializeParticle(NewMeshParticle())
}

func TestHoseNozzleAttachesToEmitter(t *testing.T) {
	nav := NewHoseNavigator()
	e := newHoseEmitter(t, nav)

	assert.Equal(t, "hose-Nozzle", nav.Nozzle().Name())
	assert.Same(t, e.Node(), nav.Nozzle().Parent())
	assert.Same(t, e, nav.Emitter())
}

func TestHoseZeroDispersionLaunchesForward(t *testing.T) {
	nav := NewHoseNavigator()
	nav.MinSpeed, nav.MaxSpeed = 4, 4
	nav.SetDispersionAngle(mgl32.Vec2{0, 0})
	e := newHoseEmitter(t, nav)

	for i := 0; i < 10; i++ {
		require.True(t, e.EmitParticle())
		p := e.ParticleAt(i).(*SprayParticle)
		assert.True(t, p.Velocity().ApproxEqual(mgl32.Vec3{0, 0, 4}), "velocity %v", p.Velocity())
		assert.Equal(t, mgl32.Vec3{}, p.Location())
	}
	d := nav.SampleDirection()
	assert.True(t, d.ApproxEqual(mgl32.Vec3{0, 0, 1}))
}

func TestHoseConstantSpeedMagnitude(t *testing.T) {
	nav := NewHoseNavigator()
	nav.MinSpeed, nav.MaxSpeed = 3, 3
	nav.SetDispersionAngle(mgl32.Vec2{60, 30})
	e := newHoseEmitter(t, nav)
	nav.Nozzle().SetEulerRotation(mgl32.Vec3{0, 90, 0})

	for i := 0; i < 50; i++ {
		require.True(t, e.EmitParticle())
		v := e.ParticleAt(i).(*SprayParticle).Velocity()
		assert.InDelta(t, 3, v.Len(), 1e-4)
		// the nozzle points along +X, a 30 degree half-cone keeps X dominant
		assert.Greater(t, v.X(), float32(0))
	}
}

func TestHoseDirectionStaysInsideCone(t *testing.T) {
	for _, precalc := range []bool{true, false} {
		nav := NewHoseNavigator()
		nav.SetRand(rand.New(rand.NewSource(11)))
		nav.SetDispersionAngle(mgl32.Vec2{40, 20})
		nav.SetShouldPrecalculateNozzleTangents(precalc)
		assert.Equal(t, precalc, nav.ShouldPrecalculateNozzleTangents())

		tx, ty := halfAngleTangent(40), halfAngleTangent(20)
		for i := 0; i < 200; i++ {
			d := nav.SampleDirection()
			assert.InDelta(t, 1, d.Len(), 1e-5)
			require.Greater(t, d.Z(), float32(0))
			assert.LessOrEqual(t, abs32(d.X()/d.Z()), tx+1e-5)
			assert.LessOrEqual(t, abs32(d.Y()/d.Z()), ty+1e-5)
		}
	}
}

func TestHoseTangentModeSelection(t *testing.T) {
	nav := NewHoseNavigator()
	assert.True(t, nav.ShouldPrecalculateNozzleTangents())
	assert.Equal(t, mgl32.Vec2{DefaultDispersionWidth, DefaultDispersionHeight}, nav.DispersionAngle())

	nav.SetDispersionAngle(mgl32.Vec2{120, 10})
	assert.False(t, nav.ShouldPrecalculateNozzleTangents())

	nav.SetShouldPrecalculateNozzleTangents(true)
	assert.True(t, nav.ShouldPrecalculateNozzleTangents())

	nav.SetDispersionAngle(mgl32.Vec2{180, 10})
	nav.SetShouldPrecalculateNozzleTangents(true)
	assert.False(t, nav.ShouldPrecalculateNozzleTangents())
}

func TestNozzleMatrixIsLazy(t *testing.T) {
	nav := NewHoseNavigator()
	e := newHoseEmitter(t, nav)

	m := nav.NozzleMatrix()
	assert.True(t, m.ApproxEqual(mgl32.Ident4()))
	assert.Equal(t, 1, nav.recomputes)

	nav.NozzleMatrix()
	nav.NozzleMatrix()
	assert.Equal(t, 1, nav.recomputes)

	nav.Nozzle().SetPosition(mgl32.Vec3{0, 2, 0})
	m = nav.NozzleMatrix()
	assert.Equal(t, 2, nav.recomputes)
	assert.True(t, core.TransformLocation(m, mgl32.Vec3{}).ApproxEqual(mgl32.Vec3{0, 2, 0}))

	// moving the emitter changes neither the nozzle's relative placement nor laziness
	e.Node().SetPosition(mgl32.Vec3{10, 0, 0})
	m = nav.NozzleMatrix()
	assert.Equal(t, 3, nav.recomputes)
	assert.True(t, core.TransformLocation(m, mgl32.Vec3{}).ApproxEqualThreshold(mgl32.Vec3{0, 2, 0}, 1e-5))
	nav.NozzleMatrix()
	assert.Equal(t, 3, nav.recomputes)
}

func TestNozzleMatrixWithDetachedNozzle(t *testing.T) {
	nav := NewHoseNavigator()
	world := core.NewNode("world")
	nozzle := core.NewNode("nozzle")
	world.AddChild(nozzle)
	nozzle.SetPosition(mgl32.Vec3{0, 10, 0})
	nav.SetNozzle(nozzle)

	e := newHoseEmitter(t, nav)
	world.AddChild(e.Node())
	e.Node().SetPosition(mgl32.Vec3{5, 0, 0})
	assert.Same(t, world, nozzle.Parent())

	m := nav.NozzleMatrix()
	assert.True(t, core.TransformLocation(m, mgl32.Vec3{}).ApproxEqualThreshold(mgl32.Vec3{-5, 10, 0}, 1e-5))

	require.True(t, e.EmitParticle())
	assert.True(t, e.ParticleAt(0).Mesh().Location().ApproxEqualThreshold(mgl32.Vec3{-5, 10, 0}, 1e-5))
}

func TestNozzleMatrixFrozenAfterDestroy(t *testing.T) {
	nav := NewHoseNavigator()
	e := newHoseEmitter(t, nav)
	nav.Nozzle().SetPosition(mgl32.Vec3{1, 2, 3})
	frozen := nav.NozzleMatrix()
	count := nav.recomputes

	nav.Nozzle().Destroy()
	e.Node().SetPosition(mgl32.Vec3{7, 7, 7})
	assert.Equal(t, frozen, nav.NozzleMatrix())
	assert.Equal(t, count, nav.recomputes)

	require.True(t, e.EmitParticle())
	assert.True(t, e.ParticleAt(0).Mesh().Location().ApproxEqual(mgl32.Vec3{1, 2, 3}))
}

func TestNilNozzleLaunchesFromOrigin(t *testing.T) {
	nav := NewHoseNavigator()
	nav.MinSpeed, nav.MaxSpeed = 1, 1
	nav.SetDispersionAngle(mgl32.Vec2{})
	e := newHoseEmitter(t, nav)
	e.Node().SetPosition(mgl32.Vec3{3, 3, 3})
	nav.SetNozzle(nil)

	assert.Equal(t, mgl32.Ident4(), nav.NozzleMatrix())
	require.True(t, e.EmitParticle())
	p := e.ParticleAt(0).(*SprayParticle)
	assert.Equal(t, mgl32.Vec3{}, p.Location())
	assert.True(t, p.Velocity().ApproxEqual(mgl32.Vec3{0, 0, 1}))
}
