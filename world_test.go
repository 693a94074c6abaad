package meshfx

import (
	"testing"
	"time"

	"github.com/gekko3d/meshfx/core"
	"github.com/gekko3d/meshfx/particles"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFountainWorld(t *testing.T) *World {
	t.Helper()
	def, err := ParseScene([]byte(fountainScene))
	require.NoError(t, err)
	w, err := NewWorld(def, nil)
	require.NoError(t, err)
	return w
}

func TestNewWorldBuildsEmitters(t *testing.T) {
	w := newFountainWorld(t)
	require.Len(t, w.Emitters(), 2)

	f := w.Emitter("fountain")
	require.NotNil(t, f)
	assert.Same(t, w.Root, f.Node().Parent())
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, f.Node().Position())
	assert.Len(t, f.Templates(), 2)
	assert.Equal(t, 200, f.MaxCapacity())
	assert.InDelta(t, 50, f.EmissionRate(), 1e-3)
	assert.True(t, f.IsEmitting())

	hose, ok := f.Navigator().(*particles.HoseNavigator)
	require.True(t, ok)
	assert.Equal(t, "fountain-Nozzle", hose.Nozzle().Name())
	assert.Equal(t, mgl32.Vec2{20, 20}, hose.DispersionAngle())

	assert.Nil(t, w.Emitter("missing"))
}

func TestWorldFountainLaunchesUpward(t *testing.T) {
	w := newFountainWorld(t)
	f := w.Emitter("fountain")

	w.Step(0.1)
	require.Greater(t, f.ParticleCount(), 0)
	for _, p := range f.Particles() {
		ep := p.(*particles.EvolvingParticle)
		assert.Greater(t, ep.Velocity().Y(), float32(0))
		assert.Less(t, ep.ColorVelocity()[3], float32(0))
		assert.Equal(t, mgl32.Vec3{0, 180, 0}, ep.RotationVelocity())
	}
	require.NoError(t, f.CheckInvariants())
}

func TestWorldRemovesFinishedEmitters(t *testing.T) {
	w := newFountainWorld(t)
	var removed []string
	w.OnRemove = func(e *particles.Emitter) { removed = append(removed, e.Name()) }

	// 2s of emission plus at most 1.5s of particle life
	for i := 0; i < 40; i++ {
		w.Step(0.1)
	}
	assert.Equal(t, []string{"fountain"}, removed)
	require.Len(t, w.Emitters(), 1)
	assert.Equal(t, "emitter-1", w.Emitters()[0].Name())
	assert.Equal(t, uint64(40), w.Frame())
}

func TestWorldStepIsDeterministicWithSeed(t *testing.T) {
	run := func() []float32 {
		w := newFountainWorld(t)
		for i := 0; i < 5; i++ {
			w.Step(0.05)
		}
		var out []float32
		for _, p := range w.Emitter("fountain").Particles() {
			out = append(out, p.Mesh().Location().Y())
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestWorldStats(t *testing.T) {
	def, err := ParseScene([]byte(`
emitters:
  - name: burst
    templates: [{shape: quad}]
    emission: {burst: 4, autoplay: false}
    navigator: {life_span: [5, 5]}
`))
	require.NoError(t, err)
	w, err := NewWorld(def, core.NewNopLogger())
	require.NoError(t, err)

	stats := w.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, EmitterStats{Name: "burst", Particles: 4, Capacity: 100, Vertices: 16, Indices: 24}, stats[0])
}

func TestWorldTickUsesClock(t *testing.T) {
	now := time.Unix(100, 0)
	w := newFountainWorld(t)
	w.Clock = NewClock(func() time.Time { return now })

	now = now.Add(200 * time.Millisecond)
	dt := w.Tick()
	assert.InDelta(t, 0.2, dt, 1e-6)
	assert.InDelta(t, 0.2, w.Emitter("fountain").ElapsedTime(), 1e-6)
}

func TestWorldSkipsUnseenWithView(t *testing.T) {
	w := newFountainWorld(t)
	// a camera looking away from the fountain
	proj := mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 50)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{0, 0, 20}, mgl32.Vec3{0, 1, 0})
	w.View = core.NewFrustum(proj.Mul4(view))

	w.Step(0.1)
	f := w.Emitter("fountain")
	require.Greater(t, f.ParticleCount(), 0)
	for _, p := range f.Particles() {
		assert.True(t, p.Mesh().IsTransformDirty())
	}
}

func TestWorldHiddenEmitterLeavesVerticesAlone(t *testing.T) {
	def, err := ParseScene([]byte(`
seed: 3
emitters:
  - name: hidden
    emission: {rate: 20}
    visibility: {hidden: true}
  - name: picked
    emission: {rate: 20}
    visibility: {hidden: true, touchable: true}
`))
	require.NoError(t, err)
	w, err := NewWorld(def, nil)
	require.NoError(t, err)

	w.Step(0.2)
	hidden, picked := w.Emitter("hidden"), w.Emitter("picked")
	assert.False(t, hidden.IsVisible())
	assert.True(t, picked.IsTouchable())
	require.Greater(t, hidden.ParticleCount(), 0)
	require.Greater(t, picked.ParticleCount(), 0)
	for _, p := range hidden.Particles() {
		assert.True(t, p.Mesh().IsTransformDirty())
	}
	for _, p := range picked.Particles() {
		assert.False(t, p.Mesh().IsTransformDirty())
	}
}
