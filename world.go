package meshfx

import (
	"fmt"
	"math/rand"

	"github.com/gekko3d/meshfx/core"
	"github.com/gekko3d/meshfx/mesh"
	"github.com/gekko3d/meshfx/particles"
	"github.com/go-gl/mathgl/mgl32"
)

// World owns a set of emitters under one root node and advances them together.
type World struct {
	Clock *Clock
	Root  *core.Node
	// View limits vertex transformation to visible particles. nil treats everything as visible.
	View core.ViewVolume
	// OnRemove is called for each finished emitter the world drops.
	OnRemove func(e *particles.Emitter)

	emitters []*particles.Emitter
	log      core.Logger
	frame    uint64
}

// EmitterStats is a snapshot of one emitter's occupancy.
type EmitterStats struct {
	Name      string
	Particles int
	Capacity  int
	Vertices  int
	Indices   int
	Emitting  bool
}

// NewWorld builds every emitter of def. Emitters with a burst emit it immediately and, unless
// autoplay is disabled, start emitting.
func NewWorld(def *SceneDef, logger core.Logger) (*World, error) {
	w := &World{
		Clock: NewClock(nil),
		Root:  core.NewNode("world"),
		log:   core.OrNop(logger),
	}
	for i, ed := range def.Emitters {
		e, err := w.buildEmitter(ed, def.Seed, i)
		if err != nil {
			return nil, fmt.Errorf("emitter %s: %w", ed.Name, err)
		}
		w.AddEmitter(e)
		if ed.Emission.Burst > 0 {
			n := e.EmitParticles(ed.Emission.Burst)
			w.log.Debugf("emitter %s: burst of %d/%d particles", e.Name(), n, ed.Emission.Burst)
		}
		if ed.Emission.Autoplay == nil || *ed.Emission.Autoplay {
			e.Play()
		}
	}
	w.log.Infof("world created with %d emitters", len(w.emitters))
	return w, nil
}

func (w *World) buildEmitter(ed EmitterDef, seed int64, i int) (*particles.Emitter, error) {
	templates := make([]mesh.Template, 0, len(ed.Templates))
	for _, td := range ed.Templates {
		m, err := mesh.NewProceduralMesh(td.Shape, td.Params, td.Color)
		if err != nil {
			return nil, err
		}
		templates = append(templates, m)
	}

	var rng *rand.Rand
	if seed != 0 {
		rng = rand.New(rand.NewSource(seed + int64(i)))
	}

	node := core.NewNode(ed.Name)
	node.SetPosition(mgl32.Vec3(ed.Position))
	node.SetEulerRotation(mgl32.Vec3(ed.Rotation))

	var fixed *core.AABB
	if b := ed.Visibility.FixedBounds; b != nil {
		fixed = &core.AABB{Min: mgl32.Vec3(b.Min), Max: mgl32.Vec3(b.Max)}
	}

	return particles.NewEmitter(particles.Config{
		Name:              ed.Name,
		Node:              node,
		Templates:         templates,
		NewParticle:       particleFactory(ed.Particle),
		Navigator:         buildNavigator(ed.Navigator),
		OnInitialize:      particleInitializer(ed),
		MaxCapacity:       ed.Capacity.Max,
		CapacityIncrement: ed.Capacity.Increment,
		EmissionRate:      ed.Emission.Rate,
		EmissionDuration:  ed.Emission.Duration,
		MaxVertices:       ed.Arena.MaxVertices,
		MaxIndices:        ed.Arena.MaxIndices,
		FixedBounds:       fixed,
		TransformUnseen:   ed.Visibility.TransformUnseen,
		Hidden:            ed.Visibility.Hidden,
		Touchable:         ed.Visibility.Touchable,
		RemoveOnFinish:    ed.RemoveOnFinish,
		Rand:              rng,
		Logger:            w.log,
	}), nil
}

func particleFactory(kind string) func() particles.Particle {
	switch kind {
	case "spray":
		return func() particles.Particle { return particles.NewSprayParticle() }
	case "evolving":
		return func() particles.Particle { return particles.NewEvolvingParticle() }
	}
	return func() particles.Particle { return particles.NewMortalParticle() }
}

func buildNavigator(nd NavigatorDef) particles.Navigator {
	if nd.Kind != "hose" {
		return particles.NewRandomMortalNavigator(nd.LifeSpan[0], nd.LifeSpan[1])
	}
	h := particles.NewHoseNavigator()
	h.MinLifeSpan, h.MaxLifeSpan = nd.LifeSpan[0], nd.LifeSpan[1]
	h.MinSpeed, h.MaxSpeed = nd.Speed[0], nd.Speed[1]
	if nd.Dispersion != nil {
		h.SetDispersionAngle(mgl32.Vec2(*nd.Dispersion))
	}
	if nd.PrecalculateTangents != nil {
		h.SetShouldPrecalculateNozzleTangents(*nd.PrecalculateTangents)
	}
	if nz := nd.Nozzle; nz != nil {
		h.Nozzle().SetPosition(mgl32.Vec3(nz.Position))
		h.Nozzle().SetEulerRotation(mgl32.Vec3(nz.Rotation))
	}
	return h
}

// particleInitializer applies the per-particle settings navigators do not cover.
func particleInitializer(ed EmitterDef) func(particles.Particle) {
	scale := ed.Scale
	evo := ed.Evolution
	return func(p particles.Particle) {
		if scale != 1 {
			p.Mesh().SetUniformScale(scale)
		}
		ep, ok := p.(*particles.EvolvingParticle)
		if !ok {
			return
		}
		if evo.RotationAngleVelocity != 0 {
			ep.SetRotationAngleVelocity(evo.RotationAngleVelocity)
		} else {
			ep.SetRotationVelocity(mgl32.Vec3(evo.RotationVelocity))
		}
		cv := evo.ColorVelocity
		if evo.FadeOut && ep.LifeSpan() > 0 {
			cv[3] = -ep.Opacity() / ep.LifeSpan()
		}
		ep.SetColorVelocity(cv)
	}
}

// AddEmitter attaches e's node under the world root and updates e with the world.
func (w *World) AddEmitter(e *particles.Emitter) {
	if e.Node().Parent() == nil {
		w.Root.AddChild(e.Node())
	}
	w.emitters = append(w.emitters, e)
}

func (w *World) Emitters() []*particles.Emitter { return w.emitters }

func (w *World) Emitter(name string) *particles.Emitter {
	for _, e := range w.emitters {
		if e.Name() == name {
			return e
		}
	}
	return nil
}

func (w *World) Frame() uint64 { return w.frame }

// Tick advances the clock and steps the world by the measured delta.
func (w *World) Tick() float32 {
	w.Clock.Tick()
	dt := w.Clock.Seconds()
	w.Step(dt)
	return dt
}

// Step updates every emitter by dt seconds and drops finished emitters flagged for removal.
func (w *World) Step(dt float32) {
	w.frame++
	kept := w.emitters[:0]
	for _, e := range w.emitters {
		e.Update(dt, w.View)
		if e.ShouldRemoveOnFinish() && e.IsFinished() {
			w.log.Infof("emitter %s finished after %.2fs, removing", e.Name(), e.ElapsedTime())
			e.Node().Remove()
			if w.OnRemove != nil {
				w.OnRemove(e)
			}
			continue
		}
		kept = append(kept, e)
	}
	clear(w.emitters[len(kept):])
	w.emitters = kept
}

func (w *World) Stats() []EmitterStats {
	stats := make([]EmitterStats, 0, len(w.emitters))
	for _, e := range w.emitters {
		stats = append(stats, EmitterStats{
			Name:      e.Name(),
			Particles: e.ParticleCount(),
			Capacity:  e.CurrentCapacity(),
			Vertices:  e.VertexCount(),
			Indices:   e.VertexIndexCount(),
			Emitting:  e.IsEmitting(),
		})
	}
	return stats
}
