package particles

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sort"

	"github.com/gekko3d/meshfx/core"
	"github.com/gekko3d/meshfx/mesh"
	"github.com/google/uuid"
)

var ErrCapacityExhausted = errors.New("emitter: particle capacity exhausted")

// Infinite marks an emission interval or duration that never elapses.
const Infinite float32 = math.MaxFloat32

const (
	DefaultCapacityIncrement = 100
)

type Config struct {
	Name      string
	Node      *core.Node
	Templates []mesh.Template
	// NewParticle builds particles for the emitter to fill. Defaults to NewMortalParticle.
	NewParticle func() Particle
	Navigator   Navigator
	// OnInitialize runs for every emitted particle after its navigator and Initialize.
	OnInitialize func(p Particle)

	// MaxCapacity bounds the number of live particles. Zero means unlimited.
	MaxCapacity       int
	CapacityIncrement int
	// EmissionRate is in particles per second. Zero means no automatic emission.
	EmissionRate float32
	// EmissionDuration is in seconds. Zero means forever.
	EmissionDuration float32

	// MaxVertices and MaxIndices bound the shared arena. Zero means unlimited.
	MaxVertices int
	MaxIndices  int

	// FixedBounds, when set, is the emitter-local volume used for visibility instead of
	// the measured particle extents.
	FixedBounds *core.AABB
	// TransformUnseen keeps transforming particles that are outside the view volume.
	TransformUnseen bool
	// Hidden emitters that are not Touchable leave particle vertices untransformed.
	Hidden           bool
	Touchable        bool
	RemoveOnFinish   bool
	VerifyInvariants bool

	Rand   *rand.Rand
	Logger core.Logger
}

// Emitter owns one shared vertex and index arena holding every live particle, so the whole
// emitter draws with a single call.
//
// particles[:particleCount] are live, in arena order. Entries past particleCount are
// removed particles kept for reuse.
type Emitter struct {
	id   string
	name string
	node *core.Node
	log  core.Logger
	rng  *rand.Rand

	templates []mesh.Template
	arena     *mesh.Arena

	particles     []Particle
	particleCount int

	newParticle  func() Particle
	navigator    Navigator
	onInitialize func(p Particle)

	maxCapacity       int
	capacityIncrement int
	currentCapacity   int
	maxVertices       int
	maxIndices        int

	emissionInterval  float32
	emissionDuration  float32
	elapsedTime       float32
	timeSinceEmission float32
	isEmitting        bool
	wasStarted        bool

	fixedBounds      *core.AABB
	transformUnseen  bool
	visible          bool
	touchable        bool
	removeOnFinish   bool
	verifyInvariants bool

	lastErr error
}

func NewEmitter(cfg Config) *Emitter {
	e := &Emitter{
		id:                uuid.NewString(),
		name:              cfg.Name,
		node:              cfg.Node,
		log:               core.OrNop(cfg.Logger),
		rng:               cfg.Rand,
		newParticle:       cfg.NewParticle,
		onInitialize:      cfg.OnInitialize,
		maxCapacity:       cfg.MaxCapacity,
		capacityIncrement: cfg.CapacityIncrement,
		maxVertices:       cfg.MaxVertices,
		maxIndices:        cfg.MaxIndices,
		emissionDuration:  cfg.EmissionDuration,
		fixedBounds:       cfg.FixedBounds,
		transformUnseen:   cfg.TransformUnseen,
		visible:           !cfg.Hidden,
		touchable:         cfg.Touchable,
		removeOnFinish:    cfg.RemoveOnFinish,
		verifyInvariants:  cfg.VerifyInvariants,
	}
	if e.name == "" {
		e.name = "emitter-" + e.id[:8]
	}
	if e.node == nil {
		e.node = core.NewNode(e.name)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(rand.Int63()))
	}
	if e.newParticle == nil {
		e.newParticle = func() Particle { return NewMortalParticle() }
	}
	if e.capacityIncrement <= 0 {
		e.capacityIncrement = DefaultCapacityIncrement
	}
	if e.emissionDuration <= 0 {
		e.emissionDuration = Infinite
	}
	e.SetEmissionRate(cfg.EmissionRate)
	for _, t := range cfg.Templates {
		e.AddTemplate(t)
	}
	if cfg.Navigator != nil {
		e.SetNavigator(cfg.Navigator)
	}
	return e
}

func (e *Emitter) ID() string                 { return e.id }
func (e *Emitter) Name() string               { return e.name }
func (e *Emitter) Node() *core.Node           { return e.node }
func (e *Emitter) Rand() *rand.Rand           { return e.rng }
func (e *Emitter) Logger() core.Logger        { return e.log }
func (e *Emitter) Navigator() Navigator       { return e.navigator }
func (e *Emitter) ParticleCount() int         { return e.particleCount }
func (e *Emitter) LastError() error           { return e.lastErr }
func (e *Emitter) Arena() *mesh.Arena         { return e.arena }
func (e *Emitter) ShouldRemoveOnFinish() bool { return e.removeOnFinish }

func (e *Emitter) IsVisible() bool         { return e.visible }
func (e *Emitter) SetVisible(visible bool) { e.visible = visible }
func (e *Emitter) IsTouchable() bool       { return e.touchable }
func (e *Emitter) SetTouchable(t bool)     { e.touchable = t }

// shouldTransformParticles reports whether drawn or picked vertices are needed at all.
// Particles skipped here stay dirty until the emitter is shown again.
func (e *Emitter) shouldTransformParticles() bool { return e.visible || e.touchable }

// VertexCount is the number of arena vertices used by live particles.
func (e *Emitter) VertexCount() int {
	if e.arena == nil {
		return 0
	}
	return e.arena.VertexCount()
}

// VertexIndexCount is the number of arena indices used by live particles. Zero means the
// emitter draws non-indexed.
func (e *Emitter) VertexIndexCount() int {
	if e.arena == nil {
		return 0
	}
	return e.arena.IndexCount()
}

// Particles returns the live particles in arena order. The slice is only valid until the
// next mutation of the emitter.
func (e *Emitter) Particles() []Particle { return e.particles[:e.particleCount] }

func (e *Emitter) ParticleAt(i int) Particle {
	if i < 0 || i >= e.particleCount {
		return nil
	}
	return e.particles[i]
}

func (e *Emitter) SetNavigator(n Navigator) {
	e.navigator = n
	if n != nil {
		n.SetEmitter(e)
	}
}

func (e *Emitter) Templates() []mesh.Template { return e.templates }

// AddTemplate registers a template particles may be spawned from. All templates of one
// emitter must agree on whether they are indexed.
func (e *Emitter) AddTemplate(t mesh.Template) {
	if t == nil {
		return
	}
	e.ensureArena(t)
	e.templates = append(e.templates, t)
	e.log.Debugf("emitter %s: template %q added (%d vertices, %d indices)", e.name, t.Name(), t.VertexCount(), t.VertexIndexCount())
}

// ensureArena creates the arena on first use, indexed iff t is.
func (e *Emitter) ensureArena(t mesh.Template) {
	if e.arena == nil {
		e.arena = mesh.NewArena(mesh.ArenaConfig{
			Indexed:     t.HasVertexIndices(),
			MaxVertices: e.maxVertices,
			MaxIndices:  e.maxIndices,
		})
		return
	}
	if e.arena.Indexed() != t.HasVertexIndices() {
		panic(fmt.Sprintf("emitter %s: template %q indexed=%v does not match arena indexed=%v",
			e.name, t.Name(), t.HasVertexIndices(), e.arena.Indexed()))
	}
}

func (e *Emitter) selectTemplate() mesh.Template {
	switch len(e.templates) {
	case 0:
		return nil
	case 1:
		return e.templates[0]
	}
	return e.templates[e.rng.Intn(len(e.templates))]
}

// MaxCapacity is the live particle limit. Zero means unlimited.
func (e *Emitter) MaxCapacity() int { return e.maxCapacity }

func (e *Emitter) SetMaxCapacity(n int) { e.maxCapacity = max(n, 0) }

// CurrentCapacity is the number of particles storage has been grown to hold.
func (e *Emitter) CurrentCapacity() int { return e.currentCapacity }

func (e *Emitter) IsFull() bool {
	return e.maxCapacity > 0 && e.particleCount >= e.maxCapacity
}

func (e *Emitter) ensureParticleCapacity() {
	if e.particleCount < e.currentCapacity {
		return
	}
	capacity := e.currentCapacity + e.capacityIncrement
	if e.maxCapacity > 0 {
		capacity = min(capacity, e.maxCapacity)
	}
	e.particles = slices.Grow(e.particles, max(capacity-len(e.particles), 0))
	e.log.Debugf("emitter %s: particle capacity %d -> %d", e.name, e.currentCapacity, capacity)
	e.currentCapacity = capacity
}

// EmissionInterval is the time between automatic emissions.
func (e *Emitter) EmissionInterval() float32 { return e.emissionInterval }

func (e *Emitter) SetEmissionInterval(seconds float32) {
	e.emissionInterval = max(seconds, 0)
}

// EmissionRate is in particles per second.
func (e *Emitter) EmissionRate() float32 {
	switch e.emissionInterval {
	case Infinite:
		return 0
	case 0:
		return float32(math.Inf(1))
	}
	return 1 / e.emissionInterval
}

func (e *Emitter) SetEmissionRate(perSecond float32) {
	switch {
	case perSecond <= 0:
		e.emissionInterval = Infinite
	case math.IsInf(float64(perSecond), 1):
		e.emissionInterval = 0
	default:
		e.emissionInterval = 1 / perSecond
	}
}

func (e *Emitter) EmissionDuration() float32 { return e.emissionDuration }

func (e *Emitter) SetEmissionDuration(seconds float32) {
	if seconds <= 0 {
		seconds = Infinite
	}
	e.emissionDuration = seconds
}

// ElapsedTime is the time spent emitting since the last Play.
func (e *Emitter) ElapsedTime() float32 { return e.elapsedTime }

func (e *Emitter) IsEmitting() bool { return e.isEmitting }

// Play starts automatic emission from the beginning of its duration.
func (e *Emitter) Play() {
	e.elapsedTime = 0
	e.timeSinceEmission = 0
	e.isEmitting = true
	e.wasStarted = true
}

// Pause stops automatic emission. Live particles keep evolving.
func (e *Emitter) Pause() { e.isEmitting = false }

// Stop stops emission and removes every particle.
func (e *Emitter) Stop() {
	e.Pause()
	e.RemoveAllParticles()
}

// IsActive reports whether the emitter is emitting or still has live particles.
func (e *Emitter) IsActive() bool { return e.isEmitting || e.particleCount > 0 }

// IsFinished reports whether a played emitter has stopped emitting and every particle died.
func (e *Emitter) IsFinished() bool { return e.wasStarted && !e.IsActive() }

func (e *Emitter) fail(err error) {
	e.lastErr = err
}

// AcquireParticle returns a removed particle for reuse or makes a new one, with a template
// assigned. The particle is not yet emitted.
func (e *Emitter) AcquireParticle() Particle {
	var p Particle
	if e.particleCount < len(e.particles) {
		p = e.particles[e.particleCount]
	} else {
		p = e.newParticle()
	}
	mp := p.Mesh()
	if mp.template == nil {
		mp.template = e.selectTemplate()
	}
	return p
}

// EmitParticle emits one particle from the emitter's templates. It returns false when the
// emitter is full or its arena cannot grow.
func (e *Emitter) EmitParticle() bool {
	if e.IsFull() {
		e.fail(ErrCapacityExhausted)
		e.log.Warnf("emitter %s: %v (max %d)", e.name, ErrCapacityExhausted, e.maxCapacity)
		return false
	}
	return e.Emit(e.AcquireParticle())
}

// EmitParticles emits up to n particles and returns how many were emitted.
func (e *Emitter) EmitParticles(n int) int {
	emitted := 0
	for ; emitted < n; emitted++ {
		if !e.EmitParticle() {
			break
		}
	}
	return emitted
}

// Emit emits a caller-supplied particle. A particle without a template gets one of the
// emitter's templates. Emitting with no template available anywhere panics.
//
// The particle is appended to the arena, reset, passed to the navigator, its Initialize
// and the OnInitialize hook. If any of these kills it, the emission is rolled back and
// Emit returns false.
func (e *Emitter) Emit(p Particle) bool {
	if p == nil {
		return false
	}
	mp := p.Mesh()
	if mp.emitter != nil && mp.emitter != e {
		panic(fmt.Sprintf("emitter %s: particle belongs to emitter %s", e.name, mp.emitter.name))
	}
	if mp.isAlive && mp.emitter == e {
		return false
	}
	if e.IsFull() {
		e.fail(ErrCapacityExhausted)
		return false
	}
	if mp.template == nil {
		mp.template = e.selectTemplate()
	}
	if mp.template == nil {
		panic(fmt.Sprintf("emitter %s: no template mesh to emit particles from", e.name))
	}
	e.ensureArena(mp.template)

	e.ensureParticleCapacity()
	e.addNewParticle(p)

	firstVertex, firstIndex, err := e.arena.Append(mp.template)
	if err != nil {
		e.fail(err)
		e.log.Warnf("emitter %s: %v", e.name, err)
		return false
	}
	mp.reset(e, firstVertex, firstIndex)

	if e.navigator != nil {
		e.navigator.InitializeParticle(p)
	}
	p.Initialize()
	if e.onInitialize != nil {
		e.onInitialize(p)
	}

	if !mp.isAlive {
		e.arena.Truncate(firstVertex, firstIndex)
		mp.template = nil
		return false
	}
	e.particleCount++
	return true
}

// addNewParticle places p at the first position past the live particles.
func (e *Emitter) addNewParticle(p Particle) {
	mp := p.Mesh()
	pos := e.particleCount
	if mp.emitter == e && mp.index >= pos && mp.index < len(e.particles) && e.particles[mp.index] == p {
		if mp.index != pos {
			e.swapSlots(mp.index, pos)
		}
		return
	}
	e.particles = slices.Insert(e.particles, pos, p)
	mp.emitter = e
	for i := pos; i < len(e.particles); i++ {
		e.particles[i].Mesh().index = i
	}
}

func (e *Emitter) swapSlots(i, j int) {
	e.particles[i], e.particles[j] = e.particles[j], e.particles[i]
	e.particles[i].Mesh().index = i
	e.particles[j].Mesh().index = j
}

// RemoveParticle removes a live particle immediately. Removing a particle that is not live
// in this emitter does nothing.
func (e *Emitter) RemoveParticle(p Particle) {
	if p == nil {
		return
	}
	mp := p.Mesh()
	if mp.emitter != e || mp.index < 0 || mp.index >= e.particleCount || e.particles[mp.index] != p {
		return
	}
	e.removeParticle(p, mp.index)
}

// RemoveAllParticles removes every live particle.
func (e *Emitter) RemoveAllParticles() {
	for e.particleCount > 0 {
		i := e.particleCount - 1
		e.removeParticle(e.particles[i], i)
	}
}

// removeParticle removes the particle at pos and compacts the arena so the remaining
// particles stay contiguous and in collection order. pos at or past the live count is a
// no-op.
//
// When the last live particle has the same vertex and index counts, it is moved into the
// hole and p becomes the cached slot after the live range. Otherwise every later particle's
// content is shifted down over the hole and p is dropped.
func (e *Emitter) removeParticle(p Particle, pos int) {
	if pos < 0 || pos >= e.particleCount {
		return
	}
	mp := p.Mesh()
	e.particleCount--
	last := e.particleCount

	vertexEnd := e.arena.VertexCount() - mp.vertexCount
	indexEnd := e.arena.IndexCount() - mp.vertexIndexCount

	switch {
	case pos == last:
		e.log.Debugf("emitter %s: removed last particle", e.name)

	case e.particles[last].Mesh().vertexCount == mp.vertexCount &&
		e.particles[last].Mesh().vertexIndexCount == mp.vertexIndexCount:
		lp := e.particles[last].Mesh()
		deadVertex, deadIndex := mp.firstVertexOffset, mp.firstVertexIndexOffset
		lastVertex, lastIndex := lp.firstVertexOffset, lp.firstVertexIndexOffset

		e.arena.MoveVertices(deadVertex, lastVertex, lp.vertexCount)
		if mp.template != lp.template {
			e.arena.MoveIndices(deadIndex, lastIndex, lp.vertexIndexCount, deadVertex-lastVertex)
		}

		lp.firstVertexOffset, mp.firstVertexOffset = deadVertex, lastVertex
		lp.firstVertexIndexOffset, mp.firstVertexIndexOffset = deadIndex, lastIndex
		e.swapSlots(pos, last)
		e.log.Debugf("emitter %s: removed particle %d by swap with %d", e.name, pos, last)

	default:
		deadVertex, deadIndex := mp.firstVertexOffset, mp.firstVertexIndexOffset
		deadVertexEnd := deadVertex + mp.vertexCount
		deadIndexEnd := deadIndex + mp.vertexIndexCount

		e.arena.MoveVertices(deadVertex, deadVertexEnd, e.arena.VertexCount()-deadVertexEnd)
		e.arena.MoveIndices(deadIndex, deadIndexEnd, e.arena.IndexCount()-deadIndexEnd, -mp.vertexCount)

		e.particles = slices.Delete(e.particles, pos, pos+1)
		for i := pos; i < len(e.particles); i++ {
			q := e.particles[i].Mesh()
			q.index = i
			if i < e.particleCount {
				q.firstVertexOffset -= mp.vertexCount
				q.firstVertexIndexOffset -= mp.vertexIndexCount
			}
		}
		mp.emitter = nil
		mp.index = -1
		e.log.Debugf("emitter %s: removed particle %d by compaction (%d vertices)", e.name, pos, mp.vertexCount)
	}

	e.arena.Truncate(vertexEnd, indexEnd)
	mp.isAlive = false
	mp.template = nil
	p.Finalize()
}

// Update runs one frame: emission, particle advance, removal of dead particles and vertex
// transformation. Particles outside view are not transformed unless the emitter has fixed
// bounds or transforms unseen particles. A nil view counts as everything visible.
func (e *Emitter) Update(dt float32, view core.ViewVolume) {
	e.checkDuration(dt)
	e.checkEmission(dt)

	for i := 0; i < e.particleCount; i++ {
		e.particles[i].UpdateBeforeTransform(dt)
	}

	for i := 0; i < e.particleCount; {
		p := e.particles[i]
		if p.Mesh().isAlive {
			i++
			continue
		}
		e.removeParticle(p, i)
	}

	skipUnseen := view != nil && e.fixedBounds == nil && !e.transformUnseen
	global := e.node.GlobalMatrix()
	for i := 0; e.shouldTransformParticles() && i < e.particleCount; i++ {
		mp := e.particles[i].Mesh()
		if !mp.isTransformDirty && !mp.isColorDirty {
			continue
		}
		if skipUnseen && !view.IntersectsAABB(mp.Bounds().Transform(global)) {
			continue
		}
		mp.TransformVertices()
	}

	if e.verifyInvariants {
		if err := e.CheckInvariants(); err != nil {
			panic(err)
		}
	}
}

func (e *Emitter) checkDuration(dt float32) {
	if !e.isEmitting {
		return
	}
	e.elapsedTime += dt
	if e.elapsedTime >= e.emissionDuration {
		e.Pause()
	}
}

// checkEmission emits one particle per elapsed interval. With a zero interval the emitter
// fills up to its capacity, or one capacity increment per update when unlimited.
func (e *Emitter) checkEmission(dt float32) {
	if !e.isEmitting || e.emissionInterval == Infinite {
		return
	}
	if e.emissionInterval == 0 {
		n := e.capacityIncrement
		if e.maxCapacity > 0 {
			n = e.maxCapacity - e.particleCount
		}
		e.EmitParticles(n)
		return
	}
	e.timeSinceEmission += dt
	for !e.IsFull() && e.timeSinceEmission >= e.emissionInterval {
		e.timeSinceEmission -= e.emissionInterval
		if !e.EmitParticle() {
			break
		}
	}
}

// Bounds is the emitter-local volume holding its particles: the fixed bounds when set,
// otherwise measured from the drawn vertices.
func (e *Emitter) Bounds() core.AABB {
	if e.fixedBounds != nil {
		return *e.fixedBounds
	}
	if e.arena == nil {
		return core.EmptyAABB()
	}
	return e.arena.Bounds()
}

// GlobalBounds is Bounds in world space.
func (e *Emitter) GlobalBounds() core.AABB {
	return e.Bounds().Transform(e.node.GlobalMatrix())
}

// ParticleWithVertexAt returns the live particle owning arena vertex vi.
func (e *Emitter) ParticleWithVertexAt(vi int) Particle {
	live := e.particles[:e.particleCount]
	i := sort.Search(len(live), func(i int) bool {
		mp := live[i].Mesh()
		return mp.firstVertexOffset+mp.vertexCount > vi
	})
	if i >= len(live) || vi < live[i].Mesh().firstVertexOffset {
		return nil
	}
	return live[i]
}

// ParticleWithVertexIndexAt returns the live particle owning arena index ii.
func (e *Emitter) ParticleWithVertexIndexAt(ii int) Particle {
	live := e.particles[:e.particleCount]
	i := sort.Search(len(live), func(i int) bool {
		mp := live[i].Mesh()
		return mp.firstVertexIndexOffset+mp.vertexIndexCount > ii
	})
	if i >= len(live) || ii < live[i].Mesh().firstVertexIndexOffset {
		return nil
	}
	return live[i]
}

// CheckInvariants verifies that live particles partition the arena vertices and indices
// contiguously in collection order, that every index resolves inside its own particle and
// that no dead particle is live.
func (e *Emitter) CheckInvariants() error {
	if e.particleCount > len(e.particles) {
		return fmt.Errorf("emitter %s: particle count %d exceeds collection %d", e.name, e.particleCount, len(e.particles))
	}
	nextVertex, nextIndex := 0, 0
	var indices []uint32
	if e.arena != nil {
		indices = e.arena.Indices()
	}
	for i, p := range e.particles[:e.particleCount] {
		mp := p.Mesh()
		switch {
		case !mp.isAlive:
			return fmt.Errorf("emitter %s: particle %d is dead but live", e.name, i)
		case mp.emitter != e:
			return fmt.Errorf("emitter %s: particle %d belongs to another emitter", e.name, i)
		case mp.index != i:
			return fmt.Errorf("emitter %s: particle %d records position %d", e.name, i, mp.index)
		case mp.firstVertexOffset != nextVertex:
			return fmt.Errorf("emitter %s: particle %d starts at vertex %d, want %d", e.name, i, mp.firstVertexOffset, nextVertex)
		case mp.firstVertexIndexOffset != nextIndex:
			return fmt.Errorf("emitter %s: particle %d starts at index %d, want %d", e.name, i, mp.firstVertexIndexOffset, nextIndex)
		}
		for j := nextIndex; j < nextIndex+mp.vertexIndexCount; j++ {
			local := int(indices[j]) - mp.firstVertexOffset
			if local < 0 || local >= mp.vertexCount {
				return fmt.Errorf("emitter %s: particle %d index %d value %d outside its vertices [%d, %d)",
					e.name, i, j, indices[j], mp.firstVertexOffset, mp.firstVertexOffset+mp.vertexCount)
			}
		}
		nextVertex += mp.vertexCount
		nextIndex += mp.vertexIndexCount
	}
	if nextVertex != e.VertexCount() || nextIndex != e.VertexIndexCount() {
		return fmt.Errorf("emitter %s: particles cover (%d, %d), arena holds (%d, %d)",
			e.name, nextVertex, nextIndex, e.VertexCount(), e.VertexIndexCount())
	}
	return nil
}
