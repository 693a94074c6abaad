package particles

import (
	"github.com/gekko3d/meshfx/core"
	"github.com/go-gl/mathgl/mgl32"
)

// MortalParticle dies once its time to live runs out.
type MortalParticle struct {
	MeshParticle
	lifeSpan   float32
	timeToLive float32
}

func NewMortalParticle() *MortalParticle {
	return &MortalParticle{MeshParticle: *NewMeshParticle()}
}

func (p *MortalParticle) LifeSpan() float32   { return p.lifeSpan }
func (p *MortalParticle) TimeToLive() float32 { return p.timeToLive }

// SetLifeSpan sets both the life span and the remaining time to live.
func (p *MortalParticle) SetLifeSpan(seconds float32) {
	p.lifeSpan = seconds
	p.timeToLive = seconds
}

func (p *MortalParticle) UpdateBeforeTransform(dt float32) {
	if !p.isAlive {
		return
	}
	p.timeToLive -= dt
	if p.timeToLive <= 0 {
		p.isAlive = false
	}
}

// SprayParticle moves in a straight line at constant velocity.
type SprayParticle struct {
	MortalParticle
	velocity mgl32.Vec3
}

func NewSprayParticle() *SprayParticle {
	return &SprayParticle{MortalParticle: *NewMortalParticle()}
}

func (p *SprayParticle) Velocity() mgl32.Vec3     { return p.velocity }
func (p *SprayParticle) SetVelocity(v mgl32.Vec3) { p.velocity = v }

// UpdateBeforeTransform moves the particle over dt, then counts down its life.
func (p *SprayParticle) UpdateBeforeTransform(dt float32) {
	if !p.isAlive {
		return
	}
	if p.velocity != (mgl32.Vec3{}) {
		p.SetLocation(p.location.Add(p.velocity.Mul(dt)))
	}
	p.MortalParticle.UpdateBeforeTransform(dt)
}

// EvolvingParticle is a SprayParticle whose rotation and color change at constant rates.
//
// Rotation evolves either as Euler angles or as an angle about the current rotation axis,
// whichever velocity was set last. Color channels saturate at 0 and 1.
type EvolvingParticle struct {
	SprayParticle
	rotationVelocity      mgl32.Vec3
	rotationAngleVelocity float32
	evolveAngle           bool
	colorVelocity         [4]float32
}

func NewEvolvingParticle() *EvolvingParticle {
	return &EvolvingParticle{SprayParticle: *NewSprayParticle()}
}

// RotationVelocity is in degrees per second about each Euler axis.
func (p *EvolvingParticle) RotationVelocity() mgl32.Vec3 { return p.rotationVelocity }

func (p *EvolvingParticle) SetRotationVelocity(degPerSec mgl32.Vec3) {
	p.rotationVelocity = degPerSec
	p.evolveAngle = false
}

// RotationAngleVelocity is in degrees per second about the rotation axis.
func (p *EvolvingParticle) RotationAngleVelocity() float32 { return p.rotationAngleVelocity }

func (p *EvolvingParticle) SetRotationAngleVelocity(degPerSec float32) {
	p.rotationAngleVelocity = degPerSec
	p.evolveAngle = true
}

// ColorVelocity is the change of each RGBA channel per second.
func (p *EvolvingParticle) ColorVelocity() [4]float32      { return p.colorVelocity }
func (p *EvolvingParticle) SetColorVelocity(cv [4]float32) { p.colorVelocity = cv }

// UpdateBeforeTransform evolves rotation and color over dt, then moves and ages the particle.
//
// In the frame the particle dies, color evolves only over the time it had left, and a channel
// that reaches its bound within deathTolerance of the lifespan after death is set to it.
func (p *EvolvingParticle) UpdateBeforeTransform(dt float32) {
	if !p.isAlive {
		return
	}
	if p.evolveAngle {
		if p.rotationAngleVelocity != 0 {
			p.SetRotationAngle(core.CyclicAngle(p.RotationAngle() + p.rotationAngleVelocity*dt))
		}
	} else if p.rotationVelocity != (mgl32.Vec3{}) {
		p.SetRotation(core.EulerModulo(p.Rotation().Add(p.rotationVelocity.Mul(dt))))
	}

	if p.colorVelocity != ([4]float32{}) {
		elapsed := dt
		dying := p.timeToLive <= dt
		if dying {
			elapsed = max(p.timeToLive, 0)
		}
		c := p.color
		for i, v := range p.colorVelocity {
			next := c[i] + v*elapsed
			if dying {
				next = snapToBound(next, v, p.lifeSpan*deathTolerance)
			}
			c[i] = core.Clamp01(next)
		}
		p.SetColor(c)
	}

	p.SprayParticle.UpdateBeforeTransform(dt)
}

const deathTolerance = 1e-4

// snapToBound returns the bound v moves x toward when x would reach it within tol seconds.
func snapToBound(x, v, tol float32) float32 {
	switch {
	case v < 0 && x <= -v*tol:
		return 0
	case v > 0 && x >= 1-v*tol:
		return 1
	}
	return x
}
