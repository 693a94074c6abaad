package shaders

import (
	_ "embed"
)

//go:embed mesh_particle.wgsl
var MeshParticleWGSL string
