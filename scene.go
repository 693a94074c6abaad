package meshfx

import (
	"fmt"
	"os"

	"github.com/gekko3d/meshfx/core"
	"gopkg.in/yaml.v2"
)

// SceneDef is a declarative description of a set of emitters.
type SceneDef struct {
	Log      core.LogConfig `yaml:"log"`
	Seed     int64          `yaml:"seed"` // 0 seeds from the global source
	Emitters []EmitterDef   `yaml:"emitters"`
}

// TemplateDef describes a procedural template mesh.
type TemplateDef struct {
	Shape  string     `yaml:"shape"` // cube, quad, tetrahedron, triangle
	Params []float32  `yaml:"params"`
	Color  [4]float32 `yaml:"color"`
}

type CapacityDef struct {
	Max       int `yaml:"max"` // 0 is unlimited
	Increment int `yaml:"increment"`
}

type EmissionDef struct {
	Rate     float32 `yaml:"rate"`     // particles per second, 0 disables automatic emission
	Duration float32 `yaml:"duration"` // seconds, 0 is unlimited
	Burst    int     `yaml:"burst"`    // particles emitted once on creation
	Autoplay *bool   `yaml:"autoplay"`
}

type ArenaDef struct {
	MaxVertices int `yaml:"max_vertices"`
	MaxIndices  int `yaml:"max_indices"`
}

type NozzleDef struct {
	Position [3]float32 `yaml:"position"`
	Rotation [3]float32 `yaml:"rotation"` // Euler degrees
}

type NavigatorDef struct {
	Kind                 string      `yaml:"kind"` // mortal, hose
	LifeSpan             [2]float32  `yaml:"life_span"`
	Speed                [2]float32  `yaml:"speed"`
	Dispersion           *[2]float32 `yaml:"dispersion"` // degrees
	PrecalculateTangents *bool       `yaml:"precalculate_tangents"`
	Nozzle               *NozzleDef  `yaml:"nozzle"`
}

type EvolutionDef struct {
	RotationVelocity      [3]float32 `yaml:"rotation_velocity"`       // degrees per second
	RotationAngleVelocity float32    `yaml:"rotation_angle_velocity"` // degrees per second
	ColorVelocity         [4]float32 `yaml:"color_velocity"`
	// FadeOut sets the alpha velocity so particles vanish exactly at the end of their life.
	FadeOut bool `yaml:"fade_out"`
}

type BoundsDef struct {
	Min [3]float32 `yaml:"min"`
	Max [3]float32 `yaml:"max"`
}

type VisibilityDef struct {
	FixedBounds     *BoundsDef `yaml:"fixed_bounds"`
	TransformUnseen bool       `yaml:"transform_unseen"`
	Hidden          bool       `yaml:"hidden"`
	Touchable       bool       `yaml:"touchable"`
}

// EmitterDef describes one emitter, its templates and the navigator launching its particles.
type EmitterDef struct {
	Name           string        `yaml:"name"`
	Particle       string        `yaml:"particle"` // mortal, spray, evolving
	Templates      []TemplateDef `yaml:"templates"`
	Position       [3]float32    `yaml:"position"`
	Rotation       [3]float32    `yaml:"rotation"` // Euler degrees
	Scale          float32       `yaml:"scale"`    // particle scale, 0 is 1
	Capacity       CapacityDef   `yaml:"capacity"`
	Emission       EmissionDef   `yaml:"emission"`
	Arena          ArenaDef      `yaml:"arena"`
	Navigator      NavigatorDef  `yaml:"navigator"`
	Evolution      EvolutionDef  `yaml:"evolution"`
	Visibility     VisibilityDef `yaml:"visibility"`
	RemoveOnFinish bool          `yaml:"remove_on_finish"`
}

// LoadScene reads and parses a YAML scene file.
func LoadScene(path string) (*SceneDef, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	def, err := ParseScene(source)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	return def, nil
}

// ParseScene decodes a YAML scene, fills in defaults and validates it.
func ParseScene(source []byte) (*SceneDef, error) {
	var def SceneDef
	if err := yaml.UnmarshalStrict(source, &def); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	for i := range def.Emitters {
		ed := &def.Emitters[i]
		ed.applyDefaults(i)
		if err := ed.validate(); err != nil {
			return nil, fmt.Errorf("emitter %s: %w", ed.Name, err)
		}
	}
	return &def, nil
}

func (d *EmitterDef) applyDefaults(i int) {
	if d.Name == "" {
		d.Name = fmt.Sprintf("emitter-%d", i)
	}
	if d.Particle == "" {
		d.Particle = "mortal"
	}
	if d.Navigator.Kind == "" {
		d.Navigator.Kind = "hose"
		if d.Particle == "mortal" {
			d.Navigator.Kind = "mortal"
		}
	}
	if d.Navigator.LifeSpan == ([2]float32{}) {
		d.Navigator.LifeSpan = [2]float32{1, 1}
	}
	if len(d.Templates) == 0 {
		d.Templates = []TemplateDef{{Shape: "cube"}}
	}
	for j := range d.Templates {
		if d.Templates[j].Color == ([4]float32{}) {
			d.Templates[j].Color = [4]float32{1, 1, 1, 1}
		}
	}
	if d.Scale == 0 {
		d.Scale = 1
	}
}

func (d *EmitterDef) validate() error {
	switch d.Particle {
	case "mortal", "spray", "evolving":
	default:
		return fmt.Errorf("unknown particle kind %q", d.Particle)
	}
	switch d.Navigator.Kind {
	case "mortal", "hose":
	default:
		return fmt.Errorf("unknown navigator kind %q", d.Navigator.Kind)
	}
	if d.Navigator.LifeSpan[0] > d.Navigator.LifeSpan[1] {
		return fmt.Errorf("life span min %v exceeds max %v", d.Navigator.LifeSpan[0], d.Navigator.LifeSpan[1])
	}
	if d.Navigator.Speed[0] > d.Navigator.Speed[1] {
		return fmt.Errorf("speed min %v exceeds max %v", d.Navigator.Speed[0], d.Navigator.Speed[1])
	}
	if disp := d.Navigator.Dispersion; disp != nil && (disp[0] < 0 || disp[1] < 0 || disp[0] > 180 || disp[1] > 180) {
		return fmt.Errorf("dispersion %v outside [0, 180] degrees", *disp)
	}
	if d.Capacity.Max < 0 || d.Capacity.Increment < 0 {
		return fmt.Errorf("negative capacity")
	}
	triangles := 0
	for _, t := range d.Templates {
		switch t.Shape {
		case "cube", "quad", "tetrahedron":
		case "triangle":
			triangles++
		default:
			return fmt.Errorf("unknown template shape %q", t.Shape)
		}
	}
	if triangles > 0 && triangles < len(d.Templates) {
		return fmt.Errorf("non-indexed triangle templates mixed with indexed ones")
	}
	return nil
}
