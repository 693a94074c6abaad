package meshfx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fountainScene = `
log:
  level: info
seed: 7
emitters:
  - name: fountain
    particle: evolving
    position: [0, 1, 0]
    templates:
      - shape: cube
        params: [0.1]
        color: [0.2, 0.5, 1, 1]
      - shape: tetrahedron
        params: [0.15]
    capacity:
      max: 200
    emission:
      rate: 50
      duration: 2
    navigator:
      kind: hose
      life_span: [1, 1.5]
      speed: [3, 4]
      dispersion: [20, 20]
      nozzle:
        rotation: [-90, 0, 0]
    evolution:
      rotation_velocity: [0, 180, 0]
      fade_out: true
    remove_on_finish: true
  - templates:
      - shape: quad
`

func TestParseSceneAppliesDefaults(t *testing.T) {
	def, err := ParseScene([]byte(fountainScene))
	require.NoError(t, err)
	require.Len(t, def.Emitters, 2)

	assert.Equal(t, "info", def.Log.Level)
	assert.Equal(t, int64(7), def.Seed)

	f := def.Emitters[0]
	assert.Equal(t, "evolving", f.Particle)
	assert.Equal(t, "hose", f.Navigator.Kind)
	assert.Equal(t, [2]float32{20, 20}, *f.Navigator.Dispersion)
	assert.Equal(t, [4]float32{1, 1, 1, 1}, f.Templates[1].Color)
	assert.Equal(t, float32(1), f.Scale)
	assert.True(t, f.Evolution.FadeOut)

	d := def.Emitters[1]
	assert.Equal(t, "emitter-1", d.Name)
	assert.Equal(t, "mortal", d.Particle)
	assert.Equal(t, "mortal", d.Navigator.Kind)
	assert.Equal(t, [2]float32{1, 1}, d.Navigator.LifeSpan)
	assert.Nil(t, d.Navigator.Dispersion)
}

func TestParseSceneRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		source string
		errMsg string
	}{
		{"unknown particle", "emitters: [{particle: smoke}]", "unknown particle kind"},
		{"unknown navigator", "emitters: [{navigator: {kind: orbit}}]", "unknown navigator kind"},
		{"unknown shape", "emitters: [{templates: [{shape: torus}]}]", "unknown template shape"},
		{"mixed indexing", "emitters: [{templates: [{shape: cube}, {shape: triangle}]}]", "mixed"},
		{"life span order", "emitters: [{navigator: {life_span: [3, 1]}}]", "life span"},
		{"dispersion range", "emitters: [{navigator: {kind: hose, dispersion: [200, 10]}}]", "dispersion"},
		{"unknown field", "emitters: [{colour: red}]", "decode scene"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseScene([]byte(tc.source))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestLoadScene(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fountainScene), 0o644))

	def, err := LoadScene(path)
	require.NoError(t, err)
	assert.Equal(t, "fountain", def.Emitters[0].Name)

	_, err = LoadScene(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
