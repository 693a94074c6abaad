package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeHierarchyGlobalMatrix(t *testing.T) {
	parent := NewNode("parent")
	parent.SetPosition(mgl32.Vec3{10, 0, 0})

	child := NewNode("child")
	child.SetPosition(mgl32.Vec3{0, 5, 0})
	parent.AddChild(child)

	grandchild := NewNode("grandchild")
	grandchild.SetPosition(mgl32.Vec3{0, 0, 2})
	child.AddChild(grandchild)

	assert.True(t, grandchild.GlobalLocation().ApproxEqual(mgl32.Vec3{10, 5, 2}))

	// Rotate parent 90 degrees around Y: local +Z of the child chain maps to world +X
	parent.SetRotation(mgl32.QuatRotate(mgl32.DegToRad(90), AxisY))
	assert.True(t, grandchild.GlobalLocation().ApproxEqualThreshold(mgl32.Vec3{12, 5, 0}, 1e-4))
	assert.True(t, grandchild.GlobalForward().ApproxEqualThreshold(mgl32.Vec3{1, 0, 0}, 1e-4))

	inv := grandchild.GlobalMatrixInverted()
	assert.True(t, TransformLocation(inv, grandchild.GlobalLocation()).ApproxEqualThreshold(mgl32.Vec3{}, 1e-4))
}

func TestNodeRevisionPropagatesToDescendants(t *testing.T) {
	parent := NewNode("parent")
	child := NewNode("child")
	parent.AddChild(child)

	childRev := child.Revision()
	parentRev := parent.Revision()

	parent.TranslateBy(mgl32.Vec3{1, 0, 0})
	assert.Greater(t, parent.Revision(), parentRev)
	assert.Greater(t, child.Revision(), childRev)

	// Child changes never touch the parent
	parentRev = parent.Revision()
	child.SetScale(mgl32.Vec3{2, 2, 2})
	assert.Equal(t, parentRev, parent.Revision())

	// Setting the same value is not a change
	childRev = child.Revision()
	child.SetScale(mgl32.Vec3{2, 2, 2})
	assert.Equal(t, childRev, child.Revision())
}

func TestNodeDestroyFreezesRevision(t *testing.T) {
	parent := NewNode("parent")
	child := NewNode("child")
	parent.AddChild(child)

	child.Destroy()
	require.True(t, child.IsDestroyed())
	assert.Nil(t, child.Parent())
	assert.Empty(t, parent.Children())

	rev := child.Revision()
	child.SetPosition(mgl32.Vec3{5, 5, 5})
	assert.Equal(t, rev, child.Revision())
}

func TestNodeReparent(t *testing.T) {
	a := NewNode("a")
	b := NewNode("b")
	c := NewNode("c")
	a.AddChild(c)
	b.AddChild(c)

	assert.Empty(t, a.Children())
	require.Len(t, b.Children(), 1)
	assert.Same(t, b, c.Parent())

	c.Remove()
	assert.Nil(t, c.Parent())
	assert.Empty(t, b.Children())
}

func TestEulerRoundTrip(t *testing.T) {
	tests := []mgl32.Vec3{
		{0, 0, 0},
		{30, 0, 0},
		{0, 45, 0},
		{0, 0, 60},
		{20, -35, 50},
		{-10, 120, -80},
	}
	for _, deg := range tests {
		q := QuatFromEuler(deg)
		back := QuatFromEuler(EulerFromQuat(q))
		// q and -q encode the same rotation
		assert.InDelta(t, 1, absf(q.Dot(back)), 1e-4, "%v", deg)
	}
}

func TestGlobalMatrixInvertedMatchesInverse(t *testing.T) {
	parent := NewNode("parent")
	parent.SetPosition(mgl32.Vec3{3, -2, 7})
	parent.SetRotation(QuatFromEuler(mgl32.Vec3{10, 40, -25}))
	parent.SetScale(mgl32.Vec3{2, 0.5, 1.5})

	child := NewNode("child")
	child.SetPosition(mgl32.Vec3{0, 4, -1})
	child.SetRotation(QuatFromEuler(mgl32.Vec3{-90, 0, 30}))
	parent.AddChild(child)

	for _, n := range []*Node{parent, child} {
		got := n.GlobalMatrixInverted()
		assert.True(t, got.ApproxEqualThreshold(n.GlobalMatrix().Inv(), 1e-4), n.Name())
		assert.True(t, got.Mul4(n.GlobalMatrix()).ApproxEqualThreshold(mgl32.Ident4(), 1e-4), n.Name())
	}

	// A flattened node falls back to the general inverse
	child.SetScale(mgl32.Vec3{1, 0, 1})
	assert.False(t, child.Local().Invertible())
	assert.Equal(t, child.GlobalMatrix().Inv(), child.GlobalMatrixInverted())
}

func TestEulerModulo(t *testing.T) {
	assert.Equal(t, float32(90), CyclicAngle(450))
	assert.Equal(t, float32(-30), CyclicAngle(-390))
	assert.Equal(t, mgl32.Vec3{0, 180, -120}, EulerModulo(mgl32.Vec3{360, 900, -1200}))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, float32(0), Clamp01(-0.5))
	assert.Equal(t, float32(1), Clamp01(1.5))
	assert.Equal(t, float32(0.25), Clamp01(0.25))
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
