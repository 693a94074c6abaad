package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Node is a positioned, oriented frame in a small transform hierarchy.
//
// Every change to a node's global transform, whether caused by its own local transform
// or by any ancestor, increments its Revision. Consumers cache values derived from the
// global transform together with the revision they were computed from and recompute
// only when the revision moves.
type Node struct {
	name     string
	parent   *Node
	children []*Node

	local       Transform
	global      mgl32.Mat4
	globalDirty bool

	revision  uint64
	destroyed bool
}

func NewNode(name string) *Node {
	return &Node{
		name:        name,
		local:       IdentityTransform(),
		global:      mgl32.Ident4(),
		globalDirty: true,
		revision:    1,
	}
}

func (n *Node) Name() string        { return n.name }
func (n *Node) SetName(name string) { n.name = name }
func (n *Node) Parent() *Node       { return n.parent }
func (n *Node) Children() []*Node   { return n.children }
func (n *Node) IsDestroyed() bool   { return n.destroyed }

// Revision is monotonically increasing and changes whenever the global transform does.
func (n *Node) Revision() uint64 { return n.revision }

func (n *Node) Local() Transform { return n.local }

func (n *Node) SetLocal(t Transform) {
	n.local = t
	n.markTransformDirty()
}

func (n *Node) Position() mgl32.Vec3 { return n.local.Position }

func (n *Node) SetPosition(p mgl32.Vec3) {
	if p == n.local.Position {
		return
	}
	n.local.Position = p
	n.markTransformDirty()
}

func (n *Node) TranslateBy(d mgl32.Vec3) {
	n.SetPosition(n.local.Position.Add(d))
}

func (n *Node) Rotation() mgl32.Quat { return n.local.Rotation }

func (n *Node) SetRotation(q mgl32.Quat) {
	if q == n.local.Rotation {
		return
	}
	n.local.Rotation = q
	n.markTransformDirty()
}

// SetEulerRotation sets the rotation from Euler angles in degrees, applied Z, then X, then Y.
func (n *Node) SetEulerRotation(degrees mgl32.Vec3) {
	n.SetRotation(QuatFromEuler(degrees))
}

func (n *Node) Scale() mgl32.Vec3 { return n.local.Scale }

func (n *Node) SetScale(s mgl32.Vec3) {
	if s == n.local.Scale {
		return
	}
	n.local.Scale = s
	n.markTransformDirty()
}

// AddChild attaches child to n, detaching it from any previous parent.
func (n *Node) AddChild(child *Node) {
	if child == nil || child.parent == n {
		return
	}
	if child.parent != nil {
		child.parent.removeChild(child)
	}
	child.parent = n
	n.children = append(n.children, child)
	child.markTransformDirty()
}

// Remove detaches n from its parent.
func (n *Node) Remove() {
	if n.parent == nil {
		return
	}
	n.parent.removeChild(n)
	n.parent = nil
	n.markTransformDirty()
}

// Destroy detaches n and its subtree and marks them destroyed. A destroyed node keeps its
// last revision forever.
func (n *Node) Destroy() {
	n.Remove()
	n.destroy()
}

func (n *Node) destroy() {
	n.destroyed = true
	for _, c := range n.children {
		c.parent = nil
		c.destroy()
	}
	n.children = nil
}

func (n *Node) removeChild(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}

func (n *Node) markTransformDirty() {
	if n.destroyed {
		return
	}
	n.globalDirty = true
	n.revision++
	for _, c := range n.children {
		c.markTransformDirty()
	}
}

// GlobalMatrix returns the node-to-world transform.
func (n *Node) GlobalMatrix() mgl32.Mat4 {
	if n.globalDirty {
		local := n.local.ObjectToWorld()
		if n.parent != nil {
			n.global = n.parent.GlobalMatrix().Mul4(local)
		} else {
			n.global = local
		}
		n.globalDirty = false
	}
	return n.global
}

// GlobalMatrixInverted returns the world-to-node transform.
func (n *Node) GlobalMatrixInverted() mgl32.Mat4 {
	if !n.local.Invertible() {
		return n.GlobalMatrix().Inv()
	}
	inv := n.local.WorldToObject()
	if n.parent != nil {
		inv = inv.Mul4(n.parent.GlobalMatrixInverted())
	}
	return inv
}

func (n *Node) GlobalLocation() mgl32.Vec3 {
	return TransformLocation(n.GlobalMatrix(), mgl32.Vec3{})
}

// GlobalForward is the world direction of the node's local +Z axis.
func (n *Node) GlobalForward() mgl32.Vec3 {
	return TransformDirection(n.GlobalMatrix(), mgl32.Vec3{0, 0, 1}).Normalize()
}
