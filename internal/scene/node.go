package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Node is an element of the scene graph. A node may carry one mesh and any
// number of children; its world matrix is cached and recomputed lazily
// after a transform change anywhere above it.
type Node struct {
	Name     string
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
	Mesh     *Mesh
	Visible  bool

	CastShadow    bool
	ReceiveShadow bool

	Parent   *Node
	Children []*Node

	worldDirty bool
	world      mgl32.Mat4
}

func NewNode(name string) *Node {
	return &Node{
		Name:       name,
		Rotation:   mgl32.QuatIdent(),
		Scale:      mgl32.Vec3{1, 1, 1},
		Visible:    true,
		worldDirty: true,
	}
}

func (n *Node) AddChild(child *Node) {
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	child.Parent = n
	n.Children = append(n.Children, child)
	child.markDirty()
}

// RemoveChild detaches child. It reports false if child was not attached
// to n.
func (n *Node) RemoveChild(child *Node) bool {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.Parent = nil
			child.markDirty()
			return true
		}
	}
	return false
}

// Detach removes the node from its parent, if any.
func (n *Node) Detach() {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func (n *Node) SetPosition(x, y, z float32) {
	n.Position = mgl32.Vec3{x, y, z}
	n.markDirty()
}

func (n *Node) SetScale(x, y, z float32) {
	n.Scale = mgl32.Vec3{x, y, z}
	n.markDirty()
}

func (n *Node) SetUniformScale(s float32) {
	n.SetScale(s, s, s)
}

func (n *Node) SetRotation(q mgl32.Quat) {
	n.Rotation = q.Normalize()
	n.markDirty()
}

// SetEuler sets the rotation from XYZ euler angles in radians.
func (n *Node) SetEuler(x, y, z float32) {
	n.SetRotation(mgl32.AnglesToQuat(x, y, z, mgl32.XYZ))
}

func (n *Node) LocalMatrix() mgl32.Mat4 {
	t := mgl32.Translate3D(n.Position[0], n.Position[1], n.Position[2])
	r := n.Rotation.Mat4()
	s := mgl32.Scale3D(n.Scale[0], n.Scale[1], n.Scale[2])
	return t.Mul4(r).Mul4(s)
}

func (n *Node) WorldMatrix() mgl32.Mat4 {
	if n.worldDirty {
		local := n.LocalMatrix()
		if n.Parent != nil {
			n.world = n.Parent.WorldMatrix().Mul4(local)
		} else {
			n.world = local
		}
		n.worldDirty = false
	}
	return n.world
}

func (n *Node) markDirty() {
	n.worldDirty = true
	for _, child := range n.Children {
		child.markDirty()
	}
}

// Traverse visits n and its descendants depth first.
func (n *Node) Traverse(fn func(*Node)) {
	fn(n)
	for _, child := range n.Children {
		child.Traverse(fn)
	}
}

// TraverseVisible is Traverse that skips hidden subtrees.
func (n *Node) TraverseVisible(fn func(*Node)) {
	if !n.Visible {
		return
	}
	fn(n)
	for _, child := range n.Children {
		child.TraverseVisible(fn)
	}
}

func (n *Node) Find(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, child := range n.Children {
		if found := child.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// Mesh pairs geometry with the material that shades it.
type Mesh struct {
	Geometry *Geometry
	Material *Material
}

// DisposeMesh releases the mesh geometry and material and detaches the node
// that carries it. Safe to call more than once.
func (n *Node) DisposeMesh() {
	if n.Mesh != nil {
		n.Mesh.Geometry.Dispose()
		n.Mesh.Material.Dispose()
	}
	n.Detach()
}
