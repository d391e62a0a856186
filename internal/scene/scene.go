package scene

import (
	"Meadow3D/internal/params"

	"github.com/go-gl/mathgl/mgl32"
)

type AmbientLight struct {
	Color     params.Color
	Intensity float32
}

// ShadowCamera is the orthographic volume a directional light renders its
// shadow map from.
type ShadowCamera struct {
	Near, Far                float32
	Left, Right, Top, Bottom float32
	MapSize                  int
}

type DirectionalLight struct {
	Color      params.Color
	Intensity  float32
	Position   mgl32.Vec3
	Target     mgl32.Vec3
	CastShadow bool
	Shadow     ShadowCamera
}

// Overlay is a full-screen color drawn over the frame.
type Overlay struct {
	Name  string
	Color mgl32.Vec4
}

func (o *Overlay) SetAlpha(a float32) {
	o.Color[3] = a
}

func (o *Overlay) Alpha() float32 {
	return o.Color[3]
}

// Scene is everything the renderer draws in one frame.
type Scene struct {
	Root *Node

	// Background and Environment are sampled lazily so that a map still
	// loading or failed simply renders without it.
	Background           params.TextureSource
	Environment          params.TextureSource
	BackgroundRotation   mgl32.Vec3
	EnvironmentRotation  mgl32.Vec3
	EnvironmentIntensity float32

	Ambient     *AmbientLight
	Directional []*DirectionalLight

	cameraRig *Node
	overlays  []*Overlay
}

func New() *Scene {
	s := &Scene{
		Root:                 NewNode("root"),
		EnvironmentIntensity: 1,
	}
	s.cameraRig = NewNode("camera")
	s.Root.AddChild(s.cameraRig)
	return s
}

// CameraRig is the node that follows the camera. Children added to it stay
// fixed relative to the view.
func (s *Scene) CameraRig() *Node {
	return s.cameraRig
}

// FollowCamera moves the rig to the camera pose.
func (s *Scene) FollowCamera(position mgl32.Vec3, rotation mgl32.Quat) {
	s.cameraRig.Position = position
	s.cameraRig.SetRotation(rotation)
}

func (s *Scene) Add(n *Node) {
	s.Root.AddChild(n)
}

func (s *Scene) AddDirectional(l *DirectionalLight) {
	s.Directional = append(s.Directional, l)
}

func (s *Scene) AddOverlay(o *Overlay) {
	s.overlays = append(s.overlays, o)
}

// RemoveOverlay reports whether o was present.
func (s *Scene) RemoveOverlay(o *Overlay) bool {
	for i, cur := range s.overlays {
		if cur == o {
			s.overlays = append(s.overlays[:i], s.overlays[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Scene) Overlays() []*Overlay {
	return s.overlays
}

// Meshes returns every visible node carrying a mesh, in traversal order.
func (s *Scene) Meshes() []*Node {
	var out []*Node
	s.Root.TraverseVisible(func(n *Node) {
		if n.Mesh != nil {
			out = append(out, n)
		}
	})
	return out
}
