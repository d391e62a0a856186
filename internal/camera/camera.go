package camera

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a perspective camera oriented by yaw and pitch in radians. Yaw
// turns about the world Y axis, pitch about the camera's X axis; zero yaw
// and pitch look down -Z.
type Camera struct {
	Position   mgl32.Vec3
	Front      mgl32.Vec3
	Up         mgl32.Vec3
	Right      mgl32.Vec3
	Projection mgl32.Mat4
	Pitch      float32
	Yaw        float32

	WorldUp     mgl32.Vec3
	Fov         float32 // degrees
	Near        float32
	Far         float32
	AspectRatio float32
}

func New(fov, near, far, aspect float32) *Camera {
	c := &Camera{
		Front:       mgl32.Vec3{0, 0, -1},
		Up:          mgl32.Vec3{0, 1, 0},
		WorldUp:     mgl32.Vec3{0, 1, 0},
		Fov:         fov,
		Near:        near,
		Far:         far,
		AspectRatio: aspect,
	}
	c.UpdateVectors()
	c.UpdateProjection()
	return c
}

func (c *Camera) UpdateProjection() {
	c.Projection = mgl32.Perspective(mgl32.DegToRad(c.Fov), c.AspectRatio, c.Near, c.Far)
}

func (c *Camera) SetFov(fov float32) {
	c.Fov = fov
	c.UpdateProjection()
}

func (c *Camera) SetAspectRatio(aspectRatio float32) {
	c.AspectRatio = aspectRatio
	c.UpdateProjection()
}

func (c *Camera) SetPosition(x, y, z float32) {
	c.Position = mgl32.Vec3{x, y, z}
}

// SetOrientation sets yaw and pitch and recomputes the basis vectors.
func (c *Camera) SetOrientation(yaw, pitch float32) {
	c.Yaw = yaw
	c.Pitch = pitch
	c.UpdateVectors()
}

// LookAt turns the camera toward target.
func (c *Camera) LookAt(target mgl32.Vec3) {
	dir := target.Sub(c.Position)
	if dir.Len() < 1e-6 {
		return
	}
	dir = dir.Normalize()
	c.Yaw = math32.Atan2(-dir.X(), -dir.Z())
	c.Pitch = math32.Asin(mgl32.Clamp(dir.Y(), -1, 1))
	c.UpdateVectors()
}

func (c *Camera) UpdateVectors() {
	sinYaw, cosYaw := math32.Sincos(c.Yaw)
	sinPitch, cosPitch := math32.Sincos(c.Pitch)

	c.Front = mgl32.Vec3{-sinYaw * cosPitch, sinPitch, -cosYaw * cosPitch}.Normalize()
	c.Right = c.Front.Cross(c.WorldUp).Normalize()
	c.Up = c.Right.Cross(c.Front).Normalize()
}

// Orientation is the camera rotation as a quaternion, yaw applied after
// pitch.
func (c *Camera) Orientation() mgl32.Quat {
	yaw := mgl32.QuatRotate(c.Yaw, mgl32.Vec3{0, 1, 0})
	pitch := mgl32.QuatRotate(c.Pitch, mgl32.Vec3{1, 0, 0})
	return yaw.Mul(pitch)
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Front), c.Up)
}

func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	return c.Projection
}

func (c *Camera) ViewProjection() mgl32.Mat4 {
	return c.Projection.Mul4(c.ViewMatrix())
}
