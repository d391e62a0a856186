package camera

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Controller turns pointer input into camera motion. OnTick runs once per
// frame after animated parameters have advanced and before rendering.
type Controller interface {
	Camera() *Camera
	OnTick(dt float32)
	PointerMoved(dx, dy float32)
	PointerButton(pressed bool)
	Scrolled(dy float32)
}

type OrbitOption func(*OrbitController)

func WithTarget(target mgl32.Vec3) OrbitOption {
	return func(o *OrbitController) {
		o.target = target
	}
}

func WithDamping(factor float32) OrbitOption {
	return func(o *OrbitController) {
		o.damping = factor
	}
}

func WithRotateSpeed(speed float32) OrbitOption {
	return func(o *OrbitController) {
		o.rotateSpeed = speed
	}
}

// OrbitController circles the camera around a target while the pointer
// button is held. Drag input accumulates into a pending delta that is
// applied a fraction per tick, giving the motion inertia.
type OrbitController struct {
	cam    *Camera
	target mgl32.Vec3

	radius    float32
	azimuth   float32
	elevation float32

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	damping     float32
	rotateSpeed float32
	zoomSpeed   float32

	dragging       bool
	pendingAzimuth float32
	pendingElev    float32
}

var _ Controller = (*OrbitController)(nil)

// NewOrbitController derives the spherical coordinates from the camera's
// current position relative to the target.
func NewOrbitController(cam *Camera, options ...OrbitOption) *OrbitController {
	o := &OrbitController{
		cam:          cam,
		minRadius:    0.5,
		maxRadius:    50,
		minElevation: -math32.Pi/2 + 0.01,
		maxElevation: math32.Pi/2 - 0.01,
		damping:      0.05,
		rotateSpeed:  0.005,
		zoomSpeed:    0.25,
	}
	for _, option := range options {
		option(o)
	}

	offset := cam.Position.Sub(o.target)
	o.radius = offset.Len()
	if o.radius < 1e-6 {
		o.radius = 1
		offset = mgl32.Vec3{0, 0, 1}
	}
	o.azimuth = math32.Atan2(offset.X(), offset.Z())
	o.elevation = math32.Asin(mgl32.Clamp(offset.Y()/o.radius, -1, 1))
	o.update()
	return o
}

func (o *OrbitController) Camera() *Camera {
	return o.cam
}

func (o *OrbitController) Target() mgl32.Vec3 {
	return o.target
}

func (o *OrbitController) PointerButton(pressed bool) {
	o.dragging = pressed
}

func (o *OrbitController) PointerMoved(dx, dy float32) {
	if !o.dragging {
		return
	}
	o.pendingAzimuth -= dx * o.rotateSpeed
	o.pendingElev += dy * o.rotateSpeed
}

func (o *OrbitController) Scrolled(dy float32) {
	o.radius = mgl32.Clamp(o.radius-dy*o.zoomSpeed, o.minRadius, o.maxRadius)
	o.update()
}

func (o *OrbitController) OnTick(dt float32) {
	o.azimuth += o.pendingAzimuth * o.damping
	o.elevation = mgl32.Clamp(o.elevation+o.pendingElev*o.damping, o.minElevation, o.maxElevation)
	o.pendingAzimuth *= 1 - o.damping
	o.pendingElev *= 1 - o.damping
	o.update()
}

func (o *OrbitController) update() {
	sinElev, cosElev := math32.Sincos(o.elevation)
	sinAzim, cosAzim := math32.Sincos(o.azimuth)

	o.cam.Position = mgl32.Vec3{
		o.target[0] + o.radius*cosElev*sinAzim,
		o.target[1] + o.radius*sinElev,
		o.target[2] + o.radius*cosElev*cosAzim,
	}
	o.cam.LookAt(o.target)
}
