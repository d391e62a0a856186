package camera

import (
	"errors"
	"fmt"

	"Meadow3D/internal/logger"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

var ErrPointerLockDenied = errors.New("pointer lock denied")

// PointerLocker is the host side of exclusive pointer capture.
type PointerLocker interface {
	RequestPointerLock() error
	ReleasePointerLock()
}

// Orientation is the look direction of a first-person camera in radians.
type Orientation struct {
	Pitch float32
	Yaw   float32
}

type LockOption func(*PointerLockController)

// WithPitchBounds sets the pitch range in degrees.
func WithPitchBounds(minDeg, maxDeg float32) LockOption {
	return func(p *PointerLockController) {
		p.minAngle = mgl32.DegToRad(minDeg)
		p.maxAngle = mgl32.DegToRad(maxDeg)
	}
}

func WithSensitivity(s float32) LockOption {
	return func(p *PointerLockController) {
		p.sensitivity = s
	}
}

// PointerLockController is a first-person look controller. Pointer motion
// only turns the camera while the pointer is captured. Pitch is held inside
// [minAngle, maxAngle] on every tick; yaw is unconstrained.
type PointerLockController struct {
	cam    *Camera
	locker PointerLocker

	minAngle    float32
	maxAngle    float32
	sensitivity float32

	locked      bool
	snapshot    Orientation
	corrections int
}

var _ Controller = (*PointerLockController)(nil)

func NewPointerLockController(cam *Camera, locker PointerLocker, options ...LockOption) *PointerLockController {
	p := &PointerLockController{
		cam:         cam,
		locker:      locker,
		minAngle:    mgl32.DegToRad(-45),
		maxAngle:    mgl32.DegToRad(45),
		sensitivity: 0.002,
	}
	for _, option := range options {
		option(p)
	}
	p.snapshot = p.Orientation()
	return p
}

func (p *PointerLockController) Camera() *Camera {
	return p.cam
}

func (p *PointerLockController) Orientation() Orientation {
	return Orientation{Pitch: p.cam.Pitch, Yaw: p.cam.Yaw}
}

func (p *PointerLockController) Snapshot() Orientation {
	return p.snapshot
}

func (p *PointerLockController) Bounds() (min, max float32) {
	return p.minAngle, p.maxAngle
}

func (p *PointerLockController) Locked() bool {
	return p.locked
}

// Corrections counts the ticks on which pitch had to be pulled back.
func (p *PointerLockController) Corrections() int {
	return p.corrections
}

// Engage asks the host for pointer capture. A denial leaves the controller
// unlocked; the next qualifying input asks again.
func (p *PointerLockController) Engage() error {
	if p.locked {
		return nil
	}
	if err := p.locker.RequestPointerLock(); err != nil {
		logger.Log.Warn("Pointer lock request refused", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPointerLockDenied, err)
	}
	p.locked = true
	logger.Log.Debug("Pointer locked")
	return nil
}

// LockLost is called by the host when capture ends outside our control,
// such as the window losing focus.
func (p *PointerLockController) LockLost() {
	if !p.locked {
		return
	}
	p.locked = false
	logger.Log.Debug("Pointer lock lost")
}

// Release gives the pointer back to the host.
func (p *PointerLockController) Release() {
	if !p.locked {
		return
	}
	p.locker.ReleasePointerLock()
	p.locked = false
}

// PointerButton re-requests capture on a press while unlocked.
func (p *PointerLockController) PointerButton(pressed bool) {
	if pressed && !p.locked {
		_ = p.Engage()
	}
}

func (p *PointerLockController) PointerMoved(dx, dy float32) {
	if !p.locked || !finite(dx) || !finite(dy) {
		return
	}
	p.cam.SetOrientation(p.cam.Yaw-dx*p.sensitivity, p.cam.Pitch-dy*p.sensitivity)
}

func (p *PointerLockController) Scrolled(float32) {}

// OnTick applies the pitch clamp. An out-of-range pitch resets the camera
// to the last in-range orientation with pitch pinned to the exceeded bound.
func (p *PointerLockController) OnTick(float32) {
	raw := p.Orientation()
	switch {
	case !finite(raw.Pitch) || !finite(raw.Yaw):
		p.restore(raw)
	case raw.Pitch > p.maxAngle:
		p.correct(raw, p.maxAngle)
	case raw.Pitch < p.minAngle:
		p.correct(raw, p.minAngle)
	}
	p.snapshot = p.Orientation()
}

// restore drops a non-finite orientation in favour of the snapshot.
func (p *PointerLockController) restore(raw Orientation) {
	p.cam.SetOrientation(p.snapshot.Yaw, p.snapshot.Pitch)
	p.corrections++
	logger.Log.Debug("Non-finite orientation discarded",
		zap.Float32("pitch", raw.Pitch),
		zap.Float32("yaw", raw.Yaw))
}

func (p *PointerLockController) correct(raw Orientation, bound float32) {
	fixed := p.snapshot
	fixed.Pitch = bound
	p.cam.SetOrientation(fixed.Yaw, fixed.Pitch)
	p.corrections++
	logger.Log.Debug("Pitch clamped",
		zap.Float32("raw", mgl32.RadToDeg(raw.Pitch)),
		zap.Float32("bound", mgl32.RadToDeg(bound)))
}

func finite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}
