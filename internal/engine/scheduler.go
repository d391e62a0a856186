package engine

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"Meadow3D/internal/asset"
	"Meadow3D/internal/behaviour"
	"Meadow3D/internal/camera"
	"Meadow3D/internal/logger"
	"Meadow3D/internal/params"
	"Meadow3D/internal/scene"

	"go.uber.org/zap"
)

var (
	ErrAlreadyStarted = errors.New("scheduler already started")
	ErrStopped        = errors.New("scheduler stopped")
)

type State int32

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Host is the display surface the loop runs against.
type Host interface {
	// PollEvents delivers pending window input to the registered handlers.
	PollEvents()
	// Present shows the frame and blocks until the next display refresh
	// when vsync is on.
	Present()
	ShouldClose() bool
}

type Renderer interface {
	Render(s *scene.Scene, cam *camera.Camera)
	Resize(windowW, windowH, fbW, fbH int)
	Release()
}

// Frame describes one completed tick.
type Frame struct {
	Index   uint64
	Elapsed float64
	Delta   float64
}

type SchedulerOption func(*Scheduler)

// WithClock replaces the monotonic clock. The returned durations only need
// to be relative to each other.
func WithClock(now func() time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithFrameHook registers fn to run after every presented frame.
func WithFrameHook(fn func(Frame)) SchedulerOption {
	return func(s *Scheduler) {
		s.onFrame = fn
	}
}

// Scheduler drives the per-frame cycle: drain continuations, advance
// animated parameters, run behaviours, update the camera, render, present.
// Everything except Stop must be called from the render thread.
type Scheduler struct {
	host       Host
	renderer   Renderer
	queue      *asset.Queue
	store      *params.Store
	behaviours *behaviour.Manager
	controller camera.Controller
	scene      *scene.Scene

	now     func() time.Duration
	onFrame func(Frame)

	state    atomic.Int32
	stop     chan struct{}
	stopOnce sync.Once

	start   time.Duration
	elapsed float64
	frames  uint64
	release sync.Once
}

func NewScheduler(host Host, rend Renderer, queue *asset.Queue, store *params.Store, behaviours *behaviour.Manager, controller camera.Controller, s *scene.Scene, options ...SchedulerOption) *Scheduler {
	sched := &Scheduler{
		host:       host,
		renderer:   rend,
		queue:      queue,
		store:      store,
		behaviours: behaviours,
		controller: controller,
		scene:      s,
		stop:       make(chan struct{}),
	}
	origin := time.Now()
	sched.now = func() time.Duration { return time.Since(origin) }
	for _, opt := range options {
		opt(sched)
	}
	return sched
}

func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Elapsed is the loop time of the last tick, in seconds.
func (s *Scheduler) Elapsed() float64 {
	return s.elapsed
}

func (s *Scheduler) Frames() uint64 {
	return s.frames
}

// Run ticks until the host closes, Stop is called or ctx is done, then
// releases the renderer. A second call returns ErrAlreadyStarted, or
// ErrStopped once the loop has ended.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(Idle), int32(Running)) {
		if s.State() == Stopped {
			return ErrStopped
		}
		return ErrAlreadyStarted
	}
	defer s.finish()

	s.start = s.now()
	logger.Log.Info("Frame loop started")
	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("Frame loop cancelled", zap.Error(ctx.Err()))
			return nil
		case <-s.stop:
			logger.Log.Info("Frame loop stopped")
			return nil
		default:
		}
		if s.host.ShouldClose() {
			logger.Log.Info("Window closed")
			return nil
		}
		s.Tick()
	}
}

// Stop asks the loop to exit before its next tick. Safe from any goroutine
// and idempotent. A scheduler stopped before Run never starts.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.state.CompareAndSwap(int32(Idle), int32(Stopped))
		close(s.stop)
	})
}

func (s *Scheduler) finish() {
	s.state.Store(int32(Stopped))
	s.release.Do(func() {
		s.renderer.Release()
		logger.Log.Info("Frame loop finished", zap.Uint64("frames", s.frames), zap.Float64("elapsed", s.elapsed))
	})
}

// Tick runs a single frame.
func (s *Scheduler) Tick() Frame {
	s.host.PollEvents()
	s.queue.Drain()

	prev := s.elapsed
	s.elapsed = s.clockSeconds(prev)
	delta := s.elapsed - prev

	s.store.Advance(s.elapsed)
	s.behaviours.UpdateAll(s.elapsed)
	s.controller.OnTick(float32(delta))

	cam := s.controller.Camera()
	s.scene.FollowCamera(cam.Position, cam.Orientation())
	s.renderer.Render(s.scene, cam)
	s.host.Present()

	s.frames++
	frame := Frame{Index: s.frames, Elapsed: s.elapsed, Delta: delta}
	if s.onFrame != nil {
		s.onFrame(frame)
	}
	return frame
}

// clockSeconds reads the clock relative to the loop start, never going
// backwards and never returning a non-finite value.
func (s *Scheduler) clockSeconds(prev float64) float64 {
	t := (s.now() - s.start).Seconds()
	if math.IsNaN(t) || math.IsInf(t, 0) || t < prev {
		return prev
	}
	return t
}

// Resize applies a new surface size before the next render. Zero sizes,
// such as a minimized window, are ignored.
func (s *Scheduler) Resize(windowW, windowH, fbW, fbH int) {
	if windowW <= 0 || windowH <= 0 || fbW <= 0 || fbH <= 0 {
		return
	}
	s.controller.Camera().SetAspectRatio(float32(windowW) / float32(windowH))
	s.renderer.Resize(windowW, windowH, fbW, fbH)
	logger.Log.Debug("Surface resized",
		zap.Int("width", windowW), zap.Int("height", windowH),
		zap.Int("framebufferWidth", fbW), zap.Int("framebufferHeight", fbH))
}
