package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"Meadow3D/internal/asset"
	"Meadow3D/internal/audio"
	"Meadow3D/internal/behaviour"
	"Meadow3D/internal/camera"
	"Meadow3D/internal/config"
	"Meadow3D/internal/effect"
	"Meadow3D/internal/input"
	"Meadow3D/internal/logger"
	"Meadow3D/internal/panel"
	"Meadow3D/internal/params"
	"Meadow3D/internal/renderer"
	"Meadow3D/internal/scene"
	"Meadow3D/internal/stage"

	"go.uber.org/zap"
)

const mouseButtonLeft = 0

// Meadow owns everything one running scene needs and wires it together:
// loader, parameter store, scene graph, behaviours, input routing and the
// frame loop.
type Meadow struct {
	Config     config.Config
	Store      *params.Store
	Scene      *scene.Scene
	Queue      *asset.Queue
	Pool       *asset.Pool
	Behaviours *behaviour.Manager
	Effects    *effect.Manager
	Gate       *input.Gate
	Player     *audio.Player
	Panel      *panel.FilePanel

	stage     *stage.Stage
	scheduler *Scheduler

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewMeadow(cfg config.Config, sink audio.Sink) *Meadow {
	queue := asset.NewQueue()
	store := params.NewStore()
	m := &Meadow{
		Config:     cfg,
		Store:      store,
		Scene:      scene.New(),
		Queue:      queue,
		Pool:       asset.NewPool(queue, cfg.Assets.Workers, asset.WithRoot(cfg.Assets.Root)),
		Behaviours: behaviour.NewManager(),
		Effects:    effect.NewManager(),
		Gate:       input.NewGate(),
	}
	if sink != nil {
		m.Player = audio.NewPlayer(sink, true)
	}
	if cfg.Panel.Enabled {
		m.Panel = panel.NewFilePanel(cfg.Panel.TweakFile, store, queue)
	}
	return m
}

// Compose builds the configured stage and registers the per-tick
// behaviours. locker is the pointer capture boundary for the lookout stage.
func (m *Meadow) Compose(locker camera.PointerLocker, aspect float32) error {
	env := &stage.Env{
		Config:  m.Config,
		Store:   m.Store,
		Scene:   m.Scene,
		Pool:    m.Pool,
		Effects: m.Effects,
		Gate:    m.Gate,
		Player:  m.Player,
		Locker:  locker,
		Aspect:  aspect,
	}
	if m.Panel != nil {
		env.Panel = m.Panel
	}
	st, err := stage.Build(string(m.Config.Variant), env)
	if err != nil {
		return fmt.Errorf("compose %s stage: %w", m.Config.Variant, err)
	}
	m.stage = st

	m.Behaviours.Add("effects", m.Effects)
	if m.Player != nil {
		m.Behaviours.Add("audio", m.Player)
	}
	return nil
}

func (m *Meadow) Controller() camera.Controller {
	if m.stage == nil {
		return nil
	}
	return m.stage.Controller
}

// Handlers routes window input to the gate and the camera controller.
func (m *Meadow) Handlers(resize func(windowW, windowH, fbW, fbH int)) Handlers {
	return Handlers{
		Resize:        resize,
		PointerButton: m.pointerButton,
		PointerMoved: func(dx, dy float32) {
			m.stage.Controller.PointerMoved(dx, dy)
		},
		Scrolled: func(dy float32) {
			m.stage.Controller.Scrolled(dy)
		},
		KeyDown: func() {
			m.Gate.Observe(input.Event{Kind: input.KeyDown})
		},
		LockLost: m.lockLost,
	}
}

// pointerButton feeds presses to the gate first. On a gated stage the press
// that fires the gate is consumed there, so pointer capture is requested
// once rather than twice; any later button may ask again. Other stages only
// drag with the left button.
func (m *Meadow) pointerButton(button int, pressed bool) {
	if pressed && m.Gate.Observe(input.Event{Kind: input.PointerDown, Button: button}) && m.stage.Gated {
		return
	}
	if button != mouseButtonLeft && !m.stage.Gated {
		return
	}
	m.stage.Controller.PointerButton(pressed)
}

func (m *Meadow) lockLost() {
	if pl, ok := m.stage.Controller.(*camera.PointerLockController); ok {
		pl.LockLost()
	}
}

// Run opens the window, composes the stage and drives the frame loop until
// the window closes, Stop is called or ctx is done. It must be called from
// the main goroutine.
func (m *Meadow) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	window, err := OpenWindow(m.Config.Window, m.Config.Renderer)
	if err != nil {
		return err
	}
	defer window.Close()

	width, height := window.Size()
	fbW, fbH := window.FramebufferSize()

	rend := renderer.New(m.Config.Renderer, m.Store)
	if err := rend.Init(width, height, fbW, fbH); err != nil {
		return fmt.Errorf("%w: %w", ErrNoDisplay, err)
	}

	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	if err := m.Compose(window, aspect); err != nil {
		rend.Release()
		return err
	}

	m.scheduler = NewScheduler(window, rend, m.Queue, m.Store, m.Behaviours, m.stage.Controller, m.Scene)
	window.SetHandlers(m.Handlers(m.scheduler.Resize))

	if m.Panel != nil {
		if err := m.Panel.WriteDefaults(); err != nil {
			logger.Log.Warn("Tweak file not written", zap.Error(err))
		}
		if err := m.Panel.Watch(ctx); err != nil {
			logger.Log.Warn("Tweak panel disabled", zap.Error(err))
		}
	}

	logger.Log.Info("Meadow running",
		zap.String("variant", string(m.Config.Variant)),
		zap.Strings("behaviours", m.Behaviours.Names()))
	err = m.scheduler.Run(ctx)
	m.shutdown()
	return err
}

// Stop ends a running loop from any goroutine.
func (m *Meadow) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Meadow) shutdown() {
	if m.Panel != nil {
		if err := m.Panel.Close(); err != nil {
			logger.Log.Warn("Tweak panel close failed", zap.Error(err))
		}
	}
	if m.Player != nil {
		m.Player.Close()
	}
	m.Pool.Close()
	m.Behaviours.Clear()
}
