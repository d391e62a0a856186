package engine

import (
	"errors"
	"fmt"

	"Meadow3D/internal/camera"
	"Meadow3D/internal/config"
	"Meadow3D/internal/logger"
	"Meadow3D/internal/params"

	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"
)

// ErrNoDisplay means no window or GL context could be created.
var ErrNoDisplay = errors.New("display surface unavailable")

// Handlers receive window input. They run inside PollEvents, on the render
// thread. Nil handlers are skipped.
type Handlers struct {
	Resize        func(windowW, windowH, fbW, fbH int)
	PointerButton func(button int, pressed bool)
	PointerMoved  func(dx, dy float32)
	Scrolled      func(dy float32)
	KeyDown       func()
	// LockLost fires when pointer capture ends without a ReleasePointerLock
	// call, such as on focus loss or Escape.
	LockLost func()
}

// Window is the glfw display surface. It owns the GL context and doubles as
// the pointer-lock boundary.
type Window struct {
	win      *glfw.Window
	handlers Handlers

	locked       bool
	lastX, lastY float64
	haveLast     bool
}

var (
	_ Host                 = (*Window)(nil)
	_ camera.PointerLocker = (*Window)(nil)
)

// OpenWindow initializes glfw, creates the window with a current OpenGL 4.1
// core context and returns it. Must be called from the locked main thread.
func OpenWindow(cfg config.WindowConfig, rcfg config.RendererConfig) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("%w: glfw init: %v", ErrNoDisplay, err)
	}

	glfw.WindowHint(glfw.Decorated, glfw.True)
	glfw.WindowHint(glfw.Resizable, boolHint(cfg.Resizable))
	glfw.WindowHint(glfw.DepthBits, 24)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.ScaleToMonitor, glfw.True)
	if rcfg.MSAASamples > 0 {
		glfw.WindowHint(glfw.Samples, rcfg.MSAASamples)
	}

	win, err := glfw.CreateWindow(int(cfg.Width), int(cfg.Height), cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("%w: create window: %v", ErrNoDisplay, err)
	}
	win.MakeContextCurrent()
	if cfg.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	if caption, err := params.Hex(rcfg.ClearColor); err == nil {
		styleTitleBar(win, caption)
	}

	w := &Window{win: win}
	win.SetFramebufferSizeCallback(w.framebufferSizeCallback)
	win.SetMouseButtonCallback(w.mouseButtonCallback)
	win.SetCursorPosCallback(w.cursorPosCallback)
	win.SetScrollCallback(w.scrollCallback)
	win.SetKeyCallback(w.keyCallback)
	win.SetFocusCallback(w.focusCallback)

	width, height := w.Size()
	fbW, fbH := w.FramebufferSize()
	logger.Log.Info("Window created",
		zap.Int("width", width), zap.Int("height", height),
		zap.Int("framebufferWidth", fbW), zap.Int("framebufferHeight", fbH),
		zap.Bool("vsync", cfg.VSync))
	return w, nil
}

func boolHint(b bool) int {
	if b {
		return glfw.True
	}
	return glfw.False
}

func (w *Window) SetHandlers(h Handlers) {
	w.handlers = h
}

func (w *Window) Size() (int, int) {
	return w.win.GetSize()
}

func (w *Window) FramebufferSize() (int, int) {
	return w.win.GetFramebufferSize()
}

func (w *Window) PollEvents() {
	glfw.PollEvents()
}

func (w *Window) Present() {
	w.win.SwapBuffers()
}

func (w *Window) ShouldClose() bool {
	return w.win.ShouldClose()
}

// RequestPointerLock hides and captures the cursor. Capture is refused while
// the window is not focused.
func (w *Window) RequestPointerLock() error {
	if w.win.GetAttrib(glfw.Focused) != glfw.True {
		return errors.New("window is not focused")
	}
	w.win.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	if glfw.RawMouseMotionSupported() {
		w.win.SetInputMode(glfw.RawMouseMotion, glfw.True)
	}
	w.locked = true
	w.haveLast = false
	return nil
}

func (w *Window) ReleasePointerLock() {
	if !w.locked {
		return
	}
	if glfw.RawMouseMotionSupported() {
		w.win.SetInputMode(glfw.RawMouseMotion, glfw.False)
	}
	w.win.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	w.locked = false
	w.haveLast = false
}

func (w *Window) loseLock() {
	if !w.locked {
		return
	}
	w.ReleasePointerLock()
	if w.handlers.LockLost != nil {
		w.handlers.LockLost()
	}
}

// Close destroys the window and terminates glfw.
func (w *Window) Close() {
	w.win.Destroy()
	glfw.Terminate()
}

func (w *Window) framebufferSizeCallback(_ *glfw.Window, fbW, fbH int) {
	if w.handlers.Resize == nil {
		return
	}
	width, height := w.win.GetSize()
	w.handlers.Resize(width, height, fbW, fbH)
}

func (w *Window) mouseButtonCallback(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
	if w.handlers.PointerButton == nil || action == glfw.Repeat {
		return
	}
	w.handlers.PointerButton(int(button), action == glfw.Press)
}

func (w *Window) cursorPosCallback(_ *glfw.Window, xpos, ypos float64) {
	if !w.haveLast {
		w.lastX, w.lastY = xpos, ypos
		w.haveLast = true
		return
	}
	dx, dy := xpos-w.lastX, ypos-w.lastY
	w.lastX, w.lastY = xpos, ypos
	if w.handlers.PointerMoved != nil {
		w.handlers.PointerMoved(float32(dx), float32(dy))
	}
}

func (w *Window) scrollCallback(_ *glfw.Window, _, yoff float64) {
	if w.handlers.Scrolled != nil {
		w.handlers.Scrolled(float32(yoff))
	}
}

func (w *Window) keyCallback(win *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	if action != glfw.Press {
		return
	}
	if key == glfw.KeyEscape {
		// Escape gives the pointer back first and quits on a second press.
		if w.locked {
			w.loseLock()
			return
		}
		win.SetShouldClose(true)
		return
	}
	if w.handlers.KeyDown != nil {
		w.handlers.KeyDown()
	}
}

func (w *Window) focusCallback(_ *glfw.Window, focused bool) {
	if !focused {
		w.loseLock()
	}
}
