package asset

import (
	"errors"
	"fmt"
)

// Kind selects the decoder used for a load.
type Kind int

const (
	EnvironmentMap Kind = iota
	Texture
	Model
	Audio
)

func (k Kind) String() string {
	switch k {
	case EnvironmentMap:
		return "environment-map"
	case Texture:
		return "texture"
	case Model:
		return "model"
	case Audio:
		return "audio"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// State of a load. A handle leaves Pending exactly once.
type State int

const (
	Pending State = iota
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	ErrUnsupportedFormat = errors.New("unsupported asset format")
	ErrNoDecoder         = errors.New("no decoder registered for asset kind")
)

// Handle tracks one asynchronous load. All methods must be called from the
// render thread, the same thread that drains the pool's Queue.
type Handle struct {
	kind  Kind
	path  string
	queue *Queue

	state State
	asset any
	err   error

	onReady []func(any)
	onFail  []func(error)
}

func newHandle(kind Kind, path string, queue *Queue) *Handle {
	return &Handle{kind: kind, path: path, queue: queue}
}

func (h *Handle) Kind() Kind { return h.kind }
func (h *Handle) Path() string { return h.path }
func (h *Handle) State() State { return h.state }
func (h *Handle) Err() error { return h.err }
func (h *Handle) Ready() bool { return h.state == Ready }

// Asset returns the decoded asset, or nil unless the handle is Ready.
func (h *Handle) Asset() any {
	if h.state != Ready {
		return nil
	}
	return h.asset
}

// Texture lets a handle back a sampler parameter. Only image and
// environment map loads yield a texture.
func (h *Handle) Texture() any {
	switch a := h.Asset().(type) {
	case *Image, *EnvMap:
		return a
	}
	return nil
}

// Then registers a continuation for a successful load. If the handle is
// already Ready, the continuation runs on the next queue drain.
func (h *Handle) Then(fn func(any)) *Handle {
	switch h.state {
	case Pending:
		h.onReady = append(h.onReady, fn)
	case Ready:
		a := h.asset
		h.queue.Post(func() { fn(a) })
	}
	return h
}

// Catch registers a continuation for a failed load.
func (h *Handle) Catch(fn func(error)) *Handle {
	switch h.state {
	case Pending:
		h.onFail = append(h.onFail, fn)
	case Failed:
		err := h.err
		h.queue.Post(func() { fn(err) })
	}
	return h
}

// resolve settles the handle. Runs on the render thread via the queue.
func (h *Handle) resolve(a any, err error) {
	if h.state != Pending {
		return
	}
	if err != nil {
		h.state = Failed
		h.err = err
		for _, fn := range h.onFail {
			fn(err)
		}
	} else {
		h.state = Ready
		h.asset = a
		for _, fn := range h.onReady {
			fn(a)
		}
	}
	h.onReady = nil
	h.onFail = nil
}

// Then registers a typed continuation. Assets of another type are ignored.
func Then[T any](h *Handle, fn func(T)) *Handle {
	return h.Then(func(a any) {
		if v, ok := a.(T); ok {
			fn(v)
		}
	})
}
