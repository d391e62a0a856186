package input

import (
	"fmt"

	"Meadow3D/internal/logger"

	"go.uber.org/zap"
)

type EventKind int

const (
	PointerDown EventKind = iota
	PointerUp
	TouchStart
	KeyDown
)

func (k EventKind) String() string {
	switch k {
	case PointerDown:
		return "pointer-down"
	case PointerUp:
		return "pointer-up"
	case TouchStart:
		return "touch-start"
	case KeyDown:
		return "key-down"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is a user input as reported by the host window.
type Event struct {
	Kind   EventKind
	Button int
}

// Qualifies reports whether the event counts as a deliberate user gesture.
func (e Event) Qualifies() bool {
	return e.Kind == PointerDown || e.Kind == TouchStart
}

// Gate is a one-shot latch that opens on the first qualifying gesture.
// Audio start and pointer capture both hang off it.
type Gate struct {
	fired       bool
	subscribers []func(Event)
}

func NewGate() *Gate {
	return &Gate{}
}

// OnFire registers fn to run when the gate fires. Subscribers run in
// registration order. Registering after the gate fired does nothing.
func (g *Gate) OnFire(fn func(Event)) {
	if g.fired {
		return
	}
	g.subscribers = append(g.subscribers, fn)
}

func (g *Gate) Fired() bool {
	return g.fired
}

// Observe feeds an event to the gate. It returns true only for the event
// that fired it.
func (g *Gate) Observe(e Event) bool {
	if g.fired || !e.Qualifies() {
		return false
	}
	g.fired = true
	logger.Log.Info("Interaction gate fired", zap.Stringer("event", e.Kind))
	subs := g.subscribers
	g.subscribers = nil
	for _, fn := range subs {
		fn(e)
	}
	return true
}
