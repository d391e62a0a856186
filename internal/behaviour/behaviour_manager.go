package behaviour

// Behaviour is per-tick logic driven by the frame scheduler.
type Behaviour interface {
	Update(elapsed float64)
}

// Starter is implemented by behaviours that need a hook before their first
// Update.
type Starter interface {
	Start()
}

// Func adapts a function to Behaviour.
type Func func(elapsed float64)

func (f Func) Update(elapsed float64) { f(elapsed) }

type behaviourWrapper struct {
	name      string
	behaviour Behaviour
	started   bool
}

// Manager runs behaviours once per tick in registration order.
type Manager struct {
	behaviours []behaviourWrapper
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Add(name string, b Behaviour) {
	m.behaviours = append(m.behaviours, behaviourWrapper{name: name, behaviour: b})
}

// Remove drops the behaviour registered under name, keeping the order of
// the rest.
func (m *Manager) Remove(name string) bool {
	for i := range m.behaviours {
		if m.behaviours[i].name == name {
			m.behaviours = append(m.behaviours[:i], m.behaviours[i+1:]...)
			return true
		}
	}
	return false
}

func (m *Manager) Clear() {
	m.behaviours = m.behaviours[:0]
}

func (m *Manager) Len() int {
	return len(m.behaviours)
}

func (m *Manager) Names() []string {
	names := make([]string, len(m.behaviours))
	for i, w := range m.behaviours {
		names[i] = w.name
	}
	return names
}

func (m *Manager) UpdateAll(elapsed float64) {
	for i := range m.behaviours {
		w := &m.behaviours[i]
		if !w.started {
			if s, ok := w.behaviour.(Starter); ok {
				s.Start()
			}
			w.started = true
		}
		w.behaviour.Update(elapsed)
	}
}
