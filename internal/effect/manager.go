package effect

import (
	"Meadow3D/internal/logger"

	"go.uber.org/zap"
)

// Manager runs effects once per tick and drops them when they finish.
type Manager struct {
	active []Effect
	now    float64
}

func NewManager() *Manager {
	return &Manager{}
}

// Start begins e at loop time now.
func (m *Manager) Start(e Effect, now float64) {
	e.Begin(now)
	m.active = append(m.active, e)
	logger.Log.Debug("Effect started", zap.String("effect", e.Name()), zap.Float64("at", now))
}

// StartNow begins e at the time of the last Update.
func (m *Manager) StartNow(e Effect) {
	m.Start(e, m.now)
}

func (m *Manager) Update(elapsed float64) {
	m.now = elapsed
	kept := m.active[:0]
	for _, e := range m.active {
		if !e.Update(elapsed) {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(m.active); i++ {
		m.active[i] = nil
	}
	m.active = kept
}

func (m *Manager) Active() int {
	return len(m.active)
}
