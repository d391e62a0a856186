package effect

import (
	"Meadow3D/internal/logger"
	"Meadow3D/internal/params"
	"Meadow3D/internal/scene"

	"go.uber.org/zap"
)

// Effect is a time-bounded animation owned by the Manager.
type Effect interface {
	Name() string
	// Begin is called once with the elapsed loop time the effect starts at.
	Begin(now float64)
	// Update advances the effect and reports whether it has finished.
	Update(now float64) bool
}

type phase int

const (
	phaseIdle phase = iota
	phaseOverlay
	phaseMaterial
	phaseDone
)

// FadeOut reveals the scene through a transient mesh: a full-screen overlay
// fades away first, then the mesh's material alpha runs down to zero, and
// finally the overlay, mesh geometry and material are released.
type FadeOut struct {
	Scene   *scene.Scene
	Store   *params.Store
	Node    *scene.Node
	Overlay *scene.Overlay

	// AlphaParam is the animated parameter on the node's material.
	AlphaParam   string
	OverlayFade  Tween
	MaterialFade Tween

	phase         phase
	overlayStart  float64
	materialStart float64
	tornDown      bool
	teardownAt    float64
}

var _ Effect = (*FadeOut)(nil)

func (f *FadeOut) Name() string {
	if f.Node != nil {
		return f.Node.Name
	}
	return "fade"
}

func (f *FadeOut) Begin(now float64) {
	f.phase = phaseOverlay
	f.overlayStart = now
	if f.Overlay != nil {
		f.Overlay.SetAlpha(f.OverlayFade.From)
	}
}

func (f *FadeOut) Update(now float64) bool {
	switch f.phase {
	case phaseOverlay:
		t := now - f.overlayStart
		if f.Overlay != nil {
			f.Overlay.SetAlpha(f.OverlayFade.Value(t))
		}
		if f.OverlayFade.Done(t) {
			f.startMaterialFade(now)
		}
	case phaseMaterial:
		if f.MaterialFade.Done(now - f.materialStart) {
			f.teardown(now)
		}
	}
	return f.phase == phaseDone
}

func (f *FadeOut) startMaterialFade(now float64) {
	f.phase = phaseMaterial
	f.materialStart = now
	mat := f.material()
	if mat == "" {
		return
	}
	start, fade := now, f.MaterialFade
	err := f.Store.Drive(mat, f.AlphaParam, func(elapsed float64) params.Value {
		return params.Float(fade.Value(elapsed - start))
	})
	if err != nil {
		logger.Log.Warn("Material fade has no alpha parameter",
			zap.String("material", mat),
			zap.String("param", f.AlphaParam),
			zap.Error(err))
	}
}

// teardown runs once, after both fades completed.
func (f *FadeOut) teardown(now float64) {
	if f.tornDown {
		return
	}
	f.tornDown = true
	f.teardownAt = now
	f.phase = phaseDone

	if f.Overlay != nil {
		f.Scene.RemoveOverlay(f.Overlay)
	}
	if mat := f.material(); mat != "" {
		f.Store.Remove(mat)
	}
	if f.Node != nil {
		f.Node.DisposeMesh()
	}
	logger.Log.Info("Transient effect torn down",
		zap.String("effect", f.Name()),
		zap.Float64("at", now))
}

func (f *FadeOut) material() string {
	if f.Node == nil || f.Node.Mesh == nil || f.Node.Mesh.Material == nil {
		return ""
	}
	return f.Node.Mesh.Material.ID
}

// TornDown reports whether teardown ran, and at which loop time.
func (f *FadeOut) TornDown() (bool, float64) {
	return f.tornDown, f.teardownAt
}
