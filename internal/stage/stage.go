package stage

import (
	"errors"
	"fmt"
	"sort"

	"Meadow3D/internal/asset"
	"Meadow3D/internal/audio"
	"Meadow3D/internal/camera"
	"Meadow3D/internal/config"
	"Meadow3D/internal/effect"
	"Meadow3D/internal/input"
	"Meadow3D/internal/panel"
	"Meadow3D/internal/params"
	"Meadow3D/internal/scene"
)

var ErrUnknownStage = errors.New("unknown stage")

// Env is what a stage composes its scene from. Player and Panel may be nil.
type Env struct {
	Config  config.Config
	Store   *params.Store
	Scene   *scene.Scene
	Pool    *asset.Pool
	Effects *effect.Manager
	Gate    *input.Gate
	Player  *audio.Player
	Panel   panel.Panel
	Locker  camera.PointerLocker
	Aspect  float32
}

// Stage is a composed scene ready for the frame loop.
type Stage struct {
	Controller camera.Controller
	// Gated stages hand the first qualifying input to the interaction gate
	// instead of the controller.
	Gated bool
}

type BuildFunc func(env *Env) (*Stage, error)

var registry = make(map[string]BuildFunc)

func init() {
	Register(string(config.VariantOrbit), buildOrbit)
	Register(string(config.VariantLookout), buildLookout)
}

func Register(name string, build BuildFunc) {
	registry[name] = build
}

// Names lists the registered stages in order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Build(name string, env *Env) (*Stage, error) {
	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, name)
	}
	return build(env)
}
