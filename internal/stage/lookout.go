package stage

import (
	"Meadow3D/internal/asset"
	"Meadow3D/internal/camera"
	"Meadow3D/internal/input"
	"Meadow3D/internal/logger"
	"Meadow3D/internal/params"
	"Meadow3D/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

const lookoutPrefix = "lookout"

func buildLookout(env *Env) (*Stage, error) {
	c := env.Config.Camera
	cam := newCamera(env)
	cam.LookAt(mgl32.Vec3{0, 0.5, 0})
	ctrl := camera.NewPointerLockController(cam, env.Locker,
		camera.WithPitchBounds(c.MinPitchDeg, c.MaxPitchDeg),
		camera.WithSensitivity(c.Sensitivity))

	addLights(env)
	addEnvironment(env)

	env.Gate.OnFire(func(input.Event) {
		if env.Player != nil {
			env.Player.Unlock()
		}
		_ = ctrl.Engage()
	})
	if env.Player != nil {
		h := env.Pool.Load(asset.Audio, env.Config.Assets.Ambience)
		asset.Then(h, env.Player.SetClip)
		h.Catch(logFailure(h))
	}

	// The gradient ramp is shared by every toon material, so it is requested
	// before the models that use it.
	gradient := env.Pool.Load(asset.Texture, env.Config.Assets.Gradient)
	asset.Then(gradient, func(img *asset.Image) { img.SetNearest() })
	gradient.Catch(logFailure(gradient))

	store := env.Store
	builder := scene.NewBuilder(scene.BuilderOptions{
		Derive: func(src asset.SourceMaterial) *scene.Material {
			id := lookoutPrefix + "/" + src.Name
			declare(store, id, "uBaseColor", params.Static, baseColor(src))
			declare(store, id, "uOpacity", params.Static, params.Float(src.BaseColor[3]))
			declare(store, id, "uGradientMap", params.Static, params.Sampler{Source: gradient})
			mat := scene.NewMaterial(id, scene.ProgramToon)
			mat.Transparent = src.BaseColor[3] < 1
			return mat
		},
		VertexColor:   vertexColorMaterials(lookoutPrefix),
		CastShadow:    true,
		ReceiveShadow: true,
	})

	model := env.Pool.Load(asset.Model, env.Config.Assets.LookoutModel)
	asset.Then(model, func(m *asset.ModelAsset) {
		nodes, err := builder.AttachModel(env.Scene.Root, m)
		if err != nil {
			logger.Log.Warn("Lookout model rejected", zap.Error(err))
			return
		}
		logger.Log.Info("Lookout model attached",
			zap.Int("roots", len(nodes)),
			zap.Int("sharedMaterials", builder.SharedMaterials()))
	})
	model.Catch(logFailure(model))

	logger.Log.Info("Lookout stage composed")
	return &Stage{Controller: ctrl, Gated: true}, nil
}
