package stage

import (
	"Meadow3D/internal/asset"
	"Meadow3D/internal/camera"
	"Meadow3D/internal/effect"
	"Meadow3D/internal/logger"
	"Meadow3D/internal/panel"
	"Meadow3D/internal/params"
	"Meadow3D/internal/procedural"
	"Meadow3D/internal/scene"

	"github.com/chewxy/math32"
	"go.uber.org/zap"
)

const (
	veilMaterial     = "veil"
	mountainMaterial = "mountain"
	bathPrefix       = "bath"
)

func buildOrbit(env *Env) (*Stage, error) {
	cam := newCamera(env)
	ctrl := camera.NewOrbitController(cam, camera.WithDamping(env.Config.Camera.Damping))

	addLights(env)
	addEnvironment(env)

	veil, err := addVeil(env)
	if err != nil {
		return nil, err
	}
	if err := addFade(env, veil); err != nil {
		return nil, err
	}
	addMountain(env)
	addBath(env)

	logger.Log.Info("Orbit stage composed")
	return &Stage{Controller: ctrl}, nil
}

// addVeil hangs the noise plane in front of the camera.
func addVeil(env *Env) (*scene.Node, error) {
	store := env.Store
	declare(store, veilMaterial, "uColorA", params.Tunable, params.MustHex("#042c71"))
	declare(store, veilMaterial, "uColorB", params.Tunable, params.MustHex("#f87865"))
	declare(store, veilMaterial, "uVanish", params.Tunable, params.Float(0.2))
	declare(store, veilMaterial, "uNoiseFrequency", params.Tunable, params.Float(500))
	declareAnimated(store, veilMaterial, "uTime", params.ElapsedSeconds)
	declareAnimated(store, veilMaterial, "uAlpha", func(float64) params.Value { return params.Float(1) })

	noise, err := procedural.NoiseTexture(procedural.DefaultNoiseOptions())
	if err != nil {
		return nil, err
	}
	declare(store, veilMaterial, "uNoiseMap", params.Static, params.Sampler{Source: noise})

	mat := scene.NewMaterial(veilMaterial, scene.ProgramNoise)
	mat.Transparent = true
	mat.DoubleSided = true

	node := scene.NewNode("veil")
	node.Mesh = &scene.Mesh{Geometry: scene.Plane(20, 5), Material: mat}
	node.SetPosition(0, 0, -1)
	env.Scene.CameraRig().AddChild(node)

	if env.Panel != nil {
		bind(env.Panel.BindColor(veilMaterial, "uColorA", "Veil color A", nil))
		bind(env.Panel.BindColor(veilMaterial, "uColorB", "Veil color B", nil))
		bind(env.Panel.BindFloat(veilMaterial, "uVanish", panel.Options{Label: "Vanish", Min: 0.01, Max: 1, Step: 0.001}, nil))
		bind(env.Panel.BindFloat(veilMaterial, "uNoiseFrequency", panel.Options{Label: "Noise frequency", Min: 1, Max: 1000, Step: 1}, nil))
	}
	return node, nil
}

func addFade(env *Env, veil *scene.Node) error {
	cfg := env.Config.Fade
	if !cfg.Enabled {
		return nil
	}
	color, err := effect.ParseOverlayColor(cfg.OverlayColor)
	if err != nil {
		return err
	}
	overlay := &scene.Overlay{Name: "veil-overlay", Color: color}
	env.Scene.AddOverlay(overlay)

	env.Effects.Start(&effect.FadeOut{
		Scene:        env.Scene,
		Store:        env.Store,
		Node:         veil,
		Overlay:      overlay,
		AlphaParam:   "uAlpha",
		OverlayFade:  effect.NewTween(color[3], 0, cfg.OverlayHold.Duration, cfg.OverlayFade.Duration),
		MaterialFade: effect.NewTween(1, 0, 0, cfg.MaterialFade.Duration),
	}, 0)
	return nil
}

// addMountain lays the grass-shaded half disc the scene stands on.
func addMountain(env *Env) {
	store := env.Store
	alpha := env.Pool.Load(asset.Texture, env.Config.Assets.FloorAlpha)
	alpha.Catch(logFailure(alpha))

	declare(store, mountainMaterial, "uGradients", params.Static, params.Float(3))
	declare(store, mountainMaterial, "uLightPosition", params.Static, params.Vec3{1, 1, 1})
	declare(store, mountainMaterial, "uColor", params.Static, params.MustHex("#9bbc49"))
	declare(store, mountainMaterial, "uDecay", params.Tunable, params.Float(3))
	declare(store, mountainMaterial, "uAlphaMap", params.Static, params.Sampler{Source: alpha})

	mat := scene.NewMaterial(mountainMaterial, scene.ProgramGrass)
	mat.Transparent = true
	mat.DoubleSided = true

	node := scene.NewNode("base-mountain")
	node.Mesh = &scene.Mesh{
		Geometry: scene.Circle(20, 8, 0, math32.Pi).RotateX(-math32.Pi / 2),
		Material: mat,
	}
	node.SetPosition(0, 0, 3)
	node.ReceiveShadow = true
	env.Scene.Add(node)

	if env.Panel != nil {
		bind(env.Panel.BindFloat(mountainMaterial, "uDecay", panel.Options{Label: "Decay", Min: 0, Max: 10, Step: 1}, nil))
	}
}

// addBath attaches the first root of the bath model once it loads.
func addBath(env *Env) {
	store := env.Store
	builder := scene.NewBuilder(scene.BuilderOptions{
		Derive: func(src asset.SourceMaterial) *scene.Material {
			id := bathPrefix + "/" + src.Name
			declare(store, id, "uBaseColor", params.Static, baseColor(src))
			declare(store, id, "uOpacity", params.Static, params.Float(src.BaseColor[3]))
			mat := scene.NewMaterial(id, scene.ProgramBasic)
			mat.Transparent = src.BaseColor[3] < 1
			return mat
		},
		VertexColor:   vertexColorMaterials(bathPrefix),
		CastShadow:    true,
		ReceiveShadow: true,
	})

	h := env.Pool.Load(asset.Model, env.Config.Assets.Model)
	asset.Then(h, func(model *asset.ModelAsset) {
		if len(model.Roots) == 0 {
			logger.Log.Warn("Bath model has no nodes", zap.String("path", h.Path()))
			return
		}
		first := &asset.ModelAsset{Name: model.Name, Roots: model.Roots[:1], Materials: model.Materials}
		nodes, err := builder.AttachModel(env.Scene.Root, first)
		if err != nil {
			logger.Log.Warn("Bath model rejected", zap.Error(err))
			return
		}
		nodes[0].SetUniformScale(0.05)
	})
	h.Catch(logFailure(h))
}

func bind(err error) {
	if err != nil {
		logger.Log.Warn("Panel binding failed", zap.Error(err))
	}
}
