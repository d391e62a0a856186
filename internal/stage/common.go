package stage

import (
	"fmt"

	"Meadow3D/internal/asset"
	"Meadow3D/internal/camera"
	"Meadow3D/internal/logger"
	"Meadow3D/internal/params"
	"Meadow3D/internal/scene"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

var (
	ambientColor = params.MustHex("#9bbc49")
	sunColor     = params.MustHex("#ffffff")
	sunPosition  = mgl32.Vec3{6.25, 3, -4}
)

func newCamera(env *Env) *camera.Camera {
	c := env.Config.Camera
	cam := camera.New(c.Fov, c.Near, c.Far, env.Aspect)
	cam.SetPosition(0, 1, 3)
	return cam
}

func addLights(env *Env) {
	s := env.Scene
	s.Ambient = &scene.AmbientLight{Color: ambientColor, Intensity: 1}
	s.AddDirectional(&scene.DirectionalLight{
		Color:      sunColor,
		Intensity:  2,
		Position:   sunPosition,
		CastShadow: true,
		Shadow: scene.ShadowCamera{
			Near:    0.1,
			Far:     30,
			Left:    -8,
			Right:   8,
			Top:     8,
			Bottom:  -8,
			MapSize: int(env.Config.Renderer.ShadowMapSize),
		},
	})
}

// addEnvironment loads the environment map as both background and image
// based light. Until it arrives the scene renders against the clear color.
func addEnvironment(env *Env) *asset.Handle {
	h := env.Pool.Load(asset.EnvironmentMap, env.Config.Assets.EnvironmentMap)
	s := env.Scene
	s.Background = h
	s.Environment = h
	s.BackgroundRotation = mgl32.Vec3{0, math32.Pi / 2, 0}
	s.EnvironmentRotation = mgl32.Vec3{0, math32.Pi / 2, 0}
	s.EnvironmentIntensity = 1
	h.Catch(logFailure(h))
	return h
}

func logFailure(h *asset.Handle) func(error) {
	return func(err error) {
		logger.Log.Warn("Asset unavailable, continuing without it",
			zap.Stringer("kind", h.Kind()),
			zap.String("path", h.Path()),
			zap.Error(err))
	}
}

// declare registers a material parameter. Declaration only fails on a
// programming error such as a duplicate name, which is logged.
func declare(store *params.Store, material, name string, category params.Category, v params.Value) {
	if err := store.Declare(material, name, category, v); err != nil {
		logger.Log.Error("Parameter declaration failed",
			zap.String("material", material),
			zap.String("param", name),
			zap.Error(err))
	}
}

func declareAnimated(store *params.Store, material, name string, driver params.Driver) {
	if err := store.DeclareAnimated(material, name, driver); err != nil {
		logger.Log.Error("Parameter declaration failed",
			zap.String("material", material),
			zap.String("param", name),
			zap.Error(err))
	}
}

func baseColor(src asset.SourceMaterial) params.Color {
	return params.Color{src.BaseColor[0], src.BaseColor[1], src.BaseColor[2]}
}

// vertexColorMaterials gives every vertex-colored mesh its own procedural
// material.
func vertexColorMaterials(prefix string) scene.VertexColorFunc {
	count := 0
	return func(sm *asset.SubMesh) *scene.Material {
		count++
		return scene.NewMaterial(fmt.Sprintf("%s/%s#%d", prefix, sm.Name, count), scene.ProgramVertexColor)
	}
}
