package stage

import (
	"errors"
	"testing"

	"Meadow3D/internal/asset"
	"Meadow3D/internal/audio"
	"Meadow3D/internal/config"
	"Meadow3D/internal/effect"
	"Meadow3D/internal/input"
	"Meadow3D/internal/params"
	"Meadow3D/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocker struct {
	requests int
	deny     bool
}

func (l *fakeLocker) RequestPointerLock() error {
	l.requests++
	if l.deny {
		return errors.New("window not focused")
	}
	return nil
}

func (l *fakeLocker) ReleasePointerLock() {}

type nopSink struct{}

func (nopSink) Play(*asset.AudioClip, bool) error { return nil }
func (nopSink) Stop()                             {}

func pixel(name string) *asset.Image {
	return &asset.Image{Name: name, Width: 1, Height: 1, Pixels: []uint8{255, 255, 255, 255}, Mipmaps: true}
}

func subMesh(name, material string) *asset.SubMesh {
	return &asset.SubMesh{
		Name:         name,
		MaterialName: material,
		Positions:    []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Indices:      []uint32{0, 1, 2},
	}
}

func fakeModel() *asset.ModelAsset {
	identity := func(name string, meshes ...*asset.SubMesh) *asset.ModelNode {
		return &asset.ModelNode{Name: name, Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}, Meshes: meshes}
	}
	return &asset.ModelAsset{
		Name: "fake",
		Roots: []*asset.ModelNode{
			identity("tub", subMesh("shell", "Wood"), subMesh("rim", "Wood"), subMesh("water", "Water")),
			identity("stool", subMesh("seat", "Wood")),
		},
		Materials: map[string]asset.SourceMaterial{
			"Wood":  {Name: "Wood", BaseColor: [4]float32{0.6, 0.4, 0.2, 1}},
			"Water": {Name: "Water", BaseColor: [4]float32{0.2, 0.4, 0.8, 0.5}},
		},
	}
}

type fixture struct {
	env    *Env
	queue  *asset.Queue
	pool   *asset.Pool
	locker *fakeLocker
}

func newFixture(t *testing.T, envErr error) *fixture {
	t.Helper()
	queue := asset.NewQueue()
	pool := asset.NewPool(queue, 2,
		asset.WithDecoder(asset.EnvironmentMap, asset.DecoderFunc(func(path string) (any, error) {
			if envErr != nil {
				return nil, envErr
			}
			return &asset.EnvMap{Name: path, Width: 1, Height: 1, Pixels: []float32{1, 1, 1}}, nil
		})),
		asset.WithDecoder(asset.Texture, asset.DecoderFunc(func(path string) (any, error) {
			return pixel(path), nil
		})),
		asset.WithDecoder(asset.Model, asset.DecoderFunc(func(string) (any, error) {
			return fakeModel(), nil
		})),
		asset.WithDecoder(asset.Audio, asset.DecoderFunc(func(path string) (any, error) {
			return &asset.AudioClip{Name: path}, nil
		})),
	)
	t.Cleanup(pool.Close)

	locker := &fakeLocker{}
	return &fixture{
		env: &Env{
			Config:  config.Default(),
			Store:   params.NewStore(),
			Scene:   scene.New(),
			Pool:    pool,
			Effects: effect.NewManager(),
			Gate:    input.NewGate(),
			Player:  audio.NewPlayer(nopSink{}, true),
			Locker:  locker,
			Aspect:  16.0 / 9.0,
		},
		queue:  queue,
		pool:   pool,
		locker: locker,
	}
}

func (f *fixture) settle() {
	f.pool.Wait()
	f.queue.Drain()
}

func TestRegistryNames(t *testing.T) {
	assert.Equal(t, []string{"lookout", "orbit"}, Names())
}

func TestBuildUnknownStage(t *testing.T) {
	f := newFixture(t, nil)
	_, err := Build("meadow", f.env)
	assert.ErrorIs(t, err, ErrUnknownStage)
}

func TestOrbitComposesBeforeAssetsArrive(t *testing.T) {
	f := newFixture(t, nil)

	st, err := Build("orbit", f.env)
	require.NoError(t, err)
	assert.False(t, st.Gated)

	s := f.env.Scene
	veil := s.CameraRig().Find("veil")
	require.NotNil(t, veil)
	assert.Equal(t, mgl32.Vec3{0, 0, -1}, veil.Position)
	assert.True(t, veil.Mesh.Material.Transparent)

	require.Len(t, s.Overlays(), 1)
	assert.InDelta(t, 1, s.Overlays()[0].Alpha(), 1e-6)
	assert.Equal(t, 1, f.env.Effects.Active())

	mountain := s.Root.Find("base-mountain")
	require.NotNil(t, mountain)
	assert.True(t, mountain.ReceiveShadow)
	assert.Equal(t, scene.ProgramGrass, mountain.Mesh.Material.Program)

	cat, ok := f.env.Store.Category("veil", "uVanish")
	require.True(t, ok)
	assert.Equal(t, params.Tunable, cat)
	cat, ok = f.env.Store.Category("veil", "uTime")
	require.True(t, ok)
	assert.Equal(t, params.Animated, cat)

	noise, ok := f.env.Store.Get("veil", "uNoiseMap")
	require.True(t, ok)
	assert.NotNil(t, noise.(params.Sampler).Source.Texture())

	// Nothing loaded yet: the sampler slot exists but yields no texture.
	alpha, ok := f.env.Store.Get("mountain", "uAlphaMap")
	require.True(t, ok)
	assert.Nil(t, alpha.(params.Sampler).Source.Texture())
	assert.Nil(t, s.Background.Texture())

	require.Len(t, s.Directional, 1)
	assert.True(t, s.Directional[0].CastShadow)
	assert.Equal(t, 1024, s.Directional[0].Shadow.MapSize)
}

func TestOrbitAttachesFirstBathRootScaled(t *testing.T) {
	f := newFixture(t, nil)
	_, err := Build("orbit", f.env)
	require.NoError(t, err)

	f.settle()

	s := f.env.Scene
	tub := s.Root.Find("tub")
	require.NotNil(t, tub)
	assert.Equal(t, mgl32.Vec3{0.05, 0.05, 0.05}, tub.Scale)
	assert.True(t, tub.CastShadow)
	assert.Nil(t, s.Root.Find("stool"))

	assert.NotNil(t, s.Background.Texture())
	assert.NotNil(t, s.Environment.Texture())

	alpha, _ := f.env.Store.Get("mountain", "uAlphaMap")
	assert.NotNil(t, alpha.(params.Sampler).Source.Texture())

	base, ok := f.env.Store.Get("bath/Wood", "uBaseColor")
	require.True(t, ok)
	assert.Equal(t, params.Color{0.6, 0.4, 0.2}, base)
}

func TestOrbitSurvivesMissingEnvironment(t *testing.T) {
	f := newFixture(t, errors.New("no such file"))
	_, err := Build("orbit", f.env)
	require.NoError(t, err)

	f.settle()

	assert.Nil(t, f.env.Scene.Background.Texture())
	assert.NotNil(t, f.env.Scene.Root.Find("tub"))
}

func TestOrbitWithoutFade(t *testing.T) {
	f := newFixture(t, nil)
	f.env.Config.Fade.Enabled = false

	_, err := Build("orbit", f.env)
	require.NoError(t, err)

	assert.Empty(t, f.env.Scene.Overlays())
	assert.Equal(t, 0, f.env.Effects.Active())
}

func TestLookoutSharesMaterialsAndGradient(t *testing.T) {
	f := newFixture(t, nil)

	st, err := Build("lookout", f.env)
	require.NoError(t, err)
	assert.True(t, st.Gated)

	f.settle()

	s := f.env.Scene
	tub := s.Root.Find("tub")
	require.NotNil(t, tub)
	require.Len(t, tub.Children, 3)
	shell, rim, water := tub.Children[0], tub.Children[1], tub.Children[2]
	assert.Same(t, shell.Mesh.Material, rim.Mesh.Material)
	assert.NotSame(t, shell.Mesh.Material, water.Mesh.Material)
	assert.Same(t, shell.Mesh.Material, s.Root.Find("stool").Mesh.Material)
	assert.Equal(t, scene.ProgramToon, shell.Mesh.Material.Program)
	assert.True(t, water.Mesh.Material.Transparent)

	ramp, ok := f.env.Store.Get("lookout/Wood", "uGradientMap")
	require.True(t, ok)
	img, ok := ramp.(params.Sampler).Source.Texture().(*asset.Image)
	require.True(t, ok)
	assert.Equal(t, asset.FilterNearest, img.MinFilter)
	assert.False(t, img.Mipmaps)
}

func TestLookoutGateUnlocksAudioAndPointer(t *testing.T) {
	f := newFixture(t, nil)
	st, err := Build("lookout", f.env)
	require.NoError(t, err)
	f.settle()

	assert.False(t, f.env.Player.Unlocked())
	assert.True(t, f.env.Gate.Observe(input.Event{Kind: input.PointerDown}))

	assert.True(t, f.env.Player.Unlocked())
	assert.Equal(t, 1, f.locker.requests)

	f.env.Player.Update(0)
	assert.True(t, f.env.Player.Playing())

	cam := st.Controller.Camera()
	assert.InDelta(t, 0, cam.Position.X(), 1e-6)
}

func TestLookoutRetriesDeniedLock(t *testing.T) {
	f := newFixture(t, nil)
	f.locker.deny = true
	st, err := Build("lookout", f.env)
	require.NoError(t, err)

	f.env.Gate.Observe(input.Event{Kind: input.PointerDown})
	assert.Equal(t, 1, f.locker.requests)

	f.locker.deny = false
	st.Controller.PointerButton(true)
	assert.Equal(t, 2, f.locker.requests)
}
