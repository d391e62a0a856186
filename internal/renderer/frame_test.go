package renderer

import (
	"testing"

	"Meadow3D/internal/asset"
	"Meadow3D/internal/scene"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterleaveDefaults(t *testing.T) {
	g := &scene.Geometry{Positions: []float32{1, 2, 3, 4, 5, 6}}

	data := interleave(g)

	require.Len(t, data, 2*vertexStride)
	assert.Equal(t, []float32{1, 2, 3, 0, 0, 0, 1, 0, 1, 1, 1, 1}, data[:vertexStride])
	assert.Equal(t, []float32{4, 5, 6}, data[vertexStride:vertexStride+3])
}

func TestInterleaveCopiesAttributes(t *testing.T) {
	g := &scene.Geometry{
		Positions: []float32{1, 2, 3},
		UVs:       []float32{0.25, 0.75},
		Normals:   []float32{0, 0, 1},
		Colors:    []float32{0.1, 0.2, 0.3, 0.4},
	}

	assert.Equal(t, []float32{1, 2, 3, 0.25, 0.75, 0, 0, 1, 0.1, 0.2, 0.3, 0.4}, interleave(g))
}

func TestDrawableSizeCapsPixelRatio(t *testing.T) {
	w, h := drawableSize(800, 600, 2400, 1800, 2)
	assert.Equal(t, 1600, w)
	assert.Equal(t, 1200, h)

	w, h = drawableSize(800, 600, 1600, 1200, 2)
	assert.Equal(t, 1600, w)
	assert.Equal(t, 1200, h)

	w, h = drawableSize(800, 600, 800, 600, 2)
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
}

func TestDrawableSizeWithoutCap(t *testing.T) {
	w, h := drawableSize(800, 600, 2400, 1800, 0)
	assert.Equal(t, 2400, w)
	assert.Equal(t, 1800, h)

	w, h = drawableSize(0, 0, 10, 10, 2)
	assert.Equal(t, 10, w)
	assert.Equal(t, 10, h)
}

func meshNode(name string, transparent bool, z float32) *scene.Node {
	n := scene.NewNode(name)
	mat := scene.NewMaterial(name, scene.ProgramBasic)
	mat.Transparent = transparent
	n.Mesh = &scene.Mesh{Geometry: scene.Plane(1, 1), Material: mat}
	n.SetPosition(0, 0, z)
	return n
}

func TestDrawOrderSortsTransparentBackToFront(t *testing.T) {
	nodes := []*scene.Node{
		meshNode("near", true, 1),
		meshNode("solid-a", false, -5),
		meshNode("far", true, -10),
		meshNode("solid-b", false, 2),
		meshNode("mid", true, -3),
	}

	opaque, transparent := drawOrder(nodes, mgl32.Vec3{0, 0, 3})

	names := func(items []drawItem) []string {
		var out []string
		for _, it := range items {
			out = append(out, it.node.Name)
		}
		return out
	}
	assert.Equal(t, []string{"solid-a", "solid-b"}, names(opaque))
	assert.Equal(t, []string{"far", "mid", "near"}, names(transparent))
}

func TestNormalMatrixUndoesNonUniformScale(t *testing.T) {
	model := mgl32.Scale3D(2, 1, 1)
	n := normalMatrix(model).Mul3x1(mgl32.Vec3{1, 1, 0}).Normalize()

	assert.InDelta(t, 0.4472, n.X(), 1e-3)
	assert.InDelta(t, 0.8944, n.Y(), 1e-3)

	assert.Equal(t, mgl32.Ident3(), normalMatrix(mgl32.Scale3D(0, 1, 1)))
}

func TestLookupRotationInvertsEuler(t *testing.T) {
	euler := mgl32.Vec3{0, math32.Pi / 2, 0}
	forward := mgl32.AnglesToQuat(0, math32.Pi/2, 0, mgl32.XYZ).Rotate(mgl32.Vec3{1, 0, 0})

	back := lookupRotation(euler).Mul3x1(forward)

	assert.InDelta(t, 1, back.X(), 1e-5)
	assert.InDelta(t, 0, back.Z(), 1e-5)
}

func TestLightSpaceMapsTargetInsideVolume(t *testing.T) {
	light := &scene.DirectionalLight{
		Position: mgl32.Vec3{6.25, 3, -4},
		Shadow:   scene.ShadowCamera{Near: 0.1, Far: 30, Left: -8, Right: 8, Top: 8, Bottom: -8},
	}

	p := shadowBias.Mul4(lightSpace(light)).Mul4x1(mgl32.Vec4{0, 0, 0, 1})

	for i := 0; i < 3; i++ {
		assert.GreaterOrEqual(t, p[i], float32(0))
		assert.LessOrEqual(t, p[i], float32(1))
	}
}

func TestSpliceAfterVersion(t *testing.T) {
	out := spliceAfterVersion("#version 410 core\nvoid main() {}\n", "uniform float uX;")
	assert.Equal(t, "#version 410 core\n\nuniform float uX;\nvoid main() {}\n", out)

	assert.Equal(t, "block\nbody", spliceAfterVersion("body", "block"))
}

func TestLoadShaderSources(t *testing.T) {
	for name := range shaderSources {
		shader, err := LoadShader(name)
		require.NoError(t, err, name)
		assert.Contains(t, shader.vertexSource, "#version 410 core")
		assert.Contains(t, shader.fragmentSource, "#version 410 core")
	}

	toon, err := LoadShader(scene.ProgramToon)
	require.NoError(t, err)
	assert.Contains(t, toon.fragmentSource, "float shadowFactor")
	assert.Equal(t, []string{"uGradientMap"}, toon.Samplers)

	noise, err := LoadShader(scene.ProgramNoise)
	require.NoError(t, err)
	assert.NotContains(t, noise.fragmentSource, "shadowFactor")

	_, err = LoadShader("missing")
	assert.Error(t, err)
}

func TestTextureManagerUploadsOnce(t *testing.T) {
	tm := NewTextureManager()
	var uploads, frees int
	tm.upload = func(src any) (uint32, error) {
		uploads++
		return uint32(uploads), nil
	}
	tm.free = func(uint32) { frees++ }

	a := &asset.Image{Name: "a"}
	b := &asset.Image{Name: "b"}

	id1, err := tm.Acquire(a)
	require.NoError(t, err)
	id2, err := tm.Acquire(a)
	require.NoError(t, err)
	id3, err := tm.Acquire(b)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, id3)
	stats := tm.GetStats()
	assert.Equal(t, 2, stats.CacheMisses)
	assert.Equal(t, 1, stats.CacheHits)
	assert.Equal(t, 2, stats.ActiveTextures)

	tm.Clear()
	assert.Equal(t, 2, frees)
	assert.Equal(t, 0, tm.GetStats().ActiveTextures)
}

func TestTextureManagerRemembersFailedUpload(t *testing.T) {
	tm := NewTextureManager()
	var uploads int
	tm.upload = func(any) (uint32, error) {
		uploads++
		return 0, assert.AnError
	}
	tm.free = func(uint32) {}
	img := &asset.Image{Name: "broken"}

	for i := 0; i < 5; i++ {
		_, err := tm.Acquire(img)
		require.ErrorIs(t, err, assert.AnError)
	}

	assert.Equal(t, 1, uploads)
	stats := tm.GetStats()
	assert.Equal(t, 1, stats.FailedUploads)
	assert.Equal(t, 1, stats.CacheMisses)
	assert.Zero(t, stats.ActiveTextures)

	tm.Clear()
	_, err := tm.Acquire(img)
	require.Error(t, err)
	assert.Equal(t, 2, uploads)
}

func TestMinFilterFollowsImageSettings(t *testing.T) {
	img := &asset.Image{Mipmaps: true}
	assert.Equal(t, int32(0x2703), minFilter(img)) // LINEAR_MIPMAP_LINEAR

	img.SetNearest()
	assert.Equal(t, int32(0x2600), minFilter(img)) // NEAREST
	assert.Equal(t, int32(0x2600), magFilter(img))
}

func TestUnwindRunsInReverse(t *testing.T) {
	var order []int
	var u Unwind
	u.Add(func() { order = append(order, 1) })
	u.Add(func() { order = append(order, 2) })

	u.Unwind()
	assert.Equal(t, []int{2, 1}, order)

	u.Add(func() { order = append(order, 3) })
	u.Discard()
	u.Unwind()
	assert.Equal(t, []int{2, 1}, order)
}
