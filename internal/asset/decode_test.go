package asset

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestDecodeImagePNG(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.NRGBA{R: 255, A: 255})
	src.Set(1, 0, color.NRGBA{B: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))
	path := writeFile(t, "gradient.png", buf.Bytes())

	out, err := DecodeImage(path)

	require.NoError(t, err)
	img := out.(*Image)
	assert.Equal(t, 2, img.Width)
	assert.Equal(t, 1, img.Height)
	assert.Equal(t, []uint8{255, 0, 0, 255, 0, 0, 255, 255}, img.Pixels)
}

func TestDecodeImageRejectsUnknownFormat(t *testing.T) {
	path := writeFile(t, "notes.png", []byte("this is not an image"))

	_, err := DecodeImage(path)

	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSetNearest(t *testing.T) {
	img := &Image{Mipmaps: true}

	img.SetNearest()

	assert.Equal(t, FilterNearest, img.MinFilter)
	assert.Equal(t, FilterNearest, img.MagFilter)
	assert.False(t, img.Mipmaps)
}

func TestDecodeEnvMapFlatRGBE(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n-Y 1 +X 2\n")
	buf.Write([]byte{128, 64, 0, 129, 0, 0, 0, 0})
	path := writeFile(t, "env.hdr", buf.Bytes())

	out, err := DecodeEnvMap(path)

	require.NoError(t, err)
	env := out.(*EnvMap)
	assert.Equal(t, 2, env.Width)
	assert.Equal(t, 1, env.Height)
	assert.InDeltaSlice(t, []float32{1, 0.5, 0, 0, 0, 0}, env.Pixels, 1e-6)
	assert.Equal(t, EquirectangularReflection, env.Mapping)
}

func TestDecodeEnvMapRunLengthRGBE(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("#?RADIANCE\n\n-Y 1 +X 8\n")
	buf.Write([]byte{2, 2, 0, 8})
	// One run per channel: R=128, G=128, B=0, E=129
	buf.Write([]byte{128 + 8, 128})
	buf.Write([]byte{128 + 8, 128})
	buf.Write([]byte{128 + 8, 0})
	buf.Write([]byte{128 + 8, 129})
	path := writeFile(t, "env.hdr", buf.Bytes())

	out, err := DecodeEnvMap(path)

	require.NoError(t, err)
	env := out.(*EnvMap)
	require.Len(t, env.Pixels, 8*3)
	for x := 0; x < 8; x++ {
		assert.InDelta(t, 1.0, env.Pixels[x*3], 1e-6)
		assert.InDelta(t, 1.0, env.Pixels[x*3+1], 1e-6)
		assert.InDelta(t, 0.0, env.Pixels[x*3+2], 1e-6)
	}
}

func TestDecodeEnvMapRejectsOrientation(t *testing.T) {
	path := writeFile(t, "env.hdr", []byte("#?RADIANCE\n\n+Y 1 +X 2\n"))

	_, err := DecodeEnvMap(path)

	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecodeEnvMapRejectsHugeResolution(t *testing.T) {
	path := writeFile(t, "env.hdr", []byte("#?RADIANCE\n\n-Y 3037000500 +X 3037000500\n"))

	_, err := DecodeEnvMap(path)

	assert.ErrorIs(t, err, errBadRGBE)
}

func TestEnvMapPoolLoadFailsOnHugeResolution(t *testing.T) {
	path := writeFile(t, "env.hdr", []byte("#?RADIANCE\n\n-Y 3037000500 +X 3037000500\n"))
	q := NewQueue()
	p := NewPool(q, 1)
	t.Cleanup(p.Close)

	var caught error
	h := p.Load(EnvironmentMap, path).Catch(func(err error) { caught = err })
	p.Wait()
	q.Drain()

	assert.Equal(t, Failed, h.State())
	assert.ErrorIs(t, caught, errBadRGBE)
}

func TestReadPrimitiveRejectsMissingAccessor(t *testing.T) {
	doc := &gltf.Document{}
	cases := map[string]*gltf.Primitive{
		"past end": {Attributes: gltf.PrimitiveAttributes{gltf.POSITION: 4}},
		"negative": {Attributes: gltf.PrimitiveAttributes{gltf.POSITION: -1}},
	}

	for name, prim := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := readPrimitive(doc, "mesh", 0, prim)
			assert.Error(t, err)
		})
	}
}

func TestDecodeOBJGroupsByMaterial(t *testing.T) {
	dir := t.TempDir()
	mtl := "newmtl tub\nKd 0.5 0.25 1\nd 0.5\nnewmtl water\nKd 0 0 1\n"
	obj := `mtllib bath.mtl
v 0 0 0 1 0 0
v 1 0 0 0 1 0
v 1 1 0 0 0 1
v 0 1 0 1 1 1
vt 0 0
vn 0 0 1
usemtl tub
f 1/1/1 2/1/1 3/1/1 4/1/1
usemtl water
f 1 2 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bath.mtl"), []byte(mtl), 0o644))
	path := filepath.Join(dir, "bath.obj")
	require.NoError(t, os.WriteFile(path, []byte(obj), 0o644))

	out, err := DecodeModel(path)

	require.NoError(t, err)
	m := out.(*ModelAsset)
	require.Len(t, m.Roots, 1)
	meshes := m.Roots[0].Meshes
	require.Len(t, meshes, 2)
	assert.Equal(t, "tub", meshes[0].MaterialName)
	assert.Len(t, meshes[0].Indices, 6, "quad is split into two triangles")
	assert.Equal(t, 4, meshes[0].VertexCount())
	assert.True(t, meshes[0].HasVertexColors())
	assert.Equal(t, "water", meshes[1].MaterialName)
	assert.Len(t, meshes[1].Indices, 3)

	assert.Equal(t, [4]float32{0.5, 0.25, 1, 0.5}, m.Materials["tub"].BaseColor)
	assert.Equal(t, [4]float32{0, 0, 1, 1}, m.Materials["water"].BaseColor)
}

func TestDecodeOBJRejectsShortFace(t *testing.T) {
	path := writeFile(t, "bad.obj", []byte("v 0 0 0\nv 1 0 0\nf 1 2\n"))

	_, err := DecodeModel(path)

	assert.Error(t, err)
}

func TestDecodeModelUnknownExtension(t *testing.T) {
	path := writeFile(t, "bath.fbx", []byte("binary"))

	_, err := DecodeModel(path)

	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func pcmWAV(frames int) []byte {
	const (
		channels   = 2
		sampleRate = 44100
		bits       = 16
	)
	frameSize := channels * bits / 8
	dataSize := frames * frameSize
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*frameSize))
	binary.Write(&buf, binary.LittleEndian, uint16(frameSize))
	binary.Write(&buf, binary.LittleEndian, uint16(bits))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}

func TestDecodeAudioWAV(t *testing.T) {
	path := writeFile(t, "ambience.wav", pcmWAV(16))

	out, err := DecodeAudio(path)

	require.NoError(t, err)
	clip := out.(*AudioClip)
	assert.Equal(t, 16, clip.Len())
	assert.Equal(t, 2, clip.Format.NumChannels)
}

func TestDecodeAudioRejectsImage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	path := writeFile(t, "ambience.png", buf.Bytes())

	_, err := DecodeAudio(path)

	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
