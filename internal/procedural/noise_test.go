package procedural

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoiseTextureIsDeterministic(t *testing.T) {
	opts := DefaultNoiseOptions()
	opts.Size = 32

	a, err := NoiseTexture(opts)
	require.NoError(t, err)
	b, err := NoiseTexture(opts)
	require.NoError(t, err)

	assert.Equal(t, a.Pixels, b.Pixels)
	assert.Len(t, a.Pixels, 32*32*4)
}

func TestNoiseTextureVaries(t *testing.T) {
	opts := DefaultNoiseOptions()
	opts.Size = 32

	img, err := NoiseTexture(opts)
	require.NoError(t, err)

	distinct := map[uint8]bool{}
	for i := 0; i < len(img.Pixels); i += 4 {
		distinct[img.Pixels[i]] = true
		assert.Equal(t, uint8(255), img.Pixels[i+3])
	}
	assert.Greater(t, len(distinct), 10)
}

func TestNoiseTextureRejectsBadSize(t *testing.T) {
	_, err := NoiseTexture(NoiseOptions{Size: 0, Octaves: 1})

	assert.Error(t, err)
}
