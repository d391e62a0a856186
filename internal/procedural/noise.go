package procedural

import (
	"fmt"

	"Meadow3D/internal/asset"

	"github.com/aquilax/go-perlin"
	"github.com/chewxy/math32"
)

type NoiseOptions struct {
	Size    int
	Scale   float64 // noise periods across the texture
	Alpha   float64
	Beta    float64
	Octaves int32
	Seed    int64
}

func DefaultNoiseOptions() NoiseOptions {
	return NoiseOptions{Size: 256, Scale: 8, Alpha: 2, Beta: 2, Octaves: 3, Seed: 1}
}

// NoiseTexture renders perlin noise into a square grayscale texture with
// values remapped from [-1, 1] to [0, 255].
func NoiseTexture(opts NoiseOptions) (*asset.Image, error) {
	if opts.Size <= 0 || opts.Octaves <= 0 {
		return nil, fmt.Errorf("noise texture: size %d, octaves %d", opts.Size, opts.Octaves)
	}
	gen := perlin.NewPerlin(opts.Alpha, opts.Beta, opts.Octaves, opts.Seed)
	img := &asset.Image{
		Name:      fmt.Sprintf("noise-%d", opts.Seed),
		Width:     opts.Size,
		Height:    opts.Size,
		Pixels:    make([]uint8, opts.Size*opts.Size*4),
		MinFilter: asset.FilterLinear,
		MagFilter: asset.FilterLinear,
		Mipmaps:   true,
	}
	step := opts.Scale / float64(opts.Size)
	for y := 0; y < opts.Size; y++ {
		for x := 0; x < opts.Size; x++ {
			v := float32(gen.Noise2D((float64(x)+0.5)*step, (float64(y)+0.5)*step))
			g := uint8(math32.Round((math32.Max(-1, math32.Min(1, v))*0.5 + 0.5) * 255))
			i := (y*opts.Size + x) * 4
			img.Pixels[i] = g
			img.Pixels[i+1] = g
			img.Pixels[i+2] = g
			img.Pixels[i+3] = 255
		}
	}
	return img, nil
}
