package asset

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Filter is the sampling mode requested for a texture.
type Filter int

const (
	FilterLinear Filter = iota
	FilterNearest
)

// Image is a decoded 2D texture in RGBA8.
type Image struct {
	Name      string
	Width     int
	Height    int
	Pixels    []uint8
	MinFilter Filter
	MagFilter Filter
	Mipmaps   bool
}

// Texture lets an in-memory image back a sampler parameter directly.
func (img *Image) Texture() any {
	return img
}

// SetNearest switches the texture to nearest sampling without mipmaps, as
// toon gradient ramps need.
func (img *Image) SetNearest() {
	img.MinFilter = FilterNearest
	img.MagFilter = FilterNearest
	img.Mipmaps = false
}

var imageKinds = map[string]bool{
	"png":  true,
	"jpg":  true,
	"webp": true,
	"bmp":  true,
}

// sniff reads the file and checks its magic bytes against allowed
// extensions.
func sniff(path string, allowed map[string]bool) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	kind, err := filetype.Match(data)
	if err != nil {
		return nil, "", err
	}
	if kind == filetype.Unknown || !allowed[kind.Extension] {
		return data, kind.Extension, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	return data, kind.Extension, nil
}

// DecodeImage decodes a PNG, JPEG, WebP or BMP file into an Image.
func DecodeImage(path string) (any, error) {
	data, _, err := sniff(path, imageKinds)
	if err != nil {
		return nil, err
	}
	return decodeImageReader(path, bytes.NewReader(data))
}

func decodeImageReader(name string, r io.Reader) (*Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	rgba := toRGBA(src)
	return &Image{
		Name:      name,
		Width:     rgba.Rect.Dx(),
		Height:    rgba.Rect.Dy(),
		Pixels:    rgba.Pix,
		MinFilter: FilterLinear,
		MagFilter: FilterLinear,
		Mipmaps:   true,
	}, nil
}

func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Copy(rgba, image.Point{}, src, b, xdraw.Src, nil)
	return rgba
}
