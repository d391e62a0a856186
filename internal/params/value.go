package params

import (
	"fmt"
	"math"
	"reflect"

	"github.com/go-gl/mathgl/mgl32"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Value is a uniform value. The concrete types are Float, Int, Color, Vec3
// and Sampler.
type Value interface {
	isValue()
}

type Float float32

type Int int32

// Color is an RGB triple in [0,1], uploaded as a vec3 uniform.
type Color mgl32.Vec3

type Vec3 mgl32.Vec3

// Sampler points at a texture slot. Source is resolved by the renderer every
// frame so a slot can be declared before its texture finishes loading.
type Sampler struct {
	Source TextureSource
}

// TextureSource yields the decoded texture, or nil while it is missing.
type TextureSource interface {
	Texture() any
}

func (Float) isValue()   {}
func (Int) isValue()     {}
func (Color) isValue()   {}
func (Vec3) isValue()    {}
func (Sampler) isValue() {}

// Hex parses "#rrggbb" into a Color.
func Hex(s string) (Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	return Color{float32(c.R), float32(c.G), float32(c.B)}, nil
}

// MustHex is Hex for literals known to be valid.
func MustHex(s string) Color {
	c, err := Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// HexString formats the color back to "#rrggbb".
func (c Color) HexString() string {
	return colorful.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2])}.Clamped().Hex()
}

func finite(v Value) bool {
	check := func(f float32) bool {
		return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
	}
	switch t := v.(type) {
	case Float:
		return check(float32(t))
	case Color:
		return check(t[0]) && check(t[1]) && check(t[2])
	case Vec3:
		return check(t[0]) && check(t[1]) && check(t[2])
	}
	return true
}

func sameKind(a, b Value) bool {
	return reflect.TypeOf(a) == reflect.TypeOf(b)
}
