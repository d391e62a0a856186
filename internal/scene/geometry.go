package scene

import (
	"Meadow3D/internal/asset"

	"github.com/chewxy/math32"
)

// Geometry holds vertex data in the layout the renderer uploads: three
// floats per position and normal, two per uv, four per color.
type Geometry struct {
	Positions []float32
	Normals   []float32
	UVs       []float32
	Colors    []float32
	Indices   []uint32

	releases []func()
	disposed bool
}

func (g *Geometry) VertexCount() int {
	return len(g.Positions) / 3
}

func (g *Geometry) HasColors() bool {
	return len(g.Colors) > 0
}

// OnDispose registers a release hook. GPU buffers use it to free
// themselves when the geometry is disposed.
func (g *Geometry) OnDispose(fn func()) {
	if g.disposed {
		fn()
		return
	}
	g.releases = append(g.releases, fn)
}

// Dispose runs the release hooks exactly once.
func (g *Geometry) Dispose() {
	if g == nil || g.disposed {
		return
	}
	g.disposed = true
	for _, fn := range g.releases {
		fn()
	}
	g.releases = nil
}

func (g *Geometry) Disposed() bool {
	return g.disposed
}

// RotateX rotates positions and normals about the X axis in place.
func (g *Geometry) RotateX(angle float32) *Geometry {
	sin, cos := math32.Sincos(angle)
	rotate := func(v []float32) {
		for i := 0; i+2 < len(v); i += 3 {
			y, z := v[i+1], v[i+2]
			v[i+1] = y*cos - z*sin
			v[i+2] = y*sin + z*cos
		}
	}
	rotate(g.Positions)
	rotate(g.Normals)
	return g
}

// Plane builds a single quad of the given size centered on the origin in
// the XY plane, facing +Z.
func Plane(width, height float32) *Geometry {
	hw, hh := width/2, height/2
	return &Geometry{
		Positions: []float32{
			-hw, hh, 0,
			hw, hh, 0,
			-hw, -hh, 0,
			hw, -hh, 0,
		},
		Normals: []float32{
			0, 0, 1,
			0, 0, 1,
			0, 0, 1,
			0, 0, 1,
		},
		UVs:     []float32{0, 1, 1, 1, 0, 0, 1, 0},
		Indices: []uint32{0, 2, 1, 2, 3, 1},
	}
}

// Circle builds a disc sector in the XY plane facing +Z. A thetaLength of
// Pi gives a half disc.
func Circle(radius float32, segments int, thetaStart, thetaLength float32) *Geometry {
	if segments < 3 {
		segments = 3
	}
	g := &Geometry{
		Positions: []float32{0, 0, 0},
		Normals:   []float32{0, 0, 1},
		UVs:       []float32{0.5, 0.5},
	}
	for s := 0; s <= segments; s++ {
		theta := thetaStart + float32(s)/float32(segments)*thetaLength
		sin, cos := math32.Sincos(theta)
		x, y := radius*cos, radius*sin
		g.Positions = append(g.Positions, x, y, 0)
		g.Normals = append(g.Normals, 0, 0, 1)
		g.UVs = append(g.UVs, (x/radius+1)/2, (y/radius+1)/2)
	}
	for i := uint32(1); i <= uint32(segments); i++ {
		g.Indices = append(g.Indices, i, i+1, 0)
	}
	return g
}

// FromSubMesh copies a decoded sub-mesh into a new geometry.
func FromSubMesh(sm *asset.SubMesh) *Geometry {
	g := &Geometry{
		Positions: append([]float32(nil), sm.Positions...),
		Normals:   append([]float32(nil), sm.Normals...),
		UVs:       append([]float32(nil), sm.UVs...),
		Colors:    append([]float32(nil), sm.Colors...),
		Indices:   append([]uint32(nil), sm.Indices...),
	}
	if len(g.Colors) == 0 {
		g.Colors = nil
	}
	return g
}
