package renderer

import (
	"sort"

	"Meadow3D/internal/scene"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// floats per interleaved vertex: position 3, uv 2, normal 3, color 4.
const vertexStride = 12

// interleave packs geometry into the vertex layout of mesh.vert. Missing
// attributes get neutral defaults so every program can read every slot.
func interleave(g *scene.Geometry) []float32 {
	n := g.VertexCount()
	out := make([]float32, n*vertexStride)
	for i := 0; i < n; i++ {
		v := out[i*vertexStride : (i+1)*vertexStride]
		copy(v[0:3], g.Positions[i*3:i*3+3])
		if len(g.UVs) >= (i+1)*2 {
			copy(v[3:5], g.UVs[i*2:i*2+2])
		}
		if len(g.Normals) >= (i+1)*3 {
			copy(v[5:8], g.Normals[i*3:i*3+3])
		} else {
			v[6] = 1
		}
		if len(g.Colors) >= (i+1)*4 {
			copy(v[8:12], g.Colors[i*4:i*4+4])
		} else {
			v[8], v[9], v[10], v[11] = 1, 1, 1, 1
		}
	}
	return out
}

// drawableSize returns the framebuffer size to render at when the device
// pixel ratio is capped at maxRatio.
func drawableSize(windowW, windowH, fbW, fbH int, maxRatio float32) (int, int) {
	if windowW <= 0 || windowH <= 0 {
		return fbW, fbH
	}
	ratio := float32(fbW) / float32(windowW)
	if maxRatio <= 0 || ratio <= maxRatio {
		return fbW, fbH
	}
	return int(math32.Round(float32(windowW) * maxRatio)), int(math32.Round(float32(windowH) * maxRatio))
}

type drawItem struct {
	node     *scene.Node
	world    mgl32.Mat4
	distance float32
}

// drawOrder splits meshes into opaque ones in scene order and transparent
// ones sorted back to front from the eye.
func drawOrder(nodes []*scene.Node, eye mgl32.Vec3) (opaque, transparent []drawItem) {
	for _, n := range nodes {
		world := n.WorldMatrix()
		item := drawItem{node: n, world: world}
		if n.Mesh.Material.Transparent {
			item.distance = world.Col(3).Vec3().Sub(eye).Len()
			transparent = append(transparent, item)
		} else {
			opaque = append(opaque, item)
		}
	}
	sort.SliceStable(transparent, func(i, j int) bool {
		return transparent[i].distance > transparent[j].distance
	})
	return opaque, transparent
}

func normalMatrix(model mgl32.Mat4) mgl32.Mat3 {
	m := model.Mat3()
	if m.Det() == 0 {
		return mgl32.Ident3()
	}
	return m.Inv().Transpose()
}

// lookupRotation turns XYZ euler angles applied to an environment into the
// matrix that maps view directions into the environment's frame.
func lookupRotation(euler mgl32.Vec3) mgl32.Mat3 {
	return mgl32.AnglesToQuat(euler[0], euler[1], euler[2], mgl32.XYZ).Mat4().Mat3().Transpose()
}

// lightSpace is the view-projection of a directional light's shadow camera.
func lightSpace(l *scene.DirectionalLight) mgl32.Mat4 {
	sc := l.Shadow
	up := mgl32.Vec3{0, 1, 0}
	dir := l.Target.Sub(l.Position).Normalize()
	if math32.Abs(dir.Dot(up)) > 0.999 {
		up = mgl32.Vec3{0, 0, 1}
	}
	proj := mgl32.Ortho(sc.Left, sc.Right, sc.Bottom, sc.Top, sc.Near, sc.Far)
	return proj.Mul4(mgl32.LookAtV(l.Position, l.Target, up))
}

// shadowBias maps clip space into shadow map texture space.
var shadowBias = mgl32.Mat4{
	0.5, 0, 0, 0,
	0, 0.5, 0, 0,
	0, 0, 0.5, 0,
	0.5, 0.5, 0.5, 1,
}
