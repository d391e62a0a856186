package renderer

import (
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// Skybox draws an equirectangular map behind the scene with a single
// full-screen triangle.
type Skybox struct {
	shader *Shader
	vao    uint32
}

func NewSkybox(shader *Shader, vao uint32) *Skybox {
	return &Skybox{shader: shader, vao: vao}
}

// Render draws textureID at the far plane. The view's translation is
// dropped so the background stays at infinity.
func (s *Skybox) Render(textureID uint32, view, projection mgl32.Mat4, rotation mgl32.Mat3) {
	view[12], view[13], view[14] = 0, 0, 0
	inverse := projection.Mul4(view).Inv()

	s.shader.Use()
	u := s.shader.Uniforms()
	u.SetMat4("uInverseViewProjection", inverse)
	u.SetMat3("uBackgroundRotation", rotation)
	u.SetInt("uBackground", 0)

	gl.DepthMask(false)
	gl.DepthFunc(gl.LEQUAL)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, textureID)
	gl.BindVertexArray(s.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)

	gl.DepthMask(true)
	gl.DepthFunc(gl.LESS)
}
