package renderer

import (
	"fmt"

	"Meadow3D/internal/camera"
	"Meadow3D/internal/config"
	"Meadow3D/internal/logger"
	"Meadow3D/internal/params"
	"Meadow3D/internal/scene"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Texture units 0 and 1 hold the shadow map and environment; material
// samplers start after them.
const (
	unitShadow = iota
	unitEnvironment
	unitMaterial
)

type gpuMesh struct {
	vao, vbo, ebo uint32
	count         int32
	indexed       bool
}

type shadowTarget struct {
	fbo, depth uint32
	size       int32
}

type offscreenTarget struct {
	fbo, color, depth uint32
	width, height     int
}

type OpenGLRenderer struct {
	cfg   config.RendererConfig
	store *params.Store
	clear params.Color

	shaders  map[string]*Shader
	textures *TextureManager
	skybox   *Skybox
	meshes   map[*scene.Geometry]*gpuMesh
	emptyVAO uint32
	shadow   shadowTarget
	target   offscreenTarget

	windowW, windowH int
	fbW, fbH         int
	drawW, drawH     int

	warned   map[string]bool
	released bool
}

// New creates a renderer reading material uniforms from store. Init must be
// called with a current GL context before the first frame.
func New(cfg config.RendererConfig, store *params.Store) *OpenGLRenderer {
	clear, err := params.Hex(cfg.ClearColor)
	if err != nil {
		clear = params.Color{}
	}
	return &OpenGLRenderer{
		cfg:      cfg,
		store:    store,
		clear:    clear,
		shaders:  make(map[string]*Shader),
		textures: NewTextureManager(),
		meshes:   make(map[*scene.Geometry]*gpuMesh),
		warned:   make(map[string]bool),
	}
}

func (rend *OpenGLRenderer) Init(windowW, windowH, fbW, fbH int) error {
	if err := gl.Init(); err != nil {
		return fmt.Errorf("OpenGL initialization failed: %w", err)
	}

	var cleanup Unwind
	for name := range shaderSources {
		shader, err := LoadShader(name)
		if err != nil {
			cleanup.Unwind()
			return err
		}
		if err := shader.Compile(); err != nil {
			cleanup.Unwind()
			return err
		}
		rend.shaders[name] = shader
		cleanup.Add(shader.Delete)
	}

	gl.GenVertexArrays(1, &rend.emptyVAO)
	rend.skybox = NewSkybox(rend.shaders[programBackground], rend.emptyVAO)

	if err := rend.initShadowMap(); err != nil {
		cleanup.Unwind()
		return err
	}
	cleanup.Discard()

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	if rend.cfg.MSAASamples > 0 {
		gl.Enable(gl.MULTISAMPLE)
	}
	rend.Resize(windowW, windowH, fbW, fbH)

	logger.Log.Info("OpenGL renderer initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.Int("programs", len(rend.shaders)))
	return nil
}

func (rend *OpenGLRenderer) initShadowMap() error {
	size := rend.cfg.ShadowMapSize
	if size <= 0 {
		size = 1024
	}
	rend.shadow.size = size

	gl.GenTextures(1, &rend.shadow.depth)
	gl.BindTexture(gl.TEXTURE_2D, rend.shadow.depth)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.DEPTH_COMPONENT24, size, size, 0, gl.DEPTH_COMPONENT, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	gl.GenFramebuffers(1, &rend.shadow.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, rend.shadow.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, rend.shadow.depth, 0)
	gl.DrawBuffer(gl.NONE)
	gl.ReadBuffer(gl.NONE)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("shadow framebuffer incomplete: 0x%x", status)
	}
	return nil
}

// Resize records the window and framebuffer sizes. When the framebuffer is
// denser than the configured pixel ratio cap, frames are drawn to a smaller
// offscreen target and scaled up on present.
func (rend *OpenGLRenderer) Resize(windowW, windowH, fbW, fbH int) {
	if fbW <= 0 || fbH <= 0 {
		return
	}
	rend.windowW, rend.windowH = windowW, windowH
	rend.fbW, rend.fbH = fbW, fbH
	rend.drawW, rend.drawH = drawableSize(windowW, windowH, fbW, fbH, rend.cfg.MaxPixelRatio)

	if rend.drawW == fbW && rend.drawH == fbH {
		rend.deleteOffscreen()
		return
	}
	if rend.target.width == rend.drawW && rend.target.height == rend.drawH {
		return
	}
	rend.deleteOffscreen()
	rend.createOffscreen(rend.drawW, rend.drawH)
	logger.Log.Debug("Pixel ratio capped",
		zap.Int("framebufferWidth", fbW),
		zap.Int("renderWidth", rend.drawW))
}

func (rend *OpenGLRenderer) createOffscreen(w, h int) {
	t := &rend.target
	t.width, t.height = w, h
	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)

	gl.GenRenderbuffers(1, &t.color)
	gl.BindRenderbuffer(gl.RENDERBUFFER, t.color)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.RGBA8, int32(w), int32(h))
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.RENDERBUFFER, t.color)

	gl.GenRenderbuffers(1, &t.depth)
	gl.BindRenderbuffer(gl.RENDERBUFFER, t.depth)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, int32(w), int32(h))
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, t.depth)

	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		logger.Log.Warn("Offscreen target incomplete, drawing at full density", zap.Uint32("status", status))
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		rend.deleteOffscreen()
		rend.drawW, rend.drawH = rend.fbW, rend.fbH
		return
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

func (rend *OpenGLRenderer) deleteOffscreen() {
	t := &rend.target
	if t.fbo == 0 {
		return
	}
	gl.DeleteFramebuffers(1, &t.fbo)
	gl.DeleteRenderbuffers(1, &t.color)
	gl.DeleteRenderbuffers(1, &t.depth)
	*t = offscreenTarget{}
}

// Render draws one frame of s as seen from cam.
func (rend *OpenGLRenderer) Render(s *scene.Scene, cam *camera.Camera) {
	if rend.released || rend.drawW == 0 || rend.drawH == 0 {
		return
	}

	nodes := s.Meshes()
	for _, n := range nodes {
		rend.upload(n.Mesh.Geometry)
	}
	opaque, transparent := drawOrder(nodes, cam.Position)

	light, shadowMatrix, shadowed := rend.shadowPass(s, opaque, transparent)

	gl.BindFramebuffer(gl.FRAMEBUFFER, rend.target.fbo)
	gl.Viewport(0, 0, int32(rend.drawW), int32(rend.drawH))
	gl.ClearColor(rend.clear[0], rend.clear[1], rend.clear[2], 1)
	gl.DepthMask(true)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	view, projection := cam.ViewMatrix(), cam.ProjectionMatrix()
	if id, ok := rend.sampleSource(s.Background); ok {
		rend.skybox.Render(id, view, projection, lookupRotation(s.BackgroundRotation))
	}

	frame := frameUniforms{
		view:         view,
		projection:   projection,
		eye:          cam.Position,
		scene:        s,
		light:        light,
		shadowMatrix: shadowMatrix,
		shadowed:     shadowed,
		prepared:     make(map[*Shader]bool),
	}
	frame.envID, frame.envReady = rend.sampleSource(s.Environment)

	gl.Disable(gl.BLEND)
	for _, item := range opaque {
		rend.drawMesh(&frame, item)
	}
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	for _, item := range transparent {
		rend.drawMesh(&frame, item)
	}
	gl.DepthMask(true)

	rend.drawOverlays(s.Overlays())
	gl.Disable(gl.BLEND)

	if rend.target.fbo != 0 {
		gl.BindFramebuffer(gl.READ_FRAMEBUFFER, rend.target.fbo)
		gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
		gl.BlitFramebuffer(0, 0, int32(rend.drawW), int32(rend.drawH), 0, 0, int32(rend.fbW), int32(rend.fbH), gl.COLOR_BUFFER_BIT, gl.LINEAR)
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	}
}

type frameUniforms struct {
	view, projection mgl32.Mat4
	eye              mgl32.Vec3
	scene            *scene.Scene
	light            *scene.DirectionalLight
	shadowMatrix     mgl32.Mat4
	shadowed         bool
	envID            uint32
	envReady         bool
	prepared         map[*Shader]bool
}

// shadowPass renders depth from the first shadow-casting directional light.
func (rend *OpenGLRenderer) shadowPass(s *scene.Scene, groups ...[]drawItem) (*scene.DirectionalLight, mgl32.Mat4, bool) {
	var light *scene.DirectionalLight
	for _, l := range s.Directional {
		if light == nil {
			light = l
		}
		if l.CastShadow {
			light = l
			break
		}
	}
	if light == nil || !light.CastShadow {
		return light, mgl32.Ident4(), false
	}

	space := lightSpace(light)
	depth := rend.shaders[programDepth]
	gl.BindFramebuffer(gl.FRAMEBUFFER, rend.shadow.fbo)
	gl.Viewport(0, 0, rend.shadow.size, rend.shadow.size)
	gl.DepthMask(true)
	gl.Clear(gl.DEPTH_BUFFER_BIT)
	gl.Disable(gl.CULL_FACE)
	depth.Use()
	depth.Uniforms().SetMat4("uLightSpace", space)
	for _, group := range groups {
		for _, item := range group {
			if !item.node.CastShadow {
				continue
			}
			depth.Uniforms().SetMat4("uModel", item.world)
			rend.drawGeometry(item.node.Mesh.Geometry)
		}
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return light, shadowBias.Mul4(space), true
}

func (rend *OpenGLRenderer) drawMesh(frame *frameUniforms, item drawItem) {
	mat := item.node.Mesh.Material
	shader, ok := rend.shaders[mat.Program]
	if !ok {
		if !rend.warned[mat.Program] {
			rend.warned[mat.Program] = true
			logger.Log.Warn("Unknown shader program, using basic", zap.String("program", mat.Program), zap.String("material", mat.ID))
		}
		shader = rend.shaders[scene.ProgramBasic]
	}
	shader.Use()
	u := shader.Uniforms()
	if !frame.prepared[shader] {
		rend.setFrameUniforms(u, frame)
		frame.prepared[shader] = true
	}

	u.SetMat4("uModel", item.world)
	u.SetMat3("uNormalMatrix", normalMatrix(item.world))
	if frame.shadowed && item.node.ReceiveShadow {
		u.SetInt("uShadowMapSet", 1)
	} else {
		u.SetInt("uShadowMapSet", 0)
	}

	u.SetFloat("uOpacity", 1)
	for _, name := range shader.Samplers {
		u.SetInt(name+"Set", 0)
	}
	unit := int32(unitMaterial)
	rend.store.Each(mat.ID, func(name string, v params.Value) {
		if u.SetValue(name, v) {
			return
		}
		sampler, ok := v.(params.Sampler)
		if !ok {
			return
		}
		id, ready := rend.sampleSource(sampler.Source)
		if !ready {
			return
		}
		gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
		gl.BindTexture(gl.TEXTURE_2D, id)
		u.SetInt(name, unit)
		u.SetInt(name+"Set", 1)
		unit++
	})

	if mat.DoubleSided {
		gl.Disable(gl.CULL_FACE)
	} else {
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	}
	gl.DepthMask(mat.DepthWrite)
	rend.drawGeometry(item.node.Mesh.Geometry)
}

func (rend *OpenGLRenderer) setFrameUniforms(u *UniformCache, frame *frameUniforms) {
	s := frame.scene
	u.SetMat4("uView", frame.view)
	u.SetMat4("uProjection", frame.projection)
	u.SetVec3("uCameraPosition", frame.eye)

	if s.Ambient != nil {
		u.SetVec3("uAmbientColor", mgl32.Vec3(s.Ambient.Color))
		u.SetFloat("uAmbientIntensity", s.Ambient.Intensity)
	} else {
		u.SetFloat("uAmbientIntensity", 0)
	}

	if l := frame.light; l != nil {
		u.SetVec3("uLightDirection", l.Target.Sub(l.Position).Normalize())
		u.SetVec3("uLightColor", mgl32.Vec3(l.Color))
		u.SetFloat("uLightIntensity", l.Intensity)
	} else {
		u.SetFloat("uLightIntensity", 0)
	}

	u.SetMat4("uShadowMatrix", frame.shadowMatrix)
	u.SetInt("uShadowMap", unitShadow)
	gl.ActiveTexture(gl.TEXTURE0 + unitShadow)
	gl.BindTexture(gl.TEXTURE_2D, rend.shadow.depth)

	u.SetInt("uEnvMap", unitEnvironment)
	u.SetMat3("uEnvRotation", lookupRotation(s.EnvironmentRotation))
	u.SetFloat("uEnvIntensity", s.EnvironmentIntensity)
	if frame.envReady {
		gl.ActiveTexture(gl.TEXTURE0 + unitEnvironment)
		gl.BindTexture(gl.TEXTURE_2D, frame.envID)
		u.SetInt("uEnvMapSet", 1)
	} else {
		u.SetInt("uEnvMapSet", 0)
	}
}

func (rend *OpenGLRenderer) drawOverlays(overlays []*scene.Overlay) {
	if len(overlays) == 0 {
		return
	}
	shader := rend.shaders[programOverlay]
	shader.Use()
	gl.Disable(gl.DEPTH_TEST)
	gl.BindVertexArray(rend.emptyVAO)
	for _, o := range overlays {
		shader.Uniforms().SetVec4("uColor", o.Color)
		gl.DrawArrays(gl.TRIANGLES, 0, 3)
	}
	gl.BindVertexArray(0)
	gl.Enable(gl.DEPTH_TEST)
}

// sampleSource resolves a lazily loaded texture. A source whose asset is
// still pending or failed reports false and is simply not drawn.
func (rend *OpenGLRenderer) sampleSource(src params.TextureSource) (uint32, bool) {
	if src == nil {
		return 0, false
	}
	tex := src.Texture()
	if tex == nil {
		return 0, false
	}
	id, err := rend.textures.Acquire(tex)
	if err != nil {
		// Failures are cached by the manager; only the first one is new.
		if !rend.warned[textureName(tex)] {
			rend.warned[textureName(tex)] = true
			logger.Log.Warn("Texture upload failed", zap.Error(err))
		}
		return 0, false
	}
	return id, true
}

func (rend *OpenGLRenderer) upload(g *scene.Geometry) {
	if _, ok := rend.meshes[g]; ok || g.Disposed() {
		return
	}
	data := interleave(g)
	m := &gpuMesh{}

	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)

	if len(g.Indices) > 0 {
		gl.GenBuffers(1, &m.ebo)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(g.Indices)*4, gl.Ptr(g.Indices), gl.STATIC_DRAW)
		m.count = int32(len(g.Indices))
		m.indexed = true
	} else {
		m.count = int32(g.VertexCount())
	}

	stride := int32(vertexStride * 4)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, stride, gl.PtrOffset(3*4))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(2, 3, gl.FLOAT, false, stride, gl.PtrOffset(5*4))
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointer(3, 4, gl.FLOAT, false, stride, gl.PtrOffset(8*4))
	gl.EnableVertexAttribArray(3)
	gl.BindVertexArray(0)

	rend.meshes[g] = m
	g.OnDispose(func() { rend.freeMesh(g) })
}

func (rend *OpenGLRenderer) drawGeometry(g *scene.Geometry) {
	m, ok := rend.meshes[g]
	if !ok {
		return
	}
	gl.BindVertexArray(m.vao)
	if m.indexed {
		gl.DrawElements(gl.TRIANGLES, m.count, gl.UNSIGNED_INT, nil)
	} else {
		gl.DrawArrays(gl.TRIANGLES, 0, m.count)
	}
	gl.BindVertexArray(0)
}

func (rend *OpenGLRenderer) freeMesh(g *scene.Geometry) {
	m, ok := rend.meshes[g]
	if !ok || rend.released {
		return
	}
	gl.DeleteVertexArrays(1, &m.vao)
	gl.DeleteBuffers(1, &m.vbo)
	if m.ebo != 0 {
		gl.DeleteBuffers(1, &m.ebo)
	}
	delete(rend.meshes, g)
}

// Release frees every GL object. Later calls do nothing.
func (rend *OpenGLRenderer) Release() {
	if rend.released {
		return
	}
	for g := range rend.meshes {
		rend.freeMesh(g)
	}
	rend.textures.LogStats()
	rend.textures.Clear()
	for _, shader := range rend.shaders {
		shader.Delete()
	}
	if rend.emptyVAO != 0 {
		gl.DeleteVertexArrays(1, &rend.emptyVAO)
	}
	if rend.shadow.fbo != 0 {
		gl.DeleteFramebuffers(1, &rend.shadow.fbo)
		gl.DeleteTextures(1, &rend.shadow.depth)
	}
	rend.deleteOffscreen()
	rend.released = true
	logger.Log.Info("OpenGL renderer released")
}
