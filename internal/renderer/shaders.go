package renderer

import (
	"embed"
	"fmt"
	"strings"

	"Meadow3D/internal/logger"
	"Meadow3D/internal/scene"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"
)

//go:embed shaders/*
var shaderFiles embed.FS

// Programs that are not tied to a material.
const (
	programBackground = "background"
	programOverlay    = "overlay"
	programDepth      = "depth"
)

type shaderSource struct {
	vertex   string
	fragment string
	// lit programs get the shared lighting block spliced in.
	lit bool
	// samplers each have an int "<name>Set" flag the renderer clears per
	// draw so a missing texture never leaks from the previous material.
	samplers []string
}

var shaderSources = map[string]shaderSource{
	scene.ProgramNoise:       {"mesh.vert", "noise.frag", false, []string{"uNoiseMap"}},
	scene.ProgramGrass:       {"mesh.vert", "grass.frag", true, []string{"uAlphaMap"}},
	scene.ProgramToon:        {"mesh.vert", "toon.frag", true, []string{"uGradientMap"}},
	scene.ProgramVertexColor: {"mesh.vert", "vertex_color.frag", true, nil},
	scene.ProgramBasic:       {"mesh.vert", "basic.frag", true, nil},
	programBackground:        {"fullscreen.vert", "background.frag", false, nil},
	programOverlay:           {"fullscreen.vert", "overlay.frag", false, nil},
	programDepth:             {"depth.vert", "depth.frag", false, nil},
}

type Shader struct {
	Name           string
	Samplers       []string
	vertexSource   string
	fragmentSource string
	program        uint32
	uniforms       *UniformCache
}

// LoadShader reads the named program from the embedded sources. It does not
// touch GL.
func LoadShader(name string) (*Shader, error) {
	src, ok := shaderSources[name]
	if !ok {
		return nil, fmt.Errorf("unknown shader program %q", name)
	}
	vertex, err := shaderFiles.ReadFile("shaders/" + src.vertex)
	if err != nil {
		return nil, err
	}
	fragment, err := shaderFiles.ReadFile("shaders/" + src.fragment)
	if err != nil {
		return nil, err
	}
	fs := string(fragment)
	if src.lit {
		lighting, err := shaderFiles.ReadFile("shaders/lighting.glsl")
		if err != nil {
			return nil, err
		}
		fs = spliceAfterVersion(fs, string(lighting))
	}
	return &Shader{Name: name, Samplers: src.samplers, vertexSource: string(vertex), fragmentSource: fs}, nil
}

// spliceAfterVersion inserts block right after the #version line, which
// GLSL requires to come first.
func spliceAfterVersion(source, block string) string {
	i := strings.Index(source, "\n")
	if i < 0 || !strings.HasPrefix(source, "#version") {
		return block + "\n" + source
	}
	return source[:i+1] + "\n" + block + "\n" + source[i+1:]
}

// Compile builds and links the program. The shader is unusable on error.
func (shader *Shader) Compile() error {
	vs, err := GenShader(shader.vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return fmt.Errorf("%s: %w", shader.Name, err)
	}
	fs, err := GenShader(shader.fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vs)
		return fmt.Errorf("%s: %w", shader.Name, err)
	}
	program, err := GenShaderProgram(vs, fs)
	if err != nil {
		return fmt.Errorf("%s: %w", shader.Name, err)
	}
	shader.program = program
	shader.uniforms = NewUniformCache(program)
	logger.Log.Debug("Shader program linked", zap.String("name", shader.Name), zap.Uint32("program", program))
	return nil
}

func (shader *Shader) Use() {
	gl.UseProgram(shader.program)
}

func (shader *Shader) Uniforms() *UniformCache {
	return shader.uniforms
}

func (shader *Shader) Delete() {
	if shader.program != 0 {
		gl.DeleteProgram(shader.program)
		shader.program = 0
	}
}

func GenShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	cSources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, cSources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)

		logger.Log.Error("Failed to compile", zap.Uint32("shaderType", shaderType), zap.String("log", log))
		return 0, fmt.Errorf("compile shader: %s", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

func GenShaderProgram(vertexShader, fragmentShader uint32) (uint32, error) {
	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	gl.DetachShader(program, vertexShader)
	gl.DeleteShader(vertexShader)
	gl.DetachShader(program, fragmentShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)

		logger.Log.Error("Failed to link program", zap.String("log", log))
		return 0, fmt.Errorf("link program: %s", strings.TrimRight(log, "\x00"))
	}
	return program, nil
}
