package scene

// Program names understood by the renderer.
const (
	ProgramNoise       = "noise"
	ProgramGrass       = "grass"
	ProgramToon        = "toon"
	ProgramVertexColor = "vertex_color"
	ProgramBasic       = "basic"
)

// Material names a shader program and the parameter-store material whose
// uniforms it reads.
type Material struct {
	ID          string
	Program     string
	Transparent bool
	DoubleSided bool
	DepthWrite  bool

	releases []func()
	disposed bool
}

func NewMaterial(id, program string) *Material {
	return &Material{ID: id, Program: program, DepthWrite: true}
}

func (m *Material) OnDispose(fn func()) {
	if m.disposed {
		fn()
		return
	}
	m.releases = append(m.releases, fn)
}

// Dispose runs the release hooks exactly once.
func (m *Material) Dispose() {
	if m == nil || m.disposed {
		return
	}
	m.disposed = true
	for _, fn := range m.releases {
		fn()
	}
	m.releases = nil
}

func (m *Material) Disposed() bool {
	return m.disposed
}
