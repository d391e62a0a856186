package scene

import (
	"errors"
	"fmt"

	"Meadow3D/internal/asset"
	"Meadow3D/internal/logger"

	"go.uber.org/zap"
)

var ErrEmptyModel = errors.New("model has no nodes")

// DeriveFunc creates the material used in place of a source material.
type DeriveFunc func(src asset.SourceMaterial) *Material

// VertexColorFunc creates the procedural material for a mesh that carries
// per-vertex colors.
type VertexColorFunc func(mesh *asset.SubMesh) *Material

type BuilderOptions struct {
	Derive        DeriveFunc
	VertexColor   VertexColorFunc
	CastShadow    bool
	ReceiveShadow bool
}

// Builder turns decoded models into scene nodes. Sub-meshes naming the same
// source material share one derived material for the builder's lifetime.
type Builder struct {
	opts   BuilderOptions
	shared map[string]*Material
}

func NewBuilder(opts BuilderOptions) *Builder {
	return &Builder{opts: opts, shared: make(map[string]*Material)}
}

// AttachModel builds the model's node tree and attaches its roots under
// parent. Nothing is attached if building fails.
func (b *Builder) AttachModel(parent *Node, model *asset.ModelAsset) ([]*Node, error) {
	if model == nil || len(model.Roots) == 0 {
		return nil, ErrEmptyModel
	}
	roots := make([]*Node, 0, len(model.Roots))
	for _, src := range model.Roots {
		n, err := b.buildNode(model, src)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", model.Name, err)
		}
		roots = append(roots, n)
	}
	for _, n := range roots {
		parent.AddChild(n)
	}
	return roots, nil
}

func (b *Builder) buildNode(model *asset.ModelAsset, src *asset.ModelNode) (*Node, error) {
	n := NewNode(src.Name)
	n.Position = src.Translation
	n.Rotation = src.Rotation
	n.Scale = src.Scale
	n.CastShadow = b.opts.CastShadow
	n.ReceiveShadow = b.opts.ReceiveShadow

	for i, sm := range src.Meshes {
		mat, err := b.materialFor(model, sm)
		if err != nil {
			return nil, err
		}
		mesh := &Mesh{Geometry: FromSubMesh(sm), Material: mat}
		// A single mesh lives on the node itself, more become children
		if len(src.Meshes) == 1 {
			n.Mesh = mesh
			continue
		}
		part := NewNode(fmt.Sprintf("%s#%d", src.Name, i))
		part.CastShadow = n.CastShadow
		part.ReceiveShadow = n.ReceiveShadow
		part.Mesh = mesh
		n.AddChild(part)
	}
	for _, child := range src.Children {
		c, err := b.buildNode(model, child)
		if err != nil {
			return nil, err
		}
		n.AddChild(c)
	}
	return n, nil
}

func (b *Builder) materialFor(model *asset.ModelAsset, sm *asset.SubMesh) (*Material, error) {
	if sm.HasVertexColors() {
		if b.opts.VertexColor == nil {
			return nil, fmt.Errorf("mesh %s has vertex colors but no vertex color material", sm.Name)
		}
		return b.opts.VertexColor(sm), nil
	}
	if mat, ok := b.shared[sm.MaterialName]; ok {
		return mat, nil
	}
	if b.opts.Derive == nil {
		return nil, fmt.Errorf("mesh %s: no material derivation", sm.Name)
	}
	src, ok := model.Materials[sm.MaterialName]
	if !ok {
		src = asset.SourceMaterial{Name: sm.MaterialName, BaseColor: [4]float32{1, 1, 1, 1}}
	}
	mat := b.opts.Derive(src)
	b.shared[sm.MaterialName] = mat
	logger.Log.Debug("Derived shared material",
		zap.String("source", sm.MaterialName),
		zap.String("material", mat.ID))
	return mat, nil
}

// SharedMaterials is the number of distinct derived materials created.
func (b *Builder) SharedMaterials() int {
	return len(b.shared)
}
