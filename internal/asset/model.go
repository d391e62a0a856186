package asset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// ModelAsset is an imported model: a node hierarchy whose meshes reference
// source materials by name.
type ModelAsset struct {
	Name      string
	Roots     []*ModelNode
	Materials map[string]SourceMaterial
}

// ModelNode is one node of the imported hierarchy with its local TRS.
type ModelNode struct {
	Name        string
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
	Meshes      []*SubMesh
	Children    []*ModelNode
}

// SubMesh is one drawable part. Attribute slices are flat: 3 floats per
// position and normal, 2 per uv, 4 per color.
type SubMesh struct {
	Name         string
	MaterialName string
	Positions    []float32
	Normals      []float32
	UVs          []float32
	Colors       []float32
	Indices      []uint32
}

// HasVertexColors reports whether the mesh carries per-vertex colors.
func (m *SubMesh) HasVertexColors() bool {
	return len(m.Colors) > 0
}

func (m *SubMesh) VertexCount() int {
	return len(m.Positions) / 3
}

// SourceMaterial is what the file says about a material. Derived shader
// materials are built from it by the scene builder.
type SourceMaterial struct {
	Name      string
	BaseColor [4]float32
}

// Walk visits every node depth first.
func (m *ModelAsset) Walk(fn func(*ModelNode)) {
	var visit func(*ModelNode)
	visit = func(n *ModelNode) {
		fn(n)
		for _, c := range n.Children {
			visit(c)
		}
	}
	for _, r := range m.Roots {
		visit(r)
	}
}

// DecodeModel picks the model decoder from the file extension.
func DecodeModel(path string) (any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
		return decodeGLTF(path)
	case ".obj":
		return decodeOBJ(path)
	}
	return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
}

func decodeGLTF(path string) (*ModelAsset, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}
	if len(doc.Scenes) == 0 {
		return nil, fmt.Errorf("gltf %q has no scenes: %w", path, ErrUnsupportedFormat)
	}

	result := &ModelAsset{Name: path, Materials: make(map[string]SourceMaterial)}
	for i, gm := range doc.Materials {
		mat := SourceMaterial{Name: gltfMaterialName(doc, i), BaseColor: [4]float32{1, 1, 1, 1}}
		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			cf := pbr.BaseColorFactorOrDefault()
			mat.BaseColor = [4]float32{float32(cf[0]), float32(cf[1]), float32(cf[2]), float32(cf[3])}
		}
		result.Materials[mat.Name] = mat
	}

	meshes := make([][]*SubMesh, len(doc.Meshes))
	for mi, gm := range doc.Meshes {
		for pi, prim := range gm.Primitives {
			sm, err := readPrimitive(doc, gm.Name, pi, prim)
			if err != nil {
				return nil, fmt.Errorf("gltf %q mesh %d primitive %d: %w", path, mi, pi, err)
			}
			meshes[mi] = append(meshes[mi], sm)
		}
	}

	sceneIdx := 0
	if doc.Scene != nil {
		sceneIdx = *doc.Scene
	}
	if sceneIdx >= len(doc.Scenes) {
		return nil, fmt.Errorf("gltf %q scene %d out of range: %w", path, sceneIdx, ErrUnsupportedFormat)
	}
	for _, ni := range doc.Scenes[sceneIdx].Nodes {
		root, err := buildGLTFNode(doc, ni, meshes, 0)
		if err != nil {
			return nil, fmt.Errorf("gltf %q: %w", path, err)
		}
		result.Roots = append(result.Roots, root)
	}
	return result, nil
}

func gltfMaterialName(doc *gltf.Document, idx int) string {
	if name := doc.Materials[idx].Name; name != "" {
		return name
	}
	return fmt.Sprintf("material_%d", idx)
}

const maxNodeDepth = 64

func buildGLTFNode(doc *gltf.Document, idx int, meshes [][]*SubMesh, depth int) (*ModelNode, error) {
	if depth > maxNodeDepth || idx < 0 || idx >= len(doc.Nodes) {
		return nil, fmt.Errorf("node %d: %w", idx, ErrUnsupportedFormat)
	}
	gn := doc.Nodes[idx]
	node := &ModelNode{Name: gn.Name}

	if gn.Matrix != gltf.DefaultMatrix && gn.Matrix != [16]float64{} {
		node.Translation, node.Rotation, node.Scale = decompose(gn.MatrixOrDefault())
	} else {
		t := gn.TranslationOrDefault()
		r := gn.RotationOrDefault()
		s := gn.ScaleOrDefault()
		node.Translation = mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])}
		node.Rotation = mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
		node.Scale = mgl32.Vec3{float32(s[0]), float32(s[1]), float32(s[2])}
	}

	if gn.Mesh != nil && *gn.Mesh < len(meshes) {
		node.Meshes = meshes[*gn.Mesh]
	}
	for _, ci := range gn.Children {
		child, err := buildGLTFNode(doc, ci, meshes, depth+1)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// decompose splits a column-major TRS matrix. Shear is dropped.
func decompose(m [16]float64) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	var mat mgl32.Mat4
	for i := range m {
		mat[i] = float32(m[i])
	}
	translation := mat.Col(3).Vec3()
	scale := mgl32.Vec3{mat.Col(0).Vec3().Len(), mat.Col(1).Vec3().Len(), mat.Col(2).Vec3().Len()}
	rot := mgl32.Ident4()
	for c := 0; c < 3; c++ {
		if scale[c] == 0 {
			return translation, mgl32.QuatIdent(), scale
		}
		rot.SetCol(c, mat.Col(c).Mul(1/scale[c]))
	}
	return translation, mgl32.Mat4ToQuat(rot).Normalize(), scale
}

func readPrimitive(doc *gltf.Document, meshName string, primIdx int, prim *gltf.Primitive) (*SubMesh, error) {
	name := fmt.Sprintf("%s_p%d", meshName, primIdx)
	if meshName == "" {
		name = fmt.Sprintf("prim_%d", primIdx)
	}
	sm := &SubMesh{Name: name}
	if prim.Material != nil && *prim.Material < len(doc.Materials) {
		sm.MaterialName = gltfMaterialName(doc, *prim.Material)
	}

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("no POSITION attribute")
	}
	posAcc, err := accessor(doc, posIdx)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	positions, err := modeler.ReadPosition(doc, posAcc, nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	sm.Positions = make([]float32, 0, len(positions)*3)
	for _, p := range positions {
		sm.Positions = append(sm.Positions, p[0], p[1], p[2])
	}

	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		acc, err := accessor(doc, idx)
		if err != nil {
			return nil, fmt.Errorf("normals: %w", err)
		}
		normals, err := modeler.ReadNormal(doc, acc, nil)
		if err != nil {
			return nil, fmt.Errorf("normals: %w", err)
		}
		for _, n := range normals {
			sm.Normals = append(sm.Normals, n[0], n[1], n[2])
		}
	}
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		acc, err := accessor(doc, idx)
		if err != nil {
			return nil, fmt.Errorf("uvs: %w", err)
		}
		uvs, err := modeler.ReadTextureCoord(doc, acc, nil)
		if err != nil {
			return nil, fmt.Errorf("uvs: %w", err)
		}
		for _, uv := range uvs {
			sm.UVs = append(sm.UVs, uv[0], uv[1])
		}
	}
	if idx, ok := prim.Attributes[gltf.COLOR_0]; ok {
		acc, err := accessor(doc, idx)
		if err != nil {
			return nil, fmt.Errorf("colors: %w", err)
		}
		colors, err := modeler.ReadColor(doc, acc, nil)
		if err != nil {
			return nil, fmt.Errorf("colors: %w", err)
		}
		for _, c := range colors {
			sm.Colors = append(sm.Colors, float32(c[0])/255, float32(c[1])/255, float32(c[2])/255, float32(c[3])/255)
		}
	}

	if prim.Indices != nil {
		acc, err := accessor(doc, *prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		sm.Indices, err = modeler.ReadIndices(doc, acc, nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	} else {
		sm.Indices = make([]uint32, len(positions))
		for i := range sm.Indices {
			sm.Indices[i] = uint32(i)
		}
	}
	return sm, nil
}

func accessor(doc *gltf.Document, idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range (%d accessors)", idx, len(doc.Accessors))
	}
	return doc.Accessors[idx], nil
}
