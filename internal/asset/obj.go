package asset

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"Meadow3D/internal/logger"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

type faceVertex struct {
	vertexIdx   int32
	texCoordIdx int32
	normalIdx   int32
}

// objGroup collects the faces drawn with one usemtl material.
type objGroup struct {
	material string
	faces    []faceVertex
}

// decodeOBJ reads a Wavefront OBJ file. Each usemtl run becomes its own
// sub-mesh so parts keep their source material name. Vertex lines with six
// components ("v x y z r g b") carry per-vertex colors.
func decodeOBJ(filename string) (*ModelAsset, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var (
		vertices      []float32
		colors        []float32
		textureCoords []float32
		normals       []float32
		groups        []*objGroup
		current       *objGroup
	)
	result := &ModelAsset{Name: filename, Materials: make(map[string]SourceMaterial)}

	useMaterial := func(name string) {
		for _, g := range groups {
			if g.material == name {
				current = g
				return
			}
		}
		current = &objGroup{material: name}
		groups = append(groups, current)
	}

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "v":
			vals, err := parseFloats(parts[1:])
			if err != nil || (len(vals) != 3 && len(vals) != 6) {
				return nil, fmt.Errorf("%s:%d: invalid vertex", filename, lineNo)
			}
			vertices = append(vertices, vals[:3]...)
			if len(vals) == 6 {
				colors = append(colors, vals[3], vals[4], vals[5], 1)
			}
		case "vn":
			vals, err := parseFloats(parts[1:])
			if err != nil || len(vals) != 3 {
				return nil, fmt.Errorf("%s:%d: invalid normal", filename, lineNo)
			}
			normals = append(normals, vals...)
		case "vt":
			vals, err := parseFloats(parts[1:])
			if err != nil || len(vals) < 2 {
				return nil, fmt.Errorf("%s:%d: invalid texture coordinate", filename, lineNo)
			}
			textureCoords = append(textureCoords, vals[0], vals[1])
		case "f":
			face, err := parseFace(parts[1:])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", filename, lineNo, err)
			}
			if current == nil {
				useMaterial("default")
			}
			current.faces = append(current.faces, face...)
		case "mtllib":
			if len(parts) < 2 {
				continue
			}
			mtlPath := filepath.Join(filepath.Dir(filename), parts[1])
			for name, mat := range loadMaterials(mtlPath) {
				result.Materials[name] = mat
			}
		case "usemtl":
			if len(parts) >= 2 {
				useMaterial(parts[1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	// Colors only count when every vertex has one
	if len(colors)/4 != len(vertices)/3 {
		colors = nil
	}

	root := &ModelNode{
		Name:     filepath.Base(filename),
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
	for i, g := range groups {
		sm := unify(g, vertices, colors, textureCoords, normals)
		sm.Name = fmt.Sprintf("%s_%d", g.material, i)
		root.Meshes = append(root.Meshes, sm)
	}
	result.Roots = []*ModelNode{root}
	return result, nil
}

// unify turns separate v/vt/vn indices into one index buffer per group.
func unify(g *objGroup, vertices, colors, textureCoords, normals []float32) *SubMesh {
	sm := &SubMesh{MaterialName: g.material}
	seen := make(map[faceVertex]uint32)
	for _, fv := range g.faces {
		if idx, ok := seen[fv]; ok {
			sm.Indices = append(sm.Indices, idx)
			continue
		}
		idx := uint32(len(sm.Positions) / 3)
		seen[fv] = idx

		if fv.vertexIdx >= 0 && int(fv.vertexIdx*3+2) < len(vertices) {
			sm.Positions = append(sm.Positions, vertices[fv.vertexIdx*3:fv.vertexIdx*3+3]...)
		} else {
			logger.Log.Warn("Vertex index out of bounds", zap.Int32("vertexIdx", fv.vertexIdx))
			sm.Positions = append(sm.Positions, 0, 0, 0)
		}
		if colors != nil {
			if fv.vertexIdx >= 0 && int(fv.vertexIdx*4+3) < len(colors) {
				sm.Colors = append(sm.Colors, colors[fv.vertexIdx*4:fv.vertexIdx*4+4]...)
			} else {
				sm.Colors = append(sm.Colors, 1, 1, 1, 1)
			}
		}
		if fv.texCoordIdx >= 0 && int(fv.texCoordIdx*2+1) < len(textureCoords) {
			sm.UVs = append(sm.UVs, textureCoords[fv.texCoordIdx*2:fv.texCoordIdx*2+2]...)
		} else {
			sm.UVs = append(sm.UVs, 0, 0)
		}
		if fv.normalIdx >= 0 && int(fv.normalIdx*3+2) < len(normals) {
			sm.Normals = append(sm.Normals, normals[fv.normalIdx*3:fv.normalIdx*3+3]...)
		} else {
			sm.Normals = append(sm.Normals, 0, 1, 0)
		}
		sm.Indices = append(sm.Indices, idx)
	}
	return sm
}

// loadMaterials reads a .mtl file. A missing file yields no materials; the
// parts then fall back to the shared default material downstream.
func loadMaterials(filename string) map[string]SourceMaterial {
	materials := make(map[string]SourceMaterial)
	file, err := os.Open(filename)
	if err != nil {
		logger.Log.Warn("Material library unavailable", zap.String("path", filename), zap.Error(err))
		return materials
	}
	defer file.Close()

	var current *SourceMaterial
	flush := func() {
		if current != nil {
			materials[current.Name] = *current
		}
	}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "newmtl":
			if len(fields) < 2 {
				continue
			}
			flush()
			current = &SourceMaterial{Name: fields[1], BaseColor: [4]float32{1, 1, 1, 1}}
		case "Kd":
			if current == nil || len(fields) != 4 {
				continue
			}
			if vals, err := parseFloats(fields[1:]); err == nil {
				current.BaseColor[0], current.BaseColor[1], current.BaseColor[2] = vals[0], vals[1], vals[2]
			}
		case "d":
			if current == nil || len(fields) != 2 {
				continue
			}
			if vals, err := parseFloats(fields[1:]); err == nil {
				current.BaseColor[3] = vals[0]
			}
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		logger.Log.Warn("Material library truncated", zap.String("path", filename), zap.Error(err))
	}
	return materials
}

func parseFloats(parts []string) ([]float32, error) {
	vals := make([]float32, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(part, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", part, err)
		}
		vals = append(vals, float32(v))
	}
	return vals, nil
}

func parseFace(parts []string) ([]faceVertex, error) {
	if len(parts) < 3 {
		return nil, fmt.Errorf("face needs at least 3 vertices, got %d", len(parts))
	}
	face := make([]faceVertex, 0, len(parts))
	for _, part := range parts {
		vals := strings.Split(part, "/")

		vertexIdx, err := strconv.ParseInt(vals[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vertex index %q: %w", vals[0], err)
		}

		var texCoordIdx int32 = -1
		if len(vals) > 1 && vals[1] != "" {
			texIdx, err := strconv.ParseInt(vals[1], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid texture coordinate index %q: %w", vals[1], err)
			}
			texCoordIdx = int32(texIdx - 1) // obj indices start at 1
		}

		var normalIdx int32 = -1
		if len(vals) > 2 && vals[2] != "" {
			normIdx, err := strconv.ParseInt(vals[2], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid normal index %q: %w", vals[2], err)
			}
			normalIdx = int32(normIdx - 1)
		}

		face = append(face, faceVertex{
			vertexIdx:   int32(vertexIdx - 1),
			texCoordIdx: texCoordIdx,
			normalIdx:   normalIdx,
		})
	}

	// Fan triangulation covers quads and larger polygons
	if len(face) == 3 {
		return face, nil
	}
	tris := make([]faceVertex, 0, (len(face)-2)*3)
	for i := 1; i < len(face)-1; i++ {
		tris = append(tris, face[0], face[i], face[i+1])
	}
	return tris, nil
}
