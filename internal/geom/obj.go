// Package geom imports wavefront OBJ geometry and authors it as mesh prims.
package geom

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/assetpipe/usdpublish/internal/errs"
	"github.com/assetpipe/usdpublish/internal/stage"
)

// Mesh is one named polygon mesh with locally indexed points.
type Mesh struct {
	Name              string
	Points            []stage.Vec3
	FaceVertexCounts  []int
	FaceVertexIndices []int
}

const defaultMeshName = "mesh"

// ParseOBJ reads wavefront OBJ data into meshes, split on object and group
// statements. Vertex indices are remapped from the file's global pool to
// per-mesh local indices. Unknown statements are ignored.
func ParseOBJ(r io.Reader) ([]*Mesh, error) {
	var (
		meshes    []*Mesh
		current   *Mesh
		positions []stage.Vec3
		remap     map[int]int
	)

	ensureMesh := func(name string) {
		if name == "" {
			name = defaultMeshName
		}
		if current != nil && len(current.FaceVertexCounts) == 0 {
			// Rename an empty mesh instead of abandoning it.
			current.Name = name
			return
		}
		current = &Mesh{Name: name}
		remap = make(map[int]int)
		meshes = append(meshes, current)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, errs.NewValidation("malformed vertex statement",
					errs.Details{"line": lineNo})
			}
			var p stage.Vec3
			for i := 0; i < 3; i++ {
				f, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, errs.NewValidation("malformed vertex coordinate",
						errs.Details{"line": lineNo, "value": fields[i+1]})
				}
				p[i] = f
			}
			positions = append(positions, p)
		case "o", "g":
			name := ""
			if len(fields) > 1 {
				name = fields[1]
			}
			ensureMesh(name)
		case "f":
			if len(fields) < 4 {
				return nil, errs.NewValidation("face with fewer than three vertices",
					errs.Details{"line": lineNo})
			}
			if current == nil {
				ensureMesh("")
			}
			for _, field := range fields[1:] {
				idxText := field
				if i := strings.IndexByte(idxText, '/'); i >= 0 {
					idxText = idxText[:i]
				}
				idx, err := strconv.Atoi(idxText)
				if err != nil {
					return nil, errs.NewValidation("malformed face index",
						errs.Details{"line": lineNo, "value": field})
				}
				if idx < 0 {
					idx = len(positions) + idx
				} else {
					idx--
				}
				if idx < 0 || idx >= len(positions) {
					return nil, errs.NewValidation("face index out of range",
						errs.Details{"line": lineNo, "index": idx})
				}
				local, ok := remap[idx]
				if !ok {
					local = len(current.Points)
					remap[idx] = local
					current.Points = append(current.Points, positions[idx])
				}
				current.FaceVertexIndices = append(current.FaceVertexIndices, local)
			}
			current.FaceVertexCounts = append(current.FaceVertexCounts, len(fields)-1)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.NewValidation("failed to read geometry", errs.Details{"error": err.Error()})
	}

	// Drop trailing empty meshes produced by object statements without faces.
	out := meshes[:0]
	for _, m := range meshes {
		if len(m.FaceVertexCounts) > 0 {
			out = append(out, m)
		}
	}
	return out, nil
}

// LoadOBJ opens and parses an OBJ file from fs.
func LoadOBJ(fs billy.Filesystem, path string) ([]*Mesh, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errs.NewFileSystem("failed to open geometry file",
			errs.Details{"path": path}, err)
	}
	defer f.Close()
	return ParseOBJ(f)
}

// Author defines the meshes as Mesh prims under parentPath.
func Author(st *stage.Stage, parentPath string, meshes []*Mesh) {
	for _, m := range meshes {
		prim := st.DefinePrim(parentPath+"/"+m.Name, "Mesh")
		prim.SetAttr("points", stage.TypePoint3Array, m.Points)
		prim.SetAttr("faceVertexCounts", stage.TypeIntArray, m.FaceVertexCounts)
		prim.SetAttr("faceVertexIndices", stage.TypeIntArray, m.FaceVertexIndices)
	}
}
