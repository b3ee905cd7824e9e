package geom

import (
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetpipe/usdpublish/internal/errs"
	"github.com/assetpipe/usdpublish/internal/stage"
)

const objSource = `# exported geometry
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
o quad
f 1 2 3 4
o tri
v 0 0 1
f -1 1/2/3 2//4
`

func TestParseOBJ(t *testing.T) {
	meshes, err := ParseOBJ(strings.NewReader(objSource))
	require.NoError(t, err)
	require.Len(t, meshes, 2)

	quad := meshes[0]
	assert.Equal(t, "quad", quad.Name)
	assert.Equal(t, []int{4}, quad.FaceVertexCounts)
	assert.Equal(t, []int{0, 1, 2, 3}, quad.FaceVertexIndices)
	assert.Equal(t, []stage.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}, quad.Points)

	// The second mesh remaps the global vertex pool to local indices; the
	// negative index resolves to the most recent vertex.
	tri := meshes[1]
	assert.Equal(t, "tri", tri.Name)
	assert.Equal(t, []int{3}, tri.FaceVertexCounts)
	assert.Equal(t, []int{0, 1, 2}, tri.FaceVertexIndices)
	assert.Equal(t, []stage.Vec3{{0, 0, 1}, {0, 0, 0}, {1, 0, 0}}, tri.Points)
}

func TestParseOBJ_ImplicitMesh(t *testing.T) {
	meshes, err := ParseOBJ(strings.NewReader("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"))
	require.NoError(t, err)
	require.Len(t, meshes, 1)
	assert.Equal(t, "mesh", meshes[0].Name)
}

func TestParseOBJ_DropsEmptyMeshes(t *testing.T) {
	meshes, err := ParseOBJ(strings.NewReader("o ghost\no still_ghost\n"))
	require.NoError(t, err)
	assert.Empty(t, meshes)
}

func TestParseOBJ_Malformed(t *testing.T) {
	cases := []string{
		"v 1 2\n",
		"v a b c\n",
		"v 0 0 0\nf 1\n",
		"v 0 0 0\nf 1 2 9\n",
		"v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 x 3\n",
	}
	for _, src := range cases {
		_, err := ParseOBJ(strings.NewReader(src))
		var vErr *errs.ValidationError
		require.ErrorAs(t, err, &vErr, "%q", src)
	}
}

func TestLoadOBJ(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "mesh.obj", []byte(objSource), 0o644))

	meshes, err := LoadOBJ(fs, "mesh.obj")
	require.NoError(t, err)
	assert.Len(t, meshes, 2)

	_, err = LoadOBJ(fs, "missing.obj")
	var fsErr *errs.FileSystemError
	require.ErrorAs(t, err, &fsErr)
}

func TestAuthor(t *testing.T) {
	meshes, err := ParseOBJ(strings.NewReader(objSource))
	require.NoError(t, err)

	st := stage.NewStage(stage.NewLayer("geometry.usda"))
	st.DefinePrim("/root", "Xform")
	Author(st, "/root", meshes)

	prim, ok := st.GetPrim("/root/quad")
	require.True(t, ok)
	assert.Equal(t, "Mesh", prim.TypeName())
	counts, ok := prim.GetAttr("faceVertexCounts")
	require.True(t, ok)
	assert.Equal(t, []int{4}, counts.Value)
}
