package fixup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetpipe/usdpublish/internal/errs"
	"github.com/assetpipe/usdpublish/internal/stage"
)

func ingestedScene() *stage.Stage {
	st := stage.NewStage(stage.NewLayer("geometry.usda"))
	st.DefinePrim("/root", "Xform")

	body := st.DefinePrim("/root/Body_low", "Mesh")
	body.SetAttr("points", stage.TypePoint3Array, []stage.Vec3{
		{-1, 0, 2}, {3, -2, 0}, {0, 1, -1},
	})
	body.SetAttr("faceVertexCounts", stage.TypeIntArray, []int{3})
	body.SetAttr("faceVertexIndices", stage.TypeIntArray, []int{0, 1, 2})

	// Stale opinions from the source DCC that normalization must clear.
	body.SetRelationship("material:binding", []string{"/root/material/old"})
	body.ApiSchemas = []string{"MaterialBindingAPI"}
	st.DefinePrim("/root/material/old", "Material")

	return st
}

func TestNormalize(t *testing.T) {
	st := ingestedScene()

	changed, err := Normalize(st, "/Asset", nil)
	require.NoError(t, err)
	assert.True(t, changed)

	// The staging root is consumed.
	assert.False(t, st.HasPrim("/root"))
	assert.False(t, st.HasPrim("/Asset/geo/render/material"))

	render, ok := st.GetPrim("/Asset/geo/render")
	require.True(t, ok)
	purpose, _ := render.GetAttr("purpose")
	assert.Equal(t, stage.Token("render"), purpose.Value)
	proxyRel, ok := render.Relationship("proxyPrim")
	require.True(t, ok)
	assert.Equal(t, []string{"/Asset/geo/proxy"}, proxyRel)

	mesh, ok := st.GetPrim("/Asset/geo/render/Body_low")
	require.True(t, ok)
	assert.Equal(t, "Mesh", mesh.TypeName())
	_, bound := mesh.Relationship("material:binding")
	assert.False(t, bound, "source bindings are stripped")
	assert.Empty(t, mesh.ApiSchemas)

	extent, ok := mesh.GetAttr("extent")
	require.True(t, ok)
	assert.Equal(t, []stage.Vec3{{-1, -2, -1}, {3, 1, 2}}, extent.Value)

	proxy, ok := st.GetPrim("/Asset/geo/proxy/Body_low")
	require.True(t, ok)
	assert.Equal(t, stage.SpecifierOver, proxy.Specifier())
	assert.True(t, proxy.Instanceable)
	assert.Equal(t, []stage.Arc{{PrimPath: "/Asset/geo/render/Body_low"}}, proxy.References)
}

func TestNormalize_Idempotent(t *testing.T) {
	st := ingestedScene()

	changed, err := Normalize(st, "/Asset", nil)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = Normalize(st, "/Asset", nil)
	require.NoError(t, err)
	assert.False(t, changed, "a second run makes no further edits")

	assert.True(t, st.HasPrim("/Asset/geo/render/Body_low"))
	assert.False(t, st.HasPrim("/Asset/geo/render/render"),
		"component scopes do not nest on a second run")
	assert.False(t, st.HasPrim("/Asset/geo/render/geo"))
}

func TestNormalize_AmbiguousRoot(t *testing.T) {
	st := stage.NewStage(stage.NewLayer("geometry.usda"))
	st.DefinePrim("/a", "Xform")
	st.DefinePrim("/b", "Xform")

	_, err := Normalize(st, "/Asset", nil)
	var ambiguous *errs.AmbiguousRootError
	require.ErrorAs(t, err, &ambiguous)

	empty := stage.NewStage(stage.NewLayer("geometry.usda"))
	_, err = Normalize(empty, "/Asset", nil)
	require.ErrorAs(t, err, &ambiguous)
}

func TestNormalize_ClassRootIgnored(t *testing.T) {
	st := stage.NewStage(stage.NewLayer("geometry.usda"))
	st.CreateClassPrim("/__class__")
	st.DefinePrim("/root/Body", "Mesh")

	_, err := Normalize(st, "/Asset", nil)
	require.NoError(t, err)
	assert.True(t, st.HasPrim("/Asset/geo/render/Body"))
}

func TestNormalize_InvalidTarget(t *testing.T) {
	st := ingestedScene()

	var vErr *errs.ValidationError
	_, err := Normalize(st, "Asset", nil)
	require.ErrorAs(t, err, &vErr)
	_, err = Normalize(st, "/", nil)
	require.ErrorAs(t, err, &vErr)
}
