package material

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetpipe/usdpublish/api"
	"github.com/assetpipe/usdpublish/internal/errs"
	"github.com/assetpipe/usdpublish/internal/naming"
	"github.com/assetpipe/usdpublish/internal/shade"
	"github.com/assetpipe/usdpublish/internal/stage"
)

func TestSanitizeIdentifier(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"Body", "Body"},
		{"Body Metal!", "Body_Metal_"},
		{"2sides", "_2sides"},
		{"glass-tint.v2", "glass_tint_v2"},
		{"", "_"},
		{"_already_ok", "_already_ok"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SanitizeIdentifier(tc.raw), tc.raw)
	}
}

func newTestContext(bundle *api.MaterialBundle, settings *api.ExportSettings) *shade.Context {
	return shade.NewContext(bundle, settings, nil, nil)
}

func baseColorBundle(name string) *api.MaterialBundle {
	return &api.MaterialBundle{
		Name: name,
		Textures: map[api.Slot]api.TextureEntry{
			api.SlotBaseColor: {Slot: api.SlotBaseColor, Path: "maps/" + name + "_BaseColor.png"},
		},
	}
}

func TestCreateMaterial_NamespacedOutputs(t *testing.T) {
	st := stage.NewStage(stage.NewLayer("mtl.usda"))
	bundle := baseColorBundle("Body Paint")
	settings := &api.ExportSettings{Preview: true, Arnold: true, Mtlx: true}

	mat, err := CreateMaterial(st, bundle, newTestContext(bundle, settings), "/Asset/mtl",
		settings.EnabledRenderers(), nil)
	require.NoError(t, err)

	assert.Equal(t, "/Asset/mtl/mat_Body_Paint_collect", mat.Path())
	assert.Equal(t, "Material", mat.TypeName())

	orig, ok := mat.GetAttr("userProperties:originalName")
	require.True(t, ok)
	assert.Equal(t, "Body Paint", orig.Value)

	inputnum, ok := mat.GetInput("inputnum")
	require.True(t, ok)
	assert.Equal(t, 2, inputnum.Value)

	surface, ok := mat.GetAttr("outputs:surface")
	require.True(t, ok)
	assert.Equal(t, mat.Path()+"/UsdPreviewNodeGraph", surface.Conn.Prim)

	arnold, ok := mat.GetAttr("outputs:arnold:surface")
	require.True(t, ok)
	assert.Equal(t, mat.Path()+"/ArnoldNodeGraph", arnold.Conn.Prim)

	mtlx, ok := mat.GetAttr("outputs:mtlx:surface")
	require.True(t, ok)
	assert.Equal(t, mat.Path()+"/MtlxNodeGraph", mtlx.Conn.Prim)
}

func TestCreateMaterial_OpenPBRSuppressesMtlx(t *testing.T) {
	st := stage.NewStage(stage.NewLayer("mtl.usda"))
	bundle := baseColorBundle("Body")
	settings := &api.ExportSettings{Mtlx: true, OpenPBR: true}

	mat, err := CreateMaterial(st, bundle, newTestContext(bundle, settings), "/Asset/mtl",
		settings.EnabledRenderers(), nil)
	require.NoError(t, err)

	assert.False(t, st.HasPrim(mat.Path()+"/MtlxNodeGraph"))
	mtlx, ok := mat.GetAttr("outputs:mtlx:surface")
	require.True(t, ok)
	assert.Equal(t, mat.Path()+"/OpenPbrNodeGraph", mtlx.Conn.Prim,
		"the shared namespace output belongs to OpenPBR")
}

func TestCreateMaterial_ArnoldDisplacementOutput(t *testing.T) {
	st := stage.NewStage(stage.NewLayer("mtl.usda"))
	bundle := baseColorBundle("Body")
	bundle.Textures[api.SlotDisplacement] = api.TextureEntry{
		Slot: api.SlotDisplacement, Path: "maps/Body_Height.png",
	}
	settings := &api.ExportSettings{Arnold: true, Displacement: true}

	mat, err := CreateMaterial(st, bundle, newTestContext(bundle, settings), "/Asset/mtl",
		settings.EnabledRenderers(), nil)
	require.NoError(t, err)

	disp, ok := mat.GetAttr("outputs:arnold:displacement")
	require.True(t, ok)
	require.NotNil(t, disp.Conn)
	assert.Equal(t, "displacement", disp.Conn.Output)
}

func TestBind(t *testing.T) {
	st := stage.NewStage(stage.NewLayer("assign.usda"))
	st.DefinePrim("/Asset/mtl/m", "Material")

	require.NoError(t, Bind(st, "/Asset/mtl/m", []string{"/Asset/geo/render/body"}))

	over, ok := st.GetPrim("/Asset/geo/render/body")
	require.True(t, ok)
	assert.Equal(t, stage.SpecifierOver, over.Specifier())
	targets, ok := over.Relationship("material:binding")
	require.True(t, ok)
	assert.Equal(t, []string{"/Asset/mtl/m"}, targets)
	assert.Equal(t, []string{"MaterialBindingAPI"}, over.ApiSchemas)

	// Binding twice must not duplicate the applied schema.
	require.NoError(t, Bind(st, "/Asset/mtl/m", []string{"/Asset/geo/render/body"}))
	assert.Equal(t, []string{"MaterialBindingAPI"}, over.ApiSchemas)
}

func TestBind_NonMaterialSource(t *testing.T) {
	st := stage.NewStage(stage.NewLayer("assign.usda"))
	st.DefinePrim("/Asset/geo", "Scope")

	err := Bind(st, "/Asset/geo", []string{"/Asset/geo/render/body"})
	var assignErr *errs.MaterialAssignmentError
	require.ErrorAs(t, err, &assignErr)

	err = Bind(st, "/Asset/missing", nil)
	require.ErrorAs(t, err, &assignErr)
}

func TestAssignByName(t *testing.T) {
	st := stage.NewStage(stage.NewLayer("assign.usda"))

	mat := st.DefinePrim("/Asset/mtl/mat_Body_collect", "Material")
	mat.SetAttr(originalNameAttr, stage.TypeString, "Body")
	st.DefinePrim("/Asset/mtl/mat_Glass_collect", "Material")

	st.DefinePrim("/Asset/geo/render/Body_low", "Mesh")
	st.DefinePrim("/Asset/geo/render/Wheel", "Mesh")

	require.NoError(t, AssignByName(st, "/Asset/mtl", "/Asset/geo", naming.Default(), nil))

	body, _ := st.GetPrim("/Asset/geo/render/Body_low")
	targets, ok := body.Relationship("material:binding")
	require.True(t, ok)
	assert.Equal(t, []string{"/Asset/mtl/mat_Body_collect"}, targets)

	// No mesh matches the glass material; it is skipped, not an error.
	wheel, _ := st.GetPrim("/Asset/geo/render/Wheel")
	_, bound := wheel.Relationship("material:binding")
	assert.False(t, bound)
}

func TestAssignByName_RecoversNameFromCollectNaming(t *testing.T) {
	st := stage.NewStage(stage.NewLayer("assign.usda"))

	// No originalName attribute: the collect wrapper and convention affixes
	// come off before matching.
	st.DefinePrim("/Asset/mtl/mat_M_Hull_collect", "Material")
	st.DefinePrim("/Asset/geo/render/Hull_hi", "Mesh")

	require.NoError(t, AssignByName(st, "/Asset/mtl", "/Asset/geo", naming.Default(), nil))

	hull, _ := st.GetPrim("/Asset/geo/render/Hull_hi")
	targets, ok := hull.Relationship("material:binding")
	require.True(t, ok)
	assert.Equal(t, []string{"/Asset/mtl/mat_M_Hull_collect"}, targets)
}
