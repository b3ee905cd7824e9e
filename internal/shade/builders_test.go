package shade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetpipe/usdpublish/api"
	"github.com/assetpipe/usdpublish/internal/stage"
)

func fullBundle(name string) *api.MaterialBundle {
	b := &api.MaterialBundle{Name: name, Textures: make(map[api.Slot]api.TextureEntry)}
	for _, slot := range api.Slots() {
		b.Textures[slot] = api.TextureEntry{
			Slot: slot,
			Path: "maps/" + name + "_" + string(slot) + ".png",
		}
	}
	return b
}

func TestForRenderer(t *testing.T) {
	for _, r := range api.Renderers() {
		b, err := ForRenderer(r)
		require.NoError(t, err)
		assert.Equal(t, r, b.Renderer())
	}
	_, err := ForRenderer(api.Renderer("redshift"))
	require.Error(t, err)
}

func TestArnoldBuilder_BumpWiring(t *testing.T) {
	st := stage.NewStage(stage.NewLayer("mtl.usda"))
	ctx := NewContext(fullBundle("Body"), &api.ExportSettings{Arnold: true}, nil, nil)

	res := (&ArnoldBuilder{}).Build(st, ctx, "/mtl/m")
	require.Nil(t, res.Displacement, "bump mode has no displacement output")

	ng := "/mtl/m/ArnoldNodeGraph"
	surface, ok := st.GetPrim(ng + "/arnold_standard_surface1")
	require.True(t, ok)

	// Textures route through their conversion nodes.
	base, ok := surface.GetInput("base_color")
	require.True(t, ok)
	require.NotNil(t, base.Conn)
	assert.Equal(t, ng+"/arnold_basecolorColorCorrect", base.Conn.Prim)
	assert.Equal(t, "rgb", base.Conn.Output)

	rough, ok := surface.GetInput("specular_roughness")
	require.True(t, ok)
	require.NotNil(t, rough.Conn)
	assert.Equal(t, ng+"/arnold_roughnessRange", rough.Conn.Prim)
	assert.Equal(t, "r", rough.Conn.Output)

	// Texture paths pick up the arnold format.
	tex, ok := st.GetPrim(ng + "/arnold_basecolorTexture")
	require.True(t, ok)
	file, ok := tex.GetInput("filename")
	require.True(t, ok)
	assert.Equal(t, stage.Asset("maps/Body_basecolor.tx"), file.Value)

	// A textured emission turns the emission weight on.
	emission, ok := surface.GetInput("emission")
	require.True(t, ok)
	assert.Equal(t, 1.0, emission.Value)

	// Normal and displacement share one bump node feeding the surface normal.
	bump, ok := st.GetPrim(ng + "/arnold_Bump2d")
	require.True(t, ok)
	bumpMap, ok := bump.GetInput("bump_map")
	require.True(t, ok)
	require.NotNil(t, bumpMap.Conn)
	assert.Equal(t, ng+"/arnold_displacementRange", bumpMap.Conn.Prim)

	normal, ok := surface.GetInput("normal")
	require.True(t, ok)
	require.NotNil(t, normal.Conn)
	assert.Equal(t, ng+"/arnold_Bump2d", normal.Conn.Prim)
}

func TestArnoldBuilder_TrueDisplacement(t *testing.T) {
	st := stage.NewStage(stage.NewLayer("mtl.usda"))
	ctx := NewContext(fullBundle("Body"), &api.ExportSettings{Arnold: true, Displacement: true}, nil, nil)

	res := (&ArnoldBuilder{}).Build(st, ctx, "/mtl/m")

	require.NotNil(t, res.Displacement)
	assert.Equal(t, "/mtl/m/ArnoldNodeGraph", res.Displacement.Prim)
	assert.Equal(t, "displacement", res.Displacement.Output)

	disp, ok := st.GetPrim("/mtl/m/ArnoldNodeGraph/arnold_Displacement")
	require.True(t, ok)
	height, ok := disp.GetInput("height")
	require.True(t, ok)
	require.NotNil(t, height.Conn)
	assert.Equal(t, "/mtl/m/ArnoldNodeGraph/arnold_displacementRange", height.Conn.Prim)
}

func TestArnoldBuilder_Transmissive(t *testing.T) {
	st := stage.NewStage(stage.NewLayer("mtl.usda"))
	ctx := NewContext(fullBundle("Window_Glass"), &api.ExportSettings{Arnold: true}, nil, nil)
	require.True(t, ctx.Transmissive)

	(&ArnoldBuilder{}).Build(st, ctx, "/mtl/m")

	surface, ok := st.GetPrim("/mtl/m/ArnoldNodeGraph/arnold_standard_surface1")
	require.True(t, ok)

	// Metalness stays untextured on glass-like materials.
	metal, ok := surface.GetInput("base_metalness")
	require.True(t, ok)
	assert.Nil(t, metal.Conn)
	assert.False(t, st.HasPrim("/mtl/m/ArnoldNodeGraph/arnold_metalnessRange"))

	transmission, ok := surface.GetInput("transmission")
	require.True(t, ok)
	assert.Equal(t, 0.9, transmission.Value)
	thin, ok := surface.GetInput("thin_walled")
	require.True(t, ok)
	assert.Equal(t, true, thin.Value)
}

func TestMtlxBuilder_Build(t *testing.T) {
	st := stage.NewStage(stage.NewLayer("mtl.usda"))
	ctx := NewContext(fullBundle("Body"), &api.ExportSettings{Mtlx: true}, nil, nil)

	res := newMtlxBuilder().Build(st, ctx, "/mtl/m")
	require.Nil(t, res.Displacement, "displacement feeds the graph output directly, not the result")

	ng := "/mtl/m/MtlxNodeGraph"
	graph, ok := st.GetPrim(ng)
	require.True(t, ok)
	surfaceOut, ok := graph.GetAttr("outputs:surface")
	require.True(t, ok)
	require.NotNil(t, surfaceOut.Conn)
	assert.Equal(t, "surface", surfaceOut.Conn.Output)

	dispOut, ok := graph.GetAttr("outputs:displacement")
	require.True(t, ok)
	require.NotNil(t, dispOut.Conn)
	assert.Equal(t, ng+"/mtlx_displacementTexture", dispOut.Conn.Prim)

	surface, ok := st.GetPrim(ng + "/mtlx_mtlxstandard_surface1")
	require.True(t, ok)
	id, _ := surface.GetAttr("info:id")
	assert.Equal(t, stage.Token("ND_standard_surface_surfaceshader"), id.Value)

	// Mtlx textures get the png baseline format.
	tex, ok := st.GetPrim(ng + "/mtlx_metalnessTexture")
	require.True(t, ok)
	id, _ = tex.GetAttr("info:id")
	assert.Equal(t, stage.Token("ND_image_float"), id.Value)

	metal, ok := surface.GetInput("metalness")
	require.True(t, ok)
	require.NotNil(t, metal.Conn)
	assert.Equal(t, ng+"/mtlx_metalnessRange", metal.Conn.Prim)
}

func TestOpenPBRBuilder_Build(t *testing.T) {
	st := stage.NewStage(stage.NewLayer("mtl.usda"))
	ctx := NewContext(fullBundle("Body"), &api.ExportSettings{OpenPBR: true}, nil, nil)

	res := newOpenPBRBuilder().Build(st, ctx, "/mtl/m")
	assert.Equal(t, "/mtl/m/OpenPbrNodeGraph", res.Surface.Prim)

	ng := "/mtl/m/OpenPbrNodeGraph"
	graph, ok := st.GetPrim(ng)
	require.True(t, ok)
	surfaceOut, _ := graph.GetAttr("outputs:surface")
	require.NotNil(t, surfaceOut.Conn)
	assert.Equal(t, ng+"/openpbr_surface1", surfaceOut.Conn.Prim)
	assert.Equal(t, "out", surfaceOut.Conn.Output, "the OpenPBR shader exposes its surface as \"out\"")

	surface, ok := st.GetPrim(ng + "/openpbr_surface1")
	require.True(t, ok)
	metal, ok := surface.GetInput("base_metalness")
	require.True(t, ok)
	require.NotNil(t, metal.Conn)

	normal, ok := surface.GetInput("geometry_normal")
	require.True(t, ok)
	require.NotNil(t, normal.Conn)
	assert.Equal(t, ng+"/openpbr_NormalMap", normal.Conn.Prim)

	// OpenPBR samples opacity as a float.
	opacityTex, ok := st.GetPrim(ng + "/openpbr_opacityTexture")
	require.True(t, ok)
	id, _ := opacityTex.GetAttr("info:id")
	assert.Equal(t, stage.Token("ND_image_float"), id.Value)
	opacity, ok := surface.GetInput("geometry_opacity")
	require.True(t, ok)
	assert.Equal(t, stage.TypeFloat, opacity.Type)

	luminance, ok := surface.GetInput("emission_luminance")
	require.True(t, ok)
	assert.Equal(t, 1.0, luminance.Value)
}
