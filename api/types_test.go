package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabledRenderers_BuildOrder(t *testing.T) {
	s := ExportSettings{OpenPBR: true, Preview: true, Arnold: true}
	assert.Equal(t, []Renderer{RendererPreview, RendererArnold, RendererOpenPBR}, s.EnabledRenderers())

	assert.Empty(t, ExportSettings{}.EnabledRenderers())
}

func TestAssetName(t *testing.T) {
	cases := []struct {
		primPath string
		want     string
	}{
		{"/Vehicle", "Vehicle"},
		{"/Vehicle/body", "Vehicle"},
		{"//Vehicle", "Vehicle"},
		{"/", "Asset"},
		{"", "Asset"},
	}
	for _, tc := range cases {
		s := ExportSettings{PrimPath: tc.primPath}
		assert.Equal(t, tc.want, s.AssetName(), "prim path %q", tc.primPath)
	}
}

func TestDefaultFormat(t *testing.T) {
	assert.Equal(t, "tx", RendererArnold.DefaultFormat())
	assert.Equal(t, "png", RendererMtlx.DefaultFormat())
	assert.Equal(t, "png", RendererOpenPBR.DefaultFormat())
	assert.Equal(t, "", RendererPreview.DefaultFormat(), "preview keeps the source format")
}

func TestTiledSlots(t *testing.T) {
	b := &MaterialBundle{Textures: map[Slot]TextureEntry{
		SlotNormal:    {Slot: SlotNormal, Path: "n.<UDIM>.png", Tiled: true},
		SlotBaseColor: {Slot: SlotBaseColor, Path: "b.png"},
	}}
	assert.Equal(t, []Slot{SlotNormal}, b.TiledSlots())
}

func TestMaterialName(t *testing.T) {
	assert.Equal(t, "Body", TextureSetExport{Key: []string{"Body", "low"}}.MaterialName())
	assert.Equal(t, "", TextureSetExport{}.MaterialName())
}
