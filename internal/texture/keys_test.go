package texture

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/assetpipe/usdpublish/api"
)

func TestResolveSlot(t *testing.T) {
	r := DefaultResolver()

	cases := []struct {
		path string
		slot api.Slot
		ok   bool
	}{
		{"out/Body_Base_Color.png", api.SlotBaseColor, true},
		{"out/Body_BaseColor.1001.png", api.SlotBaseColor, true},
		{"out/BODY_ALBEDO.exr", api.SlotBaseColor, true},
		{"out/Body_Metalness.png", api.SlotMetalness, true},
		{"out/Body_Roughness.png", api.SlotRoughness, true},
		{"out/Body_Normal.png", api.SlotNormal, true},
		{"out/Body_AO.png", api.SlotOcclusion, true},
		{"out/Body_Height.png", api.SlotDisplacement, true},
		{"out/Body_Emissive.png", api.SlotEmission, true},
		{"out/thumbnail.png", "", false},
	}
	for _, tc := range cases {
		slot, ok := r.ResolveSlot(tc.path)
		assert.Equal(t, tc.ok, ok, tc.path)
		assert.Equal(t, tc.slot, slot, tc.path)
	}
}

func TestResolveSlot_TokenOrder(t *testing.T) {
	r := DefaultResolver()

	// "base_color" is listed before "metalness" so it wins even when both
	// tokens appear in the name.
	slot, ok := r.ResolveSlot("out/Body_base_color_metalness_mix.png")
	assert.True(t, ok)
	assert.Equal(t, api.SlotBaseColor, slot)
}

func TestResolveSlot_MatchesWholePath(t *testing.T) {
	r := DefaultResolver()

	// Directory components participate in matching: "basecolor" sits
	// earlier in the token table than "roughness", so the folder name
	// claims the slot ahead of the file name.
	slot, ok := r.ResolveSlot("out/basecolor/Body_Roughness.png")
	assert.True(t, ok)
	assert.Equal(t, api.SlotBaseColor, slot)
}

func TestResolveSlot_WordBoundary(t *testing.T) {
	r := DefaultResolver()

	// "ao" must not match inside a longer run.
	_, ok := r.ResolveSlot("out/chaos.png")
	assert.False(t, ok)

	slot, ok := r.ResolveSlot("out/body_ao_4k.png")
	assert.True(t, ok)
	assert.Equal(t, api.SlotOcclusion, slot)
}
