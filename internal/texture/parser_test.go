package texture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetpipe/usdpublish/api"
	"github.com/assetpipe/usdpublish/internal/errs"
)

func TestParse_NilSets(t *testing.T) {
	p := NewParser(DefaultResolver(), nil)
	_, err := p.Parse(nil, nil)

	var invalid *errs.InvalidInputError
	require.ErrorAs(t, err, &invalid)
}

func TestParse_GroupsBundles(t *testing.T) {
	p := NewParser(DefaultResolver(), nil)

	sets := []api.TextureSetExport{
		{
			Key: []string{"Body"},
			Paths: []string{
				"out/Body_BaseColor.png",
				"out/Body_Roughness.1001.png",
				"out/Body_Roughness.png",
				"out/notes.txt",
			},
		},
		{Key: []string{"Decal"}, Paths: []string{"out/readme.txt"}},
		{Key: nil, Paths: []string{"out/Orphan_Normal.png"}},
	}
	meshNames := map[string][]string{
		"Body": {"bodyMesh", "bodyMesh", "", "bodyMesh_low"},
	}

	bundles, err := p.Parse(sets, meshNames)
	require.NoError(t, err)
	require.Len(t, bundles, 1, "sets without recognized textures or a key are skipped")

	b := bundles[0]
	assert.Equal(t, "Body", b.Name)
	assert.Equal(t, []string{"bodyMesh", "bodyMesh_low"}, b.MeshNames)
	require.Len(t, b.Textures, 2)

	base := b.Textures[api.SlotBaseColor]
	assert.Equal(t, "out/Body_BaseColor.png", base.Path)
	assert.False(t, base.Tiled)

	rough := b.Textures[api.SlotRoughness]
	assert.Equal(t, "out/Body_Roughness.<UDIM>.png", rough.Path)
	assert.True(t, rough.Tiled, "tiled path wins over a later untiled one")
}

func TestParse_CompositeKeyUsesFirstElement(t *testing.T) {
	p := NewParser(DefaultResolver(), nil)

	bundles, err := p.Parse([]api.TextureSetExport{
		{Key: []string{"Glass", "high"}, Paths: []string{"out/Glass_Opacity.png"}},
	}, nil)
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	assert.Equal(t, "Glass", bundles[0].Name)
}
