package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	c := Default()

	cases := []struct {
		raw  string
		want string
	}{
		{"mat_Body_ShaderSG", "Body"},
		{"material_Body", "Body"},
		{"M_Glass", "Glass"},
		{"Body_SG", "Body"},
		{"Body", "Body"},
		// A name that is nothing but the affix stays untouched.
		{"_SG", "_SG"},
		{"mat_", "mat_"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.Clean(tc.raw), tc.raw)
	}
}

func TestClean_SuffixBeforePrefix(t *testing.T) {
	c := &Convention{
		StripPrefixes: []string{"mat_"},
		StripSuffixes: []string{"_ShaderSG"},
	}
	// The prefix only becomes strippable once the suffix is gone.
	assert.Equal(t, "Body", c.Clean("mat_Body_ShaderSG"))
}

func TestClean_Idempotent(t *testing.T) {
	c := Default()
	for _, raw := range []string{"mat_Body_ShaderSG", "Body", "M_Glass_MAT"} {
		once := c.Clean(raw)
		assert.Equal(t, once, c.Clean(once), raw)
	}
}

func TestClean_AtMostOneAffixEach(t *testing.T) {
	c := &Convention{
		StripPrefixes: []string{"mat_"},
		StripSuffixes: []string{"_SG"},
	}
	// A second occurrence survives a single Clean call.
	assert.Equal(t, "mat_Body", c.Clean("mat_mat_Body_SG"))
}
