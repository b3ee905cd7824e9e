package texture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectTileToken(t *testing.T) {
	cases := []struct {
		path string
		want string
		ok   bool
	}{
		{"out/Body.1001.png", "out/Body.<UDIM>.png", true},
		{"out/Body_1003.exr", "out/Body_<UDIM>.exr", true},
		{"out/Body-1200.png", "out/Body-<UDIM>.png", true},
		{"out/Body.<UDIM>.png", "out/Body.<UDIM>.png", true},
		{"out/Body.0999.png", "", false},
		{"out/Body.png", "", false},
		{"out/Body.12345.png", "", false},
		{"out/Body.1001", "", false},
	}
	for _, tc := range cases {
		got, ok := DetectTileToken(tc.path)
		assert.Equal(t, tc.ok, ok, tc.path)
		assert.Equal(t, tc.want, got, tc.path)
	}
}
