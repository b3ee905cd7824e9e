package previewtex

import (
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetpipe/usdpublish/internal/errs"
)

func TestValidateResolution(t *testing.T) {
	require.NoError(t, ValidateResolution(1024))
	require.NoError(t, ValidateResolution(128))

	var vErr *errs.ValidationError
	require.ErrorAs(t, ValidateResolution(1000), &vErr)
	require.ErrorAs(t, ValidateResolution(0), &vErr)
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "jpg"},
		{"jpg", "jpg"},
		{".JPEG", "jpeg"},
		{" png ", "png"},
	}
	for _, tc := range cases {
		got, err := ParseFormat(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	var vErr *errs.ValidationError
	_, err := ParseFormat("exr")
	require.ErrorAs(t, err, &vErr)
}

func writeTestPNG(t *testing.T, fs billy.Filesystem, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	require.NoError(t, fs.MkdirAll("textures", 0o755))
	f, err := fs.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func decodeWritten(t *testing.T, fs billy.Filesystem, path string) image.Image {
	t.Helper()
	f, err := fs.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, _, err := image.Decode(f)
	require.NoError(t, err)
	return img
}

func TestBake_Downscales(t *testing.T) {
	fs := memfs.New()
	writeTestPNG(t, fs, "textures/Body_BaseColor.png", 256, 128)

	written, err := NewBaker(fs, nil).Bake("textures/Body_BaseColor.png", "Body", 128, "png")
	require.NoError(t, err)
	require.Equal(t, []string{"textures/previewTextures/Body_BaseColor.png"}, written)

	img := decodeWritten(t, fs, written[0])
	assert.Equal(t, 128, img.Bounds().Dx())
	assert.Equal(t, 64, img.Bounds().Dy(), "aspect ratio is preserved")
}

func TestBake_SmallSourcePassesThrough(t *testing.T) {
	fs := memfs.New()
	writeTestPNG(t, fs, "textures/Body_BaseColor.png", 64, 32)

	written, err := NewBaker(fs, nil).Bake("textures/Body_BaseColor.png", "Body", 128, "jpg")
	require.NoError(t, err)
	require.Len(t, written, 1)

	img := decodeWritten(t, fs, "textures/previewTextures/Body_BaseColor.jpg")
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())
}

func TestBake_ExpandsTiles(t *testing.T) {
	fs := memfs.New()
	writeTestPNG(t, fs, "textures/Body_BaseColor.1001.png", 32, 32)
	writeTestPNG(t, fs, "textures/Body_BaseColor.1002.png", 32, 32)
	writeTestPNG(t, fs, "textures/Body_Normal.1001.png", 32, 32)

	written, err := NewBaker(fs, nil).Bake("textures/Body_BaseColor.<UDIM>.png", "Body", 128, "jpg")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"textures/previewTextures/Body_BaseColor.1001.jpg",
		"textures/previewTextures/Body_BaseColor.1002.jpg",
	}, written, "each tile keeps its own number in the baked name")
}

func TestBake_NoTilesFound(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, fs.MkdirAll("textures", 0o755))

	_, err := NewBaker(fs, nil).Bake("textures/Body_BaseColor.<UDIM>.png", "Body", 128, "jpg")
	var fsErr *errs.FileSystemError
	require.ErrorAs(t, err, &fsErr)
}

func TestBake_InvalidArguments(t *testing.T) {
	fs := memfs.New()
	baker := NewBaker(fs, nil)

	var vErr *errs.ValidationError
	_, err := baker.Bake("textures/a.png", "Body", 100, "jpg")
	require.ErrorAs(t, err, &vErr)
	_, err = baker.Bake("textures/a.png", "Body", 128, "tiff")
	require.ErrorAs(t, err, &vErr)
}
