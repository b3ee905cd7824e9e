// Package previewtex bakes preview base color textures: source maps are
// decoded, downscaled to the preview resolution and re-encoded next to the
// originals in a previewTextures directory.
package previewtex

import (
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"github.com/go-git/go-billy/v5"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"

	"github.com/assetpipe/usdpublish/api"
	"github.com/assetpipe/usdpublish/internal/errs"
	"github.com/assetpipe/usdpublish/internal/shade"
	"github.com/assetpipe/usdpublish/internal/texture"
)

const jpegQuality = 90

// decodeCacheSize bounds the number of decoded source images kept around
// while baking a multi-material export that reuses maps.
const decodeCacheSize = 16

// ValidateResolution checks the resolution against the supported set.
func ValidateResolution(resolution int) error {
	for _, r := range api.PreviewResolutions {
		if r == resolution {
			return nil
		}
	}
	return errs.NewValidation("unsupported preview resolution",
		errs.Details{"resolution": resolution, "supported": api.PreviewResolutions})
}

// ParseFormat normalizes a preview texture format. Empty means jpg; only
// jpg, jpeg and png are supported.
func ParseFormat(value string) (string, error) {
	normalized := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(value)), ".")
	switch normalized {
	case "":
		return "jpg", nil
	case "jpg", "jpeg", "png":
		return normalized, nil
	}
	return "", errs.NewValidation("unsupported preview texture format",
		errs.Details{"format": value, "supported_formats": []string{"jpg", "jpeg", "png"}})
}

// Baker produces preview textures on a filesystem.
type Baker struct {
	fs    billy.Filesystem
	cache *lru.Cache[string, image.Image]
	log   *slog.Logger
}

// NewBaker builds a baker over fs. A nil logger falls back to the default.
func NewBaker(fs billy.Filesystem, log *slog.Logger) *Baker {
	if log == nil {
		log = slog.Default()
	}
	cache, _ := lru.New[string, image.Image](decodeCacheSize)
	return &Baker{fs: fs, cache: cache, log: log}
}

// Bake writes the preview base color texture for one bundle entry. Tiled
// paths expand to every matching tile on disk, each baked separately with
// its tile number restored in the output name. Returns the written paths.
func (b *Baker) Bake(sourcePath, materialName string, resolution int, format string) ([]string, error) {
	if err := ValidateResolution(resolution); err != nil {
		return nil, err
	}
	format, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}

	sources, err := b.expandTiles(sourcePath)
	if err != nil {
		return nil, err
	}

	// The destination pattern keeps the tile placeholder; each concrete
	// tile substitutes its own number back in.
	dstPattern := shade.PreviewTexturePath(sourcePath, materialName, format)

	var written []string
	for _, src := range sources {
		dst := strings.ReplaceAll(dstPattern, texture.TilePlaceholder, src.tile)
		if err := b.bakeOne(src.path, dst, resolution, format); err != nil {
			return nil, err
		}
		written = append(written, dst)
	}
	return written, nil
}

type tileSource struct {
	path string
	tile string
}

// expandTiles resolves a placeholder path to concrete tile files. Paths
// without a placeholder pass through as a single source.
func (b *Baker) expandTiles(sourcePath string) ([]tileSource, error) {
	if !strings.Contains(sourcePath, texture.TilePlaceholder) {
		return []tileSource{{path: sourcePath}}, nil
	}

	dir := path.Dir(sourcePath)
	base := path.Base(sourcePath)
	pattern, err := regexp.Compile("^" + strings.ReplaceAll(regexp.QuoteMeta(base), regexp.QuoteMeta(texture.TilePlaceholder), `(\d{4})`) + "$")
	if err != nil {
		return nil, errs.NewValidation("malformed tiled texture path",
			errs.Details{"path": sourcePath})
	}

	entries, err := b.fs.ReadDir(dir)
	if err != nil {
		return nil, errs.NewFileSystem("failed to list texture directory",
			errs.Details{"path": dir}, err)
	}
	var out []tileSource
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if m := pattern.FindStringSubmatch(entry.Name()); m != nil {
			out = append(out, tileSource{path: path.Join(dir, entry.Name()), tile: m[1]})
		}
	}
	if len(out) == 0 {
		return nil, errs.NewFileSystem("no tiles found for tiled texture",
			errs.Details{"path": sourcePath}, nil)
	}
	return out, nil
}

func (b *Baker) bakeOne(srcPath, dstPath string, resolution int, format string) error {
	img, err := b.decode(srcPath)
	if err != nil {
		return err
	}
	img = fitToResolution(img, resolution)

	if err := b.fs.MkdirAll(path.Dir(dstPath), 0o755); err != nil {
		return errs.NewFileSystem("failed to create preview directory",
			errs.Details{"path": path.Dir(dstPath)}, err)
	}
	f, err := b.fs.Create(dstPath)
	if err != nil {
		return errs.NewFileSystem("failed to create preview texture",
			errs.Details{"path": dstPath}, err)
	}
	defer f.Close()

	switch format {
	case "png":
		err = png.Encode(f, img)
	default:
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		return errs.NewFileSystem("failed to encode preview texture",
			errs.Details{"path": dstPath, "format": format}, err)
	}
	b.log.Debug("baked preview texture", "source", srcPath, "output", dstPath)
	return nil
}

func (b *Baker) decode(srcPath string) (image.Image, error) {
	if img, ok := b.cache.Get(srcPath); ok {
		return img, nil
	}
	f, err := b.fs.Open(srcPath)
	if err != nil {
		return nil, errs.NewFileSystem("failed to open source texture",
			errs.Details{"path": srcPath}, err)
	}
	defer f.Close()

	var img image.Image
	switch strings.ToLower(path.Ext(srcPath)) {
	case ".tga":
		img, err = tga.Decode(f)
	case ".webp":
		img, err = webp.Decode(f)
	default:
		img, _, err = image.Decode(f)
	}
	if err != nil {
		return nil, errs.NewFileSystem("failed to decode source texture",
			errs.Details{"path": srcPath}, err)
	}
	b.cache.Add(srcPath, img)
	return img, nil
}

// fitToResolution downscales so the longest side matches the resolution.
// Images already small enough pass through untouched.
func fitToResolution(img image.Image, resolution int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= resolution {
		return img
	}
	scale := float64(resolution) / float64(longest)
	dw := int(float64(w)*scale + 0.5)
	dh := int(float64(h)*scale + 0.5)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}
