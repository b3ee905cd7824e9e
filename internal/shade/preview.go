package shade

import (
	"path"
	"strings"

	"github.com/assetpipe/usdpublish/api"
	"github.com/assetpipe/usdpublish/internal/stage"
	"github.com/assetpipe/usdpublish/internal/texture"
)

// PreviewTextureDir is the directory, alongside the source textures, that
// holds baked preview base color maps.
const PreviewTextureDir = "previewTextures"

const defaultPreviewFormat = "jpg"

// PreviewBuilder emits a UsdPreviewSurface graph. Only the base color slot
// is wired; it reads the baked preview texture rather than the source map.
type PreviewBuilder struct{}

// Renderer implements Builder.
func (b *PreviewBuilder) Renderer() api.Renderer { return api.RendererPreview }

// Build implements Builder.
func (b *PreviewBuilder) Build(st *stage.Stage, ctx *Context, collectPath string) Result {
	ngPath := collectPath + "/UsdPreviewNodeGraph"
	ng := defineNodeGraph(st, ngPath)

	shader := defineShader(st, ngPath+"/UsdPreviewSurface", "UsdPreviewSurface")
	ng.ConnectOutput("surface", stage.TypeToken, shader.Output("surface"))

	stReader := defineShader(st, ngPath+"/TexCoordReader", "UsdPrimvarReader_float2")
	stReader.SetInput("varname", stage.TypeToken, stage.Token("st"))

	if entry, ok := ctx.Bundle.Textures[api.SlotBaseColor]; ok && entry.Path != "" {
		texPath := PreviewTexturePath(entry.Path, ctx.Bundle.Name, ctx.PreviewFormat)
		tex := defineShader(st, ngPath+"/basecolorTexture", "UsdUVTexture")
		tex.SetInput("file", stage.TypeAsset, stage.Asset(texPath))
		tex.SetInput("wrapS", stage.TypeToken, stage.Token("repeat"))
		tex.SetInput("wrapT", stage.TypeToken, stage.Token("repeat"))
		tex.ConnectInput("st", stage.TypeFloat2, stReader.Output("result"))
		shader.ConnectInput("diffuseColor", stage.TypeFloat3, tex.Output("rgb"))
	}

	return Result{Surface: ng.Output("surface")}
}

// PreviewTexturePath maps a source texture path to its baked preview
// counterpart: a previewTextures directory next to the source, holding
// <material>_BaseColor with the preview format's extension. Tiled sources
// keep their placeholder in the preview name.
func PreviewTexturePath(src, materialName, format string) string {
	if format == "" {
		format = defaultPreviewFormat
	}
	name := materialName + "_BaseColor"
	if strings.Contains(src, texture.TilePlaceholder) {
		name += "." + texture.TilePlaceholder
	}
	name += "." + strings.TrimPrefix(format, ".")

	joined := path.Join(path.Dir(src), PreviewTextureDir, name)
	if strings.HasPrefix(src, "./") {
		return "./" + joined
	}
	return joined
}
