// Package shade compiles texture bundles into renderer-specific shading
// node graphs. One builder exists per renderer target; all share a build
// context derived from the export settings.
package shade

import (
	"log/slog"
	"strings"

	"github.com/assetpipe/usdpublish/api"
	"github.com/assetpipe/usdpublish/internal/config"
)

// DisplacementMode selects how displacement textures are wired.
type DisplacementMode int

const (
	// DisplacementBump feeds displacement into the shared bump node.
	DisplacementBump DisplacementMode = iota
	// DisplacementTrue wires a dedicated displacement shader to the graph's
	// displacement output. Only the arnold target supports it.
	DisplacementTrue
)

// Context carries everything a builder needs for one material.
type Context struct {
	Bundle        *api.MaterialBundle
	Transmissive  bool
	Mode          DisplacementMode
	PreviewFormat string

	overrides map[string]string
	log       *slog.Logger
}

// NewContext derives a build context from a bundle and the export settings.
// A nil config falls back to defaults, a nil logger to slog.Default().
func NewContext(bundle *api.MaterialBundle, settings *api.ExportSettings, cfg *config.Config, log *slog.Logger) *Context {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = slog.Default()
	}

	mode := DisplacementBump
	if settings.Arnold && settings.Displacement {
		mode = DisplacementTrue
	}

	overrides := make(map[string]string)
	for k, v := range cfg.FormatOverrides {
		overrides[strings.ToLower(k)] = v
	}
	for k, v := range settings.FormatOverrides {
		overrides[strings.ToLower(k)] = v
	}

	return &Context{
		Bundle:        bundle,
		Transmissive:  isTransmissive(bundle.Name, cfg.TransmissiveTokens),
		Mode:          mode,
		PreviewFormat: settings.PreviewFormat,
		overrides:     overrides,
		log:           log,
	}
}

func isTransmissive(name string, tokens []string) bool {
	if name == "" {
		return false
	}
	lower := strings.ToLower(name)
	for _, tok := range tokens {
		if tok != "" && strings.Contains(lower, strings.ToLower(tok)) {
			return true
		}
	}
	return false
}

// FormatFor returns the texture format override for a renderer. Renderers
// absent from the override map fall back to their baseline format; for the
// preview target that baseline is empty, meaning keep the source format.
func (c *Context) FormatFor(r api.Renderer) string {
	if v, ok := c.overrides[string(r)]; ok {
		return v
	}
	return r.DefaultFormat()
}

// TexturePath applies the renderer's format override to a bundle path by
// replacing the file extension, or appending one when the path has none.
// Tile placeholders sit before the extension and survive untouched.
func (c *Context) TexturePath(path string, r api.Renderer) string {
	override := c.FormatFor(r)
	if override == "" {
		return path
	}
	ext := override
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	slash := strings.LastIndexByte(path, '/')
	dot := strings.LastIndexByte(path, '.')
	if dot > slash {
		return path[:dot] + ext
	}
	return path + ext
}

// orderedTextures returns the bundle's entries in canonical slot order so
// generated graphs are deterministic.
func (c *Context) orderedTextures() []api.TextureEntry {
	var out []api.TextureEntry
	for _, slot := range api.Slots() {
		if entry, ok := c.Bundle.Textures[slot]; ok {
			out = append(out, entry)
		}
	}
	return out
}
