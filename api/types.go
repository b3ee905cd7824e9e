// Package api holds the data model shared between the publish pipeline
// packages and their callers: texture slots, material bundles, renderer
// targets and the flat export settings record.
package api

// Slot is a canonical texture role. The set is closed: texture files that
// resolve to no slot are dropped, never errored.
type Slot string

// Canonical texture slots.
const (
	SlotBaseColor    Slot = "basecolor"
	SlotMetalness    Slot = "metalness"
	SlotRoughness    Slot = "roughness"
	SlotNormal       Slot = "normal"
	SlotOpacity      Slot = "opacity"
	SlotOcclusion    Slot = "occlusion"
	SlotDisplacement Slot = "displacement"
	SlotEmission     Slot = "emission"
)

// Slots lists every canonical slot in a stable order.
func Slots() []Slot {
	return []Slot{
		SlotBaseColor, SlotMetalness, SlotRoughness, SlotNormal,
		SlotOpacity, SlotOcclusion, SlotDisplacement, SlotEmission,
	}
}

// TextureEntry is one classified texture file. Path carries the <UDIM>
// placeholder when Tiled is set. Entries are immutable once parsed.
type TextureEntry struct {
	Slot  Slot
	Path  string
	Tiled bool
}

// MaterialBundle is one material's full set of classified textures, plus the
// mesh names the host pre-associated with its texture set. A bundle is never
// empty: the parser does not construct bundles with zero recognized textures.
type MaterialBundle struct {
	Name      string
	Textures  map[Slot]TextureEntry
	MeshNames []string // deduplicated, host order preserved
}

// TiledSlots returns the slots whose texture entry is tiled.
func (b *MaterialBundle) TiledSlots() []Slot {
	var tiled []Slot
	for _, slot := range Slots() {
		if e, ok := b.Textures[slot]; ok && e.Tiled {
			tiled = append(tiled, slot)
		}
	}
	return tiled
}

// TextureSetExport is one material set as exported by the texturing host:
// a (possibly composite) key plus the ordered list of files it produced.
type TextureSetExport struct {
	Key   []string
	Paths []string
}

// MaterialName derives the bundle name from the set key: the first element
// when the key is composite.
func (s TextureSetExport) MaterialName() string {
	if len(s.Key) == 0 {
		return ""
	}
	return s.Key[0]
}

// Renderer is one supported shading model / output namespace.
type Renderer string

// Supported renderer targets.
const (
	RendererPreview Renderer = "preview"
	RendererArnold  Renderer = "arnold"
	RendererMtlx    Renderer = "mtlx"
	RendererOpenPBR Renderer = "openpbr"
)

// Renderers lists every target in build order.
func Renderers() []Renderer {
	return []Renderer{RendererPreview, RendererArnold, RendererMtlx, RendererOpenPBR}
}

// DefaultFormat is the baseline texture format extension used when no
// override is configured for the renderer. Preview has none: absent an
// override it keeps the source format.
func (r Renderer) DefaultFormat() string {
	switch r {
	case RendererArnold:
		return "tx"
	case RendererMtlx, RendererOpenPBR:
		return "png"
	default:
		return ""
	}
}

// PreviewResolutions is the fixed set of valid preview bake sizes.
var PreviewResolutions = []int{128, 256, 512, 1024, 2048, 4096}

// ExportSettings is the flat record collected from the host UI or CLI flags.
type ExportSettings struct {
	Preview bool
	Arnold  bool
	Mtlx    bool
	OpenPBR bool

	PrimPath     string // must start with "/"
	PublishDir   string // "<export_folder>" placeholder resolved by the caller
	SaveGeometry bool

	PreviewResolution int    // one of PreviewResolutions
	PreviewFormat     string // jpg, jpeg or png

	// FormatOverrides maps lower-cased renderer names to texture format
	// extensions, overriding each renderer's baseline format.
	FormatOverrides map[string]string

	// Displacement requests true displacement instead of bump wiring.
	// Honored only when the arnold target is enabled.
	Displacement bool
}

// EnabledRenderers returns the targets enabled in the settings, in build order.
func (s ExportSettings) EnabledRenderers() []Renderer {
	var out []Renderer
	if s.Preview {
		out = append(out, RendererPreview)
	}
	if s.Arnold {
		out = append(out, RendererArnold)
	}
	if s.Mtlx {
		out = append(out, RendererMtlx)
	}
	if s.OpenPBR {
		out = append(out, RendererOpenPBR)
	}
	return out
}

// AssetName derives the asset name from the root prim path, e.g. "/Asset"
// yields "Asset".
func (s ExportSettings) AssetName() string {
	path := s.PrimPath
	for len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	if path == "" {
		return "Asset"
	}
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return path
}
