package texture

import (
	"log/slog"

	"github.com/assetpipe/usdpublish/api"
	"github.com/assetpipe/usdpublish/internal/errs"
)

// Parser groups raw texture paths by material set into typed bundles.
type Parser struct {
	resolver *Resolver
	log      *slog.Logger
}

// NewParser builds a parser over the given resolver. A nil logger falls back
// to the default slog logger.
func NewParser(resolver *Resolver, log *slog.Logger) *Parser {
	if log == nil {
		log = slog.Default()
	}
	return &Parser{resolver: resolver, log: log}
}

// Parse turns the host's material-set export into material bundles.
// meshNames optionally pre-associates mesh names with material set names.
//
// Texture paths that resolve to no slot are dropped with a debug log. When a
// slot sees both tiled and untiled paths, the tiled one wins. Sets with zero
// recognized textures are skipped with a warning. Bundle order follows the
// input order.
func (p *Parser) Parse(sets []api.TextureSetExport, meshNames map[string][]string) ([]*api.MaterialBundle, error) {
	if sets == nil {
		return nil, errs.NewInvalidInput("texture set export cannot be nil", nil)
	}

	var bundles []*api.MaterialBundle
	for _, set := range sets {
		name := set.MaterialName()
		if name == "" {
			p.log.Warn("skipping texture set with empty key")
			continue
		}

		textures := make(map[api.Slot]api.TextureEntry)
		for _, path := range set.Paths {
			slot, ok := p.resolver.ResolveSlot(path)
			if !ok {
				p.log.Debug("skipping unrecognized texture", "path", path)
				continue
			}
			entry := api.TextureEntry{Slot: slot, Path: path}
			if tiled, ok := DetectTileToken(path); ok {
				entry.Path = tiled
				entry.Tiled = true
			}
			if prev, exists := textures[slot]; exists && prev.Tiled && !entry.Tiled {
				// Tiled wins over untiled for the same slot.
				continue
			}
			textures[slot] = entry
		}

		if len(textures) == 0 {
			p.log.Warn("skipping material with no recognized textures", "material", name)
			continue
		}

		bundles = append(bundles, &api.MaterialBundle{
			Name:      name,
			Textures:  textures,
			MeshNames: dedupe(meshNames[name]),
		})
	}
	return bundles, nil
}

func dedupe(names []string) []string {
	var out []string
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
