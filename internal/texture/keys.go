// Package texture classifies exported texture files into canonical slots,
// detects tiled (UDIM) path patterns and groups raw texture paths into
// per-material bundles.
package texture

import (
	"regexp"
	"strings"

	"github.com/assetpipe/usdpublish/api"
	"github.com/assetpipe/usdpublish/internal/config"
)

// Resolver maps file names to canonical slots using an ordered token table.
// Longer, more specific tokens must be listed before generic ones: the first
// match wins, so "base_color" is tried before "metalness" can shadow it.
type Resolver struct {
	tokens []tokenPattern
}

type tokenPattern struct {
	re   *regexp.Regexp
	slot api.Slot
}

// NewResolver compiles the configured slot token table.
func NewResolver(cfg *config.Config) *Resolver {
	r := &Resolver{}
	for _, st := range cfg.SlotTokens {
		// Word-boundary match: the token must not be embedded inside a
		// longer alphanumeric run, so "ao" does not match "chaos".
		pat := `(^|[^a-z0-9])` + regexp.QuoteMeta(strings.ToLower(st.Token)) + `([^a-z0-9]|$)`
		r.tokens = append(r.tokens, tokenPattern{
			re:   regexp.MustCompile(pat),
			slot: api.Slot(st.Slot),
		})
	}
	return r
}

// DefaultResolver builds a resolver over the built-in token table.
func DefaultResolver() *Resolver {
	return NewResolver(config.Default())
}

// ResolveSlot returns the canonical slot for a texture path, or false when
// no configured token matches. Tokens match against the whole path, not just
// the file name, so a directory component can claim the slot; table order
// decides between competing matches. An unmatched path is not an error;
// callers log and discard it.
func (r *Resolver) ResolveSlot(path string) (api.Slot, bool) {
	lower := strings.ToLower(path)
	for _, tp := range r.tokens {
		if tp.re.MatchString(lower) {
			return tp.slot, true
		}
	}
	return "", false
}
