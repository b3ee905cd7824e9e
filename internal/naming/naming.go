// Package naming cleans material identifiers so they can be matched against
// mesh names: DCC-specific suffixes and prefixes are stripped to recover the
// bare asset token.
package naming

import "github.com/assetpipe/usdpublish/internal/config"

// Convention defines which prefixes and suffixes are removed from raw
// material names. Matching is case sensitive, and at most one suffix and one
// prefix are removed per Clean call.
type Convention struct {
	StripPrefixes []string
	StripSuffixes []string
}

// Default returns the convention for common DCC naming: Maya shading group
// suffixes, generic material prefixes and the internal collect suffix.
func Default() *Convention {
	return FromConfig(config.Default())
}

// FromConfig builds a convention from the pipeline configuration.
func FromConfig(cfg *config.Config) *Convention {
	return &Convention{
		StripPrefixes: cfg.StripPrefixes,
		StripSuffixes: cfg.StripSuffixes,
	}
}

// Clean removes at most one configured suffix, then at most one configured
// prefix. Suffixes go first: with "mat_Body_ShaderSG" the suffix must come
// off before the prefix can be considered against the remaining name.
// Clean is idempotent on already-clean names.
func (c *Convention) Clean(raw string) string {
	name := raw
	for _, suffix := range c.StripSuffixes {
		if len(suffix) > 0 && len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			name = name[:len(name)-len(suffix)]
			break
		}
	}
	for _, prefix := range c.StripPrefixes {
		if len(prefix) > 0 && len(name) > len(prefix) && name[:len(prefix)] == prefix {
			name = name[len(prefix):]
			break
		}
	}
	return name
}
