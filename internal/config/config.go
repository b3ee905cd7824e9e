// Package config loads the pipeline configuration: naming convention strip
// lists, the slot token table, transmissive material tokens and per-renderer
// texture format overrides. Configuration files are HCL; every field has a
// built-in default so a missing file is not an error.
package config

import (
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/assetpipe/usdpublish/api"
	"github.com/assetpipe/usdpublish/internal/errs"
)

// SlotToken is one ordered (token, slot) pair of the taxonomy table.
type SlotToken struct {
	Token string `hcl:"token,label"`
	Slot  string `hcl:"slot"`
}

// Config is the resolved pipeline configuration.
type Config struct {
	StripPrefixes      []string
	StripSuffixes      []string
	TransmissiveTokens []string
	// SlotTokens is ordered: more specific tokens must come before generic
	// ones, and the first match wins.
	SlotTokens      []SlotToken
	FormatOverrides map[string]string
}

type namingBlock struct {
	StripPrefixes []string `hcl:"strip_prefixes,optional"`
	StripSuffixes []string `hcl:"strip_suffixes,optional"`
}

type configFile struct {
	Naming             *namingBlock      `hcl:"naming,block"`
	TransmissiveTokens []string          `hcl:"transmissive_tokens,optional"`
	SlotTokens         []SlotToken       `hcl:"slot_token,block"`
	FormatOverrides    map[string]string `hcl:"format_overrides,optional"`
}

// Default returns the built-in configuration modelling common DCC
// conventions.
func Default() *Config {
	return &Config{
		// Longer affixes first: stripping takes the first match.
		StripPrefixes:      []string{"material_", "mat_", "M_"},
		StripSuffixes:      []string{"_ShaderSG", "_collect", "_MAT", "_mtl", "_SG"},
		TransmissiveTokens: []string{"glass", "glas"},
		SlotTokens: []SlotToken{
			{Token: "base_color", Slot: string(api.SlotBaseColor)},
			{Token: "basecolor", Slot: string(api.SlotBaseColor)},
			{Token: "albedo", Slot: string(api.SlotBaseColor)},
			{Token: "diffuse", Slot: string(api.SlotBaseColor)},
			{Token: "metalness", Slot: string(api.SlotMetalness)},
			{Token: "metallic", Slot: string(api.SlotMetalness)},
			{Token: "roughness", Slot: string(api.SlotRoughness)},
			{Token: "normal", Slot: string(api.SlotNormal)},
			{Token: "opacity", Slot: string(api.SlotOpacity)},
			{Token: "alpha", Slot: string(api.SlotOpacity)},
			{Token: "occlusion", Slot: string(api.SlotOcclusion)},
			{Token: "ao", Slot: string(api.SlotOcclusion)},
			{Token: "displacement", Slot: string(api.SlotDisplacement)},
			{Token: "height", Slot: string(api.SlotDisplacement)},
			{Token: "emissive", Slot: string(api.SlotEmission)},
			{Token: "emission", Slot: string(api.SlotEmission)},
		},
		FormatOverrides: map[string]string{},
	}
}

// Load reads an HCL configuration file and merges it over the defaults.
func Load(path string) (*Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewFileSystem("read configuration file",
			errs.Details{"path": path, "operation": "read"}, err)
	}
	return Parse(src, path)
}

// Parse decodes HCL source and merges it over the defaults.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errs.NewConfiguration("parse configuration",
			errs.Details{"file": filename, "error": diags.Error()})
	}

	var raw configFile
	if diags := gohcl.DecodeBody(file.Body, &hcl.EvalContext{}, &raw); diags.HasErrors() {
		return nil, errs.NewConfiguration("decode configuration",
			errs.Details{"file": filename, "error": diags.Error()})
	}

	cfg := Default()
	if raw.Naming != nil {
		if raw.Naming.StripPrefixes != nil {
			cfg.StripPrefixes = raw.Naming.StripPrefixes
		}
		if raw.Naming.StripSuffixes != nil {
			cfg.StripSuffixes = raw.Naming.StripSuffixes
		}
	}
	if raw.TransmissiveTokens != nil {
		cfg.TransmissiveTokens = raw.TransmissiveTokens
	}
	if len(raw.SlotTokens) > 0 {
		cfg.SlotTokens = raw.SlotTokens
	}
	if raw.FormatOverrides != nil {
		cfg.FormatOverrides = raw.FormatOverrides
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every configured slot token names a canonical slot
// and that strip lists contain no empty entries.
func (c *Config) Validate() error {
	known := make(map[string]bool, len(api.Slots()))
	for _, s := range api.Slots() {
		known[string(s)] = true
	}
	for _, st := range c.SlotTokens {
		if st.Token == "" {
			return errs.NewConfiguration("slot token must not be empty", nil)
		}
		if !known[st.Slot] {
			return errs.NewConfiguration("unknown slot in token table",
				errs.Details{"token": st.Token, "slot": st.Slot})
		}
	}
	for _, p := range c.StripPrefixes {
		if p == "" {
			return errs.NewConfiguration("empty naming prefix", nil)
		}
	}
	for _, s := range c.StripSuffixes {
		if s == "" {
			return errs.NewConfiguration("empty naming suffix", nil)
		}
	}
	return nil
}
