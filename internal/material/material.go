// Package material assembles collect materials from shader builder output
// and binds them to meshes by name.
package material

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/assetpipe/usdpublish/api"
	"github.com/assetpipe/usdpublish/internal/errs"
	"github.com/assetpipe/usdpublish/internal/naming"
	"github.com/assetpipe/usdpublish/internal/shade"
	"github.com/assetpipe/usdpublish/internal/stage"
)

const (
	collectPrefix = "mat_"
	collectSuffix = "_collect"

	// originalNameAttr retains the pre-sanitization material name for
	// later name matching.
	originalNameAttr = "userProperties:originalName"
)

var identifierRe = regexp.MustCompile(`[^0-9A-Za-z_/]+`)

// SanitizeIdentifier rewrites a raw material name into a legal prim
// identifier: illegal runs collapse to underscores and a leading digit gets
// an underscore prefix.
func SanitizeIdentifier(name string) string {
	s := identifierRe.ReplaceAllString(name, "_")
	if s == "" {
		return "_"
	}
	c := s[0]
	if !(c == '/' || c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')) {
		s = "_" + s
	}
	return s
}

// surfaceOutputName maps a renderer to its namespaced output on the collect
// material. The OpenPBR target shares the MaterialX namespace, which is why
// the two are mutually exclusive.
func surfaceOutputName(r api.Renderer) string {
	switch r {
	case api.RendererArnold:
		return "arnold:surface"
	case api.RendererMtlx, api.RendererOpenPBR:
		return "mtlx:surface"
	default:
		return "surface"
	}
}

// CreateMaterial authors one collect material for a bundle under parentPath
// and runs each enabled renderer's builder below it, attaching the returned
// connections as namespaced surface outputs. When both MaterialX-flavored
// targets are requested, OpenPBR wins and the standard one is dropped with
// a warning.
func CreateMaterial(st *stage.Stage, bundle *api.MaterialBundle, ctx *shade.Context, parentPath string, renderers []api.Renderer, log *slog.Logger) (*stage.Prim, error) {
	if log == nil {
		log = slog.Default()
	}

	renderers = resolveRendererConflict(renderers, log)

	collectPath := parentPath + "/" + collectPrefix + SanitizeIdentifier(bundle.Name) + collectSuffix
	mat := st.DefinePrim(collectPath, "Material")
	mat.SetAttr(originalNameAttr, stage.TypeString, bundle.Name)
	mat.SetInput("inputnum", stage.TypeInt, 2)

	for _, r := range renderers {
		builder, err := shade.ForRenderer(r)
		if err != nil {
			return nil, err
		}
		res := builder.Build(st, ctx, collectPath)
		mat.ConnectOutput(surfaceOutputName(r), stage.TypeToken, res.Surface)
		if res.Displacement != nil {
			mat.ConnectOutput("arnold:displacement", stage.TypeToken, *res.Displacement)
		}
	}
	return mat, nil
}

func resolveRendererConflict(renderers []api.Renderer, log *slog.Logger) []api.Renderer {
	hasOpenPBR := false
	for _, r := range renderers {
		if r == api.RendererOpenPBR {
			hasOpenPBR = true
		}
	}
	if !hasOpenPBR {
		return renderers
	}
	out := renderers[:0:0]
	for _, r := range renderers {
		if r == api.RendererMtlx {
			log.Warn("standard MaterialX target suppressed: OpenPBR occupies the same output namespace")
			continue
		}
		out = append(out, r)
	}
	return out
}

// Bind authors a material:binding relationship from every target prim to
// the material at materialPath, applying the MaterialBindingAPI schema on
// each target. Binding against a prim that is not a Material fails.
func Bind(st *stage.Stage, materialPath string, targets []string) error {
	mat, ok := st.GetPrim(materialPath)
	if !ok || mat.TypeName() != "Material" {
		return errs.NewMaterialAssignment("binding source is not a material",
			errs.Details{"path": materialPath})
	}
	for _, target := range targets {
		over := st.OverridePrim(target)
		over.SetRelationship("material:binding", []string{materialPath})
		addApiSchema(over, "MaterialBindingAPI")
	}
	return nil
}

func addApiSchema(p *stage.Prim, name string) {
	for _, s := range p.ApiSchemas {
		if s == name {
			return
		}
	}
	p.ApiSchemas = append(p.ApiSchemas, name)
}

// AssignByName binds every material under materialsRoot to the meshes under
// meshesRoot whose name contains the material's recovered original name.
// Materials are collected non-recursively, meshes recursively. Meshless
// materials log a warning and are skipped.
func AssignByName(st *stage.Stage, materialsRoot, meshesRoot string, convention *naming.Convention, log *slog.Logger) error {
	if convention == nil {
		convention = naming.Default()
	}
	if log == nil {
		log = slog.Default()
	}

	var materials []*stage.Prim
	for _, child := range st.Children(materialsRoot) {
		if p, ok := st.GetPrim(child); ok && p.TypeName() == "Material" {
			materials = append(materials, p)
		}
	}
	if len(materials) == 0 {
		log.Info("no materials found", "path", materialsRoot)
		return nil
	}

	for _, mat := range materials {
		name := recoverMaterialName(mat, convention)
		meshes := collectMeshes(st, meshesRoot, name)
		if len(meshes) == 0 {
			log.Warn("no meshes match material", "material", name)
			continue
		}
		if err := Bind(st, mat.Path(), meshes); err != nil {
			return err
		}
		log.Debug("bound material", "material", name, "meshes", len(meshes))
	}
	return nil
}

// recoverMaterialName prefers the retained original name; otherwise it
// unwraps the collect naming and applies the naming convention.
func recoverMaterialName(mat *stage.Prim, convention *naming.Convention) string {
	if attr, ok := mat.GetAttr(originalNameAttr); ok {
		if s, ok := attr.Value.(string); ok && s != "" {
			return s
		}
	}
	name := strings.TrimSuffix(strings.TrimPrefix(mat.Name(), collectPrefix), collectSuffix)
	return convention.Clean(name)
}

func collectMeshes(st *stage.Stage, root, nameToken string) []string {
	var out []string
	if _, ok := st.GetPrim(root); !ok {
		return nil
	}
	var walk func(path string)
	walk = func(path string) {
		if p, ok := st.GetPrim(path); ok {
			if p.TypeName() == "Mesh" && strings.Contains(p.Name(), nameToken) {
				out = append(out, path)
			}
		}
		for _, child := range st.Children(path) {
			walk(child)
		}
	}
	for _, child := range st.Children(root) {
		walk(child)
	}
	return out
}
