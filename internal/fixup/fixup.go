// Package fixup normalizes ingested mesh scenes into the component layout:
// one root, a geo scope with render and proxy branches, no leftover material
// opinions.
package fixup

import (
	"log/slog"
	"strings"

	"github.com/assetpipe/usdpublish/internal/errs"
	"github.com/assetpipe/usdpublish/internal/stage"
)

// classRootName is the abstract class container excluded from root
// detection.
const classRootName = "__class__"

// Normalize rewrites the scene under its single detected root into the
// component layout below targetRoot. Returns whether anything changed.
// Fails with AmbiguousRootError when the scene does not have exactly one
// top-level prim.
func Normalize(st *stage.Stage, targetRoot string, log *slog.Logger) (bool, error) {
	if log == nil {
		log = slog.Default()
	}
	if !strings.HasPrefix(targetRoot, "/") || targetRoot == "/" {
		return false, errs.NewValidation("invalid target root path",
			errs.Details{"target_root": targetRoot})
	}

	sourceRoot, err := detectRoot(st, targetRoot)
	if err != nil {
		return false, err
	}

	changed := false
	if stripMaterialOpinions(st, log) {
		changed = true
	}
	if st.RemovePrim(sourceRoot + "/material") {
		changed = true
	}

	geoPath := targetRoot + "/geo"
	proxyPath := geoPath + "/proxy"
	renderPath := geoPath + "/render"
	for _, scaffold := range []string{targetRoot, geoPath, proxyPath, renderPath} {
		if !st.HasPrim(scaffold) {
			changed = true
			break
		}
	}

	st.DefinePrim(targetRoot, "Xform")
	st.DefinePrim(geoPath, "Scope")

	proxy := st.DefinePrim(proxyPath, "Scope")
	proxy.SetAttr("purpose", stage.TypeToken, stage.Token("proxy"))

	render := st.DefinePrim(renderPath, "Scope")
	render.SetAttr("purpose", stage.TypeToken, stage.Token("render"))
	render.SetRelationship("proxyPrim", []string{proxyPath})

	skip := map[string]bool{"material": true, "render": true, "proxy": true}
	if sourceRoot == targetRoot {
		skip["geo"] = true
	}
	layer := st.EditTarget()
	for _, childPath := range st.Children(sourceRoot) {
		name := childPath[strings.LastIndexByte(childPath, '/')+1:]
		if skip[name] {
			continue
		}
		dst := renderPath + "/" + name
		if !layer.CopySpec(childPath, dst) {
			log.Warn("subtree copy failed", "path", childPath)
			continue
		}
		st.RemovePrim(childPath)
		authorProxyInstance(st, proxyPath+"/"+name, dst)
		changed = true
	}

	if authorExtents(st, renderPath) {
		changed = true
	}

	if sourceRoot != targetRoot && len(st.Children(sourceRoot)) == 0 {
		if st.RemovePrim(sourceRoot) {
			changed = true
		}
	}
	return changed, nil
}

// detectRoot returns the single top-level prim path, ignoring the class
// container and an already-created target root.
func detectRoot(st *stage.Stage, targetRoot string) (string, error) {
	var roots []string
	for _, r := range st.RootPaths() {
		if r == "/"+classRootName {
			continue
		}
		roots = append(roots, r)
	}
	if len(roots) != 1 {
		return "", errs.NewAmbiguousRoot("cannot infer the authored asset root",
			errs.Details{"roots": roots, "target_root": targetRoot})
	}
	return roots[0], nil
}

// stripMaterialOpinions removes material:binding relationships and the
// MaterialBindingAPI schema everywhere; bindings are always regenerated.
func stripMaterialOpinions(st *stage.Stage, log *slog.Logger) bool {
	stripped := 0
	st.Traverse(func(p *stage.Prim) bool {
		for _, rel := range p.Relationships() {
			if strings.HasPrefix(rel, "material:binding") {
				if p.RemoveRelationship(rel) {
					stripped++
				}
			}
		}
		if p.RemoveApiSchema("MaterialBindingAPI") {
			stripped++
		}
		return true
	})
	if stripped > 0 {
		log.Debug("stripped material opinions", "count", stripped)
	}
	return stripped > 0
}

// authorProxyInstance creates an instanceable mirror of a render prim.
func authorProxyInstance(st *stage.Stage, proxyPath, renderPath string) {
	st.RemovePrim(proxyPath)
	proxy := st.OverridePrim(proxyPath)
	proxy.Instanceable = true
	proxy.ClearReferences()
	proxy.AddReference(stage.Arc{PrimPath: renderPath})
}

// authorExtents computes axis-aligned bounds for every mesh under root that
// has authored points.
func authorExtents(st *stage.Stage, root string) bool {
	changed := false
	var walk func(path string)
	walk = func(path string) {
		if p, ok := st.GetPrim(path); ok && p.TypeName() == "Mesh" {
			if authorExtent(p) {
				changed = true
			}
		}
		for _, child := range st.Children(path) {
			walk(child)
		}
	}
	walk(root)
	return changed
}

func authorExtent(p *stage.Prim) bool {
	attr, ok := p.GetAttr("points")
	if !ok {
		return false
	}
	points, ok := attr.Value.([]stage.Vec3)
	if !ok || len(points) == 0 {
		return false
	}
	min, max := points[0], points[0]
	for _, pt := range points[1:] {
		for i := 0; i < 3; i++ {
			if pt[i] < min[i] {
				min[i] = pt[i]
			}
			if pt[i] > max[i] {
				max[i] = pt[i]
			}
		}
	}
	if existing, ok := p.GetAttr("extent"); ok {
		if cur, ok := existing.Value.([]stage.Vec3); ok && len(cur) == 2 && cur[0] == min && cur[1] == max {
			return false
		}
	}
	p.SetAttr("extent", stage.TypeFloat3Array, []stage.Vec3{min, max})
	return true
}
