// Package stage is a layered scene description store. Prims live in layers,
// layers stack into a stage, and the stage answers queries against the
// strongest layer that authored a spec. Layers serialize to a usda-like text
// format and round-trip through Open and Save.
package stage

import (
	"io"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/assetpipe/usdpublish/internal/errs"
)

// Layer is one authorable unit of scene description: a flat map of prim
// specs keyed by absolute path, plus layer-level metadata.
type Layer struct {
	identifier  string
	defaultPrim string
	subLayers   []string

	prims map[string]*Prim
	roots []string // root prim names, authoring order
}

// NewLayer creates an empty layer with the given identifier (its save path).
func NewLayer(identifier string) *Layer {
	return &Layer{
		identifier: identifier,
		prims:      make(map[string]*Prim),
	}
}

// Identifier returns the layer's save path.
func (l *Layer) Identifier() string { return l.identifier }

// SetIdentifier rebinds the layer to a new save path.
func (l *Layer) SetIdentifier(id string) { l.identifier = id }

// DefaultPrim returns the layer's default prim name.
func (l *Layer) DefaultPrim() string { return l.defaultPrim }

// SetDefaultPrim sets the layer's default prim name.
func (l *Layer) SetDefaultPrim(name string) { l.defaultPrim = name }

// SubLayers returns the layer's sublayer identifiers, strongest first.
func (l *Layer) SubLayers() []string {
	return append([]string(nil), l.subLayers...)
}

// AddSubLayer appends a sublayer identifier. Duplicates are ignored.
func (l *Layer) AddSubLayer(identifier string) {
	for _, s := range l.subLayers {
		if s == identifier {
			return
		}
	}
	l.subLayers = append(l.subLayers, identifier)
}

// GetPrim returns the prim spec at path, if authored in this layer.
func (l *Layer) GetPrim(path string) (*Prim, bool) {
	p, ok := l.prims[path]
	return p, ok
}

// RootNames returns this layer's root prim names in authoring order.
func (l *Layer) RootNames() []string {
	return append([]string(nil), l.roots...)
}

// PrimPaths returns every authored path, sorted.
func (l *Layer) PrimPaths() []string {
	paths := make([]string, 0, len(l.prims))
	for p := range l.prims {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (l *Layer) ensurePrim(path, typeName string, spec Specifier) *Prim {
	if p, ok := l.prims[path]; ok {
		if typeName != "" {
			p.typeName = typeName
		}
		if spec != SpecifierOver {
			p.specifier = spec
		}
		return p
	}
	p := newPrim(path, typeName, spec)
	l.prims[path] = p
	parent := parentPath(path)
	if parent == "" {
		l.roots = append(l.roots, p.Name())
	} else {
		// Missing ancestors become typeless specs with the same specifier,
		// except that def chains collapse to over once the parent is only
		// needed as a namespace holder for an over.
		pp := l.ensurePrim(parent, "", spec)
		pp.addChild(p.Name())
	}
	return p
}

func (l *Layer) removePrim(path string) bool {
	if _, ok := l.prims[path]; !ok {
		return false
	}
	prefix := path + "/"
	for p := range l.prims {
		if strings.HasPrefix(p, prefix) {
			delete(l.prims, p)
		}
	}
	delete(l.prims, path)
	parent := parentPath(path)
	if parent == "" {
		name := baseName(path)
		for i, r := range l.roots {
			if r == name {
				l.roots = append(l.roots[:i], l.roots[i+1:]...)
				break
			}
		}
	} else if pp, ok := l.prims[parent]; ok {
		pp.removeChild(baseName(path))
	}
	return true
}

// CopySpec deep-copies the spec subtree at src to dst, replacing anything
// already authored at dst. Reports whether the copy happened.
func (l *Layer) CopySpec(src, dst string) bool {
	root, ok := l.prims[src]
	if !ok {
		return false
	}
	l.removePrim(dst)
	l.copyPrimTree(root, dst)
	return true
}

func (l *Layer) copyPrimTree(src *Prim, dst string) {
	clone := l.ensurePrim(dst, src.typeName, src.specifier)
	clone.Kind = src.Kind
	clone.Instanceable = src.Instanceable
	clone.ApiSchemas = append([]string(nil), src.ApiSchemas...)
	clone.Inherits = append([]string(nil), src.Inherits...)
	clone.References = append([]Arc(nil), src.References...)
	clone.Payloads = append([]Arc(nil), src.Payloads...)
	if src.AssetInfo != nil {
		clone.AssetInfo = make(map[string]any, len(src.AssetInfo))
		for k, v := range src.AssetInfo {
			clone.AssetInfo[k] = v
		}
	}
	for _, name := range src.attrOrder {
		a := src.attrs[name]
		na := clone.ensureAttr(a.Name, a.Type)
		na.Value = a.Value
		if a.Conn != nil {
			conn := *a.Conn
			na.Conn = &conn
		}
	}
	for _, name := range src.relOrder {
		clone.SetRelationship(name, append([]string(nil), src.rels[name]...))
	}
	for _, child := range src.children {
		l.copyPrimTree(l.prims[src.path+"/"+child], dst+"/"+child)
	}
}

// Save serializes the layer to its identifier path on fs.
func (l *Layer) Save(fs billy.Filesystem) error {
	f, err := fs.Create(l.identifier)
	if err != nil {
		return errs.WrapSceneGraph("failed to create layer file",
			errs.Details{"identifier": l.identifier}, err)
	}
	defer f.Close()
	if _, err := io.WriteString(f, l.Export()); err != nil {
		return errs.WrapSceneGraph("failed to write layer",
			errs.Details{"identifier": l.identifier}, err)
	}
	return nil
}

// Open reads and parses a layer from path on fs.
func Open(fs billy.Filesystem, path string) (*Layer, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errs.WrapSceneGraph("failed to open layer",
			errs.Details{"identifier": path}, err)
	}
	defer f.Close()
	src, err := io.ReadAll(f)
	if err != nil {
		return nil, errs.WrapSceneGraph("failed to read layer",
			errs.Details{"identifier": path}, err)
	}
	layer, err := ParseLayer(string(src), path)
	if err != nil {
		return nil, err
	}
	return layer, nil
}

// Stage stacks layers, strongest first, and routes authoring to an edit
// target. Queries compose across the stack: the strongest defining spec wins
// for type and attributes, while namespaces merge.
type Stage struct {
	layers []*Layer
	target *Layer
}

// NewStage builds a stage over the given layers, strongest first. The
// strongest layer starts as the edit target.
func NewStage(layers ...*Layer) *Stage {
	s := &Stage{layers: layers}
	if len(layers) > 0 {
		s.target = layers[0]
	}
	return s
}

// EditTarget returns the layer receiving authoring operations.
func (s *Stage) EditTarget() *Layer { return s.target }

// SetEditTarget routes subsequent authoring to the given layer, appending it
// to the stack if not already present.
func (s *Stage) SetEditTarget(l *Layer) {
	for _, existing := range s.layers {
		if existing == l {
			s.target = l
			return
		}
	}
	s.layers = append([]*Layer{l}, s.layers...)
	s.target = l
}

// Layers returns the layer stack, strongest first.
func (s *Stage) Layers() []*Layer {
	return append([]*Layer(nil), s.layers...)
}

// DefinePrim authors a defining spec at path in the edit target, creating
// ancestor specs as needed.
func (s *Stage) DefinePrim(path, typeName string) *Prim {
	return s.target.ensurePrim(path, typeName, SpecifierDef)
}

// OverridePrim authors a non-defining spec at path in the edit target. If a
// defining spec already exists in the target it is returned unchanged.
func (s *Stage) OverridePrim(path string) *Prim {
	return s.target.ensurePrim(path, "", SpecifierOver)
}

// CreateClassPrim authors a class spec at path in the edit target.
func (s *Stage) CreateClassPrim(path string) *Prim {
	return s.target.ensurePrim(path, "", SpecifierClass)
}

// GetPrim returns the composed prim at path: the strongest defining spec, or
// the strongest spec of any kind when no layer defines it.
func (s *Stage) GetPrim(path string) (*Prim, bool) {
	var fallback *Prim
	for _, l := range s.layers {
		p, ok := l.GetPrim(path)
		if !ok {
			continue
		}
		if p.specifier != SpecifierOver {
			return p, true
		}
		if fallback == nil {
			fallback = p
		}
	}
	if fallback != nil {
		return fallback, true
	}
	return nil, false
}

// HasPrim reports whether any layer authors a spec at path.
func (s *Stage) HasPrim(path string) bool {
	_, ok := s.GetPrim(path)
	return ok
}

// RemovePrim deletes the spec at path, and all descendants, from the edit
// target. Reports whether anything was removed.
func (s *Stage) RemovePrim(path string) bool {
	return s.target.removePrim(path)
}

// RootPaths returns the composed root prim paths, ordered by the strongest
// layer that first authors each root.
func (s *Stage) RootPaths() []string {
	var out []string
	seen := make(map[string]bool)
	for _, l := range s.layers {
		for _, name := range l.roots {
			path := "/" + name
			if !seen[path] {
				seen[path] = true
				out = append(out, path)
			}
		}
	}
	return out
}

// Children returns the composed child paths of path, merged across layers in
// strength order.
func (s *Stage) Children(path string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, l := range s.layers {
		p, ok := l.GetPrim(path)
		if !ok {
			continue
		}
		for _, name := range p.children {
			child := path + "/" + name
			if !seen[child] {
				seen[child] = true
				out = append(out, child)
			}
		}
	}
	return out
}

// Traverse walks the composed namespace depth first, strongest-layer child
// order, calling fn for every prim. Returning false from fn prunes the
// subtree below that prim.
func (s *Stage) Traverse(fn func(*Prim) bool) {
	for _, root := range s.RootPaths() {
		s.traverseFrom(root, fn)
	}
}

func (s *Stage) traverseFrom(path string, fn func(*Prim) bool) {
	p, ok := s.GetPrim(path)
	if !ok {
		return
	}
	if !fn(p) {
		return
	}
	for _, child := range s.Children(path) {
		s.traverseFrom(child, fn)
	}
}
