package stage

import (
	"sort"
	"strings"
)

// Specifier declares how a prim spec contributes to composition.
type Specifier int

// Prim specifiers.
const (
	SpecifierDef Specifier = iota
	SpecifierOver
	SpecifierClass
)

// ValueType names the wire type of an attribute.
type ValueType string

// Attribute value types.
const (
	TypeFloat       ValueType = "float"
	TypeInt         ValueType = "int"
	TypeBool        ValueType = "bool"
	TypeString      ValueType = "string"
	TypeToken       ValueType = "token"
	TypeAsset       ValueType = "asset"
	TypeColor3f     ValueType = "color3f"
	TypeFloat2      ValueType = "float2"
	TypeFloat3      ValueType = "float3"
	TypeFloat4      ValueType = "float4"
	TypeNormal3f    ValueType = "normal3f"
	TypePoint3Array ValueType = "point3f[]"
	TypeFloat3Array ValueType = "float3[]"
	TypeIntArray    ValueType = "int[]"
)

// Vec2 is a two-component literal.
type Vec2 [2]float64

// Vec3 is a three-component literal (colors, normals, points).
type Vec3 [3]float64

// Vec4 is a four-component literal.
type Vec4 [4]float64

// Asset is a file path literal, serialized with @...@ delimiters.
type Asset string

// Token is a symbolic literal, serialized like a string but typed token.
type Token string

// Connection references another prim's named output.
type Connection struct {
	Prim   string // absolute prim path
	Output string // output name without the "outputs:" prefix
}

// Attr is one attribute spec: a typed literal, a connection, or both.
type Attr struct {
	Name  string
	Type  ValueType
	Value any
	Conn  *Connection
}

// Arc is a composition arc target: an external layer identifier, an internal
// prim path, or an external identifier with an explicit target path.
type Arc struct {
	Identifier string // layer path, empty for internal arcs
	PrimPath   string // target prim path, empty for whole-layer arcs
}

// Prim is one typed node spec inside a layer.
type Prim struct {
	path      string
	typeName  string
	specifier Specifier

	Kind         string
	Instanceable bool
	ApiSchemas   []string
	AssetInfo    map[string]any // string or Asset values
	Inherits     []string
	References   []Arc
	Payloads     []Arc

	attrs     map[string]*Attr
	attrOrder []string
	rels      map[string][]string
	relOrder  []string

	children []string // child names, authoring order
}

func newPrim(path, typeName string, spec Specifier) *Prim {
	return &Prim{
		path:      path,
		typeName:  typeName,
		specifier: spec,
		attrs:     make(map[string]*Attr),
		rels:      make(map[string][]string),
	}
}

// Path returns the absolute prim path.
func (p *Prim) Path() string { return p.path }

// Name returns the last path component.
func (p *Prim) Name() string {
	if i := strings.LastIndexByte(p.path, '/'); i >= 0 {
		return p.path[i+1:]
	}
	return p.path
}

// TypeName returns the prim's schema type ("Xform", "Mesh", "Material", ...).
func (p *Prim) TypeName() string { return p.typeName }

// Specifier returns the prim's specifier.
func (p *Prim) Specifier() Specifier { return p.specifier }

// SetTypeName sets the schema type on an existing spec.
func (p *Prim) SetTypeName(t string) { p.typeName = t }

// SetAttr authors a typed literal.
func (p *Prim) SetAttr(name string, t ValueType, value any) *Attr {
	a := p.ensureAttr(name, t)
	a.Value = value
	return a
}

// ConnectAttr authors a connection on an attribute, keeping any literal.
func (p *Prim) ConnectAttr(name string, t ValueType, conn Connection) *Attr {
	a := p.ensureAttr(name, t)
	a.Conn = &conn
	return a
}

// GetAttr returns an attribute spec by name.
func (p *Prim) GetAttr(name string) (*Attr, bool) {
	a, ok := p.attrs[name]
	return a, ok
}

// Attrs returns attribute specs in authoring order.
func (p *Prim) Attrs() []*Attr {
	out := make([]*Attr, 0, len(p.attrOrder))
	for _, n := range p.attrOrder {
		out = append(out, p.attrs[n])
	}
	return out
}

func (p *Prim) ensureAttr(name string, t ValueType) *Attr {
	if a, ok := p.attrs[name]; ok {
		a.Type = t
		return a
	}
	a := &Attr{Name: name, Type: t}
	p.attrs[name] = a
	p.attrOrder = append(p.attrOrder, name)
	return a
}

// SetInput authors a literal on the "inputs:" namespace.
func (p *Prim) SetInput(name string, t ValueType, value any) *Attr {
	return p.SetAttr("inputs:"+name, t, value)
}

// DeclareInput authors an "inputs:" attribute with no value yet.
func (p *Prim) DeclareInput(name string, t ValueType) *Attr {
	return p.ensureAttr("inputs:"+name, t)
}

// ConnectInput connects an "inputs:" attribute to another prim's output.
func (p *Prim) ConnectInput(name string, t ValueType, conn Connection) *Attr {
	return p.ConnectAttr("inputs:"+name, t, conn)
}

// GetInput returns the "inputs:" attribute spec by bare name.
func (p *Prim) GetInput(name string) (*Attr, bool) {
	return p.GetAttr("inputs:" + name)
}

// CreateOutput declares a named output with no source.
func (p *Prim) CreateOutput(name string, t ValueType) *Attr {
	return p.ensureAttr("outputs:"+name, t)
}

// ConnectOutput connects a named output to a source connection.
func (p *Prim) ConnectOutput(name string, t ValueType, conn Connection) *Attr {
	return p.ConnectAttr("outputs:"+name, t, conn)
}

// Output returns a connection referencing this prim's named output.
func (p *Prim) Output(name string) Connection {
	return Connection{Prim: p.path, Output: name}
}

// SetRelationship replaces the targets of a named relationship.
func (p *Prim) SetRelationship(name string, targets []string) {
	if _, ok := p.rels[name]; !ok {
		p.relOrder = append(p.relOrder, name)
	}
	p.rels[name] = targets
}

// Relationship returns the targets of a named relationship.
func (p *Prim) Relationship(name string) ([]string, bool) {
	t, ok := p.rels[name]
	return t, ok
}

// Relationships returns relationship names in authoring order.
func (p *Prim) Relationships() []string {
	return append([]string(nil), p.relOrder...)
}

// RemoveRelationship deletes a named relationship. Reports whether it existed.
func (p *Prim) RemoveRelationship(name string) bool {
	if _, ok := p.rels[name]; !ok {
		return false
	}
	delete(p.rels, name)
	for i, n := range p.relOrder {
		if n == name {
			p.relOrder = append(p.relOrder[:i], p.relOrder[i+1:]...)
			break
		}
	}
	return true
}

// RemoveApiSchema drops a schema name from the applied list. Reports whether
// it was present.
func (p *Prim) RemoveApiSchema(name string) bool {
	removed := false
	out := p.ApiSchemas[:0]
	for _, s := range p.ApiSchemas {
		if s == name {
			removed = true
			continue
		}
		out = append(out, s)
	}
	p.ApiSchemas = out
	return removed
}

// SetAssetInfo authors one assetInfo entry.
func (p *Prim) SetAssetInfo(key string, value any) {
	if p.AssetInfo == nil {
		p.AssetInfo = make(map[string]any)
	}
	p.AssetInfo[key] = value
}

// AddInherit appends an inherit arc.
func (p *Prim) AddInherit(classPath string) {
	p.Inherits = append(p.Inherits, classPath)
}

// AddReference appends a reference arc.
func (p *Prim) AddReference(arc Arc) {
	p.References = append(p.References, arc)
}

// ClearReferences drops all reference arcs.
func (p *Prim) ClearReferences() {
	p.References = nil
}

// AddPayload appends a payload arc.
func (p *Prim) AddPayload(arc Arc) {
	p.Payloads = append(p.Payloads, arc)
}

// ChildNames returns the names of this spec's children in authoring order.
func (p *Prim) ChildNames() []string {
	return append([]string(nil), p.children...)
}

func (p *Prim) addChild(name string) {
	for _, c := range p.children {
		if c == name {
			return
		}
	}
	p.children = append(p.children, name)
}

func (p *Prim) removeChild(name string) {
	for i, c := range p.children {
		if c == name {
			p.children = append(p.children[:i], p.children[i+1:]...)
			return
		}
	}
}

func (p *Prim) assetInfoKeys() []string {
	keys := make([]string, 0, len(p.AssetInfo))
	for k := range p.AssetInfo {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parentPath returns the parent of an absolute prim path ("" for roots).
func parentPath(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i <= 0 {
		return ""
	}
	return path[:i]
}

// baseName returns the last component of an absolute prim path.
func baseName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
