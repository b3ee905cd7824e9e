package stage

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/assetpipe/usdpublish/internal/errs"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString // "..."
	tokPath   // <...>
	tokAsset  // @...@
	tokPunct  // single-rune punctuation
)

type token struct {
	kind tokenKind
	text string
	line int
}

type lexer struct {
	src  string
	pos  int
	line int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1}
}

func (lx *lexer) next() (token, error) {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == '\n':
			lx.line++
			lx.pos++
		case c == ' ' || c == '\t' || c == '\r':
			lx.pos++
		case c == '#':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
		default:
			return lx.scan()
		}
	}
	return token{kind: tokEOF, line: lx.line}, nil
}

func (lx *lexer) scan() (token, error) {
	start := lx.pos
	line := lx.line
	c := lx.src[lx.pos]
	switch {
	case c == '"':
		lx.pos++
		for lx.pos < len(lx.src) {
			if lx.src[lx.pos] == '\\' {
				lx.pos += 2
				continue
			}
			if lx.src[lx.pos] == '"' {
				lx.pos++
				text, err := strconv.Unquote(lx.src[start:lx.pos])
				if err != nil {
					return token{}, lx.errorf(line, "malformed string literal")
				}
				return token{kind: tokString, text: text, line: line}, nil
			}
			lx.pos++
		}
		return token{}, lx.errorf(line, "unterminated string literal")
	case c == '<':
		end := strings.IndexByte(lx.src[lx.pos:], '>')
		if end < 0 {
			return token{}, lx.errorf(line, "unterminated path literal")
		}
		text := lx.src[lx.pos+1 : lx.pos+end]
		lx.pos += end + 1
		return token{kind: tokPath, text: text, line: line}, nil
	case c == '@':
		end := strings.IndexByte(lx.src[lx.pos+1:], '@')
		if end < 0 {
			return token{}, lx.errorf(line, "unterminated asset literal")
		}
		text := lx.src[lx.pos+1 : lx.pos+1+end]
		lx.pos += end + 2
		return token{kind: tokAsset, text: text, line: line}, nil
	case c == '-' || c == '+' || (c >= '0' && c <= '9'):
		lx.pos++
		for lx.pos < len(lx.src) && isNumberByte(lx.src[lx.pos]) {
			lx.pos++
		}
		return token{kind: tokNumber, text: lx.src[start:lx.pos], line: line}, nil
	case isIdentStart(rune(c)):
		lx.pos++
		for lx.pos < len(lx.src) && isIdentByte(lx.src[lx.pos]) {
			lx.pos++
		}
		return token{kind: tokIdent, text: lx.src[start:lx.pos], line: line}, nil
	case strings.IndexByte("(){}[]=,.", c) >= 0:
		lx.pos++
		return token{kind: tokPunct, text: string(c), line: line}, nil
	default:
		return token{}, lx.errorf(line, "unexpected character %q", c)
	}
}

func (lx *lexer) errorf(line int, format string, args ...any) error {
	return errs.NewSceneGraph(fmt.Sprintf(format, args...),
		errs.Details{"line": line})
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentByte(c byte) bool {
	return c == '_' || c == ':' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isNumberByte(c byte) bool {
	return (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' || c == '-' || c == '+'
}

// ParseLayer parses layer text into a Layer bound to the given identifier.
// The grammar covers exactly what Export emits.
func ParseLayer(src, identifier string) (*Layer, error) {
	p := &layerParser{lx: newLexer(src), layer: NewLayer(identifier)}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.layer, nil
}

type layerParser struct {
	lx     *lexer
	layer  *Layer
	tok    token
	peeked *token
}

func (p *layerParser) advance() error {
	if p.peeked != nil {
		p.tok = *p.peeked
		p.peeked = nil
		return nil
	}
	t, err := p.lx.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *layerParser) peek() (token, error) {
	if p.peeked == nil {
		t, err := p.lx.next()
		if err != nil {
			return token{}, err
		}
		p.peeked = &t
	}
	return *p.peeked, nil
}

func (p *layerParser) fail(format string, args ...any) error {
	return errs.NewSceneGraph(fmt.Sprintf(format, args...),
		errs.Details{"line": p.tok.line, "identifier": p.layer.identifier})
}

func (p *layerParser) expectPunct(s string) error {
	if err := p.advance(); err != nil {
		return err
	}
	if p.tok.kind != tokPunct || p.tok.text != s {
		return p.fail("expected %q, found %q", s, p.tok.text)
	}
	return nil
}

func (p *layerParser) parse() error {
	next, err := p.peek()
	if err != nil {
		return err
	}
	if next.kind == tokPunct && next.text == "(" {
		if err := p.parseLayerMetadata(); err != nil {
			return err
		}
	}
	for {
		next, err := p.peek()
		if err != nil {
			return err
		}
		if next.kind == tokEOF {
			return nil
		}
		if err := p.parsePrim(""); err != nil {
			return err
		}
	}
}

func (p *layerParser) parseLayerMetadata() error {
	if err := p.expectPunct("("); err != nil {
		return err
	}
	for {
		if err := p.advance(); err != nil {
			return err
		}
		if p.tok.kind == tokPunct && p.tok.text == ")" {
			return nil
		}
		if p.tok.kind != tokIdent {
			return p.fail("expected layer metadata key, found %q", p.tok.text)
		}
		key := p.tok.text
		if err := p.expectPunct("="); err != nil {
			return err
		}
		switch key {
		case "defaultPrim":
			if err := p.advance(); err != nil {
				return err
			}
			if p.tok.kind != tokString {
				return p.fail("defaultPrim requires a string value")
			}
			p.layer.defaultPrim = p.tok.text
		case "subLayers":
			items, err := p.parseAssetList()
			if err != nil {
				return err
			}
			p.layer.subLayers = items
		default:
			return p.fail("unsupported layer metadata key %q", key)
		}
	}
}

func (p *layerParser) parseAssetList() ([]string, error) {
	if err := p.expectPunct("["); err != nil {
		return nil, err
	}
	var items []string
	for {
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch {
		case p.tok.kind == tokPunct && p.tok.text == "]":
			return items, nil
		case p.tok.kind == tokPunct && p.tok.text == ",":
		case p.tok.kind == tokAsset:
			items = append(items, p.tok.text)
		default:
			return nil, p.fail("expected asset in list, found %q", p.tok.text)
		}
	}
}

func specifierFromKeyword(kw string) (Specifier, bool) {
	switch kw {
	case "def":
		return SpecifierDef, true
	case "over":
		return SpecifierOver, true
	case "class":
		return SpecifierClass, true
	}
	return 0, false
}

func (p *layerParser) parsePrim(parent string) error {
	if err := p.advance(); err != nil {
		return err
	}
	spec, ok := specifierFromKeyword(p.tok.text)
	if p.tok.kind != tokIdent || !ok {
		return p.fail("expected prim specifier, found %q", p.tok.text)
	}

	if err := p.advance(); err != nil {
		return err
	}
	typeName := ""
	if p.tok.kind == tokIdent {
		typeName = p.tok.text
		if err := p.advance(); err != nil {
			return err
		}
	}
	if p.tok.kind != tokString {
		return p.fail("expected prim name, found %q", p.tok.text)
	}
	path := parent + "/" + p.tok.text

	prim := p.layer.ensurePrim(path, typeName, spec)

	next, err := p.peek()
	if err != nil {
		return err
	}
	if next.kind == tokPunct && next.text == "(" {
		if err := p.parsePrimMetadata(prim); err != nil {
			return err
		}
	}
	return p.parsePrimBody(prim)
}

func (p *layerParser) parsePrimMetadata(prim *Prim) error {
	if err := p.expectPunct("("); err != nil {
		return err
	}
	for {
		if err := p.advance(); err != nil {
			return err
		}
		if p.tok.kind == tokPunct && p.tok.text == ")" {
			return nil
		}
		if p.tok.kind != tokIdent {
			return p.fail("expected prim metadata key, found %q", p.tok.text)
		}
		key := p.tok.text
		if key == "prepend" {
			if err := p.advance(); err != nil {
				return err
			}
			key = p.tok.text
		}
		switch key {
		case "kind":
			if err := p.expectPunct("="); err != nil {
				return err
			}
			if err := p.advance(); err != nil {
				return err
			}
			prim.Kind = p.tok.text
		case "instanceable":
			if err := p.expectPunct("="); err != nil {
				return err
			}
			if err := p.advance(); err != nil {
				return err
			}
			prim.Instanceable = p.tok.text == "true"
		case "assetInfo":
			if err := p.expectPunct("="); err != nil {
				return err
			}
			if err := p.parseAssetInfo(prim); err != nil {
				return err
			}
		case "apiSchemas":
			if err := p.expectPunct("="); err != nil {
				return err
			}
			items, err := p.parseStringList()
			if err != nil {
				return err
			}
			prim.ApiSchemas = items
		case "inherits":
			if err := p.expectPunct("="); err != nil {
				return err
			}
			if err := p.advance(); err != nil {
				return err
			}
			if p.tok.kind != tokPath {
				return p.fail("inherits requires a path value")
			}
			prim.Inherits = append(prim.Inherits, p.tok.text)
		case "references", "payload":
			if err := p.expectPunct("="); err != nil {
				return err
			}
			arc, err := p.parseArc()
			if err != nil {
				return err
			}
			if key == "references" {
				prim.References = append(prim.References, arc)
			} else {
				prim.Payloads = append(prim.Payloads, arc)
			}
		default:
			return p.fail("unsupported prim metadata key %q", key)
		}
	}
}

func (p *layerParser) parseAssetInfo(prim *Prim) error {
	if err := p.expectPunct("{"); err != nil {
		return err
	}
	for {
		if err := p.advance(); err != nil {
			return err
		}
		if p.tok.kind == tokPunct && p.tok.text == "}" {
			return nil
		}
		if p.tok.kind != tokIdent {
			return p.fail("expected assetInfo entry type, found %q", p.tok.text)
		}
		entryType := p.tok.text
		if err := p.advance(); err != nil {
			return err
		}
		key := p.tok.text
		if err := p.expectPunct("="); err != nil {
			return err
		}
		if err := p.advance(); err != nil {
			return err
		}
		switch entryType {
		case "asset":
			prim.SetAssetInfo(key, Asset(p.tok.text))
		default:
			prim.SetAssetInfo(key, p.tok.text)
		}
	}
}

func (p *layerParser) parseStringList() ([]string, error) {
	if err := p.expectPunct("["); err != nil {
		return nil, err
	}
	var items []string
	for {
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch {
		case p.tok.kind == tokPunct && p.tok.text == "]":
			return items, nil
		case p.tok.kind == tokPunct && p.tok.text == ",":
		case p.tok.kind == tokString:
			items = append(items, p.tok.text)
		default:
			return nil, p.fail("expected string in list, found %q", p.tok.text)
		}
	}
}

func (p *layerParser) parseArc() (Arc, error) {
	var arc Arc
	next, err := p.peek()
	if err != nil {
		return arc, err
	}
	if next.kind == tokAsset {
		if err := p.advance(); err != nil {
			return arc, err
		}
		arc.Identifier = p.tok.text
		next, err = p.peek()
		if err != nil {
			return arc, err
		}
	}
	if next.kind == tokPath {
		if err := p.advance(); err != nil {
			return arc, err
		}
		arc.PrimPath = p.tok.text
	}
	if arc.Identifier == "" && arc.PrimPath == "" {
		return arc, p.fail("composition arc requires an asset or path target")
	}
	return arc, nil
}

func (p *layerParser) parsePrimBody(prim *Prim) error {
	if err := p.expectPunct("{"); err != nil {
		return err
	}
	for {
		next, err := p.peek()
		if err != nil {
			return err
		}
		if next.kind == tokPunct && next.text == "}" {
			return p.advance()
		}
		if next.kind == tokIdent {
			if _, isPrim := specifierFromKeyword(next.text); isPrim {
				if err := p.parsePrim(prim.path); err != nil {
					return err
				}
				continue
			}
			if next.text == "rel" {
				if err := p.parseRel(prim); err != nil {
					return err
				}
				continue
			}
			if err := p.parseAttrLine(prim); err != nil {
				return err
			}
			continue
		}
		return p.fail("unexpected token %q in prim body", next.text)
	}
}

func (p *layerParser) parseRel(prim *Prim) error {
	if err := p.advance(); err != nil { // "rel"
		return err
	}
	if err := p.advance(); err != nil {
		return err
	}
	if p.tok.kind != tokIdent {
		return p.fail("expected relationship name, found %q", p.tok.text)
	}
	name := p.tok.text

	next, err := p.peek()
	if err != nil {
		return err
	}
	if next.kind != tokPunct || next.text != "=" {
		prim.SetRelationship(name, nil)
		return nil
	}
	if err := p.advance(); err != nil { // "="
		return err
	}
	if err := p.advance(); err != nil {
		return err
	}
	switch {
	case p.tok.kind == tokPath:
		prim.SetRelationship(name, []string{p.tok.text})
		return nil
	case p.tok.kind == tokPunct && p.tok.text == "[":
		var targets []string
		for {
			if err := p.advance(); err != nil {
				return err
			}
			switch {
			case p.tok.kind == tokPunct && p.tok.text == "]":
				prim.SetRelationship(name, targets)
				return nil
			case p.tok.kind == tokPunct && p.tok.text == ",":
			case p.tok.kind == tokPath:
				targets = append(targets, p.tok.text)
			default:
				return p.fail("expected path in relationship list, found %q", p.tok.text)
			}
		}
	default:
		return p.fail("expected relationship target, found %q", p.tok.text)
	}
}

func (p *layerParser) parseAttrLine(prim *Prim) error {
	if err := p.advance(); err != nil {
		return err
	}
	typeName := p.tok.text
	next, err := p.peek()
	if err != nil {
		return err
	}
	if next.kind == tokPunct && next.text == "[" {
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.expectPunct("]"); err != nil {
			return err
		}
		typeName += "[]"
	}
	vt := ValueType(typeName)

	if err := p.advance(); err != nil {
		return err
	}
	if p.tok.kind != tokIdent {
		return p.fail("expected attribute name, found %q", p.tok.text)
	}
	name := p.tok.text

	connect := false
	next, err = p.peek()
	if err != nil {
		return err
	}
	if next.kind == tokPunct && next.text == "." {
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.advance(); err != nil {
			return err
		}
		if p.tok.text != "connect" {
			return p.fail("expected .connect suffix, found %q", p.tok.text)
		}
		connect = true
	}

	next, err = p.peek()
	if err != nil {
		return err
	}
	if next.kind != tokPunct || next.text != "=" {
		// Declaration without a value: an unconnected output.
		prim.ensureAttr(name, vt)
		return nil
	}
	if err := p.advance(); err != nil { // "="
		return err
	}

	if connect {
		if err := p.advance(); err != nil {
			return err
		}
		if p.tok.kind != tokPath {
			return p.fail("connection requires a path target")
		}
		target := p.tok.text
		if err := p.expectPunct("."); err != nil {
			return err
		}
		if err := p.advance(); err != nil {
			return err
		}
		output := strings.TrimPrefix(p.tok.text, "outputs:")
		prim.ConnectAttr(name, vt, Connection{Prim: target, Output: output})
		return nil
	}

	value, err := p.parseValue(vt)
	if err != nil {
		return err
	}
	prim.SetAttr(name, vt, value)
	return nil
}

func (p *layerParser) parseValue(vt ValueType) (any, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	switch {
	case p.tok.kind == tokString:
		if vt == TypeToken {
			return Token(p.tok.text), nil
		}
		return p.tok.text, nil
	case p.tok.kind == tokAsset:
		return Asset(p.tok.text), nil
	case p.tok.kind == tokNumber:
		return p.numberValue(vt, p.tok.text)
	case p.tok.kind == tokIdent && (p.tok.text == "true" || p.tok.text == "false"):
		return p.tok.text == "true", nil
	case p.tok.kind == tokPunct && p.tok.text == "(":
		return p.parseTuple(vt)
	case p.tok.kind == tokPunct && p.tok.text == "[":
		return p.parseArray(vt)
	default:
		return nil, p.fail("unexpected value token %q", p.tok.text)
	}
}

func (p *layerParser) numberValue(vt ValueType, text string) (any, error) {
	if vt == TypeInt {
		n, err := strconv.Atoi(text)
		if err != nil {
			return nil, p.fail("malformed int literal %q", text)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, p.fail("malformed float literal %q", text)
	}
	return f, nil
}

func (p *layerParser) parseTuple(vt ValueType) (any, error) {
	var comps []float64
	for {
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch {
		case p.tok.kind == tokPunct && p.tok.text == ")":
			return tupleValue(vt, comps, p)
		case p.tok.kind == tokPunct && p.tok.text == ",":
		case p.tok.kind == tokNumber:
			f, err := strconv.ParseFloat(p.tok.text, 64)
			if err != nil {
				return nil, p.fail("malformed tuple component %q", p.tok.text)
			}
			comps = append(comps, f)
		default:
			return nil, p.fail("unexpected token %q in tuple", p.tok.text)
		}
	}
}

func tupleValue(vt ValueType, comps []float64, p *layerParser) (any, error) {
	switch len(comps) {
	case 2:
		return Vec2{comps[0], comps[1]}, nil
	case 3:
		return Vec3{comps[0], comps[1], comps[2]}, nil
	case 4:
		return Vec4{comps[0], comps[1], comps[2], comps[3]}, nil
	}
	return nil, p.fail("tuple of %d components does not match type %s", len(comps), vt)
}

func (p *layerParser) parseArray(vt ValueType) (any, error) {
	var vecs []Vec3
	var ints []int
	for {
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch {
		case p.tok.kind == tokPunct && p.tok.text == "]":
			if vt == TypeIntArray {
				if ints == nil {
					ints = []int{}
				}
				return ints, nil
			}
			if vecs == nil {
				vecs = []Vec3{}
			}
			return vecs, nil
		case p.tok.kind == tokPunct && p.tok.text == ",":
		case p.tok.kind == tokPunct && p.tok.text == "(":
			v, err := p.parseTuple(vt)
			if err != nil {
				return nil, err
			}
			vec, ok := v.(Vec3)
			if !ok {
				return nil, p.fail("array element does not match type %s", vt)
			}
			vecs = append(vecs, vec)
		case p.tok.kind == tokNumber:
			n, err := strconv.Atoi(p.tok.text)
			if err != nil {
				return nil, p.fail("malformed array element %q", p.tok.text)
			}
			ints = append(ints, n)
		default:
			return nil, p.fail("unexpected token %q in array", p.tok.text)
		}
	}
}
