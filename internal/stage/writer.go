package stage

import (
	"fmt"
	"strconv"
	"strings"
)

const headerLine = "#usda 1.0"

// Export serializes the layer to its text form.
func (l *Layer) Export() string {
	w := &layerWriter{}
	w.line(headerLine)
	l.writeMetadata(w)
	for _, name := range l.roots {
		w.blank()
		l.writePrim(w, l.prims["/"+name])
	}
	w.blank()
	return w.String()
}

type layerWriter struct {
	sb     strings.Builder
	indent int
}

func (w *layerWriter) String() string { return w.sb.String() }

func (w *layerWriter) line(s string) {
	for i := 0; i < w.indent; i++ {
		w.sb.WriteString("    ")
	}
	w.sb.WriteString(s)
	w.sb.WriteByte('\n')
}

func (w *layerWriter) linef(format string, args ...any) {
	w.line(fmt.Sprintf(format, args...))
}

func (w *layerWriter) blank() { w.sb.WriteByte('\n') }

func (l *Layer) writeMetadata(w *layerWriter) {
	if l.defaultPrim == "" && len(l.subLayers) == 0 {
		return
	}
	w.line("(")
	w.indent++
	if l.defaultPrim != "" {
		w.linef("defaultPrim = %s", strconv.Quote(l.defaultPrim))
	}
	if len(l.subLayers) > 0 {
		w.line("subLayers = [")
		w.indent++
		for i, s := range l.subLayers {
			sep := ","
			if i == len(l.subLayers)-1 {
				sep = ""
			}
			w.linef("@%s@%s", s, sep)
		}
		w.indent--
		w.line("]")
	}
	w.indent--
	w.line(")")
}

func specifierKeyword(s Specifier) string {
	switch s {
	case SpecifierOver:
		return "over"
	case SpecifierClass:
		return "class"
	default:
		return "def"
	}
}

func (l *Layer) writePrim(w *layerWriter, p *Prim) {
	head := specifierKeyword(p.specifier)
	if p.typeName != "" {
		head += " " + p.typeName
	}
	head += " " + strconv.Quote(p.Name())

	meta := p.metadataLines()
	if len(meta) == 0 {
		w.line(head)
	} else {
		w.line(head + " (")
		w.indent++
		for _, m := range meta {
			w.line(m)
		}
		w.indent--
		w.line(")")
	}

	w.line("{")
	w.indent++
	for _, name := range p.attrOrder {
		writeAttr(w, p.attrs[name])
	}
	for _, name := range p.relOrder {
		writeRel(w, name, p.rels[name])
	}
	for _, child := range p.children {
		w.line("")
		l.writePrim(w, l.prims[p.path+"/"+child])
	}
	w.indent--
	w.line("}")
}

func (p *Prim) metadataLines() []string {
	var lines []string
	if p.Kind != "" {
		lines = append(lines, fmt.Sprintf("kind = %s", strconv.Quote(p.Kind)))
	}
	if p.Instanceable {
		lines = append(lines, "instanceable = true")
	}
	if len(p.AssetInfo) > 0 {
		lines = append(lines, "assetInfo = {")
		for _, k := range p.assetInfoKeys() {
			switch v := p.AssetInfo[k].(type) {
			case Asset:
				lines = append(lines, fmt.Sprintf("    asset %s = @%s@", k, string(v)))
			default:
				lines = append(lines, fmt.Sprintf("    string %s = %s", k, strconv.Quote(fmt.Sprint(v))))
			}
		}
		lines = append(lines, "}")
	}
	if len(p.ApiSchemas) > 0 {
		quoted := make([]string, len(p.ApiSchemas))
		for i, s := range p.ApiSchemas {
			quoted[i] = strconv.Quote(s)
		}
		lines = append(lines, fmt.Sprintf("prepend apiSchemas = [%s]", strings.Join(quoted, ", ")))
	}
	for _, in := range p.Inherits {
		lines = append(lines, fmt.Sprintf("prepend inherits = <%s>", in))
	}
	for _, arc := range p.References {
		lines = append(lines, "prepend references = "+formatArc(arc))
	}
	for _, arc := range p.Payloads {
		lines = append(lines, "prepend payload = "+formatArc(arc))
	}
	return lines
}

func formatArc(arc Arc) string {
	var sb strings.Builder
	if arc.Identifier != "" {
		sb.WriteByte('@')
		sb.WriteString(arc.Identifier)
		sb.WriteByte('@')
	}
	if arc.PrimPath != "" {
		sb.WriteByte('<')
		sb.WriteString(arc.PrimPath)
		sb.WriteByte('>')
	}
	return sb.String()
}

func writeAttr(w *layerWriter, a *Attr) {
	if a.Value != nil {
		w.linef("%s %s = %s", a.Type, a.Name, formatValue(a.Value))
	} else if a.Conn == nil {
		w.linef("%s %s", a.Type, a.Name)
	}
	if a.Conn != nil {
		w.linef("%s %s.connect = <%s>.outputs:%s", a.Type, a.Name, a.Conn.Prim, a.Conn.Output)
	}
}

func writeRel(w *layerWriter, name string, targets []string) {
	switch len(targets) {
	case 0:
		w.linef("rel %s", name)
	case 1:
		w.linef("rel %s = <%s>", name, targets[0])
	default:
		w.linef("rel %s = [", name)
		w.indent++
		for i, t := range targets {
			sep := ","
			if i == len(targets)-1 {
				sep = ""
			}
			w.linef("<%s>%s", t, sep)
		}
		w.indent--
		w.line("]")
	}
}

func formatValue(v any) string {
	switch t := v.(type) {
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case string:
		return strconv.Quote(t)
	case Token:
		return strconv.Quote(string(t))
	case Asset:
		return "@" + string(t) + "@"
	case Vec2:
		return fmt.Sprintf("(%s, %s)", formatFloat(t[0]), formatFloat(t[1]))
	case Vec3:
		return fmt.Sprintf("(%s, %s, %s)", formatFloat(t[0]), formatFloat(t[1]), formatFloat(t[2]))
	case Vec4:
		return fmt.Sprintf("(%s, %s, %s, %s)", formatFloat(t[0]), formatFloat(t[1]), formatFloat(t[2]), formatFloat(t[3]))
	case []Vec3:
		parts := make([]string, len(t))
		for i, p := range t {
			parts[i] = formatValue(p)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []int:
		parts := make([]string, len(t))
		for i, n := range t {
			parts[i] = strconv.Itoa(n)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(t)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
