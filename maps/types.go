package maps

import (
	"slices"
	"strings"
)

// TypeOf describes a runtime value's shape. Scalars render as their kind,
// lists as the union of their element types, e.g. [int | string], and
// functions by their parameters: (x, y) -> ?. Parameter and result types
// are not inferred, so they render as ?.
func TypeOf(v Value) string {
	var b strings.Builder
	v.describeType(&b, nil)
	return b.String()
}

func (v Value) describeType(b *strings.Builder, path []listKey) {
	switch v.kind {
	case KindList:
		key, ok := v.listKey()
		if !ok {
			b.WriteString("[?]")
			return
		}
		if slices.Contains(path, key) {
			b.WriteString("[...]")
			return
		}
		path = append(path, key)
		var elems []string
		for _, item := range v.List() {
			var eb strings.Builder
			item.describeType(&eb, path)
			if t := eb.String(); !slices.Contains(elems, t) {
				elems = append(elems, t)
			}
		}
		b.WriteString("[" + strings.Join(elems, " | ") + "]")
	case KindFunction:
		b.WriteString("(" + strings.Join(v.Function().Params, ", ") + ") -> ?")
	case KindBuiltin:
		arity := v.Builtin().Arity
		if arity < 0 {
			b.WriteString("(...) -> ?")
			return
		}
		b.WriteString("(" + strings.Join(slices.Repeat([]string{"_"}, arity), ", ") + ") -> ?")
	default:
		b.WriteString(v.kind.String())
	}
}
