package maps

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsUnit() bool { return v.kind == KindUnit }

func (v Value) Bool() bool {
	if v.kind == KindBool {
		return v.data.(bool)
	}
	return false
}

func (v Value) Int() int64 {
	switch v.kind {
	case KindInt:
		return v.data.(int64)
	case KindFloat:
		return int64(v.data.(float64))
	default:
		return 0
	}
}

func (v Value) Float() float64 {
	switch v.kind {
	case KindFloat:
		return v.data.(float64)
	case KindInt:
		return float64(v.data.(int64))
	default:
		return 0
	}
}

func (v Value) List() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.data.([]Value)
}

func (v Value) Function() *Function {
	if v.kind != KindFunction {
		return nil
	}
	return v.data.(*Function)
}

func (v Value) Builtin() *Builtin {
	if v.kind != KindBuiltin {
		return nil
	}
	return v.data.(*Builtin)
}

func (v Value) isNumeric() bool {
	return v.kind == KindInt || v.kind == KindFloat
}

// String renders the value the way print shows it: strings are not quoted.
func (v Value) String() string {
	if v.kind == KindString {
		return v.data.(string)
	}
	return v.Inspect()
}

// Inspect renders the value the way the REPL echoes it. A list that
// contains itself renders the inner occurrence as [...].
func (v Value) Inspect() string {
	var b strings.Builder
	v.inspect(&b, nil)
	return b.String()
}

// listKey identifies a list's backing array.
type listKey struct {
	first *Value
	n     int
}

func (v Value) listKey() (listKey, bool) {
	items := v.List()
	if len(items) == 0 {
		return listKey{}, false
	}
	return listKey{first: &items[0], n: len(items)}, true
}

func (v Value) inspect(b *strings.Builder, path []listKey) {
	switch v.kind {
	case KindUnit:
		b.WriteString("()")
	case KindBool:
		b.WriteString(strconv.FormatBool(v.Bool()))
	case KindInt:
		b.WriteString(strconv.FormatInt(v.Int(), 10))
	case KindFloat:
		b.WriteString(inspectFloat(v.Float()))
	case KindString:
		b.WriteString(quoteString(v.data.(string)))
	case KindList:
		key, ok := v.listKey()
		if ok && slices.Contains(path, key) {
			b.WriteString("[...]")
			return
		}
		if ok {
			path = append(path, key)
		}
		b.WriteByte('[')
		for i, item := range v.List() {
			if i > 0 {
				b.WriteString(", ")
			}
			item.inspect(b, path)
		}
		b.WriteByte(']')
	case KindFunction:
		fn := v.Function()
		name := fn.Name
		if name == "" {
			name = "lambda"
		}
		fmt.Fprintf(b, "<function %s/%d>", name, len(fn.Params))
	case KindBuiltin:
		fmt.Fprintf(b, "<builtin %s>", v.Builtin().Name)
	default:
		b.WriteString("<unknown>")
	}
}

func inspectFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.ContainsAny(s, ".eIN") {
		return s
	}
	return s + ".0"
}

// Equal is structural for scalars and lists, and by identity for functions.
// Ints and floats compare by numeric value. Lists sharing a backing array
// are equal, and a comparison that revisits a pair of lists already being
// compared holds.
func (v Value) Equal(other Value) bool {
	return v.equal(other, nil)
}

func (v Value) equal(other Value, visiting map[[2]listKey]bool) bool {
	if v.isNumeric() && other.isNumeric() {
		if v.kind == KindInt && other.kind == KindInt {
			return v.Int() == other.Int()
		}
		return v.Float() == other.Float()
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindUnit:
		return true
	case KindBool:
		return v.Bool() == other.Bool()
	case KindString:
		return v.data.(string) == other.data.(string)
	case KindList:
		a, b := v.List(), other.List()
		if len(a) != len(b) {
			return false
		}
		if len(a) == 0 {
			return true
		}
		pair := [2]listKey{{&a[0], len(a)}, {&b[0], len(b)}}
		if pair[0] == pair[1] || visiting[pair] {
			return true
		}
		if visiting == nil {
			visiting = make(map[[2]listKey]bool)
		}
		visiting[pair] = true
		defer delete(visiting, pair)
		for i := range a {
			if !a[i].equal(b[i], visiting) {
				return false
			}
		}
		return true
	case KindFunction:
		return v.Function() == other.Function()
	case KindBuiltin:
		return v.Builtin() == other.Builtin()
	default:
		return false
	}
}
