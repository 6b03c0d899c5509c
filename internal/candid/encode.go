package candid

import (
	"strconv"
	"strings"
)

// Encode renders a Value in the same textual notation the decoder consumes.
// It is used to build `dfx canister call` argument strings and to close the
// encode/decode round trip in tests.
func Encode(v Value) string {
	var b strings.Builder
	encode(&b, v)
	return b.String()
}

// EncodeArgs renders a parenthesised argument tuple: `("a", vec {}, null)`.
func EncodeArgs(vals ...Value) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, v := range vals {
		if i > 0 {
			b.WriteString(", ")
		}
		encode(&b, v)
	}
	b.WriteByte(')')
	return b.String()
}

func encode(b *strings.Builder, v Value) {
	switch v.Kind {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		b.WriteString(strconv.FormatBool(v.BoolVal))
	case KindInt:
		b.WriteString(strconv.FormatInt(v.IntVal, 10))
	case KindFloat:
		b.WriteString(formatFloat(v.FloatVal))
	case KindText:
		writeQuoted(b, v.TextVal)
	case KindOpt:
		if v.Inner == nil {
			b.WriteString("null")
			return
		}
		b.WriteString("opt ")
		encode(b, *v.Inner)
	case KindVec:
		if len(v.Items) == 0 {
			b.WriteString("vec {}")
			return
		}
		b.WriteString("vec { ")
		for i, it := range v.Items {
			if i > 0 {
				b.WriteString("; ")
			}
			encode(b, it)
		}
		b.WriteString(" }")
	case KindRecord:
		if len(v.Fields) == 0 {
			b.WriteString("record {}")
			return
		}
		b.WriteString("record { ")
		for i, f := range v.Fields {
			if i > 0 {
				b.WriteString("; ")
			}
			if !isPositional(f.Name, i) {
				b.WriteString(f.Name)
				b.WriteString(" = ")
			}
			encode(b, f.Value)
		}
		b.WriteString(" }")
	case KindVariant:
		b.WriteString("variant { ")
		b.WriteString(v.Tag)
		if v.Payload != nil {
			b.WriteString(" = ")
			encode(b, *v.Payload)
		}
		b.WriteString(" }")
	}
}

// isPositional reports whether a field name is just the member's own index,
// i.e. a tuple slot that must be rendered without a `name =` prefix.
func isPositional(name string, idx int) bool {
	return name == strconv.Itoa(idx)
}

// formatFloat always keeps a decimal point so the literal re-parses as a
// float rather than an int.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}
