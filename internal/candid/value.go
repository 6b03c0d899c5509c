// Package candid decodes and encodes the textual rendering of Candid values
// emitted by `dfx canister call` — the subset the supply-chain canister
// actually produces: records, vectors, optionals, variants, text, integers,
// floats, and booleans.
//
// The decoder is a recursive-descent parser over the bracketed notation
// (`record { ... }`, `vec { ... }`, `opt v`, `variant { Tag }`). It never
// panics on malformed input: it returns whatever structure it could recover
// alongside an error the caller may log.
package candid

import "strconv"

// Kind discriminates the variants of Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindText
	KindOpt
	KindVec
	KindRecord
	KindVariant
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindOpt:
		return "opt"
	case KindVec:
		return "vec"
	case KindRecord:
		return "record"
	case KindVariant:
		return "variant"
	}
	return "unknown"
}

// Field is one named (or positional) member of a record.
type Field struct {
	Name  string
	Value Value
}

// Value is the typed intermediate form produced by Decode.
// Only the members matching Kind are meaningful.
type Value struct {
	Kind Kind

	BoolVal  bool
	IntVal   int64 // wide enough for nanosecond epoch timestamps past 2^53
	FloatVal float64
	TextVal  string

	Inner  *Value  // KindOpt
	Items  []Value // KindVec
	Fields []Field // KindRecord; positional tuple members are named "0", "1", ...

	Tag     string // KindVariant
	Payload *Value // KindVariant, nil when the tag carries no value
}

// Null is the absent value. `opt null` and `null` both decode to it.
func Null() Value { return Value{Kind: KindNull} }

// Bool constructs a boolean scalar.
func Bool(b bool) Value { return Value{Kind: KindBool, BoolVal: b} }

// Int constructs an integer scalar.
func Int(n int64) Value { return Value{Kind: KindInt, IntVal: n} }

// Float constructs a floating-point scalar.
func Float(f float64) Value { return Value{Kind: KindFloat, FloatVal: f} }

// Text constructs a text scalar.
func Text(s string) Value { return Value{Kind: KindText, TextVal: s} }

// Opt wraps a present optional value.
func Opt(v Value) Value { return Value{Kind: KindOpt, Inner: &v} }

// Vec constructs an ordered sequence.
func Vec(items ...Value) Value { return Value{Kind: KindVec, Items: items} }

// Record constructs a named-field mapping preserving field order.
func Record(fields ...Field) Value { return Value{Kind: KindRecord, Fields: fields} }

// Variant constructs a tagged value. payload may be nil for bare tags.
func Variant(tag string, payload *Value) Value {
	return Value{Kind: KindVariant, Tag: tag, Payload: payload}
}

// IsNull reports whether the value is absent.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Unwrap strips optional wrapping: `opt x` yields x, everything else yields
// the value itself. An absent optional stays KindNull.
func (v Value) Unwrap() Value {
	for v.Kind == KindOpt && v.Inner != nil {
		v = *v.Inner
	}
	return v
}

// Get returns the record field with the given name. The boolean is false when
// the value is not a record or no such field exists; callers treat that as an
// absent field, never as a fatal condition.
func (v Value) Get(name string) (Value, bool) {
	v = v.Unwrap()
	if v.Kind != KindRecord {
		return Value{Kind: KindNull}, false
	}
	for _, f := range v.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{Kind: KindNull}, false
}

// At returns the positional record member at index i ("0", "1", ...).
func (v Value) At(i int) (Value, bool) {
	return v.Get(strconv.Itoa(i))
}

// Text-ish accessors. Each returns the zero value when the kind mismatches;
// the boolean accessor variants report whether the kind matched.

// AsText returns the text content and whether the value is text.
func (v Value) AsText() (string, bool) {
	v = v.Unwrap()
	return v.TextVal, v.Kind == KindText
}

// AsInt returns the integer content, coercing floats with integral values.
func (v Value) AsInt() (int64, bool) {
	v = v.Unwrap()
	switch v.Kind {
	case KindInt:
		return v.IntVal, true
	case KindFloat:
		if v.FloatVal == float64(int64(v.FloatVal)) {
			return int64(v.FloatVal), true
		}
	}
	return 0, false
}

// AsFloat returns the numeric content as float64, accepting both integer and
// floating-point scalars and numeric strings (the ledger occasionally renders
// numbers as quoted text).
func (v Value) AsFloat() (float64, bool) {
	v = v.Unwrap()
	switch v.Kind {
	case KindFloat:
		return v.FloatVal, true
	case KindInt:
		return float64(v.IntVal), true
	case KindText:
		f, err := strconv.ParseFloat(stripSeparators(v.TextVal), 64)
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

// AsBool returns the boolean content and whether the value is a bool.
func (v Value) AsBool() (bool, bool) {
	v = v.Unwrap()
	return v.BoolVal, v.Kind == KindBool
}

// TextItems flattens a vec of text scalars into a string slice, skipping
// non-text members. A null or missing vec yields an empty (non-nil) slice.
func (v Value) TextItems() []string {
	v = v.Unwrap()
	out := []string{}
	for _, it := range v.Items {
		if s, ok := it.AsText(); ok {
			out = append(out, s)
		}
	}
	return out
}
