package candid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed wraps every decode failure so callers can classify decode
// problems without string matching.
var ErrMalformed = errors.New("malformed candid text")

// Decode parses a single textual Candid value, such as the body of a
// `dfx canister call` reply. An outer `( ... )` wrapper and trailing type
// annotations (`: nat64`, `: float64`) are accepted and ignored.
//
// Decode is lenient: on malformed input it returns the partial structure it
// recovered together with a non-nil error. It never panics.
func Decode(text string) (Value, error) {
	vals, err := DecodeArgs(text)
	if len(vals) == 0 {
		if err == nil {
			err = fmt.Errorf("%w: empty input", ErrMalformed)
		}
		return Null(), err
	}
	return vals[0], err
}

// DecodeArgs parses a parenthesised tuple of values — the form dfx uses for
// both call arguments and replies. A bare single value (no parens) is
// accepted as a one-element tuple.
func DecodeArgs(text string) ([]Value, error) {
	s := strings.TrimSpace(text)
	if len(s) >= 2 && s[0] == '(' && matchingParen(s) == len(s)-1 {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if s == "" {
		return nil, nil
	}

	var (
		vals []Value
		errs []error
	)
	for _, part := range splitTop(s, ',') {
		v, err := decodeValue(part)
		if err != nil {
			errs = append(errs, err)
		}
		vals = append(vals, v)
	}
	return vals, errors.Join(errs...)
}

// decodeValue parses one trimmed value, recursing through opt/vec/record/
// variant constructs via FindSpan.
func decodeValue(s string) (Value, error) {
	s = strings.TrimSpace(stripAnnotation(s))
	switch {
	case s == "":
		return Null(), fmt.Errorf("%w: empty value", ErrMalformed)
	case s == "null":
		return Null(), nil
	case s == "true":
		return Bool(true), nil
	case s == "false":
		return Bool(false), nil
	case s[0] == '"':
		txt, err := unquote(s)
		if err != nil {
			return Text(txt), err
		}
		return Text(txt), nil
	case s[0] == '(' && matchingParen(s) == len(s)-1:
		return decodeValue(s[1 : len(s)-1])
	case hasKeyword(s, "opt"):
		return decodeOpt(s)
	case hasKeyword(s, "vec"):
		return decodeVec(s)
	case hasKeyword(s, "record"):
		return decodeRecord(s)
	case hasKeyword(s, "variant"):
		return decodeVariant(s)
	case hasKeyword(s, "principal"):
		// Principals appear in replies that embed actor identities; their
		// textual id is all the core ever needs.
		rest := strings.TrimSpace(strings.TrimPrefix(s, "principal"))
		txt, err := unquote(rest)
		return Text(txt), err
	default:
		return decodeNumber(s)
	}
}

func decodeOpt(s string) (Value, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(s, "opt"))
	if rest == "null" || rest == "" {
		return Null(), nil
	}
	inner, err := decodeValue(rest)
	if inner.IsNull() && err == nil {
		return Null(), nil
	}
	return Opt(inner), err
}

func decodeVec(s string) (Value, error) {
	body, err := interior(s)
	if err != nil {
		return Vec(), err
	}
	items := []Value{}
	var errs []error
	for _, part := range splitTop(body, ';') {
		v, verr := decodeValue(part)
		if verr != nil {
			errs = append(errs, verr)
		}
		items = append(items, v)
	}
	return Value{Kind: KindVec, Items: items}, errors.Join(errs...)
}

func decodeRecord(s string) (Value, error) {
	body, err := interior(s)
	if err != nil {
		return Record(), err
	}
	fields := []Field{}
	var errs []error
	for i, part := range splitTop(body, ';') {
		name, raw := fieldParts(part, i)
		v, verr := decodeValue(raw)
		if verr != nil {
			errs = append(errs, fmt.Errorf("field %q: %w", name, verr))
		}
		fields = append(fields, Field{Name: name, Value: v})
	}
	return Value{Kind: KindRecord, Fields: fields}, errors.Join(errs...)
}

func decodeVariant(s string) (Value, error) {
	body, err := interior(s)
	if err != nil {
		return Variant("", nil), err
	}
	body = strings.TrimSpace(body)
	if eq := indexTop(body, '='); eq >= 0 {
		tag := strings.TrimSpace(body[:eq])
		payload, perr := decodeValue(body[eq+1:])
		return Variant(tag, &payload), perr
	}
	if body == "" {
		return Variant("", nil), fmt.Errorf("%w: variant with empty body", ErrMalformed)
	}
	return Variant(body, nil), nil
}

func decodeNumber(s string) (Value, error) {
	lit := stripSeparators(s)
	if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return Int(n), nil
	}
	if f, err := strconv.ParseFloat(lit, 64); err == nil {
		return Float(f), nil
	}
	return Null(), fmt.Errorf("%w: unrecognised literal %q", ErrMalformed, s)
}

// hasKeyword reports whether s begins with the keyword followed by a space,
// an opening brace, a quote, or the end of input — so a variant tag such as
// "optimal" is never mistaken for the `opt` construct.
func hasKeyword(s, kw string) bool {
	if !strings.HasPrefix(s, kw) {
		return false
	}
	if len(s) == len(kw) {
		return true
	}
	switch s[len(kw)] {
	case ' ', '\t', '\n', '{', '"', '(':
		return true
	}
	return false
}

// matchingParen returns the index of the `)` closing the `(` at position 0,
// or -1 when the parens never balance. Quote-aware like FindSpan.
func matchingParen(s string) int {
	depth := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote {
			switch c {
			case '\\':
				i++
			case '"':
				inQuote = false
			}
			continue
		}
		switch c {
		case '"':
			inQuote = true
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// interior returns the span between the braces of a `kw { ... }` construct.
func interior(s string) (string, error) {
	open := strings.IndexByte(s, '{')
	if open < 0 {
		return "", fmt.Errorf("%w: missing opening brace in %q", ErrMalformed, clip(s))
	}
	start, end, ok := FindSpan(s, open)
	if !ok {
		return "", fmt.Errorf("%w: unbalanced braces in %q", ErrMalformed, clip(s))
	}
	return s[start:end], nil
}

// fieldParts splits one record member into its tag and raw value text.
// Named members look like `name = value`; positional tuple members carry no
// `=` and are addressed by index.
func fieldParts(part string, idx int) (name, raw string) {
	if eq := indexTop(part, '='); eq >= 0 {
		return strings.TrimSpace(part[:eq]), strings.TrimSpace(part[eq+1:])
	}
	return strconv.Itoa(idx), part
}

// stripAnnotation removes a trailing top-level `: type` annotation, as in
// `1_700 : nat64` or `47.6 : float64`.
func stripAnnotation(s string) string {
	if i := indexTop(s, ':'); i >= 0 {
		return s[:i]
	}
	return s
}

// unquote decodes a double-quoted Candid text literal, including `\u{...}`
// escapes. On malformed input it returns what it consumed plus an error.
func unquote(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' {
		return s, fmt.Errorf("%w: expected quoted text, got %q", ErrMalformed, clip(s))
	}
	var b strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		switch c {
		case '"':
			return b.String(), nil
		case '\\':
			i++
			if i >= len(s) {
				return b.String(), fmt.Errorf("%w: dangling escape", ErrMalformed)
			}
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '"', '\\', '\'':
				b.WriteByte(s[i])
			case 'u':
				r, next, err := unquoteUnicode(s, i)
				if err != nil {
					return b.String(), err
				}
				b.WriteRune(r)
				i = next
				continue
			default:
				b.WriteByte(s[i])
			}
		default:
			b.WriteByte(c)
		}
		i++
	}
	return b.String(), fmt.Errorf("%w: unterminated string", ErrMalformed)
}

// unquoteUnicode consumes a `u{HEX}` escape starting at the `u` and returns
// the rune plus the index of the byte after the closing brace.
func unquoteUnicode(s string, at int) (rune, int, error) {
	if at+1 >= len(s) || s[at+1] != '{' {
		return 0, 0, fmt.Errorf("%w: bad unicode escape", ErrMalformed)
	}
	close := strings.IndexByte(s[at+1:], '}')
	if close < 0 {
		return 0, 0, fmt.Errorf("%w: unterminated unicode escape", ErrMalformed)
	}
	hex := s[at+2 : at+1+close]
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad unicode escape %q", ErrMalformed, hex)
	}
	return rune(n), at + close + 2, nil
}

// clip truncates long input for error messages.
func clip(s string) string {
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}
