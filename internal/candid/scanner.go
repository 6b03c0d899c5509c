package candid

import "strings"

// FindSpan locates the interior of a balanced-brace construct. open must
// index the opening `{` of the construct (the brace itself counts as depth
// one). The returned span [start, end) covers everything between the opening
// brace and its matching `}`, across arbitrary nesting. Braces inside quoted
// strings do not affect the depth count.
//
// ok is false when open does not point at a `{` or the text ends before the
// depth returns to zero; unbalanced input is a normal outcome, not a panic.
func FindSpan(text string, open int) (start, end int, ok bool) {
	if open < 0 || open >= len(text) || text[open] != '{' {
		return 0, 0, false
	}
	depth := 0
	inQuote := false
	for i := open; i < len(text); i++ {
		c := text[i]
		if inQuote {
			switch c {
			case '\\':
				i++ // skip the escaped byte
			case '"':
				inQuote = false
			}
			continue
		}
		switch c {
		case '"':
			inQuote = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return open + 1, i, true
			}
		}
	}
	return 0, 0, false
}

// splitTop splits body on top-level separators only: a sep byte that sits
// inside a nested brace span or a quoted string does not split. Empty pieces
// (such as the slot after a trailing separator) are dropped.
func splitTop(body string, sep byte) []string {
	var parts []string
	depth := 0
	inQuote := false
	begin := 0
	for i := 0; i < len(body); i++ {
		c := body[i]
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
		case '{', '(':
			depth++
		case '}', ')':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, body[begin:i])
				begin = i + 1
			}
		}
	}
	parts = append(parts, body[begin:])

	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, strings.TrimSpace(p))
		}
	}
	return out
}

// indexTop returns the index of the first top-level occurrence of sep in s,
// or -1. Same quote and brace awareness as splitTop.
func indexTop(s string, sep byte) int {
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
		case '{', '(':
			depth++
		case '}', ')':
			depth--
		case sep:
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// stripSeparators removes digit-group underscores from a numeric literal.
func stripSeparators(s string) string {
	return strings.ReplaceAll(s, "_", "")
}
