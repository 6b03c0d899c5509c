package candid

import "testing"

func TestFindSpan_Simple(t *testing.T) {
	text := `vec { "a"; "b" }`
	open := 4
	start, end, ok := FindSpan(text, open)
	if !ok {
		t.Fatal("expected a balanced span")
	}
	if got := text[start:end]; got != ` "a"; "b" ` {
		t.Errorf("span: got %q", got)
	}
}

func TestFindSpan_Nested(t *testing.T) {
	text := `record { a = vec { record { x = 1 } }; b = 2 }`
	open := 7
	start, end, ok := FindSpan(text, open)
	if !ok {
		t.Fatal("expected a balanced span")
	}
	if got := text[start:end]; got != ` a = vec { record { x = 1 } }; b = 2 ` {
		t.Errorf("span: got %q", got)
	}
}

func TestFindSpan_BracesInsideStrings(t *testing.T) {
	text := `record { msg = "open { not counted" }`
	start, end, ok := FindSpan(text, 7)
	if !ok {
		t.Fatal("expected a balanced span despite brace inside string")
	}
	if got := text[start:end]; got != ` msg = "open { not counted" ` {
		t.Errorf("span: got %q", got)
	}
}

func TestFindSpan_Siblings(t *testing.T) {
	// Repeated invocation from the end of the previous match walks sibling
	// constructs at the same nesting level.
	text := `vec { record { a = 1 }; record { b = 2 } }`
	first := 13
	_, end1, ok := FindSpan(text, first)
	if !ok {
		t.Fatal("first sibling span not found")
	}
	second := end1 + 1
	for second < len(text) && text[second] != '{' {
		second++
	}
	start2, end2, ok := FindSpan(text, second)
	if !ok {
		t.Fatal("second sibling span not found")
	}
	if got := text[start2:end2]; got != ` b = 2 ` {
		t.Errorf("second span: got %q", got)
	}
}

func TestFindSpan_Unbalanced(t *testing.T) {
	if _, _, ok := FindSpan(`vec { "a"; record { b = 1 }`, 4); ok {
		t.Error("expected no span for unbalanced input")
	}
}

func TestFindSpan_NotABrace(t *testing.T) {
	if _, _, ok := FindSpan("abc", 0); ok {
		t.Error("expected failure when open does not index a brace")
	}
	if _, _, ok := FindSpan("abc", 99); ok {
		t.Error("expected failure for out-of-range index")
	}
}

func TestSplitTop(t *testing.T) {
	body := ` a = 1; b = vec { 1; 2; 3 }; c = "x; y" `
	parts := splitTop(body, ';')
	want := []string{`a = 1`, `b = vec { 1; 2; 3 }`, `c = "x; y"`}
	if len(parts) != len(want) {
		t.Fatalf("got %d parts %v, want %d", len(parts), parts, len(want))
	}
	for i := range want {
		if parts[i] != want[i] {
			t.Errorf("part %d: got %q, want %q", i, parts[i], want[i])
		}
	}
}

func TestSplitTop_EmptyAndTrailing(t *testing.T) {
	if parts := splitTop("", ';'); len(parts) != 0 {
		t.Errorf("empty body: got %v, want no parts", parts)
	}
	if parts := splitTop(` a = 1; `, ';'); len(parts) != 1 {
		t.Errorf("trailing separator: got %v, want one part", parts)
	}
}

func TestIndexTop(t *testing.T) {
	s := `record { ts = 1 } : nat64`
	if got := indexTop(s, ':'); got != 18 {
		t.Errorf("indexTop: got %d, want 18", got)
	}
	if got := indexTop(`"a:b"`, ':'); got != -1 {
		t.Errorf("colon inside string: got %d, want -1", got)
	}
}
