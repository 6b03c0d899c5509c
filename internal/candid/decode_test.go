package candid

import (
	"strings"
	"testing"
)

func TestDecode_Scalars(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Value
	}{
		{"text", `"hello"`, Text("hello")},
		{"escaped text", `"say \"hi\"\n"`, Text("say \"hi\"\n")},
		{"int", `42`, Int(42)},
		{"negative int", `-17`, Int(-17)},
		{"grouped int", `1_700_000_000`, Int(1700000000)},
		{"annotated int", `99 : nat64`, Int(99)},
		{"float", `47.6`, Float(47.6)},
		{"negative float", `-122.3 : float64`, Float(-122.3)},
		{"bool true", `true`, Bool(true)},
		{"bool false", `false`, Bool(false)},
		{"null", `null`, Null()},
		{"principal", `principal "aaaaa-aa"`, Text("aaaaa-aa")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.in)
			if err != nil {
				t.Fatalf("Decode(%q) error: %v", tt.in, err)
			}
			if got.Kind != tt.want.Kind {
				t.Fatalf("kind: got %v, want %v", got.Kind, tt.want.Kind)
			}
			if got.BoolVal != tt.want.BoolVal || got.IntVal != tt.want.IntVal ||
				got.FloatVal != tt.want.FloatVal || got.TextVal != tt.want.TextVal {
				t.Errorf("Decode(%q): got %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecode_NanosecondTimestampKeepsPrecision(t *testing.T) {
	// Past 2^53 a float64 would silently round; the decoder must not.
	got, err := Decode(`1_700_000_000_000_000_000 : nat64`)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	n, ok := got.AsInt()
	if !ok {
		t.Fatalf("expected int, got kind %v", got.Kind)
	}
	if n != 1700000000000000000 {
		t.Errorf("got %d, want 1700000000000000000", n)
	}
	if ms := n / 1_000_000; ms != 1700000000000 {
		t.Errorf("milliseconds: got %d, want 1700000000000", ms)
	}
}

func TestDecode_EmptyVec(t *testing.T) {
	got, err := Decode(`vec {}`)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if got.Kind != KindVec {
		t.Fatalf("kind: got %v, want vec", got.Kind)
	}
	if len(got.Items) != 0 {
		t.Errorf("items: got %d, want 0", len(got.Items))
	}
}

func TestDecode_VecOrder(t *testing.T) {
	got, err := Decode(`vec { "a"; "b"; "c" }`)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if len(got.Items) != 3 {
		t.Fatalf("items: got %d, want 3", len(got.Items))
	}
	for i, want := range []string{"a", "b", "c"} {
		s, ok := got.Items[i].AsText()
		if !ok || s != want {
			t.Errorf("item %d: got %q, want %q", i, s, want)
		}
	}
}

func TestDecode_Record(t *testing.T) {
	got, err := Decode(`record { id = "p1"; name = "Coffee"; production_date = 1_700_000_000 }`)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if id, _ := fieldText(got, "id"); id != "p1" {
		t.Errorf("id: got %q", id)
	}
	if name, _ := fieldText(got, "name"); name != "Coffee" {
		t.Errorf("name: got %q", name)
	}
	date, ok := got.Get("production_date")
	if !ok {
		t.Fatal("production_date missing")
	}
	if n, _ := date.AsInt(); n != 1700000000 {
		t.Errorf("production_date: got %d", n)
	}
}

func TestDecode_NestedRecordNotTruncated(t *testing.T) {
	in := `record {
		location = "Hamburg";
		coordinates = opt record { 47.6 : float64; -122.3 : float64 };
		details = "arrived"
	}`
	got, err := Decode(in)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	coords, ok := got.Get("coordinates")
	if !ok {
		t.Fatal("coordinates missing")
	}
	lat, _ := mustAt(t, coords, 0).AsFloat()
	lng, _ := mustAt(t, coords, 1).AsFloat()
	if lat != 47.6 || lng != -122.3 {
		t.Errorf("coordinates: got (%v, %v), want (47.6, -122.3)", lat, lng)
	}
	if details, _ := fieldText(got, "details"); details != "arrived" {
		t.Errorf("details after nested record: got %q", details)
	}
}

func TestDecode_Variants(t *testing.T) {
	bare, err := Decode(`variant { QualityCheck }`)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if bare.Tag != "QualityCheck" || bare.Payload != nil {
		t.Errorf("bare variant: got tag %q payload %v", bare.Tag, bare.Payload)
	}

	tagged, err := Decode(`variant { Ok = true }`)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if tagged.Tag != "Ok" {
		t.Errorf("tag: got %q", tagged.Tag)
	}
	if b, ok := tagged.Payload.AsBool(); !ok || !b {
		t.Errorf("payload: got %+v", tagged.Payload)
	}
}

func TestDecode_Optionals(t *testing.T) {
	present, err := Decode(`opt 12.5`)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if f, ok := present.AsFloat(); !ok || f != 12.5 {
		t.Errorf("opt 12.5: got %+v", present)
	}

	for _, in := range []string{`(null)`, `(opt null)`, `null`, `opt null`} {
		got, err := Decode(in)
		if err != nil {
			t.Fatalf("Decode(%q) error: %v", in, err)
		}
		if !got.IsNull() {
			t.Errorf("Decode(%q): got kind %v, want null", in, got.Kind)
		}
	}
}

func TestDecode_OuterParensAndTuples(t *testing.T) {
	got, err := Decode(`(vec { record { id = "p1" } })`)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if got.Kind != KindVec || len(got.Items) != 1 {
		t.Fatalf("got kind %v with %d items", got.Kind, len(got.Items))
	}

	args, err := DecodeArgs(`("name", "desc", vec { "a" }, null)`)
	if err != nil {
		t.Fatalf("DecodeArgs error: %v", err)
	}
	if len(args) != 4 {
		t.Fatalf("args: got %d, want 4", len(args))
	}
	if s, _ := args[1].AsText(); s != "desc" {
		t.Errorf("args[1]: got %q", s)
	}
	if !args[3].IsNull() {
		t.Errorf("args[3]: got kind %v, want null", args[3].Kind)
	}
}

func TestDecode_MalformedReturnsPartialNotPanic(t *testing.T) {
	tests := []string{
		``,
		`vec { "a"; `,
		`record { a = }`,
		`record { a = 1; b = vec { } ; c = bogus }`,
		`variant { }`,
		`"unterminated`,
	}
	for _, in := range tests {
		got, err := Decode(in)
		if err == nil {
			t.Errorf("Decode(%q): expected an error", in)
		}
		_ = got // partial value, any kind; must simply not panic
	}
}

func TestDecode_MalformedFieldLeavesSiblingsIntact(t *testing.T) {
	got, err := Decode(`record { a = bogus!; b = "kept" }`)
	if err == nil {
		t.Fatal("expected a decode error for field a")
	}
	if !strings.Contains(err.Error(), `"a"`) {
		t.Errorf("error should name the bad field: %v", err)
	}
	if b, _ := fieldText(got, "b"); b != "kept" {
		t.Errorf("sibling field lost: got %q", b)
	}
}

func fieldText(v Value, name string) (string, bool) {
	f, ok := v.Get(name)
	if !ok {
		return "", false
	}
	return f.AsText()
}

func mustAt(t *testing.T, v Value, i int) Value {
	t.Helper()
	f, ok := v.At(i)
	if !ok {
		t.Fatalf("positional member %d missing", i)
	}
	return f
}
