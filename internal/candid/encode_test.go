package candid

import "testing"

func TestEncode_Scalars(t *testing.T) {
	tests := []struct {
		in   Value
		want string
	}{
		{Text(`say "hi"`), `"say \"hi\""`},
		{Int(42), "42"},
		{Float(47.6), "47.6"},
		{Float(3), "3.0"}, // must re-parse as a float, not an int
		{Bool(true), "true"},
		{Null(), "null"},
		{Opt(Float(12.5)), "opt 12.5"},
		{Vec(), "vec {}"},
		{Variant("Shipping", nil), "variant { Shipping }"},
	}
	for _, tt := range tests {
		if got := Encode(tt.in); got != tt.want {
			t.Errorf("Encode(%+v): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEncodeArgs(t *testing.T) {
	got := EncodeArgs(Text("Coffee"), Vec(Text("beans"), Text("water")), Null())
	want := `("Coffee", vec { "beans"; "water" }, null)`
	if got != want {
		t.Errorf("EncodeArgs: got %q, want %q", got, want)
	}
}

func TestRoundTrip_ProductRecord(t *testing.T) {
	rec := Record(
		Field{"id", Text("prod_1700_0042")},
		Field{"name", Text("Single Origin Coffee")},
		Field{"description", Text("Washed arabica, \"El Paraiso\" lot")},
		Field{"manufacturer", Text("Finca El Paraiso")},
		Field{"batch_number", Text("B-2024-017")},
		Field{"production_date", Int(1700000000)},
		Field{"ingredients", Vec(Text("arabica beans"))},
		Field{"certifications", Vec()},
	)

	decoded, err := Decode(Encode(rec))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	for _, name := range []string{"id", "name", "description", "manufacturer", "batch_number"} {
		wantF, _ := rec.Get(name)
		gotF, ok := decoded.Get(name)
		if !ok {
			t.Fatalf("field %q lost in round trip", name)
		}
		want, _ := wantF.AsText()
		got, _ := gotF.AsText()
		if got != want {
			t.Errorf("field %q: got %q, want %q", name, got, want)
		}
	}
}

func TestRoundTrip_EventWithOptionals(t *testing.T) {
	coords := Record(
		Field{"0", Float(47.6)},
		Field{"1", Float(-122.3)},
	)
	rec := Record(
		Field{"event_type", Variant("QualityCheck", nil)},
		Field{"location", Text("Hamburg; Port")},
		Field{"coordinates", Opt(coords)},
		Field{"temperature", Opt(Float(4.5))},
		Field{"humidity", Null()},
	)

	decoded, err := Decode(Encode(rec))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	et, ok := decoded.Get("event_type")
	if !ok || et.Tag != "QualityCheck" {
		t.Errorf("event_type: got %+v", et)
	}
	if loc, _ := decoded.Get("location"); loc.TextVal != "Hamburg; Port" {
		t.Errorf("location with separator inside string: got %q", loc.TextVal)
	}
	c, _ := decoded.Get("coordinates")
	lat, _ := mustAt(t, c, 0).AsFloat()
	if lat != 47.6 {
		t.Errorf("lat: got %v", lat)
	}
	temp, _ := decoded.Get("temperature")
	if f, ok := temp.AsFloat(); !ok || f != 4.5 {
		t.Errorf("temperature: got %+v", temp)
	}
	hum, ok := decoded.Get("humidity")
	if !ok || !hum.IsNull() {
		t.Errorf("humidity: got %+v, want explicit null", hum)
	}
}
