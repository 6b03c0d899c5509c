package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/provchain/traceview/internal/candid"
)

func newTestLedger(t *testing.T) *MemoryLedger {
	t.Helper()
	m := NewMemoryLedger()
	base := time.Unix(1700000000, 0)
	tick := 0
	m.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})
	return m
}

func createProduct(t *testing.T, m *MemoryLedger, name, batch string) string {
	t.Helper()
	args := candid.EncodeArgs(
		candid.Text(name),
		candid.Text("desc"),
		candid.Text("Acme"),
		candid.Text(batch),
		candid.Vec(candid.Text("water")),
		candid.Vec(),
	)
	out, err := m.Call(context.Background(), MethodCreateProduct, args)
	if err != nil {
		t.Fatalf("create_product error: %v", err)
	}
	v, err := candid.Decode(out)
	if err != nil {
		t.Fatalf("decode create reply: %v", err)
	}
	id, ok := v.AsText()
	if !ok || id == "" {
		t.Fatalf("create reply: got %+v", v)
	}
	return id
}

func TestMemoryLedger_CreateAndList(t *testing.T) {
	m := newTestLedger(t)
	id1 := createProduct(t, m, "Coffee", "B-1")
	id2 := createProduct(t, m, "Tea", "B-2")
	if id1 == id2 {
		t.Fatalf("ids must be unique, both %q", id1)
	}

	out, err := m.Call(context.Background(), MethodGetAllProducts, "")
	if err != nil {
		t.Fatalf("get_all_products error: %v", err)
	}
	v, err := candid.Decode(out)
	if err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if v.Kind != candid.KindVec || len(v.Items) != 2 {
		t.Fatalf("list: got kind %v with %d items", v.Kind, len(v.Items))
	}
	// Creation order is preserved.
	first, _ := v.Items[0].Get("name")
	if s, _ := first.AsText(); s != "Coffee" {
		t.Errorf("first product: got %q, want Coffee", s)
	}
}

func TestMemoryLedger_TraceLifecycle(t *testing.T) {
	m := newTestLedger(t)
	id := createProduct(t, m, "Coffee", "B-1")

	// Fresh product: trace exists but is empty.
	out, err := m.Call(context.Background(), MethodGetTrace, candid.EncodeArgs(candid.Text(id)))
	if err != nil {
		t.Fatalf("get_supply_chain_trace error: %v", err)
	}
	v, _ := candid.Decode(out)
	events, ok := v.Get("events")
	if !ok {
		t.Fatalf("trace record missing events: %s", out)
	}
	if len(events.Unwrap().Items) != 0 {
		t.Errorf("fresh trace should be empty, got %d events", len(events.Unwrap().Items))
	}

	// Unknown product: (null), not an error.
	out, err = m.Call(context.Background(), MethodGetTrace, candid.EncodeArgs(candid.Text("missing")))
	if err != nil {
		t.Fatalf("trace for unknown product must not error: %v", err)
	}
	if v, _ := candid.Decode(out); !v.IsNull() {
		t.Errorf("unknown product trace: got %s, want (null)", out)
	}
}

func TestMemoryLedger_AddEvent(t *testing.T) {
	m := newTestLedger(t)
	id := createProduct(t, m, "Coffee", "B-1")

	coords := candid.Opt(candid.Record(
		candid.Field{Name: "0", Value: candid.Float(47.6)},
		candid.Field{Name: "1", Value: candid.Float(-122.3)},
	))
	args := candid.EncodeArgs(
		candid.Text(id),
		candid.Variant("Shipping", nil),
		candid.Text("Hamburg"),
		candid.Text("carrier-9"),
		candid.Text("container loaded"),
		coords,
		candid.Opt(candid.Float(4.5)),
		candid.Null(),
	)
	out, err := m.Call(context.Background(), MethodAddEvent, args)
	if err != nil {
		t.Fatalf("add_supply_chain_event error: %v", err)
	}
	v, _ := candid.Decode(out)
	if evtID, _ := v.AsText(); evtID == "" || IsRejectText(evtID) {
		t.Fatalf("add event reply: %s", out)
	}

	out, _ = m.Call(context.Background(), MethodGetTrace, candid.EncodeArgs(candid.Text(id)))
	trace, err := candid.Decode(out)
	if err != nil {
		t.Fatalf("decode trace: %v", err)
	}
	events, _ := trace.Get("events")
	items := events.Unwrap().Items
	if len(items) != 1 {
		t.Fatalf("trace events: got %d, want 1", len(items))
	}
	evt := items[0]
	et, _ := evt.Get("event_type")
	if et.Tag != "Shipping" {
		t.Errorf("event_type: got %q", et.Tag)
	}
	ts, _ := evt.Get("timestamp")
	if n, _ := ts.AsInt(); n < 1_000_000_000_000_000_000 {
		t.Errorf("timestamp should be nanoseconds, got %d", n)
	}
	temp, _ := evt.Get("temperature")
	if f, ok := temp.AsFloat(); !ok || f != 4.5 {
		t.Errorf("temperature: got %+v", temp)
	}
	hum, _ := evt.Get("humidity")
	if !hum.IsNull() {
		t.Errorf("humidity: got %+v, want null", hum)
	}
}

func TestMemoryLedger_AddEventUnknownProduct(t *testing.T) {
	m := newTestLedger(t)
	args := candid.EncodeArgs(
		candid.Text("missing"),
		candid.Variant("Production", nil),
		candid.Text("plant"),
		candid.Text("a"), candid.Text("d"),
		candid.Null(), candid.Null(), candid.Null(),
	)
	out, err := m.Call(context.Background(), MethodAddEvent, args)
	if err != nil {
		t.Fatalf("reject must come back as reply text, not an error: %v", err)
	}
	v, _ := candid.Decode(out)
	s, _ := v.AsText()
	if !IsRejectText(s) {
		t.Errorf("got %q, want a rejection marker", s)
	}
}

func TestMemoryLedger_VerifyAuthenticity(t *testing.T) {
	m := newTestLedger(t)
	id := createProduct(t, m, "Coffee", "B-1")

	verify := func() (string, bool) {
		out, err := m.Call(context.Background(), MethodVerifyAuthenticity, candid.EncodeArgs(candid.Text(id)))
		if err != nil {
			t.Fatalf("verify error: %v", err)
		}
		v, _ := candid.Decode(out)
		if v.Tag == "Ok" {
			b, _ := v.Payload.AsBool()
			return v.Tag, b
		}
		return v.Tag, false
	}

	// No events yet: not authentic.
	if tag, ok := verify(); tag != "Ok" || ok {
		t.Errorf("empty trace: got (%s, %v), want (Ok, false)", tag, ok)
	}

	args := candid.EncodeArgs(
		candid.Text(id), candid.Variant("Production", nil),
		candid.Text("plant"), candid.Text("a"), candid.Text("d"),
		candid.Null(), candid.Null(), candid.Null(),
	)
	if _, err := m.Call(context.Background(), MethodAddEvent, args); err != nil {
		t.Fatal(err)
	}
	if tag, ok := verify(); tag != "Ok" || !ok {
		t.Errorf("chronological trace: got (%s, %v), want (Ok, true)", tag, ok)
	}

	// Unknown product yields Err.
	out, _ := m.Call(context.Background(), MethodVerifyAuthenticity, candid.EncodeArgs(candid.Text("missing")))
	if v, _ := candid.Decode(out); v.Tag != "Err" {
		t.Errorf("unknown product: got tag %q, want Err", v.Tag)
	}
}

func TestMemoryLedger_Participants(t *testing.T) {
	m := newTestLedger(t)
	args := candid.EncodeArgs(
		candid.Text("Acme Foods"),
		candid.Variant("Manufacturer", nil),
		candid.Text("Hamburg"),
		candid.Text("pk-123"),
	)
	if _, err := m.Call(context.Background(), MethodRegisterParticipant, args); err != nil {
		t.Fatalf("register_participant error: %v", err)
	}

	out, err := m.Call(context.Background(), MethodGetParticipants, "")
	if err != nil {
		t.Fatalf("get_participants error: %v", err)
	}
	v, _ := candid.Decode(out)
	if len(v.Items) != 1 {
		t.Fatalf("participants: got %d, want 1", len(v.Items))
	}
	role, _ := v.Items[0].Get("role")
	if role.Tag != "Manufacturer" {
		t.Errorf("role: got %q", role.Tag)
	}
	verified, _ := v.Items[0].Get("is_verified")
	if b, ok := verified.AsBool(); !ok || b {
		t.Errorf("is_verified: got %+v, want false", verified)
	}
}

func TestMemoryLedger_UnknownMethod(t *testing.T) {
	m := newTestLedger(t)
	_, err := m.Call(context.Background(), "does_not_exist", "")
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("got %v, want GatewayError", err)
	}
	if !strings.Contains(gwErr.Stderr, "does_not_exist") {
		t.Errorf("stderr should name the method: %q", gwErr.Stderr)
	}
}

func TestIsRejectText(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Product not found", true},
		{"Products not initialized", true},
		{"prod_1700000001_0001", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsRejectText(tt.in); got != tt.want {
			t.Errorf("IsRejectText(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
}
