package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/provchain/traceview/internal/candid"
)

// MemoryLedger is an in-process Gateway that mirrors the canister's observable
// behaviour, including its Candid textual replies and rejection strings. It
// backs `--backend memory` development runs and the test suites of the layers
// above; the real deployment uses DfxGateway.
type MemoryLedger struct {
	mu           sync.Mutex
	products     map[string]memProduct
	order        []string // product ids in creation order
	traces       map[string][]memEvent
	participants []memParticipant
	seq          int
	now          func() time.Time
}

type memProduct struct {
	id             string
	name           string
	description    string
	manufacturer   string
	batchNumber    string
	productionDate int64 // seconds since epoch
	ingredients    []string
	certifications []string
}

type memEvent struct {
	id          string
	productID   string
	eventTag    string
	location    string
	timestampNS int64
	actor       string
	details     string
	coordinates *[2]float64
	temperature *float64
	humidity    *float64
}

type memParticipant struct {
	id         string
	name       string
	roleTag    string
	location   string
	publicKey  string
	isVerified bool
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		products: make(map[string]memProduct),
		traces:   make(map[string][]memEvent),
		now:      time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (m *MemoryLedger) SetClock(now func() time.Time) { m.now = now }

// Call implements Gateway.
func (m *MemoryLedger) Call(ctx context.Context, method, args string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &GatewayError{Method: method, Err: err}
	}

	in, err := candid.DecodeArgs(args)
	if err != nil {
		return "", &GatewayError{Method: method, Stderr: "invalid call arguments", Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch method {
	case MethodGetAllProducts:
		return m.getAllProducts(), nil
	case MethodCreateProduct:
		return m.createProduct(in)
	case MethodGetTrace:
		return m.getTrace(in)
	case MethodAddEvent:
		return m.addEvent(in)
	case MethodGetProduct:
		return m.getProduct(in)
	case MethodRegisterParticipant:
		return m.registerParticipant(in)
	case MethodGetParticipants:
		return m.getParticipants(), nil
	case MethodVerifyAuthenticity:
		return m.verifyAuthenticity(in)
	default:
		return "", &GatewayError{
			Method: method,
			Stderr: fmt.Sprintf("canister has no update method %q", method),
			Err:    errors.New("unknown method"),
		}
	}
}

func (m *MemoryLedger) getAllProducts() string {
	items := make([]candid.Value, 0, len(m.order))
	for _, id := range m.order {
		items = append(items, productRecord(m.products[id]))
	}
	return candid.EncodeArgs(candid.Vec(items...))
}

func (m *MemoryLedger) createProduct(in []candid.Value) (string, error) {
	if len(in) < 6 {
		return "", &GatewayError{Method: MethodCreateProduct, Stderr: "wrong argument count", Err: errors.New("bad arguments")}
	}
	id := m.nextID("prod")
	p := memProduct{
		id:             id,
		productionDate: m.now().Unix(),
		ingredients:    in[4].TextItems(),
		certifications: in[5].TextItems(),
	}
	p.name, _ = in[0].AsText()
	p.description, _ = in[1].AsText()
	p.manufacturer, _ = in[2].AsText()
	p.batchNumber, _ = in[3].AsText()

	m.products[id] = p
	m.order = append(m.order, id)
	m.traces[id] = []memEvent{}
	return candid.EncodeArgs(candid.Text(id)), nil
}

func (m *MemoryLedger) getTrace(in []candid.Value) (string, error) {
	id := argText(in, 0)
	trace, ok := m.traces[id]
	if !ok {
		return candid.EncodeArgs(candid.Null()), nil
	}
	events := make([]candid.Value, 0, len(trace))
	for _, e := range trace {
		events = append(events, eventRecord(e))
	}
	rec := candid.Record(
		candid.Field{Name: "product_id", Value: candid.Text(id)},
		candid.Field{Name: "events", Value: candid.Vec(events...)},
		candid.Field{Name: "created_at", Value: candid.Int(m.products[id].productionDate)},
		candid.Field{Name: "last_updated", Value: candid.Int(m.now().Unix())},
	)
	return candid.EncodeArgs(candid.Opt(rec)), nil
}

func (m *MemoryLedger) addEvent(in []candid.Value) (string, error) {
	if len(in) < 8 {
		return "", &GatewayError{Method: MethodAddEvent, Stderr: "wrong argument count", Err: errors.New("bad arguments")}
	}
	productID := argText(in, 0)
	if _, ok := m.products[productID]; !ok {
		return candid.EncodeArgs(candid.Text("Product not found")), nil
	}

	e := memEvent{
		id:          m.nextID("evt"),
		productID:   productID,
		timestampNS: m.now().UnixNano(),
	}
	if v := in[1].Unwrap(); v.Kind == candid.KindVariant {
		e.eventTag = v.Tag
	}
	e.location, _ = in[2].AsText()
	e.actor, _ = in[3].AsText()
	e.details, _ = in[4].AsText()
	if coords := in[5].Unwrap(); coords.Kind == candid.KindRecord {
		lat, okLat := member(coords, 0).AsFloat()
		lng, okLng := member(coords, 1).AsFloat()
		if okLat && okLng {
			e.coordinates = &[2]float64{lat, lng}
		}
	}
	if f, ok := in[6].AsFloat(); ok {
		e.temperature = &f
	}
	if f, ok := in[7].AsFloat(); ok {
		e.humidity = &f
	}

	m.traces[productID] = append(m.traces[productID], e)
	return candid.EncodeArgs(candid.Text(e.id)), nil
}

func (m *MemoryLedger) getProduct(in []candid.Value) (string, error) {
	id := argText(in, 0)
	p, ok := m.products[id]
	if !ok {
		errVal := candid.Text("Product not found")
		return candid.EncodeArgs(candid.Variant("Err", &errVal)), nil
	}
	rec := productRecord(p)
	return candid.EncodeArgs(candid.Variant("Ok", &rec)), nil
}

func (m *MemoryLedger) registerParticipant(in []candid.Value) (string, error) {
	if len(in) < 4 {
		return "", &GatewayError{Method: MethodRegisterParticipant, Stderr: "wrong argument count", Err: errors.New("bad arguments")}
	}
	p := memParticipant{id: m.nextID("part")}
	p.name, _ = in[0].AsText()
	if v := in[1].Unwrap(); v.Kind == candid.KindVariant {
		p.roleTag = v.Tag
	}
	p.location, _ = in[2].AsText()
	p.publicKey, _ = in[3].AsText()
	m.participants = append(m.participants, p)
	return candid.EncodeArgs(candid.Text(p.id)), nil
}

func (m *MemoryLedger) getParticipants() string {
	items := make([]candid.Value, 0, len(m.participants))
	for _, p := range m.participants {
		items = append(items, candid.Record(
			candid.Field{Name: "id", Value: candid.Text(p.id)},
			candid.Field{Name: "name", Value: candid.Text(p.name)},
			candid.Field{Name: "role", Value: candid.Variant(p.roleTag, nil)},
			candid.Field{Name: "location", Value: candid.Text(p.location)},
			candid.Field{Name: "public_key", Value: candid.Text(p.publicKey)},
			candid.Field{Name: "is_verified", Value: candid.Bool(p.isVerified)},
		))
	}
	return candid.EncodeArgs(candid.Vec(items...))
}

// verifyAuthenticity mirrors the canister rule: a product is authentic when
// its trace is non-empty and event timestamps never go backwards.
func (m *MemoryLedger) verifyAuthenticity(in []candid.Value) (string, error) {
	id := argText(in, 0)
	if _, ok := m.products[id]; !ok {
		errVal := candid.Text("Product not found")
		return candid.EncodeArgs(candid.Variant("Err", &errVal)), nil
	}
	trace := m.traces[id]
	ok := len(trace) > 0
	for i := 1; i < len(trace) && ok; i++ {
		if trace[i].timestampNS < trace[i-1].timestampNS {
			ok = false
		}
	}
	okVal := candid.Bool(ok)
	return candid.EncodeArgs(candid.Variant("Ok", &okVal)), nil
}

func (m *MemoryLedger) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s_%d_%04d", prefix, m.now().Unix(), m.seq)
}

func productRecord(p memProduct) candid.Value {
	return candid.Record(
		candid.Field{Name: "id", Value: candid.Text(p.id)},
		candid.Field{Name: "name", Value: candid.Text(p.name)},
		candid.Field{Name: "description", Value: candid.Text(p.description)},
		candid.Field{Name: "manufacturer", Value: candid.Text(p.manufacturer)},
		candid.Field{Name: "batch_number", Value: candid.Text(p.batchNumber)},
		candid.Field{Name: "production_date", Value: candid.Int(p.productionDate)},
		candid.Field{Name: "ingredients", Value: textVec(p.ingredients)},
		candid.Field{Name: "certifications", Value: textVec(p.certifications)},
	)
}

func eventRecord(e memEvent) candid.Value {
	coords := candid.Null()
	if e.coordinates != nil {
		coords = candid.Opt(candid.Record(
			candid.Field{Name: "0", Value: candid.Float(e.coordinates[0])},
			candid.Field{Name: "1", Value: candid.Float(e.coordinates[1])},
		))
	}
	return candid.Record(
		candid.Field{Name: "id", Value: candid.Text(e.id)},
		candid.Field{Name: "product_id", Value: candid.Text(e.productID)},
		candid.Field{Name: "event_type", Value: candid.Variant(e.eventTag, nil)},
		candid.Field{Name: "location", Value: candid.Text(e.location)},
		candid.Field{Name: "timestamp", Value: candid.Int(e.timestampNS)},
		candid.Field{Name: "actor", Value: candid.Text(e.actor)},
		candid.Field{Name: "details", Value: candid.Text(e.details)},
		candid.Field{Name: "coordinates", Value: coords},
		candid.Field{Name: "temperature", Value: optFloat(e.temperature)},
		candid.Field{Name: "humidity", Value: optFloat(e.humidity)},
	)
}

func textVec(items []string) candid.Value {
	vals := make([]candid.Value, len(items))
	for i, s := range items {
		vals[i] = candid.Text(s)
	}
	return candid.Vec(vals...)
}

func optFloat(f *float64) candid.Value {
	if f == nil {
		return candid.Null()
	}
	return candid.Opt(candid.Float(*f))
}

func argText(in []candid.Value, i int) string {
	if i >= len(in) {
		return ""
	}
	s, _ := in[i].AsText()
	return s
}

func member(rec candid.Value, i int) candid.Value {
	v, _ := rec.At(i)
	return v
}
