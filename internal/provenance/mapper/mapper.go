// Package mapper projects decoded candid records into domain objects.
//
// Mapping is lenient where the ledger is lenient: optional fields get
// documented defaults, unknown variant tags become sentinels. A record that
// lacks an essential field is rejected with ErrIncomplete — the caller drops
// and logs that one record, it never fails the batch.
package mapper

import (
	"errors"
	"fmt"
	"time"

	"github.com/provchain/traceview/internal/candid"
	"github.com/provchain/traceview/internal/provenance/model"
)

// ErrIncomplete marks a record missing a field the domain object cannot be
// built without.
var ErrIncomplete = errors.New("record incomplete")

// Defaults substituted for absent event fields.
const (
	DefaultActor   = "Unknown Actor"
	DefaultDetails = "Event recorded"
)

// nanosPerMilli converts the ledger's nanosecond clock to display
// milliseconds. Integer division on int64 keeps full precision for
// timestamps past 2^53 nanoseconds.
const nanosPerMilli = 1_000_000

// Product maps a decoded record to a Product. The five essential string
// fields must be present; everything else defaults.
//
// A missing production_date is substituted with the capture time in seconds
// and flagged via ProductionDateEstimated — the current decode path does not
// always surface the ledger's literal field, and silently fabricated data
// must stay distinguishable from real data.
func Product(rec candid.Value) (model.Product, error) {
	rec = rec.Unwrap()
	if rec.Kind != candid.KindRecord {
		return model.Product{}, fmt.Errorf("%w: product is %s, want record", ErrIncomplete, rec.Kind)
	}

	p := model.Product{
		Ingredients:    []string{},
		Certifications: []string{},
	}
	for _, req := range []struct {
		name string
		dst  *string
	}{
		{"id", &p.ID},
		{"name", &p.Name},
		{"description", &p.Description},
		{"manufacturer", &p.Manufacturer},
		{"batch_number", &p.BatchNumber},
	} {
		v, ok := rec.Get(req.name)
		if !ok {
			return model.Product{}, fmt.Errorf("%w: product missing %s", ErrIncomplete, req.name)
		}
		s, ok := v.AsText()
		if !ok {
			return model.Product{}, fmt.Errorf("%w: product %s is %s, want text", ErrIncomplete, req.name, v.Kind)
		}
		*req.dst = s
	}

	if v, ok := rec.Get("production_date"); ok {
		if sec, ok := v.AsInt(); ok && sec > 0 {
			p.ProductionDate = sec
		}
	}
	if p.ProductionDate == 0 {
		p.ProductionDate = time.Now().Unix()
		p.ProductionDateEstimated = true
	}

	if v, ok := rec.Get("ingredients"); ok {
		p.Ingredients = v.TextItems()
	}
	if v, ok := rec.Get("certifications"); ok {
		p.Certifications = v.TextItems()
	}
	return p, nil
}

// Event maps a decoded record to a SupplyChainEvent. productID and idx seed
// the synthesized id when the ledger record carries none; idx is the event's
// position within its trace, which keeps synthesized ids unique per trace.
func Event(rec candid.Value, productID string, idx int) (model.SupplyChainEvent, error) {
	rec = rec.Unwrap()
	if rec.Kind != candid.KindRecord {
		return model.SupplyChainEvent{}, fmt.Errorf("%w: event is %s, want record", ErrIncomplete, rec.Kind)
	}

	et, ok := rec.Get("event_type")
	if !ok {
		return model.SupplyChainEvent{}, fmt.Errorf("%w: event missing event_type", ErrIncomplete)
	}
	loc, ok := rec.Get("location")
	if !ok {
		return model.SupplyChainEvent{}, fmt.Errorf("%w: event missing location", ErrIncomplete)
	}
	location, ok := loc.AsText()
	if !ok {
		return model.SupplyChainEvent{}, fmt.Errorf("%w: event location is %s, want text", ErrIncomplete, loc.Kind)
	}

	e := model.SupplyChainEvent{
		ProductID: productID,
		EventType: model.EventTypeFromTag(et.Unwrap().Tag),
		Location:  location,
		Actor:     DefaultActor,
		Details:   DefaultDetails,
	}

	if v, ok := rec.Get("product_id"); ok {
		if s, ok := v.AsText(); ok && s != "" {
			e.ProductID = s
		}
	}
	if v, ok := rec.Get("id"); ok {
		e.ID, _ = v.AsText()
	}
	if e.ID == "" {
		e.ID = fmt.Sprintf("%s-%d", productID, idx)
	}
	if v, ok := rec.Get("actor"); ok {
		if s, ok := v.AsText(); ok && s != "" {
			e.Actor = s
		}
	}
	if v, ok := rec.Get("details"); ok {
		if s, ok := v.AsText(); ok && s != "" {
			e.Details = s
		}
	}

	// Nanoseconds → milliseconds. A converted value of zero is treated as
	// absent and replaced with capture time: the ledger has never emitted a
	// legitimate epoch-zero event, and zero is what its uninitialised clock
	// renders as.
	if v, ok := rec.Get("timestamp"); ok {
		if ns, ok := v.AsInt(); ok {
			e.Timestamp = ns / nanosPerMilli
		}
	}
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().UnixMilli()
	}

	if v, ok := rec.Get("coordinates"); ok {
		e.Coordinates = coordinates(v)
	}
	if v, ok := rec.Get("temperature"); ok {
		if f, ok := v.AsFloat(); ok {
			e.Temperature = &f
		}
	}
	if v, ok := rec.Get("humidity"); ok {
		if f, ok := v.AsFloat(); ok {
			e.Humidity = &f
		}
	}
	return e, nil
}

// coordinates reads an optional lat/lng pair. The ledger renders the pair as
// a positional tuple record; named lat/lng fields are accepted as well.
func coordinates(v candid.Value) *model.Coordinates {
	rec := v.Unwrap()
	if rec.Kind != candid.KindRecord {
		return nil
	}
	lat, okLat := posOrNamed(rec, 0, "lat").AsFloat()
	lng, okLng := posOrNamed(rec, 1, "lng").AsFloat()
	if !okLat || !okLng {
		return nil
	}
	return &model.Coordinates{Lat: lat, Lng: lng}
}

func posOrNamed(rec candid.Value, idx int, name string) candid.Value {
	if v, ok := rec.At(idx); ok {
		return v
	}
	v, _ := rec.Get(name)
	return v
}

// Participant maps a decoded record to a Participant. Name is the only
// essential field; the role defaults to the Unknown sentinel.
func Participant(rec candid.Value) (model.Participant, error) {
	rec = rec.Unwrap()
	if rec.Kind != candid.KindRecord {
		return model.Participant{}, fmt.Errorf("%w: participant is %s, want record", ErrIncomplete, rec.Kind)
	}
	nameVal, ok := rec.Get("name")
	if !ok {
		return model.Participant{}, fmt.Errorf("%w: participant missing name", ErrIncomplete)
	}
	name, ok := nameVal.AsText()
	if !ok {
		return model.Participant{}, fmt.Errorf("%w: participant name is %s, want text", ErrIncomplete, nameVal.Kind)
	}

	p := model.Participant{Name: name, Role: model.RoleUnknown}
	if v, ok := rec.Get("id"); ok {
		p.ID, _ = v.AsText()
	}
	if v, ok := rec.Get("role"); ok {
		p.Role = model.ParticipantRoleFromTag(v.Unwrap().Tag)
	}
	if v, ok := rec.Get("location"); ok {
		p.Location, _ = v.AsText()
	}
	if v, ok := rec.Get("public_key"); ok {
		p.PublicKey, _ = v.AsText()
	}
	if v, ok := rec.Get("is_verified"); ok {
		p.IsVerified, _ = v.AsBool()
	}
	return p, nil
}
