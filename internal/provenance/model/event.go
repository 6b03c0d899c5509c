package model

import "fmt"

// EventType is the closed set of custody event categories, identified by the
// ledger's variant tag.
type EventType string

const (
	EventProduction   EventType = "Production"
	EventQualityCheck EventType = "QualityCheck"
	EventPackaging    EventType = "Packaging"
	EventShipping     EventType = "Shipping"
	EventCustoms      EventType = "Customs"
	EventDelivery     EventType = "Delivery"
	EventRetail       EventType = "Retail"
	// EventUnknown is the sentinel for variant tags this build does not
	// recognise. Unknown tags are displayed, never dropped.
	EventUnknown EventType = "Unknown"
)

// eventLabels maps variant tags to their display labels and back.
var eventLabels = map[EventType]string{
	EventProduction:   "Production",
	EventQualityCheck: "Quality Check",
	EventPackaging:    "Packaging",
	EventShipping:     "Shipping",
	EventCustoms:      "Customs",
	EventDelivery:     "Delivery",
	EventRetail:       "Retail",
	EventUnknown:      "Unknown",
}

// Label returns the human-readable form of the event type.
func (t EventType) Label() string {
	if l, ok := eventLabels[t]; ok {
		return l
	}
	return string(EventUnknown)
}

// Known reports whether the type is part of the closed set.
func (t EventType) Known() bool {
	_, ok := eventLabels[t]
	return ok && t != EventUnknown
}

// EventTypeFromTag translates a ledger variant tag. Unrecognised tags map to
// EventUnknown rather than failing.
func EventTypeFromTag(tag string) EventType {
	t := EventType(tag)
	if t.Known() {
		return t
	}
	return EventUnknown
}

// EventTypeFromLabel is the reverse translation, used for caller input
// ("Quality Check" → QualityCheck). The bare tag form is accepted too.
func EventTypeFromLabel(label string) (EventType, bool) {
	for t, l := range eventLabels {
		if t == EventUnknown {
			continue
		}
		if l == label || string(t) == label {
			return t, true
		}
	}
	return EventUnknown, false
}

// EventTypes lists the closed set in journey order.
func EventTypes() []EventType {
	return []EventType{
		EventProduction, EventQualityCheck, EventPackaging,
		EventShipping, EventCustoms, EventDelivery, EventRetail,
	}
}

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SupplyChainEvent is one append-only custody record in a product's trace.
// Ordering within a trace is append order, not necessarily timestamp order.
type SupplyChainEvent struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	EventType EventType `json:"event_type"`
	Location  string    `json:"location"`
	// Timestamp is milliseconds since epoch, converted from the ledger's
	// nanosecond clock for display.
	Timestamp   int64        `json:"timestamp"`
	Actor       string       `json:"actor"`
	Details     string       `json:"details"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	Humidity    *float64     `json:"humidity,omitempty"`
}

// AppendEventInput carries the caller-supplied fields of the ledger's append
// operation. Optional measurements stay nil when not supplied.
type AppendEventInput struct {
	ProductID   string       `json:"product_id" binding:"required"`
	EventType   EventType    `json:"event_type" binding:"required"`
	Location    string       `json:"location" binding:"required"`
	Actor       string       `json:"actor"`
	Details     string       `json:"details"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	Humidity    *float64     `json:"humidity,omitempty"`
}

// Advisory measurement ranges. Violations are rejected before any gateway
// call is issued.
const (
	MinLatitude    = -90.0
	MaxLatitude    = 90.0
	MinLongitude   = -180.0
	MaxLongitude   = 180.0
	MinTemperature = -50.0 // °C
	MaxTemperature = 100.0
	MinHumidity    = 0.0 // %
	MaxHumidity    = 100.0
)

// Validate checks the documented numeric ranges and the closed event type
// set. It reports the first violation found.
func (in AppendEventInput) Validate() error {
	if in.ProductID == "" {
		return &ValidationError{Field: "product_id", Reason: "must not be empty"}
	}
	if !in.EventType.Known() {
		return &ValidationError{
			Field:  "event_type",
			Reason: fmt.Sprintf("%q is not a recognised event type", in.EventType),
		}
	}
	if in.Location == "" {
		return &ValidationError{Field: "location", Reason: "must not be empty"}
	}
	if c := in.Coordinates; c != nil {
		if c.Lat < MinLatitude || c.Lat > MaxLatitude {
			return &ValidationError{
				Field:  "coordinates.lat",
				Reason: fmt.Sprintf("%v out of range [%v, %v]", c.Lat, MinLatitude, MaxLatitude),
			}
		}
		if c.Lng < MinLongitude || c.Lng > MaxLongitude {
			return &ValidationError{
				Field:  "coordinates.lng",
				Reason: fmt.Sprintf("%v out of range [%v, %v]", c.Lng, MinLongitude, MaxLongitude),
			}
		}
	}
	if t := in.Temperature; t != nil && (*t < MinTemperature || *t > MaxTemperature) {
		return &ValidationError{
			Field:  "temperature",
			Reason: fmt.Sprintf("%v out of range [%v, %v]", *t, MinTemperature, MaxTemperature),
		}
	}
	if h := in.Humidity; h != nil && (*h < MinHumidity || *h > MaxHumidity) {
		return &ValidationError{
			Field:  "humidity",
			Reason: fmt.Sprintf("%v out of range [%v, %v]", *h, MinHumidity, MaxHumidity),
		}
	}
	return nil
}

// ValidationError reports a caller-supplied field outside its documented
// range or domain. It never reaches the gateway.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
