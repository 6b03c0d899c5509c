// Package service implements the trace aggregator: the UI-facing operations
// over the ledger gateway. It owns the result cache and the fan-out policy;
// callers receive typed domain objects, never raw candid text.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/provchain/traceview/internal/candid"
	"github.com/provchain/traceview/internal/ledger"
	"github.com/provchain/traceview/internal/provenance/mapper"
	"github.com/provchain/traceview/internal/provenance/model"
)

// ErrNotFound is returned when a batch number or product id has no matching
// ledger record. It is a normal outcome, not a gateway failure.
var ErrNotFound = errors.New("not found")

// DefaultCacheTTL bounds how long list results are served from memory.
const DefaultCacheTTL = 5 * time.Minute

// DefaultFanOutLimit caps concurrent per-product trace queries so a large
// catalogue cannot overwhelm the gateway.
const DefaultFanOutLimit = 8

// Config holds aggregator configuration.
type Config struct {
	CacheTTL    time.Duration // 0 = DefaultCacheTTL; negative disables caching
	FanOutLimit int           // 0 = DefaultFanOutLimit
}

// Service is the trace aggregator. One instance owns one cache; there is no
// package-level state.
type Service struct {
	gw     ledger.Gateway
	cache  *resultCache
	fanOut int
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Service over the given gateway.
func New(gw ledger.Gateway, cfg Config, logger *zap.Logger) *Service {
	ttl := cfg.CacheTTL
	switch {
	case ttl == 0:
		ttl = DefaultCacheTTL
	case ttl < 0:
		ttl = 0 // resultCache treats a non-positive TTL as disabled
	}
	fanOut := cfg.FanOutLimit
	if fanOut <= 0 {
		fanOut = DefaultFanOutLimit
	}
	return &Service{
		gw:     gw,
		cache:  newResultCache(ttl),
		fanOut: fanOut,
		logger: logger,
		now:    time.Now,
	}
}

// CacheSize reports the number of live cache entries, for metrics and health.
func (s *Service) CacheSize() int { return s.cache.size() }

// ListProducts returns every registered product. Records that fail to decode
// are dropped and logged; the rest of the batch survives.
func (s *Service) ListProducts(ctx context.Context) ([]model.Product, error) {
	if v, ok := s.cache.get(cacheKeyProducts); ok {
		return v.([]model.Product), nil
	}

	out, err := s.gw.Call(ctx, ledger.MethodGetAllProducts, "")
	if err != nil {
		return nil, err
	}
	val, derr := candid.Decode(out)
	if derr != nil {
		s.logger.Warn("product list decoded partially", zap.Error(derr))
	}

	items := val.Unwrap().Items
	products := make([]model.Product, 0, len(items))
	for _, rec := range items {
		p, merr := mapper.Product(rec)
		if merr != nil {
			s.logger.Warn("dropping undecodable product record", zap.Error(merr))
			continue
		}
		products = append(products, p)
	}

	s.cache.put(cacheKeyProducts, products)
	return products, nil
}

// Trace returns the event trace for the product with the given batch number,
// in append order. A product that exists but has no events yields an empty
// slice; an unknown batch number yields ErrNotFound. Gateway failures
// surface directly here — only the AllEvents fan-out downgrades them.
func (s *Service) Trace(ctx context.Context, batchNumber string) ([]model.SupplyChainEvent, error) {
	p, err := s.productByBatch(ctx, batchNumber)
	if err != nil {
		return nil, err
	}
	return s.fetchTrace(ctx, p.ID)
}

// AllEvents fans out one trace query per product, concurrently, and returns
// the flattened union sorted by timestamp. A failed or undecodable trace
// contributes an empty slice for that product; one bad product must not
// blank the whole feed.
func (s *Service) AllEvents(ctx context.Context) ([]model.SupplyChainEvent, error) {
	if v, ok := s.cache.get(cacheKeyEvents); ok {
		return v.([]model.SupplyChainEvent), nil
	}

	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	perProduct := make([][]model.SupplyChainEvent, len(products))
	g := &errgroup.Group{}
	g.SetLimit(s.fanOut)
	for i, p := range products {
		g.Go(func() error {
			evs, ferr := s.fetchTrace(ctx, p.ID)
			if ferr != nil {
				s.logger.Warn("trace fetch failed during fan-out, contributing empty trace",
					zap.String("product_id", p.ID),
					zap.Error(ferr),
				)
				return nil
			}
			perProduct[i] = evs
			return nil
		})
	}
	_ = g.Wait() // branches never return errors; the join waits for all

	var events []model.SupplyChainEvent
	for _, evs := range perProduct {
		events = append(events, evs...)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})

	s.cache.put(cacheKeyEvents, events)
	return events, nil
}

// CreateProduct registers a new product and returns its ledger-assigned id.
// The batch number must be unique among known products.
func (s *Service) CreateProduct(ctx context.Context, in model.CreateProductInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	if existing, err := s.productByBatch(ctx, in.BatchNumber); err == nil {
		return "", &model.ValidationError{
			Field:  "batch_number",
			Reason: fmt.Sprintf("%q already used by product %s", in.BatchNumber, existing.ID),
		}
	} else if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	args := candid.EncodeArgs(
		candid.Text(in.Name),
		candid.Text(in.Description),
		candid.Text(in.Manufacturer),
		candid.Text(in.BatchNumber),
		textVec(in.Ingredients),
		textVec(in.Certifications),
	)
	out, err := s.gw.Call(ctx, ledger.MethodCreateProduct, args)
	if err != nil {
		return "", err
	}
	id, err := s.replyText(ledger.MethodCreateProduct, out)
	if err != nil {
		return "", err
	}

	s.cache.invalidateAll()
	s.logger.Info("product created",
		zap.String("product_id", id),
		zap.String("batch_number", in.BatchNumber),
	)
	return id, nil
}

// AppendEvent appends a custody event to a product's trace and returns the
// new event's id. Out-of-range measurements are rejected before any gateway
// call.
func (s *Service) AppendEvent(ctx context.Context, in model.AppendEventInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}

	coords := candid.Null()
	if c := in.Coordinates; c != nil {
		coords = candid.Opt(candid.Record(
			candid.Field{Name: "0", Value: candid.Float(c.Lat)},
			candid.Field{Name: "1", Value: candid.Float(c.Lng)},
		))
	}
	args := candid.EncodeArgs(
		candid.Text(in.ProductID),
		candid.Variant(string(in.EventType), nil),
		candid.Text(in.Location),
		candid.Text(in.Actor),
		candid.Text(in.Details),
		coords,
		optFloat(in.Temperature),
		optFloat(in.Humidity),
	)
	out, err := s.gw.Call(ctx, ledger.MethodAddEvent, args)
	if err != nil {
		return "", err
	}
	id, err := s.replyText(ledger.MethodAddEvent, out)
	if err != nil {
		return "", err
	}

	s.cache.invalidateAll()
	s.logger.Info("event appended",
		zap.String("product_id", in.ProductID),
		zap.String("event_id", id),
		zap.String("event_type", string(in.EventType)),
	)
	return id, nil
}

// Product fetches one product by ledger id.
func (s *Service) Product(ctx context.Context, productID string) (model.Product, error) {
	out, err := s.gw.Call(ctx, ledger.MethodGetProduct, candid.EncodeArgs(candid.Text(productID)))
	if err != nil {
		return model.Product{}, err
	}
	val, derr := candid.Decode(out)
	if derr != nil {
		s.logger.Warn("product reply decoded partially", zap.Error(derr))
	}
	val = val.Unwrap()
	switch val.Tag {
	case "Ok":
		if val.Payload == nil {
			return model.Product{}, fmt.Errorf("%s: empty Ok payload", ledger.MethodGetProduct)
		}
		return mapper.Product(*val.Payload)
	case "Err":
		return model.Product{}, ErrNotFound
	}
	return model.Product{}, fmt.Errorf("%s: unexpected reply shape %s", ledger.MethodGetProduct, val.Kind)
}

// Verify reports whether the product behind the batch number has a coherent,
// non-empty trace according to the ledger's own chronology check.
func (s *Service) Verify(ctx context.Context, batchNumber string) (bool, error) {
	p, err := s.productByBatch(ctx, batchNumber)
	if err != nil {
		return false, err
	}
	out, err := s.gw.Call(ctx, ledger.MethodVerifyAuthenticity, candid.EncodeArgs(candid.Text(p.ID)))
	if err != nil {
		return false, err
	}
	val, derr := candid.Decode(out)
	if derr != nil {
		s.logger.Warn("verify reply decoded partially", zap.Error(derr))
	}
	val = val.Unwrap()
	switch val.Tag {
	case "Ok":
		if val.Payload == nil {
			return false, nil
		}
		b, _ := val.Payload.AsBool()
		return b, nil
	case "Err":
		return false, ErrNotFound
	}
	return false, fmt.Errorf("%s: unexpected reply shape %s", ledger.MethodVerifyAuthenticity, val.Kind)
}

// Participants lists all registered participants.
func (s *Service) Participants(ctx context.Context) ([]model.Participant, error) {
	if v, ok := s.cache.get(cacheKeyParticipants); ok {
		return v.([]model.Participant), nil
	}
	out, err := s.gw.Call(ctx, ledger.MethodGetParticipants, "")
	if err != nil {
		return nil, err
	}
	val, derr := candid.Decode(out)
	if derr != nil {
		s.logger.Warn("participant list decoded partially", zap.Error(derr))
	}
	items := val.Unwrap().Items
	parts := make([]model.Participant, 0, len(items))
	for _, rec := range items {
		p, merr := mapper.Participant(rec)
		if merr != nil {
			s.logger.Warn("dropping undecodable participant record", zap.Error(merr))
			continue
		}
		parts = append(parts, p)
	}
	s.cache.put(cacheKeyParticipants, parts)
	return parts, nil
}

// RegisterParticipant registers a supply-chain actor and returns its id.
func (s *Service) RegisterParticipant(ctx context.Context, in model.RegisterParticipantInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	args := candid.EncodeArgs(
		candid.Text(in.Name),
		candid.Variant(string(in.Role), nil),
		candid.Text(in.Location),
		candid.Text(in.PublicKey),
	)
	out, err := s.gw.Call(ctx, ledger.MethodRegisterParticipant, args)
	if err != nil {
		return "", err
	}
	id, err := s.replyText(ledger.MethodRegisterParticipant, out)
	if err != nil {
		return "", err
	}
	s.cache.invalidateAll()
	return id, nil
}

// productByBatch resolves a batch number through the cached product list.
func (s *Service) productByBatch(ctx context.Context, batchNumber string) (model.Product, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return model.Product{}, err
	}
	for _, p := range products {
		if p.BatchNumber == batchNumber {
			return p, nil
		}
	}
	return model.Product{}, fmt.Errorf("batch %q: %w", batchNumber, ErrNotFound)
}

// fetchTrace issues one per-product trace query and maps its events vector.
// A (null) or (opt null) reply is the documented convention for "zero
// events": it yields an empty slice, never an error.
func (s *Service) fetchTrace(ctx context.Context, productID string) ([]model.SupplyChainEvent, error) {
	out, err := s.gw.Call(ctx, ledger.MethodGetTrace, candid.EncodeArgs(candid.Text(productID)))
	if err != nil {
		return nil, err
	}

	val, derr := candid.Decode(out)
	if derr != nil {
		s.logger.Warn("trace decoded partially",
			zap.String("product_id", productID),
			zap.Error(derr),
		)
	}
	val = val.Unwrap()
	if val.IsNull() {
		return []model.SupplyChainEvent{}, nil
	}

	eventsVal, ok := val.Get("events")
	if !ok {
		s.logger.Warn("trace reply missing events vector, treating as empty",
			zap.String("product_id", productID),
		)
		return []model.SupplyChainEvent{}, nil
	}

	items := eventsVal.Unwrap().Items
	events := make([]model.SupplyChainEvent, 0, len(items))
	for i, rec := range items {
		e, merr := mapper.Event(rec, productID, i)
		if merr != nil {
			s.logger.Warn("dropping undecodable event record",
				zap.String("product_id", productID),
				zap.Int("position", i),
				zap.Error(merr),
			)
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

// replyText decodes a reply expected to carry a bare text result and checks
// it for the canister's rejection markers.
func (s *Service) replyText(method, out string) (string, error) {
	val, derr := candid.Decode(out)
	if derr != nil {
		return "", fmt.Errorf("%s: %w", method, derr)
	}
	text, ok := val.Unwrap().AsText()
	if !ok {
		return "", fmt.Errorf("%s: unexpected reply shape %s", method, val.Kind)
	}
	if ledger.IsRejectText(text) {
		return "", fmt.Errorf("%s: %s: %w", method, text, ErrNotFound)
	}
	return text, nil
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
