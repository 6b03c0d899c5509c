// Package client is the Go SDK for the traceview HTTP API. It covers the
// full surface: products, traces, the event feed, verification, participants,
// and dashboard stats.
//
//	c, _ := client.New("http://localhost:8080")
//	if err := c.OpenSession(ctx, "inspector-7", "Auditor"); err != nil { ... }
//	id, err := c.CreateProduct(ctx, client.CreateProductRequest{
//	    Name:        "Organic Coffee",
//	    BatchNumber: "LOT-001",
//	})
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// ErrNotFound is returned when the API reports an unknown product or batch.
var ErrNotFound = errors.New("not found")

// Product mirrors the API's product representation. ProductionDate is seconds
// since epoch; ProductionDateEstimated marks a substituted date.
type Product struct {
	ID                      string   `json:"id"`
	Name                    string   `json:"name"`
	Description             string   `json:"description"`
	Manufacturer            string   `json:"manufacturer"`
	BatchNumber             string   `json:"batch_number"`
	ProductionDate          int64    `json:"production_date"`
	ProductionDateEstimated bool     `json:"production_date_estimated,omitempty"`
	Ingredients             []string `json:"ingredients"`
	Certifications          []string `json:"certifications"`
}

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Event mirrors the API's custody event. Timestamp is milliseconds since
// epoch.
type Event struct {
	ID          string       `json:"id"`
	ProductID   string       `json:"product_id"`
	EventType   string       `json:"event_type"`
	Location    string       `json:"location"`
	Timestamp   int64        `json:"timestamp"`
	Actor       string       `json:"actor"`
	Details     string       `json:"details"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	Humidity    *float64     `json:"humidity,omitempty"`
}

// Participant mirrors the API's participant record.
type Participant struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Location   string `json:"location"`
	PublicKey  string `json:"public_key"`
	IsVerified bool   `json:"is_verified"`
}

// Stats mirrors the API's dashboard aggregates.
type Stats struct {
	Products           int            `json:"products"`
	Events             int            `json:"events"`
	Participants       int            `json:"participants"`
	EventsByType       map[string]int `json:"events_by_type"`
	LastEventAt        int64          `json:"last_event_at"`
	ProductsWithEvents int            `json:"products_with_events"`
}

// CreateProductRequest is the payload for CreateProduct.
type CreateProductRequest struct {
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	Manufacturer   string   `json:"manufacturer,omitempty"`
	BatchNumber    string   `json:"batch_number"`
	Ingredients    []string `json:"ingredients,omitempty"`
	Certifications []string `json:"certifications,omitempty"`
}

// AppendEventRequest is the payload for AppendEvent. The actor is taken from
// the session, never from the payload.
type AppendEventRequest struct {
	ProductID   string       `json:"product_id"`
	EventType   string       `json:"event_type"`
	Location    string       `json:"location"`
	Details     string       `json:"details,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	Humidity    *float64     `json:"humidity,omitempty"`
}

// RegisterParticipantRequest is the payload for RegisterParticipant.
type RegisterParticipantRequest struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	Location  string `json:"location,omitempty"`
	PublicKey string `json:"public_key,omitempty"`
}

// Client is the SDK entry point.
type Client struct {
	base       string
	httpClient *http.Client

	// token state — guarded by mu
	mu          sync.Mutex
	bearerToken string
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithBearerToken attaches a pre-obtained session token to every request,
// instead of calling OpenSession.
func WithBearerToken(token string) Option {
	return func(c *Client) { c.bearerToken = token }
}

// New creates a Client for the given traceviewd base URL.
func New(base string, opts ...Option) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", base)
	}
	c := &Client{
		base:       u.Scheme + "://" + u.Host,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// OpenSession exchanges an actor identity for a session token and stores it
// for subsequent mutating calls.
func (c *Client) OpenSession(ctx context.Context, actor, role string) error {
	var resp struct {
		Token string `json:"token"`
	}
	err := c.call(ctx, http.MethodPost, "/api/v1/session",
		map[string]string{"actor": actor, "role": role}, &resp)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	c.mu.Lock()
	c.bearerToken = resp.Token
	c.mu.Unlock()
	return nil
}

// ListProducts returns all registered products.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var resp struct {
		Products []Product `json:"products"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/products", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

// CreateProduct registers a product and returns its ledger-assigned id.
func (c *Client) CreateProduct(ctx context.Context, req CreateProductRequest) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/products", req, &resp); err != nil {
		return "", fmt.Errorf("create product: %w", err)
	}
	return resp.ID, nil
}

// Trace returns the custody trace for a batch, in append order. A registered
// product with no events yields an empty slice.
func (c *Client) Trace(ctx context.Context, batchNumber string) ([]Event, error) {
	var resp struct {
		Events []Event `json:"events"`
	}
	path := "/api/v1/products/" + url.PathEscape(batchNumber) + "/trace"
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// Verify reports whether a batch's custody trace checks out.
func (c *Client) Verify(ctx context.Context, batchNumber string) (bool, error) {
	var resp struct {
		Authentic bool `json:"authentic"`
	}
	path := "/api/v1/products/" + url.PathEscape(batchNumber) + "/verify"
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return false, err
	}
	return resp.Authentic, nil
}

// AppendEvent records a custody event and returns the new event id.
func (c *Client) AppendEvent(ctx context.Context, req AppendEventRequest) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/events", req, &resp); err != nil {
		return "", fmt.Errorf("append event: %w", err)
	}
	return resp.ID, nil
}

// Events returns the time-ordered feed across all products.
func (c *Client) Events(ctx context.Context) ([]Event, error) {
	var resp struct {
		Events []Event `json:"events"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/events", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// Stats returns the dashboard aggregates.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var resp Stats
	if err := c.call(ctx, http.MethodGet, "/api/v1/stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Participants returns the registered participants.
func (c *Client) Participants(ctx context.Context) ([]Participant, error) {
	var resp struct {
		Participants []Participant `json:"participants"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/participants", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Participants, nil
}

// RegisterParticipant registers a participant and returns its id.
func (c *Client) RegisterParticipant(ctx context.Context, req RegisterParticipantRequest) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/participants", req, &resp); err != nil {
		return "", fmt.Errorf("register participant: %w", err)
	}
	return resp.ID, nil
}

// call executes a JSON request against the API, attaching the Bearer token
// when present, and decodes the response into out (which may be nil).
func (c *Client) call(ctx context.Context, method, path string, reqBody, out any) error {
	var body io.Reader
	if reqBody != nil {
		buf, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.Lock()
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	c.mu.Unlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		msg := string(raw)
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s: %w", msg, ErrNotFound)
		}
		return fmt.Errorf("server error %d: %s", resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
