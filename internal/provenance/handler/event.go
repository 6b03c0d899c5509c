package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/provchain/traceview/internal/provenance/model"
	"github.com/provchain/traceview/internal/provenance/service"
)

// EventHandler exposes the cross-product event feed, event appending, and
// the dashboard statistics derived from the feed.
type EventHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(svc *service.Service, logger *zap.Logger) *EventHandler {
	return &EventHandler{svc: svc, logger: logger}
}

// Register mounts the event routes. auth guards the mutating routes.
func (h *EventHandler) Register(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	rg.GET("/events", h.Feed)
	rg.POST("/events", auth, h.Append)
	rg.GET("/stats", h.Stats)
}

// Feed handles GET /events — the flattened, time-ordered feed across all
// products. Products whose trace fetch failed contribute nothing; the feed
// itself never fails on a single bad product.
func (h *EventHandler) Feed(c *gin.Context) {
	events, err := h.svc.AllEvents(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// Stats handles GET /stats.
func (h *EventHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// appendEventRequest is the request body for Append. The actor comes from
// the session token, never the payload.
type appendEventRequest struct {
	ProductID   string             `json:"product_id" binding:"required"`
	EventType   string             `json:"event_type" binding:"required"`
	Location    string             `json:"location" binding:"required"`
	Details     string             `json:"details"`
	Coordinates *model.Coordinates `json:"coordinates,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
	Humidity    *float64           `json:"humidity,omitempty"`
}

// Append handles POST /events.
func (h *EventHandler) Append(c *gin.Context) {
	var req appendEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	et, ok := model.EventTypeFromLabel(req.EventType)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":       "unrecognised event type",
			"event_types": model.EventTypes(),
		})
		return
	}

	in := model.AppendEventInput{
		ProductID:   req.ProductID,
		EventType:   et,
		Location:    req.Location,
		Actor:       actorFrom(c),
		Details:     req.Details,
		Coordinates: req.Coordinates,
		Temperature: req.Temperature,
		Humidity:    req.Humidity,
	}

	id, err := h.svc.AppendEvent(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	RecordLedgerMutation("add_supply_chain_event")
	c.JSON(http.StatusCreated, gin.H{"id": id, "product_id": in.ProductID})
}
