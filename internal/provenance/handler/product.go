package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/provchain/traceview/internal/provenance/model"
	"github.com/provchain/traceview/internal/provenance/service"
)

// ProductHandler exposes product registration, listing, and per-batch trace
// and verification endpoints.
type ProductHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

// NewProductHandler creates a ProductHandler.
func NewProductHandler(svc *service.Service, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{svc: svc, logger: logger}
}

// Register mounts the product routes. auth guards the mutating routes.
func (h *ProductHandler) Register(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	p := rg.Group("/products")
	{
		p.GET("", h.List)
		p.POST("", auth, h.Create)
		p.GET("/:batch/trace", h.Trace)
		p.GET("/:batch/verify", h.Verify)
	}
}

// List handles GET /products. Undecodable records are already dropped by the
// service; the endpoint degrades to partial data rather than failing.
func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.svc.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

// Create handles POST /products. An empty manufacturer defaults to the
// authenticated actor.
func (h *ProductHandler) Create(c *gin.Context) {
	var in model.CreateProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if in.Manufacturer == "" {
		in.Manufacturer = actorFrom(c)
	}

	id, err := h.svc.CreateProduct(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	RecordLedgerMutation("create_product")
	c.JSON(http.StatusCreated, gin.H{"id": id, "batch_number": in.BatchNumber})
}

// Trace handles GET /products/:batch/trace — the product journey in append
// order. A product with zero events yields an empty list, not a 404.
func (h *ProductHandler) Trace(c *gin.Context) {
	events, err := h.svc.Trace(c.Request.Context(), c.Param("batch"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// Verify handles GET /products/:batch/verify.
func (h *ProductHandler) Verify(c *gin.Context) {
	authentic, err := h.svc.Verify(c.Request.Context(), c.Param("batch"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batch_number": c.Param("batch"), "authentic": authentic})
}
