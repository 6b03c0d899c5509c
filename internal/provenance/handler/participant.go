package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/provchain/traceview/internal/provenance/model"
	"github.com/provchain/traceview/internal/provenance/service"
)

// ParticipantHandler exposes the participant registry.
type ParticipantHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

// NewParticipantHandler creates a ParticipantHandler.
func NewParticipantHandler(svc *service.Service, logger *zap.Logger) *ParticipantHandler {
	return &ParticipantHandler{svc: svc, logger: logger}
}

// Register mounts the participant routes. auth guards registration.
func (h *ParticipantHandler) Register(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	rg.GET("/participants", h.List)
	rg.POST("/participants", auth, h.Create)
}

// List handles GET /participants.
func (h *ParticipantHandler) List(c *gin.Context) {
	participants, err := h.svc.Participants(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": participants, "count": len(participants)})
}

// Create handles POST /participants.
func (h *ParticipantHandler) Create(c *gin.Context) {
	var in model.RegisterParticipantInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.svc.RegisterParticipant(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	RecordLedgerMutation("register_participant")
	c.JSON(http.StatusCreated, gin.H{"id": id})
}
