package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/provchain/traceview/internal/identity"
)

// actorKey is the gin context key carrying the verified actor identifier.
const actorKey = "traceview.actor"

// ActorAuth returns a middleware that requires a valid Bearer session token
// and records the actor identifier on the request context. Read endpoints do
// not use it; mutations do.
func ActorAuth(tokens *identity.ActorTokens, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := tokens.Verify(raw)
		if err != nil {
			logger.Debug("rejected actor token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(actorKey, claims.Actor)
		c.Next()
	}
}

// actorFrom returns the authenticated actor id, or "" when the route did not
// pass through ActorAuth.
func actorFrom(c *gin.Context) string {
	if v, ok := c.Get(actorKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// SessionHandler exchanges an actor identity for a session token. The actual
// authentication of who may claim which actor identifier happens upstream;
// this endpoint is the boundary where the opaque identifier enters.
type SessionHandler struct {
	tokens *identity.ActorTokens
	logger *zap.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(tokens *identity.ActorTokens, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{tokens: tokens, logger: logger}
}

// Register mounts the session route on the given router group.
func (h *SessionHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/session", h.Create)
}

type sessionRequest struct {
	Actor string `json:"actor" binding:"required"`
	Role  string `json:"role"`
}

// Create handles POST /session.
func (h *SessionHandler) Create(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "actor is required"})
		return
	}
	tok, err := h.tokens.Issue(req.Actor, req.Role)
	if err != nil {
		h.logger.Error("issue actor token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok, "actor": req.Actor})
}
