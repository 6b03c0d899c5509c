// Package handler exposes the provenance service over HTTP. Handlers stay
// thin: bind, call the service, translate the error taxonomy to status codes.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/provchain/traceview/internal/ledger"
	"github.com/provchain/traceview/internal/provenance/model"
	"github.com/provchain/traceview/internal/provenance/service"
)

// respondError maps the service error taxonomy onto HTTP status codes.
//
//	ValidationError → 400 (caller input out of range, gateway never called)
//	ErrNotFound     → 404 (normal outcome, not logged as a failure)
//	GatewayError    → 502 (the ledger boundary failed; reason logged, a
//	                      generic message returned)
//	anything else   → 500
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
		return
	}
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	var gwErr *ledger.GatewayError
	if errors.As(err, &gwErr) {
		logger.Error("ledger gateway failure", zap.String("method", gwErr.Method), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "ledger unavailable, retry shortly"})
		return
	}
	logger.Error("internal error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
