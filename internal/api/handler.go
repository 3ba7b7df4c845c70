package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"BulletScreen/internal/domain"
	"BulletScreen/internal/logging"
	"BulletScreen/internal/usecase"
)

// BulletScreenService is the pipeline as seen by the HTTP layer.
type BulletScreenService interface {
	Run(ctx context.Context, pageURL string) ([]domain.Comment, error)
}

type bulletScreenRequest struct {
	StrURL string `json:"str_url" binding:"required"`
}

// Handler serves the bullet screen route.
type Handler struct {
	service BulletScreenService
	logger  *slog.Logger
}

// NewHandler wires the pipeline into gin handlers.
func NewHandler(service BulletScreenService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{service: service, logger: logger}
}

// BulletScreen answers POST /bulletscreen. Success is the JSON envelope;
// failures are plain-text messages with a 400 or 502 status.
func (h *Handler) BulletScreen(c *gin.Context) {
	var req bulletScreenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("invalid request body", "error", err)
		c.String(http.StatusBadRequest, usecase.MessageMalformedInput)
		return
	}

	comments, err := h.service.Run(c.Request.Context(), req.StrURL)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, domain.ErrMalformedInput) {
			status = http.StatusBadRequest
		}
		h.logger.Warn("bullet screen request failed", "url", req.StrURL, "status", status, "error", err)
		c.String(status, usecase.FailureMessage(err))
		return
	}

	body, err := usecase.EncodeComments(comments)
	if err != nil {
		h.logger.Error("encode response", "error", err)
		c.String(http.StatusInternalServerError, usecase.MessageTransport)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
