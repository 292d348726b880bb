package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"waitlist-server/internal/guard"
	"waitlist-server/internal/observability"
	"waitlist-server/internal/unsubscribe/processor"
)

// maxBodyBytes caps the POST variant's payload.
const maxBodyBytes = 2 << 10

// The unsubscribe endpoint has its own envelope: {status, error} instead of
// {status, code}, matching what the signed links have always pointed at.
const (
	errInvalidSignature = "invalid_signature"
	errExpired          = "expired"
	errServerError      = "server_error"
)

type Handler struct {
	processor processor.Processor
	logger    *observability.Logger
}

func New(processor processor.Processor, logger *observability.Logger) Handler {
	return Handler{
		processor: processor,
		logger:    logger,
	}
}

// TokenPayload is the POST body variant of the unsubscribe parameters.
type TokenPayload struct {
	Email string `json:"email"`
	Scope string `json:"scope"`
	TS    string `json:"ts"`
	Sig   string `json:"sig"`
}

// HandleGet handles GET /api/unsubscribe, the link target from emails.
func (h *Handler) HandleGet(c *gin.Context) {
	h.unsubscribe(c, processor.Request{
		Email:    c.Query("email"),
		Scope:    c.Query("scope"),
		TS:       c.Query("ts"),
		Sig:      c.Query("sig"),
		ClientIP: observability.GetRealClientIP(c),
	})
}

// HandlePost handles POST /api/unsubscribe with the token fields as JSON.
func (h *Handler) HandlePost(c *gin.Context) {
	var payload TokenPayload
	if err := guard.DecodeJSON(c, maxBodyBytes, &payload); err != nil {
		// A malformed envelope is indistinguishable from a forged link.
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": errInvalidSignature})
		return
	}

	h.unsubscribe(c, processor.Request{
		Email:    payload.Email,
		Scope:    payload.Scope,
		TS:       payload.TS,
		Sig:      payload.Sig,
		ClientIP: observability.GetRealClientIP(c),
	})
}

func (h *Handler) unsubscribe(c *gin.Context, req processor.Request) {
	ctx := c.Request.Context()

	err := h.processor.Unsubscribe(ctx, req)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	switch {
	case errors.Is(err, processor.ErrExpired):
		c.JSON(http.StatusForbidden, gin.H{"status": "error", "error": errExpired})
	case errors.Is(err, processor.ErrInvalidSignature):
		c.JSON(http.StatusForbidden, gin.H{"status": "error", "error": errInvalidSignature})
	default:
		h.logger.Error(ctx, "unsubscribe failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": errServerError})
	}
}
