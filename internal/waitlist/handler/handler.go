package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"waitlist-server/internal/apierrors"
	"waitlist-server/internal/config"
	"waitlist-server/internal/guard"
	"waitlist-server/internal/observability"
	"waitlist-server/internal/waitlist/processor"
)

// maxBodyBytes caps the public submission payload.
const maxBodyBytes = 2 << 10

type Handler struct {
	processor processor.WaitlistProcessor
	cfg       config.WaitlistConfig
	logger    *observability.Logger
}

func New(processor processor.WaitlistProcessor, cfg config.WaitlistConfig, logger *observability.Logger) Handler {
	return Handler{
		processor: processor,
		cfg:       cfg,
		logger:    logger,
	}
}

// SubmitRequest represents the HTTP payload of POST /api/waitlist
type SubmitRequest struct {
	Email            string `json:"email"`
	Source           string `json:"source"`
	Company          string `json:"company"`
	AgeConfirmed     *bool  `json:"age_confirmed"`
	PrivacyAccepted  *bool  `json:"privacy_accepted"`
	MarketingConsent *bool  `json:"marketing_consent"`
	PrivacyVersion   string `json:"privacy_version"`
	ChallengeToken   string `json:"challenge_token"`
}

// SubmitResponse represents the success envelope of POST /api/waitlist
type SubmitResponse struct {
	Status         string `json:"status"`
	Email          string `json:"email"`
	Inserted       bool   `json:"inserted"`
	Updated        bool   `json:"updated"`
	EmailSent      bool   `json:"email_sent"`
	EmailErrorCode string `json:"email_error_code,omitempty"`
}

// HandleSubmit handles POST /api/waitlist
func (h *Handler) HandleSubmit(c *gin.Context) {
	ctx := c.Request.Context()

	if err := guard.CheckOrigin(c, h.cfg.AllowedOrigins, h.cfg.OriginSuffixes); err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	var req SubmitRequest
	if err := guard.DecodeJSON(c, maxBodyBytes, &req); err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	result, err := h.processor.Submit(ctx, processor.SubmitRequest{
		Email:            req.Email,
		Source:           req.Source,
		Company:          req.Company,
		AgeConfirmed:     req.AgeConfirmed,
		PrivacyAccepted:  req.PrivacyAccepted,
		MarketingConsent: req.MarketingConsent,
		PrivacyVersion:   req.PrivacyVersion,
		ChallengeToken:   req.ChallengeToken,
		ClientIP:         observability.GetRealClientIP(c),
		UserAgent:        c.Request.UserAgent(),
	})
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SubmitResponse{
		Status:         "ok",
		Email:          result.Email,
		Inserted:       result.Inserted,
		Updated:        result.Updated,
		EmailSent:      result.EmailSent,
		EmailErrorCode: result.EmailErrorCode,
	})
}
