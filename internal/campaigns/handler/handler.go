package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"waitlist-server/internal/apierrors"
	"waitlist-server/internal/campaigns/processor"
	"waitlist-server/internal/guard"
	"waitlist-server/internal/observability"
	"waitlist-server/internal/store"
)

// maxBodyBytes caps admin payloads, which carry full campaign bodies.
const maxBodyBytes = 64 << 10

type Handler struct {
	processor processor.CampaignProcessor
	logger    *observability.Logger
}

func New(processor processor.CampaignProcessor, logger *observability.Logger) Handler {
	return Handler{
		processor: processor,
		logger:    logger,
	}
}

// PreviewRequest represents the HTTP payload of POST /api/admin/campaigns/preview
type PreviewRequest struct {
	Segment processor.SegmentInput `json:"segment"`
}

// PreviewResponse represents the success envelope of a segment preview
type PreviewResponse struct {
	Status         string        `json:"status"`
	RecipientCount int           `json:"recipient_count"`
	Sample         []string      `json:"sample"`
	Segment        store.Segment `json:"segment"`
}

// HandlePreview handles POST /api/admin/campaigns/preview
func (h *Handler) HandlePreview(c *gin.Context) {
	ctx := c.Request.Context()

	var req PreviewRequest
	if err := guard.DecodeJSON(c, maxBodyBytes, &req); err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	result, err := h.processor.Preview(ctx, req.Segment)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, PreviewResponse{
		Status:         "ok",
		RecipientCount: result.RecipientCount,
		Sample:         result.Sample,
		Segment:        result.Segment,
	})
}

// SendRequest represents the HTTP payload of POST /api/admin/campaigns/send
type SendRequest struct {
	CampaignID string                 `json:"campaign_id"`
	Subject    string                 `json:"subject"`
	Body       string                 `json:"body"`
	Segment    processor.SegmentInput `json:"segment"`
}

// SendResponse represents the success envelope of a campaign send
type SendResponse struct {
	Status           string `json:"status"`
	CampaignID       string `json:"campaign_id"`
	AlreadyProcessed bool   `json:"already_processed,omitempty"`
	Sent             int    `json:"sent"`
	Failed           int    `json:"failed"`
	Skipped          int    `json:"skipped"`
}

// HandleSend handles POST /api/admin/campaigns/send
func (h *Handler) HandleSend(c *gin.Context) {
	ctx := c.Request.Context()

	var req SendRequest
	if err := guard.DecodeJSON(c, maxBodyBytes, &req); err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	sendReq := processor.SendRequest{
		Subject: req.Subject,
		Body:    req.Body,
		Segment: req.Segment,
	}
	if req.CampaignID != "" {
		campaignID, err := uuid.Parse(req.CampaignID)
		if err != nil {
			apierrors.RespondWithError(c, processor.ErrInvalidRequest)
			return
		}
		sendReq.CampaignID = &campaignID
	}

	result, err := h.processor.Send(ctx, sendReq)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SendResponse{
		Status:           "ok",
		CampaignID:       result.CampaignID.String(),
		AlreadyProcessed: result.AlreadyProcessed,
		Sent:             result.Sent,
		Failed:           result.Failed,
		Skipped:          result.Skipped,
	})
}

// CampaignResponse represents the success envelope of GET /api/admin/campaigns/:id
type CampaignResponse struct {
	Status   string         `json:"status"`
	Campaign store.Campaign `json:"campaign"`
}

// HandleGetCampaign handles GET /api/admin/campaigns/:id
func (h *Handler) HandleGetCampaign(c *gin.Context) {
	ctx := c.Request.Context()

	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.RespondWithError(c, processor.ErrInvalidRequest)
		return
	}

	campaign, err := h.processor.Get(ctx, campaignID)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, CampaignResponse{Status: "ok", Campaign: campaign})
}

// RecipientsResponse represents the success envelope of GET /api/admin/campaigns/:id/recipients
type RecipientsResponse struct {
	Status     string                    `json:"status"`
	Recipients []store.CampaignRecipient `json:"recipients"`
	TotalCount int                       `json:"total_count"`
}

// HandleListRecipients handles GET /api/admin/campaigns/:id/recipients
func (h *Handler) HandleListRecipients(c *gin.Context) {
	ctx := c.Request.Context()

	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.RespondWithError(c, processor.ErrInvalidRequest)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	page, err := h.processor.Recipients(ctx, campaignID, limit, offset)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	recipients := page.Recipients
	if recipients == nil {
		recipients = []store.CampaignRecipient{}
	}

	c.JSON(http.StatusOK, RecipientsResponse{
		Status:     "ok",
		Recipients: recipients,
		TotalCount: page.TotalCount,
	})
}
