package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"waitlist-server/internal/admin/processor"
	"waitlist-server/internal/apierrors"
	campaigns "waitlist-server/internal/campaigns/processor"
	"waitlist-server/internal/guard"
	"waitlist-server/internal/observability"
	"waitlist-server/internal/store"
)

// maxBodyBytes caps admin payloads; invite lists can run long.
const maxBodyBytes = 64 << 10

type Handler struct {
	processor processor.AdminProcessor
	logger    *observability.Logger
}

func New(processor processor.AdminProcessor, logger *observability.Logger) Handler {
	return Handler{
		processor: processor,
		logger:    logger,
	}
}

// ListResponse represents the success envelope of GET /api/admin/waitlist
type ListResponse struct {
	Status     string                `json:"status"`
	Entries    []store.WaitlistEntry `json:"entries"`
	TotalCount int                   `json:"total_count"`
}

// HandleList handles GET /api/admin/waitlist. Filters arrive as query
// parameters and normalize exactly like campaign segments.
func (h *Handler) HandleList(c *gin.Context) {
	ctx := c.Request.Context()

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	page, err := h.processor.List(ctx, processor.ListRequest{
		Segment: segmentFromQuery(c),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	entries := page.Entries
	if entries == nil {
		entries = []store.WaitlistEntry{}
	}

	c.JSON(http.StatusOK, ListResponse{
		Status:     "ok",
		Entries:    entries,
		TotalCount: page.TotalCount,
	})
}

// StatsResponse represents the success envelope of GET /api/admin/stats
type StatsResponse struct {
	Status string              `json:"status"`
	Stats  store.WaitlistStats `json:"stats"`
}

// HandleStats handles GET /api/admin/stats
func (h *Handler) HandleStats(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := h.processor.Stats(ctx)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, StatsResponse{Status: "ok", Stats: stats})
}

// InviteBetaRequest represents the HTTP payload of POST /api/admin/beta/invite
type InviteBetaRequest struct {
	Emails  []string                `json:"emails"`
	Segment *campaigns.SegmentInput `json:"segment"`
}

// InviteBetaResponse represents the success envelope of a beta invite
type InviteBetaResponse struct {
	Status  string `json:"status"`
	Invited int    `json:"invited"`
}

// HandleInviteBeta handles POST /api/admin/beta/invite
func (h *Handler) HandleInviteBeta(c *gin.Context) {
	ctx := c.Request.Context()

	var req InviteBetaRequest
	if err := guard.DecodeJSON(c, maxBodyBytes, &req); err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	invited, err := h.processor.InviteBeta(ctx, processor.InviteBetaRequest{
		Emails:  req.Emails,
		Segment: req.Segment,
	})
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, InviteBetaResponse{Status: "ok", Invited: invited})
}

// SetBetaActiveRequest represents the HTTP payload of POST /api/admin/beta/set-active
type SetBetaActiveRequest struct {
	Email  string `json:"email"`
	Active *bool  `json:"active"`
}

// SetBetaActiveResponse represents the success envelope of a beta activation
type SetBetaActiveResponse struct {
	Status string `json:"status"`
	Email  string `json:"email"`
	Active bool   `json:"active"`
}

// HandleSetBetaActive handles POST /api/admin/beta/set-active. An omitted
// "active" defaults to true, so the common activation call stays short.
func (h *Handler) HandleSetBetaActive(c *gin.Context) {
	ctx := c.Request.Context()

	var req SetBetaActiveRequest
	if err := guard.DecodeJSON(c, maxBodyBytes, &req); err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	if err := h.processor.SetBetaActive(ctx, req.Email, active); err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SetBetaActiveResponse{
		Status: "ok",
		Email:  req.Email,
		Active: active,
	})
}

func segmentFromQuery(c *gin.Context) campaigns.SegmentInput {
	var seg campaigns.SegmentInput

	if raw, ok := c.GetQuery("marketing_only"); ok {
		if v, err := strconv.ParseBool(raw); err == nil {
			seg.MarketingOnly = &v
		}
	}
	if raw, ok := c.GetQuery("subscribed_only"); ok {
		if v, err := strconv.ParseBool(raw); err == nil {
			seg.SubscribedOnly = &v
		}
	}
	if raw, ok := c.GetQuery("source"); ok {
		seg.Source = &raw
	}
	if raw, ok := c.GetQuery("beta"); ok {
		seg.Beta = &raw
	}
	if raw, ok := c.GetQuery("from"); ok {
		seg.From = &raw
	}
	if raw, ok := c.GetQuery("to"); ok {
		seg.To = &raw
	}
	return seg
}
