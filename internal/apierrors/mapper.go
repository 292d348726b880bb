package apierrors

import (
	"errors"

	adminProcessor "waitlist-server/internal/admin/processor"
	campaignProcessor "waitlist-server/internal/campaigns/processor"
	"waitlist-server/internal/guard"
	"waitlist-server/internal/store"
	waitlistProcessor "waitlist-server/internal/waitlist/processor"
)

// MapError converts domain/processor errors to APIErrors. All error mapping
// lives here so every endpoint answers with the same envelope for the same
// failure.
//
// If the error is already an APIError it is returned as-is; unknown errors
// become a sanitized 500.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	// Transport-level guards
	case errors.Is(err, guard.ErrForbiddenOrigin):
		return Forbidden(CodeForbiddenOrigin)

	case errors.Is(err, guard.ErrUnsupportedMedia):
		return UnsupportedMedia()

	case errors.Is(err, guard.ErrPayloadTooLarge):
		return PayloadTooLarge()

	case errors.Is(err, guard.ErrMalformedBody):
		return BadRequest(CodeInvalidRequest)

	// Waitlist submission pipeline
	case errors.Is(err, waitlistProcessor.ErrInvalidRequest):
		return BadRequest(CodeInvalidRequest)

	case errors.Is(err, waitlistProcessor.ErrAgeRequired):
		return BadRequest(CodeAgeRequired)

	case errors.Is(err, waitlistProcessor.ErrPrivacyRequired):
		return BadRequest(CodePrivacyRequired)

	case errors.Is(err, waitlistProcessor.ErrRateLimited):
		return TooManyRequests()

	case errors.Is(err, waitlistProcessor.ErrBotSuspected):
		return Forbidden(CodeBotSuspected)

	// Admin list/stats/beta
	case errors.Is(err, adminProcessor.ErrInvalidRequest):
		return BadRequest(CodeInvalidRequest)

	// Campaign engine
	case errors.Is(err, campaignProcessor.ErrInvalidRequest):
		return BadRequest(CodeInvalidRequest)

	case errors.Is(err, campaignProcessor.ErrCampaignNotFound):
		return NotFound()

	// Store
	case errors.Is(err, store.ErrInvalidInput):
		return BadRequest(CodeInvalidRequest)

	case errors.Is(err, store.ErrNotFound):
		return NotFound()

	default:
		return InternalError()
	}
}
