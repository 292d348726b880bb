package processor

import (
	"regexp"
	"strings"

	"waitlist-server/internal/store"
)

// SegmentInput is the raw, untrusted filter as submitted by the admin UI.
// Normalization is permissive: malformed values fall back to "unfiltered"
// instead of rejecting the whole request.
type SegmentInput struct {
	MarketingOnly  *bool   `json:"marketing_only"`
	SubscribedOnly *bool   `json:"subscribed_only"`
	Source         *string `json:"source"`
	Beta           *string `json:"beta"`
	From           *string `json:"from"`
	To             *string `json:"to"`
}

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

const maxSourceFilterLen = 64

// NormalizeSegment coerces arbitrary input into a well-typed segment.
// Unset booleans take the given defaults; bad dates and unknown beta values
// become nil.
func NormalizeSegment(input SegmentInput, defaults store.Segment) store.Segment {
	seg := defaults

	if input.MarketingOnly != nil {
		seg.MarketingOnly = *input.MarketingOnly
	}
	if input.SubscribedOnly != nil {
		seg.SubscribedOnly = *input.SubscribedOnly
	}

	seg.Source = nil
	if input.Source != nil {
		if source := strings.TrimSpace(*input.Source); source != "" && len(source) <= maxSourceFilterLen {
			seg.Source = &source
		}
	}

	seg.Beta = nil
	if input.Beta != nil {
		switch beta := strings.ToLower(strings.TrimSpace(*input.Beta)); beta {
		case store.BetaInvited, store.BetaActive, store.BetaNone:
			b := beta
			seg.Beta = &b
		}
	}

	seg.From = normalizeDate(input.From)
	seg.To = normalizeDate(input.To)
	return seg
}

func normalizeDate(raw *string) *string {
	if raw == nil {
		return nil
	}
	date := strings.TrimSpace(*raw)
	if !datePattern.MatchString(date) {
		return nil
	}
	return &date
}

// EnforceSafety forces the outbound-send invariants regardless of caller
// input: campaigns never target non-marketing or unsubscribed addresses.
func EnforceSafety(seg store.Segment) store.Segment {
	seg.MarketingOnly = true
	seg.SubscribedOnly = true
	return seg
}

// IsRecipient reports whether a waitlist row qualifies under a segment.
// Pure predicate, no I/O.
func IsRecipient(entry store.WaitlistEntry, seg store.Segment) bool {
	// An unsubscribed entry is never a recipient, whatever else is set.
	if entry.UnsubscribedAt != nil {
		return false
	}
	if seg.MarketingOnly && !entry.MarketingConsent {
		return false
	}
	if seg.Source != nil && entry.Source != *seg.Source {
		return false
	}
	if seg.Beta != nil {
		switch *seg.Beta {
		case store.BetaInvited:
			if entry.BetaInvitedAt == nil {
				return false
			}
		case store.BetaActive:
			if !entry.BetaActive {
				return false
			}
		case store.BetaNone:
			if entry.BetaInvitedAt != nil {
				return false
			}
		}
	}
	return true
}
