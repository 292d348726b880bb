package processor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	campaigns "waitlist-server/internal/campaigns/processor"
	"waitlist-server/internal/observability"
	"waitlist-server/internal/store"
)

// AdminStore defines the database operations required by AdminProcessor
type AdminStore interface {
	ListEntries(ctx context.Context, params store.ListEntriesParams) (store.EntryPage, error)
	Stats(ctx context.Context) (store.WaitlistStats, error)
	InviteBetaEmails(ctx context.Context, emails []string) (int, error)
	InviteBetaSegment(ctx context.Context, segment store.Segment) (int, error)
	SetBetaActive(ctx context.Context, email string, active bool) error
}

var ErrInvalidRequest = errors.New("invalid admin request")

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	maxEmailLen      = 320
	maxListLimit     = 500
	defaultListLimit = 50
	maxInviteEmails  = 500
)

type AdminProcessor struct {
	store  AdminStore
	logger *observability.Logger
}

func New(adminStore AdminStore, logger *observability.Logger) AdminProcessor {
	return AdminProcessor{
		store:  adminStore,
		logger: logger,
	}
}

// ListRequest carries the admin listing filters as they arrive on the wire.
type ListRequest struct {
	Segment campaigns.SegmentInput
	Limit   int
	Offset  int
}

// List returns a filtered page of waitlist entries. Filters normalize the
// same way campaign segments do; out-of-range paging falls back to defaults
// instead of erroring.
func (p *AdminProcessor) List(ctx context.Context, req ListRequest) (store.EntryPage, error) {
	segment := campaigns.NormalizeSegment(req.Segment, store.Segment{})

	limit := req.Limit
	if limit < 1 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	page, err := p.store.ListEntries(ctx, store.ListEntriesParams{
		MarketingOnly:  segment.MarketingOnly,
		SubscribedOnly: segment.SubscribedOnly,
		Source:         segment.Source,
		Beta:           segment.Beta,
		From:           segment.From,
		To:             segment.To,
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		return store.EntryPage{}, fmt.Errorf("failed to list entries: %w", err)
	}
	return page, nil
}

// Stats returns the aggregate waitlist snapshot.
func (p *AdminProcessor) Stats(ctx context.Context) (store.WaitlistStats, error) {
	stats, err := p.store.Stats(ctx)
	if err != nil {
		return store.WaitlistStats{}, fmt.Errorf("failed to load stats: %w", err)
	}
	return stats, nil
}

// InviteBetaRequest names recipients either explicitly or by segment.
// Exactly one of the two must be provided.
type InviteBetaRequest struct {
	Emails  []string
	Segment *campaigns.SegmentInput
}

// InviteBeta marks entries beta-invited and returns how many rows were
// newly invited. Explicit addresses are normalized and deduplicated; a
// single bad address rejects the whole request so a typo is never silently
// dropped.
func (p *AdminProcessor) InviteBeta(ctx context.Context, req InviteBetaRequest) (int, error) {
	if len(req.Emails) > 0 {
		emails, err := normalizeEmails(req.Emails)
		if err != nil {
			p.logger.Info(ctx, "beta invite rejected: bad email list")
			return 0, err
		}

		invited, err := p.store.InviteBetaEmails(ctx, emails)
		if err != nil {
			return 0, fmt.Errorf("failed to invite beta emails: %w", err)
		}
		p.logger.Info(ctx, "beta invites applied",
			observability.Field{Key: "requested", Value: len(emails)},
			observability.Field{Key: "invited", Value: invited},
		)
		return invited, nil
	}

	if req.Segment == nil {
		return 0, ErrInvalidRequest
	}

	segment := campaigns.NormalizeSegment(*req.Segment, store.Segment{})
	invited, err := p.store.InviteBetaSegment(ctx, segment)
	if err != nil {
		return 0, fmt.Errorf("failed to invite beta segment: %w", err)
	}
	p.logger.Info(ctx, "beta invites applied",
		observability.Field{Key: "invited", Value: invited},
	)
	return invited, nil
}

// SetBetaActive flips the beta-active flag for a single address.
// store.ErrNotFound passes through so the endpoint can answer 404.
func (p *AdminProcessor) SetBetaActive(ctx context.Context, email string, active bool) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(email) > maxEmailLen || !emailPattern.MatchString(email) {
		return ErrInvalidRequest
	}

	if err := p.store.SetBetaActive(ctx, email, active); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to set beta active: %w", err)
	}
	return nil
}

func normalizeEmails(raw []string) ([]string, error) {
	if len(raw) > maxInviteEmails {
		return nil, ErrInvalidRequest
	}

	seen := make(map[string]struct{}, len(raw))
	emails := make([]string, 0, len(raw))
	for _, addr := range raw {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" || len(addr) > maxEmailLen || !emailPattern.MatchString(addr) {
			return nil, ErrInvalidRequest
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		emails = append(emails, addr)
	}

	if len(emails) == 0 {
		return nil, ErrInvalidRequest
	}
	return emails, nil
}
