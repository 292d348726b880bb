package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"waitlist-server/internal/config"
	"waitlist-server/internal/email"
	"waitlist-server/internal/observability"
	"waitlist-server/internal/store"
	"waitlist-server/internal/unsubtoken"
)

// CampaignStore defines the database operations required by CampaignProcessor
type CampaignStore interface {
	ListSegment(ctx context.Context, segment store.Segment, limit, offset int) ([]store.WaitlistEntry, int, error)
	CreateCampaign(ctx context.Context, subject, body string, segment store.Segment) (store.Campaign, error)
	AddCampaignRecipients(ctx context.Context, campaignID uuid.UUID, emails []string) (int, error)
	BeginCampaignSend(ctx context.Context, campaignID uuid.UUID) (bool, error)
	SetRecipientResult(ctx context.Context, campaignID uuid.UUID, email, status string, errorCode *string) error
	FinishCampaignSend(ctx context.Context, campaignID uuid.UUID, sent, failed int) error
	MarkCampaignFailed(ctx context.Context, campaignID uuid.UUID, reason string) error
	GetCampaign(ctx context.Context, campaignID uuid.UUID) (store.Campaign, error)
	ListCampaignRecipients(ctx context.Context, campaignID uuid.UUID, limit, offset int) (store.RecipientPage, error)
}

// EmailService defines the mail operations required by CampaignProcessor
type EmailService interface {
	SendCampaignMessage(ctx context.Context, to, subject, body, unsubscribeURL string) email.SendResult
}

var (
	ErrInvalidRequest   = errors.New("invalid campaign request")
	ErrCampaignNotFound = errors.New("campaign not found")
)

const (
	// segmentPageSize bounds memory while enumerating arbitrarily large lists.
	segmentPageSize = 500
	// sendChunkSize paces the email provider.
	sendChunkSize = 50
	previewSampleSize = 10
	maxSubjectLen     = 200
)

type CampaignProcessor struct {
	store        CampaignStore
	emailService EmailService
	cfg          config.WaitlistConfig
	logger       *observability.Logger
	now          func() time.Time
}

func New(campaignStore CampaignStore, emailService EmailService, cfg config.WaitlistConfig,
	logger *observability.Logger) CampaignProcessor {
	return CampaignProcessor{
		store:        campaignStore,
		emailService: emailService,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// CollectRecipients enumerates the deduplicated recipient emails for a
// segment, paginating the store until a short page. Safety enforcement is
// applied here as well, so no caller can reach the store with an unsafe
// segment.
func (p *CampaignProcessor) CollectRecipients(ctx context.Context, segment store.Segment) ([]string, error) {
	segment = EnforceSafety(segment)

	seen := make(map[string]struct{})
	var recipients []string

	for offset := 0; ; offset += segmentPageSize {
		entries, _, err := p.store.ListSegment(ctx, segment, segmentPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate segment: %w", err)
		}

		for _, entry := range entries {
			if !IsRecipient(entry, segment) {
				continue
			}
			if _, dup := seen[entry.Email]; dup {
				continue
			}
			seen[entry.Email] = struct{}{}
			recipients = append(recipients, entry.Email)
		}

		if len(entries) < segmentPageSize {
			return recipients, nil
		}
	}
}

// SendOutcome is the per-recipient result handed to the ResultFunc.
type SendOutcome struct {
	Status    string
	ErrorCode string
}

// ResultFunc receives each recipient's outcome before the next send starts,
// so per-recipient state is persisted even if the batch later aborts.
type ResultFunc func(ctx context.Context, recipient string, outcome SendOutcome)

// BatchResult aggregates a batch send.
type BatchResult struct {
	Sent   int
	Failed int
}

// SendBatch sends to every recipient in fixed-size chunks, sequentially
// within a chunk. One recipient's failure never aborts the batch. A missing
// unsubscribe configuration is a hard per-recipient failure: no mail goes
// out without an opt-out link.
func (p *CampaignProcessor) SendBatch(ctx context.Context, recipients []string, subject, body string, onResult ResultFunc) BatchResult {
	var result BatchResult

	for start := 0; start < len(recipients); start += sendChunkSize {
		end := start + sendChunkSize
		if end > len(recipients) {
			end = len(recipients)
		}

		for _, recipient := range recipients[start:end] {
			outcome := p.sendOne(ctx, recipient, subject, body)
			if outcome.Status == store.RecipientStatusSent {
				result.Sent++
			} else {
				result.Failed++
			}
			if onResult != nil {
				onResult(ctx, recipient, outcome)
			}
		}
	}
	return result
}

func (p *CampaignProcessor) sendOne(ctx context.Context, recipient, subject, body string) SendOutcome {
	if p.cfg.UnsubscribeSecret == "" || p.cfg.UnsubscribeBaseURL == "" {
		return SendOutcome{Status: store.RecipientStatusFailed, ErrorCode: "misconfigured_email"}
	}

	unsubURL, err := unsubtoken.BuildURL(p.cfg.UnsubscribeBaseURL, p.cfg.UnsubscribeSecret,
		recipient, unsubtoken.ScopeMarketing, p.now().Unix())
	if err != nil {
		return SendOutcome{Status: store.RecipientStatusFailed, ErrorCode: "misconfigured_email"}
	}

	sendResult := p.emailService.SendCampaignMessage(ctx, recipient, subject, body, unsubURL)
	if !sendResult.OK {
		return SendOutcome{Status: store.RecipientStatusFailed, ErrorCode: sendResult.ErrorCode}
	}
	return SendOutcome{Status: store.RecipientStatusSent}
}

// PreviewResult summarizes who a segment would reach.
type PreviewResult struct {
	RecipientCount int
	Sample         []string
	Segment        store.Segment
}

// Preview normalizes and safety-enforces a segment, then reports the
// recipient count and a small sample without sending anything.
func (p *CampaignProcessor) Preview(ctx context.Context, input SegmentInput) (PreviewResult, error) {
	segment := EnforceSafety(NormalizeSegment(input, store.Segment{}))

	entries, total, err := p.store.ListSegment(ctx, segment, previewSampleSize, 0)
	if err != nil {
		return PreviewResult{}, fmt.Errorf("failed to preview segment: %w", err)
	}

	sample := make([]string, 0, len(entries))
	for _, entry := range entries {
		if IsRecipient(entry, segment) {
			sample = append(sample, entry.Email)
		}
	}

	return PreviewResult{RecipientCount: total, Sample: sample, Segment: segment}, nil
}

// SendRequest drives a campaign send: either a fresh campaign from
// subject/body/segment, or a re-send of an existing campaign by id.
type SendRequest struct {
	CampaignID *uuid.UUID
	Subject    string
	Body       string
	Segment    SegmentInput
}

// SendResult is the outcome of a send operation.
type SendResult struct {
	CampaignID       uuid.UUID
	AlreadyProcessed bool
	Sent             int
	Failed           int
	Skipped          int
}

// Send runs the campaign state machine: draft, then sending (idempotent
// begin), then sent or failed. Recipients already marked sent are skipped,
// which is what makes re-running a partially failed campaign safe.
func (p *CampaignProcessor) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	campaign, err := p.resolveCampaign(ctx, req)
	if err != nil {
		return SendResult{}, err
	}

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "campaign_id", Value: campaign.ID.String()},
	)

	canSend, err := p.store.BeginCampaignSend(ctx, campaign.ID)
	if err != nil {
		return SendResult{}, fmt.Errorf("failed to begin send: %w", err)
	}
	if !canSend {
		p.logger.Info(ctx, "campaign already processed, not resending")
		return SendResult{CampaignID: campaign.ID, AlreadyProcessed: true}, nil
	}

	result, err := p.runSend(ctx, campaign)
	if err != nil {
		// Best-effort compensation; its own failure is swallowed so the
		// original error survives.
		if markErr := p.store.MarkCampaignFailed(ctx, campaign.ID, err.Error()); markErr != nil {
			p.logger.Error(ctx, "failed to mark campaign failed", markErr)
		}
		return SendResult{}, err
	}
	return result, nil
}

func (p *CampaignProcessor) resolveCampaign(ctx context.Context, req SendRequest) (store.Campaign, error) {
	if req.CampaignID != nil {
		campaign, err := p.store.GetCampaign(ctx, *req.CampaignID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return store.Campaign{}, ErrCampaignNotFound
			}
			return store.Campaign{}, fmt.Errorf("failed to load campaign: %w", err)
		}
		return campaign, nil
	}

	subject := strings.TrimSpace(req.Subject)
	body := strings.TrimSpace(req.Body)
	if subject == "" || len(subject) > maxSubjectLen || body == "" {
		return store.Campaign{}, ErrInvalidRequest
	}

	segment := EnforceSafety(NormalizeSegment(req.Segment, store.Segment{}))

	recipients, err := p.CollectRecipients(ctx, segment)
	if err != nil {
		return store.Campaign{}, err
	}

	campaign, err := p.store.CreateCampaign(ctx, subject, body, segment)
	if err != nil {
		return store.Campaign{}, fmt.Errorf("failed to create campaign: %w", err)
	}

	if len(recipients) > 0 {
		if _, err := p.store.AddCampaignRecipients(ctx, campaign.ID, recipients); err != nil {
			return store.Campaign{}, fmt.Errorf("failed to add recipients: %w", err)
		}
	}
	return campaign, nil
}

// runSend performs the post-begin portion. A panic escaping the batch loop
// is converted to an error so the caller still marks the campaign failed.
func (p *CampaignProcessor) runSend(ctx context.Context, campaign store.Campaign) (result SendResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("campaign send panicked: %v", r)
		}
	}()

	pending, alreadySent, err := p.pendingRecipients(ctx, campaign.ID)
	if err != nil {
		return SendResult{}, err
	}

	// A campaign created without recipients falls back to re-collecting
	// from its stored segment snapshot.
	if len(pending) == 0 && alreadySent == 0 {
		recipients, collectErr := p.CollectRecipients(ctx, campaign.Segment)
		if collectErr != nil {
			return SendResult{}, collectErr
		}
		if len(recipients) > 0 {
			if _, addErr := p.store.AddCampaignRecipients(ctx, campaign.ID, recipients); addErr != nil {
				return SendResult{}, fmt.Errorf("failed to add recipients: %w", addErr)
			}
		}
		pending = recipients
	}

	total := len(pending) + alreadySent

	batch := p.SendBatch(ctx, pending, campaign.Subject, campaign.Body, func(ctx context.Context, recipient string, outcome SendOutcome) {
		var errorCode *string
		if outcome.ErrorCode != "" {
			errorCode = &outcome.ErrorCode
		}
		if err := p.store.SetRecipientResult(ctx, campaign.ID, recipient, outcome.Status, errorCode); err != nil {
			p.logger.Error(ctx, "failed to persist recipient result", err)
		}
	})

	if err := p.store.FinishCampaignSend(ctx, campaign.ID, batch.Sent, batch.Failed); err != nil {
		return SendResult{}, fmt.Errorf("failed to finish send: %w", err)
	}

	p.logger.Info(ctx, "campaign send finished",
		observability.Field{Key: "sent", Value: batch.Sent},
		observability.Field{Key: "failed", Value: batch.Failed},
		observability.Field{Key: "skipped", Value: total - batch.Sent - batch.Failed},
	)

	return SendResult{
		CampaignID: campaign.ID,
		Sent:       batch.Sent,
		Failed:     batch.Failed,
		Skipped:    total - batch.Sent - batch.Failed,
	}, nil
}

// pendingRecipients pages through the campaign's recipient list, returning
// the emails still to send and how many were already sent on a prior run.
func (p *CampaignProcessor) pendingRecipients(ctx context.Context, campaignID uuid.UUID) ([]string, int, error) {
	var pending []string
	alreadySent := 0

	for offset := 0; ; offset += segmentPageSize {
		page, err := p.store.ListCampaignRecipients(ctx, campaignID, segmentPageSize, offset)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to list campaign recipients: %w", err)
		}

		for _, recipient := range page.Recipients {
			if recipient.Status == store.RecipientStatusSent {
				alreadySent++
				continue
			}
			pending = append(pending, recipient.Email)
		}

		if len(page.Recipients) < segmentPageSize {
			return pending, alreadySent, nil
		}
	}
}

// Get returns a campaign by id.
func (p *CampaignProcessor) Get(ctx context.Context, campaignID uuid.UUID) (store.Campaign, error) {
	campaign, err := p.store.GetCampaign(ctx, campaignID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Campaign{}, ErrCampaignNotFound
		}
		return store.Campaign{}, fmt.Errorf("failed to load campaign: %w", err)
	}
	return campaign, nil
}

// Recipients returns one page of a campaign's per-recipient outcomes.
func (p *CampaignProcessor) Recipients(ctx context.Context, campaignID uuid.UUID, limit, offset int) (store.RecipientPage, error) {
	if limit < 1 || limit > segmentPageSize {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	// Missing campaigns answer 404 rather than an empty page.
	if _, err := p.Get(ctx, campaignID); err != nil {
		return store.RecipientPage{}, err
	}

	page, err := p.store.ListCampaignRecipients(ctx, campaignID, limit, offset)
	if err != nil {
		return store.RecipientPage{}, fmt.Errorf("failed to list campaign recipients: %w", err)
	}
	return page, nil
}
