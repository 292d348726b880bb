package store

import (
	"context"

	"github.com/google/uuid"
)

const campaignColumns = `id, subject, body, segment, status, sent_count, failed_count, created_at, started_at, finished_at`

const sqlCreateCampaign = `
SELECT ` + campaignColumns + ` FROM waitlist_admin_create_campaign($1, $2, $3)
`

// CreateCampaign creates a draft campaign with its segment snapshot.
func (s *Store) CreateCampaign(ctx context.Context, subject, body string, segment Segment) (Campaign, error) {
	var campaign Campaign
	if err := s.db.GetContext(ctx, &campaign, sqlCreateCampaign, subject, body, segment); err != nil {
		return Campaign{}, wrapDBError("failed to create campaign", err)
	}
	return campaign, nil
}

const sqlAddCampaignRecipients = `
SELECT waitlist_admin_campaign_add_recipients($1, $2)
`

// AddCampaignRecipients attaches pending recipients to a draft campaign and
// returns how many were added. Duplicates within the campaign are ignored.
func (s *Store) AddCampaignRecipients(ctx context.Context, campaignID uuid.UUID, emails []string) (int, error) {
	var added int
	if err := s.db.GetContext(ctx, &added, sqlAddCampaignRecipients, campaignID, emails); err != nil {
		return 0, wrapDBError("failed to add campaign recipients", err)
	}
	return added, nil
}

const sqlBeginCampaignSend = `
SELECT can_send FROM waitlist_admin_campaign_begin_send($1)
`

// BeginCampaignSend transitions a campaign to sending. The transition is
// the idempotency gate: a second caller observes can_send=false and must
// not send anything.
func (s *Store) BeginCampaignSend(ctx context.Context, campaignID uuid.UUID) (bool, error) {
	var canSend bool
	if err := s.db.GetContext(ctx, &canSend, sqlBeginCampaignSend, campaignID); err != nil {
		return false, wrapDBError("failed to begin campaign send", err)
	}
	return canSend, nil
}

const sqlSetRecipientResult = `
SELECT waitlist_admin_campaign_set_recipient_result($1, $2, $3, $4)
`

// SetRecipientResult persists one recipient's send outcome.
func (s *Store) SetRecipientResult(ctx context.Context, campaignID uuid.UUID, email, status string, errorCode *string) error {
	if _, err := s.db.ExecContext(ctx, sqlSetRecipientResult, campaignID, email, status, errorCode); err != nil {
		return wrapDBError("failed to set recipient result", err)
	}
	return nil
}

const sqlFinishCampaignSend = `
SELECT waitlist_admin_campaign_finish_send($1, $2, $3)
`

// FinishCampaignSend marks a campaign sent with its final counters.
func (s *Store) FinishCampaignSend(ctx context.Context, campaignID uuid.UUID, sent, failed int) error {
	if _, err := s.db.ExecContext(ctx, sqlFinishCampaignSend, campaignID, sent, failed); err != nil {
		return wrapDBError("failed to finish campaign send", err)
	}
	return nil
}

const sqlMarkCampaignFailed = `
SELECT waitlist_admin_campaign_mark_failed($1, $2)
`

// MarkCampaignFailed records that a send aborted mid-flight.
func (s *Store) MarkCampaignFailed(ctx context.Context, campaignID uuid.UUID, reason string) error {
	if _, err := s.db.ExecContext(ctx, sqlMarkCampaignFailed, campaignID, reason); err != nil {
		return wrapDBError("failed to mark campaign failed", err)
	}
	return nil
}

const sqlGetCampaign = `
SELECT ` + campaignColumns + ` FROM waitlist_admin_get_campaign($1)
`

// GetCampaign retrieves a campaign by ID
func (s *Store) GetCampaign(ctx context.Context, campaignID uuid.UUID) (Campaign, error) {
	var campaign Campaign
	if err := s.db.GetContext(ctx, &campaign, sqlGetCampaign, campaignID); err != nil {
		return Campaign{}, wrapDBError("failed to get campaign", err)
	}
	return campaign, nil
}

// RecipientPage is one page of campaign recipients plus the total.
type RecipientPage struct {
	Recipients []CampaignRecipient
	TotalCount int
}

type recipientRow struct {
	CampaignRecipient
	TotalCount int `db:"total_count"`
}

const sqlListCampaignRecipients = `
SELECT email, status, error_code, sent_at, total_count
FROM waitlist_admin_list_campaign_recipients($1, $2, $3)
`

// ListCampaignRecipients returns a page of per-recipient outcomes.
func (s *Store) ListCampaignRecipients(ctx context.Context, campaignID uuid.UUID, limit, offset int) (RecipientPage, error) {
	var rows []recipientRow
	err := s.db.SelectContext(ctx, &rows, sqlListCampaignRecipients, campaignID, limit, offset)
	if err != nil {
		return RecipientPage{}, wrapDBError("failed to list campaign recipients", err)
	}

	page := RecipientPage{Recipients: make([]CampaignRecipient, 0, len(rows))}
	for _, row := range rows {
		page.Recipients = append(page.Recipients, row.CampaignRecipient)
		page.TotalCount = row.TotalCount
	}
	return page, nil
}
