package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WaitlistEntry is a single signup row as returned by the admin list and
// segment queries. The salted IP hash stays inside the database; it is
// never selected back out.
type WaitlistEntry struct {
	Email            string     `db:"email" json:"email"`
	Source           string     `db:"source" json:"source"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	MarketingConsent bool       `db:"marketing_consent" json:"marketing_consent"`
	PrivacyVersion   string     `db:"privacy_version" json:"privacy_version"`
	UnsubscribedAt   *time.Time `db:"unsubscribed_at" json:"unsubscribed_at"`
	BetaInvitedAt    *time.Time `db:"beta_invited_at" json:"beta_invited_at"`
	BetaActive       bool       `db:"beta_active" json:"beta_active"`
}

// WaitlistStats is the aggregate snapshot behind GET /api/admin/stats.
type WaitlistStats struct {
	Total          int `db:"total" json:"total"`
	MarketingOptIn int `db:"marketing_opt_in" json:"marketing_opt_in"`
	Unsubscribed   int `db:"unsubscribed" json:"unsubscribed"`
	Last7Days      int `db:"last_7_days" json:"last_7_days"`
	BetaInvited    int `db:"beta_invited" json:"beta_invited"`
	BetaActive     int `db:"beta_active" json:"beta_active"`
}

// Beta filter values accepted by Segment.Beta.
const (
	BetaInvited = "invited"
	BetaActive  = "active"
	BetaNone    = "none"
)

// Segment describes which waitlist rows qualify as campaign recipients.
// It round-trips as the JSONB snapshot stored with each campaign, so the
// date bounds stay as the YYYY-MM-DD strings they were validated as.
type Segment struct {
	MarketingOnly  bool    `json:"marketing_only"`
	SubscribedOnly bool    `json:"subscribed_only"`
	Source         *string `json:"source"`
	Beta           *string `json:"beta"`
	From           *string `json:"from"`
	To             *string `json:"to"`
}

// Value implements driver.Valuer for JSONB storage
func (s Segment) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB retrieval
func (s *Segment) Scan(value interface{}) error {
	if value == nil {
		*s = Segment{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to scan segment: unsupported type %T", value)
	}
	return json.Unmarshal(bytes, s)
}

// Campaign statuses.
const (
	CampaignStatusDraft   = "draft"
	CampaignStatusSending = "sending"
	CampaignStatusSent    = "sent"
	CampaignStatusFailed  = "failed"
)

// Campaign is a bulk send with its segment snapshot and aggregate counters.
type Campaign struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Subject    string     `db:"subject" json:"subject"`
	Body       string     `db:"body" json:"body"`
	Segment    Segment    `db:"segment" json:"segment"`
	Status     string     `db:"status" json:"status"`
	SentCount  int        `db:"sent_count" json:"sent_count"`
	FailedCount int       `db:"failed_count" json:"failed_count"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	StartedAt  *time.Time `db:"started_at" json:"started_at"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at"`
}

// Recipient statuses.
const (
	RecipientStatusPending = "pending"
	RecipientStatusSent    = "sent"
	RecipientStatusFailed  = "failed"
)

// CampaignRecipient tracks the per-recipient outcome of a campaign send.
type CampaignRecipient struct {
	Email     string     `db:"email" json:"email"`
	Status    string     `db:"status" json:"status"`
	ErrorCode *string    `db:"error_code" json:"error_code"`
	SentAt    *time.Time `db:"sent_at" json:"sent_at"`
}
