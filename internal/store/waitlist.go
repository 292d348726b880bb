package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// UpsertWaitlistParams represents parameters for recording a signup
type UpsertWaitlistParams struct {
	Email            string
	Source           string
	IPHash           string
	MarketingConsent bool
	PrivacyVersion   string
}

// UpsertResult reports what the upsert did. A duplicate signup is not an
// error; it comes back with Inserted=false.
type UpsertResult struct {
	Inserted bool `db:"inserted"`
	Updated  bool `db:"updated"`
}

const sqlUpsertWaitlist = `
SELECT inserted, updated FROM waitlist_upsert($1, $2, $3, $4, $5)
`

// UpsertWaitlist records a signup, updating consent fields when the email
// already exists.
func (s *Store) UpsertWaitlist(ctx context.Context, params UpsertWaitlistParams) (UpsertResult, error) {
	var result UpsertResult
	err := s.db.GetContext(ctx, &result, sqlUpsertWaitlist,
		params.Email,
		params.Source,
		params.IPHash,
		params.MarketingConsent,
		params.PrivacyVersion)
	if err != nil {
		return UpsertResult{}, wrapDBError("failed to upsert waitlist entry", err)
	}
	return result, nil
}

const sqlApplyUnsubscribe = `
SELECT waitlist_apply_unsubscribe($1, $2)
`

// ApplyUnsubscribe suppresses future mail for an address. Scope "all" sets
// the unsubscribed timestamp; scope "marketing" only retracts marketing
// consent. Unknown addresses are a no-op, not an error.
func (s *Store) ApplyUnsubscribe(ctx context.Context, email, scope string) error {
	if _, err := s.db.ExecContext(ctx, sqlApplyUnsubscribe, email, scope); err != nil {
		return wrapDBError("failed to apply unsubscribe", err)
	}
	return nil
}

// ListEntriesParams represents the admin listing filters
type ListEntriesParams struct {
	MarketingOnly  bool
	SubscribedOnly bool
	Source         *string
	Beta           *string
	From           *string
	To             *string
	Limit          int
	Offset         int
}

// EntryPage is one page of waitlist entries plus the filtered total.
type EntryPage struct {
	Entries    []WaitlistEntry
	TotalCount int
}

type entryRow struct {
	WaitlistEntry
	TotalCount int `db:"total_count"`
}

const sqlListEntries = `
SELECT email, source, created_at, marketing_consent, privacy_version,
       unsubscribed_at, beta_invited_at, beta_active, total_count
FROM waitlist_admin_list($1, $2, $3, $4, $5, $6, $7, $8)
`

// ListEntries returns a filtered page of waitlist entries. The RPC carries
// the filtered total in every row via a window count.
func (s *Store) ListEntries(ctx context.Context, params ListEntriesParams) (EntryPage, error) {
	var rows []entryRow
	err := s.db.SelectContext(ctx, &rows, sqlListEntries,
		params.MarketingOnly,
		params.SubscribedOnly,
		params.Source,
		params.Beta,
		params.From,
		params.To,
		params.Limit,
		params.Offset)
	if err != nil {
		return EntryPage{}, wrapDBError("failed to list waitlist entries", err)
	}

	page := EntryPage{Entries: make([]WaitlistEntry, 0, len(rows))}
	for _, row := range rows {
		page.Entries = append(page.Entries, row.WaitlistEntry)
		page.TotalCount = row.TotalCount
	}
	return page, nil
}

// ListSegment returns one page of entries matching a campaign segment plus
// the segment total, using the same RPC as the admin listing.
func (s *Store) ListSegment(ctx context.Context, segment Segment, limit, offset int) ([]WaitlistEntry, int, error) {
	page, err := s.ListEntries(ctx, ListEntriesParams{
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
		return nil, 0, err
	}
	return page.Entries, page.TotalCount, nil
}

const sqlStats = `
SELECT total, marketing_opt_in, unsubscribed, last_7_days, beta_invited, beta_active
FROM waitlist_admin_stats()
`

// Stats returns the aggregate waitlist snapshot.
func (s *Store) Stats(ctx context.Context) (WaitlistStats, error) {
	var stats WaitlistStats
	if err := s.db.GetContext(ctx, &stats, sqlStats); err != nil {
		return WaitlistStats{}, wrapDBError("failed to load waitlist stats", err)
	}
	return stats, nil
}

const sqlInviteBetaEmails = `
SELECT waitlist_admin_invite_beta_emails($1)
`

// InviteBetaEmails marks the given addresses beta-invited and returns how
// many rows were newly invited.
func (s *Store) InviteBetaEmails(ctx context.Context, emails []string) (int, error) {
	var invited int
	if err := s.db.GetContext(ctx, &invited, sqlInviteBetaEmails, emails); err != nil {
		return 0, wrapDBError("failed to invite beta emails", err)
	}
	return invited, nil
}

const sqlInviteBetaSegment = `
SELECT waitlist_admin_invite_beta_segment($1, $2, $3, $4, $5, $6)
`

// InviteBetaSegment marks every entry matching the segment beta-invited.
func (s *Store) InviteBetaSegment(ctx context.Context, segment Segment) (int, error) {
	var invited int
	err := s.db.GetContext(ctx, &invited, sqlInviteBetaSegment,
		segment.MarketingOnly,
		segment.SubscribedOnly,
		segment.Source,
		segment.Beta,
		segment.From,
		segment.To)
	if err != nil {
		return 0, wrapDBError("failed to invite beta segment", err)
	}
	return invited, nil
}

const sqlSetBetaActive = `
SELECT waitlist_admin_set_beta_active($1, $2)
`

// SetBetaActive flips the beta-active flag for an address.
func (s *Store) SetBetaActive(ctx context.Context, email string, active bool) error {
	var updated bool
	if err := s.db.GetContext(ctx, &updated, sqlSetBetaActive, email, active); err != nil {
		return wrapDBError("failed to set beta active", err)
	}
	if !updated {
		return ErrNotFound
	}
	return nil
}

// wrapDBError maps row-absence to ErrNotFound and constraint violations to
// ErrInvalidInput so callers never inspect driver error strings.
func wrapDBError(msg string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 && pgErr.Code[:2] == "23" {
		return fmt.Errorf("%s: %s: %w", msg, pgErr.Code, ErrInvalidInput)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
