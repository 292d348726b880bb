package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waitlist-server/internal/observability"
)

func newTestStore(t *testing.T) (Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(sqlx.NewDb(db, "pgx"), observability.NewLogger()), mock
}

func TestUpsertWaitlist(t *testing.T) {
	t.Run("new signup", func(t *testing.T) {
		store, mock := newTestStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT inserted, updated FROM waitlist_upsert($1, $2, $3, $4, $5)")).
			WithArgs("a@example.com", "landing", "abc123hash", true, "2026-02-25").
			WillReturnRows(sqlmock.NewRows([]string{"inserted", "updated"}).AddRow(true, false))

		result, err := store.UpsertWaitlist(context.Background(), UpsertWaitlistParams{
			Email:            "a@example.com",
			Source:           "landing",
			IPHash:           "abc123hash",
			MarketingConsent: true,
			PrivacyVersion:   "2026-02-25",
		})
		require.NoError(t, err)
		assert.True(t, result.Inserted)
		assert.False(t, result.Updated)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate signup reports updated", func(t *testing.T) {
		store, mock := newTestStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM waitlist_upsert")).
			WillReturnRows(sqlmock.NewRows([]string{"inserted", "updated"}).AddRow(false, true))

		result, err := store.UpsertWaitlist(context.Background(), UpsertWaitlistParams{Email: "a@example.com"})
		require.NoError(t, err)
		assert.False(t, result.Inserted)
		assert.True(t, result.Updated)
	})

	t.Run("constraint violation maps to ErrInvalidInput", func(t *testing.T) {
		store, mock := newTestStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM waitlist_upsert")).
			WillReturnError(&pgconn.PgError{Code: "23514"})

		_, err := store.UpsertWaitlist(context.Background(), UpsertWaitlistParams{Email: "bad"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestApplyUnsubscribe(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectExec(regexp.QuoteMeta("SELECT waitlist_apply_unsubscribe($1, $2)")).
		WithArgs("a@example.com", "marketing").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.ApplyUnsubscribe(context.Background(), "a@example.com", "marketing")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEntries(t *testing.T) {
	store, mock := newTestStore(t)
	created := time.Date(2026, 2, 25, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"email", "source", "created_at", "marketing_consent", "privacy_version",
		"unsubscribed_at", "beta_invited_at", "beta_active", "total_count",
	}).
		AddRow("a@example.com", "landing", created, true, "2026-02-25", nil, nil, false, 2).
		AddRow("b@example.com", "landing", created, false, "2026-02-25", nil, nil, false, 2)

	mock.ExpectQuery(regexp.QuoteMeta("FROM waitlist_admin_list")).
		WillReturnRows(rows)

	page, err := store.ListEntries(context.Background(), ListEntriesParams{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, "a@example.com", page.Entries[0].Email)
	assert.True(t, page.Entries[0].MarketingConsent)
}

func TestListEntriesEmpty(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM waitlist_admin_list")).
		WillReturnRows(sqlmock.NewRows([]string{
			"email", "source", "created_at", "marketing_consent", "privacy_version",
			"unsubscribed_at", "beta_invited_at", "beta_active", "total_count",
		}))

	page, err := store.ListEntries(context.Background(), ListEntriesParams{Limit: 50})
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
	assert.Zero(t, page.TotalCount)
}

func TestStats(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM waitlist_admin_stats()")).
		WillReturnRows(sqlmock.NewRows([]string{
			"total", "marketing_opt_in", "unsubscribed", "last_7_days", "beta_invited", "beta_active",
		}).AddRow(120, 80, 5, 14, 30, 12))

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 120, stats.Total)
	assert.Equal(t, 80, stats.MarketingOptIn)
	assert.Equal(t, 5, stats.Unsubscribed)
	assert.Equal(t, 14, stats.Last7Days)
	assert.Equal(t, 30, stats.BetaInvited)
	assert.Equal(t, 12, stats.BetaActive)
}

func TestInviteBetaEmails(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT waitlist_admin_invite_beta_emails($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"waitlist_admin_invite_beta_emails"}).AddRow(3))

	invited, err := store.InviteBetaEmails(context.Background(), []string{"a@example.com", "b@example.com", "c@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 3, invited)
}

func TestSetBetaActive(t *testing.T) {
	t.Run("updates existing entry", func(t *testing.T) {
		store, mock := newTestStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT waitlist_admin_set_beta_active($1, $2)")).
			WithArgs("a@example.com", true).
			WillReturnRows(sqlmock.NewRows([]string{"waitlist_admin_set_beta_active"}).AddRow(true))

		assert.NoError(t, store.SetBetaActive(context.Background(), "a@example.com", true))
	})

	t.Run("unknown email maps to ErrNotFound", func(t *testing.T) {
		store, mock := newTestStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT waitlist_admin_set_beta_active($1, $2)")).
			WillReturnRows(sqlmock.NewRows([]string{"waitlist_admin_set_beta_active"}).AddRow(false))

		err := store.SetBetaActive(context.Background(), "ghost@example.com", true)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
