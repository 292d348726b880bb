package processor

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waitlist-server/internal/config"
	"waitlist-server/internal/observability"
	"waitlist-server/internal/ratelimit"
	"waitlist-server/internal/unsubtoken"
)

type fakeStore struct {
	calls []struct{ email, scope string }
	err   error
}

func (f *fakeStore) ApplyUnsubscribe(_ context.Context, email, scope string) error {
	f.calls = append(f.calls, struct{ email, scope string }{email, scope})
	return f.err
}

const testSecret = "signing-secret"

var testNow = time.Date(2026, 2, 25, 12, 0, 0, 0, time.UTC)

func newProcessor(st *fakeStore) Processor {
	logger := observability.NewLogger()
	attempts := ratelimit.NewLimiter(ratelimit.NewMemoryCounter(10*time.Minute), 12, logger)
	cfg := config.WaitlistConfig{IPSalt: "pepper", UnsubscribeSecret: testSecret}
	p := New(st, attempts, cfg, logger)
	p.now = func() time.Time { return testNow }
	return p
}

func signedRequest(t *testing.T, email, scope string, ts int64) Request {
	t.Helper()
	sig, err := unsubtoken.Sign(testSecret, email, scope, ts)
	require.NoError(t, err)
	return Request{
		Email:    email,
		Scope:    scope,
		TS:       strconv.FormatInt(ts, 10),
		Sig:      sig,
		ClientIP: "203.0.113.9",
	}
}

func TestUnsubscribeSuccess(t *testing.T) {
	st := &fakeStore{}
	p := newProcessor(st)

	err := p.Unsubscribe(context.Background(), signedRequest(t, "a@example.com", unsubtoken.ScopeMarketing, testNow.Unix()-60))
	require.NoError(t, err)
	require.Len(t, st.calls, 1)
	assert.Equal(t, "a@example.com", st.calls[0].email)
	assert.Equal(t, unsubtoken.ScopeMarketing, st.calls[0].scope)
}

func TestUnsubscribeScopeAll(t *testing.T) {
	st := &fakeStore{}
	p := newProcessor(st)

	err := p.Unsubscribe(context.Background(), signedRequest(t, "a@example.com", unsubtoken.ScopeAll, testNow.Unix()))
	require.NoError(t, err)
	require.Len(t, st.calls, 1)
	assert.Equal(t, unsubtoken.ScopeAll, st.calls[0].scope)
}

func TestUnsubscribeInvalidToken(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{name: "tampered signature", mutate: func(r *Request) { r.Sig = "deadbeef" + r.Sig[8:] }},
		{name: "wrong scope for signature", mutate: func(r *Request) { r.Scope = unsubtoken.ScopeAll }},
		{name: "non numeric timestamp", mutate: func(r *Request) { r.TS = "not-a-number" }},
		{name: "unknown scope", mutate: func(r *Request) { r.Scope = "promotional" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &fakeStore{}
			p := newProcessor(st)

			req := signedRequest(t, "a@example.com", unsubtoken.ScopeMarketing, testNow.Unix())
			tt.mutate(&req)

			err := p.Unsubscribe(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidSignature)
			assert.Empty(t, st.calls)
		})
	}
}

func TestUnsubscribeExpiredToken(t *testing.T) {
	st := &fakeStore{}
	p := newProcessor(st)

	ts := testNow.Unix() - unsubtoken.TTLSeconds - 1
	err := p.Unsubscribe(context.Background(), signedRequest(t, "a@example.com", unsubtoken.ScopeMarketing, ts))
	assert.ErrorIs(t, err, ErrExpired)
	assert.Empty(t, st.calls)
}

func TestUnsubscribeStoreFailure(t *testing.T) {
	st := &fakeStore{err: assert.AnError}
	p := newProcessor(st)

	err := p.Unsubscribe(context.Background(), signedRequest(t, "a@example.com", unsubtoken.ScopeMarketing, testNow.Unix()))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidSignature)
	assert.NotErrorIs(t, err, ErrExpired)
}

func TestInvalidAttemptsNeverBlock(t *testing.T) {
	st := &fakeStore{}
	p := newProcessor(st)
	ctx := context.Background()

	bad := signedRequest(t, "a@example.com", unsubtoken.ScopeMarketing, testNow.Unix())
	bad.Sig = "0000000000000000000000000000000000000000000000000000000000000000"

	// Far past the observational cap of 12; a valid token must still work.
	for i := 0; i < 20; i++ {
		err := p.Unsubscribe(ctx, bad)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	}

	err := p.Unsubscribe(ctx, signedRequest(t, "a@example.com", unsubtoken.ScopeMarketing, testNow.Unix()))
	assert.NoError(t, err)
}
