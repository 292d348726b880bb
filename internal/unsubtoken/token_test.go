package unsubtoken

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-signing-secret"

func TestSignAndVerifyRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		scope     string
		ts        int64
		wantEmail string
	}{
		{name: "marketing scope", email: "a@example.com", scope: ScopeMarketing, ts: 1700000000, wantEmail: "a@example.com"},
		{name: "all scope", email: "b@example.com", scope: ScopeAll, ts: 1700000000, wantEmail: "b@example.com"},
		{name: "email is normalized before signing", email: "  MiXeD@Example.COM ", scope: ScopeMarketing, ts: 1700000500, wantEmail: "mixed@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := Sign(testSecret, tt.email, tt.scope, tt.ts)
			require.NoError(t, err)
			assert.Equal(t, strings.ToLower(sig), sig, "signature must be lowercase hex")
			assert.Len(t, sig, 64)

			token, err := Verify(testSecret, tt.email, tt.scope, tt.ts, sig, tt.ts+60, TTLSeconds)
			require.NoError(t, err)
			assert.Equal(t, tt.wantEmail, token.Email)
			assert.Equal(t, tt.scope, token.Scope)
			assert.Equal(t, tt.ts, token.IssuedAt)
		})
	}
}

func TestSignRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		email  string
		scope  string
		ts     int64
	}{
		{name: "empty secret", secret: "", email: "a@example.com", scope: ScopeAll, ts: 1},
		{name: "empty email", secret: testSecret, email: "   ", scope: ScopeAll, ts: 1},
		{name: "unknown scope", secret: testSecret, email: "a@example.com", scope: "promotional", ts: 1},
		{name: "zero timestamp", secret: testSecret, email: "a@example.com", scope: ScopeAll, ts: 0},
		{name: "negative timestamp", secret: testSecret, email: "a@example.com", scope: ScopeAll, ts: -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Sign(tt.secret, tt.email, tt.scope, tt.ts)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestVerifySingleFlippedHexCharacterFails(t *testing.T) {
	const ts = int64(1700000000)
	sig, err := Sign(testSecret, "a@example.com", ScopeMarketing, ts)
	require.NoError(t, err)

	for i := 0; i < len(sig); i++ {
		flipped := []byte(sig)
		if flipped[i] == 'a' {
			flipped[i] = 'b'
		} else {
			flipped[i] = 'a'
		}
		if string(flipped) == sig {
			continue
		}
		_, err := Verify(testSecret, "a@example.com", ScopeMarketing, ts, string(flipped), ts+1, TTLSeconds)
		assert.ErrorIs(t, err, ErrInvalidToken, "flipped hex char at index %d must fail", i)
	}
}

func TestVerifyExpiryBoundary(t *testing.T) {
	const ts = int64(1700000000)
	sig, err := Sign(testSecret, "a@example.com", ScopeAll, ts)
	require.NoError(t, err)

	t.Run("exactly ttl old is still valid", func(t *testing.T) {
		_, err := Verify(testSecret, "a@example.com", ScopeAll, ts, sig, ts+TTLSeconds, TTLSeconds)
		assert.NoError(t, err)
	})

	t.Run("one second past ttl is expired", func(t *testing.T) {
		_, err := Verify(testSecret, "a@example.com", ScopeAll, ts, sig, ts+TTLSeconds+1, TTLSeconds)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})
}

func TestVerifyClockSkew(t *testing.T) {
	const now = int64(1700000000)

	t.Run("300s in the future is tolerated", func(t *testing.T) {
		ts := now + 300
		sig, err := Sign(testSecret, "a@example.com", ScopeMarketing, ts)
		require.NoError(t, err)
		_, err = Verify(testSecret, "a@example.com", ScopeMarketing, ts, sig, now, TTLSeconds)
		assert.NoError(t, err)
	})

	t.Run("301s in the future is invalid", func(t *testing.T) {
		ts := now + 301
		sig, err := Sign(testSecret, "a@example.com", ScopeMarketing, ts)
		require.NoError(t, err)
		_, err = Verify(testSecret, "a@example.com", ScopeMarketing, ts, sig, now, TTLSeconds)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestVerifyRejectsMalformedSignatures(t *testing.T) {
	const ts = int64(1700000000)

	tests := []struct {
		name string
		sig  string
	}{
		{name: "empty", sig: ""},
		{name: "not hex", sig: strings.Repeat("zz", 32)},
		{name: "truncated", sig: "abcd1234"},
		{name: "wrong length but valid hex", sig: strings.Repeat("ab", 16)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Verify(testSecret, "a@example.com", ScopeAll, ts, tt.sig, ts+1, TTLSeconds)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	const ts = int64(1700000000)
	sig, err := Sign(testSecret, "a@example.com", ScopeAll, ts)
	require.NoError(t, err)

	_, err = Verify("a-different-secret", "a@example.com", ScopeAll, ts, sig, ts+1, TTLSeconds)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBuildURL(t *testing.T) {
	const ts = int64(1700000000)

	raw, err := BuildURL("https://example.com/api", testSecret, "A@Example.com", ScopeMarketing, ts)
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/api/unsubscribe", parsed.Path)

	q := parsed.Query()
	assert.Equal(t, "a@example.com", q.Get("email"))
	assert.Equal(t, ScopeMarketing, q.Get("scope"))
	assert.Equal(t, "1700000000", q.Get("ts"))

	// The embedded signature must verify.
	_, err = Verify(testSecret, q.Get("email"), q.Get("scope"), ts, q.Get("sig"), ts+1, TTLSeconds)
	assert.NoError(t, err)
}

func TestBuildURLRequiresBaseURL(t *testing.T) {
	_, err := BuildURL("", testSecret, "a@example.com", ScopeMarketing, 1700000000)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
