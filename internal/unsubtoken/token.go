// Package unsubtoken implements the signed, time-bound unsubscribe token.
// Tokens are stateless and self-verifying: the signature is an HMAC-SHA256
// over "email|scope|ts", so unsubscribe links never require a server-side
// lookup table. The 7-day TTL bounds exposure if a link leaks through a
// forwarded email archive.
package unsubtoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	ScopeAll       = "all"
	ScopeMarketing = "marketing"

	// TTLSeconds is the default validity window of a token.
	TTLSeconds int64 = 7 * 24 * 60 * 60

	// maxClockSkewSeconds tolerates issuers slightly ahead of our clock.
	maxClockSkewSeconds int64 = 300
)

var (
	ErrInvalidInput = errors.New("invalid token input")
	// ErrInvalidToken covers malformed fields, future timestamps beyond
	// skew tolerance and signature mismatches.
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// Token is the verified, normalized content of an unsubscribe link.
type Token struct {
	Email    string
	Scope    string
	IssuedAt int64
}

func validScope(scope string) bool {
	return scope == ScopeAll || scope == ScopeMarketing
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Sign computes the lowercase hex signature for the given token fields.
func Sign(secret, email, scope string, ts int64) (string, error) {
	email = normalizeEmail(email)
	if secret == "" || email == "" {
		return "", ErrInvalidInput
	}
	if !validScope(scope) {
		return "", ErrInvalidInput
	}
	if ts <= 0 {
		return "", ErrInvalidInput
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s|%s|%d", email, scope, ts)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify checks a presented token against the signing secret. It returns
// ErrExpiredToken when the issue time has fallen out of the ttl window and
// ErrInvalidToken for every other failure, without distinguishing which
// field was wrong.
//
// The signature comparison hex-decodes both sides and rejects on length
// before any byte compare, so neither encoding nor prefix length leaks
// through timing.
func Verify(secret, email, scope string, ts int64, sig string, now int64, ttl int64) (Token, error) {
	email = normalizeEmail(email)
	if secret == "" || email == "" || !validScope(scope) || ts <= 0 {
		return Token{}, ErrInvalidToken
	}
	if ts > now+maxClockSkewSeconds {
		return Token{}, ErrInvalidToken
	}
	if now-ts > ttl {
		return Token{}, ErrExpiredToken
	}

	expectedHex, err := Sign(secret, email, scope, ts)
	if err != nil {
		return Token{}, ErrInvalidToken
	}
	expected, err := hex.DecodeString(expectedHex)
	if err != nil {
		return Token{}, ErrInvalidToken
	}
	presented, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(sig)))
	if err != nil {
		return Token{}, ErrInvalidToken
	}
	if len(presented) != len(expected) {
		return Token{}, ErrInvalidToken
	}
	if subtle.ConstantTimeCompare(presented, expected) != 1 {
		return Token{}, ErrInvalidToken
	}

	return Token{Email: email, Scope: scope, IssuedAt: ts}, nil
}

// BuildURL composes the unsubscribe link for a recipient:
// {baseURL}/unsubscribe?email=...&scope=...&ts=...&sig=...
func BuildURL(baseURL, secret, email, scope string, ts int64) (string, error) {
	if strings.TrimSpace(baseURL) == "" {
		return "", ErrInvalidInput
	}
	sig, err := Sign(secret, email, scope, ts)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("email", normalizeEmail(email))
	q.Set("scope", scope)
	q.Set("ts", strconv.FormatInt(ts, 10))
	q.Set("sig", sig)

	return strings.TrimRight(baseURL, "/") + "/unsubscribe?" + q.Encode(), nil
}
