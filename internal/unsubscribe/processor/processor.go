package processor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"waitlist-server/internal/config"
	"waitlist-server/internal/observability"
	"waitlist-server/internal/privacy"
	"waitlist-server/internal/ratelimit"
	"waitlist-server/internal/unsubtoken"
)

// UnsubscribeStore defines the database operations required by Processor
type UnsubscribeStore interface {
	ApplyUnsubscribe(ctx context.Context, email, scope string) error
}

var (
	ErrInvalidSignature = errors.New("invalid unsubscribe token")
	ErrExpired          = errors.New("expired unsubscribe token")
)

type Processor struct {
	store    UnsubscribeStore
	attempts *ratelimit.Limiter
	cfg      config.WaitlistConfig
	logger   *observability.Logger
	now      func() time.Time
}

func New(store UnsubscribeStore, attempts *ratelimit.Limiter, cfg config.WaitlistConfig, logger *observability.Logger) Processor {
	return Processor{
		store:    store,
		attempts: attempts,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Request carries the raw token fields off the link plus request metadata.
// The timestamp stays a string until the token is parsed; a non-numeric ts
// is just another invalid token.
type Request struct {
	Email    string
	Scope    string
	TS       string
	Sig      string
	ClientIP string
}

// Unsubscribe verifies the signed token and applies the suppression. Token
// failures bump a purely observational invalid-attempt counter so repeated
// probing shows up in logs; they never block.
func (p *Processor) Unsubscribe(ctx context.Context, req Request) error {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "client_hash", Value: privacy.HashPrefix(req.ClientIP, p.cfg.IPSalt)},
		observability.Field{Key: "scope", Value: req.Scope},
	)

	ts, err := strconv.ParseInt(strings.TrimSpace(req.TS), 10, 64)
	if err != nil {
		p.recordInvalidAttempt(ctx, req.ClientIP)
		return ErrInvalidSignature
	}

	token, err := unsubtoken.Verify(p.cfg.UnsubscribeSecret, req.Email, req.Scope, ts, req.Sig,
		p.now().Unix(), unsubtoken.TTLSeconds)
	if err != nil {
		p.recordInvalidAttempt(ctx, req.ClientIP)
		if errors.Is(err, unsubtoken.ErrExpiredToken) {
			return ErrExpired
		}
		return ErrInvalidSignature
	}

	if err := p.store.ApplyUnsubscribe(ctx, token.Email, token.Scope); err != nil {
		p.logger.Error(ctx, "failed to apply unsubscribe", err)
		return fmt.Errorf("failed to apply unsubscribe: %w", err)
	}

	p.logger.Info(ctx, "unsubscribe applied",
		observability.Field{Key: "email_hash", Value: privacy.HashPrefix(token.Email, p.cfg.IPSalt)})
	return nil
}

func (p *Processor) recordInvalidAttempt(ctx context.Context, clientIP string) {
	key := privacy.ClientKey(clientIP, "", p.cfg.IPSalt)
	count, over := p.attempts.Count(ctx, key)
	if over {
		p.logger.Warn(ctx, "repeated invalid unsubscribe attempts",
			observability.Field{Key: "attempts", Value: count})
		return
	}
	p.logger.Info(ctx, "invalid unsubscribe attempt",
		observability.Field{Key: "attempts", Value: count})
}
