package processor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"waitlist-server/internal/config"
	"waitlist-server/internal/email"
	"waitlist-server/internal/observability"
	"waitlist-server/internal/privacy"
	"waitlist-server/internal/ratelimit"
	"waitlist-server/internal/store"
	"waitlist-server/internal/unsubtoken"
)

// WaitlistStore defines the database operations required by WaitlistProcessor
type WaitlistStore interface {
	UpsertWaitlist(ctx context.Context, params store.UpsertWaitlistParams) (store.UpsertResult, error)
}

// EmailService defines the mail operations required by WaitlistProcessor
type EmailService interface {
	SendWelcome(ctx context.Context, to string, marketingConsent bool, unsubscribeURL string) email.SendResult
}

// BotVerifier defines the challenge verification operations
type BotVerifier interface {
	Verify(ctx context.Context, token string, remoteIP string) error
	IsEnabled() bool
}

var (
	ErrInvalidRequest  = errors.New("invalid submission")
	ErrAgeRequired     = errors.New("age confirmation required")
	ErrPrivacyRequired = errors.New("privacy acceptance required")
	ErrRateLimited     = errors.New("rate limited")
	ErrBotSuspected    = errors.New("bot suspected")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	maxEmailLen          = 320
	maxSourceLen         = 64
	maxPrivacyVersionLen = 64
	defaultSource        = "landing"
)

type WaitlistProcessor struct {
	store        WaitlistStore
	emailService EmailService
	limiter      *ratelimit.Limiter
	verifier     BotVerifier
	cfg          config.WaitlistConfig
	logger       *observability.Logger
	now          func() time.Time
}

func New(waitlistStore WaitlistStore, emailService EmailService, limiter *ratelimit.Limiter,
	verifier BotVerifier, cfg config.WaitlistConfig, logger *observability.Logger) WaitlistProcessor {
	return WaitlistProcessor{
		store:        waitlistStore,
		emailService: emailService,
		limiter:      limiter,
		verifier:     verifier,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// SubmitRequest is the decoded signup payload plus request metadata.
// Consent booleans are pointers so an absent field is distinguishable from
// an explicit false.
type SubmitRequest struct {
	Email            string
	Source           string
	Company          string // honeypot, legitimate clients leave it empty
	AgeConfirmed     *bool
	PrivacyAccepted  *bool
	MarketingConsent *bool
	PrivacyVersion   string
	ChallengeToken   string
	ClientIP         string
	UserAgent        string
}

// SubmitResult mirrors the success envelope of POST /api/waitlist.
type SubmitResult struct {
	Email          string
	Inserted       bool
	Updated        bool
	EmailSent      bool
	EmailErrorCode string
}

// Submit runs the signup pipeline: honeypot, field validation, rate limit,
// optional bot challenge, upsert, welcome email. The transport-level checks
// (origin, content type, body size) happen in the handler before the payload
// reaches here.
func (p *WaitlistProcessor) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	ipHashPrefix := privacy.HashPrefix(req.ClientIP, p.cfg.IPSalt)
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "client_hash", Value: ipHashPrefix},
	)

	// Honeypot: answer as if everything worked and do nothing, so the
	// submitter gets no signal.
	if strings.TrimSpace(req.Company) != "" {
		p.logger.Info(ctx, "honeypot triggered, discarding submission")
		return SubmitResult{Email: "hidden", EmailSent: true}, nil
	}

	normalized, err := p.validate(ctx, req)
	if err != nil {
		return SubmitResult{}, err
	}

	key := privacy.ClientKey(req.ClientIP, req.UserAgent, p.cfg.IPSalt)
	if !p.limiter.Allow(ctx, key) {
		p.logger.Warn(ctx, "submission rate limited")
		return SubmitResult{}, ErrRateLimited
	}

	if p.verifier != nil && p.verifier.IsEnabled() {
		if err := p.verifier.Verify(ctx, req.ChallengeToken, req.ClientIP); err != nil {
			p.logger.Warn(ctx, "bot challenge failed",
				observability.Field{Key: "reason", Value: err.Error()})
			return SubmitResult{}, ErrBotSuspected
		}
	}

	var ipHash string
	if strings.TrimSpace(req.ClientIP) != "" {
		ipHash = privacy.Hash(req.ClientIP, p.cfg.IPSalt)
	}

	upsert, err := p.store.UpsertWaitlist(ctx, store.UpsertWaitlistParams{
		Email:            normalized.email,
		Source:           normalized.source,
		IPHash:           ipHash,
		MarketingConsent: normalized.marketingConsent,
		PrivacyVersion:   normalized.privacyVersion,
	})
	if err != nil {
		// Losing the signup is the one fatal outcome in this pipeline.
		p.logger.Error(ctx, "failed to store signup", err)
		return SubmitResult{}, fmt.Errorf("failed to store signup: %w", err)
	}

	result := SubmitResult{
		Email:    normalized.email,
		Inserted: upsert.Inserted,
		Updated:  upsert.Updated,
	}

	if !upsert.Inserted && !p.cfg.SendWelcomeOnDuplicate {
		p.logger.Info(ctx, "duplicate signup, welcome email skipped")
		return result, nil
	}

	result.EmailSent, result.EmailErrorCode = p.sendWelcome(ctx, normalized.email, normalized.marketingConsent)
	return result, nil
}

type normalizedSubmission struct {
	email            string
	source           string
	marketingConsent bool
	privacyVersion   string
}

func (p *WaitlistProcessor) validate(ctx context.Context, req SubmitRequest) (normalizedSubmission, error) {
	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))
	if emailAddr == "" || len(emailAddr) > maxEmailLen || !emailPattern.MatchString(emailAddr) {
		p.logger.Info(ctx, "submission rejected: bad email")
		return normalizedSubmission{}, ErrInvalidRequest
	}

	if req.AgeConfirmed == nil || !*req.AgeConfirmed {
		return normalizedSubmission{}, ErrAgeRequired
	}
	if req.PrivacyAccepted == nil || !*req.PrivacyAccepted {
		return normalizedSubmission{}, ErrPrivacyRequired
	}
	// Marketing consent must be an explicit choice either way.
	if req.MarketingConsent == nil {
		p.logger.Info(ctx, "submission rejected: marketing consent missing")
		return normalizedSubmission{}, ErrInvalidRequest
	}

	privacyVersion := strings.TrimSpace(req.PrivacyVersion)
	if privacyVersion == "" || len(privacyVersion) > maxPrivacyVersionLen {
		p.logger.Info(ctx, "submission rejected: bad privacy version")
		return normalizedSubmission{}, ErrInvalidRequest
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = defaultSource
	}
	if len(source) > maxSourceLen {
		p.logger.Info(ctx, "submission rejected: source too long")
		return normalizedSubmission{}, ErrInvalidRequest
	}

	return normalizedSubmission{
		email:            emailAddr,
		source:           source,
		marketingConsent: *req.MarketingConsent,
		privacyVersion:   privacyVersion,
	}, nil
}

// sendWelcome attempts the welcome email. Failures are soft: the signup is
// already stored and the response reports email_sent=false with a code.
func (p *WaitlistProcessor) sendWelcome(ctx context.Context, to string, marketingConsent bool) (bool, string) {
	if p.cfg.UnsubscribeSecret == "" || p.cfg.UnsubscribeBaseURL == "" {
		// Never send mail without a working opt-out link.
		p.logger.Warn(ctx, "unsubscribe config missing, welcome email not sent")
		return false, "misconfigured_email"
	}

	unsubURL, err := unsubtoken.BuildURL(p.cfg.UnsubscribeBaseURL, p.cfg.UnsubscribeSecret,
		to, unsubtoken.ScopeMarketing, p.now().Unix())
	if err != nil {
		p.logger.Error(ctx, "failed to build unsubscribe url", err)
		return false, "misconfigured_email"
	}

	result := p.emailService.SendWelcome(ctx, to, marketingConsent, unsubURL)
	if !result.OK {
		return false, result.ErrorCode
	}
	return true, ""
}
