package bootstrap

import (
	"context"
	"fmt"
	"time"

	"waitlist-server/internal/config"
	"waitlist-server/internal/email"
	"waitlist-server/internal/observability"
	"waitlist-server/internal/ratelimit"
	"waitlist-server/internal/store"

	adminHandler "waitlist-server/internal/admin/handler"
	adminProcessor "waitlist-server/internal/admin/processor"
	campaignHandler "waitlist-server/internal/campaigns/handler"
	campaignProcessor "waitlist-server/internal/campaigns/processor"
	"waitlist-server/internal/clients/mail"
	redisclient "waitlist-server/internal/clients/redis"
	"waitlist-server/internal/clients/turnstile"
	unsubscribeHandler "waitlist-server/internal/unsubscribe/handler"
	unsubscribeProcessor "waitlist-server/internal/unsubscribe/processor"
	waitlistHandler "waitlist-server/internal/waitlist/handler"
	waitlistProcessor "waitlist-server/internal/waitlist/processor"
)

// Rate-limit windows and ceilings for the public endpoints.
const (
	submitWindow       = 10 * time.Minute
	submitMax          = 8
	unsubAttemptMax    = 12
	unsubAttemptWindow = 10 * time.Minute
)

// Dependencies holds all initialized application dependencies
type Dependencies struct {
	// Core
	Store  store.Store
	Logger *observability.Logger

	// Handlers
	WaitlistHandler    waitlistHandler.Handler
	UnsubscribeHandler unsubscribeHandler.Handler
	AdminHandler       adminHandler.Handler
	CampaignHandler    campaignHandler.Handler

	// Redis client (for cleanup), nil when disabled
	RedisClient *redisclient.Client
}

// Initialize sets up all application dependencies
func Initialize(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Logger: logger,
	}

	// Initialize database store
	var err error
	deps.Store, err = store.New(cfg.Database.ConnectionString(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Initialize Redis when enabled; counters fall back to in-process
	// otherwise, which is fine for a single instance.
	deps.RedisClient, err = redisclient.NewClient(cfg.Redis, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	var submitCounter, attemptCounter ratelimit.Counter
	if deps.RedisClient.IsEnabled() {
		submitCounter = ratelimit.NewRedisCounter(deps.RedisClient.GetClient(), submitWindow, "rl:submit:")
		attemptCounter = ratelimit.NewRedisCounter(deps.RedisClient.GetClient(), unsubAttemptWindow, "rl:unsub:")
	} else {
		submitCounter = ratelimit.NewMemoryCounter(submitWindow)
		attemptCounter = ratelimit.NewMemoryCounter(unsubAttemptWindow)
	}
	submitLimiter := ratelimit.NewLimiter(submitCounter, submitMax, logger)
	attemptLimiter := ratelimit.NewLimiter(attemptCounter, unsubAttemptMax, logger)

	// Initialize mail client and email service
	var mailClient email.Client
	if cfg.Email.Provider == "resend" {
		mailClient, err = mail.NewResendClient(cfg.Email.ResendAPIKey, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create resend client: %w", err)
		}
	} else {
		mailClient = mail.NewMockClient(logger)
	}
	emailService := email.New(mailClient, cfg.Email.From, logger)

	// Initialize bot verifier; a nil client reports disabled.
	var verifier *turnstile.Client
	if cfg.Waitlist.TurnstileEnabled {
		verifier = turnstile.NewClient(cfg.Waitlist.TurnstileSecret, logger)
	}

	// Initialize waitlist processor and handler
	waitlistProc := waitlistProcessor.New(&deps.Store, emailService, submitLimiter, verifier, cfg.Waitlist, logger)
	deps.WaitlistHandler = waitlistHandler.New(waitlistProc, cfg.Waitlist, logger)

	// Initialize unsubscribe processor and handler
	unsubProc := unsubscribeProcessor.New(&deps.Store, attemptLimiter, cfg.Waitlist, logger)
	deps.UnsubscribeHandler = unsubscribeHandler.New(unsubProc, logger)

	// Initialize admin processor and handler
	adminProc := adminProcessor.New(&deps.Store, logger)
	deps.AdminHandler = adminHandler.New(adminProc, logger)

	// Initialize campaign processor and handler
	campaignProc := campaignProcessor.New(&deps.Store, emailService, cfg.Waitlist, logger)
	deps.CampaignHandler = campaignHandler.New(campaignProc, logger)

	logger.Info(ctx, "dependencies initialized",
		observability.Field{Key: "email_provider", Value: cfg.Email.Provider},
		observability.Field{Key: "redis_enabled", Value: deps.RedisClient.IsEnabled()},
		observability.Field{Key: "turnstile_enabled", Value: cfg.Waitlist.TurnstileEnabled},
	)
	return deps, nil
}

// Cleanup releases external connections.
func (d *Dependencies) Cleanup() {
	if d.RedisClient.IsEnabled() {
		_ = d.RedisClient.Close()
	}
}
