package turnstile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"waitlist-server/internal/observability"
)

const defaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

var (
	ErrInvalidToken     = errors.New("invalid challenge token")
	ErrVerificationFail = errors.New("challenge verification failed")
)

// VerifyResponse represents the response from the Cloudflare Turnstile API
type VerifyResponse struct {
	Success     bool     `json:"success"`
	ErrorCodes  []string `json:"error-codes,omitempty"`
	ChallengeTS string   `json:"challenge_ts,omitempty"`
	Hostname    string   `json:"hostname,omitempty"`
}

// Client handles Cloudflare Turnstile verification
type Client struct {
	secretKey  string
	verifyURL  string
	httpClient *http.Client
	logger     *observability.Logger
}

// NewClient creates a new Turnstile verification client
func NewClient(secretKey string, logger *observability.Logger) *Client {
	return &Client{
		secretKey: secretKey,
		verifyURL: defaultVerifyURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// WithVerifyURL overrides the verification endpoint, used by tests.
func (c *Client) WithVerifyURL(verifyURL string) *Client {
	c.verifyURL = verifyURL
	return c
}

// Verify validates a challenge token against Cloudflare.
// Returns nil if valid, error otherwise.
func (c *Client) Verify(ctx context.Context, token string, remoteIP string) error {
	if token == "" {
		return ErrInvalidToken
	}

	form := url.Values{}
	form.Set("secret", c.secretKey)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		c.logger.Error(ctx, "failed to create turnstile request", err)
		return fmt.Errorf("failed to create verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error(ctx, "failed to call turnstile API", err)
		return fmt.Errorf("failed to verify challenge: %w", err)
	}
	defer resp.Body.Close()

	var verifyResp VerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&verifyResp); err != nil {
		c.logger.Error(ctx, "failed to parse turnstile response", err)
		return fmt.Errorf("failed to parse verification response: %w", err)
	}

	if !verifyResp.Success {
		c.logger.Info(ctx, "turnstile verification failed",
			observability.Field{Key: "error_codes", Value: verifyResp.ErrorCodes})
		return ErrVerificationFail
	}

	return nil
}

// IsEnabled returns true if the client has a secret key configured
func (c *Client) IsEnabled() bool {
	return c != nil && c.secretKey != ""
}
