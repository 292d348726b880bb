package mail

import (
	"context"
	"fmt"

	"github.com/resendlabs/resend-go"

	"waitlist-server/internal/observability"
)

// ResendClient sends mail through the Resend API.
type ResendClient struct {
	client *resend.Client
	logger *observability.Logger
}

func NewResendClient(apiKey string, logger *observability.Logger) (*ResendClient, error) {
	client := resend.NewClient(apiKey)
	if client == nil {
		return nil, fmt.Errorf("failed to create Resend client")
	}

	return &ResendClient{
		client: client,
		logger: logger,
	}, nil
}

// SendEmail sends one message and returns the provider message id.
func (c *ResendClient) SendEmail(ctx context.Context, from, to, subject, textContent, htmlContent string) (string, error) {
	params := &resend.SendEmailRequest{
		From:    from,
		To:      []string{to},
		Subject: subject,
		Text:    textContent,
		Html:    htmlContent,
	}

	res, err := c.client.Emails.Send(params)
	if err != nil {
		c.logger.Error(ctx, "failed to send email", err)
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	c.logger.Info(ctx, "email sent", observability.Field{Key: "message_id", Value: res.Id})
	return res.Id, nil
}
