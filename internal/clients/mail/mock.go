package mail

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"waitlist-server/internal/observability"
)

// SentMessage records one message accepted by the mock client.
type SentMessage struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// MockClient accepts every message without touching a provider. It is the
// default outside production and what handler tests run against.
type MockClient struct {
	logger *observability.Logger

	mu   sync.Mutex
	sent []SentMessage
	// Fail makes every send report a provider failure.
	Fail bool
}

func NewMockClient(logger *observability.Logger) *MockClient {
	return &MockClient{logger: logger}
}

func (c *MockClient) SendEmail(ctx context.Context, from, to, subject, textContent, htmlContent string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Fail {
		return "", fmt.Errorf("mock mail client configured to fail")
	}

	c.sent = append(c.sent, SentMessage{From: from, To: to, Subject: subject, Text: textContent, HTML: htmlContent})
	c.logger.Info(ctx, "mock email accepted", observability.Field{Key: "subject", Value: subject})
	return "mock-" + uuid.New().String(), nil
}

// Sent returns a copy of every accepted message.
func (c *MockClient) Sent() []SentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SentMessage, len(c.sent))
	copy(out, c.sent)
	return out
}
