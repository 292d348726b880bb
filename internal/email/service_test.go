package email

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waitlist-server/internal/clients/mail"
	"waitlist-server/internal/observability"
)

func newTestService() (*Service, *mail.MockClient) {
	logger := observability.NewLogger()
	client := mail.NewMockClient(logger)
	return New(client, "Waitlist <no-reply@example.com>", logger), client
}

func TestSendWelcome(t *testing.T) {
	t.Run("without marketing consent", func(t *testing.T) {
		service, client := newTestService()
		result := service.SendWelcome(context.Background(), "a@example.com", false, "https://example.com/unsubscribe?sig=x")
		assert.True(t, result.OK)

		sent := client.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "a@example.com", sent[0].To)
		assert.NotContains(t, sent[0].Text, "product updates")
		assert.Contains(t, sent[0].Text, "https://example.com/unsubscribe?sig=x")
		assert.Contains(t, sent[0].HTML, "Unsubscribe")
	})

	t.Run("with marketing consent", func(t *testing.T) {
		service, client := newTestService()
		result := service.SendWelcome(context.Background(), "a@example.com", true, "https://example.com/u")
		assert.True(t, result.OK)

		sent := client.Sent()
		require.Len(t, sent, 1)
		assert.Contains(t, sent[0].Text, "product updates")
	})

	t.Run("provider failure reports error code", func(t *testing.T) {
		service, client := newTestService()
		client.Fail = true
		result := service.SendWelcome(context.Background(), "a@example.com", false, "https://example.com/u")
		assert.False(t, result.OK)
		assert.Equal(t, ErrorCodeProvider, result.ErrorCode)
	})
}

func TestRenderCampaignBody(t *testing.T) {
	body := "Hello there!\n\nWe just shipped <v2>.\nIt is faster.\n\nThanks for waiting."
	text, htmlBody := RenderCampaignBody(body, "https://example.com/unsub?a=1&b=2")

	t.Run("text keeps the body and appends the unsubscribe link", func(t *testing.T) {
		assert.True(t, strings.HasPrefix(text, "Hello there!"))
		assert.Contains(t, text, "Unsubscribe: https://example.com/unsub?a=1&b=2")
	})

	t.Run("html splits paragraphs and escapes content", func(t *testing.T) {
		assert.Contains(t, htmlBody, "<p>Hello there!</p>")
		assert.Contains(t, htmlBody, "&lt;v2&gt;", "angle brackets must be escaped")
		assert.Contains(t, htmlBody, "It is faster.")
		assert.Contains(t, htmlBody, "<br>", "single newlines become line breaks")
		assert.NotContains(t, htmlBody, "<v2>")
	})

	t.Run("html footer escapes the url", func(t *testing.T) {
		assert.Contains(t, htmlBody, "https://example.com/unsub?a=1&amp;b=2")
	})
}

func TestRenderCampaignBodyNormalizesCRLF(t *testing.T) {
	_, htmlBody := RenderCampaignBody("one\r\n\r\ntwo", "https://example.com/u")
	assert.Contains(t, htmlBody, "<p>one</p>")
	assert.Contains(t, htmlBody, "<p>two</p>")
}

func TestSendCampaignMessage(t *testing.T) {
	service, client := newTestService()
	result := service.SendCampaignMessage(context.Background(), "a@example.com", "Launch", "We are live.", "https://example.com/u")
	assert.True(t, result.OK)

	sent := client.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Launch", sent[0].Subject)
	assert.Contains(t, sent[0].HTML, "<p>We are live.</p>")
}
