package email

import (
	"context"
	"fmt"
	"html"
	"strings"

	"waitlist-server/internal/observability"
)

// Client is the mail provider surface the service depends on. The Resend
// client and the mock client both satisfy it.
type Client interface {
	SendEmail(ctx context.Context, from, to, subject, textContent, htmlContent string) (string, error)
}

// SendResult reports a single send. A failed send carries a machine-readable
// code; the caller decides whether the failure is fatal.
type SendResult struct {
	OK        bool
	ErrorCode string
}

// ErrorCodeProvider marks a provider-side send failure.
const ErrorCodeProvider = "provider_error"

// Service renders and sends the service's transactional and campaign mail.
type Service struct {
	client Client
	from   string
	logger *observability.Logger
}

func New(client Client, from string, logger *observability.Logger) *Service {
	return &Service{client: client, from: from, logger: logger}
}

const welcomeSubject = "You're on the waitlist"

// SendWelcome sends the signup confirmation. The wording depends on whether
// the subscriber opted into marketing mail, and every message carries the
// recipient's signed unsubscribe link.
func (s *Service) SendWelcome(ctx context.Context, to string, marketingConsent bool, unsubscribeURL string) SendResult {
	intro := "Thanks for signing up. We'll email you when your invite is ready."
	if marketingConsent {
		intro = "Thanks for signing up. We'll email you when your invite is ready, and keep you posted on product updates along the way."
	}

	text := intro + "\n\nIf you'd rather not hear from us, you can opt out here: " + unsubscribeURL + "\n"
	htmlBody := fmt.Sprintf("<p>%s</p>%s", html.EscapeString(intro), unsubscribeFooterHTML(unsubscribeURL))

	return s.send(ctx, to, welcomeSubject, text, htmlBody)
}

// SendCampaignMessage renders a campaign body for one recipient and sends it.
func (s *Service) SendCampaignMessage(ctx context.Context, to, subject, body, unsubscribeURL string) SendResult {
	text, htmlBody := RenderCampaignBody(body, unsubscribeURL)
	return s.send(ctx, to, subject, text, htmlBody)
}

func (s *Service) send(ctx context.Context, to, subject, text, htmlBody string) SendResult {
	if _, err := s.client.SendEmail(ctx, s.from, to, subject, text, htmlBody); err != nil {
		s.logger.Error(ctx, "email send failed", err)
		return SendResult{OK: false, ErrorCode: ErrorCodeProvider}
	}
	return SendResult{OK: true}
}

// RenderCampaignBody turns a markdown-ish campaign body into the text and
// HTML variants. The HTML side is deliberately simple: paragraphs split on
// blank lines, content escaped, unsubscribe footer appended. Campaign
// authors write prose, not layouts.
func RenderCampaignBody(body, unsubscribeURL string) (text string, htmlBody string) {
	trimmed := strings.TrimSpace(strings.ReplaceAll(body, "\r\n", "\n"))

	text = trimmed + "\n\nUnsubscribe: " + unsubscribeURL + "\n"

	var b strings.Builder
	for _, para := range strings.Split(trimmed, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		escaped := html.EscapeString(para)
		escaped = strings.ReplaceAll(escaped, "\n", "<br>")
		b.WriteString("<p>" + escaped + "</p>")
	}
	b.WriteString(unsubscribeFooterHTML(unsubscribeURL))
	return text, b.String()
}

func unsubscribeFooterHTML(unsubscribeURL string) string {
	return fmt.Sprintf(`<p style="font-size:12px;color:#666"><a href="%s">Unsubscribe</a></p>`,
		html.EscapeString(unsubscribeURL))
}
