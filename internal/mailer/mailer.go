// Package mailer sends account emails (verification and password reset).
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/utafrali/ContactsGo/pkg/breaker"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
	// Secret is the one-time token embedded in Body. Senders that write
	// messages anywhere but the recipient's inbox must mask it.
	Secret string
}

const maskedSecret = "[REDACTED]"

// MaskedBody returns Body with Secret, raw or query-escaped, masked.
func (m Message) MaskedBody() string {
	if m.Secret == "" {
		return m.Body
	}
	return strings.NewReplacer(
		url.QueryEscape(m.Secret), maskedSecret,
		m.Secret, maskedSecret,
	).Replace(m.Body)
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer renders account emails with links back to the public API.
type Mailer struct {
	sender  Sender
	baseURL string
}

// New creates a Mailer. baseURL is the externally reachable API root,
// e.g. https://contacts.example.com.
func New(sender Sender, baseURL string) *Mailer {
	return &Mailer{sender: sender, baseURL: strings.TrimRight(baseURL, "/")}
}

// SendVerification mails the email-verification link.
func (m *Mailer) SendVerification(ctx context.Context, to, token string) error {
	link := m.baseURL + "/auth/verify?token=" + url.QueryEscape(token)
	return m.sender.Send(ctx, Message{
		To:      to,
		Subject: "Verify your email",
		Body:    "Click to verify: " + link,
		Secret:  token,
	})
}

// SendPasswordReset mails the password-reset token. The confirm endpoint is
// a POST, so the message carries the token and the endpoint to call.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, token string) error {
	link := m.baseURL + "/auth/reset/confirm?token=" + url.QueryEscape(token)
	return m.sender.Send(ctx, Message{
		To:      to,
		Subject: "Reset your password",
		Body: fmt.Sprintf(
			"A password reset was requested for this account.\n\nPOST %s&new_password=<new password>\n\nReset token: %s\n\nIf you did not request this, ignore this email.",
			link, token,
		),
		Secret: token,
	})
}

// LogSender logs messages instead of delivering them. It is used when no
// SMTP host is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the message with its token masked.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "email not sent, no SMTP host configured",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.MaskedBody()),
	)
	return nil
}

// Guarded wraps a Sender with a per-call timeout and a circuit breaker.
type Guarded struct {
	inner   Sender
	timeout time.Duration
	cb      *breaker.Breaker[struct{}]
}

// NewGuarded guards inner. A zero timeout disables the per-call deadline.
func NewGuarded(inner Sender, timeout time.Duration, logger *slog.Logger) *Guarded {
	return &Guarded{
		inner:   inner,
		timeout: timeout,
		cb:      breaker.New[struct{}](breaker.DefaultConfig("smtp"), logger),
	}
}

// Send delivers msg through the breaker under the per-call timeout.
func (g *Guarded) Send(ctx context.Context, msg Message) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	_, err := g.cb.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.inner.Send(ctx, msg)
	})
	return err
}
