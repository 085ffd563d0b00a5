// Package email sends transactional mail. The only message this service
// knows is the welcome note fired after a first-time social registration;
// sending is always best-effort and never affects the login flow.
package email

// Mailer sends a single message.
type Mailer interface {
	Send(to, subject, htmlBody, textBody string) error
}

// Noop discards mail. Used when SMTP is not configured.
type Noop struct{}

func (Noop) Send(string, string, string, string) error { return nil }
