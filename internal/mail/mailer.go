// Package mail wraps the outbound SMTP transport used by the password
// reset flow. Every send is bounded by the caller's context plus a client
// timeout so a slow relay cannot hold an HTTP request open indefinitely.
package mail

import (
	"context"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPMailer sends plain-text mail through a single SMTP relay.
type SMTPMailer struct {
	client *gomail.Client
	from   string
}

// NewSMTPMailer configures the SMTP client. user may be empty, in which
// case no authentication is attempted (local relays, test servers).
func NewSMTPMailer(host string, port int, user, pass, from string, timeout time.Duration) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(port),
		gomail.WithTimeout(timeout),
	}
	if user != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(user),
			gomail.WithPassword(pass),
		)
	}
	client, err := gomail.NewClient(host, opts...)
	if err != nil {
		return nil, err
	}
	return &SMTPMailer{client: client, from: from}, nil
}

// Send delivers one plain-text message. The context bounds the whole
// dial-and-send exchange.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)
	return m.client.DialAndSendWithContext(ctx, msg)
}
