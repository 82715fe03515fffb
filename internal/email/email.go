// Package email renders invoice emails and delivers them through Postmark
// or SMTP.
package email

import (
	"context"

	"github.com/dukerupert/papertrail/internal/domain"
)

// Email is one outgoing message. An empty From uses the sender's default.
type Email struct {
	To          []string
	From        string
	ReplyTo     string // usually the business owner
	Subject     string
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
	Headers     map[string]string
}

// Attachment is a file sent with an Email, e.g. the invoice PDF.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Sender delivers an Email and returns the provider's message ID when it
// has one.
type Sender interface {
	Send(ctx context.Context, email *Email) (string, error)
}

var (
	ErrInvalidFromAddress = domain.Errorf(domain.EINVALID, "email.send", "Invalid from email address")
	ErrInvalidToAddress   = domain.Errorf(domain.EINVALID, "email.send", "Invalid to email address")
	ErrInvalidReplyTo     = domain.Errorf(domain.EINVALID, "email.send", "Invalid reply-to email address")
)

// deliveryError marks a transport failure as an external service error.
func deliveryError(err error) error {
	return domain.External(err, "email.send", "Failed to send email")
}
