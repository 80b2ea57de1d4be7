package email

import (
	"context"
	"fmt"
	"regexp"
)

// Sender represents an interface for sending emails.
type Sender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// SendEmailParams represents the parameters for sending an email.
type SendEmailParams struct {
	SendTo   string `json:"send_to"`       // Email address of the recipient
	Subject  string `json:"subject"`       // Subject of the email
	BodyHTML string `json:"body_html"`     // HTML body of the email
	Tag      string `json:"tag,omitempty"` // Optional categorization tag
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Validate checks that the parameters are complete enough to send.
func (p SendEmailParams) Validate() error {
	if p.SendTo == "" || !emailRegex.MatchString(p.SendTo) {
		return fmt.Errorf("%w: invalid recipient address", ErrFailedToSendEmail)
	}
	if p.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrFailedToSendEmail)
	}
	if p.BodyHTML == "" {
		return fmt.Errorf("%w: body is required", ErrFailedToSendEmail)
	}
	return nil
}

// Config holds email service configuration.
// Postmark tokens are optional to support development environments where
// email sending is routed to the dev sender instead.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`
}
