package email

import (
	"context"
	"log/slog"
)

// DevSender implements Sender for local development: it logs the email
// instead of sending it through a provider.
type DevSender struct {
	log *slog.Logger
}

// NewDevSender creates a development email sender.
func NewDevSender(log *slog.Logger) Sender {
	return &DevSender{log: log}
}

// SendEmail logs the email metadata and body at debug level.
func (d *DevSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	d.log.InfoContext(ctx, "dev email",
		slog.String("send_to", params.SendTo),
		slog.String("subject", params.Subject),
		slog.String("tag", params.Tag),
	)
	d.log.DebugContext(ctx, "dev email body", slog.String("body_html", params.BodyHTML))
	return nil
}
