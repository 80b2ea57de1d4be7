package email

import (
	"context"
	"log/slog"
	"time"
)

const notifyTimeout = 15 * time.Second

// Notifier is a best-effort delivery wrapper around Mailer. Its methods
// return nothing: authentication flows must not fail because an email
// provider is down. Failures are logged and dropped.
type Notifier struct {
	mailer *Mailer
	log    *slog.Logger
}

// NewNotifier wraps a Mailer with best-effort semantics.
func NewNotifier(mailer *Mailer, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{mailer: mailer, log: log.With(slog.String("component", "email_notifier"))}
}

// deliver runs send in the background with its own timeout so the caller's
// request context cancellation does not abort an in-flight delivery.
func (n *Notifier) deliver(tag, to string, send func(ctx context.Context) error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				n.log.Error("email delivery panicked", slog.String("tag", tag), slog.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			n.log.Error("email delivery failed",
				slog.String("tag", tag),
				slog.String("to", to),
				slog.Any("error", err))
		}
	}()
}

func (n *Notifier) MagicLink(_ context.Context, to, token string) {
	n.deliver("magic-link", to, func(ctx context.Context) error {
		return n.mailer.SendMagicLink(ctx, to, token)
	})
}

func (n *Notifier) PasswordReset(_ context.Context, to, token string) {
	n.deliver("password-reset", to, func(ctx context.Context) error {
		return n.mailer.SendPasswordReset(ctx, to, token)
	})
}

func (n *Notifier) EmailVerification(_ context.Context, to, token string) {
	n.deliver("email-verification", to, func(ctx context.Context) error {
		return n.mailer.SendEmailVerification(ctx, to, token)
	})
}

func (n *Notifier) Welcome(_ context.Context, to, firstName string) {
	n.deliver("welcome", to, func(ctx context.Context) error {
		return n.mailer.SendWelcome(ctx, to, firstName)
	})
}

func (n *Notifier) SellerWelcome(_ context.Context, to, firstName, storeName string) {
	n.deliver("seller-welcome", to, func(ctx context.Context) error {
		return n.mailer.SendSellerWelcome(ctx, to, firstName, storeName)
	})
}

func (n *Notifier) TwoFactorEnabled(_ context.Context, to string) {
	n.deliver("2fa-enabled", to, func(ctx context.Context) error {
		return n.mailer.Send2FAEnabled(ctx, to)
	})
}

func (n *Notifier) AccountLinked(_ context.Context, to string) {
	n.deliver("account-linked", to, func(ctx context.Context) error {
		return n.mailer.SendAccountLinked(ctx, to)
	})
}
