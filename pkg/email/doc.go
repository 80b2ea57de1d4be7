// Package email provides transactional email delivery for authentication
// flows.
//
// The package is built around a small Sender interface with two
// implementations: a Postmark-backed sender for production and a DevSender
// that logs messages instead of delivering them. Mailer layers the
// domain-specific messages (magic links, password resets, verification,
// welcome emails, security notices) on top of a Sender, and Notifier wraps
// a Mailer with best-effort semantics so authentication flows never fail
// on a provider outage.
//
// Usage:
//
//	sender, err := email.NewPostmarkClient(cfg)
//	if err != nil {
//		return err
//	}
//	mailer := email.NewMailer(sender, "CartBase", "https://cartbase.example")
//	notifier := email.NewNotifier(mailer, log)
//
//	notifier.PasswordReset(ctx, user.Email, token.Plaintext)
package email
