package email

import (
	"context"
	"fmt"
	"html"
)

// Mailer composes the transactional auth emails and hands them to a Sender.
// It owns subject lines and bodies; callers provide only the dynamic parts.
type Mailer struct {
	sender  Sender
	appName string
	baseURL string
}

// NewMailer creates a Mailer. baseURL is the public storefront origin used
// to build action links, without a trailing slash.
func NewMailer(sender Sender, appName, baseURL string) *Mailer {
	return &Mailer{sender: sender, appName: appName, baseURL: baseURL}
}

// SendMagicLink delivers a one-time sign-in link.
func (m *Mailer) SendMagicLink(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/auth/magic-link/verify?token=%s", m.baseURL, token)
	return m.sender.SendEmail(ctx, SendEmailParams{
		SendTo:  to,
		Subject: fmt.Sprintf("Sign in to %s", m.appName),
		BodyHTML: fmt.Sprintf(
			`<p>Click the link below to sign in. It expires shortly and can be used once.</p><p><a href="%s">Sign in</a></p><p>If you didn't request this, you can ignore this email.</p>`,
			html.EscapeString(link)),
		Tag: "magic-link",
	})
}

// SendPasswordReset delivers a password reset link.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/auth/reset-password?token=%s", m.baseURL, token)
	return m.sender.SendEmail(ctx, SendEmailParams{
		SendTo:  to,
		Subject: fmt.Sprintf("Reset your %s password", m.appName),
		BodyHTML: fmt.Sprintf(
			`<p>We received a request to reset your password.</p><p><a href="%s">Reset password</a></p><p>If you didn't request this, your account is still secure and no action is needed.</p>`,
			html.EscapeString(link)),
		Tag: "password-reset",
	})
}

// SendEmailVerification delivers an address verification link.
func (m *Mailer) SendEmailVerification(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/auth/verify-email?token=%s", m.baseURL, token)
	return m.sender.SendEmail(ctx, SendEmailParams{
		SendTo:  to,
		Subject: fmt.Sprintf("Verify your email for %s", m.appName),
		BodyHTML: fmt.Sprintf(
			`<p>Please confirm your email address.</p><p><a href="%s">Verify email</a></p>`,
			html.EscapeString(link)),
		Tag: "email-verification",
	})
}

// SendWelcome greets a newly registered buyer.
func (m *Mailer) SendWelcome(ctx context.Context, to, firstName string) error {
	return m.sender.SendEmail(ctx, SendEmailParams{
		SendTo:  to,
		Subject: fmt.Sprintf("Welcome to %s", m.appName),
		BodyHTML: fmt.Sprintf(
			`<p>Hi %s,</p><p>Welcome aboard! Your account is ready.</p>`,
			html.EscapeString(firstName)),
		Tag: "welcome",
	})
}

// SendSellerWelcome greets a newly registered seller whose store was provisioned.
func (m *Mailer) SendSellerWelcome(ctx context.Context, to, firstName, storeName string) error {
	return m.sender.SendEmail(ctx, SendEmailParams{
		SendTo:  to,
		Subject: fmt.Sprintf("Your %s store is ready", m.appName),
		BodyHTML: fmt.Sprintf(
			`<p>Hi %s,</p><p>Your store <strong>%s</strong> is ready. Add your first products to start selling.</p>`,
			html.EscapeString(firstName), html.EscapeString(storeName)),
		Tag: "seller-welcome",
	})
}

// Send2FAEnabled notifies the user that two-factor authentication was
// turned on for their account.
func (m *Mailer) Send2FAEnabled(ctx context.Context, to string) error {
	return m.sender.SendEmail(ctx, SendEmailParams{
		SendTo:  to,
		Subject: fmt.Sprintf("Two-factor authentication enabled on %s", m.appName),
		BodyHTML: `<p>Two-factor authentication was just enabled on your account. ` +
			`If this wasn't you, reset your password immediately and contact support.</p>`,
		Tag: "2fa-enabled",
	})
}

// SendAccountLinked notifies the user that a Google account was linked to
// their existing account.
func (m *Mailer) SendAccountLinked(ctx context.Context, to string) error {
	return m.sender.SendEmail(ctx, SendEmailParams{
		SendTo:  to,
		Subject: fmt.Sprintf("Google sign-in linked to your %s account", m.appName),
		BodyHTML: `<p>Your Google account was linked for sign-in. ` +
			`If this wasn't you, contact support immediately.</p>`,
		Tag: "account-linked",
	})
}
