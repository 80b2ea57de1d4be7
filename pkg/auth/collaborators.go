package auth

import "context"

// Notifier delivers transactional emails with best-effort semantics: the
// methods return nothing and never block or fail the calling flow. Delivery
// failures are the notifier's to log. Satisfied by email.Notifier.
type Notifier interface {
	MagicLink(ctx context.Context, to, token string)
	PasswordReset(ctx context.Context, to, token string)
	EmailVerification(ctx context.Context, to, token string)
	Welcome(ctx context.Context, to, firstName string)
	SellerWelcome(ctx context.Context, to, firstName, storeName string)
	TwoFactorEnabled(ctx context.Context, to string)
	AccountLinked(ctx context.Context, to string)
}

// AccessTokenIssuer mints signed, time-boxed bearer credentials. This
// subsystem consumes a signer, it does not implement one. Satisfied by
// jwt.Issuer.
type AccessTokenIssuer interface {
	IssueAccess(userID, email, role string) (string, error)
}

// NopNotifier discards every notification. Used as the default so services
// stay constructible without an email stack.
type NopNotifier struct{}

func (NopNotifier) MagicLink(context.Context, string, string)             {}
func (NopNotifier) PasswordReset(context.Context, string, string)         {}
func (NopNotifier) EmailVerification(context.Context, string, string)     {}
func (NopNotifier) Welcome(context.Context, string, string)               {}
func (NopNotifier) SellerWelcome(context.Context, string, string, string) {}
func (NopNotifier) TwoFactorEnabled(context.Context, string)              {}
func (NopNotifier) AccountLinked(context.Context, string)                 {}

var _ Notifier = NopNotifier{}
