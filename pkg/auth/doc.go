// Package auth implements the credential and session lifecycle for the
// platform: registration, password login with rate limiting and TOTP
// two-factor, opaque session management with device fingerprinting,
// single-use token flows (email verification, password reset, magic link),
// and Google OAuth reconciliation.
//
// # Architecture
//
// The package is a set of cooperating stateless services sharing one
// persistent store. Each service depends on a narrow storage interface and
// is constructed with functional options:
//
//	sessions := auth.NewSessionService(store)
//	attempts := auth.NewAttemptService(store)
//	twoFactor := auth.NewTwoFactorService(store, sessions)
//	verification := auth.NewVerificationService(store, store,
//		auth.WithVerificationNotifier(notifier),
//	)
//	svc := auth.NewService(store, attempts, sessions, twoFactor,
//		verification, hasher, issuer,
//		auth.WithNotifier(notifier),
//		auth.WithRegistrationHook(auth.RoleSeller, provisioner),
//	)
//
// # Token handling
//
// Session and single-use tokens are opaque random values. Only their
// SHA-256 lookup hashes are persisted; the plaintext is handed out exactly
// once at issuance. Single-use redemption is exactly-once: the used flag
// transition is a compare-and-set in the storage contract.
//
// # Security posture
//
// Sessions carry a fingerprint derived from IP and User-Agent, computed at
// creation and enforced on every validation; a mismatch revokes the
// session. Login failures feed a sliding-window lockout keyed by email and
// IP. Responses to reset and verification requests never reveal whether an
// account exists. Outbound email is best-effort and never fails a flow.
package auth
