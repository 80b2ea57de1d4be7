// Package logger provides a small factory around log/slog plus attribute
// helpers with stable keys used across the auth services.
//
// Services take a *slog.Logger via an option and default to Discard(), so
// logging never becomes a hard dependency of business logic.
package logger
