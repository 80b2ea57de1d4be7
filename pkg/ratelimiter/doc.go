// Package ratelimiter implements token bucket rate limiting with pluggable
// storage backends.
//
// This is the perimeter throttle for the HTTP surface, keyed by client IP.
// It is defense-in-depth on top of the login attempt ledger, which enforces
// the per-account sliding-window lockout; the two serve different threat
// models and are configured independently.
package ratelimiter
