// Package totp implements RFC 6238 time-based one-time passwords and the
// single-use backup codes issued alongside them.
//
// Codes are standard 6-digit HMAC-SHA1 values over 30-second steps.
// Validation accepts DriftWindow adjacent steps on either side of the
// current one. Secrets are 32-byte Base32 strings; backup codes are
// 8-character hex strings stored only as SHA-256 hashes.
package totp
