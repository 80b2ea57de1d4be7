// Package fingerprint derives session device fingerprints from the client
// IP and User-Agent observed when a session is created.
//
// Every session gets a fingerprint at creation and validation always
// recomputes and compares it; a mismatch is treated as session compromise,
// never retried.
package fingerprint
