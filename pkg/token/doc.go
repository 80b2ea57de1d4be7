// Package token generates opaque random credentials and their one-way
// lookup hashes.
//
// A Token carries 256 bits of entropy. The plaintext is transmitted to the
// user (email link, session cookie) exactly once; the store holds only the
// SHA-256 lookup hash. This is the shared shape behind sessions, magic
// links, email verification, and password reset credentials.
//
// # Usage
//
//	tok, err := token.Issue()
//	if err != nil {
//	    return err
//	}
//	store.Save(tok.LookupHash)      // persisted
//	sendToUser(tok.Plaintext)        // shown once
//
//	// At redemption:
//	record, err := store.FindByHash(token.Hash(presented))
package token
