// Package jwt issues and validates the signed bearer credentials returned
// to clients after authentication.
//
// The auth services consume this as a collaborator; they never sign tokens
// themselves. Tokens are HS256-signed and time-boxed (7 days by default)
// with {subject, email, role} claims.
package jwt
