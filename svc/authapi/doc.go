// Package authapi exposes the auth services as a JSON HTTP API.
//
// Every response uses a single envelope with either a data or an error
// member. Domain errors map onto a small HTTP taxonomy: conflicts are 409,
// credential and session failures are 401, lookup misses are 404, malformed
// or ineligible requests are 400, field validation failures are 422 with
// per-field details, and lockouts are 429 with a Retry-After header.
//
// Authenticated routes expect the opaque session token as a bearer
// credential:
//
//	Authorization: Bearer <session token>
//
// The router is a chi.Router and can be mounted under any prefix:
//
//	api := authapi.New(authapi.Deps{...}, authapi.WithRateLimiter(bucket))
//	r.Mount("/auth", api.Router())
package authapi
