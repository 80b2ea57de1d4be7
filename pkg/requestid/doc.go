// Package requestid attaches a correlation identifier to every HTTP
// request so log records from a single interaction can be tied together.
//
// Middleware reuses a valid client-supplied "X-Request-ID" header or
// generates a UUIDv4, stores it in the request context, and echoes it back
// in the response. FromContext retrieves it for logging:
//
//	r.Use(requestid.Middleware)
//	...
//	log.Error("request failed", slog.String("request_id", requestid.FromContext(ctx)))
//
// Invalid or missing client IDs are silently replaced; the package never
// returns errors.
package requestid
