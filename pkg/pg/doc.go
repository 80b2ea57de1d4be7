// Package pg provides PostgreSQL connection helpers built on pgx: pooled
// connect with retries, goose migrations bridged through the stdlib
// adapter, and SQLSTATE classification helpers used by the storage layer.
package pg
