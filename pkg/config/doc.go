// Package config loads env-tagged configuration structs using
// github.com/caarlos0/env with optional .env file support via godotenv.
//
// Every tunable policy constant in the auth services (token TTLs, lockout
// windows, bcrypt cost) is declared as a config field with an envDefault so
// that deployments can override policy without code changes.
package config
