// Package config handles configuration loading, parsing, and validation.
// Settings come from TOME_-prefixed environment variables with an optional
// config.yaml underneath; env vars win. It provides type-safe access to
// application settings while keeping configuration details separate from
// business logic.
package config
