// Package config loads deployment settings for an encrypted table from the
// environment and optional .env files, and validates them.
package config
