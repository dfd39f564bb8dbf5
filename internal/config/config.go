// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passring Authors

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the passring
// engine. It aggregates all sub-configurations and is populated by merging
// values from environment variables, command-line flags, and an optional
// JSON file.
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds application-level settings such as the transport integrity
	// key and key-derivation defaults.
	App App `envPrefix:"APP_"`

	// Storage holds configuration for the local persistence backend.
	Storage LocalStorage `envPrefix:"STORAGE_"`

	// Adapter holds configuration for outbound integrations: the remote
	// sync authority and the breach-intelligence range API.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Workers holds configuration for background jobs (periodic sync, outbox
	// pruning, soft-delete janitor).
	Workers Workers `envPrefix:"WORKERS_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds application-level configuration values.
type App struct {
	// HashKey is the HMAC key used for request integrity checking toward
	// the remote authority. Distinct from any derived vault key.
	// Env: APP_HASH_KEY
	HashKey string `env:"HASH_KEY"`

	// KDFIterations is the PBKDF2 iteration count used on the registration
	// path. On the login path the identity provider supplies the persisted
	// per-account value instead.
	// Env: APP_KDF_ITERATIONS
	KDFIterations int `env:"KDF_ITERATIONS"`

	// Version is the semantic version string of the running engine.
	// Env: APP_VERSION
	Version string `env:"VERSION"`
}

// LocalStorage groups the configuration for the local storage backend.
type LocalStorage struct {
	// DB holds the local database connection settings.
	DB LocalDB `envPrefix:"DB_"`
}

// LocalDB holds connection settings for the local sqlite database.
type LocalDB struct {
	// DSN is the sqlite file path used for the encrypted local cache
	// (e.g. "/home/user/.passring/vault.db").
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Adapter holds configuration for outbound integrations.
type Adapter struct {
	// HTTPAddress is the base URL of the remote sync authority
	// (e.g. "https://sync.example.com").
	// Env: ADAPTER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// BreachAddress is the base URL of the breach-intelligence range API.
	// Empty disables breach checking entirely.
	// Env: ADAPTER_BREACH_ADDRESS
	BreachAddress string `env:"BREACH_ADDRESS"`

	// RequestTimeout is the default timeout for outbound requests
	// (e.g. "30s", "1m").
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Workers holds configuration for background jobs.
type Workers struct {
	// SyncInterval defines how often the periodic sync job runs.
	// Env: WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`

	// PruneAge defines how old a synced outbox entry must be before the
	// pruning job removes it.
	// Env: WORKERS_PRUNE_AGE
	PruneAge time.Duration `env:"PRUNE_AGE"`
}

// GetStructuredConfig loads, merges, and validates the engine configuration
// from all available sources in the following priority order (first source
// wins for non-zero fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load or the final config fails validation.
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
}
