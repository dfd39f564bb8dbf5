package config

import (
	"fmt"
	"time"
)

// DefaultKDFIterations is applied when no iteration count is configured.
const DefaultKDFIterations = 600_000

// EngineApp holds application-level settings derived from the shared
// structured config.
type EngineApp struct {
	// HashKey is the HMAC key used for payload integrity checks.
	HashKey string
	// KDFIterations is the PBKDF2 iteration count used when enrolling a
	// new master secret.
	KDFIterations int
	// Version is the engine version string.
	Version string
}

// EngineAdapter holds network settings used by the transport layer.
type EngineAdapter struct {
	// HTTPAddress is the sync authority base URL.
	HTTPAddress string
	// BreachAddress is the breach range API base URL; empty disables
	// breach checking.
	BreachAddress string
	// RequestTimeout is the default timeout for outbound requests.
	RequestTimeout time.Duration
}

// EngineDB contains local database connection settings.
type EngineDB struct {
	// DSN is the sqlite file path for the local encrypted cache.
	DSN string
}

// EngineStorage groups local storage backend settings.
type EngineStorage struct {
	// DB holds local database settings.
	DB EngineDB
}

// EngineWorkers contains background job settings.
type EngineWorkers struct {
	// SyncInterval defines how often the periodic sync job should run.
	SyncInterval time.Duration
	// PruneAge defines how long synced outbox entries are retained.
	PruneAge time.Duration
}

// EngineConfig is the top-level runtime configuration assembled from
// [StructuredConfig].
type EngineConfig struct {
	// App contains application-level settings.
	App EngineApp
	// Adapter contains transport addresses and timeouts.
	Adapter EngineAdapter
	// Storage contains local storage settings.
	Storage EngineStorage
	// Workers contains background job settings.
	Workers EngineWorkers
}

// GetEngineConfig builds and validates the runtime config view from the
// merged structured configuration.
//
// It loads the base config via [GetStructuredConfig], maps only the fields
// relevant to the engine runtime, and validates the resulting [EngineConfig].
func GetEngineConfig() (*EngineConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	engineCfg := &EngineConfig{
		App: EngineApp{
			HashKey:       cfg.App.HashKey,
			KDFIterations: cfg.App.KDFIterations,
			Version:       cfg.App.Version,
		},
		Adapter: EngineAdapter{
			HTTPAddress:    cfg.Adapter.HTTPAddress,
			BreachAddress:  cfg.Adapter.BreachAddress,
			RequestTimeout: cfg.Adapter.RequestTimeout,
		},
		Storage: EngineStorage{
			DB: EngineDB{
				DSN: cfg.Storage.DB.DSN,
			},
		},
		Workers: EngineWorkers{
			SyncInterval: cfg.Workers.SyncInterval,
			PruneAge:     cfg.Workers.PruneAge,
		},
	}

	if engineCfg.App.KDFIterations == 0 {
		engineCfg.App.KDFIterations = DefaultKDFIterations
	}

	return engineCfg, engineCfg.validate()
}
