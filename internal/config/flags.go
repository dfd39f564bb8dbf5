package config

import (
	"flag"
	"time"
)

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-a sync authority base URL
//	-breach-address breach range API base URL
//	-d local database file path
//	-c/-config json file path with configs
//	-hash-key request integrity hash key
//	-kdf-iterations PBKDF2 iteration count for registration
//	-request-timeout request timeout (e.g., "30s", "1m")
//	-sync-interval periodic sync interval (e.g., "1m")
//	-prune-age age after which synced outbox entries are pruned
func ParseFlags() *StructuredConfig {
	var adapterAddress string
	var breachAddress string
	var databaseDSN string
	var jsonConfigPath string
	var hashKey string
	var kdfIterations int
	var requestTimeout time.Duration
	var syncInterval time.Duration
	var pruneAge time.Duration

	flag.StringVar(&adapterAddress, "a", "", "Sync authority base URL")
	flag.StringVar(&breachAddress, "breach-address", "", "Breach range API base URL")
	flag.StringVar(&databaseDSN, "d", "", "Local database file path")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.StringVar(&hashKey, "hash-key", "", "Request integrity hash key")
	flag.IntVar(&kdfIterations, "kdf-iterations", 0, "PBKDF2 iteration count")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	flag.DurationVar(&syncInterval, "sync-interval", 0, "Periodic sync interval (e.g., 1m)")
	flag.DurationVar(&pruneAge, "prune-age", 0, "Synced outbox entry retention age")

	flag.Parse()

	return &StructuredConfig{
		App: App{
			HashKey:       hashKey,
			KDFIterations: kdfIterations,
		},
		Storage: LocalStorage{
			DB: LocalDB{
				DSN: databaseDSN,
			},
		},
		Adapter: Adapter{
			HTTPAddress:    adapterAddress,
			BreachAddress:  breachAddress,
			RequestTimeout: requestTimeout,
		},
		Workers: Workers{
			SyncInterval: syncInterval,
			PruneAge:     pruneAge,
		},
		JSONFilePath: jsonConfigPath,
	}
}
