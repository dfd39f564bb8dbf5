package store

import (
	"context"
	"fmt"

	"github.com/passring/passring/internal/config"
	"github.com/passring/passring/internal/logger"
)

// Storages groups the local repositories into a single value that can be
// passed around the service layer.
type Storages struct {
	// Vault is the sqlite-backed repository for encrypted vault items.
	Vault VaultRepository

	// Outbox is the repository for the pending-mutation log.
	Outbox OutboxRepository
}

// NewStorages initialises the local storage layer using the supplied
// configuration and logger. It performs the following steps:
//  1. Opens an SQLite connection to the file path specified in cfg.DB.DSN,
//     creating the database file if it does not yet exist.
//  2. Runs pending schema migrations via [DB.Migrate].
//  3. Constructs and returns a [Storages] value wired to fresh vault and
//     outbox repositories sharing one connection.
//
// Returns an error if the database connection cannot be established or if
// migration fails.
func NewStorages(cfg config.EngineStorage, logger *logger.Logger) (*Storages, error) {
	logger.Info().Msg("creating new storages...")

	db, err := NewConnectSQLite(context.Background(), cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err := db.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &Storages{
		Vault:  NewVaultRepository(db, logger),
		Outbox: NewOutboxRepository(db, logger),
	}, nil
}
