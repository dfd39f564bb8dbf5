package service

import (
	"time"

	"github.com/passring/passring/internal/adapter"
	"github.com/passring/passring/internal/crypto"
	"github.com/passring/passring/internal/logger"
	"github.com/passring/passring/internal/store"
)

// Services bundles every engine service behind one value for wiring in main.
type Services struct {
	Codec CodecService
	Vault VaultService
	Sync  SyncService
	Job   SyncJob
}

// NewServices wires the full service graph: keychain into codec, codec into
// vault, vault and adapter into the sync engine, engine into the job.
// pruneAge bounds how long synced outbox entries survive maintenance.
func NewServices(keychain crypto.KeyChainService, storages *store.Storages, remote adapter.ServerAdapter, pruneAge time.Duration, log *logger.Logger) *Services {
	codec := NewCodecService(keychain)
	vault := NewVaultService(storages, codec, log)
	syncSvc := NewSyncService(storages, vault, remote, pruneAge, log)

	return &Services{
		Codec: codec,
		Vault: vault,
		Sync:  syncSvc,
		Job:   NewSyncJob(syncSvc),
	}
}
