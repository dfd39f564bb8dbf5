// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passring Authors

package service

import (
	"context"
	"time"

	"github.com/passring/passring/internal/crypto"
	"github.com/passring/passring/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/service_mock.go -package=mock

// CodecService turns plaintext record values into EncryptedPayloads and back
// using the session KeySet. It is the only holder of derived key material
// outside the crypto package; while no KeySet is installed every operation
// fails with ErrKeyUnavailable.
type CodecService interface {
	// SetKeySet installs the unlocked session keys. Called once after a
	// successful key derivation.
	SetKeySet(ks *crypto.KeySet)

	// ClearKeySet wipes and removes the session keys, locking the vault.
	ClearKeySet()

	// Unlocked reports whether a KeySet is currently installed.
	Unlocked() bool

	// EncryptField seals a single string value.
	EncryptField(plain string) (models.EncryptedPayload, error)

	// DecryptField opens a payload produced by EncryptField.
	DecryptField(payload models.EncryptedPayload) (string, error)

	// EncryptRecord JSON-serializes v and seals the result.
	EncryptRecord(v any) (models.EncryptedPayload, error)

	// DecryptRecord opens payload and JSON-decodes the plaintext into
	// target. A payload that authenticates but does not parse yields
	// ErrCorruptRecord, distinct from crypto.ErrDecryptionFailed.
	DecryptRecord(payload models.EncryptedPayload, target any) error
}

// VaultService is the single write path for locally persisted vault state.
// It encrypts on the way in, decrypts on the way out, enforces structural
// invariants (folder depth, tag uniqueness), and enqueues exactly one outbox
// entry per mutation inside the mutation's own transaction.
type VaultService interface {
	// Create validates input, encrypts the sensitive records, assigns a new
	// UUID, and persists the item at version 1 together with its outbox
	// entry.
	Create(ctx context.Context, input models.NewItemInput) (models.VaultItem, error)

	// Update applies patch to an existing live item, re-encrypts any
	// replaced records, bumps the version, and enqueues the outbox entry.
	Update(ctx context.Context, id string, patch models.ItemPatch) (models.VaultItem, error)

	// SoftDelete marks the item deleted. Deleting a folder cascades to its
	// live children and contained items; every affected row gets its own
	// version bump and outbox entry.
	SoftDelete(ctx context.Context, id string) error

	// Restore clears the soft-delete mark while the retention window is
	// still open.
	Restore(ctx context.Context, id string) error

	// Get returns the decrypted view of a single item.
	Get(ctx context.Context, id string) (models.PlainItem, error)

	// List returns the owner's decrypted items. An item whose records fail
	// to decrypt is skipped and logged, never aborting the listing.
	List(ctx context.Context, includeDeleted bool) ([]models.PlainItem, error)

	// MoveFolder re-parents a folder. Fails with ErrMaxNestingExceeded when
	// the destination would push the subtree past the depth limit, and with
	// ErrInvalidInput when the destination lies inside the moved subtree.
	MoveFolder(ctx context.Context, folderID string, newParentID *string) error

	// TagItem attaches a tag to an item; UntagItem detaches it.
	TagItem(ctx context.Context, itemID, tagID string) error
	UntagItem(ctx context.Context, itemID, tagID string) error

	// ItemTags returns the tag ids attached to an item.
	ItemTags(ctx context.Context, itemID string) ([]string, error)

	// PurgeExpired hard-deletes soft-deleted items past the retention
	// window and returns the purged count.
	PurgeExpired(ctx context.Context) (int64, error)

	// AcknowledgePush records the authority's canonical version for an item
	// after an accepted push. No outbox entry is written.
	AcknowledgePush(ctx context.Context, itemID string, newVersion int64) error

	// ApplyRemotePayload installs the authority's ciphered snapshot of one
	// item, overwriting local state. No outbox entry is written.
	ApplyRemotePayload(ctx context.Context, itemID string, version int64, payload []byte) error

	// ReplaceFromSnapshot atomically replaces the owner's entire local state
	// with the authority's snapshot and clears the outbox.
	ReplaceFromSnapshot(ctx context.Context, snapshot models.Snapshot) error
}

// SyncService reconciles the local outbox against the remote authority.
//
// States: Idle -> Syncing -> {Idle, Conflicted, Offline}. Conflicted holds
// until every conflict is resolved; Offline holds until NotifyOnline or a
// manual sync succeeds.
type SyncService interface {
	// State returns the engine's current externally visible state.
	State() models.SyncState

	// ManualSync drains the outbox and submits pending entries in id order.
	// Returns ErrSyncInProgress when a cycle is already running and
	// adapter.ErrOffline (wrapped) when the authority is unreachable.
	// A clean cycle finishes with a maintenance pass: synced outbox entries
	// older than the prune age are dropped and expired soft-deletes purged.
	ManualSync(ctx context.Context) error

	// Conflicts returns the currently held conflicts.
	Conflicts() []models.SyncConflict

	// ResolveConflict settles one held conflict. useRemote true installs the
	// remote state locally and discards the held entry; false force-pushes
	// the local state over the remote version.
	ResolveConflict(ctx context.Context, conflictID string, useRemote bool) error

	// ForceSyncFromServer discards all local divergence: pulls the full
	// authoritative snapshot, replaces local state, and clears the outbox
	// and held conflicts.
	ForceSyncFromServer(ctx context.Context) error

	// NotifyOnline signals that connectivity is back. The wakeup is
	// edge-triggered; redundant calls while already flagged are dropped.
	NotifyOnline()

	// OnlineSignal exposes the connectivity wakeup channel for the sync job.
	OnlineSignal() <-chan struct{}
}

// SyncJob is the background worker that triggers sync cycles on a timer and
// on connectivity signals.
type SyncJob interface {
	// Start launches the background goroutine. Any previously running job is
	// stopped first. A non-positive interval defaults to 5 minutes.
	Start(ctx context.Context, interval time.Duration)

	// Stop signals the goroutine to exit and blocks until it has terminated.
	Stop()
}
