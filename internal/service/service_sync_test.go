// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passring Authors

package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passring/passring/internal/adapter"
	"github.com/passring/passring/internal/logger"
	"github.com/passring/passring/internal/store"
	"github.com/passring/passring/models"
)

// adapterSpy scripts Push results per item id and records the requests it saw.
type adapterSpy struct {
	results  map[string]models.PushResult
	errs     map[string]error
	snapshot models.Snapshot
	snapErr  error

	pushes []models.PushRequest
	token  string
}

func newAdapterSpy() *adapterSpy {
	return &adapterSpy{
		results: make(map[string]models.PushResult),
		errs:    make(map[string]error),
	}
}

func (a *adapterSpy) SetToken(token string) { a.token = token }
func (a *adapterSpy) Token() string         { return a.token }

func (a *adapterSpy) Push(_ context.Context, req models.PushRequest) (models.PushResult, error) {
	a.pushes = append(a.pushes, req)
	if err, ok := a.errs[req.ItemID]; ok {
		return models.PushResult{}, err
	}
	if result, ok := a.results[req.ItemID]; ok {
		return result, nil
	}
	return models.PushResult{Accepted: true, NewVersion: req.ExpectedVersion + 1}, nil
}

func (a *adapterSpy) PullSnapshot(_ context.Context) (models.Snapshot, error) {
	return a.snapshot, a.snapErr
}

// vaultServiceSpy records the engine's calls into the vault write path.
type vaultServiceSpy struct {
	VaultService

	acks     map[string]int64
	applied  map[string][]byte
	replaced *models.Snapshot
	purges   int
	purgeErr error
}

func newVaultServiceSpy() *vaultServiceSpy {
	return &vaultServiceSpy{
		acks:    make(map[string]int64),
		applied: make(map[string][]byte),
	}
}

func (v *vaultServiceSpy) AcknowledgePush(_ context.Context, itemID string, newVersion int64) error {
	v.acks[itemID] = newVersion
	return nil
}

func (v *vaultServiceSpy) ApplyRemotePayload(_ context.Context, itemID string, _ int64, payload []byte) error {
	v.applied[itemID] = payload
	return nil
}

func (v *vaultServiceSpy) ReplaceFromSnapshot(_ context.Context, snapshot models.Snapshot) error {
	v.replaced = &snapshot
	return nil
}

func (v *vaultServiceSpy) PurgeExpired(_ context.Context) (int64, error) {
	v.purges++
	return 0, v.purgeErr
}

func newTestSyncService(t *testing.T) (*syncService, *outboxRepoSpy, *adapterSpy, *vaultServiceSpy) {
	t.Helper()

	outbox := newOutboxRepoSpy()
	remote := newAdapterSpy()
	vault := newVaultServiceSpy()
	storages := &store.Storages{Outbox: outbox}

	svc := NewSyncService(storages, vault, remote, 72*time.Hour, logger.Nop()).(*syncService)
	return svc, outbox, remote, vault
}

func pendingEntry(id int64, itemID string, baseVersion int64) models.OutboxEntry {
	return models.OutboxEntry{
		ID:          id,
		Op:          models.OpUpdate,
		Kind:        models.Credential,
		ItemID:      itemID,
		Payload:     []byte(fmt.Sprintf(`{"id":%q}`, itemID)),
		BaseVersion: baseVersion,
		Timestamp:   time.Now().UTC(),
	}
}

// ── ManualSync ───────────────────────────────────────────────────────────────

func TestManualSync_EmptyOutbox(t *testing.T) {
	svc, _, remote, _ := newTestSyncService(t)

	require.NoError(t, svc.ManualSync(ownerCtx()))
	assert.Equal(t, models.SyncIdle, svc.State())
	assert.Empty(t, remote.pushes)
}

func TestManualSync_SubmitsInOrder(t *testing.T) {
	svc, outbox, remote, vault := newTestSyncService(t)
	outbox.entries = []models.OutboxEntry{
		pendingEntry(1, "item-a", 1),
		pendingEntry(2, "item-b", 4),
	}

	require.NoError(t, svc.ManualSync(ownerCtx()))

	require.Len(t, remote.pushes, 2)
	assert.Equal(t, "item-a", remote.pushes[0].ItemID)
	assert.Equal(t, "item-b", remote.pushes[1].ItemID)
	assert.Equal(t, int64(1), remote.pushes[0].ExpectedVersion)

	assert.Equal(t, int64(2), vault.acks["item-a"])
	assert.Equal(t, int64(5), vault.acks["item-b"])
	assert.True(t, outbox.synced[1])
	assert.True(t, outbox.synced[2])
	assert.Equal(t, models.SyncIdle, svc.State())
}

func TestManualSync_ConflictHeldAndBlocksResource(t *testing.T) {
	svc, outbox, remote, vault := newTestSyncService(t)
	outbox.entries = []models.OutboxEntry{
		pendingEntry(1, "item-a", 3),
		pendingEntry(2, "item-a", 4), // must stay pending behind the conflict
		pendingEntry(3, "item-b", 1),
	}
	remote.results["item-a"] = models.PushResult{
		Conflict:       true,
		CurrentVersion: 9,
		CurrentPayload: []byte(`{"remote":true}`),
	}

	require.NoError(t, svc.ManualSync(ownerCtx()))

	assert.Equal(t, models.SyncConflicted, svc.State())

	conflicts := svc.Conflicts()
	require.Len(t, conflicts, 1)
	conflict := conflicts[0]
	assert.Equal(t, "item-a", conflict.ItemID)
	assert.Equal(t, int64(1), conflict.OutboxID)
	assert.Equal(t, int64(3), conflict.LocalVersion)
	assert.Equal(t, int64(9), conflict.RemoteVersion)

	// item-a pushed once, item-b still processed.
	require.Len(t, remote.pushes, 2)
	assert.Equal(t, "item-b", remote.pushes[1].ItemID)
	assert.False(t, outbox.synced[1])
	assert.False(t, outbox.synced[2])
	assert.True(t, outbox.synced[3])
	assert.Equal(t, int64(2), vault.acks["item-b"])
}

func TestManualSync_OfflineKeepsEntriesPending(t *testing.T) {
	svc, outbox, remote, _ := newTestSyncService(t)
	outbox.entries = []models.OutboxEntry{pendingEntry(1, "item-a", 1)}
	remote.errs["item-a"] = fmt.Errorf("%w: connection refused", adapter.ErrOffline)

	err := svc.ManualSync(ownerCtx())
	require.ErrorIs(t, err, adapter.ErrOffline)
	assert.Equal(t, models.SyncOffline, svc.State())
	assert.False(t, outbox.synced[1])
}

func TestManualSync_AlreadyRunning(t *testing.T) {
	svc, _, _, _ := newTestSyncService(t)

	svc.engineMu.Lock()
	defer svc.engineMu.Unlock()

	err := svc.ManualSync(ownerCtx())
	assert.ErrorIs(t, err, ErrSyncInProgress)
}

func TestManualSync_CleanCycleRunsMaintenance(t *testing.T) {
	svc, outbox, _, vault := newTestSyncService(t)
	outbox.entries = []models.OutboxEntry{pendingEntry(1, "item-a", 1)}

	require.NoError(t, svc.ManualSync(ownerCtx()))

	require.Len(t, outbox.prunes, 1)
	assert.WithinDuration(t, time.Now().UTC().Add(-72*time.Hour), outbox.prunes[0], time.Minute)
	assert.Equal(t, 1, vault.purges)
}

func TestManualSync_OfflineSkipsMaintenance(t *testing.T) {
	svc, outbox, remote, vault := newTestSyncService(t)
	outbox.entries = []models.OutboxEntry{pendingEntry(1, "item-a", 1)}
	remote.errs["item-a"] = fmt.Errorf("%w: connection refused", adapter.ErrOffline)

	require.Error(t, svc.ManualSync(ownerCtx()))

	assert.Empty(t, outbox.prunes, "no pruning on a failed cycle")
	assert.Zero(t, vault.purges, "no purging on a failed cycle")
}

// ── ResolveConflict ──────────────────────────────────────────────────────────

func conflictedEngine(t *testing.T) (*syncService, *outboxRepoSpy, *adapterSpy, *vaultServiceSpy, models.SyncConflict) {
	t.Helper()

	svc, outbox, remote, vault := newTestSyncService(t)
	outbox.entries = []models.OutboxEntry{pendingEntry(1, "item-a", 3)}
	remote.results["item-a"] = models.PushResult{
		Conflict:       true,
		CurrentVersion: 9,
		CurrentPayload: []byte(`{"remote":true}`),
	}

	require.NoError(t, svc.ManualSync(ownerCtx()))
	conflicts := svc.Conflicts()
	require.Len(t, conflicts, 1)
	return svc, outbox, remote, vault, conflicts[0]
}

func TestResolveConflict_UseRemote(t *testing.T) {
	svc, outbox, _, vault, conflict := conflictedEngine(t)

	require.NoError(t, svc.ResolveConflict(ownerCtx(), conflict.ConflictID, true))

	assert.Equal(t, []byte(`{"remote":true}`), vault.applied["item-a"])
	assert.Equal(t, []int64{1}, outbox.discards)
	assert.Empty(t, svc.Conflicts())
	assert.Equal(t, models.SyncIdle, svc.State())
}

func TestResolveConflict_UseLocal_ForcePushes(t *testing.T) {
	svc, outbox, remote, vault, conflict := conflictedEngine(t)

	// The retry must be accepted this time.
	remote.results["item-a"] = models.PushResult{Accepted: true, NewVersion: 10}

	require.NoError(t, svc.ResolveConflict(ownerCtx(), conflict.ConflictID, false))

	last := remote.pushes[len(remote.pushes)-1]
	assert.True(t, last.Force)
	assert.Equal(t, int64(9), last.ExpectedVersion)

	assert.Equal(t, int64(10), vault.acks["item-a"])
	assert.True(t, outbox.synced[1])
	assert.Empty(t, svc.Conflicts())
	assert.Equal(t, models.SyncIdle, svc.State())
}

func TestResolveConflict_UnknownID(t *testing.T) {
	svc, _, _, _ := newTestSyncService(t)

	err := svc.ResolveConflict(ownerCtx(), "nope", true)
	assert.ErrorIs(t, err, ErrConflictNotFound)
}

// ── ForceSyncFromServer ──────────────────────────────────────────────────────

func TestForceSyncFromServer_ReplacesStateAndClearsConflicts(t *testing.T) {
	svc, _, remote, vault, _ := conflictedEngine(t)
	remote.snapshot = models.Snapshot{
		Items:  []models.RemoteItem{{ItemID: "item-a", Kind: models.Credential, Version: 9, Payload: []byte(`{"id":"item-a"}`)}},
		Length: 1,
	}

	require.NoError(t, svc.ForceSyncFromServer(ownerCtx()))

	require.NotNil(t, vault.replaced)
	assert.Equal(t, 1, vault.replaced.Length)
	assert.Empty(t, svc.Conflicts())
	assert.Equal(t, models.SyncIdle, svc.State())
}

func TestForceSyncFromServer_Offline(t *testing.T) {
	svc, _, remote, _ := newTestSyncService(t)
	remote.snapErr = fmt.Errorf("%w: no route to host", adapter.ErrOffline)

	err := svc.ForceSyncFromServer(ownerCtx())
	require.ErrorIs(t, err, adapter.ErrOffline)
	assert.Equal(t, models.SyncOffline, svc.State())
}

// ── NotifyOnline ─────────────────────────────────────────────────────────────

func TestNotifyOnline_Coalesces(t *testing.T) {
	svc, _, _, _ := newTestSyncService(t)

	svc.NotifyOnline()
	svc.NotifyOnline()
	svc.NotifyOnline()

	select {
	case <-svc.OnlineSignal():
	default:
		t.Fatal("expected one buffered online signal")
	}
	select {
	case <-svc.OnlineSignal():
		t.Fatal("signals must coalesce into a single wakeup")
	default:
	}
}
