// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passring Authors

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/passring/passring/internal/adapter"
	"github.com/passring/passring/internal/logger"
	"github.com/passring/passring/internal/store"
	"github.com/passring/passring/internal/utils"
	"github.com/passring/passring/models"
)

// defaultPruneAge is how long synced outbox entries are kept when no prune
// age is configured.
const defaultPruneAge = 72 * time.Hour

type syncService struct {
	storages *store.Storages
	vault    VaultService
	remote   adapter.ServerAdapter
	uuid     *utils.UUIDGenerator
	logger   *logger.Logger
	pruneAge time.Duration

	// engineMu serializes whole cycles: ManualSync, ForceSyncFromServer and
	// ResolveConflict never overlap.
	engineMu sync.Mutex

	mu        sync.RWMutex
	state     models.SyncState
	conflicts map[string]models.SyncConflict

	online chan struct{}
}

// NewSyncService builds the reconciliation engine. The engine starts Idle
// with an empty conflict set. A non-positive pruneAge falls back to
// defaultPruneAge.
func NewSyncService(storages *store.Storages, vault VaultService, remote adapter.ServerAdapter, pruneAge time.Duration, log *logger.Logger) SyncService {
	if pruneAge <= 0 {
		pruneAge = defaultPruneAge
	}
	return &syncService{
		storages:  storages,
		vault:     vault,
		remote:    remote,
		uuid:      utils.NewUUIDGenerator(),
		logger:    log,
		pruneAge:  pruneAge,
		state:     models.SyncIdle,
		conflicts: make(map[string]models.SyncConflict),
		online:    make(chan struct{}, 1),
	}
}

func (s *syncService) State() models.SyncState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *syncService) Conflicts() []models.SyncConflict {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.SyncConflict, 0, len(s.conflicts))
	for _, c := range s.conflicts {
		out = append(out, c)
	}
	return out
}

func (s *syncService) ManualSync(ctx context.Context) error {
	if !s.engineMu.TryLock() {
		return ErrSyncInProgress
	}
	defer s.engineMu.Unlock()

	s.setState(models.SyncSyncing)

	err := s.runCycle(ctx)
	s.settleState(err)
	if err == nil {
		s.maintain(ctx)
	}
	return err
}

// maintain runs the storage janitor after a clean cycle: synced outbox
// entries older than pruneAge are dropped and soft-deletes past retention
// are purged. Best effort; failures are logged, never surfaced.
func (s *syncService) maintain(ctx context.Context) {
	log := logger.FromContext(ctx)

	pruned, err := s.storages.Outbox.Prune(ctx, time.Now().UTC().Add(-s.pruneAge))
	if err != nil {
		log.Warn().Err(err).
			Str("func", "syncService.maintain").
			Msg("failed to prune synced outbox entries")
	} else if pruned > 0 {
		log.Debug().
			Str("func", "syncService.maintain").
			Int64("pruned", pruned).
			Msg("pruned synced outbox entries")
	}

	purged, err := s.vault.PurgeExpired(ctx)
	switch {
	case errors.Is(err, ErrInvalidInput):
		// Background trigger without an owner in ctx; the janitor runs on
		// the next owner-initiated sync.
	case err != nil:
		log.Warn().Err(err).
			Str("func", "syncService.maintain").
			Msg("failed to purge expired soft-deleted items")
	case purged > 0:
		log.Debug().
			Str("func", "syncService.maintain").
			Int64("purged", purged).
			Msg("purged expired soft-deleted items")
	}
}

// runCycle drains the outbox and submits entries oldest-first. An entry for
// a resource that already hit a conflict this cycle is left pending so the
// per-resource order is preserved.
func (s *syncService) runCycle(ctx context.Context) error {
	log := logger.FromContext(ctx)

	entries, err := s.storages.Outbox.Drain(ctx, 0)
	if err != nil {
		return fmt.Errorf("drain outbox: %w", err)
	}

	blocked := make(map[string]bool)
	for _, entry := range entries {
		if blocked[entry.ItemID] {
			continue
		}

		result, pushErr := s.remote.Push(ctx, models.PushRequest{
			Kind:            entry.Kind,
			ItemID:          entry.ItemID,
			Op:              entry.Op,
			Payload:         entry.Payload,
			ExpectedVersion: entry.BaseVersion,
		})
		if pushErr != nil {
			if errors.Is(pushErr, adapter.ErrOffline) {
				log.Warn().
					Str("func", "syncService.runCycle").
					Msg("sync authority unreachable, entries stay pending")
				return pushErr
			}
			if errors.Is(pushErr, adapter.ErrVersionConflict) {
				// 409 without a body carries no remote state; version 0 marks
				// it unknown until the conflict is resolved.
				s.holdConflict(entry, 0, nil)
				blocked[entry.ItemID] = true
				continue
			}
			return fmt.Errorf("push outbox entry %d: %w", entry.ID, pushErr)
		}

		if result.Conflict {
			s.holdConflict(entry, result.CurrentVersion, result.CurrentPayload)
			blocked[entry.ItemID] = true
			continue
		}

		if err = s.completeEntry(ctx, entry, result.NewVersion); err != nil {
			return err
		}
	}
	return nil
}

// completeEntry records an accepted push: canonical version locally, entry
// marked synced.
func (s *syncService) completeEntry(ctx context.Context, entry models.OutboxEntry, newVersion int64) error {
	if err := s.vault.AcknowledgePush(ctx, entry.ItemID, newVersion); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("acknowledge push for entry %d: %w", entry.ID, err)
	}
	if err := s.storages.Outbox.MarkSynced(ctx, entry.ID); err != nil {
		return fmt.Errorf("mark outbox entry %d synced: %w", entry.ID, err)
	}
	return nil
}

func (s *syncService) holdConflict(entry models.OutboxEntry, remoteVersion int64, remotePayload []byte) {
	conflict := models.SyncConflict{
		ConflictID:    s.uuid.Generate(),
		ItemID:        entry.ItemID,
		OutboxID:      entry.ID,
		LocalVersion:  entry.BaseVersion,
		RemoteVersion: remoteVersion,
		LocalPayload:  entry.Payload,
		RemotePayload: remotePayload,
	}

	s.mu.Lock()
	s.conflicts[conflict.ConflictID] = conflict
	s.mu.Unlock()

	s.logger.Warn().
		Str("func", "syncService.holdConflict").
		Str("item_id", entry.ItemID).
		Int64("local_version", entry.BaseVersion).
		Int64("remote_version", remoteVersion).
		Msg("version conflict held for resolution")
}

func (s *syncService) ResolveConflict(ctx context.Context, conflictID string, useRemote bool) error {
	s.engineMu.Lock()
	defer s.engineMu.Unlock()

	s.mu.RLock()
	conflict, ok := s.conflicts[conflictID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w (id=%s)", ErrConflictNotFound, conflictID)
	}

	var err error
	if useRemote {
		err = s.resolveWithRemote(ctx, conflict)
	} else {
		err = s.resolveWithLocal(ctx, conflict)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.conflicts, conflictID)
	remaining := len(s.conflicts)
	if s.state == models.SyncConflicted && remaining == 0 {
		s.state = models.SyncIdle
	}
	s.mu.Unlock()

	return nil
}

// resolveWithRemote installs the authority's state and drops the held local
// mutation.
func (s *syncService) resolveWithRemote(ctx context.Context, conflict models.SyncConflict) error {
	if len(conflict.RemotePayload) > 0 {
		if err := s.vault.ApplyRemotePayload(ctx, conflict.ItemID, conflict.RemoteVersion, conflict.RemotePayload); err != nil {
			return fmt.Errorf("install remote state for %s: %w", conflict.ItemID, err)
		}
	}
	if err := s.storages.Outbox.Discard(ctx, conflict.OutboxID); err != nil && !errors.Is(err, store.ErrOutboxEntryNotFound) {
		return fmt.Errorf("discard outbox entry %d: %w", conflict.OutboxID, err)
	}
	return nil
}

// resolveWithLocal force-pushes the held local state over the remote version.
func (s *syncService) resolveWithLocal(ctx context.Context, conflict models.SyncConflict) error {
	entry, err := s.storages.Outbox.Get(ctx, conflict.OutboxID)
	if err != nil {
		return fmt.Errorf("load held outbox entry %d: %w", conflict.OutboxID, err)
	}

	result, err := s.remote.Push(ctx, models.PushRequest{
		Kind:            entry.Kind,
		ItemID:          entry.ItemID,
		Op:              entry.Op,
		Payload:         entry.Payload,
		ExpectedVersion: conflict.RemoteVersion,
		Force:           true,
	})
	if err != nil {
		if errors.Is(err, adapter.ErrOffline) {
			s.setState(models.SyncOffline)
		}
		return fmt.Errorf("force push for %s: %w", conflict.ItemID, err)
	}
	if result.Conflict {
		return fmt.Errorf("%w: authority refused forced overwrite for %s", adapter.ErrVersionConflict, conflict.ItemID)
	}

	return s.completeEntry(ctx, entry, result.NewVersion)
}

func (s *syncService) ForceSyncFromServer(ctx context.Context) error {
	if !s.engineMu.TryLock() {
		return ErrSyncInProgress
	}
	defer s.engineMu.Unlock()

	s.setState(models.SyncSyncing)

	snapshot, err := s.remote.PullSnapshot(ctx)
	if err != nil {
		s.settleState(err)
		return fmt.Errorf("pull snapshot: %w", err)
	}

	if err = s.vault.ReplaceFromSnapshot(ctx, snapshot); err != nil {
		s.settleState(err)
		return err
	}

	s.mu.Lock()
	s.conflicts = make(map[string]models.SyncConflict)
	s.state = models.SyncIdle
	s.mu.Unlock()

	s.logger.Info().
		Str("func", "syncService.ForceSyncFromServer").
		Int("items", snapshot.Length).
		Msg("local state replaced from authoritative snapshot")
	return nil
}

func (s *syncService) NotifyOnline() {
	select {
	case s.online <- struct{}{}:
	default:
		// already flagged, wakeup coalesces
	}
}

func (s *syncService) OnlineSignal() <-chan struct{} {
	return s.online
}

func (s *syncService) setState(state models.SyncState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// settleState picks the post-cycle state from the cycle's outcome.
func (s *syncService) settleState(cycleErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case errors.Is(cycleErr, adapter.ErrOffline):
		s.state = models.SyncOffline
	case len(s.conflicts) > 0:
		s.state = models.SyncConflicted
	default:
		s.state = models.SyncIdle
	}
}
