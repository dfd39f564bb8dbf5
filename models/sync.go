// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passring Authors

package models

import "time"

// SyncState is the reconciliation engine's externally visible state.
type SyncState int

const (
	// SyncIdle means no cycle is in flight and no conflicts are pending.
	SyncIdle SyncState = iota

	// SyncSyncing means a drain/submit cycle is currently running.
	SyncSyncing

	// SyncConflicted means at least one version conflict awaits resolution.
	SyncConflicted

	// SyncOffline means the last cycle failed on connectivity; pending
	// entries are retried on the next connectivity signal or manual trigger.
	SyncOffline
)

// String returns a log-friendly name of the state.
func (s SyncState) String() string {
	switch s {
	case SyncIdle:
		return "idle"
	case SyncSyncing:
		return "syncing"
	case SyncConflicted:
		return "conflicted"
	case SyncOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// SyncConflict is produced when the remote authority reports a version for a
// resource that differs from the version the local mutation was based on.
// The conflicting outbox entry is held (not marked synced) until the caller
// resolves the conflict in one direction or the other.
type SyncConflict struct {
	// ConflictID identifies the conflict for ResolveConflict calls.
	ConflictID string `json:"conflict_id"`

	// ItemID is the contested resource.
	ItemID string `json:"item_id"`

	// OutboxID is the held outbox entry that triggered the conflict.
	OutboxID int64 `json:"outbox_id"`

	LocalVersion  int64 `json:"local_version"`
	RemoteVersion int64 `json:"remote_version"`

	// LocalPayload is the ciphered snapshot the client attempted to push.
	LocalPayload []byte `json:"local_payload,omitempty"`

	// RemotePayload is the remote authority's current ciphered snapshot.
	RemotePayload []byte `json:"remote_payload,omitempty"`
}

// PushRequest submits a single outbox entry to the remote authority.
type PushRequest struct {
	Kind            ItemKind  `json:"kind"`
	ItemID          string    `json:"item_id"`
	Op              Operation `json:"op"`
	Payload         []byte    `json:"payload,omitempty"`
	ExpectedVersion int64     `json:"expected_version"`

	// Force requests an overwrite regardless of the remote version. Set only
	// by conflict resolution with useRemote=false.
	Force bool `json:"force,omitempty"`
}

// PushResult is the remote authority's answer to a PushRequest. Exactly one
// of the two shapes is populated: acceptance with the new canonical version,
// or a conflict carrying the remote's current state.
type PushResult struct {
	Accepted   bool  `json:"accepted"`
	NewVersion int64 `json:"new_version,omitempty"`

	Conflict       bool   `json:"conflict,omitempty"`
	CurrentVersion int64  `json:"current_version,omitempty"`
	CurrentPayload []byte `json:"current_payload,omitempty"`
}

// RemoteItem is the wire representation of a vault item in a full-snapshot
// pull: the authoritative version plus the ciphered item snapshot.
type RemoteItem struct {
	ItemID    string     `json:"item_id"`
	Kind      ItemKind   `json:"kind"`
	Version   int64      `json:"version"`
	Payload   []byte     `json:"payload"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Snapshot is the authoritative list of all non-purged resources.
type Snapshot struct {
	Items []RemoteItem `json:"items"`

	// Length is the total number of entries in Items.
	Length int `json:"length"`
}
