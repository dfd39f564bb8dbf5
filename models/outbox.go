package models

import "time"

// Operation is the kind of mutation recorded in an outbox entry.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// OutboxEntry is one pending local mutation awaiting propagation to the
// remote authority. Entries are append-only until marked synced, after which
// they become eligible for pruning.
type OutboxEntry struct {
	// ID is the monotonically increasing client-assigned sequence number
	// (sqlite AUTOINCREMENT). Drain order is ascending ID, which preserves
	// per-resource mutation order.
	ID int64 `json:"id"`

	// Op is the mutation kind.
	Op Operation `json:"op"`

	// Kind is the item kind of the mutated resource.
	Kind ItemKind `json:"kind"`

	// ItemID identifies the mutated vault item.
	ItemID string `json:"item_id"`

	// Payload is the ciphered JSON snapshot of the item at mutation time.
	// Empty for deletes.
	Payload []byte `json:"payload,omitempty"`

	// BaseVersion is the item version this mutation was based on. The remote
	// authority compares it against its current version to detect conflicts.
	BaseVersion int64 `json:"base_version"`

	// Timestamp is the wall-clock time the mutation was recorded.
	Timestamp time.Time `json:"timestamp"`

	// Synced is set once the remote authority has accepted the entry.
	Synced bool `json:"synced"`
}

// TableName returns the name of the local database table associated with
// the OutboxEntry model.
func (e *OutboxEntry) TableName() string {
	return "outbox"
}
