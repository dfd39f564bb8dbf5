package store

import (
	"context"
	"time"

	"github.com/passring/passring/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// VaultRepository is the low-level local vault table store. It persists
// items exactly as handed to it, every sensitive field already encrypted,
// and never sees plaintext.
type VaultRepository interface {
	// SaveWithOutbox inserts a new item and its outbox entry in one
	// transaction. Either both rows land or neither does.
	SaveWithOutbox(ctx context.Context, item *models.VaultItem, entry *models.OutboxEntry) error

	// UpdateWithOutbox overwrites an existing item and appends its outbox
	// entry in one transaction. Returns ErrItemNotFound when no row matches.
	UpdateWithOutbox(ctx context.Context, item *models.VaultItem, entry *models.OutboxEntry) error

	// ApplyRemote upserts an item without touching the outbox. Reserved for
	// reconciliation results that must not echo back to the server.
	ApplyRemote(ctx context.Context, item *models.VaultItem) error

	Get(ctx context.Context, ownerID int64, id string) (models.VaultItem, error)

	// List returns the owner's items; soft-deleted rows are excluded unless
	// includeDeleted is set.
	List(ctx context.Context, ownerID int64, includeDeleted bool) ([]models.VaultItem, error)

	// ListChildren returns live folders whose parent_id equals parentID plus
	// live items whose folder_id equals parentID.
	ListChildren(ctx context.Context, ownerID int64, parentID string) ([]models.VaultItem, error)

	// FindTagByName looks a tag up by owner and case-insensitive trimmed
	// name. Returns ErrItemNotFound when absent.
	FindTagByName(ctx context.Context, ownerID int64, name string) (models.VaultItem, error)

	// TagItem / UntagItem maintain the explicit item_tags association table;
	// ListItemTags returns the tag ids attached to an item.
	TagItem(ctx context.Context, itemID, tagID string) error
	UntagItem(ctx context.Context, itemID, tagID string) error
	ListItemTags(ctx context.Context, itemID string) ([]string, error)

	// PurgeDeletedBefore hard-deletes soft-deleted rows older than cutoff
	// and returns the number of purged rows.
	PurgeDeletedBefore(ctx context.Context, ownerID int64, cutoff time.Time) (int64, error)

	// ReplaceAll wipes the owner's items and outbox and installs the given
	// snapshot, all in one transaction. Used by force-sync recovery.
	ReplaceAll(ctx context.Context, ownerID int64, items []models.VaultItem) error
}

// OutboxRepository manages the append-only log of pending local mutations.
// Appends happen inside VaultRepository transactions; this interface covers
// the drain/complete/prune side of the lifecycle.
type OutboxRepository interface {
	// Drain returns up to limit unsynced entries, oldest first (ascending
	// id). limit <= 0 means no limit.
	Drain(ctx context.Context, limit int) ([]models.OutboxEntry, error)

	Get(ctx context.Context, id int64) (models.OutboxEntry, error)

	// MarkSynced completes an entry. Returns ErrOutboxEntryNotFound when the
	// id does not exist.
	MarkSynced(ctx context.Context, id int64) error

	// Discard drops a pending entry without syncing it (conflict resolved in
	// the remote's favour).
	Discard(ctx context.Context, id int64) error

	// Prune deletes synced entries older than before and returns the count.
	Prune(ctx context.Context, before time.Time) (int64, error)
}
