// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passring Authors

package models

import "time"

// MaxFolderDepth is the maximum allowed folder nesting depth. A folder at
// depth MaxFolderDepth-1 may not receive children.
const MaxFolderDepth = 5

// SoftDeleteRetention is how long a soft-deleted item remains restorable
// before the janitor purges it permanently.
const SoftDeleteRetention = 30 * 24 * time.Hour

// VaultItem represents a single vault entity: a credential, a secure note,
// a folder, or a tag. Sensitive content lives only in the EncryptedPayload
// columns; titles, usernames and URLs are kept in clear so that listings and
// search do not require decrypting the whole vault.
type VaultItem struct {
	// ID is the stable client-assigned identifier (UUIDv7).
	ID string `json:"id"`

	// OwnerID references the authenticated account the item belongs to.
	OwnerID int64 `json:"owner_id"`

	// Kind selects the tagged-union payload variant for this item.
	Kind ItemKind `json:"kind"`

	// Title is the display name. For Tag items it doubles as the tag name
	// and is unique per owner (case-insensitive, trimmed).
	Title string `json:"title"`

	// Username is the clear login identifier (Credential only).
	Username string `json:"username,omitempty"`

	// URL is the clear resource locator (Credential only).
	URL string `json:"url,omitempty"`

	// FolderID places a credential or note inside a folder.
	FolderID *string `json:"folder_id,omitempty"`

	// ParentID is the parent folder of a Folder item. Nil for root folders.
	ParentID *string `json:"parent_id,omitempty"`

	// Secret holds the encrypted CredentialSecret record.
	Secret *EncryptedPayload `json:"secret,omitempty"`

	// Body holds the encrypted NoteBody record.
	Body *EncryptedPayload `json:"body,omitempty"`

	// Version starts at 1 and is incremented on every mutation. It is the
	// optimistic-locking token exchanged with the remote authority.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// DeletedAt marks a soft delete. Soft-deleted items are excluded from
	// default listings and restorable until SoftDeleteRetention elapses.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Deleted reports whether the item is currently soft-deleted.
func (i *VaultItem) Deleted() bool {
	return i.DeletedAt != nil
}

// TableName returns the name of the local database table associated with
// the VaultItem model.
func (i *VaultItem) TableName() string {
	return "vault_items"
}

// ItemPatch carries the mutable fields of an update. Nil pointers mean
// "leave unchanged". Encrypted fields are supplied as plaintext here; the
// vault service re-encrypts before persisting.
type ItemPatch struct {
	Title    *string
	Username *string
	URL      *string
	FolderID *string

	// Secret replaces the credential secret when non-nil.
	Secret *CredentialSecret

	// Body replaces the note body when non-nil.
	Body *NoteBody
}
