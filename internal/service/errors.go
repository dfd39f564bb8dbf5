package service

import "errors"

var (
	// ErrKeyUnavailable is returned by every operation that needs the cipher
	// while the vault is locked (no KeySet installed in the codec).
	ErrKeyUnavailable = errors.New("encryption key unavailable: vault is locked")

	// ErrCorruptRecord is returned when an encrypted record authenticates and
	// decrypts correctly but its plaintext is not a valid serialized record.
	ErrCorruptRecord = errors.New("corrupt record payload")

	// ErrNotFound is returned when the requested vault item does not exist or
	// belongs to another owner.
	ErrNotFound = errors.New("vault item not found")

	// ErrMaxNestingExceeded is returned when creating or moving a folder
	// would exceed the maximum folder depth.
	ErrMaxNestingExceeded = errors.New("maximum folder nesting depth exceeded")

	// ErrDuplicateName is returned when a tag with the same trimmed
	// case-insensitive name already exists for the owner.
	ErrDuplicateName = errors.New("duplicate tag name")

	// ErrSyncInProgress is returned by ManualSync when a cycle is already
	// running.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrConflictNotFound is returned by ResolveConflict for an unknown
	// conflict id.
	ErrConflictNotFound = errors.New("conflict not found")

	// ErrInvalidInput is returned when a Create or Update call carries fields
	// inconsistent with the item kind.
	ErrInvalidInput = errors.New("invalid item data provided")
)
