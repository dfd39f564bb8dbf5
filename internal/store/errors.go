package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrItemNotFound is returned when a query or update targets a vault
	// item (identified by id and owner_id) that does not exist in the local
	// database.
	ErrItemNotFound = errors.New("vault item was not found")

	// ErrOutboxEntryNotFound is returned when an outbox operation targets an
	// entry id that does not exist.
	ErrOutboxEntryNotFound = errors.New("outbox entry was not found")

	// ErrOutboxNotEnqueued is returned when a vault mutation persisted its
	// item but the paired outbox insert affected zero rows. The surrounding
	// transaction is rolled back; the caller must treat this as fatal and
	// retry the whole mutation, never leave it half-applied.
	ErrOutboxNotEnqueued = errors.New("outbox entry was not enqueued")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails (e.g. invalid argument count or unsupported type).
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrScanningRow is returned when scanning column values from a result
	// row into a destination struct fails.
	ErrScanningRow = errors.New("failed to scan row")
)
