// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passring Authors

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/passring/passring/internal/logger"
	"github.com/passring/passring/models"
)

// itemColumns is the canonical column order shared by every SELECT and the
// scan helpers below.
var itemColumns = []string{
	"id", "owner_id", "kind", "title", "username", "url",
	"folder_id", "parent_id", "secret", "body",
	"version", "created_at", "updated_at", "deleted_at",
}

type vaultRepository struct {
	*DB
	logger *logger.Logger
}

func NewVaultRepository(db *DB, logger *logger.Logger) VaultRepository {
	return &vaultRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *vaultRepository) SaveWithOutbox(ctx context.Context, item *models.VaultItem, entry *models.OutboxEntry) error {
	log := logger.FromContext(ctx)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	query, args, err := insertItemBuilder(item).ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "vaultRepository.SaveWithOutbox").
			Str("item_id", item.ID).
			Msg("failed to insert vault item")
		return fmt.Errorf("failed to save vault item (id=%s): %w", item.ID, err)
	}

	if err = insertOutboxEntry(ctx, tx, entry); err != nil {
		log.Err(err).
			Str("func", "vaultRepository.SaveWithOutbox").
			Str("item_id", item.ID).
			Msg("failed to enqueue outbox entry, rolling back item insert")
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}
	return nil
}

func (r *vaultRepository) UpdateWithOutbox(ctx context.Context, item *models.VaultItem, entry *models.OutboxEntry) error {
	log := logger.FromContext(ctx)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	affected, err := updateItem(ctx, tx, item)
	if err != nil {
		log.Err(err).
			Str("func", "vaultRepository.UpdateWithOutbox").
			Str("item_id", item.ID).
			Msg("failed to update vault item")
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w (id=%s)", ErrItemNotFound, item.ID)
	}

	if err = insertOutboxEntry(ctx, tx, entry); err != nil {
		log.Err(err).
			Str("func", "vaultRepository.UpdateWithOutbox").
			Str("item_id", item.ID).
			Msg("failed to enqueue outbox entry, rolling back item update")
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}
	return nil
}

func (r *vaultRepository) ApplyRemote(ctx context.Context, item *models.VaultItem) error {
	log := logger.FromContext(ctx)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	affected, err := updateItem(ctx, tx, item)
	if err != nil {
		log.Err(err).
			Str("func", "vaultRepository.ApplyRemote").
			Str("item_id", item.ID).
			Msg("failed to apply remote item state")
		return err
	}
	if affected == 0 {
		query, args, buildErr := insertItemBuilder(item).ToSql()
		if buildErr != nil {
			return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, buildErr)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			log.Err(err).
				Str("func", "vaultRepository.ApplyRemote").
				Str("item_id", item.ID).
				Msg("failed to insert remote item state")
			return fmt.Errorf("failed to apply remote item (id=%s): %w", item.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}
	return nil
}

func (r *vaultRepository) Get(ctx context.Context, ownerID int64, id string) (models.VaultItem, error) {
	query, args, err := sq.Select(itemColumns...).
		From("vault_items").
		Where(sq.Eq{"owner_id": ownerID, "id": id}).
		ToSql()
	if err != nil {
		return models.VaultItem{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	item, err := scanItem(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.VaultItem{}, fmt.Errorf("%w (id=%s)", ErrItemNotFound, id)
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "vaultRepository.Get").
			Int64("owner_id", ownerID).
			Str("item_id", id).
			Msg("failed to scan vault item row")
		return models.VaultItem{}, err
	}
	return item, nil
}

func (r *vaultRepository) List(ctx context.Context, ownerID int64, includeDeleted bool) ([]models.VaultItem, error) {
	builder := sq.Select(itemColumns...).
		From("vault_items").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("created_at")
	if !includeDeleted {
		builder = builder.Where(sq.Eq{"deleted_at": nil})
	}

	return r.queryItems(ctx, builder, "vaultRepository.List")
}

func (r *vaultRepository) ListChildren(ctx context.Context, ownerID int64, parentID string) ([]models.VaultItem, error) {
	builder := sq.Select(itemColumns...).
		From("vault_items").
		Where(sq.Eq{"owner_id": ownerID, "deleted_at": nil}).
		Where(sq.Or{sq.Eq{"parent_id": parentID}, sq.Eq{"folder_id": parentID}})

	return r.queryItems(ctx, builder, "vaultRepository.ListChildren")
}

func (r *vaultRepository) FindTagByName(ctx context.Context, ownerID int64, name string) (models.VaultItem, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))

	query, args, err := sq.Select(itemColumns...).
		From("vault_items").
		Where(sq.Eq{"owner_id": ownerID, "kind": models.Tag, "deleted_at": nil}).
		Where("LOWER(TRIM(title)) = ?", normalized).
		ToSql()
	if err != nil {
		return models.VaultItem{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	item, err := scanItem(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.VaultItem{}, fmt.Errorf("%w (tag=%s)", ErrItemNotFound, name)
	}
	return item, err
}

func (r *vaultRepository) TagItem(ctx context.Context, itemID, tagID string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT OR IGNORE INTO item_tags (item_id, tag_id) VALUES (?, ?);`, itemID, tagID)
	if err != nil {
		return fmt.Errorf("failed to tag item (item_id=%s, tag_id=%s): %w", itemID, tagID, err)
	}
	return nil
}

func (r *vaultRepository) UntagItem(ctx context.Context, itemID, tagID string) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM item_tags WHERE item_id = ? AND tag_id = ?;`, itemID, tagID)
	if err != nil {
		return fmt.Errorf("failed to untag item (item_id=%s, tag_id=%s): %w", itemID, tagID, err)
	}
	return nil
}

func (r *vaultRepository) ListItemTags(ctx context.Context, itemID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT tag_id FROM item_tags WHERE item_id = ? ORDER BY tag_id;`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query item tags (item_id=%s): %w", itemID, err)
	}
	defer rows.Close()

	var tagIDs []string
	for rows.Next() {
		var tagID string
		if err = rows.Scan(&tagID); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		tagIDs = append(tagIDs, tagID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item tag rows: %w", err)
	}
	return tagIDs, nil
}

func (r *vaultRepository) PurgeDeletedBefore(ctx context.Context, ownerID int64, cutoff time.Time) (int64, error) {
	log := logger.FromContext(ctx)

	query, args, err := sq.Delete("vault_items").
		Where(sq.Eq{"owner_id": ownerID}).
		Where(sq.NotEq{"deleted_at": nil}).
		Where(sq.Lt{"deleted_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	result, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "vaultRepository.PurgeDeletedBefore").
			Int64("owner_id", ownerID).
			Msg("failed to purge expired soft-deleted items")
		return 0, fmt.Errorf("failed to purge expired items: %w", err)
	}

	purged, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get purged row count: %w", err)
	}
	return purged, nil
}

func (r *vaultRepository) ReplaceAll(ctx context.Context, ownerID int64, items []models.VaultItem) error {
	log := logger.FromContext(ctx)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	// Associations first, then items, then the now-moot outbox.
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM item_tags WHERE item_id IN (SELECT id FROM vault_items WHERE owner_id = ?);`, ownerID); err != nil {
		return fmt.Errorf("failed to clear item tags: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM vault_items WHERE owner_id = ?;`, ownerID); err != nil {
		return fmt.Errorf("failed to clear vault items: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM outbox;`); err != nil {
		return fmt.Errorf("failed to clear outbox: %w", err)
	}

	for i := range items {
		query, args, buildErr := insertItemBuilder(&items[i]).ToSql()
		if buildErr != nil {
			return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, buildErr)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			log.Err(err).
				Str("func", "vaultRepository.ReplaceAll").
				Str("item_id", items[i].ID).
				Msg("failed to insert snapshot item")
			return fmt.Errorf("failed to install snapshot item (id=%s): %w", items[i].ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}
	return nil
}

func (r *vaultRepository) queryItems(ctx context.Context, builder sq.SelectBuilder, caller string) ([]models.VaultItem, error) {
	log := logger.FromContext(ctx)

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", caller).Msg("failed to execute vault item query")
		return nil, fmt.Errorf("failed to query vault items: %w", err)
	}
	defer rows.Close()

	var items []models.VaultItem
	for rows.Next() {
		item, scanErr := scanItem(rows)
		if scanErr != nil {
			log.Err(scanErr).Str("func", caller).Msg("failed to scan vault item row")
			return nil, scanErr
		}
		items = append(items, item)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).Str("func", caller).Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("error iterating vault item rows: %w", rowsErr)
	}
	return items, nil
}

// insertItemBuilder produces the INSERT for a full item row.
func insertItemBuilder(item *models.VaultItem) sq.InsertBuilder {
	return sq.Insert("vault_items").
		Columns(itemColumns...).
		Values(
			item.ID,
			item.OwnerID,
			item.Kind,
			item.Title,
			item.Username,
			item.URL,
			item.FolderID,
			item.ParentID,
			marshalPayload(item.Secret),
			marshalPayload(item.Body),
			item.Version,
			item.CreatedAt,
			item.UpdatedAt,
			item.DeletedAt,
		)
}

func updateItem(ctx context.Context, tx *sql.Tx, item *models.VaultItem) (int64, error) {
	query, args, err := sq.Update("vault_items").
		Set("kind", item.Kind).
		Set("title", item.Title).
		Set("username", item.Username).
		Set("url", item.URL).
		Set("folder_id", item.FolderID).
		Set("parent_id", item.ParentID).
		Set("secret", marshalPayload(item.Secret)).
		Set("body", marshalPayload(item.Body)).
		Set("version", item.Version).
		Set("updated_at", item.UpdatedAt).
		Set("deleted_at", item.DeletedAt).
		Where(sq.Eq{"owner_id": item.OwnerID, "id": item.ID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update vault item (id=%s): %w", item.ID, err)
	}
	return result.RowsAffected()
}

// insertOutboxEntry appends entry inside the mutation's transaction and
// backfills the assigned monotonic id.
func insertOutboxEntry(ctx context.Context, tx *sql.Tx, entry *models.OutboxEntry) error {
	query, args, err := sq.Insert("outbox").
		Columns("op", "kind", "item_id", "payload", "base_version", "ts", "synced").
		Values(entry.Op, entry.Kind, entry.ItemID, entry.Payload, entry.BaseVersion, entry.Timestamp, entry.Synced).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutboxNotEnqueued, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutboxNotEnqueued, err)
	}
	if affected == 0 {
		return ErrOutboxNotEnqueued
	}

	if id, idErr := result.LastInsertId(); idErr == nil {
		entry.ID = id
	}
	return nil
}

// marshalPayload serializes an encrypted payload for a BLOB column. Nil
// payloads map to NULL.
func marshalPayload(p *models.EncryptedPayload) []byte {
	if p == nil {
		return nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		// Payload structs contain only byte slices; marshalling cannot fail.
		return nil
	}
	return raw
}

func unmarshalPayload(raw []byte) (*models.EncryptedPayload, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var p models.EncryptedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode encrypted payload column: %w", err)
	}
	return &p, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (models.VaultItem, error) {
	var (
		item        models.VaultItem
		secret, bod []byte
	)
	err := row.Scan(
		&item.ID,
		&item.OwnerID,
		&item.Kind,
		&item.Title,
		&item.Username,
		&item.URL,
		&item.FolderID,
		&item.ParentID,
		&secret,
		&bod,
		&item.Version,
		&item.CreatedAt,
		&item.UpdatedAt,
		&item.DeletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.VaultItem{}, err
	}
	if err != nil {
		return models.VaultItem{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	if item.Secret, err = unmarshalPayload(secret); err != nil {
		return models.VaultItem{}, err
	}
	if item.Body, err = unmarshalPayload(bod); err != nil {
		return models.VaultItem{}, err
	}
	return item, nil
}
