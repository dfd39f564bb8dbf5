package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/passring/passring/internal/logger"
	"github.com/passring/passring/models"
)

var outboxColumns = []string{"id", "op", "kind", "item_id", "payload", "base_version", "ts", "synced"}

type outboxRepository struct {
	*DB
	logger *logger.Logger
}

func NewOutboxRepository(db *DB, logger *logger.Logger) OutboxRepository {
	return &outboxRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *outboxRepository) Drain(ctx context.Context, limit int) ([]models.OutboxEntry, error) {
	log := logger.FromContext(ctx)

	builder := sq.Select(outboxColumns...).
		From("outbox").
		Where(sq.Eq{"synced": false}).
		OrderBy("id ASC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "outboxRepository.Drain").
			Msg("failed to query unsynced outbox entries")
		return nil, fmt.Errorf("failed to query outbox entries: %w", err)
	}
	defer rows.Close()

	var entries []models.OutboxEntry
	for rows.Next() {
		entry, scanErr := scanOutboxEntry(rows)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "outboxRepository.Drain").
				Msg("failed to scan outbox entry row")
			return nil, scanErr
		}
		entries = append(entries, entry)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "outboxRepository.Drain").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("error iterating outbox rows: %w", rowsErr)
	}

	return entries, nil
}

func (r *outboxRepository) Get(ctx context.Context, id int64) (models.OutboxEntry, error) {
	query, args, err := sq.Select(outboxColumns...).
		From("outbox").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.OutboxEntry{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	entry, err := scanOutboxEntry(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.OutboxEntry{}, fmt.Errorf("%w (id=%d)", ErrOutboxEntryNotFound, id)
	}
	return entry, err
}

func (r *outboxRepository) MarkSynced(ctx context.Context, id int64) error {
	return r.exec(ctx, "outboxRepository.MarkSynced", id,
		sq.Update("outbox").Set("synced", true).Where(sq.Eq{"id": id}))
}

func (r *outboxRepository) Discard(ctx context.Context, id int64) error {
	return r.exec(ctx, "outboxRepository.Discard", id,
		sq.Delete("outbox").Where(sq.Eq{"id": id}))
}

func (r *outboxRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	log := logger.FromContext(ctx)

	query, args, err := sq.Delete("outbox").
		Where(sq.Eq{"synced": true}).
		Where(sq.Lt{"ts": before}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	result, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "outboxRepository.Prune").
			Msg("failed to prune synced outbox entries")
		return 0, fmt.Errorf("failed to prune outbox: %w", err)
	}
	return result.RowsAffected()
}

// exec runs an UPDATE/DELETE builder that targets a single entry and maps
// zero affected rows to ErrOutboxEntryNotFound.
func (r *outboxRepository) exec(ctx context.Context, caller string, id int64, builder sq.Sqlizer) error {
	log := logger.FromContext(ctx)

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	result, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", caller).
			Int64("outbox_id", id).
			Msg("failed to execute outbox statement")
		return fmt.Errorf("failed to execute outbox statement (id=%d): %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected (id=%d): %w", id, err)
	}
	if affected == 0 {
		log.Warn().
			Str("func", caller).
			Int64("outbox_id", id).
			Msg("no rows affected: outbox entry not found")
		return fmt.Errorf("%w (id=%d)", ErrOutboxEntryNotFound, id)
	}
	return nil
}

func scanOutboxEntry(row rowScanner) (models.OutboxEntry, error) {
	var entry models.OutboxEntry
	err := row.Scan(
		&entry.ID,
		&entry.Op,
		&entry.Kind,
		&entry.ItemID,
		&entry.Payload,
		&entry.BaseVersion,
		&entry.Timestamp,
		&entry.Synced,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.OutboxEntry{}, err
	}
	if err != nil {
		return models.OutboxEntry{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return entry, nil
}
