package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/smart-habits/internal/engine"
	"github.com/benvon/smart-habits/internal/models"
	"github.com/google/uuid"
)

const recordColumns = `id, task_id, user_id, date, status, failure_tag_ids, memo, recorded_at`

// RecordRepository handles task record database operations
type RecordRepository struct {
	db *DB
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Upsert saves the record for (task, date), replacing any existing one, and
// applies the resulting tag usage delta in the same transaction. It returns
// the record that was replaced, or nil on first save. rec.ID is set to the
// stored id, which is kept stable across re-saves.
func (r *RecordRepository) Upsert(ctx context.Context, rec *models.TaskRecord) (*models.TaskRecord, error) {
	rec.Normalize()
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	tags, err := encodeIDs(rec.FailureTagIDs)
	if err != nil {
		return nil, err
	}

	var previous *models.TaskRecord
	err = r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := checkTaskOwned(ctx, tx, rec.UserID, rec.TaskID); err != nil {
			return err
		}
		if err := checkTagsOwned(ctx, tx, rec.UserID, rec.FailureTagIDs); err != nil {
			return err
		}

		prev, err := queryRecord(ctx, tx, `
			SELECT `+recordColumns+`
			FROM task_records
			WHERE task_id = $1 AND date = $2
		`+r.db.forUpdate(), rec.TaskID, rec.Date)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to read previous record: %w", err)
		}
		previous = prev

		err = tx.QueryRowContext(ctx, `
			INSERT INTO task_records (`+recordColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (task_id, date) DO UPDATE SET
				status = EXCLUDED.status,
				failure_tag_ids = EXCLUDED.failure_tag_ids,
				memo = EXCLUDED.memo,
				recorded_at = EXCLUDED.recorded_at
			RETURNING id
		`,
			rec.ID,
			rec.TaskID,
			rec.UserID,
			rec.Date,
			rec.Status,
			tags,
			rec.Memo,
			rec.RecordedAt,
		).Scan(&rec.ID)
		if err != nil {
			return fmt.Errorf("failed to upsert record: %w", err)
		}

		return applyUsageDelta(ctx, tx, rec.UserID, engine.TagUsageDelta(previous, rec), rec.RecordedAt)
	})
	if err != nil {
		return nil, err
	}
	return previous, nil
}

// GetByID retrieves a record owned by userID
func (r *RecordRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.TaskRecord, error) {
	rec, err := queryRecord(ctx, r.db, `
		SELECT `+recordColumns+`
		FROM task_records
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

// Delete removes a record and reverses its tag usage
func (r *RecordRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		rec, err := queryRecord(ctx, tx, `
			SELECT `+recordColumns+`
			FROM task_records
			WHERE id = $1 AND user_id = $2
		`+r.db.forUpdate(), id, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("record %s: %w", id, models.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get record: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM task_records WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete record: %w", err)
		}
		return reverseUsage(ctx, tx, userID, []*models.TaskRecord{rec}, time.Now().UTC())
	})
}

// ListByUser returns a user's records within the inclusive range, newest
// date first. A zero From or To leaves that end open.
func (r *RecordRepository) ListByUser(ctx context.Context, userID uuid.UUID, dates models.DateRange) ([]*models.TaskRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM task_records
		WHERE user_id = $1
	`
	args := []any{userID}
	argIndex := 2

	if !dates.From.IsZero() {
		query += fmt.Sprintf(" AND date >= $%d", argIndex)
		args = append(args, dates.From)
		argIndex++
	}
	if !dates.To.IsZero() {
		query += fmt.Sprintf(" AND date <= $%d", argIndex)
		args = append(args, dates.To)
	}
	query += " ORDER BY date DESC, recorded_at DESC"

	return queryRecords(ctx, r.db, query, args...)
}

func checkTaskOwned(ctx context.Context, q execQuerier, userID, taskID uuid.UUID) error {
	var id uuid.UUID
	err := q.QueryRowContext(ctx, `SELECT id FROM tasks WHERE id = $1 AND user_id = $2`, taskID, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.ReferenceError{Entity: "task", ID: taskID.String()}
	}
	if err != nil {
		return fmt.Errorf("failed to check task: %w", err)
	}
	return nil
}

func checkTagsOwned(ctx context.Context, q execQuerier, userID uuid.UUID, tagIDs []uuid.UUID) error {
	if len(tagIDs) == 0 {
		return nil
	}
	placeholders := make([]string, len(tagIDs))
	args := []any{userID}
	for i, id := range tagIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id FROM user_tags
		WHERE user_id = $1 AND id IN (`+strings.Join(placeholders, ", ")+`)
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to check tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	found := make(map[uuid.UUID]bool, len(tagIDs))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan tag id: %w", err)
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating tags: %w", err)
	}

	for _, id := range tagIDs {
		if !found[id] {
			return &models.ReferenceError{Entity: "tag", ID: id.String()}
		}
	}
	return nil
}

func queryRecord(ctx context.Context, q execQuerier, query string, args ...any) (*models.TaskRecord, error) {
	return scanRecord(q.QueryRowContext(ctx, query, args...))
}

func queryRecords(ctx context.Context, q execQuerier, query string, args ...any) ([]*models.TaskRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*models.TaskRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}

func scanRecord(row rowScanner) (*models.TaskRecord, error) {
	rec := &models.TaskRecord{}
	var tags string
	err := row.Scan(
		&rec.ID,
		&rec.TaskID,
		&rec.UserID,
		&rec.Date,
		&rec.Status,
		&tags,
		&rec.Memo,
		&rec.RecordedAt,
	)
	if err != nil {
		return nil, err
	}
	if rec.FailureTagIDs, err = decodeIDs(tags); err != nil {
		return nil, err
	}
	return rec, nil
}
