package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/smart-habits/internal/engine"
	"github.com/benvon/smart-habits/internal/models"
	"github.com/google/uuid"
)

const tagColumns = `id, user_id, name, usage_count, created_at, updated_at`

// TagRepository handles user tag database operations.
// usage_count is only changed through record saves, record deletions,
// task deletions and RecountUsage.
type TagRepository struct {
	db *DB
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *DB) *TagRepository {
	return &TagRepository{db: db}
}

// Upsert inserts a new tag with zero usage, or renames the tag with the same
// id. A name already used by another of the user's tags is a ConflictError.
func (r *TagRepository) Upsert(ctx context.Context, tag *models.UserTag) error {
	now := time.Now().UTC()
	if tag.ID == uuid.Nil {
		tag.ID = uuid.New()
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO user_tags (`+tagColumns+`)
		VALUES ($1, $2, $3, 0, $4, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			updated_at = EXCLUDED.updated_at
		WHERE user_tags.user_id = EXCLUDED.user_id
	`,
		tag.ID,
		tag.UserID,
		tag.Name,
		now,
	)
	if isUniqueViolation(err) {
		return &models.ConflictError{Message: fmt.Sprintf("tag %q already exists", tag.Name)}
	}
	if err != nil {
		return fmt.Errorf("failed to upsert tag: %w", err)
	}
	// no row changes when the id belongs to another user
	if err := expectRow(result, "tag", tag.ID); err != nil {
		return err
	}

	saved, err := r.GetByID(ctx, tag.UserID, tag.ID)
	if err != nil {
		return err
	}
	*tag = *saved
	return nil
}

// GetByID retrieves a tag owned by userID
func (r *TagRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.UserTag, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+tagColumns+`
		FROM user_tags
		WHERE id = $1 AND user_id = $2
	`, id, userID)

	tag, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tag %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return tag, nil
}

// ListByUser returns a user's tags, most used first
func (r *TagRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.UserTag, error) {
	return r.listByUser(ctx, r.db, userID)
}

func (r *TagRepository) listByUser(ctx context.Context, q execQuerier, userID uuid.UUID) ([]*models.UserTag, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+tagColumns+`
		FROM user_tags
		WHERE user_id = $1
		ORDER BY usage_count DESC, name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tags []*models.UserTag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return tags, nil
}

// Delete removes a tag and detaches its id from every record that references
// it, in one transaction. It returns the number of records that were rewritten.
func (r *TagRepository) Delete(ctx context.Context, userID, id uuid.UUID) (int, error) {
	detached := 0
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM user_tags WHERE id = $1 AND user_id = $2`, id, userID)
		if err != nil {
			return fmt.Errorf("failed to delete tag: %w", err)
		}
		if err := expectRow(result, "tag", id); err != nil {
			return err
		}

		// any record mentioning the id, failed or not, has it removed
		records, err := queryRecords(ctx, tx, `
			SELECT `+recordColumns+`
			FROM task_records
			WHERE user_id = $1 AND failure_tag_ids LIKE $2
		`, userID, "%"+id.String()+"%")
		if err != nil {
			return err
		}

		for _, rec := range records {
			kept := make([]uuid.UUID, 0, len(rec.FailureTagIDs))
			for _, tagID := range rec.FailureTagIDs {
				if tagID != id {
					kept = append(kept, tagID)
				}
			}
			if len(kept) == len(rec.FailureTagIDs) {
				continue
			}
			encoded, err := encodeIDs(kept)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `UPDATE task_records SET failure_tag_ids = $1 WHERE id = $2`, encoded, rec.ID); err != nil {
				return fmt.Errorf("failed to detach tag from record: %w", err)
			}
			detached++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return detached, nil
}

// RecountUsage recomputes every usage_count of a user from failed records.
// It returns the counts that were written.
func (r *TagRepository) RecountUsage(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error) {
	var counts map[uuid.UUID]int
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		tags, err := r.listByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		records, err := queryRecords(ctx, tx, `
			SELECT `+recordColumns+`
			FROM task_records
			WHERE user_id = $1 AND status = $2
		`, userID, models.RecordStatusFailed)
		if err != nil {
			return err
		}

		counts = engine.RecountUsage(tags, records)
		now := time.Now().UTC()
		for _, tag := range tags {
			if tag.UsageCount == counts[tag.ID] {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE user_tags SET usage_count = $1, updated_at = $2 WHERE id = $3
			`, counts[tag.ID], now, tag.ID); err != nil {
				return fmt.Errorf("failed to update tag usage: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func scanTag(row rowScanner) (*models.UserTag, error) {
	tag := &models.UserTag{}
	err := row.Scan(
		&tag.ID,
		&tag.UserID,
		&tag.Name,
		&tag.UsageCount,
		&tag.CreatedAt,
		&tag.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return tag, nil
}
