package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/smart-habits/internal/models"
	"github.com/google/uuid"
)

const taskColumns = `id, user_id, title, category, scheduled_time, days_of_week,
	notification_minutes_before, color, is_active, created_at, updated_at`

// TaskRepository handles task database operations
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new task. CreatedAt is kept when already set so imports
// can preserve history; otherwise it is set to now.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	days, err := encodeDays(task.DaysOfWeek)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		task.ID,
		task.UserID,
		task.Title,
		task.Category,
		task.ScheduledTime,
		days,
		task.NotificationMinutesBefore,
		task.Color,
		task.IsActive,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetByID retrieves a task owned by userID
func (r *TaskRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1 AND user_id = $2
	`, id, userID)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// ListByUser returns all of a user's tasks, oldest first
func (r *TaskRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// Update overwrites the editable fields of a task
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	days, err := encodeDays(task.DaysOfWeek)
	if err != nil {
		return err
	}

	task.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = $1, category = $2, scheduled_time = $3, days_of_week = $4,
			notification_minutes_before = $5, color = $6, is_active = $7, updated_at = $8
		WHERE id = $9 AND user_id = $10
	`,
		task.Title,
		task.Category,
		task.ScheduledTime,
		days,
		task.NotificationMinutesBefore,
		task.Color,
		task.IsActive,
		task.UpdatedAt,
		task.ID,
		task.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return expectRow(result, "task", task.ID)
}

// Delete removes a task together with its records, reversing the tag usage
// those records contributed.
func (r *TaskRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var owner uuid.UUID
		err := tx.QueryRowContext(ctx, `SELECT user_id FROM tasks WHERE id = $1 AND user_id = $2`+r.db.forUpdate(), id, userID).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("task %s: %w", id, models.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get task: %w", err)
		}

		records, err := queryRecords(ctx, tx, `
			SELECT `+recordColumns+`
			FROM task_records
			WHERE task_id = $1 AND status = $2
		`, id, models.RecordStatusFailed)
		if err != nil {
			return err
		}
		if err := reverseUsage(ctx, tx, userID, records, time.Now().UTC()); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM task_records WHERE task_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete task records: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID); err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		return nil
	})
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var days string
	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Category,
		&task.ScheduledTime,
		&days,
		&task.NotificationMinutesBefore,
		&task.Color,
		&task.IsActive,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if task.DaysOfWeek, err = decodeDays(days); err != nil {
		return nil, err
	}
	return task, nil
}

func expectRow(result sql.Result, entity string, id uuid.UUID) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, models.ErrNotFound)
	}
	return nil
}
