package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/benvon/smart-habits/internal/engine"
	"github.com/benvon/smart-habits/internal/models"
	"github.com/google/uuid"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// execQuerier is satisfied by *sql.DB, *sql.Tx and *DB
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// list columns are stored as JSON text so both dialects share one representation

func encodeIDs(ids []uuid.UUID) (string, error) {
	if ids == nil {
		ids = []uuid.UUID{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tag ids: %w", err)
	}
	return string(data), nil
}

func decodeIDs(raw string) ([]uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tag ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return ids, nil
}

func encodeDays(days models.DaysOfWeek) (string, error) {
	data, err := json.Marshal(days.Sorted())
	if err != nil {
		return "", fmt.Errorf("failed to marshal days of week: %w", err)
	}
	return string(data), nil
}

func decodeDays(raw string) (models.DaysOfWeek, error) {
	var days models.DaysOfWeek
	if err := json.Unmarshal([]byte(raw), &days); err != nil {
		return nil, fmt.Errorf("failed to unmarshal days of week: %w", err)
	}
	return days, nil
}

// applyUsageDelta adjusts user_tags.usage_count for userID, never below zero.
// Tags are updated in id order so concurrent transactions lock rows consistently.
func applyUsageDelta(ctx context.Context, q execQuerier, userID uuid.UUID, delta map[uuid.UUID]int, now time.Time) error {
	ids := make([]uuid.UUID, 0, len(delta))
	for id, change := range delta {
		if change != 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		_, err := q.ExecContext(ctx, `
			UPDATE user_tags
			SET usage_count = CASE WHEN usage_count + $1 < 0 THEN 0 ELSE usage_count + $1 END,
				updated_at = $2
			WHERE id = $3 AND user_id = $4
		`, delta[id], now, id, userID)
		if err != nil {
			return fmt.Errorf("failed to update tag usage: %w", err)
		}
	}
	return nil
}

// reverseUsage undoes the usage contributed by records that are about to be removed
func reverseUsage(ctx context.Context, q execQuerier, userID uuid.UUID, records []*models.TaskRecord, now time.Time) error {
	total := make(map[uuid.UUID]int)
	for _, rec := range records {
		for id, change := range engine.TagUsageDelta(rec, nil) {
			total[id] += change
		}
	}
	return applyUsageDelta(ctx, q, userID, total, now)
}
