// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the outbox of interview-scoring tasks
// written when a session completes and drained by the scoring worker.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-interview-backend/internal/domain"
)

// CreateScoringTask enqueues scoring for a completed session, due at now.
// A session can be enqueued once; a second call yields ErrDuplicate.
func CreateScoringTask(ctx context.Context, db *gorm.DB, sessionID, applicationID string, now time.Time) (*domain.ScoringTask, error) {
	t := &domain.ScoringTask{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		ApplicationID: applicationID,
		Status:        domain.ScoringPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return t, nil
}

// GetScoringTask fetches a task by ID.
func GetScoringTask(ctx context.Context, db *gorm.DB, id string) (*domain.ScoringTask, error) {
	var t domain.ScoringTask
	if err := db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// GetScoringTaskBySession fetches the task enqueued for a session.
func GetScoringTaskBySession(ctx context.Context, db *gorm.DB, sessionID string) (*domain.ScoringTask, error) {
	var t domain.ScoringTask
	if err := db.WithContext(ctx).Where("session_id = ?", sessionID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ListDueScoringTasks returns PENDING tasks whose next attempt is at or
// before now, oldest first.
func ListDueScoringTasks(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.ScoringTask, error) {
	var out []domain.ScoringTask
	q := db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", domain.ScoringPending, now).
		Order("next_attempt_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// MarkScoringDone finalizes a task after a successful merge.
func MarkScoringDone(ctx context.Context, db *gorm.DB, id string) error {
	return updateScoringTask(ctx, db, id, map[string]any{
		"status":     domain.ScoringDone,
		"last_error": "",
		"updated_at": time.Now().UTC(),
	})
}

// MarkScoringAttemptFailed records a failed attempt. When next is nil the task
// becomes FAILED; otherwise it stays PENDING and is retried at *next.
func MarkScoringAttemptFailed(ctx context.Context, db *gorm.DB, id string, attempts int, lastErr string, next *time.Time) error {
	now := time.Now().UTC()
	updates := map[string]any{
		"attempts":   attempts,
		"last_error": lastErr,
		"updated_at": now,
	}
	if next == nil {
		updates["status"] = domain.ScoringFailed
	} else {
		updates["next_attempt_at"] = *next
	}
	return updateScoringTask(ctx, db, id, updates)
}

// RequeueScoringTask resets a session's task to PENDING with no attempts so
// it is picked up by the next sweep.
func RequeueScoringTask(ctx context.Context, db *gorm.DB, sessionID string, now time.Time) (*domain.ScoringTask, error) {
	res := db.WithContext(ctx).
		Model(&domain.ScoringTask{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]any{
			"status":          domain.ScoringPending,
			"attempts":        0,
			"last_error":      "",
			"next_attempt_at": now,
			"updated_at":      now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return GetScoringTaskBySession(ctx, db, sessionID)
}

// CountScoringTasks returns the number of tasks in status.
func CountScoringTasks(ctx context.Context, db *gorm.DB, status domain.ScoringTaskStatus) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.ScoringTask{}).
		Where("status = ?", status).
		Count(&n).Error
	return n, err
}

func updateScoringTask(ctx context.Context, db *gorm.DB, id string, updates map[string]any) error {
	res := db.WithContext(ctx).Model(&domain.ScoringTask{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
