// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ChatSession model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only
// persistence and query composition.
//
// Error semantics:
//   - When a session is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - A second session for the same application yields ErrDuplicate.
//   - On other DB errors the raw gorm error is propagated.
//
// Usage:
//
//	s, err := repo.GetSessionByApplication(ctx, db, appID)
//	if errors.Is(err, repo.ErrNotFound) {
//	    s, err = repo.CreateSession(ctx, db, appID)
//	}
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-interview-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateSession inserts an ACTIVE session with message_count 0 for the given
// application. It returns ErrDuplicate when the application already has one.
func CreateSession(ctx context.Context, db *gorm.DB, applicationID string) (*domain.ChatSession, error) {
	now := time.Now().UTC()
	s := &domain.ChatSession{
		ID:            uuid.NewString(),
		ApplicationID: applicationID,
		Status:        domain.SessionActive,
		MessageCount:  0,
		StartedAt:     now,
		UpdatedAt:     now,
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return s, nil
}

// GetSession fetches a session by ID.
func GetSession(ctx context.Context, db *gorm.DB, id string) (*domain.ChatSession, error) {
	var s domain.ChatSession
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSessionByApplication fetches the session owned by applicationID.
func GetSessionByApplication(ctx context.Context, db *gorm.DB, applicationID string) (*domain.ChatSession, error) {
	var s domain.ChatSession
	if err := db.WithContext(ctx).Where("application_id = ?", applicationID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// IncrementMessageCount adds exactly one to message_count with an in-SQL
// increment, so concurrent readers never cause a lost update.
func IncrementMessageCount(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.ChatSession{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"message_count": gorm.Expr("message_count + ?", 1),
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteSession moves an ACTIVE session to COMPLETE and stamps
// completed_at. It reports false when the session was already complete (or
// missing), which lets callers run completion side effects exactly once.
func CompleteSession(ctx context.Context, db *gorm.DB, id string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.ChatSession{}).
		Where("id = ? AND status = ?", id, domain.SessionActive).
		Updates(map[string]any{
			"status":       domain.SessionComplete,
			"completed_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
