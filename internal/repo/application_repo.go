package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-interview-backend/internal/domain"
)

// GetApplication fetches an application by ID.
func GetApplication(ctx context.Context, db *gorm.DB, id string) (*domain.Application, error) {
	var a domain.Application
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// TransitionApplication sets the application's status to `to`. When `from`
// is non-empty the update only applies if the current status is one of
// them. It reports whether a row changed.
func TransitionApplication(ctx context.Context, db *gorm.DB, id string, to domain.ApplicationStatus, from ...domain.ApplicationStatus) (bool, error) {
	q := db.WithContext(ctx).Model(&domain.Application{}).Where("id = ?", id)
	if len(from) > 0 {
		q = q.Where("status IN ?", from)
	}
	res := q.Updates(map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
