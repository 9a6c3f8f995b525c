package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-interview-backend/internal/domain"
)

// GetAssessmentByApplication fetches the assessment of an application.
func GetAssessmentByApplication(ctx context.Context, db *gorm.DB, applicationID string) (*domain.Assessment, error) {
	var a domain.Assessment
	if err := db.WithContext(ctx).Where("application_id = ?", applicationID).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveAssessment inserts a when it has no ID yet and overwrites every column
// otherwise. A concurrent first insert for the same application yields
// ErrDuplicate.
func SaveAssessment(ctx context.Context, db *gorm.DB, a *domain.Assessment) error {
	now := time.Now().UTC()
	a.UpdatedAt = now
	if a.ID == "" {
		a.ID = uuid.NewString()
		a.CreatedAt = now
		if err := db.WithContext(ctx).Create(a).Error; err != nil {
			a.ID = ""
			if isDuplicate(err) {
				return ErrDuplicate
			}
			return err
		}
		return nil
	}
	return db.WithContext(ctx).Save(a).Error
}
