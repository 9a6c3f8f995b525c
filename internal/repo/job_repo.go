package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-interview-backend/internal/ai"
	"github.com/tbourn/go-interview-backend/internal/domain"
)

// GetJob fetches a job posting by ID.
func GetJob(ctx context.Context, db *gorm.DB, id string) (*domain.Job, error) {
	var j domain.Job
	if err := db.WithContext(ctx).Where("id = ?", id).First(&j).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

// JobStore serves job context to the interview core from the jobs table.
type JobStore struct {
	DB *gorm.DB
}

// NewJobStore returns a JobStore reading through db.
func NewJobStore(db *gorm.DB) *JobStore { return &JobStore{DB: db} }

// FetchJob returns the fields the AI needs about a posting, or ErrNotFound.
func (s *JobStore) FetchJob(ctx context.Context, jobID string) (*ai.JobContext, error) {
	j, err := GetJob(ctx, s.DB, jobID)
	if err != nil {
		return nil, err
	}
	return &ai.JobContext{
		Title:        j.Title,
		Description:  j.Description,
		Requirements: j.Requirements,
	}, nil
}
