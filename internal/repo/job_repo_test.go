package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-interview-backend/internal/domain"
)

func TestJobStore_FetchJob(t *testing.T) {
	db := newRepoDB(t, &domain.Job{})
	ctx := context.Background()

	job := &domain.Job{ID: "j1", Title: "Backend Engineer", Description: "Build APIs", Requirements: "Go, SQL"}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	store := NewJobStore(db)
	jc, err := store.FetchJob(ctx, "j1")
	if err != nil {
		t.Fatalf("FetchJob: %v", err)
	}
	if jc.Title != "Backend Engineer" || jc.Description != "Build APIs" || jc.Requirements != "Go, SQL" {
		t.Fatalf("unexpected job context: %+v", jc)
	}

	if _, err := store.FetchJob(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
