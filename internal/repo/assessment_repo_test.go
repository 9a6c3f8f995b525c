package repo

import (
	"context"
	"errors"
	"testing"

	"gorm.io/datatypes"

	"github.com/tbourn/go-interview-backend/internal/domain"
)

func TestSaveAssessment_InsertThenUpdate(t *testing.T) {
	db := newRepoDB(t, &domain.Assessment{})
	ctx := context.Background()

	score := 72.5
	a := &domain.Assessment{
		ApplicationID:  "a1",
		ResumeScore:    &score,
		ResumeComment:  "solid",
		Recommendation: domain.Consider.Ptr(),
		ResumeRaw:      datatypes.JSON(`{"score":72.5}`),
	}
	if err := SaveAssessment(ctx, db, a); err != nil {
		t.Fatalf("SaveAssessment insert: %v", err)
	}
	if a.ID == "" || a.CreatedAt.IsZero() {
		t.Fatalf("insert should assign id and timestamps: %+v", a)
	}

	iv := 40.0
	a.InterviewScore = &iv
	a.Recommendation = domain.NotRecommend.Ptr()
	if err := SaveAssessment(ctx, db, a); err != nil {
		t.Fatalf("SaveAssessment update: %v", err)
	}

	got, err := GetAssessmentByApplication(ctx, db, "a1")
	if err != nil {
		t.Fatalf("GetAssessmentByApplication: %v", err)
	}
	if got.ID != a.ID || got.ResumeScore == nil || *got.ResumeScore != 72.5 || got.InterviewScore == nil || *got.InterviewScore != 40 {
		t.Fatalf("unexpected assessment: %+v", got)
	}
	if got.Recommendation == nil || *got.Recommendation != domain.NotRecommend {
		t.Fatalf("unexpected recommendation: %v", got.Recommendation)
	}

	var count int64
	db.Model(&domain.Assessment{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected a single row, got %d", count)
	}
}

func TestSaveAssessment_DuplicateApplication(t *testing.T) {
	db := newRepoDB(t, &domain.Assessment{})
	ctx := context.Background()

	if err := SaveAssessment(ctx, db, &domain.Assessment{ApplicationID: "a2"}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	second := &domain.Assessment{ApplicationID: "a2"}
	if err := SaveAssessment(ctx, db, second); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if second.ID != "" {
		t.Fatalf("failed insert must leave ID empty, got %q", second.ID)
	}
}

func TestGetAssessmentByApplication_NotFound(t *testing.T) {
	db := newRepoDB(t, &domain.Assessment{})
	if _, err := GetAssessmentByApplication(context.Background(), db, "none"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
