package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-interview-backend/internal/domain"
)

func TestCreateScoringTask_OncePerSession(t *testing.T) {
	db := newRepoDB(t, &domain.ScoringTask{})
	ctx := context.Background()
	now := time.Now().UTC()

	task, err := CreateScoringTask(ctx, db, "s1", "a1", now)
	if err != nil {
		t.Fatalf("CreateScoringTask: %v", err)
	}
	if task.Status != domain.ScoringPending || task.Attempts != 0 || !task.NextAttemptAt.Equal(now) {
		t.Fatalf("unexpected task: %+v", task)
	}
	if _, err := CreateScoringTask(ctx, db, "s1", "a1", now); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	got, err := GetScoringTaskBySession(ctx, db, "s1")
	if err != nil || got.ID != task.ID {
		t.Fatalf("GetScoringTaskBySession: got=%+v err=%v", got, err)
	}
}

func TestListDueScoringTasks_FiltersStatusAndTime(t *testing.T) {
	db := newRepoDB(t, &domain.ScoringTask{})
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	due1, _ := CreateScoringTask(ctx, db, "s1", "a1", now.Add(-2*time.Minute))
	due2, _ := CreateScoringTask(ctx, db, "s2", "a2", now.Add(-time.Minute))
	_, _ = CreateScoringTask(ctx, db, "s3", "a3", now.Add(time.Minute)) // not yet due
	done, _ := CreateScoringTask(ctx, db, "s4", "a4", now.Add(-time.Hour))
	if err := MarkScoringDone(ctx, db, done.ID); err != nil {
		t.Fatalf("MarkScoringDone: %v", err)
	}

	out, err := ListDueScoringTasks(ctx, db, now, 10)
	if err != nil {
		t.Fatalf("ListDueScoringTasks: %v", err)
	}
	if len(out) != 2 || out[0].ID != due1.ID || out[1].ID != due2.ID {
		t.Fatalf("unexpected due tasks: %+v", out)
	}

	limited, _ := ListDueScoringTasks(ctx, db, now, 1)
	if len(limited) != 1 || limited[0].ID != due1.ID {
		t.Fatalf("limit not applied: %+v", limited)
	}
}

func TestMarkScoringAttemptFailed_RetryThenTerminal(t *testing.T) {
	db := newRepoDB(t, &domain.ScoringTask{})
	ctx := context.Background()
	now := time.Now().UTC()

	task, _ := CreateScoringTask(ctx, db, "s1", "a1", now)

	next := now.Add(time.Minute)
	if err := MarkScoringAttemptFailed(ctx, db, task.ID, 1, "upstream down", &next); err != nil {
		t.Fatalf("retryable failure: %v", err)
	}
	got, _ := GetScoringTask(ctx, db, task.ID)
	if got.Status != domain.ScoringPending || got.Attempts != 1 || got.LastError != "upstream down" || !got.NextAttemptAt.Equal(next) {
		t.Fatalf("unexpected task after retryable failure: %+v", got)
	}

	if err := MarkScoringAttemptFailed(ctx, db, task.ID, 2, "still down", nil); err != nil {
		t.Fatalf("terminal failure: %v", err)
	}
	got, _ = GetScoringTask(ctx, db, task.ID)
	if got.Status != domain.ScoringFailed || got.Attempts != 2 {
		t.Fatalf("unexpected task after terminal failure: %+v", got)
	}

	n, err := CountScoringTasks(ctx, db, domain.ScoringFailed)
	if err != nil || n != 1 {
		t.Fatalf("CountScoringTasks: n=%d err=%v", n, err)
	}

	if err := MarkScoringDone(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRequeueScoringTask(t *testing.T) {
	db := newRepoDB(t, &domain.ScoringTask{})
	ctx := context.Background()
	now := time.Now().UTC()

	task, _ := CreateScoringTask(ctx, db, "s1", "a1", now)
	_ = MarkScoringAttemptFailed(ctx, db, task.ID, 5, "gave up", nil)

	later := now.Add(time.Hour)
	got, err := RequeueScoringTask(ctx, db, "s1", later)
	if err != nil {
		t.Fatalf("RequeueScoringTask: %v", err)
	}
	if got.Status != domain.ScoringPending || got.Attempts != 0 || got.LastError != "" || !got.NextAttemptAt.Equal(later) {
		t.Fatalf("unexpected requeued task: %+v", got)
	}

	if _, err := RequeueScoringTask(ctx, db, "missing", later); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
