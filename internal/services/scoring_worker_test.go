package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-interview-backend/internal/ai"
	"github.com/tbourn/go-interview-backend/internal/domain"
	"github.com/tbourn/go-interview-backend/internal/repo"
)

// countingScorer records the task IDs it was asked to score.
type countingScorer struct {
	mu   sync.Mutex
	seen map[string]int
}

func (c *countingScorer) ScoreInterview(_ context.Context, taskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen == nil {
		c.seen = map[string]int{}
	}
	c.seen[taskID]++
	return nil
}

func (c *countingScorer) count(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen[id]
}

func TestScoringWorker_CompletionToAssessment(t *testing.T) {
	db := newSvcDB(t)
	fx := seed(t, db, "cand-1", domain.ApplicationInterviewing, 19)
	fa := &fakeAI{
		chunks: []string{"unused"},
		score:  &ai.Score{Value: 72, Comment: "good", Recommendation: "consider"},
	}
	assess := newAssessmentService(db, fa)
	w := NewScoringWorker(db, assess, 2, "@every 1h", zerolog.Nop())
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(w.Stop)

	svc := newStreamService(db, fa, w)
	ch, err := svc.StreamReply(context.Background(), fx.Session.ID, "cand-1", "last answer")
	if err != nil {
		t.Fatalf("StreamReply: %v", err)
	}
	collect(t, ch)

	eventually(t, "interview scored", func() bool {
		task, err := repo.GetScoringTaskBySession(context.Background(), db, fx.Session.ID)
		return err == nil && task.Status == domain.ScoringDone
	})
	a, err := repo.GetAssessmentByApplication(context.Background(), db, fx.App.ID)
	if err != nil {
		t.Fatalf("GetAssessmentByApplication: %v", err)
	}
	if a.InterviewScore == nil || *a.InterviewScore != 72 || *a.Recommendation != domain.Consider {
		t.Fatalf("assessment = %+v", a)
	}
}

func TestScoringWorker_SweepPicksUpDueTasks(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	due, err := repo.CreateScoringTask(ctx, db, "s-due", "a-1", now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("CreateScoringTask: %v", err)
	}
	later, err := repo.CreateScoringTask(ctx, db, "s-later", "a-2", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("CreateScoringTask: %v", err)
	}

	sc := &countingScorer{}
	w := NewScoringWorker(db, sc, 1, "@every 1h", zerolog.Nop())

	n, err := w.Sweep(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Sweep: n=%d err=%v", n, err)
	}
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(w.Stop)

	eventually(t, "due task scored", func() bool { return sc.count(due.ID) >= 1 })
	if sc.count(later.ID) != 0 {
		t.Fatalf("task not yet due was scored")
	}
}

func TestScoringWorker_SkipsTaskAlreadyInFlight(t *testing.T) {
	sc := &countingScorer{}
	w := NewScoringWorker(nil, sc, 1, "@every 1h", zerolog.Nop())
	ctx := context.Background()

	unlock, ok := w.inflight.TryLock("t-1")
	if !ok {
		t.Fatalf("TryLock")
	}
	w.run(ctx, "t-1")
	if got := sc.count("t-1"); got != 0 {
		t.Fatalf("task scored while another attempt held it")
	}
	unlock()

	w.run(ctx, "t-1")
	if got := sc.count("t-1"); got != 1 {
		t.Fatalf("task scored %d times, want 1", got)
	}
	if w.inflight.Len() != 0 {
		t.Fatalf("in-flight marker leaked")
	}
}

func TestScoringWorker_NotifyNeverBlocks(t *testing.T) {
	w := NewScoringWorker(nil, &countingScorer{}, 1, "@every 1h", zerolog.Nop())
	done := make(chan struct{})
	go func() {
		for range cap(w.queue) + 10 {
			w.Notify("t")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Notify blocked on a full queue")
	}
}

func TestScoringWorker_BadSchedule(t *testing.T) {
	w := NewScoringWorker(nil, &countingScorer{}, 1, "not a schedule", zerolog.Nop())
	if err := w.Start(context.Background()); err == nil {
		t.Fatalf("expected schedule parse error")
	}
}
