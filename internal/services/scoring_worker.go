package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-interview-backend/internal/keylock"
	"github.com/tbourn/go-interview-backend/internal/observability"
	"github.com/tbourn/go-interview-backend/internal/repo"
)

// InterviewScorer runs one attempt of a scoring task.
type InterviewScorer interface {
	ScoreInterview(ctx context.Context, taskID string) error
}

// ScoringWorker drains the scoring outbox. Completed sessions notify it
// directly; a cron sweep picks up notifications that were dropped, tasks
// written by other instances, and retries whose backoff has elapsed.
type ScoringWorker struct {
	DB     *gorm.DB
	Scorer InterviewScorer
	Log    zerolog.Logger

	// Workers is the number of concurrent scoring goroutines.
	Workers int
	// Schedule is the cron spec of the outbox sweep, e.g. "@every 1m".
	Schedule string
	// TaskTimeout bounds a single attempt.
	TaskTimeout time.Duration
	// BatchSize caps how many due tasks one sweep enqueues.
	BatchSize int

	queue    chan string
	inflight *keylock.Map
	cron     *cron.Cron
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewScoringWorker returns a worker with a queue sized for a few sweeps.
func NewScoringWorker(db *gorm.DB, scorer InterviewScorer, workers int, schedule string, log zerolog.Logger) *ScoringWorker {
	if workers < 1 {
		workers = 1
	}
	return &ScoringWorker{
		DB:          db,
		Scorer:      scorer,
		Log:         log,
		Workers:     workers,
		Schedule:    schedule,
		TaskTimeout: 2 * time.Minute,
		BatchSize:   100,
		queue:       make(chan string, 256),
		inflight:    keylock.New(),
	}
}

// Notify enqueues taskID without blocking. When the queue is full the task
// is left to the next sweep.
func (w *ScoringWorker) Notify(taskID string) {
	select {
	case w.queue <- taskID:
		observability.ScoringQueueDepth.Inc()
	default:
		w.Log.Warn().Str("task_id", taskID).Msg("scoring queue full; deferring to sweep")
	}
}

// Start launches the workers and the sweep schedule. It runs one sweep
// immediately so tasks left over from a previous run are not delayed.
func (w *ScoringWorker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c := cron.New()
	if _, err := c.AddFunc(w.Schedule, func() {
		if _, err := w.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.Log.Error().Err(err).Msg("scoring sweep failed")
		}
	}); err != nil {
		cancel()
		return err
	}
	w.cron, w.cancel = c, cancel

	for range w.Workers {
		w.wg.Add(1)
		go w.loop(ctx)
	}
	c.Start()

	if _, err := w.Sweep(ctx); err != nil {
		w.Log.Error().Err(err).Msg("initial scoring sweep failed")
	}
	w.Log.Info().
		Int("workers", w.Workers).
		Str("schedule", w.Schedule).
		Msg("scoring worker started")
	return nil
}

// Stop halts the schedule, cancels in-flight attempts and waits for the
// workers to exit.
func (w *ScoringWorker) Stop() {
	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// Sweep enqueues every PENDING task that is due and reports how many it
// queued.
func (w *ScoringWorker) Sweep(ctx context.Context) (int, error) {
	tasks, err := repo.ListDueScoringTasks(ctx, w.DB, time.Now().UTC(), w.BatchSize)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, t := range tasks {
		select {
		case w.queue <- t.ID:
			observability.ScoringQueueDepth.Inc()
			n++
		case <-ctx.Done():
			return n, ctx.Err()
		}
	}
	if n > 0 {
		w.Log.Debug().Int("tasks", n).Msg("scoring sweep enqueued tasks")
	}
	return n, nil
}

func (w *ScoringWorker) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-w.queue:
			observability.ScoringQueueDepth.Dec()
			w.run(ctx, id)
		}
	}
}

// run executes one attempt unless the same task is already being scored.
func (w *ScoringWorker) run(ctx context.Context, taskID string) {
	unlock, ok := w.inflight.TryLock(taskID)
	if !ok {
		return
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, w.TaskTimeout)
	defer cancel()
	ctx = w.Log.With().Str("task_id", taskID).Logger().WithContext(ctx)

	if err := w.Scorer.ScoreInterview(ctx, taskID); err != nil {
		w.Log.Debug().Err(err).Str("task_id", taskID).Msg("scoring attempt failed")
	}
}
