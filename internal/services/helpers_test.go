package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-interview-backend/internal/ai"
	"github.com/tbourn/go-interview-backend/internal/domain"
	"github.com/tbourn/go-interview-backend/internal/keylock"
	"github.com/tbourn/go-interview-backend/internal/repo"
)

// ---------- test helpers ----------

// newSvcDB opens a private in-memory database with every table migrated.
// A single connection keeps SQLite from reporting table locks between the
// relay goroutine and the test.
func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type fixture struct {
	Job     *domain.Job
	App     *domain.Application
	Session *domain.ChatSession
}

// seed writes a job, an application owned by candidateID in status, and an
// ACTIVE session with messageCount AI turns already counted.
func seed(t *testing.T, db *gorm.DB, candidateID string, status domain.ApplicationStatus, messageCount int) fixture {
	t.Helper()
	now := time.Now().UTC()
	job := &domain.Job{
		ID:           uuid.NewString(),
		Title:        "Backend Engineer",
		Description:  "Build services",
		Requirements: "Go, SQL",
	}
	app := &domain.Application{
		ID:          uuid.NewString(),
		CandidateID: candidateID,
		JobID:       job.ID,
		ResumeText:  "Five years of Go.",
		Status:      status,
	}
	sess := &domain.ChatSession{
		ID:            uuid.NewString(),
		ApplicationID: app.ID,
		Status:        domain.SessionActive,
		MessageCount:  messageCount,
		StartedAt:     now,
	}
	for _, v := range []any{job, app, sess} {
		if err := db.Create(v).Error; err != nil {
			t.Fatalf("seed %T: %v", v, err)
		}
	}
	return fixture{Job: job, App: app, Session: sess}
}

func mustSession(t *testing.T, db *gorm.DB, id string) *domain.ChatSession {
	t.Helper()
	s, err := repo.GetSession(context.Background(), db, id)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	return s
}

func mustApplication(t *testing.T, db *gorm.DB, id string) *domain.Application {
	t.Helper()
	a, err := repo.GetApplication(context.Background(), db, id)
	if err != nil {
		t.Fatalf("GetApplication: %v", err)
	}
	return a
}

func mustMessages(t *testing.T, db *gorm.DB, sessionID string) []domain.ChatMessage {
	t.Helper()
	ms, err := repo.ListMessages(context.Background(), db, sessionID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	return ms
}

// fakeAI is a scripted ai.Interviewer.
type fakeAI struct {
	mu sync.Mutex

	chunks    []string
	replyErr  error         // returned by GenerateReply itself
	streamErr error         // sent after the chunks
	gate      chan struct{} // when set, chunks wait for it to close
	hang      bool          // after the chunks, wait for cancellation

	score      *ai.Score
	scoreErr   error
	scoreStall bool // ScoreInterview waits for cancellation

	replyCalls     int
	resumeCalls    int
	interviewCalls int
	lastReply      ai.ReplyInput
	lastInterview  ai.InterviewInput
}

func (f *fakeAI) GenerateReply(ctx context.Context, in ai.ReplyInput) (<-chan ai.Chunk, error) {
	f.mu.Lock()
	f.replyCalls++
	f.lastReply = in
	f.mu.Unlock()

	if f.replyErr != nil {
		return nil, f.replyErr
	}
	out := make(chan ai.Chunk)
	go func() {
		defer close(out)
		if f.gate != nil {
			select {
			case <-f.gate:
			case <-ctx.Done():
				return
			}
		}
		for _, c := range f.chunks {
			select {
			case out <- ai.Chunk{Text: c}:
			case <-ctx.Done():
				return
			}
		}
		if f.hang {
			<-ctx.Done()
			return
		}
		if f.streamErr != nil {
			select {
			case out <- ai.Chunk{Err: f.streamErr}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

func (f *fakeAI) ScoreResume(_ context.Context, _ ai.ResumeInput) (*ai.Score, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumeCalls++
	if f.scoreErr != nil {
		return nil, f.scoreErr
	}
	return f.score, nil
}

func (f *fakeAI) ScoreInterview(ctx context.Context, in ai.InterviewInput) (*ai.Score, error) {
	f.mu.Lock()
	f.interviewCalls++
	f.lastInterview = in
	stall := f.scoreStall
	f.mu.Unlock()
	if stall {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scoreErr != nil {
		return nil, f.scoreErr
	}
	return f.score, nil
}

func (f *fakeAI) calls() (reply, resume, interview int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.replyCalls, f.resumeCalls, f.interviewCalls
}

// recordingNotifier captures scoring notifications.
type recordingNotifier struct {
	mu  sync.Mutex
	ids []string
}

func (n *recordingNotifier) Notify(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, id)
}

func (n *recordingNotifier) got() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.ids...)
}

func newStreamService(db *gorm.DB, fa *fakeAI, n ScoringNotifier) *StreamService {
	sessions := &SessionService{DB: db, MaxTurns: 20, MaxContentRunes: 200, Notifier: n}
	return &StreamService{
		Sessions:    sessions,
		AI:          fa,
		Jobs:        repo.NewJobStore(db),
		Locks:       keylock.New(),
		IdleTimeout: 2 * time.Second,
	}
}

// collect drains a stream with a deadline.
func collect(t *testing.T, ch <-chan StreamEvent) []StreamEvent {
	t.Helper()
	var out []StreamEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("stream did not finish; got %d events so far", len(out))
		}
	}
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func floatPtr(v float64) *float64 { return &v }
