package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-interview-backend/internal/domain"
	"github.com/tbourn/go-interview-backend/internal/http/middleware"
	"github.com/tbourn/go-interview-backend/internal/repo"
	"github.com/tbourn/go-interview-backend/internal/services"
)

// ---------- test plumbing ----------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type stubSessions struct {
	getOrCreate func(ctx context.Context, appID string, cl services.Caller) (*domain.ChatSession, bool, error)
	get         func(ctx context.Context, id string, cl services.Caller) (*domain.ChatSession, error)
	complete    func(ctx context.Context, id string, cl services.Caller) (*domain.ChatSession, error)
	list        func(ctx context.Context, id string, cl services.Caller, page, pageSize int) ([]domain.ChatMessage, int64, error)
}

func (s stubSessions) GetOrCreateSession(ctx context.Context, appID string, cl services.Caller) (*domain.ChatSession, bool, error) {
	return s.getOrCreate(ctx, appID, cl)
}

func (s stubSessions) GetSession(ctx context.Context, id string, cl services.Caller) (*domain.ChatSession, error) {
	return s.get(ctx, id, cl)
}

func (s stubSessions) CompleteSession(ctx context.Context, id string, cl services.Caller) (*domain.ChatSession, error) {
	return s.complete(ctx, id, cl)
}

func (s stubSessions) ListMessages(ctx context.Context, id string, cl services.Caller, page, pageSize int) ([]domain.ChatMessage, int64, error) {
	return s.list(ctx, id, cl, page, pageSize)
}

// stubStreamer replays a fixed event script and counts calls.
type stubStreamer struct {
	mu      sync.Mutex
	calls   int
	content string
	events  []services.StreamEvent
	err     error
}

func (s *stubStreamer) StreamReply(_ context.Context, _, _, content string) (<-chan services.StreamEvent, error) {
	s.mu.Lock()
	s.calls++
	s.content = content
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan services.StreamEvent, len(s.events))
	for _, ev := range s.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (s *stubStreamer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// leavingStreamer disconnects the client before the persisted reply is
// delivered.
type leavingStreamer struct {
	disconnect context.CancelFunc
	reply      *domain.ChatMessage
}

func (s *leavingStreamer) StreamReply(ctx context.Context, _, _, _ string) (<-chan services.StreamEvent, error) {
	ch := make(chan services.StreamEvent)
	go func() {
		defer close(ch)
		s.disconnect()
		<-ctx.Done()
		// let the handler observe the disconnect first
		time.Sleep(20 * time.Millisecond)
		ch <- services.StreamEvent{Type: services.EventMessage, Message: s.reply}
	}()
	return ch, nil
}

type stubAssessments struct {
	get     func(ctx context.Context, appID string, cl services.Caller) (*domain.Assessment, error)
	screen  func(ctx context.Context, appID string) (*domain.Assessment, error)
	requeue func(ctx context.Context, sessionID string) (*domain.ScoringTask, error)
}

func (s stubAssessments) GetAssessment(ctx context.Context, appID string, cl services.Caller) (*domain.Assessment, error) {
	return s.get(ctx, appID, cl)
}

func (s stubAssessments) ScreenResume(ctx context.Context, appID string) (*domain.Assessment, error) {
	return s.screen(ctx, appID)
}

func (s stubAssessments) RequeueInterview(ctx context.Context, sessionID string) (*domain.ScoringTask, error) {
	return s.requeue(ctx, sessionID)
}

// newRouter mounts h behind the same identity and idempotency middleware
// the server uses.
func newRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Identity())
	r.POST("/applications/:id/session", h.StartSession)
	r.GET("/applications/:id/assessment", h.GetAssessment)
	r.POST("/applications/:id/screen", h.ScreenResume)
	r.GET("/sessions/:id", h.GetSession)
	r.POST("/sessions/:id/messages", middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil), h.PostMessage)
	r.GET("/sessions/:id/messages", h.ListMessages)
	r.POST("/sessions/:id/complete", h.CompleteSession)
	r.POST("/sessions/:id/rescore", h.RescoreInterview)
	return r
}

type reqOpt func(*http.Request)

func as(id string, role services.Role) reqOpt {
	return func(r *http.Request) {
		r.Header.Set(middleware.HeaderUserID, id)
		r.Header.Set(middleware.HeaderUserRole, string(role))
	}
}

func withHeader(k, v string) reqOpt {
	return func(r *http.Request) { r.Header.Set(k, v) }
}

func do(r http.Handler, method, path, body string, opts ...reqOpt) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, o := range opts {
		o(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type sseEvent struct {
	Name string
	Data string
}

// parseSSE splits a text/event-stream body into events.
func parseSSE(body string) []sseEvent {
	var out []sseEvent
	for _, block := range strings.Split(body, "\n\n") {
		var ev sseEvent
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event:"):
				ev.Name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				ev.Data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			}
		}
		if ev.Name != "" {
			out = append(out, ev)
		}
	}
	return out
}

func ginContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}
