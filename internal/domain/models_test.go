package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:domain_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&ChatSession{}, &ChatMessage{}, &Application{}, &Job{},
		&Assessment{}, &ScoringTask{}, &Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(ChatSession{}).TableName(): "chat_sessions",
		(ChatMessage{}).TableName(): "chat_messages",
		(Application{}).TableName(): "applications",
		(Job{}).TableName():         "jobs",
		(Assessment{}).TableName():  "assessments",
		(ScoringTask{}).TableName(): "scoring_tasks",
		(Idempotency{}).TableName(): "idempotency",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_UniqueIndexes(t *testing.T) {
	db := newDomainDB(t)
	m := db.Migrator()

	checks := []struct {
		model any
		index string
	}{
		{&ChatSession{}, "ux_session_application"},
		{&ChatMessage{}, "ux_session_seq"},
		{&Assessment{}, "ux_assessment_application"},
		{&ScoringTask{}, "ux_scoring_session"},
		{&Idempotency{}, "ux_user_session_key"},
	}
	for _, c := range checks {
		if !m.HasIndex(c.model, c.index) {
			t.Fatalf("expected index %s on %T", c.index, c.model)
		}
	}
}

func TestChatSession_OnePerApplication(t *testing.T) {
	db := newDomainDB(t)
	now := time.Now().UTC()

	first := &ChatSession{ID: uuid.NewString(), ApplicationID: "app-1", Status: SessionActive, StartedAt: now}
	if err := db.Create(first).Error; err != nil {
		t.Fatalf("create first: %v", err)
	}
	second := &ChatSession{ID: uuid.NewString(), ApplicationID: "app-1", Status: SessionActive, StartedAt: now}
	if err := db.Create(second).Error; err == nil {
		t.Fatalf("expected unique violation for second session of the same application")
	}
}

func TestChatMessage_SenderCheckAndSeqUniqueness(t *testing.T) {
	db := newDomainDB(t)
	now := time.Now().UTC()

	ok := &ChatMessage{ID: uuid.NewString(), SessionID: "s1", Seq: 1, Sender: SenderCandidate, Content: "hi", SentAt: now}
	if err := db.Create(ok).Error; err != nil {
		t.Fatalf("create message: %v", err)
	}
	dup := &ChatMessage{ID: uuid.NewString(), SessionID: "s1", Seq: 1, Sender: SenderAI, Content: "hello", SentAt: now}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected unique violation on (session_id, seq)")
	}
	bad := &ChatMessage{ID: uuid.NewString(), SessionID: "s1", Seq: 2, Sender: Sender("SYSTEM"), Content: "x", SentAt: now}
	if err := db.Create(bad).Error; err == nil {
		t.Fatalf("expected check constraint failure for unknown sender")
	}
}

func TestAssessment_RecommendationRoundTrip(t *testing.T) {
	db := newDomainDB(t)
	score := 72.5
	a := &Assessment{
		ID:             uuid.NewString(),
		ApplicationID:  "app-2",
		ResumeScore:    &score,
		Recommendation: Consider.Ptr(),
		ResumeRaw:      []byte(`{"score":72.5}`),
	}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("create assessment: %v", err)
	}

	var got Assessment
	if err := db.First(&got, "id = ?", a.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Recommendation == nil || *got.Recommendation != Consider {
		t.Fatalf("recommendation = %v; want CONSIDER", got.Recommendation)
	}
	if got.InterviewScore != nil {
		t.Fatalf("interview score should stay nil, got %v", *got.InterviewScore)
	}
	if string(got.ResumeRaw) != `{"score":72.5}` {
		t.Fatalf("raw payload = %s", got.ResumeRaw)
	}
}
