package domain

import "time"

// ScoringTaskStatus tracks an interview-scoring request through retries.
type ScoringTaskStatus string

const (
	ScoringPending ScoringTaskStatus = "PENDING"
	ScoringDone    ScoringTaskStatus = "DONE"
	ScoringFailed  ScoringTaskStatus = "FAILED"
)

// ScoringTask is the outbox row written in the same transaction that
// completes a session. The unique session index means a session can enqueue
// interview scoring at most once; workers drain PENDING rows whose
// NextAttemptAt has passed.
type ScoringTask struct {
	ID            string            `json:"id"              gorm:"type:char(36);primaryKey"`
	SessionID     string            `json:"session_id"      gorm:"type:char(36);not null;uniqueIndex:ux_scoring_session"`
	ApplicationID string            `json:"application_id"  gorm:"type:char(36);not null;index"`
	Status        ScoringTaskStatus `json:"status"          gorm:"type:varchar(16);not null;default:'PENDING';index:idx_scoring_due,priority:1"`
	Attempts      int               `json:"attempts"        gorm:"not null;default:0"`
	LastError     string            `json:"last_error"      gorm:"type:text;not null;default:''"`
	NextAttemptAt time.Time         `json:"next_attempt_at" gorm:"not null;index:idx_scoring_due,priority:2"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// TableName returns the database table name for ScoringTask.
func (ScoringTask) TableName() string { return "scoring_tasks" }
