// Package domain defines the persistence models for interview sessions,
// their messages, the applications they belong to, and the assessments
// derived from them. These types are mapped with GORM and form the core data
// layer of the interview service.
//
// Relations are expressed with plain identifier columns only; no GORM
// associations are declared, so every read loads exactly the rows it names.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// SessionStatus is the lifecycle state of a ChatSession.
type SessionStatus string

const (
	SessionActive   SessionStatus = "ACTIVE"
	SessionComplete SessionStatus = "COMPLETE"
)

// Sender identifies the author of a ChatMessage.
type Sender string

const (
	SenderAI        Sender = "AI"
	SenderCandidate Sender = "CANDIDATE"
)

// ApplicationStatus is the hiring-pipeline state of an Application.
type ApplicationStatus string

const (
	ApplicationSubmitted    ApplicationStatus = "SUBMITTED"
	ApplicationScreening    ApplicationStatus = "AI_SCREENING"
	ApplicationInterviewing ApplicationStatus = "AI_INTERVIEW"
	ApplicationCompleted    ApplicationStatus = "COMPLETED"
)

// ChatSession is one candidate's AI interview conversation. Exactly one
// session exists per application.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - ApplicationID: owning application; unique so a second create collides.
//   - Status: ACTIVE until completed; COMPLETE is terminal.
//   - MessageCount: number of persisted AI turns. Only RecordAITurn changes it.
//   - StartedAt: creation time, never updated.
//   - CompletedAt: set once on the ACTIVE→COMPLETE transition.
type ChatSession struct {
	ID            string        `json:"id"             gorm:"type:char(36);primaryKey"`
	ApplicationID string        `json:"application_id" gorm:"type:char(36);not null;uniqueIndex:ux_session_application"`
	Status        SessionStatus `json:"status"         gorm:"type:varchar(16);not null;default:'ACTIVE';check:status IN ('ACTIVE','COMPLETE')"`
	MessageCount  int           `json:"message_count"  gorm:"not null;default:0"`
	StartedAt     time.Time     `json:"started_at"     gorm:"not null"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// TableName returns the database table name for ChatSession.
func (ChatSession) TableName() string { return "chat_sessions" }

// IsComplete reports whether the session reached its terminal state.
func (s *ChatSession) IsComplete() bool { return s.Status == SessionComplete }

// ChatMessage is a single persisted turn. Messages are immutable once written.
// Seq is the message's 1-based position within its session and defines the
// total order of the conversation.
type ChatMessage struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	SessionID string    `json:"session_id" gorm:"type:char(36);not null;uniqueIndex:ux_session_seq,priority:1"`
	Seq       int       `json:"seq"        gorm:"not null;uniqueIndex:ux_session_seq,priority:2"`
	Sender    Sender    `json:"sender"     gorm:"type:varchar(16);not null;check:sender IN ('AI','CANDIDATE')"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	SentAt    time.Time `json:"sent_at"    gorm:"not null"`
}

// TableName returns the database table name for ChatMessage.
func (ChatMessage) TableName() string { return "chat_messages" }

// Application is the projection of a job application the interview core
// needs: who applied, for which job, the extracted resume text, and the
// pipeline status.
type Application struct {
	ID          string            `json:"id"           gorm:"type:char(36);primaryKey"`
	CandidateID string            `json:"candidate_id" gorm:"type:varchar(64);not null;index"`
	JobID       string            `json:"job_id"       gorm:"type:char(36);not null;index"`
	ResumeText  string            `json:"-"            gorm:"type:text;not null;default:''"`
	Status      ApplicationStatus `json:"status"       gorm:"type:varchar(16);not null;default:'SUBMITTED'"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// TableName returns the database table name for Application.
func (Application) TableName() string { return "applications" }

// Job holds the posting fields handed to the AI as interview context.
type Job struct {
	ID           string    `json:"id"           gorm:"type:char(36);primaryKey"`
	Title        string    `json:"title"        gorm:"type:varchar(255);not null"`
	Description  string    `json:"description"  gorm:"type:text;not null;default:''"`
	Requirements string    `json:"requirements" gorm:"type:text;not null;default:''"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for Job.
func (Job) TableName() string { return "jobs" }

// Assessment aggregates the resume and interview evaluations of one
// application. Either half may be missing; Recommendation holds the most
// severe verdict seen so far.
//
// Fields:
//   - ResumeScore / InterviewScore: optional, in [0,100].
//   - ResumeComment / InterviewComment: free-form AI rationale.
//   - Recommendation: nil until the first score arrives.
//   - ResumeRaw / InterviewRaw: validated JSON payloads returned by the AI.
type Assessment struct {
	ID               string          `json:"id"                        gorm:"type:char(36);primaryKey"`
	ApplicationID    string          `json:"application_id"            gorm:"type:char(36);not null;uniqueIndex:ux_assessment_application"`
	ResumeScore      *float64        `json:"resume_score,omitempty"`
	ResumeComment    string          `json:"resume_comment,omitempty"  gorm:"type:text;not null;default:''"`
	InterviewScore   *float64        `json:"interview_score,omitempty"`
	InterviewComment string          `json:"interview_comment,omitempty" gorm:"type:text;not null;default:''"`
	Recommendation   *Recommendation `json:"recommendation,omitempty"  gorm:"type:varchar(16)"`
	ResumeRaw        datatypes.JSON  `json:"-"`
	InterviewRaw     datatypes.JSON  `json:"-"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TableName returns the database table name for Assessment.
func (Assessment) TableName() string { return "assessments" }
