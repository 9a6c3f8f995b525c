// Package services – SessionService
//
// This file implements SessionService, which owns the lifecycle of interview
// sessions: get-or-create per application, recording candidate and AI turns,
// completing a session, and reading the transcript back.
//
// A session completes exactly once. The transition, the application's move to
// COMPLETED and the scoring outbox row are written in one transaction; the
// scoring worker is nudged only after that transaction commits.
//
// Observability: all public methods are OpenTelemetry-instrumented.

package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-interview-backend/internal/domain"
	"github.com/tbourn/go-interview-backend/internal/repo"
	"github.com/tbourn/go-interview-backend/internal/utils"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/unicode/norm"
)

// DefaultMaxTurns is the AI-turn budget used when SessionService.MaxTurns is
// unset.
const DefaultMaxTurns = 20

// ScoringNotifier is told about freshly enqueued scoring tasks. Notify must
// not block; a dropped notification is recovered by the periodic sweep.
type ScoringNotifier interface {
	Notify(taskID string)
}

// SessionService coordinates session state and transcript persistence.
type SessionService struct {
	DB *gorm.DB

	// MaxTurns bounds the interview length. A candidate turn that brings the
	// conversation to MaxTurns completes the session.
	MaxTurns int
	// MaxContentRunes caps a candidate message after normalization.
	MaxContentRunes int

	// Optional
	Notifier ScoringNotifier
}

// TurnResult describes what recording a candidate turn did.
type TurnResult struct {
	Session     *domain.ChatSession
	Application *domain.Application
	Message     *domain.ChatMessage

	// Completed is true when this turn completed the session.
	Completed bool
	// AlreadyComplete is true when the session was complete before the turn.
	AlreadyComplete bool
}

// Finished reports whether no AI reply should follow the turn.
func (r *TurnResult) Finished() bool { return r.Completed || r.AlreadyComplete }

func (s *SessionService) maxTurns() int {
	if s.MaxTurns > 0 {
		return s.MaxTurns
	}
	return DefaultMaxTurns
}

// NormalizeContent trims content, converts it to NFC and enforces the rune
// limit.
func (s *SessionService) NormalizeContent(content string) (string, error) {
	content = norm.NFC.String(strings.TrimSpace(content))
	if content == "" {
		return "", ErrEmptyContent
	}
	if s.MaxContentRunes > 0 && utf8.RuneCountInString(content) > s.MaxContentRunes {
		return "", ErrContentTooLong
	}
	return content, nil
}

// GetOrCreateSession returns the application's session, creating an ACTIVE
// one on first call. created is true only for the call that inserted it.
func (s *SessionService) GetOrCreateSession(ctx context.Context, applicationID string, caller Caller) (sess *domain.ChatSession, created bool, err error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "GetOrCreateSession",
		trace.WithAttributes(
			attribute.String("application.id", applicationID),
			attribute.String("user.id", caller.ID),
		),
	)
	defer span.End()

	app, err := repo.GetApplication(ctx, s.DB, applicationID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, false, ErrApplicationNotFound
	}
	if err != nil {
		return nil, false, err
	}
	if caller.ID != app.CandidateID {
		return nil, false, ErrAccessDenied
	}

	sess, err = repo.GetSessionByApplication(ctx, s.DB, applicationID)
	if err == nil {
		return sess, false, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, false, err
	}

	sess, err = repo.CreateSession(ctx, s.DB, applicationID)
	if errors.Is(err, repo.ErrDuplicate) {
		// lost the race to a concurrent first call
		sess, err = repo.GetSessionByApplication(ctx, s.DB, applicationID)
		return sess, false, err
	}
	if err != nil {
		return nil, false, err
	}
	zerolog.Ctx(ctx).Info().
		Str("session_id", sess.ID).
		Str("application_id", applicationID).
		Msg("interview session created")
	return sess, true, nil
}

// GetSession returns a session the caller may read.
func (s *SessionService) GetSession(ctx context.Context, sessionID string, caller Caller) (*domain.ChatSession, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "GetSession",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	sess, app, err := loadSession(ctx, s.DB, sessionID)
	if err != nil {
		return nil, err
	}
	if !caller.canRead(app) {
		return nil, ErrAccessDenied
	}
	return sess, nil
}

// RecordCandidateTurn validates and persists a candidate message. The
// message is stored even when the session is already complete so the
// transcript keeps everything the candidate sent.
//
// When the turn reaches the turn budget the session is completed in the same
// transaction and no AI reply is expected. Otherwise an application still in
// AI_SCREENING moves to AI_INTERVIEW.
func (s *SessionService) RecordCandidateTurn(ctx context.Context, sessionID, candidateID, content string) (*TurnResult, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "RecordCandidateTurn",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("user.id", candidateID),
		),
	)
	defer span.End()

	content, err := s.NormalizeContent(content)
	if err != nil {
		return nil, err
	}

	var (
		res    TurnResult
		taskID string
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sess, app, err := loadSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if app.CandidateID != candidateID {
			return ErrAccessDenied
		}
		res.Session, res.Application = sess, app

		msg, err := repo.CreateMessage(ctx, tx, sessionID, domain.SenderCandidate, content)
		if err != nil {
			return err
		}
		res.Message = msg

		if sess.IsComplete() {
			res.AlreadyComplete = true
			return nil
		}

		if sess.MessageCount+1 >= s.maxTurns() {
			taskID, err = s.complete(ctx, tx, sess, app)
			if err != nil {
				return err
			}
			res.Completed = taskID != ""
			if !res.Completed {
				res.AlreadyComplete = true
			}
			return nil
		}

		if _, err := repo.TransitionApplication(ctx, tx, app.ID,
			domain.ApplicationInterviewing, domain.ApplicationScreening); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Bool("session.completed", res.Completed))
	s.notify(ctx, taskID)
	return &res, nil
}

// RecordAITurn persists an AI message and bumps message_count by exactly one,
// atomically. It is the only writer of message_count.
func (s *SessionService) RecordAITurn(ctx context.Context, sessionID, content string) (*domain.ChatMessage, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "RecordAITurn",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	var msg *domain.ChatMessage
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := repo.CreateMessage(ctx, tx, sessionID, domain.SenderAI, content)
		if err != nil {
			return err
		}
		if err := repo.IncrementMessageCount(ctx, tx, sessionID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		msg = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// CompleteSession ends the interview at the candidate's request. Completing
// an already complete session returns it unchanged and enqueues nothing.
func (s *SessionService) CompleteSession(ctx context.Context, sessionID string, caller Caller) (*domain.ChatSession, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "CompleteSession",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("user.id", caller.ID),
		),
	)
	defer span.End()

	var (
		out    *domain.ChatSession
		taskID string
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sess, app, err := loadSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if app.CandidateID != caller.ID {
			return ErrAccessDenied
		}
		if !sess.IsComplete() {
			if taskID, err = s.complete(ctx, tx, sess, app); err != nil {
				return err
			}
		}
		out, err = repo.GetSession(ctx, tx, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, taskID)
	return out, nil
}

// ListMessages returns a page of the transcript in seq order together with
// the total number of messages.
func (s *SessionService) ListMessages(ctx context.Context, sessionID string, caller Caller, page, pageSize int) ([]domain.ChatMessage, int64, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "ListMessages",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	page, pageSize = utils.ClampPage(page, pageSize)
	offset := utils.Offset(page, pageSize)

	if _, err := s.GetSession(ctx, sessionID, caller); err != nil {
		return nil, 0, err
	}

	total, err := repo.CountMessages(ctx, s.DB, sessionID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ChatMessage{}, 0, nil
	}
	items, err := repo.ListMessagesPage(ctx, s.DB, sessionID, offset, pageSize)
	return items, total, err
}

// complete performs the ACTIVE→COMPLETE transition inside tx. It returns the
// enqueued scoring task ID, or "" when another writer completed the session
// first.
func (s *SessionService) complete(ctx context.Context, tx *gorm.DB, sess *domain.ChatSession, app *domain.Application) (string, error) {
	now := time.Now().UTC()
	ok, err := repo.CompleteSession(ctx, tx, sess.ID, now)
	if err != nil || !ok {
		return "", err
	}
	if _, err := repo.TransitionApplication(ctx, tx, app.ID, domain.ApplicationCompleted); err != nil {
		return "", err
	}
	task, err := repo.CreateScoringTask(ctx, tx, sess.ID, app.ID, now)
	if err != nil {
		return "", err
	}

	sess.Status = domain.SessionComplete
	sess.CompletedAt = &now
	app.Status = domain.ApplicationCompleted

	zerolog.Ctx(ctx).Info().
		Str("session_id", sess.ID).
		Str("application_id", app.ID).
		Int("message_count", sess.MessageCount).
		Msg("interview session completed")
	return task.ID, nil
}

func (s *SessionService) notify(ctx context.Context, taskID string) {
	if taskID == "" || s.Notifier == nil {
		return
	}
	s.Notifier.Notify(taskID)
	zerolog.Ctx(ctx).Debug().Str("task_id", taskID).Msg("scoring enqueued")
}
