// Package services – AssessmentService
//
// AssessmentService asks the AI for resume and interview evaluations and
// merges them into the application's single Assessment row. Writers for the
// same application are serialized, and every write goes through the merge
// policy in merge.go, so the stored recommendation never becomes more
// favorable than a verdict already seen.

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-interview-backend/internal/ai"
	"github.com/tbourn/go-interview-backend/internal/domain"
	"github.com/tbourn/go-interview-backend/internal/keylock"
	"github.com/tbourn/go-interview-backend/internal/observability"
	"github.com/tbourn/go-interview-backend/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxScoringAttempts applies when AssessmentService.MaxAttempts is unset.
const DefaultMaxScoringAttempts = 5

// recordFailureTimeout bounds the write that records a failed attempt.
const recordFailureTimeout = 5 * time.Second

// AssessmentService runs AI scoring and persists merged assessments.
type AssessmentService struct {
	DB   *gorm.DB
	AI   ai.Interviewer
	Jobs JobLookup

	// Locks serializes assessment writes per application. Required.
	Locks *keylock.Map

	// MaxAttempts bounds interview scoring retries before a task is FAILED.
	MaxAttempts int
	// Backoff returns the delay before retry number attempt (1-based).
	// Defaults to ScoringBackoff.
	Backoff func(attempt int) time.Duration
}

// ScoringBackoff doubles from 30s per attempt, capped at one hour.
func ScoringBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := 30 * time.Second
	for i := 1; i < attempt && d < time.Hour; i++ {
		d *= 2
	}
	return min(d, time.Hour)
}

// ScreenResume scores the application's resume against its job and merges
// the result. An application still SUBMITTED moves to AI_SCREENING.
func (s *AssessmentService) ScreenResume(ctx context.Context, applicationID string) (*domain.Assessment, error) {
	tr := otel.Tracer("services/AssessmentService")
	ctx, span := tr.Start(ctx, "ScreenResume",
		trace.WithAttributes(attribute.String("application.id", applicationID)),
	)
	defer span.End()

	app, err := repo.GetApplication(ctx, s.DB, applicationID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, err
	}
	job, err := s.fetchJob(ctx, app.JobID)
	if err != nil {
		return nil, err
	}

	score, err := s.AI.ScoreResume(ctx, ai.ResumeInput{Job: *job, ResumeText: app.ResumeText})
	if err != nil {
		return nil, upstreamError("score resume", err)
	}
	rec, err := domain.ParseRecommendation(score.Recommendation)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecommendation, err)
	}

	a, err := s.merge(ctx, app.ID, func(a *domain.Assessment) error {
		if err := ApplyResumeScore(a, score.Value, score.Comment, rec); err != nil {
			return err
		}
		a.ResumeRaw = datatypes.JSON(score.Raw)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := repo.TransitionApplication(ctx, s.DB, app.ID,
		domain.ApplicationScreening, domain.ApplicationSubmitted); err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().
		Str("application_id", app.ID).
		Float64("resume_score", score.Value).
		Str("recommendation", string(*a.Recommendation)).
		Msg("resume screened")
	return a, nil
}

// ScoreInterview executes one attempt of a scoring task. It is a no-op for
// tasks that are no longer PENDING or whose next attempt is not yet due.
// A failed attempt is recorded on the task:
// it is rescheduled with backoff, or marked FAILED once MaxAttempts is
// reached. Session and application status are never changed here.
func (s *AssessmentService) ScoreInterview(ctx context.Context, taskID string) error {
	tr := otel.Tracer("services/AssessmentService")
	ctx, span := tr.Start(ctx, "ScoreInterview",
		trace.WithAttributes(attribute.String("task.id", taskID)),
	)
	defer span.End()

	task, err := repo.GetScoringTask(ctx, s.DB, taskID)
	if errors.Is(err, repo.ErrNotFound) {
		return newError(ErrNotFound, "scoring task not found")
	}
	if err != nil {
		return err
	}
	if task.Status != domain.ScoringPending || task.NextAttemptAt.After(time.Now().UTC()) {
		return nil
	}
	span.SetAttributes(
		attribute.String("session.id", task.SessionID),
		attribute.Int("task.attempt", task.Attempts+1),
	)

	if err := s.scoreInterview(ctx, task); err != nil {
		span.RecordError(err)
		// the attempt deadline may already have expired
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordFailureTimeout)
		defer cancel()
		if rerr := s.recordFailure(fctx, task, err); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	if err := repo.MarkScoringDone(ctx, s.DB, task.ID); err != nil {
		return err
	}
	observability.ScoringAttempts.WithLabelValues(observability.ScoringSucceeded).Inc()
	return nil
}

func (s *AssessmentService) scoreInterview(ctx context.Context, task *domain.ScoringTask) error {
	app, err := repo.GetApplication(ctx, s.DB, task.ApplicationID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrApplicationNotFound
	}
	if err != nil {
		return err
	}

	var (
		job  *ai.JobContext
		msgs []domain.ChatMessage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		job, err = s.fetchJob(gctx, app.JobID)
		return err
	})
	g.Go(func() error {
		var err error
		msgs, err = repo.ListMessages(gctx, s.DB, task.SessionID)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	score, err := s.AI.ScoreInterview(ctx, ai.InterviewInput{Job: *job, History: toTurns(msgs)})
	if err != nil {
		return upstreamError("score interview", err)
	}
	rec, err := domain.ParseRecommendation(score.Recommendation)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecommendation, err)
	}

	a, err := s.merge(ctx, app.ID, func(a *domain.Assessment) error {
		if err := ApplyInterviewScore(a, score.Value, score.Comment, rec); err != nil {
			return err
		}
		a.InterviewRaw = datatypes.JSON(score.Raw)
		return nil
	})
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().
		Str("application_id", app.ID).
		Str("session_id", task.SessionID).
		Float64("interview_score", score.Value).
		Str("recommendation", string(*a.Recommendation)).
		Msg("interview scored")
	return nil
}

func (s *AssessmentService) recordFailure(ctx context.Context, task *domain.ScoringTask, cause error) error {
	attempts := task.Attempts + 1
	maxAttempts := s.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxScoringAttempts
	}
	backoff := s.Backoff
	if backoff == nil {
		backoff = ScoringBackoff
	}

	log := zerolog.Ctx(ctx).With().
		Str("task_id", task.ID).
		Str("session_id", task.SessionID).
		Int("attempt", attempts).
		Logger()

	var next *time.Time
	if attempts < maxAttempts {
		at := time.Now().UTC().Add(backoff(attempts))
		next = &at
		observability.ScoringAttempts.WithLabelValues(observability.ScoringRetried).Inc()
		log.Warn().Err(cause).Time("next_attempt_at", at).Msg("interview scoring failed; will retry")
	} else {
		observability.ScoringAttempts.WithLabelValues(observability.ScoringGaveUp).Inc()
		log.Error().Err(cause).Msg("interview scoring failed; giving up")
	}
	return repo.MarkScoringAttemptFailed(ctx, s.DB, task.ID, attempts, cause.Error(), next)
}

// RequeueInterview resets the scoring task of a completed session so it is
// attempted again from scratch.
func (s *AssessmentService) RequeueInterview(ctx context.Context, sessionID string) (*domain.ScoringTask, error) {
	task, err := repo.RequeueScoringTask(ctx, s.DB, sessionID, time.Now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, newError(ErrNotFound, "no scoring task for session")
	}
	return task, err
}

// GetAssessment returns the application's assessment if the caller may see it.
func (s *AssessmentService) GetAssessment(ctx context.Context, applicationID string, caller Caller) (*domain.Assessment, error) {
	tr := otel.Tracer("services/AssessmentService")
	ctx, span := tr.Start(ctx, "GetAssessment",
		trace.WithAttributes(attribute.String("application.id", applicationID)),
	)
	defer span.End()

	app, err := repo.GetApplication(ctx, s.DB, applicationID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, err
	}
	if !caller.canRead(app) {
		return nil, ErrAccessDenied
	}
	a, err := repo.GetAssessmentByApplication(ctx, s.DB, applicationID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrAssessmentNotFound
	}
	return a, err
}

// merge loads (or starts) the application's assessment, applies fn and saves
// the result while holding the application's write lock.
func (s *AssessmentService) merge(ctx context.Context, applicationID string, fn func(*domain.Assessment) error) (*domain.Assessment, error) {
	unlock, err := s.Locks.Lock(ctx, "assessment:"+applicationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out *domain.Assessment
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := repo.GetAssessmentByApplication(ctx, tx, applicationID)
		if errors.Is(err, repo.ErrNotFound) {
			a = &domain.Assessment{ApplicationID: applicationID}
		} else if err != nil {
			return err
		}
		if err := fn(a); err != nil {
			return err
		}
		if err := repo.SaveAssessment(ctx, tx, a); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return newError(ErrConflict, "assessment written concurrently")
			}
			return err
		}
		out = a
		return nil
	})
	return out, err
}

func (s *AssessmentService) fetchJob(ctx context.Context, jobID string) (*ai.JobContext, error) {
	job, err := s.Jobs.FetchJob(ctx, jobID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, upstreamError("fetch job", err)
	}
	return job, nil
}
