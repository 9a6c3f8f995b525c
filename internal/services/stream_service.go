// Package services – StreamService
//
// StreamService turns one candidate turn into a stream of events: tokens of
// the interviewer's reply as they arrive, then exactly one terminal event.
//
// A reply is persisted only after the model finished successfully, so the
// transcript never holds a partial AI message. The generation runs detached
// from the request context: a client that disconnects stops receiving
// events, but the reply is still drained and persisted. An idle deadline
// between chunks bounds a stalled upstream.

package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-interview-backend/internal/ai"
	"github.com/tbourn/go-interview-backend/internal/domain"
	"github.com/tbourn/go-interview-backend/internal/keylock"
	"github.com/tbourn/go-interview-backend/internal/observability"
	"github.com/tbourn/go-interview-backend/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultStreamIdleTimeout applies when StreamService.IdleTimeout is unset.
const DefaultStreamIdleTimeout = 30 * time.Second

// EventType names the kind of a StreamEvent.
type EventType string

const (
	EventToken           EventType = "token"
	EventMessage         EventType = "message"
	EventSessionComplete EventType = "session_complete"
	EventError           EventType = "error"
)

// Error codes carried by EventError.
const (
	CodeUpstream = "upstream_error"
	CodeTimeout  = "timeout"
	CodeInternal = "internal_error"
)

// StreamEvent is one element of a reply stream.
type StreamEvent struct {
	Type EventType

	// EventToken
	Text string
	// EventMessage
	Message *domain.ChatMessage
	// EventSessionComplete
	Session *domain.ChatSession
	// EventError
	Code   string
	Detail string
}

// Terminal reports whether e ends its stream.
func (e StreamEvent) Terminal() bool { return e.Type != EventToken }

// JobLookup resolves the posting an application belongs to.
type JobLookup interface {
	FetchJob(ctx context.Context, jobID string) (*ai.JobContext, error)
}

// StreamService relays interviewer replies for candidate turns.
type StreamService struct {
	Sessions *SessionService
	AI       ai.Interviewer
	Jobs     JobLookup

	// Locks serializes turns per session. Required.
	Locks *keylock.Map
	// IdleTimeout bounds the wait for the first and every following chunk.
	IdleTimeout time.Duration

	relays sync.WaitGroup
}

// Wait blocks until every reply started by StreamReply has been persisted
// or abandoned, or ctx is done. Call it once no new turns can arrive.
func (s *StreamService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.relays.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StreamReply records the candidate's turn and returns the reply stream.
// The channel yields zero or more EventToken values followed by exactly one
// terminal event, then closes.
//
// Synchronous errors mean nothing was recorded: validation failures,
// ErrSessionBusy while another reply for the session is in flight, missing
// session or ownership mismatch.
func (s *StreamService) StreamReply(ctx context.Context, sessionID, candidateID, content string) (<-chan StreamEvent, error) {
	tr := otel.Tracer("services/StreamService")
	ctx, span := tr.Start(ctx, "StreamReply",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("user.id", candidateID),
		),
	)

	if _, err := s.Sessions.NormalizeContent(content); err != nil {
		span.End()
		return nil, err
	}

	unlock, ok := s.Locks.TryLock(sessionID)
	if !ok {
		span.End()
		return nil, ErrSessionBusy
	}

	start := time.Now()
	turn, err := s.Sessions.RecordCandidateTurn(ctx, sessionID, candidateID, content)
	if err != nil {
		unlock()
		span.RecordError(err)
		span.End()
		return nil, err
	}

	if turn.Finished() {
		out := make(chan StreamEvent, 1)
		out <- StreamEvent{Type: EventSessionComplete, Session: turn.Session}
		close(out)
		unlock()
		observability.StreamOutcomes.WithLabelValues(observability.OutcomeCompleted).Inc()
		span.SetAttributes(attribute.String("stream.outcome", observability.OutcomeCompleted))
		span.End()
		return out, nil
	}

	out := make(chan StreamEvent)
	s.relays.Add(1)
	go func() {
		defer s.relays.Done()
		defer span.End()
		defer unlock()
		defer close(out)

		outcome := s.relay(ctx, turn, out)
		observability.StreamOutcomes.WithLabelValues(outcome).Inc()
		observability.StreamDuration.Observe(time.Since(start).Seconds())
		span.SetAttributes(attribute.String("stream.outcome", outcome))
		if outcome != observability.OutcomeReplied {
			span.SetStatus(codes.Error, outcome)
		}
	}()
	return out, nil
}

// relay runs one reply to completion and reports its outcome. Events are
// delivered while reqCtx is alive; after that they are dropped.
func (s *StreamService) relay(reqCtx context.Context, turn *TurnResult, out chan<- StreamEvent) string {
	log := zerolog.Ctx(reqCtx).With().
		Str("session_id", turn.Session.ID).
		Logger()

	delivering := true
	emit := func(ev StreamEvent) {
		if !delivering {
			return
		}
		select {
		case out <- ev:
		case <-reqCtx.Done():
			delivering = false
			observability.StreamsAbandoned.Inc()
			log.Info().Msg("client left; finishing reply in background")
		}
	}
	fail := func(code, detail string, err error) {
		log.Warn().Err(err).Str("code", code).Msg("reply stream failed")
		emit(StreamEvent{Type: EventError, Code: code, Detail: detail})
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(reqCtx))
	defer cancel()

	idle := s.IdleTimeout
	if idle <= 0 {
		idle = DefaultStreamIdleTimeout
	}
	var timedOut atomic.Bool
	timer := time.AfterFunc(idle, func() {
		timedOut.Store(true)
		cancel()
	})
	defer timer.Stop()

	job, err := s.Jobs.FetchJob(ctx, turn.Application.JobID)
	if err != nil {
		if timedOut.Load() {
			fail(CodeTimeout, "the interviewer did not respond in time", err)
			return observability.OutcomeTimeout
		}
		fail(CodeUpstream, "job context unavailable", err)
		return observability.OutcomeUpstream
	}

	msgs, err := repo.ListMessages(ctx, s.Sessions.DB, turn.Session.ID)
	if err != nil {
		fail(CodeInternal, "could not load the conversation", err)
		return observability.OutcomeInternal
	}

	chunks, err := s.AI.GenerateReply(ctx, ai.ReplyInput{
		Job:        *job,
		ResumeText: turn.Application.ResumeText,
		History:    toTurns(msgs),
	})
	if err != nil {
		if timedOut.Load() {
			fail(CodeTimeout, "the interviewer did not respond in time", err)
			return observability.OutcomeTimeout
		}
		fail(CodeUpstream, "the interviewer is unavailable", err)
		return observability.OutcomeUpstream
	}

	var (
		buf       strings.Builder
		streamErr error
	)
	for ch := range chunks {
		if ch.Err != nil {
			streamErr = ch.Err
			break
		}
		if !timer.Stop() {
			// deadline already fired; the producer is shutting down
			break
		}
		timer.Reset(idle)
		if ch.Text == "" {
			continue
		}
		observability.StreamChunks.Inc()
		buf.WriteString(ch.Text)
		emit(StreamEvent{Type: EventToken, Text: ch.Text})
	}
	timer.Stop()

	switch {
	case timedOut.Load():
		fail(CodeTimeout, "the interviewer did not respond in time", context.DeadlineExceeded)
		return observability.OutcomeTimeout
	case streamErr != nil:
		fail(CodeUpstream, "the interviewer stream failed", streamErr)
		return observability.OutcomeUpstream
	case strings.TrimSpace(buf.String()) == "":
		fail(CodeUpstream, "the interviewer returned an empty reply", ai.ErrEmptyResponse)
		return observability.OutcomeUpstream
	}

	msg, err := s.Sessions.RecordAITurn(ctx, turn.Session.ID, buf.String())
	if err != nil {
		fail(CodeInternal, "could not save the reply", err)
		return observability.OutcomeInternal
	}
	emit(StreamEvent{Type: EventMessage, Message: msg})
	log.Debug().Str("message_id", msg.ID).Int("seq", msg.Seq).Msg("reply persisted")
	return observability.OutcomeReplied
}

// toTurns maps the stored transcript onto the generation contract.
func toTurns(msgs []domain.ChatMessage) []ai.Turn {
	out := make([]ai.Turn, 0, len(msgs))
	for _, m := range msgs {
		sp := ai.SpeakerCandidate
		if m.Sender == domain.SenderAI {
			sp = ai.SpeakerInterviewer
		}
		out = append(out, ai.Turn{Speaker: sp, Content: m.Content})
	}
	return out
}
