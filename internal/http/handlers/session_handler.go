// Interview session HTTP handlers.
//
//   - POST /applications/{id}/session   (start or resume the interview)
//   - GET  /sessions/{id}               (session state)
//   - POST /sessions/{id}/messages      (candidate turn, reply streamed as SSE)
//   - GET  /sessions/{id}/messages      (transcript, paginated, ETag)
//   - POST /sessions/{id}/complete      (end the interview early)
//
// Replies stream as text/event-stream. Each event's data is JSON:
//
//	event: token             data: {"text":"..."}
//	event: message           data: {"message":{...}}
//	event: session_complete  data: {"session":{...}}
//	event: error             data: {"code":"timeout","message":"..."}
//
// A stream carries any number of token events and ends with exactly one of
// the other three.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-interview-backend/internal/domain"
	"github.com/tbourn/go-interview-backend/internal/http/middleware"
	"github.com/tbourn/go-interview-backend/internal/repo"
	"github.com/tbourn/go-interview-backend/internal/services"
)

//
// DTOs
//

// PostMessageRequest is the candidate's turn.
type PostMessageRequest struct {
	Content string `json:"content" binding:"required" example:"I led the migration of our billing service to Go."`
}

// SessionResponse wraps a session.
type SessionResponse struct {
	Session *domain.ChatSession `json:"session"`
}

// ListMessagesResponse contains a page of the transcript.
type ListMessagesResponse struct {
	Messages   []domain.ChatMessage `json:"messages"`
	Pagination Pagination           `json:"pagination"`
}

// TokenEvent is the data of a "token" event.
type TokenEvent struct {
	Text string `json:"text"`
}

// MessageEvent is the data of a "message" event: the persisted AI turn.
type MessageEvent struct {
	Message *domain.ChatMessage `json:"message"`
}

// SessionCompleteEvent is the data of a "session_complete" event.
type SessionCompleteEvent struct {
	Session *domain.ChatSession `json:"session"`
}

// StreamErrorEvent is the data of an "error" event.
type StreamErrorEvent struct {
	Code    string `json:"code" example:"upstream_error"`
	Message string `json:"message"`
}

//
// Handlers
//

// StartSession godoc
// @ID          startSession
// @Summary     Start or resume the interview of an application
// @Description Returns the application's interview session, creating it on first call.
// @Tags        Sessions
// @Produce     json
// @Param       X-User-ID  header  string  true  "Candidate ID"  example(cand-123)
// @Param       id         path    string  true  "Application ID (UUID)"  format(uuid)
// @Success     200  {object}  handlers.SessionResponse  "Existing session"
// @Success     201  {object}  handlers.SessionResponse  "Session created"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Application not found"
// @Router      /applications/{id}/session [post]
func (h *Handlers) StartSession(c *gin.Context) {
	cl, found := caller(c)
	if !found {
		return
	}
	appID, valid := uuidParam(c, "application")
	if !valid {
		return
	}

	sess, created, err := h.sessions.GetOrCreateSession(c.Request.Context(), appID, cl)
	if err != nil {
		failErr(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	ok(c, status, SessionResponse{Session: sess})
}

// GetSession godoc
// @ID          getSession
// @Summary     Get an interview session
// @Tags        Sessions
// @Produce     json
// @Param       X-User-ID    header  string  true   "Caller ID"
// @Param       X-User-Role  header  string  false  "candidate (default) or hr"
// @Param       id           path    string  true   "Session ID (UUID)"  format(uuid)
// @Success     200  {object}  handlers.SessionResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /sessions/{id} [get]
func (h *Handlers) GetSession(c *gin.Context) {
	cl, found := caller(c)
	if !found {
		return
	}
	id, valid := uuidParam(c, "session")
	if !valid {
		return
	}
	sess, err := h.sessions.GetSession(c.Request.Context(), id, cl)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, SessionResponse{Session: sess})
}

// PostMessage godoc
// @ID          postMessage
// @Summary     Answer the interviewer and stream the next question
// @Description Records the candidate's turn and streams the AI reply as server-sent events.
// @Description The turn that reaches the turn limit ends the interview with a session_complete event instead.
// @Description A retry with the same Idempotency-Key replays the stored reply as a single message event.
// @Tags        Sessions
// @Accept      json
// @Produce     text/event-stream
// @Param       X-User-ID        header  string  true   "Candidate ID"
// @Param       Idempotency-Key  header  string  false  "Key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id               path    string  true   "Session ID (UUID)"  format(uuid)
// @Param       body             body    handlers.PostMessageRequest  true  "Candidate turn"
// @Success     200  {object}  handlers.TokenEvent  "Event stream"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse  "A reply is already streaming"
// @Router      /sessions/{id}/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	cl, found := caller(c)
	if !found {
		return
	}
	if cl.Role != services.RoleCandidate {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "only the candidate can answer")
		return
	}
	sessionID, valid := uuidParam(c, "session")
	if !valid {
		return
	}
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	ctx := c.Request.Context()
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && h.replay(c, cl.ID, sessionID, idemKey) {
		return
	}

	events, err := h.streamer.StreamReply(ctx, sessionID, cl.ID, sanitizeContent(req.Content))
	if err != nil {
		failErr(c, err)
		return
	}

	writeStream(c, events, func(m *domain.ChatMessage) {
		if idemKey == "" || h.db == nil {
			return
		}
		// the reply is persisted even if the client left; so is its key
		storeCtx := context.WithoutCancel(ctx)
		if _, err := repo.CreateIdempotency(storeCtx, h.db, cl.ID, sessionID, idemKey, m.ID, h.idemTTL); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("store idempotency record")
		}
	})
}

// replay answers a retried turn from its stored reply. It reports whether a
// response was written.
func (h *Handlers) replay(c *gin.Context, userID, sessionID, key string) bool {
	if h.db == nil {
		return false
	}
	ctx := c.Request.Context()
	rec, err := repo.GetIdempotency(ctx, h.db, userID, sessionID, key, time.Now().UTC())
	if err != nil {
		return false
	}
	prev, err := repo.GetMessage(ctx, h.db, rec.MessageID)
	if err != nil {
		return false
	}
	c.Header("Idempotency-Replayed", "true")
	replayed := make(chan services.StreamEvent, 1)
	replayed <- services.StreamEvent{Type: services.EventMessage, Message: prev}
	close(replayed)
	writeStream(c, replayed, nil)
	return true
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List the interview transcript
// @Description Returns messages in conversation order. Supports If-None-Match.
// @Tags        Sessions
// @Produce     json
// @Param       X-User-ID    header  string  true   "Caller ID"
// @Param       X-User-Role  header  string  false  "candidate (default) or hr"
// @Param       id           path    string  true   "Session ID (UUID)"  format(uuid)
// @Param       page         query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size    query   int     false  "Items per page"  minimum(1) maximum(200) default(50)
// @Success     200  {object}  handlers.ListMessagesResponse
// @Success     304  "Not modified"
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /sessions/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	cl, found := caller(c)
	if !found {
		return
	}
	id, valid := uuidParam(c, "session")
	if !valid {
		return
	}
	ctx := c.Request.Context()

	// access is checked before anything about the transcript is revealed
	if _, err := h.sessions.GetSession(ctx, id, cl); err != nil {
		failErr(c, err)
		return
	}

	if h.db != nil {
		if count, last, err := repo.MessagesStats(ctx, h.db, id); err == nil {
			var ts int64
			if last != nil {
				ts = last.UnixNano()
			}
			etag := fmt.Sprintf(`W/"messages:%s:%d:%d"`, id, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	page, pageSize := clampPagination(c)
	items, total, err := h.sessions.ListMessages(ctx, id, cl, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages:   items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// CompleteSession godoc
// @ID          completeSession
// @Summary     End the interview
// @Description Marks the session complete and queues interview scoring. Idempotent.
// @Tags        Sessions
// @Produce     json
// @Param       X-User-ID  header  string  true  "Candidate ID"
// @Param       id         path    string  true  "Session ID (UUID)"  format(uuid)
// @Success     200  {object}  handlers.SessionResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /sessions/{id}/complete [post]
func (h *Handlers) CompleteSession(c *gin.Context) {
	cl, found := caller(c)
	if !found {
		return
	}
	id, valid := uuidParam(c, "session")
	if !valid {
		return
	}
	sess, err := h.sessions.CompleteSession(c.Request.Context(), id, cl)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, SessionResponse{Session: sess})
}

//
// Helpers
//

// uuidParam validates the ":id" path parameter, failing with 400 otherwise.
func uuidParam(c *gin.Context, what string) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, what+" id must be a UUID")
		return "", false
	}
	return id, true
}

// writeStream relays events as SSE until the stream ends. Once the client
// goes away nothing more is written, but events are drained to the end so
// onMessage still runs for the persisted AI turn.
func writeStream(c *gin.Context, events <-chan services.StreamEvent, onMessage func(*domain.ChatMessage)) {
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	done := c.Request.Context().Done()
	gone := false
	for {
		select {
		case <-done:
			done, gone = nil, true
		case ev, open := <-events:
			if !open {
				return
			}
			if ev.Type == services.EventMessage && onMessage != nil {
				onMessage(ev.Message)
			}
			if gone {
				continue
			}
			c.SSEvent(string(ev.Type), ssePayload(ev))
			c.Writer.Flush()
		}
	}
}

func ssePayload(ev services.StreamEvent) any {
	switch ev.Type {
	case services.EventToken:
		return TokenEvent{Text: ev.Text}
	case services.EventMessage:
		return MessageEvent{Message: ev.Message}
	case services.EventSessionComplete:
		return SessionCompleteEvent{Session: ev.Session}
	default:
		return StreamErrorEvent{Code: ev.Code, Message: ev.Detail}
	}
}
