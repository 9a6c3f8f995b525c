package handlers

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-interview-backend/internal/domain"
	"github.com/tbourn/go-interview-backend/internal/http/middleware"
	"github.com/tbourn/go-interview-backend/internal/services"
	"github.com/tbourn/go-interview-backend/internal/utils"
)

//
// Service contracts
//

// SessionService covers interview session reads and lifecycle changes.
type SessionService interface {
	GetOrCreateSession(ctx context.Context, applicationID string, caller services.Caller) (*domain.ChatSession, bool, error)
	GetSession(ctx context.Context, sessionID string, caller services.Caller) (*domain.ChatSession, error)
	CompleteSession(ctx context.Context, sessionID string, caller services.Caller) (*domain.ChatSession, error)
	ListMessages(ctx context.Context, sessionID string, caller services.Caller, page, pageSize int) ([]domain.ChatMessage, int64, error)
}

// ReplyStreamer records a candidate turn and streams the interviewer's reply.
type ReplyStreamer interface {
	StreamReply(ctx context.Context, sessionID, candidateID, content string) (<-chan services.StreamEvent, error)
}

// AssessmentService reads and produces application assessments.
type AssessmentService interface {
	GetAssessment(ctx context.Context, applicationID string, caller services.Caller) (*domain.Assessment, error)
	ScreenResume(ctx context.Context, applicationID string) (*domain.Assessment, error)
	RequeueInterview(ctx context.Context, sessionID string) (*domain.ScoringTask, error)
}

//
// Handler wiring
//

// DefaultIdempotencyTTL is how long a replayable reply is kept.
const DefaultIdempotencyTTL = 24 * time.Hour

// Handlers groups the interview and assessment endpoints.
type Handlers struct {
	sessions    SessionService
	streamer    ReplyStreamer
	assessments AssessmentService

	// db backs idempotency records and ETag stats. Both are skipped when nil.
	db      *gorm.DB
	idemTTL time.Duration
}

// New constructs Handlers bound to the given services.
func New(sessions SessionService, streamer ReplyStreamer, assessments AssessmentService, db *gorm.DB) *Handlers {
	return &Handlers{
		sessions:    sessions,
		streamer:    streamer,
		assessments: assessments,
		db:          db,
		idemTTL:     DefaultIdempotencyTTL,
	}
}

// SetIdempotencyTTL overrides DefaultIdempotencyTTL.
func (h *Handlers) SetIdempotencyTTL(ttl time.Duration) { h.idemTTL = ttl }

// caller returns the identity resolved by middleware.Identity, aborting with
// 401 when it is missing.
func caller(c *gin.Context) (services.Caller, bool) {
	cl, found := middleware.CallerFrom(c)
	if !found {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing caller identity")
	}
	return cl, found
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

//
// Helpers
//

// clampPagination reads page and page_size, defaulting to 1 and 50 and
// capping page_size at 200.
func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.ClampPage(
		utils.AtoiDefault(c.Query("page"), 1),
		utils.AtoiDefault(c.Query("page_size"), utils.DefaultPageSize),
	)
}

var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent unifies line endings and collapses runs of blank lines.
// Trimming, Unicode normalization and the length limit belong to the
// session service.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return nlCollapseRE.ReplaceAllString(s, "\n\n")
}
