// Assessment HTTP handlers.
//
//   - GET  /applications/{id}/assessment  (merged resume and interview scores)
//   - POST /applications/{id}/screen      (HR: score the resume now)
//   - POST /sessions/{id}/rescore         (HR: retry interview scoring)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-interview-backend/internal/domain"
	"github.com/tbourn/go-interview-backend/internal/services"
)

// AssessmentResponse wraps an assessment.
type AssessmentResponse struct {
	Assessment *domain.Assessment `json:"assessment"`
}

// ScoringTaskResponse wraps a queued scoring task.
type ScoringTaskResponse struct {
	Task *domain.ScoringTask `json:"task"`
}

// GetAssessment godoc
// @ID          getAssessment
// @Summary     Get an application's assessment
// @Description Either half may be absent until it has been scored.
// @Tags        Assessments
// @Produce     json
// @Param       X-User-ID    header  string  true   "Caller ID"
// @Param       X-User-Role  header  string  false  "candidate (default) or hr"
// @Param       id           path    string  true   "Application ID (UUID)"  format(uuid)
// @Success     200  {object}  handlers.AssessmentResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Application or assessment not found"
// @Router      /applications/{id}/assessment [get]
func (h *Handlers) GetAssessment(c *gin.Context) {
	cl, found := caller(c)
	if !found {
		return
	}
	id, valid := uuidParam(c, "application")
	if !valid {
		return
	}
	a, err := h.assessments.GetAssessment(c.Request.Context(), id, cl)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, AssessmentResponse{Assessment: a})
}

// ScreenResume godoc
// @ID          screenResume
// @Summary     Score the resume of an application
// @Description Calls the AI synchronously and merges the verdict into the assessment.
// @Tags        Assessments
// @Produce     json
// @Param       X-User-ID    header  string  true  "HR user ID"
// @Param       X-User-Role  header  string  true  "Must be hr"
// @Param       id           path    string  true  "Application ID (UUID)"  format(uuid)
// @Success     200  {object}  handlers.AssessmentResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     502  {object}  handlers.ErrorResponse  "AI provider failed"
// @Router      /applications/{id}/screen [post]
func (h *Handlers) ScreenResume(c *gin.Context) {
	if !requireHR(c) {
		return
	}
	id, valid := uuidParam(c, "application")
	if !valid {
		return
	}
	a, err := h.assessments.ScreenResume(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, AssessmentResponse{Assessment: a})
}

// RescoreInterview godoc
// @ID          rescoreInterview
// @Summary     Retry interview scoring
// @Description Resets the session's scoring task; the worker picks it up on its next sweep.
// @Tags        Assessments
// @Produce     json
// @Param       X-User-ID    header  string  true  "HR user ID"
// @Param       X-User-Role  header  string  true  "Must be hr"
// @Param       id           path    string  true  "Session ID (UUID)"  format(uuid)
// @Success     202  {object}  handlers.ScoringTaskResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Session was never completed"
// @Router      /sessions/{id}/rescore [post]
func (h *Handlers) RescoreInterview(c *gin.Context) {
	if !requireHR(c) {
		return
	}
	id, valid := uuidParam(c, "session")
	if !valid {
		return
	}
	task, err := h.assessments.RequeueInterview(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusAccepted, ScoringTaskResponse{Task: task})
}

func requireHR(c *gin.Context) bool {
	cl, found := caller(c)
	if !found {
		return false
	}
	if cl.Role != services.RoleHR {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "hr role required")
		return false
	}
	return true
}
