package handlers

// Error codes returned in ErrorResponse.Code. Clients branch on these, never
// on messages.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	// Failures of the AI provider behind a request.
	ErrCodeUpstream = "upstream_error"
	ErrCodeTimeout  = "timeout"
)
