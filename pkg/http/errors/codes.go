package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeForbidden              = "forbidden"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"
	ErrCodeInvalidThreshold = "invalid_threshold"

	// Resource errors
	ErrCodeNotFound        = "not_found"
	ErrCodeExamNotFound    = "exam_not_found"
	ErrCodeSessionNotFound = "session_not_found"
	ErrCodeConflict        = "conflict"

	// Session errors
	ErrCodeIndexOutOfRange  = "index_out_of_range"
	ErrCodeQuestionLocked   = "question_locked"
	ErrCodeUnknownQuestion  = "unknown_question"
	ErrCodeSessionFinished  = "session_finished"
	ErrCodeAlreadySubmitted = "already_submitted"
	ErrCodeSessionBusy      = "session_busy"
	ErrCodeNotSessionOwner  = "not_session_owner"
	ErrCodeStartFailed      = "start_failed"
	ErrCodeSubmitFailed     = "submit_failed"
	ErrCodeNoQuestions      = "no_questions"
	ErrCodeExamUnavailable  = "exam_unavailable"

	// Credit errors
	ErrCodeInsufficientCredits = "insufficient_credits"
	ErrCodeCreditCheckFailed   = "credit_check_failed"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"
	ErrCodeConnectionError    = "connection_error"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"

	// Read model errors
	ErrCodeResultsFetchFailed   = "results_fetch_failed"
	ErrCodeProfileFetchFailed   = "profile_fetch_failed"
	ErrCodeAnalyticsFetchFailed = "analytics_fetch_failed"
)
