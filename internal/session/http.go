package session

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Jayem09/coduxa-sub000/internal/auth"
	"github.com/Jayem09/coduxa-sub000/internal/question"
	"github.com/Jayem09/coduxa-sub000/internal/scoring"
	httperrors "github.com/Jayem09/coduxa-sub000/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for exam sessions.
type HTTPHandlers struct {
	service *Service
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for session endpoints.
func NewHTTPHandlers(service *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		service: service,
		logger:  logger.With().Str("component", "session_http").Logger(),
	}
}

type startRequest struct {
	SessionID string `json:"sessionId,omitempty"`
}

type answerRequest struct {
	Answer *string `json:"answer"`
}

type navigateRequest struct {
	Index *int `json:"index"`
}

type closeRequest struct {
	Save bool `json:"save"`
}

// Start handles POST /v1/exams/{examID}/sessions
func (h *HTTPHandlers) Start(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	var req startRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	view, err := h.service.Start(r.Context(), StartRequest{
		ExamID:    r.PathValue("examID"),
		UserID:    userID,
		SessionID: req.SessionID,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}

	status := http.StatusCreated
	if view.Resumed {
		status = http.StatusOK
	}
	httperrors.RespondJSON(w, status, view)
}

// Get handles GET /v1/sessions/{sessionID}
func (h *HTTPHandlers) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	view, err := h.service.View(r.Context(), r.PathValue("sessionID"), userID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, view)
}

// Answer handles PUT /v1/sessions/{sessionID}/answers/{questionID}
func (h *HTTPHandlers) Answer(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.Answer == nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "answer is required", "answer")
		return
	}

	view, err := h.service.Answer(r.Context(), r.PathValue("sessionID"), userID, r.PathValue("questionID"), *req.Answer)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, view)
}

// Navigate handles POST /v1/sessions/{sessionID}/navigate
func (h *HTTPHandlers) Navigate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.Index == nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "index is required", "index")
		return
	}

	view, err := h.service.Navigate(r.Context(), r.PathValue("sessionID"), userID, *req.Index)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, view)
}

// Flag handles POST /v1/sessions/{sessionID}/flags/{questionID}
func (h *HTTPHandlers) Flag(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	questionID := r.PathValue("questionID")
	flagged, err := h.service.Flag(r.Context(), r.PathValue("sessionID"), userID, questionID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"questionId": questionID,
		"flagged":    flagged,
	})
}

// Submit handles POST /v1/sessions/{sessionID}/submit
func (h *HTTPHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	res, err := h.service.Submit(r.Context(), r.PathValue("sessionID"), userID)
	if errors.Is(err, ErrAlreadySubmitted) {
		httperrors.RespondErrorWithDetails(w, http.StatusConflict, httperrors.ErrCodeAlreadySubmitted, err.Error(), map[string]interface{}{
			"result": res.Result,
		})
		return
	}
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, res)
}

// Close handles POST /v1/sessions/{sessionID}/close
func (h *HTTPHandlers) Close(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var req closeRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	res, err := h.service.Close(r.Context(), r.PathValue("sessionID"), userID, req.Save)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, res)
}

// Results handles GET /v1/users/me/results
func (h *HTTPHandlers) Results(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	results, err := h.service.Results(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to load results")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeResultsFetchFailed, "Failed to load results")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// Profile handles GET /v1/users/me/profile
func (h *HTTPHandlers) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	profile, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to load profile")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeProfileFetchFailed, "Failed to load profile")
		return
	}
	if profile == nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "Profile not found")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, profile)
}

func (h *HTTPHandlers) user(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return "", false
	}
	return userID, true
}

// decodeOptional decodes a JSON body when one is present.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return false
	}
	return true
}

// respondErr maps service errors onto HTTP statuses.
func (h *HTTPHandlers) respondErr(w http.ResponseWriter, err error) {
	var (
		verr    *question.ValidationError
		credErr *CreditError
	)
	switch {
	case errors.As(err, &credErr):
		httperrors.RespondPaymentRequired(w, httperrors.ErrCodeInsufficientCredits, credErr.Reason, map[string]interface{}{
			"balance": credErr.Balance,
		})
	case errors.Is(err, ErrCreditCheck):
		h.logger.Error().Err(err).Msg("credit gate unavailable")
		httperrors.RespondError(w, http.StatusServiceUnavailable, httperrors.ErrCodeCreditCheckFailed, "Could not verify credits, please try again")
	case errors.Is(err, ErrSessionNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, err.Error())
	case errors.Is(err, ErrExamNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeExamNotFound, err.Error())
	case errors.Is(err, ErrNotOwner):
		httperrors.RespondForbidden(w, httperrors.ErrCodeNotSessionOwner, err.Error())
	case errors.Is(err, ErrForbidden):
		httperrors.RespondForbidden(w, httperrors.ErrCodeQuestionLocked, err.Error())
	case errors.Is(err, ErrOutOfRange):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeIndexOutOfRange, err.Error())
	case errors.Is(err, ErrUnknownQuestion):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeUnknownQuestion, err.Error())
	case errors.Is(err, ErrNoAnswer), errors.Is(err, ErrInvalidRequest):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeValidationFailed, err.Error())
	case errors.Is(err, scoring.ErrInvalidThreshold):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidThreshold, err.Error())
	case errors.As(err, &verr):
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, verr.Error(), verr.Field)
	case errors.Is(err, ErrAlreadySubmitted):
		httperrors.RespondConflict(w, httperrors.ErrCodeAlreadySubmitted, err.Error())
	case errors.Is(err, ErrSessionFinished):
		httperrors.RespondConflict(w, httperrors.ErrCodeSessionFinished, err.Error())
	case errors.Is(err, ErrLockHeld):
		httperrors.RespondConflict(w, httperrors.ErrCodeSessionBusy, "Session is in use on another server, retry shortly")
	case errors.Is(err, ErrExamUnavailable):
		httperrors.RespondConflict(w, httperrors.ErrCodeExamUnavailable, err.Error())
	case errors.Is(err, question.ErrNoQuestions):
		httperrors.RespondConflict(w, httperrors.ErrCodeNoQuestions, err.Error())
	default:
		h.logger.Error().Err(err).Msg("session request failed")
		httperrors.RespondInternalError(w, "Internal error")
	}
}
