package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Jayem09/coduxa-sub000/internal/auth"
	"github.com/Jayem09/coduxa-sub000/internal/auth/jwt"
	"github.com/Jayem09/coduxa-sub000/internal/db/repository"
	"github.com/Jayem09/coduxa-sub000/internal/question"
)

func newTestMux(h *HTTPHandlers, userID string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/exams/{examID}/sessions", h.Start)
	mux.HandleFunc("GET /v1/sessions/{sessionID}", h.Get)
	mux.HandleFunc("PUT /v1/sessions/{sessionID}/answers/{questionID}", h.Answer)
	mux.HandleFunc("POST /v1/sessions/{sessionID}/navigate", h.Navigate)
	mux.HandleFunc("POST /v1/sessions/{sessionID}/flags/{questionID}", h.Flag)
	mux.HandleFunc("POST /v1/sessions/{sessionID}/submit", h.Submit)
	mux.HandleFunc("POST /v1/sessions/{sessionID}/close", h.Close)
	mux.HandleFunc("GET /v1/users/me/profile", h.Profile)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID != "" {
			claims := &jwt.Claims{RegisteredClaims: gojwt.RegisteredClaims{Subject: userID}}
			r = r.WithContext(auth.WithClaims(r.Context(), claims))
		}
		mux.ServeHTTP(w, r)
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHTTPSessionFlow(t *testing.T) {
	f := newFixture(t)
	f.exams.On("GetExam", mock.Anything, "js-basics").Return(jsExam(), nil)
	f.profiles.On("DeductCredits", mock.Anything, "user-1234", 2).
		Return(repository.CreditDeduction{Success: true, NewBalance: 8}, nil)
	f.results.On("SaveExamResult", mock.Anything, mock.Anything).Return(nil)
	f.recorder.On("Record", mock.Anything, mock.Anything).Return(nil)
	h := newTestMux(NewHTTPHandlers(f.svc, zerolog.Nop()), "user-1234")

	rec, body := do(t, h, http.MethodPost, "/v1/exams/js-basics/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	id := body["sessionId"].(string)
	assert.EqualValues(t, 8, body["creditBalance"])

	rec, body = do(t, h, http.MethodPost, "/v1/sessions/"+id+"/navigate", `{"index": 2}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "question_locked", body["error"])

	rec, body = do(t, h, http.MethodPost, "/v1/sessions/"+id+"/navigate", `{"index": 9}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "index_out_of_range", body["error"])

	rec, body = do(t, h, http.MethodPost, "/v1/sessions/"+id+"/navigate", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_field", body["error"])

	rec, _ = do(t, h, http.MethodPut, "/v1/sessions/"+id+"/answers/q1", `{"answer": "let"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body = do(t, h, http.MethodPut, "/v1/sessions/"+id+"/answers/q9", `{"answer": "let"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_question", body["error"])

	rec, body = do(t, h, http.MethodPost, "/v1/sessions/"+id+"/flags/q2", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["flagged"])

	rec, body = do(t, h, http.MethodGet, "/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "in_progress", body["status"])

	rec, body = do(t, h, http.MethodPost, "/v1/sessions/"+id+"/submit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["saved"])

	rec, body = do(t, h, http.MethodPost, "/v1/sessions/"+id+"/submit", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_submitted", body["error"])
	assert.Contains(t, body["details"], "result")

	rec, body = do(t, h, http.MethodPost, "/v1/sessions/"+id+"/close", `{"save": true}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_submitted", body["error"])
}

func TestHTTPStart_Errors(t *testing.T) {
	f := newFixture(t)
	f.exams.On("GetExam", mock.Anything, "missing").Return(repository.Exam{}, repository.ErrNotFound)
	f.exams.On("GetExam", mock.Anything, "js-basics").Return(jsExam(), nil)
	f.profiles.On("DeductCredits", mock.Anything, "user-1234", 2).
		Return(repository.CreditDeduction{Success: false, NewBalance: 1, Error: "Insufficient credits"}, nil)
	h := newTestMux(NewHTTPHandlers(f.svc, zerolog.Nop()), "user-1234")

	rec, body := do(t, h, http.MethodPost, "/v1/exams/missing/sessions", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "exam_not_found", body["error"])

	rec, body = do(t, h, http.MethodPost, "/v1/exams/js-basics/sessions", "")
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "insufficient_credits", body["error"])
	assert.Equal(t, "Insufficient credits", body["message"])

	rec, body = do(t, h, http.MethodPost, "/v1/exams/js-basics/sessions", `{"sessionId":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", body["error"])
}

func TestHTTPRequiresUser(t *testing.T) {
	f := newFixture(t)
	h := newTestMux(NewHTTPHandlers(f.svc, zerolog.Nop()), "")

	rec, body := do(t, h, http.MethodGet, "/v1/sessions/abc", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "authentication_required", body["error"])
}

func TestHTTPProfile(t *testing.T) {
	f := newFixture(t)
	f.profiles.On("GetUserProfile", mock.Anything, "user-1234").Return(nil, nil).Once()
	f.profiles.On("GetUserProfile", mock.Anything, "user-1234").Return(nil, errors.New("boom")).Once()
	h := newTestMux(NewHTTPHandlers(f.svc, zerolog.Nop()), "user-1234")

	rec, _ := do(t, h, http.MethodGet, "/v1/users/me/profile", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body := do(t, h, http.MethodGet, "/v1/users/me/profile", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "profile_fetch_failed", body["error"])
}

func TestRespondErrMapping(t *testing.T) {
	h := NewHTTPHandlers(nil, zerolog.Nop())
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&CreditError{Reason: "no credits"}, http.StatusPaymentRequired, "insufficient_credits"},
		{ErrCreditCheck, http.StatusServiceUnavailable, "credit_check_failed"},
		{ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
		{ErrNotOwner, http.StatusForbidden, "not_session_owner"},
		{ErrSessionFinished, http.StatusConflict, "session_finished"},
		{ErrLockHeld, http.StatusConflict, "session_busy"},
		{ErrExamUnavailable, http.StatusConflict, "exam_unavailable"},
		{question.ErrNoQuestions, http.StatusConflict, "no_questions"},
		{&question.ValidationError{Field: "points", Message: "points must be positive"}, http.StatusBadRequest, "validation_failed"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.respondErr(rec, tt.err)
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body["error"])
		})
	}
}
