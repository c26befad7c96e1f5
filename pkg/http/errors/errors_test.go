package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var out ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRespondValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondValidationError(rec, ErrCodeMissingField, "answer is required", "answer")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, ErrCodeMissingField, body.Error)
	assert.Equal(t, "answer", body.Field)
}

func TestRespondPaymentRequired(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondPaymentRequired(rec, ErrCodeInsufficientCredits, "Insufficient credits", map[string]interface{}{"balance": 1})

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Insufficient credits", body.Message)
	assert.EqualValues(t, 1, body.Details["balance"])
}

func TestRespondInternalError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondInternalError(rec, "Internal error")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, ErrCodeInternalError, body.Error)
	assert.Empty(t, body.Field)
	assert.Nil(t, body.Details)
}
