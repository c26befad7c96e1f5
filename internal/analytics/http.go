package analytics

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	httperrors "github.com/Jayem09/coduxa-sub000/pkg/http/errors"
)

type summaryReader interface {
	Summary(ctx context.Context, examID string) (ExamSummary, error)
}

// HTTPHandler exposes exam analytics over REST.
type HTTPHandler struct {
	svc    summaryReader
	logger zerolog.Logger
}

// NewHTTPHandler constructs an analytics HTTP handler.
func NewHTTPHandler(svc summaryReader, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:    svc,
		logger: logger.With().Str("component", "analytics_http").Logger(),
	}
}

// HandleGet responds with the aggregates of one exam.
// Route: GET /v1/exams/{examID}/analytics
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	examID := r.PathValue("examID")
	if examID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "exam id required", "examID")
		return
	}

	summary, err := h.svc.Summary(r.Context(), examID)
	if err != nil {
		h.logger.Warn().Err(err).Str("exam_id", examID).Msg("analytics fetch failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeAnalyticsFetchFailed, "failed to fetch analytics")
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"summary":     summary,
		"retrievedAt": time.Now().UTC().Format(time.RFC3339),
	})
}
