package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Jayem09/coduxa-sub000/internal/question"
)

// ExamResult is the persisted outcome of a submitted or closed attempt.
type ExamResult struct {
	ID            uuid.UUID           `json:"id"`
	SessionID     string              `json:"sessionId"`
	UserID        string              `json:"userId"`
	ExamID        string              `json:"examId"`
	ExamTitle     string              `json:"examTitle"`
	Status        string              `json:"status"`
	StartTime     time.Time           `json:"startTime"`
	EndTime       time.Time           `json:"endTime"`
	TimeSpent     int                 `json:"timeSpent"`
	Score         int                 `json:"score"`
	MaxScore      int                 `json:"maxScore"`
	Percentage    float64             `json:"percentage"`
	Grade         string              `json:"grade"`
	Passed        bool                `json:"passed"`
	Answers       map[string]string   `json:"answers"`
	Questions     []question.Question `json:"questions"`
	CertificateID string              `json:"certificateId,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// ResultRepository stores exam results and keeps profile counters in step.
type ResultRepository struct {
	db DBTX
}

func NewResultRepository(db DBTX) *ResultRepository {
	return &ResultRepository{db: db}
}

// SaveExamResult inserts the result once per session and bumps the user's
// attempt counters in the same statement. Saving the same session again
// returns the stored row unchanged.
func (r *ResultRepository) SaveExamResult(ctx context.Context, res ExamResult) (ExamResult, error) {
	answers, err := json.Marshal(res.Answers)
	if err != nil {
		return ExamResult{}, fmt.Errorf("marshal answers: %w", err)
	}
	questions, err := json.Marshal(res.Questions)
	if err != nil {
		return ExamResult{}, fmt.Errorf("marshal questions: %w", err)
	}
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}

	err = r.db.QueryRow(ctx, `
		WITH saved AS (
			INSERT INTO exam_results (id, session_id, user_id, exam_id, exam_title, status, start_time, end_time,
			                          time_spent_minutes, score, max_score, percentage, grade, passed,
			                          answers, questions, certificate_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NULLIF($17, ''))
			ON CONFLICT (session_id) DO NOTHING
			RETURNING created_at
		), counted AS (
			UPDATE profiles
			SET exams_taken = exams_taken + 1,
			    exams_passed = exams_passed + CASE WHEN $14 THEN 1 ELSE 0 END,
			    updated_at = now()
			WHERE user_id = $3 AND EXISTS (SELECT 1 FROM saved)
		)
		SELECT created_at FROM saved`,
		res.ID, res.SessionID, res.UserID, res.ExamID, res.ExamTitle, res.Status, res.StartTime, res.EndTime,
		res.TimeSpent, res.Score, res.MaxScore, res.Percentage, res.Grade, res.Passed,
		answers, questions, res.CertificateID,
	).Scan(&res.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.getBySession(ctx, res.SessionID)
	}
	if err != nil {
		return ExamResult{}, fmt.Errorf("save exam result: %w", err)
	}
	return res, nil
}

const resultColumns = `id, session_id, user_id, exam_id, exam_title, status, start_time, end_time,
	time_spent_minutes, score, max_score, percentage, grade, passed, answers, questions,
	COALESCE(certificate_id, ''), created_at`

func scanResult(row interface{ Scan(...any) error }) (ExamResult, error) {
	var (
		res                ExamResult
		answers, questions []byte
	)
	if err := row.Scan(&res.ID, &res.SessionID, &res.UserID, &res.ExamID, &res.ExamTitle, &res.Status,
		&res.StartTime, &res.EndTime, &res.TimeSpent, &res.Score, &res.MaxScore, &res.Percentage,
		&res.Grade, &res.Passed, &answers, &questions, &res.CertificateID, &res.CreatedAt); err != nil {
		return ExamResult{}, err
	}
	if err := unmarshalOptional(answers, &res.Answers); err != nil {
		return ExamResult{}, fmt.Errorf("result %s answers: %w", res.ID, err)
	}
	if err := unmarshalOptional(questions, &res.Questions); err != nil {
		return ExamResult{}, fmt.Errorf("result %s questions: %w", res.ID, err)
	}
	return res, nil
}

func (r *ResultRepository) getBySession(ctx context.Context, sessionID string) (ExamResult, error) {
	res, err := scanResult(r.db.QueryRow(ctx, `SELECT `+resultColumns+` FROM exam_results WHERE session_id = $1`, sessionID))
	if err != nil {
		return ExamResult{}, fmt.Errorf("get exam result: %w", notFound(err))
	}
	return res, nil
}

// GetUserExamResults lists a user's results, newest first.
func (r *ResultRepository) GetUserExamResults(ctx context.Context, userID string) ([]ExamResult, error) {
	rows, err := r.db.Query(ctx, `SELECT `+resultColumns+` FROM exam_results WHERE user_id = $1 ORDER BY end_time DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []ExamResult{}
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
