package repository

import (
	"context"
	"fmt"
	"time"
)

// Exam is a catalogue entry a candidate can start an attempt for.
type Exam struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Category         string    `json:"category,omitempty"`
	TimeLimitMinutes int       `json:"timeLimit"`
	QuestionCount    int       `json:"questionCount"`
	PassingThreshold *float64  `json:"passingScore,omitempty"` // nil uses the server default
	CreditCost       int       `json:"creditCost"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"createdAt"`
}

// TimeLimit returns the allotted duration; 0 means untimed.
func (e Exam) TimeLimit() time.Duration {
	return time.Duration(e.TimeLimitMinutes) * time.Minute
}

const examColumns = `id, title, description, category, time_limit_minutes, question_count,
	passing_threshold, credit_cost, active, created_at`

// ExamRepository reads the exam catalogue.
type ExamRepository struct {
	db DBTX
}

func NewExamRepository(db DBTX) *ExamRepository {
	return &ExamRepository{db: db}
}

func scanExam(row interface{ Scan(...any) error }) (Exam, error) {
	var e Exam
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Category, &e.TimeLimitMinutes, &e.QuestionCount,
		&e.PassingThreshold, &e.CreditCost, &e.Active, &e.CreatedAt)
	return e, err
}

// GetExam fetches one exam by id.
func (r *ExamRepository) GetExam(ctx context.Context, id string) (Exam, error) {
	e, err := scanExam(r.db.QueryRow(ctx, `SELECT `+examColumns+` FROM exams WHERE id = $1`, id))
	if err != nil {
		return Exam{}, fmt.Errorf("get exam %s: %w", id, notFound(err))
	}
	return e, nil
}

// ListActive returns every exam open for attempts, ordered by title.
func (r *ExamRepository) ListActive(ctx context.Context) ([]Exam, error) {
	rows, err := r.db.Query(ctx, `SELECT `+examColumns+` FROM exams WHERE active ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// Upsert creates or replaces a catalogue entry.
func (r *ExamRepository) Upsert(ctx context.Context, e Exam) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO exams (id, title, description, category, time_limit_minutes, question_count,
		                   passing_threshold, credit_cost, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, description = EXCLUDED.description, category = EXCLUDED.category,
			time_limit_minutes = EXCLUDED.time_limit_minutes, question_count = EXCLUDED.question_count,
			passing_threshold = EXCLUDED.passing_threshold, credit_cost = EXCLUDED.credit_cost,
			active = EXCLUDED.active`,
		e.ID, e.Title, e.Description, e.Category, e.TimeLimitMinutes, e.QuestionCount,
		e.PassingThreshold, e.CreditCost, e.Active)
	return err
}
